package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/disk"
)

// Pinger is satisfied by the record store.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler reports record store reachability and content-directory disk usage.
type HealthHandler struct {
	db       Pinger
	diskPath string // empty when blobs are not on local disk
	usage    func(ctx context.Context, path string) (*disk.UsageStat, error)
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db Pinger, diskPath string) *HealthHandler {
	return &HealthHandler{db: db, diskPath: diskPath, usage: disk.UsageWithContext}
}

type diskReport struct {
	Path        string  `json:"path"`
	Total       uint64  `json:"total"`
	Free        uint64  `json:"free"`
	UsedPercent float64 `json:"usedPercent"`
}

// Check handles the health probe.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	body := map[string]interface{}{"status": "ok", "database": "ok"}

	if err := h.db.PingContext(ctx); err != nil {
		log.Error().Err(err).Msg("Health check: database unreachable")
		status = http.StatusServiceUnavailable
		body["status"] = "unavailable"
		body["database"] = "unreachable"
	}

	if h.diskPath != "" {
		if u, err := h.usage(ctx, h.diskPath); err != nil {
			log.Warn().Err(err).Str("path", h.diskPath).Msg("Health check: disk usage unavailable")
		} else {
			body["disk"] = diskReport{Path: h.diskPath, Total: u.Total, Free: u.Free, UsedPercent: u.UsedPercent}
		}
	}

	respondJSON(w, status, body)
}
