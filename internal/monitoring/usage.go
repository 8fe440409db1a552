package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/isdelr/manuscript-be/internal/services"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/disk"
)

const diskAlertCooldown = 15 * time.Minute

// DiskMonitor periodically checks the content directory's filesystem and
// records an alert event when usage crosses the threshold.
type DiskMonitor struct {
	path      string
	threshold float64
	eventSvc  services.EventServiceProvider
	interval  time.Duration
	usage     func(ctx context.Context, path string) (*disk.UsageStat, error)
	now       func() time.Time
	lastAlert time.Time
	done      chan struct{}
}

// NewDiskMonitor creates a new DiskMonitor for path.
func NewDiskMonitor(path string, thresholdPercent float64, eventSvc services.EventServiceProvider) *DiskMonitor {
	return &DiskMonitor{
		path:      path,
		threshold: thresholdPercent,
		eventSvc:  eventSvc,
		interval:  time.Minute,
		usage:     disk.UsageWithContext,
		now:       time.Now,
		done:      make(chan struct{}),
	}
}

// Run starts the periodic checks.
func (m *DiskMonitor) Run() {
	log.Info().Str("path", m.path).Msg("Starting background disk monitor...")
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	// Run once immediately on start
	m.check()

	for {
		select {
		case <-m.done:
			log.Info().Msg("Stopping background disk monitor.")
			return
		case <-ticker.C:
			m.check()
		}
	}
}

// Stop halts the periodic checks.
func (m *DiskMonitor) Stop() {
	close(m.done)
}

func (m *DiskMonitor) check() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	u, err := m.usage(ctx, m.path)
	if err != nil {
		log.Warn().Err(err).Str("path", m.path).Msg("DiskMonitor: Could not read disk usage")
		return
	}
	log.Debug().Str("path", m.path).Float64("used_percent", u.UsedPercent).Msg("DiskMonitor: usage sampled")

	if u.UsedPercent < m.threshold {
		return
	}
	// If an alert was sent recently, do nothing.
	if !m.lastAlert.IsZero() && m.now().Sub(m.lastAlert) < diskAlertCooldown {
		return
	}

	msg := fmt.Sprintf("High disk usage (%.1f%%) on upload volume %s.", u.UsedPercent, m.path)
	log.Warn().Str("path", m.path).Float64("used_percent", u.UsedPercent).Msg("DiskMonitor: usage above threshold")
	if err := m.eventSvc.CreateEvent(ctx, services.EventDiskAlert, "warn", msg, nil); err != nil {
		log.Error().Err(err).Msg("DiskMonitor: Failed to record alert event")
		return
	}
	m.lastAlert = m.now()
}
