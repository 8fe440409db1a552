package handlers

import (
	"net/http"
	"strconv"

	"github.com/isdelr/manuscript-be/internal/services"
)

// EventHandler handles HTTP requests related to system events.
type EventHandler struct {
	service services.EventServiceProvider
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(service services.EventServiceProvider) *EventHandler {
	return &EventHandler{service: service}
}

// GetRecent handles the request to get recent activity/events. A missing or
// malformed limit leaves the choice to the service.
func (h *EventHandler) GetRecent(w http.ResponseWriter, r *http.Request) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		limit = 0
	}

	events, err := h.service.GetRecentEvents(r.Context(), limit)
	if err != nil {
		respondServiceError(w, r, err, errorMessages{failure: "Failed to retrieve events"})
		return
	}
	respondJSON(w, http.StatusOK, events)
}
