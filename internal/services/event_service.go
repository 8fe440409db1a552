package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/manuscript-be/internal/database"
	"github.com/isdelr/manuscript-be/internal/models"
	"github.com/isdelr/manuscript-be/internal/websocket"
	"github.com/rs/zerolog/log"
)

// Event types recorded by the services and background workers.
const (
	EventUserRegistered    = "user.register"
	EventLoginFailed       = "user.login_failed"
	EventUserDeleted       = "user.delete"
	EventManuscriptSubmit  = "manuscript.submit"
	EventManuscriptDelete  = "manuscript.delete"
	EventBlobCleanupFailed = "manuscript.blob_cleanup_failed"
	EventOrphanBlobRemoved = "storage.orphan_removed"
	EventDiskAlert         = "system.alert.disk"
	EventContactSubmit     = "contact.submit"
	EventContactDelete     = "contact.delete"
)

const (
	defaultRecentEventLimit = 50
	maxRecentEventLimit     = 500
)

// EventServiceProvider defines the interface for event services.
type EventServiceProvider interface {
	CreateEvent(ctx context.Context, eventType, level, message string, subjectID *string) error
	GetRecentEvents(ctx context.Context, limit int) ([]models.Event, error)
}

// EventService provides business logic for event management.
type EventService struct {
	db       *database.DB
	notifier Notifier
	now      func() time.Time
}

// NewEventService creates a new EventService.
func NewEventService(db *database.DB, notifier Notifier) *EventService {
	return &EventService{db: db, notifier: notifierOrNop(notifier), now: time.Now}
}

// CreateEvent logs a new event to the database.
func (s *EventService) CreateEvent(ctx context.Context, eventType, level, message string, subjectID *string) error {
	event := models.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Level:     level,
		Message:   message,
		SubjectID: subjectID,
		CreatedAt: s.now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO events (id, type, level, message, subject_id, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		event.ID, event.Type, event.Level, event.Message, event.SubjectID, event.CreatedAt)
	if err != nil {
		return err
	}

	s.notifier.Publish(websocket.TopicEvents, "event_created", event)
	return nil
}

// GetRecentEvents retrieves the most recent events from the database.
func (s *EventService) GetRecentEvents(ctx context.Context, limit int) ([]models.Event, error) {
	if limit <= 0 {
		limit = defaultRecentEventLimit
	}
	if limit > maxRecentEventLimit {
		limit = maxRecentEventLimit
	}

	rows, err := s.db.QueryContext(ctx, "SELECT id, type, level, message, subject_id, created_at FROM events ORDER BY created_at DESC, id LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		var event models.Event
		if err := rows.Scan(&event.ID, &event.Type, &event.Level, &event.Message, &event.SubjectID, &event.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// recordEvent stores an event and only logs when that fails. Events are an
// audit trail and never fail the operation that produced them.
func recordEvent(ctx context.Context, events EventServiceProvider, eventType, level, message string, subjectID *string) {
	if events == nil {
		return
	}
	if err := events.CreateEvent(context.WithoutCancel(ctx), eventType, level, message, subjectID); err != nil {
		log.Error().Err(err).Str("event_type", eventType).Msg("Failed to record event")
	}
}
