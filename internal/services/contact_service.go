package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/manuscript-be/internal/database"
	"github.com/isdelr/manuscript-be/internal/errs"
	"github.com/isdelr/manuscript-be/internal/models"
	"github.com/isdelr/manuscript-be/internal/websocket"
)

// ContactServiceProvider defines the interface for contact services.
type ContactServiceProvider interface {
	CreateContact(ctx context.Context, in models.ContactInput) (models.Contact, error)
	GetAllContacts(ctx context.Context) ([]models.Contact, error)
	GetContactByID(ctx context.Context, id string) (models.Contact, error)
	UpdateContact(ctx context.Context, id string, in models.ContactInput) (models.Contact, error)
	DeleteContact(ctx context.Context, id string) error
}

// ContactService manages contact-form messages.
type ContactService struct {
	db       *database.DB
	events   EventServiceProvider
	notifier Notifier
	now      func() time.Time
}

// NewContactService creates a new ContactService.
func NewContactService(db *database.DB, events EventServiceProvider, notifier Notifier) *ContactService {
	return &ContactService{db: db, events: events, notifier: notifierOrNop(notifier), now: time.Now}
}

const contactColumns = "id, name, email, phone, address, message, created_at, updated_at"

func scanContact(row interface{ Scan(...any) error }) (models.Contact, error) {
	var c models.Contact
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.Message, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func trimContact(in models.ContactInput) models.ContactInput {
	return models.ContactInput{
		Name:    strings.TrimSpace(in.Name),
		Email:   strings.TrimSpace(in.Email),
		Phone:   strings.TrimSpace(in.Phone),
		Address: strings.TrimSpace(in.Address),
		Message: strings.TrimSpace(in.Message),
	}
}

// CreateContact stores a new message. Every field is required.
func (s *ContactService) CreateContact(ctx context.Context, in models.ContactInput) (models.Contact, error) {
	in = trimContact(in)
	if in.Name == "" || in.Email == "" || in.Phone == "" || in.Address == "" || in.Message == "" {
		return models.Contact{}, errs.Validation("All fields are required.")
	}

	now := s.now().UTC()
	c := models.Contact{
		ID:        uuid.New().String(),
		Name:      in.Name,
		Email:     in.Email,
		Phone:     in.Phone,
		Address:   in.Address,
		Message:   in.Message,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO contacts ("+contactColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		c.ID, c.Name, c.Email, c.Phone, c.Address, c.Message, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return models.Contact{}, fmt.Errorf("%w: insert contact: %v", errs.ErrStorage, err)
	}

	recordEvent(ctx, s.events, EventContactSubmit, "info", fmt.Sprintf("Contact message from '%s'", c.Name), &c.ID)
	s.notifier.Publish(websocket.TopicContacts, "contact_created", c)
	return c, nil
}

// GetAllContacts retrieves every contact message, newest first.
func (s *ContactService) GetAllContacts(ctx context.Context) ([]models.Contact, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+contactColumns+" FROM contacts ORDER BY created_at DESC, id")
	if err != nil {
		return nil, fmt.Errorf("%w: list contacts: %v", errs.ErrStorage, err)
	}
	defer rows.Close()

	contacts := []models.Contact{}
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan contact: %v", errs.ErrStorage, err)
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list contacts: %v", errs.ErrStorage, err)
	}
	return contacts, nil
}

// GetContactByID retrieves a single contact message.
func (s *ContactService) GetContactByID(ctx context.Context, id string) (models.Contact, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+contactColumns+" FROM contacts WHERE id = ?", id)
	c, err := scanContact(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Contact{}, fmt.Errorf("contact %s: %w", id, errs.ErrNotFound)
		}
		return models.Contact{}, fmt.Errorf("%w: get contact: %v", errs.ErrStorage, err)
	}
	return c, nil
}

// UpdateContact overwrites the non-empty fields of in.
func (s *ContactService) UpdateContact(ctx context.Context, id string, in models.ContactInput) (models.Contact, error) {
	c, err := s.GetContactByID(ctx, id)
	if err != nil {
		return models.Contact{}, err
	}

	in = trimContact(in)
	for _, f := range []struct {
		dst *string
		src string
	}{
		{&c.Name, in.Name},
		{&c.Email, in.Email},
		{&c.Phone, in.Phone},
		{&c.Address, in.Address},
		{&c.Message, in.Message},
	} {
		if f.src != "" {
			*f.dst = f.src
		}
	}
	c.UpdatedAt = s.now().UTC()

	res, err := s.db.ExecContext(ctx,
		"UPDATE contacts SET name = ?, email = ?, phone = ?, address = ?, message = ?, updated_at = ? WHERE id = ?",
		c.Name, c.Email, c.Phone, c.Address, c.Message, c.UpdatedAt, id)
	if err != nil {
		return models.Contact{}, fmt.Errorf("%w: update contact: %v", errs.ErrStorage, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.Contact{}, fmt.Errorf("contact %s: %w", id, errs.ErrNotFound)
	}

	s.notifier.Publish(websocket.TopicContacts, "contact_updated", c)
	return c, nil
}

// DeleteContact removes a contact message.
func (s *ContactService) DeleteContact(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM contacts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("%w: delete contact: %v", errs.ErrStorage, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: delete contact: %v", errs.ErrStorage, err)
	}
	if n == 0 {
		return fmt.Errorf("contact %s: %w", id, errs.ErrNotFound)
	}

	recordEvent(ctx, s.events, EventContactDelete, "info", fmt.Sprintf("Contact %s deleted", id), &id)
	s.notifier.Publish(websocket.TopicContacts, "contact_deleted", map[string]string{"id": id})
	return nil
}
