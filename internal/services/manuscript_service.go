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
	"github.com/isdelr/manuscript-be/internal/storage"
	"github.com/isdelr/manuscript-be/internal/websocket"
	"github.com/rs/zerolog/log"
)

// UploadsURLPrefix is the public path under which stored blobs are served.
const UploadsURLPrefix = "/uploads/"

// ManuscriptServiceProvider defines the interface for manuscript services.
type ManuscriptServiceProvider interface {
	SubmitManuscript(ctx context.Context, sub models.Submission, file *storage.Upload, submittedBy *string) (models.Manuscript, error)
	GetAllManuscripts(ctx context.Context) ([]models.Manuscript, error)
	GetManuscriptByID(ctx context.Context, id string) (models.Manuscript, error)
	DeleteManuscript(ctx context.Context, id string) error
	ReferencedFileNames(ctx context.Context) (map[string]struct{}, error)
}

// ManuscriptService runs the submission pipeline and manages manuscript records.
type ManuscriptService struct {
	db       *database.DB
	blobs    storage.Store
	events   EventServiceProvider
	notifier Notifier
	now      func() time.Time
}

// NewManuscriptService creates a new ManuscriptService.
func NewManuscriptService(db *database.DB, blobs storage.Store, events EventServiceProvider, notifier Notifier) *ManuscriptService {
	return &ManuscriptService{
		db:       db,
		blobs:    blobs,
		events:   events,
		notifier: notifierOrNop(notifier),
		now:      time.Now,
	}
}

const manuscriptColumns = "id, name, email, title, abstract, file_name, file_path, file_size, content_type, submitted_by, created_at"

func scanManuscript(row interface{ Scan(...any) error }) (models.Manuscript, error) {
	var m models.Manuscript
	err := row.Scan(&m.ID, &m.Name, &m.Email, &m.Title, &m.Abstract, &m.FileName, &m.FilePath,
		&m.FileSize, &m.ContentType, &m.SubmittedBy, &m.CreatedAt)
	if err != nil {
		return models.Manuscript{}, err
	}
	m.FileURL = UploadsURLPrefix + m.FileName
	return m, nil
}

func validateSubmission(sub models.Submission, file *storage.Upload) (models.Submission, error) {
	sub.Name = strings.TrimSpace(sub.Name)
	sub.Email = strings.TrimSpace(sub.Email)
	sub.Title = strings.TrimSpace(sub.Title)
	sub.Abstract = strings.TrimSpace(sub.Abstract)
	if sub.Name == "" || sub.Email == "" || sub.Title == "" || sub.Abstract == "" {
		return sub, errs.Validation("All fields are required")
	}
	if file == nil || file.Body == nil {
		return sub, errs.Validation("File is required")
	}
	return sub, nil
}

// SubmitManuscript validates the submission, stores the file and then
// persists the record. If the record cannot be written the stored blob is
// removed again; anything that slips through is left to the orphan sweeper.
func (s *ManuscriptService) SubmitManuscript(ctx context.Context, sub models.Submission, file *storage.Upload, submittedBy *string) (models.Manuscript, error) {
	sub, err := validateSubmission(sub, file)
	if err != nil {
		return models.Manuscript{}, err
	}

	blob, err := s.blobs.Put(ctx, *file)
	if err != nil {
		return models.Manuscript{}, fmt.Errorf("%w: store file: %v", errs.ErrStorage, err)
	}

	m := models.Manuscript{
		ID:          uuid.New().String(),
		Name:        sub.Name,
		Email:       sub.Email,
		Title:       sub.Title,
		Abstract:    sub.Abstract,
		FileName:    blob.Name,
		FilePath:    blob.Path,
		FileURL:     UploadsURLPrefix + blob.Name,
		FileSize:    blob.Size,
		ContentType: file.ContentType,
		SubmittedBy: submittedBy,
		CreatedAt:   s.now().UTC(),
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO manuscripts ("+manuscriptColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		m.ID, m.Name, m.Email, m.Title, m.Abstract, m.FileName, m.FilePath, m.FileSize, m.ContentType, m.SubmittedBy, m.CreatedAt)
	if err != nil {
		if rmErr := s.blobs.Remove(context.WithoutCancel(ctx), blob.Name); rmErr != nil {
			log.Error().Err(rmErr).Str("file_name", blob.Name).Msg("Failed to remove blob after record insert failed")
		}
		return models.Manuscript{}, fmt.Errorf("%w: insert manuscript: %v", errs.ErrStorage, err)
	}

	recordEvent(ctx, s.events, EventManuscriptSubmit, "info", fmt.Sprintf("Manuscript '%s' submitted", m.Title), &m.ID)
	s.notifier.Publish(websocket.TopicManuscripts, "manuscript_created", m)
	return m, nil
}

// GetAllManuscripts retrieves every manuscript, newest first.
func (s *ManuscriptService) GetAllManuscripts(ctx context.Context) ([]models.Manuscript, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+manuscriptColumns+" FROM manuscripts ORDER BY created_at DESC, id")
	if err != nil {
		return nil, fmt.Errorf("%w: list manuscripts: %v", errs.ErrStorage, err)
	}
	defer rows.Close()

	manuscripts := []models.Manuscript{}
	for rows.Next() {
		m, err := scanManuscript(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan manuscript: %v", errs.ErrStorage, err)
		}
		manuscripts = append(manuscripts, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list manuscripts: %v", errs.ErrStorage, err)
	}
	return manuscripts, nil
}

// GetManuscriptByID retrieves a single manuscript.
func (s *ManuscriptService) GetManuscriptByID(ctx context.Context, id string) (models.Manuscript, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+manuscriptColumns+" FROM manuscripts WHERE id = ?", id)
	m, err := scanManuscript(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Manuscript{}, fmt.Errorf("manuscript %s: %w", id, errs.ErrNotFound)
		}
		return models.Manuscript{}, fmt.Errorf("%w: get manuscript: %v", errs.ErrStorage, err)
	}
	return m, nil
}

// DeleteManuscript removes the record, then makes a best-effort attempt to
// remove its blob. Blob removal problems never fail the call.
func (s *ManuscriptService) DeleteManuscript(ctx context.Context, id string) error {
	var fileName string
	err := s.db.QueryRowContext(ctx, "DELETE FROM manuscripts WHERE id = ? RETURNING file_name", id).Scan(&fileName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("manuscript %s: %w", id, errs.ErrNotFound)
		}
		return fmt.Errorf("%w: delete manuscript: %v", errs.ErrStorage, err)
	}

	if fileName != "" {
		s.removeBlob(ctx, id, fileName)
	}

	recordEvent(ctx, s.events, EventManuscriptDelete, "info", fmt.Sprintf("Manuscript %s deleted", id), &id)
	s.notifier.Publish(websocket.TopicManuscripts, "manuscript_deleted", map[string]string{"id": id})
	return nil
}

func (s *ManuscriptService) removeBlob(ctx context.Context, id, fileName string) {
	err := s.blobs.Remove(context.WithoutCancel(ctx), fileName)
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrBlobNotFound):
		log.Debug().Str("manuscript_id", id).Str("file_name", fileName).Msg("Manuscript blob already absent")
	default:
		log.Error().Err(err).Str("manuscript_id", id).Str("file_name", fileName).Msg("Failed to remove manuscript blob")
		recordEvent(ctx, s.events, EventBlobCleanupFailed, "warn",
			fmt.Sprintf("Could not remove file %s of deleted manuscript", fileName), &id)
	}
}

// ReferencedFileNames returns the blob names referenced by any manuscript.
func (s *ManuscriptService) ReferencedFileNames(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT file_name FROM manuscripts")
	if err != nil {
		return nil, fmt.Errorf("%w: list file names: %v", errs.ErrStorage, err)
	}
	defer rows.Close()

	names := make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("%w: scan file name: %v", errs.ErrStorage, err)
		}
		names[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list file names: %v", errs.ErrStorage, err)
	}
	return names, nil
}
