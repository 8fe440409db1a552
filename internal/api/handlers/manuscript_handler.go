package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/manuscript-be/internal/auth"
	"github.com/isdelr/manuscript-be/internal/models"
	"github.com/isdelr/manuscript-be/internal/services"
	"github.com/isdelr/manuscript-be/internal/storage"
	"github.com/rs/zerolog/log"
)

// uploadFieldName is the multipart field that carries the manuscript file.
const uploadFieldName = "file"

// Parts of the form beyond this stay on disk instead of memory.
const multipartMemory = 8 << 20

// ManuscriptHandler handles HTTP requests for manuscript submissions.
type ManuscriptHandler struct {
	service        services.ManuscriptServiceProvider
	maxUploadBytes int64
}

// NewManuscriptHandler creates a new ManuscriptHandler.
func NewManuscriptHandler(service services.ManuscriptServiceProvider, maxUploadBytes int64) *ManuscriptHandler {
	return &ManuscriptHandler{service: service, maxUploadBytes: maxUploadBytes}
}

// Submit handles a multipart manuscript submission.
func (h *ManuscriptHandler) Submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		respondError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	sub := models.Submission{
		Name:     r.FormValue("name"),
		Email:    r.FormValue("email"),
		Title:    r.FormValue("title"),
		Abstract: r.FormValue("abstract"),
	}

	var upload *storage.Upload
	file, header, err := r.FormFile(uploadFieldName)
	switch {
	case err == nil:
		defer file.Close()
		upload = uploadFrom(file, header)
	case errors.Is(err, http.ErrMissingFile):
		// Reported by the service as a validation error.
	default:
		log.Warn().Err(err).Msg("Failed to read uploaded file")
		respondError(w, http.StatusBadRequest, "Invalid file upload")
		return
	}

	var submittedBy *string
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		submittedBy = &claims.UserID
	}

	m, err := h.service.SubmitManuscript(r.Context(), sub, upload, submittedBy)
	if err != nil {
		respondServiceError(w, r, err, errorMessages{failure: "Submission failed"})
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":    "Submission successful",
		"manuscript": m,
	})
}

func uploadFrom(file multipart.File, header *multipart.FileHeader) *storage.Upload {
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &storage.Upload{
		OriginalName: header.Filename,
		ContentType:  contentType,
		Size:         header.Size,
		Body:         file,
	}
}

// GetAll handles the request to list all manuscripts.
func (h *ManuscriptHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	manuscripts, err := h.service.GetAllManuscripts(r.Context())
	if err != nil {
		respondServiceError(w, r, err, errorMessages{failure: "Failed to fetch manuscripts"})
		return
	}
	respondJSON(w, http.StatusOK, manuscripts)
}

// Get handles retrieving a single manuscript.
func (h *ManuscriptHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	m, err := h.service.GetManuscriptByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err, errorMessages{notFound: "Manuscript not found", failure: "Failed to fetch manuscript"})
		return
	}
	respondJSON(w, http.StatusOK, m)
}

// Delete removes a manuscript and its file.
func (h *ManuscriptHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.DeleteManuscript(r.Context(), id); err != nil {
		respondServiceError(w, r, err, errorMessages{notFound: "Manuscript not found", failure: "Failed to delete manuscript"})
		return
	}
	respondMessage(w, http.StatusOK, "Deleted successfully")
}
