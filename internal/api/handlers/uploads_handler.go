package handlers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/manuscript-be/internal/storage"
	"github.com/rs/zerolog/log"
)

// UploadsHandler serves stored manuscript files by their generated name.
type UploadsHandler struct {
	blobs storage.Store
}

// NewUploadsHandler creates a new UploadsHandler.
func NewUploadsHandler(blobs storage.Store) *UploadsHandler {
	return &UploadsHandler{blobs: blobs}
}

// Serve streams a stored file.
func (h *UploadsHandler) Serve(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	rc, err := h.blobs.Open(r.Context(), name)
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) || errors.Is(err, storage.ErrInvalidName) {
			respondError(w, http.StatusNotFound, "File not found")
			return
		}
		log.Error().Err(err).Str("file_name", name).Msg("Failed to open stored file")
		respondError(w, http.StatusInternalServerError, "Failed to read file")
		return
	}
	defer rc.Close()

	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")

	// Local files support range requests and conditional GETs.
	if rs, ok := rc.(io.ReadSeeker); ok {
		var modTime time.Time
		if ts, ok := storage.NameTime(name); ok {
			modTime = ts
		}
		http.ServeContent(w, r, name, modTime, rs)
		return
	}

	if _, err := io.Copy(w, rc); err != nil {
		log.Warn().Err(err).Str("file_name", name).Msg("Failed to stream stored file")
	}
}
