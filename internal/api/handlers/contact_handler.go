package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/manuscript-be/internal/models"
	"github.com/isdelr/manuscript-be/internal/services"
)

// ContactHandler handles HTTP requests for contact-form messages.
type ContactHandler struct {
	service services.ContactServiceProvider
}

// NewContactHandler creates a new ContactHandler.
func NewContactHandler(service services.ContactServiceProvider) *ContactHandler {
	return &ContactHandler{service: service}
}

// Create handles a new contact-form submission.
func (h *ContactHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload models.ContactInput
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	contact, err := h.service.CreateContact(r.Context(), payload)
	if err != nil {
		respondServiceError(w, r, err, errorMessages{failure: "Server error"})
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Contact submitted successfully!",
		"contact": contact,
	})
}

// GetAll handles the request to list all contact messages.
func (h *ContactHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.service.GetAllContacts(r.Context())
	if err != nil {
		respondServiceError(w, r, err, errorMessages{failure: "Failed to fetch contacts"})
		return
	}
	respondJSON(w, http.StatusOK, contacts)
}

// Get handles retrieving a single contact message.
func (h *ContactHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	contact, err := h.service.GetContactByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err, errorMessages{notFound: "Contact not found", failure: "Error fetching contact"})
		return
	}
	respondJSON(w, http.StatusOK, contact)
}

// Update handles changing an existing contact message.
func (h *ContactHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var payload models.ContactInput
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	contact, err := h.service.UpdateContact(r.Context(), id, payload)
	if err != nil {
		respondServiceError(w, r, err, errorMessages{notFound: "Contact not found", failure: "Error updating contact"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Contact updated successfully",
		"contact": contact,
	})
}

// Delete handles removing a contact message.
func (h *ContactHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.DeleteContact(r.Context(), id); err != nil {
		respondServiceError(w, r, err, errorMessages{notFound: "Contact not found", failure: "Error deleting contact"})
		return
	}
	respondMessage(w, http.StatusOK, "Contact deleted successfully")
}
