package handlers

import (
	"net/http"

	"github.com/zatekoja/servicemarket/internal/application/services"
	"github.com/zatekoja/servicemarket/pkg/validator"
)

// MessageHandler handles booking messages
type MessageHandler struct {
	service  *services.MessageService
	validate *validator.Validator
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(service *services.MessageService, validate *validator.Validator) *MessageHandler {
	return &MessageHandler{service: service, validate: validate}
}

// SendMessage posts a message to a booking's thread
// POST /api/bookings/{id}/messages
func (h *MessageHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var in services.MessageInput
	if err := decodeJSON(r, h.validate, &in); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	msg, err := h.service.SendMessage(r.Context(), identity(r), r.PathValue("id"), in)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, msg)
}

// ListMessages returns a booking's thread, oldest first
// GET /api/bookings/{id}/messages
func (h *MessageHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.service.ListMessages(r.Context(), identity(r), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"messages": msgs,
		"count":    len(msgs),
	})
}

// MarkRead marks a message read by its recipient
// POST /api/messages/{id}/read
func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	msg, err := h.service.MarkRead(r.Context(), identity(r), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, msg)
}
