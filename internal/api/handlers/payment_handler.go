package handlers

import (
	"net/http"

	"github.com/zatekoja/servicemarket/internal/application/services"
	"github.com/zatekoja/servicemarket/internal/domain/entities"
	"github.com/zatekoja/servicemarket/pkg/validator"
)

type reconcilePayoutRequest struct {
	Status entities.PayoutStatus `json:"status" validate:"required,oneof=pending processing paid failed"`
}

// PaymentHandler handles payment and payout requests
type PaymentHandler struct {
	service  *services.PaymentService
	validate *validator.Validator
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(service *services.PaymentService, validate *validator.Validator) *PaymentHandler {
	return &PaymentHandler{service: service, validate: validate}
}

// Authorize records that the customer authorized payment. Capture runs
// asynchronously; the response is 202 with the pending booking.
// POST /api/bookings/{id}/payment/authorize
func (h *PaymentHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	booking, err := h.service.RecordAuthorization(r.Context(), identity(r), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusAccepted, booking)
}

// Refund returns a captured payment to the customer
// POST /api/bookings/{id}/refund
func (h *PaymentHandler) Refund(w http.ResponseWriter, r *http.Request) {
	booking, err := h.service.Refund(r.Context(), identity(r), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusAccepted, booking)
}

// ReconcilePayout sets the payout status reported out of band by the
// payment provider
// POST /api/transactions/{id}/payout
func (h *PaymentHandler) ReconcilePayout(w http.ResponseWriter, r *http.Request) {
	var req reconcilePayoutRequest
	if err := decodeJSON(r, h.validate, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	txn, err := h.service.ReconcilePayout(r.Context(), identity(r), r.PathValue("id"), req.Status)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, txn)
}
