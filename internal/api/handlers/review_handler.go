package handlers

import (
	"net/http"

	"github.com/zatekoja/servicemarket/internal/application/services"
	"github.com/zatekoja/servicemarket/pkg/validator"
)

type replyRequest struct {
	Reply string `json:"reply" validate:"required,max=4000"`
}

// ReviewHandler handles reviews and rating statistics
type ReviewHandler struct {
	service  *services.ReviewService
	validate *validator.Validator
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(service *services.ReviewService, validate *validator.Validator) *ReviewHandler {
	return &ReviewHandler{service: service, validate: validate}
}

// SubmitReview reviews a completed, paid booking
// POST /api/bookings/{id}/review
func (h *ReviewHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	var in services.ReviewInput
	if err := decodeJSON(r, h.validate, &in); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	review, err := h.service.SubmitReview(r.Context(), identity(r), r.PathValue("id"), in)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, review)
}

// ReplyToReview stores the provider's one reply to a review
// POST /api/reviews/{id}/reply
func (h *ReviewHandler) ReplyToReview(w http.ResponseWriter, r *http.Request) {
	var req replyRequest
	if err := decodeJSON(r, h.validate, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	review, err := h.service.ReplyToReview(r.Context(), identity(r), r.PathValue("id"), req.Reply)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, review)
}

// ListProviderReviews lists a provider's reviews, newest first
// GET /api/providers/{id}/reviews?limit=&offset=
func (h *ReviewHandler) ListProviderReviews(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 20)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	reviews, err := h.service.ListProviderReviews(r.Context(), r.PathValue("id"), limit, offset)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"reviews": reviews,
		"count":   len(reviews),
	})
}

// ProviderStats returns a provider's rating and booking aggregates
// GET /api/providers/{id}/stats
func (h *ReviewHandler) ProviderStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.ProviderStats(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}

// MyStats returns the caller's dashboard numbers
// GET /api/me/stats
func (h *ReviewHandler) MyStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.MyStats(r.Context(), identity(r))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}
