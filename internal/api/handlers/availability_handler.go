package handlers

import (
	"net/http"
	"time"

	"github.com/zatekoja/servicemarket/internal/application/services"
	"github.com/zatekoja/servicemarket/internal/domain/entities"
	apperrors "github.com/zatekoja/servicemarket/pkg/errors"
	"github.com/zatekoja/servicemarket/pkg/validator"
)

const defaultWindowSpan = 7 * 24 * time.Hour

type addWindowRequest struct {
	StartsAt time.Time           `json:"starts_at" validate:"required"`
	EndsAt   time.Time           `json:"ends_at" validate:"required"`
	Kind     entities.WindowKind `json:"kind" validate:"required,window_kind"`
	Note     string              `json:"note" validate:"max=500"`
}

// AvailabilityHandler handles provider calendar requests
type AvailabilityHandler struct {
	service  *services.AvailabilityService
	validate *validator.Validator
	now      func() time.Time
}

// NewAvailabilityHandler creates a new availability handler
func NewAvailabilityHandler(service *services.AvailabilityService, validate *validator.Validator) *AvailabilityHandler {
	return &AvailabilityHandler{service: service, validate: validate, now: time.Now}
}

// ListWindows lists the provider's windows between from and to. The range
// defaults to the next seven days.
// GET /api/providers/{id}/availability?from=RFC3339&to=RFC3339
func (h *AvailabilityHandler) ListWindows(w http.ResponseWriter, r *http.Request) {
	from := h.now().UTC()
	span, err := queryInterval(r, "from", "to", from, from.Add(defaultWindowSpan))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	windows, err := h.service.ListWindows(r.Context(), r.PathValue("id"), span)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"windows": windows,
		"count":   len(windows),
	})
}

// AddWindow adds an open or blocked window to the provider's calendar
// POST /api/providers/{id}/availability
func (h *AvailabilityHandler) AddWindow(w http.ResponseWriter, r *http.Request) {
	var req addWindowRequest
	if err := decodeJSON(r, h.validate, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	span := entities.Interval{Start: req.StartsAt, End: req.EndsAt}
	window, err := h.service.AddWindow(r.Context(), identity(r), r.PathValue("id"), span, req.Kind, req.Note)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, window)
}

// RemoveWindow deletes an open or manual blocked window
// DELETE /api/availability/{id}
func (h *AvailabilityHandler) RemoveWindow(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RemoveWindow(r.Context(), identity(r), r.PathValue("id")); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// QueryFree reports whether the provider can take a booking in [start, end)
// GET /api/providers/{id}/free?start=RFC3339&end=RFC3339
func (h *AvailabilityHandler) QueryFree(w http.ResponseWriter, r *http.Request) {
	span, err := queryInterval(r, "start", "end", time.Time{}, time.Time{})
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	free, err := h.service.QueryFree(r.Context(), r.PathValue("id"), span)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"provider_id": r.PathValue("id"),
		"start":       span.Start,
		"end":         span.End,
		"free":        free,
	})
}

func queryInterval(r *http.Request, startName, endName string, defStart, defEnd time.Time) (entities.Interval, error) {
	start, err := queryTime(r, startName, defStart)
	if err != nil {
		return entities.Interval{}, err
	}
	end, err := queryTime(r, endName, defEnd)
	if err != nil {
		return entities.Interval{}, err
	}
	return entities.NewInterval(start, end)
}

func queryTime(r *http.Request, name string, fallback time.Time) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, apperrors.NewValidationError(name + " must be an RFC3339 timestamp")
	}
	return t.UTC(), nil
}
