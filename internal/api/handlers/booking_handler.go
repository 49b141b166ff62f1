package handlers

import (
	"net/http"

	"github.com/zatekoja/servicemarket/internal/api/loaders"
	"github.com/zatekoja/servicemarket/internal/application/services"
	"github.com/zatekoja/servicemarket/internal/domain/entities"
	"github.com/zatekoja/servicemarket/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/servicemarket/pkg/errors"
	"github.com/zatekoja/servicemarket/pkg/validator"
)

const (
	defaultBookingPageSize = 20
	maxBookingPageSize     = 100
)

// bookingView is a booking with the booked service embedded
type bookingView struct {
	*entities.Booking
	Service *entities.ServiceSummary `json:"service,omitempty"`
}

// BookingHandler handles booking lifecycle requests
type BookingHandler struct {
	service  *services.BookingService
	validate *validator.Validator
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(service *services.BookingService, validate *validator.Validator) *BookingHandler {
	return &BookingHandler{service: service, validate: validate}
}

// RequestBooking creates a booking request for a service
// POST /api/bookings
func (h *BookingHandler) RequestBooking(w http.ResponseWriter, r *http.Request) {
	var req services.BookingRequest
	if err := decodeJSON(r, h.validate, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	booking, err := h.service.RequestBooking(r.Context(), identity(r), req)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, booking)
}

// ListBookings lists the caller's bookings, newest first
// GET /api/bookings?status=&limit=&offset=
func (h *BookingHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultBookingPageSize)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if limit == 0 || limit > maxBookingPageSize {
		limit = defaultBookingPageSize
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	filter := services.BookingListFilter{
		Status: entities.BookingStatus(r.URL.Query().Get("status")),
		Limit:  limit,
		Offset: offset,
	}
	if filter.Status != "" && !validBookingStatus(filter.Status) {
		respondWithAppError(w, r, apperrors.NewValidationError("unknown booking status "+string(filter.Status)))
		return
	}

	bookings, err := h.service.ListBookings(r.Context(), identity(r), filter)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"bookings": withServices(r, bookings),
		"count":    len(bookings),
		"limit":    limit,
		"offset":   offset,
	})
}

// GetBooking returns one booking with its event history
// GET /api/bookings/{id}
func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	booking, err := h.service.GetBooking(r.Context(), id, r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	events, err := h.service.ListBookingEvents(r.Context(), id, booking.ID)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	view := withServices(r, []*entities.Booking{booking})[0]
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"booking": view,
		"events":  events,
	})
}

// ApplyEvent drives the booking state machine
// POST /api/bookings/{id}/events/{event}
func (h *BookingHandler) ApplyEvent(w http.ResponseWriter, r *http.Request) {
	ev := entities.BookingEvent(r.PathValue("event"))
	if !ev.Valid() {
		respondWithAppError(w, r, apperrors.NewValidationError("unknown booking event "+string(ev)))
		return
	}
	// Expiry is driven by the sweeper only.
	if ev == entities.EventExpire {
		respondWithAppError(w, r, apperrors.NewForbiddenError("expire is a system event"))
		return
	}

	booking, err := h.service.ApplyEvent(r.Context(), identity(r), r.PathValue("id"), ev)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, booking)
}

// withServices embeds each booking's service summary. Lookups are batched
// through the request's dataloader; a failed lookup leaves the field empty.
func withServices(r *http.Request, bookings []*entities.Booking) []bookingView {
	views := make([]bookingView, len(bookings))
	for i, b := range bookings {
		views[i] = bookingView{Booking: b}
	}

	l := loaders.For(r.Context())
	if l == nil || len(bookings) == 0 {
		return views
	}

	keys := make([]string, len(bookings))
	for i, b := range bookings {
		keys[i] = b.ServiceID
	}
	svcs, errs := l.ServiceLoader.LoadMany(r.Context(), keys)()
	for i := range views {
		if i < len(errs) && errs[i] != nil {
			observability.LoggerFromContext(r.Context()).Warn().Err(errs[i]).
				Str("booking_id", views[i].ID).
				Msg("failed to load booked service")
			continue
		}
		if i < len(svcs) && svcs[i] != nil {
			views[i].Service = svcs[i].Summary()
		}
	}
	return views
}

func validBookingStatus(s entities.BookingStatus) bool {
	switch s {
	case entities.BookingRequested, entities.BookingAccepted, entities.BookingInProgress,
		entities.BookingCompleted, entities.BookingCancelled:
		return true
	}
	return false
}
