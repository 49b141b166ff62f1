package database

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/zatekoja/servicemarket/internal/domain/entities"
	"github.com/zatekoja/servicemarket/internal/domain/repositories"
	apperrors "github.com/zatekoja/servicemarket/pkg/errors"
)

var bookingColumns = []interface{}{
	"id", "customer_id", "provider_id", "service_id", "status",
	"scheduled_start", "scheduled_end", "address", "notes", "photo_url",
	"amount", "fee", "currency", "cancellation_fee", "payment_status",
	"version", "created_at", "updated_at",
}

var bookingEventColumns = []interface{}{
	"id", "booking_id", "event", "from_status", "to_status", "actor_id", "created_at",
}

// BookingAdapter implements the BookingRepository interface
type BookingAdapter struct {
	s *Store
}

// Create creates a new booking
func (a *BookingAdapter) Create(ctx context.Context, booking *entities.Booking) error {
	query, _, err := a.s.dialect.Insert("bookings").Rows(goqu.Record{
		"id":               booking.ID,
		"customer_id":      booking.CustomerID,
		"provider_id":      booking.ProviderID,
		"service_id":       booking.ServiceID,
		"status":           booking.Status,
		"scheduled_start":  booking.ScheduledStart,
		"scheduled_end":    booking.ScheduledEnd,
		"address":          booking.Address,
		"notes":            booking.Notes,
		"photo_url":        booking.PhotoURL,
		"amount":           booking.Amount,
		"fee":              booking.Fee,
		"currency":         booking.Currency,
		"cancellation_fee": booking.CancellationFee,
		"payment_status":   booking.PaymentStatus,
		"version":          booking.Version,
		"created_at":       booking.CreatedAt,
		"updated_at":       booking.UpdatedAt,
	}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.s.exec(ctx, "bookings.create", query); err != nil {
		return apperrors.NewInternalError("failed to create booking", err)
	}
	return nil
}

// GetByID retrieves a booking by ID
func (a *BookingAdapter) GetByID(ctx context.Context, id string) (*entities.Booking, error) {
	query, _, err := a.s.dialect.From("bookings").Select(bookingColumns...).Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	booking := &entities.Booking{}
	if err := a.s.get(ctx, "bookings.get", booking, query); err != nil {
		if isNoRows(err) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("booking with id %s not found", id))
		}
		return nil, apperrors.NewInternalError("failed to get booking", err)
	}
	return booking, nil
}

// List retrieves bookings matching the filter
func (a *BookingAdapter) List(ctx context.Context, filter repositories.BookingFilter) ([]*entities.Booking, error) {
	ds := a.s.dialect.From("bookings").Select(bookingColumns...)
	if filter.CustomerID != "" {
		ds = ds.Where(goqu.Ex{"customer_id": filter.CustomerID})
	}
	if filter.ProviderID != "" {
		ds = ds.Where(goqu.Ex{"provider_id": filter.ProviderID})
	}
	if filter.Status != "" {
		ds = ds.Where(goqu.Ex{"status": filter.Status})
	}
	lim, off := pagination(filter.Limit, filter.Offset)
	query, _, err := ds.Order(goqu.C("created_at").Desc()).Limit(lim).Offset(off).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}
	return a.list(ctx, "bookings.list", query)
}

// ListActiveOverlapping returns active bookings that may overlap span
func (a *BookingAdapter) ListActiveOverlapping(ctx context.Context, providerID string, span entities.Interval) ([]*entities.Booking, error) {
	query, _, err := a.s.dialect.From("bookings").
		Select(bookingColumns...).
		Where(
			goqu.Ex{
				"provider_id": providerID,
				"status":      []entities.BookingStatus{entities.BookingAccepted, entities.BookingInProgress},
			},
			goqu.C("scheduled_start").Lt(span.End),
			goqu.Or(
				goqu.C("scheduled_end").IsNull(),
				goqu.C("scheduled_end").Gt(span.Start),
			),
		).
		Order(goqu.C("scheduled_start").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}
	return a.list(ctx, "bookings.list_active", query)
}

// ListStaleRequests returns requested bookings created before cutoff
func (a *BookingAdapter) ListStaleRequests(ctx context.Context, cutoff time.Time, limit int) ([]*entities.Booking, error) {
	lim, _ := pagination(limit, 0)
	query, _, err := a.s.dialect.From("bookings").
		Select(bookingColumns...).
		Where(goqu.Ex{"status": entities.BookingRequested}, goqu.C("created_at").Lt(cutoff)).
		Order(goqu.C("created_at").Asc()).
		Limit(lim).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}
	return a.list(ctx, "bookings.list_stale", query)
}

// UpdateState applies a compare-and-swap on the booking version
func (a *BookingAdapter) UpdateState(ctx context.Context, booking *entities.Booking, expectedVersion int) error {
	query, _, err := a.s.dialect.Update("bookings").Set(goqu.Record{
		"status":           booking.Status,
		"payment_status":   booking.PaymentStatus,
		"cancellation_fee": booking.CancellationFee,
		"version":          expectedVersion + 1,
		"updated_at":       booking.UpdatedAt,
	}).Where(goqu.Ex{"id": booking.ID, "version": expectedVersion}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.s.exec(ctx, "bookings.update_state", query)
	if err != nil {
		return apperrors.NewInternalError("failed to update booking", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return repositories.ErrVersionConflict
	}
	booking.Version = expectedVersion + 1
	return nil
}

// RecordEvent appends to the booking audit trail
func (a *BookingAdapter) RecordEvent(ctx context.Context, record *entities.BookingEventRecord) error {
	query, _, err := a.s.dialect.Insert("booking_events").Rows(goqu.Record{
		"id":          record.ID,
		"booking_id":  record.BookingID,
		"event":       record.Event,
		"from_status": record.FromStatus,
		"to_status":   record.ToStatus,
		"actor_id":    record.ActorID,
		"created_at":  record.CreatedAt,
	}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.s.exec(ctx, "bookings.record_event", query); err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewDuplicateError(fmt.Sprintf("event %s already applied to booking %s", record.Event, record.BookingID))
		}
		return apperrors.NewInternalError("failed to record booking event", err)
	}
	return nil
}

// HasEvent reports whether the event was already applied
func (a *BookingAdapter) HasEvent(ctx context.Context, bookingID string, event entities.BookingEvent) (bool, error) {
	query, _, err := a.s.dialect.From("booking_events").
		Select(goqu.COUNT("*")).
		Where(goqu.Ex{"booking_id": bookingID, "event": event}).
		ToSQL()
	if err != nil {
		return false, apperrors.NewInternalError("failed to build query", err)
	}

	var count int
	if err := a.s.get(ctx, "bookings.has_event", &count, query); err != nil {
		return false, apperrors.NewInternalError("failed to check booking event", err)
	}
	return count > 0, nil
}

// ListEvents returns the audit trail of a booking
func (a *BookingAdapter) ListEvents(ctx context.Context, bookingID string) ([]*entities.BookingEventRecord, error) {
	query, _, err := a.s.dialect.From("booking_events").
		Select(bookingEventColumns...).
		Where(goqu.Ex{"booking_id": bookingID}).
		Order(goqu.C("created_at").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	events := []*entities.BookingEventRecord{}
	if err := a.s.selectAll(ctx, "bookings.list_events", &events, query); err != nil {
		return nil, apperrors.NewInternalError("failed to list booking events", err)
	}
	return events, nil
}

func (a *BookingAdapter) list(ctx context.Context, op, query string) ([]*entities.Booking, error) {
	bookings := []*entities.Booking{}
	if err := a.s.selectAll(ctx, op, &bookings, query); err != nil {
		return nil, apperrors.NewInternalError("failed to list bookings", err)
	}
	return bookings, nil
}
