package repositories

import (
	"context"
	"time"

	"github.com/zatekoja/servicemarket/internal/domain/entities"
)

// BookingRepository defines the interface for booking data operations
type BookingRepository interface {
	// Create creates a new booking
	Create(ctx context.Context, booking *entities.Booking) error

	// GetByID retrieves a booking by ID
	GetByID(ctx context.Context, id string) (*entities.Booking, error)

	// List retrieves bookings matching the filter, newest first
	List(ctx context.Context, filter BookingFilter) ([]*entities.Booking, error)

	// ListActiveOverlapping returns accepted or in-progress bookings of the
	// provider that may overlap span. Open-ended bookings starting before
	// span.End are always included; callers narrow them with Booking.Slot.
	ListActiveOverlapping(ctx context.Context, providerID string, span entities.Interval) ([]*entities.Booking, error)

	// ListStaleRequests returns requested bookings created before cutoff
	ListStaleRequests(ctx context.Context, cutoff time.Time, limit int) ([]*entities.Booking, error)

	// UpdateState writes status, payment status and cancellation fee when the
	// stored version equals expectedVersion, and bumps the version. A stale
	// expectedVersion yields ErrVersionConflict.
	UpdateState(ctx context.Context, booking *entities.Booking, expectedVersion int) error

	// RecordEvent appends to the audit trail. A second record for the same
	// booking and event yields a DUPLICATE error.
	RecordEvent(ctx context.Context, record *entities.BookingEventRecord) error

	// HasEvent reports whether the event was already applied to the booking
	HasEvent(ctx context.Context, bookingID string, event entities.BookingEvent) (bool, error)

	// ListEvents returns the audit trail of a booking in order
	ListEvents(ctx context.Context, bookingID string) ([]*entities.BookingEventRecord, error)
}

// BookingFilter defines filters for listing bookings
type BookingFilter struct {
	CustomerID string
	ProviderID string
	Status     entities.BookingStatus
	Limit      int
	Offset     int
}
