package repositories

import (
	"context"

	"github.com/zatekoja/servicemarket/internal/domain/entities"
)

// AvailabilityRepository defines the interface for provider availability windows
type AvailabilityRepository interface {
	// LockProvider serialises window changes for one provider until the
	// surrounding transaction ends. It must be called inside WithinTx.
	LockProvider(ctx context.Context, providerID string) error

	// ListWindows returns the provider's windows that overlap or touch span, ordered by start
	ListWindows(ctx context.Context, providerID string, span entities.Interval) ([]*entities.AvailabilityWindow, error)

	// GetWindow retrieves a window by ID
	GetWindow(ctx context.Context, id string) (*entities.AvailabilityWindow, error)

	// GetReservation retrieves the blocked window held by a booking
	GetReservation(ctx context.Context, providerID, bookingID string) (*entities.AvailabilityWindow, error)

	// InsertWindow stores a window
	InsertWindow(ctx context.Context, window *entities.AvailabilityWindow) error

	// DeleteWindow removes a window
	DeleteWindow(ctx context.Context, id string) error
}
