package repositories

import (
	"context"

	"github.com/zatekoja/servicemarket/internal/domain/entities"
)

// TransactionRepository defines the interface for capture and payout records
type TransactionRepository interface {
	// Create creates a new transaction. A second transaction for a booking yields a DUPLICATE error.
	Create(ctx context.Context, tx *entities.Transaction) error

	// GetByID retrieves a transaction by ID
	GetByID(ctx context.Context, id string) (*entities.Transaction, error)

	// GetByBooking retrieves the transaction of a booking
	GetByBooking(ctx context.Context, bookingID string) (*entities.Transaction, error)

	// UpdatePayoutStatus moves the payout from one status to another and
	// yields ErrVersionConflict when the stored status is not from.
	UpdatePayoutStatus(ctx context.Context, id string, from, to entities.PayoutStatus) error
}
