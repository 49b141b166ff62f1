package repositories

import (
	"context"
	"errors"
)

// ErrVersionConflict is returned by conditional writes whose expected prior
// state no longer matches the stored row.
var ErrVersionConflict = errors.New("version conflict")

// Store groups the repositories that make up the booking engine's persistent
// state and runs units of work atomically.
type Store interface {
	Accounts() AccountRepository
	Services() ServiceRepository
	Availability() AvailabilityRepository
	Bookings() BookingRepository
	Reviews() ReviewRepository
	Transactions() TransactionRepository
	Messages() MessageRepository
	SideEffects() SideEffectRepository
	Stats() StatsRepository

	// WithinTx runs fn inside a transaction. The Store handed to fn is bound
	// to that transaction; calling WithinTx on it reuses the same transaction.
	// Any error returned by fn rolls back every write made through it.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}
