package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/zatekoja/servicemarket/internal/domain/entities"
	"github.com/zatekoja/servicemarket/internal/domain/repositories"
	apperrors "github.com/zatekoja/servicemarket/pkg/errors"
)

// bookingMutation changes b in place inside tx. It reports false when the
// booking already is where the caller wants it, in which case nothing is written.
type bookingMutation func(ctx context.Context, tx repositories.Store, b *entities.Booking) (bool, error)

// mutateBooking reads the booking, applies fn and commits conditionally on
// the version read. A lost race rolls the whole unit back and starts over
// from a fresh read, up to retries times.
//
// A duplicate on a one-per-booking key (the event audit row, the payment
// transaction) is also a lost race: a concurrent writer got there first and
// the fresh read sees its result.
func mutateBooking(ctx context.Context, store repositories.Store, retries int, bookingID string, fn bookingMutation) (*entities.Booking, bool, error) {
	if retries < 1 {
		retries = 1
	}
	for attempt := 1; attempt <= retries; attempt++ {
		var (
			result  *entities.Booking
			changed bool
		)
		err := store.WithinTx(ctx, func(ctx context.Context, tx repositories.Store) error {
			b, err := tx.Bookings().GetByID(ctx, bookingID)
			if err != nil {
				return err
			}
			expected := b.Version
			changed, err = fn(ctx, tx, b)
			result = b
			if err != nil || !changed {
				return err
			}
			return tx.Bookings().UpdateState(ctx, b, expected)
		})
		if lostRace(err) {
			continue
		}
		if err != nil {
			return nil, false, err
		}
		return result, changed, nil
	}
	return nil, false, apperrors.NewConcurrentModificationError(
		fmt.Sprintf("booking %s kept changing; gave up after %d attempts", bookingID, retries),
		repositories.ErrVersionConflict,
	)
}

func lostRace(err error) bool {
	return errors.Is(err, repositories.ErrVersionConflict) || apperrors.IsType(err, apperrors.ErrorTypeDuplicate)
}
