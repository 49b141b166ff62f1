package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/zatekoja/servicemarket/internal/domain/entities"
	"github.com/zatekoja/servicemarket/internal/domain/repositories"
	apperrors "github.com/zatekoja/servicemarket/pkg/errors"
)

func copyReview(rv entities.Review) *entities.Review {
	if rv.ProviderReply != nil {
		reply := *rv.ProviderReply
		rv.ProviderReply = &reply
	}
	if rv.RepliedAt != nil {
		at := *rv.RepliedAt
		rv.RepliedAt = &at
	}
	return &rv
}

type reviews struct{ s *Store }

func (r reviews) Create(ctx context.Context, review *entities.Review) error {
	return r.s.write(func(st *state) error {
		for _, existing := range st.reviews {
			if existing.BookingID == review.BookingID {
				return apperrors.NewDuplicateError(fmt.Sprintf("booking %s has already been reviewed", review.BookingID))
			}
		}
		st.reviews[review.ID] = *copyReview(*review)
		return nil
	})
}

func (r reviews) GetByID(ctx context.Context, id string) (*entities.Review, error) {
	var out *entities.Review
	err := r.s.read(func(st *state) error {
		rv, ok := st.reviews[id]
		if !ok {
			return notFound("review", id)
		}
		out = copyReview(rv)
		return nil
	})
	return out, err
}

func (r reviews) GetByBooking(ctx context.Context, bookingID string) (*entities.Review, error) {
	var out *entities.Review
	err := r.s.read(func(st *state) error {
		for _, rv := range st.reviews {
			if rv.BookingID == bookingID {
				out = copyReview(rv)
				return nil
			}
		}
		return apperrors.NewNotFoundError("no review for booking " + bookingID)
	})
	return out, err
}

func (r reviews) SetReply(ctx context.Context, id, reply string, at time.Time) (bool, error) {
	var applied bool
	err := r.s.write(func(st *state) error {
		rv, ok := st.reviews[id]
		if !ok || rv.ProviderReply != nil {
			return nil
		}
		rv.ProviderReply = &reply
		rv.RepliedAt = &at
		st.reviews[id] = rv
		applied = true
		return nil
	})
	return applied, err
}

func (r reviews) ListByProvider(ctx context.Context, providerID string, limit, offset int) ([]*entities.Review, error) {
	var all []*entities.Review
	err := r.s.read(func(st *state) error {
		for _, rv := range st.reviews {
			if rv.ProviderID == providerID {
				all = append(all, copyReview(rv))
			}
		}
		return nil
	})
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return page(all, limit, offset), err
}

type transactions struct{ s *Store }

func (r transactions) Create(ctx context.Context, tx *entities.Transaction) error {
	return r.s.write(func(st *state) error {
		for _, existing := range st.transactions {
			if existing.BookingID == tx.BookingID {
				return apperrors.NewDuplicateError(fmt.Sprintf("booking %s already has a transaction", tx.BookingID))
			}
		}
		st.transactions[tx.ID] = *tx
		return nil
	})
}

func (r transactions) GetByID(ctx context.Context, id string) (*entities.Transaction, error) {
	var out *entities.Transaction
	err := r.s.read(func(st *state) error {
		tx, ok := st.transactions[id]
		if !ok {
			return notFound("transaction", id)
		}
		out = &tx
		return nil
	})
	return out, err
}

func (r transactions) GetByBooking(ctx context.Context, bookingID string) (*entities.Transaction, error) {
	var out *entities.Transaction
	err := r.s.read(func(st *state) error {
		for _, tx := range st.transactions {
			if tx.BookingID == bookingID {
				found := tx
				out = &found
				return nil
			}
		}
		return apperrors.NewNotFoundError("no transaction for booking " + bookingID)
	})
	return out, err
}

func (r transactions) UpdatePayoutStatus(ctx context.Context, id string, from, to entities.PayoutStatus) error {
	return r.s.write(func(st *state) error {
		tx, ok := st.transactions[id]
		if !ok || tx.PayoutStatus != from {
			return repositories.ErrVersionConflict
		}
		tx.PayoutStatus = to
		tx.UpdatedAt = time.Now().UTC()
		st.transactions[id] = tx
		return nil
	})
}
