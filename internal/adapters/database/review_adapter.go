package database

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/zatekoja/servicemarket/internal/domain/entities"
	apperrors "github.com/zatekoja/servicemarket/pkg/errors"
)

var reviewColumns = []interface{}{
	"id", "booking_id", "customer_id", "provider_id", "rating", "text",
	"moderated", "provider_reply", "replied_at", "created_at",
}

// ReviewAdapter implements the ReviewRepository interface
type ReviewAdapter struct {
	s *Store
}

// Create creates a new review
func (a *ReviewAdapter) Create(ctx context.Context, review *entities.Review) error {
	query, _, err := a.s.dialect.Insert("reviews").Rows(goqu.Record{
		"id":          review.ID,
		"booking_id":  review.BookingID,
		"customer_id": review.CustomerID,
		"provider_id": review.ProviderID,
		"rating":      review.Rating,
		"text":        review.Text,
		"moderated":   review.Moderated,
		"created_at":  review.CreatedAt,
	}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.s.exec(ctx, "reviews.create", query); err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewDuplicateError(fmt.Sprintf("booking %s has already been reviewed", review.BookingID))
		}
		return apperrors.NewInternalError("failed to create review", err)
	}
	return nil
}

// GetByID retrieves a review by ID
func (a *ReviewAdapter) GetByID(ctx context.Context, id string) (*entities.Review, error) {
	return a.getOne(ctx, "reviews.get", goqu.Ex{"id": id}, fmt.Sprintf("review with id %s not found", id))
}

// GetByBooking retrieves the review of a booking
func (a *ReviewAdapter) GetByBooking(ctx context.Context, bookingID string) (*entities.Review, error) {
	return a.getOne(ctx, "reviews.get_by_booking", goqu.Ex{"booking_id": bookingID}, fmt.Sprintf("no review for booking %s", bookingID))
}

func (a *ReviewAdapter) getOne(ctx context.Context, op string, where goqu.Ex, notFound string) (*entities.Review, error) {
	query, _, err := a.s.dialect.From("reviews").Select(reviewColumns...).Where(where).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	review := &entities.Review{}
	if err := a.s.get(ctx, op, review, query); err != nil {
		if isNoRows(err) {
			return nil, apperrors.NewNotFoundError(notFound)
		}
		return nil, apperrors.NewInternalError("failed to get review", err)
	}
	return review, nil
}

// SetReply stores the provider reply only while none exists
func (a *ReviewAdapter) SetReply(ctx context.Context, id, reply string, at time.Time) (bool, error) {
	query, _, err := a.s.dialect.Update("reviews").
		Set(goqu.Record{"provider_reply": reply, "replied_at": at}).
		Where(goqu.Ex{"id": id}, goqu.C("provider_reply").IsNull()).
		ToSQL()
	if err != nil {
		return false, apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.s.exec(ctx, "reviews.set_reply", query)
	if err != nil {
		return false, apperrors.NewInternalError("failed to reply to review", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.NewInternalError("failed to get rows affected", err)
	}
	return rowsAffected == 1, nil
}

// ListByProvider retrieves reviews for a provider
func (a *ReviewAdapter) ListByProvider(ctx context.Context, providerID string, limit, offset int) ([]*entities.Review, error) {
	lim, off := pagination(limit, offset)
	query, _, err := a.s.dialect.From("reviews").
		Select(reviewColumns...).
		Where(goqu.Ex{"provider_id": providerID}).
		Order(goqu.C("created_at").Desc()).
		Limit(lim).
		Offset(off).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	reviews := []*entities.Review{}
	if err := a.s.selectAll(ctx, "reviews.list_by_provider", &reviews, query); err != nil {
		return nil, apperrors.NewInternalError("failed to list reviews", err)
	}
	return reviews, nil
}
