package database

import (
	"context"

	"github.com/zatekoja/servicemarket/internal/domain/entities"
	apperrors "github.com/zatekoja/servicemarket/pkg/errors"
)

const (
	providerBookingStatsQuery = `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE status = 'completed') AS completed
		FROM bookings WHERE provider_id = $1`

	providerReviewStatsQuery = `
		SELECT COALESCE(AVG(rating), 0) AS average, COUNT(*) AS total
		FROM reviews WHERE provider_id = $1`

	providerEarningsQuery = `
		SELECT COALESCE(SUM(t.amount - t.platform_fee), 0)
		FROM transactions t JOIN bookings b ON b.id = t.booking_id
		WHERE b.provider_id = $1 AND b.payment_status = 'captured'`

	providerRespondedQuery = `
		SELECT COUNT(DISTINCT e.booking_id)
		FROM booking_events e JOIN bookings b ON b.id = e.booking_id
		WHERE b.provider_id = $1 AND e.event IN ('accept', 'decline')`

	customerStatsQuery = `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE status = 'completed') AS completed,
			COALESCE(SUM(amount) FILTER (WHERE payment_status = 'captured'), 0) AS spent
		FROM bookings WHERE customer_id = $1`

	customerReviewsQuery = `SELECT COUNT(*) FROM reviews WHERE customer_id = $1`
)

// StatsAdapter implements the StatsRepository interface
type StatsAdapter struct {
	s *Store
}

// ProviderStats aggregates a provider's bookings, reviews and earnings
func (a *StatsAdapter) ProviderStats(ctx context.Context, providerID string) (*entities.ProviderStats, error) {
	var bookings struct {
		Total     int `db:"total"`
		Completed int `db:"completed"`
	}
	if err := a.s.get(ctx, "stats.provider_bookings", &bookings, providerBookingStatsQuery, providerID); err != nil {
		return nil, apperrors.NewInternalError("failed to aggregate provider bookings", err)
	}

	var reviews struct {
		Average float64 `db:"average"`
		Total   int     `db:"total"`
	}
	if err := a.s.get(ctx, "stats.provider_reviews", &reviews, providerReviewStatsQuery, providerID); err != nil {
		return nil, apperrors.NewInternalError("failed to aggregate provider reviews", err)
	}

	var earnings int64
	if err := a.s.get(ctx, "stats.provider_earnings", &earnings, providerEarningsQuery, providerID); err != nil {
		return nil, apperrors.NewInternalError("failed to aggregate provider earnings", err)
	}

	var responded int
	if err := a.s.get(ctx, "stats.provider_responded", &responded, providerRespondedQuery, providerID); err != nil {
		return nil, apperrors.NewInternalError("failed to aggregate provider responses", err)
	}

	stats := &entities.ProviderStats{
		ProviderID:        providerID,
		TotalBookings:     bookings.Total,
		CompletedBookings: bookings.Completed,
		AverageRating:     reviews.Average,
		TotalReviews:      reviews.Total,
		TotalEarnings:     earnings,
	}
	if bookings.Total > 0 {
		stats.ResponseRate = float64(responded) / float64(bookings.Total)
	}
	return stats, nil
}

// CustomerStats aggregates a customer's bookings and reviews
func (a *StatsAdapter) CustomerStats(ctx context.Context, customerID string) (*entities.CustomerStats, error) {
	var bookings struct {
		Total     int   `db:"total"`
		Completed int   `db:"completed"`
		Spent     int64 `db:"spent"`
	}
	if err := a.s.get(ctx, "stats.customer_bookings", &bookings, customerStatsQuery, customerID); err != nil {
		return nil, apperrors.NewInternalError("failed to aggregate customer bookings", err)
	}

	var reviews int
	if err := a.s.get(ctx, "stats.customer_reviews", &reviews, customerReviewsQuery, customerID); err != nil {
		return nil, apperrors.NewInternalError("failed to aggregate customer reviews", err)
	}

	return &entities.CustomerStats{
		CustomerID:        customerID,
		TotalBookings:     bookings.Total,
		CompletedBookings: bookings.Completed,
		TotalSpent:        bookings.Spent,
		ReviewsGiven:      reviews,
	}, nil
}
