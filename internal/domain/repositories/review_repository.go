package repositories

import (
	"context"
	"time"

	"github.com/zatekoja/servicemarket/internal/domain/entities"
)

// ReviewRepository defines the interface for review operations
type ReviewRepository interface {
	// Create creates a new review. A second review for a booking yields a DUPLICATE error.
	Create(ctx context.Context, review *entities.Review) error

	// GetByID retrieves a review by ID
	GetByID(ctx context.Context, id string) (*entities.Review, error)

	// GetByBooking retrieves the review of a booking
	GetByBooking(ctx context.Context, bookingID string) (*entities.Review, error)

	// SetReply stores the provider reply if none exists yet. It returns false
	// when a reply was already present.
	SetReply(ctx context.Context, id, reply string, at time.Time) (bool, error)

	// ListByProvider retrieves reviews for a provider, newest first
	ListByProvider(ctx context.Context, providerID string, limit, offset int) ([]*entities.Review, error)
}
