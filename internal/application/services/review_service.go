package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zatekoja/servicemarket/internal/domain/entities"
	"github.com/zatekoja/servicemarket/internal/domain/repositories"
	"github.com/zatekoja/servicemarket/internal/infrastructure/observability"
	"github.com/zatekoja/servicemarket/pkg/config"
	apperrors "github.com/zatekoja/servicemarket/pkg/errors"
)

// ReviewInput is the input of SubmitReview
type ReviewInput struct {
	Rating int    `json:"rating"`
	Text   string `json:"text" validate:"max=4000"`
}

// ReviewService gates reviews on finished, paid bookings and serves the
// rating aggregates
type ReviewService struct {
	store   repositories.Store
	cfg     config.BookingConfig
	kicker  Kicker
	indexer ProviderIndexer
	now     func() time.Time
}

// NewReviewService creates a new review service. kicker and indexer may be nil.
func NewReviewService(store repositories.Store, cfg config.BookingConfig, kicker Kicker, indexer ProviderIndexer) *ReviewService {
	if kicker == nil {
		kicker = noopKicker{}
	}
	return &ReviewService{store: store, cfg: cfg, kicker: kicker, indexer: indexer, now: time.Now}
}

// SubmitReview records the customer's review of a completed and captured booking
func (s *ReviewService) SubmitReview(ctx context.Context, id entities.Identity, bookingID string, in ReviewInput) (*entities.Review, error) {
	b, err := s.store.Bookings().GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	subject := BookingSubject(b)
	if err := Authorize(id, ActionSubmitReview, &subject); err != nil {
		return nil, err
	}
	if b.Status != entities.BookingCompleted || b.PaymentStatus != entities.PaymentCaptured {
		return nil, apperrors.NewNotEligibleError(fmt.Sprintf(
			"booking %s is %s with payment %s; reviews need a completed booking with captured payment",
			b.ID, b.Status, b.PaymentStatus))
	}

	existing, err := s.store.Reviews().GetByBooking(ctx, b.ID)
	if err == nil && existing != nil {
		return nil, apperrors.NewDuplicateError(fmt.Sprintf("booking %s already has a review", b.ID))
	}
	if err != nil && !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		return nil, err
	}

	if in.Rating < s.cfg.RatingMin || in.Rating > s.cfg.RatingMax {
		return nil, apperrors.NewValidationError(fmt.Sprintf("rating must be between %d and %d", s.cfg.RatingMin, s.cfg.RatingMax))
	}

	now := s.now().UTC()
	review := &entities.Review{
		ID:         uuid.New().String(),
		BookingID:  b.ID,
		CustomerID: b.CustomerID,
		ProviderID: b.ProviderID,
		Rating:     in.Rating,
		Text:       strings.TrimSpace(in.Text),
		CreatedAt:  now,
	}
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.Store) error {
		if err := tx.Reviews().Create(ctx, review); err != nil {
			return err
		}
		return enqueueNotify(ctx, tx, sideEffectKey(b.ID, "review", "notify"), b.ProviderID,
			entities.NotificationReviewReceived, b.ID, map[string]string{
				"rating": strconv.Itoa(review.Rating),
			}, now)
	})
	if err != nil {
		return nil, err
	}

	s.kicker.Kick()
	if s.indexer != nil {
		s.indexer.ReindexProvider(ctx, b.ProviderID)
	}
	observability.LoggerFromContext(ctx).Info().
		Str("booking_id", b.ID).
		Str("provider_id", b.ProviderID).
		Int("rating", review.Rating).
		Msg("review submitted")
	return review, nil
}

// ReplyToReview stores the provider's one-time reply
func (s *ReviewService) ReplyToReview(ctx context.Context, id entities.Identity, reviewID, reply string) (*entities.Review, error) {
	review, err := s.store.Reviews().GetByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if err := Authorize(id, ActionReplyReview, &Subject{CustomerID: review.CustomerID, ProviderID: review.ProviderID}); err != nil {
		return nil, err
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return nil, apperrors.NewValidationError("reply must not be empty")
	}

	now := s.now().UTC()
	ok, err := s.store.Reviews().SetReply(ctx, review.ID, reply, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NewAlreadyRepliedError(fmt.Sprintf("review %s already has a reply", review.ID))
	}
	review.ProviderReply = &reply
	review.RepliedAt = &now
	return review, nil
}

// ListProviderReviews lists a provider's reviews, newest first
func (s *ReviewService) ListProviderReviews(ctx context.Context, providerID string, limit, offset int) ([]*entities.Review, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.Reviews().ListByProvider(ctx, providerID, limit, offset)
}

// ProviderStats returns the public track record of a provider
func (s *ReviewService) ProviderStats(ctx context.Context, providerID string) (*entities.ProviderStats, error) {
	if _, err := s.store.Accounts().GetProvider(ctx, providerID); err != nil {
		return nil, err
	}
	return s.store.Stats().ProviderStats(ctx, providerID)
}

// MyStats returns the caller's dashboard: provider stats for providers,
// customer stats for customers.
func (s *ReviewService) MyStats(ctx context.Context, id entities.Identity) (interface{}, error) {
	if id.IsZero() {
		return nil, apperrors.NewUnauthorizedError("authentication required")
	}
	switch id.Role {
	case entities.RoleProvider:
		return s.store.Stats().ProviderStats(ctx, id.UserID)
	case entities.RoleCustomer:
		return s.store.Stats().CustomerStats(ctx, id.UserID)
	default:
		return nil, apperrors.NewForbiddenError(fmt.Sprintf("role %s has no dashboard", id.Role))
	}
}
