package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/zatekoja/servicemarket/internal/domain/entities"
	"github.com/zatekoja/servicemarket/internal/domain/repositories"
	"github.com/zatekoja/servicemarket/internal/infrastructure/observability"
	"github.com/zatekoja/servicemarket/pkg/config"
	apperrors "github.com/zatekoja/servicemarket/pkg/errors"
)

// BookingRequest is the input of RequestBooking
type BookingRequest struct {
	ServiceID      string     `json:"service_id" validate:"required"`
	ScheduledStart time.Time  `json:"scheduled_start" validate:"required"`
	ScheduledEnd   *time.Time `json:"scheduled_end,omitempty"`
	Address        string     `json:"address" validate:"max=500"`
	Notes          string     `json:"notes" validate:"max=2000"`
	PhotoURL       string     `json:"photo_url" validate:"omitempty,url"`
}

// BookingListFilter narrows ListBookings
type BookingListFilter struct {
	Status entities.BookingStatus
	Limit  int
	Offset int
}

// BookingService runs the booking state machine
type BookingService struct {
	store        repositories.Store
	availability *AvailabilityService
	pricing      PricingPolicy
	cfg          config.BookingConfig
	kicker       Kicker
	metrics      *observability.Metrics
	now          func() time.Time
}

// NewBookingService creates a new booking service. kicker and metrics may be nil.
func NewBookingService(
	store repositories.Store,
	availability *AvailabilityService,
	cfg config.BookingConfig,
	kicker Kicker,
	metrics *observability.Metrics,
) *BookingService {
	if kicker == nil {
		kicker = noopKicker{}
	}
	return &BookingService{
		store:        store,
		availability: availability,
		pricing:      NewPricingPolicy(cfg),
		cfg:          cfg,
		kicker:       kicker,
		metrics:      metrics,
		now:          time.Now,
	}
}

// RequestBooking creates a booking in the requested state after checking
// the provider is free for its slot.
func (s *BookingService) RequestBooking(ctx context.Context, id entities.Identity, req BookingRequest) (*entities.Booking, error) {
	if err := Authorize(id, ActionRequestBooking, nil); err != nil {
		return nil, err
	}

	svc, err := s.store.Services().GetByID(ctx, req.ServiceID)
	if err != nil {
		return nil, err
	}
	if svc.Archived {
		return nil, apperrors.NewValidationError("service is no longer offered")
	}

	now := s.now().UTC()
	start := req.ScheduledStart.UTC()
	if !start.After(now) {
		return nil, apperrors.NewValidationError("scheduled_start must be in the future")
	}
	if svc.PriceType == entities.PriceTypeHourly && req.ScheduledEnd == nil {
		return nil, apperrors.NewValidationError("scheduled_end is required for hourly services")
	}

	booking := &entities.Booking{
		ID:             uuid.New().String(),
		CustomerID:     id.UserID,
		ProviderID:     svc.ProviderID,
		ServiceID:      svc.ID,
		Status:         entities.BookingRequested,
		ScheduledStart: start,
		Address:        req.Address,
		Notes:          req.Notes,
		PhotoURL:       req.PhotoURL,
		Currency:       s.cfg.Currency,
		PaymentStatus:  entities.PaymentPending,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if req.ScheduledEnd != nil {
		span, err := entities.NewInterval(start, *req.ScheduledEnd)
		if err != nil {
			return nil, err
		}
		booking.ScheduledEnd = &span.End
	}

	slot := booking.Slot(s.cfg.DefaultDuration)
	booking.Amount, booking.Fee, err = s.pricing.Quote(svc, slot)
	if err != nil {
		return nil, err
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.Store) error {
		if err := tx.Availability().LockProvider(ctx, booking.ProviderID); err != nil {
			return err
		}
		free, err := s.availability.queryFree(ctx, tx, booking.ProviderID, slot)
		if err != nil {
			return err
		}
		if !free {
			return apperrors.NewConflictError("provider is not available for the requested time")
		}
		if err := tx.Bookings().Create(ctx, booking); err != nil {
			return err
		}
		return enqueueNotify(ctx, tx, sideEffectKey(booking.ID, "request", "notify"), booking.ProviderID,
			entities.NotificationBookingRequest, booking.ID, map[string]string{
				"service":         svc.Title,
				"scheduled_start": start.Format(time.RFC3339),
			}, now)
	})
	if err != nil {
		return nil, err
	}

	s.kicker.Kick()
	observability.LoggerFromContext(ctx).Info().
		Str("booking_id", booking.ID).
		Str("provider_id", booking.ProviderID).
		Msg("booking requested")
	return booking, nil
}

// ApplyEvent moves a booking through its lifecycle. Re-sending an event that
// already took effect returns the current booking without touching anything.
func (s *BookingService) ApplyEvent(ctx context.Context, id entities.Identity, bookingID string, ev entities.BookingEvent) (*entities.Booking, error) {
	if !ev.Valid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown booking event %q", ev))
	}

	now := s.now().UTC()
	booking, changed, err := mutateBooking(ctx, s.store, s.cfg.MaxCASRetries, bookingID,
		func(ctx context.Context, tx repositories.Store, b *entities.Booking) (bool, error) {
			subject := BookingSubject(b)
			if err := Authorize(id, EventAction(ev), &subject); err != nil {
				return false, err
			}
			return s.transition(ctx, tx, id, b, ev, now)
		})

	outcome := "applied"
	switch {
	case err != nil:
		outcome = string(apperrors.TypeOf(err))
	case !changed:
		outcome = "noop"
	}
	observability.RecordBookingTransition(ctx, s.metrics, string(ev), outcome)
	if err != nil {
		return nil, err
	}

	if changed {
		s.kicker.Kick()
		observability.LoggerFromContext(ctx).Info().
			Str("booking_id", booking.ID).
			Str("event", string(ev)).
			Str("status", string(booking.Status)).
			Msg("booking transitioned")
	}
	return booking, nil
}

// transition applies ev to b and queues its side effects in tx.
func (s *BookingService) transition(ctx context.Context, tx repositories.Store, id entities.Identity, b *entities.Booking, ev entities.BookingEvent, now time.Time) (bool, error) {
	applied, err := tx.Bookings().HasEvent(ctx, b.ID, ev)
	if err != nil {
		return false, err
	}
	if applied {
		return false, nil
	}

	next, ok := b.Status.Next(ev)
	if !ok {
		if target, _ := ev.Target(); target == b.Status {
			return false, nil
		}
		return false, apperrors.NewInvalidTransitionError(fmt.Sprintf("cannot %s a %s booking", ev, b.Status))
	}

	switch ev {
	case entities.EventAccept:
		if _, err := s.availability.Reserve(ctx, tx, b.ProviderID, b.ID, b.Slot(s.cfg.DefaultDuration)); err != nil {
			return false, err
		}
	case entities.EventDecline, entities.EventExpire, entities.EventCancel:
		if ev == entities.EventCancel {
			b.CancellationFee = s.pricing.CancellationFee(b, now)
		}
		if err := s.availability.Release(ctx, tx, b.ProviderID, b.ID); err != nil {
			return false, err
		}
	case entities.EventStart:
		if earliest := b.ScheduledStart.Add(-s.cfg.StartGraceWindow); now.Before(earliest) {
			return false, apperrors.NewInvalidTransitionError(
				fmt.Sprintf("booking cannot start before %s", earliest.Format(time.RFC3339)))
		}
	case entities.EventComplete:
		if err := enqueue(ctx, tx, sideEffectKey(b.ID, "capture"), entities.SideEffectCapturePayment,
			entities.CapturePayload{BookingID: b.ID, Amount: b.Amount, Currency: b.Currency}, now); err != nil {
			return false, err
		}
	}

	from := b.Status
	b.Status = next
	b.UpdatedAt = now
	if err := tx.Bookings().RecordEvent(ctx, &entities.BookingEventRecord{
		ID:         uuid.New().String(),
		BookingID:  b.ID,
		Event:      ev,
		FromStatus: from,
		ToStatus:   next,
		ActorID:    id.UserID,
		CreatedAt:  now,
	}); err != nil {
		return false, err
	}

	data := map[string]string{
		"status":          string(next),
		"scheduled_start": b.ScheduledStart.Format(time.RFC3339),
	}
	if b.CancellationFee > 0 {
		data["cancellation_fee"] = strconv.FormatInt(b.CancellationFee, 10)
	}
	for _, userID := range notifyRecipients(b, id, ev) {
		if err := enqueueNotify(ctx, tx, sideEffectKey(b.ID, string(ev), "notify", userID), userID,
			entities.NotificationForEvent(ev), b.ID, data, now); err != nil {
			return false, err
		}
	}
	return true, nil
}

// notifyRecipients returns the parties to tell about ev: everyone but the
// actor, and only the customer when a request times out.
func notifyRecipients(b *entities.Booking, actor entities.Identity, ev entities.BookingEvent) []string {
	if ev == entities.EventExpire {
		return []string{b.CustomerID}
	}
	var out []string
	for _, userID := range []string{b.CustomerID, b.ProviderID} {
		if userID != actor.UserID {
			out = append(out, userID)
		}
	}
	return out
}

// ExpireStaleRequests cancels requests nobody answered within the request TTL
// and returns how many it expired.
func (s *BookingService) ExpireStaleRequests(ctx context.Context, now time.Time) (int, error) {
	stale, err := s.store.Bookings().ListStaleRequests(ctx, now.Add(-s.cfg.RequestTTL), 100)
	if err != nil {
		return 0, err
	}

	logger := observability.LoggerFromContext(ctx)
	expired := 0
	for _, b := range stale {
		updated, err := s.ApplyEvent(ctx, entities.SystemIdentity(), b.ID, entities.EventExpire)
		if err != nil {
			// Raced with a provider answer or a customer cancel.
			if apperrors.IsType(err, apperrors.ErrorTypeInvalidTransition) {
				continue
			}
			logger.Warn().Err(err).Str("booking_id", b.ID).Msg("failed to expire booking request")
			continue
		}
		if updated.Status == entities.BookingCancelled {
			expired++
		}
	}
	return expired, nil
}

// GetBooking returns a booking visible to the caller.
func (s *BookingService) GetBooking(ctx context.Context, id entities.Identity, bookingID string) (*entities.Booking, error) {
	b, err := s.store.Bookings().GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	subject := BookingSubject(b)
	if err := Authorize(id, ActionViewBooking, &subject); err != nil {
		return nil, err
	}
	return b, nil
}

// ListBookings lists the caller's bookings; admins see all of them.
func (s *BookingService) ListBookings(ctx context.Context, id entities.Identity, filter BookingListFilter) ([]*entities.Booking, error) {
	if id.IsZero() {
		return nil, apperrors.NewUnauthorizedError("authentication required")
	}
	if filter.Status != "" {
		if _, known := map[entities.BookingStatus]bool{
			entities.BookingRequested: true, entities.BookingAccepted: true, entities.BookingInProgress: true,
			entities.BookingCompleted: true, entities.BookingCancelled: true,
		}[filter.Status]; !known {
			return nil, apperrors.NewValidationError(fmt.Sprintf("unknown booking status %q", filter.Status))
		}
	}

	repoFilter := repositories.BookingFilter{Status: filter.Status, Limit: filter.Limit, Offset: filter.Offset}
	switch id.Role {
	case entities.RoleCustomer:
		repoFilter.CustomerID = id.UserID
	case entities.RoleProvider:
		repoFilter.ProviderID = id.UserID
	case entities.RoleAdmin:
	default:
		return nil, apperrors.NewForbiddenError("role may not list bookings")
	}
	return s.store.Bookings().List(ctx, repoFilter)
}

// ListBookingEvents returns the audit trail of a booking visible to the caller.
func (s *BookingService) ListBookingEvents(ctx context.Context, id entities.Identity, bookingID string) ([]*entities.BookingEventRecord, error) {
	if _, err := s.GetBooking(ctx, id, bookingID); err != nil {
		return nil, err
	}
	return s.store.Bookings().ListEvents(ctx, bookingID)
}
