package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/zatekoja/servicemarket/internal/domain/entities"
	"github.com/zatekoja/servicemarket/internal/domain/providers"
	"github.com/zatekoja/servicemarket/internal/domain/repositories"
	"github.com/zatekoja/servicemarket/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/servicemarket/pkg/errors"
)

// PaymentService reconciles a booking's payment status with its
// transaction's payout status.
//
// Mapping between the two lifecycles:
//
//	payment pending, authorized  -> no transaction
//	payment failed               -> transaction with payout failed
//	payment captured             -> payout pending, processing, paid or failed
//	payment refunded             -> payout failed
//
// A payout is only requested for a completed booking with a captured payment,
// and a refund is refused once the payout is paid.
type PaymentService struct {
	store   repositories.Store
	gateway providers.PaymentGateway
	payouts providers.PayoutProvider
	retries int
	kicker  Kicker
	now     func() time.Time
}

// NewPaymentService creates a new payment service
func NewPaymentService(
	store repositories.Store,
	gateway providers.PaymentGateway,
	payouts providers.PayoutProvider,
	casRetries int,
	kicker Kicker,
) *PaymentService {
	if kicker == nil {
		kicker = noopKicker{}
	}
	return &PaymentService{
		store:   store,
		gateway: gateway,
		payouts: payouts,
		retries: casRetries,
		kicker:  kicker,
		now:     time.Now,
	}
}

// RecordAuthorization marks a pending payment as authorized.
func (s *PaymentService) RecordAuthorization(ctx context.Context, id entities.Identity, bookingID string) (*entities.Booking, error) {
	booking, _, err := mutateBooking(ctx, s.store, s.retries, bookingID,
		func(ctx context.Context, tx repositories.Store, b *entities.Booking) (bool, error) {
			subject := BookingSubject(b)
			if err := Authorize(id, ActionAuthorizePayment, &subject); err != nil {
				return false, err
			}
			if b.PaymentStatus == entities.PaymentAuthorized {
				return false, nil
			}
			if b.Status == entities.BookingCancelled {
				return false, apperrors.NewInvalidTransitionError("cannot authorize payment for a cancelled booking")
			}
			if !b.PaymentStatus.CanTransitionTo(entities.PaymentAuthorized) {
				return false, apperrors.NewInvalidTransitionError(
					fmt.Sprintf("payment is %s and cannot be authorized", b.PaymentStatus))
			}
			b.PaymentStatus = entities.PaymentAuthorized
			b.UpdatedAt = s.now().UTC()
			return true, nil
		})
	return booking, err
}

// HandleCapture is the capture_payment side-effect handler. It asks the
// gateway to settle the booking and records the definitive outcome along
// with the transaction that mirrors it.
func (s *PaymentService) HandleCapture(ctx context.Context, raw json.RawMessage) error {
	var p entities.CapturePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return apperrors.NewValidationError("malformed capture payload")
	}

	b, err := s.store.Bookings().GetByID(ctx, p.BookingID)
	if err != nil {
		return err
	}
	if b.PaymentStatus.HasTransaction() {
		return nil
	}

	result, err := s.gateway.Capture(ctx, p.BookingID, p.Amount, p.Currency)
	if err != nil {
		return apperrors.NewExternalError("payment capture failed", err)
	}
	if result.Status != entities.PaymentCaptured && result.Status != entities.PaymentFailed {
		return apperrors.NewExternalError(fmt.Sprintf("gateway returned non-final status %q", result.Status), nil)
	}

	_, _, err = mutateBooking(ctx, s.store, s.retries, p.BookingID,
		func(ctx context.Context, tx repositories.Store, b *entities.Booking) (bool, error) {
			if b.PaymentStatus.HasTransaction() {
				return false, nil
			}
			if !b.PaymentStatus.CanTransitionTo(result.Status) {
				return false, apperrors.NewInvalidTransitionError(
					fmt.Sprintf("payment is %s and cannot become %s", b.PaymentStatus, result.Status))
			}
			now := s.now().UTC()
			b.PaymentStatus = result.Status
			b.UpdatedAt = now

			txn := &entities.Transaction{
				ID:               uuid.New().String(),
				BookingID:        b.ID,
				GatewayReference: result.Reference,
				Amount:           p.Amount,
				PlatformFee:      b.Fee,
				Currency:         p.Currency,
				PayoutStatus:     entities.PayoutPending,
				CreatedAt:        now,
				UpdatedAt:        now,
			}
			if result.Status == entities.PaymentFailed {
				txn.PayoutStatus = entities.PayoutFailed
			}
			if err := tx.Transactions().Create(ctx, txn); err != nil {
				return false, err
			}
			if result.Status != entities.PaymentCaptured {
				return true, nil
			}

			if err := enqueueNotify(ctx, tx, sideEffectKey(b.ID, "payment", "notify"), b.ProviderID,
				entities.NotificationPaymentReceived, b.ID, map[string]string{
					"amount":   strconv.FormatInt(txn.PayoutAmount(), 10),
					"currency": txn.Currency,
				}, now); err != nil {
				return false, err
			}
			if b.Status == entities.BookingCompleted {
				if err := enqueue(ctx, tx, sideEffectKey(txn.ID, "payout"), entities.SideEffectRequestPayout,
					entities.PayoutPayload{TransactionID: txn.ID}, now); err != nil {
					return false, err
				}
			}
			return true, nil
		})
	if err != nil {
		return err
	}

	s.kicker.Kick()
	observability.LoggerFromContext(ctx).Info().
		Str("booking_id", p.BookingID).
		Str("payment_status", string(result.Status)).
		Msg("payment capture recorded")
	return nil
}

// HandlePayout is the request_payout side-effect handler.
func (s *PaymentService) HandlePayout(ctx context.Context, raw json.RawMessage) error {
	var p entities.PayoutPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return apperrors.NewValidationError("malformed payout payload")
	}

	txn, err := s.store.Transactions().GetByID(ctx, p.TransactionID)
	if err != nil {
		return err
	}
	b, err := s.store.Bookings().GetByID(ctx, txn.BookingID)
	if err != nil {
		return err
	}
	if b.Status != entities.BookingCompleted || b.PaymentStatus != entities.PaymentCaptured {
		return nil
	}
	if txn.PayoutStatus != entities.PayoutPending {
		return nil
	}

	status, err := s.payouts.RequestPayout(ctx, txn)
	if err != nil {
		return apperrors.NewExternalError("payout request failed", err)
	}

	var path []entities.PayoutStatus
	switch status {
	case entities.PayoutPending:
		return nil
	case entities.PayoutProcessing:
		path = []entities.PayoutStatus{entities.PayoutProcessing}
	case entities.PayoutPaid:
		path = []entities.PayoutStatus{entities.PayoutProcessing, entities.PayoutPaid}
	case entities.PayoutFailed:
		path = []entities.PayoutStatus{entities.PayoutFailed}
	default:
		return apperrors.NewExternalError(fmt.Sprintf("payout provider returned unknown status %q", status), nil)
	}

	return s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.Store) error {
		from := entities.PayoutPending
		for _, to := range path {
			if err := s.movePayout(ctx, tx, txn.ID, from, to); err != nil {
				return err
			}
			from = to
		}
		return nil
	})
}

// HandleRefund is the refund_payment side-effect handler.
func (s *PaymentService) HandleRefund(ctx context.Context, raw json.RawMessage) error {
	var p entities.RefundPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return apperrors.NewValidationError("malformed refund payload")
	}
	txn, err := s.store.Transactions().GetByID(ctx, p.TransactionID)
	if err != nil {
		return err
	}
	if err := s.gateway.Refund(ctx, txn.ID, txn.GatewayReference); err != nil {
		return apperrors.NewExternalError("refund failed", err)
	}
	return nil
}

// Refund moves a captured payment to refunded, fails any payout still in
// flight and queues the gateway refund.
func (s *PaymentService) Refund(ctx context.Context, id entities.Identity, bookingID string) (*entities.Booking, error) {
	if err := Authorize(id, ActionRefundPayment, nil); err != nil {
		return nil, err
	}

	booking, changed, err := mutateBooking(ctx, s.store, s.retries, bookingID,
		func(ctx context.Context, tx repositories.Store, b *entities.Booking) (bool, error) {
			if b.PaymentStatus == entities.PaymentRefunded {
				return false, nil
			}
			if !b.PaymentStatus.CanTransitionTo(entities.PaymentRefunded) {
				return false, apperrors.NewInvalidTransitionError(
					fmt.Sprintf("payment is %s and cannot be refunded", b.PaymentStatus))
			}
			txn, err := tx.Transactions().GetByBooking(ctx, b.ID)
			if err != nil {
				return false, err
			}
			switch txn.PayoutStatus {
			case entities.PayoutPaid:
				return false, apperrors.NewInvalidTransitionError("payout already paid; refund refused")
			case entities.PayoutPending, entities.PayoutProcessing:
				if err := s.movePayout(ctx, tx, txn.ID, txn.PayoutStatus, entities.PayoutFailed); err != nil {
					return false, err
				}
			}

			now := s.now().UTC()
			b.PaymentStatus = entities.PaymentRefunded
			b.UpdatedAt = now
			return true, enqueue(ctx, tx, sideEffectKey(b.ID, "refund"), entities.SideEffectRefundPayment,
				entities.RefundPayload{BookingID: b.ID, TransactionID: txn.ID}, now)
		})
	if err != nil {
		return nil, err
	}
	if changed {
		s.kicker.Kick()
	}
	return booking, nil
}

// ReconcilePayout applies a payout status reported by the payout provider.
func (s *PaymentService) ReconcilePayout(ctx context.Context, id entities.Identity, transactionID string, status entities.PayoutStatus) (*entities.Transaction, error) {
	if err := Authorize(id, ActionReconcilePayout, nil); err != nil {
		return nil, err
	}

	var result *entities.Transaction
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.Store) error {
		txn, err := tx.Transactions().GetByID(ctx, transactionID)
		if err != nil {
			return err
		}
		if txn.PayoutStatus != status {
			if err := s.movePayout(ctx, tx, txn.ID, txn.PayoutStatus, status); err != nil {
				return err
			}
		}
		result, err = tx.Transactions().GetByID(ctx, transactionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// movePayout changes a payout status after checking both the payout
// lifecycle and the booking's payment status.
func (s *PaymentService) movePayout(ctx context.Context, tx repositories.Store, transactionID string, from, to entities.PayoutStatus) error {
	if !from.CanTransitionTo(to) {
		return apperrors.NewInvalidTransitionError(fmt.Sprintf("payout cannot move from %s to %s", from, to))
	}
	txn, err := tx.Transactions().GetByID(ctx, transactionID)
	if err != nil {
		return err
	}
	b, err := tx.Bookings().GetByID(ctx, txn.BookingID)
	if err != nil {
		return err
	}
	if !entities.PayoutAllowed(b.PaymentStatus, to) {
		return apperrors.NewInvalidTransitionError(
			fmt.Sprintf("payout cannot be %s while payment is %s", to, b.PaymentStatus))
	}

	err = tx.Transactions().UpdatePayoutStatus(ctx, transactionID, from, to)
	if errors.Is(err, repositories.ErrVersionConflict) {
		return apperrors.NewConcurrentModificationError("payout status changed concurrently", err)
	}
	return err
}
