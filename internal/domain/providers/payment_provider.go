package providers

import (
	"context"

	"github.com/zatekoja/servicemarket/internal/domain/entities"
)

// CaptureResult is the definitive answer of a capture call
type CaptureResult struct {
	Status    entities.PaymentStatus
	Reference string
	Reason    string
}

// PaymentGateway defines the interface for external payment services (Stripe, Paystack, etc.).
// Calls are idempotent by booking and transaction id.
type PaymentGateway interface {
	// Capture settles the booking amount. A declined card is a CaptureResult
	// with status failed, not an error; errors mean the outcome is unknown.
	Capture(ctx context.Context, bookingID string, amount int64, currency string) (*CaptureResult, error)

	// Refund returns a captured payment to the customer
	Refund(ctx context.Context, transactionID, reference string) error
}

// PayoutProvider defines the interface for paying providers out
type PayoutProvider interface {
	// RequestPayout submits a payout and returns the status it reached
	RequestPayout(ctx context.Context, tx *entities.Transaction) (entities.PayoutStatus, error)
}
