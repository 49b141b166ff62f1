package payments

import (
	"context"
	"sync"

	"github.com/zatekoja/servicemarket/internal/domain/entities"
	"github.com/zatekoja/servicemarket/internal/domain/providers"
)

// DeclineAmount is the amount the mock gateway always declines, so local
// runs can exercise the failed-capture path.
const DeclineAmount int64 = 40002

// MockGateway is a deterministic in-process payment gateway and payout
// provider. Captures succeed except for DeclineAmount; payouts are paid at once.
type MockGateway struct {
	mu       sync.Mutex
	captures map[string]*providers.CaptureResult
	refunds  map[string]bool
	payouts  map[string]entities.PayoutStatus
}

var (
	_ providers.PaymentGateway = (*MockGateway)(nil)
	_ providers.PayoutProvider = (*MockGateway)(nil)
)

// NewMockGateway creates a new mock gateway
func NewMockGateway() *MockGateway {
	return &MockGateway{
		captures: make(map[string]*providers.CaptureResult),
		refunds:  make(map[string]bool),
		payouts:  make(map[string]entities.PayoutStatus),
	}
}

// Capture returns the same result for repeated calls with one booking id
func (g *MockGateway) Capture(ctx context.Context, bookingID string, amount int64, currency string) (*providers.CaptureResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if prev, ok := g.captures[bookingID]; ok {
		out := *prev
		return &out, nil
	}
	result := &providers.CaptureResult{Status: entities.PaymentCaptured, Reference: "mock_" + bookingID}
	if amount == DeclineAmount {
		result = &providers.CaptureResult{Status: entities.PaymentFailed, Reason: "card_declined"}
	}
	g.captures[bookingID] = result
	out := *result
	return &out, nil
}

// Refund records the refund
func (g *MockGateway) Refund(ctx context.Context, transactionID, reference string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refunds[transactionID] = true
	return nil
}

// RequestPayout pays out immediately
func (g *MockGateway) RequestPayout(ctx context.Context, tx *entities.Transaction) (entities.PayoutStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.payouts[tx.ID] = entities.PayoutPaid
	return entities.PayoutPaid, nil
}

// Refunded reports whether a transaction was refunded
func (g *MockGateway) Refunded(transactionID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.refunds[transactionID]
}
