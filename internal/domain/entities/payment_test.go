package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaymentStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, PaymentPending.CanTransitionTo(PaymentAuthorized))
	assert.True(t, PaymentPending.CanTransitionTo(PaymentCaptured))
	assert.True(t, PaymentAuthorized.CanTransitionTo(PaymentFailed))
	assert.True(t, PaymentCaptured.CanTransitionTo(PaymentRefunded))
	assert.False(t, PaymentPending.CanTransitionTo(PaymentRefunded))
	assert.False(t, PaymentAuthorized.CanTransitionTo(PaymentRefunded))
	assert.False(t, PaymentFailed.CanTransitionTo(PaymentCaptured))
	assert.False(t, PaymentRefunded.CanTransitionTo(PaymentCaptured))
}

func TestPayoutStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, PayoutPending.CanTransitionTo(PayoutProcessing))
	assert.True(t, PayoutProcessing.CanTransitionTo(PayoutPaid))
	assert.True(t, PayoutPending.CanTransitionTo(PayoutFailed))
	assert.False(t, PayoutPending.CanTransitionTo(PayoutPaid))
	assert.False(t, PayoutPaid.CanTransitionTo(PayoutFailed))
}

func TestPayoutAllowed(t *testing.T) {
	tests := []struct {
		payment PaymentStatus
		payout  PayoutStatus
		want    bool
	}{
		{PaymentPending, PayoutPending, false},
		{PaymentAuthorized, PayoutPending, false},
		{PaymentFailed, PayoutFailed, true},
		{PaymentFailed, PayoutPending, false},
		{PaymentCaptured, PayoutPending, true},
		{PaymentCaptured, PayoutPaid, true},
		{PaymentRefunded, PayoutFailed, true},
		{PaymentRefunded, PayoutPaid, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PayoutAllowed(tt.payment, tt.payout), "%s/%s", tt.payment, tt.payout)
	}
	assert.False(t, PaymentAuthorized.HasTransaction())
	assert.True(t, PaymentCaptured.HasTransaction())
}
