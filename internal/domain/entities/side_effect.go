package entities

import (
	"encoding/json"
	"time"
)

// SideEffectKind names the external call a side effect performs
type SideEffectKind string

const (
	SideEffectNotify         SideEffectKind = "notify"
	SideEffectCapturePayment SideEffectKind = "capture_payment"
	SideEffectRefundPayment  SideEffectKind = "refund_payment"
	SideEffectRequestPayout  SideEffectKind = "request_payout"
)

// SideEffectStatus tracks delivery of a queued side effect
type SideEffectStatus string

const (
	SideEffectPending SideEffectStatus = "pending"
	SideEffectDone    SideEffectStatus = "done"
	SideEffectDead    SideEffectStatus = "dead"
)

// SideEffect is an outbox row written in the same transaction as the state
// change that caused it and delivered at least once by the dispatcher.
type SideEffect struct {
	ID             string           `json:"id" db:"id"`
	IdempotencyKey string           `json:"idempotency_key" db:"idempotency_key"`
	Kind           SideEffectKind   `json:"kind" db:"kind"`
	Payload        json.RawMessage  `json:"payload" db:"payload"`
	Status         SideEffectStatus `json:"status" db:"status"`
	Attempts       int              `json:"attempts" db:"attempts"`
	NextAttemptAt  time.Time        `json:"next_attempt_at" db:"next_attempt_at"`
	LastError      *string          `json:"last_error,omitempty" db:"last_error"`
	CreatedAt      time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at" db:"updated_at"`
}

// NotifyPayload is the payload of a notify side effect
type NotifyPayload struct {
	UserID    string            `json:"user_id"`
	Type      NotificationType  `json:"type"`
	BookingID string            `json:"booking_id,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
}

// CapturePayload is the payload of a capture_payment side effect
type CapturePayload struct {
	BookingID string `json:"booking_id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
}

// RefundPayload is the payload of a refund_payment side effect
type RefundPayload struct {
	BookingID     string `json:"booking_id"`
	TransactionID string `json:"transaction_id"`
}

// PayoutPayload is the payload of a request_payout side effect
type PayoutPayload struct {
	TransactionID string `json:"transaction_id"`
}

// NewSideEffect builds a pending side effect due immediately.
func NewSideEffect(id, key string, kind SideEffectKind, payload interface{}, now time.Time) (*SideEffect, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &SideEffect{
		ID:             id,
		IdempotencyKey: key,
		Kind:           kind,
		Payload:        raw,
		Status:         SideEffectPending,
		NextAttemptAt:  now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}
