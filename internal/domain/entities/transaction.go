package entities

import (
	"time"
)

// Transaction mirrors a booking's capture outcome and tracks the provider payout
type Transaction struct {
	ID               string       `json:"id" db:"id"`
	BookingID        string       `json:"booking_id" db:"booking_id"`
	GatewayReference string       `json:"gateway_reference,omitempty" db:"gateway_reference"`
	Amount           int64        `json:"amount" db:"amount"`
	PlatformFee      int64        `json:"platform_fee" db:"platform_fee"`
	Currency         string       `json:"currency" db:"currency"`
	PayoutStatus     PayoutStatus `json:"payout_status" db:"payout_status"`
	CreatedAt        time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at" db:"updated_at"`
}

// PayoutAmount is what the provider receives.
func (t *Transaction) PayoutAmount() int64 {
	return t.Amount - t.PlatformFee
}
