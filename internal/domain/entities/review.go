package entities

import (
	"time"
)

// Review is a customer's rating of a completed booking
type Review struct {
	ID            string     `json:"id" db:"id"`
	BookingID     string     `json:"booking_id" db:"booking_id"`
	CustomerID    string     `json:"customer_id" db:"customer_id"`
	ProviderID    string     `json:"provider_id" db:"provider_id"`
	Rating        int        `json:"rating" db:"rating"`
	Text          string     `json:"text,omitempty" db:"text"`
	Moderated     bool       `json:"moderated" db:"moderated"`
	ProviderReply *string    `json:"provider_reply,omitempty" db:"provider_reply"`
	RepliedAt     *time.Time `json:"replied_at,omitempty" db:"replied_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}
