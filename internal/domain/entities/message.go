package entities

import (
	"time"
)

// Message is a directional note between the two parties of a booking
type Message struct {
	ID          string    `json:"id" db:"id"`
	BookingID   string    `json:"booking_id" db:"booking_id"`
	FromUserID  string    `json:"from_user_id" db:"from_user_id"`
	ToUserID    string    `json:"to_user_id" db:"to_user_id"`
	Text        string    `json:"text" db:"text"`
	Attachments []string  `json:"attachments,omitempty"`
	Read        bool      `json:"read" db:"read"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
