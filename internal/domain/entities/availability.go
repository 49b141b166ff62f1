package entities

import (
	"time"
)

// WindowKind tags an availability window
type WindowKind string

const (
	WindowOpen    WindowKind = "open"
	WindowBlocked WindowKind = "blocked"
)

// AvailabilityWindow is a provider time window. Blocked windows with a
// BookingID are reservations owned by the booking lifecycle.
type AvailabilityWindow struct {
	ID         string     `json:"id" db:"id"`
	ProviderID string     `json:"provider_id" db:"provider_id"`
	Kind       WindowKind `json:"kind" db:"kind"`
	StartsAt   time.Time  `json:"starts_at" db:"starts_at"`
	EndsAt     time.Time  `json:"ends_at" db:"ends_at"`
	BookingID  *string    `json:"booking_id,omitempty" db:"booking_id"`
	Note       string     `json:"note,omitempty" db:"note"`
	// RestoreOpen holds the open time this window carved away; it is reopened on removal.
	RestoreOpen []Interval `json:"-"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// Interval returns the window bounds.
func (w *AvailabilityWindow) Interval() Interval {
	return Interval{Start: w.StartsAt, End: w.EndsAt}
}

// IsReservation reports whether the window belongs to a booking.
func (w *AvailabilityWindow) IsReservation() bool {
	return w.BookingID != nil && *w.BookingID != ""
}
