package entities

import (
	"time"
)

// BookingStatus is the lifecycle state of a booking
type BookingStatus string

const (
	BookingRequested  BookingStatus = "requested"
	BookingAccepted   BookingStatus = "accepted"
	BookingInProgress BookingStatus = "in_progress"
	BookingCompleted  BookingStatus = "completed"
	BookingCancelled  BookingStatus = "cancelled"
)

// BookingEvent drives a booking transition
type BookingEvent string

const (
	EventAccept   BookingEvent = "accept"
	EventDecline  BookingEvent = "decline"
	EventExpire   BookingEvent = "expire"
	EventCancel   BookingEvent = "cancel"
	EventStart    BookingEvent = "start"
	EventComplete BookingEvent = "complete"
)

var bookingTransitions = map[BookingStatus]map[BookingEvent]BookingStatus{
	BookingRequested: {
		EventAccept:  BookingAccepted,
		EventDecline: BookingCancelled,
		EventExpire:  BookingCancelled,
		EventCancel:  BookingCancelled,
	},
	BookingAccepted: {
		EventCancel: BookingCancelled,
		EventStart:  BookingInProgress,
	},
	BookingInProgress: {
		EventComplete: BookingCompleted,
	},
}

var eventTargets = map[BookingEvent]BookingStatus{
	EventAccept:   BookingAccepted,
	EventDecline:  BookingCancelled,
	EventExpire:   BookingCancelled,
	EventCancel:   BookingCancelled,
	EventStart:    BookingInProgress,
	EventComplete: BookingCompleted,
}

// Next returns the status reached by applying ev to s.
func (s BookingStatus) Next(ev BookingEvent) (BookingStatus, bool) {
	next, ok := bookingTransitions[s][ev]
	return next, ok
}

// IsActive reports whether the booking holds the provider's time.
func (s BookingStatus) IsActive() bool {
	return s == BookingAccepted || s == BookingInProgress
}

// IsTerminal reports whether no further transition exists.
func (s BookingStatus) IsTerminal() bool {
	return len(bookingTransitions[s]) == 0
}

// Target returns the status an event leads to, regardless of origin.
func (ev BookingEvent) Target() (BookingStatus, bool) {
	st, ok := eventTargets[ev]
	return st, ok
}

// Valid reports whether ev is a known event.
func (ev BookingEvent) Valid() bool {
	_, ok := eventTargets[ev]
	return ok
}

// Booking is a scheduled engagement between a customer and a provider.
// Money fields are in minor currency units.
type Booking struct {
	ID              string        `json:"id" db:"id"`
	CustomerID      string        `json:"customer_id" db:"customer_id"`
	ProviderID      string        `json:"provider_id" db:"provider_id"`
	ServiceID       string        `json:"service_id" db:"service_id"`
	Status          BookingStatus `json:"status" db:"status"`
	ScheduledStart  time.Time     `json:"scheduled_start" db:"scheduled_start"`
	ScheduledEnd    *time.Time    `json:"scheduled_end,omitempty" db:"scheduled_end"`
	Address         string        `json:"address,omitempty" db:"address"`
	Notes           string        `json:"notes,omitempty" db:"notes"`
	PhotoURL        string        `json:"photo_url,omitempty" db:"photo_url"`
	Amount          int64         `json:"amount" db:"amount"`
	Fee             int64         `json:"fee" db:"fee"`
	Currency        string        `json:"currency" db:"currency"`
	CancellationFee int64         `json:"cancellation_fee" db:"cancellation_fee"`
	PaymentStatus   PaymentStatus `json:"payment_status" db:"payment_status"`
	Version         int           `json:"version" db:"version"`
	CreatedAt       time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at" db:"updated_at"`
}

// Slot returns the time the booking occupies. Open-ended bookings occupy defaultDuration.
func (b *Booking) Slot(defaultDuration time.Duration) Interval {
	end := b.ScheduledStart.Add(defaultDuration)
	if b.ScheduledEnd != nil {
		end = *b.ScheduledEnd
	}
	return Interval{Start: b.ScheduledStart.UTC(), End: end.UTC()}
}

// IsParty reports whether userID is the booking's customer or provider.
func (b *Booking) IsParty(userID string) bool {
	return userID == b.CustomerID || userID == b.ProviderID
}

// Counterparty returns the other party of the booking.
func (b *Booking) Counterparty(userID string) string {
	if userID == b.CustomerID {
		return b.ProviderID
	}
	return b.CustomerID
}

// BookingEventRecord is the audit entry of an applied event. (BookingID, Event)
// is unique and doubles as the idempotency key of the transition.
type BookingEventRecord struct {
	ID         string        `json:"id" db:"id"`
	BookingID  string        `json:"booking_id" db:"booking_id"`
	Event      BookingEvent  `json:"event" db:"event"`
	FromStatus BookingStatus `json:"from_status" db:"from_status"`
	ToStatus   BookingStatus `json:"to_status" db:"to_status"`
	ActorID    string        `json:"actor_id" db:"actor_id"`
	CreatedAt  time.Time     `json:"created_at" db:"created_at"`
}
