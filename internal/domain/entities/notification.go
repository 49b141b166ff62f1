package entities

import "time"

// NotificationType represents the notification purpose
type NotificationType string

const (
	NotificationBookingRequest   NotificationType = "booking_request"
	NotificationBookingAccepted  NotificationType = "booking_accepted"
	NotificationBookingDeclined  NotificationType = "booking_declined"
	NotificationBookingCancelled NotificationType = "booking_cancelled"
	NotificationBookingStarted   NotificationType = "booking_started"
	NotificationBookingCompleted NotificationType = "booking_completed"
	NotificationReviewReceived   NotificationType = "review_received"
	NotificationPaymentReceived  NotificationType = "payment_received"
	NotificationMessageReceived  NotificationType = "message_received"
)

// Notification is the payload delivered to a user's event stream
type Notification struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	Type      NotificationType  `json:"type"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	BookingID string            `json:"booking_id,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// NotificationForEvent maps a booking transition to the notification sent to the counterparty.
func NotificationForEvent(ev BookingEvent) NotificationType {
	switch ev {
	case EventAccept:
		return NotificationBookingAccepted
	case EventDecline, EventExpire:
		return NotificationBookingDeclined
	case EventCancel:
		return NotificationBookingCancelled
	case EventStart:
		return NotificationBookingStarted
	case EventComplete:
		return NotificationBookingCompleted
	default:
		return ""
	}
}
