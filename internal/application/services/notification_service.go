package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zatekoja/servicemarket/internal/domain/entities"
	"github.com/zatekoja/servicemarket/internal/domain/providers"
	apperrors "github.com/zatekoja/servicemarket/pkg/errors"
)

// notificationTemplate is the title and body of one notification type.
// Placeholders use the {{key}} form and are filled from the payload data.
type notificationTemplate struct {
	Title string
	Body  string
}

var notificationTemplates = map[entities.NotificationType]notificationTemplate{
	entities.NotificationBookingRequest: {
		Title: "New booking request",
		Body:  "You have a new request for {{service}} on {{scheduled_start}}.",
	},
	entities.NotificationBookingAccepted: {
		Title: "Booking accepted",
		Body:  "Your booking on {{scheduled_start}} was accepted.",
	},
	entities.NotificationBookingDeclined: {
		Title: "Booking declined",
		Body:  "Your booking on {{scheduled_start}} could not be taken.",
	},
	entities.NotificationBookingCancelled: {
		Title: "Booking cancelled",
		Body:  "The booking on {{scheduled_start}} was cancelled.",
	},
	entities.NotificationBookingStarted: {
		Title: "Job started",
		Body:  "Your provider has started the job scheduled for {{scheduled_start}}.",
	},
	entities.NotificationBookingCompleted: {
		Title: "Job completed",
		Body:  "The job scheduled for {{scheduled_start}} is complete. Leave a review once payment clears.",
	},
	entities.NotificationReviewReceived: {
		Title: "New review",
		Body:  "A customer rated you {{rating}}/5.",
	},
	entities.NotificationPaymentReceived: {
		Title: "Payment received",
		Body:  "A payment of {{amount}} {{currency}} was captured for your booking.",
	},
	entities.NotificationMessageReceived: {
		Title: "New message",
		Body:  "{{preview}}",
	},
}

// NotificationService renders notifications and publishes them to the
// recipient's event stream
type NotificationService struct {
	eventBus providers.EventBus
	now      func() time.Time
}

// NewNotificationService creates a new notification service
func NewNotificationService(eventBus providers.EventBus) *NotificationService {
	return &NotificationService{eventBus: eventBus, now: time.Now}
}

// HandleNotify is the notify side-effect handler.
func (n *NotificationService) HandleNotify(ctx context.Context, raw json.RawMessage) error {
	var p entities.NotifyPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return apperrors.NewValidationError("malformed notify payload")
	}
	return n.Notify(ctx, p)
}

// Notify renders a payload and publishes it on the user's channel.
func (n *NotificationService) Notify(ctx context.Context, p entities.NotifyPayload) error {
	if p.UserID == "" {
		return apperrors.NewValidationError("notification has no recipient")
	}
	tmpl, ok := notificationTemplates[p.Type]
	if !ok {
		return apperrors.NewValidationError(fmt.Sprintf("unknown notification type %q", p.Type))
	}

	notification := &entities.Notification{
		ID:        uuid.New().String(),
		UserID:    p.UserID,
		Type:      p.Type,
		Title:     renderTemplate(tmpl.Title, p.Data),
		Body:      renderTemplate(tmpl.Body, p.Data),
		BookingID: p.BookingID,
		Data:      p.Data,
		CreatedAt: n.now().UTC(),
	}
	if err := n.eventBus.Publish(ctx, providers.GetUserChannel(p.UserID), notification); err != nil {
		return apperrors.NewExternalError("failed to publish notification", err)
	}
	return nil
}

// renderTemplate replaces {{key}} placeholders with values from data.
// Unknown placeholders are left empty.
func renderTemplate(template string, data map[string]string) string {
	result := template
	for key, value := range data {
		result = strings.ReplaceAll(result, "{{"+key+"}}", value)
	}
	for {
		start := strings.Index(result, "{{")
		if start < 0 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end < 0 {
			break
		}
		result = result[:start] + result[start+end+2:]
	}
	return strings.TrimSpace(result)
}
