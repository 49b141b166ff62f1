package providers

import (
	"context"

	"github.com/zatekoja/servicemarket/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to user notifications
type EventBus interface {
	// Publish publishes a notification to all subscribers of the channel
	Publish(ctx context.Context, channel string, n *entities.Notification) error

	// Subscribe subscribes to notifications on a channel
	Subscribe(ctx context.Context, channel string) (<-chan *entities.Notification, error)

	// Unsubscribe unsubscribes from a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

// EventChannelUserPrefix is the prefix for per-user notification channels
const EventChannelUserPrefix = "user:"

// GetUserChannel returns the channel name for a specific user
func GetUserChannel(userID string) string {
	return EventChannelUserPrefix + userID
}
