package events

import (
	"context"
	"sync"

	"github.com/zatekoja/servicemarket/internal/domain/entities"
	"github.com/zatekoja/servicemarket/internal/domain/providers"
	"github.com/zatekoja/servicemarket/internal/infrastructure/observability"
)

// LocalEventBus fans notifications out inside one process. It backs the
// memory driver and tests; multi-instance deployments use RedisEventBus.
type LocalEventBus struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan *entities.Notification]struct{}
	closed      bool
}

// NewLocalEventBus creates an in-process event bus
func NewLocalEventBus() providers.EventBus {
	return &LocalEventBus{subscribers: make(map[string]map[chan *entities.Notification]struct{})}
}

// Publish delivers n to every current subscriber of channel without blocking
func (b *LocalEventBus) Publish(ctx context.Context, channel string, n *entities.Notification) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for subscriber := range b.subscribers[channel] {
		select {
		case subscriber <- n:
		default:
			observability.LoggerFromContext(ctx).Warn().Str("channel", channel).Str("notification_id", n.ID).Msg("subscriber buffer full, dropping notification")
		}
	}
	return nil
}

// Subscribe subscribes to notifications on a channel until ctx is done
func (b *LocalEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.Notification, error) {
	out := make(chan *entities.Notification, subscriberBuffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(out)
		return out, nil
	}
	if b.subscribers[channel] == nil {
		b.subscribers[channel] = make(map[chan *entities.Notification]struct{})
	}
	b.subscribers[channel][out] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.remove(channel, out)
	}()
	return out, nil
}

func (b *LocalEventBus) remove(channel string, out chan *entities.Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subscribers[channel][out]; !ok {
		return
	}
	delete(b.subscribers[channel], out)
	close(out)
	if len(b.subscribers[channel]) == 0 {
		delete(b.subscribers, channel)
	}
}

// Unsubscribe drops every subscriber of a channel
func (b *LocalEventBus) Unsubscribe(ctx context.Context, channel string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for subscriber := range b.subscribers[channel] {
		close(subscriber)
	}
	delete(b.subscribers, channel)
	return nil
}

// Close closes every subscription
func (b *LocalEventBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for channel, subscribers := range b.subscribers {
		for subscriber := range subscribers {
			close(subscriber)
		}
		delete(b.subscribers, channel)
	}
	b.closed = true
	return nil
}
