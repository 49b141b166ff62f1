package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/zatekoja/servicemarket/internal/domain/entities"
	"github.com/zatekoja/servicemarket/internal/domain/providers"
	redisclient "github.com/zatekoja/servicemarket/internal/infrastructure/clients/redis"
	"github.com/zatekoja/servicemarket/internal/infrastructure/observability"
)

const subscriberBuffer = 64

// RedisEventBus carries user notifications over Redis pub/sub so that any API
// instance can reach a user streaming from another. One Redis subscription
// per channel is shared by every local subscriber of that channel.
type RedisEventBus struct {
	client        *redisclient.Client
	subscriptions map[string]*redis.PubSub
	subscribers   map[string]map[chan *entities.Notification]struct{}
	mu            sync.RWMutex
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewRedisEventBus creates a new Redis-based event bus
func NewRedisEventBus(client *redisclient.Client) providers.EventBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisEventBus{
		client:        client,
		subscriptions: make(map[string]*redis.PubSub),
		subscribers:   make(map[string]map[chan *entities.Notification]struct{}),
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Publish publishes a notification to all subscribers of the channel
func (b *RedisEventBus) Publish(ctx context.Context, channel string, n *entities.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	if err := b.client.Client().Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}

	observability.LoggerFromContext(ctx).Debug().
		Str("channel", channel).
		Str("notification_id", n.ID).
		Str("type", string(n.Type)).
		Msg("published notification")
	return nil
}

// Subscribe subscribes to notifications on a channel until ctx is done
func (b *RedisEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.Notification, error) {
	b.mu.Lock()

	if _, exists := b.subscriptions[channel]; !exists {
		pubsub := b.client.Client().Subscribe(b.ctx, channel)
		b.subscriptions[channel] = pubsub
		go b.receiveMessages(channel, pubsub)
	}

	if b.subscribers[channel] == nil {
		b.subscribers[channel] = make(map[chan *entities.Notification]struct{})
	}

	out := make(chan *entities.Notification, subscriberBuffer)
	b.subscribers[channel][out] = struct{}{}
	count := len(b.subscribers[channel])
	b.mu.Unlock()

	observability.GetLogger().Debug().Str("channel", channel).Int("subscribers", count).Msg("subscribed")

	go func() {
		<-ctx.Done()
		b.removeSubscriber(channel, out)
	}()

	return out, nil
}

// receiveMessages pumps one Redis subscription into the local subscribers
// of its channel until the bus closes or Redis drops the subscription.
func (b *RedisEventBus) receiveMessages(channel string, pubsub *redis.PubSub) {
	logger := observability.GetLogger().With().Str("channel", channel).Logger()
	defer func() {
		if err := b.cleanupChannel(channel); err != nil {
			logger.Warn().Err(err).Msg("failed to clean up channel")
		}
	}()

	messages := pubsub.Channel()
	for {
		select {
		case <-b.ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			n := new(entities.Notification)
			if err := json.Unmarshal([]byte(msg.Payload), n); err != nil {
				logger.Warn().Err(err).Msg("dropping malformed notification")
				continue
			}
			if dropped := b.fanOut(channel, n); dropped > 0 {
				logger.Warn().Str("notification_id", n.ID).Int("dropped", dropped).
					Msg("subscriber buffers full")
			}
		}
	}
}

// fanOut offers n to every subscriber without blocking and returns how many
// slow subscribers missed it
func (b *RedisEventBus) fanOut(channel string, n *entities.Notification) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	dropped := 0
	for subscriber := range b.subscribers[channel] {
		select {
		case subscriber <- n:
		default:
			dropped++
		}
	}
	return dropped
}

func (b *RedisEventBus) removeSubscriber(channel string, out chan *entities.Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subscribers, exists := b.subscribers[channel]
	if !exists {
		return
	}
	if _, ok := subscribers[out]; !ok {
		return
	}

	delete(subscribers, out)
	close(out)

	if len(subscribers) == 0 {
		delete(b.subscribers, channel)
		if pubsub, ok := b.subscriptions[channel]; ok {
			_ = pubsub.Close()
			delete(b.subscriptions, channel)
		}
	}
}

func (b *RedisEventBus) cleanupChannel(channel string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subscribers, exists := b.subscribers[channel]; exists {
		for subscriber := range subscribers {
			close(subscriber)
		}
		delete(b.subscribers, channel)
	}

	if pubsub, ok := b.subscriptions[channel]; ok {
		delete(b.subscriptions, channel)
		if err := pubsub.Close(); err != nil {
			return fmt.Errorf("failed to close subscription %s: %w", channel, err)
		}
	}
	return nil
}

// Unsubscribe drops every local subscriber of a channel
func (b *RedisEventBus) Unsubscribe(ctx context.Context, channel string) error {
	return b.cleanupChannel(channel)
}

// Close ends every local stream; Redis itself stays open for its owner
func (b *RedisEventBus) Close() error {
	b.cancel()

	b.mu.RLock()
	channels := make([]string, 0, len(b.subscriptions))
	for channel := range b.subscriptions {
		channels = append(channels, channel)
	}
	b.mu.RUnlock()

	var errs []error
	for _, channel := range channels {
		if err := b.cleanupChannel(channel); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing event bus: %v", errs)
	}
	return nil
}
