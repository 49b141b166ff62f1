package events

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zatekoja/servicemarket/internal/domain/entities"
)

func TestRedisEventBus_FanOutSkipsFullSubscribers(t *testing.T) {
	fast := make(chan *entities.Notification, 1)
	slow := make(chan *entities.Notification) // unbuffered and never read
	bus := &RedisEventBus{
		subscribers: map[string]map[chan *entities.Notification]struct{}{
			"user:prov-1": {fast: {}, slow: {}},
		},
	}

	dropped := bus.fanOut("user:prov-1", &entities.Notification{ID: "n-1"})
	assert.Equal(t, 1, dropped)
	assert.Equal(t, "n-1", (<-fast).ID)

	assert.Zero(t, bus.fanOut("user:nobody", &entities.Notification{ID: "n-2"}))
}
