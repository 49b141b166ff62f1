package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/zatekoja/servicemarket/internal/domain/providers"
	apperrors "github.com/zatekoja/servicemarket/pkg/errors"
)

type lruEntry struct {
	value     []byte
	expiresAt time.Time
}

// LRUAdapter is an in-process CacheProvider for single-instance runs without Redis.
// Entries carry their own deadline; the LRU's TTL only bounds how long evicted
// garbage lingers.
type LRUAdapter struct {
	mu    sync.Mutex
	cache *expirable.LRU[string, lruEntry]
	now   func() time.Time
}

// NewLRUAdapter creates an in-process cache holding at most size entries
func NewLRUAdapter(size int, maxTTL time.Duration) providers.CacheProvider {
	return &LRUAdapter{
		cache: expirable.NewLRU[string, lruEntry](size, nil, maxTTL),
		now:   time.Now,
	}
}

func (a *LRUAdapter) live(key string) (lruEntry, bool) {
	e, ok := a.cache.Get(key)
	if !ok {
		return lruEntry{}, false
	}
	if !e.expiresAt.IsZero() && !a.now().Before(e.expiresAt) {
		a.cache.Remove(key)
		return lruEntry{}, false
	}
	return e, true
}

func (a *LRUAdapter) entry(value []byte, expirationSeconds int) lruEntry {
	e := lruEntry{value: append([]byte(nil), value...)}
	if expirationSeconds > 0 {
		e.expiresAt = a.now().Add(time.Duration(expirationSeconds) * time.Second)
	}
	return e
}

// Get retrieves a value from cache
func (a *LRUAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	e, ok := a.live(key)
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("cache key %s", key))
	}
	return append([]byte(nil), e.value...), nil
}

// Set stores a value in cache with expiration
func (a *LRUAdapter) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cache.Add(key, a.entry(value, expirationSeconds))
	return nil
}

// SetNX stores a value only when the key is absent
func (a *LRUAdapter) SetNX(ctx context.Context, key string, value []byte, expirationSeconds int) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.live(key); ok {
		return false, nil
	}
	a.cache.Add(key, a.entry(value, expirationSeconds))
	return true, nil
}

// Delete removes a value from cache
func (a *LRUAdapter) Delete(ctx context.Context, key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cache.Remove(key)
	return nil
}

// Exists checks if a key exists in cache
func (a *LRUAdapter) Exists(ctx context.Context, key string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.live(key)
	return ok, nil
}
