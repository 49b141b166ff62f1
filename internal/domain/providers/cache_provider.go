package providers

import (
	"context"
)

// CacheProvider is a byte-valued key store with per-key expiry. It backs the
// provider profile cache and the Idempotency-Key store. Get on a missing key
// returns a NOT_FOUND error; backend failures are EXTERNAL errors.
type CacheProvider interface {
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value for expirationSeconds; zero means no expiry
	Set(ctx context.Context, key string, value []byte, expirationSeconds int) error

	// SetNX stores value only if key is absent and reports whether it did.
	// Concurrent callers for the same key see exactly one true.
	SetNX(ctx context.Context, key string, value []byte, expirationSeconds int) (bool, error)

	Delete(ctx context.Context, key string) error

	Exists(ctx context.Context, key string) (bool, error)
}
