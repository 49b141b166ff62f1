package repositories

import (
	"context"
	"time"

	"github.com/zatekoja/servicemarket/internal/domain/entities"
)

// SideEffectRepository defines the interface for the side-effect outbox
type SideEffectRepository interface {
	// Enqueue stores a pending side effect. A row with the same idempotency
	// key is left untouched and no error is returned.
	Enqueue(ctx context.Context, effect *entities.SideEffect) error

	// ClaimDue leases up to limit pending side effects due at now by pushing
	// their next attempt to now+lease, so concurrent dispatchers skip them.
	ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*entities.SideEffect, error)

	// MarkDone records a successful delivery
	MarkDone(ctx context.Context, id string, now time.Time) error

	// Reschedule records a failed attempt and the time of the next one
	Reschedule(ctx context.Context, id string, attempts int, next time.Time, lastErr string) error

	// MarkDead parks a side effect that exhausted its attempts
	MarkDead(ctx context.Context, id string, attempts int, lastErr string, now time.Time) error
}
