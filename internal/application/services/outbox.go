package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zatekoja/servicemarket/internal/domain/entities"
	"github.com/zatekoja/servicemarket/internal/domain/repositories"
	apperrors "github.com/zatekoja/servicemarket/pkg/errors"
)

// Kicker wakes the side-effect dispatcher after a commit
type Kicker interface {
	Kick()
}

type noopKicker struct{}

func (noopKicker) Kick() {}

// enqueue stores a side effect in the caller's transaction. The key makes
// re-enqueueing the same effect a no-op.
func enqueue(ctx context.Context, tx repositories.Store, key string, kind entities.SideEffectKind, payload interface{}, now time.Time) error {
	effect, err := entities.NewSideEffect(uuid.New().String(), key, kind, payload, now)
	if err != nil {
		return apperrors.NewInternalError("failed to encode side effect", err)
	}
	if err := tx.SideEffects().Enqueue(ctx, effect); err != nil {
		return fmt.Errorf("failed to enqueue %s side effect: %w", kind, err)
	}
	return nil
}

// enqueueNotify queues a notification for userID keyed by key.
func enqueueNotify(ctx context.Context, tx repositories.Store, key, userID string, typ entities.NotificationType, bookingID string, data map[string]string, now time.Time) error {
	return enqueue(ctx, tx, key, entities.SideEffectNotify, entities.NotifyPayload{
		UserID:    userID,
		Type:      typ,
		BookingID: bookingID,
		Data:      data,
	}, now)
}

func sideEffectKey(parts ...string) string {
	return strings.Join(parts, ":")
}
