package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/servicemarket/internal/adapters/memory"
	"github.com/zatekoja/servicemarket/internal/application/services"
	"github.com/zatekoja/servicemarket/internal/domain/entities"
	"github.com/zatekoja/servicemarket/pkg/config"
	apperrors "github.com/zatekoja/servicemarket/pkg/errors"
)

func newDispatcher(store *memory.Store) *services.SideEffectDispatcher {
	return services.NewSideEffectDispatcher(store.SideEffects(), config.SideEffectsConfig{
		PollInterval: time.Hour,
		BatchSize:    10,
		MaxAttempts:  3,
		InitialDelay: 0,
		MaxDelay:     0,
	}, time.Second, nil)
}

func enqueueEffect(t *testing.T, store *memory.Store, key string, kind entities.SideEffectKind) {
	t.Helper()
	effect, err := entities.NewSideEffect(uuid.New().String(), key, kind, map[string]string{"key": key}, time.Now().UTC().Add(-time.Second))
	require.NoError(t, err)
	require.NoError(t, store.SideEffects().Enqueue(context.Background(), effect))
}

func effectByKey(store *memory.Store, key string) *entities.SideEffect {
	for _, e := range store.Snapshot() {
		if e.IdempotencyKey == key {
			return e
		}
	}
	return nil
}

func TestSideEffectDispatcher_RetriesUntilDone(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	d := newDispatcher(store)

	calls := 0
	d.Register(entities.SideEffectNotify, func(ctx context.Context, payload json.RawMessage) error {
		calls++
		if calls < 3 {
			return apperrors.NewExternalError("event bus unavailable", errors.New("dial tcp: refused"))
		}
		return nil
	})
	enqueueEffect(t, store, "b-1:accept:notify:c-1", entities.SideEffectNotify)

	for i := 0; i < 3; i++ {
		n, err := d.DispatchDue(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	}

	effect := effectByKey(store, "b-1:accept:notify:c-1")
	require.NotNil(t, effect)
	assert.Equal(t, entities.SideEffectDone, effect.Status)
	assert.Equal(t, 3, calls)

	n, err := d.DispatchDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSideEffectDispatcher_ParksAfterMaxAttempts(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	d := newDispatcher(store)

	d.Register(entities.SideEffectCapturePayment, func(ctx context.Context, payload json.RawMessage) error {
		return apperrors.NewExternalError("gateway timeout", context.DeadlineExceeded)
	})
	enqueueEffect(t, store, "b-1:capture", entities.SideEffectCapturePayment)

	for i := 0; i < 3; i++ {
		_, err := d.DispatchDue(ctx)
		require.NoError(t, err)
	}

	effect := effectByKey(store, "b-1:capture")
	require.NotNil(t, effect)
	assert.Equal(t, entities.SideEffectDead, effect.Status)
	assert.Equal(t, 3, effect.Attempts)
	require.NotNil(t, effect.LastError)
	assert.Contains(t, *effect.LastError, "gateway timeout")
}

func TestSideEffectDispatcher_PermanentFailures(t *testing.T) {
	tests := []struct {
		name       string
		kind       entities.SideEffectKind
		handler    services.SideEffectHandler
		wantStatus entities.SideEffectStatus
	}{
		{
			name: "Validation error",
			kind: entities.SideEffectNotify,
			handler: func(ctx context.Context, payload json.RawMessage) error {
				return apperrors.NewValidationError("malformed notify payload")
			},
			wantStatus: entities.SideEffectDead,
		},
		{
			name: "Handler panics",
			kind: entities.SideEffectNotify,
			handler: func(ctx context.Context, payload json.RawMessage) error {
				panic("boom")
			},
			// Panics surface as internal errors, which are retried.
			wantStatus: entities.SideEffectPending,
		},
		{
			name:       "No handler registered",
			kind:       entities.SideEffectRefundPayment,
			wantStatus: entities.SideEffectDead,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewStore()
			d := newDispatcher(store)
			if tt.handler != nil {
				d.Register(tt.kind, tt.handler)
			}
			enqueueEffect(t, store, "key", tt.kind)

			_, err := d.DispatchDue(context.Background())
			require.NoError(t, err)

			effect := effectByKey(store, "key")
			require.NotNil(t, effect)
			assert.Equal(t, tt.wantStatus, effect.Status)
			assert.Equal(t, 1, effect.Attempts)
		})
	}
}

func TestSideEffectDispatcher_DuplicateKeyIgnored(t *testing.T) {
	store := memory.NewStore()
	enqueueEffect(t, store, "b-1:capture", entities.SideEffectCapturePayment)
	enqueueEffect(t, store, "b-1:capture", entities.SideEffectCapturePayment)
	assert.Len(t, store.Snapshot(), 1)
}
