package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/servicemarket/internal/domain/entities"
	"github.com/zatekoja/servicemarket/internal/domain/repositories"
	"github.com/zatekoja/servicemarket/internal/infrastructure/observability"
	"github.com/zatekoja/servicemarket/pkg/config"
	apperrors "github.com/zatekoja/servicemarket/pkg/errors"
	"github.com/zatekoja/servicemarket/pkg/retry"
)

// SideEffectHandler delivers one side effect. Returning an error schedules a retry.
type SideEffectHandler func(ctx context.Context, payload json.RawMessage) error

// SideEffectDispatcher drains the side-effect outbox: at-least-once delivery
// with exponential backoff, parking rows that exhaust their attempts.
type SideEffectDispatcher struct {
	repo        repositories.SideEffectRepository
	handlers    map[entities.SideEffectKind]SideEffectHandler
	cfg         config.SideEffectsConfig
	backoff     retry.Config
	callTimeout time.Duration
	metrics     *observability.Metrics
	now         func() time.Time

	kick   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSideEffectDispatcher creates a dispatcher. Handlers are added with Register.
func NewSideEffectDispatcher(repo repositories.SideEffectRepository, cfg config.SideEffectsConfig, callTimeout time.Duration, metrics *observability.Metrics) *SideEffectDispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	if callTimeout <= 0 {
		callTimeout = 10 * time.Second
	}
	return &SideEffectDispatcher{
		repo:     repo,
		handlers: make(map[entities.SideEffectKind]SideEffectHandler),
		cfg:      cfg,
		backoff: retry.Config{
			MaxAttempts:   cfg.MaxAttempts,
			InitialDelay:  cfg.InitialDelay,
			MaxDelay:      cfg.MaxDelay,
			BackoffFactor: 2.0,
		},
		callTimeout: callTimeout,
		metrics:     metrics,
		now:         time.Now,
		kick:        make(chan struct{}, 1),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Register sets the handler for a side-effect kind
func (d *SideEffectDispatcher) Register(kind entities.SideEffectKind, handler SideEffectHandler) {
	d.handlers[kind] = handler
}

// Kick asks the dispatcher to poll now instead of waiting for the next tick.
func (d *SideEffectDispatcher) Kick() {
	select {
	case d.kick <- struct{}{}:
	default:
	}
}

// Start begins draining the outbox
func (d *SideEffectDispatcher) Start() {
	d.wg.Add(1)
	go d.run()
	log.Info().Dur("poll_interval", d.cfg.PollInterval).Msg("side effect dispatcher started")
}

// Stop stops the dispatcher and waits for in-flight deliveries
func (d *SideEffectDispatcher) Stop() {
	d.cancel()
	d.wg.Wait()
	log.Info().Msg("side effect dispatcher stopped")
}

func (d *SideEffectDispatcher) run() {
	defer d.wg.Done()
	interval := d.cfg.PollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
		case <-d.kick:
		}
		for {
			n, err := d.DispatchDue(d.ctx)
			if err != nil {
				log.Error().Err(err).Msg("failed to claim side effects")
				break
			}
			if n < d.batchSize() {
				break
			}
		}
	}
}

func (d *SideEffectDispatcher) batchSize() int {
	if d.cfg.BatchSize < 1 {
		return 50
	}
	return d.cfg.BatchSize
}

// DispatchDue claims one batch of due side effects, delivers them and
// returns how many it claimed.
func (d *SideEffectDispatcher) DispatchDue(ctx context.Context) (int, error) {
	// The lease outlives a handler call so a slow delivery is not claimed twice.
	lease := 2 * d.callTimeout
	effects, err := d.repo.ClaimDue(ctx, d.now().UTC(), lease, d.batchSize())
	if err != nil {
		return 0, err
	}
	for _, effect := range effects {
		if ctx.Err() != nil {
			break
		}
		d.deliver(ctx, effect)
	}
	return len(effects), nil
}

func (d *SideEffectDispatcher) deliver(ctx context.Context, effect *entities.SideEffect) {
	logger := observability.LoggerFromContext(ctx).With().
		Str("side_effect_id", effect.ID).
		Str("kind", string(effect.Kind)).
		Str("idempotency_key", effect.IdempotencyKey).
		Logger()

	attempts := effect.Attempts + 1
	err := d.call(ctx, effect)
	now := d.now().UTC()

	if err == nil {
		observability.RecordSideEffect(ctx, d.metrics, string(effect.Kind), "done")
		if err := d.repo.MarkDone(ctx, effect.ID, now); err != nil {
			logger.Error().Err(err).Msg("failed to mark side effect done")
		}
		return
	}

	if !retryable(err) || attempts >= d.cfg.MaxAttempts {
		observability.RecordSideEffect(ctx, d.metrics, string(effect.Kind), "dead")
		logger.Error().Err(err).Int("attempts", attempts).Msg("side effect parked as dead")
		if err := d.repo.MarkDead(ctx, effect.ID, attempts, err.Error(), now); err != nil {
			logger.Error().Err(err).Msg("failed to park side effect")
		}
		return
	}

	delay := retry.Delay(d.backoff, attempts)
	observability.RecordSideEffect(ctx, d.metrics, string(effect.Kind), "retry")
	logger.Warn().Err(err).Int("attempts", attempts).Dur("retry_in", delay).Msg("side effect failed")
	if err := d.repo.Reschedule(ctx, effect.ID, attempts, now.Add(delay), err.Error()); err != nil {
		logger.Error().Err(err).Msg("failed to reschedule side effect")
	}
}

func (d *SideEffectDispatcher) call(ctx context.Context, effect *entities.SideEffect) (err error) {
	handler, ok := d.handlers[effect.Kind]
	if !ok {
		return apperrors.NewValidationError(fmt.Sprintf("no handler for side effect kind %q", effect.Kind))
	}

	callCtx, cancel := context.WithTimeout(ctx, d.callTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = apperrors.NewInternalError(fmt.Sprintf("side effect handler panicked: %v", r), nil)
		}
	}()
	return handler(callCtx, effect.Payload)
}

// retryable reports whether a failed delivery may succeed later. Input and
// state errors will fail the same way on every attempt.
func retryable(err error) bool {
	switch apperrors.TypeOf(err) {
	case apperrors.ErrorTypeValidation, apperrors.ErrorTypeNotFound, apperrors.ErrorTypeInvalidTransition:
		return false
	default:
		return true
	}
}
