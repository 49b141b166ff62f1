package database

import (
	"context"
	"encoding/json"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/zatekoja/servicemarket/internal/domain/entities"
	apperrors "github.com/zatekoja/servicemarket/pkg/errors"
)

const claimDueQuery = `
	UPDATE side_effects SET next_attempt_at = $1, updated_at = $2
	WHERE id IN (
		SELECT id FROM side_effects
		WHERE status = 'pending' AND next_attempt_at <= $2
		ORDER BY next_attempt_at
		LIMIT $3
		FOR UPDATE SKIP LOCKED
	)
	RETURNING id, idempotency_key, kind, payload, status, attempts, next_attempt_at, last_error, created_at, updated_at
`

type sideEffectRow struct {
	ID             string                    `db:"id"`
	IdempotencyKey string                    `db:"idempotency_key"`
	Kind           entities.SideEffectKind   `db:"kind"`
	Payload        string                    `db:"payload"`
	Status         entities.SideEffectStatus `db:"status"`
	Attempts       int                       `db:"attempts"`
	NextAttemptAt  time.Time                 `db:"next_attempt_at"`
	LastError      *string                   `db:"last_error"`
	CreatedAt      time.Time                 `db:"created_at"`
	UpdatedAt      time.Time                 `db:"updated_at"`
}

func (r *sideEffectRow) toEntity() *entities.SideEffect {
	return &entities.SideEffect{
		ID:             r.ID,
		IdempotencyKey: r.IdempotencyKey,
		Kind:           r.Kind,
		Payload:        json.RawMessage(r.Payload),
		Status:         r.Status,
		Attempts:       r.Attempts,
		NextAttemptAt:  r.NextAttemptAt,
		LastError:      r.LastError,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

// SideEffectAdapter implements the SideEffectRepository interface
type SideEffectAdapter struct {
	s *Store
}

// Enqueue stores a side effect unless its idempotency key is already known
func (a *SideEffectAdapter) Enqueue(ctx context.Context, effect *entities.SideEffect) error {
	query, _, err := a.s.dialect.Insert("side_effects").Rows(goqu.Record{
		"id":              effect.ID,
		"idempotency_key": effect.IdempotencyKey,
		"kind":            effect.Kind,
		"payload":         string(effect.Payload),
		"status":          effect.Status,
		"attempts":        effect.Attempts,
		"next_attempt_at": effect.NextAttemptAt,
		"created_at":      effect.CreatedAt,
		"updated_at":      effect.UpdatedAt,
	}).OnConflict(goqu.DoNothing()).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.s.exec(ctx, "side_effects.enqueue", query); err != nil {
		return apperrors.NewInternalError("failed to enqueue side effect", err)
	}
	return nil
}

// ClaimDue leases due side effects with FOR UPDATE SKIP LOCKED
func (a *SideEffectAdapter) ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*entities.SideEffect, error) {
	var rows []sideEffectRow
	if err := a.s.selectAll(ctx, "side_effects.claim", &rows, claimDueQuery, now.Add(lease), now, limit); err != nil {
		return nil, apperrors.NewInternalError("failed to claim side effects", err)
	}
	effects := make([]*entities.SideEffect, 0, len(rows))
	for i := range rows {
		effects = append(effects, rows[i].toEntity())
	}
	return effects, nil
}

// MarkDone records a successful delivery
func (a *SideEffectAdapter) MarkDone(ctx context.Context, id string, now time.Time) error {
	return a.update(ctx, "side_effects.done", id, goqu.Record{
		"status":     entities.SideEffectDone,
		"last_error": nil,
		"updated_at": now,
	})
}

// Reschedule records a failed attempt
func (a *SideEffectAdapter) Reschedule(ctx context.Context, id string, attempts int, next time.Time, lastErr string) error {
	return a.update(ctx, "side_effects.reschedule", id, goqu.Record{
		"attempts":        attempts,
		"next_attempt_at": next,
		"last_error":      lastErr,
		"updated_at":      time.Now().UTC(),
	})
}

// MarkDead parks a side effect that exhausted its attempts
func (a *SideEffectAdapter) MarkDead(ctx context.Context, id string, attempts int, lastErr string, now time.Time) error {
	return a.update(ctx, "side_effects.dead", id, goqu.Record{
		"status":     entities.SideEffectDead,
		"attempts":   attempts,
		"last_error": lastErr,
		"updated_at": now,
	})
}

func (a *SideEffectAdapter) update(ctx context.Context, op, id string, record goqu.Record) error {
	query, _, err := a.s.dialect.Update("side_effects").Set(record).Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}
	if _, err := a.s.exec(ctx, op, query); err != nil {
		return apperrors.NewInternalError("failed to update side effect", err)
	}
	return nil
}
