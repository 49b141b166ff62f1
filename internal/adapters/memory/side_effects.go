package memory

import (
	"context"
	"sort"
	"time"

	"github.com/zatekoja/servicemarket/internal/domain/entities"
)

func copySideEffect(e entities.SideEffect) *entities.SideEffect {
	e.Payload = append([]byte(nil), e.Payload...)
	if e.LastError != nil {
		msg := *e.LastError
		e.LastError = &msg
	}
	return &e
}

type sideEffects struct{ s *Store }

func (r sideEffects) Enqueue(ctx context.Context, effect *entities.SideEffect) error {
	return r.s.write(func(st *state) error {
		if _, ok := st.sideEffectKeys[effect.IdempotencyKey]; ok {
			return nil
		}
		st.sideEffects[effect.ID] = *copySideEffect(*effect)
		st.sideEffectKeys[effect.IdempotencyKey] = effect.ID
		return nil
	})
}

func (r sideEffects) ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*entities.SideEffect, error) {
	var claimed []*entities.SideEffect
	err := r.s.write(func(st *state) error {
		var due []entities.SideEffect
		for _, e := range st.sideEffects {
			if e.Status == entities.SideEffectPending && !e.NextAttemptAt.After(now) {
				due = append(due, e)
			}
		}
		sort.Slice(due, func(i, j int) bool { return due[i].NextAttemptAt.Before(due[j].NextAttemptAt) })
		if limit > 0 && len(due) > limit {
			due = due[:limit]
		}
		for _, e := range due {
			e.NextAttemptAt = now.Add(lease)
			e.UpdatedAt = now
			st.sideEffects[e.ID] = e
			claimed = append(claimed, copySideEffect(e))
		}
		return nil
	})
	return claimed, err
}

func (r sideEffects) MarkDone(ctx context.Context, id string, now time.Time) error {
	return r.update(id, func(e *entities.SideEffect) {
		e.Status = entities.SideEffectDone
		e.LastError = nil
		e.UpdatedAt = now
	})
}

func (r sideEffects) Reschedule(ctx context.Context, id string, attempts int, next time.Time, lastErr string) error {
	return r.update(id, func(e *entities.SideEffect) {
		e.Attempts = attempts
		e.NextAttemptAt = next
		e.LastError = &lastErr
		e.UpdatedAt = time.Now().UTC()
	})
}

func (r sideEffects) MarkDead(ctx context.Context, id string, attempts int, lastErr string, now time.Time) error {
	return r.update(id, func(e *entities.SideEffect) {
		e.Status = entities.SideEffectDead
		e.Attempts = attempts
		e.LastError = &lastErr
		e.UpdatedAt = now
	})
}

func (r sideEffects) update(id string, fn func(e *entities.SideEffect)) error {
	return r.s.write(func(st *state) error {
		e, ok := st.sideEffects[id]
		if !ok {
			return notFound("side effect", id)
		}
		fn(&e)
		st.sideEffects[id] = e
		return nil
	})
}

// Snapshot returns every stored side effect. Tests use it to inspect the outbox.
func (s *Store) Snapshot() []*entities.SideEffect {
	var out []*entities.SideEffect
	_ = s.read(func(st *state) error {
		for _, e := range st.sideEffects {
			out = append(out, copySideEffect(e))
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
