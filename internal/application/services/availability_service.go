package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/zatekoja/servicemarket/internal/domain/entities"
	"github.com/zatekoja/servicemarket/internal/domain/repositories"
	apperrors "github.com/zatekoja/servicemarket/pkg/errors"
)

// AvailabilityService maintains each provider's window set. Blocked windows
// never overlap each other and open windows never overlap anything; every
// write runs under the provider lock.
type AvailabilityService struct {
	store           repositories.Store
	defaultDuration time.Duration
	now             func() time.Time
}

// NewAvailabilityService creates a new availability service
func NewAvailabilityService(store repositories.Store, defaultDuration time.Duration) *AvailabilityService {
	return &AvailabilityService{
		store:           store,
		defaultDuration: defaultDuration,
		now:             time.Now,
	}
}

// QueryFree reports whether no blocked window and no active booking of the
// provider overlaps span.
func (s *AvailabilityService) QueryFree(ctx context.Context, providerID string, span entities.Interval) (bool, error) {
	if _, err := entities.NewInterval(span.Start, span.End); err != nil {
		return false, err
	}
	return s.queryFree(ctx, s.store, providerID, span)
}

func (s *AvailabilityService) queryFree(ctx context.Context, st repositories.Store, providerID string, span entities.Interval) (bool, error) {
	windows, err := st.Availability().ListWindows(ctx, providerID, span)
	if err != nil {
		return false, err
	}
	for _, w := range windows {
		if w.Kind == entities.WindowBlocked && w.Interval().Overlaps(span) {
			return false, nil
		}
	}

	bookings, err := st.Bookings().ListActiveOverlapping(ctx, providerID, span)
	if err != nil {
		return false, err
	}
	for _, b := range bookings {
		if b.Slot(s.defaultDuration).Overlaps(span) {
			return false, nil
		}
	}
	return true, nil
}

// Reserve blocks span for a booking inside tx. A booking that already holds
// a reservation gets it back unchanged.
func (s *AvailabilityService) Reserve(ctx context.Context, tx repositories.Store, providerID, bookingID string, span entities.Interval) (*entities.AvailabilityWindow, error) {
	var reserved *entities.AvailabilityWindow
	err := tx.WithinTx(ctx, func(ctx context.Context, tx repositories.Store) error {
		if err := tx.Availability().LockProvider(ctx, providerID); err != nil {
			return err
		}

		existing, err := tx.Availability().GetReservation(ctx, providerID, bookingID)
		if err == nil {
			reserved = existing
			return nil
		}
		if !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return err
		}

		free, err := s.queryFree(ctx, tx, providerID, span)
		if err != nil {
			return err
		}
		if !free {
			return apperrors.NewConflictError("provider is not available for the requested time")
		}

		id := bookingID
		reserved, err = s.insertBlocked(ctx, tx, &entities.AvailabilityWindow{
			ProviderID: providerID,
			StartsAt:   span.Start,
			EndsAt:     span.End,
			BookingID:  &id,
			Note:       "booking " + bookingID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return reserved, nil
}

// Release removes the booking's reservation inside tx and reopens the time
// it carved. A booking without a reservation is a no-op.
func (s *AvailabilityService) Release(ctx context.Context, tx repositories.Store, providerID, bookingID string) error {
	return tx.WithinTx(ctx, func(ctx context.Context, tx repositories.Store) error {
		if err := tx.Availability().LockProvider(ctx, providerID); err != nil {
			return err
		}
		w, err := tx.Availability().GetReservation(ctx, providerID, bookingID)
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return s.removeBlocked(ctx, tx, w)
	})
}

// ListWindows returns the provider's windows overlapping span.
func (s *AvailabilityService) ListWindows(ctx context.Context, providerID string, span entities.Interval) ([]*entities.AvailabilityWindow, error) {
	if _, err := entities.NewInterval(span.Start, span.End); err != nil {
		return nil, err
	}
	windows, err := s.store.Availability().ListWindows(ctx, providerID, span)
	if err != nil {
		return nil, err
	}
	out := make([]*entities.AvailabilityWindow, 0, len(windows))
	for _, w := range windows {
		if w.Interval().Overlaps(span) {
			out = append(out, w)
		}
	}
	return out, nil
}

// AddWindow adds an open or a manual blocked window. Open time must not
// overlap any window and is coalesced with adjacent open windows. Blocked
// time must not overlap another blocked window and carves open windows.
func (s *AvailabilityService) AddWindow(ctx context.Context, id entities.Identity, providerID string, span entities.Interval, kind entities.WindowKind, note string) (*entities.AvailabilityWindow, error) {
	if err := Authorize(id, ActionManageAvailability, &Subject{ProviderID: providerID}); err != nil {
		return nil, err
	}
	span, err := entities.NewInterval(span.Start, span.End)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.Accounts().GetProvider(ctx, providerID); err != nil {
		return nil, err
	}

	var created *entities.AvailabilityWindow
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.Store) error {
		if err := tx.Availability().LockProvider(ctx, providerID); err != nil {
			return err
		}
		var err error
		switch kind {
		case entities.WindowOpen:
			created, err = s.insertOpen(ctx, tx, providerID, span, note)
		case entities.WindowBlocked:
			created, err = s.insertBlocked(ctx, tx, &entities.AvailabilityWindow{
				ProviderID: providerID,
				StartsAt:   span.Start,
				EndsAt:     span.End,
				Note:       note,
			})
		default:
			err = apperrors.NewValidationError(fmt.Sprintf("unknown window kind %q", kind))
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// RemoveWindow deletes a window. Removing a manual block reopens the open
// time it carved; reservations belong to their booking and are refused.
func (s *AvailabilityService) RemoveWindow(ctx context.Context, id entities.Identity, windowID string) error {
	w, err := s.store.Availability().GetWindow(ctx, windowID)
	if err != nil {
		return err
	}
	if err := Authorize(id, ActionManageAvailability, &Subject{ProviderID: w.ProviderID}); err != nil {
		return err
	}
	if w.IsReservation() {
		return apperrors.NewConflictError("window is held by a booking; cancel the booking instead")
	}

	return s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.Store) error {
		if err := tx.Availability().LockProvider(ctx, w.ProviderID); err != nil {
			return err
		}
		// Re-read under the lock.
		w, err := tx.Availability().GetWindow(ctx, windowID)
		if err != nil {
			return err
		}
		if w.Kind == entities.WindowBlocked {
			return s.removeBlocked(ctx, tx, w)
		}
		return tx.Availability().DeleteWindow(ctx, w.ID)
	})
}

// insertOpen stores span as open time merged with touching open windows.
func (s *AvailabilityService) insertOpen(ctx context.Context, tx repositories.Store, providerID string, span entities.Interval, note string) (*entities.AvailabilityWindow, error) {
	windows, err := tx.Availability().ListWindows(ctx, providerID, span)
	if err != nil {
		return nil, err
	}
	for _, w := range windows {
		if w.Interval().Overlaps(span) {
			return nil, apperrors.NewConflictError("open window overlaps an existing window")
		}
	}

	merged, err := s.reopen(ctx, tx, providerID, []entities.Interval{span}, note)
	if err != nil {
		return nil, err
	}
	for _, w := range merged {
		if w.Interval().Contains(span) {
			return w, nil
		}
	}
	return nil, apperrors.NewInternalError("open window was not stored", nil)
}

// insertBlocked stores a blocked window, carving any open windows under it.
func (s *AvailabilityService) insertBlocked(ctx context.Context, tx repositories.Store, w *entities.AvailabilityWindow) (*entities.AvailabilityWindow, error) {
	span := w.Interval()
	windows, err := tx.Availability().ListWindows(ctx, w.ProviderID, span)
	if err != nil {
		return nil, err
	}

	var carved []*entities.AvailabilityWindow
	for _, existing := range windows {
		if !existing.Interval().Overlaps(span) {
			continue
		}
		if existing.Kind == entities.WindowBlocked {
			return nil, apperrors.NewConflictError("time is already blocked")
		}
		carved = append(carved, existing)
	}

	now := s.now().UTC()
	for _, open := range carved {
		if err := tx.Availability().DeleteWindow(ctx, open.ID); err != nil {
			return nil, err
		}
		covered, _ := open.Interval().Intersect(span)
		w.RestoreOpen = append(w.RestoreOpen, covered)
		for _, rest := range open.Interval().Subtract(span) {
			if err := tx.Availability().InsertWindow(ctx, &entities.AvailabilityWindow{
				ID:         uuid.New().String(),
				ProviderID: open.ProviderID,
				Kind:       entities.WindowOpen,
				StartsAt:   rest.Start,
				EndsAt:     rest.End,
				Note:       open.Note,
				CreatedAt:  now,
			}); err != nil {
				return nil, err
			}
		}
	}

	w.ID = uuid.New().String()
	w.Kind = entities.WindowBlocked
	w.RestoreOpen = entities.MergeIntervals(w.RestoreOpen)
	w.CreatedAt = now
	if err := tx.Availability().InsertWindow(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

// removeBlocked deletes a blocked window and reopens the time it carved.
func (s *AvailabilityService) removeBlocked(ctx context.Context, tx repositories.Store, w *entities.AvailabilityWindow) error {
	if err := tx.Availability().DeleteWindow(ctx, w.ID); err != nil {
		return err
	}
	if len(w.RestoreOpen) == 0 {
		return nil
	}
	_, err := s.reopen(ctx, tx, w.ProviderID, w.RestoreOpen, "")
	return err
}

// reopen writes spans as open time, coalescing them with every open window
// they touch, and returns the resulting open windows.
func (s *AvailabilityService) reopen(ctx context.Context, tx repositories.Store, providerID string, spans []entities.Interval, note string) ([]*entities.AvailabilityWindow, error) {
	pieces := append([]entities.Interval(nil), spans...)
	seen := make(map[string]bool)
	for _, span := range spans {
		windows, err := tx.Availability().ListWindows(ctx, providerID, span)
		if err != nil {
			return nil, err
		}
		for _, w := range windows {
			if w.Kind != entities.WindowOpen || seen[w.ID] {
				continue
			}
			seen[w.ID] = true
			if note == "" {
				note = w.Note
			}
			if err := tx.Availability().DeleteWindow(ctx, w.ID); err != nil {
				return nil, err
			}
			pieces = append(pieces, w.Interval())
		}
	}

	now := s.now().UTC()
	var out []*entities.AvailabilityWindow
	for _, span := range entities.MergeIntervals(pieces) {
		w := &entities.AvailabilityWindow{
			ID:         uuid.New().String(),
			ProviderID: providerID,
			Kind:       entities.WindowOpen,
			StartsAt:   span.Start,
			EndsAt:     span.End,
			Note:       note,
			CreatedAt:  now,
		}
		if err := tx.Availability().InsertWindow(ctx, w); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}
