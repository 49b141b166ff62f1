package memory

import (
	"context"
	"sort"

	"github.com/zatekoja/servicemarket/internal/domain/entities"
	apperrors "github.com/zatekoja/servicemarket/pkg/errors"
)

func copyWindow(w entities.AvailabilityWindow) *entities.AvailabilityWindow {
	if w.BookingID != nil {
		id := *w.BookingID
		w.BookingID = &id
	}
	w.RestoreOpen = append([]entities.Interval(nil), w.RestoreOpen...)
	return &w
}

type availability struct{ s *Store }

// LockProvider is satisfied by the transaction itself, which already runs alone
func (r availability) LockProvider(ctx context.Context, providerID string) error {
	if r.s.tx == nil {
		return apperrors.NewInternalError("provider lock requires a transaction", nil)
	}
	return nil
}

func (r availability) ListWindows(ctx context.Context, providerID string, span entities.Interval) ([]*entities.AvailabilityWindow, error) {
	out := []*entities.AvailabilityWindow{}
	err := r.s.read(func(st *state) error {
		for _, w := range st.windows {
			if w.ProviderID == providerID && w.Interval().Touches(span) {
				out = append(out, copyWindow(w))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, err
}

func (r availability) GetWindow(ctx context.Context, id string) (*entities.AvailabilityWindow, error) {
	var out *entities.AvailabilityWindow
	err := r.s.read(func(st *state) error {
		w, ok := st.windows[id]
		if !ok {
			return notFound("availability window", id)
		}
		out = copyWindow(w)
		return nil
	})
	return out, err
}

func (r availability) GetReservation(ctx context.Context, providerID, bookingID string) (*entities.AvailabilityWindow, error) {
	var out *entities.AvailabilityWindow
	err := r.s.read(func(st *state) error {
		for _, w := range st.windows {
			if w.ProviderID == providerID && w.BookingID != nil && *w.BookingID == bookingID {
				out = copyWindow(w)
				return nil
			}
		}
		return apperrors.NewNotFoundError("no reservation for booking " + bookingID)
	})
	return out, err
}

func (r availability) InsertWindow(ctx context.Context, window *entities.AvailabilityWindow) error {
	return r.s.write(func(st *state) error {
		if window.BookingID != nil {
			for _, w := range st.windows {
				if w.BookingID != nil && *w.BookingID == *window.BookingID {
					return apperrors.NewConflictError("booking already holds a reservation")
				}
			}
		}
		st.windows[window.ID] = *copyWindow(*window)
		return nil
	})
}

func (r availability) DeleteWindow(ctx context.Context, id string) error {
	return r.s.write(func(st *state) error {
		if _, ok := st.windows[id]; !ok {
			return notFound("availability window", id)
		}
		delete(st.windows, id)
		return nil
	})
}
