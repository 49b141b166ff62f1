package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/zatekoja/servicemarket/internal/domain/entities"
	"github.com/zatekoja/servicemarket/internal/domain/repositories"
	apperrors "github.com/zatekoja/servicemarket/pkg/errors"
)

func copyBooking(b entities.Booking) *entities.Booking {
	if b.ScheduledEnd != nil {
		end := *b.ScheduledEnd
		b.ScheduledEnd = &end
	}
	return &b
}

func eventKey(bookingID string, ev entities.BookingEvent) string {
	return bookingID + "|" + string(ev)
}

type bookings struct{ s *Store }

func (r bookings) Create(ctx context.Context, booking *entities.Booking) error {
	return r.s.write(func(st *state) error {
		if _, ok := st.bookings[booking.ID]; ok {
			return apperrors.NewConflictError("booking already exists")
		}
		st.bookings[booking.ID] = *copyBooking(*booking)
		return nil
	})
}

func (r bookings) GetByID(ctx context.Context, id string) (*entities.Booking, error) {
	var out *entities.Booking
	err := r.s.read(func(st *state) error {
		b, ok := st.bookings[id]
		if !ok {
			return notFound("booking", id)
		}
		out = copyBooking(b)
		return nil
	})
	return out, err
}

func (r bookings) List(ctx context.Context, filter repositories.BookingFilter) ([]*entities.Booking, error) {
	var all []*entities.Booking
	err := r.s.read(func(st *state) error {
		for _, b := range st.bookings {
			if filter.CustomerID != "" && b.CustomerID != filter.CustomerID {
				continue
			}
			if filter.ProviderID != "" && b.ProviderID != filter.ProviderID {
				continue
			}
			if filter.Status != "" && b.Status != filter.Status {
				continue
			}
			all = append(all, copyBooking(b))
		}
		return nil
	})
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return page(all, filter.Limit, filter.Offset), err
}

func (r bookings) ListActiveOverlapping(ctx context.Context, providerID string, span entities.Interval) ([]*entities.Booking, error) {
	out := []*entities.Booking{}
	err := r.s.read(func(st *state) error {
		for _, b := range st.bookings {
			if b.ProviderID != providerID || !b.Status.IsActive() {
				continue
			}
			if !b.ScheduledStart.Before(span.End) {
				continue
			}
			if b.ScheduledEnd != nil && !b.ScheduledEnd.After(span.Start) {
				continue
			}
			out = append(out, copyBooking(b))
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledStart.Before(out[j].ScheduledStart) })
	return out, err
}

func (r bookings) ListStaleRequests(ctx context.Context, cutoff time.Time, limit int) ([]*entities.Booking, error) {
	var all []*entities.Booking
	err := r.s.read(func(st *state) error {
		for _, b := range st.bookings {
			if b.Status == entities.BookingRequested && b.CreatedAt.Before(cutoff) {
				all = append(all, copyBooking(b))
			}
		}
		return nil
	})
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	return page(all, limit, 0), err
}

func (r bookings) UpdateState(ctx context.Context, booking *entities.Booking, expectedVersion int) error {
	return r.s.write(func(st *state) error {
		stored, ok := st.bookings[booking.ID]
		if !ok || stored.Version != expectedVersion {
			return repositories.ErrVersionConflict
		}
		stored.Status = booking.Status
		stored.PaymentStatus = booking.PaymentStatus
		stored.CancellationFee = booking.CancellationFee
		stored.UpdatedAt = booking.UpdatedAt
		stored.Version = expectedVersion + 1
		st.bookings[booking.ID] = stored
		booking.Version = stored.Version
		return nil
	})
}

func (r bookings) RecordEvent(ctx context.Context, record *entities.BookingEventRecord) error {
	return r.s.write(func(st *state) error {
		key := eventKey(record.BookingID, record.Event)
		if _, ok := st.eventKeys[key]; ok {
			return apperrors.NewDuplicateError(fmt.Sprintf("event %s already applied to booking %s", record.Event, record.BookingID))
		}
		st.events[record.ID] = *record
		st.eventKeys[key] = record.ID
		return nil
	})
}

func (r bookings) HasEvent(ctx context.Context, bookingID string, event entities.BookingEvent) (bool, error) {
	var found bool
	err := r.s.read(func(st *state) error {
		_, found = st.eventKeys[eventKey(bookingID, event)]
		return nil
	})
	return found, err
}

func (r bookings) ListEvents(ctx context.Context, bookingID string) ([]*entities.BookingEventRecord, error) {
	out := []*entities.BookingEventRecord{}
	err := r.s.read(func(st *state) error {
		for _, e := range st.events {
			if e.BookingID == bookingID {
				rec := e
				out = append(out, &rec)
			}
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, err
}
