package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/servicemarket/internal/application/services"
	"github.com/zatekoja/servicemarket/internal/domain/entities"
	apperrors "github.com/zatekoja/servicemarket/pkg/errors"
)

func TestBookingService_RequestBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := time.Now().Add(48 * time.Hour).Truncate(time.Minute)

	b := f.request(t, start)

	assert.Equal(t, entities.BookingRequested, b.Status)
	assert.Equal(t, entities.PaymentPending, b.PaymentStatus)
	assert.Equal(t, f.provider.UserID, b.ProviderID)
	assert.Equal(t, int64(10000), b.Amount)
	assert.Equal(t, int64(1000), b.Fee)
	assert.Equal(t, "USD", b.Currency)
	assert.Equal(t, 1, b.Version)

	notify := f.sideEffectByKey(b.ID + ":request:notify")
	require.NotNil(t, notify)
	assert.Equal(t, entities.SideEffectNotify, notify.Kind)

	stored, err := f.bookings.GetBooking(ctx, f.provider, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, stored.ID)
}

func TestBookingService_RequestBooking_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	future := time.Now().Add(48 * time.Hour)
	end := future.Add(time.Hour)

	tests := []struct {
		name    string
		id      entities.Identity
		req     services.BookingRequest
		errType apperrors.ErrorType
	}{
		{
			name:    "Start in the past",
			id:      f.customer,
			req:     services.BookingRequest{ServiceID: f.fixed.ID, ScheduledStart: time.Now().Add(-time.Hour)},
			errType: apperrors.ErrorTypeValidation,
		},
		{
			name:    "Hourly service without end",
			id:      f.customer,
			req:     services.BookingRequest{ServiceID: f.hourly.ID, ScheduledStart: future},
			errType: apperrors.ErrorTypeValidation,
		},
		{
			name:    "End before start",
			id:      f.customer,
			req:     services.BookingRequest{ServiceID: f.fixed.ID, ScheduledStart: end, ScheduledEnd: &future},
			errType: apperrors.ErrorTypeValidation,
		},
		{
			name:    "Providers cannot request",
			id:      f.provider,
			req:     services.BookingRequest{ServiceID: f.fixed.ID, ScheduledStart: future},
			errType: apperrors.ErrorTypeForbidden,
		},
		{
			name:    "Anonymous caller",
			id:      entities.Identity{},
			req:     services.BookingRequest{ServiceID: f.fixed.ID, ScheduledStart: future},
			errType: apperrors.ErrorTypeUnauthorized,
		},
		{
			name:    "Unknown service",
			id:      f.customer,
			req:     services.BookingRequest{ServiceID: "nope", ScheduledStart: future},
			errType: apperrors.ErrorTypeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.bookings.RequestBooking(ctx, tt.id, tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.errType, apperrors.TypeOf(err))
		})
	}
}

func TestBookingService_RequestBooking_SlotTaken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := time.Now().Add(48 * time.Hour)

	b := f.request(t, start)
	_, err := f.bookings.ApplyEvent(ctx, f.provider, b.ID, entities.EventAccept)
	require.NoError(t, err)

	overlapping := start.Add(30 * time.Minute)
	end := overlapping.Add(time.Hour)
	_, err = f.bookings.RequestBooking(ctx, f.other, services.BookingRequest{
		ServiceID:      f.fixed.ID,
		ScheduledStart: overlapping,
		ScheduledEnd:   &end,
	})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))

	// Back-to-back is fine with half-open intervals.
	adjacent := start.Add(time.Hour)
	adjacentEnd := adjacent.Add(time.Hour)
	_, err = f.bookings.RequestBooking(ctx, f.other, services.BookingRequest{
		ServiceID:      f.fixed.ID,
		ScheduledStart: adjacent,
		ScheduledEnd:   &adjacentEnd,
	})
	assert.NoError(t, err)
}

func TestBookingService_Lifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b := f.completed(t)
	assert.Equal(t, entities.BookingCompleted, b.Status)
	assert.Equal(t, 4, b.Version)

	events, err := f.bookings.ListBookingEvents(ctx, f.customer, b.ID)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, entities.EventAccept, events[0].Event)
	assert.Equal(t, entities.BookingRequested, events[0].FromStatus)
	assert.Equal(t, entities.EventComplete, events[2].Event)
	assert.Equal(t, f.provider.UserID, events[2].ActorID)

	reservation, err := f.store.Availability().GetReservation(ctx, f.provider.UserID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.WindowBlocked, reservation.Kind)

	capture := f.sideEffectByKey(b.ID + ":capture")
	require.NotNil(t, capture)
	assert.Equal(t, entities.SideEffectCapturePayment, capture.Kind)
	assert.NotNil(t, f.sideEffectByKey(b.ID+":accept:notify:"+f.customer.UserID))
	assert.Nil(t, f.sideEffectByKey(b.ID+":accept:notify:"+f.provider.UserID))
}

func TestBookingService_ApplyEvent_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.request(t, time.Now().Add(48*time.Hour))

	accepted, err := f.bookings.ApplyEvent(ctx, f.provider, b.ID, entities.EventAccept)
	require.NoError(t, err)
	assert.Equal(t, 2, accepted.Version)

	again, err := f.bookings.ApplyEvent(ctx, f.provider, b.ID, entities.EventAccept)
	require.NoError(t, err)
	assert.Equal(t, entities.BookingAccepted, again.Status)
	assert.Equal(t, 2, again.Version)

	_, err = f.bookings.ApplyEvent(ctx, f.provider, b.ID, entities.EventDecline)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInvalidTransition))

	_, err = f.bookings.ApplyEvent(ctx, f.provider, b.ID, entities.EventComplete)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInvalidTransition))

	_, err = f.bookings.ApplyEvent(ctx, f.provider, b.ID, entities.BookingEvent("teleport"))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestBookingService_ApplyEvent_Policy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.request(t, time.Now().Add(48*time.Hour))

	tests := []struct {
		name    string
		id      entities.Identity
		ev      entities.BookingEvent
		errType apperrors.ErrorType
	}{
		{"Customer cannot accept", f.customer, entities.EventAccept, apperrors.ErrorTypeForbidden},
		{"Provider cannot cancel", f.provider, entities.EventCancel, apperrors.ErrorTypeForbidden},
		{"Other customer cannot cancel", f.other, entities.EventCancel, apperrors.ErrorTypeForbidden},
		{"Only the system expires", f.admin, entities.EventExpire, apperrors.ErrorTypeForbidden},
		{"Anonymous", entities.Identity{}, entities.EventAccept, apperrors.ErrorTypeUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.bookings.ApplyEvent(ctx, tt.id, b.ID, tt.ev)
			require.Error(t, err)
			assert.Equal(t, tt.errType, apperrors.TypeOf(err))
		})
	}

	_, err := f.bookings.GetBooking(ctx, f.other, b.ID)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeForbidden))
	_, err = f.bookings.GetBooking(ctx, f.admin, b.ID)
	assert.NoError(t, err)
}

func TestBookingService_ConcurrentAccept_OneWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := time.Now().Add(48 * time.Hour)

	// Requests do not hold time, so both overlapping requests go through.
	first := f.request(t, start)
	second := f.request(t, start.Add(30*time.Minute))

	var (
		wg      sync.WaitGroup
		barrier = make(chan struct{})
		errs    = make([]error, 2)
	)
	for i, id := range []string{first.ID, second.ID} {
		wg.Add(1)
		go func(i int, bookingID string) {
			defer wg.Done()
			<-barrier
			_, errs[i] = f.bookings.ApplyEvent(ctx, f.provider, bookingID, entities.EventAccept)
		}(i, id)
	}
	close(barrier)
	wg.Wait()

	var won, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case apperrors.IsType(err, apperrors.ErrorTypeConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, 1, conflicts)

	windows, err := f.availability.ListWindows(ctx, f.provider.UserID, entities.Interval{
		Start: start.Add(-time.Hour), End: start.Add(3 * time.Hour),
	})
	require.NoError(t, err)
	require.Len(t, windows, 1)
	assert.True(t, windows[0].IsReservation())
}

func TestBookingService_Cancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := time.Now().Add(2 * time.Hour)

	b := f.request(t, start)
	_, err := f.bookings.ApplyEvent(ctx, f.provider, b.ID, entities.EventAccept)
	require.NoError(t, err)

	cancelled, err := f.bookings.ApplyEvent(ctx, f.customer, b.ID, entities.EventCancel)
	require.NoError(t, err)
	assert.Equal(t, entities.BookingCancelled, cancelled.Status)
	// Inside the 24h window: 20% of the amount.
	assert.Equal(t, int64(2000), cancelled.CancellationFee)

	_, err = f.store.Availability().GetReservation(ctx, f.provider.UserID, b.ID)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))

	free, err := f.availability.QueryFree(ctx, f.provider.UserID, cancelled.Slot(time.Hour))
	require.NoError(t, err)
	assert.True(t, free)

	// Cancelling twice is a no-op.
	again, err := f.bookings.ApplyEvent(ctx, f.customer, b.ID, entities.EventCancel)
	require.NoError(t, err)
	assert.Equal(t, cancelled.Version, again.Version)
}

func TestBookingService_Cancel_OutsideWindowIsFree(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b := f.request(t, time.Now().Add(72*time.Hour))
	_, err := f.bookings.ApplyEvent(ctx, f.provider, b.ID, entities.EventAccept)
	require.NoError(t, err)

	cancelled, err := f.bookings.ApplyEvent(ctx, f.admin, b.ID, entities.EventCancel)
	require.NoError(t, err)
	assert.Equal(t, int64(0), cancelled.CancellationFee)
}

func TestBookingService_StartGuard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b := f.request(t, time.Now().Add(3*time.Hour))
	_, err := f.bookings.ApplyEvent(ctx, f.provider, b.ID, entities.EventAccept)
	require.NoError(t, err)

	_, err = f.bookings.ApplyEvent(ctx, f.provider, b.ID, entities.EventStart)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInvalidTransition))

	stored, err := f.bookings.GetBooking(ctx, f.provider, b.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.BookingAccepted, stored.Status)
}

func TestBookingService_ExpireStaleRequests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	stale := f.request(t, time.Now().Add(72*time.Hour))
	answered := f.request(t, time.Now().Add(96*time.Hour))
	_, err := f.bookings.ApplyEvent(ctx, f.provider, answered.ID, entities.EventAccept)
	require.NoError(t, err)

	n, err := f.bookings.ExpireStaleRequests(ctx, time.Now().Add(25*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.bookings.GetBooking(ctx, f.customer, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.BookingCancelled, got.Status)

	events, err := f.bookings.ListBookingEvents(ctx, f.customer, stale.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, entities.EventExpire, events[0].Event)
	assert.Equal(t, entities.SystemIdentity().UserID, events[0].ActorID)

	// A late decline of the expired request changes nothing.
	_, err = f.bookings.ApplyEvent(ctx, f.provider, stale.ID, entities.EventDecline)
	assert.NoError(t, err)
}

func TestBookingService_ListBookings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.request(t, time.Now().Add(48*time.Hour))
	f.request(t, time.Now().Add(72*time.Hour))

	mine, err := f.bookings.ListBookings(ctx, f.customer, services.BookingListFilter{})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	theirs, err := f.bookings.ListBookings(ctx, f.other, services.BookingListFilter{})
	require.NoError(t, err)
	assert.Empty(t, theirs)

	requested, err := f.bookings.ListBookings(ctx, f.provider, services.BookingListFilter{Status: entities.BookingRequested})
	require.NoError(t, err)
	assert.Len(t, requested, 2)

	_, err = f.bookings.ListBookings(ctx, f.customer, services.BookingListFilter{Status: "lost"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}
