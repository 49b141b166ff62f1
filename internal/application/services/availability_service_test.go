package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/servicemarket/internal/domain/entities"
	apperrors "github.com/zatekoja/servicemarket/pkg/errors"
)

func at(hour int) time.Time {
	return time.Date(2030, 1, 7, hour, 0, 0, 0, time.UTC)
}

func span(from, to int) entities.Interval {
	return entities.Interval{Start: at(from), End: at(to)}
}

func spans(windows []*entities.AvailabilityWindow, kind entities.WindowKind) []entities.Interval {
	var out []entities.Interval
	for _, w := range windows {
		if w.Kind == kind {
			out = append(out, w.Interval())
		}
	}
	return out
}

func TestAvailabilityService_CarveAndRestore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	day := span(0, 24)

	_, err := f.availability.AddWindow(ctx, f.provider, f.provider.UserID, span(9, 17), entities.WindowOpen, "weekday")
	require.NoError(t, err)

	block, err := f.availability.AddWindow(ctx, f.provider, f.provider.UserID, span(12, 13), entities.WindowBlocked, "lunch")
	require.NoError(t, err)
	assert.Equal(t, []entities.Interval{span(12, 13)}, block.RestoreOpen)

	windows, err := f.availability.ListWindows(ctx, f.provider.UserID, day)
	require.NoError(t, err)
	assert.Equal(t, []entities.Interval{span(9, 12), span(13, 17)}, spans(windows, entities.WindowOpen))
	assert.Equal(t, []entities.Interval{span(12, 13)}, spans(windows, entities.WindowBlocked))

	free, err := f.availability.QueryFree(ctx, f.provider.UserID, span(12, 13))
	require.NoError(t, err)
	assert.False(t, free)

	require.NoError(t, f.availability.RemoveWindow(ctx, f.provider, block.ID))

	windows, err = f.availability.ListWindows(ctx, f.provider.UserID, day)
	require.NoError(t, err)
	assert.Equal(t, []entities.Interval{span(9, 17)}, spans(windows, entities.WindowOpen))
	assert.Empty(t, spans(windows, entities.WindowBlocked))
}

func TestAvailabilityService_OpenWindowsCoalesce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.availability.AddWindow(ctx, f.provider, f.provider.UserID, span(9, 12), entities.WindowOpen, "")
	require.NoError(t, err)
	_, err = f.availability.AddWindow(ctx, f.provider, f.provider.UserID, span(14, 17), entities.WindowOpen, "")
	require.NoError(t, err)
	merged, err := f.availability.AddWindow(ctx, f.provider, f.provider.UserID, span(12, 14), entities.WindowOpen, "")
	require.NoError(t, err)
	assert.Equal(t, span(9, 17), merged.Interval())

	windows, err := f.availability.ListWindows(ctx, f.provider.UserID, span(0, 24))
	require.NoError(t, err)
	assert.Len(t, windows, 1)
}

func TestAvailabilityService_AddWindow_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.availability.AddWindow(ctx, f.provider, f.provider.UserID, span(9, 17), entities.WindowOpen, "")
	require.NoError(t, err)
	_, err = f.availability.AddWindow(ctx, f.provider, f.provider.UserID, span(12, 13), entities.WindowBlocked, "")
	require.NoError(t, err)

	tests := []struct {
		name    string
		id      entities.Identity
		span    entities.Interval
		kind    entities.WindowKind
		errType apperrors.ErrorType
	}{
		{"Open over open", f.provider, span(16, 18), entities.WindowOpen, apperrors.ErrorTypeConflict},
		{"Open over blocked", f.provider, span(12, 13), entities.WindowOpen, apperrors.ErrorTypeConflict},
		{"Blocked over blocked", f.provider, span(11, 14), entities.WindowBlocked, apperrors.ErrorTypeConflict},
		{"Empty interval", f.provider, span(10, 10), entities.WindowOpen, apperrors.ErrorTypeValidation},
		{"Unknown kind", f.provider, span(20, 21), entities.WindowKind("maybe"), apperrors.ErrorTypeValidation},
		{"Customer", f.customer, span(20, 21), entities.WindowOpen, apperrors.ErrorTypeForbidden},
		{"Other provider", entities.Identity{UserID: "prov-2", Role: entities.RoleProvider}, span(20, 21), entities.WindowOpen, apperrors.ErrorTypeForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.availability.AddWindow(ctx, tt.id, f.provider.UserID, tt.span, tt.kind, "")
			require.Error(t, err)
			assert.Equal(t, tt.errType, apperrors.TypeOf(err))
		})
	}

	// Admins manage any provider's calendar.
	_, err = f.availability.AddWindow(ctx, f.admin, f.provider.UserID, span(20, 21), entities.WindowOpen, "")
	assert.NoError(t, err)
}

func TestAvailabilityService_ReservationLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Hour)
	day := entities.Interval{Start: start.Add(-4 * time.Hour), End: start.Add(4 * time.Hour)}

	_, err := f.availability.AddWindow(ctx, f.provider, f.provider.UserID, day, entities.WindowOpen, "")
	require.NoError(t, err)

	b := f.request(t, start)
	_, err = f.bookings.ApplyEvent(ctx, f.provider, b.ID, entities.EventAccept)
	require.NoError(t, err)

	reservation, err := f.store.Availability().GetReservation(ctx, f.provider.UserID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.Slot(time.Hour), reservation.Interval())

	err = f.availability.RemoveWindow(ctx, f.provider, reservation.ID)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))

	windows, err := f.availability.ListWindows(ctx, f.provider.UserID, day)
	require.NoError(t, err)
	assert.Len(t, spans(windows, entities.WindowOpen), 2)

	_, err = f.bookings.ApplyEvent(ctx, f.customer, b.ID, entities.EventCancel)
	require.NoError(t, err)

	windows, err = f.availability.ListWindows(ctx, f.provider.UserID, day)
	require.NoError(t, err)
	assert.Equal(t, []entities.Interval{day}, spans(windows, entities.WindowOpen))
}
