package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/servicemarket/internal/domain/entities"
	"github.com/zatekoja/servicemarket/internal/domain/repositories"
	apperrors "github.com/zatekoja/servicemarket/pkg/errors"
)

func seedBooking(t *testing.T, s *Store) *entities.Booking {
	t.Helper()
	b := &entities.Booking{
		ID:             "b-1",
		CustomerID:     "c-1",
		ProviderID:     "p-1",
		ServiceID:      "s-1",
		Status:         entities.BookingRequested,
		ScheduledStart: time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC),
		PaymentStatus:  entities.PaymentPending,
		Version:        1,
		CreatedAt:      time.Now().UTC(),
	}
	require.NoError(t, s.Bookings().Create(context.Background(), b))
	return b
}

func TestStore_WithinTx_RollsBack(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	b := seedBooking(t, s)

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(ctx context.Context, tx repositories.Store) error {
		b.Status = entities.BookingAccepted
		require.NoError(t, tx.Bookings().UpdateState(ctx, b, 1))
		inside, err := tx.Bookings().GetByID(ctx, "b-1")
		require.NoError(t, err)
		assert.Equal(t, entities.BookingAccepted, inside.Status)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.Bookings().GetByID(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, entities.BookingRequested, got.Status)
	assert.Equal(t, 1, got.Version)
}

func TestStore_WithinTx_Commits(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	b := seedBooking(t, s)

	err := s.WithinTx(ctx, func(ctx context.Context, tx repositories.Store) error {
		require.NoError(t, tx.Availability().LockProvider(ctx, "p-1"))
		b.Status = entities.BookingAccepted
		return tx.Bookings().UpdateState(ctx, b, 1)
	})
	require.NoError(t, err)

	got, err := s.Bookings().GetByID(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, entities.BookingAccepted, got.Status)
	assert.Equal(t, 2, got.Version)
}

func TestBookings_UpdateState_StaleVersion(t *testing.T) {
	s := NewStore()
	b := seedBooking(t, s)
	b.Status = entities.BookingCancelled
	err := s.Bookings().UpdateState(context.Background(), b, 7)
	assert.ErrorIs(t, err, repositories.ErrVersionConflict)
}

func TestBookings_RecordEvent_Unique(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	rec := &entities.BookingEventRecord{ID: "e-1", BookingID: "b-1", Event: entities.EventAccept}
	require.NoError(t, s.Bookings().RecordEvent(ctx, rec))

	err := s.Bookings().RecordEvent(ctx, &entities.BookingEventRecord{ID: "e-2", BookingID: "b-1", Event: entities.EventAccept})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeDuplicate))

	ok, err := s.Bookings().HasEvent(ctx, "b-1", entities.EventAccept)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAvailability_LockOutsideTx(t *testing.T) {
	s := NewStore()
	assert.Error(t, s.Availability().LockProvider(context.Background(), "p-1"))
}

func TestSideEffects_DedupAndClaim(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	first, err := entities.NewSideEffect("se-1", "b-1:accept:notify", entities.SideEffectNotify, entities.NotifyPayload{UserID: "c-1"}, now)
	require.NoError(t, err)
	dup, err := entities.NewSideEffect("se-2", "b-1:accept:notify", entities.SideEffectNotify, entities.NotifyPayload{UserID: "c-1"}, now)
	require.NoError(t, err)

	require.NoError(t, s.SideEffects().Enqueue(ctx, first))
	require.NoError(t, s.SideEffects().Enqueue(ctx, dup))
	assert.Len(t, s.Snapshot(), 1)

	claimed, err := s.SideEffects().ClaimDue(ctx, now, time.Minute, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	again, err := s.SideEffects().ClaimDue(ctx, now.Add(30*time.Second), time.Minute, 10)
	require.NoError(t, err)
	assert.Empty(t, again, "leased side effects are not handed out twice")

	require.NoError(t, s.SideEffects().MarkDone(ctx, "se-1", now))
	later, err := s.SideEffects().ClaimDue(ctx, now.Add(time.Hour), time.Minute, 10)
	require.NoError(t, err)
	assert.Empty(t, later)
}

func TestReviews_SetReplyOnce(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.Reviews().Create(ctx, &entities.Review{ID: "r-1", BookingID: "b-1", ProviderID: "p-1", Rating: 5}))

	ok, err := s.Reviews().SetReply(ctx, "r-1", "thanks", time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Reviews().SetReply(ctx, "r-1", "thanks again", time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	err = s.Reviews().Create(ctx, &entities.Review{ID: "r-2", BookingID: "b-1"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeDuplicate))
}
