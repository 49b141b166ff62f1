package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/servicemarket/internal/domain/entities"
	"github.com/zatekoja/servicemarket/internal/domain/repositories"
	"github.com/zatekoja/servicemarket/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/servicemarket/pkg/errors"
)

func setupMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	db := sqlx.NewDb(mockDB, "postgres")
	return NewStore(postgres.NewClientFromDB(db), nil), mock
}

var bookingRowColumns = []string{
	"id", "customer_id", "provider_id", "service_id", "status",
	"scheduled_start", "scheduled_end", "address", "notes", "photo_url",
	"amount", "fee", "currency", "cancellation_fee", "payment_status",
	"version", "created_at", "updated_at",
}

func bookingRowValues(id string, status entities.BookingStatus, version int) []driver.Value {
	start := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	return []driver.Value{
		id, "cust-1", "prov-1", "svc-1", string(status),
		start, end, "1 Main St", "", "",
		int64(10000), int64(1000), "USD", int64(0), "pending",
		int64(version), start.Add(-48 * time.Hour), start.Add(-48 * time.Hour),
	}
}

func TestBookingAdapter_GetByID(t *testing.T) {
	store, mock := setupMockStore(t)

	mock.ExpectQuery(`SELECT .* FROM "bookings" WHERE \("id" = 'b-1'\)`).
		WillReturnRows(sqlmock.NewRows(bookingRowColumns).AddRow(bookingRowValues("b-1", entities.BookingAccepted, 3)...))

	b, err := store.Bookings().GetByID(context.Background(), "b-1")
	require.NoError(t, err)
	assert.Equal(t, entities.BookingAccepted, b.Status)
	assert.Equal(t, 3, b.Version)
	require.NotNil(t, b.ScheduledEnd)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingAdapter_GetByID_NotFound(t *testing.T) {
	store, mock := setupMockStore(t)

	mock.ExpectQuery(`SELECT .* FROM "bookings"`).WillReturnRows(sqlmock.NewRows(bookingRowColumns))

	_, err := store.Bookings().GetByID(context.Background(), "missing")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestBookingAdapter_UpdateState(t *testing.T) {
	t.Run("bumps version when expected version matches", func(t *testing.T) {
		store, mock := setupMockStore(t)
		mock.ExpectExec(`UPDATE "bookings" SET .*"version"=4.* WHERE \(\("id" = 'b-1'\) AND \("version" = 3\)\)`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		b := &entities.Booking{ID: "b-1", Status: entities.BookingAccepted, PaymentStatus: entities.PaymentPending, Version: 3}
		err := store.Bookings().UpdateState(context.Background(), b, 3)
		require.NoError(t, err)
		assert.Equal(t, 4, b.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stale version is a conflict", func(t *testing.T) {
		store, mock := setupMockStore(t)
		mock.ExpectExec(`UPDATE "bookings"`).WillReturnResult(sqlmock.NewResult(0, 0))

		b := &entities.Booking{ID: "b-1", Status: entities.BookingAccepted, Version: 3}
		err := store.Bookings().UpdateState(context.Background(), b, 3)
		assert.ErrorIs(t, err, repositories.ErrVersionConflict)
		assert.Equal(t, 3, b.Version)
	})
}

func TestBookingAdapter_RecordEvent_Duplicate(t *testing.T) {
	store, mock := setupMockStore(t)
	mock.ExpectExec(`INSERT INTO "booking_events"`).WillReturnError(&pq.Error{Code: "23505"})

	err := store.Bookings().RecordEvent(context.Background(), &entities.BookingEventRecord{
		ID: "e-1", BookingID: "b-1", Event: entities.EventAccept,
	})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeDuplicate))
}

func TestBookingAdapter_HasEvent(t *testing.T) {
	store, mock := setupMockStore(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM "booking_events"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	ok, err := store.Bookings().HasEvent(context.Background(), "b-1", entities.EventAccept)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAccountAdapter_CreateUser_Duplicate(t *testing.T) {
	store, mock := setupMockStore(t)
	mock.ExpectExec(`INSERT INTO "users"`).WillReturnError(&pq.Error{Code: "23505"})

	err := store.Accounts().CreateUser(context.Background(), &entities.User{ID: "u-1", Email: "a@b.c"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
}

func TestAccountAdapter_GetProvider(t *testing.T) {
	store, mock := setupMockStore(t)
	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT .* FROM "providers" WHERE \("user_id" = 'p-1'\)`).
		WillReturnRows(sqlmock.NewRows([]string{
			"user_id", "business_name", "bio", "years_experience", "service_categories",
			"hourly_rate_min", "hourly_rate_max", "base_price", "portfolio_urls",
			"verified_badges", "insurance", "created_at", "updated_at",
		}).AddRow("p-1", "Ada Plumbing", "", 4, "{plumber,handyman}", 2000, 5000, 0, "{}", "{}", true, now, now))

	p, err := store.Accounts().GetProvider(context.Background(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, []entities.ServiceCategory{entities.CategoryPlumber, entities.CategoryHandyman}, p.ServiceCategories)
	assert.True(t, p.Insurance)
}

func TestStore_WithinTx(t *testing.T) {
	t.Run("commits and locks the provider inside the transaction", func(t *testing.T) {
		store, mock := setupMockStore(t)
		mock.ExpectBegin()
		mock.ExpectExec(`SELECT pg_advisory_xact_lock\(hashtext\(\$1\)\)`).WithArgs("p-1").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`DELETE FROM "availability_windows"`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := store.WithinTx(context.Background(), func(ctx context.Context, tx repositories.Store) error {
			if err := tx.Availability().LockProvider(ctx, "p-1"); err != nil {
				return err
			}
			return tx.WithinTx(ctx, func(ctx context.Context, nested repositories.Store) error {
				return nested.Availability().DeleteWindow(ctx, "w-1")
			})
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when the unit of work fails", func(t *testing.T) {
		store, mock := setupMockStore(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		boom := errors.New("boom")
		err := store.WithinTx(context.Background(), func(ctx context.Context, tx repositories.Store) error {
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lock outside a transaction is refused", func(t *testing.T) {
		store, _ := setupMockStore(t)
		err := store.Availability().LockProvider(context.Background(), "p-1")
		assert.Error(t, err)
	})
}

func TestAvailabilityAdapter_ListWindows_DecodesRestoreOpen(t *testing.T) {
	store, mock := setupMockStore(t)
	start := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	bookingID := "b-1"
	mock.ExpectQuery(`SELECT .* FROM "availability_windows" WHERE .*"provider_id" = 'p-1'`).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "provider_id", "kind", "starts_at", "ends_at", "booking_id", "note", "restore_open", "created_at",
		}).AddRow("w-1", "p-1", "blocked", start, start.Add(time.Hour), bookingID, "",
			`[{"start":"2026-03-10T10:00:00Z","end":"2026-03-10T11:00:00Z"}]`, start))

	span := entities.Interval{Start: start, End: start.Add(time.Hour)}
	windows, err := store.Availability().ListWindows(context.Background(), "p-1", span)
	require.NoError(t, err)
	require.Len(t, windows, 1)
	assert.True(t, windows[0].IsReservation())
	assert.Equal(t, []entities.Interval{span}, windows[0].RestoreOpen)
}

func TestReviewAdapter_SetReply(t *testing.T) {
	store, mock := setupMockStore(t)
	mock.ExpectExec(`UPDATE "reviews" SET .* WHERE \(\("id" = 'r-1'\) AND \("provider_reply" IS NULL\)\)`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "reviews"`).WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := store.Reviews().SetReply(context.Background(), "r-1", "thanks", time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Reviews().SetReply(context.Background(), "r-1", "thanks again", time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSideEffectAdapter_ClaimDue(t *testing.T) {
	store, mock := setupMockStore(t)
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`UPDATE side_effects SET next_attempt_at .* FOR UPDATE SKIP LOCKED`).
		WithArgs(now.Add(time.Minute), now, 10).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "idempotency_key", "kind", "payload", "status", "attempts", "next_attempt_at", "last_error", "created_at", "updated_at",
		}).AddRow("se-1", "b-1:accept:notify", "notify", `{"user_id":"c-1"}`, "pending", 0, now, nil, now, now))

	effects, err := store.SideEffects().ClaimDue(context.Background(), now, time.Minute, 10)
	require.NoError(t, err)
	require.Len(t, effects, 1)
	assert.Equal(t, entities.SideEffectNotify, effects[0].Kind)
	assert.JSONEq(t, `{"user_id":"c-1"}`, string(effects[0].Payload))
}

func TestSideEffectAdapter_EnqueueIgnoresDuplicates(t *testing.T) {
	store, mock := setupMockStore(t)
	mock.ExpectExec(`INSERT INTO "side_effects" .* ON CONFLICT DO NOTHING`).WillReturnResult(sqlmock.NewResult(0, 0))

	effect, err := entities.NewSideEffect("se-1", "b-1:accept:notify", entities.SideEffectNotify, entities.NotifyPayload{UserID: "c-1"}, time.Now())
	require.NoError(t, err)
	assert.NoError(t, store.SideEffects().Enqueue(context.Background(), effect))
}

func TestStatsAdapter_ProviderStats(t *testing.T) {
	store, mock := setupMockStore(t)
	mock.ExpectQuery(`FROM bookings WHERE provider_id`).WillReturnRows(sqlmock.NewRows([]string{"total", "completed"}).AddRow(4, 2))
	mock.ExpectQuery(`FROM reviews WHERE provider_id`).WillReturnRows(sqlmock.NewRows([]string{"average", "total"}).AddRow(4.5, 2))
	mock.ExpectQuery(`FROM transactions t JOIN bookings`).WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(18000))
	mock.ExpectQuery(`FROM booking_events e JOIN bookings`).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	stats, err := store.Stats().ProviderStats(context.Background(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalBookings)
	assert.Equal(t, 2, stats.CompletedBookings)
	assert.Equal(t, 4.5, stats.AverageRating)
	assert.Equal(t, int64(18000), stats.TotalEarnings)
	assert.InDelta(t, 0.75, stats.ResponseRate, 1e-9)
}
