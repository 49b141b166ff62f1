package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/servicemarket/internal/adapters/memory"
	"github.com/zatekoja/servicemarket/internal/application/services"
	"github.com/zatekoja/servicemarket/internal/domain/entities"
	"github.com/zatekoja/servicemarket/internal/domain/providers"
	"github.com/zatekoja/servicemarket/pkg/config"
)

type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) Capture(ctx context.Context, bookingID string, amount int64, currency string) (*providers.CaptureResult, error) {
	args := m.Called(ctx, bookingID, amount, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*providers.CaptureResult), args.Error(1)
}

func (m *MockPaymentGateway) Refund(ctx context.Context, transactionID, reference string) error {
	return m.Called(ctx, transactionID, reference).Error(0)
}

type MockPayoutProvider struct {
	mock.Mock
}

func (m *MockPayoutProvider) RequestPayout(ctx context.Context, tx *entities.Transaction) (entities.PayoutStatus, error) {
	args := m.Called(ctx, tx)
	return args.Get(0).(entities.PayoutStatus), args.Error(1)
}

type MockIndexer struct {
	mock.Mock
}

func (m *MockIndexer) ReindexProvider(ctx context.Context, providerID string) {
	m.Called(ctx, providerID)
}

func testBookingConfig() config.BookingConfig {
	return config.BookingConfig{
		StartGraceWindow:   time.Hour,
		RequestTTL:         24 * time.Hour,
		DefaultDuration:    2 * time.Hour,
		MaxCASRetries:      3,
		RatingMin:          1,
		RatingMax:          5,
		Currency:           "USD",
		PlatformFeeBps:     1000,
		CancellationWindow: 24 * time.Hour,
		CancellationFeeBps: 2000,
	}
}

// fixture is a marketplace with one customer, one provider and two services
// on top of the in-memory store.
type fixture struct {
	store        *memory.Store
	availability *services.AvailabilityService
	bookings     *services.BookingService

	customer entities.Identity
	other    entities.Identity
	provider entities.Identity
	admin    entities.Identity

	fixed  *entities.Service
	hourly *entities.Service

	completedSlots int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	cfg := testBookingConfig()
	store := memory.NewStore()
	availability := services.NewAvailabilityService(store, cfg.DefaultDuration)

	f := &fixture{
		store:        store,
		availability: availability,
		bookings:     services.NewBookingService(store, availability, cfg, nil, nil),
		customer:     entities.Identity{UserID: "cust-1", Role: entities.RoleCustomer},
		other:        entities.Identity{UserID: "cust-2", Role: entities.RoleCustomer},
		provider:     entities.Identity{UserID: "prov-1", Role: entities.RoleProvider},
		admin:        entities.Identity{UserID: "admin-1", Role: entities.RoleAdmin},
	}

	now := time.Now().UTC()
	for _, u := range []*entities.User{
		{ID: f.customer.UserID, Email: "c1@example.com", Name: "Cara", Role: entities.RoleCustomer, CreatedAt: now},
		{ID: f.other.UserID, Email: "c2@example.com", Name: "Cole", Role: entities.RoleCustomer, CreatedAt: now},
		{ID: f.provider.UserID, Email: "p1@example.com", Name: "Pat", Role: entities.RoleProvider, CreatedAt: now},
	} {
		require.NoError(t, store.Accounts().CreateUser(ctx, u))
	}
	require.NoError(t, store.Accounts().CreateProvider(ctx, &entities.Provider{
		UserID:            f.provider.UserID,
		BusinessName:      "Pat's Plumbing",
		ServiceCategories: []entities.ServiceCategory{entities.CategoryPlumber},
		HourlyRateMin:     4000,
		HourlyRateMax:     9000,
		CreatedAt:         now,
	}))

	f.fixed = &entities.Service{
		ID: "svc-fixed", ProviderID: f.provider.UserID, Title: "Leak repair",
		PriceType: entities.PriceTypeFixed, UnitPrice: 10000, CreatedAt: now,
	}
	f.hourly = &entities.Service{
		ID: "svc-hourly", ProviderID: f.provider.UserID, Title: "Pipe fitting",
		PriceType: entities.PriceTypeHourly, UnitPrice: 6000, MinHours: 1, CreatedAt: now,
	}
	require.NoError(t, store.Services().Create(ctx, f.fixed))
	require.NoError(t, store.Services().Create(ctx, f.hourly))
	return f
}

// request books the fixed service for [start, start+1h).
func (f *fixture) request(t *testing.T, start time.Time) *entities.Booking {
	t.Helper()
	return f.requestFor(t, start, time.Hour)
}

func (f *fixture) requestFor(t *testing.T, start time.Time, d time.Duration) *entities.Booking {
	t.Helper()
	end := start.Add(d)
	b, err := f.bookings.RequestBooking(context.Background(), f.customer, services.BookingRequest{
		ServiceID:      f.fixed.ID,
		ScheduledStart: start,
		ScheduledEnd:   &end,
		Address:        "1 Main St",
	})
	require.NoError(t, err)
	return b
}

// completed walks a booking starting soon to completed. Each call takes the
// next 10 minute slot inside the start grace window, up to four per fixture.
func (f *fixture) completed(t *testing.T) *entities.Booking {
	t.Helper()
	ctx := context.Background()
	start := time.Now().Add(5*time.Minute + time.Duration(f.completedSlots)*15*time.Minute)
	f.completedSlots++
	b := f.requestFor(t, start, 10*time.Minute)
	var err error
	for _, ev := range []entities.BookingEvent{entities.EventAccept, entities.EventStart, entities.EventComplete} {
		b, err = f.bookings.ApplyEvent(ctx, f.provider, b.ID, ev)
		require.NoError(t, err)
	}
	return b
}

func (f *fixture) sideEffects(kind entities.SideEffectKind) []*entities.SideEffect {
	var out []*entities.SideEffect
	for _, e := range f.store.Snapshot() {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func (f *fixture) sideEffectByKey(key string) *entities.SideEffect {
	for _, e := range f.store.Snapshot() {
		if e.IdempotencyKey == key {
			return e
		}
	}
	return nil
}
