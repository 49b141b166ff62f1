package routes_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/servicemarket/internal/adapters/cache"
	"github.com/zatekoja/servicemarket/internal/adapters/events"
	"github.com/zatekoja/servicemarket/internal/adapters/memory"
	"github.com/zatekoja/servicemarket/internal/adapters/payments"
	"github.com/zatekoja/servicemarket/internal/api/handlers"
	"github.com/zatekoja/servicemarket/internal/api/middleware"
	"github.com/zatekoja/servicemarket/internal/api/routes"
	"github.com/zatekoja/servicemarket/internal/application/services"
	"github.com/zatekoja/servicemarket/pkg/auth"
	"github.com/zatekoja/servicemarket/pkg/config"
)

type testAPI struct {
	handler  http.Handler
	customer string
	provider string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	cfg := config.BookingConfig{
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
	store := memory.NewStore()
	lru := cache.NewLRUAdapter(128, time.Hour)
	gateway := payments.NewMockGateway()

	search := services.NewSearchService(store, nil)
	availability := services.NewAvailabilityService(store, cfg.DefaultDuration)
	validate, err := handlers.NewRequestValidator()
	require.NoError(t, err)

	h := routes.Handlers{
		Accounts:     handlers.NewAccountHandler(services.NewAccountService(store, lru, search), validate),
		Catalog:      handlers.NewCatalogHandler(services.NewCatalogService(store), validate),
		Availability: handlers.NewAvailabilityHandler(availability, validate),
		Bookings:     handlers.NewBookingHandler(services.NewBookingService(store, availability, cfg, nil, nil), validate),
		Payments:     handlers.NewPaymentHandler(services.NewPaymentService(store, gateway, gateway, cfg.MaxCASRetries, nil), validate),
		Reviews:      handlers.NewReviewHandler(services.NewReviewService(store, cfg, nil, search), validate),
		Messages:     handlers.NewMessageHandler(services.NewMessageService(store, nil), validate),
		Search:       handlers.NewSearchHandler(search),
		Events:       handlers.NewSSEHandler(events.NewLocalEventBus()),
	}

	tokens := auth.NewTokenService("test-secret", "")
	customer, err := tokens.Issue("cust-1", "customer", time.Hour)
	require.NoError(t, err)
	provider, err := tokens.Issue("prov-1", "provider", time.Hour)
	require.NoError(t, err)

	router := routes.NewRouter(h, store, tokens, middleware.NewIdempotencyMiddleware(lru, time.Hour), nil, nil)
	return &testAPI{handler: router.SetupRoutes(), customer: customer, provider: provider}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (a *testAPI) signup(t *testing.T) string {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/accounts", a.provider, map[string]interface{}{
		"email": "pat@example.com",
		"name":  "Pat",
		"role":  "provider",
		"provider": map[string]interface{}{
			"business_name":      "Pat's Plumbing",
			"service_categories": []string{"plumber"},
			"hourly_rate_min":    4000,
			"hourly_rate_max":    9000,
		},
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = a.do(t, http.MethodPost, "/api/accounts", a.customer, map[string]interface{}{
		"email": "cara@example.com",
		"name":  "Cara",
		"role":  "customer",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = a.do(t, http.MethodPost, "/api/services", a.provider, map[string]interface{}{
		"title":      "Leak repair",
		"price_type": "fixed",
		"unit_price": 10000,
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode(t, w)["id"].(string)
}

func TestRouter_Health(t *testing.T) {
	api := newTestAPI(t)
	w := api.do(t, http.MethodGet, "/health", "", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestRouter_Authentication(t *testing.T) {
	api := newTestAPI(t)

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"Anonymous", "", http.StatusUnauthorized},
		{"Garbage token", "not-a-jwt", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(t, http.MethodGet, "/api/accounts/me", tt.token, nil, nil)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, "UNAUTHORIZED", decode(t, w)["type"])
		})
	}

	api.signup(t)
	w := api.do(t, http.MethodGet, "/api/accounts/me", api.customer, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	user := decode(t, w)["user"].(map[string]interface{})
	assert.Equal(t, "cust-1", user["id"])
}

func TestRouter_PublicProviderReads(t *testing.T) {
	api := newTestAPI(t)
	api.signup(t)

	w := api.do(t, http.MethodGet, "/api/providers/prov-1", "", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Pat's Plumbing", decode(t, w)["business_name"])

	w = api.do(t, http.MethodGet, "/api/providers/prov-1/services", "", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["count"])

	w = api.do(t, http.MethodGet, "/api/providers/missing", "", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// No search index configured.
	w = api.do(t, http.MethodGet, "/api/providers/search?q=pipes", "", nil, nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestRouter_BookingFlow(t *testing.T) {
	api := newTestAPI(t)
	serviceID := api.signup(t)
	start := time.Now().UTC().Add(72 * time.Hour).Truncate(time.Hour)

	request := map[string]interface{}{
		"service_id":      serviceID,
		"scheduled_start": start.Format(time.RFC3339),
		"address":         "1 Main St",
	}
	headers := map[string]string{middleware.IdempotencyHeader: "req-1"}

	w := api.do(t, http.MethodPost, "/api/bookings", api.customer, request, headers)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	booking := decode(t, w)
	bookingID := booking["id"].(string)
	assert.Equal(t, "requested", booking["status"])

	// A retry with the same key replays the first response.
	w = api.do(t, http.MethodPost, "/api/bookings", api.customer, request, headers)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "true", w.Header().Get(middleware.ReplayHeader))
	assert.Equal(t, bookingID, decode(t, w)["id"])

	// A new key is a new request. Requests do not hold the slot yet.
	w = api.do(t, http.MethodPost, "/api/bookings", api.customer, request, map[string]string{middleware.IdempotencyHeader: "req-2"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	competingID := decode(t, w)["id"].(string)
	assert.NotEqual(t, bookingID, competingID)

	w = api.do(t, http.MethodGet, "/api/bookings", api.customer, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode(t, w)
	assert.EqualValues(t, 2, list["count"])
	first := list["bookings"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "Leak repair", first["service"].(map[string]interface{})["title"])

	w = api.do(t, http.MethodPost, "/api/bookings/"+bookingID+"/events/accept", api.provider, nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "accepted", decode(t, w)["status"])

	// Accepting the overlapping request loses the slot race.
	w = api.do(t, http.MethodPost, "/api/bookings/"+competingID+"/events/accept", api.provider, nil, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CONFLICT", decode(t, w)["type"])

	w = api.do(t, http.MethodPost, "/api/bookings/"+bookingID+"/events/teleport", api.provider, nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodPost, "/api/bookings/"+bookingID+"/events/expire", api.provider, nil, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = api.do(t, http.MethodGet, "/api/bookings/"+bookingID, api.provider, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode(t, w)
	assert.Len(t, detail["events"], 1)

	w = api.do(t, http.MethodPost, "/api/bookings/"+bookingID+"/messages", api.customer, map[string]interface{}{
		"text": "Gate code is 1234",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = api.do(t, http.MethodGet, "/api/bookings/"+bookingID+"/messages", api.provider, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["count"])
}

func TestRouter_ValidationErrors(t *testing.T) {
	api := newTestAPI(t)
	api.signup(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
	}{
		{"Unknown field", http.MethodPost, "/api/services", map[string]interface{}{"title": "x", "price_type": "fixed", "unit_price": 1, "colour": "red"}},
		{"Bad price type", http.MethodPost, "/api/services", map[string]interface{}{"title": "x", "price_type": "daily", "unit_price": 1}},
		{"Missing body", http.MethodPost, "/api/services", nil},
		{"Bad window kind", http.MethodPost, "/api/providers/prov-1/availability", map[string]interface{}{
			"starts_at": "2030-01-01T09:00:00Z", "ends_at": "2030-01-01T17:00:00Z", "kind": "maybe",
		}},
		{"Bad free range", http.MethodGet, "/api/providers/prov-1/free?start=tomorrow&end=later", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(t, tt.method, tt.path, api.provider, tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Equal(t, "VALIDATION", decode(t, w)["type"])
		})
	}
}

func TestRouter_Availability(t *testing.T) {
	api := newTestAPI(t)
	api.signup(t)

	w := api.do(t, http.MethodPost, "/api/providers/prov-1/availability", api.provider, map[string]interface{}{
		"starts_at": "2030-01-01T09:00:00Z", "ends_at": "2030-01-01T17:00:00Z", "kind": "blocked",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	windowID := decode(t, w)["id"].(string)

	w = api.do(t, http.MethodGet, "/api/providers/prov-1/free?start=2030-01-01T10:00:00Z&end=2030-01-01T11:00:00Z", "", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["free"])

	w = api.do(t, http.MethodGet, "/api/providers/prov-1/availability?from=2030-01-01T00:00:00Z&to=2030-01-02T00:00:00Z", "", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["count"])

	w = api.do(t, http.MethodDelete, "/api/availability/"+windowID, api.customer, nil, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = api.do(t, http.MethodDelete, "/api/availability/"+windowID, api.provider, nil, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = api.do(t, http.MethodGet, "/api/providers/prov-1/free?start=2030-01-01T10:00:00Z&end=2030-01-01T11:00:00Z", "", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["free"])
}

func TestRouter_CORSPreflight(t *testing.T) {
	api := newTestAPI(t)
	w := api.do(t, http.MethodOptions, "/api/bookings", "", nil, map[string]string{"Origin": "https://app.example.com"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), middleware.IdempotencyHeader)
}
