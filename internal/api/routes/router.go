package routes

import (
	"net/http"

	"github.com/zatekoja/servicemarket/internal/api/handlers"
	"github.com/zatekoja/servicemarket/internal/api/loaders"
	"github.com/zatekoja/servicemarket/internal/api/middleware"
	"github.com/zatekoja/servicemarket/internal/domain/repositories"
	"github.com/zatekoja/servicemarket/internal/infrastructure/observability"
	"github.com/zatekoja/servicemarket/pkg/auth"
)

// Handlers groups the HTTP handlers the router mounts
type Handlers struct {
	Accounts     *handlers.AccountHandler
	Catalog      *handlers.CatalogHandler
	Availability *handlers.AvailabilityHandler
	Bookings     *handlers.BookingHandler
	Payments     *handlers.PaymentHandler
	Reviews      *handlers.ReviewHandler
	Messages     *handlers.MessageHandler
	Search       *handlers.SearchHandler
	Events       *handlers.SSEHandler
}

// Router holds all route handlers
type Router struct {
	mux         *http.ServeMux
	handlers    Handlers
	store       repositories.Store
	tokens      *auth.TokenService
	idempotency *middleware.IdempotencyMiddleware
	origins     []string
	metrics     *observability.Metrics
}

// NewRouter creates a new router. idempotency and metrics may be nil.
func NewRouter(
	h Handlers,
	store repositories.Store,
	tokens *auth.TokenService,
	idempotency *middleware.IdempotencyMiddleware,
	origins []string,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:         http.NewServeMux(),
		handlers:    h,
		store:       store,
		tokens:      tokens,
		idempotency: idempotency,
		origins:     origins,
		metrics:     metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	h := r.handlers

	// Accounts and provider profiles
	r.mux.HandleFunc("POST /api/accounts", h.Accounts.CreateAccount)
	r.mux.HandleFunc("GET /api/accounts/me", h.Accounts.GetMe)
	r.mux.HandleFunc("PATCH /api/providers/me", h.Accounts.UpdateMyProfile)
	r.mux.HandleFunc("GET /api/providers/search", h.Search.SearchProviders)
	r.mux.HandleFunc("GET /api/providers/{id}", h.Accounts.GetProvider)
	r.mux.HandleFunc("GET /api/providers/{id}/stats", h.Reviews.ProviderStats)
	r.mux.HandleFunc("GET /api/providers/{id}/reviews", h.Reviews.ListProviderReviews)

	// Service catalog
	r.mux.HandleFunc("GET /api/providers/{id}/services", h.Catalog.ListProviderServices)
	r.mux.HandleFunc("POST /api/services", h.Catalog.CreateService)
	r.mux.HandleFunc("PUT /api/services/{id}", h.Catalog.UpdateService)
	r.mux.HandleFunc("DELETE /api/services/{id}", h.Catalog.ArchiveService)

	// Availability
	r.mux.HandleFunc("GET /api/providers/{id}/availability", h.Availability.ListWindows)
	r.mux.HandleFunc("POST /api/providers/{id}/availability", h.Availability.AddWindow)
	r.mux.HandleFunc("DELETE /api/availability/{id}", h.Availability.RemoveWindow)
	r.mux.HandleFunc("GET /api/providers/{id}/free", h.Availability.QueryFree)

	// Bookings
	r.mux.HandleFunc("POST /api/bookings", h.Bookings.RequestBooking)
	r.mux.HandleFunc("GET /api/bookings", h.Bookings.ListBookings)
	r.mux.HandleFunc("GET /api/bookings/{id}", h.Bookings.GetBooking)
	r.mux.HandleFunc("POST /api/bookings/{id}/events/{event}", h.Bookings.ApplyEvent)

	// Payments
	r.mux.HandleFunc("POST /api/bookings/{id}/payment/authorize", h.Payments.Authorize)
	r.mux.HandleFunc("POST /api/bookings/{id}/refund", h.Payments.Refund)
	r.mux.HandleFunc("POST /api/transactions/{id}/payout", h.Payments.ReconcilePayout)

	// Reviews
	r.mux.HandleFunc("POST /api/bookings/{id}/review", h.Reviews.SubmitReview)
	r.mux.HandleFunc("POST /api/reviews/{id}/reply", h.Reviews.ReplyToReview)
	r.mux.HandleFunc("GET /api/me/stats", h.Reviews.MyStats)

	// Messages
	r.mux.HandleFunc("POST /api/bookings/{id}/messages", h.Messages.SendMessage)
	r.mux.HandleFunc("GET /api/bookings/{id}/messages", h.Messages.ListMessages)
	r.mux.HandleFunc("POST /api/messages/{id}/read", h.Messages.MarkRead)

	// Notification stream
	if h.Events != nil {
		r.mux.HandleFunc("GET /api/me/events", h.Events.StreamMyEvents)
	}

	// Apply middleware in reverse order (last middleware wraps first).
	// Auth sits outside logging and idempotency so both see the identity.
	var handler http.Handler = r.mux
	handler = loaders.Middleware(r.store)(handler)
	if r.idempotency != nil {
		handler = r.idempotency.Middleware(handler)
	}
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.AuthMiddleware(r.tokens)(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.RouteMiddleware(r.mux)(handler)
	handler = middleware.CORSMiddleware(r.origins)(handler)

	return handler
}
