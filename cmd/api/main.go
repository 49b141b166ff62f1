package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/servicemarket/internal/adapters/cache"
	"github.com/zatekoja/servicemarket/internal/adapters/database"
	"github.com/zatekoja/servicemarket/internal/adapters/events"
	"github.com/zatekoja/servicemarket/internal/adapters/memory"
	"github.com/zatekoja/servicemarket/internal/adapters/payments"
	"github.com/zatekoja/servicemarket/internal/adapters/search"
	"github.com/zatekoja/servicemarket/internal/api/handlers"
	"github.com/zatekoja/servicemarket/internal/api/middleware"
	"github.com/zatekoja/servicemarket/internal/api/routes"
	"github.com/zatekoja/servicemarket/internal/application/services"
	"github.com/zatekoja/servicemarket/internal/domain/entities"
	"github.com/zatekoja/servicemarket/internal/domain/providers"
	"github.com/zatekoja/servicemarket/internal/domain/repositories"
	"github.com/zatekoja/servicemarket/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/servicemarket/internal/infrastructure/clients/redis"
	"github.com/zatekoja/servicemarket/internal/infrastructure/clients/typesense"
	"github.com/zatekoja/servicemarket/internal/infrastructure/observability"
	"github.com/zatekoja/servicemarket/pkg/auth"
	"github.com/zatekoja/servicemarket/pkg/config"
)

const (
	lruCacheSize = 10000
	lruMaxTTL    = 24 * time.Hour
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Env, cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
			log.Info().Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	store, closeStore, err := openStore(ctx, cfg, metrics)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("failed to open store")
	}
	defer closeStore()

	// Redis backs the cache and the event bus when reachable; a single
	// instance falls back to in-process equivalents.
	var cacheProvider providers.CacheProvider
	var eventBus providers.EventBus
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable; using in-process cache and event bus")
		} else {
			defer redisClient.Close()
			cacheProvider = cache.NewRedisAdapter(redisClient)
			eventBus = events.NewRedisEventBus(redisClient)
			log.Info().Str("addr", cfg.Redis.RedisAddr()).Msg("Redis client initialized")
		}
	}
	if cacheProvider == nil {
		cacheProvider = cache.NewLRUAdapter(lruCacheSize, lruMaxTTL)
		eventBus = events.NewLocalEventBus()
	}

	var searchRepo repositories.ProviderSearchRepository
	if cfg.Typesense.Enabled {
		typesenseClient, err := typesense.NewClient(ctx, &cfg.Typesense)
		if err != nil {
			log.Warn().Err(err).Msg("Typesense unavailable; provider search disabled")
		} else {
			adapter := search.NewTypesenseAdapter(typesenseClient)
			if err := adapter.InitSchema(ctx); err != nil {
				log.Warn().Err(err).Msg("failed to init Typesense schema")
			}
			searchRepo = adapter
		}
	}

	gateway, payouts := newPayments(cfg.Payments)

	// Services
	dispatcher := services.NewSideEffectDispatcher(store.SideEffects(), cfg.SideEffects, cfg.Payments.CallTimeout, metrics)
	searchService := services.NewSearchService(store, searchRepo)
	accountService := services.NewAccountService(store, cacheProvider, searchService)
	accountService.SetMetrics(metrics)
	catalogService := services.NewCatalogService(store)
	availabilityService := services.NewAvailabilityService(store, cfg.Booking.DefaultDuration)
	bookingService := services.NewBookingService(store, availabilityService, cfg.Booking, dispatcher, metrics)
	paymentService := services.NewPaymentService(store, gateway, payouts, cfg.Booking.MaxCASRetries, dispatcher)
	reviewService := services.NewReviewService(store, cfg.Booking, dispatcher, searchService)
	messageService := services.NewMessageService(store, dispatcher)
	notificationService := services.NewNotificationService(eventBus)

	dispatcher.Register(entities.SideEffectNotify, notificationService.HandleNotify)
	dispatcher.Register(entities.SideEffectCapturePayment, paymentService.HandleCapture)
	dispatcher.Register(entities.SideEffectRefundPayment, paymentService.HandleRefund)
	dispatcher.Register(entities.SideEffectRequestPayout, paymentService.HandlePayout)
	dispatcher.Start()

	sweeper := services.NewExpirySweeper(bookingService, cfg.Booking.ExpirySweepEvery)
	sweeper.Start()

	// Handlers
	validate, err := handlers.NewRequestValidator()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build request validator")
	}

	router := routes.NewRouter(
		routes.Handlers{
			Accounts:     handlers.NewAccountHandler(accountService, validate),
			Catalog:      handlers.NewCatalogHandler(catalogService, validate),
			Availability: handlers.NewAvailabilityHandler(availabilityService, validate),
			Bookings:     handlers.NewBookingHandler(bookingService, validate),
			Payments:     handlers.NewPaymentHandler(paymentService, validate),
			Reviews:      handlers.NewReviewHandler(reviewService, validate),
			Messages:     handlers.NewMessageHandler(messageService, validate),
			Search:       handlers.NewSearchHandler(searchService),
			Events:       handlers.NewSSEHandler(eventBus),
		},
		store,
		auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		middleware.NewIdempotencyMiddleware(cacheProvider, cfg.Server.IdempotencyTTL),
		cfg.Server.AllowedOrigins,
		metrics,
	)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           router.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// No write timeout: /api/me/events streams for as long as the client stays.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Str("store", cfg.Database.Driver).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Closing the bus ends open event streams so Shutdown does not wait on them.
	if err := eventBus.Close(); err != nil {
		log.Error().Err(err).Msg("error closing event bus")
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	sweeper.Stop()
	dispatcher.Stop()

	log.Info().Msg("server stopped")
}

// openStore returns the configured store and a function releasing it
func openStore(ctx context.Context, cfg *config.Config, metrics *observability.Metrics) (repositories.Store, func(), error) {
	if cfg.Database.Driver == "memory" {
		log.Warn().Msg("using the in-memory store; data is lost on restart")
		return memory.NewStore(), func() {}, nil
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, pgClient); err != nil {
			pgClient.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		log.Info().Msg("database schema applied")
	}
	log.Info().Str("host", cfg.Database.Host).Str("database", cfg.Database.Database).Msg("PostgreSQL client initialized")
	return database.NewStore(pgClient, metrics), func() { pgClient.Close() }, nil
}

func newPayments(cfg config.PaymentsConfig) (providers.PaymentGateway, providers.PayoutProvider) {
	if cfg.Provider == "http" {
		g := payments.NewHTTPGateway(cfg)
		log.Info().Str("url", cfg.GatewayURL).Msg("using HTTP payment gateway")
		return g, g
	}
	log.Warn().Msg("using the mock payment gateway")
	g := payments.NewMockGateway()
	return g, g
}
