package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Env         string
	LogLevel    string
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Typesense   TypesenseConfig
	OTEL        OTELConfig
	Auth        AuthConfig
	Booking     BookingConfig
	Payments    PaymentsConfig
	SideEffects SideEffectsConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host            string
	Port            int
	AllowedOrigins  []string
	IdempotencyTTL  time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver      string // postgres | memory
	Host        string
	Port        int
	User        string
	Password    string
	Database    string
	SSLMode     string
	AutoMigrate bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled     bool
	Host        string
	Port        int
	Password    string
	DB          int
	PoolSize    int
	DialTimeout time.Duration
}

// TypesenseConfig holds Typesense configuration
type TypesenseConfig struct {
	Enabled bool
	URL     string
	APIKey  string
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// AuthConfig holds identity token settings
type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

// BookingConfig holds booking lifecycle policy knobs
type BookingConfig struct {
	StartGraceWindow   time.Duration
	RequestTTL         time.Duration
	DefaultDuration    time.Duration
	MaxCASRetries      int
	RatingMin          int
	RatingMax          int
	Currency           string
	PlatformFeeBps     int
	CancellationWindow time.Duration
	CancellationFeeBps int
	ExpirySweepEvery   time.Duration
}

// PaymentsConfig holds payment gateway and payout settings
type PaymentsConfig struct {
	Provider            string // mock | http
	GatewayURL          string
	APIKey              string
	CallTimeout         time.Duration
	BreakerMaxFailures  int
	BreakerOpenInterval time.Duration
}

// SideEffectsConfig holds outbox dispatcher settings
type SideEffectsConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// A missing .env file is fine; real deployments inject the environment.
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			AllowedOrigins:  getEnvAsList("ALLOWED_ORIGINS", []string{"*"}),
			IdempotencyTTL:  getEnvAsDuration("IDEMPOTENCY_TTL", 24*time.Hour),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			Driver:      getEnv("DB_DRIVER", "postgres"),
			Host:        getEnv("DB_HOST", "localhost"),
			Port:        getEnvAsInt("DB_PORT", 5432),
			User:        getEnv("DB_USER", "postgres"),
			Password:    getEnv("DB_PASSWORD", ""),
			Database:    getEnv("DB_NAME", "servicemarket"),
			SSLMode:     getEnv("DB_SSLMODE", "disable"),
			AutoMigrate: getEnvAsBool("DB_AUTO_MIGRATE", false),
		},
		Redis: RedisConfig{
			Enabled:     getEnvAsBool("REDIS_ENABLED", true),
			Host:        getEnv("REDIS_HOST", "localhost"),
			Port:        getEnvAsInt("REDIS_PORT", 6379),
			Password:    getEnv("REDIS_PASSWORD", ""),
			DB:          getEnvAsInt("REDIS_DB", 0),
			PoolSize:    getEnvAsInt("REDIS_POOL_SIZE", 20),
			DialTimeout: getEnvAsDuration("REDIS_DIAL_TIMEOUT", 3*time.Second),
		},
		Typesense: TypesenseConfig{
			Enabled: getEnvAsBool("TYPESENSE_ENABLED", true),
			URL:     getEnv("TYPESENSE_URL", "http://localhost:8108"),
			APIKey:  getEnv("TYPESENSE_API_KEY", "xyz"),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "servicemarket-api"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", "dev-secret-change-me"),
			Issuer:    getEnv("JWT_ISSUER", ""),
		},
		Booking: BookingConfig{
			StartGraceWindow:   getEnvAsDuration("BOOKING_START_GRACE", 15*time.Minute),
			RequestTTL:         getEnvAsDuration("BOOKING_REQUEST_TTL", 48*time.Hour),
			DefaultDuration:    getEnvAsDuration("BOOKING_DEFAULT_DURATION", time.Hour),
			MaxCASRetries:      getEnvAsInt("BOOKING_MAX_CAS_RETRIES", 5),
			RatingMin:          getEnvAsInt("REVIEW_RATING_MIN", 1),
			RatingMax:          getEnvAsInt("REVIEW_RATING_MAX", 5),
			Currency:           getEnv("BOOKING_CURRENCY", "USD"),
			PlatformFeeBps:     getEnvAsInt("PLATFORM_FEE_BPS", 1000),
			CancellationWindow: getEnvAsDuration("CANCELLATION_WINDOW", 24*time.Hour),
			CancellationFeeBps: getEnvAsInt("CANCELLATION_FEE_BPS", 2000),
			ExpirySweepEvery:   getEnvAsDuration("BOOKING_EXPIRY_SWEEP", 5*time.Minute),
		},
		Payments: PaymentsConfig{
			Provider:            getEnv("PAYMENTS_PROVIDER", "mock"),
			GatewayURL:          getEnv("PAYMENTS_GATEWAY_URL", ""),
			APIKey:              getEnv("PAYMENTS_API_KEY", ""),
			CallTimeout:         getEnvAsDuration("PAYMENTS_CALL_TIMEOUT", 10*time.Second),
			BreakerMaxFailures:  getEnvAsInt("PAYMENTS_BREAKER_MAX_FAILURES", 5),
			BreakerOpenInterval: getEnvAsDuration("PAYMENTS_BREAKER_OPEN_INTERVAL", 30*time.Second),
		},
		SideEffects: SideEffectsConfig{
			PollInterval: getEnvAsDuration("SIDE_EFFECTS_POLL_INTERVAL", 2*time.Second),
			BatchSize:    getEnvAsInt("SIDE_EFFECTS_BATCH_SIZE", 50),
			MaxAttempts:  getEnvAsInt("SIDE_EFFECTS_MAX_ATTEMPTS", 12),
			InitialDelay: getEnvAsDuration("SIDE_EFFECTS_INITIAL_DELAY", time.Second),
			MaxDelay:     getEnvAsDuration("SIDE_EFFECTS_MAX_DELAY", 10*time.Minute),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the services cannot operate with
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if c.Booking.RatingMin > c.Booking.RatingMax {
		return fmt.Errorf("REVIEW_RATING_MIN (%d) exceeds REVIEW_RATING_MAX (%d)", c.Booking.RatingMin, c.Booking.RatingMax)
	}
	if c.Booking.MaxCASRetries < 1 {
		return fmt.Errorf("BOOKING_MAX_CAS_RETRIES must be at least 1")
	}
	if c.Booking.PlatformFeeBps < 0 || c.Booking.PlatformFeeBps > 10000 {
		return fmt.Errorf("PLATFORM_FEE_BPS must be within 0..10000")
	}
	if c.Booking.CancellationFeeBps < 0 || c.Booking.CancellationFeeBps > 10000 {
		return fmt.Errorf("CANCELLATION_FEE_BPS must be within 0..10000")
	}
	if c.Booking.DefaultDuration <= 0 {
		return fmt.Errorf("BOOKING_DEFAULT_DURATION must be positive")
	}
	if c.SideEffects.MaxAttempts < 1 || c.SideEffects.BatchSize < 1 {
		return fmt.Errorf("side effect attempts and batch size must be positive")
	}
	if c.Payments.Provider == "http" && c.Payments.GatewayURL == "" {
		return fmt.Errorf("PAYMENTS_GATEWAY_URL is required for the http payments provider")
	}
	return nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
