package observability

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"

	"github.com/zatekoja/servicemarket/internal/domain/entities"
)

// InitLogger configures the global zerolog logger. Development gets a
// console writer; every other env logs JSON lines with caller info.
// An unknown level falls back to info.
func InitLogger(serviceName, env, level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if env == "development" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}).
			With().
			Timestamp().
			Str("service", serviceName).
			Logger()
		return
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	log.Logger = zerolog.New(os.Stdout).
		With().
		Timestamp().
		Caller().
		Str("service", serviceName).
		Str("env", env).
		Logger()
}

// LoggerFromContext returns the global logger decorated with the active
// span's ids and the caller's identity, when present
func LoggerFromContext(ctx context.Context) *zerolog.Logger {
	lc := log.With()

	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		lc = lc.Str("trace_id", sc.TraceID().String()).Str("span_id", sc.SpanID().String())
	}
	if id, ok := entities.IdentityFromContext(ctx); ok {
		lc = lc.Str("user_id", id.UserID).Str("role", string(id.Role))
	}

	logger := lc.Logger()
	return &logger
}

// GetLogger returns the global logger
func GetLogger() *zerolog.Logger {
	return &log.Logger
}
