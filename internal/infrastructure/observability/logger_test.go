package observability

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"

	"github.com/zatekoja/servicemarket/internal/domain/entities"
)

func TestLoggerFromContext(t *testing.T) {
	var buf bytes.Buffer
	saved := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = saved })

	ctx := entities.ContextWithIdentity(context.Background(), entities.Identity{UserID: "prov-1", Role: entities.RoleProvider})
	LoggerFromContext(ctx).Info().Msg("accepted")
	assert.Contains(t, buf.String(), `"user_id":"prov-1"`)
	assert.Contains(t, buf.String(), `"role":"provider"`)
	assert.NotContains(t, buf.String(), "trace_id")

	buf.Reset()
	LoggerFromContext(context.Background()).Info().Msg("anonymous")
	assert.NotContains(t, buf.String(), "user_id")
}

func TestInitLogger_Level(t *testing.T) {
	saved := log.Logger
	t.Cleanup(func() {
		log.Logger = saved
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	})

	InitLogger("test", "production", "warn")
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	InitLogger("test", "production", "loud")
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
