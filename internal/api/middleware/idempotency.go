package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/zatekoja/servicemarket/internal/domain/entities"
	"github.com/zatekoja/servicemarket/internal/domain/providers"
	"github.com/zatekoja/servicemarket/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/servicemarket/pkg/errors"
)

const (
	// IdempotencyHeader is the request header carrying the client's key
	IdempotencyHeader = "Idempotency-Key"
	// ReplayHeader marks a response served from the idempotency store
	ReplayHeader = "Idempotent-Replay"

	maxIdempotencyKeyLen = 255
)

// inFlightMarker is stored while the first request with a key is running
var inFlightMarker = []byte(`{"in_flight":true}`)

// storedResponse is the cached outcome of a completed request
type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// IdempotencyMiddleware replays the stored response of mutating requests
// that repeat an Idempotency-Key. Keys are scoped to the caller and route.
type IdempotencyMiddleware struct {
	cache providers.CacheProvider
	ttl   time.Duration
}

// NewIdempotencyMiddleware creates the middleware. Responses are kept for ttl.
func NewIdempotencyMiddleware(cache providers.CacheProvider, ttl time.Duration) *IdempotencyMiddleware {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyMiddleware{cache: cache, ttl: ttl}
}

// Middleware returns the idempotency handler
func (m *IdempotencyMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(IdempotencyHeader)
		if m.cache == nil || key == "" || !isMutating(r.Method) {
			next.ServeHTTP(w, r)
			return
		}
		if len(key) > maxIdempotencyKeyLen {
			writeError(w, http.StatusBadRequest, apperrors.ErrorTypeValidation, "Idempotency-Key is too long")
			return
		}

		ctx := r.Context()
		logger := observability.LoggerFromContext(ctx)
		cacheKey := m.cacheKey(r, key)
		ttlSeconds := int(m.ttl / time.Second)

		acquired, err := m.cache.SetNX(ctx, cacheKey, inFlightMarker, ttlSeconds)
		if err != nil {
			// Without the store the request still runs, just without replay protection.
			logger.Warn().Err(err).Str("key", cacheKey).Msg("idempotency store unavailable")
			next.ServeHTTP(w, r)
			return
		}

		if !acquired {
			m.replay(w, r, cacheKey)
			return
		}

		recorder := &responseRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
			body:           &bytes.Buffer{},
		}
		next.ServeHTTP(recorder, r)

		// Server failures release the key so the client can retry.
		if recorder.statusCode >= http.StatusInternalServerError {
			if err := m.cache.Delete(ctx, cacheKey); err != nil {
				logger.Warn().Err(err).Str("key", cacheKey).Msg("failed to release idempotency key")
			}
			return
		}

		stored, err := json.Marshal(storedResponse{
			Status:      recorder.statusCode,
			ContentType: recorder.Header().Get("Content-Type"),
			Body:        recorder.body.Bytes(),
		})
		if err == nil {
			err = m.cache.Set(ctx, cacheKey, stored, ttlSeconds)
		}
		if err != nil {
			logger.Warn().Err(err).Str("key", cacheKey).Msg("failed to store idempotent response")
		}
	})
}

func (m *IdempotencyMiddleware) replay(w http.ResponseWriter, r *http.Request, cacheKey string) {
	data, err := m.cache.Get(r.Context(), cacheKey)
	if err != nil || bytes.Equal(data, inFlightMarker) {
		writeError(w, http.StatusConflict, apperrors.ErrorTypeConflict, "a request with this Idempotency-Key is already in progress")
		return
	}

	var stored storedResponse
	if err := json.Unmarshal(data, &stored); err != nil {
		writeError(w, http.StatusConflict, apperrors.ErrorTypeConflict, "a request with this Idempotency-Key is already in progress")
		return
	}

	if stored.ContentType != "" {
		w.Header().Set("Content-Type", stored.ContentType)
	}
	w.Header().Set(ReplayHeader, "true")
	w.WriteHeader(stored.Status)
	_, _ = w.Write(stored.Body)
}

// cacheKey hashes the caller, method, path and client key
func (m *IdempotencyMiddleware) cacheKey(r *http.Request, key string) string {
	var user string
	if id, ok := entities.IdentityFromContext(r.Context()); ok {
		user = id.UserID
	}
	hash := sha256.Sum256([]byte(user + "\x00" + r.Method + "\x00" + r.URL.Path + "\x00" + key))
	return "idem:" + hex.EncodeToString(hash[:])
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func writeError(w http.ResponseWriter, status int, errType apperrors.ErrorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": message,
		"type":  string(errType),
	})
}

// responseRecorder captures the response while writing it through
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
	written    bool
}

// WriteHeader captures the status code
func (r *responseRecorder) WriteHeader(statusCode int) {
	if !r.written {
		r.statusCode = statusCode
		r.ResponseWriter.WriteHeader(statusCode)
		r.written = true
	}
}

// Write captures the response body and writes to the client
func (r *responseRecorder) Write(data []byte) (int, error) {
	if !r.written {
		r.WriteHeader(http.StatusOK)
	}
	r.body.Write(data)
	return r.ResponseWriter.Write(data)
}
