package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"github.com/zatekoja/servicemarket/internal/domain/entities"
	"github.com/zatekoja/servicemarket/internal/domain/providers"
	"github.com/zatekoja/servicemarket/internal/infrastructure/observability"
	"github.com/zatekoja/servicemarket/pkg/config"
	apperrors "github.com/zatekoja/servicemarket/pkg/errors"
)

// HTTPGateway talks to a JSON payment service. It implements both the
// gateway and the payout ports; every call goes through one circuit breaker.
type HTTPGateway struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

var (
	_ providers.PaymentGateway = (*HTTPGateway)(nil)
	_ providers.PayoutProvider = (*HTTPGateway)(nil)
)

type captureRequest struct {
	BookingID string `json:"booking_id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
}

type captureResponse struct {
	Status    string `json:"status"`
	Reference string `json:"reference"`
	Reason    string `json:"reason,omitempty"`
}

type refundRequest struct {
	TransactionID string `json:"transaction_id"`
	Reference     string `json:"reference"`
}

type payoutRequest struct {
	TransactionID string `json:"transaction_id"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
}

type payoutResponse struct {
	Status string `json:"status"`
}

// clientError is a 4xx answer. It is returned through the breaker as a
// value so that bad requests do not open the circuit.
type clientError struct {
	status int
	body   string
}

// NewHTTPGateway creates a payment client for cfg.GatewayURL
func NewHTTPGateway(cfg config.PaymentsConfig) *HTTPGateway {
	maxFailures := uint32(cfg.BreakerMaxFailures)
	if maxFailures == 0 {
		maxFailures = 5
	}
	settings := gobreaker.Settings{
		Name:        "payments",
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpenInterval,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			observability.GetLogger().Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("payment circuit breaker changed state")
		},
	}

	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &HTTPGateway{
		baseURL: strings.TrimRight(cfg.GatewayURL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// Capture settles a booking amount
func (g *HTTPGateway) Capture(ctx context.Context, bookingID string, amount int64, currency string) (*providers.CaptureResult, error) {
	var out captureResponse
	err := g.doJSON(ctx, "/v1/captures", bookingID+":capture", captureRequest{
		BookingID: bookingID,
		Amount:    amount,
		Currency:  currency,
	}, &out)
	if err != nil {
		return nil, err
	}

	status := entities.PaymentStatus(out.Status)
	switch status {
	case entities.PaymentCaptured, entities.PaymentFailed:
	default:
		return nil, fmt.Errorf("unexpected capture status %q", out.Status)
	}
	return &providers.CaptureResult{Status: status, Reference: out.Reference, Reason: out.Reason}, nil
}

// Refund returns a captured payment to the customer
func (g *HTTPGateway) Refund(ctx context.Context, transactionID, reference string) error {
	return g.doJSON(ctx, "/v1/refunds", transactionID+":refund", refundRequest{
		TransactionID: transactionID,
		Reference:     reference,
	}, nil)
}

// RequestPayout submits a provider payout
func (g *HTTPGateway) RequestPayout(ctx context.Context, tx *entities.Transaction) (entities.PayoutStatus, error) {
	var out payoutResponse
	err := g.doJSON(ctx, "/v1/payouts", tx.ID+":payout", payoutRequest{
		TransactionID: tx.ID,
		Amount:        tx.PayoutAmount(),
		Currency:      tx.Currency,
	}, &out)
	if err != nil {
		return "", err
	}

	status := entities.PayoutStatus(out.Status)
	switch status {
	case entities.PayoutPending, entities.PayoutProcessing, entities.PayoutPaid, entities.PayoutFailed:
		return status, nil
	default:
		return "", fmt.Errorf("unexpected payout status %q", out.Status)
	}
}

func (g *HTTPGateway) doJSON(ctx context.Context, path, idempotencyKey string, in, out interface{}) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}

	res, err := g.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Idempotency-Key", idempotencyKey)
		if g.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+g.apiKey)
		}

		resp, err := g.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("payment service returned status %d", resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			return &clientError{status: resp.StatusCode, body: strings.TrimSpace(string(body))}, nil
		}
		return body, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return apperrors.NewExternalError("payment service unavailable", err)
		}
		return err
	}

	switch v := res.(type) {
	case *clientError:
		return apperrors.NewValidationError(fmt.Sprintf("payment service rejected %s with status %d: %s", path, v.status, v.body))
	case []byte:
		if out == nil || len(v) == 0 {
			return nil
		}
		if err := json.Unmarshal(v, out); err != nil {
			return fmt.Errorf("failed to decode payment service response: %w", err)
		}
	}
	return nil
}

// State exposes the breaker state for health reporting
func (g *HTTPGateway) State() string {
	return g.breaker.State().String()
}
