package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"farmstand/internal/model"

	"github.com/rs/zerolog"
)

// Client is the outbound surface of the hosted payment processor.
type Client interface {
	// CreateCheckoutSession requests a hosted checkout page for the given
	// line items and returns the session to redirect the buyer to.
	CreateCheckoutSession(ctx context.Context, req *CreateSessionRequest) (*CheckoutSession, error)

	// GetCheckoutSession retrieves a session's current payment status.
	GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error)

	// GetPayment retrieves a payment record by its handle.
	GetPayment(ctx context.Context, paymentID string) (*PaymentIntent, error)

	// UpdatePayment applies a partial update to a payment record.
	UpdatePayment(ctx context.Context, paymentID string, req *UpdatePaymentRequest) (*PaymentIntent, error)
}

// httpClient implements Client against the processor's REST API.
type httpClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  zerolog.Logger
}

// NewClient creates a payment processor client. Every call carries a bounded
// timeout; a timeout surfaces as a retryable external-service error, never as
// a silent success.
func NewClient(baseURL, apiKey string, timeout time.Duration, logger zerolog.Logger) Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &httpClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "payment-client").Logger(),
	}
}

func (c *httpClient) CreateCheckoutSession(ctx context.Context, req *CreateSessionRequest) (*CheckoutSession, error) {
	var session CheckoutSession
	if err := c.do(ctx, http.MethodPost, "/v1/checkout/sessions", req, &session); err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	c.logger.Info().
		Str("session_id", session.ID).
		Int("line_items", len(req.LineItems)).
		Msg("checkout session created")

	return &session, nil
}

func (c *httpClient) GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	var session CheckoutSession
	path := "/v1/checkout/sessions/" + sessionID
	if err := c.do(ctx, http.MethodGet, path, nil, &session); err != nil {
		return nil, fmt.Errorf("failed to retrieve checkout session %s: %w", sessionID, err)
	}
	return &session, nil
}

func (c *httpClient) GetPayment(ctx context.Context, paymentID string) (*PaymentIntent, error) {
	var intent PaymentIntent
	path := "/v1/payments/" + paymentID
	if err := c.do(ctx, http.MethodGet, path, nil, &intent); err != nil {
		return nil, fmt.Errorf("failed to retrieve payment %s: %w", paymentID, err)
	}
	return &intent, nil
}

func (c *httpClient) UpdatePayment(ctx context.Context, paymentID string, req *UpdatePaymentRequest) (*PaymentIntent, error) {
	var intent PaymentIntent
	path := "/v1/payments/" + paymentID
	if err := c.do(ctx, http.MethodPost, path, req, &intent); err != nil {
		return nil, fmt.Errorf("failed to update payment %s: %w", paymentID, err)
	}
	return &intent, nil
}

// do issues one JSON request against the processor and decodes the response
// into out. Transport failures and non-2xx responses are returned as
// external-service errors so callers surface them as retryable.
func (c *httpClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error().Err(err).
			Str("method", method).
			Str("path", path).
			Msg("payment processor request failed")
		return fmt.Errorf("%w: %v", errProcessorUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Error().
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode).
			Str("body", string(respBody)).
			Msg("payment processor rejected request")
		return model.NewDomainError(model.ErrCodeExternalService,
			fmt.Sprintf("payment processor returned status %d", resp.StatusCode))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode processor response: %w", err)
		}
	}

	return nil
}

var errProcessorUnreachable = model.NewDomainError(model.ErrCodeExternalService,
	"payment processor is unreachable, try again")
