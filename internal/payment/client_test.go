package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"farmstand/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_CreateCheckoutSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_key", r.Header.Get("Authorization"))

		var req CreateSessionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Len(t, req.LineItems, 2)
		assert.Equal(t, "buyer@example.com", req.CustomerEmail)
		assert.NotEmpty(t, req.Metadata[MetadataOrderIDKey])

		json.NewEncoder(w).Encode(CheckoutSession{
			ID:  "cs_live_1",
			URL: "https://pay.example.com/cs_live_1",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "sk_test_key", 5*time.Second, zerolog.Nop())

	session, err := client.CreateCheckoutSession(context.Background(), &CreateSessionRequest{
		LineItems: []LineItem{
			{Name: "Honeycrisp Box", UnitAmountCents: 2500, Quantity: 2},
			{Name: "Shipping", UnitAmountCents: 599, Quantity: 1},
		},
		SuccessURL:    "https://farm.example.com/success?session_id={SESSION_ID}",
		CancelURL:     "https://farm.example.com/cart",
		CustomerEmail: "buyer@example.com",
		Metadata:      map[string]string{MetadataOrderIDKey: "ord-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_live_1", session.ID)
	assert.Equal(t, "https://pay.example.com/cs_live_1", session.URL)
}

func TestClient_GetCheckoutSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/checkout/sessions/cs_live_1", r.URL.Path)
		json.NewEncoder(w).Encode(CheckoutSession{ID: "cs_live_1", PaymentStatus: PaymentStatusPaid})
	}))
	defer server.Close()

	client := NewClient(server.URL, "sk_test_key", 5*time.Second, zerolog.Nop())

	session, err := client.GetCheckoutSession(context.Background(), "cs_live_1")
	require.NoError(t, err)
	assert.True(t, session.Paid())
}

func TestClient_RejectionIsExternalServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid line item"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(server.URL, "sk_test_key", 5*time.Second, zerolog.Nop())

	_, err := client.CreateCheckoutSession(context.Background(), &CreateSessionRequest{})
	require.Error(t, err)

	var domainErr *model.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, model.ErrCodeExternalService, domainErr.Code)
}

func TestClient_UnreachableProcessor(t *testing.T) {
	// A closed server makes every request fail at the transport level.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(server.URL, "sk_test_key", time.Second, zerolog.Nop())

	_, err := client.GetPayment(context.Background(), "pay_1")
	require.Error(t, err)

	var domainErr *model.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, model.ErrCodeExternalService, domainErr.Code)
}
