package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"farmstand/internal/model"
	"farmstand/internal/payment"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

const testWebhookSecret = "whsec_test"

// signedWebhookRequest builds a webhook request with a valid signature over
// the body.
func signedWebhookRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", strings.NewReader(body))
	header := payment.SignatureHeaderValue([]byte(testWebhookSecret), time.Now().Unix(), []byte(body))
	req.Header.Set(payment.SignatureHeader, header)
	return req
}

func sessionCompletedBody(orderID, paymentID string) string {
	return fmt.Sprintf(`{
		"id": "evt_1",
		"type": "checkout_session_completed",
		"data": {"object": {
			"id": "cs_1",
			"payment_status": "paid",
			"payment_id": %q,
			"payment_method": "card",
			"metadata": {"order_id": %q}
		}}
	}`, paymentID, orderID)
}

func TestWebhook_RejectsInvalidSignature(t *testing.T) {
	mockOrders := new(MockOrderService)
	handler := NewWebhookHandler(mockOrders, nil, testWebhookSecret, zerolog.Nop())

	body := sessionCompletedBody(uuid.New().String(), "pay_1")

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"garbage header", "not-a-signature"},
		{"wrong secret", payment.SignatureHeaderValue([]byte("whsec_other"), time.Now().Unix(), []byte(body))},
		{"stale timestamp", payment.SignatureHeaderValue([]byte(testWebhookSecret), time.Now().Add(-time.Hour).Unix(), []byte(body))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", strings.NewReader(body))
			if tt.header != "" {
				req.Header.Set(payment.SignatureHeader, tt.header)
			}
			w := httptest.NewRecorder()

			handler.Handle(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			mockOrders.AssertNotCalled(t, "ConfirmPayment", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			mockOrders.AssertNotCalled(t, "FailPayment", mock.Anything, mock.Anything)
		})
	}
}

func TestWebhook_RejectsTamperedBody(t *testing.T) {
	mockOrders := new(MockOrderService)
	handler := NewWebhookHandler(mockOrders, nil, testWebhookSecret, zerolog.Nop())

	body := sessionCompletedBody(uuid.New().String(), "pay_1")
	tampered := strings.Replace(body, "pay_1", "pay_2", 1)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", strings.NewReader(tampered))
	req.Header.Set(payment.SignatureHeader,
		payment.SignatureHeaderValue([]byte(testWebhookSecret), time.Now().Unix(), []byte(body)))
	w := httptest.NewRecorder()

	handler.Handle(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockOrders.AssertNotCalled(t, "ConfirmPayment", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestWebhook_SessionCompletedConfirmsPayment(t *testing.T) {
	orderID := uuid.New()
	mockOrders := new(MockOrderService)
	mockOrders.On("ConfirmPayment", mock.Anything, orderID, "pay_1", "card").Return(nil)
	handler := NewWebhookHandler(mockOrders, nil, testWebhookSecret, zerolog.Nop())

	w := httptest.NewRecorder()
	handler.Handle(w, signedWebhookRequest(sessionCompletedBody(orderID.String(), "pay_1")))

	assert.Equal(t, http.StatusOK, w.Code)
	mockOrders.AssertExpectations(t)
}

func TestWebhook_SessionCompletedMissingOrderID(t *testing.T) {
	mockOrders := new(MockOrderService)
	handler := NewWebhookHandler(mockOrders, nil, testWebhookSecret, zerolog.Nop())

	body := `{
		"id": "evt_1",
		"type": "checkout_session_completed",
		"data": {"object": {"id": "cs_1", "payment_status": "paid", "metadata": {}}}
	}`

	w := httptest.NewRecorder()
	handler.Handle(w, signedWebhookRequest(body))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	mockOrders.AssertNotCalled(t, "ConfirmPayment", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestWebhook_SessionCompletedConflictAcknowledged(t *testing.T) {
	orderID := uuid.New()
	mockOrders := new(MockOrderService)
	mockOrders.On("ConfirmPayment", mock.Anything, orderID, "pay_1", "card").
		Return(model.NewConflictError("order is cancelled"))
	handler := NewWebhookHandler(mockOrders, nil, testWebhookSecret, zerolog.Nop())

	w := httptest.NewRecorder()
	handler.Handle(w, signedWebhookRequest(sessionCompletedBody(orderID.String(), "pay_1")))

	// Retrying a conflicting confirmation never succeeds; the event is
	// acknowledged so the processor stops resending it.
	assert.Equal(t, http.StatusOK, w.Code)
	mockOrders.AssertExpectations(t)
}

func TestWebhook_SessionCompletedStorageFailureRetries(t *testing.T) {
	orderID := uuid.New()
	mockOrders := new(MockOrderService)
	mockOrders.On("ConfirmPayment", mock.Anything, orderID, "pay_1", "card").
		Return(fmt.Errorf("connection reset"))
	handler := NewWebhookHandler(mockOrders, nil, testWebhookSecret, zerolog.Nop())

	w := httptest.NewRecorder()
	handler.Handle(w, signedWebhookRequest(sessionCompletedBody(orderID.String(), "pay_1")))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestWebhook_PaymentFailedIsBenignWithoutMatch(t *testing.T) {
	mockOrders := new(MockOrderService)
	mockOrders.On("FailPayment", mock.Anything, "pay_gone").Return(false, nil)
	handler := NewWebhookHandler(mockOrders, nil, testWebhookSecret, zerolog.Nop())

	body := `{
		"id": "evt_2",
		"type": "payment_intent_payment_failed",
		"data": {"object": {"id": "pay_gone", "status": "failed"}}
	}`

	w := httptest.NewRecorder()
	handler.Handle(w, signedWebhookRequest(body))

	assert.Equal(t, http.StatusOK, w.Code)
	mockOrders.AssertExpectations(t)
}

func TestWebhook_UnknownEventTypeAcknowledged(t *testing.T) {
	mockOrders := new(MockOrderService)
	handler := NewWebhookHandler(mockOrders, nil, testWebhookSecret, zerolog.Nop())

	body := `{
		"id": "evt_3",
		"type": "invoice_paid",
		"data": {"object": {"id": "inv_1"}}
	}`

	w := httptest.NewRecorder()
	handler.Handle(w, signedWebhookRequest(body))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"received":true`)
	mockOrders.AssertNotCalled(t, "ConfirmPayment", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	mockOrders.AssertNotCalled(t, "FailPayment", mock.Anything, mock.Anything)
}

func TestWebhook_MethodNotAllowed(t *testing.T) {
	handler := NewWebhookHandler(new(MockOrderService), nil, testWebhookSecret, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/webhooks/payment", nil)
	w := httptest.NewRecorder()
	handler.Handle(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
