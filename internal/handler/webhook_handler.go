package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"farmstand/internal/archive"
	"farmstand/internal/model"
	"farmstand/internal/payment"
	"farmstand/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// maxWebhookBodyBytes bounds the raw payload read for signature verification.
const maxWebhookBodyBytes = 1 << 20

// WebhookHandler receives payment processor webhook events. The response
// status is the retry contract: the processor retries anything non-2xx, so
// transient failures return 500 and everything the handler cannot or need
// not act on is acknowledged with 200.
type WebhookHandler struct {
	orders    service.OrderService
	archiver  archive.Archiver
	secret    []byte
	tolerance time.Duration
	logger    zerolog.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(orders service.OrderService, archiver archive.Archiver, secret string, logger zerolog.Logger) *WebhookHandler {
	if archiver == nil {
		archiver = archive.NewNopArchiver()
	}
	return &WebhookHandler{
		orders:    orders,
		archiver:  archiver,
		secret:    []byte(secret),
		tolerance: payment.DefaultSignatureTolerance,
		logger:    logger.With().Str("handler", "webhook").Logger(),
	}
}

// ackResponse acknowledges an event without further action.
type ackResponse struct {
	Received bool `json:"received"`
}

// Handle handles POST /webhooks/payment requests.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", h.logger)
		return
	}

	// The signature covers the raw bytes, so the body must be read before
	// any decoding.
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body", h.logger)
		return
	}

	header := r.Header.Get(payment.SignatureHeader)
	if err := payment.VerifySignature(h.secret, header, body, time.Now(), h.tolerance); err != nil {
		h.logger.Warn().Err(err).Msg("webhook signature rejected")
		writeError(w, http.StatusBadRequest, "invalid signature", h.logger)
		return
	}

	event, err := payment.ParseEvent(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event payload", h.logger)
		return
	}

	// Audit trail for every verified event, delivered or not. Best-effort.
	if err := h.archiver.Archive(r.Context(), event.ID, event.Type, body); err != nil {
		h.logger.Warn().Err(err).Str("event_id", event.ID).Msg("failed to archive webhook event")
	}

	switch event.Type {
	case payment.EventCheckoutSessionCompleted:
		h.handleSessionCompleted(w, r, event)
	case payment.EventPaymentIntentFailed:
		h.handlePaymentFailed(w, r, event)
	default:
		// Unknown event types are acknowledged so the processor does not
		// disable the endpoint; the local order record is untouched.
		h.logger.Info().
			Str("event_id", event.ID).
			Str("event_type", event.Type).
			Msg("ignoring unhandled webhook event type")
		writeJSON(w, http.StatusOK, ackResponse{Received: true})
	}
}

func (h *WebhookHandler) handleSessionCompleted(w http.ResponseWriter, r *http.Request, event *payment.Event) {
	session, err := event.CheckoutSession()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid checkout session payload", h.logger)
		return
	}

	orderID, err := uuid.Parse(session.Metadata[payment.MetadataOrderIDKey])
	if err != nil {
		// A completed session this system created always carries the order
		// ID; its absence means something is genuinely wrong, so let the
		// processor retry.
		h.logger.Error().
			Str("event_id", event.ID).
			Str("checkout_session_id", session.ID).
			Msg("completed session is missing an order ID")
		writeError(w, http.StatusInternalServerError, "session has no order reference", h.logger)
		return
	}

	err = h.orders.ConfirmPayment(r.Context(), orderID, session.PaymentID, session.PaymentMethod)
	if err != nil {
		var domainErr *model.DomainError
		if errors.As(err, &domainErr) && domainErr.Code == model.ErrCodeConflict {
			// The order has already left pending through another path, e.g.
			// an operator cancelled it mid-checkout. Retrying will never
			// succeed, so acknowledge and leave the conflict to operators.
			h.logger.Warn().
				Err(err).
				Str("order_id", orderID.String()).
				Msg("payment confirmation conflicts with current order state")
			writeJSON(w, http.StatusOK, ackResponse{Received: true})
			return
		}
		h.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to confirm payment")
		writeError(w, http.StatusInternalServerError, "failed to confirm payment", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, ackResponse{Received: true})
}

func (h *WebhookHandler) handlePaymentFailed(w http.ResponseWriter, r *http.Request, event *payment.Event) {
	intent, err := event.PaymentIntent()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid payment intent payload", h.logger)
		return
	}

	if _, err := h.orders.FailPayment(r.Context(), intent.ID); err != nil {
		h.logger.Error().Err(err).Str("payment_id", intent.ID).Msg("failed to record payment failure")
		writeError(w, http.StatusInternalServerError, "failed to record payment failure", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, ackResponse{Received: true})
}
