package handler

import (
	"encoding/json"
	"net/http"

	"farmstand/internal/model"
	"farmstand/internal/service"

	"github.com/rs/zerolog"
)

// CheckoutHandler handles the buyer-facing checkout and return-trip flow.
type CheckoutHandler struct {
	service service.CheckoutService
	logger  zerolog.Logger
}

// NewCheckoutHandler creates a new checkout handler.
func NewCheckoutHandler(service service.CheckoutService, logger zerolog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		service: service,
		logger:  logger.With().Str("handler", "checkout").Logger(),
	}
}

// Checkout handles POST /api/checkout requests. It creates a pending order
// from the session's cart and responds with the hosted payment page URL.
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", h.logger)
		return
	}

	cartSessionID := r.Header.Get(CartSessionHeader)
	if cartSessionID == "" {
		writeError(w, http.StatusBadRequest, CartSessionHeader+" header is required", h.logger)
		return
	}

	var req model.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", h.logger)
		return
	}

	resp, err := h.service.Checkout(r.Context(), cartSessionID, &req)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// Verify handles GET /api/checkout/verify?session_id={id} requests: the
// return trip from the hosted payment page. Confirmation is idempotent and
// commutes with the webhook.
func (h *CheckoutHandler) Verify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", h.logger)
		return
	}

	checkoutSessionID := r.URL.Query().Get("session_id")
	if checkoutSessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required", h.logger)
		return
	}

	// The cart session is optional here: without it the paid cart just
	// expires on its own instead of being cleared.
	cartSessionID := r.Header.Get(CartSessionHeader)

	resp, err := h.service.Verify(r.Context(), checkoutSessionID, cartSessionID)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
