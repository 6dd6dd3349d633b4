package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"farmstand/internal/model"
	"farmstand/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// OrderHandler handles administrative order HTTP requests.
type OrderHandler struct {
	service service.OrderService
	logger  zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service service.OrderService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger.With().Str("handler", "order").Logger(),
	}
}

// List handles GET /api/admin/orders requests, newest first.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", h.logger)
		return
	}

	limit, offset, err := parsePagination(r, 50)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	orders, err := h.service.List(r.Context(), limit, offset)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	if orders == nil {
		orders = []model.Order{}
	}

	writeJSON(w, http.StatusOK, orders)
}

// Order dispatches /api/admin/orders/{ref} and its action sub-paths:
//
//	GET   /api/admin/orders/{ref}          lookup by full ID or ID prefix
//	PATCH /api/admin/orders/{id}           free-form edit
//	POST  /api/admin/orders/{id}/cancel
//	POST  /api/admin/orders/{id}/ship
//	POST  /api/admin/orders/{id}/deliver
//	POST  /api/admin/orders/{id}/refund
func (h *OrderHandler) Order(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(r.URL.Path[len("/api/admin/orders/"):], "/")
	if rest == "" {
		writeError(w, http.StatusBadRequest, "order reference is required", h.logger)
		return
	}

	ref := rest
	action := ""
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		ref, action = rest[:i], rest[i+1:]
	}

	if action == "" {
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, ref)
		case http.MethodPatch:
			h.update(w, r, ref)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed", h.logger)
		}
		return
	}

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", h.logger)
		return
	}

	switch action {
	case "cancel":
		h.cancel(w, r, ref)
	case "ship":
		h.ship(w, r, ref)
	case "deliver":
		h.deliver(w, r, ref)
	case "refund":
		h.refund(w, r, ref)
	default:
		writeError(w, http.StatusNotFound, "unknown order action", h.logger)
	}
}

func (h *OrderHandler) get(w http.ResponseWriter, r *http.Request, ref string) {
	order, err := h.service.FindByReference(r.Context(), ref)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// orderID parses the path segment as a full order ID. Mutating operations
// never accept prefixes; the ambiguity shortcut is for lookups only.
func (h *OrderHandler) orderID(w http.ResponseWriter, ref string) (uuid.UUID, bool) {
	id, err := uuid.Parse(ref)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID format", h.logger)
		return uuid.Nil, false
	}
	return id, true
}

func (h *OrderHandler) cancel(w http.ResponseWriter, r *http.Request, ref string) {
	id, ok := h.orderID(w, ref)
	if !ok {
		return
	}
	order, err := h.service.Cancel(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) ship(w http.ResponseWriter, r *http.Request, ref string) {
	id, ok := h.orderID(w, ref)
	if !ok {
		return
	}
	var req model.ShipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", h.logger)
		return
	}
	order, err := h.service.Ship(r.Context(), id, &req)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) deliver(w http.ResponseWriter, r *http.Request, ref string) {
	id, ok := h.orderID(w, ref)
	if !ok {
		return
	}
	order, err := h.service.MarkDelivered(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) refund(w http.ResponseWriter, r *http.Request, ref string) {
	id, ok := h.orderID(w, ref)
	if !ok {
		return
	}
	var req model.RefundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", h.logger)
		return
	}
	order, err := h.service.Refund(r.Context(), id, &req)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) update(w http.ResponseWriter, r *http.Request, ref string) {
	id, ok := h.orderID(w, ref)
	if !ok {
		return
	}
	var req model.UpdateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", h.logger)
		return
	}
	order, err := h.service.Update(r.Context(), id, &req)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, order)
}
