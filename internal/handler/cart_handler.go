package handler

import (
	"encoding/json"
	"net/http"

	"farmstand/internal/cart"
	"farmstand/internal/model"
	"farmstand/internal/service"

	"github.com/rs/zerolog"
)

// CartSessionHeader carries the shopper's anonymous cart session identifier.
// The storefront generates it client-side and sends it on every cart request.
const CartSessionHeader = "X-Cart-Session"

// CartHandler handles cart HTTP requests. Every mutation round-trips through
// the store: load, mutate, save.
type CartHandler struct {
	store    cart.Store
	products service.ProductService
	logger   zerolog.Logger
}

// NewCartHandler creates a new cart handler.
func NewCartHandler(store cart.Store, products service.ProductService, logger zerolog.Logger) *CartHandler {
	return &CartHandler{
		store:    store,
		products: products,
		logger:   logger.With().Str("handler", "cart").Logger(),
	}
}

// cartResponse is the cart projection returned to the storefront.
type cartResponse struct {
	Items         []cart.Item `json:"items"`
	SubtotalCents int64       `json:"subtotalCents"`
}

// addItemRequest is the body for POST /api/cart/items.
type addItemRequest struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity"`
}

// updateItemRequest is the body for PUT /api/cart/items/{variantId}.
type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

func (h *CartHandler) sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	sessionID := r.Header.Get(CartSessionHeader)
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, CartSessionHeader+" header is required", h.logger)
		return "", false
	}
	return sessionID, true
}

func (h *CartHandler) respond(w http.ResponseWriter, c *cart.Cart) {
	items := c.Items
	if items == nil {
		items = []cart.Item{}
	}
	writeJSON(w, http.StatusOK, cartResponse{
		Items:         items,
		SubtotalCents: c.SubtotalCents(),
	})
}

// Cart handles GET and DELETE /api/cart requests.
func (h *CartHandler) Cart(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		c, err := h.store.Get(r.Context(), sessionID)
		if err != nil {
			writeDomainError(w, err, h.logger)
			return
		}
		h.respond(w, c)
	case http.MethodDelete:
		if err := h.store.Clear(r.Context(), sessionID); err != nil {
			writeDomainError(w, err, h.logger)
			return
		}
		h.respond(w, &cart.Cart{})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", h.logger)
	}
}

// Items handles POST /api/cart/items and PUT/DELETE /api/cart/items/{variantId}.
func (h *CartHandler) Items(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	// Expecting path: /api/cart/items or /api/cart/items/{variantId}
	variantID := ""
	if len(r.URL.Path) > len("/api/cart/items/") {
		variantID = r.URL.Path[len("/api/cart/items/"):]
	}

	switch {
	case r.Method == http.MethodPost && variantID == "":
		h.addItem(w, r, sessionID)
	case r.Method == http.MethodPut && variantID != "":
		h.updateItem(w, r, sessionID, variantID)
	case r.Method == http.MethodDelete && variantID != "":
		h.removeItem(w, r, sessionID, variantID)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", h.logger)
	}
}

func (h *CartHandler) addItem(w http.ResponseWriter, r *http.Request, sessionID string) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", h.logger)
		return
	}
	if req.ProductID == "" || req.VariantID == "" {
		writeError(w, http.StatusBadRequest, "productId and variantId are required", h.logger)
		return
	}
	if req.Quantity <= 0 {
		writeDomainError(w, model.ErrInvalidQuantity, h.logger)
		return
	}

	product, err := h.products.GetByID(r.Context(), req.ProductID)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	if product == nil {
		writeDomainError(w, model.ErrProductNotFound, h.logger)
		return
	}

	var variant *model.Variant
	for i := range product.Variants {
		if product.Variants[i].ID == req.VariantID {
			variant = &product.Variants[i]
			break
		}
	}
	if variant == nil {
		writeDomainError(w, model.ErrProductNotFound, h.logger)
		return
	}

	c, err := h.store.Get(r.Context(), sessionID)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	c.Add(cart.Item{
		ProductID:      product.ID,
		VariantID:      variant.ID,
		Name:           product.Name,
		Size:           variant.Size,
		UnitPriceCents: variant.PriceCents,
		Quantity:       req.Quantity,
		ImageURL:       product.ImageURL,
	})

	if err := h.store.Save(r.Context(), sessionID, c); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	h.respond(w, c)
}

func (h *CartHandler) updateItem(w http.ResponseWriter, r *http.Request, sessionID, variantID string) {
	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", h.logger)
		return
	}

	c, err := h.store.Get(r.Context(), sessionID)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	// Zero or negative removes the line.
	c.SetQuantity(variantID, req.Quantity)

	if err := h.store.Save(r.Context(), sessionID, c); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	h.respond(w, c)
}

func (h *CartHandler) removeItem(w http.ResponseWriter, r *http.Request, sessionID, variantID string) {
	c, err := h.store.Get(r.Context(), sessionID)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	c.Remove(variantID)

	if err := h.store.Save(r.Context(), sessionID, c); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	h.respond(w, c)
}
