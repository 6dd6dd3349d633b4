package service

import (
	"context"
	"fmt"
	"time"

	"farmstand/internal/cart"
	"farmstand/internal/model"
	"farmstand/internal/payment"
	"farmstand/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CheckoutConfig carries the checkout-time constants. The shipping fee is a
// flat amount for a single-location farm store, not computed from weight or
// distance. The success URL must contain SessionIDPlaceholder.
type CheckoutConfig struct {
	ShippingFeeCents int64
	SuccessURL       string
	CancelURL        string
}

// SessionIDPlaceholder is substituted by the processor with the session
// handle when redirecting the buyer back to the success URL.
const SessionIDPlaceholder = "{SESSION_ID}"

// checkoutService implements CheckoutService.
type checkoutService struct {
	cfg         CheckoutConfig
	carts       cart.Store
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	processor   payment.Client
	logger      zerolog.Logger
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(
	cfg CheckoutConfig,
	carts cart.Store,
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	processor payment.Client,
	logger zerolog.Logger,
) CheckoutService {
	return &checkoutService{
		cfg:         cfg,
		carts:       carts,
		orderRepo:   orderRepo,
		productRepo: productRepo,
		processor:   processor,
		logger:      logger.With().Str("service", "checkout").Logger(),
	}
}

// Checkout creates a pending order from the session's cart, then requests a
// hosted checkout page. A processor failure after the order is committed
// leaves the order pending with no session handle; that is deliberate: the
// buyer can retry and orphaned pending orders are cleaned up by operator
// inspection.
func (s *checkoutService) Checkout(ctx context.Context, cartSessionID string, req *model.CheckoutRequest) (*model.CheckoutResponse, error) {
	if err := validateCheckoutRequest(req); err != nil {
		return nil, err
	}

	shopperCart, err := s.carts.Get(ctx, cartSessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if shopperCart.Empty() {
		return nil, model.ErrEmptyCart
	}
	for _, item := range shopperCart.Items {
		if item.Quantity <= 0 {
			return nil, model.ErrInvalidQuantity
		}
	}

	// Snapshot line items from catalog prices, never from the client cart.
	variantIDs := make([]string, len(shopperCart.Items))
	for i, item := range shopperCart.Items {
		variantIDs[i] = item.VariantID
	}

	variants, err := s.productRepo.GetVariantsByIDs(ctx, variantIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cart variants: %w", err)
	}
	byVariant := make(map[string]model.CatalogVariant, len(variants))
	for _, v := range variants {
		byVariant[v.ID] = v
	}
	for _, id := range variantIDs {
		if _, ok := byVariant[id]; !ok {
			s.logger.Warn().Str("variant_id", id).Msg("cart references unknown variant")
			return nil, model.ErrProductNotFound
		}
	}

	now := time.Now()
	order := &model.Order{
		ID:     uuid.New(),
		Email:  req.Email,
		Status: model.StatusPending,
		Shipping: model.ShippingAddress{
			Name:       req.Name,
			Street:     req.Street,
			City:       req.City,
			State:      req.State,
			PostalCode: req.PostalCode,
			Phone:      req.Phone,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	items := make([]model.OrderItem, len(shopperCart.Items))
	var subtotal int64
	for i, line := range shopperCart.Items {
		v := byVariant[line.VariantID]
		items[i] = model.OrderItem{
			ID:             uuid.New(),
			OrderID:        order.ID,
			ProductID:      v.ProductID,
			VariantID:      v.ID,
			Name:           v.ProductName,
			Size:           v.Size,
			UnitPriceCents: v.PriceCents,
			Quantity:       line.Quantity,
		}
		subtotal += int64(line.Quantity) * v.PriceCents
	}
	order.AmountCents = subtotal + s.cfg.ShippingFeeCents

	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	if err = s.orderRepo.CreateOrder(ctx, tx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	if err = s.orderRepo.CreateOrderItems(ctx, tx, items); err != nil {
		return nil, fmt.Errorf("failed to create order items: %w", err)
	}
	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	session, err := s.processor.CreateCheckoutSession(ctx, s.buildSessionRequest(order, items))
	if err != nil {
		// The pending order stays behind with no session handle and the
		// checkout can be retried.
		s.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Msg("checkout session creation failed, order left pending")
		return nil, err
	}

	if err := s.orderRepo.SetSessionID(ctx, order.ID, session.ID); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("session_id", session.ID).
		Int64("amount_cents", order.AmountCents).
		Int("item_count", len(items)).
		Msg("checkout initiated")

	return &model.CheckoutResponse{
		OrderID:     order.ID,
		CheckoutURL: session.URL,
	}, nil
}

// buildSessionRequest maps the order's line items onto processor line items,
// with the shipping fee as its own line and the order ID in metadata so the
// webhook can reconcile the completed session.
func (s *checkoutService) buildSessionRequest(order *model.Order, items []model.OrderItem) *payment.CreateSessionRequest {
	lines := make([]payment.LineItem, 0, len(items)+1)
	for _, item := range items {
		name := item.Name
		if item.Size != "" {
			name = fmt.Sprintf("%s (%s)", item.Name, item.Size)
		}
		lines = append(lines, payment.LineItem{
			Name:            name,
			UnitAmountCents: item.UnitPriceCents,
			Quantity:        item.Quantity,
		})
	}
	lines = append(lines, payment.LineItem{
		Name:            "Shipping",
		UnitAmountCents: s.cfg.ShippingFeeCents,
		Quantity:        1,
	})

	return &payment.CreateSessionRequest{
		LineItems:     lines,
		SuccessURL:    s.cfg.SuccessURL,
		CancelURL:     s.cfg.CancelURL,
		CustomerEmail: order.Email,
		Metadata: map[string]string{
			payment.MetadataOrderIDKey: order.ID.String(),
		},
	}
}

// Verify reconciles an order on the buyer's return trip. Webhook delivery is
// not synchronised with the browser redirect, so this is a second,
// independent path to the same paid transition; whichever arrives first
// performs it and the other is a no-op.
func (s *checkoutService) Verify(ctx context.Context, checkoutSessionID, cartSessionID string) (*model.VerifyResponse, error) {
	if checkoutSessionID == "" {
		return nil, model.NewValidationError("session ID is required")
	}

	session, err := s.processor.GetCheckoutSession(ctx, checkoutSessionID)
	if err != nil {
		return nil, err
	}

	orderID, err := s.orderIDForSession(ctx, session)
	if err != nil {
		return nil, err
	}

	if !session.Paid() {
		order, _, err := s.orderRepo.GetByID(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if order == nil {
			return nil, model.ErrOrderNotFound
		}
		return &model.VerifyResponse{
			Paid:    false,
			OrderID: order.ID,
			Status:  order.Status,
		}, nil
	}

	if err := s.orderRepo.MarkPaid(ctx, orderID, session.PaymentID, session.PaymentMethod); err != nil {
		return nil, err
	}

	order, items, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}

	// The buyer reached the success page; their cart is done.
	if cartSessionID != "" {
		if err := s.carts.Clear(ctx, cartSessionID); err != nil {
			s.logger.Warn().
				Err(err).
				Str("cart_session_id", cartSessionID).
				Msg("failed to clear cart after payment")
		}
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("session_id", checkoutSessionID).
		Msg("payment verified on return trip")

	return &model.VerifyResponse{
		Paid:    true,
		OrderID: order.ID,
		Email:   order.Email,
		Status:  order.Status,
		Items:   items,
	}, nil
}

// orderIDForSession resolves the local order behind a processor session.
// Metadata is the primary linkage; the stored session handle is the fallback
// when a session arrives with mangled or missing metadata.
func (s *checkoutService) orderIDForSession(ctx context.Context, session *payment.CheckoutSession) (uuid.UUID, error) {
	raw := session.Metadata[payment.MetadataOrderIDKey]
	if orderID, err := uuid.Parse(raw); err == nil {
		return orderID, nil
	}

	s.logger.Warn().
		Str("session_id", session.ID).
		Str("metadata_order_id", raw).
		Msg("session metadata carries no usable order ID, falling back to session handle")

	order, err := s.orderRepo.GetBySessionID(ctx, session.ID)
	if err != nil {
		return uuid.Nil, err
	}
	if order == nil {
		s.logger.Error().
			Str("session_id", session.ID).
			Msg("no order holds this checkout session")
		return uuid.Nil, model.ErrOrderNotFound
	}
	return order.ID, nil
}

// validateCheckoutRequest rejects a checkout before any record is created.
func validateCheckoutRequest(req *model.CheckoutRequest) error {
	if req == nil {
		return model.NewValidationError("checkout request is required")
	}

	required := []struct {
		value string
		name  string
	}{
		{req.Email, "email"},
		{req.Name, "name"},
		{req.Street, "street"},
		{req.City, "city"},
		{req.State, "state"},
		{req.PostalCode, "postal code"},
	}
	for _, field := range required {
		if field.value == "" {
			return model.NewValidationError(field.name + " is required")
		}
	}

	return nil
}
