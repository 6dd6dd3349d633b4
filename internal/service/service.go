package service

import (
	"context"

	"farmstand/internal/model"

	"github.com/google/uuid"
)

// ProductService defines operations for the public catalog.
type ProductService interface {
	// GetAll retrieves all products with their variants, paginated.
	GetAll(ctx context.Context, limit, offset int) ([]model.Product, error)

	// GetByID retrieves a single product with its variants.
	GetByID(ctx context.Context, id string) (*model.Product, error)
}

// CheckoutService defines the buyer-facing checkout and return-trip flow.
type CheckoutService interface {
	// Checkout creates a pending order from the session's cart and the
	// submitted contact/shipping form, requests a hosted checkout page
	// from the payment processor, and returns the redirect target.
	Checkout(ctx context.Context, cartSessionID string, req *model.CheckoutRequest) (*model.CheckoutResponse, error)

	// Verify reconciles an order against the processor when the buyer
	// lands back on the success page. It commutes with the webhook: the
	// pending-to-paid transition is applied at most once regardless of
	// which path runs first. A confirmed payment also clears the cart.
	Verify(ctx context.Context, checkoutSessionID, cartSessionID string) (*model.VerifyResponse, error)
}

// OrderService defines webhook reconciliation and administrative
// fulfillment operations against the order state machine.
type OrderService interface {
	// ConfirmPayment applies the pending-to-paid transition and records
	// the payment handle and method. Idempotent.
	ConfirmPayment(ctx context.Context, orderID uuid.UUID, paymentID, paymentMethod string) error

	// FailPayment marks the pending order holding the payment handle as
	// payment_failed. Returns false when no such order exists; callers
	// treat that as a benign no-op.
	FailPayment(ctx context.Context, paymentID string) (bool, error)

	// GetByID retrieves an order with its items.
	GetByID(ctx context.Context, id uuid.UUID) (*model.OrderResponse, error)

	// FindByReference retrieves an order by full ID or by an ID prefix of
	// at least MinOrderRefLength characters.
	FindByReference(ctx context.Context, ref string) (*model.OrderResponse, error)

	// List retrieves orders newest first, paginated.
	List(ctx context.Context, limit, offset int) ([]model.Order, error)

	// Cancel cancels an order that has not shipped or been refunded.
	Cancel(ctx context.Context, id uuid.UUID) (*model.OrderResponse, error)

	// Ship marks an order shipped with carrier and tracking details,
	// stamps shipped_at on first ship, and mirrors tracking to the
	// payment processor best-effort.
	Ship(ctx context.Context, id uuid.UUID, req *model.ShipRequest) (*model.OrderResponse, error)

	// MarkDelivered marks a shipped order delivered.
	MarkDelivered(ctx context.Context, id uuid.UUID) (*model.OrderResponse, error)

	// Refund records a refund with a mandatory reason and an amount
	// bounded by the order total.
	Refund(ctx context.Context, id uuid.UUID, req *model.RefundRequest) (*model.OrderResponse, error)

	// Update applies a free-form status/tracking/notes edit. Rejected
	// once the order is refunded.
	Update(ctx context.Context, id uuid.UUID, req *model.UpdateOrderRequest) (*model.OrderResponse, error)
}
