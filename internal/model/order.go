package model

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the closed set of order lifecycle states.
type OrderStatus string

const (
	StatusPending       OrderStatus = "pending"
	StatusPaid          OrderStatus = "paid"
	StatusProcessing    OrderStatus = "processing"
	StatusShipped       OrderStatus = "shipped"
	StatusDelivered     OrderStatus = "delivered"
	StatusCancelled     OrderStatus = "cancelled"
	StatusRefunded      OrderStatus = "refunded"
	StatusPaymentFailed OrderStatus = "payment_failed"
)

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusProcessing, StatusShipped,
		StatusDelivered, StatusCancelled, StatusRefunded, StatusPaymentFailed:
		return true
	}
	return false
}

// Terminal reports whether no further transition is modelled out of s.
func (s OrderStatus) Terminal() bool {
	switch s {
	case StatusDelivered, StatusCancelled, StatusRefunded, StatusPaymentFailed:
		return true
	}
	return false
}

// allowedTransitions is the single source of truth for the order state
// machine. Every fulfillment operation and webhook transition must check it
// rather than carrying its own guard.
var allowedTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:    {StatusPaid, StatusPaymentFailed, StatusCancelled},
	StatusPaid:       {StatusProcessing, StatusShipped, StatusCancelled, StatusRefunded},
	StatusProcessing: {StatusShipped, StatusCancelled, StatusRefunded},
	StatusShipped:    {StatusDelivered, StatusRefunded},
}

// CanTransition reports whether the state machine permits moving an order
// from one status to another. Same-state writes are allowed so that
// idempotent replays (webhook plus verifier) are no-ops rather than errors.
func CanTransition(from, to OrderStatus) bool {
	if from == to {
		return true
	}
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ShippingAddress is the structured delivery address captured at checkout.
type ShippingAddress struct {
	Name       string `json:"name" db:"ship_name"`
	Street     string `json:"street" db:"ship_street"`
	City       string `json:"city" db:"ship_city"`
	State      string `json:"state" db:"ship_state"`
	PostalCode string `json:"postalCode" db:"ship_postal_code"`
	Phone      string `json:"phone,omitempty" db:"ship_phone"`
}

// Order represents one checkout attempt and its fulfillment history.
// Orders are never hard-deleted; they are retained as an audit record.
type Order struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	Email       string          `json:"email" db:"email"`
	AmountCents int64           `json:"amountCents" db:"amount_cents"`
	Shipping    ShippingAddress `json:"shipping"`
	Status      OrderStatus     `json:"status" db:"status"`

	// Payment processor linkage. Write-once: once set these are never
	// cleared or overwritten with a different value.
	CheckoutSessionID *string `json:"checkoutSessionId,omitempty" db:"checkout_session_id"`
	PaymentID         *string `json:"paymentId,omitempty" db:"payment_id"`
	PaymentMethod     *string `json:"paymentMethod,omitempty" db:"payment_method"`

	Carrier        *string `json:"carrier,omitempty" db:"carrier"`
	TrackingNumber *string `json:"trackingNumber,omitempty" db:"tracking_number"`
	TrackingURL    *string `json:"trackingUrl,omitempty" db:"tracking_url"`

	RefundAmountCents *int64  `json:"refundAmountCents,omitempty" db:"refund_amount_cents"`
	RefundReason      *string `json:"refundReason,omitempty" db:"refund_reason"`

	Notes string `json:"notes,omitempty" db:"notes"`

	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at"`
	ShippedAt   *time.Time `json:"shippedAt,omitempty" db:"shipped_at"`
	DeliveredAt *time.Time `json:"deliveredAt,omitempty" db:"delivered_at"`
}

// OrderItem is an immutable snapshot of one purchased variant. Name, size,
// and unit price are copied from the catalog at checkout time so historical
// orders stay stable when the catalog changes.
type OrderItem struct {
	ID             uuid.UUID `json:"-" db:"id"`
	OrderID        uuid.UUID `json:"-" db:"order_id"`
	ProductID      string    `json:"productId" db:"product_id"`
	VariantID      string    `json:"variantId" db:"variant_id"`
	Name           string    `json:"name" db:"name"`
	Size           string    `json:"size,omitempty" db:"size"`
	UnitPriceCents int64     `json:"unitPriceCents" db:"unit_price_cents"`
	Quantity       int       `json:"quantity" db:"quantity"`
}

// CheckoutRequest is the contact and shipping form submitted with a cart.
type CheckoutRequest struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Phone      string `json:"phone,omitempty"`
}

// CheckoutResponse carries the redirect target for the hosted payment page.
type CheckoutResponse struct {
	OrderID     uuid.UUID `json:"orderId"`
	CheckoutURL string    `json:"checkoutUrl"`
}

// OrderResponse is the full projection of an order with its line items.
type OrderResponse struct {
	Order Order       `json:"order"`
	Items []OrderItem `json:"items"`
}

// VerifyResponse is the buyer-facing result of the return-trip check.
// Paid is false while the processor still reports the session as open.
type VerifyResponse struct {
	Paid    bool        `json:"paid"`
	OrderID uuid.UUID   `json:"orderId"`
	Email   string      `json:"email,omitempty"`
	Status  OrderStatus `json:"status"`
	Items   []OrderItem `json:"items,omitempty"`
}

// ShipRequest carries the tracking details for a ship transition.
type ShipRequest struct {
	Carrier        string `json:"carrier"`
	TrackingNumber string `json:"trackingNumber"`
}

// RefundRequest carries the amount and mandatory reason for a refund.
type RefundRequest struct {
	AmountCents int64  `json:"amountCents"`
	Reason      string `json:"reason"`
}

// UpdateOrderRequest is the free-form admin edit. Nil fields are untouched.
type UpdateOrderRequest struct {
	Status         *OrderStatus `json:"status,omitempty"`
	Carrier        *string      `json:"carrier,omitempty"`
	TrackingNumber *string      `json:"trackingNumber,omitempty"`
	Notes          *string      `json:"notes,omitempty"`
}
