package repository

import (
	"context"
	"time"

	"farmstand/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ProductRepository defines the interface for catalog data access.
type ProductRepository interface {
	// GetAll retrieves all products with their variants, paginated.
	GetAll(ctx context.Context, limit, offset int) ([]model.Product, error)

	// GetByID retrieves a single product with its variants.
	GetByID(ctx context.Context, id string) (*model.Product, error)

	// GetVariantsByIDs retrieves variants joined with their products, used
	// by checkout to snapshot line items from catalog prices.
	GetVariantsByIDs(ctx context.Context, ids []string) ([]model.CatalogVariant, error)
}

// OrderRepository defines the interface for order data access. The store
// accepts any write; state-machine guards are the calling service's
// responsibility, except where a write carries its own idempotency or
// concurrency contract (MarkPaid, SetSessionID, UpdateFulfillment).
type OrderRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// CreateOrder inserts a new order within the provided transaction.
	CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// CreateOrderItems inserts the order's line-item snapshots within the
	// provided transaction. Line items are immutable once created.
	CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error

	// GetByID retrieves an order and its items. Returns (nil, nil, nil)
	// when the order does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, []model.OrderItem, error)

	// GetBySessionID retrieves an order by its checkout session handle.
	GetBySessionID(ctx context.Context, sessionID string) (*model.Order, error)

	// GetByPaymentID retrieves an order by its payment handle.
	GetByPaymentID(ctx context.Context, paymentID string) (*model.Order, error)

	// FindByIDPrefix retrieves an order whose ID starts with the given
	// prefix. Fails with model.ErrAmbiguousOrderRef when more than one
	// order matches.
	FindByIDPrefix(ctx context.Context, prefix string) (*model.Order, []model.OrderItem, error)

	// List retrieves orders newest first, paginated.
	List(ctx context.Context, limit, offset int) ([]model.Order, error)

	// SetSessionID records the checkout session handle on an order.
	// Write-once: a different already-stored handle is never overwritten.
	SetSessionID(ctx context.Context, id uuid.UUID, sessionID string) error

	// MarkPaid transitions an order to paid and records the payment handle
	// and method. Idempotent: replaying the same payment handle against an
	// already-paid order is a no-op.
	MarkPaid(ctx context.Context, id uuid.UUID, paymentID, paymentMethod string) error

	// MarkPaymentFailed transitions the pending order holding the given
	// payment handle to payment_failed. Returns false when no such order
	// exists, which callers treat as a benign no-op.
	MarkPaymentFailed(ctx context.Context, paymentID string) (bool, error)

	// UpdateFulfillment writes the order's mutable fulfillment fields with
	// a compare-and-swap on updated_at. Fails with model.ErrOrderModified
	// when the row changed since it was read.
	UpdateFulfillment(ctx context.Context, order *model.Order, expectedUpdatedAt time.Time) error
}
