package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"farmstand/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

const orderColumns = `
	id, email, amount_cents,
	ship_name, ship_street, ship_city, ship_state, ship_postal_code, ship_phone,
	status, checkout_session_id, payment_id, payment_method,
	carrier, tracking_number, tracking_url,
	refund_amount_cents, refund_reason, notes,
	created_at, updated_at, shipped_at, delivered_at
`

// scanOrder scans one order row in orderColumns order.
func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	err := row.Scan(
		&o.ID, &o.Email, &o.AmountCents,
		&o.Shipping.Name, &o.Shipping.Street, &o.Shipping.City,
		&o.Shipping.State, &o.Shipping.PostalCode, &o.Shipping.Phone,
		&o.Status, &o.CheckoutSessionID, &o.PaymentID, &o.PaymentMethod,
		&o.Carrier, &o.TrackingNumber, &o.TrackingURL,
		&o.RefundAmountCents, &o.RefundReason, &o.Notes,
		&o.CreatedAt, &o.UpdatedAt, &o.ShippedAt, &o.DeliveredAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// BeginTx starts a new database transaction.
func (r *orderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// CreateOrder inserts a new order within the provided transaction.
func (r *orderRepository) CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `
		INSERT INTO orders (
			id, email, amount_cents,
			ship_name, ship_street, ship_city, ship_state, ship_postal_code, ship_phone,
			status, notes, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := tx.Exec(ctx, query,
		order.ID, order.Email, order.AmountCents,
		order.Shipping.Name, order.Shipping.Street, order.Shipping.City,
		order.Shipping.State, order.Shipping.PostalCode, order.Shipping.Phone,
		order.Status, order.Notes, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}

	r.logger.Debug().
		Str("order_id", order.ID.String()).
		Int64("amount_cents", order.AmountCents).
		Msg("order created")

	return nil
}

// CreateOrderItems inserts the order's line-item snapshots within the
// provided transaction.
func (r *orderRepository) CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	query := `
		INSERT INTO order_items (id, order_id, product_id, variant_id, name, size, unit_price_cents, quantity)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(query,
			item.ID, item.OrderID, item.ProductID, item.VariantID,
			item.Name, item.Size, item.UnitPriceCents, item.Quantity,
		)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(items); i++ {
		_, err := results.Exec()
		if err != nil {
			r.logger.Error().
				Err(err).
				Str("order_id", items[i].OrderID.String()).
				Str("variant_id", items[i].VariantID).
				Msg("failed to create order item")
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	r.logger.Debug().
		Int("count", len(items)).
		Msg("order items created")

	return nil
}

// GetByID retrieves an order and its items.
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, []model.OrderItem, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("order_id", id.String()).Msg("order not found")
			return nil, nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to query order")
		return nil, nil, fmt.Errorf("failed to query order: %w", err)
	}

	items, err := r.getItems(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	return order, items, nil
}

// getItems retrieves the line items for an order.
func (r *orderRepository) getItems(ctx context.Context, orderID uuid.UUID) ([]model.OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, variant_id, name, size, unit_price_cents, quantity
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", orderID.String()).
			Msg("failed to query order items")
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []model.OrderItem
	for rows.Next() {
		var item model.OrderItem
		err := rows.Scan(
			&item.ID, &item.OrderID, &item.ProductID, &item.VariantID,
			&item.Name, &item.Size, &item.UnitPriceCents, &item.Quantity,
		)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order item row")
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order item rows")
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return items, nil
}

// GetBySessionID retrieves an order by its checkout session handle.
func (r *orderRepository) GetBySessionID(ctx context.Context, sessionID string) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE checkout_session_id = $1`

	order, err := scanOrder(r.pool.QueryRow(ctx, query, sessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("session_id", sessionID).Msg("failed to query order by session")
		return nil, fmt.Errorf("failed to query order by session: %w", err)
	}

	return order, nil
}

// GetByPaymentID retrieves an order by its payment handle.
func (r *orderRepository) GetByPaymentID(ctx context.Context, paymentID string) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE payment_id = $1`

	order, err := scanOrder(r.pool.QueryRow(ctx, query, paymentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("payment_id", paymentID).Msg("failed to query order by payment")
		return nil, fmt.Errorf("failed to query order by payment: %w", err)
	}

	return order, nil
}

// FindByIDPrefix retrieves an order whose ID starts with the given prefix.
// Two matching rows are enough to know the prefix is ambiguous.
func (r *orderRepository) FindByIDPrefix(ctx context.Context, prefix string) (*model.Order, []model.OrderItem, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id::text LIKE $1 || '%' LIMIT 2`

	rows, err := r.pool.Query(ctx, query, prefix)
	if err != nil {
		r.logger.Error().Err(err).Str("prefix", prefix).Msg("failed to query orders by prefix")
		return nil, nil, fmt.Errorf("failed to query orders by prefix: %w", err)
	}
	defer rows.Close()

	var matches []*model.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order row")
			return nil, nil, fmt.Errorf("failed to scan order: %w", err)
		}
		matches = append(matches, order)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating orders: %w", err)
	}

	switch len(matches) {
	case 0:
		return nil, nil, nil
	case 1:
		items, err := r.getItems(ctx, matches[0].ID)
		if err != nil {
			return nil, nil, err
		}
		return matches[0], items, nil
	default:
		r.logger.Warn().Str("prefix", prefix).Msg("ambiguous order reference")
		return nil, nil, model.ErrAmbiguousOrderRef
	}
}

// List retrieves orders newest first.
func (r *orderRepository) List(ctx context.Context, limit, offset int) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error().Err(err).
			Int("limit", limit).
			Int("offset", offset).
			Msg("failed to list orders")
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order row")
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}

// SetSessionID records the checkout session handle on an order. Write-once:
// the predicate lets the same handle be written again (retries) but never
// replaces a different one.
func (r *orderRepository) SetSessionID(ctx context.Context, id uuid.UUID, sessionID string) error {
	query := `
		UPDATE orders
		SET checkout_session_id = $2, updated_at = $3
		WHERE id = $1 AND (checkout_session_id IS NULL OR checkout_session_id = $2)
	`

	tag, err := r.pool.Exec(ctx, query, id, sessionID, time.Now())
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to store session handle")
		return fmt.Errorf("failed to store session handle: %w", err)
	}

	if tag.RowsAffected() == 0 {
		existing, _, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return model.ErrOrderNotFound
		}
		r.logger.Warn().
			Str("order_id", id.String()).
			Str("session_id", sessionID).
			Msg("refusing to overwrite existing session handle")
		return model.NewConflictError("order already has a different checkout session")
	}

	return nil
}

// MarkPaid transitions an order to paid and records the payment linkage.
// Replays are no-ops: a pending order transitions, and an order already
// settled under the same payment handle is left untouched no matter how far
// fulfillment has progressed since.
func (r *orderRepository) MarkPaid(ctx context.Context, id uuid.UUID, paymentID, paymentMethod string) error {
	query := `
		UPDATE orders
		SET status = $2,
		    payment_id = COALESCE(payment_id, $3),
		    payment_method = COALESCE(payment_method, $4),
		    updated_at = $5
		WHERE id = $1
		  AND (status = $6 OR (status = $2 AND payment_id = $3))
	`

	tag, err := r.pool.Exec(ctx, query,
		id, model.StatusPaid, paymentID, paymentMethod, time.Now(), model.StatusPending,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to mark order paid")
		return fmt.Errorf("failed to mark order paid: %w", err)
	}

	if tag.RowsAffected() == 0 {
		existing, _, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return model.ErrOrderNotFound
		}
		if existing.PaymentID != nil && *existing.PaymentID == paymentID {
			// Settled earlier under this handle; fulfillment may have
			// already moved the order on. The replay is a no-op either way.
			return nil
		}
		if existing.Status == model.StatusPaid {
			// Paid under a different handle; keep the first linkage.
			r.logger.Warn().
				Str("order_id", id.String()).
				Str("payment_id", paymentID).
				Msg("order already paid under a different payment handle")
			return nil
		}
		return model.NewConflictError(
			fmt.Sprintf("order is %s and cannot be marked paid", existing.Status))
	}

	r.logger.Info().
		Str("order_id", id.String()).
		Str("payment_id", paymentID).
		Msg("order marked paid")

	return nil
}

// MarkPaymentFailed transitions the pending order holding the given payment
// handle to payment_failed. A miss is reported, not an error: the event may
// reference an order outside this system's visibility.
func (r *orderRepository) MarkPaymentFailed(ctx context.Context, paymentID string) (bool, error) {
	query := `
		UPDATE orders
		SET status = $2, updated_at = $3
		WHERE payment_id = $1 AND status = $4
	`

	tag, err := r.pool.Exec(ctx, query,
		paymentID, model.StatusPaymentFailed, time.Now(), model.StatusPending,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("payment_id", paymentID).Msg("failed to mark payment failed")
		return false, fmt.Errorf("failed to mark payment failed: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// UpdateFulfillment writes the order's mutable fulfillment fields with a
// compare-and-swap on updated_at, closing the race between two concurrent
// admin actions on the same order.
func (r *orderRepository) UpdateFulfillment(ctx context.Context, order *model.Order, expectedUpdatedAt time.Time) error {
	query := `
		UPDATE orders
		SET status = $2, carrier = $3, tracking_number = $4, tracking_url = $5,
		    refund_amount_cents = $6, refund_reason = $7, notes = $8,
		    shipped_at = $9, delivered_at = $10, updated_at = $11
		WHERE id = $1 AND updated_at = $12
	`

	now := time.Now()
	tag, err := r.pool.Exec(ctx, query,
		order.ID, order.Status, order.Carrier, order.TrackingNumber, order.TrackingURL,
		order.RefundAmountCents, order.RefundReason, order.Notes,
		order.ShippedAt, order.DeliveredAt, now, expectedUpdatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to update order")
		return fmt.Errorf("failed to update order: %w", err)
	}

	if tag.RowsAffected() == 0 {
		existing, _, err := r.GetByID(ctx, order.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			return model.ErrOrderNotFound
		}
		r.logger.Warn().
			Str("order_id", order.ID.String()).
			Time("expected_updated_at", expectedUpdatedAt).
			Time("actual_updated_at", existing.UpdatedAt).
			Msg("concurrent modification detected")
		return model.ErrOrderModified
	}

	order.UpdatedAt = now

	return nil
}
