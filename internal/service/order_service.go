package service

import (
	"context"
	"fmt"
	"time"

	"farmstand/internal/model"
	"farmstand/internal/payment"
	"farmstand/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// MinOrderRefLength is the minimum number of characters accepted for a
// partial order-ID lookup. Anything shorter risks ambiguous matches.
const MinOrderRefLength = 8

// orderService implements OrderService.
type orderService struct {
	repo     repository.OrderRepository
	notifier *payment.Notifier
	logger   zerolog.Logger
}

// NewOrderService creates a new order service. The notifier may be nil when
// no payment processor is configured; ship transitions then skip the
// tracking mirror.
func NewOrderService(repo repository.OrderRepository, notifier *payment.Notifier, logger zerolog.Logger) OrderService {
	return &orderService{
		repo:     repo,
		notifier: notifier,
		logger:   logger.With().Str("service", "order").Logger(),
	}
}

// ConfirmPayment applies the pending-to-paid transition. The repository
// write is idempotent, so webhook and verifier deliveries commute.
func (s *orderService) ConfirmPayment(ctx context.Context, orderID uuid.UUID, paymentID, paymentMethod string) error {
	if err := s.repo.MarkPaid(ctx, orderID, paymentID, paymentMethod); err != nil {
		return err
	}

	s.logger.Info().
		Str("order_id", orderID.String()).
		Str("payment_id", paymentID).
		Msg("payment confirmed")

	return nil
}

// FailPayment marks the pending order holding the payment handle as failed.
func (s *orderService) FailPayment(ctx context.Context, paymentID string) (bool, error) {
	found, err := s.repo.MarkPaymentFailed(ctx, paymentID)
	if err != nil {
		return false, err
	}

	if !found {
		// The failed intent may belong to an order outside this system's
		// visibility; that is not an error.
		s.logger.Info().
			Str("payment_id", paymentID).
			Msg("payment failure event matched no pending order, ignoring")
		return false, nil
	}

	s.logger.Warn().Str("payment_id", paymentID).Msg("payment failed")
	return true, nil
}

// GetByID retrieves an order with its items.
func (s *orderService) GetByID(ctx context.Context, id uuid.UUID) (*model.OrderResponse, error) {
	order, items, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}
	return &model.OrderResponse{Order: *order, Items: items}, nil
}

// FindByReference retrieves an order by full ID or by an ID prefix of at
// least MinOrderRefLength characters.
func (s *orderService) FindByReference(ctx context.Context, ref string) (*model.OrderResponse, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return s.GetByID(ctx, id)
	}

	if len(ref) < MinOrderRefLength {
		return nil, model.NewValidationError(
			fmt.Sprintf("order reference must be a full ID or at least %d characters", MinOrderRefLength))
	}

	order, items, err := s.repo.FindByIDPrefix(ctx, ref)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}
	return &model.OrderResponse{Order: *order, Items: items}, nil
}

// List retrieves orders newest first, paginated.
func (s *orderService) List(ctx context.Context, limit, offset int) ([]model.Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset)
}

// Cancel cancels an order. Cancelling a refunded or shipped order is a
// guard failure, not a state change.
func (s *orderService) Cancel(ctx context.Context, id uuid.UUID) (*model.OrderResponse, error) {
	order, items, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if !model.CanTransition(order.Status, model.StatusCancelled) {
		return nil, model.NewConflictError(
			fmt.Sprintf("cannot cancel an order that is %s", order.Status))
	}

	expected := order.UpdatedAt
	order.Status = model.StatusCancelled
	if err := s.repo.UpdateFulfillment(ctx, order, expected); err != nil {
		return nil, err
	}

	s.logger.Info().Str("order_id", id.String()).Msg("order cancelled")
	return &model.OrderResponse{Order: *order, Items: items}, nil
}

// Ship marks an order shipped. shipped_at is stamped on the first ship only;
// re-shipping updates tracking details without moving the timestamp. After
// the transition commits, tracking is mirrored to the payment processor
// best-effort: a failure there is a warning, never a rollback.
func (s *orderService) Ship(ctx context.Context, id uuid.UUID, req *model.ShipRequest) (*model.OrderResponse, error) {
	if req == nil || req.Carrier == "" {
		return nil, model.NewValidationError("carrier is required")
	}
	if req.TrackingNumber == "" {
		return nil, model.NewValidationError("tracking number is required")
	}

	order, items, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if !model.CanTransition(order.Status, model.StatusShipped) {
		return nil, model.NewConflictError(
			fmt.Sprintf("cannot ship an order that is %s", order.Status))
	}

	trackingURL := payment.TrackingURL(req.Carrier, req.TrackingNumber)
	expected := order.UpdatedAt
	order.Status = model.StatusShipped
	order.Carrier = &req.Carrier
	order.TrackingNumber = &req.TrackingNumber
	order.TrackingURL = &trackingURL
	if order.ShippedAt == nil {
		now := time.Now()
		order.ShippedAt = &now
	}

	if err := s.repo.UpdateFulfillment(ctx, order, expected); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("order_id", id.String()).
		Str("carrier", req.Carrier).
		Str("tracking_number", req.TrackingNumber).
		Msg("order shipped")

	if s.notifier != nil && order.PaymentID != nil {
		if err := s.notifier.NotifyShipment(ctx, *order.PaymentID, req.Carrier, req.TrackingNumber); err != nil {
			// The order's own tracking fields are the authoritative
			// record; the processor-side mirror is best-effort.
			s.logger.Warn().
				Err(err).
				Str("order_id", id.String()).
				Msg("failed to mirror tracking to payment processor")
		}
	}

	return &model.OrderResponse{Order: *order, Items: items}, nil
}

// MarkDelivered marks a shipped order delivered. delivered_at is stamped on
// the first call only.
func (s *orderService) MarkDelivered(ctx context.Context, id uuid.UUID) (*model.OrderResponse, error) {
	order, items, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if !model.CanTransition(order.Status, model.StatusDelivered) {
		return nil, model.NewConflictError(
			fmt.Sprintf("cannot mark delivered an order that is %s", order.Status))
	}

	expected := order.UpdatedAt
	order.Status = model.StatusDelivered
	if order.DeliveredAt == nil {
		now := time.Now()
		order.DeliveredAt = &now
	}

	if err := s.repo.UpdateFulfillment(ctx, order, expected); err != nil {
		return nil, err
	}

	s.logger.Info().Str("order_id", id.String()).Msg("order delivered")
	return &model.OrderResponse{Order: *order, Items: items}, nil
}

// Refund records a refund. The amount never exceeds the order total and an
// already-refunded order is never refunded again.
func (s *orderService) Refund(ctx context.Context, id uuid.UUID, req *model.RefundRequest) (*model.OrderResponse, error) {
	if req == nil || req.Reason == "" {
		return nil, model.NewValidationError("refund reason is required")
	}
	if req.AmountCents <= 0 {
		return nil, model.NewValidationError("refund amount must be greater than zero")
	}

	order, items, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if order.Status == model.StatusRefunded {
		return nil, model.NewConflictError("order is already refunded")
	}
	if !model.CanTransition(order.Status, model.StatusRefunded) {
		return nil, model.NewConflictError(
			fmt.Sprintf("cannot refund an order that is %s", order.Status))
	}
	if req.AmountCents > order.AmountCents {
		return nil, model.NewValidationError("refund amount cannot exceed order amount")
	}

	expected := order.UpdatedAt
	order.Status = model.StatusRefunded
	order.RefundAmountCents = &req.AmountCents
	order.RefundReason = &req.Reason

	if err := s.repo.UpdateFulfillment(ctx, order, expected); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("order_id", id.String()).
		Int64("refund_amount_cents", req.AmountCents).
		Str("reason", req.Reason).
		Msg("order refunded")

	return &model.OrderResponse{Order: *order, Items: items}, nil
}

// Update applies a free-form status/tracking/notes edit.
func (s *orderService) Update(ctx context.Context, id uuid.UUID, req *model.UpdateOrderRequest) (*model.OrderResponse, error) {
	if req == nil {
		return nil, model.NewValidationError("update request is required")
	}
	if req.Status != nil && !req.Status.Valid() {
		return nil, model.NewValidationError(
			fmt.Sprintf("unknown order status %q", *req.Status))
	}

	order, items, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if order.Status == model.StatusRefunded {
		return nil, model.NewConflictError("cannot edit a refunded order")
	}

	expected := order.UpdatedAt
	if req.Status != nil {
		order.Status = *req.Status
	}
	if req.Carrier != nil {
		order.Carrier = req.Carrier
	}
	if req.TrackingNumber != nil {
		order.TrackingNumber = req.TrackingNumber
	}
	if order.Carrier != nil && order.TrackingNumber != nil &&
		*order.Carrier != "" && *order.TrackingNumber != "" {
		trackingURL := payment.TrackingURL(*order.Carrier, *order.TrackingNumber)
		order.TrackingURL = &trackingURL
	}
	if req.Notes != nil {
		order.Notes = *req.Notes
	}

	if err := s.repo.UpdateFulfillment(ctx, order, expected); err != nil {
		return nil, err
	}

	s.logger.Info().Str("order_id", id.String()).Msg("order updated")
	return &model.OrderResponse{Order: *order, Items: items}, nil
}

// load fetches an order and its items, turning a miss into a domain error.
func (s *orderService) load(ctx context.Context, id uuid.UUID) (*model.Order, []model.OrderItem, error) {
	order, items, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if order == nil {
		return nil, nil, model.ErrOrderNotFound
	}
	return order, items, nil
}
