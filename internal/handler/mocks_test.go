package handler

import (
	"context"

	"farmstand/internal/cart"
	"farmstand/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockProductService is a mock implementation of service.ProductService.
type MockProductService struct {
	mock.Mock
}

func (m *MockProductService) GetAll(ctx context.Context, limit, offset int) ([]model.Product, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockProductService) GetByID(ctx context.Context, id string) (*model.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

// MockCheckoutService is a mock implementation of service.CheckoutService.
type MockCheckoutService struct {
	mock.Mock
}

func (m *MockCheckoutService) Checkout(ctx context.Context, cartSessionID string, req *model.CheckoutRequest) (*model.CheckoutResponse, error) {
	args := m.Called(ctx, cartSessionID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CheckoutResponse), args.Error(1)
}

func (m *MockCheckoutService) Verify(ctx context.Context, checkoutSessionID, cartSessionID string) (*model.VerifyResponse, error) {
	args := m.Called(ctx, checkoutSessionID, cartSessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.VerifyResponse), args.Error(1)
}

// MockOrderService is a mock implementation of service.OrderService.
type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) ConfirmPayment(ctx context.Context, orderID uuid.UUID, paymentID, paymentMethod string) error {
	args := m.Called(ctx, orderID, paymentID, paymentMethod)
	return args.Error(0)
}

func (m *MockOrderService) FailPayment(ctx context.Context, paymentID string) (bool, error) {
	args := m.Called(ctx, paymentID)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderService) GetByID(ctx context.Context, id uuid.UUID) (*model.OrderResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrderResponse), args.Error(1)
}

func (m *MockOrderService) FindByReference(ctx context.Context, ref string) (*model.OrderResponse, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrderResponse), args.Error(1)
}

func (m *MockOrderService) List(ctx context.Context, limit, offset int) ([]model.Order, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

func (m *MockOrderService) Cancel(ctx context.Context, id uuid.UUID) (*model.OrderResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrderResponse), args.Error(1)
}

func (m *MockOrderService) Ship(ctx context.Context, id uuid.UUID, req *model.ShipRequest) (*model.OrderResponse, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrderResponse), args.Error(1)
}

func (m *MockOrderService) MarkDelivered(ctx context.Context, id uuid.UUID) (*model.OrderResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrderResponse), args.Error(1)
}

func (m *MockOrderService) Refund(ctx context.Context, id uuid.UUID, req *model.RefundRequest) (*model.OrderResponse, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrderResponse), args.Error(1)
}

func (m *MockOrderService) Update(ctx context.Context, id uuid.UUID, req *model.UpdateOrderRequest) (*model.OrderResponse, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrderResponse), args.Error(1)
}

// MockCartStore is a mock implementation of cart.Store.
type MockCartStore struct {
	mock.Mock
}

func (m *MockCartStore) Get(ctx context.Context, sessionID string) (*cart.Cart, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Cart), args.Error(1)
}

func (m *MockCartStore) Save(ctx context.Context, sessionID string, c *cart.Cart) error {
	args := m.Called(ctx, sessionID, c)
	return args.Error(0)
}

func (m *MockCartStore) Clear(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}
