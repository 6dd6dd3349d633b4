package service

import (
	"context"
	"sync"
	"time"

	"farmstand/internal/cart"
	"farmstand/internal/model"
	"farmstand/internal/payment"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"
)

// MockProductRepository is a mock implementation of repository.ProductRepository.
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) GetAll(ctx context.Context, limit, offset int) ([]model.Product, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockProductRepository) GetByID(ctx context.Context, id string) (*model.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductRepository) GetVariantsByIDs(ctx context.Context, ids []string) ([]model.CatalogVariant, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CatalogVariant), args.Error(1)
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

// MockPaymentClient is a mock implementation of payment.Client.
type MockPaymentClient struct {
	mock.Mock
}

func (m *MockPaymentClient) CreateCheckoutSession(ctx context.Context, req *payment.CreateSessionRequest) (*payment.CheckoutSession, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.CheckoutSession), args.Error(1)
}

func (m *MockPaymentClient) GetCheckoutSession(ctx context.Context, sessionID string) (*payment.CheckoutSession, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.CheckoutSession), args.Error(1)
}

func (m *MockPaymentClient) GetPayment(ctx context.Context, paymentID string) (*payment.PaymentIntent, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.PaymentIntent), args.Error(1)
}

func (m *MockPaymentClient) UpdatePayment(ctx context.Context, paymentID string, req *payment.UpdatePaymentRequest) (*payment.PaymentIntent, error) {
	args := m.Called(ctx, paymentID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.PaymentIntent), args.Error(1)
}

// stubTx is a minimal pgx.Tx for exercising the fake repository.
type stubTx struct{}

func (stubTx) Commit(ctx context.Context) error              { return nil }
func (stubTx) Rollback(ctx context.Context) error            { return nil }
func (stubTx) Begin(ctx context.Context) (pgx.Tx, error)     { return nil, nil }
func (stubTx) LargeObjects() pgx.LargeObjects                { return pgx.LargeObjects{} }
func (stubTx) Conn() *pgx.Conn                               { return nil }
func (stubTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (stubTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (stubTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (stubTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (stubTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (stubTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

// fakeOrderRepo is an in-memory repository.OrderRepository that reproduces
// the store's write semantics (idempotent MarkPaid, write-once session
// handle, compare-and-swap fulfillment writes) so lifecycle properties can
// be exercised without a database.
type fakeOrderRepo struct {
	mu     sync.Mutex
	orders map[uuid.UUID]model.Order
	items  map[uuid.UUID][]model.OrderItem
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		orders: make(map[uuid.UUID]model.Order),
		items:  make(map[uuid.UUID][]model.OrderItem),
	}
}

func (f *fakeOrderRepo) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return stubTx{}, nil
}

func (f *fakeOrderRepo) CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[order.ID] = *order
	return nil
}

func (f *fakeOrderRepo) CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, item := range items {
		f.items[item.OrderID] = append(f.items[item.OrderID], item)
	}
	return nil
}

func (f *fakeOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, []model.OrderItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return nil, nil, nil
	}
	copied := order
	return &copied, append([]model.OrderItem(nil), f.items[id]...), nil
}

func (f *fakeOrderRepo) GetBySessionID(ctx context.Context, sessionID string) (*model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, order := range f.orders {
		if order.CheckoutSessionID != nil && *order.CheckoutSessionID == sessionID {
			copied := order
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeOrderRepo) GetByPaymentID(ctx context.Context, paymentID string) (*model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, order := range f.orders {
		if order.PaymentID != nil && *order.PaymentID == paymentID {
			copied := order
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeOrderRepo) FindByIDPrefix(ctx context.Context, prefix string) (*model.Order, []model.OrderItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matches []model.Order
	for _, order := range f.orders {
		if len(order.ID.String()) >= len(prefix) && order.ID.String()[:len(prefix)] == prefix {
			matches = append(matches, order)
		}
	}
	switch len(matches) {
	case 0:
		return nil, nil, nil
	case 1:
		copied := matches[0]
		return &copied, append([]model.OrderItem(nil), f.items[copied.ID]...), nil
	default:
		return nil, nil, model.ErrAmbiguousOrderRef
	}
}

func (f *fakeOrderRepo) List(ctx context.Context, limit, offset int) ([]model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var orders []model.Order
	for _, order := range f.orders {
		orders = append(orders, order)
	}
	return orders, nil
}

func (f *fakeOrderRepo) SetSessionID(ctx context.Context, id uuid.UUID, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return model.ErrOrderNotFound
	}
	if order.CheckoutSessionID != nil && *order.CheckoutSessionID != sessionID {
		return model.NewConflictError("order already has a different checkout session")
	}
	order.CheckoutSessionID = &sessionID
	order.UpdatedAt = time.Now()
	f.orders[id] = order
	return nil
}

func (f *fakeOrderRepo) MarkPaid(ctx context.Context, id uuid.UUID, paymentID, paymentMethod string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return model.ErrOrderNotFound
	}
	switch {
	case order.Status == model.StatusPending:
		order.Status = model.StatusPaid
		if order.PaymentID == nil {
			order.PaymentID = &paymentID
		}
		if order.PaymentMethod == nil {
			order.PaymentMethod = &paymentMethod
		}
		order.UpdatedAt = time.Now()
		f.orders[id] = order
		return nil
	case order.PaymentID != nil && *order.PaymentID == paymentID:
		// Settled under this handle already; later fulfillment does not
		// turn the replay into an error.
		return nil
	case order.Status == model.StatusPaid:
		// Paid under a different handle; keep the first linkage.
		return nil
	default:
		return model.NewConflictError("order cannot be marked paid")
	}
}

func (f *fakeOrderRepo) MarkPaymentFailed(ctx context.Context, paymentID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, order := range f.orders {
		if order.PaymentID != nil && *order.PaymentID == paymentID && order.Status == model.StatusPending {
			order.Status = model.StatusPaymentFailed
			order.UpdatedAt = time.Now()
			f.orders[id] = order
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeOrderRepo) UpdateFulfillment(ctx context.Context, order *model.Order, expectedUpdatedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.orders[order.ID]
	if !ok {
		return model.ErrOrderNotFound
	}
	if !stored.UpdatedAt.Equal(expectedUpdatedAt) {
		return model.ErrOrderModified
	}
	order.UpdatedAt = time.Now().Add(time.Microsecond)
	f.orders[order.ID] = *order
	return nil
}
