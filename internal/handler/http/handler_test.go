package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/uniform-shop/internal/auth"
	"github.com/vasiliy-maslov/uniform-shop/internal/cart"
	shopHttp "github.com/vasiliy-maslov/uniform-shop/internal/handler/http"
	"github.com/vasiliy-maslov/uniform-shop/internal/metrics"
	"github.com/vasiliy-maslov/uniform-shop/internal/order"
)

const testSecret = "handler-test-secret"

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) Checkout(ctx context.Context, userID uuid.UUID) (*order.Receipt, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Receipt), args.Error(1)
}

func (m *MockOrderService) ListOrders(ctx context.Context, userID uuid.UUID) ([]order.OrderWithLines, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.OrderWithLines), args.Error(1)
}

func (m *MockOrderService) GetOrderDetail(ctx context.Context, userID, orderID uuid.UUID) ([]order.LineDetail, error) {
	args := m.Called(ctx, userID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.LineDetail), args.Error(1)
}

func (m *MockOrderService) ListAllOrders(ctx context.Context) ([]order.Order, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockOrderService) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, newStatus order.Status) (*order.Order, error) {
	args := m.Called(ctx, orderID, newStatus)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

type MockCartService struct {
	mock.Mock
}

func (m *MockCartService) AddItem(ctx context.Context, userID, productID uuid.UUID, size string, quantity int) (*cart.Line, error) {
	args := m.Called(ctx, userID, productID, size, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Line), args.Error(1)
}

func (m *MockCartService) ListItems(ctx context.Context, userID uuid.UUID) ([]cart.Line, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]cart.Line), args.Error(1)
}

func (m *MockCartService) RemoveItem(ctx context.Context, userID, lineID uuid.UUID) error {
	args := m.Called(ctx, userID, lineID)
	return args.Error(0)
}

type testServer struct {
	router  http.Handler
	orders  *MockOrderService
	carts   *MockCartService
	tokens  *auth.Manager
	metrics *metrics.Metrics
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWithLimit(t, 0, 0)
}

func newTestServerWithLimit(t *testing.T, perSecond float64, burst int) *testServer {
	t.Helper()

	ts := &testServer{
		orders:  new(MockOrderService),
		carts:   new(MockCartService),
		tokens:  auth.NewManager(testSecret, time.Hour),
		metrics: metrics.New(),
	}
	ts.router = shopHttp.NewRouter(shopHttp.RouterConfig{
		Orders:            ts.orders,
		Cart:              ts.carts,
		Tokens:            ts.tokens,
		Metrics:           ts.metrics,
		CheckoutRateLimit: perSecond,
		CheckoutRateBurst: burst,
	})

	t.Cleanup(func() {
		ts.orders.AssertExpectations(t)
		ts.carts.AssertExpectations(t)
	})
	return ts
}

func (ts *testServer) token(t *testing.T, userID uuid.UUID, role auth.Role) string {
	t.Helper()
	token, err := ts.tokens.GenerateToken(userID, role)
	require.NoError(t, err)
	return token
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	ts.router.ServeHTTP(rr, req)
	return rr
}

func decodeMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp shopHttp.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp), "Failed to decode response body")
	return resp.Message
}

func newID() uuid.UUID {
	return uuid.Must(uuid.NewV4())
}
