package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nileshop/backend/internal/domain"
	"github.com/nileshop/backend/internal/repository"
	"github.com/nileshop/backend/internal/service"
	apperrors "github.com/nileshop/backend/pkg/errors"
	"github.com/nileshop/backend/pkg/health"
	"github.com/nileshop/backend/pkg/httputil"
	"github.com/nileshop/backend/pkg/middleware"
)

// --- Mock Checkout Tx ---

type mockCheckoutTx struct {
	mock.Mock
}

func (m *mockCheckoutTx) CartForUpdate(ctx context.Context, userID string) (*domain.Cart, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *mockCheckoutTx) ProductByID(ctx context.Context, productID string) (*domain.Product, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockCheckoutTx) DecrementStock(ctx context.Context, productID string, quantity int) (bool, error) {
	args := m.Called(ctx, productID, quantity)
	return args.Bool(0), args.Error(1)
}

func (m *mockCheckoutTx) InsertOrder(ctx context.Context, order *domain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *mockCheckoutTx) MarkOrderPaid(ctx context.Context, orderID string) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

func (m *mockCheckoutTx) ClearCart(ctx context.Context, cartID string) error {
	args := m.Called(ctx, cartID)
	return args.Error(0)
}

type checkoutRepoStub struct {
	tx *mockCheckoutTx
}

func (r *checkoutRepoStub) RunInTx(ctx context.Context, fn func(tx repository.CheckoutTx) error) error {
	return fn(r.tx)
}

// --- Mock Cart Repository ---

type mockCartRepository struct {
	mock.Mock
}

func (m *mockCartRepository) GetByUserID(ctx context.Context, userID string) (*domain.Cart, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *mockCartRepository) GetOrCreate(ctx context.Context, userID string) (*domain.Cart, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *mockCartRepository) AddItem(ctx context.Context, item *domain.CartItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *mockCartRepository) UpdateItemQuantity(ctx context.Context, cartID, itemID string, quantity int) error {
	args := m.Called(ctx, cartID, itemID, quantity)
	return args.Error(0)
}

func (m *mockCartRepository) RemoveItem(ctx context.Context, cartID, itemID string) error {
	args := m.Called(ctx, cartID, itemID)
	return args.Error(0)
}

func (m *mockCartRepository) Clear(ctx context.Context, cartID string) error {
	args := m.Called(ctx, cartID)
	return args.Error(0)
}

// --- Mock Order Repository ---

type mockOrderRepository struct {
	mock.Mock
}

func (m *mockOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepository) ListByUser(ctx context.Context, userID string, offset, limit int) ([]domain.Order, int, error) {
	args := m.Called(ctx, userID, offset, limit)
	return args.Get(0).([]domain.Order), args.Int(1), args.Error(2)
}

func (m *mockOrderRepository) UpdateStatus(ctx context.Context, id, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

// --- Mock Product Repository ---

type mockProductRepository struct {
	mock.Mock
}

func (m *mockProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) List(ctx context.Context, offset, limit int) ([]domain.Product, int, error) {
	args := m.Called(ctx, offset, limit)
	return args.Get(0).([]domain.Product), args.Int(1), args.Error(2)
}

// --- Test Helpers ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

type testDeps struct {
	tx       *mockCheckoutTx
	carts    *mockCartRepository
	orders   *mockOrderRepository
	products *mockProductRepository
}

func testRouter(t *testing.T, validate middleware.TokenValidator) (http.Handler, *testDeps) {
	t.Helper()

	deps := &testDeps{
		tx:       new(mockCheckoutTx),
		carts:    new(mockCartRepository),
		orders:   new(mockOrderRepository),
		products: new(mockProductRepository),
	}

	logger := testLogger()
	checkoutSvc := service.NewCheckoutService(&checkoutRepoStub{tx: deps.tx}, nil, nil, logger)
	cartSvc := service.NewCartService(deps.carts, deps.products, logger)
	orderSvc := service.NewOrderService(deps.orders, nil, logger)
	catalogSvc := service.NewCatalogService(deps.products)

	router := NewRouter(checkoutSvc, cartSvc, orderSvc, catalogSvc, RouterConfig{
		ServiceName:    "nileshop-test",
		Logger:         logger,
		Health:         health.NewHandler(),
		TokenValidator: validate,
		CORS:           middleware.DefaultCORSConfig(),
	})
	return router, deps
}

func userValidator(userID, role string) middleware.TokenValidator {
	return func(token string) (*middleware.Claims, error) {
		if token != "good-token" {
			return nil, apperrors.Unauthorized("invalid token")
		}
		return &middleware.Claims{UserID: userID, Role: role}, nil
	}
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) httputil.Response {
	t.Helper()
	var resp httputil.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func storedCart() *domain.Cart {
	now := time.Now().UTC()
	return &domain.Cart{
		ID:     "cart-1",
		UserID: "user-1",
		Items: []domain.CartItem{
			{ID: "line-1", CartID: "cart-1", ProductID: "prod-1", ProductName: "Coffee Beans", UnitPrice: 1000, Quantity: 2, AddedAt: now},
			{ID: "line-2", CartID: "cart-1", ProductID: "prod-2", ProductName: "Filter Papers", UnitPrice: 500, Quantity: 3, AddedAt: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func storedProduct(id, name string) *domain.Product {
	return &domain.Product{
		ID:           id,
		Name:         name,
		Price:        1000,
		Currency:     "EGP",
		Stock:        10,
		StockTracked: true,
		IsActive:     true,
	}
}

// --- Checkout / Orders ---

func TestCreateOrder_Success(t *testing.T) {
	router, deps := testRouter(t, userValidator("user-1", "customer"))

	deps.tx.On("CartForUpdate", mock.Anything, "user-1").Return(storedCart(), nil)
	deps.tx.On("ProductByID", mock.Anything, "prod-1").Return(storedProduct("prod-1", "Coffee Beans"), nil)
	deps.tx.On("ProductByID", mock.Anything, "prod-2").Return(storedProduct("prod-2", "Filter Papers"), nil)
	deps.tx.On("DecrementStock", mock.Anything, "prod-1", 2).Return(true, nil)
	deps.tx.On("DecrementStock", mock.Anything, "prod-2", 3).Return(true, nil)
	deps.tx.On("InsertOrder", mock.Anything, mock.AnythingOfType("*domain.Order")).Return(nil)
	deps.tx.On("MarkOrderPaid", mock.Anything, mock.AnythingOfType("string")).Return(nil)
	deps.tx.On("ClearCart", mock.Anything, "cart-1").Return(nil)

	rec := doJSON(t, router, http.MethodPost, "/api/orders/", "good-token", map[string]string{"notes": "ring twice"})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Data)
	order := resp.Data.(map[string]any)
	assert.Equal(t, "paid", order["status"])
	assert.Equal(t, float64(3500), order["total"])
	assert.Equal(t, "EGP", order["currency"])
	assert.Equal(t, "ring twice", order["notes"])
}

func TestCreateOrder_EmptyBodyAllowed(t *testing.T) {
	router, deps := testRouter(t, userValidator("user-1", "customer"))

	deps.tx.On("CartForUpdate", mock.Anything, "user-1").Return(nil, apperrors.NotFound("cart", "user-1"))

	req := httptest.NewRequest(http.MethodPost, "/api/orders/", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// Still reaches the service; the empty cart is the failure, not the body.
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "EMPTY_CART", resp.Error.Code)
}

func TestCreateOrder_InsufficientStock(t *testing.T) {
	router, deps := testRouter(t, userValidator("user-1", "customer"))

	short := storedProduct("prod-1", "Coffee Beans")
	short.Stock = 1

	deps.tx.On("CartForUpdate", mock.Anything, "user-1").Return(storedCart(), nil)
	deps.tx.On("ProductByID", mock.Anything, "prod-1").Return(short, nil)

	rec := doJSON(t, router, http.MethodPost, "/api/orders/", "good-token", map[string]string{})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, "INSUFFICIENT_STOCK", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "Coffee Beans")
}

func TestCreateOrder_Unauthenticated(t *testing.T) {
	router, _ := testRouter(t, userValidator("user-1", "customer"))

	rec := doJSON(t, router, http.MethodPost, "/api/orders/", "", map[string]string{})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListOrders(t *testing.T) {
	router, deps := testRouter(t, userValidator("user-1", "customer"))

	orders := []domain.Order{{ID: "order-1", UserID: "user-1", Status: domain.OrderStatusPaid, Total: 3500, Currency: "EGP"}}
	deps.orders.On("ListByUser", mock.Anything, "user-1", 0, 20).Return(orders, 1, nil)

	rec := doJSON(t, router, http.MethodGet, "/api/orders/", "good-token", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	page := resp.Data.(map[string]any)
	assert.Equal(t, float64(1), page["total"])
	assert.Len(t, page["items"], 1)
}

func TestListOrders_Pagination(t *testing.T) {
	router, deps := testRouter(t, userValidator("user-1", "customer"))

	deps.orders.On("ListByUser", mock.Anything, "user-1", 10, 5).Return([]domain.Order{}, 3, nil)

	rec := doJSON(t, router, http.MethodGet, "/api/orders/?page=3&pageSize=5", "good-token", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	deps.orders.AssertExpectations(t)
}

func TestGetOrder_ForeignOrderIs404(t *testing.T) {
	router, deps := testRouter(t, userValidator("user-1", "customer"))

	deps.orders.On("GetByID", mock.Anything, "order-9").Return(
		&domain.Order{ID: "order-9", UserID: "someone-else", Status: domain.OrderStatusPaid}, nil)

	rec := doJSON(t, router, http.MethodGet, "/api/orders/order-9", "good-token", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateOrderStatus_AdminOnly(t *testing.T) {
	router, _ := testRouter(t, userValidator("user-1", "customer"))

	rec := doJSON(t, router, http.MethodPut, "/api/orders/order-1/status", "good-token",
		map[string]string{"status": "processing"})

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUpdateOrderStatus_AsAdmin(t *testing.T) {
	router, deps := testRouter(t, userValidator("admin-1", "admin"))

	deps.orders.On("GetByID", mock.Anything, "order-1").Return(
		&domain.Order{ID: "order-1", UserID: "user-1", Status: domain.OrderStatusPaid}, nil)
	deps.orders.On("UpdateStatus", mock.Anything, "order-1", "processing").Return(nil)

	rec := doJSON(t, router, http.MethodPut, "/api/orders/order-1/status", "good-token",
		map[string]string{"status": "processing"})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeResponse(t, rec)
	order := resp.Data.(map[string]any)
	assert.Equal(t, "processing", order["status"])
}

func TestUpdateOrderStatus_IllegalTransition(t *testing.T) {
	router, deps := testRouter(t, userValidator("admin-1", "admin"))

	deps.orders.On("GetByID", mock.Anything, "order-1").Return(
		&domain.Order{ID: "order-1", UserID: "user-1", Status: domain.OrderStatusShipped}, nil)

	rec := doJSON(t, router, http.MethodPut, "/api/orders/order-1/status", "good-token",
		map[string]string{"status": "cancelled"})

	assert.Equal(t, http.StatusConflict, rec.Code)
}

// --- Cart ---

func TestGetCart_EmptyForNewUser(t *testing.T) {
	router, deps := testRouter(t, userValidator("user-1", "customer"))

	deps.carts.On("GetByUserID", mock.Anything, "user-1").Return(nil, apperrors.NotFound("cart", "user-1"))

	rec := doJSON(t, router, http.MethodGet, "/api/cart/", "good-token", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	cart := resp.Data.(map[string]any)
	assert.Len(t, cart["items"], 0)
}

func TestAddCartItem(t *testing.T) {
	router, deps := testRouter(t, userValidator("user-1", "customer"))

	productID := "2f1f6e90-3e68-44ab-9d9e-10a30ba23b15"
	now := time.Now().UTC()
	empty := &domain.Cart{ID: "cart-1", UserID: "user-1", Items: []domain.CartItem{}, CreatedAt: now, UpdatedAt: now}

	deps.products.On("GetByID", mock.Anything, productID).Return(storedProduct(productID, "Coffee Beans"), nil)
	deps.carts.On("GetOrCreate", mock.Anything, "user-1").Return(empty, nil)
	deps.carts.On("AddItem", mock.Anything, mock.AnythingOfType("*domain.CartItem")).Return(nil)
	deps.carts.On("GetByUserID", mock.Anything, "user-1").Return(storedCart(), nil)

	rec := doJSON(t, router, http.MethodPost, "/api/cart/items", "good-token",
		map[string]any{"product_id": productID, "quantity": 2})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestAddCartItem_RejectsNonUUIDProduct(t *testing.T) {
	router, _ := testRouter(t, userValidator("user-1", "customer"))

	rec := doJSON(t, router, http.MethodPost, "/api/cart/items", "good-token",
		map[string]any{"product_id": "not-a-uuid", "quantity": 1})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
}

func TestRemoveCartItem_Idempotent(t *testing.T) {
	router, deps := testRouter(t, userValidator("user-1", "customer"))

	deps.carts.On("GetByUserID", mock.Anything, "user-1").Return(nil, apperrors.NotFound("cart", "user-1"))

	rec := doJSON(t, router, http.MethodDelete, "/api/cart/items/line-9", "good-token", nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestClearCart(t *testing.T) {
	router, deps := testRouter(t, userValidator("user-1", "customer"))

	deps.carts.On("GetByUserID", mock.Anything, "user-1").Return(storedCart(), nil)
	deps.carts.On("Clear", mock.Anything, "cart-1").Return(nil)

	rec := doJSON(t, router, http.MethodDelete, "/api/cart/", "good-token", nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	deps.carts.AssertExpectations(t)
}

// --- Catalog ---

func TestListProducts_Public(t *testing.T) {
	router, deps := testRouter(t, userValidator("user-1", "customer"))

	deps.products.On("List", mock.Anything, 0, 20).Return(
		[]domain.Product{*storedProduct("prod-1", "Coffee Beans")}, 1, nil)

	rec := doJSON(t, router, http.MethodGet, "/api/products/", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Cache-Control"), "max-age=60")
}

func TestGetProduct_NotFound(t *testing.T) {
	router, deps := testRouter(t, userValidator("user-1", "customer"))

	deps.products.On("GetByID", mock.Anything, "ghost").Return(nil, apperrors.NotFound("product", "ghost"))

	rec := doJSON(t, router, http.MethodGet, "/api/products/ghost", "", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// --- Health ---

func TestHealthEndpoints(t *testing.T) {
	router, _ := testRouter(t, userValidator("user-1", "customer"))

	rec := doJSON(t, router, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
