package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Johngardev/Emeraldia/internal/domain"
	"github.com/Johngardev/Emeraldia/internal/repository"
	"github.com/Johngardev/Emeraldia/internal/service"
)

type orderServiceMock struct {
	order  *domain.Order
	orders []*domain.Order
	err    error

	gotOrderID string
	gotUserID  string
	gotStatus  domain.OrderStatus
}

func (m *orderServiceMock) GetOrder(_ context.Context, orderID, userID string) (*domain.Order, error) {
	m.gotOrderID, m.gotUserID = orderID, userID
	return m.order, m.err
}

func (m *orderServiceMock) ListOrders(_ context.Context, userID string) ([]*domain.Order, error) {
	m.gotUserID = userID
	return m.orders, m.err
}

func (m *orderServiceMock) UpdateStatus(_ context.Context, orderID string, newStatus domain.OrderStatus) (*domain.Order, error) {
	m.gotOrderID, m.gotStatus = orderID, newStatus
	return m.order, m.err
}

func sampleOrder() *domain.Order {
	return &domain.Order{
		ID:     "order-1",
		UserID: "user1",
		Items: []domain.OrderItem{
			{
				ProductID:   "emerald-1",
				ProductName: "Colombian Emerald",
				Quantity:    2,
				UnitPrice:   decimal.RequireFromString("149.50"),
			},
		},
		TotalAmount:     decimal.RequireFromString("299.00"),
		Status:          domain.OrderStatusPending,
		ShippingAddress: "12 Gem Street",
		BillingAddress:  "12 Gem Street",
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
}

func ordersRouter(h *OrdersHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(MockAuthMiddleware)
	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Get("/", h.ListOrders)
		r.Get("/{order_id}", h.GetOrder)
		r.With(RequireAdmin).Patch("/{order_id}/status", h.UpdateStatus)
	})
	return r
}

func TestListOrders_Success(t *testing.T) {
	mock := &orderServiceMock{orders: []*domain.Order{sampleOrder()}}
	router := ordersRouter(NewOrdersHandler(mock, 5*time.Second))

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest("GET", "/api/v1/orders", nil)
	request.Header.Set("X-User-ID", "user1")
	router.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "user1", mock.gotUserID)

	var resp []OrderResponseDTO
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "order-1", resp[0].ID)
	assert.Equal(t, "PENDING", resp[0].Status)
	assert.Equal(t, "299.00", resp[0].TotalAmount)
	require.Len(t, resp[0].Items, 1)
	assert.Equal(t, "299.00", resp[0].Items[0].Subtotal)
}

func TestListOrders_EmptyIsArrayNotNull(t *testing.T) {
	mock := &orderServiceMock{}
	router := ordersRouter(NewOrdersHandler(mock, 5*time.Second))

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest("GET", "/api/v1/orders", nil)
	request.Header.Set("X-User-ID", "user1")
	router.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "[]\n", recorder.Body.String())
}

func TestGetOrder_Success(t *testing.T) {
	mock := &orderServiceMock{order: sampleOrder()}
	router := ordersRouter(NewOrdersHandler(mock, 5*time.Second))

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest("GET", "/api/v1/orders/order-1", nil)
	request.Header.Set("X-User-ID", "user1")
	router.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "order-1", mock.gotOrderID)
	assert.Equal(t, "user1", mock.gotUserID)
}

func TestGetOrder_NotFound(t *testing.T) {
	mock := &orderServiceMock{err: repository.ErrOrderNotFound}
	router := ordersRouter(NewOrdersHandler(mock, 5*time.Second))

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest("GET", "/api/v1/orders/missing", nil)
	request.Header.Set("X-User-ID", "user1")
	router.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusNotFound, recorder.Code)
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
	assert.Equal(t, "not_found", resp.Code)
}

func TestUpdateStatus_Success(t *testing.T) {
	order := sampleOrder()
	order.Status = domain.OrderStatusProcessing
	mock := &orderServiceMock{order: order}
	router := ordersRouter(NewOrdersHandler(mock, 5*time.Second))

	body := bytes.NewBufferString(`{"status":"PROCESSING"}`)
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest("PATCH", "/api/v1/orders/order-1/status", body)
	request.Header.Set("X-User-ID", "admin")
	request.Header.Set("X-Admin-Role", "true")
	router.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, domain.OrderStatusProcessing, mock.gotStatus)

	var resp OrderResponseDTO
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
	assert.Equal(t, "PROCESSING", resp.Status)
}

func TestUpdateStatus_RequiresAdmin(t *testing.T) {
	mock := &orderServiceMock{order: sampleOrder()}
	router := ordersRouter(NewOrdersHandler(mock, 5*time.Second))

	body := bytes.NewBufferString(`{"status":"PROCESSING"}`)
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest("PATCH", "/api/v1/orders/order-1/status", body)
	request.Header.Set("X-User-ID", "user1")
	router.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusForbidden, recorder.Code)
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
	assert.Equal(t, "permission_denied", resp.Code)
	// The service was never reached
	assert.Empty(t, mock.gotOrderID)
}

func TestUpdateStatus_InvalidTransition(t *testing.T) {
	mock := &orderServiceMock{
		err: fmt.Errorf("%w: DELIVERED -> PENDING", service.ErrInvalidTransition),
	}
	router := ordersRouter(NewOrdersHandler(mock, 5*time.Second))

	body := bytes.NewBufferString(`{"status":"PENDING"}`)
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest("PATCH", "/api/v1/orders/order-1/status", body)
	request.Header.Set("X-Admin-Role", "true")
	router.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusBadRequest, recorder.Code)
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
	assert.Equal(t, "invalid_transition", resp.Code)
	assert.Contains(t, resp.Error, "DELIVERED -> PENDING")
}

func TestUpdateStatus_StockRestoreFailure(t *testing.T) {
	mock := &orderServiceMock{
		err: fmt.Errorf("%w: product emerald-1: connection reset", service.ErrStockRestoreFailed),
	}
	router := ordersRouter(NewOrdersHandler(mock, 5*time.Second))

	body := bytes.NewBufferString(`{"status":"CANCELLED"}`)
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest("PATCH", "/api/v1/orders/order-1/status", body)
	request.Header.Set("X-Admin-Role", "true")
	router.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusInternalServerError, recorder.Code)
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
	assert.Equal(t, "stock_restore_failed", resp.Code)
}

func TestUpdateStatus_MissingBody(t *testing.T) {
	mock := &orderServiceMock{order: sampleOrder()}
	router := ordersRouter(NewOrdersHandler(mock, 5*time.Second))

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest("PATCH", "/api/v1/orders/order-1/status", bytes.NewBufferString(`{}`))
	request.Header.Set("X-Admin-Role", "true")
	router.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusBadRequest, recorder.Code)
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
	assert.Equal(t, "missing_status", resp.Code)
}
