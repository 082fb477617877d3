package http_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/uniform-shop/internal/auth"
	shopHttp "github.com/vasiliy-maslov/uniform-shop/internal/handler/http"
	"github.com/vasiliy-maslov/uniform-shop/internal/order"
)

func TestAdminHandler_RequiresAdmin(t *testing.T) {
	ts := newTestServer(t)
	token := ts.token(t, newID(), auth.RoleStudent)

	rr := ts.do(t, http.MethodGet, "/api/admin/orders", token, nil)
	require.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "Admin access required", decodeMessage(t, rr))

	rr = ts.do(t, http.MethodPut, "/api/admin/orders/"+newID().String(), token, shopHttp.UpdateOrderStatusRequest{Status: "Shipped"})
	require.Equal(t, http.StatusForbidden, rr.Code)

	ts.orders.AssertNotCalled(t, "ListAllOrders", mock.Anything)
}

func TestAdminHandler_handleListAllOrders(t *testing.T) {
	ts := newTestServer(t)
	now := time.Now().UTC().Truncate(time.Second)
	orders := []order.Order{
		{ID: newID(), UserID: newID(), TotalAmount: decimal.RequireFromString("30.00"), Status: order.StatusShipped, CreatedAt: now, UpdatedAt: now},
		{ID: newID(), UserID: newID(), TotalAmount: decimal.RequireFromString("12.00"), Status: order.StatusPaid, CreatedAt: now, UpdatedAt: now},
	}
	ts.orders.On("ListAllOrders", mock.Anything).Return(orders, nil).Once()

	rr := ts.do(t, http.MethodGet, "/api/admin/orders", ts.token(t, newID(), auth.RoleAdmin), nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var got []order.Order
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	require.Len(t, got, 2)
	assert.Equal(t, orders[0].ID, got[0].ID)
	assert.Equal(t, order.StatusPaid, got[1].Status)
}

func TestAdminHandler_handleUpdateOrderStatus_Success(t *testing.T) {
	ts := newTestServer(t)
	orderID := newID()
	updated := &order.Order{ID: orderID, Status: order.StatusShipped, TotalAmount: decimal.RequireFromString("5.00")}
	ts.orders.On("UpdateOrderStatus", mock.Anything, orderID, order.StatusShipped).Return(updated, nil).Once()

	rr := ts.do(t, http.MethodPut, "/api/admin/orders/"+orderID.String(), ts.token(t, newID(), auth.RoleAdmin),
		shopHttp.UpdateOrderStatusRequest{Status: "Shipped"})
	require.Equal(t, http.StatusOK, rr.Code)

	var got order.Order
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Equal(t, orderID, got.ID)
	assert.Equal(t, order.StatusShipped, got.Status)
}

func TestAdminHandler_handleUpdateOrderStatus_Errors(t *testing.T) {
	transitionErr := fmt.Errorf("%w from %s to %s", order.ErrInvalidStatusTransition, order.StatusDelivered, order.StatusPending)

	tests := []struct {
		name        string
		status      string
		err         error
		wantStatus  int
		wantMessage string
	}{
		{name: "unknown status", status: "Lost", err: order.ErrInvalidStatus, wantStatus: http.StatusBadRequest, wantMessage: order.ErrInvalidStatus.Error()},
		{name: "backwards", status: "Pending", err: transitionErr, wantStatus: http.StatusConflict, wantMessage: transitionErr.Error()},
		{name: "lost race", status: "Delivered", err: order.ErrStatusConflict, wantStatus: http.StatusConflict, wantMessage: order.ErrStatusConflict.Error()},
		{name: "missing order", status: "Shipped", err: order.ErrOrderNotFound, wantStatus: http.StatusNotFound, wantMessage: order.ErrOrderNotFound.Error()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			orderID := newID()
			ts.orders.On("UpdateOrderStatus", mock.Anything, orderID, order.Status(tt.status)).Return(nil, tt.err).Once()

			rr := ts.do(t, http.MethodPut, "/api/admin/orders/"+orderID.String(), ts.token(t, newID(), auth.RoleAdmin),
				shopHttp.UpdateOrderStatusRequest{Status: tt.status})
			require.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantMessage, decodeMessage(t, rr))
		})
	}
}

func TestAdminHandler_handleUpdateOrderStatus_BadRequest(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.token(t, newID(), auth.RoleAdmin)

	rr := ts.do(t, http.MethodPut, "/api/admin/orders/123", admin, shopHttp.UpdateOrderStatusRequest{Status: "Shipped"})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Invalid id parameter", decodeMessage(t, rr))

	rr = ts.do(t, http.MethodPut, "/api/admin/orders/"+newID().String(), admin, `{}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	var resp shopHttp.ValidationErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "is required", resp.Details["status"])

	ts.orders.AssertNotCalled(t, "UpdateOrderStatus", mock.Anything, mock.Anything, mock.Anything)
}
