package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/toko-nastar/api/internal/enum"
	"github.com/toko-nastar/api/internal/handler"
	"github.com/toko-nastar/api/internal/model"
	"github.com/toko-nastar/api/internal/service"
)

// --- Mock service ---

type mockOrderService struct {
	orders    []model.Order
	createErr error
	updateErr error
}

func (m *mockOrderService) Orders(_ context.Context) []model.Order {
	return m.orders
}

func (m *mockOrderService) CreateOrder(_ context.Context, in service.CreateOrderInput) (model.Order, error) {
	if m.createErr != nil {
		return model.Order{}, m.createErr
	}
	order := model.Order{
		ID:            fmt.Sprintf("NST-20240105-%03d", len(m.orders)+1),
		Date:          "2024-01-05",
		CustomerName:  in.CustomerName,
		Phone:         in.Phone,
		Size:          in.Size,
		Quantity:      in.Quantity,
		OrderStatus:   enum.OrderStatusWaiting,
		PaymentStatus: enum.PaymentStatusUnpaid,
	}
	m.orders = append([]model.Order{order}, m.orders...)
	return order, nil
}

func (m *mockOrderService) UpdateOrder(_ context.Context, id string, in service.UpdateOrderInput) (model.Order, error) {
	if m.updateErr != nil {
		return model.Order{}, m.updateErr
	}
	for i := range m.orders {
		if m.orders[i].ID == id {
			if in.Quantity > 0 {
				m.orders[i].Quantity = in.Quantity
			}
			return m.orders[i], nil
		}
	}
	return model.Order{}, service.ErrOrderNotFound
}

func (m *mockOrderService) AdvanceOrderStatus(_ context.Context, id string) (model.Order, error) {
	for i := range m.orders {
		if m.orders[i].ID == id {
			m.orders[i].OrderStatus = enum.OrderStatusProcessing
			return m.orders[i], nil
		}
	}
	return model.Order{}, service.ErrOrderNotFound
}

func (m *mockOrderService) MarkPaid(_ context.Context, id string) (model.Order, error) {
	for i := range m.orders {
		if m.orders[i].ID == id {
			m.orders[i].PaymentStatus = enum.PaymentStatusPaid
			return m.orders[i], nil
		}
	}
	return model.Order{}, service.ErrOrderNotFound
}

func (m *mockOrderService) DeleteOrder(_ context.Context, id string) error {
	for i := range m.orders {
		if m.orders[i].ID == id {
			m.orders = append(m.orders[:i], m.orders[i+1:]...)
			return nil
		}
	}
	return service.ErrOrderNotFound
}

func orderRouter(svc handler.OrderService) chi.Router {
	r := chi.NewRouter()
	h := handler.NewOrderHandler(svc)
	r.Route("/orders", h.RegisterRoutes)
	return r
}

// --- Tests ---

func TestListOrdersFiltered(t *testing.T) {
	svc := &mockOrderService{orders: []model.Order{
		{ID: "NST-20240104-001", Date: "2024-01-04", CustomerName: "Budi", OrderStatus: enum.OrderStatusWaiting},
		{ID: "NST-20240105-001", Date: "2024-01-05", CustomerName: "Sari", OrderStatus: enum.OrderStatusDone},
	}}
	r := orderRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/orders?status="+enum.OrderStatusDone, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Orders []model.Order `json:"orders"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Orders) != 1 || resp.Orders[0].CustomerName != "Sari" {
		t.Errorf("orders = %+v", resp.Orders)
	}
}

func TestListOrdersNewestFirst(t *testing.T) {
	svc := &mockOrderService{orders: []model.Order{
		{ID: "NST-20240104-001", Date: "2024-01-04"},
		{ID: "NST-20240105-001", Date: "2024-01-05"},
	}}
	r := orderRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var resp struct {
		Orders []model.Order `json:"orders"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Orders) != 2 || resp.Orders[0].ID != "NST-20240105-001" {
		t.Errorf("orders = %+v", resp.Orders)
	}
}

func TestCreateOrder(t *testing.T) {
	svc := &mockOrderService{}
	r := orderRouter(svc)

	body := bytes.NewBufferString(`{"customer_name":"Budi","size":"400g","quantity":2}`)
	req := httptest.NewRequest(http.MethodPost, "/orders", body)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}
	var order model.Order
	if err := json.NewDecoder(rec.Body).Decode(&order); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if order.ID != "NST-20240105-001" || order.OrderStatus != enum.OrderStatusWaiting {
		t.Errorf("order = %+v", order)
	}
}

func TestCreateOrderInvalidBody(t *testing.T) {
	r := orderRouter(&mockOrderService{})

	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBufferString(`{not json`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCreateOrderValidationError(t *testing.T) {
	svc := &mockOrderService{createErr: fmt.Errorf("%w: customer_name is required", service.ErrValidation)}
	r := orderRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBufferString(`{"size":"400g"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateOrderRemoteRejected(t *testing.T) {
	svc := &mockOrderService{createErr: fmt.Errorf("%w: status 422", service.ErrRemoteRejected)}
	r := orderRouter(svc)

	body := bytes.NewBufferString(`{"customer_name":"Budi","size":"400g","quantity":1}`)
	req := httptest.NewRequest(http.MethodPost, "/orders", body)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}

func TestAdvanceOrder(t *testing.T) {
	svc := &mockOrderService{orders: []model.Order{
		{ID: "NST-20240105-001", OrderStatus: enum.OrderStatusWaiting},
	}}
	r := orderRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/orders/NST-20240105-001/advance", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}
	var order model.Order
	if err := json.NewDecoder(rec.Body).Decode(&order); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if order.OrderStatus != enum.OrderStatusProcessing {
		t.Errorf("status = %s", order.OrderStatus)
	}
}

func TestAdvanceUnknownOrderReturns404(t *testing.T) {
	r := orderRouter(&mockOrderService{})

	req := httptest.NewRequest(http.MethodPost, "/orders/NST-x/advance", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestPayOrder(t *testing.T) {
	svc := &mockOrderService{orders: []model.Order{
		{ID: "NST-20240105-001", PaymentStatus: enum.PaymentStatusUnpaid},
	}}
	r := orderRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/orders/NST-20240105-001/pay", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var order model.Order
	if err := json.NewDecoder(rec.Body).Decode(&order); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if order.PaymentStatus != enum.PaymentStatusPaid {
		t.Errorf("payment status = %s", order.PaymentStatus)
	}
}

func TestDeleteOrder(t *testing.T) {
	svc := &mockOrderService{orders: []model.Order{{ID: "NST-20240105-001"}}}
	r := orderRouter(svc)

	req := httptest.NewRequest(http.MethodDelete, "/orders/NST-20240105-001", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(svc.orders) != 0 {
		t.Errorf("order not deleted")
	}
}
