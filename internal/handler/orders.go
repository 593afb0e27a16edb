package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/toko-nastar/api/internal/model"
	"github.com/toko-nastar/api/internal/report"
	"github.com/toko-nastar/api/internal/service"
)

// OrderService defines the sync-service methods needed by order
// handlers. Satisfied by *service.Sync; narrow interface for
// testability.
type OrderService interface {
	Orders(ctx context.Context) []model.Order
	CreateOrder(ctx context.Context, in service.CreateOrderInput) (model.Order, error)
	UpdateOrder(ctx context.Context, id string, in service.UpdateOrderInput) (model.Order, error)
	AdvanceOrderStatus(ctx context.Context, id string) (model.Order, error)
	MarkPaid(ctx context.Context, id string) (model.Order, error)
	DeleteOrder(ctx context.Context, id string) error
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderService) *OrderHandler {
	return &OrderHandler{svc: svc}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted at /orders.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Route("/{id}", func(r chi.Router) {
		r.Patch("/", h.Update)
		r.Delete("/", h.Delete)
		r.Post("/advance", h.Advance)
		r.Post("/pay", h.Pay)
	})
}

// List handles GET /orders?status=&q=
// Orders come back newest first; both filters are optional.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	orders := report.SortNewestFirst(h.svc.Orders(r.Context()))
	status := r.URL.Query().Get("status")
	query := r.URL.Query().Get("q")
	if status != "" || query != "" {
		orders = report.FilterOrders(orders, status, query)
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

// Create handles POST /orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateOrderInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	order, err := h.svc.CreateOrder(r.Context(), req)
	if err != nil {
		writeServiceError(w, "create order", err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

// Update handles PATCH /orders/{id}.
func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateOrderInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	order, err := h.svc.UpdateOrder(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, "update order", err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// Advance handles POST /orders/{id}/advance: one step forward in
// Menunggu -> Diproses -> Selesai.
func (h *OrderHandler) Advance(w http.ResponseWriter, r *http.Request) {
	order, err := h.svc.AdvanceOrderStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, "advance order", err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// Pay handles POST /orders/{id}/pay.
func (h *OrderHandler) Pay(w http.ResponseWriter, r *http.Request) {
	order, err := h.svc.MarkPaid(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, "mark order paid", err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// Delete handles DELETE /orders/{id}.
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteOrder(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, "delete order", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
