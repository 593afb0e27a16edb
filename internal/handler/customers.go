package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/toko-nastar/api/internal/model"
	"github.com/toko-nastar/api/internal/report"
)

// CustomerService defines the sync-service methods needed by customer
// handlers. Satisfied by *service.Sync.
type CustomerService interface {
	Orders(ctx context.Context) []model.Order
}

// CustomerHandler serves the customer ledger. There is no customer
// table: the ledger is recomputed from order history on every read,
// so deleted or edited orders are always reflected.
type CustomerHandler struct {
	svc CustomerService
}

// NewCustomerHandler creates a new CustomerHandler.
func NewCustomerHandler(svc CustomerService) *CustomerHandler {
	return &CustomerHandler{svc: svc}
}

// RegisterRoutes registers customer endpoints on the given Chi router.
// Expected to be mounted at /customers.
func (h *CustomerHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/top", h.Top)
}

// List handles GET /customers?q=
func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	customers := report.CustomerLedger(h.svc.Orders(r.Context()))
	if q := r.URL.Query().Get("q"); q != "" {
		customers = report.FilterCustomers(customers, q)
	}
	writeJSON(w, http.StatusOK, map[string]any{"customers": customers})
}

// Top handles GET /customers/top?n=5
func (h *CustomerHandler) Top(w http.ResponseWriter, r *http.Request) {
	n := 5
	if s := r.URL.Query().Get("n"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			n = v
		}
	}
	customers := report.CustomerLedger(h.svc.Orders(r.Context()))
	writeJSON(w, http.StatusOK, map[string]any{"customers": report.TopCustomers(customers, n)})
}
