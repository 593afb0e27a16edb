package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/toko-nastar/api/internal/format"
	"github.com/toko-nastar/api/internal/model"
	"github.com/toko-nastar/api/internal/report"
)

// DashboardService defines the sync-service methods needed by the
// dashboard handler. Satisfied by *service.Sync.
type DashboardService interface {
	Orders(ctx context.Context) []model.Order
	Materials(ctx context.Context) []model.Material
	Specs(ctx context.Context) []model.ProductionSpec
}

// DashboardHandler serves the single aggregate payload behind the
// home screen: today's numbers, the sales chart, stock alerts and the
// monthly best-seller board in one response.
type DashboardHandler struct {
	svc DashboardService
	now func() time.Time
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(svc DashboardService) *DashboardHandler {
	return &DashboardHandler{svc: svc, now: time.Now}
}

// RegisterRoutes registers the dashboard endpoint on the given Chi
// router. Expected to be mounted at /dashboard.
func (h *DashboardHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Get)
}

// Get handles GET /dashboard?days=7
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	days := 7
	if s := r.URL.Query().Get("days"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			days = v
		}
	}
	if days > 90 {
		days = 90
	}

	ctx := r.Context()
	orders := h.svc.Orders(ctx)
	materials := h.svc.Materials(ctx)
	specs := h.svc.Specs(ctx)
	now := h.now()

	writeJSON(w, http.StatusOK, map[string]any{
		"today":         report.Summarize(orders, format.ISODate(now)),
		"status_counts": report.StatusCounts(orders),
		"sales":         report.SalesSeries(orders, days, now),
		"size_revenue":  report.SizeRevenueDistribution(orders),
		"size_quantity": report.SizeQuantityDistribution(orders),
		"inventory":     report.Inventory(materials),
		"leaderboard":   report.MonthlyLeaderboard(orders, specs, now),
		"jars":          report.JarsToMake(orders),
	})
}
