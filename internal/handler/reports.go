package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/toko-nastar/api/internal/model"
	"github.com/toko-nastar/api/internal/report"
)

// ReportsService defines the sync-service methods needed by the
// reports handler. Satisfied by *service.Sync.
type ReportsService interface {
	Orders(ctx context.Context) []model.Order
	Specs(ctx context.Context) []model.ProductionSpec
}

// ReportsHandler serves period sales reports and the monthly
// leaderboard.
type ReportsHandler struct {
	svc ReportsService
	now func() time.Time
}

// NewReportsHandler creates a new ReportsHandler.
func NewReportsHandler(svc ReportsService) *ReportsHandler {
	return &ReportsHandler{svc: svc, now: time.Now}
}

// RegisterRoutes registers report endpoints on the given Chi router.
// Expected to be mounted at /reports.
func (h *ReportsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Period)
	r.Get("/leaderboard", h.Leaderboard)
}

// Period handles GET /reports?period=today|week|month|custom&start=&end=
// The custom period requires start and end as YYYY-MM-DD, inclusive.
func (h *ReportsHandler) Period(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	period := q.Get("period")
	if period == "" {
		period = "today"
	}
	start, end := q.Get("start"), q.Get("end")
	if period == "custom" && (start == "" || end == "") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "custom period requires start and end"})
		return
	}

	ctx := r.Context()
	totals, orders := report.PeriodReport(h.svc.Orders(ctx), h.svc.Specs(ctx), period, start, end, h.now())
	writeJSON(w, http.StatusOK, map[string]any{
		"totals": totals,
		"orders": orders,
	})
}

// Leaderboard handles GET /reports/leaderboard: completed sales per
// size for the current month.
func (h *ReportsHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	writeJSON(w, http.StatusOK, report.MonthlyLeaderboard(h.svc.Orders(ctx), h.svc.Specs(ctx), h.now()))
}
