package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/toko-nastar/api/internal/format"
	"github.com/toko-nastar/api/internal/model"
	"github.com/toko-nastar/api/internal/report"
	"github.com/toko-nastar/api/internal/service"
)

// ProductionService defines the sync-service methods needed by
// production-planning handlers. Satisfied by *service.Sync.
type ProductionService interface {
	Orders(ctx context.Context) []model.Order
	Materials(ctx context.Context) []model.Material
	Specs(ctx context.Context) []model.ProductionSpec
	SaveSpec(ctx context.Context, in service.SpecInput) (model.ProductionSpec, error)
}

// ProductionHandler handles production specs, planning and costing.
type ProductionHandler struct {
	svc ProductionService
}

// NewProductionHandler creates a new ProductionHandler.
func NewProductionHandler(svc ProductionService) *ProductionHandler {
	return &ProductionHandler{svc: svc}
}

// RegisterRoutes registers production endpoints on the given Chi
// router. Expected to be mounted at /production.
func (h *ProductionHandler) RegisterRoutes(r chi.Router) {
	r.Get("/specs", h.ListSpecs)
	r.Post("/specs", h.SaveSpec)
	r.Get("/requirement", h.Requirement)
	r.Get("/costing", h.Costing)
}

// ListSpecs handles GET /production/specs.
func (h *ProductionHandler) ListSpecs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"specs": h.svc.Specs(r.Context())})
}

// SaveSpec handles POST /production/specs: an upsert keyed by size.
func (h *ProductionHandler) SaveSpec(w http.ResponseWriter, r *http.Request) {
	var req service.SpecInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	spec, err := h.svc.SaveSpec(r.Context(), req)
	if err != nil {
		writeServiceError(w, "save spec", err)
		return
	}
	writeJSON(w, http.StatusOK, spec)
}

// Requirement handles GET /production/requirement: jars still to
// bake and the raw materials they consume, checked against stock.
func (h *ProductionHandler) Requirement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orders := h.svc.Orders(ctx)
	specs := h.svc.Specs(ctx)
	materials := h.svc.Materials(ctx)

	writeJSON(w, http.StatusOK, map[string]any{
		"jars":        report.JarsToMake(orders),
		"requirement": report.MaterialRequirement(orders, specs, materials),
	})
}

// Costing handles GET /production/costing?size=400g&price=55000.
// The optional price overrides the spec's selling price for what-if
// margin calculations.
func (h *ProductionHandler) Costing(w http.ResponseWriter, r *http.Request) {
	size := r.URL.Query().Get("size")
	spec, ok := report.SpecMap(h.svc.Specs(r.Context()))[size]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown size"})
		return
	}

	override := format.ToNumber(r.URL.Query().Get("price"))
	writeJSON(w, http.StatusOK, report.Cost(spec, override))
}
