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

// MaterialService defines the sync-service methods needed by material
// handlers. Satisfied by *service.Sync.
type MaterialService interface {
	Materials(ctx context.Context) []model.Material
	SaveMaterial(ctx context.Context, in service.MaterialInput) (model.Material, error)
}

// MaterialHandler handles raw-material (bahan baku) endpoints.
type MaterialHandler struct {
	svc MaterialService
}

// NewMaterialHandler creates a new MaterialHandler.
func NewMaterialHandler(svc MaterialService) *MaterialHandler {
	return &MaterialHandler{svc: svc}
}

// RegisterRoutes registers material endpoints on the given Chi router.
// Expected to be mounted at /materials.
func (h *MaterialHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Save)
	r.Get("/inventory", h.Inventory)
}

// List handles GET /materials.
func (h *MaterialHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"materials": h.svc.Materials(r.Context())})
}

// Save handles POST /materials: an upsert keyed by material name.
func (h *MaterialHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req service.MaterialInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	material, err := h.svc.SaveMaterial(r.Context(), req)
	if err != nil {
		writeServiceError(w, "save material", err)
		return
	}
	writeJSON(w, http.StatusOK, material)
}

// Inventory handles GET /materials/inventory: stock value and
// below-minimum alerts.
func (h *MaterialHandler) Inventory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, report.Inventory(h.svc.Materials(r.Context())))
}
