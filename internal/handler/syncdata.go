package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/toko-nastar/api/internal/model"
	"github.com/toko-nastar/api/internal/service"
)

// SyncService defines the sync-service methods needed by the sync,
// data and settings admin endpoints. Satisfied by *service.Sync.
type SyncService interface {
	Status() service.SyncStatus
	SetOnline(ctx context.Context, online bool)
	ProcessQueue(ctx context.Context) (service.QueueResult, error)
	Settings() model.Settings
	SaveSettings(settings model.Settings) error
	Export(fmtName string) ([]byte, error)
	Import(data []byte, fmtName string) error
	Backup() (string, []byte, error)
	ClearAll() error
}

// SyncHandler exposes the sync queue, import/export and settings.
type SyncHandler struct {
	svc SyncService
}

// NewSyncHandler creates a new SyncHandler.
func NewSyncHandler(svc SyncService) *SyncHandler {
	return &SyncHandler{svc: svc}
}

// RegisterSyncRoutes registers queue endpoints. Expected to be
// mounted at /sync.
func (h *SyncHandler) RegisterSyncRoutes(r chi.Router) {
	r.Get("/status", h.Status)
	r.Post("/process", h.Process)
	r.Post("/online", h.Online)
}

// RegisterDataRoutes registers import/export endpoints. Expected to
// be mounted at /data.
func (h *SyncHandler) RegisterDataRoutes(r chi.Router) {
	r.Get("/export", h.Export)
	r.Post("/import", h.Import)
	r.Get("/backup", h.Backup)
	r.Post("/restore", h.Restore)
	r.Post("/clear", h.Clear)
}

// RegisterSettingsRoutes registers the settings endpoints. Expected
// to be mounted at /settings.
func (h *SyncHandler) RegisterSettingsRoutes(r chi.Router) {
	r.Get("/", h.GetSettings)
	r.Put("/", h.PutSettings)
}

// Status handles GET /sync/status.
func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Status())
}

// Process handles POST /sync/process: one manual drain pass.
func (h *SyncHandler) Process(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ProcessQueue(r.Context())
	if err != nil {
		writeServiceError(w, "process queue", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type onlineRequest struct {
	Online bool `json:"online"`
}

// Online handles POST /sync/online: the connectivity prober and the
// UI both report transitions here.
func (h *SyncHandler) Online(w http.ResponseWriter, r *http.Request) {
	var req onlineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	h.svc.SetOnline(r.Context(), req.Online)
	writeJSON(w, http.StatusOK, h.svc.Status())
}

// Export handles GET /data/export?format=json|csv
func (h *SyncHandler) Export(w http.ResponseWriter, r *http.Request) {
	fmtName := r.URL.Query().Get("format")
	data, err := h.svc.Export(fmtName)
	if err != nil {
		writeServiceError(w, "export", err)
		return
	}

	if fmtName == "csv" {
		w.Header().Set("Content-Type", "text/csv")
	} else {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Import handles POST /data/import?format=json|csv with the exported
// payload as the request body.
func (h *SyncHandler) Import(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 10<<20))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cannot read request body"})
		return
	}
	if err := h.svc.Import(data, r.URL.Query().Get("format")); err != nil {
		writeServiceError(w, "import", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "imported"})
}

// Backup handles GET /data/backup: a dated JSON download.
func (h *SyncHandler) Backup(w http.ResponseWriter, r *http.Request) {
	name, data, err := h.svc.Backup()
	if err != nil {
		writeServiceError(w, "backup", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Restore handles POST /data/restore with a backup file as the body.
func (h *SyncHandler) Restore(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 10<<20))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cannot read request body"})
		return
	}
	if err := h.svc.Import(data, "json"); err != nil {
		writeServiceError(w, "restore", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "restored"})
}

// Clear handles POST /data/clear: wipes all local data, the queue
// and the cache. The UI asks for confirmation; the API does not.
func (h *SyncHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ClearAll(); err != nil {
		writeServiceError(w, "clear all", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// GetSettings handles GET /settings.
func (h *SyncHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Settings())
}

// PutSettings handles PUT /settings.
func (h *SyncHandler) PutSettings(w http.ResponseWriter, r *http.Request) {
	var req model.Settings
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := h.svc.SaveSettings(req); err != nil {
		writeServiceError(w, "save settings", err)
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Settings())
}
