package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/toko-nastar/api/internal/handler"
	"github.com/toko-nastar/api/internal/service"
	"github.com/toko-nastar/api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
func New(svc *service.Sync, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration. The dashboard is served from the same box
	// or the shop LAN; the API is never exposed publicly.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300, // 5 minutes
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// WebSocket route for dashboard push updates
	r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, w, r)
	})

	orderHandler := handler.NewOrderHandler(svc)
	r.Route("/orders", orderHandler.RegisterRoutes)

	materialHandler := handler.NewMaterialHandler(svc)
	r.Route("/materials", materialHandler.RegisterRoutes)

	productionHandler := handler.NewProductionHandler(svc)
	r.Route("/production", productionHandler.RegisterRoutes)

	customerHandler := handler.NewCustomerHandler(svc)
	r.Route("/customers", customerHandler.RegisterRoutes)

	dashboardHandler := handler.NewDashboardHandler(svc)
	r.Route("/dashboard", dashboardHandler.RegisterRoutes)

	reportsHandler := handler.NewReportsHandler(svc)
	r.Route("/reports", reportsHandler.RegisterRoutes)

	syncHandler := handler.NewSyncHandler(svc)
	r.Route("/sync", syncHandler.RegisterSyncRoutes)
	r.Route("/data", syncHandler.RegisterDataRoutes)
	r.Route("/settings", syncHandler.RegisterSettingsRoutes)

	return r
}
