package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	audithttp "github.com/odyssey-erp/wms-console/internal/audit/http"
	"github.com/odyssey-erp/wms-console/internal/auth"
	"github.com/odyssey-erp/wms-console/internal/inventory"
	"github.com/odyssey-erp/wms-console/internal/observability"
	"github.com/odyssey-erp/wms-console/internal/procurement"
	"github.com/odyssey-erp/wms-console/internal/sales"
	"github.com/odyssey-erp/wms-console/internal/shared"
	"github.com/odyssey-erp/wms-console/jobs"
	"github.com/odyssey-erp/wms-console/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	SessionManager     *shared.SessionManager
	CSRFManager        *shared.CSRFManager
	AuthHandler        *auth.Handler
	InventoryHandler   *inventory.Handler
	ProcurementHandler *procurement.Handler
	SalesHandler       *sales.Handler
	ActivityHandler    *audithttp.Handler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
	// AccessLog enables chi's request logger.
	AccessLog bool
}

// NewRouter constructs the chi.Router with console defaults.
func NewRouter(params RouterParams) http.Handler {
	if params.Logger == nil {
		params.Logger = slog.Default()
	}
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}
	if params.AccessLog {
		r.Use(chimw.Logger)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	params.AuthHandler.MountRoutes(r)
	params.InventoryHandler.MountRoutes(r)
	params.ProcurementHandler.MountRoutes(r)
	params.SalesHandler.MountRoutes(r)
	if params.ActivityHandler != nil {
		params.ActivityHandler.MountRoutes(r)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	// Unknown paths land on the dashboard, which applies its own guard.
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
	})

	return r
}

// staticCacheHandler caches static assets in the browser for an hour.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
