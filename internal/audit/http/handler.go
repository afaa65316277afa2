// Package audithttp serves the console activity log.
package audithttp

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/wms-console/internal/audit"
	"github.com/odyssey-erp/wms-console/internal/rbac"
	"github.com/odyssey-erp/wms-console/internal/shared"
	"github.com/odyssey-erp/wms-console/internal/view"
)

// Messages shown on the activity page.
const (
	MsgDisabled   = "Activity log is disabled. Set AUDIT_MODE and AUDIT_PG_DSN to enable it."
	MsgLoadFailed = "Failed to load activity."
)

const pageSize = 50

// Handler renders the activity page.
type Handler struct {
	logger    *slog.Logger
	service   *audit.Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	rbac      rbac.Middleware
}

// NewHandler builds the activity handler; a service without a reader shows the disabled notice.
func NewHandler(logger *slog.Logger, service *audit.Service, templates *view.Engine, csrf *shared.CSRFManager, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf, rbac: rbac}
}

// MountRoutes registers /activity.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireSession)
		r.Use(h.rbac.RequireRole(shared.RoleAdmin))
		r.Get("/activity", h.showActivity)
	})
}

type pageData struct {
	Entries []audit.Entry
	Notice  string
}

func (h *Handler) showActivity(w http.ResponseWriter, r *http.Request) {
	var data pageData
	if !h.service.Enabled() {
		data.Notice = MsgDisabled
	} else if entries, err := h.service.Recent(r.Context(), pageSize); err != nil {
		h.logger.Error("list activity", slog.Any("error", err))
		data.Notice = MsgLoadFailed
	} else {
		data.Entries = entries
	}

	sess := shared.SessionFromContext(r.Context())
	var csrfToken string
	if sess != nil {
		csrfToken, _ = h.csrf.EnsureToken(sess)
	}
	viewData := view.TemplateData{
		Title:       "Activity",
		CSRFToken:   csrfToken,
		Flashes:     sess.PopFlashes(),
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	if id, ok := shared.IdentityFromContext(r.Context()); ok {
		viewData.Identity = &id
	}
	if err := h.templates.Render(w, "pages/activity.html", viewData); err != nil {
		h.logger.Error("render activity", slog.Any("error", err))
	}
}
