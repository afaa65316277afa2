package rbac

import (
	"log/slog"
	"net/http"

	"github.com/odyssey-erp/wms-console/internal/shared"
	"github.com/odyssey-erp/wms-console/internal/view"
)

// LoginPath is where unauthenticated visitors are sent.
const LoginPath = "/login"

// Middleware wires role guards for HTTP handlers.
type Middleware struct {
	Templates *view.Engine
	CSRF      *shared.CSRFManager
	Logger    *slog.Logger
}

// RequireSession redirects to the login page unless a complete identity was restored.
func (m Middleware) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := shared.IdentityFromContext(r.Context()); !ok {
			http.Redirect(w, r, LoginPath, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole renders the access-denied page unless the identity holds one of roles.
// The wrapped handler is never invoked for other roles, so nothing is fetched.
func (m Middleware) RequireRole(roles ...shared.Role) func(http.Handler) http.Handler {
	allowed := make(map[shared.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := shared.IdentityFromContext(r.Context())
			if !ok {
				http.Redirect(w, r, LoginPath, http.StatusSeeOther)
				return
			}
			if _, granted := allowed[id.Role]; granted {
				next.ServeHTTP(w, r)
				return
			}
			m.denied(w, r, id)
		})
	}
}

func (m Middleware) denied(w http.ResponseWriter, r *http.Request, id shared.Identity) {
	if m.Templates == nil {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	var csrfToken string
	if m.CSRF != nil && sess != nil {
		csrfToken, _ = m.CSRF.EnsureToken(sess)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusForbidden)
	err := m.Templates.Render(w, "pages/denied.html", view.TemplateData{
		Title:       "Access denied",
		CSRFToken:   csrfToken,
		Flashes:     sess.PopFlashes(),
		CurrentPath: r.URL.Path,
		Identity:    &id,
	})
	if err != nil && m.Logger != nil {
		m.Logger.Error("render denied", slog.Any("error", err))
	}
}
