package auth_test

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/wms-console/internal/audit"
	"github.com/odyssey-erp/wms-console/internal/auth"
	"github.com/odyssey-erp/wms-console/internal/shared"
	"github.com/odyssey-erp/wms-console/internal/shared/sessiontest"
	"github.com/odyssey-erp/wms-console/internal/view"
	"github.com/odyssey-erp/wms-console/internal/wmsapi"
	"github.com/odyssey-erp/wms-console/internal/wmsapi/wmsapitest"
	_ "github.com/odyssey-erp/wms-console/testing"
)

func newAuthRouter(t *testing.T) (http.Handler, *sessiontest.Harness, *wmsapitest.Server) {
	t.Helper()
	api := wmsapitest.NewServer(t)
	h := sessiontest.New(t)
	templates, err := view.NewEngine()
	require.NoError(t, err)
	svc := auth.NewService(wmsapi.New(api.URL), h.Sessions, nil)
	handler := auth.NewHandler(nil, svc, templates, h.CSRF, audit.NewTrail(audit.ModeOff, nil, nil, nil))
	r := chi.NewRouter()
	handler.MountRoutes(r)
	return r, h, api
}

func TestLoginPage(t *testing.T) {
	r, h, _ := newAuthRouter(t)

	res := h.Get(r, "/login")
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "<form")
	assert.Contains(t, res.Body.String(), `href="/register"`)
}

func TestLoginStoresIdentity(t *testing.T) {
	r, h, api := newAuthRouter(t)
	api.AddUser("admin", "secret", "ADMIN")

	res := h.PostForm(r, "/login", url.Values{"username": {"admin"}, "password": {"secret"}})
	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/", res.Header().Get("Location"))

	id, ok := auth.Restore(h.Session())
	require.True(t, ok)
	assert.Equal(t, "admin", id.Username)
	assert.Equal(t, shared.RoleAdmin, id.Role)
	assert.NotEmpty(t, id.Token)
}

func TestLoginInvalidCredentials(t *testing.T) {
	r, h, api := newAuthRouter(t)
	api.AddUser("admin", "secret", "ADMIN")

	res := h.PostForm(r, "/login", url.Values{"username": {"admin"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "Invalid credentials")

	_, ok := auth.Restore(h.Session())
	assert.False(t, ok)
}

func TestLoginServerFailureLooksLikeBadCredentials(t *testing.T) {
	r, h, api := newAuthRouter(t)
	api.FailRoute("POST /api/auth/login", http.StatusInternalServerError)

	res := h.PostForm(r, "/login", url.Values{"username": {"admin"}, "password": {"secret"}})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "Invalid credentials")
}

func TestLoginUnauthorizedStatusShowsInvalidCredentials(t *testing.T) {
	r, h, api := newAuthRouter(t)
	api.FailRoute("POST /api/auth/login", http.StatusUnauthorized)

	res := h.PostForm(r, "/login", url.Values{"username": {"admin"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "Invalid credentials")
	assert.NotContains(t, res.Body.String(), "injected failure")
}

func TestLoginRequiresFields(t *testing.T) {
	r, h, api := newAuthRouter(t)

	res := h.PostForm(r, "/login", url.Values{"username": {""}, "password": {""}})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "This field is required.")
	assert.Zero(t, api.TotalHits())
}

func TestRegisterSuccessSchedulesRedirect(t *testing.T) {
	r, h, api := newAuthRouter(t)

	res := h.PostForm(r, "/register", url.Values{"username": {"newbie"}, "password": {"pw"}, "role": {"CUSTOMER"}})
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "2; url=/login", res.Header().Get("Refresh"))
	assert.Contains(t, res.Body.String(), "Registered successfully")
	assert.Equal(t, 1, api.Hits("POST /api/auth/register"))
}

func TestRegisterShowsServerRejection(t *testing.T) {
	r, h, api := newAuthRouter(t)
	api.AddUser("taken", "pw", "CUSTOMER")

	res := h.PostForm(r, "/register", url.Values{"username": {"taken"}, "password": {"pw"}, "role": {"ADMIN"}})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Empty(t, res.Header().Get("Refresh"))
	assert.Contains(t, res.Body.String(), "Username taken")
}

func TestRegisterShowsServerFailureText(t *testing.T) {
	r, h, api := newAuthRouter(t)
	api.FailRoute("POST /api/auth/register", http.StatusBadGateway)

	res := h.PostForm(r, "/register", url.Values{"username": {"x"}, "password": {"pw"}, "role": {"ADMIN"}})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "injected failure")
	assert.NotContains(t, res.Body.String(), "Registration failed")
}

func TestRegisterFallbackMessage(t *testing.T) {
	r, h, api := newAuthRouter(t)
	api.FailRouteEmpty("POST /api/auth/register", http.StatusBadGateway)

	res := h.PostForm(r, "/register", url.Values{"username": {"x"}, "password": {"pw"}, "role": {"ADMIN"}})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "Registration failed")
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	r, h, api := newAuthRouter(t)

	res := h.PostForm(r, "/register", url.Values{"username": {"x"}, "password": {"pw"}, "role": {"MANAGER"}})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Zero(t, api.TotalHits())
}

func TestLogoutIsIdempotent(t *testing.T) {
	r, h, _ := newAuthRouter(t)
	h.SignIn(shared.Identity{Username: "admin", Role: shared.RoleAdmin, Token: "tok"})

	for i := 0; i < 2; i++ {
		res := h.PostForm(r, "/logout", url.Values{})
		assert.Equal(t, http.StatusSeeOther, res.Code)
		assert.Equal(t, "/login", res.Header().Get("Location"))
	}
	_, ok := auth.Restore(h.Session())
	assert.False(t, ok)
}
