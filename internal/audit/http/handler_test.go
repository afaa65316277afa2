package audithttp_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/wms-console/internal/audit"
	audithttp "github.com/odyssey-erp/wms-console/internal/audit/http"
	"github.com/odyssey-erp/wms-console/internal/rbac"
	"github.com/odyssey-erp/wms-console/internal/shared"
	"github.com/odyssey-erp/wms-console/internal/shared/sessiontest"
	"github.com/odyssey-erp/wms-console/internal/view"
	_ "github.com/odyssey-erp/wms-console/testing"
)

type stubReader struct {
	entries []audit.Entry
	err     error
	limit   int
}

func (s *stubReader) Recent(_ context.Context, limit int) ([]audit.Entry, error) {
	s.limit = limit
	if s.err != nil {
		return nil, s.err
	}
	if limit < len(s.entries) {
		return s.entries[:limit], nil
	}
	return s.entries, nil
}

func mount(t *testing.T, service *audit.Service, role shared.Role) (http.Handler, *sessiontest.Harness) {
	t.Helper()
	browser := sessiontest.New(t)
	templates, err := view.NewEngine()
	require.NoError(t, err)
	h := audithttp.NewHandler(nil, service, templates, browser.CSRF, rbac.Middleware{Templates: templates, CSRF: browser.CSRF})
	r := chi.NewRouter()
	h.MountRoutes(r)
	browser.SignIn(shared.Identity{Username: "ana", Role: role, Token: "tok"})
	return r, browser
}

func TestActivityListsRecentEntries(t *testing.T) {
	reader := &stubReader{}
	for i := 0; i < 60; i++ {
		reader.entries = append(reader.entries, audit.Entry{
			Actor:    "ana",
			Action:   "product.update",
			Entity:   "product",
			EntityID: fmt.Sprintf("p-%d", i),
			At:       time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		})
	}
	r, browser := mount(t, audit.NewService(reader), shared.RoleAdmin)

	res := browser.Get(r, "/activity")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, 50, reader.limit)
	assert.Equal(t, 50, strings.Count(res.Body.String(), "product.update"))
	assert.Contains(t, res.Body.String(), "01 Mar 2024 09:00")
}

func TestActivityDisabledWithoutStore(t *testing.T) {
	r, browser := mount(t, audit.NewService(nil), shared.RoleAdmin)

	res := browser.Get(r, "/activity")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "Activity log is disabled.")
}

func TestActivityLoadFailure(t *testing.T) {
	r, browser := mount(t, audit.NewService(&stubReader{err: errors.New("db down")}), shared.RoleAdmin)

	res := browser.Get(r, "/activity")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), audithttp.MsgLoadFailed)
}

func TestActivityAdminOnly(t *testing.T) {
	reader := &stubReader{}
	r, browser := mount(t, audit.NewService(reader), shared.RoleCustomer)

	res := browser.Get(r, "/activity")
	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.Zero(t, reader.limit)
}
