// Package sessiontest drives handlers through real Redis-backed sessions in tests.
package sessiontest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/wms-console/internal/shared"
)

// Harness keeps one browser's session cookie across requests.
type Harness struct {
	t        testing.TB
	Redis    *miniredis.Miniredis
	Sessions *shared.SessionManager
	CSRF     *shared.CSRFManager
	cookies  []*http.Cookie
}

// New starts miniredis and a session manager bound to it.
func New(t testing.TB) *Harness {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return &Harness{
		t:        t,
		Redis:    mr,
		Sessions: shared.NewSessionManager(client, "wms_session", "session-secret", time.Hour, false),
		CSRF:     shared.NewCSRFManager("csrf-secret"),
	}
}

// SignIn stores id on a fresh session, as a successful login would.
func (h *Harness) SignIn(id shared.Identity) {
	h.t.Helper()
	sess := h.load(httptest.NewRequest(http.MethodGet, "/", nil))
	sess.SetIdentity(id)
	h.commit(sess)
}

// Session loads the current session for inspection.
func (h *Harness) Session() *shared.Session {
	h.t.Helper()
	return h.load(httptest.NewRequest(http.MethodGet, "/", nil))
}

// Do serves req with the session (and complete identity) attached, then commits it.
func (h *Harness) Do(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	h.t.Helper()
	sess := h.load(req)
	ctx := shared.ContextWithSession(req.Context(), sess)
	if id, ok := sess.Identity(); ok && id.Complete() {
		ctx = shared.ContextWithIdentity(ctx, id)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req.WithContext(ctx))
	h.commit(sess)
	return rec
}

// Get issues a GET.
func (h *Harness) Get(handler http.Handler, target string) *httptest.ResponseRecorder {
	h.t.Helper()
	return h.Do(handler, httptest.NewRequest(http.MethodGet, target, nil))
}

// PostForm issues a form POST.
func (h *Harness) PostForm(handler http.Handler, target string, form url.Values) *httptest.ResponseRecorder {
	h.t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return h.Do(handler, req)
}

// Follow GETs the Location of a redirect response.
func (h *Harness) Follow(handler http.Handler, rec *httptest.ResponseRecorder) *httptest.ResponseRecorder {
	h.t.Helper()
	location := rec.Header().Get("Location")
	if location == "" {
		h.t.Fatalf("response %d has no Location header", rec.Code)
	}
	return h.Get(handler, location)
}

func (h *Harness) load(req *http.Request) *shared.Session {
	h.t.Helper()
	for _, c := range h.cookies {
		req.AddCookie(c)
	}
	sess, err := h.Sessions.Load(context.Background(), req)
	if err != nil {
		h.t.Fatalf("load session: %v", err)
	}
	return sess
}

func (h *Harness) commit(sess *shared.Session) {
	h.t.Helper()
	rec := httptest.NewRecorder()
	if err := h.Sessions.Commit(context.Background(), rec, httptest.NewRequest(http.MethodGet, "/", nil), sess); err != nil {
		h.t.Fatalf("commit session: %v", err)
	}
	h.cookies = h.cookies[:0]
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			continue
		}
		h.cookies = append(h.cookies, &http.Cookie{Name: c.Name, Value: c.Value})
	}
}
