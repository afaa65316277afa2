package view

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/wms-console/internal/shared"
)

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	assert.NoError(t, err, "Templates should parse without error")
	assert.NotNil(t, engine)
}

func TestRenderDeniedPage(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	err = engine.Render(rr, "pages/denied.html", TemplateData{
		Title:    "Access denied",
		Identity: &shared.Identity{Username: "carol", Role: shared.RoleCustomer, Token: "t"},
	})
	require.NoError(t, err)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rr.Body.String(), "carol")
}

func TestRenderEveryPendingFlash(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	err = engine.Render(rr, "pages/denied.html", TemplateData{
		Identity: &shared.Identity{Username: "carol", Role: shared.RoleCustomer, Token: "t"},
		Flashes: []shared.FlashMessage{
			{Kind: "success", Message: "Purchase order PO-0002 received."},
			{Kind: "error", Message: "Purchase order already received"},
		},
	})
	require.NoError(t, err)
	body := rr.Body.String()
	assert.Contains(t, body, `class="flash flash-success"`)
	assert.Contains(t, body, `<div class="flash flash-error" role="status">Purchase order already received</div>`)
}

func TestFormatters(t *testing.T) {
	assert.Equal(t, "1,234.50", FormatMoney(1234.5))
	assert.Equal(t, "0.00", FormatMoney(0))
	assert.Equal(t, "12,000", FormatNumber(12000))
	assert.Equal(t, "", FormatDate(time.Time{}))
	assert.Equal(t, "01 Mar 2024 09:30", FormatDate(time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)))
}

func TestNilEngine(t *testing.T) {
	var engine *Engine
	assert.Error(t, engine.Render(httptest.NewRecorder(), "pages/login.html", TemplateData{}))
}
