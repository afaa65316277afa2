package procurement_test

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/wms-console/internal/audit"
	"github.com/odyssey-erp/wms-console/internal/procurement"
	"github.com/odyssey-erp/wms-console/internal/rbac"
	"github.com/odyssey-erp/wms-console/internal/shared"
	"github.com/odyssey-erp/wms-console/internal/shared/sessiontest"
	"github.com/odyssey-erp/wms-console/internal/view"
	"github.com/odyssey-erp/wms-console/internal/wmsapi"
	"github.com/odyssey-erp/wms-console/internal/wmsapi/wmsapitest"
	_ "github.com/odyssey-erp/wms-console/testing"
)

func setup(t *testing.T, role shared.Role) (http.Handler, *sessiontest.Harness, *wmsapitest.Server) {
	t.Helper()
	api := wmsapitest.NewServer(t)
	browser := sessiontest.New(t)
	templates, err := view.NewEngine()
	require.NoError(t, err)

	guard := rbac.Middleware{Templates: templates, CSRF: browser.CSRF}
	h := procurement.NewHandler(nil, wmsapi.New(api.URL), templates, browser.CSRF, guard, audit.NewTrail(audit.ModeOff, nil, nil, nil))
	r := chi.NewRouter()
	h.MountRoutes(r)

	api.AddUser("pat", "pw", string(role))
	browser.SignIn(shared.Identity{Username: "pat", Role: role, Token: api.IssueToken("pat")})
	return r, browser, api
}

func TestCustomerCannotSeePurchaseOrders(t *testing.T) {
	r, browser, api := setup(t, shared.RoleCustomer)

	res := browser.Get(r, "/purchase-orders")
	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.Contains(t, res.Body.String(), "ADMIN")
	assert.Zero(t, api.TotalHits())
}

func TestListShowsOrdersWithTotals(t *testing.T) {
	r, browser, api := setup(t, shared.RoleAdmin)
	p := api.SeedProduct(wmsapi.Product{Name: "Bolt", SKU: "B-1"})
	api.SeedPurchaseOrder(wmsapi.PurchaseOrder{
		VendorName: "Acme Supply",
		Items:      []wmsapi.OrderItem{{ProductID: p.ID, Quantity: 1200, UnitPrice: 1.5}},
	})

	res := browser.Get(r, "/purchase-orders")
	require.Equal(t, http.StatusOK, res.Code)
	body := res.Body.String()
	assert.Contains(t, body, "PO-0002")
	assert.Contains(t, body, "Acme Supply")
	assert.Contains(t, body, "1,800.00")
	assert.Equal(t, 1, api.Hits("GET /api/products"))
	assert.Equal(t, 1, api.Hits("GET /api/purchase-orders"))
}

func TestListFailureShowsSingleMessage(t *testing.T) {
	r, browser, api := setup(t, shared.RoleAdmin)
	api.FailRoute("GET /api/products", http.StatusInternalServerError)

	res := browser.Get(r, "/purchase-orders")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), procurement.MsgLoadFailed)
}

func TestCreateWithoutItemsIsRejectedLocally(t *testing.T) {
	r, browser, api := setup(t, shared.RoleAdmin)

	res := browser.PostForm(r, "/purchase-orders", url.Values{
		"vendor_name":     {"Acme"},
		"item_product":    {""},
		"item_quantity":   {"5"},
		"item_unit_price": {""},
	})
	require.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), procurement.MsgNoItems)
	assert.Zero(t, api.Hits("POST /api/purchase-orders"))
}

func TestCreateValidatesHeader(t *testing.T) {
	r, browser, api := setup(t, shared.RoleAdmin)
	p := api.SeedProduct(wmsapi.Product{Name: "Bolt", SKU: "B-1"})

	res := browser.PostForm(r, "/purchase-orders", url.Values{
		"vendor_name":   {""},
		"vendor_email":  {"not-an-email"},
		"expected_date": {"31/12/2024"},
		"item_product":  {strconv.FormatInt(p.ID, 10)},
		"item_quantity": {"2"},
	})
	require.Equal(t, http.StatusBadRequest, res.Code)
	body := res.Body.String()
	assert.Contains(t, body, "Vendor name is required.")
	assert.Contains(t, body, "Enter a valid email address.")
	assert.Contains(t, body, "Use the format YYYY-MM-DD.")
	assert.Zero(t, api.Hits("POST /api/purchase-orders"))
}

func TestCreatePurchaseOrder(t *testing.T) {
	r, browser, api := setup(t, shared.RoleAdmin)
	p := api.SeedProduct(wmsapi.Product{Name: "Bolt", SKU: "B-1"})
	pid := strconv.FormatInt(p.ID, 10)

	res := browser.PostForm(r, "/purchase-orders", url.Values{
		"vendor_name":     {"Acme"},
		"vendor_email":    {"orders@acme.test"},
		"expected_date":   {"2024-04-01"},
		"item_product":    {pid, ""},
		"item_quantity":   {"10", ""},
		"item_unit_price": {"0.25", ""},
	})
	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/purchase-orders", res.Header().Get("Location"))

	po, ok := api.PurchaseOrder(2)
	require.True(t, ok)
	assert.Equal(t, "Acme", po.VendorName)
	require.Len(t, po.Items, 1)
	assert.Equal(t, 10, po.Items[0].Quantity)
	require.NotNil(t, po.ExpectedDate)
	assert.Equal(t, "2024-04-01", po.ExpectedDate.String())

	page := browser.Follow(r, res)
	assert.Contains(t, page.Body.String(), "Purchase order PO-0002 created.")
	assert.Equal(t, 1, strings.Count(page.Body.String(), `name="item_product"`))
}

func TestAddAndRemoveRows(t *testing.T) {
	r, browser, api := setup(t, shared.RoleAdmin)

	res := browser.PostForm(r, "/purchase-orders", url.Values{
		"vendor_name":   {"Acme"},
		"item_product":  {""},
		"item_quantity": {"3"},
		"action":        {"add_row"},
	})
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, 2, strings.Count(res.Body.String(), `name="item_product"`))
	assert.Contains(t, res.Body.String(), `value="Acme"`)

	res = browser.PostForm(r, "/purchase-orders", url.Values{
		"vendor_name":   {"Acme"},
		"item_product":  {"", ""},
		"item_quantity": {"3", "4"},
		"remove_row":    {"0"},
	})
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, 1, strings.Count(res.Body.String(), `name="item_product"`))
	assert.Contains(t, res.Body.String(), `value="4"`)
	assert.Zero(t, api.Hits("POST /api/purchase-orders"))
}

func TestReceiveAfterConfirmation(t *testing.T) {
	r, browser, api := setup(t, shared.RoleAdmin)
	p := api.SeedProduct(wmsapi.Product{Name: "Bolt", SKU: "B-1", StockQuantity: 1})
	po := api.SeedPurchaseOrder(wmsapi.PurchaseOrder{VendorName: "Acme", Items: []wmsapi.OrderItem{{ProductID: p.ID, Quantity: 9}}})
	path := "/purchase-orders/" + strconv.FormatInt(po.ID, 10) + "/receive"

	confirm := browser.Get(r, path)
	require.Equal(t, http.StatusOK, confirm.Code)
	assert.Contains(t, confirm.Body.String(), `action="`+path+`"`)
	assert.Zero(t, api.Hits("POST /api/purchase-orders/2/receive"))

	res := browser.PostForm(r, path, url.Values{})
	require.Equal(t, http.StatusSeeOther, res.Code)

	stored, _ := api.PurchaseOrder(po.ID)
	assert.Equal(t, wmsapi.PurchaseOrderReceived, stored.Status)
	product, _ := api.Product(p.ID)
	assert.Equal(t, 10, product.StockQuantity)

	again := browser.PostForm(r, path, url.Values{})
	require.Equal(t, http.StatusSeeOther, again.Code)
	page := browser.Follow(r, again).Body.String()
	assert.Contains(t, page, "Purchase order already received")
	assert.Contains(t, page, "Purchase order PO-0002 received.")
}
