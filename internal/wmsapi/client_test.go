package wmsapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/wms-console/internal/wmsapi"
	"github.com/odyssey-erp/wms-console/internal/wmsapi/wmsapitest"
)

func adminClient(t *testing.T) (*wmsapitest.Server, *wmsapi.Client) {
	t.Helper()
	srv := wmsapitest.NewServer(t)
	srv.AddUser("admin", "secret", "ADMIN")
	return srv, wmsapi.New(srv.URL).WithToken(srv.IssueToken("admin"))
}

func TestLoginReturnsToken(t *testing.T) {
	srv := wmsapitest.NewServer(t)
	srv.AddUser("alice", "pw", "CUSTOMER")
	client := wmsapi.New(srv.URL)

	resp, err := client.Login(context.Background(), wmsapi.Credentials{Username: "alice", Password: "pw"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "CUSTOMER", resp.Role)

	resp, err = client.Login(context.Background(), wmsapi.Credentials{Username: "alice", Password: "nope"})
	require.NoError(t, err)
	assert.Empty(t, resp.Token)
}

func TestBearerTokenAttached(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		_, _ = w.Write([]byte("[]"))
	}))
	defer srv.Close()

	base := wmsapi.New(srv.URL)
	_, err := base.WithToken("abc").ListProducts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer abc", got)

	_, err = base.ListProducts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got, "base client must stay anonymous")
}

func TestErrorClassification(t *testing.T) {
	srv := wmsapitest.NewServer(t)
	srv.AddUser("bob", "pw", "CUSTOMER")
	ctx := context.Background()

	_, err := wmsapi.New(srv.URL).ListProducts(ctx)
	require.ErrorIs(t, err, wmsapi.ErrUnauthorized)
	assert.Equal(t, wmsapi.KindUnauthorized, wmsapi.KindOf(err))

	_, err = wmsapi.New(srv.URL).WithToken(srv.IssueToken("bob")).ListProducts(ctx)
	require.ErrorIs(t, err, wmsapi.ErrForbidden)

	srv.FailRoute("GET /api/sales-orders", http.StatusInternalServerError)
	_, err = wmsapi.New(srv.URL).WithToken(srv.IssueToken("bob")).ListSalesOrders(ctx)
	require.ErrorIs(t, err, wmsapi.ErrServer)

	_, err = wmsapi.New("http://127.0.0.1:1").ListProducts(ctx)
	require.ErrorIs(t, err, wmsapi.ErrServer)
	assert.False(t, errors.Is(err, wmsapi.ErrUnauthorized))
}

func TestNonSuccessStatusesBecomeTypedErrors(t *testing.T) {
	cases := []struct {
		status int
		kind   wmsapi.Kind
		target error
	}{
		{http.StatusUnauthorized, wmsapi.KindUnauthorized, wmsapi.ErrUnauthorized},
		{http.StatusForbidden, wmsapi.KindForbidden, wmsapi.ErrForbidden},
		{http.StatusBadRequest, wmsapi.KindServer, wmsapi.ErrServer},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "Insufficient stock", tc.status)
			}))
			defer srv.Close()

			var err error
			require.NotPanics(t, func() {
				_, err = wmsapi.New(srv.URL).ListProducts(context.Background())
			})
			require.ErrorIs(t, err, tc.target)

			var apiErr *wmsapi.Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tc.kind, apiErr.Kind)
			assert.Equal(t, tc.status, apiErr.Status)
			assert.Equal(t, "Insufficient stock", wmsapi.ServerMessage(err, "fallback"))
		})
	}
}

func TestServerMessageSurfaced(t *testing.T) {
	srv, client := adminClient(t)
	p := srv.SeedProduct(wmsapi.Product{Name: "Bolt", SKU: "B-1", StockQuantity: 2})

	_, err := client.AdjustStock(context.Background(), wmsapi.Adjustment{Type: wmsapi.MovementOut, ProductID: p.ID, Quantity: 5})
	require.Error(t, err)
	assert.Equal(t, "Insufficient stock", wmsapi.ServerMessage(err, "fallback"))
	assert.Equal(t, "fallback", wmsapi.ServerMessage(errors.New("other"), "fallback"))
}

func TestStockOutReducesQuantityAndRecordsHistory(t *testing.T) {
	srv, client := adminClient(t)
	ctx := context.Background()
	p := srv.SeedProduct(wmsapi.Product{Name: "Widget", SKU: "W-1", StockQuantity: 10, Price: 2.5})

	mv, err := client.AdjustStock(ctx, wmsapi.Adjustment{Type: wmsapi.MovementOut, ProductID: p.ID, Quantity: 3, Reason: "damaged"})
	require.NoError(t, err)
	assert.Equal(t, wmsapi.MovementOut, mv.Type)

	products, err := client.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, 7, products[0].StockQuantity)

	history, err := client.ProductMovements(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 3, history[0].Quantity)
	assert.Equal(t, "damaged", history[0].Reason)
	assert.Equal(t, 1, srv.Hits("POST /api/stock-movements/out"))
}

func TestAdjustStockSendsQueryParameters(t *testing.T) {
	var query map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		assert.Equal(t, "/api/stock-movements/in", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":1,"productId":4,"type":"IN","quantity":2,"createdAt":"2024-01-02T10:11:12.345"}`))
	}))
	defer srv.Close()

	mv, err := wmsapi.New(srv.URL).AdjustStock(context.Background(), wmsapi.Adjustment{Type: wmsapi.MovementIn, ProductID: 4, Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"4"}, query["productId"])
	assert.Equal(t, []string{"2"}, query["quantity"])
	assert.NotContains(t, query, "reason")
	assert.Equal(t, 2024, mv.CreatedAt.Year())
}

func TestProductRoundTrip(t *testing.T) {
	_, client := adminClient(t)
	ctx := context.Background()
	expiry, err := wmsapi.ParseDate("2025-06-30")
	require.NoError(t, err)

	created, err := client.CreateProduct(ctx, wmsapi.Product{Name: "Milk", SKU: "M-1", StockQuantity: 4, Price: 1.2, Perishable: true, ExpiryDate: &expiry})
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	updated, err := client.UpdateProduct(ctx, created.ID, wmsapi.Product{Name: "Milk 1L", SKU: "M-1", StockQuantity: 4, Price: 1.3})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)

	got, err := client.GetProduct(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Milk 1L", got.Name)

	require.NoError(t, client.DeleteProduct(ctx, created.ID))
	products, err := client.ListProducts(ctx)
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestOrderLifecycle(t *testing.T) {
	srv, client := adminClient(t)
	ctx := context.Background()
	p := srv.SeedProduct(wmsapi.Product{Name: "Nut", SKU: "N-1", StockQuantity: 1})

	po, err := client.CreatePurchaseOrder(ctx, wmsapi.NewPurchaseOrder{VendorName: "Acme", Items: []wmsapi.OrderItem{{ProductID: p.ID, Quantity: 9, UnitPrice: 0.1}}})
	require.NoError(t, err)
	assert.Equal(t, wmsapi.PurchaseOrderDraft, po.Status)

	received, err := client.ReceivePurchaseOrder(ctx, po.ID)
	require.NoError(t, err)
	assert.Equal(t, wmsapi.PurchaseOrderReceived, received.Status)
	assert.False(t, received.ReceivedAt.IsZero())

	so, err := client.CreateSalesOrder(ctx, wmsapi.NewSalesOrder{CustomerName: "Zed", Items: []wmsapi.OrderItem{{ProductID: p.ID, Quantity: 4, UnitPrice: 1}}})
	require.NoError(t, err)
	confirmed, err := client.ConfirmSalesOrder(ctx, so.ID)
	require.NoError(t, err)
	assert.Equal(t, wmsapi.SalesOrderConfirmed, confirmed.Status)

	stored, _ := srv.Product(p.ID)
	assert.Equal(t, 6, stored.StockQuantity)

	doc, err := client.PickingSlip(ctx, so.ID)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", doc.ContentType)
	assert.Contains(t, string(doc.Data), "%PDF")

	other, err := client.CreateSalesOrder(ctx, wmsapi.NewSalesOrder{CustomerName: "Yan", Items: []wmsapi.OrderItem{{ProductID: p.ID, Quantity: 100}}})
	require.NoError(t, err)
	cancelled, err := client.MarkOutOfStock(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, wmsapi.SalesOrderCancelled, cancelled.Status)
}

func TestRegisterReturnsServerText(t *testing.T) {
	srv := wmsapitest.NewServer(t)
	client := wmsapi.New(srv.URL)

	msg, err := client.Register(context.Background(), wmsapi.Registration{Username: "new", Password: "pw", Role: "ADMIN"})
	require.NoError(t, err)
	assert.Equal(t, "Registered successfully", msg)

	msg, err = client.Register(context.Background(), wmsapi.Registration{Username: "new", Password: "pw", Role: "ADMIN"})
	require.NoError(t, err)
	assert.Equal(t, "Username taken", msg)
}

type recordingObserver struct {
	mu       sync.Mutex
	outcomes map[string]string
}

func (o *recordingObserver) ObserveAPICall(op, outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes[op] = outcome
}

func TestObserverSeesOutcomes(t *testing.T) {
	srv := wmsapitest.NewServer(t)
	obs := &recordingObserver{outcomes: map[string]string{}}
	client := wmsapi.New(srv.URL, wmsapi.WithObserver(obs))

	_, _ = client.ListProducts(context.Background())
	_, _ = client.Login(context.Background(), wmsapi.Credentials{Username: "x", Password: "y"})

	assert.Equal(t, "unauthorized", obs.outcomes["products.list"])
	assert.Equal(t, "ok", obs.outcomes["auth.login"])
}

func TestTimestampDecoding(t *testing.T) {
	var payload struct {
		A wmsapi.Timestamp `json:"a"`
		B wmsapi.Timestamp `json:"b"`
		C wmsapi.Timestamp `json:"c"`
		D *wmsapi.Date     `json:"d"`
	}
	err := json.Unmarshal([]byte(`{"a":"2024-05-06T07:08:09","b":null,"c":"2024-05-06T07:08:09Z","d":"2024-12-31"}`), &payload)
	require.NoError(t, err)
	assert.Equal(t, 7, payload.A.Hour())
	assert.True(t, payload.B.IsZero())
	assert.Equal(t, time.UTC, payload.C.Location())
	require.NotNil(t, payload.D)
	assert.Equal(t, "2024-12-31", payload.D.String())
}
