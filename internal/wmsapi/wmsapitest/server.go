// Package wmsapitest provides an in-memory WMS API for tests.
package wmsapitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/wms-console/internal/wmsapi"
)

type user struct {
	password string
	role     string
}

// Server is a fake WMS API backed by memory.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	users      map[string]user
	tokens     map[string]string
	products   map[int64]wmsapi.Product
	movements  []wmsapi.StockMovement
	purchases  map[int64]wmsapi.PurchaseOrder
	sales      map[int64]wmsapi.SalesOrder
	nextID     int64
	hits       map[string]int
	now        func() time.Time
	failures   map[string]failure
}

type failure struct {
	status int
	body   string
}

// NewServer starts a fake API that is closed when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		users:      make(map[string]user),
		tokens:     make(map[string]string),
		products:   make(map[int64]wmsapi.Product),
		purchases:  make(map[int64]wmsapi.PurchaseOrder),
		sales:      make(map[int64]wmsapi.SalesOrder),
		hits:       make(map[string]int),
		failures:   make(map[string]failure),
		now:        func() time.Time { return time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC) },
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

// AddUser registers an account directly.
func (s *Server) AddUser(username, password, role string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = user{password: password, role: role}
}

// IssueToken returns a valid token for an existing user without calling login.
func (s *Server) IssueToken(username string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	token := "tok-" + username + "-" + strconv.Itoa(len(s.tokens)+1)
	s.tokens[token] = username
	return token
}

// RevokeTokens invalidates every issued token.
func (s *Server) RevokeTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = make(map[string]string)
}

// SeedProduct stores a product and returns it with its id.
func (s *Server) SeedProduct(p wmsapi.Product) wmsapi.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	p.ID = s.nextID
	s.products[p.ID] = p
	return p
}

// Product returns the stored product.
func (s *Server) Product(id int64) (wmsapi.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	return p, ok
}

// SeedSalesOrder stores a NEW sales order.
func (s *Server) SeedSalesOrder(so wmsapi.SalesOrder) wmsapi.SalesOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	so.ID = s.nextID
	if so.Status == "" {
		so.Status = wmsapi.SalesOrderNew
	}
	so.SONumber = fmt.Sprintf("SO-%04d", so.ID)
	so.CreatedAt = wmsapi.Timestamp{Time: s.now()}
	s.sales[so.ID] = so
	return so
}

// SeedPurchaseOrder stores a DRAFT purchase order.
func (s *Server) SeedPurchaseOrder(po wmsapi.PurchaseOrder) wmsapi.PurchaseOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	po.ID = s.nextID
	if po.Status == "" {
		po.Status = wmsapi.PurchaseOrderDraft
	}
	po.PONumber = fmt.Sprintf("PO-%04d", po.ID)
	po.CreatedAt = wmsapi.Timestamp{Time: s.now()}
	s.purchases[po.ID] = po
	return po
}

// SalesOrder returns the stored sales order.
func (s *Server) SalesOrder(id int64) (wmsapi.SalesOrder, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	so, ok := s.sales[id]
	return so, ok
}

// PurchaseOrder returns the stored purchase order.
func (s *Server) PurchaseOrder(id int64) (wmsapi.PurchaseOrder, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	po, ok := s.purchases[id]
	return po, ok
}

// FailRoute makes every request matching "METHOD /path" answer with status and
// the text "injected failure".
func (s *Server) FailRoute(route string, status int) {
	s.failWith(route, failure{status: status, body: "injected failure"})
}

// FailRouteEmpty is FailRoute with an empty response body.
func (s *Server) FailRouteEmpty(route string, status int) {
	s.failWith(route, failure{status: status})
}

func (s *Server) failWith(route string, f failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = f
}

// Hits counts requests received for "METHOD /path".
func (s *Server) Hits(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[route]
}

// TotalHits counts every request received.
func (s *Server) TotalHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.hits {
		total += n
	}
	return total
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.count)
	r.Post("/api/auth/login", s.login)
	r.Post("/api/auth/register", s.register)
	r.Group(func(r chi.Router) {
		r.Use(s.requireAdmin)
		r.Get("/api/products", s.listProducts)
		r.Post("/api/products", s.createProduct)
		r.Get("/api/products/{id}", s.getProduct)
		r.Put("/api/products/{id}", s.updateProduct)
		r.Delete("/api/products/{id}", s.deleteProduct)
		r.Get("/api/stock-movements", s.listMovements)
		r.Get("/api/stock-movements/product/{id}", s.productMovements)
		r.Post("/api/stock-movements/in", s.adjust(wmsapi.MovementIn))
		r.Post("/api/stock-movements/out", s.adjust(wmsapi.MovementOut))
		r.Get("/api/purchase-orders", s.listPurchaseOrders)
		r.Post("/api/purchase-orders", s.createPurchaseOrder)
		r.Post("/api/purchase-orders/{id}/receive", s.receivePurchaseOrder)
		r.Get("/api/sales-orders", s.listSalesOrders)
		r.Post("/api/sales-orders", s.createSalesOrder)
		r.Post("/api/sales-orders/{id}/confirm", s.confirmSalesOrder)
		r.Post("/api/sales-orders/{id}/out-of-stock", s.outOfStock)
		r.Get("/api/sales-orders/{id}/picking-slip", s.pickingSlip)
	})
	return r
}

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.Method + " " + r.URL.Path
		s.mu.Lock()
		s.hits[route]++
		f, failing := s.failures[route]
		s.mu.Unlock()
		if failing {
			w.WriteHeader(f.status)
			if f.body != "" {
				_, _ = w.Write([]byte(f.body))
			}
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		s.mu.Lock()
		username, ok := s.tokens[token]
		role := s.users[username].role
		s.mu.Unlock()
		if token == "" || !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if role != "ADMIN" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var creds wmsapi.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	u, ok := s.users[creds.Username]
	s.mu.Unlock()
	if !ok || u.password != creds.Password {
		writeJSON(w, map[string]any{"token": nil, "username": nil, "role": nil})
		return
	}
	token := s.IssueToken(creds.Username)
	writeJSON(w, wmsapi.LoginResponse{Token: token, Username: creds.Username, Role: u.role})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var reg wmsapi.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[reg.Username]; exists {
		_, _ = w.Write([]byte("Username taken"))
		return
	}
	role := strings.ToUpper(reg.Role)
	if role != "ADMIN" && role != "CUSTOMER" {
		_, _ = w.Write([]byte("Invalid role"))
		return
	}
	s.users[reg.Username] = user{password: reg.Password, role: role}
	_, _ = w.Write([]byte("Registered successfully"))
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := make([]wmsapi.Product, 0, len(s.products))
	for id := int64(1); id <= s.nextID; id++ {
		if p, ok := s.products[id]; ok {
			out = append(out, p)
		}
	}
	s.mu.Unlock()
	writeJSON(w, out)
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	id := urlID(r)
	p, ok := s.Product(id)
	if !ok {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}
	writeJSON(w, p)
}

func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	var p wmsapi.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.products {
		if existing.SKU == p.SKU {
			http.Error(w, "SKU already exists", http.StatusBadRequest)
			return
		}
	}
	s.nextID++
	p.ID = s.nextID
	s.products[p.ID] = p
	writeJSON(w, p)
}

func (s *Server) updateProduct(w http.ResponseWriter, r *http.Request) {
	id := urlID(r)
	var p wmsapi.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}
	p.ID = id
	s.products[id] = p
	writeJSON(w, p)
}

func (s *Server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id := urlID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}
	delete(s.products, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listMovements(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := append([]wmsapi.StockMovement{}, s.movements...)
	s.mu.Unlock()
	writeJSON(w, out)
}

func (s *Server) productMovements(w http.ResponseWriter, r *http.Request) {
	id := urlID(r)
	s.mu.Lock()
	out := []wmsapi.StockMovement{}
	for _, m := range s.movements {
		if m.ProductID == id {
			out = append(out, m)
		}
	}
	s.mu.Unlock()
	writeJSON(w, out)
}

func (s *Server) adjust(kind wmsapi.MovementType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		productID, _ := strconv.ParseInt(q.Get("productId"), 10, 64)
		qty, err := strconv.Atoi(q.Get("quantity"))
		if err != nil || qty <= 0 {
			http.Error(w, "Quantity must be positive", http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		p, ok := s.products[productID]
		if !ok {
			http.Error(w, "Product not found", http.StatusBadRequest)
			return
		}
		if kind == wmsapi.MovementOut {
			if p.StockQuantity < qty {
				http.Error(w, "Insufficient stock", http.StatusBadRequest)
				return
			}
			p.StockQuantity -= qty
		} else {
			p.StockQuantity += qty
		}
		s.products[productID] = p
		s.nextID++
		m := wmsapi.StockMovement{
			ID:          s.nextID,
			ProductID:   productID,
			ProductName: p.Name,
			Type:        kind,
			Quantity:    qty,
			Reason:      q.Get("reason"),
			CreatedAt:   wmsapi.Timestamp{Time: s.now()},
		}
		s.movements = append(s.movements, m)
		writeJSON(w, m)
	}
}

func (s *Server) listPurchaseOrders(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := make([]wmsapi.PurchaseOrder, 0, len(s.purchases))
	for id := int64(1); id <= s.nextID; id++ {
		if po, ok := s.purchases[id]; ok {
			out = append(out, po)
		}
	}
	s.mu.Unlock()
	writeJSON(w, out)
}

func (s *Server) createPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	var in wmsapi.NewPurchaseOrder
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	po := s.SeedPurchaseOrder(wmsapi.PurchaseOrder{
		VendorName:   in.VendorName,
		VendorEmail:  in.VendorEmail,
		ExpectedDate: in.ExpectedDate,
		Items:        in.Items,
	})
	writeJSON(w, po)
}

func (s *Server) receivePurchaseOrder(w http.ResponseWriter, r *http.Request) {
	id := urlID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	po, ok := s.purchases[id]
	if !ok {
		http.Error(w, "Purchase order not found", http.StatusNotFound)
		return
	}
	if po.Status == wmsapi.PurchaseOrderReceived {
		http.Error(w, "Purchase order already received", http.StatusBadRequest)
		return
	}
	for _, item := range po.Items {
		if p, ok := s.products[item.ProductID]; ok {
			p.StockQuantity += item.Quantity
			s.products[p.ID] = p
		}
	}
	po.Status = wmsapi.PurchaseOrderReceived
	po.ReceivedAt = wmsapi.Timestamp{Time: s.now()}
	s.purchases[id] = po
	writeJSON(w, po)
}

func (s *Server) listSalesOrders(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := make([]wmsapi.SalesOrder, 0, len(s.sales))
	for id := int64(1); id <= s.nextID; id++ {
		if so, ok := s.sales[id]; ok {
			out = append(out, so)
		}
	}
	s.mu.Unlock()
	writeJSON(w, out)
}

func (s *Server) createSalesOrder(w http.ResponseWriter, r *http.Request) {
	var in wmsapi.NewSalesOrder
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	so := s.SeedSalesOrder(wmsapi.SalesOrder{
		CustomerName:  in.CustomerName,
		CustomerEmail: in.CustomerEmail,
		Items:         in.Items,
	})
	writeJSON(w, so)
}

func (s *Server) confirmSalesOrder(w http.ResponseWriter, r *http.Request) {
	id := urlID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	so, ok := s.sales[id]
	if !ok {
		http.Error(w, "Sales order not found", http.StatusNotFound)
		return
	}
	if so.Status != wmsapi.SalesOrderNew {
		http.Error(w, "Only NEW orders can be confirmed", http.StatusBadRequest)
		return
	}
	for _, item := range so.Items {
		if p := s.products[item.ProductID]; p.StockQuantity < item.Quantity {
			http.Error(w, "Insufficient stock for "+p.Name, http.StatusBadRequest)
			return
		}
	}
	for _, item := range so.Items {
		p := s.products[item.ProductID]
		p.StockQuantity -= item.Quantity
		s.products[p.ID] = p
	}
	so.Status = wmsapi.SalesOrderConfirmed
	so.ConfirmedAt = wmsapi.Timestamp{Time: s.now()}
	s.sales[id] = so
	writeJSON(w, so)
}

func (s *Server) outOfStock(w http.ResponseWriter, r *http.Request) {
	id := urlID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	so, ok := s.sales[id]
	if !ok {
		http.Error(w, "Sales order not found", http.StatusNotFound)
		return
	}
	so.Status = wmsapi.SalesOrderCancelled
	s.sales[id] = so
	writeJSON(w, so)
}

func (s *Server) pickingSlip(w http.ResponseWriter, r *http.Request) {
	id := urlID(r)
	so, ok := s.SalesOrder(id)
	if !ok {
		http.Error(w, "Sales order not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	_, _ = fmt.Fprintf(w, "%%PDF-1.4\nPicking Slip %s\n", so.SONumber)
}

func urlID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
