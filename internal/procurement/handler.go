package procurement

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/wms-console/internal/audit"
	"github.com/odyssey-erp/wms-console/internal/orderlines"
	"github.com/odyssey-erp/wms-console/internal/rbac"
	"github.com/odyssey-erp/wms-console/internal/shared"
	"github.com/odyssey-erp/wms-console/internal/view"
	"github.com/odyssey-erp/wms-console/internal/wmsapi"
)

// Page messages.
const (
	MsgLoadFailed    = "Failed to load purchase orders or products."
	MsgCreateFailed  = "Failed to create purchase order."
	MsgReceiveFailed = "Failed to receive purchase order."
)

// Handler manages purchase order endpoints.
type Handler struct {
	logger    *slog.Logger
	api       *wmsapi.Client
	templates *view.Engine
	csrf      *shared.CSRFManager
	rbac      rbac.Middleware
	trail     *audit.Trail
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, api *wmsapi.Client, templates *view.Engine, csrf *shared.CSRFManager, rbac rbac.Middleware, trail *audit.Trail) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, api: api, templates: templates, csrf: csrf, rbac: rbac, trail: trail, validator: validator.New()}
}

// MountRoutes registers purchase order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireSession)
		r.Use(h.rbac.RequireRole(shared.RoleAdmin))
		r.Get("/purchase-orders", h.handleList)
		r.Post("/purchase-orders", h.handleCreate)
		r.Get("/purchase-orders/{id}/receive", h.confirmReceive)
		r.Post("/purchase-orders/{id}/receive", h.handleReceive)
	})
}

type orderRow struct {
	wmsapi.PurchaseOrder
	Total      float64
	Receivable bool
}

type pageData struct {
	Products  []wmsapi.Product
	Orders    []orderRow
	LoadError string
	Form      orderForm
	Rows      []orderlines.Row
	Errors    map[string]string
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, pageData{Rows: orderlines.Blank(), Errors: map[string]string{}}, http.StatusOK)
}

// renderPage loads products and orders together; either failure replaces both lists
// with the load error.
func (h *Handler) renderPage(w http.ResponseWriter, r *http.Request, data pageData, status int) {
	id, _ := shared.IdentityFromContext(r.Context())
	api := h.api.WithToken(id.Token)

	var (
		products []wmsapi.Product
		orders   []wmsapi.PurchaseOrder
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		products, err = api.ListProducts(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		orders, err = api.ListPurchaseOrders(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		h.logger.Warn("load purchase orders", slog.Any("error", err))
		data.LoadError = MsgLoadFailed
	} else {
		data.Products = products
		data.Orders = make([]orderRow, 0, len(orders))
		for _, po := range orders {
			data.Orders = append(data.Orders, orderRow{
				PurchaseOrder: po,
				Total:         orderlines.Total(po.Items),
				Receivable:    po.Status != wmsapi.PurchaseOrderReceived,
			})
		}
	}
	h.render(w, r, "pages/purchase_orders.html", "Purchase orders", data, status)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	parsed := parseOrderForm(r, h.validator)
	data := pageData{Form: parsed.Form, Rows: parsed.Lines.Rows, Errors: parsed.Errors}
	if parsed.Lines.Action != orderlines.ActionSubmit {
		h.renderPage(w, r, data, http.StatusOK)
		return
	}
	if len(parsed.Errors) > 0 {
		h.renderPage(w, r, data, http.StatusBadRequest)
		return
	}

	id, _ := shared.IdentityFromContext(r.Context())
	po, err := h.api.WithToken(id.Token).CreatePurchaseOrder(r.Context(), parsed.Payload)
	if err != nil {
		h.logger.Warn("create purchase order", slog.Any("error", err))
		data.Errors["general"] = wmsapi.ServerMessage(err, MsgCreateFailed)
		h.renderPage(w, r, data, http.StatusBadRequest)
		return
	}
	h.trail.Record(r.Context(), audit.Entry{
		Actor:    id.Username,
		Action:   "purchase_order.create",
		Entity:   "purchase_order",
		EntityID: strconv.FormatInt(po.ID, 10),
		Meta:     map[string]string{"po_number": po.PONumber, "vendor": po.VendorName, "items": strconv.Itoa(len(po.Items))},
	})
	h.redirectWithFlash(w, r, "success", fmt.Sprintf("Purchase order %s created.", label(po)))
}

func (h *Handler) confirmReceive(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseID(w, r)
	if !ok {
		return
	}
	h.render(w, r, "pages/confirm.html", "Receive purchase order", view.Confirmation{
		Heading: "Receive purchase order",
		Message: fmt.Sprintf("Mark purchase order #%d as received? Stock for every item will be increased.", orderID),
		Action:  fmt.Sprintf("/purchase-orders/%d/receive", orderID),
		Submit:  "Receive",
		Cancel:  "/purchase-orders",
	}, http.StatusOK)
}

func (h *Handler) handleReceive(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseID(w, r)
	if !ok {
		return
	}
	id, _ := shared.IdentityFromContext(r.Context())
	po, err := h.api.WithToken(id.Token).ReceivePurchaseOrder(r.Context(), orderID)
	if err != nil {
		h.logger.Warn("receive purchase order", slog.Int64("po_id", orderID), slog.Any("error", err))
		h.redirectWithFlash(w, r, "error", wmsapi.ServerMessage(err, MsgReceiveFailed))
		return
	}
	h.trail.Record(r.Context(), audit.Entry{
		Actor:    id.Username,
		Action:   "purchase_order.receive",
		Entity:   "purchase_order",
		EntityID: strconv.FormatInt(po.ID, 10),
		Meta:     map[string]string{"po_number": po.PONumber},
	})
	h.redirectWithFlash(w, r, "success", fmt.Sprintf("Purchase order %s received.", label(po)))
}

func label(po wmsapi.PurchaseOrder) string {
	if po.PONumber != "" {
		return po.PONumber
	}
	return "#" + strconv.FormatInt(po.ID, 10)
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, tmpl, title string, data any, status int) {
	sess := shared.SessionFromContext(r.Context())
	var csrfToken string
	if sess != nil {
		var err error
		if csrfToken, err = h.csrf.EnsureToken(sess); err != nil {
			h.logger.Warn("issue csrf token", slog.Any("error", err))
		}
	}
	viewData := view.TemplateData{
		Title:       title,
		CSRFToken:   csrfToken,
		Flashes:     sess.PopFlashes(),
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	if id, ok := shared.IdentityFromContext(r.Context()); ok {
		viewData.Identity = &id
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.Render(w, tmpl, viewData); err != nil {
		h.logger.Error("render procurement page", slog.String("template", tmpl), slog.Any("error", err))
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, "/purchase-orders", http.StatusSeeOther)
}
