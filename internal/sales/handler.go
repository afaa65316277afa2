package sales

import (
	"context"
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
	MsgLoadFailed     = "Failed to load sales orders or products."
	MsgCreateFailed   = "Failed to create sales order."
	MsgPickingSlip    = "Failed to download picking slip."
	listPath          = "/sales-orders"
	defaultSlipFormat = "application/pdf"
)

// orderAction is a status transition that needs an explicit confirmation.
type orderAction struct {
	slug    string
	audit   string
	heading string
	message string
	submit  string
	danger  bool
	failure string
	done    string
	call    func(ctx context.Context, api *wmsapi.Client, id int64) (wmsapi.SalesOrder, error)
}

var (
	confirmAction = orderAction{
		slug:    "confirm",
		audit:   "sales_order.confirm",
		heading: "Confirm sales order",
		message: "Confirm sales order #%d? Stock will be reserved for every item.",
		submit:  "Confirm",
		failure: "Failed to confirm sales order.",
		done:    "Sales order %s confirmed.",
		call: func(ctx context.Context, api *wmsapi.Client, id int64) (wmsapi.SalesOrder, error) {
			return api.ConfirmSalesOrder(ctx, id)
		},
	}
	outOfStockAction = orderAction{
		slug:    "out-of-stock",
		audit:   "sales_order.out_of_stock",
		heading: "Mark out of stock",
		message: "Mark sales order #%d as out of stock? The order will be cancelled.",
		submit:  "Mark out of stock",
		danger:  true,
		failure: "Failed to mark sales order out of stock.",
		done:    "Sales order %s marked out of stock.",
		call: func(ctx context.Context, api *wmsapi.Client, id int64) (wmsapi.SalesOrder, error) {
			return api.MarkOutOfStock(ctx, id)
		},
	}
)

// Handler manages sales order endpoints.
type Handler struct {
	logger    *slog.Logger
	api       *wmsapi.Client
	templates *view.Engine
	csrf      *shared.CSRFManager
	rbac      rbac.Middleware
	trail     *audit.Trail
	validator *validator.Validate
}

// NewHandler builds the sales handler.
func NewHandler(logger *slog.Logger, api *wmsapi.Client, templates *view.Engine, csrf *shared.CSRFManager, rbac rbac.Middleware, trail *audit.Trail) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, api: api, templates: templates, csrf: csrf, rbac: rbac, trail: trail, validator: validator.New()}
}

// MountRoutes registers sales order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireSession)
		r.Use(h.rbac.RequireRole(shared.RoleAdmin))
		r.Get(listPath, h.handleList)
		r.Post(listPath, h.handleCreate)
		for _, action := range []orderAction{confirmAction, outOfStockAction} {
			r.Get(listPath+"/{id}/"+action.slug, h.confirmPage(action))
			r.Post(listPath+"/{id}/"+action.slug, h.perform(action))
		}
		r.Get(listPath+"/{id}/picking-slip", h.handlePickingSlip)
	})
}

type orderRow struct {
	wmsapi.SalesOrder
	Total float64
	IsNew bool
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

func (h *Handler) renderPage(w http.ResponseWriter, r *http.Request, data pageData, status int) {
	id, _ := shared.IdentityFromContext(r.Context())
	api := h.api.WithToken(id.Token)

	var (
		products []wmsapi.Product
		orders   []wmsapi.SalesOrder
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		products, err = api.ListProducts(ctx)
		return err
	})
	g.Go(func() (err error) {
		orders, err = api.ListSalesOrders(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		h.logger.Warn("load sales orders", slog.Any("error", err))
		data.LoadError = MsgLoadFailed
		h.render(w, r, "pages/sales_orders.html", "Sales orders", data, status)
		return
	}

	data.Products = products
	for _, so := range orders {
		data.Orders = append(data.Orders, orderRow{
			SalesOrder: so,
			Total:      orderlines.Total(so.Items),
			IsNew:      so.Status == wmsapi.SalesOrderNew,
		})
	}
	h.render(w, r, "pages/sales_orders.html", "Sales orders", data, status)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form, lines, payload := parseOrderForm(r, h.validator)
	data := pageData{Form: form, Rows: lines.Rows, Errors: lines.Errors}
	switch {
	case lines.Action != orderlines.ActionSubmit:
		h.renderPage(w, r, data, http.StatusOK)
		return
	case len(lines.Errors) > 0:
		h.renderPage(w, r, data, http.StatusBadRequest)
		return
	}

	id, _ := shared.IdentityFromContext(r.Context())
	so, err := h.api.WithToken(id.Token).CreateSalesOrder(r.Context(), payload)
	if err != nil {
		h.logger.Warn("create sales order", slog.Any("error", err))
		data.Errors["general"] = wmsapi.ServerMessage(err, MsgCreateFailed)
		h.renderPage(w, r, data, http.StatusBadRequest)
		return
	}
	h.trail.Record(r.Context(), audit.Entry{
		Actor:    id.Username,
		Action:   "sales_order.create",
		Entity:   "sales_order",
		EntityID: strconv.FormatInt(so.ID, 10),
		Meta: map[string]string{
			"so_number": so.SONumber,
			"customer":  so.CustomerName,
			"total":     strconv.FormatFloat(orderlines.Total(so.Items), 'f', 2, 64),
		},
	})
	h.redirectWithFlash(w, r, "success", fmt.Sprintf("Sales order %s created.", label(so)))
}

func (h *Handler) confirmPage(action orderAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, ok := parseID(w, r)
		if !ok {
			return
		}
		h.render(w, r, "pages/confirm.html", action.heading, view.Confirmation{
			Heading: action.heading,
			Message: fmt.Sprintf(action.message, orderID),
			Action:  fmt.Sprintf("%s/%d/%s", listPath, orderID, action.slug),
			Submit:  action.submit,
			Danger:  action.danger,
			Cancel:  listPath,
		}, http.StatusOK)
	}
}

func (h *Handler) perform(action orderAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, ok := parseID(w, r)
		if !ok {
			return
		}
		id, _ := shared.IdentityFromContext(r.Context())
		so, err := action.call(r.Context(), h.api.WithToken(id.Token), orderID)
		if err != nil {
			h.logger.Warn("sales order action", slog.String("action", action.slug), slog.Int64("so_id", orderID), slog.Any("error", err))
			h.redirectWithFlash(w, r, "error", wmsapi.ServerMessage(err, action.failure))
			return
		}
		h.trail.Record(r.Context(), audit.Entry{
			Actor:    id.Username,
			Action:   action.audit,
			Entity:   "sales_order",
			EntityID: strconv.FormatInt(so.ID, 10),
			Meta:     map[string]string{"so_number": so.SONumber, "status": so.Status},
		})
		h.redirectWithFlash(w, r, "success", fmt.Sprintf(action.done, label(so)))
	}
}

// handlePickingSlip streams the document produced by the API as a download.
func (h *Handler) handlePickingSlip(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseID(w, r)
	if !ok {
		return
	}
	id, _ := shared.IdentityFromContext(r.Context())
	doc, err := h.api.WithToken(id.Token).PickingSlip(r.Context(), orderID)
	if err != nil {
		h.logger.Warn("picking slip", slog.Int64("so_id", orderID), slog.Any("error", err))
		h.redirectWithFlash(w, r, "error", MsgPickingSlip)
		return
	}
	contentType := doc.ContentType
	if contentType == "" {
		contentType = defaultSlipFormat
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="picking-slip-SO-%d.pdf"`, orderID))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Data)
}

func label(so wmsapi.SalesOrder) string {
	if so.SONumber == "" {
		return "#" + strconv.FormatInt(so.ID, 10)
	}
	return so.SONumber
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
		csrfToken, _ = h.csrf.EnsureToken(sess)
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
		h.logger.Error("render sales page", slog.String("template", tmpl), slog.Any("error", err))
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, listPath, http.StatusSeeOther)
}
