package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/wms-console/internal/audit"
	"github.com/odyssey-erp/wms-console/internal/auth"
	"github.com/odyssey-erp/wms-console/internal/rbac"
	"github.com/odyssey-erp/wms-console/internal/shared"
	"github.com/odyssey-erp/wms-console/internal/view"
	"github.com/odyssey-erp/wms-console/internal/wmsapi"
)

// Messages shown on the dashboard when products cannot be listed.
const (
	MsgAdminOnly      = "You are not allowed to view products (ADMIN only)."
	MsgUnauthorized   = "Unauthorized. Please log in again."
	MsgLoadFailed     = "Failed to load products (check token / server)."
	MsgHistoryFailed  = "Failed to load stock movement history."
	MsgSaveFailed     = "Failed to save product."
	MsgDeleteFailed   = "Failed to delete product."
	MsgMovementFailed = "Failed to record stock movement."
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handler wires HTTP endpoints for products and stock movements.
type Handler struct {
	logger    *slog.Logger
	api       *wmsapi.Client
	templates *view.Engine
	csrf      *shared.CSRFManager
	rbac      rbac.Middleware
	trail     *audit.Trail
	validator *validator.Validate
	now       func() time.Time
}

// NewHandler constructs the inventory handler.
func NewHandler(logger *slog.Logger, api *wmsapi.Client, templates *view.Engine, csrf *shared.CSRFManager, rbac rbac.Middleware, trail *audit.Trail) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		api:       api,
		templates: templates,
		csrf:      csrf,
		rbac:      rbac,
		trail:     trail,
		validator: validator.New(),
		now:       time.Now,
	}
}

// MountRoutes registers the dashboard and its actions.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireSession)
		r.Get("/", h.showDashboard)
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireRole(shared.RoleAdmin))
			r.Post("/products", h.handleCreate)
			r.Get("/products/export.xlsx", h.handleExport)
			r.Post("/products/{id}", h.handleUpdate)
			r.Get("/products/{id}/delete", h.confirmDelete)
			r.Post("/products/{id}/delete", h.handleDelete)
			r.Get("/stock-movements", h.showMovementLog)
			r.Post("/stock-movements", h.handleMovement)
		})
	})
}

// dashboardState is what a request contributes on top of the fetched data.
type dashboardState struct {
	SelectedID int64
	EditingID  int64
	Form       productForm
	FormErrors map[string]string
	FormPosted bool
	Movement   movementForm
	MoveErrors map[string]string
}

type dashboardPageData struct {
	Admin             bool
	Notice            string
	Loaded            bool
	Products          []wmsapi.Product
	Summary           Summary
	LowStockThreshold int
	SelectedID        int64
	Selected          *wmsapi.Product
	History           []wmsapi.StockMovement
	HistoryError      string
	EditingID         int64
	Form              productForm
	FormErrors        map[string]string
	Movement          movementForm
	MovementErrors    map[string]string
	TokenExpires      time.Time
}

func (h *Handler) showDashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	state := dashboardState{}
	state.SelectedID, _ = strconv.ParseInt(q.Get("product"), 10, 64)
	state.EditingID, _ = strconv.ParseInt(q.Get("edit"), 10, 64)
	h.renderDashboard(w, r, state, http.StatusOK)
}

// renderDashboard fetches products and, when a product is selected, its history.
// The two calls run concurrently and fail independently.
func (h *Handler) renderDashboard(w http.ResponseWriter, r *http.Request, state dashboardState, status int) {
	id, _ := shared.IdentityFromContext(r.Context())
	data := dashboardPageData{
		LowStockThreshold: LowStockThreshold,
		SelectedID:        state.SelectedID,
		EditingID:         state.EditingID,
		Form:              state.Form,
		FormErrors:        state.FormErrors,
		Movement:          state.Movement,
		MovementErrors:    state.MoveErrors,
	}
	if info, err := auth.InspectToken(id.Token); err == nil {
		data.TokenExpires = info.ExpiresAt
	}
	if data.Movement.Type == "" {
		data.Movement.Type = string(wmsapi.MovementIn)
	}

	data.Admin = id.IsAdmin()
	if !data.Admin {
		data.Notice = MsgAdminOnly
		h.render(w, r, "pages/dashboard.html", "Dashboard", data, status)
		return
	}

	api := h.api.WithToken(id.Token)
	var (
		g          errgroup.Group
		productErr error
		historyErr error
	)
	g.Go(func() error {
		data.Products, productErr = api.ListProducts(r.Context())
		return nil
	})
	if state.SelectedID > 0 {
		g.Go(func() error {
			data.History, historyErr = api.ProductMovements(r.Context(), state.SelectedID)
			return nil
		})
	}
	_ = g.Wait()

	if productErr != nil {
		h.logger.Warn("list products", slog.Any("error", productErr))
		data.Notice = loadNotice(productErr)
		data.Products = nil
	} else {
		data.Loaded = true
	}
	if historyErr != nil {
		h.logger.Warn("product movements", slog.Int64("product_id", state.SelectedID), slog.Any("error", historyErr))
		data.HistoryError = MsgHistoryFailed
		data.History = nil
	}
	data.Summary = Summarize(data.Products)

	for i := range data.Products {
		p := data.Products[i]
		if p.ID == state.SelectedID {
			data.Selected = &data.Products[i]
		}
		if p.ID == state.EditingID && !state.FormPosted {
			data.Form = productFormFrom(p)
		}
	}
	if data.Movement.ProductID == "" && state.SelectedID > 0 {
		data.Movement.ProductID = strconv.FormatInt(state.SelectedID, 10)
	}
	h.render(w, r, "pages/dashboard.html", "Dashboard", data, status)
}

func loadNotice(err error) string {
	switch {
	case errors.Is(err, wmsapi.ErrForbidden):
		return MsgAdminOnly
	case errors.Is(err, wmsapi.ErrUnauthorized):
		return MsgUnauthorized
	default:
		return MsgLoadFailed
	}
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	h.saveProduct(w, r, 0)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(w, r)
	if !ok {
		return
	}
	h.saveProduct(w, r, productID)
}

func (h *Handler) saveProduct(w http.ResponseWriter, r *http.Request, productID int64) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form, product, errs := parseProductForm(r, h.validator)
	state := dashboardState{EditingID: productID, Form: form, FormErrors: errs, FormPosted: true}
	if len(errs) > 0 {
		h.renderDashboard(w, r, state, http.StatusBadRequest)
		return
	}

	id, _ := shared.IdentityFromContext(r.Context())
	api := h.api.WithToken(id.Token)
	var (
		saved  wmsapi.Product
		err    error
		action = "product.create"
	)
	if productID > 0 {
		action = "product.update"
		saved, err = api.UpdateProduct(r.Context(), productID, product)
	} else {
		saved, err = api.CreateProduct(r.Context(), product)
	}
	if err != nil {
		h.logger.Warn("save product", slog.Int64("product_id", productID), slog.Any("error", err))
		state.FormErrors["general"] = wmsapi.ServerMessage(err, MsgSaveFailed)
		h.renderDashboard(w, r, state, http.StatusBadRequest)
		return
	}
	h.trail.Record(r.Context(), audit.Entry{
		Actor:    id.Username,
		Action:   action,
		Entity:   "product",
		EntityID: strconv.FormatInt(saved.ID, 10),
		Meta:     map[string]string{"sku": saved.SKU},
	})
	h.redirectWithFlash(w, r, "/", "success", fmt.Sprintf("Product %q saved (#%d).", saved.Name, saved.ID))
}

func (h *Handler) confirmDelete(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(w, r)
	if !ok {
		return
	}
	id, _ := shared.IdentityFromContext(r.Context())
	label := fmt.Sprintf("product #%d", productID)
	if p, err := h.api.WithToken(id.Token).GetProduct(r.Context(), productID); err == nil {
		label = fmt.Sprintf("%q (%s)", p.Name, p.SKU)
	} else if !errors.Is(err, wmsapi.ErrServer) {
		h.redirectWithFlash(w, r, "/", "error", wmsapi.ServerMessage(err, MsgDeleteFailed))
		return
	}
	h.render(w, r, "pages/confirm.html", "Delete product", view.Confirmation{
		Heading: "Delete product",
		Message: "Delete " + label + "? This cannot be undone.",
		Action:  fmt.Sprintf("/products/%d/delete", productID),
		Submit:  "Delete",
		Danger:  true,
		Cancel:  "/",
	}, http.StatusOK)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(w, r)
	if !ok {
		return
	}
	id, _ := shared.IdentityFromContext(r.Context())
	if err := h.api.WithToken(id.Token).DeleteProduct(r.Context(), productID); err != nil {
		h.logger.Warn("delete product", slog.Int64("product_id", productID), slog.Any("error", err))
		h.redirectWithFlash(w, r, "/", "error", wmsapi.ServerMessage(err, MsgDeleteFailed))
		return
	}
	h.trail.Record(r.Context(), audit.Entry{Actor: id.Username, Action: "product.delete", Entity: "product", EntityID: strconv.FormatInt(productID, 10)})
	h.redirectWithFlash(w, r, "/", "success", "Product deleted.")
}

func (h *Handler) handleMovement(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form, adj, errs := parseMovementForm(r)
	if len(errs) > 0 {
		h.renderDashboard(w, r, dashboardState{SelectedID: adj.ProductID, Movement: form, MoveErrors: errs}, http.StatusBadRequest)
		return
	}
	target := fmt.Sprintf("/?product=%d", adj.ProductID)
	id, _ := shared.IdentityFromContext(r.Context())
	mv, err := h.api.WithToken(id.Token).AdjustStock(r.Context(), adj)
	if err != nil {
		h.logger.Warn("adjust stock", slog.Int64("product_id", adj.ProductID), slog.Any("error", err))
		h.redirectWithFlash(w, r, target, "error", wmsapi.ServerMessage(err, MsgMovementFailed))
		return
	}
	h.trail.Record(r.Context(), audit.Entry{
		Actor:    id.Username,
		Action:   "stock." + string(adj.Type),
		Entity:   "product",
		EntityID: strconv.FormatInt(adj.ProductID, 10),
		Meta:     map[string]string{"quantity": strconv.Itoa(adj.Quantity), "reason": adj.Reason, "movement_id": strconv.FormatInt(mv.ID, 10)},
	})
	h.redirectWithFlash(w, r, target, "success", fmt.Sprintf("Stock %s of %d recorded.", adj.Type, adj.Quantity))
}

type movementLogPageData struct {
	Movements []wmsapi.StockMovement
	Error     string
}

func (h *Handler) showMovementLog(w http.ResponseWriter, r *http.Request) {
	id, _ := shared.IdentityFromContext(r.Context())
	data := movementLogPageData{}
	movements, err := h.api.WithToken(id.Token).ListMovements(r.Context())
	if err != nil {
		h.logger.Warn("list movements", slog.Any("error", err))
		data.Error = loadNotice(err)
	}
	data.Movements = movements
	h.render(w, r, "pages/movements.html", "Stock movements", data, http.StatusOK)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	id, _ := shared.IdentityFromContext(r.Context())
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()
	products, err := h.api.WithToken(id.Token).ListProducts(ctx)
	if err != nil {
		h.logger.Warn("export products", slog.Any("error", err))
		h.redirectWithFlash(w, r, "/", "error", loadNotice(err))
		return
	}
	body, err := ExportProducts(products)
	if err != nil {
		h.logger.Error("build product workbook", slog.Any("error", err))
		h.redirectWithFlash(w, r, "/", "error", "Failed to build the export.")
		return
	}
	filename := fmt.Sprintf("products-%s.xlsx", h.now().Format("20060102"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
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
		h.logger.Error("render inventory page", slog.String("template", tmpl), slog.Any("error", err))
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, url, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, url, http.StatusSeeOther)
}
