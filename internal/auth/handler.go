package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/wms-console/internal/audit"
	"github.com/odyssey-erp/wms-console/internal/shared"
	"github.com/odyssey-erp/wms-console/internal/view"
)

// registerRedirect is sent with a successful registration so the browser moves on to login.
const registerRedirect = "2; url=/login"

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	templates   *view.Engine
	csrfManager *shared.CSRFManager
	trail       *audit.Trail
	validator   *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, trail *audit.Trail) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:      logger,
		service:     service,
		templates:   templates,
		csrfManager: csrf,
		trail:       trail,
		validator:   validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.showLogin)
	r.Post("/login", h.handleLogin)
	r.Get("/register", h.showRegister)
	r.Post("/register", h.handleRegister)
	r.Post("/logout", h.handleLogout)
}

type loginForm struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

type loginPageData struct {
	Form   loginForm
	Errors map[string]string
}

type registerForm struct {
	Username string `validate:"required,max=100"`
	Password string `validate:"required"`
	Email    string `validate:"omitempty,email"`
	Role     string `validate:"required,oneof=ADMIN CUSTOMER"`
}

type registerPageData struct {
	Form    registerForm
	Errors  map[string]string
	Success string
	Roles   []shared.Role
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/login.html", "Sign in", loginPageData{}, http.StatusOK)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	form := loginForm{
		Username: strings.TrimSpace(r.PostFormValue("username")),
		Password: r.PostFormValue("password"),
	}
	errs := h.validate(form)
	if len(errs) == 0 {
		id, err := h.service.Login(r.Context(), sess, form.Username, form.Password)
		if err == nil {
			h.trail.Record(r.Context(), audit.Entry{Actor: id.Username, Action: "auth.login", Entity: "session", Meta: map[string]string{"role": string(id.Role)}})
			sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Welcome back, " + id.Username})
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		if !errors.Is(err, shared.ErrInvalidCredentials) {
			h.logger.Error("login", slog.Any("error", err))
		}
		errs["general"] = shared.InvalidCredentialsMessage
	}
	form.Password = ""
	h.render(w, r, "pages/login.html", "Sign in", loginPageData{Form: form, Errors: errs}, http.StatusBadRequest)
}

func (h *Handler) showRegister(w http.ResponseWriter, r *http.Request) {
	data := registerPageData{Form: registerForm{Role: string(shared.RoleCustomer)}, Roles: roles()}
	h.render(w, r, "pages/register.html", "Register", data, http.StatusOK)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := registerForm{
		Username: strings.TrimSpace(r.PostFormValue("username")),
		Password: r.PostFormValue("password"),
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Role:     strings.ToUpper(strings.TrimSpace(r.PostFormValue("role"))),
	}
	data := registerPageData{Roles: roles()}
	errs := h.validate(form)
	if len(errs) == 0 {
		msg, err := h.service.Register(r.Context(), Registration{
			Username: form.Username,
			Password: form.Password,
			Email:    form.Email,
			Role:     form.Role,
		})
		if err == nil {
			h.trail.Record(r.Context(), audit.Entry{Actor: form.Username, Action: "auth.register", Entity: "user", EntityID: form.Username, Meta: map[string]string{"role": form.Role}})
			data.Success = msg
			w.Header().Set("Refresh", registerRedirect)
			h.render(w, r, "pages/register.html", "Register", data, http.StatusOK)
			return
		}
		if msg == "" {
			msg = "Registration failed"
		}
		errs["general"] = msg
	}
	form.Password = ""
	data.Form = form
	data.Errors = errs
	h.render(w, r, "pages/register.html", "Register", data, http.StatusBadRequest)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if id, ok := Restore(sess); ok {
		h.trail.Record(r.Context(), audit.Entry{Actor: id.Username, Action: "auth.logout", Entity: "session"})
	}
	h.service.Logout(sess)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *Handler) validate(form any) map[string]string {
	errs := make(map[string]string)
	if err := h.validator.Struct(form); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fieldErr := range verrs {
				errs[fieldErr.Field()] = fieldMessage(fieldErr)
			}
		}
	}
	return errs
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "oneof":
		return "Choose ADMIN or CUSTOMER."
	case "max":
		return "Too long."
	}
	return fe.Error()
}

func roles() []shared.Role {
	return []shared.Role{shared.RoleCustomer, shared.RoleAdmin}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, tmpl, title string, data any, status int) {
	sess := shared.SessionFromContext(r.Context())
	var csrfToken string
	if sess != nil {
		csrfToken, _ = h.csrfManager.EnsureToken(sess)
	}
	viewData := view.TemplateData{
		Title:       title,
		CSRFToken:   csrfToken,
		Flashes:     sess.PopFlashes(),
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	if id, ok := Restore(sess); ok {
		viewData.Identity = &id
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.Render(w, tmpl, viewData); err != nil {
		h.logger.Error("render auth page", slog.String("template", tmpl), slog.Any("error", err))
	}
}
