package view

import (
	"fmt"
	"html/template"
	"net/http"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/odyssey-erp/wms-console/internal/shared"
	"github.com/odyssey-erp/wms-console/web"
)

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title       string
	CSRFToken   string
	Flashes     []shared.FlashMessage
	CurrentPath string
	Identity    *shared.Identity
	Data        any
}

var printer = message.NewPrinter(language.English)

// FormatMoney renders an amount with thousands separators and two decimals.
func FormatMoney(v float64) string {
	return printer.Sprintf("%.2f", v)
}

// FormatNumber renders an integer with thousands separators.
func FormatNumber(v int) string {
	return printer.Sprintf("%d", v)
}

// FormatDate renders a timestamp for tables; zero renders as empty.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02 Jan 2006 15:04")
}

// NewEngine parses templates at build-time.
func NewEngine() (*Engine, error) {
	funcMap := template.FuncMap{
		"formatDate":   FormatDate,
		"formatMoney":  FormatMoney,
		"formatNumber": FormatNumber,
		"add": func(a, b int) int {
			return a + b
		},
		"eqID": func(a, b int64) bool {
			return a == b
		},
	}
	tpl, err := template.New("root").Funcs(funcMap).ParseFS(web.Templates, "templates/layouts/*.html", "templates/partials/*.html", "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl}, nil
}

// Render executes a named template with TemplateData.
func (e *Engine) Render(w http.ResponseWriter, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return e.templates.ExecuteTemplate(w, name, data)
}

// Confirmation drives pages/confirm.html, which stands in for a browser confirm dialog.
type Confirmation struct {
	Heading string
	Message string
	Action  string
	Submit  string
	Danger  bool
	Cancel  string
}
