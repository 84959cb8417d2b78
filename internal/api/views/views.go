// Package views renders the console's HTML pages. Templates are embedded;
// every page shares layout.tmpl, which also draws the forced password
// change overlay.
package views

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/darziflow/console/internal/core/domain"
	"github.com/darziflow/console/internal/core/service"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Page names.
const (
	PageLogin       = "login"
	PageLoading     = "loading"
	PageError       = "error"
	PageDashboard   = "dashboard"
	PageDepartments = "departments"
	PageOperations  = "operations"
	PageQC          = "qc"
	PageOrders      = "orders"
	PageOrder       = "order"
	PageUsers       = "users"
	PageProfile     = "profile"
)

var pageNames = []string{
	PageLogin, PageLoading, PageError, PageDashboard, PageDepartments,
	PageOperations, PageQC, PageOrders, PageOrder, PageUsers, PageProfile,
}

// Page is the data every template receives.
type Page struct {
	Title     string
	Path      string
	Principal *domain.Principal
	Overlay   service.OverlayView
	Flash     string
	Error     string
	Form      map[string]string
	Data      any
}

// IsAdmin reports whether the viewer is an Admin; used to hide admin-only
// navigation.
func (p Page) IsAdmin() bool {
	return p.Principal != nil && p.Principal.Role == domain.RoleAdmin
}

// Renderer implements echo.Renderer.
type Renderer struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"date": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.Format("02 Jan 2006")
	},
	"lower":    strings.ToLower,
	"statuses": func() []domain.OrderStatus { return orderStatuses },
	"roles":    func() []domain.Role { return []domain.Role{domain.RoleAdmin, domain.RoleModerator, domain.RoleWorker} },
}

var orderStatuses = []domain.OrderStatus{
	domain.OrderPending, domain.OrderInProgress, domain.OrderQC, domain.OrderCompleted, domain.OrderCancelled,
}

// NewRenderer parses the layout once per page so each page can define its
// own "content" block.
func NewRenderer() (*Renderer, error) {
	layout, err := template.New("layout.tmpl").Funcs(funcs).ParseFS(templateFS, "templates/layout.tmpl")
	if err != nil {
		return nil, fmt.Errorf("views: parse layout: %w", err)
	}

	r := &Renderer{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		clone, err := layout.Clone()
		if err != nil {
			return nil, fmt.Errorf("views: clone layout: %w", err)
		}
		t, err := clone.ParseFS(templateFS, "templates/"+name+".tmpl")
		if err != nil {
			return nil, fmt.Errorf("views: parse %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Render writes the full layout, or only the main block for htmx requests.
func (r *Renderer) Render(w io.Writer, name string, data any, c echo.Context) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("views: unknown page %q", name)
	}
	if c != nil && IsHTMX(c.Request()) {
		return t.ExecuteTemplate(w, "main", data)
	}
	return t.ExecuteTemplate(w, "layout.tmpl", data)
}

// IsHTMX reports whether the request was initiated by htmx (Hx-Request: true).
func IsHTMX(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Hx-Request"), "true")
}
