// Package web renders the HTML pages of the intervention manager.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/garnizeh/interventions/pkg/models"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	PageLogin      = "login"
	PageAdmin      = "admin"
	PageTechnician = "technician"
)

var pages = []string{PageLogin, PageAdmin, PageTechnician}

// LoginPage is the data of the login form.
type LoginPage struct {
	Notice   string
	Username string
}

// CreateForm echoes a rejected intervention submission back to the admin.
type CreateForm struct {
	Title        string
	Description  string
	TechnicianID string
	Error        string
}

// DashboardPage is the data of both dashboards. Technicians is only used by
// the admin page.
type DashboardPage struct {
	Notice        string
	Session       *models.Session
	Interventions []models.Intervention
	Technicians   []models.User
	Form          CreateForm
}

type Renderer struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"statuses": func() []models.Status { return models.Statuses },
	"assignee": func(inv models.Intervention) string {
		if inv.Technician == nil {
			return "Unassigned"
		}
		return *inv.Technician
	},
}

// NewRenderer parses every page against the shared layout.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template, len(pages))}
	for _, p := range pages {
		t, err := template.New(p).Funcs(funcs).ParseFS(templateFS,
			"templates/layout.html",
			"templates/status_form.html",
			"templates/"+p+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", p, err)
		}
		r.pages[p] = t
	}
	return r, nil
}

// Render executes page into w. Callers writing to a response should buffer,
// since a failing template may leave partial output behind.
func (r *Renderer) Render(w io.Writer, page string, data any) error {
	t, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	if err := t.ExecuteTemplate(w, "layout", data); err != nil {
		return fmt.Errorf("render %s: %w", page, err)
	}
	return nil
}

// DashboardFor picks the dashboard page matching the session role.
func DashboardFor(s *models.Session) string {
	if s.IsAdmin() {
		return PageAdmin
	}
	return PageTechnician
}
