package httptransport

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"pointer/internal/authform"
	"pointer/internal/identity"
	"pointer/internal/pricing"
)

//go:embed templates/*.html
var templateFS embed.FS

type pageData struct {
	Title         string
	Authenticated bool
}

type homePage struct {
	pageData
	Billing pricing.Billing
	Pricing pricing.SectionState
}

type authPage struct {
	pageData
	Form authform.FormState
}

type profilePage struct {
	pageData
	User *identity.User
}

// Pages renders the server-side HTML views.
type Pages struct {
	templates map[string]*template.Template
	logger    *slog.Logger
}

func NewPages(logger *slog.Logger) (*Pages, error) {
	p := &Pages{templates: map[string]*template.Template{}, logger: logger}
	for _, name := range []string{"home", "auth", "profile"} {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		p.templates[name] = t
	}
	return p, nil
}

func (p *Pages) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	var buf bytes.Buffer
	if err := p.templates[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		p.logger.ErrorContext(r.Context(), "failed to render page", "page", name, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
