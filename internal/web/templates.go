// Package web provides the browser front end: app-password login, the
// author's post list with search, category and sort controls, post detail
// pages, and JSON export download.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/romiojoseph/at-protocol/internal/core/blogs"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Templates holds the parsed HTML templates for the web interface.
type Templates struct {
	templates *template.Template
}

// NewTemplates parses all embedded templates.
func NewTemplates() (*Templates, error) {
	funcs := template.FuncMap{
		"displayDate": displayDate,
		"excerpt":     excerpt,
	}
	tmpl, err := template.New("").Funcs(funcs).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Templates{templates: tmpl}, nil
}

// Render renders a named template with the provided data to the response
// writer.
func (t *Templates) Render(w http.ResponseWriter, name string, data interface{}) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	tmpl := t.templates.Lookup(name)
	if tmpl == nil {
		return fmt.Errorf("template %q not found", name)
	}

	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("failed to execute template %q: %w", name, err)
	}

	return nil
}

// displayDate renders a stored publishedAt in the human layout. Raw
// values that do not parse are shown as-is.
func displayDate(raw string) string {
	t, err := blogs.ParseDate(raw)
	if err != nil {
		return raw
	}
	return blogs.FormatDate(t)
}

// excerpt shortens content for list views.
func excerpt(s string, max int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimSpace(string(runes[:max])) + "…"
}
