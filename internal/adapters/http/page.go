package http

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/randomtoy/jokes-go/internal/render"
)

//go:embed templates/*.html
var templateFS embed.FS

// pageTemplates parses the embedded templates on first use.
var pageTemplates = struct {
	once sync.Once
	tmpl *template.Template
	err  error
}{}

func loadTemplates() (*template.Template, error) {
	pageTemplates.once.Do(func() {
		tmpl, err := template.ParseFS(templateFS, "templates/*.html")
		if err != nil {
			pageTemplates.err = fmt.Errorf("parse embedded templates: %w", err)
			return
		}
		pageTemplates.tmpl = tmpl
	})
	return pageTemplates.tmpl, pageTemplates.err
}

// Page renders the current state as HTML.
func (h *Handler) Page(c echo.Context) error {
	tmpl, err := loadTemplates()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "index.html", render.Render(h.ctrl.State())); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}

// PageFetch backs the page's button: it runs a fetch and redirects back.
func (h *Handler) PageFetch(c echo.Context) error {
	h.ctrl.FetchResource(c.Request().Context())
	return c.Redirect(http.StatusSeeOther, "/")
}
