package api

import (
	"embed"
	"html/template"
	"io"

	"github.com/labstack/echo/v4"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Renderer serves the embedded HTML pages through echo's Render call.
type Renderer struct {
	templates *template.Template
}

// NewRenderer parses the embedded page templates.
func NewRenderer() (*Renderer, error) {
	t, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Renderer{templates: t}, nil
}

// Render implements echo.Renderer.
func (r *Renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}
