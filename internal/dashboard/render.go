package dashboard

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/desertthunder/ytdash/internal/models"
)

//go:embed templates/*.html
var templateFiles embed.FS

// Page is the data handed to the dashboard templates.
type Page struct {
	View    View
	Session *models.Session
	Channel *models.ChannelLink
	Tabs    []string
}

// Renderer executes the embedded dashboard templates.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("").ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Render writes the page for p.View. Redirect views render nothing; callers redirect instead.
func (r *Renderer) Render(w io.Writer, p Page) error {
	var name string
	switch p.View.Kind {
	case ViewLoading:
		name = "loading.html"
	case ViewConnectChannel:
		name = "connect.html"
	case ViewTab:
		name = "tab.html"
	default:
		return fmt.Errorf("view %q has no template", p.View.Kind)
	}
	if err := r.tmpl.ExecuteTemplate(w, name, p); err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}
	return nil
}
