package dashboard

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
)

//go:embed web
var content embed.FS

// pageTemplate is the single page the dashboard renders.
const pageTemplate = "index.html"

// Page is the data one dashboard render needs.
type Page struct {
	// SensorID is the validated hardware address, empty on the home page.
	SensorID string

	// SensorName is the display label; defaults to SensorID.
	SensorName string
}

// view is what the template actually sees.
type view struct {
	Page
	Version string
}

// Renderer executes the dashboard template.
//
// Thread Safety: Render is safe for concurrent use.
type Renderer struct {
	tmpl    *template.Template
	version string
}

// New parses the dashboard templates.
//
// When dir is non-empty and contains a templates/ directory, templates are
// read from there; otherwise the embedded copies are used.
//
// Parameters:
//   - dir: Optional override directory (dev mode)
//   - version: Application version, shown in the page footer
//
// Returns:
//   - *Renderer: Ready to render
//   - error: If the templates fail to parse
func New(dir, version string) (*Renderer, error) {
	templates, err := subFS(dir, "templates")
	if err != nil {
		return nil, err
	}

	tmpl, err := template.ParseFS(templates, "*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing dashboard templates: %w", err)
	}
	if tmpl.Lookup(pageTemplate) == nil {
		return nil, fmt.Errorf("parsing dashboard templates: %s not found", pageTemplate)
	}

	return &Renderer{tmpl: tmpl, version: version}, nil
}

// Render writes the dashboard page for page to w.
func (r *Renderer) Render(w io.Writer, page Page) error {
	if page.SensorName == "" {
		page.SensorName = page.SensorID
	}

	if err := r.tmpl.ExecuteTemplate(w, pageTemplate, view{Page: page, Version: r.version}); err != nil {
		return fmt.Errorf("rendering %s: %w", pageTemplate, err)
	}
	return nil
}

// Static returns a handler serving the static assets. Mount it with the
// URL prefix stripped, e.g. http.StripPrefix("/static", Static(dir)).
//
// Panics if the embedded assets cannot be loaded (build error).
func Static(dir string) http.Handler {
	static, err := subFS(dir, "static")
	if err != nil {
		panic(fmt.Sprintf("dashboard: failed to load static assets: %v", err))
	}

	fileServer := http.FileServer(http.FS(static))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache, must-revalidate")
		fileServer.ServeHTTP(w, r)
	})
}

// subFS resolves name inside dir when that exists, else inside the embedded tree.
func subFS(dir, name string) (fs.FS, error) {
	if dir != "" {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			return os.DirFS(path), nil
		}
	}

	sub, err := fs.Sub(content, "web/"+name)
	if err != nil {
		return nil, fmt.Errorf("loading embedded %s: %w", name, err)
	}
	return sub, nil
}
