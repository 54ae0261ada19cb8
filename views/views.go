package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"path"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

var funcs = template.FuncMap{
	"join": func(base, p string) string {
		return path.Join(base, p)
	},
	"plates": func(plates []string) string {
		return strings.Join(plates, ", ")
	},
}

// View renders a page
type View interface {
	Render(w http.ResponseWriter, r *http.Request) error
}

// Submitter is a view that also accepts its own form posts
type Submitter interface {
	Submit(w http.ResponseWriter, r *http.Request) error
}

// page is the data handed to every template
type page struct {
	Title string
	Base  string
	Data  interface{}
}

// parsePage pairs the layout with one page's content template
func parsePage(name string) *template.Template {
	return template.Must(template.New("layout").Funcs(funcs).
		ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html"))
}

// render executes into a buffer first so a template error never leaves
// a half-written page behind
func render(w http.ResponseWriter, tmpl *template.Template, status int, p page) error {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", p); err != nil {
		return fmt.Errorf("render %s: %w", p.Title, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

func basePath(base string) string {
	if base == "" {
		return "/"
	}
	return base
}
