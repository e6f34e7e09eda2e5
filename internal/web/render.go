package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"time"

	"tennisluv/internal/catalog"
	"tennisluv/internal/export"
	"tennisluv/internal/models"
	"tennisluv/internal/selection"
	"tennisluv/internal/session"

	"github.com/gorilla/csrf"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

//go:embed templates/*.html templates/landing.md
var templateFS embed.FS

var pageNames = []string{
	"landing", "login", "register", "verify_pending", "verify",
	"booking", "profile", "settings", "admin", "error",
}

// pageData is what every template receives. Content is page specific.
type pageData struct {
	Title     string
	User      *models.User
	Flashes   []session.Flash
	CSRFField template.HTML
	Content   any
}

type renderer struct {
	pages map[string]*template.Template
}

func newRenderer(cat *catalog.Catalog) (*renderer, error) {
	funcs := template.FuncMap{
		"dateValue": func(t time.Time) string { return t.Format(models.DateLayout) },
		"dateLabel": func(t time.Time) string { return t.Format("Mon 02.01.2006") },
		"hourLabel": hourLabel,
		"cellClass": cellClass,
		"entryLabel": func(e models.Entry) string {
			return export.Label(cat, e)
		},
	}

	r := &renderer{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// render executes into a buffer first so a template error still yields a clean 500.
func (r *renderer) render(w http.ResponseWriter, status int, name string, data pageData) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

func (s *Server) page(w http.ResponseWriter, r *http.Request, status int, name, title string, content any) {
	sess := sessionFrom(r)
	data := pageData{
		Title:     title,
		CSRFField: csrf.TemplateField(r),
		Content:   content,
	}
	if sess != nil {
		data.User = sess.User
		data.Flashes = sess.PopFlashes()
	}
	if err := s.render.render(w, status, name, data); err != nil {
		s.logger.Error().Err(err).Str("page", name).Msg("render failed")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (s *Server) errorPage(w http.ResponseWriter, r *http.Request, status int, msg string) {
	content := struct {
		Status  int
		Message string
	}{status, msg}
	s.page(w, r, status, "error", http.StatusText(status), content)
}

func hourLabel(h int) string {
	return fmt.Sprintf("%02d:00", h)
}

func cellClass(c selection.Cell) string {
	switch {
	case c.Selected:
		return "cell selected"
	case c.Editing:
		return "cell editing"
	case c.Own:
		return "cell own"
	case c.Entry != nil:
		return "cell taken " + string(c.Category)
	case c.Selectable:
		return "cell free"
	default:
		return "cell blocked"
	}
}

// loadLanding renders the landing markdown from path, or the bundled page.
func loadLanding(path string) (template.HTML, error) {
	var src []byte
	var err error
	if path != "" {
		src, err = os.ReadFile(path)
	} else {
		src, err = templateFS.ReadFile("templates/landing.md")
	}
	if err != nil {
		return "", err
	}
	return renderMarkdown(src)
}

func renderMarkdown(src []byte) (template.HTML, error) {
	md := goldmark.New(goldmark.WithRendererOptions(goldmarkHTML.WithHardWraps()))
	var buf bytes.Buffer
	if err := md.Convert(src, &buf); err != nil {
		return "", err
	}
	// #nosec G203 -- goldmark escapes raw HTML unless WithUnsafe is set
	return template.HTML(buf.String()), nil
}
