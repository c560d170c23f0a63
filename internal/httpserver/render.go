package httpserver

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"github.com/equiplend/frontend/internal/catalog"
	"github.com/equiplend/frontend/internal/lifecycle"
	"github.com/equiplend/frontend/internal/middleware/auth"
	"github.com/equiplend/frontend/internal/middleware/csrf"
	"github.com/equiplend/frontend/internal/models"
	"github.com/equiplend/frontend/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

// View is what every page template receives.
type View struct {
	Title   string
	Session *session.Session
	CSRF    string
	Flash   string
	Error   string
	Data    any
}

type Renderer struct {
	pages map[string]*template.Template
}

func templateFuncs(now func() time.Time) template.FuncMap {
	return template.FuncMap{
		"statusLabel": func(s models.Status) string { return lifecycle.Present(s).Label },
		"statusColor": func(s models.Status) string { return lifecycle.Present(s).Color },
		"statusIcon":  func(s models.Status) string { return lifecycle.Present(s).Icon },
		"actions":     lifecycle.Actions,
		"actionLabel": lifecycle.ActionLabel,
		"badge":       catalog.ItemBadge,
		"urgency":     func(r models.BorrowRequest) string { return lifecycle.Urgency(r, now()) },
		"overdue":     func(r models.BorrowRequest) bool { return lifecycle.IsOverdue(r, now()) },
		"guidance": func(r models.BorrowRequest) *lifecycle.Guidance {
			if g, ok := lifecycle.GuidanceFor(r, now()); ok {
				return &g
			}
			return nil
		},
		"date": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("Jan 2, 2006")
		},
		"requestNo": func(id int64) string { return fmt.Sprintf("#%04d", id) },
		"title":     titleCase,
	}
}

// NewRenderer parses every page together with the shared layout.
func NewRenderer() (*Renderer, error) {
	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	r := &Renderer{pages: make(map[string]*template.Template)}
	funcs := templateFuncs(time.Now)
	for _, f := range files {
		name := strings.TrimSuffix(path.Base(f), ".html")
		if name == "layout" {
			continue
		}
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", f)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

func (r *Renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	return t.ExecuteTemplate(w, "layout", data)
}

func (h *handlers) render(c echo.Context, status int, page string, v View) error {
	v.Session = auth.Current(c)
	v.CSRF = csrf.Token(c)
	if v.Flash == "" && v.Error == "" {
		v.Flash, v.Error = popFlash(c)
	}
	return c.Render(status, page, v)
}

const flashCookie = "equiplend_flash"

func setFlash(c echo.Context, msg string, isErr bool) {
	kind := "ok"
	if isErr {
		kind = "err"
	}
	c.SetCookie(&http.Cookie{
		Name:     flashCookie,
		Value:    kind + ":" + urlEscape(msg),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   60,
	})
}

func popFlash(c echo.Context) (flash, errMsg string) {
	ck, err := c.Cookie(flashCookie)
	if err != nil || ck.Value == "" {
		return "", ""
	}
	c.SetCookie(&http.Cookie{Name: flashCookie, Value: "", Path: "/", MaxAge: -1})
	kind, msg, _ := strings.Cut(ck.Value, ":")
	msg = urlUnescape(msg)
	if kind == "err" {
		return "", msg
	}
	return msg, ""
}

// titleCase upper-cases the first rune only.
func titleCase(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
