// Package web renders the server-side pages. The layout and the admin
// dashboard are templ components; the remaining pages are html/template
// definitions exposed as components through Partial.
package web

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/gorilla/csrf"

	"inclusao/internal/platform/clientstore"
	"inclusao/internal/platform/flash"
)

//go:generate templ generate

//go:embed templates/*.html
var templateFS embed.FS

const dateLayout = "02/01/2006 15:04"

// Renderer writes full pages and bare fragments.
type Renderer struct {
	templates    *template.Template
	flash        flash.Flash
	store        clientstore.Store
	defaultTheme string
	logger       *slog.Logger
}

type Option func(*Renderer)

func WithLocation(loc *time.Location) Option {
	return func(r *Renderer) {
		r.templates.Funcs(template.FuncMap{"dataBR": dateFunc(loc)})
	}
}

func WithDefaultTheme(theme string) Option {
	return func(r *Renderer) {
		r.defaultTheme = theme
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Renderer) {
		r.logger = logger
	}
}

// New parses the embedded templates. Dates render in UTC unless
// WithLocation is given.
func New(fl flash.Flash, store clientstore.Store, opts ...Option) (*Renderer, error) {
	tmpl, err := template.New("pages").
		Funcs(template.FuncMap{"dataBR": dateFunc(time.UTC)}).
		ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	r := &Renderer{
		templates:    tmpl,
		flash:        fl,
		store:        store,
		defaultTheme: "light",
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func dateFunc(loc *time.Location) func(time.Time) string {
	return func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.In(loc).Format(dateLayout)
	}
}

// Page describes one full-page response.
type Page struct {
	Title  string
	Status int
	// Name is the template definition rendered as the page body.
	Name string
	Data any
	// Body, when set, is rendered instead of Name.
	Body templ.Component
	// Notice is shown on this render in addition to any pending flash.
	Notice *flash.Notice
	// RedirectTo, when set, sends the browser there after RedirectAfter.
	RedirectTo    string
	RedirectAfter time.Duration
}

// Body is what every page template receives.
type Body struct {
	CSRF template.HTML
	Data any
}

type layoutView struct {
	Title         string
	Theme         string
	Notices       []flash.Notice
	CSRFToken     string
	RedirectTo    string
	RedirectAfter int
	Path          string
	Content       templ.Component
}

type csrfKey struct{}

func withCSRF(ctx context.Context, field template.HTML) context.Context {
	return context.WithValue(ctx, csrfKey{}, field)
}

func csrfFrom(ctx context.Context) template.HTML {
	field, _ := ctx.Value(csrfKey{}).(template.HTML)
	return field
}

// csrfField writes the hidden token input of the page being rendered.
func csrfField() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, string(csrfFrom(ctx)))
		return err
	})
}

// Partial exposes an html/template definition as a component.
func (rn *Renderer) Partial(name string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		tmpl, err := rn.lookup(name)
		if err != nil {
			return err
		}
		return templ.FromGoHTML(tmpl, Body{CSRF: csrfFrom(ctx), Data: data}).Render(ctx, w)
	})
}

// Page renders page inside the layout and writes it with page.Status.
func (rn *Renderer) Page(w http.ResponseWriter, r *http.Request, page Page) {
	ctx := withCSRF(r.Context(), csrf.TemplateField(r))

	content := page.Body
	if content == nil {
		content = rn.Partial(page.Name, page.Data)
	}

	var notices []flash.Notice
	if pending, ok := rn.flash.ReadAndClear(w, r); ok {
		notices = append(notices, pending)
	}
	if page.Notice != nil {
		notices = append(notices, *page.Notice)
	}

	view := layoutView{
		Title:         page.Title,
		Theme:         clientstore.Theme(rn.store, r, rn.defaultTheme),
		Notices:       notices,
		CSRFToken:     csrf.Token(r),
		RedirectTo:    page.RedirectTo,
		RedirectAfter: int(page.RedirectAfter.Seconds()),
		Path:          r.URL.Path,
		Content:       content,
	}
	var out bytes.Buffer
	if err := layout(view).Render(ctx, &out); err != nil {
		rn.fail(w, r, page.Name, err)
		return
	}
	write(w, page.Status, out.Bytes())
}

// Fragment renders a single template without the layout.
func (rn *Renderer) Fragment(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	ctx := withCSRF(r.Context(), csrf.TemplateField(r))
	var out bytes.Buffer
	if err := rn.Partial(name, data).Render(ctx, &out); err != nil {
		rn.fail(w, r, name, err)
		return
	}
	write(w, status, out.Bytes())
}

func (rn *Renderer) lookup(name string) (*template.Template, error) {
	tmpl := rn.templates.Lookup(name)
	if tmpl == nil {
		return nil, fmt.Errorf("template %q not defined", name)
	}
	return tmpl, nil
}

func (rn *Renderer) fail(w http.ResponseWriter, r *http.Request, name string, err error) {
	rn.logger.ErrorContext(r.Context(), "failed to render template", "template", name, "error", err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func write(w http.ResponseWriter, status int, body []byte) {
	if status <= 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
