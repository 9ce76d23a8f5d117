package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"inclusao/internal/platform/clientstore"
	"inclusao/internal/platform/flash"
	"inclusao/internal/registration/models"
	"inclusao/internal/web"
	dErrors "inclusao/pkg/domain-errors"
	"inclusao/pkg/platform/httputil"
	"inclusao/pkg/requestcontext"
)

// User-facing notices.
const (
	MsgSuccess     = "Inscrição realizada com sucesso!"
	msgErrorPrefix = "Erro ao realizar inscrição: "
)

// Service is the registration use case as the handler needs it.
type Service interface {
	Check(form models.Form) (models.Form, models.FieldErrors)
	Submit(ctx context.Context, form models.Form) (*models.Registration, error)
}

// Config carries the page settings.
type Config struct {
	RedirectDelay  time.Duration
	GroupInviteURL string
	DefaultTheme   string
}

// Handler serves the public form, the enrolled-only group page and the theme toggle.
type Handler struct {
	service  Service
	renderer *web.Renderer
	store    clientstore.Store
	flash    flash.Flash
	cfg      Config
	logger   *slog.Logger
}

func New(service Service, renderer *web.Renderer, store clientstore.Store, fl flash.Flash, cfg Config, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		renderer: renderer,
		store:    store,
		flash:    fl,
		cfg:      cfg,
		logger:   logger,
	}
}

// Register registers the public routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/", h.handleForm)
	r.Post("/", h.handleSubmit)
	r.Get("/grupo", h.handleGroup)
	r.Post("/api/inscricoes/validar", h.handleValidate)
	r.Post("/tema", h.handleTheme)
}

type formView struct {
	Form          models.Form
	Errors        map[string]string
	ShowAdminLink bool
}

func newFormView(form models.Form, fieldErrs models.FieldErrors) formView {
	errs := make(map[string]string, len(fieldErrs))
	for field, msg := range fieldErrs {
		errs[string(field)] = msg
	}
	return formView{Form: form, Errors: errs, ShowAdminLink: true}
}

func (h *Handler) handleForm(w http.ResponseWriter, r *http.Request) {
	h.renderer.Page(w, r, web.Page{
		Title: "Inscrição",
		Name:  "registration",
		Data:  newFormView(models.Form{}, nil),
	})
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	form := models.Form{
		FullName: r.PostFormValue(string(models.FieldName)),
		Phone:    r.PostFormValue(string(models.FieldPhone)),
	}

	_, err := h.service.Submit(ctx, form)
	if err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			sanitized, _ := h.service.Check(form)
			h.renderer.Page(w, r, web.Page{
				Title:  "Inscrição",
				Status: http.StatusUnprocessableEntity,
				Name:   "registration",
				Data:   newFormView(sanitized, verr.Fields),
			})
			return
		}

		h.logger.WarnContext(ctx, "registration failed",
			"request_id", requestID,
			"code", string(dErrors.CodeOf(err)),
		)
		notice := flash.Error(msgErrorPrefix + message(err))
		sanitized, _ := h.service.Check(form)
		h.renderer.Page(w, r, web.Page{
			Title:  "Inscrição",
			Status: http.StatusBadGateway,
			Name:   "registration",
			Data:   newFormView(sanitized, nil),
			Notice: &notice,
		})
		return
	}

	clientstore.MarkEnrolled(h.store, w, r)
	notice := flash.Success(MsgSuccess)
	h.renderer.Page(w, r, web.Page{
		Title:         "Inscrição",
		Name:          "registration",
		Data:          newFormView(models.Form{}, nil),
		Notice:        &notice,
		RedirectTo:    "/grupo",
		RedirectAfter: h.cfg.RedirectDelay,
	})
}

func message(err error) string {
	var de *dErrors.Error
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return "erro desconhecido"
}

type groupView struct {
	InviteURL string
}

// handleGroup is reachable only after this browser registered.
func (h *Handler) handleGroup(w http.ResponseWriter, r *http.Request) {
	if !clientstore.IsEnrolled(h.store, r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.renderer.Page(w, r, web.Page{
		Title: "Grupo",
		Name:  "group",
		Data:  groupView{InviteURL: h.cfg.GroupInviteURL},
	})
}

type validateRequest struct {
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
}

type validateResponse struct {
	Phone  string            `json:"phone"`
	Errors map[string]string `json:"errors"`
}

// handleValidate formats and checks the form per keystroke. It never
// reaches the backend.
func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeJSON[validateRequest](w, r, h.logger)
	if !ok {
		return
	}
	form, fieldErrs := h.service.Check(models.Form{FullName: req.FullName, Phone: req.Phone})
	errs := make(map[string]string, len(fieldErrs))
	for field, msg := range fieldErrs {
		errs[string(field)] = msg
	}
	httputil.WriteJSON(w, http.StatusOK, validateResponse{Phone: form.Phone, Errors: errs})
}

// handleTheme flips the stored theme and sends the browser back.
func (h *Handler) handleTheme(w http.ResponseWriter, r *http.Request) {
	next := "dark"
	if clientstore.Theme(h.store, r, h.cfg.DefaultTheme) == "dark" {
		next = "light"
	}
	h.store.Set(w, r, clientstore.KeyTheme, next)
	http.Redirect(w, r, backTarget(r), http.StatusSeeOther)
}

// backTarget keeps redirects on this site: only absolute paths are honoured.
func backTarget(r *http.Request) string {
	candidates := []string{r.PostFormValue("voltar")}
	if ref, err := url.Parse(r.Referer()); err == nil && ref.Host == r.Host {
		candidates = append(candidates, ref.Path)
	}
	for _, c := range candidates {
		if isLocalPath(c) {
			return c
		}
	}
	return "/"
}

// isLocalPath accepts "/x" but not "//host" or "/\host", which browsers
// read as protocol-relative URLs.
func isLocalPath(p string) bool {
	if p == "" || p[0] != '/' {
		return false
	}
	if len(p) > 1 && (p[1] == '/' || p[1] == '\\') {
		return false
	}
	return !strings.ContainsAny(p, "\r\n")
}
