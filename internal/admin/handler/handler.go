package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"inclusao/internal/admin/guard"
	"inclusao/internal/platform/flash"
	"inclusao/internal/platform/sessioncookie"
	"inclusao/internal/registration/models"
	"inclusao/internal/session"
	"inclusao/internal/web"
	id "inclusao/pkg/domain"
	dErrors "inclusao/pkg/domain-errors"
	"inclusao/pkg/platform/httputil"
	"inclusao/pkg/requestcontext"
)

// User-facing notices.
const (
	MsgLoginSuccess   = "Login realizado com sucesso!"
	MsgLogoutSuccess  = "Logout realizado com sucesso!"
	MsgLogoutFailed   = "Erro ao fazer logout"
	MsgRefreshSuccess = "Dados atualizados com sucesso!"
	MsgRefreshFailed  = "Erro ao carregar inscrições"
	MsgUpdated        = "Inscrição atualizada com sucesso!"
	MsgDeleted        = "Inscrição excluída com sucesso!"
	MsgDeleteCanceled = "Exclusão cancelada"
	msgSaveFailed     = "Erro ao salvar inscrição: "
	msgDeleteFailed   = "Erro ao excluir inscrição: "
)

const dashboardPath = "/admin"

// Service is the admin use case surface.
type Service interface {
	Login(ctx context.Context, email, password, userAgent string) (*session.Session, error)
	ListRegistrations(ctx context.Context) ([]models.Registration, error)
	FindRegistration(ctx context.Context, regID id.RegistrationID) (*models.Registration, error)
	UpdateRegistration(ctx context.Context, regID id.RegistrationID, form models.EditForm) error
	DeleteRegistration(ctx context.Context, regID id.RegistrationID, confirmed bool) error
}

// Sessions resolves and ends admin sessions.
type Sessions interface {
	guard.Resolver
	SignOut(ctx context.Context, sessionID id.SessionID) error
}

type Handler struct {
	service  Service
	sessions Sessions
	renderer *web.Renderer
	flash    flash.Flash
	cookie   sessioncookie.Cookie
	logger   *slog.Logger
}

func New(service Service, sessions Sessions, renderer *web.Renderer, fl flash.Flash, cookie sessioncookie.Cookie, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		sessions: sessions,
		renderer: renderer,
		flash:    fl,
		cookie:   cookie,
		logger:   logger,
	}
}

// Register registers the login routes and the guarded dashboard routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/admin/login", h.handleLoginForm)
	r.Post("/admin/login", h.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(guard.RequireSession(h.sessions, h.cookie, http.HandlerFunc(h.handleExpired), h.logger))
		r.Get("/admin", h.handleDashboard)
		r.Get("/admin/inscricoes", h.handleRows)
		r.Post("/admin/atualizar", h.handleRefresh)
		r.Get("/admin/inscricoes/{id}/editar", h.handleEditForm)
		r.Post("/admin/inscricoes/{id}", h.handleUpdate)
		r.Get("/admin/inscricoes/{id}/excluir", h.handleConfirmDelete)
		r.Post("/admin/inscricoes/{id}/excluir", h.handleDelete)
		r.Post("/admin/logout", h.handleLogout)
	})
}

type loginView struct {
	Email string
}

func (h *Handler) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	h.renderer.Page(w, r, web.Page{
		Title: "Login Administrativo",
		Name:  "admin_login",
		Data:  loginView{},
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	email := r.PostFormValue("email")

	sess, err := h.service.Login(ctx, email, r.PostFormValue("password"), r.UserAgent())
	if err != nil {
		h.logger.InfoContext(ctx, "admin login rejected", "request_id", requestcontext.RequestID(ctx))
		notice := flash.Error(errorMessage(err))
		h.renderer.Page(w, r, web.Page{
			Title:  "Login Administrativo",
			Status: http.StatusUnauthorized,
			Name:   "admin_login",
			Data:   loginView{Email: email},
			Notice: &notice,
		})
		return
	}

	h.cookie.Write(w, sess.ID.String())
	h.flash.Write(w, flash.Success(MsgLoginSuccess))
	http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
}

type expiredView struct {
	Message string
}

// handleExpired is the blocking notice shown once the watcher closed the session.
func (h *Handler) handleExpired(w http.ResponseWriter, r *http.Request) {
	h.renderer.Page(w, r, web.Page{
		Title:  "Sessão expirada",
		Status: http.StatusUnauthorized,
		Name:   "admin_expired",
		Data:   expiredView{Message: session.MsgExpired},
	})
}

type dashboardView struct {
	Email         string
	Device        string
	Loaded        bool
	Failed        bool
	Registrations []models.Registration
}

// handleDashboard renders the shell with a loading row; the rows arrive
// from handleRows. ?carregar=1 renders them inline for clients without
// scripts.
func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("carregar") != "1" {
		h.renderDashboard(w, r, http.StatusOK, h.dashboardView(r), nil)
		return
	}
	h.renderLoaded(w, r, "")
}

// renderLoaded lists the registrations and renders them inline. A failed
// listing always carries the refresh error notice; success carries
// successMsg when set.
func (h *Handler) renderLoaded(w http.ResponseWriter, r *http.Request, successMsg string) {
	ctx := r.Context()
	view := h.dashboardView(r)
	view.Loaded = true

	list, err := h.service.ListRegistrations(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load registrations", "request_id", requestcontext.RequestID(ctx), "error", err)
		view.Failed = true
		n := flash.Error(MsgRefreshFailed)
		h.renderDashboard(w, r, httputil.DomainCodeToHTTPStatus(dErrors.CodeOf(err)), view, &n)
		return
	}
	view.Registrations = list

	var notice *flash.Notice
	if successMsg != "" {
		n := flash.Success(successMsg)
		notice = &n
	}
	h.renderDashboard(w, r, http.StatusOK, view, notice)
}

func (h *Handler) dashboardView(r *http.Request) dashboardView {
	sess := guard.SessionFromContext(r.Context())
	return dashboardView{Email: sess.Email, Device: sess.Device}
}

func (h *Handler) renderDashboard(w http.ResponseWriter, r *http.Request, status int, view dashboardView, notice *flash.Notice) {
	shell := web.DashboardView{Email: view.Email, Device: view.Device, Loaded: view.Loaded}
	if view.Loaded {
		shell.Rows = h.renderer.Partial("admin_rows", view)
	}
	h.renderer.Page(w, r, web.Page{
		Title:  "Painel Administrativo",
		Status: status,
		Name:   "admin_dashboard",
		Body:   web.Dashboard(shell),
		Notice: notice,
	})
}

func (h *Handler) handleRows(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	list, err := h.service.ListRegistrations(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load registrations", "request_id", requestcontext.RequestID(ctx), "error", err)
		h.renderer.Fragment(w, r, httputil.DomainCodeToHTTPStatus(dErrors.CodeOf(err)), "admin_rows", dashboardView{Failed: true})
		return
	}
	h.renderer.Fragment(w, r, http.StatusOK, "admin_rows", dashboardView{Loaded: true, Registrations: list})
}

// handleRefresh re-lists and renders the result it fetched, so the notice
// always describes the rows on screen.
func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	h.renderLoaded(w, r, MsgRefreshSuccess)
}

type editView struct {
	ID     id.RegistrationID
	Name   string
	Phone  string
	Errors map[string]string
}

func (h *Handler) handleEditForm(w http.ResponseWriter, r *http.Request) {
	reg, ok := h.loadRegistration(w, r)
	if !ok {
		return
	}
	h.renderer.Page(w, r, web.Page{
		Title: "Editar inscrição",
		Name:  "admin_edit",
		Data:  editView{ID: reg.ID, Name: reg.Name, Phone: reg.Phone},
	})
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	regID, ok := h.registrationID(w, r)
	if !ok {
		return
	}
	form := models.EditForm{
		Name:  r.PostFormValue(string(models.FieldName)),
		Phone: r.PostFormValue(string(models.FieldPhone)),
	}

	err := h.service.UpdateRegistration(ctx, regID, form)
	var verr *models.ValidationError
	switch {
	case err == nil:
		h.flash.Write(w, flash.Success(MsgUpdated))
		http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
	case errors.As(err, &verr):
		form.Sanitize()
		errs := make(map[string]string, len(verr.Fields))
		for field, msg := range verr.Fields {
			errs[string(field)] = msg
		}
		h.renderer.Page(w, r, web.Page{
			Title:  "Editar inscrição",
			Status: http.StatusUnprocessableEntity,
			Name:   "admin_edit",
			Data:   editView{ID: regID, Name: form.Name, Phone: form.Phone, Errors: errs},
		})
	default:
		h.flash.Write(w, flash.Error(msgSaveFailed+errorMessage(err)))
		http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
	}
}

func (h *Handler) handleConfirmDelete(w http.ResponseWriter, r *http.Request) {
	reg, ok := h.loadRegistration(w, r)
	if !ok {
		return
	}
	h.renderer.Page(w, r, web.Page{
		Title: "Excluir inscrição",
		Name:  "admin_confirm",
		Data:  reg,
	})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	regID, ok := h.registrationID(w, r)
	if !ok {
		return
	}
	confirmed := r.PostFormValue("confirmar") == "sim"

	err := h.service.DeleteRegistration(ctx, regID, confirmed)
	switch {
	case err == nil:
		h.flash.Write(w, flash.Success(MsgDeleted))
	case !confirmed:
		h.flash.Write(w, flash.Info(MsgDeleteCanceled))
	default:
		h.flash.Write(w, flash.Error(msgDeleteFailed+errorMessage(err)))
	}
	http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := guard.SessionFromContext(ctx)
	if err := h.sessions.SignOut(ctx, sess.ID); err != nil {
		h.logger.ErrorContext(ctx, "failed to sign out", "request_id", requestcontext.RequestID(ctx), "error", err)
		h.flash.Write(w, flash.Error(MsgLogoutFailed))
		http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
		return
	}
	h.cookie.Clear(w)
	h.flash.Write(w, flash.Success(MsgLogoutSuccess))
	http.Redirect(w, r, guard.LoginPath, http.StatusSeeOther)
}

func (h *Handler) registrationID(w http.ResponseWriter, r *http.Request) (id.RegistrationID, bool) {
	regID, err := id.ParseRegistrationID(chi.URLParam(r, "id"))
	if err != nil {
		http.NotFound(w, r)
		return id.RegistrationID{}, false
	}
	return regID, true
}

func (h *Handler) loadRegistration(w http.ResponseWriter, r *http.Request) (*models.Registration, bool) {
	regID, ok := h.registrationID(w, r)
	if !ok {
		return nil, false
	}
	reg, err := h.service.FindRegistration(r.Context(), regID)
	if err != nil {
		h.flash.Write(w, flash.Error(errorMessage(err)))
		http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
		return nil, false
	}
	return reg, true
}

func errorMessage(err error) string {
	var de *dErrors.Error
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return "erro desconhecido"
}
