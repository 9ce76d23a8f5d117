// Package service implements the admin use cases: the two-phase login and
// the dashboard operations on registrations.
package service

import (
	"context"
	"errors"
	"log/slog"

	"inclusao/internal/backend"
	"inclusao/internal/platform/metrics"
	"inclusao/internal/platform/privacy"
	"inclusao/internal/registration/models"
	"inclusao/internal/sentinel"
	"inclusao/internal/session"
	id "inclusao/pkg/domain"
	dErrors "inclusao/pkg/domain-errors"
	"inclusao/pkg/platform/audit"
	limits "inclusao/pkg/platform/validation"
	str "inclusao/pkg/string"
	"inclusao/pkg/validation"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

// User-facing messages.
const (
	MsgLoginFailed     = "Erro ao fazer login. Verifique suas credenciais ou permissões."
	MsgConfirmRequired = "confirmação obrigatória"
	MsgNotFound        = "Inscrição não encontrada"
	msgUnknownFailure  = "erro desconhecido"
	msgListFailed      = "Erro ao carregar inscrições"
)

// Sessions starts the local admin session after a successful login.
type Sessions interface {
	Start(ctx context.Context, bs *backend.Session, userAgent string) (*session.Session, error)
}

type Option func(*Service)

type Service struct {
	auth          backend.Auth
	admins        backend.Admins
	registrations backend.Registrations
	sessions      Sessions
	metrics       *metrics.Metrics
	auditor       *audit.Logger
	logger        *slog.Logger
}

func New(b backend.Backend, sessions Sessions, logger *slog.Logger, opts ...Option) *Service {
	svc := &Service{
		auth:          b.Auth,
		admins:        b.Admins,
		registrations: b.Registrations,
		sessions:      sessions,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	return svc
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditor(a *audit.Logger) Option {
	return func(s *Service) {
		s.auditor = a
	}
}

// Login authenticates, then checks admin membership. Both phases are
// separate backend calls; a user that authenticates but is not an admin
// is signed out again. Every failure is reported as the same
// CodeAccessDenied error so callers cannot tell the phases apart.
func (s *Service) Login(ctx context.Context, email, password, userAgent string) (*session.Session, error) {
	str.TrimStrings(&email)
	maskedEmail := privacy.MaskEmail(email)

	// Malformed or oversized input never reaches the backend's bcrypt.
	if err := checkCredentials(email, password); err != nil {
		return nil, s.denyLogin(ctx, "validate", metrics.LoginInvalidCreds, maskedEmail, err)
	}

	bs, err := s.auth.SignInWithPassword(ctx, email, password)
	if err != nil {
		result := metrics.LoginInvalidCreds
		if errors.Is(err, sentinel.ErrUnavailable) {
			result = metrics.LoginBackendFailed
		}
		return nil, s.denyLogin(ctx, "authenticate", result, maskedEmail, err)
	}

	user, err := s.auth.GetUser(ctx, bs.AccessToken)
	if err != nil {
		s.revoke(ctx, bs.AccessToken)
		return nil, s.denyLogin(ctx, "get_user", metrics.LoginBackendFailed, maskedEmail, err)
	}
	bs.User = *user

	isAdmin, err := s.admins.IsAdmin(backend.WithAccessToken(ctx, bs.AccessToken), user.ID)
	if err != nil || !isAdmin {
		s.revoke(ctx, bs.AccessToken)
		if err == nil {
			err = errors.New("user is not in the admins table")
		}
		s.auditor.Log(ctx, audit.ActionAdminLoginDenied, "user_id", user.ID.String())
		return nil, s.denyLogin(ctx, "authorize", metrics.LoginNotAdmin, maskedEmail, err)
	}

	sess, err := s.sessions.Start(ctx, bs, userAgent)
	if err != nil {
		s.revoke(ctx, bs.AccessToken)
		return nil, s.denyLogin(ctx, "start_session", metrics.LoginBackendFailed, maskedEmail, err)
	}

	s.incLogin(metrics.LoginSuccess)
	s.logger.InfoContext(ctx, "admin logged in", "user_id", user.ID.String(), "email", maskedEmail)
	s.auditor.Log(ctx, audit.ActionAdminLogin, "user_id", user.ID.String(), "subject", sess.ID.String())
	return sess, nil
}

type credentials struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"notblank"`
}

func checkCredentials(email, password string) error {
	if err := limits.CheckAll(
		limits.Limit{Field: "e-mail", Value: email, Max: limits.MaxEmailLength},
		limits.Limit{Field: "senha", Value: password, Max: limits.MaxPasswordLength},
	); err != nil {
		return err
	}
	return validation.Validate(credentials{Email: email, Password: password})
}

func (s *Service) denyLogin(ctx context.Context, phase, result, email string, err error) error {
	s.incLogin(result)
	s.logger.WarnContext(ctx, "admin login failed", "phase", phase, "email", email, "error", err)
	return dErrors.Wrap(err, dErrors.CodeAccessDenied, MsgLoginFailed)
}

// revoke ends a backend session created during a login that did not
// complete. Failures are only logged.
func (s *Service) revoke(ctx context.Context, accessToken string) {
	if err := s.auth.SignOut(ctx, accessToken); err != nil {
		s.logger.WarnContext(ctx, "failed to sign out rejected login", "error", err)
	}
}

func (s *Service) incLogin(result string) {
	if s.metrics != nil {
		s.metrics.IncAdminLogin(result)
	}
}

// ListRegistrations returns every registration in the backend's name order.
func (s *Service) ListRegistrations(ctx context.Context) ([]models.Registration, error) {
	list, err := s.registrations.ListByName(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list registrations", "error", err)
		return nil, s.translate(err, msgListFailed)
	}
	return list, nil
}

// UpdateRegistration validates the edit with the same rules as the public
// form before saving. Invalid input returns *models.ValidationError.
func (s *Service) UpdateRegistration(ctx context.Context, regID id.RegistrationID, form models.EditForm) error {
	form.Sanitize()
	check := models.Form{FullName: form.Name, Phone: form.Phone}
	if fieldErrs := check.Validate(); len(fieldErrs) > 0 {
		return &models.ValidationError{Fields: fieldErrs}
	}

	if err := s.registrations.Update(ctx, regID, form.ToPatch()); err != nil {
		s.logger.WarnContext(ctx, "failed to update registration", "registration_id", regID.String(), "error", err)
		return s.translate(err, msgUnknownFailure)
	}
	if s.metrics != nil {
		s.metrics.RegistrationsUpdated.Inc()
	}
	s.auditor.Log(ctx, audit.ActionRegistrationUpdated, "user_id", actor(ctx), "subject", regID.String())
	return nil
}

// DeleteRegistration removes a registration. Without confirmation nothing
// is sent to the backend.
func (s *Service) DeleteRegistration(ctx context.Context, regID id.RegistrationID, confirmed bool) error {
	if !confirmed {
		return dErrors.New(dErrors.CodeBadRequest, MsgConfirmRequired)
	}
	if err := s.registrations.Delete(ctx, regID); err != nil {
		s.logger.WarnContext(ctx, "failed to delete registration", "registration_id", regID.String(), "error", err)
		return s.translate(err, msgUnknownFailure)
	}
	if s.metrics != nil {
		s.metrics.RegistrationsDeleted.Inc()
	}
	s.auditor.Log(ctx, audit.ActionRegistrationDeleted, "user_id", actor(ctx), "subject", regID.String())
	return nil
}

// FindRegistration looks a record up in the listing; the backend has no
// single-row read.
func (s *Service) FindRegistration(ctx context.Context, regID id.RegistrationID) (*models.Registration, error) {
	list, err := s.ListRegistrations(ctx)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].ID == regID {
			return &list[i], nil
		}
	}
	return nil, dErrors.New(dErrors.CodeNotFound, MsgNotFound)
}

func (s *Service) translate(err error, fallback string) error {
	msg := backend.Message(err, fallback)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, MsgNotFound)
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.Wrap(err, dErrors.CodeConflict, msg)
	case errors.Is(err, sentinel.ErrInvalidInput):
		return dErrors.Wrap(err, dErrors.CodeValidation, msg)
	case errors.Is(err, sentinel.ErrUnauthorized):
		return dErrors.Wrap(err, dErrors.CodeUnauthorized, msg)
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, msg)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}

func actor(ctx context.Context) string {
	if sess := session.FromContext(ctx); sess != nil {
		return sess.UserID.String()
	}
	return ""
}
