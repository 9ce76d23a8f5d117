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
	dErrors "inclusao/pkg/domain-errors"
	"inclusao/pkg/platform/audit"
)

// Failure reasons recorded on RegistrationFailures.
const (
	reasonValidation = "validation"
	reasonDuplicate  = "duplicate"
	reasonBackend    = "backend"
)

// msgUnknownFailure is shown when the backend gave no message of its own.
const msgUnknownFailure = "erro desconhecido"

type Option func(*Service)

// Service runs the public sign-up: sanitize, validate locally, insert once.
type Service struct {
	registrations backend.Registrations
	metrics       *metrics.Metrics
	auditor       *audit.Logger
	logger        *slog.Logger
}

func New(registrations backend.Registrations, logger *slog.Logger, opts ...Option) *Service {
	svc := &Service{
		registrations: registrations,
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

// Check sanitizes form and reports its field errors without touching the
// backend. The sanitized form is returned so callers can echo the
// formatted phone.
func (s *Service) Check(form models.Form) (models.Form, models.FieldErrors) {
	form.Sanitize()
	return form, form.Validate()
}

// Submit inserts the registration described by form. Invalid input returns
// *models.ValidationError and never reaches the backend. Backend failures
// are returned as domain errors whose message is the backend's own.
func (s *Service) Submit(ctx context.Context, form models.Form) (*models.Registration, error) {
	form, fieldErrs := s.Check(form)
	if len(fieldErrs) > 0 {
		s.incFailure(reasonValidation)
		return nil, &models.ValidationError{Fields: fieldErrs}
	}

	reg, err := s.registrations.Insert(ctx, form.ToNew())
	if err != nil {
		return nil, s.translate(ctx, err, form)
	}

	if s.metrics != nil {
		s.metrics.RegistrationsCreated.Inc()
	}
	s.logger.InfoContext(ctx, "registration created",
		"registration_id", reg.ID.String(),
		"phone", privacy.MaskPhone(reg.Phone),
	)
	s.auditor.Log(ctx, audit.ActionRegistrationCreated, "subject", reg.ID.String())
	return reg, nil
}

func (s *Service) translate(ctx context.Context, err error, form models.Form) error {
	msg := backend.Message(err, msgUnknownFailure)
	switch {
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		s.incFailure(reasonDuplicate)
		s.logger.WarnContext(ctx, "registration rejected as duplicate", "phone", privacy.MaskPhone(form.Phone))
		return dErrors.Wrap(err, dErrors.CodeConflict, msg)
	case errors.Is(err, sentinel.ErrInvalidInput):
		s.incFailure(reasonValidation)
		s.logger.WarnContext(ctx, "registration rejected by backend", "error", err)
		return dErrors.Wrap(err, dErrors.CodeValidation, msg)
	case errors.Is(err, sentinel.ErrUnavailable):
		s.incFailure(reasonBackend)
		s.logger.ErrorContext(ctx, "backend unavailable for registration", "error", err)
		return dErrors.Wrap(err, dErrors.CodeUnavailable, msg)
	default:
		s.incFailure(reasonBackend)
		s.logger.ErrorContext(ctx, "failed to insert registration", "error", err)
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}

func (s *Service) incFailure(reason string) {
	if s.metrics != nil {
		s.metrics.IncRegistrationFailure(reason)
	}
}
