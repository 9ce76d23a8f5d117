// Package instrumented decorates a backend with tracing spans, latency
// metrics and a circuit breaker that feeds readiness.
package instrumented

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"inclusao/internal/backend"
	"inclusao/internal/platform/metrics"
	"inclusao/internal/platform/tracing"
	"inclusao/internal/registration/models"
	"inclusao/internal/sentinel"
	id "inclusao/pkg/domain"
	"inclusao/pkg/platform/circuit"
)

type Options struct {
	Tracer  tracing.Tracer
	Metrics *metrics.Metrics
	Breaker *circuit.Breaker
	Logger  *slog.Logger
}

type observer struct {
	kind    string
	tracer  tracing.Tracer
	metrics *metrics.Metrics
	breaker *circuit.Breaker
	logger  *slog.Logger
}

// Wrap returns b with every capability instrumented. Health additionally
// fails while the breaker is open.
func Wrap(b backend.Backend, opts Options) backend.Backend {
	o := &observer{
		kind:    b.Kind,
		tracer:  opts.Tracer,
		metrics: opts.Metrics,
		breaker: opts.Breaker,
		logger:  opts.Logger,
	}
	if o.tracer == nil {
		o.tracer = tracing.NewNoop()
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	out := b
	out.Auth = &auth{next: b.Auth, o: o}
	out.Registrations = &registrations{next: b.Registrations, o: o}
	out.Admins = &admins{next: b.Admins, o: o}
	health := b.Health
	out.Health = func(ctx context.Context) error {
		if o.breaker != nil && o.breaker.IsOpen() {
			return fmt.Errorf("backend %s: circuit %s is open", o.kind, o.breaker.Name())
		}
		if health == nil {
			return nil
		}
		return health(ctx)
	}
	return out
}

// call runs fn inside a span and records latency and breaker state. Only
// unavailability counts against the breaker; rejected credentials and
// constraint errors mean the backend is healthy.
func (o *observer) call(ctx context.Context, span, operation string, fn func(ctx context.Context, sp tracing.Span) error) error {
	ctx, sp := o.tracer.Start(ctx, span, tracing.String(tracing.AttrBackend, o.kind))
	start := time.Now()
	err := fn(ctx, sp)
	elapsed := time.Since(start)

	if o.metrics != nil {
		o.metrics.ObserveBackendCall(operation, elapsed.Seconds())
	}
	if o.breaker != nil {
		var change circuit.StateChange
		if errors.Is(err, sentinel.ErrUnavailable) {
			change = o.breaker.RecordFailure()
		} else {
			change = o.breaker.RecordSuccess()
		}
		switch {
		case change.Opened:
			o.logger.WarnContext(ctx, "backend circuit opened", "backend", o.kind, "operation", operation, "error", err)
		case change.Closed:
			o.logger.InfoContext(ctx, "backend circuit closed", "backend", o.kind)
		}
	}
	sp.SetAttributes(tracing.Duration("duration_ms", elapsed))
	sp.End(err)
	return err
}

type auth struct {
	next backend.Auth
	o    *observer
}

func (a *auth) SignInWithPassword(ctx context.Context, email, password string) (*backend.Session, error) {
	var sess *backend.Session
	err := a.o.call(ctx, tracing.SpanAuthSignIn, "auth.sign_in", func(ctx context.Context, _ tracing.Span) error {
		var err error
		sess, err = a.next.SignInWithPassword(ctx, email, password)
		return err
	})
	return sess, err
}

func (a *auth) SignOut(ctx context.Context, accessToken string) error {
	return a.o.call(ctx, tracing.SpanAuthSignOut, "auth.sign_out", func(ctx context.Context, _ tracing.Span) error {
		return a.next.SignOut(ctx, accessToken)
	})
}

func (a *auth) GetSession(ctx context.Context, accessToken string) (*backend.Session, error) {
	var sess *backend.Session
	err := a.o.call(ctx, tracing.SpanAuthGetSession, "auth.get_session", func(ctx context.Context, _ tracing.Span) error {
		var err error
		sess, err = a.next.GetSession(ctx, accessToken)
		return err
	})
	return sess, err
}

func (a *auth) GetUser(ctx context.Context, accessToken string) (*backend.Identity, error) {
	var ident *backend.Identity
	err := a.o.call(ctx, tracing.SpanAuthGetUser, "auth.get_user", func(ctx context.Context, _ tracing.Span) error {
		var err error
		ident, err = a.next.GetUser(ctx, accessToken)
		return err
	})
	return ident, err
}

func (a *auth) Subscribe() *backend.Subscription {
	return a.next.Subscribe()
}

type registrations struct {
	next backend.Registrations
	o    *observer
}

func (r *registrations) Insert(ctx context.Context, reg models.NewRegistration) (*models.Registration, error) {
	var rec *models.Registration
	err := r.o.call(ctx, tracing.SpanRegistrationIns, "registrations.insert", func(ctx context.Context, _ tracing.Span) error {
		var err error
		rec, err = r.next.Insert(ctx, reg)
		return err
	})
	return rec, err
}

func (r *registrations) ListByName(ctx context.Context) ([]models.Registration, error) {
	var list []models.Registration
	err := r.o.call(ctx, tracing.SpanRegistrationLst, "registrations.list", func(ctx context.Context, sp tracing.Span) error {
		var err error
		list, err = r.next.ListByName(ctx)
		sp.SetAttributes(tracing.Int(tracing.AttrRowCount, len(list)))
		return err
	})
	return list, err
}

func (r *registrations) Update(ctx context.Context, regID id.RegistrationID, patch models.RegistrationPatch) error {
	return r.o.call(ctx, tracing.SpanRegistrationUpd, "registrations.update", func(ctx context.Context, _ tracing.Span) error {
		return r.next.Update(ctx, regID, patch)
	})
}

func (r *registrations) Delete(ctx context.Context, regID id.RegistrationID) error {
	return r.o.call(ctx, tracing.SpanRegistrationDel, "registrations.delete", func(ctx context.Context, _ tracing.Span) error {
		return r.next.Delete(ctx, regID)
	})
}

type admins struct {
	next backend.Admins
	o    *observer
}

func (a *admins) IsAdmin(ctx context.Context, userID id.UserID) (bool, error) {
	var ok bool
	err := a.o.call(ctx, tracing.SpanAdminLookup, "admins.lookup", func(ctx context.Context, sp tracing.Span) error {
		var err error
		ok, err = a.next.IsAdmin(ctx, userID)
		sp.SetAttributes(tracing.Bool(tracing.AttrIsAdmin, ok))
		return err
	})
	return ok, err
}
