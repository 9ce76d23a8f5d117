package instrumented

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/mock/gomock"

	"inclusao/internal/backend"
	"inclusao/internal/backend/mocks"
	"inclusao/internal/platform/metrics"
	"inclusao/internal/platform/tracing"
	"inclusao/internal/registration/models"
	"inclusao/internal/sentinel"
	id "inclusao/pkg/domain"
	"inclusao/pkg/platform/circuit"
)

type InstrumentedSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	auth     *mocks.MockAuth
	regs     *mocks.MockRegistrations
	admins   *mocks.MockAdmins
	recorder *tracetest.SpanRecorder
	metrics  *metrics.Metrics
	breaker  *circuit.Breaker
	wrapped  backend.Backend
}

func TestInstrumentedSuite(t *testing.T) {
	suite.Run(t, new(InstrumentedSuite))
}

func (s *InstrumentedSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.auth = mocks.NewMockAuth(s.ctrl)
	s.regs = mocks.NewMockRegistrations(s.ctrl)
	s.admins = mocks.NewMockAdmins(s.ctrl)
	s.recorder = tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(s.recorder))
	s.metrics = metrics.NewWith(prometheus.NewRegistry())
	s.breaker = circuit.New("backend", circuit.WithFailureThreshold(2), circuit.WithSuccessThreshold(1))

	s.wrapped = Wrap(backend.Backend{
		Kind:          "memory",
		Auth:          s.auth,
		Registrations: s.regs,
		Admins:        s.admins,
		Health:        func(context.Context) error { return nil },
	}, Options{
		Tracer:  tracing.NewOTel(tracing.WithTracerProvider(tp)),
		Metrics: s.metrics,
		Breaker: s.breaker,
	})
}

func (s *InstrumentedSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *InstrumentedSuite) TestListRecordsSpanAndLatency() {
	s.regs.EXPECT().ListByName(gomock.Any()).Return([]models.Registration{{Name: "Ana"}}, nil)

	list, err := s.wrapped.Registrations.ListByName(context.Background())
	s.Require().NoError(err)
	s.Len(list, 1)

	spans := s.recorder.Ended()
	s.Require().Len(spans, 1)
	s.Equal(tracing.SpanRegistrationLst, spans[0].Name())
	s.Equal(1, testutil.CollectAndCount(s.metrics.BackendLatency, "inclusao_backend_call_seconds"))
}

func (s *InstrumentedSuite) TestRejectedCredentialsDoNotTripBreaker() {
	rejected := backend.NewError("sign_in", "Invalid login credentials", sentinel.ErrUnauthorized)
	s.auth.EXPECT().SignInWithPassword(gomock.Any(), "a@b.c", "x").Return(nil, rejected).Times(3)

	for range 3 {
		_, err := s.wrapped.Auth.SignInWithPassword(context.Background(), "a@b.c", "x")
		s.ErrorIs(err, sentinel.ErrUnauthorized)
	}
	s.False(s.breaker.IsOpen())
	s.NoError(s.wrapped.Health(context.Background()))
}

func (s *InstrumentedSuite) TestUnavailabilityOpensBreakerAndFailsHealth() {
	down := backend.NewError("insert", "não foi possível contactar o servidor", sentinel.ErrUnavailable)
	s.regs.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil, down).Times(2)

	for range 2 {
		_, err := s.wrapped.Registrations.Insert(context.Background(), models.NewRegistration{})
		s.True(errors.Is(err, sentinel.ErrUnavailable))
	}
	s.True(s.breaker.IsOpen())
	s.Error(s.wrapped.Health(context.Background()))

	s.admins.EXPECT().IsAdmin(gomock.Any(), gomock.Any()).Return(true, nil)
	ok, err := s.wrapped.Admins.IsAdmin(context.Background(), id.UserID{})
	s.Require().NoError(err)
	s.True(ok)
	s.False(s.breaker.IsOpen())
}
