package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"inclusao/internal/backend"
	"inclusao/internal/backend/mocks"
	"inclusao/internal/platform/metrics"
	"inclusao/internal/registration/models"
	"inclusao/internal/sentinel"
	id "inclusao/pkg/domain"
	dErrors "inclusao/pkg/domain-errors"
	"inclusao/pkg/validation"
)

type ServiceSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	regs    *mocks.MockRegistrations
	metrics *metrics.Metrics
	service *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.regs = mocks.NewMockRegistrations(s.ctrl)
	s.metrics = metrics.NewWith(prometheus.NewRegistry())
	s.service = New(s.regs, slog.New(slog.NewTextHandler(io.Discard, nil)), WithMetrics(s.metrics))
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ServiceSuite) TestSubmitInsertsSanitizedFormOnce() {
	created := &models.Registration{
		ID:        id.RegistrationID(uuid.New()),
		Name:      "Maria Silva",
		Phone:     "(11) 98765-4321",
		CreatedAt: time.Now(),
	}
	s.regs.EXPECT().
		Insert(gomock.Any(), models.NewRegistration{Name: "Maria Silva", Phone: "(11) 98765-4321"}).
		Return(created, nil).
		Times(1)

	reg, err := s.service.Submit(context.Background(), models.Form{FullName: "  Maria   Silva ", Phone: "11987654321"})

	s.Require().NoError(err)
	s.Equal(created, reg)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.RegistrationsCreated))
}

func (s *ServiceSuite) TestSubmitInvalidFormMakesNoRemoteCall() {
	s.regs.EXPECT().Insert(gomock.Any(), gomock.Any()).Times(0)

	_, err := s.service.Submit(context.Background(), models.Form{FullName: "Al", Phone: "1234"})

	var verr *models.ValidationError
	s.Require().ErrorAs(err, &verr)
	s.Equal(validation.MsgNameTooShort, verr.Fields[models.FieldName])
	s.Equal(validation.MsgPhoneFormat, verr.Fields[models.FieldPhone])
	s.Equal(1.0, testutil.ToFloat64(s.metrics.RegistrationFailures.WithLabelValues(reasonValidation)))
}

func (s *ServiceSuite) TestSubmitBackendFailureCarriesBackendMessage() {
	tests := []struct {
		name   string
		err    error
		code   dErrors.Code
		reason string
		msg    string
	}{
		{
			name:   "duplicate phone",
			err:    backend.NewError("insert", "duplicate key value violates unique constraint", sentinel.ErrAlreadyUsed),
			code:   dErrors.CodeConflict,
			reason: reasonDuplicate,
			msg:    "duplicate key value violates unique constraint",
		},
		{
			name:   "backend down",
			err:    backend.NewError("insert", "Falha de conexão com o servidor", sentinel.ErrUnavailable),
			code:   dErrors.CodeUnavailable,
			reason: reasonBackend,
			msg:    "Falha de conexão com o servidor",
		},
		{
			name:   "unclassified",
			err:    errors.New("boom"),
			code:   dErrors.CodeInternal,
			reason: reasonBackend,
			msg:    msgUnknownFailure,
		},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.regs.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil, tt.err)

			_, err := s.service.Submit(context.Background(), models.Form{FullName: "Maria Silva", Phone: "(11) 98765-4321"})

			s.Require().Error(err)
			s.True(dErrors.HasCode(err, tt.code))
			var de *dErrors.Error
			s.Require().ErrorAs(err, &de)
			s.Equal(tt.msg, de.Message)
			s.GreaterOrEqual(testutil.ToFloat64(s.metrics.RegistrationFailures.WithLabelValues(tt.reason)), 1.0)
		})
	}
}

func (s *ServiceSuite) TestCheckFormatsPhoneWithoutBackend() {
	form, fieldErrs := s.service.Check(models.Form{FullName: "Al", Phone: "11987654321"})

	s.Equal("(11) 98765-4321", form.Phone)
	s.False(fieldErrs.Has(models.FieldPhone))
	s.Equal(validation.MsgNameTooShort, fieldErrs[models.FieldName])
}
