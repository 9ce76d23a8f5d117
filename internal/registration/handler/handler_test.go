package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"inclusao/internal/backend"
	"inclusao/internal/backend/mocks"
	"inclusao/internal/platform/clientstore"
	"inclusao/internal/platform/flash"
	"inclusao/internal/registration/models"
	"inclusao/internal/registration/service"
	"inclusao/internal/sentinel"
	"inclusao/internal/web"
	id "inclusao/pkg/domain"
	"inclusao/pkg/validation"
)

type HandlerSuite struct {
	suite.Suite
	ctrl   *gomock.Controller
	regs   *mocks.MockRegistrations
	store  *clientstore.Memory
	router chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.regs = mocks.NewMockRegistrations(s.ctrl)
	s.store = clientstore.NewMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	renderer, err := web.New(flash.Flash{}, s.store)
	s.Require().NoError(err)

	h := New(service.New(s.regs, logger), renderer, s.store, flash.Flash{}, Config{
		RedirectDelay:  3 * time.Second,
		GroupInviteURL: "https://chat.whatsapp.com/convite",
		DefaultTheme:   "light",
	}, logger)
	s.router = chi.NewRouter()
	h.Register(s.router)
}

func (s *HandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *HandlerSuite) postForm(path string, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) get(path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func (s *HandlerSuite) TestFormShowsAdminLink() {
	rec := s.get("/")

	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "Realizar Inscrição")
	s.Contains(rec.Body.String(), `href="/admin/login"`)
}

func (s *HandlerSuite) TestFormIgnoresStaleValidationResponses() {
	body := s.get("/").Body.String()

	s.Contains(body, "var n = ++seq;")
	s.Contains(body, "if (n !== seq) return;")
}

func (s *HandlerSuite) TestSubmitSuccessMarksEnrolledAndRedirectsLater() {
	s.regs.EXPECT().
		Insert(gomock.Any(), models.NewRegistration{Name: "Maria Silva", Phone: "(11) 98765-4321"}).
		Return(&models.Registration{ID: id.RegistrationID(uuid.New()), Name: "Maria Silva", Phone: "(11) 98765-4321"}, nil)

	rec := s.postForm("/", url.Values{"fullName": {"Maria Silva"}, "phone": {"(11) 98765-4321"}})

	s.Equal(http.StatusOK, rec.Code)
	body := rec.Body.String()
	s.Contains(body, MsgSuccess)
	s.Contains(body, `content="3;url=/grupo"`)
	s.NotContains(body, `value="Maria Silva"`)
	v, ok := s.store.Get(nil, clientstore.KeyEnrolled)
	s.True(ok)
	s.Equal("true", v)
}

func (s *HandlerSuite) TestSubmitInvalidRendersInlineErrorsOnly() {
	s.regs.EXPECT().Insert(gomock.Any(), gomock.Any()).Times(0)

	rec := s.postForm("/", url.Values{"fullName": {"Al"}, "phone": {"119"}})

	s.Equal(http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()
	s.Contains(body, validation.MsgNameTooShort)
	s.NotContains(body, `class="toast toast-error"`)
	s.False(clientstore.IsEnrolled(s.store, nil))
}

func (s *HandlerSuite) TestSubmitBackendFailureKeepsForm() {
	s.regs.EXPECT().
		Insert(gomock.Any(), gomock.Any()).
		Return(nil, backend.NewError("insert", "duplicate key value violates unique constraint", sentinel.ErrAlreadyUsed))

	rec := s.postForm("/", url.Values{"fullName": {"Maria Silva"}, "phone": {"11987654321"}})

	s.Equal(http.StatusBadGateway, rec.Code)
	body := rec.Body.String()
	s.Contains(body, "Erro ao realizar inscrição: duplicate key value violates unique constraint")
	s.Contains(body, `value="Maria Silva"`)
	s.Contains(body, `value="(11) 98765-4321"`)
	s.False(clientstore.IsEnrolled(s.store, nil))
}

func (s *HandlerSuite) TestGroupRequiresEnrolledFlag() {
	rec := s.get("/grupo")
	s.Equal(http.StatusSeeOther, rec.Code)
	s.Equal("/", rec.Header().Get("Location"))

	s.store.Set(nil, nil, clientstore.KeyEnrolled, "true")
	rec = s.get("/grupo")
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "https://chat.whatsapp.com/convite")
	s.Contains(rec.Body.String(), "Bem-vindo ao PID!")
}

func (s *HandlerSuite) TestGroupRejectsOtherFlagValues() {
	s.store.Set(nil, nil, clientstore.KeyEnrolled, "yes")
	rec := s.get("/grupo")
	s.Equal(http.StatusSeeOther, rec.Code)
}

func (s *HandlerSuite) TestValidateFormatsPhone() {
	req := httptest.NewRequest(http.MethodPost, "/api/inscricoes/validar",
		strings.NewReader(`{"fullName":"Jo","phone":"11987654321"}`))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	s.Equal(http.StatusOK, rec.Code)
	var res validateResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &res))
	s.Equal("(11) 98765-4321", res.Phone)
	s.Equal(validation.MsgNameTooShort, res.Errors["fullName"])
	s.NotContains(res.Errors, "phone")
}

func (s *HandlerSuite) TestThemeToggle() {
	rec := s.postForm("/tema", url.Values{"voltar": {"/grupo"}})
	s.Equal(http.StatusSeeOther, rec.Code)
	s.Equal("/grupo", rec.Header().Get("Location"))
	s.Equal("dark", clientstore.Theme(s.store, nil, "light"))

	rec = s.postForm("/tema", url.Values{"voltar": {"//evil.example"}})
	s.Equal("/", rec.Header().Get("Location"))
	s.Equal("light", clientstore.Theme(s.store, nil, "light"))
}

func (s *HandlerSuite) TestThemeToggleRejectsExternalTargets() {
	for _, target := range []string{`/\evil.example`, "https://evil.example/", "evil.example", "/a\r\nSet-Cookie: x=1"} {
		rec := s.postForm("/tema", url.Values{"voltar": {target}})
		s.Equal(http.StatusSeeOther, rec.Code, target)
		s.Equal("/", rec.Header().Get("Location"), target)
	}
}
