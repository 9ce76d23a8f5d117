package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

type DomainErrorsSuite struct {
	suite.Suite
}

func TestDomainErrorsSuite(t *testing.T) {
	suite.Run(t, new(DomainErrorsSuite))
}

func (s *DomainErrorsSuite) TestErrorString() {
	s.Run("message wins over code", func() {
		err := &Error{Code: CodeNotFound, Message: "inscrição não encontrada"}
		s.Equal("inscrição não encontrada", err.Error())
	})

	s.Run("falls back to code", func() {
		s.Equal("access_denied", (&Error{Code: CodeAccessDenied}).Error())
	})
}

func (s *DomainErrorsSuite) TestIsMatchesByCode() {
	denied := New(CodeAccessDenied, "Erro ao fazer login. Verifique suas credenciais ou permissões.")

	s.True(errors.Is(denied, &Error{Code: CodeAccessDenied}))
	s.False(errors.Is(denied, &Error{Code: CodeUnauthorized}))
	s.False(errors.Is(denied, errors.New("access_denied")))
}

func (s *DomainErrorsSuite) TestWrap() {
	s.Run("keeps the inner domain code", func() {
		inner := New(CodeSessionExpired, "sessão expirada")
		wrapped := Wrap(inner, CodeInternal, "falha ao carregar sessão")

		s.True(HasCode(wrapped, CodeSessionExpired))
		s.Equal("falha ao carregar sessão", wrapped.Error())
	})

	s.Run("uses the given code for plain errors", func() {
		cause := errors.New("connection refused")
		wrapped := Wrap(fmt.Errorf("insert: %w", cause), CodeUnavailable, "serviço indisponível")

		s.True(HasCode(wrapped, CodeUnavailable))
		s.ErrorIs(wrapped, cause)
	})
}

func (s *DomainErrorsSuite) TestCodeOf() {
	s.Equal(CodeConflict, CodeOf(fmt.Errorf("ctx: %w", New(CodeConflict, "duplicada"))))
	s.Equal(CodeInternal, CodeOf(errors.New("plain")))
	s.Equal(CodeInternal, CodeOf(nil))
	s.False(HasCode(nil, CodeNotFound))
}
