package local

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"inclusao/internal/backend"
	"inclusao/internal/sentinel"
)

type AuthSuite struct {
	suite.Suite
	ctx   context.Context
	now   time.Time
	creds *MemoryCredentials
	auth  *Auth
	cred  *Credential
}

func TestAuthSuite(t *testing.T) {
	suite.Run(t, new(AuthSuite))
}

func (s *AuthSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.creds = NewMemoryCredentials()

	cred, err := NewCredential(" Admin@Exemplo.org ", "s3nha-forte")
	s.Require().NoError(err)
	s.Require().NoError(s.creds.Save(s.ctx, cred))
	s.cred = cred

	s.auth = NewAuth(s.creds, "test-signing-key", time.Hour, WithClock(func() time.Time { return s.now }))
}

func (s *AuthSuite) TestSignInIssuesVerifiableToken() {
	sess, err := s.auth.SignInWithPassword(s.ctx, "admin@exemplo.org", "s3nha-forte")
	s.Require().NoError(err)
	s.Equal(s.cred.UserID, sess.User.ID)
	s.Equal("admin@exemplo.org", sess.User.Email)
	s.Equal(s.now.Add(time.Hour), sess.ExpiresAt)
	s.NotEmpty(sess.RefreshToken)

	ident, err := s.auth.GetUser(s.ctx, sess.AccessToken)
	s.Require().NoError(err)
	s.Equal(s.cred.UserID, ident.ID)

	got, err := s.auth.GetSession(s.ctx, sess.AccessToken)
	s.Require().NoError(err)
	s.Equal(sess.AccessToken, got.AccessToken)
}

func (s *AuthSuite) TestSignInRejectsBadCredentials() {
	for _, tc := range []struct{ email, password string }{
		{"admin@exemplo.org", "errada"},
		{"ninguem@exemplo.org", "s3nha-forte"},
	} {
		_, err := s.auth.SignInWithPassword(s.ctx, tc.email, tc.password)
		s.Require().Error(err)
		s.True(errors.Is(err, sentinel.ErrUnauthorized))
		s.Equal(msgInvalidCredentials, backend.Message(err, ""))
	}
}

func (s *AuthSuite) TestExpiredTokenIsRejected() {
	sess, err := s.auth.SignInWithPassword(s.ctx, "admin@exemplo.org", "s3nha-forte")
	s.Require().NoError(err)

	s.now = s.now.Add(time.Hour + time.Second)

	_, err = s.auth.GetUser(s.ctx, sess.AccessToken)
	s.ErrorIs(err, sentinel.ErrUnauthorized)
	s.NoError(s.auth.SignOut(s.ctx, sess.AccessToken), "sign-out accepts expired tokens")
}

func (s *AuthSuite) TestSignOutRevokesAndPublishes() {
	sub := s.auth.Subscribe()
	defer sub.Unsubscribe()

	sess, err := s.auth.SignInWithPassword(s.ctx, "admin@exemplo.org", "s3nha-forte")
	s.Require().NoError(err)
	s.Equal(backend.EventSignedIn, (<-sub.Events()).Kind)

	s.Require().NoError(s.auth.SignOut(s.ctx, sess.AccessToken))
	ev := <-sub.Events()
	s.Equal(backend.EventSignedOut, ev.Kind)
	s.Equal(s.cred.UserID, ev.UserID)

	_, err = s.auth.GetSession(s.ctx, sess.AccessToken)
	s.ErrorIs(err, sentinel.ErrUnauthorized)

	s.Require().NoError(s.auth.SignOut(s.ctx, sess.AccessToken))
	s.Empty(sub.Events(), "second sign-out publishes nothing")
}

func (s *AuthSuite) TestForeignTokenIsRejected() {
	other := NewAuth(s.creds, "another-key", time.Hour, WithClock(func() time.Time { return s.now }))
	sess, err := other.SignInWithPassword(s.ctx, "admin@exemplo.org", "s3nha-forte")
	s.Require().NoError(err)

	_, err = s.auth.GetUser(s.ctx, sess.AccessToken)
	s.ErrorIs(err, sentinel.ErrUnauthorized)
	s.ErrorIs(s.auth.SignOut(s.ctx, "garbage"), sentinel.ErrUnauthorized)
}
