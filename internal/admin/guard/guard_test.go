package guard

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inclusao/internal/backend"
	"inclusao/internal/platform/sessioncookie"
	"inclusao/internal/session"
	id "inclusao/pkg/domain"
	dErrors "inclusao/pkg/domain-errors"
)

type stubResolver struct {
	sess *session.Session
	err  error
	seen id.SessionID
}

func (s *stubResolver) Resolve(_ context.Context, sessionID id.SessionID) (*session.Session, error) {
	s.seen = sessionID
	return s.sess, s.err
}

func serve(t *testing.T, resolver Resolver, withCookie string) (*httptest.ResponseRecorder, *http.Request) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	expired := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(session.MsgExpired))
	})

	var reached *http.Request
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = r
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	if withCookie != "" {
		req.AddCookie(&http.Cookie{Name: sessioncookie.Name, Value: withCookie})
	}
	rec := httptest.NewRecorder()
	RequireSession(resolver, sessioncookie.Cookie{}, expired, logger)(next).ServeHTTP(rec, req)
	return rec, reached
}

func TestNoCookieRedirectsToLogin(t *testing.T) {
	resolver := &stubResolver{}
	rec, reached := serve(t, resolver, "")

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, LoginPath, rec.Header().Get("Location"))
	assert.Nil(t, reached)
	assert.True(t, resolver.seen.IsNil())
}

func TestMalformedCookieRedirects(t *testing.T) {
	rec, reached := serve(t, &stubResolver{}, "not-a-uuid")

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Nil(t, reached)
}

func TestLiveSessionReachesHandler(t *testing.T) {
	sess := &session.Session{ID: id.NewSessionID(), AccessToken: "tok", Status: session.StatusActive}
	resolver := &stubResolver{sess: sess}

	rec, reached := serve(t, resolver, sess.ID.String())

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, reached)
	assert.Equal(t, sess.ID, resolver.seen)
	assert.Equal(t, sess, SessionFromContext(reached.Context()))
	assert.Equal(t, "tok", backend.AccessToken(reached.Context()))
}

func TestExpiredSessionShowsNotice(t *testing.T) {
	resolver := &stubResolver{err: dErrors.New(dErrors.CodeSessionExpired, session.MsgExpired)}

	rec, reached := serve(t, resolver, id.NewSessionID().String())

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), session.MsgExpired)
	assert.Nil(t, reached)
	assert.Contains(t, rec.Header().Get("Set-Cookie"), sessioncookie.Name+"=;")
}

func TestRejectedSessionRedirects(t *testing.T) {
	resolver := &stubResolver{err: dErrors.New(dErrors.CodeUnauthorized, "sessão não encontrada")}

	rec, _ := serve(t, resolver, id.NewSessionID().String())

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, LoginPath, rec.Header().Get("Location"))
}

func TestBackendOutageIsNotALogout(t *testing.T) {
	resolver := &stubResolver{err: dErrors.New(dErrors.CodeUnavailable, "fora do ar")}

	rec, reached := serve(t, resolver, id.NewSessionID().String())

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Nil(t, reached)
	assert.Empty(t, rec.Header().Get("Set-Cookie"))
}
