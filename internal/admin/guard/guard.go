// Package guard protects the admin routes: requests without a live admin
// session are sent to the login page before any protected content renders.
package guard

import (
	"context"
	"log/slog"
	"net/http"

	"inclusao/internal/backend"
	"inclusao/internal/platform/sessioncookie"
	"inclusao/internal/session"
	id "inclusao/pkg/domain"
	dErrors "inclusao/pkg/domain-errors"
	"inclusao/pkg/platform/httputil"
	"inclusao/pkg/requestcontext"
)

// LoginPath is where unauthenticated requests are redirected.
const LoginPath = "/admin/login"

// Resolver validates a session id against the store and the backend.
type Resolver interface {
	Resolve(ctx context.Context, sessionID id.SessionID) (*session.Session, error)
}

// RequireSession admits requests carrying a live session cookie. The
// session and its access token are attached to the request context.
// A session closed by the expiry watcher is answered by expired, which
// renders the blocking notice.
func RequireSession(resolver Resolver, cookie sessioncookie.Cookie, expired http.Handler, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			raw, ok := cookie.Read(r)
			if !ok {
				http.Redirect(w, r, LoginPath, http.StatusSeeOther)
				return
			}
			sessionID, err := id.ParseSessionID(raw)
			if err != nil {
				logger.WarnContext(ctx, "malformed admin session cookie", "request_id", requestID)
				cookie.Clear(w)
				http.Redirect(w, r, LoginPath, http.StatusSeeOther)
				return
			}

			sess, err := resolver.Resolve(ctx, sessionID)
			if err != nil {
				switch dErrors.CodeOf(err) {
				case dErrors.CodeSessionExpired:
					cookie.Clear(w)
					expired.ServeHTTP(w, r)
				case dErrors.CodeUnauthorized:
					logger.InfoContext(ctx, "admin session rejected", "request_id", requestID, "error", err)
					cookie.Clear(w)
					http.Redirect(w, r, LoginPath, http.StatusSeeOther)
				default:
					logger.ErrorContext(ctx, "failed to resolve admin session", "request_id", requestID, "error", err)
					status := httputil.DomainCodeToHTTPStatus(dErrors.CodeOf(err))
					http.Error(w, http.StatusText(status), status)
				}
				return
			}

			ctx = session.WithContext(ctx, sess)
			ctx = backend.WithAccessToken(ctx, sess.AccessToken)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext returns the session admitted by RequireSession.
func SessionFromContext(ctx context.Context) *session.Session {
	return session.FromContext(ctx)
}
