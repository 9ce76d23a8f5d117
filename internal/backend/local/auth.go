// Package local provides an email/password auth provider with the same
// contract as the hosted one, for the self-hosted backends.
package local

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"inclusao/internal/backend"
	"inclusao/internal/sentinel"
	id "inclusao/pkg/domain"
)

// Messages match the hosted provider's so the UI behaves identically.
const (
	msgInvalidCredentials = "Invalid login credentials"
	msgInvalidToken       = "invalid JWT"
	msgRevokedToken       = "session not found"
)

// dummyHash equalizes timing between unknown emails and wrong passwords.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("inclusao-timing-pad"), bcrypt.DefaultCost)

// Auth implements backend.Auth with bcrypt credentials and HS256 tokens.
// Signed-out tokens are revoked until their natural expiry.
type Auth struct {
	creds  CredentialStore
	tokens *tokenService
	events *backend.Broker
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time // jti -> expiry
}

type Option func(*Auth)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Auth) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithClock overrides the time source used for token issue and validation.
func WithClock(now func() time.Time) Option {
	return func(a *Auth) {
		if now != nil {
			a.now = now
		}
	}
}

func NewAuth(creds CredentialStore, signingKey string, ttl time.Duration, opts ...Option) *Auth {
	a := &Auth{
		creds:   creds,
		events:  backend.NewBroker(),
		logger:  slog.Default(),
		now:     time.Now,
		revoked: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.tokens = &tokenService{signingKey: []byte(signingKey), ttl: ttl, now: a.now}
	return a
}

func (a *Auth) SignInWithPassword(ctx context.Context, email, password string) (*backend.Session, error) {
	cred, err := a.creds.FindByEmail(ctx, email)
	if err != nil {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, backend.NewError("sign_in", msgInvalidCredentials, sentinel.ErrUnauthorized)
		}
		return nil, backend.NewError("sign_in", "credential lookup failed", fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err))
	}
	if err := bcrypt.CompareHashAndPassword(cred.PasswordHash, []byte(password)); err != nil {
		return nil, backend.NewError("sign_in", msgInvalidCredentials, sentinel.ErrUnauthorized)
	}

	token, claims, err := a.tokens.issue(cred.UserID.String(), cred.Email)
	if err != nil {
		return nil, backend.NewError("sign_in", "could not issue token", err)
	}
	refresh, err := randomHex(24)
	if err != nil {
		return nil, backend.NewError("sign_in", "could not issue token", err)
	}

	sess := &backend.Session{
		AccessToken:  token,
		RefreshToken: refresh,
		ExpiresAt:    claims.ExpiresAt.Time,
		User:         backend.Identity{ID: cred.UserID, Email: cred.Email},
	}
	a.events.Publish(backend.AuthEvent{Kind: backend.EventSignedIn, UserID: cred.UserID, AccessToken: token, At: a.now()})
	return sess, nil
}

func (a *Auth) SignOut(ctx context.Context, accessToken string) error {
	claims, err := a.tokens.parseAllowExpired(accessToken)
	if err != nil {
		return backend.NewError("sign_out", msgInvalidToken, sentinel.ErrUnauthorized)
	}

	a.mu.Lock()
	a.pruneLocked()
	_, already := a.revoked[claims.ID]
	a.revoked[claims.ID] = claims.ExpiresAt.Time
	a.mu.Unlock()

	if already {
		return nil
	}
	userID, _ := id.ParseUserID(claims.Subject)
	a.events.Publish(backend.AuthEvent{Kind: backend.EventSignedOut, UserID: userID, AccessToken: accessToken, At: a.now()})
	a.logger.DebugContext(ctx, "token revoked", "user_id", claims.Subject)
	return nil
}

func (a *Auth) GetSession(ctx context.Context, accessToken string) (*backend.Session, error) {
	claims, err := a.verify(accessToken)
	if err != nil {
		return nil, backend.NewError("get_session", err.Error(), sentinel.ErrUnauthorized)
	}
	ident, err := a.identity(ctx, claims)
	if err != nil {
		return nil, err
	}
	return &backend.Session{AccessToken: accessToken, ExpiresAt: claims.ExpiresAt.Time, User: *ident}, nil
}

func (a *Auth) GetUser(ctx context.Context, accessToken string) (*backend.Identity, error) {
	claims, err := a.verify(accessToken)
	if err != nil {
		return nil, backend.NewError("get_user", err.Error(), sentinel.ErrUnauthorized)
	}
	return a.identity(ctx, claims)
}

func (a *Auth) Subscribe() *backend.Subscription {
	return a.events.Subscribe()
}

// Close ends every event subscription.
func (a *Auth) Close() {
	a.events.Close()
}

func (a *Auth) verify(token string) (*AccessClaims, error) {
	claims, err := a.tokens.parse(token)
	if err != nil {
		return nil, errors.New(msgInvalidToken)
	}
	a.mu.Lock()
	_, revoked := a.revoked[claims.ID]
	a.mu.Unlock()
	if revoked {
		return nil, errors.New(msgRevokedToken)
	}
	return claims, nil
}

// identity re-reads the credential so deleted users lose access immediately.
func (a *Auth) identity(ctx context.Context, claims *AccessClaims) (*backend.Identity, error) {
	userID, err := id.ParseUserID(claims.Subject)
	if err != nil {
		return nil, backend.NewError("get_user", msgInvalidToken, sentinel.ErrUnauthorized)
	}
	cred, err := a.creds.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, backend.NewError("get_user", "user not found", sentinel.ErrUnauthorized)
		}
		return nil, backend.NewError("get_user", "credential lookup failed", fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err))
	}
	return &backend.Identity{ID: cred.UserID, Email: cred.Email}, nil
}

func (a *Auth) pruneLocked() {
	now := a.now()
	for jti, exp := range a.revoked {
		if now.After(exp) {
			delete(a.revoked, jti)
		}
	}
}

var _ backend.Auth = (*Auth)(nil)
