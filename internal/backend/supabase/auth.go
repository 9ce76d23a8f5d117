package supabase

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/supabase-community/gotrue-go/types"

	"inclusao/internal/backend"
	"inclusao/internal/sentinel"
	id "inclusao/pkg/domain"
)

func identityOf(u types.User) backend.Identity {
	return backend.Identity{ID: id.UserID(u.ID), Email: u.Email}
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*backend.Session, error) {
	resp, err := await(ctx, c.timeout, func() (*types.TokenResponse, error) {
		return c.auth.SignInWithEmailPassword(email, password)
	})
	if err != nil {
		return nil, authError("auth.sign_in", err)
	}

	sess := &backend.Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    c.expiry(resp.Session),
		User:         identityOf(resp.User),
	}
	c.events.Publish(backend.AuthEvent{Kind: backend.EventSignedIn, UserID: sess.User.ID, AccessToken: sess.AccessToken, At: c.now()})
	return sess, nil
}

func (c *Client) expiry(s types.Session) time.Time {
	if s.ExpiresAt > 0 {
		return time.Unix(s.ExpiresAt, 0)
	}
	if s.ExpiresIn > 0 {
		return c.now().Add(time.Duration(s.ExpiresIn) * time.Second)
	}
	if exp, ok := tokenExpiry(s.AccessToken); ok {
		return exp
	}
	return time.Time{}
}

// SignOut revokes the token server-side. A token that is already invalid
// counts as signed out.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	_, err := await(ctx, c.timeout, func() (struct{}, error) {
		return struct{}{}, c.auth.WithToken(accessToken).Logout()
	})
	if err != nil {
		err = authError("auth.sign_out", err)
		if errors.Is(err, sentinel.ErrUnauthorized) || errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return err
	}

	userID := id.UserID{}
	if sub, ok := tokenSubject(accessToken); ok {
		userID = sub
	}
	c.events.Publish(backend.AuthEvent{Kind: backend.EventSignedOut, UserID: userID, AccessToken: accessToken, At: c.now()})
	return nil
}

func (c *Client) GetUser(ctx context.Context, accessToken string) (*backend.Identity, error) {
	if accessToken == "" {
		return nil, backend.NewError("auth.get_user", "invalid JWT", sentinel.ErrUnauthorized)
	}
	resp, err := await(ctx, c.timeout, func() (*types.UserResponse, error) {
		return c.auth.WithToken(accessToken).GetUser()
	})
	if err != nil {
		return nil, authError("auth.get_user", err)
	}
	ident := identityOf(resp.User)
	return &ident, nil
}

// GetSession validates the token with the auth server; the expiry comes from
// the token's own exp claim.
func (c *Client) GetSession(ctx context.Context, accessToken string) (*backend.Session, error) {
	ident, err := c.GetUser(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	exp, _ := tokenExpiry(accessToken)
	return &backend.Session{AccessToken: accessToken, ExpiresAt: exp, User: *ident}, nil
}

func (c *Client) Subscribe() *backend.Subscription {
	return c.events.Subscribe()
}

// The server already verified these tokens; the claims are only read.
func unverifiedClaims(token string) (jwt.MapClaims, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, false
	}
	return claims, true
}

func tokenExpiry(token string) (time.Time, bool) {
	claims, ok := unverifiedClaims(token)
	if !ok {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

func tokenSubject(token string) (id.UserID, bool) {
	claims, ok := unverifiedClaims(token)
	if !ok {
		return id.UserID{}, false
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return id.UserID{}, false
	}
	parsed, err := uuid.Parse(sub)
	if err != nil {
		return id.UserID{}, false
	}
	return id.UserID(parsed), true
}

var _ backend.Auth = (*Client)(nil)
