// Package backend defines the capabilities the application needs from its
// hosted data/auth service. Every other package talks to the backend through
// these interfaces; implementations live in the subpackages.
package backend

import (
	"context"
	"time"

	"inclusao/internal/registration/models"
	id "inclusao/pkg/domain"
)

//go:generate mockgen -source=backend.go -destination=mocks/mocks.go -package=mocks

// Identity is an authenticated user as the backend knows it.
type Identity struct {
	ID    id.UserID
	Email string
}

// Session is a backend-issued authentication session.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	User         Identity
}

// Auth is the authentication capability. Authentication says nothing about
// admin membership; see Admins.
type Auth interface {
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context, accessToken string) error
	GetSession(ctx context.Context, accessToken string) (*Session, error)
	GetUser(ctx context.Context, accessToken string) (*Identity, error)
	// Subscribe opens a stream of auth-state changes. Callers must
	// Unsubscribe when done.
	Subscribe() *Subscription
}

// Registrations is table access for the registrations collection.
type Registrations interface {
	Insert(ctx context.Context, reg models.NewRegistration) (*models.Registration, error)
	// ListByName returns every record ordered by name ascending, using the
	// backend's own collation.
	ListByName(ctx context.Context) ([]models.Registration, error)
	Update(ctx context.Context, id id.RegistrationID, patch models.RegistrationPatch) error
	Delete(ctx context.Context, id id.RegistrationID) error
}

// Admins is the admin-membership allow-list.
type Admins interface {
	IsAdmin(ctx context.Context, userID id.UserID) (bool, error)
}

// Backend bundles the three capabilities plus a readiness probe.
type Backend struct {
	Kind          string
	Auth          Auth
	Registrations Registrations
	Admins        Admins
	Health        func(ctx context.Context) error
	Close         func() error
}

type accessTokenKey struct{}

// WithAccessToken attaches the signed-in admin's token so table calls run
// with that user's privileges.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey{}, token)
}

// AccessToken returns the token set by WithAccessToken, or "".
func AccessToken(ctx context.Context) string {
	v, _ := ctx.Value(accessTokenKey{}).(string)
	return v
}
