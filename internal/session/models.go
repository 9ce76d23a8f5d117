// Package session keeps admin sessions, watches them for expiry and reacts
// to sign-out events from the backend.
package session

import (
	"time"

	id "inclusao/pkg/domain"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusSignedOut Status = "signed_out"
)

// Session is an authenticated admin as seen by this application. LoginAt
// is the local sign-in time; backend token expiry is not consulted for the
// hour limit.
type Session struct {
	ID           id.SessionID
	UserID       id.UserID
	Email        string
	AccessToken  string
	RefreshToken string
	Device       string
	LoginAt      time.Time
	Status       Status
}

// ExpiredAt reports whether the session is at least maxAge old at now.
func (s *Session) ExpiredAt(now time.Time, maxAge time.Duration) bool {
	return now.Sub(s.LoginAt) >= maxAge
}

func (s *Session) IsActive() bool {
	return s.Status == StatusActive
}
