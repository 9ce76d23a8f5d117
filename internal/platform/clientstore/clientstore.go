// Package clientstore holds small per-browser preferences that outlive the
// request: the enrolled flag and the theme. Values are not secrets and
// carry no server-side authority.
package clientstore

import (
	"net/http"
	"sync"
	"time"
)

// Key names one stored value.
type Key string

const (
	// KeyEnrolled is "true" once this browser submitted a registration.
	// The application never clears it.
	KeyEnrolled Key = "inscrito"
	// KeyTheme is "light" or "dark".
	KeyTheme Key = "theme"
)

// Store reads and writes browser-local values for the current request.
type Store interface {
	Get(r *http.Request, key Key) (string, bool)
	Set(w http.ResponseWriter, r *http.Request, key Key, value string)
}

// cookiePrefix namespaces the cookies backing each key.
const cookiePrefix = "pid_"

// longLived mirrors local storage: values survive browser restarts.
const longLived = 400 * 24 * time.Hour

// Cookies stores each key in its own long-lived cookie.
type Cookies struct {
	Secure bool
}

func (c Cookies) Get(r *http.Request, key Key) (string, bool) {
	cookie, err := r.Cookie(cookiePrefix + string(key))
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

func (c Cookies) Set(w http.ResponseWriter, _ *http.Request, key Key, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookiePrefix + string(key),
		Value:    value,
		Path:     "/",
		MaxAge:   int(longLived.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Memory is a single-browser store for tests.
type Memory struct {
	mu     sync.RWMutex
	values map[Key]string
}

func NewMemory() *Memory {
	return &Memory{values: make(map[Key]string)}
}

func (m *Memory) Get(_ *http.Request, key Key) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *Memory) Set(_ http.ResponseWriter, _ *http.Request, key Key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}

// IsEnrolled reports whether the enrolled flag is set for this browser.
func IsEnrolled(s Store, r *http.Request) bool {
	v, ok := s.Get(r, KeyEnrolled)
	return ok && v == "true"
}

func MarkEnrolled(s Store, w http.ResponseWriter, r *http.Request) {
	s.Set(w, r, KeyEnrolled, "true")
}

// Theme returns the stored theme, or fallback when unset or unknown.
func Theme(s Store, r *http.Request, fallback string) string {
	switch v, _ := s.Get(r, KeyTheme); v {
	case "light", "dark":
		return v
	default:
		return fallback
	}
}

var (
	_ Store = Cookies{}
	_ Store = (*Memory)(nil)
)
