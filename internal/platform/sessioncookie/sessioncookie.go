// Package sessioncookie reads and writes the admin session cookie.
package sessioncookie

import (
	"net/http"
	"strings"
)

// Name is the admin session cookie name.
const Name = "pid_sessao"

type Cookie struct {
	Secure bool
}

// Read returns the trimmed session id when present.
func (Cookie) Read(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(Name)
	if err != nil {
		return "", false
	}
	value := strings.TrimSpace(cookie.Value)
	if value == "" {
		return "", false
	}
	return value, true
}

// Write sets a browser-session cookie; the server enforces the real lifetime.
func (c Cookie) Write(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     Name,
		Value:    strings.TrimSpace(sessionID),
		Path:     "/admin",
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c Cookie) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     Name,
		Value:    "",
		Path:     "/admin",
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
