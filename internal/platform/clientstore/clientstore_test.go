package clientstore

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCookiesRoundTrip(t *testing.T) {
	store := Cookies{}
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)

	assert.False(t, IsEnrolled(store, req))
	MarkEnrolled(store, rr, req)

	cookie, err := http.ParseSetCookie(rr.Header().Get("Set-Cookie"))
	require.NoError(t, err)
	assert.Equal(t, "pid_inscrito", cookie.Name)
	assert.Positive(t, cookie.MaxAge)

	next := httptest.NewRequest(http.MethodGet, "/grupo", nil)
	next.AddCookie(cookie)
	assert.True(t, IsEnrolled(store, next))
}

func TestEnrolledRequiresExactTrue(t *testing.T) {
	store := NewMemory()
	store.Set(nil, nil, KeyEnrolled, "yes")
	assert.False(t, IsEnrolled(store, nil))
	store.Set(nil, nil, KeyEnrolled, "true")
	assert.True(t, IsEnrolled(store, nil))
}

func TestThemeFallback(t *testing.T) {
	store := NewMemory()
	assert.Equal(t, "light", Theme(store, nil, "light"))
	store.Set(nil, nil, KeyTheme, "dark")
	assert.Equal(t, "dark", Theme(store, nil, "light"))
	store.Set(nil, nil, KeyTheme, "neon")
	assert.Equal(t, "light", Theme(store, nil, "light"))
}
