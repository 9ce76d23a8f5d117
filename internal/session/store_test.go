package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inclusao/internal/sentinel"
	id "inclusao/pkg/domain"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	s := &Session{ID: id.NewSessionID(), AccessToken: "tok", LoginAt: t0, Status: StatusActive}

	t.Run("create copies the value", func(t *testing.T) {
		require.NoError(t, store.Create(ctx, s))
		s.Email = "mutated@exemplo.org"
		got, err := store.FindByID(ctx, s.ID)
		require.NoError(t, err)
		assert.Empty(t, got.Email)
	})

	t.Run("update unknown session", func(t *testing.T) {
		err := store.Update(ctx, &Session{ID: id.NewSessionID()})
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("find by access token", func(t *testing.T) {
		got, err := store.FindByAccessToken(ctx, "tok")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, s.ID, got[0].ID)

		none, err := store.FindByAccessToken(ctx, "other")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("delete logged in before cutoff", func(t *testing.T) {
		n, err := store.DeleteLoggedInBefore(ctx, t0)
		require.NoError(t, err)
		assert.Zero(t, n)

		n, err = store.DeleteLoggedInBefore(ctx, t0.Add(time.Second))
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		_, err = store.FindByID(ctx, s.ID)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}

func TestSessionExpiredAt(t *testing.T) {
	s := &Session{LoginAt: t0}
	assert.False(t, s.ExpiredAt(t0.Add(59*time.Minute+59*time.Second), time.Hour))
	assert.True(t, s.ExpiredAt(t0.Add(time.Hour), time.Hour))
	assert.True(t, s.ExpiredAt(t0.Add(3601*time.Second), time.Hour))
}

func TestDeviceLabel(t *testing.T) {
	tests := []struct {
		name string
		ua   string
		want string
	}{
		{"empty", "", "Dispositivo desconhecido"},
		{"desktop chrome", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36", "Chrome em Windows 10"},
		{"firefox linux", "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0", "Firefox em Linux x86_64"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeviceLabel(tt.ua))
		})
	}
}
