package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inclusao/internal/platform/schedule"
	id "inclusao/pkg/domain"
)

func TestSweeperRunOnce(t *testing.T) {
	ctx := context.Background()
	clock := schedule.NewManual(t0)
	store := NewMemoryStore()

	old := &Session{ID: id.NewSessionID(), LoginAt: t0.Add(-3 * time.Hour), Status: StatusExpired}
	recent := &Session{ID: id.NewSessionID(), LoginAt: t0.Add(-90 * time.Minute), Status: StatusExpired}
	require.NoError(t, store.Create(ctx, old))
	require.NoError(t, store.Create(ctx, recent))

	sw, err := NewSweeper(store, time.Hour, WithSweepScheduler(clock, clock))
	require.NoError(t, err)

	n, err := sw.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = store.FindByID(ctx, recent.ID)
	assert.NoError(t, err, "expired sessions stay for one more max age")
}

func TestNewSweeperRequiresStore(t *testing.T) {
	_, err := NewSweeper(nil, time.Hour)
	assert.Error(t, err)
}
