package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"inclusao/internal/platform/schedule"
	"inclusao/internal/session"
	"inclusao/internal/session/mocks"
)

var start = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func TestSweeperStartTicksUntilCancelled(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	clock := schedule.NewManual(start)

	swept := make(chan struct{}, 2)
	store.EXPECT().DeleteLoggedInBefore(gomock.Any(), start.Add(5*time.Minute-2*time.Hour)).
		DoAndReturn(func(context.Context, time.Time) (int, error) {
			swept <- struct{}{}
			return 0, nil
		})
	store.EXPECT().DeleteLoggedInBefore(gomock.Any(), start.Add(10*time.Minute-2*time.Hour)).
		DoAndReturn(func(context.Context, time.Time) (int, error) {
			swept <- struct{}{}
			return 0, errors.New("redis down")
		})

	sw, err := session.NewSweeper(store, time.Hour, session.WithSweepScheduler(clock, clock), session.WithSweepInterval(5*time.Minute))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sw.Start(ctx) }()

	require.Eventually(t, func() bool { return clock.Pending() == 1 }, time.Second, time.Millisecond)
	clock.Advance(10 * time.Minute)
	assert.Len(t, swept, 2)

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, 0, clock.Pending())
}
