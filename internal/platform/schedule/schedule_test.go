package schedule

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestManualFiresOnEveryInterval(t *testing.T) {
	m := NewManual(epoch)
	var ticks []time.Time
	m.Every(time.Minute, func(now time.Time) bool {
		ticks = append(ticks, now)
		return true
	})

	m.Advance(59 * time.Second)
	assert.Empty(t, ticks)

	m.Advance(2*time.Minute + time.Second)
	require.Len(t, ticks, 3)
	assert.Equal(t, epoch.Add(time.Minute), ticks[0])
	assert.Equal(t, epoch.Add(3*time.Minute), ticks[2])
	assert.Equal(t, epoch.Add(3*time.Minute), m.Now())
}

func TestManualStopsWhenTickReturnsFalse(t *testing.T) {
	m := NewManual(epoch)
	calls := 0
	task := m.Every(time.Second, func(time.Time) bool {
		calls++
		return calls < 2
	})

	m.Advance(10 * time.Second)

	assert.Equal(t, 2, calls)
	assert.Zero(t, m.Pending())
	select {
	case <-task.Done():
	default:
		t.Fatal("Done not closed after task stopped itself")
	}
}

func TestManualCancelIsIdempotent(t *testing.T) {
	m := NewManual(epoch)
	calls := 0
	task := m.Every(time.Second, func(time.Time) bool { calls++; return true })

	task.Cancel()
	task.Cancel()
	m.Advance(5 * time.Second)

	assert.Zero(t, calls)
	assert.Zero(t, m.Pending())
}

func TestManualCancelFromInsideTick(t *testing.T) {
	m := NewManual(epoch)
	var task Task
	calls := 0
	task = m.Every(time.Second, func(time.Time) bool {
		calls++
		task.Cancel()
		return true
	})

	m.Advance(3 * time.Second)
	assert.Equal(t, 1, calls)
}

func TestTickerRunsAndCancels(t *testing.T) {
	var calls atomic.Int32
	task := NewTicker(nil).Every(5*time.Millisecond, func(time.Time) bool {
		calls.Add(1)
		return true
	})

	require.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, time.Millisecond)
	task.Cancel()

	select {
	case <-task.Done():
	case <-time.After(time.Second):
		t.Fatal("task goroutine did not exit after Cancel")
	}
	stopped := calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, calls.Load())
}

func TestTickerStopsWhenTickReturnsFalse(t *testing.T) {
	task := NewTicker(SystemClock{}).Every(time.Millisecond, func(time.Time) bool { return false })

	select {
	case <-task.Done():
	case <-time.After(time.Second):
		t.Fatal("task did not stop itself")
	}
}
