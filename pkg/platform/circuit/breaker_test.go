package circuit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	b := New("backend", WithFailureThreshold(3), WithSuccessThreshold(2))

	assert.Equal(t, StateChange{}, b.RecordFailure())
	assert.Equal(t, StateChange{}, b.RecordFailure())
	assert.Equal(t, StateChange{Opened: true}, b.RecordFailure())
	assert.True(t, b.IsOpen())
	assert.Equal(t, "open", b.State().String())

	assert.Equal(t, StateChange{}, b.RecordFailure(), "already open")
}

func TestBreakerSuccessResetsFailureStreak(t *testing.T) {
	b := New("backend", WithFailureThreshold(2))

	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	assert.False(t, b.IsOpen())
}

func TestBreakerClosesAfterSuccesses(t *testing.T) {
	b := New("backend", WithFailureThreshold(1), WithSuccessThreshold(2))
	b.RecordFailure()

	assert.Equal(t, StateChange{}, b.RecordSuccess())
	assert.True(t, b.IsOpen())
	assert.Equal(t, StateChange{Closed: true}, b.RecordSuccess())
	assert.False(t, b.IsOpen())
	assert.Equal(t, "backend", b.Name())
}
