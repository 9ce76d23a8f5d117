// Package schedule runs cancellable recurring tasks against an injectable
// clock, so expiry checks can be driven deterministically in tests.
package schedule

import (
	"sync"
	"time"
)

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// TickFunc runs once per interval with the current time. Returning false
// stops the task.
type TickFunc func(now time.Time) bool

// Task is a scheduled recurring job.
type Task interface {
	// Cancel stops future ticks. It is idempotent, never blocks on the
	// running tick, and may be called from inside the TickFunc.
	Cancel()
	// Done is closed once the task will never tick again.
	Done() <-chan struct{}
}

// Scheduler starts recurring tasks.
type Scheduler interface {
	Every(interval time.Duration, fn TickFunc) Task
}

// Ticker runs each task in its own goroutine backed by a time.Ticker.
type Ticker struct {
	clock Clock
}

func NewTicker(clock Clock) *Ticker {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Ticker{clock: clock}
}

func (t *Ticker) Every(interval time.Duration, fn TickFunc) Task {
	task := newTask()
	go func() {
		defer close(task.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-task.stop:
				return
			case <-ticker.C:
				select {
				case <-task.stop:
					return
				default:
				}
				if !fn(t.clock.Now()) {
					return
				}
			}
		}
	}()
	return task
}

type task struct {
	once sync.Once
	stop chan struct{}
	done chan struct{}
}

func newTask() *task {
	return &task{stop: make(chan struct{}), done: make(chan struct{})}
}

func (t *task) Cancel() {
	t.once.Do(func() { close(t.stop) })
}

func (t *task) Done() <-chan struct{} {
	return t.done
}

var (
	_ Scheduler = (*Ticker)(nil)
	_ Clock     = SystemClock{}
)
