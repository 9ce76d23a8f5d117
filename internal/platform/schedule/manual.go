package schedule

import (
	"sync"
	"time"
)

// Manual is a Scheduler and Clock driven by Advance. Ticks run
// synchronously on the caller's goroutine.
type Manual struct {
	mu    sync.Mutex
	now   time.Time
	tasks []*manualTask
}

func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) Every(interval time.Duration, fn TickFunc) Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTask{task: newTask(), interval: interval, next: m.now.Add(interval), fn: fn}
	m.tasks = append(m.tasks, t)
	return t
}

// Advance moves the clock forward by d, firing every tick that falls due in
// order of deadline.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		t := m.nextDue(target)
		if t == nil {
			break
		}
		m.mu.Lock()
		m.now = t.next
		t.next = t.next.Add(t.interval)
		now := m.now
		m.mu.Unlock()

		if !t.fn(now) {
			t.finish()
		}
	}

	m.mu.Lock()
	m.now = target
	m.mu.Unlock()
}

// Pending reports how many tasks can still tick.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tasks {
		if !t.stopped() {
			n++
		}
	}
	return n
}

func (m *Manual) nextDue(target time.Time) *manualTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	var due *manualTask
	live := m.tasks[:0]
	for _, t := range m.tasks {
		if t.stopped() {
			t.finish()
			continue
		}
		live = append(live, t)
		if t.next.After(target) {
			continue
		}
		if due == nil || t.next.Before(due.next) {
			due = t
		}
	}
	m.tasks = live
	return due
}

type manualTask struct {
	*task
	interval time.Duration
	next     time.Time
	fn       TickFunc
	finished sync.Once
}

func (t *manualTask) stopped() bool {
	select {
	case <-t.stop:
		return true
	case <-t.done:
		return true
	default:
		return false
	}
}

func (t *manualTask) finish() {
	t.Cancel()
}

// Cancel on a manual task also closes Done, since no goroutine owns it.
func (t *manualTask) Cancel() {
	t.task.Cancel()
	t.finished.Do(func() { close(t.done) })
}

var (
	_ Scheduler = (*Manual)(nil)
	_ Clock     = (*Manual)(nil)
)
