package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"inclusao/internal/platform/schedule"
)

// Sweeper periodically deletes sessions that logged in long ago. Expired
// records are kept for one extra max age so the expiry notice can still
// be shown, then removed.
type Sweeper struct {
	store     Store
	scheduler schedule.Scheduler
	clock     schedule.Clock
	interval  time.Duration
	retention time.Duration
	logger    *slog.Logger
}

type SweeperOption func(*Sweeper)

// WithSweepInterval overrides the interval when greater than zero.
func WithSweepInterval(interval time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

func WithSweepScheduler(sched schedule.Scheduler, clock schedule.Clock) SweeperOption {
	return func(s *Sweeper) {
		if sched != nil {
			s.scheduler = sched
		}
		if clock != nil {
			s.clock = clock
		}
	}
}

func WithSweepLogger(logger *slog.Logger) SweeperOption {
	return func(s *Sweeper) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSweeper keeps sessions for twice maxAge after login.
func NewSweeper(store Store, maxAge time.Duration, opts ...SweeperOption) (*Sweeper, error) {
	if store == nil {
		return nil, fmt.Errorf("session store is required")
	}
	s := &Sweeper{
		store:     store,
		scheduler: schedule.NewTicker(nil),
		clock:     schedule.SystemClock{},
		interval:  5 * time.Minute,
		retention: 2 * maxAge,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Start sweeps every interval until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) error {
	task := s.scheduler.Every(s.interval, func(now time.Time) bool {
		if _, err := s.sweep(ctx, now); err != nil {
			s.logger.ErrorContext(ctx, "session sweep failed", "error", err)
		}
		return true
	})
	<-ctx.Done()
	task.Cancel()
	<-task.Done()
	return nil
}

// RunOnce performs a single sweep and reports how many sessions it removed.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	return s.sweep(ctx, s.clock.Now())
}

func (s *Sweeper) sweep(ctx context.Context, now time.Time) (int, error) {
	n, err := s.store.DeleteLoggedInBefore(ctx, now.Add(-s.retention))
	if err != nil {
		return n, fmt.Errorf("delete old sessions: %w", err)
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "swept admin sessions", "deleted", n)
	}
	return n, nil
}
