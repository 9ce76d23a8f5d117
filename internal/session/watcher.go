package session

import (
	"context"
	"time"

	"inclusao/internal/platform/schedule"
	id "inclusao/pkg/domain"
)

// expireTimeout bounds the sign-out call made from a tick.
const expireTimeout = 10 * time.Second

// Watcher checks a session's age every interval and expires it once it is
// maxAge old. The task stops itself after expiring.
type Watcher struct {
	scheduler schedule.Scheduler
	interval  time.Duration
	maxAge    time.Duration
	expire    func(ctx context.Context, sessionID id.SessionID) error
}

func (w *Watcher) Watch(s *Session) schedule.Task {
	sessionID, loginAt := s.ID, s.LoginAt
	return w.scheduler.Every(w.interval, func(now time.Time) bool {
		if now.Sub(loginAt) < w.maxAge {
			return true
		}
		ctx, cancel := context.WithTimeout(context.Background(), expireTimeout)
		defer cancel()
		_ = w.expire(ctx, sessionID)
		return false
	})
}
