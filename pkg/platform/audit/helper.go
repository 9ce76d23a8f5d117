// Package audit writes a structured trail of admin and registration
// actions, optionally fanning each entry out to an Emitter.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	id "inclusao/pkg/domain"
	"inclusao/pkg/requestcontext"
)

type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

// Logger logs audit entries with log_type=audit and forwards them to the
// emitter when one is set.
type Logger struct {
	textLogger *slog.Logger
	emitter    Emitter
	now        func() time.Time
}

func NewLogger(textLogger *slog.Logger, emitter Emitter) *Logger {
	return &Logger{textLogger: textLogger, emitter: emitter, now: time.Now}
}

// Log records action. user_id and subject are lifted from attributes when
// present.
//
//	logger.Log(ctx, audit.ActionRegistrationDeleted, "user_id", uid, "subject", regID)
func (l *Logger) Log(ctx context.Context, action Action, attributes ...any) {
	if l == nil {
		return
	}
	requestID := requestcontext.RequestID(ctx)
	if requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	if l.textLogger != nil {
		args := append(attributes, "event", string(action), "log_type", "audit")
		l.textLogger.InfoContext(ctx, string(action), args...)
	}
	if l.emitter == nil {
		return
	}

	userID, _ := id.ParseUserID(stringAttr(attributes, "user_id"))
	err := l.emitter.Emit(ctx, Event{
		Timestamp: l.now(),
		Action:    action,
		UserID:    userID,
		Subject:   stringAttr(attributes, "subject"),
		RequestID: requestID,
		ClientIP:  requestcontext.ClientIP(ctx),
	})
	if err != nil && l.textLogger != nil {
		l.textLogger.ErrorContext(ctx, "failed to emit audit event", "error", err, "event", string(action))
	}
}

// stringAttr finds key in slog-style alternating key/value pairs.
func stringAttr(attributes []any, key string) string {
	for i := 0; i+1 < len(attributes); i += 2 {
		if k, ok := attributes[i].(string); ok && k == key {
			switch v := attributes[i+1].(type) {
			case string:
				return v
			case interface{ String() string }:
				return v.String()
			}
		}
	}
	return ""
}

// CounterEmitter counts events by action.
type CounterEmitter struct {
	counter *prometheus.CounterVec
}

// NewCounterEmitter expects a vector with a single "action" label.
func NewCounterEmitter(counter *prometheus.CounterVec) *CounterEmitter {
	return &CounterEmitter{counter: counter}
}

func (c *CounterEmitter) Emit(_ context.Context, event Event) error {
	c.counter.WithLabelValues(string(event.Action)).Inc()
	return nil
}
