// Package tracing provides a small tracing abstraction used around backend
// calls, an OpenTelemetry adapter for it, and the process-wide OTel setup.
//
// Implementations:
//   - NoopTracer for tests and runs without an exporter
//   - OTelTracer for production
package tracing

import (
	"context"
	"time"
)

// Span is an active trace span. End must be called exactly once.
type Span interface {
	// End completes the span and marks it failed when err is non-nil.
	End(err error)
	SetAttributes(attrs ...Attribute)
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

func Int(key string, value int) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration records value in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// Span names for backend calls.
const (
	SpanAuthSignIn      = "backend.auth.sign_in"
	SpanAuthSignOut     = "backend.auth.sign_out"
	SpanAuthGetUser     = "backend.auth.get_user"
	SpanAuthGetSession  = "backend.auth.get_session"
	SpanRegistrationIns = "backend.registrations.insert"
	SpanRegistrationLst = "backend.registrations.list"
	SpanRegistrationUpd = "backend.registrations.update"
	SpanRegistrationDel = "backend.registrations.delete"
	SpanAdminLookup     = "backend.admins.lookup"
)

// Attribute keys.
const (
	AttrBackend    = "backend.kind"
	AttrHTTPStatus = "http.status_code"
	AttrRowCount   = "db.rows"
	AttrIsAdmin    = "admin.member"
)
