package backend

import (
	"errors"
	"fmt"
)

// Error is a backend failure carrying the backend's own message, which is
// safe to show to the user. Err is a sentinel from internal/sentinel.
type Error struct {
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(op, message string, err error) *Error {
	return &Error{Op: op, Message: message, Err: err}
}

// Message extracts the user-facing message from err, or fallback when err
// did not come from a backend.
func Message(err error, fallback string) string {
	var be *Error
	if errors.As(err, &be) && be.Message != "" {
		return be.Message
	}
	return fallback
}
