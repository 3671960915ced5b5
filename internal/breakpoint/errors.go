package breakpoint

import (
	"errors"
	"fmt"
)

// Sentinel errors for the breakpoint package.
var (
	// ErrProtocolViolation is wrapped by every *ProtocolError.
	ErrProtocolViolation = errors.New("breakpoint protocol violation")

	// ErrHandlerNotFound is returned when an engine reply names an unknown handler id.
	ErrHandlerNotFound = errors.New("handler not found")

	// ErrPlanNotFound is returned when an engine reply carries an unknown routing token.
	ErrPlanNotFound = errors.New("no pending request for routing token")

	// ErrNotLive is returned when a request is made against a debugger that is not live.
	ErrNotLive = errors.New("debugger is not live")
)

// ProtocolError reports a caller bypassing the synchronization discipline.
// It is raised with panic, never returned.
type ProtocolError struct {
	Msg string
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	return "protocol violation: " + e.Msg
}

// Unwrap returns ErrProtocolViolation.
func (e *ProtocolError) Unwrap() error {
	return ErrProtocolViolation
}

// Violation builds a *ProtocolError with a formatted message.
func Violation(format string, args ...any) *ProtocolError {
	return &ProtocolError{Msg: fmt.Sprintf(format, args...)}
}

// assert panics with a *ProtocolError when cond is false.
func assert(cond bool, format string, args ...any) {
	if !cond {
		panic(Violation(format, args...))
	}
}
