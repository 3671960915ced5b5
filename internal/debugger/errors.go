package debugger

import (
	"errors"
	"fmt"
)

// Debugger errors.
var (
	// ErrTimeout indicates an engine did not answer within the command timeout.
	ErrTimeout = errors.New("engine command timed out")

	// ErrDisconnected indicates the engine connection is closed.
	ErrDisconnected = errors.New("engine disconnected")

	// ErrAlreadyRunning indicates Start was called twice.
	ErrAlreadyRunning = errors.New("engine already running")

	// ErrSessionNotFound indicates an unknown session id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrNoSuchBreakpoint indicates the backend has no breakpoint with an id.
	ErrNoSuchBreakpoint = errors.New("no such breakpoint")

	// ErrBadLocation indicates the backend cannot plant at a location.
	ErrBadLocation = errors.New("no code at location")
)

// CommandError is a failed engine command.
type CommandError struct {
	Op     string // Command name (e.g., "create", "enable", "delete")
	Engine string // Engine name
	Err    error  // Underlying error
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	if e.Engine != "" {
		return fmt.Sprintf("%s %s: %v", e.Engine, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *CommandError) Unwrap() error {
	return e.Err
}

// Reason returns the message shown next to a breakpoint the command broke.
func (e *CommandError) Reason() string {
	return e.Err.Error()
}
