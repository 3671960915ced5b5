package app

import (
	"errors"
	"fmt"
)

// Application errors.
var (
	// ErrNotRunning indicates the application was shut down.
	ErrNotRunning = errors.New("application not running")

	// ErrPersistDisabled indicates saving was requested without a persist
	// path.
	ErrPersistDisabled = errors.New("persistence disabled")
)

// InitError represents an initialization error.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string {
	return "init " + e.Component + ": " + e.Err.Error()
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// ComponentError represents an error from a component during shutdown.
type ComponentError struct {
	Component string
	Action    string
	Err       error
}

func (e *ComponentError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Component, e.Action, e.Err)
}

func (e *ComponentError) Unwrap() error {
	return e.Err
}
