package debugger

import (
	"context"

	"github.com/dshills/nativedbg/internal/breakpoint"
)

// Backend is the connection to one debug engine process. Its methods are
// only called from the engine's queue and may block until the engine
// answers or ctx is done.
type Backend interface {
	// Target returns the executable being debugged.
	Target() string
	// Host returns the host the engine runs on.
	Host() string
	// Pid returns the process id of the debuggee, or -1 before it runs.
	Pid() int

	// Create plants a breakpoint and returns its engine id. attrs holds
	// properties the engine adjusted, in their persisted form.
	Create(ctx context.Context, cmd breakpoint.Command) (id int, attrs map[string]string, err error)
	// Replace replants breakpoint cmd.ID with the values in cmd and returns
	// the new engine id.
	Replace(ctx context.Context, cmd breakpoint.Command) (id int, err error)
	// Enable enables or disables breakpoint id.
	Enable(ctx context.Context, id int, enabled bool) error
	// Delete deletes breakpoint id.
	Delete(ctx context.Context, id int) error

	// Notifications delivers state changes the engine reports on its own,
	// such as a breakpoint hit or a command typed at the engine console.
	// The channel is closed when the backend closes.
	Notifications() <-chan Notification
	// Close disconnects from the engine.
	Close() error
}

// NotificationKind identifies an unsolicited engine report.
type NotificationKind int

const (
	// NoteHit reports the program stopped at a breakpoint.
	NoteHit NotificationKind = iota
	// NoteResumed reports the program continued.
	NoteResumed
	// NoteEnabled reports a breakpoint enabled or disabled at the engine.
	NoteEnabled
	// NoteDeleted reports a breakpoint deleted at the engine.
	NoteDeleted
	// NoteError reports a breakpoint the engine can no longer honor.
	NoteError
	// NoteCountLimit reports a count limit set at the engine.
	NoteCountLimit
	// NoteExited reports the engine process exited.
	NoteExited
)

// String returns a string representation of the kind.
func (k NotificationKind) String() string {
	switch k {
	case NoteHit:
		return "hit"
	case NoteResumed:
		return "resumed"
	case NoteEnabled:
		return "enabled"
	case NoteDeleted:
		return "deleted"
	case NoteError:
		return "error"
	case NoteCountLimit:
		return "countLimit"
	case NoteExited:
		return "exited"
	default:
		return "unknown"
	}
}

// Notification is an unsolicited engine report.
type Notification struct {
	Kind    NotificationKind
	ID      int    // Engine id of the breakpoint, if any
	Count   int    // Hit count for NoteHit
	Limit   int    // Count limit for NoteCountLimit; 0 clears it
	Enabled bool   // New state for NoteEnabled
	Message string // Error text for NoteError; "" clears the error
}
