package breakpoint

// Env is the session context the breakpoint tree consults: the current
// debugger, the breakpoint mode and the refresh sink. It is supplied by the
// debugger manager and threaded through the Bag.
type Env interface {
	// CurrentDebugger returns the debugger of the current session, or nil.
	CurrentDebugger() Debugger
	// IsPerTargetBpts reports whether breakpoints are kept per debug target.
	IsPerTargetBpts() bool
	// GhostBuster reports whether redundant ghosts are culled on session exit.
	GhostBuster() bool
	// EnableDifferentiates reports whether enabledness distinguishes siblings.
	EnableDifferentiates() bool
	// Updater returns the sink for refresh notifications, or nil.
	Updater() Updater
}

// Debugger is one engine connection.
type Debugger interface {
	// Name returns a short label for the engine.
	Name() string
	// IsLive reports whether the engine accepts commands.
	IsLive() bool
	// Provider returns the command channel of the engine.
	Provider() Provider
	// Handlers returns the engine's handler table.
	Handlers() *HandlerTable
	// Target returns the executable being debugged.
	Target() string
	// Host returns the host the engine runs on.
	Host() string
	// Pid returns the process id of the debuggee, or -1.
	Pid() int
}

// Provider posts breakpoint commands to an engine. Every method returns
// immediately; the outcome arrives later through the engine's HandlerTable.
type Provider interface {
	PostEnableHandler(rt int, h *Handler, enable bool, gen Gen)
	PostCreateHandler(rt int, cmd Command, b *Breakpoint)
	PostChangeHandler(rt int, cmd Command, target *Breakpoint, gen Gen)
	PostRepairHandler(rt int, cmd Command, target *Breakpoint, gen Gen)
	PostDeleteHandler(rt int, h *Handler, gen Gen)
	PostEnableAllHandlers(enable bool)
	PostDeleteAllHandlers()
}

// Updater receives refresh notifications. Views re-read the breakpoint when
// notified; the breakpoint never pushes rendered state.
type Updater interface {
	// NodeChanged asks for the icon, summary and children of b.
	NodeChanged(b *Breakpoint)
	// TableValueChanged asks for the column key of b.
	TableValueChanged(b *Breakpoint, key string)
	// TreeChanged asks for the subtree rooted at the toplevel root.
	TreeChanged(root *Breakpoint)
}

// DebuggerContext returns the Context of the target d is debugging.
func DebuggerContext(d Debugger) Context {
	return Context{Executable: d.Target(), Host: d.Host()}
}

type defaultEnv struct{}

func (defaultEnv) CurrentDebugger() Debugger  { return nil }
func (defaultEnv) IsPerTargetBpts() bool      { return true }
func (defaultEnv) GhostBuster() bool          { return false }
func (defaultEnv) EnableDifferentiates() bool { return true }
func (defaultEnv) Updater() Updater           { return nil }
