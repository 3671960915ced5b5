package breakpoint

// Op identifies the kind of engine command.
type Op int

const (
	// OpCreate plants a new breakpoint.
	OpCreate Op = iota
	// OpChange applies an edit to a planted breakpoint.
	OpChange
	// OpRepair replants a broken breakpoint from scratch.
	OpRepair
)

// String returns a string representation of the op.
func (o Op) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpChange:
		return "change"
	case OpRepair:
		return "repair"
	default:
		return "unknown"
	}
}

// Command is the engine-neutral description of a create, change or repair
// request. Backends translate it into their own command syntax.
type Command struct {
	Op    Op
	Kind  Kind
	ID    int
	Attrs map[string]string
}

// NewCommand snapshots b into a command. For change and repair, id is the
// engine id of the handler being replaced.
func NewCommand(op Op, b *Breakpoint, id int) Command {
	return Command{
		Op:    op,
		Kind:  b.Kind(),
		ID:    id,
		Attrs: b.Attrs(),
	}
}
