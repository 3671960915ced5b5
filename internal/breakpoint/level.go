package breakpoint

// Level is the position of a breakpoint in the three level hierarchy.
type Level int

const (
	// Toplevel is a template not bound to any debug target.
	Toplevel Level = iota
	// Midlevel is the per-target instantiation of a toplevel breakpoint.
	Midlevel
	// SubBreakpoint is a per-thread refinement of a midlevel breakpoint.
	SubBreakpoint
)

// MaxDepth is the depth of the breakpoint tree.
const MaxDepth = 3

// String returns a string representation of the level.
func (l Level) String() string {
	switch l {
	case Toplevel:
		return "toplevel"
	case Midlevel:
		return "midlevel"
	case SubBreakpoint:
		return "sub"
	default:
		return "unknown"
	}
}

// Kind identifies how a breakpoint location is specified.
type Kind int

const (
	// KindLine is a file and line breakpoint.
	KindLine Kind = iota
	// KindFunction is a function entry breakpoint.
	KindFunction
	// KindInstruction is an instruction address breakpoint.
	KindInstruction
)

// String returns a string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindLine:
		return "line"
	case KindFunction:
		return "function"
	case KindInstruction:
		return "instruction"
	default:
		return "unknown"
	}
}

// ParseKind parses the persisted name of a kind.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "line":
		return KindLine, true
	case "function":
		return KindFunction, true
	case "instruction":
		return KindInstruction, true
	default:
		return 0, false
	}
}
