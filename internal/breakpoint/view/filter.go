package view

import (
	"github.com/dshills/nativedbg/internal/breakpoint"
)

// Context is the session state and the view preferences the filter
// consults on every query.
type Context interface {
	// CurrentDebugger returns the debugger of the current session, or nil.
	CurrentDebugger() breakpoint.Debugger
	// SessionCount returns the number of debugging sessions.
	SessionCount() int
	// IsPerTargetBpts reports whether breakpoints are kept per debug target.
	IsPerTargetBpts() bool
	// SessionOnly reports whether only the current session is shown.
	SessionOnly() bool
	// SkipSingleParent reports whether single-child chains are collapsed.
	SkipSingleParent() bool
}

// Toggler is implemented by contexts whose preferences can be flipped from
// the global actions.
type Toggler interface {
	ToggleSessionOnly()
	ToggleSkipSingleParent()
	ToggleGhostBuster()
	GhostBuster() bool
}

// Option configures a Filter.
type Option func(*Filter)

// WithOtherRows appends rows of the surrounding model to the root.
func WithOtherRows(values ...any) Option {
	return func(f *Filter) {
		for _, v := range values {
			f.others = append(f.others, OtherNode{Value: v})
		}
	}
}

// WithCustomizer sets the function run by the Customize action.
func WithCustomizer(fn func(edited *breakpoint.Breakpoint)) Option {
	return func(f *Filter) { f.customize = fn }
}

// WithNavigator sets the function run by the GoToSource action.
func WithNavigator(fn func(file string, line int) error) Option {
	return func(f *Filter) { f.navigate = fn }
}

// Filter is the breakpoint view model.
type Filter struct {
	ctx       Context
	bag       *breakpoint.Bag
	others    []Node
	customize func(edited *breakpoint.Breakpoint)
	navigate  func(file string, line int) error
}

// NewFilter returns a filter over the breakpoints of bag.
func NewFilter(ctx Context, bag *breakpoint.Bag, opts ...Option) *Filter {
	f := &Filter{ctx: ctx, bag: bag}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// SkipParent returns the node shown in place of b. A chain of single,
// unbound, interchangeable midlevel children collapses into the last of
// them.
func (f *Filter) SkipParent(b *breakpoint.Breakpoint) *breakpoint.Breakpoint {
	return f.skipParent(b, 1)
}

func (f *Filter) skipParent(b *breakpoint.Breakpoint, depth int) *breakpoint.Breakpoint {
	if depth > breakpoint.MaxDepth {
		panic(breakpoint.Violation("skipParent: tree deeper than %d at %s", breakpoint.MaxDepth, b))
	}
	if !f.ctx.SkipSingleParent() {
		return b
	}
	children := f.SessionOnly(BreakpointNode{b}, wrap(b.Children()))
	if len(children) != 1 {
		return b
	}
	child, ok := children[0].(BreakpointNode)
	if !ok {
		return b
	}
	if child.IsBound() || !child.IsMidlevel() || !child.IsUniqueLite() {
		return b
	}
	return f.skipParent(child.Breakpoint, depth+1)
}

// SessionOnly restricts children of parent to those relevant to the
// current session. A nil parent is the root. Without sessions only the
// per-target root is narrowed, and then to nothing. Rows that are not
// breakpoints always pass.
func (f *Filter) SessionOnly(parent Node, children []Node) []Node {
	sessions := f.ctx.SessionCount()
	perTarget := f.ctx.IsPerTargetBpts()
	if !f.ctx.SessionOnly() || (sessions == 0 && !perTarget) {
		return children
	}
	current := f.ctx.CurrentDebugger()

	if parent == nil {
		if !perTarget {
			return children
		}
		out := make([]Node, 0, len(children))
		for _, c := range children {
			bn, ok := c.(BreakpointNode)
			if !ok || hasCurrentDescendant(bn.Breakpoint, current) {
				out = append(out, c)
			}
		}
		return out
	}

	pn, ok := parent.(BreakpointNode)
	if !ok || !pn.IsToplevel() || sessions == 0 {
		return children
	}
	out := make([]Node, 0, len(children))
	for _, c := range children {
		bn, ok := c.(BreakpointNode)
		if !ok || isCurrent(bn.Breakpoint, current) {
			out = append(out, c)
		}
	}
	return out
}

func isCurrent(b *breakpoint.Breakpoint, current breakpoint.Debugger) bool {
	d := b.Debugger()
	return current != nil && d != nil && d == current
}

func hasCurrentDescendant(b *breakpoint.Breakpoint, current breakpoint.Debugger) bool {
	for _, c := range b.Children() {
		if isCurrent(c, current) || hasCurrentDescendant(c, current) {
			return true
		}
	}
	return false
}

// Roots returns the simplified root rows.
func (f *Filter) Roots() []Node {
	rows := wrap(f.bag.Breakpoints())
	rows = append(rows, f.others...)
	return f.simplify(f.SessionOnly(nil, rows))
}

func (f *Filter) simplify(rows []Node) []Node {
	for i, r := range rows {
		if bn, ok := r.(BreakpointNode); ok {
			rows[i] = BreakpointNode{f.SkipParent(bn.Breakpoint)}
		}
	}
	return rows
}

// rows returns the simplified children of parent; nil is the root.
func (f *Filter) rows(parent any) ([]Node, error) {
	if parent == nil {
		return f.Roots(), nil
	}
	n, err := nodeOf(parent)
	if err != nil {
		return nil, err
	}
	bn, ok := n.(BreakpointNode)
	if !ok {
		return nil, nil
	}
	return f.simplify(f.SessionOnly(bn, wrap(bn.Children()))), nil
}

// Children returns the rows from..to-1 under parent. A negative or too
// large to returns everything from from on.
func (f *Filter) Children(parent any, from, to int) ([]Node, error) {
	rows, err := f.rows(parent)
	if err != nil {
		return nil, err
	}
	if to < 0 || to > len(rows) {
		to = len(rows)
	}
	if from < 0 {
		from = 0
	}
	if from >= to {
		return []Node{}, nil
	}
	return rows[from:to], nil
}

// ChildrenCount returns the number of rows under parent.
func (f *Filter) ChildrenCount(parent any) (int, error) {
	rows, err := f.rows(parent)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// IsLeaf reports whether node has no rows under it.
func (f *Filter) IsLeaf(node any) (bool, error) {
	n, err := f.ChildrenCount(node)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}
