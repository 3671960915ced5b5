package view

import (
	"errors"
	"testing"

	"github.com/dshills/nativedbg/internal/breakpoint"
)

// fakeContext serves both as the breakpoint environment and the view context.
type fakeContext struct {
	current          breakpoint.Debugger
	sessions         int
	perTarget        bool
	sessionOnly      bool
	skipSingleParent bool
	ghostBuster      bool
}

func newFakeContext() *fakeContext {
	return &fakeContext{perTarget: true, skipSingleParent: true}
}

func (c *fakeContext) CurrentDebugger() breakpoint.Debugger { return c.current }
func (c *fakeContext) SessionCount() int                    { return c.sessions }
func (c *fakeContext) IsPerTargetBpts() bool                { return c.perTarget }
func (c *fakeContext) SessionOnly() bool                    { return c.sessionOnly }
func (c *fakeContext) SkipSingleParent() bool               { return c.skipSingleParent }
func (c *fakeContext) GhostBuster() bool                    { return c.ghostBuster }
func (c *fakeContext) EnableDifferentiates() bool           { return true }
func (c *fakeContext) Updater() breakpoint.Updater          { return nil }
func (c *fakeContext) ToggleSessionOnly()                   { c.sessionOnly = !c.sessionOnly }
func (c *fakeContext) ToggleSkipSingleParent()              { c.skipSingleParent = !c.skipSingleParent }
func (c *fakeContext) ToggleGhostBuster()                   { c.ghostBuster = !c.ghostBuster }

// plainContext is a Context without toggles.
type plainContext struct{ c *fakeContext }

func (p plainContext) CurrentDebugger() breakpoint.Debugger { return p.c.CurrentDebugger() }
func (p plainContext) SessionCount() int                    { return p.c.SessionCount() }
func (p plainContext) IsPerTargetBpts() bool                { return p.c.IsPerTargetBpts() }
func (p plainContext) SessionOnly() bool                    { return p.c.SessionOnly() }
func (p plainContext) SkipSingleParent() bool               { return p.c.SkipSingleParent() }

type changeCall struct {
	cmd    breakpoint.Command
	target *breakpoint.Breakpoint
}

type nopProvider struct {
	changes []changeCall
	deletes int
	enables int
}

func (p *nopProvider) PostEnableHandler(int, *breakpoint.Handler, bool, breakpoint.Gen) {
	p.enables++
}
func (p *nopProvider) PostCreateHandler(int, breakpoint.Command, *breakpoint.Breakpoint) {}
func (p *nopProvider) PostChangeHandler(_ int, cmd breakpoint.Command, target *breakpoint.Breakpoint, _ breakpoint.Gen) {
	p.changes = append(p.changes, changeCall{cmd, target})
}
func (p *nopProvider) PostRepairHandler(_ int, cmd breakpoint.Command, target *breakpoint.Breakpoint, _ breakpoint.Gen) {
	p.changes = append(p.changes, changeCall{cmd, target})
}
func (p *nopProvider) PostDeleteHandler(int, *breakpoint.Handler, breakpoint.Gen) { p.deletes++ }
func (p *nopProvider) PostEnableAllHandlers(bool)                               {}
func (p *nopProvider) PostDeleteAllHandlers()                                   {}

type fakeDebugger struct {
	target string
	pid    int
	table  *breakpoint.HandlerTable
	prov   *nopProvider
	nextID int
}

func newFakeDebugger(target string, bag *breakpoint.Bag) *fakeDebugger {
	d := &fakeDebugger{target: target, pid: 42, prov: &nopProvider{}}
	d.table = breakpoint.NewHandlerTable(d, bag)
	return d
}

func (d *fakeDebugger) Name() string                       { return "fake" }
func (d *fakeDebugger) IsLive() bool                       { return true }
func (d *fakeDebugger) Provider() breakpoint.Provider      { return d.prov }
func (d *fakeDebugger) Handlers() *breakpoint.HandlerTable { return d.table }
func (d *fakeDebugger) Target() string                     { return d.target }
func (d *fakeDebugger) Host() string                       { return "" }
func (d *fakeDebugger) Pid() int                           { return d.pid }

// plant creates top in d and acknowledges it.
func plant(t *testing.T, bag *breakpoint.Bag, d *fakeDebugger, top *breakpoint.Breakpoint) *breakpoint.Breakpoint {
	t.Helper()
	rt := top.RoutingToken()
	breakpoint.PostNewHandler(bag, d, top, rt)
	d.nextID++
	h, err := d.table.NoteNew(rt, d.nextID, nil)
	if err != nil {
		t.Fatalf("NoteNew failed: %v", err)
	}
	return h.Breakpoint()
}

// ghost returns a restored toplevel line breakpoint with one ghost midlevel
// child for target carrying nSubs ghost sub-breakpoints.
func ghost(t *testing.T, file, target string, nSubs int) (*breakpoint.Breakpoint, *breakpoint.Breakpoint) {
	t.Helper()
	attrs := map[string]string{breakpoint.PropFile: file, breakpoint.PropLine: "12"}
	top := breakpoint.NewRestored(breakpoint.KindLine, breakpoint.Toplevel)
	if err := top.SetAttrs(attrs); err != nil {
		t.Fatal(err)
	}
	attrs[breakpoint.PropContext] = target
	mid := breakpoint.NewRestored(breakpoint.KindLine, breakpoint.Midlevel)
	if err := mid.SetAttrs(attrs); err != nil {
		t.Fatal(err)
	}
	top.RestoringChild(mid)
	for i := 0; i < nSubs; i++ {
		sub := breakpoint.NewRestored(breakpoint.KindLine, breakpoint.SubBreakpoint)
		if err := sub.SetAttrs(attrs); err != nil {
			t.Fatal(err)
		}
		mid.RestoringChild(sub)
	}
	return top, mid
}

func expectViolation(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, breakpoint.ErrProtocolViolation) {
			t.Fatalf("%s: expected protocol violation, got %v", name, r)
		}
	}()
	fn()
}

func breakpointsOf(nodes []Node) []*breakpoint.Breakpoint {
	var out []*breakpoint.Breakpoint
	for _, n := range nodes {
		if bn, ok := n.(BreakpointNode); ok {
			out = append(out, bn.Breakpoint)
		}
	}
	return out
}
