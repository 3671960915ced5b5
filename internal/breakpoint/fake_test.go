package breakpoint

import (
	"errors"
	"sync"
	"testing"
)

type fakeEnv struct {
	current     Debugger
	perTarget   bool
	ghostBuster bool
	updater     *recordingUpdater
}

func newFakeEnv() *fakeEnv {
	return &fakeEnv{perTarget: true, updater: &recordingUpdater{}}
}

func (e *fakeEnv) CurrentDebugger() Debugger  { return e.current }
func (e *fakeEnv) IsPerTargetBpts() bool      { return e.perTarget }
func (e *fakeEnv) GhostBuster() bool          { return e.ghostBuster }
func (e *fakeEnv) EnableDifferentiates() bool { return true }
func (e *fakeEnv) Updater() Updater {
	if e.updater == nil {
		return nil
	}
	return e.updater
}

type recordingUpdater struct {
	mu     sync.Mutex
	nodes  map[*Breakpoint]int
	values map[*Breakpoint]int
	trees  int
}

func (u *recordingUpdater) NodeChanged(b *Breakpoint) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.nodes == nil {
		u.nodes = make(map[*Breakpoint]int)
	}
	u.nodes[b]++
}

func (u *recordingUpdater) TableValueChanged(b *Breakpoint, _ string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.values == nil {
		u.values = make(map[*Breakpoint]int)
	}
	u.values[b]++
}

func (u *recordingUpdater) TreeChanged(*Breakpoint) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.trees++
}

func (u *recordingUpdater) reset() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.nodes = nil
	u.values = nil
	u.trees = 0
}

func (u *recordingUpdater) nodeCount(b *Breakpoint) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.nodes[b]
}

func (u *recordingUpdater) treeCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.trees
}

type enableCall struct {
	rt     int
	h      *Handler
	enable bool
	gen    Gen
}

type changeCall struct {
	rt     int
	cmd    Command
	target *Breakpoint
	gen    Gen
}

type deleteCall struct {
	rt  int
	h   *Handler
	gen Gen
}

type recordingProvider struct {
	mu      sync.Mutex
	enables []enableCall
	creates []Command
	changes []changeCall
	repairs []changeCall
	deletes []deleteCall
}

func (p *recordingProvider) PostEnableHandler(rt int, h *Handler, enable bool, gen Gen) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enables = append(p.enables, enableCall{rt, h, enable, gen})
}

func (p *recordingProvider) PostCreateHandler(_ int, cmd Command, _ *Breakpoint) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.creates = append(p.creates, cmd)
}

func (p *recordingProvider) PostChangeHandler(rt int, cmd Command, target *Breakpoint, gen Gen) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, changeCall{rt, cmd, target, gen})
}

func (p *recordingProvider) PostRepairHandler(rt int, cmd Command, target *Breakpoint, gen Gen) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.repairs = append(p.repairs, changeCall{rt, cmd, target, gen})
}

func (p *recordingProvider) PostDeleteHandler(rt int, h *Handler, gen Gen) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deletes = append(p.deletes, deleteCall{rt, h, gen})
}

func (p *recordingProvider) PostEnableAllHandlers(bool) {}
func (p *recordingProvider) PostDeleteAllHandlers()     {}

type fakeDebugger struct {
	name   string
	target string
	live   bool
	pid    int
	table  *HandlerTable
	prov   *recordingProvider
	nextID int
}

func newFakeDebugger(name, target string, bag *Bag) *fakeDebugger {
	d := &fakeDebugger{name: name, target: target, live: true, pid: 100, prov: &recordingProvider{}}
	d.table = NewHandlerTable(d, bag)
	return d
}

func (d *fakeDebugger) Name() string             { return d.name }
func (d *fakeDebugger) IsLive() bool             { return d.live }
func (d *fakeDebugger) Provider() Provider       { return d.prov }
func (d *fakeDebugger) Handlers() *HandlerTable  { return d.table }
func (d *fakeDebugger) Target() string           { return d.target }
func (d *fakeDebugger) Host() string             { return "" }
func (d *fakeDebugger) Pid() int                 { return d.pid }

// plant creates top in d and acknowledges the create.
func plant(t *testing.T, bag *Bag, d *fakeDebugger, top *Breakpoint) *Handler {
	t.Helper()
	rt := top.RoutingToken()
	PostNewHandler(bag, d, top, rt)
	d.nextID++
	h, err := d.table.NoteNew(rt, d.nextID, nil)
	if err != nil {
		t.Fatalf("NoteNew failed: %v", err)
	}
	return h
}

// restoreInto plants the bag's breakpoints in d and acknowledges them.
func restoreInto(t *testing.T, bag *Bag, d *fakeDebugger) {
	t.Helper()
	before := len(d.prov.creates)
	if n := bag.RestoreTo(d); n == 0 {
		t.Fatalf("RestoreTo posted nothing")
	}
	for _, top := range bag.Breakpoints() {
		for _, target := range append([]*Breakpoint{top}, top.Children()...) {
			rt := target.RoutingToken()
			if !d.table.Pending(rt) {
				continue
			}
			d.nextID++
			if _, err := d.table.NoteNew(rt, d.nextID, nil); err != nil {
				t.Fatalf("NoteNew failed: %v", err)
			}
		}
	}
	if len(d.prov.creates) == before {
		t.Fatalf("no create commands posted")
	}
}

// expectViolation runs fn and fails unless it panics with a protocol violation.
func expectViolation(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		if r == nil {
			t.Fatalf("%s: expected protocol violation panic", name)
		}
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrProtocolViolation) {
			t.Fatalf("%s: expected ErrProtocolViolation, got %v", name, r)
		}
	}()
	fn()
}

// restoredTree builds a toplevel line breakpoint with one ghost midlevel
// child for target and nSubs ghost sub-breakpoints.
func restoredTree(file string, line int, target string, nSubs int) (*Breakpoint, *Breakpoint) {
	top := NewRestored(KindLine, Toplevel)
	_ = top.SetAttrs(map[string]string{PropFile: file, PropLine: "12"})
	if line != 12 {
		top.setValue(PropLine, line)
	}
	mid := NewRestored(KindLine, Midlevel)
	mid.copyFromHelp(top)
	mid.setContext(Context{Executable: target})
	top.RestoringChild(mid)
	for i := 0; i < nSubs; i++ {
		sub := NewRestored(KindLine, SubBreakpoint)
		sub.copyFromHelp(top)
		sub.setContext(Context{Executable: target})
		mid.RestoringChild(sub)
	}
	return top, mid
}
