package breakpoint

import (
	"os"
	"sync"
)

// Bag is the ordered collection of toplevel breakpoints. It owns them;
// everything below a toplevel breakpoint is owned by its parent.
type Bag struct {
	mu   sync.RWMutex
	env  Env
	bpts []*Breakpoint
}

// NewBag returns an empty bag whose breakpoints consult env.
func NewBag(env Env) *Bag {
	if env == nil {
		env = defaultEnv{}
	}
	return &Bag{env: env}
}

// Env returns the environment of the bag.
func (g *Bag) Env() Env {
	return g.env
}

// Breakpoints returns a snapshot of the toplevel breakpoints in order.
func (g *Bag) Breakpoints() []*Breakpoint {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]*Breakpoint(nil), g.bpts...)
}

// Len returns the number of toplevel breakpoints.
func (g *Bag) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.bpts)
}

// Contains reports whether b is in the bag.
func (g *Bag) Contains(b *Breakpoint) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, x := range g.bpts {
		if x == b {
			return true
		}
	}
	return false
}

// Add appends the toplevel breakpoint b. Adding b twice is a no-op.
func (g *Bag) Add(b *Breakpoint) {
	assert(b.IsToplevel(), "Bag.Add: %s breakpoint", b.Level())
	assert(!b.IsEditable(), "Bag.Add: editable breakpoint")
	if !g.insert(b) {
		return
	}
	b.attach(g.env, g)
	g.treeChanged()
}

func (g *Bag) insert(b *Breakpoint) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, x := range g.bpts {
		if x == b {
			return false
		}
	}
	g.bpts = append(g.bpts, b)
	return true
}

// Remove drops b from the bag.
func (g *Bag) Remove(b *Breakpoint) {
	g.mu.Lock()
	removed := false
	for i, x := range g.bpts {
		if x == b {
			g.bpts = append(g.bpts[:i:i], g.bpts[i+1:]...)
			removed = true
			break
		}
	}
	g.mu.Unlock()
	if removed {
		g.treeChanged()
	}
}

// Restore adds decoded toplevel breakpoints, with their ghost children, and
// checks their sources for modifications newer than the saved timestamp.
func (g *Bag) Restore(bs ...*Breakpoint) {
	for _, b := range bs {
		assert(b.IsToplevel(), "Bag.Restore: %s breakpoint", b.Level())
		if !g.insert(b) {
			continue
		}
		b.attach(g.env, g)
		b.restoredChild()
		for _, mid := range b.Children() {
			mid.restoredChild()
			for _, sub := range mid.Children() {
				sub.restoredChild()
			}
		}
	}
	g.treeChanged()
}

// restoredChild marks b out of sync when an annotated source file is newer
// than the saved timestamp.
func (b *Breakpoint) restoredChild() {
	ts := b.Timestamp()
	for _, a := range b.Annotations() {
		if a.File == "" {
			continue
		}
		fi, err := os.Stat(a.File)
		if err != nil {
			continue
		}
		if fi.ModTime().After(ts) {
			b.mu.Lock()
			b.srcOutOfSync = true
			b.mu.Unlock()
			return
		}
	}
}

// PostCreate realizes the new toplevel breakpoint b in the current session,
// or adds it directly when there is none.
func (g *Bag) PostCreate(b *Breakpoint) {
	PostNewHandler(g, g.env.CurrentDebugger(), b, b.RoutingToken())
}

// PostEnableAllHandlers requests enabling or disabling every breakpoint.
func (g *Bag) PostEnableAllHandlers(enabled bool) {
	for _, b := range g.Breakpoints() {
		b.SetPropEnabled(enabled)
	}
}

// PostDeleteAllHandlers requests deleting every breakpoint.
func (g *Bag) PostDeleteAllHandlers() {
	for _, b := range g.Breakpoints() {
		b.PostDelete(false, Primary(nil))
	}
}

// AnyEnabled reports whether some breakpoint is enabled.
func (g *Bag) AnyEnabled() bool {
	for _, b := range g.Breakpoints() {
		if b.IsEnabled() {
			return true
		}
	}
	return false
}

// AnyDisabled reports whether some breakpoint is disabled.
func (g *Bag) AnyDisabled() bool {
	for _, b := range g.Breakpoints() {
		if !b.IsEnabled() {
			return true
		}
	}
	return false
}

// RestoreTo plants the bag's breakpoints in a newly started engine. In
// per-target mode only ghosts of the engine's target are planted, and
// childless templates; otherwise every template is.
func (g *Bag) RestoreTo(d Debugger) int {
	if d == nil || !d.IsLive() {
		return 0
	}
	ctx := DebuggerContext(d)
	perTarget := g.env.IsPerTargetBpts()
	posted := 0
	for _, top := range g.Breakpoints() {
		if top.MidlevelFor(d) != nil {
			continue
		}
		var target *Breakpoint
		for _, mid := range top.FindByContext(ctx) {
			if !mid.IsBound() {
				target = mid
				break
			}
		}
		switch {
		case target != nil:
		case top.NChildren() == 0 || !perTarget:
			target = top
		default:
			continue
		}
		if !target.IsEnabled() && target.IsToplevel() {
			continue
		}
		d.Handlers().PostRestore(target)
		posted++
	}
	return posted
}

// CleanupSession turns the breakpoints of an ended session into ghosts.
// With ghost busting on, ghosts that add nothing over their template or a
// sibling are deleted.
func (g *Bag) CleanupSession(d Debugger) {
	busting := g.env.GhostBuster()
	for _, top := range g.Breakpoints() {
		for _, mid := range top.Children() {
			if mid.Debugger() != d {
				continue
			}
			mid.Unbind()
			if busting && !mid.IsUnique() {
				mid.PrimDelete(true, Primary(nil))
			}
		}
		top.UpdateAndParent()
	}
	g.treeChanged()
}

// DiscardUnused deletes ghosts whose target is not in contexts.
func (g *Bag) DiscardUnused(contexts []Context) {
	for _, top := range g.Breakpoints() {
		top.DiscardUnused(contexts)
	}
}

func (g *Bag) treeChanged() {
	if u := g.env.Updater(); u != nil {
		u.TreeChanged(nil)
	}
}
