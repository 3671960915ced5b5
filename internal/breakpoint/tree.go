package breakpoint

// Parent returns the parent of b, or nil for a toplevel breakpoint.
func (b *Breakpoint) Parent() *Breakpoint {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.parent
}

// Children returns a snapshot of the children of b.
func (b *Breakpoint) Children() []*Breakpoint {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]*Breakpoint(nil), b.children...)
}

// NChildren returns the number of children of b.
func (b *Breakpoint) NChildren() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.children)
}

// NBoundChildren returns the number of children bound to a debugger.
func (b *Breakpoint) NBoundChildren() int {
	n := 0
	for _, c := range b.Children() {
		if c.IsBound() {
			n++
		}
	}
	return n
}

// IsOnlyChild reports whether b has no siblings.
func (b *Breakpoint) IsOnlyChild() bool {
	p := b.Parent()
	return p != nil && p.NChildren() == 1
}

// Debugger returns the debugger b is bound to. Toplevel breakpoints are
// never bound.
func (b *Breakpoint) Debugger() Debugger {
	if b.IsToplevel() {
		return nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.debugger
}

func (b *Breakpoint) setDebugger(d Debugger) {
	assert(!b.IsToplevel(), "setDebugger on toplevel breakpoint")
	b.mu.Lock()
	b.debugger = d
	b.mu.Unlock()
}

// IsBound reports whether b is bound to a debugger. Unbound midlevel and
// sub breakpoints are ghosts of an ended session.
func (b *Breakpoint) IsBound() bool {
	return b.Debugger() != nil
}

// IsCurrent reports whether b is bound to the current session's debugger.
func (b *Breakpoint) IsCurrent() bool {
	d := b.Debugger()
	return d != nil && d == b.environment().CurrentDebugger()
}

// findCurrent returns the midlevel breakpoint of b's family that belongs to
// the current session.
func (b *Breakpoint) findCurrent() *Breakpoint {
	current := b.environment().CurrentDebugger()
	switch b.level {
	case Toplevel:
		for _, c := range b.Children() {
			if c.Debugger() == current {
				return c
			}
		}
		return nil
	case Midlevel:
		if current != nil && b.Debugger() == current {
			return b
		}
		return nil
	default:
		if p := b.Parent(); p != nil {
			return p.findCurrent()
		}
		return nil
	}
}

// Handler returns the handler bound to b, or nil.
func (b *Breakpoint) Handler() *Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.handler
}

// HasHandler reports whether b has a handler acknowledged by its engine.
// Editable copies answer for their original.
func (b *Breakpoint) HasHandler() bool {
	if orig := b.Original(); orig != nil {
		return orig.HasHandler()
	}
	h := b.Handler()
	return h != nil && h.ID() != 0
}

// setHandler binds or, with nil, unbinds the handler of b.
func (b *Breakpoint) setHandler(h *Handler) {
	assert(!b.IsToplevel(), "setting a handler on a toplevel breakpoint")
	b.mu.Lock()
	b.handler = h
	b.mu.Unlock()
	if h == nil {
		b.setID(0)
		return
	}
	b.setID(h.ID())
	b.Update()
}

// attach assigns env and bag to the subtree rooted at b.
func (b *Breakpoint) attach(env Env, bag *Bag) {
	b.mu.Lock()
	b.env = env
	b.bag = bag
	children := append([]*Breakpoint(nil), b.children...)
	b.mu.Unlock()
	for _, c := range children {
		c.attach(env, bag)
	}
}

func (b *Breakpoint) setParent(parent *Breakpoint) {
	assert(parent != nil, "nil parent")
	switch b.level {
	case Midlevel:
		assert(parent.IsToplevel(), "midlevel parent must be toplevel")
	case SubBreakpoint:
		assert(parent.IsMidlevel(), "sub-breakpoint parent must be midlevel")
	default:
		assert(false, "toplevel breakpoints have no parent")
	}
	parent.mu.RLock()
	env, bag := parent.env, parent.bag
	parent.mu.RUnlock()

	b.mu.Lock()
	b.parent = parent
	b.env = env
	b.bag = bag
	b.mu.Unlock()
}

func (b *Breakpoint) appendChild(child *Breakpoint) {
	b.mu.Lock()
	b.children = append(b.children, child)
	b.mu.Unlock()
}

// removeChild detaches child from b. debugger must be the child's binding.
func (b *Breakpoint) removeChild(child *Breakpoint, d Debugger) {
	assert(b.IsToplevel() || b.IsMidlevel(), "removeChild on sub-breakpoint")
	assert(child != nil, "removeChild: nil child")
	assert(child.Debugger() == d, "removeChild: child not associated with debugger or removed twice")

	b.mu.Lock()
	for i, c := range b.children {
		if c == child {
			b.children = append(b.children[:i:i], b.children[i+1:]...)
			break
		}
	}
	b.mu.Unlock()

	if b.NChildren() > 0 {
		b.setEnabled(b.recalculateIsEnabled())
	}
	b.UpdateAndParent()
}

// SetMidBreakpointFor adds mid as the instance of toplevel b for debugger d.
func (b *Breakpoint) SetMidBreakpointFor(mid *Breakpoint, d Debugger) {
	assert(b.IsToplevel(), "SetMidBreakpointFor on %s breakpoint", b.level)
	assert(!b.IsEditable(), "SetMidBreakpointFor: cannot add to editable breakpoint")
	assert(mid != nil && mid.IsMidlevel(), "SetMidBreakpointFor: not a midlevel breakpoint")
	assert(d != nil, "SetMidBreakpointFor: nil debugger")
	assert(mid.Debugger() == nil, "SetMidBreakpointFor: midlevel already bound")

	b.mu.Lock()
	b.deletingChildren = false
	b.mu.Unlock()

	mid.setContext(DebuggerContext(d))
	mid.setParent(b)
	mid.setDebugger(d)
	b.appendChild(mid)

	b.setEnabled(b.recalculateIsEnabled())
	mid.UpdateAndParent()
}

// AddSubBreakpoint adds sub under midlevel b, bound to debugger d.
func (b *Breakpoint) AddSubBreakpoint(sub *Breakpoint, d Debugger) {
	assert(b.IsMidlevel(), "AddSubBreakpoint on %s breakpoint", b.level)
	assert(!b.IsEditable(), "AddSubBreakpoint: cannot add to editable breakpoint")
	assert(sub != nil && sub.IsSubBreakpoint(), "AddSubBreakpoint: not a sub-breakpoint")

	b.mu.Lock()
	b.deletingChildren = false
	b.mu.Unlock()

	sub.setContext(b.Context())
	sub.setParent(b)
	sub.setDebugger(d)
	b.appendChild(sub)

	b.setEnabled(b.recalculateIsEnabled())
	sub.UpdateAndParent()
}

// RestoringChild adds a decoded child to a decoded parent. The child
// arrives unbound.
func (b *Breakpoint) RestoringChild(child *Breakpoint) {
	b.mu.RLock()
	restored := b.restored
	b.mu.RUnlock()
	child.mu.RLock()
	childRestored := child.restored
	child.mu.RUnlock()
	assert(restored && childRestored, "RestoringChild on breakpoints that were not restored")

	switch b.level {
	case Toplevel:
		assert(child.IsMidlevel(), "toplevel breakpoints restore midlevel children")
	case Midlevel:
		assert(child.IsSubBreakpoint(), "midlevel breakpoints restore sub-breakpoints")
	default:
		assert(false, "sub-breakpoints have no children")
	}
	child.setDebugger(nil)
	child.setParent(b)
	b.appendChild(child)
}

// BindTo binds a ghost midlevel or sub breakpoint to debugger d.
func (b *Breakpoint) BindTo(d Debugger) {
	assert(b.IsMidlevel() || b.IsSubBreakpoint(), "BindTo on toplevel breakpoint")
	cur := b.Debugger()
	assert(cur == nil || cur == d, "BindTo: already bound to another debugger")
	b.setContext(DebuggerContext(d))
	b.setDebugger(d)
	b.UpdateAndParent()
}

// Unbind turns a midlevel breakpoint and its children into ghosts. The
// context is kept.
func (b *Breakpoint) Unbind() {
	assert(b.IsMidlevel(), "Unbind on %s breakpoint", b.level)
	for _, c := range b.Children() {
		c.setDebugger(nil)
		c.setHandler(nil)
		c.Update()
	}
	b.setDebugger(nil)
	b.Update()
}

// MidlevelFor returns the child of toplevel b bound to d, or nil.
func (b *Breakpoint) MidlevelFor(d Debugger) *Breakpoint {
	assert(b.IsToplevel(), "MidlevelFor on %s breakpoint", b.level)
	if orig := b.Original(); orig != nil {
		return orig.MidlevelFor(d)
	}
	if d == nil {
		return nil
	}
	for _, c := range b.Children() {
		if c.Debugger() == d {
			return c
		}
	}
	return nil
}

// FindByContext returns the children of toplevel b whose context matches
// ctx. Children that match an earlier result as siblings are skipped.
func (b *Breakpoint) FindByContext(ctx Context) []*Breakpoint {
	assert(b.IsToplevel(), "FindByContext on %s breakpoint", b.level)
	var matches []*Breakpoint
	for _, c := range b.Children() {
		if !c.Context().Matches(ctx) {
			continue
		}
		dup := false
		for _, m := range matches {
			if c.matchesSibling(m) {
				dup = true
				break
			}
		}
		if !dup {
			matches = append(matches, c)
		}
	}
	return matches
}

// IsUnique reports whether midlevel b differs enough from its template
// and siblings that it cannot be recreated from them. Non-unique ghosts are
// culled on session exit.
func (b *Breakpoint) IsUnique() bool {
	assert(b.IsMidlevel(), "IsUnique on %s breakpoint", b.level)
	top := b.Parent()
	if b.IsAdjusted() {
		return true
	}
	if b.environment().GhostBuster() && b.matchesTemplate(top) {
		return false
	}
	for _, sibling := range top.Children() {
		if sibling == b {
			continue
		}
		if b.matchesSibling(sibling) {
			return false
		}
	}
	return true
}

// IsUniqueLite reports whether midlevel b differs from its template. It
// decides whether b may be collapsed into its parent for display.
func (b *Breakpoint) IsUniqueLite() bool {
	assert(b.IsMidlevel(), "IsUniqueLite on %s breakpoint", b.level)
	if b.IsAdjusted() {
		return true
	}
	return !b.matchesTemplate(b.Parent())
}

// matchesTemplate reports whether b can be re-instantiated from toplevel top
// in a new session.
func (b *Breakpoint) matchesTemplate(top *Breakpoint) bool {
	assert(top != nil && top.IsToplevel(), "matchesTemplate: template is not toplevel")
	if b.IsMidlevel() {
		for _, c := range b.Children() {
			if !c.matchesTemplate(top) {
				return false
			}
		}
		return true
	}
	enableDiff := b.environment().EnableDifferentiates()
	return b.equalBy(top, func(p Property) bool {
		if p.def.name == PropEnabled {
			return enableDiff
		}
		if p.def.name == PropContext || p.isQualified() || p.isDefining() {
			return false
		}
		return p.IsDifferentiating()
	})
}

// matchesSibling reports whether two breakpoints of one family are similar
// enough that one of them is redundant.
func (b *Breakpoint) matchesSibling(that *Breakpoint) bool {
	if b.kind != that.kind {
		return false
	}
	if b.IsMidlevel() {
		these, those := b.Children(), that.Children()
		if len(these) != len(those) {
			return false
		}
		for i := range these {
			if !these[i].matchesSibling(those[i]) {
				return false
			}
		}
		return true
	}
	env := b.environment()
	enableDiff, ghostBuster := env.EnableDifferentiates(), env.GhostBuster()
	return b.equalBy(that, func(p Property) bool {
		if p.def.name == PropEnabled && enableDiff {
			return true
		}
		if p.def.name == PropContext && ghostBuster {
			return false
		}
		return p.IsDifferentiating()
	})
}

// equalBy compares the properties of b and that for which compare returns
// true.
func (b *Breakpoint) equalBy(that *Breakpoint, compare func(Property) bool) bool {
	these, those := b.Properties(), that.Properties()
	for _, p := range these {
		if !compare(p) {
			continue
		}
		matched := false
		for _, o := range those {
			if o.def.name == p.def.name {
				matched = p.Matches(o)
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// copyFrom replaces the properties of b with those of the editable that.
// Toplevel breakpoints keep their context. The engine id is owned by the
// handler and is kept as well.
func (b *Breakpoint) copyFrom(that *Breakpoint) {
	assert(b.kind == that.kind, "copyFrom: mismatched kinds %s and %s", b.kind, that.kind)
	assert(that.IsEditable(), "copyFrom: source is not editable")
	keepContext := b.IsToplevel() || that.IsToplevel()
	ctx, id := b.Context(), b.ID()
	b.copyFromHelp(that)
	b.setID(id)
	if keepContext {
		b.setContext(ctx)
	}
}

func (b *Breakpoint) copyFromHelp(that *Breakpoint) {
	that.mu.RLock()
	timestamp, updateTS, outOfSync := that.timestamp, that.updateTimestamp, that.srcOutOfSync
	src := append([]Property(nil), that.props...)
	that.mu.RUnlock()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.timestamp = timestamp
	b.updateTimestamp = updateTS
	b.srcOutOfSync = outOfSync
	for _, p := range src {
		if i := b.index(p.def.name); i >= 0 {
			b.props[i].value = p.value
		}
	}
	if i := b.index(PropAdjusted); i >= 0 {
		b.props[i].value = false
	}
}

// MakeEditableCopy returns a detached copy of b for the user to edit. The
// copy remembers b as its original and never notifies.
func (b *Breakpoint) MakeEditableCopy() *Breakpoint {
	b.mu.RLock()
	d, parent := b.debugger, b.parent
	b.mu.RUnlock()

	e := newNode(b.kind, b.level)
	e.mu.Lock()
	e.debugger = d
	e.parent = parent
	e.original = b
	e.mu.Unlock()
	e.copyFromHelp(b)
	return e
}

// MakeMidlevelCopy returns a new midlevel breakpoint instantiated from
// toplevel b.
func (b *Breakpoint) MakeMidlevelCopy() *Breakpoint {
	assert(b.IsToplevel(), "MakeMidlevelCopy on %s breakpoint", b.level)
	return b.copyAt(Midlevel)
}

// MakeSubBreakpointCopy returns a new sub-breakpoint instantiated from
// midlevel b.
func (b *Breakpoint) MakeSubBreakpointCopy() *Breakpoint {
	assert(b.IsMidlevel(), "MakeSubBreakpointCopy on %s breakpoint", b.level)
	return b.copyAt(SubBreakpoint)
}

// MakeToplevelCopy returns a new toplevel template from sub-breakpoint b.
func (b *Breakpoint) MakeToplevelCopy() *Breakpoint {
	assert(b.IsSubBreakpoint(), "MakeToplevelCopy on %s breakpoint", b.level)
	t := b.copyAt(Toplevel)
	t.setContext(Context{})
	return t
}

func (b *Breakpoint) copyAt(level Level) *Breakpoint {
	c := newNode(b.kind, level)
	c.copyFromHelp(b)
	c.setID(0)
	c.setValue(PropCount, 0)
	return c
}
