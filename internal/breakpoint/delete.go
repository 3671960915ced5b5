package breakpoint

// beginDeletingChildren sets the deletingChildren guard and reports whether
// it was clear. The guard stops engine acknowledgments, which re-enter
// PostDelete on the parent, from deleting the same children twice.
func (b *Breakpoint) beginDeletingChildren() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.deletingChildren {
		return false
	}
	b.deletingChildren = true
	return true
}

// PostDelete requests deletion of b and its descendants. Bound
// sub-breakpoints are deleted by their engine and removed once it confirms.
// When keepParent is set a parent left without children survives.
func (b *Breakpoint) PostDelete(keepParent bool, gen Gen) {
	switch b.level {
	case Toplevel, Midlevel:
		assert(!(b.IsToplevel() && keepParent), "PostDelete: keepParent doesn't make sense for toplevel")
		children := b.Children()
		if len(children) == 0 {
			b.PrimDelete(keepParent, gen)
			return
		}
		if !b.beginDeletingChildren() {
			return
		}
		for _, c := range children {
			c.PostDelete(false, gen)
		}

	default:
		d := b.Debugger()
		if d == nil {
			b.PrimDelete(keepParent, gen)
			return
		}
		if h := b.Handler(); h != nil && h.ID() != 0 {
			d.Provider().PostDeleteHandler(b.RoutingToken(), h, gen)
			return
		}
		// Never acknowledged by the engine; nothing to delete there.
		b.PrimDelete(keepParent, gen)
	}
}

// PrimDelete removes b from the tree without consulting any engine.
func (b *Breakpoint) PrimDelete(keepParent bool, gen Gen) {
	b.cleanup()

	switch b.level {
	case SubBreakpoint:
		parent := b.Parent()
		if parent == nil {
			return
		}
		// Editing the overload list counts as intervention.
		if parent.NChildren() > 1 {
			parent.SetAdjusted(true)
		}
		parent.removeChild(b, b.Debugger())
		if !keepParent && parent.NChildren() == 0 {
			parent.PrimDelete(keepParent, gen)
		}

	case Midlevel:
		parent := b.Parent()
		if parent == nil {
			return
		}
		if b.IsEnabled() {
			b.removeAnnotations()
		}
		onlyChild := b.IsOnlyChild()
		bound := b.IsBound()
		parent.removeChild(b, b.Debugger())

		// An only-child ghost may go without its parent, unless the
		// deletion came from the parent.
		origin := gen.Origin()
		if onlyChild && !bound && (origin == b || (origin != nil && origin.Parent() == b)) {
			return
		}
		if !onlyChild && b.environment().IsPerTargetBpts() {
			return
		}
		if keepParent {
			return
		}
		if parent.NChildren() == 0 {
			parent.PrimDelete(keepParent, gen)
		} else if gen.IsPrimary() && bound {
			parent.PostDelete(false, gen.Second())
		}

	case Toplevel:
		if b.IsEnabled() {
			b.removeAnnotations()
		}
		b.mu.RLock()
		bag := b.bag
		b.mu.RUnlock()
		if bag != nil {
			bag.Remove(b)
		}
	}
}

// cleanup releases the handler of b, if any.
func (b *Breakpoint) cleanup() {
	if b.IsToplevel() {
		return
	}
	h := b.Handler()
	if h == nil {
		return
	}
	if d := h.Debugger(); d != nil {
		if t := d.Handlers(); t != nil {
			t.forget(h)
		}
	}
	h.Cleanup()
}

// DiscardUnused deletes the ghost midlevel children of toplevel b whose
// context is not in contexts; a nil contexts discards every ghost. A
// childless toplevel is deleted.
func (b *Breakpoint) DiscardUnused(contexts []Context) {
	assert(b.IsToplevel(), "DiscardUnused on %s breakpoint", b.level)
	children := b.Children()
	if len(children) == 0 {
		b.PrimDelete(false, Primary(nil))
		return
	}
	for _, c := range children {
		if contexts != nil && containsContext(contexts, c.Context()) {
			continue
		}
		if c.IsBound() {
			// Culled when its session exits.
			continue
		}
		// A nil origin defeats the only-child ghost special case.
		c.PrimDelete(false, Primary(nil))
	}
}

func containsContext(contexts []Context, c Context) bool {
	for _, x := range contexts {
		if x.Matches(c) {
			return true
		}
	}
	return false
}
