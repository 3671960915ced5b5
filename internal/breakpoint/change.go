package breakpoint

// spread selects which family members a validated change reaches.
type spread int

const (
	// spreadSelf changes only the edited sub-breakpoint.
	spreadSelf spread = iota
	// spreadOverload changes the siblings of an overloaded breakpoint.
	spreadOverload
	// spreadAll changes the instances in other sessions as well.
	spreadAll
)

// IsChangeInDefiningProperty reports whether an edit touched a property
// that determines where the breakpoint is planted.
func (b *Breakpoint) IsChangeInDefiningProperty() bool {
	assert(b.IsEditable(), "IsChangeInDefiningProperty on non-editable breakpoint")
	for _, p := range b.Properties() {
		if p.dirty && p.isDefining() {
			return true
		}
	}
	return false
}

// inheritQualified copies the qualified properties of from into the
// editable b where b did not edit them.
func (b *Breakpoint) inheritQualified(from *Breakpoint) {
	src := from.Properties()
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range src {
		if !p.isQualified() {
			continue
		}
		if i := b.index(p.def.name); i >= 0 && !b.props[i].dirty {
			b.props[i].value = p.value
		}
	}
}

// PostChange applies the edits in the editable copy edited to b and its
// family. Bound sub-breakpoints are changed through their engine and
// spread once the engine confirms.
func (b *Breakpoint) PostChange(edited *Breakpoint, gen Gen) {
	assert(edited.IsEditable(), "PostChange: passed in breakpoint isn't editable")
	assert(edited.IsDirty(), "PostChange: passed in breakpoint isn't dirty")

	switch b.level {
	case Toplevel:
		children := b.Children()
		if len(children) == 0 {
			b.ChangeOne(edited, gen)
			return
		}
		rep := b.MidlevelFor(b.environment().CurrentDebugger())
		if rep == nil {
			rep = children[0]
		}
		rep.PostChange(edited, gen)

	case Midlevel:
		children := b.Children()
		if len(children) == 0 {
			b.ChangeOne(edited, gen)
			return
		}
		rep := children[0]
		rep.ChangeOne(edited, gen)
		if !b.IsBound() {
			b.SpreadChange(rep, edited, gen)
		}

	default:
		orig := edited.Original()
		assert(orig != nil && orig.IsSubBreakpoint(), "PostChange called recursively on sub-breakpoint")
		b.ChangeOne(edited, gen)
		if !b.IsBound() {
			b.Parent().SpreadChange(b, edited, gen)
		}
	}
}

// ChangeOne applies edited to b alone. A bound sub-breakpoint is changed by
// its engine; the reply comes back through HandlerTable.NoteReplaced.
func (b *Breakpoint) ChangeOne(edited *Breakpoint, gen Gen) {
	if !edited.IsChangeInDefiningProperty() {
		edited.inheritQualified(b)
	}

	switch b.level {
	case Toplevel:
		b.copyFrom(edited)
		b.markTimestamp()
		b.Update()
	case Midlevel:
		b.copyFrom(edited)
		b.markTimestamp()
		b.UpdateAndParent()
	default:
		if d := b.Debugger(); d != nil {
			PostChange(d, b, edited, gen)
			return
		}
		b.copyFrom(edited)
		b.markTimestamp()
		b.UpdateAndParent()
	}
}

// SpreadChange spreads a change described by edited, already validated on
// the sub-breakpoint validated, to the rest of the family of midlevel b.
func (b *Breakpoint) SpreadChange(validated, edited *Breakpoint, gen Gen) {
	assert(b.IsMidlevel(), "SpreadChange can only be applied to midlevel breakpoints")
	assert(validated.IsSubBreakpoint(), "SpreadChange: validated is not a sub-breakpoint")
	assert(validated.Parent() == b, "SpreadChange: not the parent of validated")

	orig := edited.Original()
	defining := edited.IsChangeInDefiningProperty()

	var how spread
	switch {
	case orig != nil && orig.IsSubBreakpoint():
		how = spreadSelf
		if defining {
			how = spreadAll
		}
	case orig != nil && orig.IsMidlevel():
		how = spreadOverload
		if defining {
			how = spreadAll
		}
	default:
		how = spreadAll
	}

	parent := b.Parent()
	switch how {
	case spreadSelf:
		if b.NChildren() == 1 {
			b.ChangeOne(edited, gen)
			if b.IsOnlyChild() {
				parent.ChangeOne(edited, gen)
			}
		}

	case spreadOverload:
		if gen.IsTertiary() {
			return
		}
		b.ChangeOne(edited, gen)
		if b.IsOnlyChild() {
			parent.ChangeOne(edited, gen)
		}
		b.changeAllButTo(validated, edited, gen)

	case spreadAll:
		if defining {
			b.clearOldOverloaded(gen)
		}
		if gen.IsTertiary() {
			return
		}
		b.ChangeOne(edited, gen)
		if !defining {
			b.changeAllButTo(validated, edited, gen)
		}
		if gen.IsSecondary() {
			return
		}
		parent.ChangeOne(edited, gen)
		parent.changeAllButTo(b, edited, gen)
	}
}

// changeAllButTo applies edited to every child of b except exclude. A
// toplevel parent re-posts to its other sessions at the second generation;
// a midlevel parent reaches overloads at the third.
func (b *Breakpoint) changeAllButTo(exclude, edited *Breakpoint, gen Gen) {
	switch b.level {
	case Toplevel:
		for _, c := range b.Children() {
			if c == exclude {
				continue
			}
			c.PostChange(edited, gen.Second())
		}
	case Midlevel:
		for _, c := range b.Children() {
			if c == exclude {
				continue
			}
			c.ChangeOne(edited, gen.Third())
		}
	default:
		assert(false, "changeAllButTo on sub-breakpoint")
	}
}

// clearOldOverloaded deletes every child but the first.
func (b *Breakpoint) clearOldOverloaded(gen Gen) {
	assert(b.IsMidlevel(), "clearOldOverloaded on %s breakpoint", b.level)
	children := b.Children()
	for _, c := range children[min(1, len(children)):] {
		c.PostDelete(false, gen.Third())
	}
}
