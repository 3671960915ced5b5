package breakpoint

import (
	"errors"
	"testing"
)

func TestPostNewHandlerWithoutDebugger(t *testing.T) {
	env := newFakeEnv()
	bag := NewBag(env)
	nb := NewLineBreakpoint("/src/main.c", 12)

	PostNewHandler(bag, nil, nb, nb.RoutingToken())

	bpts := bag.Breakpoints()
	count := 0
	for _, b := range bpts {
		if b == nb {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected breakpoint in bag exactly once, got %d", count)
	}
	if nb.NChildren() != 0 {
		t.Errorf("expected no children, got %d", nb.NChildren())
	}
	if nb.Handler() != nil {
		t.Error("expected no handler")
	}
	if env.updater.treeCount() == 0 {
		t.Error("expected a tree refresh after adding")
	}
}

func TestPostNewHandlerNotLive(t *testing.T) {
	bag := NewBag(newFakeEnv())
	d := newFakeDebugger("gdb", "/bin/a.out", bag)
	d.live = false
	nb := NewFunctionBreakpoint("main")

	PostNewHandler(bag, d, nb, nb.RoutingToken())

	if bag.Len() != 0 {
		t.Errorf("expected empty bag, got %d", bag.Len())
	}
	if len(d.prov.creates) != 0 {
		t.Errorf("expected no create command, got %d", len(d.prov.creates))
	}
	if d.table.Pending(nb.RoutingToken()) {
		t.Error("no request should be pending")
	}
}

func TestPostNewHandlerLive(t *testing.T) {
	bag := NewBag(newFakeEnv())
	d := newFakeDebugger("gdb", "/bin/a.out", bag)
	nb := NewLineBreakpoint("/src/main.c", 12)
	rt := nb.RoutingToken()

	PostNewHandler(bag, d, nb, rt)

	if len(d.prov.creates) != 1 {
		t.Fatalf("expected 1 create command, got %d", len(d.prov.creates))
	}
	if cmd := d.prov.creates[0]; cmd.Op != OpCreate || cmd.Attrs[PropFile] != "/src/main.c" {
		t.Errorf("unexpected command %+v", cmd)
	}
	if bag.Len() != 0 {
		t.Fatal("breakpoint must not enter the bag before the engine replies")
	}

	h, err := d.table.NoteNew(rt, 3, map[string]string{PropLine: "14"})
	if err != nil {
		t.Fatalf("NoteNew failed: %v", err)
	}
	if !bag.Contains(nb) {
		t.Fatal("expected breakpoint in bag after reply")
	}
	if h.State() != StateBound {
		t.Errorf("expected bound, got %s", h.State())
	}
	mid := nb.MidlevelFor(d)
	if mid == nil || mid.NChildren() != 1 {
		t.Fatalf("expected one midlevel child with one sub-breakpoint")
	}
	sub := mid.Children()[0]
	if sub.Handler() != h || sub.ID() != 3 {
		t.Errorf("sub-breakpoint not bound to handler 3")
	}
	if got := sub.Value(PropLine); got != 14 {
		t.Errorf("expected engine-adjusted line 14, got %v", got)
	}
	if d.table.Find(3) != h {
		t.Error("handler not registered under its id")
	}
	if _, err := d.table.NoteNew(rt, 4, nil); !errors.Is(err, ErrPlanNotFound) {
		t.Errorf("expected ErrPlanNotFound for a second reply, got %v", err)
	}
}

func TestNewHandlerRequiresArguments(t *testing.T) {
	bag := NewBag(newFakeEnv())
	d := newFakeDebugger("gdb", "/bin/a.out", bag)
	expectViolation(t, "nil debugger", func() { NewHandler(nil, NewRestored(KindLine, SubBreakpoint)) })
	expectViolation(t, "nil breakpoint", func() { NewHandler(d, nil) })
	expectViolation(t, "toplevel", func() { NewHandler(d, NewFunctionBreakpoint("f")) })
}

func TestSetFiredIsIdempotent(t *testing.T) {
	env := newFakeEnv()
	bag := NewBag(env)
	d := newFakeDebugger("gdb", "/bin/a.out", bag)
	h := plant(t, bag, d, NewFunctionBreakpoint("main"))
	sub := h.Breakpoint()

	env.updater.reset()
	h.SetFired(true)
	h.SetFired(true)

	if n := env.updater.nodeCount(sub); n != 1 {
		t.Errorf("expected 1 refresh of the sub-breakpoint, got %d", n)
	}
	if n := env.updater.nodeCount(sub.Parent()); n != 1 {
		t.Errorf("expected 1 refresh of the parent, got %d", n)
	}
	if n := env.updater.treeCount(); n != 1 {
		t.Errorf("expected 1 tree refresh, got %d", n)
	}
	if !sub.IsFired() || !sub.Parent().IsFired() {
		t.Error("fired state not visible through the tree")
	}

	h.SetFired(false)
	if n := env.updater.nodeCount(sub); n != 2 {
		t.Errorf("expected a refresh on change, got %d total", n)
	}
}

func TestHandlerStateMachine(t *testing.T) {
	env := newFakeEnv()
	bag := NewBag(env)
	d := newFakeDebugger("gdb", "/bin/a.out", bag)
	top, mid := restoredTree("/src/main.c", 12, "/bin/a.out", 1)
	bag.Restore(top)
	sub := mid.Children()[0]

	d.table.PostRestore(mid)
	h := sub.Handler()
	if h == nil {
		t.Fatal("expected a pending handler on the ghost")
	}
	if h.State() != StatePending {
		t.Fatalf("expected pending, got %s", h.State())
	}
	if sub.DisplayName() != AddingBreakpoint {
		t.Errorf("expected %q, got %q", AddingBreakpoint, sub.DisplayName())
	}

	if _, err := d.table.NoteNew(mid.RoutingToken(), 9, nil); err != nil {
		t.Fatalf("NoteNew failed: %v", err)
	}
	if h.State() != StateBound {
		t.Fatalf("expected bound, got %s", h.State())
	}
	if !mid.IsBound() || !sub.IsBound() {
		t.Error("ghost not rebound")
	}

	if err := d.table.NoteError(9, "no such line"); err != nil {
		t.Fatal(err)
	}
	if h.State() != StateBroken {
		t.Fatalf("expected broken, got %s", h.State())
	}
	if !sub.IsBroken() || !mid.IsBroken() {
		t.Error("error not visible through the tree")
	}
	if got := sub.ShortDescription(); got != "main.c:12 (no such line)" {
		t.Errorf("unexpected short description %q", got)
	}

	h.SetError("")
	if h.State() != StateBound {
		t.Fatalf("expected bound after clearing error, got %s", h.State())
	}

	h.SetDefunct(true)
	if h.Error() != DefunctError {
		t.Errorf("expected defunct error, got %q", h.Error())
	}

	h.Cleanup()
	h.Cleanup()
	if h.State() != StateCleanedUp {
		t.Fatalf("expected cleaned up, got %s", h.State())
	}
	if sub.Handler() != nil || sub.ID() != 0 {
		t.Error("cleanup did not release the breakpoint")
	}
	h.SetFired(true)
	h.SetEnabled(false)
	if !sub.IsEnabled() {
		t.Error("state pulls after cleanup must be no-ops")
	}
}

func TestPostEnableWithoutEngineAppliesLocally(t *testing.T) {
	bag := NewBag(newFakeEnv())
	d := newFakeDebugger("gdb", "/bin/a.out", bag)
	top, mid := restoredTree("/src/main.c", 12, "/bin/a.out", 1)
	bag.Restore(top)
	sub := mid.Children()[0]
	h := NewHandler(d, sub)

	h.PostEnable(false, sub.RoutingToken())

	if sub.IsEnabled() {
		t.Error("expected local disable")
	}
	if mid.IsEnabled() || top.IsEnabled() {
		t.Error("parents should summarize the disabled child")
	}
	if len(d.prov.enables) != 0 {
		t.Errorf("expected no engine command, got %d", len(d.prov.enables))
	}
}

func TestPostEnableWaitsForEngine(t *testing.T) {
	bag := NewBag(newFakeEnv())
	d := newFakeDebugger("gdb", "/bin/a.out", bag)
	top := NewFunctionBreakpoint("main")
	h := plant(t, bag, d, top)
	sub := h.Breakpoint()

	sub.SetPropEnabled(false)

	if !sub.IsEnabled() {
		t.Fatal("visible state changed before the engine replied")
	}
	if len(d.prov.enables) != 1 {
		t.Fatalf("expected 1 enable command, got %d", len(d.prov.enables))
	}
	call := d.prov.enables[0]
	if call.enable || !call.gen.IsPrimary() || call.h != h {
		t.Fatalf("unexpected enable command %+v", call)
	}

	if err := d.table.NoteEnabled(h.ID(), false, call.gen.Reply()); err != nil {
		t.Fatal(err)
	}
	if sub.IsEnabled() || top.IsEnabled() {
		t.Error("confirmed disable not applied")
	}
	if !bag.AnyDisabled() || bag.AnyEnabled() {
		t.Error("bag summary out of date")
	}
}

func TestPostChangeRequiresEditable(t *testing.T) {
	bag := NewBag(newFakeEnv())
	d := newFakeDebugger("gdb", "/bin/a.out", bag)
	h := plant(t, bag, d, NewFunctionBreakpoint("main"))
	sub := h.Breakpoint()

	expectViolation(t, "non-editable", func() { PostChange(d, sub, sub, Primary(nil)) })
	expectViolation(t, "SetProperty", func() { _ = sub.SetProperty(PropCondition, "x > 1") })
}

func TestPostChangeRepairsBrokenTarget(t *testing.T) {
	bag := NewBag(newFakeEnv())
	d := newFakeDebugger("gdb", "/bin/a.out", bag)
	h := plant(t, bag, d, NewFunctionBreakpoint("main"))
	sub := h.Breakpoint()

	edited := sub.MakeEditableCopy()
	if err := edited.SetProperty(PropCondition, "argc > 1"); err != nil {
		t.Fatal(err)
	}
	PostChange(d, sub, edited, Primary(nil))
	if len(d.prov.changes) != 1 || len(d.prov.repairs) != 0 {
		t.Fatalf("expected a change, got %d changes and %d repairs", len(d.prov.changes), len(d.prov.repairs))
	}
	if d.prov.changes[0].cmd.ID != h.ID() || d.prov.changes[0].cmd.Attrs[PropCondition] != "argc > 1" {
		t.Errorf("unexpected change command %+v", d.prov.changes[0].cmd)
	}

	h.SetError("bad condition")
	PostChange(d, sub, edited, Primary(nil))
	if len(d.prov.repairs) != 1 || d.prov.repairs[0].cmd.Op != OpRepair {
		t.Fatalf("expected the broken target to be repaired, got %d repairs", len(d.prov.repairs))
	}

	if err := d.table.NoteReplaced(sub.RoutingToken(), 42); err != nil {
		t.Fatalf("NoteReplaced failed: %v", err)
	}
	if h.ID() != 42 || d.table.Find(42) != h || d.table.Find(1) != nil {
		t.Error("replaced handler not re-registered under its new id")
	}
	if h.State() != StateBound {
		t.Errorf("expected repair to clear the error, got %s", h.State())
	}
	if sub.Condition() != "argc > 1" {
		t.Errorf("expected condition applied, got %q", sub.Condition())
	}
}

func TestNoteChangeErrorBreaksTarget(t *testing.T) {
	bag := NewBag(newFakeEnv())
	d := newFakeDebugger("gdb", "/bin/a.out", bag)
	h := plant(t, bag, d, NewFunctionBreakpoint("main"))
	sub := h.Breakpoint()

	edited := sub.MakeEditableCopy()
	_ = edited.SetProperty(PropCondition, "(((")
	PostChange(d, sub, edited, Primary(nil))

	if err := d.table.NoteChangeError(sub.RoutingToken(), "syntax error"); err != nil {
		t.Fatal(err)
	}
	if h.State() != StateBroken {
		t.Errorf("expected broken, got %s", h.State())
	}
	if sub.Condition() != "" {
		t.Errorf("rejected change must not be applied, got %q", sub.Condition())
	}
}

func TestNoteHitMovesFiredState(t *testing.T) {
	bag := NewBag(newFakeEnv())
	d := newFakeDebugger("gdb", "/bin/a.out", bag)
	h1 := plant(t, bag, d, NewFunctionBreakpoint("main"))
	h2 := plant(t, bag, d, NewFunctionBreakpoint("exit"))

	if err := d.table.NoteHit(h1.ID(), 1); err != nil {
		t.Fatal(err)
	}
	if !h1.IsFired() || h2.IsFired() {
		t.Fatal("expected only the first handler fired")
	}
	if err := d.table.NoteHit(h2.ID(), 1); err != nil {
		t.Fatal(err)
	}
	if h1.IsFired() || !h2.IsFired() {
		t.Fatal("expected only the second handler fired")
	}
	if h2.Breakpoint().Count() != 1 || h2.Breakpoint().Parent().Count() != 1 {
		t.Error("count not propagated to the only-child parent")
	}
	d.table.NoteResumed()
	if h2.IsFired() {
		t.Error("resume should clear fired state")
	}
	if err := d.table.NoteHit(999, 1); !errors.Is(err, ErrHandlerNotFound) {
		t.Errorf("expected ErrHandlerNotFound, got %v", err)
	}
}

func TestNoteCountLimitClearResetsCount(t *testing.T) {
	bag := NewBag(newFakeEnv())
	d := newFakeDebugger("gdb", "/bin/a.out", bag)
	h := plant(t, bag, d, NewFunctionBreakpoint("main"))
	sub := h.Breakpoint()

	_ = d.table.NoteHit(h.ID(), 5)
	if err := d.table.NoteCountLimit(h.ID(), 10, true); err != nil {
		t.Fatal(err)
	}
	if sub.CountLimit() != 10 || !sub.HasCountLimit() {
		t.Errorf("expected count limit 10, got %d", sub.CountLimit())
	}
	_ = d.table.NoteCountLimit(h.ID(), 0, false)
	if sub.HasCountLimit() || sub.Count() != 0 {
		t.Errorf("clearing the limit should reset the count, got %d", sub.Count())
	}
}
