package breakpoint

import "testing"

func TestDeleteUnboundToplevel(t *testing.T) {
	bag := NewBag(newFakeEnv())
	top := NewLineBreakpoint("/src/main.c", 3)
	bag.Add(top)

	top.PostDelete(false, Primary(top))

	if bag.Len() != 0 {
		t.Errorf("expected empty bag, got %d", bag.Len())
	}
}

func TestDeleteWaitsForEngine(t *testing.T) {
	bag := NewBag(newFakeEnv())
	d := newFakeDebugger("gdb", "/bin/a.out", bag)
	top := NewFunctionBreakpoint("main")
	h := plant(t, bag, d, top)

	gen := Primary(top)
	top.PostDelete(false, gen)

	if len(d.prov.deletes) != 1 || d.prov.deletes[0].h != h {
		t.Fatalf("expected a delete command for the handler, got %d", len(d.prov.deletes))
	}
	if !bag.Contains(top) || top.NChildren() != 1 {
		t.Fatal("tree changed before the engine confirmed")
	}

	// A second request while the first is in flight is absorbed.
	top.PostDelete(false, gen)
	if len(d.prov.deletes) != 1 {
		t.Errorf("duplicate delete posted, %d total", len(d.prov.deletes))
	}

	if err := d.table.NoteDeleted(h.ID(), gen.Reply()); err != nil {
		t.Fatal(err)
	}
	if bag.Contains(top) {
		t.Error("toplevel survived the deletion of its only instance")
	}
	if h.State() != StateCleanedUp {
		t.Errorf("expected cleaned-up handler, got %s", h.State())
	}
	if d.table.Len() != 0 {
		t.Errorf("expected empty handler table, got %d", d.table.Len())
	}
}

func TestEngineDeleteSpreadsInGlobalMode(t *testing.T) {
	env := newFakeEnv()
	env.perTarget = false
	top := NewFunctionBreakpoint("main")
	bag, d1, d2 := twoSessions(t, env, top)
	sub1 := subIn(t, top, d1)

	if err := d1.table.NoteDeleted(sub1.ID(), Primary(nil)); err != nil {
		t.Fatal(err)
	}
	if top.MidlevelFor(d1) != nil {
		t.Fatal("instance of the originating engine not removed")
	}
	if len(d2.prov.deletes) != 1 {
		t.Fatalf("expected the deletion spread, got %d commands", len(d2.prov.deletes))
	}
	call := d2.prov.deletes[0]
	if !call.gen.IsSecondary() {
		t.Errorf("expected secondary spread, got %s", call.gen)
	}

	if err := d2.table.NoteDeleted(call.h.ID(), call.gen.Reply()); err != nil {
		t.Fatal(err)
	}
	if bag.Len() != 0 {
		t.Errorf("expected empty bag, got %d", bag.Len())
	}
	if len(d1.prov.deletes) != 0 {
		t.Errorf("originating engine got %d delete commands", len(d1.prov.deletes))
	}
}

func TestEngineDeleteStaysLocalPerTarget(t *testing.T) {
	env := newFakeEnv()
	env.perTarget = false
	top := NewFunctionBreakpoint("main")
	bag, d1, d2 := twoSessions(t, env, top)
	env.perTarget = true
	sub1 := subIn(t, top, d1)

	if err := d1.table.NoteDeleted(sub1.ID(), Primary(nil)); err != nil {
		t.Fatal(err)
	}
	if len(d2.prov.deletes) != 0 {
		t.Errorf("deletion spread to another target")
	}
	if !bag.Contains(top) || top.NChildren() != 1 || top.MidlevelFor(d2) == nil {
		t.Error("other target's instance should survive")
	}
}

func TestDeleteOnlyChildGhost(t *testing.T) {
	bag := NewBag(newFakeEnv())
	top, mid := restoredTree("/src/main.c", 12, "/bin/a.out", 1)
	bag.Restore(top)

	mid.PostDelete(false, Primary(mid))

	if !bag.Contains(top) {
		t.Fatal("deleting a ghost must keep its template")
	}
	if top.NChildren() != 0 {
		t.Errorf("expected no children, got %d", top.NChildren())
	}
}

func TestDeleteFromToplevelTakesGhosts(t *testing.T) {
	bag := NewBag(newFakeEnv())
	top, _ := restoredTree("/src/main.c", 12, "/bin/a.out", 1)
	bag.Restore(top)

	top.PostDelete(false, Primary(top))

	if bag.Len() != 0 {
		t.Errorf("expected empty bag, got %d", bag.Len())
	}
}

func TestDeleteOverloadMarksAdjusted(t *testing.T) {
	bag := NewBag(newFakeEnv())
	top, mid := restoredTree("/src/main.c", 12, "/bin/a.out", 2)
	bag.Restore(top)

	mid.Children()[1].PostDelete(false, Primary(nil))

	if mid.NChildren() != 1 {
		t.Fatalf("expected one overload left, got %d", mid.NChildren())
	}
	if !mid.IsAdjusted() || !mid.IsUniqueLite() {
		t.Error("trimming the overload list should mark the parent adjusted")
	}
}

func TestPostDeleteKeepParentOnToplevel(t *testing.T) {
	top := NewFunctionBreakpoint("main")
	expectViolation(t, "keepParent", func() { top.PostDelete(true, Primary(top)) })
}

func TestDiscardUnused(t *testing.T) {
	bag := NewBag(newFakeEnv())
	keep, _ := restoredTree("/src/main.c", 12, "/bin/a.out", 1)
	drop, _ := restoredTree("/src/util.c", 40, "/bin/old", 1)
	lone := NewLineBreakpoint("/src/lone.c", 1)
	bag.Restore(keep, drop)
	bag.Add(lone)

	bag.DiscardUnused([]Context{{Executable: "/bin/a.out"}})

	if !bag.Contains(keep) || keep.NChildren() != 1 {
		t.Error("ghost of a known target discarded")
	}
	if bag.Contains(drop) {
		t.Error("toplevel of an unknown target kept")
	}
	if bag.Contains(lone) {
		t.Error("childless toplevel kept")
	}
}
