package view

import (
	"errors"
	"testing"

	"github.com/dshills/nativedbg/internal/breakpoint"
)

func TestCollapseSingleGhost(t *testing.T) {
	ctx := newFakeContext()
	bag := breakpoint.NewBag(ctx)
	top, mid := ghost(t, "/src/main.c", "/bin/a.out", 0)
	mid.SetAdjusted(true)
	bag.Restore(top)
	f := NewFilter(ctx, bag)

	roots := f.Roots()
	if len(roots) != 1 {
		t.Fatalf("expected 1 row, got %d", len(roots))
	}
	if got := roots[0].(BreakpointNode).Breakpoint; got != mid {
		t.Fatalf("expected the midlevel child in place of its parent, got %s", got)
	}
	leaf, err := f.IsLeaf(roots[0])
	if err != nil {
		t.Fatal(err)
	}
	if !leaf {
		t.Error("collapsed row should be a leaf")
	}
}

func TestCollapseStopsAtBoundGrandchild(t *testing.T) {
	ctx := newFakeContext()
	bag := breakpoint.NewBag(ctx)
	d := newFakeDebugger("/bin/a.out", bag)
	top, mid := ghost(t, "/src/main.c", "/bin/a.out", 1)
	mid.SetAdjusted(true)
	bag.Restore(top)
	sub := mid.Children()[0]
	sub.BindTo(d)
	f := NewFilter(ctx, bag)

	if got := f.SkipParent(top); got != mid {
		t.Fatalf("expected collapse to stop at the midlevel breakpoint, got %s", got)
	}
	if got := f.SkipParent(mid); got != mid {
		t.Errorf("bound grandchild must not be collapsed, got %s", got)
	}
	rows, err := f.Children(mid, 0, -1)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].(BreakpointNode).Breakpoint != sub {
		t.Errorf("expected the bound sub-breakpoint as the only row")
	}
}

func TestSkipParentStops(t *testing.T) {
	tests := []struct {
		name  string
		build func(t *testing.T, bag *breakpoint.Bag, d *fakeDebugger) *breakpoint.Breakpoint
	}{
		{
			name: "child not unique",
			build: func(t *testing.T, bag *breakpoint.Bag, _ *fakeDebugger) *breakpoint.Breakpoint {
				top, _ := ghost(t, "/src/a.c", "/bin/a.out", 1)
				bag.Restore(top)
				return top
			},
		},
		{
			name: "child bound",
			build: func(t *testing.T, bag *breakpoint.Bag, d *fakeDebugger) *breakpoint.Breakpoint {
				top := breakpoint.NewFunctionBreakpoint("main")
				sub := plant(t, bag, d, top)
				sub.Parent().SetAdjusted(true)
				return top
			},
		},
		{
			name: "two children",
			build: func(t *testing.T, bag *breakpoint.Bag, _ *fakeDebugger) *breakpoint.Breakpoint {
				top, mid := ghost(t, "/src/b.c", "/bin/a.out", 0)
				mid.SetAdjusted(true)
				_, other := ghost(t, "/src/b.c", "/bin/b.out", 0)
				other.SetAdjusted(true)
				top.RestoringChild(other)
				bag.Restore(top)
				return top
			},
		},
		{
			name: "no children",
			build: func(_ *testing.T, bag *breakpoint.Bag, _ *fakeDebugger) *breakpoint.Breakpoint {
				top := breakpoint.NewFunctionBreakpoint("exit")
				bag.Add(top)
				return top
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := newFakeContext()
			bag := breakpoint.NewBag(ctx)
			d := newFakeDebugger("/bin/a.out", bag)
			top := tt.build(t, bag, d)
			f := NewFilter(ctx, bag)
			if got := f.SkipParent(top); got != top {
				t.Errorf("expected no collapse, got %s", got)
			}
		})
	}
}

func TestSkipParentDisabled(t *testing.T) {
	ctx := newFakeContext()
	ctx.skipSingleParent = false
	bag := breakpoint.NewBag(ctx)
	top, mid := ghost(t, "/src/main.c", "/bin/a.out", 0)
	mid.SetAdjusted(true)
	bag.Restore(top)
	f := NewFilter(ctx, bag)

	if got := f.SkipParent(top); got != top {
		t.Errorf("expected no collapse with the preference off, got %s", got)
	}
	if n, _ := f.ChildrenCount(top); n != 1 {
		t.Errorf("expected the midlevel row under its parent, got %d rows", n)
	}
}

func TestSkipParentFixedPoint(t *testing.T) {
	ctx := newFakeContext()
	bag := breakpoint.NewBag(ctx)
	d := newFakeDebugger("/bin/a.out", bag)

	collapsed, mid := ghost(t, "/src/a.c", "/bin/a.out", 2)
	mid.SetAdjusted(true)
	plain, _ := ghost(t, "/src/b.c", "/bin/a.out", 1)
	bag.Restore(collapsed, plain)
	plant(t, bag, d, breakpoint.NewFunctionBreakpoint("main"))
	bag.Add(breakpoint.NewFunctionBreakpoint("exit"))
	f := NewFilter(ctx, bag)

	var all []*breakpoint.Breakpoint
	for _, top := range bag.Breakpoints() {
		all = append(all, top)
		for _, m := range top.Children() {
			all = append(all, m)
			all = append(all, m.Children()...)
		}
	}
	for _, b := range all {
		once := f.SkipParent(b)
		if twice := f.SkipParent(once); twice != once {
			t.Errorf("SkipParent not stable for %s: %s then %s", b, once, twice)
		}
	}
}

func TestSessionOnlyRoots(t *testing.T) {
	ctx := newFakeContext()
	ctx.sessionOnly = true
	bag := breakpoint.NewBag(ctx)
	d := newFakeDebugger("/bin/a.out", bag)
	ctx.current = d
	ctx.sessions = 1

	live := breakpoint.NewFunctionBreakpoint("main")
	plant(t, bag, d, live)
	oldTop, _ := ghost(t, "/src/old.c", "/bin/old", 1)
	bag.Restore(oldTop)
	bag.Add(breakpoint.NewFunctionBreakpoint("exit"))
	f := NewFilter(ctx, bag, WithOtherRows("separator"))

	children := []Node{OtherNode{Value: "separator"}}
	children = append(children, wrap(bag.Breakpoints())...)
	kept := f.SessionOnly(nil, children)

	if len(kept) > len(children) {
		t.Fatalf("result larger than input: %d > %d", len(kept), len(children))
	}
	var others int
	for _, n := range kept {
		bn, ok := n.(BreakpointNode)
		if !ok {
			others++
			continue
		}
		if !hasCurrentDescendant(bn.Breakpoint, d) {
			t.Errorf("%s has no descendant in the current session", bn.Breakpoint)
		}
	}
	if others != 1 {
		t.Errorf("expected the separator to pass, got %d other rows", others)
	}
	if bs := breakpointsOf(kept); len(bs) != 1 || bs[0] != live {
		t.Errorf("expected only the live breakpoint, got %v", bs)
	}

	if n, _ := f.ChildrenCount(nil); n != 2 {
		t.Errorf("expected 2 root rows, got %d", n)
	}
}

func TestSessionOnlyUnderToplevel(t *testing.T) {
	ctx := newFakeContext()
	ctx.sessionOnly = true
	ctx.perTarget = false
	bag := breakpoint.NewBag(ctx)
	d1 := newFakeDebugger("/bin/a.out", bag)
	d2 := newFakeDebugger("/bin/b.out", bag)
	top := breakpoint.NewFunctionBreakpoint("main")
	sub1 := plant(t, bag, d1, top)
	bag.RestoreTo(d2)
	if _, err := d2.table.NoteNew(top.RoutingToken(), 1, nil); err != nil {
		t.Fatal(err)
	}
	ctx.perTarget = true
	ctx.current = d1
	ctx.sessions = 2
	f := NewFilter(ctx, bag)

	rows, err := f.Children(top, 0, -1)
	if err != nil {
		t.Fatal(err)
	}
	if bs := breakpointsOf(rows); len(bs) != 1 || bs[0] != sub1.Parent() {
		t.Fatalf("expected only the current session's instance, got %v", bs)
	}

	ctx.sessionOnly = false
	if n, _ := f.ChildrenCount(top); n != 2 {
		t.Errorf("expected both instances with the filter off, got %d", n)
	}

	ctx.sessionOnly = true
	ctx.perTarget = false
	rows, err = f.Children(top, 0, -1)
	if err != nil {
		t.Fatal(err)
	}
	if bs := breakpointsOf(rows); len(bs) != 1 || bs[0] != sub1.Parent() {
		t.Errorf("global mode: expected only the current session's instance, got %v", bs)
	}
	if n, _ := f.ChildrenCount(nil); n != 1 {
		t.Errorf("global mode: expected the toplevel at the root, got %d rows", n)
	}

	ctx.current = d2
	if n, _ := f.ChildrenCount(top); n != 1 {
		t.Errorf("expected the other instance after switching sessions, got %d", n)
	}
}

func TestSessionOnlyWithoutSessions(t *testing.T) {
	ctx := newFakeContext()
	ctx.sessionOnly = true
	bag := breakpoint.NewBag(ctx)
	top, _ := ghost(t, "/src/main.c", "/bin/a.out", 1)
	bag.Restore(top)
	bag.Add(breakpoint.NewFunctionBreakpoint("exit"))
	f := NewFilter(ctx, bag, WithOtherRows("separator"))

	children := []Node{OtherNode{Value: "separator"}}
	children = append(children, wrap(bag.Breakpoints())...)

	kept := f.SessionOnly(nil, children)
	if bs := breakpointsOf(kept); len(bs) != 0 {
		t.Errorf("per-target root kept %v with no session", bs)
	}
	if len(kept) != 1 {
		t.Errorf("expected only the separator, got %d rows", len(kept))
	}
	if n, _ := f.ChildrenCount(nil); n != 1 {
		t.Errorf("expected 1 root row, got %d", n)
	}
	if got := f.SessionOnly(BreakpointNode{top}, wrap(top.Children())); len(got) != top.NChildren() {
		t.Errorf("toplevel children without sessions: got %d of %d", len(got), top.NChildren())
	}

	ctx.perTarget = false
	if kept := f.SessionOnly(nil, children); len(kept) != len(children) {
		t.Errorf("global mode without sessions: got %d of %d rows", len(kept), len(children))
	}

	ctx.perTarget = true
	ctx.sessionOnly = false
	if kept := f.SessionOnly(nil, children); len(kept) != len(children) {
		t.Errorf("filter off: got %d of %d rows", len(kept), len(children))
	}
}

func TestChildrenRange(t *testing.T) {
	ctx := newFakeContext()
	bag := breakpoint.NewBag(ctx)
	for _, fn := range []string{"a", "b", "c", "d"} {
		bag.Add(breakpoint.NewFunctionBreakpoint(fn))
	}
	f := NewFilter(ctx, bag)

	tests := []struct {
		from, to int
		want     int
	}{
		{0, -1, 4},
		{1, 3, 2},
		{2, 100, 2},
		{3, 1, 0},
		{-5, 2, 2},
	}
	for _, tt := range tests {
		rows, err := f.Children(nil, tt.from, tt.to)
		if err != nil {
			t.Fatal(err)
		}
		if len(rows) != tt.want {
			t.Errorf("Children(%d, %d) = %d rows, want %d", tt.from, tt.to, len(rows), tt.want)
		}
	}
	count, _ := f.ChildrenCount(nil)
	all, _ := f.Children(nil, 0, count)
	if len(all) != count {
		t.Errorf("count %d disagrees with %d rows", count, len(all))
	}
}

func TestUnknownNodeType(t *testing.T) {
	ctx := newFakeContext()
	f := NewFilter(ctx, breakpoint.NewBag(ctx))

	if _, err := f.Children("row", 0, -1); !errors.Is(err, ErrUnknownType) {
		t.Errorf("Children: expected ErrUnknownType, got %v", err)
	}
	if _, err := f.IsLeaf(42); !errors.Is(err, ErrUnknownType) {
		t.Errorf("IsLeaf: expected ErrUnknownType, got %v", err)
	}
	var nilBP *breakpoint.Breakpoint
	if _, err := f.ValueAt(nilBP, breakpoint.KeyLine); !errors.Is(err, ErrUnknownType) {
		t.Errorf("ValueAt: expected ErrUnknownType, got %v", err)
	}
	leaf, err := f.IsLeaf(OtherNode{Value: "separator"})
	if err != nil || !leaf {
		t.Errorf("other rows are leaves, got %v, %v", leaf, err)
	}
}
