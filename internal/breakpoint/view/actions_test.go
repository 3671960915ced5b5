package view

import (
	"errors"
	"testing"

	"github.com/dshills/nativedbg/internal/breakpoint"
)

func TestRowActions(t *testing.T) {
	ctx := newFakeContext()
	bag := breakpoint.NewBag(ctx)
	b := breakpoint.NewLineBreakpoint("/src/main.c", 12)
	bag.Add(b)

	var navigated string
	var customized *breakpoint.Breakpoint
	f := NewFilter(ctx, bag,
		WithNavigator(func(file string, line int) error {
			navigated = file
			return nil
		}),
		WithCustomizer(func(edited *breakpoint.Breakpoint) { customized = edited }),
	)

	actions, err := f.Actions(b)
	if err != nil {
		t.Fatal(err)
	}
	enable, _ := Find(actions, ActionEnable)
	if enable.Enabled {
		t.Error("Enable should be disabled for an enabled breakpoint")
	}
	if err := enable.Perform(); !errors.Is(err, ErrActionDisabled) {
		t.Errorf("expected ErrActionDisabled, got %v", err)
	}

	disable, _ := Find(actions, ActionDisable)
	if err := disable.Perform(); err != nil {
		t.Fatal(err)
	}
	if b.IsEnabled() {
		t.Error("Disable did not disable")
	}

	goTo, _ := Find(actions, ActionGoToSource)
	if err := goTo.Perform(); err != nil || navigated != "/src/main.c" {
		t.Errorf("GoToSource navigated to %q, err %v", navigated, err)
	}

	customize, _ := Find(actions, ActionCustomize)
	if err := customize.Perform(); err != nil {
		t.Fatal(err)
	}
	if customized == nil || customized.Original() != b {
		t.Error("Customize should receive an editable copy")
	}

	del, _ := Find(actions, ActionDelete)
	if err := del.Perform(); err != nil {
		t.Fatal(err)
	}
	if bag.Len() != 0 {
		t.Error("Delete did not remove the breakpoint")
	}

	if acts, err := f.Actions(OtherNode{}); err != nil || acts != nil {
		t.Errorf("other rows have no actions, got %v, %v", acts, err)
	}
}

func TestGoToSourceWithoutLocation(t *testing.T) {
	ctx := newFakeContext()
	bag := breakpoint.NewBag(ctx)
	b := breakpoint.NewFunctionBreakpoint("main")
	bag.Add(b)
	f := NewFilter(ctx, bag, WithNavigator(func(string, int) error { return nil }))

	actions, _ := f.Actions(b)
	if a, _ := Find(actions, ActionGoToSource); a.Enabled {
		t.Error("function breakpoint without annotations has no source")
	}
	b.AddAnnotation("/src/main.c", 3, 0)
	actions, _ = f.Actions(b)
	if a, _ := Find(actions, ActionGoToSource); !a.Enabled {
		t.Error("annotated breakpoint should have a source")
	}
}

func TestGlobalActions(t *testing.T) {
	ctx := newFakeContext()
	bag := breakpoint.NewBag(ctx)
	bag.Add(breakpoint.NewFunctionBreakpoint("a"))
	bag.Add(breakpoint.NewFunctionBreakpoint("b"))
	f := NewFilter(ctx, bag)

	actions := f.GlobalActions()
	if a, _ := Find(actions, ActionEnableAll); a.Enabled {
		t.Error("EnableAll with nothing disabled")
	}
	disableAll, _ := Find(actions, ActionDisableAll)
	if err := disableAll.Perform(); err != nil {
		t.Fatal(err)
	}
	if bag.AnyEnabled() {
		t.Error("DisableAll left a breakpoint enabled")
	}

	toggle, ok := Find(actions, ActionToggleSessionOnly)
	if !ok || toggle.Checked {
		t.Fatalf("expected unchecked session-only toggle, got %+v", toggle)
	}
	if err := toggle.Perform(); err != nil || !ctx.sessionOnly {
		t.Error("toggle did not flip the preference")
	}
	skip, _ := Find(actions, ActionToggleSkipSingleParent)
	_ = skip.Perform()
	ghosts, _ := Find(actions, ActionToggleGhostBuster)
	_ = ghosts.Perform()
	if ctx.skipSingleParent || !ctx.ghostBuster {
		t.Error("toggles did not flip the preferences")
	}

	deleteAll, _ := Find(f.GlobalActions(), ActionDeleteAll)
	if err := deleteAll.Perform(); err != nil {
		t.Fatal(err)
	}
	if bag.Len() != 0 {
		t.Error("DeleteAll left breakpoints")
	}
}

func TestGlobalActionsWithoutToggler(t *testing.T) {
	ctx := newFakeContext()
	bag := breakpoint.NewBag(ctx)
	f := NewFilter(plainContext{ctx}, bag)

	if _, ok := Find(f.GlobalActions(), ActionToggleSessionOnly); ok {
		t.Error("toggles offered by a context that cannot toggle")
	}
	if a, _ := Find(f.GlobalActions(), ActionDeleteAll); a.Enabled {
		t.Error("DeleteAll enabled on an empty bag")
	}
}
