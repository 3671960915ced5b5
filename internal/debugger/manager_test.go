package debugger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dshills/nativedbg/internal/breakpoint"
	"github.com/dshills/nativedbg/internal/breakpoint/view"
	"github.com/dshills/nativedbg/internal/event"
)

var (
	_ breakpoint.Env      = (*Manager)(nil)
	_ view.Context        = (*Manager)(nil)
	_ view.Toggler        = (*Manager)(nil)
	_ breakpoint.Debugger = (*Engine)(nil)
	_ Backend             = (*SimBackend)(nil)
)

func TestManagerSessions(t *testing.T) {
	m := NewManager(DefaultPreferences())
	shutdown(t, m)

	if m.CurrentDebugger() != nil {
		t.Fatal("expected no current debugger before any session")
	}
	s1, err := m.StartSession("gdb-1", NewSimBackend("/bin/a.out"))
	if err != nil {
		t.Fatal(err)
	}
	s2, err := m.StartSession("gdb-2", NewSimBackend("/bin/b.out"))
	if err != nil {
		t.Fatal(err)
	}
	if m.SessionCount() != 2 || m.Current() != s2 {
		t.Fatalf("expected the newest session current, got %v", m.Current())
	}
	if err := m.SetCurrent(s1.ID); err != nil {
		t.Fatal(err)
	}
	if m.CurrentDebugger() != breakpoint.Debugger(s1.Engine) {
		t.Error("SetCurrent did not switch")
	}

	ctx := context.Background()
	if err := m.EndSession(ctx, s1.ID); err != nil {
		t.Fatal(err)
	}
	if m.Current() != s2 {
		t.Error("expected the remaining session to become current")
	}
	if err := m.EndSession(ctx, s1.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
	if err := m.SetCurrent("nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := m.StartSession("gdb-3", NewSimBackend("/bin/c.out")); err != nil {
		t.Fatal(err)
	}
	if err := m.Shutdown(ctx); err != nil {
		t.Fatal(err)
	}
	if m.SessionCount() != 0 || m.CurrentDebugger() != nil {
		t.Error("Shutdown left sessions behind")
	}
}

func TestStartSessionRestoresGhosts(t *testing.T) {
	m := NewManager(DefaultPreferences())
	shutdown(t, m)

	top := breakpoint.NewRestored(breakpoint.KindFunction, breakpoint.Toplevel)
	mid := breakpoint.NewRestored(breakpoint.KindFunction, breakpoint.Midlevel)
	other := breakpoint.NewRestored(breakpoint.KindFunction, breakpoint.Midlevel)
	for _, b := range []*breakpoint.Breakpoint{top, mid, other} {
		if err := b.SetAttrs(map[string]string{breakpoint.PropFunction: "main"}); err != nil {
			t.Fatal(err)
		}
	}
	_ = mid.SetAttrs(map[string]string{breakpoint.PropContext: "/bin/a.out"})
	_ = other.SetAttrs(map[string]string{breakpoint.PropContext: "/bin/other"})
	top.RestoringChild(mid)
	top.RestoringChild(other)
	m.Bag().Restore(top)

	be := NewSimBackend("/bin/a.out")
	s, err := m.StartSession("gdb", be)
	if err != nil {
		t.Fatal(err)
	}
	syncAll(t, m)

	if mid.Debugger() != breakpoint.Debugger(s.Engine) || mid.NChildren() != 1 {
		t.Fatal("ghost of the session's target was not planted")
	}
	if other.IsBound() {
		t.Error("ghost of another target was planted")
	}
	if be.Calls("create") != 1 {
		t.Errorf("expected one create, got %d", be.Calls("create"))
	}
}

func TestPreferencesPublishEvents(t *testing.T) {
	bus := event.NewBus()
	if err := bus.Start(); err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	got := map[string]bool{}
	trees := 0
	if _, err := bus.Subscribe(event.TopicPreferencesChanged, func(_ context.Context, ev event.Event) error {
		pc := ev.(event.PreferencesChanged)
		mu.Lock()
		got[pc.Name] = pc.Value
		mu.Unlock()
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := bus.Subscribe(event.TopicTreeChanged, func(context.Context, event.Event) error {
		mu.Lock()
		trees++
		mu.Unlock()
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	m := NewManager(DefaultPreferences(), WithBus(bus))
	m.ToggleSessionOnly()
	m.ToggleGhostBuster()
	m.ToggleSkipSingleParent()
	m.SetPreferences(m.Preferences())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := bus.Stop(ctx); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	want := map[string]bool{PrefSessionOnly: false, PrefGhostBuster: true, PrefSkipSingleParent: false}
	for name, v := range want {
		if got[name] != v {
			t.Errorf("%s = %v, want %v", name, got[name], v)
		}
	}
	if _, ok := got[PrefPerTarget]; ok {
		t.Error("unchanged preference was published")
	}
	if trees != 3 {
		t.Errorf("expected one tree refresh per effective change, got %d", trees)
	}
	if m.SessionOnly() || m.SkipSingleParent() || !m.GhostBuster() {
		t.Error("toggles not applied")
	}
}

func TestManagerDrivesView(t *testing.T) {
	m := NewManager(DefaultPreferences())
	shutdown(t, m)
	top := breakpoint.NewFunctionBreakpoint("main")
	m.Bag().Add(top)
	m.Bag().Add(breakpoint.NewFunctionBreakpoint("exit"))
	be := NewSimBackend("/bin/a.out")
	if _, err := m.StartSession("gdb", be); err != nil {
		t.Fatal(err)
	}
	syncAll(t, m)

	f := view.NewFilter(m, m.Bag())
	rows := f.Roots()
	if len(rows) != 2 {
		t.Fatalf("expected both templates planted and shown, got %d rows", len(rows))
	}

	actions := f.GlobalActions()
	disableAll, ok := view.Find(actions, view.ActionDisableAll)
	if !ok {
		t.Fatal("no DisableAll action")
	}
	if err := disableAll.Perform(); err != nil {
		t.Fatal(err)
	}
	syncAll(t, m)
	if m.Bag().AnyEnabled() {
		t.Error("DisableAll left breakpoints enabled")
	}
	if be.Calls("enable") != 2 {
		t.Errorf("expected 2 enable calls, got %d", be.Calls("enable"))
	}
}
