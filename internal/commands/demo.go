package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/nativedbg/internal/app"
	"github.com/dshills/nativedbg/internal/breakpoint"
	"github.com/dshills/nativedbg/internal/debugger"
)

// demoOptions are the flags of the demo command.
type demoOptions struct {
	perTarget bool
	save      bool
	timeout   time.Duration
}

func addDemo(topLevel *cobra.Command, ro *rootOptions) {
	do := &demoOptions{}
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run two simulated debug sessions and show how breakpoints follow them.",
		Example: `
nativedbg demo
nativedbg demo --per-target --log-level debug
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := ro.open(cmd, func(o *app.Options) {
				o.NoPersist = o.NoPersist || !do.save
			})
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), do.timeout)
			defer cancel()
			return closeApp(a, runDemo(ctx, cmd.OutOrStdout(), a, do))
		},
	}
	cmd.Flags().BoolVar(&do.perTarget, "per-target", false, "Keep breakpoints per target instead of spreading changes.")
	cmd.Flags().BoolVar(&do.save, "save", false, "Save the resulting breakpoints.")
	cmd.Flags().DurationVar(&do.timeout, "timeout", 30*time.Second, "Give up after this long.")
	topLevel.AddCommand(cmd)
}

func runDemo(ctx context.Context, w io.Writer, a *app.Application, do *demoOptions) error {
	m := a.Manager()
	prefs := m.Preferences()
	prefs.PerTarget = do.perTarget
	prefs.GhostBuster = !do.perTarget
	prefs.SessionOnly = false
	m.SetPreferences(prefs)

	fn := breakpoint.NewFunctionBreakpoint("main")
	line := breakpoint.NewLineBreakpoint("main.c", 12)
	m.Bag().Add(fn)
	m.Bag().Add(line)

	be1 := debugger.NewSimBackend("/bin/a.out", debugger.WithPid(101), debugger.WithLines("main.c", 10, 14, 20))
	be2 := debugger.NewSimBackend("/bin/b.out", debugger.WithPid(202), debugger.WithLines("main.c", 14, 30))
	s1, err := m.StartSession("gdb-a", be1)
	if err != nil {
		return err
	}
	s2, err := m.StartSession("gdb-b", be2)
	if err != nil {
		return err
	}
	if err := printView(ctx, w, a, "Two sessions started"); err != nil {
		return err
	}

	// a.out stops in main; b.out's console disables the line breakpoint.
	// Per target, templates already planted in a.out stay out of b.out.
	if err := be1.Hit(simID(be1, breakpoint.PropFunction, "main")); err != nil {
		return err
	}
	lineID := simID(be2, breakpoint.PropFile, "main.c")
	if lineID != 0 {
		if err := be2.ConsoleEnable(lineID, false); err != nil {
			return err
		}
	}
	err = settle(ctx, m, func() bool {
		hit := instance(fn, s1.Engine)
		if hit == nil || hit.Count() != 1 {
			return false
		}
		off := instance(line, s2.Engine)
		return lineID == 0 || (off != nil && !off.IsEnabled())
	})
	if err != nil {
		return err
	}
	if err := printView(ctx, w, a, "After a hit in a.out and a console disable in b.out"); err != nil {
		return err
	}

	if err := be1.Exit(); err != nil {
		return err
	}
	if err := settle(ctx, m, func() bool { return len(m.Sessions()) == 1 }); err != nil {
		return err
	}
	if err := printView(ctx, w, a, "After a.out exits"); err != nil {
		return err
	}
	fmt.Fprintf(w, "current session: %s\n", s2.Engine.Name())
	return nil
}

// simID returns the id of the first breakpoint in be whose attribute key
// is value, or 0.
func simID(be *debugger.SimBackend, key, value string) int {
	for _, bp := range be.Breakpoints() {
		if bp.Attrs[key] == value {
			return bp.ID
		}
	}
	return 0
}

// instance returns the sub-breakpoint of top planted by e.
func instance(top *breakpoint.Breakpoint, e *debugger.Engine) *breakpoint.Breakpoint {
	mid := top.MidlevelFor(e)
	if mid == nil || mid.NChildren() == 0 {
		return nil
	}
	return mid.Children()[0]
}

// settle syncs the engines until cond holds.
func settle(ctx context.Context, m *debugger.Manager, cond func() bool) error {
	tick := time.NewTicker(5 * time.Millisecond)
	defer tick.Stop()
	for {
		if err := m.Sync(ctx); err != nil {
			return err
		}
		if cond() {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("demo stalled: %w", ctx.Err())
		case <-tick.C:
		}
	}
}
