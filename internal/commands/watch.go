package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/nativedbg/internal/app"
	"github.com/dshills/nativedbg/internal/event"
)

func addWatch(topLevel *cobra.Command, ro *rootOptions) {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Show the breakpoints and redraw when they or the config change.",
		Long: `Show the saved breakpoints and keep redrawing them until interrupted.
Edits to the config file are applied live: toggling skip_single_parent
redraws the view at once.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := ro.open(cmd, func(o *app.Options) {
				o.Watch = true
				o.ReadOnly = true
			})
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return closeApp(a, watch(ctx, cmd, a))
		},
	}
	topLevel.AddCommand(cmd)
}

func watch(ctx context.Context, cmd *cobra.Command, a *app.Application) error {
	redraw := make(chan struct{}, 1)
	sub, err := a.OnRefresh(func(event.Event) {
		select {
		case redraw <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return err
	}
	defer func() { _ = a.Bus().Unsubscribe(sub) }()

	w := cmd.OutOrStdout()
	if err := printView(ctx, w, a, "Breakpoints"); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-redraw:
			// Let a burst of changes land before drawing.
			time.Sleep(50 * time.Millisecond)
			if err := printView(ctx, w, a, "Breakpoints ("+time.Now().Format(time.TimeOnly)+")"); err != nil {
				return err
			}
		}
	}
}
