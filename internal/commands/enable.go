package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/nativedbg/internal/breakpoint/view"
)

// runGlobal performs one of the view's global actions on the saved set.
func runGlobal(cmd *cobra.Command, ro *rootOptions, id view.ActionID, done string) error {
	a, err := ro.open(cmd, nil)
	if err != nil {
		return err
	}
	action, ok := view.Find(a.Filter().GlobalActions(), id)
	if !ok {
		return closeApp(a, fmt.Errorf("no %s action", id))
	}
	if !action.Enabled {
		fmt.Fprintln(cmd.OutOrStdout(), "nothing to do")
		return closeApp(a, nil)
	}
	if err := action.Perform(); err != nil {
		return closeApp(a, fmt.Errorf("%s: %w", action.Label, err))
	}
	fmt.Fprintln(cmd.OutOrStdout(), done)
	return closeApp(a, nil)
}

func addEnable(topLevel *cobra.Command, ro *rootOptions) {
	topLevel.AddCommand(
		&cobra.Command{
			Use:   "enable",
			Short: "Enable every saved breakpoint.",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runGlobal(cmd, ro, view.ActionEnableAll, "all breakpoints enabled")
			},
		},
		&cobra.Command{
			Use:   "disable",
			Short: "Disable every saved breakpoint.",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runGlobal(cmd, ro, view.ActionDisableAll, "all breakpoints disabled")
			},
		},
	)
}

func addClear(topLevel *cobra.Command, ro *rootOptions) {
	topLevel.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete every saved breakpoint.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGlobal(cmd, ro, view.ActionDeleteAll, "all breakpoints deleted")
		},
	})
}
