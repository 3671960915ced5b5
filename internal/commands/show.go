package commands

import (
	"github.com/spf13/cobra"

	"github.com/dshills/nativedbg/internal/app"
)

func addShow(topLevel *cobra.Command, ro *rootOptions) {
	cmd := &cobra.Command{
		Use:     "show",
		Aliases: []string{"ls", "list"},
		Short:   "Show the saved breakpoints.",
		Example: `
nativedbg show
nativedbg show --breakpoints ./project.xml
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := ro.open(cmd, func(o *app.Options) { o.ReadOnly = true })
			if err != nil {
				return err
			}
			return closeApp(a, printView(cmd.Context(), cmd.OutOrStdout(), a, ""))
		},
	}
	topLevel.AddCommand(cmd)
}
