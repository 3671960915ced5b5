package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/nativedbg/internal/app"
	"github.com/dshills/nativedbg/internal/config"
)

func addConfig(topLevel *cobra.Command, ro *rootOptions) {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	format := string(config.FormatTOML)
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration.",
		Example: `
nativedbg config show
NATIVEDBG_LOG_LEVEL=debug nativedbg config show -o yaml
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := ro.open(cmd, func(o *app.Options) { o.NoPersist = true })
			if err != nil {
				return err
			}
			return closeApp(a, config.Encode(cmd.OutOrStdout(), a.Config(), config.Format(format)))
		},
	}
	show.Flags().StringVarP(&format, "output", "o", format, "Output format. One of 'toml' or 'yaml'.")

	path := &cobra.Command{
		Use:   "path",
		Short: "Print the config file in use.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := ro.resolveConfig()
			if err != nil {
				return err
			}
			if p == "" {
				p = "(none, using defaults)"
			}
			fmt.Fprintln(cmd.OutOrStdout(), p)
			return nil
		},
	}

	cmd.AddCommand(show, path)
	topLevel.AddCommand(cmd)
}
