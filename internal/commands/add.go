package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/nativedbg/internal/breakpoint"
)

// addOptions are the flags of the add subcommands.
type addOptions struct {
	condition string
	disabled  bool
}

func (ao *addOptions) apply(b *breakpoint.Breakpoint) error {
	attrs := map[string]string{}
	if ao.condition != "" {
		attrs[breakpoint.PropCondition] = ao.condition
	}
	if ao.disabled {
		attrs[breakpoint.PropEnabled] = "false"
	}
	return b.SetAttrs(attrs)
}

func addAdd(topLevel *cobra.Command, ro *rootOptions) {
	ao := &addOptions{}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a breakpoint to the saved set.",
		Example: `
nativedbg add line main.c:42
nativedbg add function main --condition 'argc > 1'
nativedbg add address 0x401000 --disabled
`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.PersistentFlags().StringVar(&ao.condition, "condition", "", "Only stop when the expression is true.")
	cmd.PersistentFlags().BoolVar(&ao.disabled, "disabled", false, "Add the breakpoint disabled.")

	sub := func(use, short string, parse func(string) (*breakpoint.Breakpoint, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				b, err := parse(args[0])
				if err != nil {
					return err
				}
				if err := ao.apply(b); err != nil {
					return err
				}
				a, err := ro.open(cmd, nil)
				if err != nil {
					return err
				}
				a.Manager().Bag().Add(b)
				fmt.Fprintf(cmd.OutOrStdout(), "added %s\n", b.Summary())
				return closeApp(a, nil)
			},
		}
	}
	cmd.AddCommand(
		sub("line FILE:LINE", "Stop at a source line.", parseLine),
		sub("function NAME", "Stop on entry to a function.", func(s string) (*breakpoint.Breakpoint, error) {
			return breakpoint.NewFunctionBreakpoint(s), nil
		}),
		sub("address ADDR", "Stop at an instruction address.", parseAddress),
	)
	topLevel.AddCommand(cmd)
}

func parseLine(s string) (*breakpoint.Breakpoint, error) {
	i := strings.LastIndex(s, ":")
	if i <= 0 {
		return nil, fmt.Errorf("expected FILE:LINE, got %q", s)
	}
	line, err := strconv.Atoi(s[i+1:])
	if err != nil || line <= 0 {
		return nil, fmt.Errorf("bad line number in %q", s)
	}
	return breakpoint.NewLineBreakpoint(s[:i], line), nil
}

func parseAddress(s string) (*breakpoint.Breakpoint, error) {
	if _, err := strconv.ParseUint(s, 0, 64); err != nil {
		return nil, fmt.Errorf("bad address %q", s)
	}
	return breakpoint.NewInstructionBreakpoint(s), nil
}
