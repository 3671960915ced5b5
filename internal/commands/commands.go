// Package commands implements the nativedbg command line.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dshills/nativedbg/internal/app"
	"github.com/dshills/nativedbg/internal/config"
)

// Build information, set via ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// rootOptions are the flags shared by every command.
type rootOptions struct {
	configPath  string
	logLevel    string
	breakpoints string
	noPersist   bool
	noColor     bool

	// environ replaces os.Environ in tests.
	environ []string
}

// New returns the nativedbg root command.
func New() *cobra.Command {
	return newRoot(&rootOptions{})
}

func newRoot(ro *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nativedbg",
		Short: "Manage native debugger breakpoints across debug sessions.",
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if ro.noColor {
				color.NoColor = true
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&ro.configPath, "config", "c", "", "Config file (default $NATIVEDBG_CONFIG or ~/.nativedbg/config.toml).")
	flags.StringVar(&ro.logLevel, "log-level", "", "Log level: debug, info, warn or error.")
	flags.StringVar(&ro.breakpoints, "breakpoints", "", "Breakpoints file (default from config).")
	flags.BoolVar(&ro.noPersist, "no-persist", false, "Neither load nor save breakpoints.")
	flags.BoolVar(&ro.noColor, "no-color", false, "Disable colored output.")

	addShow(cmd, ro)
	addAdd(cmd, ro)
	addEnable(cmd, ro)
	addClear(cmd, ro)
	addDemo(cmd, ro)
	addWatch(cmd, ro)
	addConfig(cmd, ro)
	addVersion(cmd)
	return cmd
}

func (ro *rootOptions) env() []string {
	if ro.environ != nil {
		return ro.environ
	}
	return os.Environ()
}

// resolveConfig picks the config file: the flag, then $NATIVEDBG_CONFIG,
// then the default path if it exists.
func (ro *rootOptions) resolveConfig() (string, error) {
	if ro.configPath != "" {
		return ro.configPath, nil
	}
	for _, kv := range ro.env() {
		if v, ok := strings.CutPrefix(kv, config.EnvConfigPath+"="); ok && v != "" {
			return v, nil
		}
	}
	path, err := config.DefaultPath()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	return path, nil
}

// open bootstraps the application for one command.
func (ro *rootOptions) open(cmd *cobra.Command, mutate func(*app.Options)) (*app.Application, error) {
	path, err := ro.resolveConfig()
	if err != nil {
		return nil, err
	}
	opts := app.Options{
		ConfigPath:  path,
		LogLevel:    ro.logLevel,
		LogOutput:   cmd.ErrOrStderr(),
		Environ:     ro.env(),
		PersistPath: ro.breakpoints,
		NoPersist:   ro.noPersist,
	}
	if mutate != nil {
		mutate(&opts)
	}
	return app.New(opts)
}

// closeApp shuts a down and reports failures on top of err.
func closeApp(a *app.Application, err error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return errors.Join(err, a.Shutdown(ctx))
}

// printView writes the simplified breakpoint view of a to w.
func printView(ctx context.Context, w io.Writer, a *app.Application, title string) error {
	f := a.Filter()
	if a.Manager().SessionCount() == 0 {
		f = a.SavedFilter()
	}
	rows, err := a.Rows(ctx, f)
	if err != nil {
		return err
	}
	if title != "" {
		fmt.Fprintln(w, color.New(color.Bold, color.Underline).Sprint(title))
	}
	if len(rows) == 0 {
		fmt.Fprintln(w, "no breakpoints")
		return nil
	}
	return app.WriteTable(w, rows)
}
