package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"

	"github.com/dshills/nativedbg/internal/debugger"
	"github.com/dshills/nativedbg/internal/logging"
)

// Options is the complete nativedbg configuration.
type Options struct {
	Breakpoints BreakpointOptions `toml:"breakpoints" yaml:"breakpoints"`
	Engine      EngineOptions     `toml:"engine" yaml:"engine"`
	Log         LogOptions        `toml:"log" yaml:"log"`
	Persist     PersistOptions    `toml:"persist" yaml:"persist"`
}

// BreakpointOptions seed the breakpoint preferences.
type BreakpointOptions struct {
	SessionOnly      bool `toml:"session_only" yaml:"session_only"`
	SkipSingleParent bool `toml:"skip_single_parent" yaml:"skip_single_parent"`
	// GhostBuster defaults to the opposite of PerTarget when unset.
	GhostBuster          *bool `toml:"ghost_buster,omitempty" yaml:"ghost_buster,omitempty"`
	PerTarget            bool  `toml:"per_target" yaml:"per_target"`
	Standalone           bool  `toml:"standalone" yaml:"standalone"`
	EnableDifferentiates bool  `toml:"enable_differentiates" yaml:"enable_differentiates"`
}

// EngineOptions configure every debug engine.
type EngineOptions struct {
	CommandTimeout Duration `toml:"command_timeout" yaml:"command_timeout"`
	QueueSize      int      `toml:"queue_size" yaml:"queue_size"`
}

// LogOptions configure the logger.
type LogOptions struct {
	Level string `toml:"level" yaml:"level"`
}

// PersistOptions locate the saved breakpoints.
type PersistOptions struct {
	Path string `toml:"path" yaml:"path"`
}

// Default returns the built-in configuration.
func Default() Options {
	prefs := debugger.DefaultPreferences()
	engine := debugger.DefaultEngineConfig()
	return Options{
		Breakpoints: BreakpointOptions{
			SessionOnly:          prefs.SessionOnly,
			SkipSingleParent:     prefs.SkipSingleParent,
			PerTarget:            prefs.PerTarget,
			Standalone:           prefs.Standalone,
			EnableDifferentiates: prefs.EnableDifferentiates,
		},
		Engine: EngineOptions{
			CommandTimeout: Duration(engine.CommandTimeout),
			QueueSize:      engine.QueueSize,
		},
		Log: LogOptions{
			Level: logging.LevelInfo.String(),
		},
		Persist: PersistOptions{
			Path: "~/.nativedbg/breakpoints.xml",
		},
	}
}

// Preferences maps the breakpoint options onto manager preferences.
func (o Options) Preferences() debugger.Preferences {
	ghostBuster := !o.Breakpoints.PerTarget
	if o.Breakpoints.GhostBuster != nil {
		ghostBuster = *o.Breakpoints.GhostBuster
	}
	return debugger.Preferences{
		SessionOnly:          o.Breakpoints.SessionOnly,
		SkipSingleParent:     o.Breakpoints.SkipSingleParent,
		GhostBuster:          ghostBuster,
		PerTarget:            o.Breakpoints.PerTarget,
		Standalone:           o.Breakpoints.Standalone,
		EnableDifferentiates: o.Breakpoints.EnableDifferentiates,
	}
}

// EngineConfig maps the engine options onto an engine configuration.
func (o Options) EngineConfig() debugger.EngineConfig {
	return debugger.EngineConfig{
		CommandTimeout: o.Engine.CommandTimeout.Std(),
		QueueSize:      o.Engine.QueueSize,
	}
}

// LogLevel returns the configured log level.
func (o Options) LogLevel() logging.Level {
	return logging.ParseLevel(o.Log.Level)
}

// PersistPath returns the persist path with a leading "~" expanded.
func (o Options) PersistPath() (string, error) {
	return expandHome(o.Persist.Path)
}

var logLevels = []string{"debug", "info", "warn", "warning", "error"}

// Validate checks every setting and returns ValidationErrors listing the
// bad ones.
func (o Options) Validate() error {
	var errs ValidationErrors
	if o.Engine.CommandTimeout <= 0 {
		errs = append(errs, &ValidationError{
			Path:    "engine.command_timeout",
			Message: "must be positive",
			Value:   o.Engine.CommandTimeout,
			Code:    ErrCodeOutOfRange,
		})
	}
	if o.Engine.QueueSize < 1 {
		errs = append(errs, &ValidationError{
			Path:    "engine.queue_size",
			Message: "must be at least 1",
			Value:   o.Engine.QueueSize,
			Code:    ErrCodeOutOfRange,
		})
	}
	if !validLevel(o.Log.Level) {
		errs = append(errs, &ValidationError{
			Path:    "log.level",
			Message: "must be one of " + strings.Join(logLevels, ", "),
			Value:   o.Log.Level,
			Code:    ErrCodeInvalidEnum,
		})
	}
	if strings.TrimSpace(o.Persist.Path) == "" {
		errs = append(errs, &ValidationError{
			Path:    "persist.path",
			Message: "is required",
			Value:   o.Persist.Path,
			Code:    ErrCodeRequiredMissing,
		})
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func validLevel(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, l := range logLevels {
		if s == l {
			return true
		}
	}
	return false
}

func expandHome(path string) (string, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("expanding %s: %w", path, err)
	}
	return expanded, nil
}

// Duration is a time.Duration written as a string such as "5s" in config
// files.
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// String returns the duration in time.Duration notation.
func (d Duration) String() string { return time.Duration(d).String() }

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", node.Line)
	}
	if err := d.UnmarshalText([]byte(node.Value)); err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	return nil
}
