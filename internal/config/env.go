package config

import (
	"fmt"
	"strconv"
	"strings"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "NATIVEDBG_"

// EnvConfigPath names the config file. It is read by the CLI, not by
// applyEnv.
const EnvConfigPath = EnvPrefix + "CONFIG"

type setter func(o *Options, value string) error

func boolSetter(field func(*Options) *bool) setter {
	return func(o *Options, value string) error {
		b, err := parseBool(value)
		if err != nil {
			return err
		}
		*field(o) = b
		return nil
	}
}

// envSettings maps "section.key" to the field it sets.
var envSettings = map[string]setter{
	"breakpoints.session_only": boolSetter(func(o *Options) *bool { return &o.Breakpoints.SessionOnly }),
	"breakpoints.skip_single_parent": boolSetter(func(o *Options) *bool {
		return &o.Breakpoints.SkipSingleParent
	}),
	"breakpoints.ghost_buster": func(o *Options, value string) error {
		b, err := parseBool(value)
		if err != nil {
			return err
		}
		o.Breakpoints.GhostBuster = &b
		return nil
	},
	"breakpoints.per_target": boolSetter(func(o *Options) *bool { return &o.Breakpoints.PerTarget }),
	"breakpoints.standalone": boolSetter(func(o *Options) *bool { return &o.Breakpoints.Standalone }),
	"breakpoints.enable_differentiates": boolSetter(func(o *Options) *bool {
		return &o.Breakpoints.EnableDifferentiates
	}),
	"engine.command_timeout": func(o *Options, value string) error {
		return o.Engine.CommandTimeout.UnmarshalText([]byte(value))
	},
	"engine.queue_size": func(o *Options, value string) error {
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return err
		}
		o.Engine.QueueSize = n
		return nil
	},
	"log.level": func(o *Options, value string) error {
		o.Log.Level = strings.TrimSpace(value)
		return nil
	},
	"persist.path": func(o *Options, value string) error {
		o.Persist.Path = value
		return nil
	},
}

// applyEnv applies every prefix-carrying variable in environ to o.
func applyEnv(o *Options, prefix string, environ []string) error {
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, prefix) || name == EnvConfigPath {
			continue
		}
		path := envToPath(prefix, name)
		set, ok := envSettings[path]
		if !ok {
			return &ParseError{
				Path:    "env:" + name,
				Message: fmt.Sprintf("no setting %q", path),
				Err:     ErrUnknownSetting,
			}
		}
		if err := set(o, value); err != nil {
			return &ParseError{Path: "env:" + name, Message: err.Error(), Err: err}
		}
	}
	return nil
}

// envToPath converts NATIVEDBG_ENGINE_QUEUE_SIZE to engine.queue_size.
func envToPath(prefix, env string) string {
	name := strings.ToLower(strings.TrimPrefix(env, prefix))
	section, key, ok := strings.Cut(name, "_")
	if !ok {
		return name
	}
	return section + "." + key
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "on", "1":
		return true, nil
	case "false", "no", "off", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean %q", s)
	}
}
