// Package config loads the nativedbg configuration.
//
// Settings come from three sources, later ones overriding earlier ones:
//
//	┌─────────────────────────────┐
//	│  3. Environment Variables   │  ← NATIVEDBG_<SECTION>_<KEY>
//	├─────────────────────────────┤
//	│  2. Config File             │  ← config.toml, config.yaml
//	├─────────────────────────────┤
//	│  1. Built-in Defaults       │  ← Default()
//	└─────────────────────────────┘
//
// A TOML file looks like:
//
//	[breakpoints]
//	session_only = true
//	skip_single_parent = true
//	per_target = false
//
//	[engine]
//	command_timeout = "5s"
//
//	[log]
//	level = "debug"
//
// # Live reload
//
// A Watcher follows the config file and hands every successful reload to a
// callback:
//
//	w, err := config.NewWatcher(path, func(opts config.Options) {
//		manager.SetPreferences(opts.Preferences())
//	})
//	defer w.Close()
package config
