// Package app wires the nativedbg components together: configuration,
// logging, the event bus, the session manager with its breakpoint bag,
// persistence and live config reload.
package app

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/dshills/nativedbg/internal/breakpoint/persist"
	"github.com/dshills/nativedbg/internal/breakpoint/view"
	"github.com/dshills/nativedbg/internal/config"
	"github.com/dshills/nativedbg/internal/debugger"
	"github.com/dshills/nativedbg/internal/event"
	"github.com/dshills/nativedbg/internal/logging"
)

// Application owns every long-lived component.
type Application struct {
	mu sync.RWMutex

	// Core infrastructure
	options config.Options
	log     *logging.Logger
	bus     *event.Bus

	// Breakpoints and sessions
	manager     *debugger.Manager
	queries     *view.Dispatcher
	persistPath string

	// Live reload
	watcher *config.Watcher

	running atomic.Bool
	opts    Options
}

// Options configures the application.
type Options struct {
	// ConfigPath is the path to the configuration file. Empty uses built-in
	// defaults and the environment only.
	ConfigPath string

	// LogLevel overrides the configured log level.
	LogLevel string

	// LogOutput defaults to os.Stderr.
	LogOutput io.Writer

	// Environ replaces os.Environ for config overrides.
	Environ []string

	// PersistPath overrides the configured breakpoint file.
	PersistPath string

	// NoPersist neither loads nor saves breakpoints.
	NoPersist bool

	// ReadOnly loads breakpoints but does not save them on Shutdown.
	ReadOnly bool

	// Watch reloads the configuration when its file changes.
	Watch bool
}

// New creates and bootstraps an Application.
func New(opts Options) (*Application, error) {
	app := &Application{opts: opts}
	if err := newBootstrapper(app, opts).bootstrap(); err != nil {
		return nil, err
	}
	app.running.Store(true)
	return app, nil
}

// IsRunning reports whether Shutdown has not been called yet.
func (app *Application) IsRunning() bool {
	return app.running.Load()
}

// Config returns the current configuration.
func (app *Application) Config() config.Options {
	app.mu.RLock()
	defer app.mu.RUnlock()
	return app.options
}

// Logger returns the application logger.
func (app *Application) Logger() *logging.Logger { return app.log }

// Bus returns the event bus.
func (app *Application) Bus() *event.Bus { return app.bus }

// Manager returns the session manager.
func (app *Application) Manager() *debugger.Manager { return app.manager }

// PersistPath returns the breakpoint file, or "" when persistence is off.
func (app *Application) PersistPath() string { return app.persistPath }

// Filter returns a simplified breakpoint view over the manager's bag.
func (app *Application) Filter(opts ...view.Option) *view.Filter {
	return view.NewFilter(app.manager, app.manager.Bag(), opts...)
}

// SavedFilter is Filter without session-only filtering, for listing the
// saved breakpoints when no session runs.
func (app *Application) SavedFilter(opts ...view.Option) *view.Filter {
	return view.NewFilter(allSessions{app.manager}, app.manager.Bag(), opts...)
}

// allSessions hides the session-only preference of a Manager.
type allSessions struct {
	*debugger.Manager
}

func (allSessions) SessionOnly() bool { return false }

// ApplyConfig makes opts current: breakpoint preferences and the log level
// take effect at once, engine settings apply to sessions started later.
func (app *Application) ApplyConfig(opts config.Options) {
	app.mu.Lock()
	old := app.options
	app.options = opts
	app.mu.Unlock()

	app.log.SetLevel(levelOf(app.opts, opts))
	app.manager.SetPreferences(opts.Preferences())
	if old.Engine != opts.Engine {
		app.log.Info("engine settings change with the next session")
	}
}

// OnRefresh calls fn for every event that should redraw a breakpoint view.
func (app *Application) OnRefresh(fn func(event.Event)) (*event.Subscription, error) {
	return app.bus.Subscribe("breakpoint.**", func(_ context.Context, ev event.Event) error {
		fn(ev)
		return nil
	})
}

// Save writes the breakpoints to the persist path.
func (app *Application) Save() error {
	if app.persistPath == "" {
		return ErrPersistDisabled
	}
	if err := persist.Save(app.manager.Bag(), app.persistPath); err != nil {
		return err
	}
	app.log.Debug("breakpoints saved to %s", app.persistPath)
	return nil
}

// Shutdown ends every session, saves the breakpoints and stops the
// infrastructure. Calling it again returns ErrNotRunning.
func (app *Application) Shutdown(ctx context.Context) error {
	if !app.running.CompareAndSwap(true, false) {
		return ErrNotRunning
	}
	var errs []error

	if app.watcher != nil {
		if err := app.watcher.Close(); err != nil {
			errs = append(errs, &ComponentError{Component: "config watcher", Action: "close", Err: err})
		}
	}
	if err := app.manager.Shutdown(ctx); err != nil {
		errs = append(errs, &ComponentError{Component: "manager", Action: "shutdown", Err: err})
	}
	if app.persistPath != "" && !app.opts.ReadOnly {
		if err := app.Save(); err != nil {
			errs = append(errs, &ComponentError{Component: "persist", Action: "save", Err: err})
		}
	}
	app.queries.Stop()
	if err := app.bus.Stop(ctx); err != nil {
		errs = append(errs, &ComponentError{Component: "event bus", Action: "stop", Err: err})
	}
	return errors.Join(errs...)
}

func levelOf(opts Options, cfg config.Options) logging.Level {
	if opts.LogLevel != "" {
		return logging.ParseLevel(opts.LogLevel)
	}
	return cfg.LogLevel()
}
