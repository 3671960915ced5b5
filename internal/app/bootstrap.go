package app

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/dshills/nativedbg/internal/breakpoint/persist"
	"github.com/dshills/nativedbg/internal/breakpoint/view"
	"github.com/dshills/nativedbg/internal/config"
	"github.com/dshills/nativedbg/internal/debugger"
	"github.com/dshills/nativedbg/internal/event"
	"github.com/dshills/nativedbg/internal/logging"
)

// bootstrapper handles component initialization with proper cleanup on failure.
type bootstrapper struct {
	app       *Application
	opts      Options
	initOrder []string
}

// newBootstrapper creates a new bootstrapper for the application.
func newBootstrapper(app *Application, opts Options) *bootstrapper {
	return &bootstrapper{
		app:       app,
		opts:      opts,
		initOrder: make([]string, 0, 6),
	}
}

// bootstrap initializes all components in dependency order.
// On failure, it cleans up already-initialized components.
func (b *bootstrapper) bootstrap() error {
	steps := []func() error{
		b.initConfig,
		b.initLogger,
		b.initEventBus,
		b.initManager,
		b.initPersist,
		b.initWatcher,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			b.cleanup()
			return err
		}
	}
	return nil
}

// initConfig loads the configuration file and the environment.
func (b *bootstrapper) initConfig() error {
	environ := b.opts.Environ
	if environ == nil {
		environ = os.Environ()
	}
	opts, err := config.LoadWithEnv(b.opts.ConfigPath, environ)
	if err != nil {
		return &InitError{Component: "config", Err: err}
	}
	b.app.options = opts
	b.initOrder = append(b.initOrder, "config")
	return nil
}

// initLogger creates the application logger.
func (b *bootstrapper) initLogger() error {
	cfg := logging.DefaultConfig()
	cfg.Level = levelOf(b.opts, b.app.options)
	if b.opts.LogOutput != nil {
		cfg.Output = b.opts.LogOutput
	}
	b.app.log = logging.New(cfg)
	logging.SetDefault(b.app.log)
	b.initOrder = append(b.initOrder, "logger")
	return nil
}

// initEventBus starts the event bus and the logging subscriptions.
func (b *bootstrapper) initEventBus() error {
	log := b.app.log.WithComponent("event")
	b.app.bus = event.NewBus(event.WithPanicHandler(func(ev event.Event, r any, _ []byte) {
		log.Error("handler for %s panicked: %v", ev.Topic(), r)
	}))
	if err := b.app.bus.Start(); err != nil {
		return &InitError{Component: "event bus", Err: err}
	}
	b.initOrder = append(b.initOrder, "eventBus")

	if _, err := b.app.bus.Subscribe("session.*", func(_ context.Context, ev event.Event) error {
		if se, ok := ev.(event.SessionEvent); ok {
			log.Info("%s: %s", ev.Topic(), se.Name)
		}
		return nil
	}); err != nil {
		return &InitError{Component: "event bus", Err: err}
	}
	if _, err := b.app.bus.Subscribe(event.TopicPreferencesChanged, func(_ context.Context, ev event.Event) error {
		if pc, ok := ev.(event.PreferencesChanged); ok {
			log.Debug("preference %s = %v", pc.Name, pc.Value)
		}
		return nil
	}); err != nil {
		return &InitError{Component: "event bus", Err: err}
	}
	return nil
}

// initManager creates the session manager and the view query workers.
func (b *bootstrapper) initManager() error {
	opts := b.app.options
	b.app.manager = debugger.NewManager(opts.Preferences(),
		debugger.WithBus(b.app.bus),
		debugger.WithLogger(b.app.log),
		debugger.WithEngineConfig(opts.EngineConfig()),
	)
	b.app.queries = view.NewDispatcher(runtime.NumCPU(), 0)
	b.app.queries.Start()
	b.initOrder = append(b.initOrder, "manager")
	return nil
}

// initPersist restores the saved breakpoints.
func (b *bootstrapper) initPersist() error {
	if b.opts.NoPersist {
		return nil
	}
	path := b.opts.PersistPath
	if path == "" {
		var err error
		path, err = b.app.options.PersistPath()
		if err != nil {
			return &InitError{Component: "persist", Err: err}
		}
	}
	n, err := persist.Load(b.app.manager.Bag(), path, b.app.log)
	if err != nil {
		return &InitError{Component: "persist", Err: err}
	}
	b.app.persistPath = path
	b.app.log.Debug("restored %d breakpoints from %s", n, path)
	b.initOrder = append(b.initOrder, "persist")
	return nil
}

// initWatcher starts live config reload.
func (b *bootstrapper) initWatcher() error {
	if !b.opts.Watch || b.opts.ConfigPath == "" {
		return nil
	}
	environ := b.opts.Environ
	w, err := config.NewWatcher(b.opts.ConfigPath, b.app.ApplyConfig,
		config.WithWatcherLogger(b.app.log),
		config.WithEnviron(func() []string {
			if environ != nil {
				return environ
			}
			return os.Environ()
		}),
	)
	if err != nil {
		return &InitError{Component: "config watcher", Err: err}
	}
	b.app.watcher = w
	b.initOrder = append(b.initOrder, "watcher")
	return nil
}

// cleanup tears down initialized components in reverse order.
func (b *bootstrapper) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for i := len(b.initOrder) - 1; i >= 0; i-- {
		b.cleanupComponent(ctx, b.initOrder[i])
	}
}

// cleanupComponent cleans up a single component.
func (b *bootstrapper) cleanupComponent(ctx context.Context, component string) {
	switch component {
	case "watcher":
		if b.app.watcher != nil {
			_ = b.app.watcher.Close()
			b.app.watcher = nil
		}
	case "persist":
		b.app.persistPath = ""
	case "manager":
		if b.app.manager != nil {
			_ = b.app.manager.Shutdown(ctx)
		}
		if b.app.queries != nil {
			b.app.queries.Stop()
		}
	case "eventBus":
		if b.app.bus != nil {
			_ = b.app.bus.Stop(ctx)
		}
	}
}
