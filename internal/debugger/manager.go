package debugger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/nativedbg/internal/breakpoint"
	"github.com/dshills/nativedbg/internal/event"
	"github.com/dshills/nativedbg/internal/logging"
)

// Preference names published with event.PreferencesChanged.
const (
	PrefSessionOnly      = "sessionOnly"
	PrefSkipSingleParent = "skipSingleParent"
	PrefGhostBuster      = "ghostBuster"
	PrefPerTarget        = "perTarget"
)

// Preferences are the runtime switches of the breakpoint views and of
// breakpoint propagation.
type Preferences struct {
	SessionOnly          bool
	SkipSingleParent     bool
	GhostBuster          bool
	PerTarget            bool
	Standalone           bool
	EnableDifferentiates bool
}

// DefaultPreferences returns the default preferences.
func DefaultPreferences() Preferences {
	return Preferences{
		SessionOnly:          true,
		SkipSingleParent:     true,
		GhostBuster:          false,
		PerTarget:            true,
		Standalone:           true,
		EnableDifferentiates: true,
	}
}

// Session is a running engine.
type Session struct {
	ID      string
	Engine  *Engine
	Started time.Time
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithBus publishes refresh and session events on bus.
func WithBus(bus *event.Bus) ManagerOption {
	return func(m *Manager) { m.bus = bus }
}

// WithLogger sets the logger.
func WithLogger(log *logging.Logger) ManagerOption {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// WithEngineConfig sets the configuration of engines started by the
// manager.
func WithEngineConfig(cfg EngineConfig) ManagerOption {
	return func(m *Manager) { m.engineConfig = cfg }
}

// Manager owns the breakpoint bag and the debug sessions, tracks the
// current one and holds the preferences. It is the environment of the bag
// and the context of the breakpoint views.
type Manager struct {
	bag          *breakpoint.Bag
	bus          *event.Bus
	log          *logging.Logger
	engineConfig EngineConfig

	mu       sync.RWMutex
	prefs    Preferences
	sessions []*Session
	current  *Session
}

// NewManager creates a manager with an empty bag.
func NewManager(prefs Preferences, opts ...ManagerOption) *Manager {
	m := &Manager{
		prefs:        prefs,
		log:          logging.Discard(),
		engineConfig: DefaultEngineConfig(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.WithComponent("manager")
	m.bag = breakpoint.NewBag(m)
	return m
}

// Bag returns the breakpoint bag.
func (m *Manager) Bag() *breakpoint.Bag { return m.bag }

// StartSession starts an engine over backend, makes it current and plants
// the bag's breakpoints in it.
func (m *Manager) StartSession(name string, backend Backend) (*Session, error) {
	e := NewEngine(name, backend, m.bag, m.engineConfig, m.log)
	if err := e.Start(); err != nil {
		return nil, err
	}
	s := &Session{ID: uuid.NewString(), Engine: e, Started: time.Now()}
	e.OnExit(func(*Engine) {
		ctx, cancel := context.WithTimeout(context.Background(), m.engineConfig.CommandTimeout)
		defer cancel()
		if err := m.EndSession(ctx, s.ID); err != nil {
			m.log.Warn("ending exited session %s: %v", name, err)
		}
	})

	m.mu.Lock()
	m.sessions = append(m.sessions, s)
	m.current = s
	m.mu.Unlock()

	m.log.Info("session %s started for %s", name, backend.Target())
	m.publish(event.NewSessionEvent(event.TopicSessionStarted, s.ID, name))
	m.publish(event.NewSessionEvent(event.TopicSessionCurrent, s.ID, name))

	if err := e.Queue().Post(context.Background(), func(context.Context) {
		n := m.bag.RestoreTo(e)
		m.log.Debug("restoring %d breakpoints into %s", n, name)
	}); err != nil {
		return s, &CommandError{Op: "restore", Engine: name, Err: err}
	}
	return s, nil
}

// EndSession stops session id. Its breakpoints become ghosts and the most
// recently started remaining session becomes current.
func (m *Manager) EndSession(ctx context.Context, id string) error {
	m.mu.Lock()
	var s *Session
	for i, x := range m.sessions {
		if x.ID == id {
			s = x
			m.sessions = append(m.sessions[:i:i], m.sessions[i+1:]...)
			break
		}
	}
	if s == nil {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	changedCurrent := m.current == s
	if changedCurrent {
		m.current = nil
		if n := len(m.sessions); n > 0 {
			m.current = m.sessions[n-1]
		}
	}
	current := m.current
	m.mu.Unlock()

	err := s.Engine.Stop(ctx)
	m.log.Info("session %s ended", s.Engine.Name())
	m.publish(event.NewSessionEvent(event.TopicSessionEnded, s.ID, s.Engine.Name()))
	if changedCurrent && current != nil {
		m.publish(event.NewSessionEvent(event.TopicSessionCurrent, current.ID, current.Engine.Name()))
	}
	m.publish(event.TreeChanged{})
	return err
}

// SetCurrent makes session id current.
func (m *Manager) SetCurrent(id string) error {
	m.mu.Lock()
	var s *Session
	for _, x := range m.sessions {
		if x.ID == id {
			s = x
			break
		}
	}
	if s == nil {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	m.current = s
	m.mu.Unlock()

	m.publish(event.NewSessionEvent(event.TopicSessionCurrent, s.ID, s.Engine.Name()))
	m.publish(event.TreeChanged{})
	return nil
}

// Sessions returns the running sessions in start order.
func (m *Manager) Sessions() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*Session(nil), m.sessions...)
}

// Current returns the current session, or nil.
func (m *Manager) Current() *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Sync waits until the engines have applied every reply to commands posted
// so far, including the commands those replies spread to other engines.
func (m *Manager) Sync(ctx context.Context) error {
	// A change hops to another engine at most once per generation level.
	for round := 0; round <= breakpoint.MaxDepth; round++ {
		for _, s := range m.Sessions() {
			if err := s.Engine.Sync(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

// Shutdown stops every session concurrently.
func (m *Manager) Shutdown(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, s := range m.Sessions() {
		id := s.ID
		g.Go(func() error {
			return m.EndSession(ctx, id)
		})
	}
	return g.Wait()
}

// CurrentDebugger implements breakpoint.Env.
func (m *Manager) CurrentDebugger() breakpoint.Debugger {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return nil
	}
	return m.current.Engine
}

// SessionCount returns the number of running sessions.
func (m *Manager) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Preferences returns the current preferences.
func (m *Manager) Preferences() Preferences {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.prefs
}

// IsPerTargetBpts implements breakpoint.Env.
func (m *Manager) IsPerTargetBpts() bool { return m.Preferences().PerTarget }

// IsStandalone reports whether the debugger runs outside an IDE.
func (m *Manager) IsStandalone() bool { return m.Preferences().Standalone }

// GhostBuster implements breakpoint.Env.
func (m *Manager) GhostBuster() bool { return m.Preferences().GhostBuster }

// EnableDifferentiates implements breakpoint.Env.
func (m *Manager) EnableDifferentiates() bool { return m.Preferences().EnableDifferentiates }

// SessionOnly reports whether views show only the current session.
func (m *Manager) SessionOnly() bool { return m.Preferences().SessionOnly }

// SkipSingleParent reports whether views collapse single-child parents.
func (m *Manager) SkipSingleParent() bool { return m.Preferences().SkipSingleParent }

// Updater implements breakpoint.Env.
func (m *Manager) Updater() breakpoint.Updater {
	if m.bus == nil {
		return nil
	}
	return breakpoint.BusUpdater{Bus: m.bus}
}

// ToggleSessionOnly flips SessionOnly.
func (m *Manager) ToggleSessionOnly() {
	m.update(func(p *Preferences) { p.SessionOnly = !p.SessionOnly })
}

// ToggleSkipSingleParent flips SkipSingleParent.
func (m *Manager) ToggleSkipSingleParent() {
	m.update(func(p *Preferences) { p.SkipSingleParent = !p.SkipSingleParent })
}

// ToggleGhostBuster flips GhostBuster.
func (m *Manager) ToggleGhostBuster() {
	m.update(func(p *Preferences) { p.GhostBuster = !p.GhostBuster })
}

// SetPreferences replaces the preferences.
func (m *Manager) SetPreferences(prefs Preferences) {
	m.update(func(p *Preferences) { *p = prefs })
}

// update applies fn and publishes one event per changed view switch,
// followed by a full tree refresh.
func (m *Manager) update(fn func(*Preferences)) {
	m.mu.Lock()
	old := m.prefs
	fn(&m.prefs)
	now := m.prefs
	m.mu.Unlock()

	changes := []struct {
		name     string
		old, now bool
	}{
		{PrefSessionOnly, old.SessionOnly, now.SessionOnly},
		{PrefSkipSingleParent, old.SkipSingleParent, now.SkipSingleParent},
		{PrefGhostBuster, old.GhostBuster, now.GhostBuster},
		{PrefPerTarget, old.PerTarget, now.PerTarget},
	}
	changed := false
	for _, c := range changes {
		if c.old == c.now {
			continue
		}
		changed = true
		m.log.Debug("preference %s = %v", c.name, c.now)
		m.publish(event.PreferencesChanged{Name: c.name, Value: c.now})
	}
	if changed {
		m.publish(event.TreeChanged{})
	}
}

func (m *Manager) publish(ev event.Event) {
	if m.bus == nil {
		return
	}
	if err := m.bus.Publish(context.Background(), ev); err != nil {
		m.log.Debug("event %s not published: %v", ev.Topic(), err)
	}
}
