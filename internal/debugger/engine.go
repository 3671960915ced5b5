package debugger

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/nativedbg/internal/breakpoint"
	"github.com/dshills/nativedbg/internal/logging"
)

// EngineConfig configures an Engine.
type EngineConfig struct {
	// CommandTimeout bounds each backend command.
	CommandTimeout time.Duration
	// QueueSize is the command queue buffer.
	QueueSize int
}

// DefaultEngineConfig returns the default engine configuration.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		CommandTimeout: 5 * time.Second,
		QueueSize:      256,
	}
}

// CommandRecord describes a command posted to an engine.
type CommandRecord struct {
	Op  string
	RT  int
	ID  int
	Gen breakpoint.Gen
}

// CommandHook observes commands as they are posted.
type CommandHook func(rec CommandRecord)

// Engine is one debugger session: a Backend, the Queue serializing its
// commands and replies, and the HandlerTable replies are applied to.
//
// Engine implements breakpoint.Debugger and breakpoint.Provider.
type Engine struct {
	id      string
	name    string
	backend Backend
	config  EngineConfig
	queue   *Queue
	table   *breakpoint.HandlerTable
	log     *logging.Logger

	live    atomic.Bool
	started atomic.Bool
	wg      sync.WaitGroup

	mu     sync.RWMutex
	hooks  []CommandHook
	onExit func(*Engine)
}

// NewEngine creates a stopped engine over backend. Confirmed new
// breakpoints are added to bag.
func NewEngine(name string, backend Backend, bag *breakpoint.Bag, config EngineConfig, log *logging.Logger) *Engine {
	if config.CommandTimeout <= 0 {
		config.CommandTimeout = DefaultEngineConfig().CommandTimeout
	}
	if log == nil {
		log = logging.Discard()
	}
	log = log.WithComponent("engine").WithField("engine", name)
	e := &Engine{
		id:      uuid.NewString(),
		name:    name,
		backend: backend,
		config:  config,
		log:     log,
	}
	e.queue = NewQueue(name, config.QueueSize, log)
	e.table = breakpoint.NewHandlerTable(e, bag)
	return e
}

// ID returns the unique id of the engine.
func (e *Engine) ID() string { return e.id }

// Name implements breakpoint.Debugger.
func (e *Engine) Name() string { return e.name }

// IsLive implements breakpoint.Debugger.
func (e *Engine) IsLive() bool { return e.live.Load() }

// Provider implements breakpoint.Debugger.
func (e *Engine) Provider() breakpoint.Provider { return e }

// Handlers implements breakpoint.Debugger.
func (e *Engine) Handlers() *breakpoint.HandlerTable { return e.table }

// Target implements breakpoint.Debugger.
func (e *Engine) Target() string { return e.backend.Target() }

// Host implements breakpoint.Debugger.
func (e *Engine) Host() string { return e.backend.Host() }

// Pid implements breakpoint.Debugger.
func (e *Engine) Pid() int { return e.backend.Pid() }

// Queue returns the command queue of the engine.
func (e *Engine) Queue() *Queue { return e.queue }

// String returns "name (target)".
func (e *Engine) String() string {
	return fmt.Sprintf("%s (%s)", e.name, path.Base(e.Target()))
}

// AddCommandHook registers a hook called for every command posted.
func (e *Engine) AddCommandHook(h CommandHook) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hooks = append(e.hooks, h)
}

// OnExit sets the function called on the queue when the engine process
// exits.
func (e *Engine) OnExit(fn func(*Engine)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onExit = fn
}

// Start starts the queue and begins applying backend notifications.
func (e *Engine) Start() error {
	if !e.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	e.queue.Start()
	e.live.Store(true)
	e.wg.Add(1)
	go e.listen()
	e.log.Info("engine started")
	return nil
}

// Stop ends the session: handlers are released on the queue, the backend
// is closed and the queue stopped. The breakpoints of the engine become
// ghosts.
func (e *Engine) Stop(ctx context.Context) error {
	if !e.live.CompareAndSwap(true, false) {
		return nil
	}
	var errs []error
	if err := e.queue.Call(ctx, func(context.Context) error {
		e.table.Cleanup()
		return nil
	}); err != nil {
		errs = append(errs, &CommandError{Op: "cleanup", Engine: e.name, Err: err})
	}
	if err := e.backend.Close(); err != nil {
		errs = append(errs, &CommandError{Op: "close", Engine: e.name, Err: err})
	}
	e.queue.Stop()
	e.wg.Wait()
	e.log.Info("engine stopped")
	return errors.Join(errs...)
}

// Sync waits until every task queued before it has run.
func (e *Engine) Sync(ctx context.Context) error {
	return e.queue.Call(ctx, func(context.Context) error { return nil })
}

func (e *Engine) listen() {
	defer e.wg.Done()
	for n := range e.backend.Notifications() {
		if err := e.queue.Post(context.Background(), func(ctx context.Context) {
			e.apply(ctx, n)
		}); err != nil {
			e.log.Debug("dropping %s notification: %v", n.Kind, err)
		}
	}
}

// apply runs on the queue.
func (e *Engine) apply(_ context.Context, n Notification) {
	var err error
	switch n.Kind {
	case NoteHit:
		err = e.table.NoteHit(n.ID, n.Count)
	case NoteResumed:
		e.table.NoteResumed()
	case NoteEnabled:
		err = e.table.NoteEnabled(n.ID, n.Enabled, e.consoleGen(n.ID))
	case NoteDeleted:
		err = e.table.NoteDeleted(n.ID, e.consoleGen(n.ID))
	case NoteError:
		err = e.table.NoteError(n.ID, n.Message)
	case NoteCountLimit:
		err = e.table.NoteCountLimit(n.ID, n.Limit, n.Limit != 0)
	case NoteExited:
		e.mu.RLock()
		fn := e.onExit
		e.mu.RUnlock()
		if fn != nil {
			go fn(e)
		}
	}
	if err != nil {
		e.log.Warn("%s notification: %v", n.Kind, err)
	}
}

// consoleGen is the generation of a change that started at the engine.
func (e *Engine) consoleGen(id int) breakpoint.Gen {
	var origin *breakpoint.Breakpoint
	if h := e.table.Find(id); h != nil {
		origin = h.Breakpoint()
	}
	return breakpoint.Primary(origin)
}

func (e *Engine) record(op string, rt, id int, gen breakpoint.Gen) {
	e.log.Debug("post %s rt=%d id=%d gen=%s", op, rt, id, gen)
	e.mu.RLock()
	hooks := append([]CommandHook(nil), e.hooks...)
	e.mu.RUnlock()
	for _, h := range hooks {
		h(CommandRecord{Op: op, RT: rt, ID: id, Gen: gen})
	}
}

// post queues a backend command. The command runs under the command
// timeout; reply runs afterwards on the queue.
func (e *Engine) post(op string, run func(ctx context.Context) error) {
	err := e.queue.Post(context.Background(), func(qctx context.Context) {
		ctx, cancel := context.WithTimeout(qctx, e.config.CommandTimeout)
		defer cancel()
		if err := run(ctx); err != nil {
			e.log.Warn("%v", err)
		}
	})
	if err != nil {
		e.log.Warn("%s not posted: %v", op, err)
	}
}

func (e *Engine) fail(op string, err error) *CommandError {
	if errors.Is(err, context.DeadlineExceeded) {
		err = ErrTimeout
	}
	return &CommandError{Op: op, Engine: e.name, Err: err}
}

// PostCreateHandler implements breakpoint.Provider.
func (e *Engine) PostCreateHandler(rt int, cmd breakpoint.Command, b *breakpoint.Breakpoint) {
	e.record("create", rt, 0, breakpoint.Primary(b))
	e.post("create", func(ctx context.Context) error {
		id, attrs, err := e.backend.Create(ctx, cmd)
		if err != nil {
			cerr := e.fail("create", err)
			if nerr := e.table.NoteCreateError(rt, cerr.Reason()); nerr != nil {
				return errors.Join(cerr, nerr)
			}
			return cerr
		}
		if _, err := e.table.NoteNew(rt, id, attrs); err != nil {
			return e.fail("create", err)
		}
		return nil
	})
}

// PostChangeHandler implements breakpoint.Provider.
func (e *Engine) PostChangeHandler(rt int, cmd breakpoint.Command, _ *breakpoint.Breakpoint, gen breakpoint.Gen) {
	e.replace("change", rt, cmd, gen)
}

// PostRepairHandler implements breakpoint.Provider.
func (e *Engine) PostRepairHandler(rt int, cmd breakpoint.Command, _ *breakpoint.Breakpoint, gen breakpoint.Gen) {
	e.replace("repair", rt, cmd, gen)
}

func (e *Engine) replace(op string, rt int, cmd breakpoint.Command, gen breakpoint.Gen) {
	e.record(op, rt, cmd.ID, gen)
	e.post(op, func(ctx context.Context) error {
		id, err := e.backend.Replace(ctx, cmd)
		if err != nil {
			cerr := e.fail(op, err)
			if nerr := e.table.NoteChangeError(rt, cerr.Reason()); nerr != nil {
				return errors.Join(cerr, nerr)
			}
			return cerr
		}
		if err := e.table.NoteReplaced(rt, id); err != nil {
			return e.fail(op, err)
		}
		return nil
	})
}

// PostEnableHandler implements breakpoint.Provider. The acknowledgment is
// applied with the reply generation and does not spread.
func (e *Engine) PostEnableHandler(rt int, h *breakpoint.Handler, enabled bool, gen breakpoint.Gen) {
	id := h.ID()
	e.record("enable", rt, id, gen)
	e.post("enable", func(ctx context.Context) error {
		if err := e.backend.Enable(ctx, id, enabled); err != nil {
			cerr := e.fail("enable", err)
			if nerr := e.table.NoteError(id, cerr.Reason()); nerr != nil {
				return errors.Join(cerr, nerr)
			}
			return cerr
		}
		if err := e.table.NoteEnabled(id, enabled, gen.Reply()); err != nil {
			return e.fail("enable", err)
		}
		return nil
	})
}

// PostDeleteHandler implements breakpoint.Provider.
func (e *Engine) PostDeleteHandler(rt int, h *breakpoint.Handler, gen breakpoint.Gen) {
	id := h.ID()
	e.record("delete", rt, id, gen)
	e.post("delete", func(ctx context.Context) error {
		if err := e.backend.Delete(ctx, id); err != nil && !errors.Is(err, ErrNoSuchBreakpoint) {
			return e.fail("delete", err)
		}
		if err := e.table.NoteDeleted(id, gen.Reply()); err != nil {
			return e.fail("delete", err)
		}
		return nil
	})
}

// PostEnableAllHandlers implements breakpoint.Provider.
func (e *Engine) PostEnableAllHandlers(enabled bool) {
	e.record("enableAll", 0, 0, breakpoint.Primary(nil))
	e.post("enableAll", func(ctx context.Context) error {
		var errs []error
		for _, h := range e.table.Handlers() {
			b := h.Breakpoint()
			if b == nil || b.IsEnabled() == enabled {
				continue
			}
			id := h.ID()
			if err := e.backend.Enable(ctx, id, enabled); err != nil {
				errs = append(errs, e.fail("enable", err))
				continue
			}
			if err := e.table.NoteEnabled(id, enabled, breakpoint.Secondary(b)); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}

// PostDeleteAllHandlers implements breakpoint.Provider.
func (e *Engine) PostDeleteAllHandlers() {
	e.record("deleteAll", 0, 0, breakpoint.Primary(nil))
	e.post("deleteAll", func(ctx context.Context) error {
		var errs []error
		for _, h := range e.table.Handlers() {
			id := h.ID()
			if err := e.backend.Delete(ctx, id); err != nil && !errors.Is(err, ErrNoSuchBreakpoint) {
				errs = append(errs, e.fail("delete", err))
				continue
			}
			if err := e.table.NoteDeleted(id, breakpoint.Secondary(h.Breakpoint())); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}
