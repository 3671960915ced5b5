package view

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/dshills/nativedbg/internal/breakpoint"
)

// CallKind identifies a view query for dispatch.
type CallKind int

const (
	// CallChildren covers Children, ChildrenCount and IsLeaf.
	CallChildren CallKind = iota
	// CallValue covers ValueAt and IsSelected.
	CallValue
	// CallDisplayName covers DisplayName and IconBase.
	CallDisplayName
	// CallShortDescription covers ShortDescription.
	CallShortDescription
)

// String returns a string representation of the call kind.
func (k CallKind) String() string {
	switch k {
	case CallChildren:
		return "children"
	case CallValue:
		return "value"
	case CallDisplayName:
		return "displayName"
	case CallShortDescription:
		return "shortDescription"
	default:
		return fmt.Sprintf("CallKind(%d)", int(k))
	}
}

// Policy says where a query runs.
type Policy int

const (
	// PolicyDefault runs the query on a background worker.
	PolicyDefault Policy = iota
	// PolicyCurrentThread runs the query on the caller's goroutine.
	PolicyCurrentThread
)

// String returns a string representation of the policy.
func (p Policy) String() string {
	if p == PolicyCurrentThread {
		return "current-thread"
	}
	return "default"
}

// Asynchronous returns the dispatch policy of a query. Structural queries
// may block on a restore pass and go to a worker; names and descriptions
// are cheap and run in place.
func Asynchronous(kind CallKind) Policy {
	switch kind {
	case CallChildren, CallValue:
		return PolicyDefault
	case CallDisplayName, CallShortDescription:
		return PolicyCurrentThread
	}
	panic(breakpoint.Violation("Asynchronous: unexpected call kind %s", kind))
}

// Dispatcher errors.
var (
	// ErrDispatcherStopped is returned by Run after Stop, and to queries
	// still waiting for a worker when Stop is called.
	ErrDispatcherStopped = errors.New("dispatcher stopped")

	// ErrDispatcherNotStarted is returned by Run before Start.
	ErrDispatcherNotStarted = errors.New("dispatcher not started")
)

type job struct {
	ctx  context.Context
	fn   func(context.Context) error
	done chan error
}

// Dispatcher runs view queries according to their Policy.
type Dispatcher struct {
	jobs    chan job
	stop    chan struct{}
	stopped chan struct{}
	started atomic.Bool
	start   sync.Once
	once    sync.Once
	wg      sync.WaitGroup
	workers int
}

// NewDispatcher returns a dispatcher with the given number of background
// workers. It must be started before use.
func NewDispatcher(workers, bufferSize int) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Dispatcher{
		jobs:    make(chan job, bufferSize),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
		workers: workers,
	}
}

// Start starts the workers.
func (d *Dispatcher) Start() {
	d.start.Do(func() {
		for i := 0; i < d.workers; i++ {
			d.wg.Add(1)
			go d.loop()
		}
		d.started.Store(true)
	})
}

// Stop stops the workers after the jobs they are running. Queued jobs
// fail with ErrDispatcherStopped.
func (d *Dispatcher) Stop() {
	d.once.Do(func() {
		close(d.stop)
		d.wg.Wait()
		d.drain()
		close(d.stopped)
	})
	<-d.stopped
}

func (d *Dispatcher) drain() {
	for {
		select {
		case j := <-d.jobs:
			j.done <- ErrDispatcherStopped
		default:
			return
		}
	}
}

func (d *Dispatcher) loop() {
	defer d.wg.Done()
	for {
		select {
		case <-d.stop:
			return
		default:
		}
		select {
		case j := <-d.jobs:
			j.done <- d.exec(j.ctx, j.fn)
		case <-d.stop:
			return
		}
	}
}

func (d *Dispatcher) exec(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			// Protocol violations are programming errors and keep propagating.
			if pe, ok := r.(*breakpoint.ProtocolError); ok {
				panic(pe)
			}
			err = fmt.Errorf("view query panicked: %v\n%s", r, debug.Stack())
		}
	}()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}

// Run runs fn per policy and waits for it. With PolicyCurrentThread fn runs
// on the caller's goroutine; otherwise on a worker, and ctx bounds the wait.
func (d *Dispatcher) Run(ctx context.Context, policy Policy, fn func(context.Context) error) error {
	if policy == PolicyCurrentThread {
		return d.exec(ctx, fn)
	}
	select {
	case <-d.stop:
		return ErrDispatcherStopped
	default:
	}
	if !d.started.Load() {
		return ErrDispatcherNotStarted
	}
	j := job{ctx: ctx, fn: fn, done: make(chan error, 1)}
	select {
	case d.jobs <- j:
	case <-d.stop:
		return ErrDispatcherStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-j.done:
		return err
	case <-d.stopped:
		// A job queued after the drain is never picked up.
		select {
		case err := <-j.done:
			return err
		default:
			return ErrDispatcherStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Query runs fn with the policy of kind.
func (d *Dispatcher) Query(ctx context.Context, kind CallKind, fn func(context.Context) error) error {
	return d.Run(ctx, Asynchronous(kind), fn)
}
