package event

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// HandlerFunc handles one event.
type HandlerFunc func(ctx context.Context, ev Event) error

// PanicHandler is called when a handler panics.
type PanicHandler func(ev Event, recovered any, stack []byte)

// Subscription is a registered handler.
type Subscription struct {
	id      string
	pattern Topic
	handler HandlerFunc
	once    bool
	active  atomic.Bool
}

// ID returns the unique id of the subscription.
func (s *Subscription) ID() string { return s.id }

// Pattern returns the topic pattern the subscription matches.
func (s *Subscription) Pattern() Topic { return s.pattern }

// IsActive reports whether the subscription still receives events.
func (s *Subscription) IsActive() bool { return s.active.Load() }

// SubscriptionOption configures a subscription.
type SubscriptionOption func(*Subscription)

// Once removes the subscription after its first delivery.
func Once() SubscriptionOption {
	return func(s *Subscription) { s.once = true }
}

// Option configures a Bus.
type Option func(*busConfig)

type busConfig struct {
	queueSize    int
	timeout      time.Duration
	panicHandler PanicHandler
}

func defaultBusConfig() busConfig {
	return busConfig{
		queueSize:    4096,
		timeout:      5 * time.Second,
		panicHandler: func(Event, any, []byte) {},
	}
}

// WithQueueSize sets the async queue size.
func WithQueueSize(size int) Option {
	return func(c *busConfig) {
		if size > 0 {
			c.queueSize = size
		}
	}
}

// WithHandlerTimeout bounds how long an async delivery may take.
func WithHandlerTimeout(timeout time.Duration) Option {
	return func(c *busConfig) {
		c.timeout = timeout
	}
}

// WithPanicHandler sets the panic handler.
func WithPanicHandler(h PanicHandler) Option {
	return func(c *busConfig) {
		if h != nil {
			c.panicHandler = h
		}
	}
}

// Stats contains bus statistics.
type Stats struct {
	Published     uint64
	Delivered     uint64
	Dropped       uint64
	HandlerErrors uint64
	Panics        uint64
	QueueDepth    int
	Subscriptions int
}

type task struct {
	ctx context.Context
	ev  Event
}

// Bus delivers events to subscribers matching their topic.
type Bus struct {
	config busConfig

	mu   sync.RWMutex
	subs []*Subscription

	qmu     sync.Mutex // protects queue creation and closing
	queue   chan task
	running atomic.Bool
	wg      sync.WaitGroup

	published     atomic.Uint64
	delivered     atomic.Uint64
	dropped       atomic.Uint64
	handlerErrors atomic.Uint64
	panics        atomic.Uint64
}

// NewBus creates a stopped bus.
func NewBus(opts ...Option) *Bus {
	cfg := defaultBusConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Bus{config: cfg}
}

// Start starts the delivery worker.
func (b *Bus) Start() error {
	b.qmu.Lock()
	defer b.qmu.Unlock()
	if b.running.Load() {
		return ErrBusAlreadyRunning
	}
	b.queue = make(chan task, b.config.queueSize)
	b.running.Store(true)
	b.wg.Add(1)
	go b.worker(b.queue)
	return nil
}

// Stop stops accepting events and waits until queued events are delivered
// or ctx is done.
func (b *Bus) Stop(ctx context.Context) error {
	b.qmu.Lock()
	if !b.running.Load() {
		b.qmu.Unlock()
		return ErrBusNotRunning
	}
	b.running.Store(false)
	close(b.queue)
	b.qmu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRunning reports whether the bus accepts events.
func (b *Bus) IsRunning() bool {
	return b.running.Load()
}

// Subscribe registers fn for events whose topic matches pattern.
func (b *Bus) Subscribe(pattern Topic, fn HandlerFunc, opts ...SubscriptionOption) (*Subscription, error) {
	if pattern == "" {
		return nil, ErrInvalidTopic
	}
	if fn == nil {
		return nil, ErrNilHandler
	}
	s := &Subscription{id: uuid.NewString(), pattern: pattern, handler: fn}
	for _, opt := range opts {
		opt(s)
	}
	s.active.Store(true)
	b.mu.Lock()
	b.subs = append(b.subs, s)
	b.mu.Unlock()
	return s, nil
}

// Unsubscribe removes s.
func (b *Bus) Unsubscribe(s *Subscription) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, x := range b.subs {
		if x == s {
			s.active.Store(false)
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return nil
		}
	}
	return ErrSubscriptionNotFound
}

func (b *Bus) match(t Topic) []*Subscription {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []*Subscription
	for _, s := range b.subs {
		if s.IsActive() && t.Matches(s.pattern) {
			out = append(out, s)
		}
	}
	return out
}

// Publish queues ev for delivery on the bus worker.
func (b *Bus) Publish(ctx context.Context, ev Event) error {
	if ev == nil || ev.Topic() == "" {
		return ErrInvalidEvent
	}
	b.qmu.Lock()
	defer b.qmu.Unlock()
	if !b.running.Load() {
		return ErrBusNotRunning
	}
	select {
	case b.queue <- task{ctx: ctx, ev: ev}:
		b.published.Add(1)
		return nil
	default:
		b.dropped.Add(1)
		return ErrQueueFull
	}
}

// PublishSync delivers ev on the calling goroutine and returns the first
// handler error.
func (b *Bus) PublishSync(ctx context.Context, ev Event) error {
	if ev == nil || ev.Topic() == "" {
		return ErrInvalidEvent
	}
	if !b.running.Load() {
		return ErrBusNotRunning
	}
	b.published.Add(1)
	return b.deliver(ctx, ev)
}

func (b *Bus) worker(queue chan task) {
	defer b.wg.Done()
	for t := range queue {
		ctx := t.ctx
		if ctx == nil {
			ctx = context.Background()
		}
		if ctx.Err() != nil {
			b.dropped.Add(1)
			continue
		}
		var cancel context.CancelFunc
		if b.config.timeout > 0 {
			ctx, cancel = context.WithTimeout(ctx, b.config.timeout)
		}
		_ = b.deliver(ctx, t.ev)
		if cancel != nil {
			cancel()
		}
	}
}

func (b *Bus) deliver(ctx context.Context, ev Event) error {
	var first error
	for _, s := range b.match(ev.Topic()) {
		if s.once && !s.active.CompareAndSwap(true, false) {
			continue
		}
		err := b.call(ctx, s, ev)
		if s.once {
			_ = b.Unsubscribe(s)
		}
		if err != nil {
			b.handlerErrors.Add(1)
			if first == nil {
				first = err
			}
			continue
		}
		b.delivered.Add(1)
	}
	return first
}

func (b *Bus) call(ctx context.Context, s *Subscription, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.panics.Add(1)
			b.config.panicHandler(ev, r, debug.Stack())
			err = fmt.Errorf("handler %s panicked: %v", s.id, r)
		}
	}()
	return s.handler(ctx, ev)
}

// Stats returns bus statistics.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	n := len(b.subs)
	b.mu.RUnlock()
	depth := 0
	b.qmu.Lock()
	if b.running.Load() {
		depth = len(b.queue)
	}
	b.qmu.Unlock()
	return Stats{
		Published:     b.published.Load(),
		Delivered:     b.delivered.Load(),
		Dropped:       b.dropped.Load(),
		HandlerErrors: b.handlerErrors.Load(),
		Panics:        b.panics.Load(),
		QueueDepth:    depth,
		Subscriptions: n,
	}
}
