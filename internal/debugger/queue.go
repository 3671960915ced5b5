package debugger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dshills/nativedbg/internal/breakpoint"
	"github.com/dshills/nativedbg/internal/logging"
)

// Task is a unit of work run on a Queue. ctx identifies the queue, so work
// posted from inside a task runs inline.
type Task func(ctx context.Context)

type queueKey struct{}

// Queue runs tasks one at a time, in the order they were posted, on a
// single goroutine. Every engine owns one; engine replies are applied to
// the breakpoint tree only from its queue.
//
// Post never blocks: a reply applied on one queue may post follow-up
// commands to the same queue.
type Queue struct {
	name string
	log  *logging.Logger

	mu        sync.Mutex
	tasks     []Task
	signal    chan struct{}
	done      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// NewQueue creates a stopped queue with room for size tasks before it
// grows.
func NewQueue(name string, size int, log *logging.Logger) *Queue {
	if size <= 0 {
		size = 256
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Queue{
		name:   name,
		log:    log.WithField("queue", name),
		tasks:  make([]Task, 0, size),
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Start starts the queue goroutine. Calling it again is a no-op.
func (q *Queue) Start() {
	q.startOnce.Do(func() {
		q.wg.Add(1)
		go q.loop()
	})
}

// Stop stops the queue. Tasks still queued are dropped and waiting callers
// get ErrDisconnected. Stop waits for the running task to finish.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() {
		close(q.done)
	})
	q.wg.Wait()
}

// IsClosed reports whether Stop was called.
func (q *Queue) IsClosed() bool {
	select {
	case <-q.done:
		return true
	default:
		return false
	}
}

// OnQueue reports whether ctx belongs to a task running on q.
func (q *Queue) OnQueue(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	owner, _ := ctx.Value(queueKey{}).(*Queue)
	return owner == q
}

func (q *Queue) loop() {
	defer q.wg.Done()
	ctx := context.WithValue(context.Background(), queueKey{}, q)
	for {
		select {
		case <-q.done:
			return
		case <-q.signal:
		}
		for {
			task, ok := q.next()
			if !ok {
				break
			}
			if q.IsClosed() {
				return
			}
			q.run(ctx, task)
		}
	}
}

func (q *Queue) next() (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) == 0 {
		return nil, false
	}
	task := q.tasks[0]
	q.tasks[0] = nil
	q.tasks = q.tasks[1:]
	return task, true
}

// Len returns the number of tasks waiting to run.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

func (q *Queue) run(ctx context.Context, task Task) {
	defer func() {
		if r := recover(); r != nil {
			if perr, ok := r.(*breakpoint.ProtocolError); ok {
				panic(perr)
			}
			q.log.Error("task panicked: %v", r)
		}
	}()
	task(ctx)
}

// Post queues task and returns without waiting for it. Posting from a task
// already running on q runs task inline.
func (q *Queue) Post(ctx context.Context, task Task) error {
	if q.OnQueue(ctx) {
		task(ctx)
		return nil
	}
	if q.IsClosed() {
		return ErrDisconnected
	}
	q.mu.Lock()
	q.tasks = append(q.tasks, task)
	q.mu.Unlock()
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return nil
}

// Call runs fn on q and waits for its result. A deadline on ctx that
// passes first yields ErrTimeout; a queue stopped first yields
// ErrDisconnected.
func (q *Queue) Call(ctx context.Context, fn func(ctx context.Context) error) error {
	if q.OnQueue(ctx) {
		return fn(ctx)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	result := make(chan error, 1)
	err := q.Post(ctx, func(qctx context.Context) {
		var err error
		defer func() {
			if r := recover(); r != nil {
				result <- fmt.Errorf("task panicked: %v", r)
				panic(r)
			}
			result <- err
		}()
		err = fn(qctx)
	})
	if err != nil {
		return err
	}
	select {
	case err := <-result:
		return err
	case <-q.done:
		select {
		case err := <-result:
			return err
		default:
			return ErrDisconnected
		}
	case <-ctx.Done():
		return q.ctxErr(ctx)
	}
}

func (q *Queue) ctxErr(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", q.name, ErrTimeout)
	}
	return ctx.Err()
}
