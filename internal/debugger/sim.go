package debugger

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/dshills/nativedbg/internal/breakpoint"
)

// SimBreakpoint is a breakpoint planted in a SimBackend.
type SimBreakpoint struct {
	ID      int
	Kind    breakpoint.Kind
	Attrs   map[string]string
	Enabled bool
	Count   int
}

// SimOption configures a SimBackend.
type SimOption func(*SimBackend)

// WithHost sets the host the simulated engine reports.
func WithHost(host string) SimOption {
	return func(s *SimBackend) { s.host = host }
}

// WithPid sets the debuggee process id.
func WithPid(pid int) SimOption {
	return func(s *SimBackend) { s.pid = pid }
}

// WithLatency delays every command.
func WithLatency(d time.Duration) SimOption {
	return func(s *SimBackend) { s.latency = d }
}

// WithLines restricts line breakpoints to the given statement lines of
// file. A breakpoint on another line moves to the next statement line, or
// fails past the last one.
func WithLines(file string, lines ...int) SimOption {
	return func(s *SimBackend) {
		sorted := append([]int(nil), lines...)
		sort.Ints(sorted)
		s.lines[file] = sorted
	}
}

// SimBackend is an in-memory engine. It plants breakpoints in a table and
// lets tests and demos play the part of the engine console.
type SimBackend struct {
	mu      sync.Mutex
	target  string
	host    string
	pid     int
	latency time.Duration
	lines   map[string][]int
	nextID  int
	bpts    map[int]*SimBreakpoint
	notes   chan Notification
	closed  bool
	calls   map[string]int
}

// NewSimBackend returns a simulated engine debugging target.
func NewSimBackend(target string, opts ...SimOption) *SimBackend {
	s := &SimBackend{
		target: target,
		pid:    -1,
		lines:  make(map[string][]int),
		bpts:   make(map[int]*SimBreakpoint),
		notes:  make(chan Notification, 64),
		calls:  make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Target implements Backend.
func (s *SimBackend) Target() string { return s.target }

// Host implements Backend.
func (s *SimBackend) Host() string { return s.host }

// Pid implements Backend.
func (s *SimBackend) Pid() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pid
}

// Notifications implements Backend.
func (s *SimBackend) Notifications() <-chan Notification { return s.notes }

func (s *SimBackend) begin(ctx context.Context, op string) error {
	if s.latency > 0 {
		t := time.NewTimer(s.latency)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrDisconnected
	}
	s.calls[op]++
	return nil
}

// Create implements Backend.
func (s *SimBackend) Create(ctx context.Context, cmd breakpoint.Command) (int, map[string]string, error) {
	if err := s.begin(ctx, "create"); err != nil {
		return 0, nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	attrs, err := s.resolve(cmd)
	if err != nil {
		return 0, nil, err
	}
	id := s.plant(cmd)
	for k, v := range attrs {
		s.bpts[id].Attrs[k] = v
	}
	return id, attrs, nil
}

// Replace implements Backend.
func (s *SimBackend) Replace(ctx context.Context, cmd breakpoint.Command) (int, error) {
	if err := s.begin(ctx, "replace"); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.resolve(cmd); err != nil {
		return 0, err
	}
	delete(s.bpts, cmd.ID)
	return s.plant(cmd), nil
}

// Enable implements Backend.
func (s *SimBackend) Enable(ctx context.Context, id int, enabled bool) error {
	if err := s.begin(ctx, "enable"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	bp, ok := s.bpts[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNoSuchBreakpoint, id)
	}
	bp.Enabled = enabled
	return nil
}

// Delete implements Backend.
func (s *SimBackend) Delete(ctx context.Context, id int) error {
	if err := s.begin(ctx, "delete"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bpts[id]; !ok {
		return fmt.Errorf("%w: %d", ErrNoSuchBreakpoint, id)
	}
	delete(s.bpts, id)
	return nil
}

// Close implements Backend.
func (s *SimBackend) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.notes)
	return nil
}

// resolve checks the location of cmd and returns the adjusted attributes.
func (s *SimBackend) resolve(cmd breakpoint.Command) (map[string]string, error) {
	switch cmd.Kind {
	case breakpoint.KindLine:
		file := cmd.Attrs[breakpoint.PropFile]
		line, err := strconv.Atoi(cmd.Attrs[breakpoint.PropLine])
		if file == "" || err != nil || line <= 0 {
			return nil, fmt.Errorf("%w: %s:%s", ErrBadLocation, file, cmd.Attrs[breakpoint.PropLine])
		}
		lines, ok := s.lines[file]
		if !ok {
			return nil, nil
		}
		for _, l := range lines {
			if l == line {
				return nil, nil
			}
			if l > line {
				return map[string]string{breakpoint.PropLine: strconv.Itoa(l)}, nil
			}
		}
		return nil, fmt.Errorf("%w: %s:%d", ErrBadLocation, file, line)
	case breakpoint.KindFunction:
		if cmd.Attrs[breakpoint.PropFunction] == "" {
			return nil, fmt.Errorf("%w: no function", ErrBadLocation)
		}
	case breakpoint.KindInstruction:
		if _, err := strconv.ParseUint(cmd.Attrs[breakpoint.PropAddress], 0, 64); err != nil {
			return nil, fmt.Errorf("%w: bad address %q", ErrBadLocation, cmd.Attrs[breakpoint.PropAddress])
		}
	}
	return nil, nil
}

func (s *SimBackend) plant(cmd breakpoint.Command) int {
	s.nextID++
	attrs := make(map[string]string, len(cmd.Attrs))
	for k, v := range cmd.Attrs {
		attrs[k] = v
	}
	enabled := true
	if v, ok := attrs[breakpoint.PropEnabled]; ok {
		enabled, _ = strconv.ParseBool(v)
	}
	s.bpts[s.nextID] = &SimBreakpoint{ID: s.nextID, Kind: cmd.Kind, Attrs: attrs, Enabled: enabled}
	return s.nextID
}

// Breakpoints returns the planted breakpoints ordered by id.
func (s *SimBackend) Breakpoints() []SimBreakpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SimBreakpoint, 0, len(s.bpts))
	for _, bp := range s.bpts {
		out = append(out, *bp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Calls returns how many times op was called: "create", "replace",
// "enable" or "delete".
func (s *SimBackend) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *SimBackend) notify(n Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrDisconnected
	}
	s.notes <- n
	return nil
}

// Run starts the debuggee with process id pid.
func (s *SimBackend) Run(pid int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pid = pid
}

// Hit stops the program at breakpoint id.
func (s *SimBackend) Hit(id int) error {
	s.mu.Lock()
	bp, ok := s.bpts[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrNoSuchBreakpoint, id)
	}
	bp.Count++
	count := bp.Count
	s.mu.Unlock()
	return s.notify(Notification{Kind: NoteHit, ID: id, Count: count})
}

// Resume continues the program.
func (s *SimBackend) Resume() error {
	return s.notify(Notification{Kind: NoteResumed})
}

// ConsoleEnable enables or disables breakpoint id as if typed at the
// engine console.
func (s *SimBackend) ConsoleEnable(id int, enabled bool) error {
	s.mu.Lock()
	bp, ok := s.bpts[id]
	if ok {
		bp.Enabled = enabled
	}
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %d", ErrNoSuchBreakpoint, id)
	}
	return s.notify(Notification{Kind: NoteEnabled, ID: id, Enabled: enabled})
}

// ConsoleDelete deletes breakpoint id as if typed at the engine console.
func (s *SimBackend) ConsoleDelete(id int) error {
	s.mu.Lock()
	_, ok := s.bpts[id]
	delete(s.bpts, id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %d", ErrNoSuchBreakpoint, id)
	}
	return s.notify(Notification{Kind: NoteDeleted, ID: id})
}

// Invalidate reports that breakpoint id can no longer be honored.
func (s *SimBackend) Invalidate(id int, reason string) error {
	return s.notify(Notification{Kind: NoteError, ID: id, Message: reason})
}

// Exit ends the engine process.
func (s *SimBackend) Exit() error {
	return s.notify(Notification{Kind: NoteExited})
}
