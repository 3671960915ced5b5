package breakpoint

import (
	"fmt"
	"sort"
	"sync"
)

type planOp int

const (
	planNew planOp = iota
	planRestore
	planModify
)

func (o planOp) String() string {
	switch o {
	case planNew:
		return "new"
	case planRestore:
		return "restore"
	case planModify:
		return "modify"
	default:
		return "unknown"
	}
}

// plan remembers an in-flight request so its reply can be applied.
type plan struct {
	op     planOp
	target *Breakpoint
	edited *Breakpoint
	gen    Gen
}

// HandlerTable is the per-engine registry of handlers and in-flight
// requests. Engine replies enter the breakpoint tree through its Note*
// methods, which must be called on the engine's command goroutine.
type HandlerTable struct {
	mu       sync.Mutex
	debugger Debugger
	bag      *Bag
	handlers map[int]*Handler
	plans    map[int]plan
}

// NewHandlerTable returns the handler table of debugger d. Confirmed new
// breakpoints are added to bag.
func NewHandlerTable(d Debugger, bag *Bag) *HandlerTable {
	return &HandlerTable{
		debugger: d,
		bag:      bag,
		handlers: make(map[int]*Handler),
		plans:    make(map[int]plan),
	}
}

// Len returns the number of acknowledged handlers.
func (t *HandlerTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.handlers)
}

// Handlers returns the acknowledged handlers ordered by id.
func (t *HandlerTable) Handlers() []*Handler {
	t.mu.Lock()
	out := make([]*Handler, 0, len(t.handlers))
	for _, h := range t.handlers {
		out = append(out, h)
	}
	t.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Find returns the handler with engine id, or nil.
func (t *HandlerTable) Find(id int) *Handler {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.handlers[id]
}

// Pending reports whether a request with routing token rt awaits a reply.
func (t *HandlerTable) Pending(rt int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.plans[rt]
	return ok
}

func (t *HandlerTable) plan(rt int, op planOp, target, edited *Breakpoint, gen Gen) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.plans[rt] = plan{op: op, target: target, edited: edited, gen: gen}
}

func (t *HandlerTable) takePlan(rt int) (plan, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.plans[rt]
	if ok {
		delete(t.plans, rt)
	}
	return p, ok
}

func (t *HandlerTable) register(h *Handler, id int) {
	t.mu.Lock()
	if old := h.ID(); old != 0 && t.handlers[old] == h {
		delete(t.handlers, old)
	}
	t.handlers[id] = h
	t.mu.Unlock()
	h.SetID(id)
}

func (t *HandlerTable) forget(h *Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := h.ID()
	if t.handlers[id] == h {
		delete(t.handlers, id)
	}
}

// PostRestore asks the engine to plant the bag breakpoint target, which is
// either a toplevel template or a ghost midlevel breakpoint of this
// engine's target. The handler of a ghost is pending until the reply.
func (t *HandlerTable) PostRestore(target *Breakpoint) {
	if !t.debugger.IsLive() {
		return
	}
	rt := target.RoutingToken()
	t.plan(rt, planRestore, target, nil, Primary(target))
	if target.IsMidlevel() {
		if children := target.Children(); len(children) > 0 && children[0].Handler() == nil {
			NewHandler(t.debugger, children[0]).MarkInProgress()
		}
	}
	t.debugger.Provider().PostCreateHandler(rt, NewCommand(OpCreate, target, 0), target)
}

// NoteNew applies the reply to a create request: the breakpoint is bound
// to the engine under id. attrs carries values the engine adjusted, such as
// a line moved to the nearest statement.
func (t *HandlerTable) NoteNew(rt, id int, attrs map[string]string) (*Handler, error) {
	p, ok := t.takePlan(rt)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrPlanNotFound, rt)
	}
	d := t.debugger

	var top, mid *Breakpoint
	switch {
	case p.target.IsToplevel():
		top = p.target
		mid = top.MidlevelFor(d)
		if mid == nil {
			mid = top.MakeMidlevelCopy()
			top.SetMidBreakpointFor(mid, d)
		}
	case p.target.IsMidlevel():
		top, mid = p.target.Parent(), p.target
		if mid.Debugger() == nil {
			mid.BindTo(d)
		}
	default:
		return nil, fmt.Errorf("create reply for %s breakpoint", p.target.Level())
	}

	var sub *Breakpoint
	if children := mid.Children(); len(children) > 0 {
		sub = children[0]
		if sub.Debugger() == nil {
			sub.BindTo(d)
		}
	} else {
		sub = mid.MakeSubBreakpointCopy()
		mid.AddSubBreakpoint(sub, d)
	}
	if len(attrs) > 0 {
		if err := sub.SetAttrs(attrs); err != nil {
			return nil, err
		}
		sub.SetAdjusted(false)
	}

	h := sub.Handler()
	if h == nil {
		h = NewHandler(d, sub)
	}
	t.register(h, id)

	if p.op == planNew && top != nil && t.bag != nil && !t.bag.Contains(top) {
		t.bag.Add(top)
	}
	if top != nil {
		top.UpdateAndParent()
	}
	return h, nil
}

// NoteCreateError applies a rejected create request. A new breakpoint still
// enters the bag, unbound, so the user's request is not lost.
func (t *HandlerTable) NoteCreateError(rt int, msg string) error {
	p, ok := t.takePlan(rt)
	if !ok {
		return fmt.Errorf("%w: %d", ErrPlanNotFound, rt)
	}
	if p.op == planNew && t.bag != nil && !t.bag.Contains(p.target) {
		t.bag.Add(p.target)
	}
	if p.target.IsMidlevel() {
		for _, c := range p.target.Children() {
			if h := c.Handler(); h != nil && h.ID() == 0 {
				h.Cleanup()
			}
		}
	}
	return nil
}

// NoteReplaced applies the reply to a change or repair request: the
// engine replanted the breakpoint under id. The change is then spread to
// the rest of the family under the generation it was requested with.
func (t *HandlerTable) NoteReplaced(rt, id int) error {
	p, ok := t.takePlan(rt)
	if !ok {
		return fmt.Errorf("%w: %d", ErrPlanNotFound, rt)
	}
	target := p.target
	h := target.Handler()
	if h == nil {
		return fmt.Errorf("%w: replaced breakpoint has no handler", ErrHandlerNotFound)
	}
	t.register(h, id)
	target.copyFrom(p.edited)
	target.markTimestamp()
	h.SetError("")
	target.UpdateAndParent()
	if parent := target.Parent(); parent != nil {
		parent.SpreadChange(target, p.edited, p.gen)
	}
	return nil
}

// NoteChangeError applies a rejected change or repair request: the
// breakpoint keeps its old values and is marked broken.
func (t *HandlerTable) NoteChangeError(rt int, msg string) error {
	p, ok := t.takePlan(rt)
	if !ok {
		return fmt.Errorf("%w: %d", ErrPlanNotFound, rt)
	}
	if h := p.target.Handler(); h != nil {
		h.SetError(msg)
	}
	return nil
}

func (t *HandlerTable) find(id int) (*Handler, error) {
	h := t.Find(id)
	if h == nil {
		return nil, fmt.Errorf("%w: %d", ErrHandlerNotFound, id)
	}
	return h, nil
}

// NoteEnabled applies confirmed enabledness for handler id.
func (t *HandlerTable) NoteEnabled(id int, enabled bool, gen Gen) error {
	h, err := t.find(id)
	if err != nil {
		return err
	}
	h.ApplyEnabled(enabled, gen)
	return nil
}

// NoteHit records that the program stopped at handler id. Every other
// handler of the engine stops being the fired one.
func (t *HandlerTable) NoteHit(id, count int) error {
	h, err := t.find(id)
	if err != nil {
		return err
	}
	for _, other := range t.Handlers() {
		if other != h {
			other.SetFired(false)
		}
	}
	h.SetCount(count)
	h.SetFired(true)
	return nil
}

// NoteResumed clears the fired state of every handler.
func (t *HandlerTable) NoteResumed() {
	for _, h := range t.Handlers() {
		h.SetFired(false)
	}
}

// NoteError records an engine error for handler id; "" clears it.
func (t *HandlerTable) NoteError(id int, msg string) error {
	h, err := t.find(id)
	if err != nil {
		return err
	}
	h.SetError(msg)
	return nil
}

// NoteCountLimit records a confirmed count limit for handler id.
func (t *HandlerTable) NoteCountLimit(id, limit int, hasLimit bool) error {
	h, err := t.find(id)
	if err != nil {
		return err
	}
	h.SetCountLimit(limit, hasLimit)
	return nil
}

// NoteDeleted removes the breakpoint of handler id after the engine
// deleted it. A primary gen, as for a deletion typed at the engine,
// spreads to the other sessions.
func (t *HandlerTable) NoteDeleted(id int, gen Gen) error {
	h, err := t.find(id)
	if err != nil {
		return err
	}
	b := h.Breakpoint()
	t.forget(h)
	if b == nil {
		h.Cleanup()
		return nil
	}
	b.PrimDelete(false, gen)
	return nil
}

// Cleanup ends the session of the engine: every handler is released and
// the engine's breakpoints become ghosts, culled by the bag's ghost buster.
func (t *HandlerTable) Cleanup() {
	t.mu.Lock()
	handlers := make([]*Handler, 0, len(t.handlers))
	for _, h := range t.handlers {
		handlers = append(handlers, h)
	}
	t.handlers = make(map[int]*Handler)
	t.plans = make(map[int]plan)
	t.mu.Unlock()

	for _, h := range handlers {
		h.Cleanup()
	}
	if t.bag != nil {
		t.bag.CleanupSession(t.debugger)
	}
}
