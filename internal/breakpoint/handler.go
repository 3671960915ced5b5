package breakpoint

import "sync"

// State is the synchronization state of a Handler.
type State int

const (
	// StateUnbound means the engine has not assigned an id.
	StateUnbound State = iota
	// StatePending means a create request is in flight.
	StatePending
	// StateBound means the engine agrees with the breakpoint.
	StateBound
	// StateBroken means the engine reported an error for a planted breakpoint.
	StateBroken
	// StateCleanedUp is terminal.
	StateCleanedUp
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateUnbound:
		return "unbound"
	case StatePending:
		return "pending"
	case StateBound:
		return "bound"
	case StateBroken:
		return "broken"
	case StateCleanedUp:
		return "cleaned-up"
	default:
		return "unknown"
	}
}

// DefunctError is the error text of a defunct handler.
const DefunctError = "defunct"

// Handler mediates between one breakpoint and one engine. It owns the
// engine id and the engine-reported state, and it is the only writer of
// engine-derived state onto the breakpoint.
//
// Setters are called from the engine's command goroutine when a reply
// arrives. UI code calls the Post* methods.
type Handler struct {
	mu         sync.RWMutex
	id         int
	breakpoint *Breakpoint
	debugger   Debugger
	fired      bool
	err        string
	inProgress bool
	cleanedUp  bool
}

// NewHandler binds b to a new handler for debugger d.
func NewHandler(d Debugger, b *Breakpoint) *Handler {
	assert(d != nil, "NewHandler: nil debugger")
	assert(b != nil, "NewHandler: nil breakpoint")
	h := &Handler{breakpoint: b, debugger: d}
	b.setHandler(h)
	return h
}

// ID returns the engine id, 0 until the engine acknowledges the handler.
func (h *Handler) ID() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.id
}

// SetID records the id assigned by the engine.
func (h *Handler) SetID(id int) {
	h.mu.Lock()
	h.id = id
	h.inProgress = false
	b := h.breakpoint
	h.mu.Unlock()
	if b != nil {
		b.setID(id)
		b.Update()
	}
}

// Breakpoint returns the bound breakpoint, nil after Cleanup.
func (h *Handler) Breakpoint() *Breakpoint {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.breakpoint
}

// Debugger returns the owning engine.
func (h *Handler) Debugger() Debugger {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.debugger
}

// State returns the synchronization state.
func (h *Handler) State() State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	switch {
	case h.cleanedUp:
		return StateCleanedUp
	case h.id == 0 && h.inProgress:
		return StatePending
	case h.id == 0:
		return StateUnbound
	case h.err != "":
		return StateBroken
	default:
		return StateBound
	}
}

// IsFired reports whether the program stopped at this handler.
func (h *Handler) IsFired() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.fired
}

// Error returns the engine-reported error, or "".
func (h *Handler) Error() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.err
}

// IsInProgress reports whether a request for this handler is in flight.
func (h *Handler) IsInProgress() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.inProgress
}

// MarkInProgress records that a create request was posted.
func (h *Handler) MarkInProgress() {
	h.mu.Lock()
	h.inProgress = true
	b := h.breakpoint
	h.mu.Unlock()
	if b != nil {
		b.Update()
	}
}

// live returns the breakpoint when the handler has been acknowledged and
// not cleaned up; state pulls are no-ops otherwise.
func (h *Handler) live() *Breakpoint {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.cleanedUp || h.id == 0 {
		return nil
	}
	return h.breakpoint
}

// PostEnable requests a change of enabledness. Without an engine binding the
// change applies now; otherwise the engine is asked and the breakpoint is
// left untouched until it replies.
func (h *Handler) PostEnable(enabled bool, rt int) {
	b := h.Breakpoint()
	if b == nil {
		return
	}
	if !b.HasHandler() {
		b.setEnabled(enabled)
		return
	}
	h.PostEnableGen(enabled, rt, Primary(b))
}

// PostEnableGen is PostEnable with an explicit generation.
func (h *Handler) PostEnableGen(enabled bool, rt int, gen Gen) {
	d := h.Debugger()
	if d == nil || !d.IsLive() {
		return
	}
	d.Provider().PostEnableHandler(rt, h, enabled, gen)
}

// ApplyEnabled applies confirmed enabledness. A primary generation means the
// change started in this engine; it is then re-posted once to the other
// engines holding the same logical breakpoint.
func (h *Handler) ApplyEnabled(enabled bool, gen Gen) {
	h.SetEnabled(enabled)
	if !gen.Spreads() {
		return
	}
	for _, cousin := range h.cousins() {
		cb := cousin.Breakpoint()
		if cb == nil || cb.IsEnabled() == enabled {
			continue
		}
		cousin.PostEnableGen(enabled, cb.RoutingToken(), gen.Second())
	}
}

// cousins returns the acknowledged handlers of the same toplevel breakpoint
// in other engines.
func (h *Handler) cousins() []*Handler {
	b := h.live()
	if b == nil {
		return nil
	}
	top := b
	for top.Parent() != nil {
		top = top.Parent()
	}
	var out []*Handler
	for _, mid := range top.Children() {
		for _, sub := range mid.Children() {
			c := sub.Handler()
			if c == nil || c == h || c.Debugger() == h.Debugger() || c.live() == nil {
				continue
			}
			out = append(out, c)
		}
	}
	return out
}

// SetEnabled records confirmed enabledness.
func (h *Handler) SetEnabled(enabled bool) {
	if b := h.live(); b != nil {
		b.setEnabled(enabled)
	}
}

// SetCount records a confirmed hit count.
func (h *Handler) SetCount(n int) {
	if b := h.live(); b != nil {
		b.setCount(n)
		b.Update()
	}
}

// SetCountLimit records a confirmed count limit.
func (h *Handler) SetCountLimit(limit int, hasLimit bool) {
	if b := h.live(); b != nil {
		b.setCountLimit(limit, hasLimit)
		b.Update()
	}
}

// SetError records an engine error; "" clears it.
func (h *Handler) SetError(msg string) {
	h.mu.Lock()
	if h.err == msg {
		h.mu.Unlock()
		return
	}
	h.err = msg
	h.inProgress = false
	b := h.breakpoint
	h.mu.Unlock()
	if b != nil {
		b.UpdateAndParent()
	}
}

// SetDefunct marks the handler broken with DefunctError, or clears it.
func (h *Handler) SetDefunct(defunct bool) {
	if defunct {
		h.SetError(DefunctError)
	} else {
		h.SetError("")
	}
}

// SetFired records whether the program stopped here. Setting the current
// value again does not notify.
func (h *Handler) SetFired(fired bool) {
	h.mu.Lock()
	if h.fired == fired {
		h.mu.Unlock()
		return
	}
	h.fired = fired
	b := h.breakpoint
	h.mu.Unlock()
	if b != nil {
		b.UpdateAndParent()
	}
}

// Cleanup releases the breakpoint. Calling it again is a no-op.
func (h *Handler) Cleanup() {
	h.mu.Lock()
	if h.cleanedUp {
		h.mu.Unlock()
		return
	}
	h.cleanedUp = true
	h.inProgress = false
	b := h.breakpoint
	h.breakpoint = nil
	h.mu.Unlock()
	if b != nil && b.Handler() == h {
		b.setHandler(nil)
	}
}

// PostNewHandler realizes the new toplevel breakpoint nb. Without a
// debugger nb goes straight into the bag. A debugger that is not live yet
// gets nothing. Otherwise a create command is posted and the breakpoint
// enters the tree when the engine replies.
func PostNewHandler(bag *Bag, d Debugger, nb *Breakpoint, rt int) {
	if d == nil {
		bag.Add(nb)
		return
	}
	if !d.IsLive() {
		return
	}
	d.Handlers().plan(rt, planNew, nb, nil, Primary(nb))
	d.Provider().PostCreateHandler(rt, NewCommand(OpCreate, nb, 0), nb)
}

// PostChange asks d to apply edited to the bound sub-breakpoint target.
// Broken targets are repaired from scratch instead of patched.
func PostChange(d Debugger, target, edited *Breakpoint, gen Gen) {
	assert(edited.IsEditable(), "PostChange: edited breakpoint isn't editable")
	h := target.Handler()
	id := 0
	if h != nil {
		id = h.ID()
	}
	rt := target.RoutingToken()
	d.Handlers().plan(rt, planModify, target, edited, gen)
	if target.IsBroken() {
		d.Provider().PostRepairHandler(rt, NewCommand(OpRepair, edited, id), target, gen)
		return
	}
	d.Provider().PostChangeHandler(rt, NewCommand(OpChange, edited, id), target, gen)
}
