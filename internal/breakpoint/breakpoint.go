package breakpoint

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrUnknownProperty is returned when a property name or key is not known.
	ErrUnknownProperty = errors.New("unknown breakpoint property")

	// ErrInvalidValue is returned when a value does not fit the property type.
	ErrInvalidValue = errors.New("invalid property value")
)

var routingTokens atomic.Int64

// Annotation is a source or disassembly location of a planted breakpoint.
type Annotation struct {
	File string
	Line int
	Addr uint64
}

// Breakpoint is a node of the breakpoint tree.
//
// A Breakpoint guards its own fields; no method calls out to another node,
// a Handler or an Updater while holding the lock.
type Breakpoint struct {
	mu sync.RWMutex

	level Level
	kind  Kind
	props []Property

	parent   *Breakpoint
	children []*Breakpoint
	debugger Debugger
	handler  *Handler
	original *Breakpoint

	env Env
	bag *Bag

	timestamp        time.Time
	updateTimestamp  bool
	srcOutOfSync     bool
	annotations      []Annotation
	routingToken     int
	deletingChildren bool
	restored         bool
}

func newNode(kind Kind, level Level) *Breakpoint {
	b := &Breakpoint{
		level:     level,
		kind:      kind,
		props:     newProperties(kind),
		timestamp: time.Now(),
	}
	b.props[b.index(PropEnabled)].value = true
	return b
}

// New returns an unattached toplevel breakpoint of the given kind.
func New(kind Kind) *Breakpoint {
	return newNode(kind, Toplevel)
}

// NewLineBreakpoint returns a toplevel breakpoint on file:line.
func NewLineBreakpoint(file string, line int) *Breakpoint {
	b := New(KindLine)
	b.props[b.index(PropFile)].value = file
	b.props[b.index(PropLine)].value = line
	return b
}

// NewFunctionBreakpoint returns a toplevel breakpoint on entry to fn.
func NewFunctionBreakpoint(fn string) *Breakpoint {
	b := New(KindFunction)
	b.props[b.index(PropFunction)].value = fn
	return b
}

// NewInstructionBreakpoint returns a toplevel breakpoint at address.
func NewInstructionBreakpoint(address string) *Breakpoint {
	b := New(KindInstruction)
	b.props[b.index(PropAddress)].value = address
	return b
}

// NewRestored returns a node decoded from persistent storage. Restored
// nodes are assembled with RestoringChild and handed to Bag.Restore.
func NewRestored(kind Kind, level Level) *Breakpoint {
	b := newNode(kind, level)
	b.restored = true
	b.timestamp = time.Unix(0, 0)
	return b
}

// Level returns the level of b.
func (b *Breakpoint) Level() Level { return b.level }

// Kind returns the kind of b.
func (b *Breakpoint) Kind() Kind { return b.kind }

// IsToplevel reports whether b is a toplevel template.
func (b *Breakpoint) IsToplevel() bool { return b.level == Toplevel }

// IsMidlevel reports whether b is a per-target breakpoint.
func (b *Breakpoint) IsMidlevel() bool { return b.level == Midlevel }

// IsSubBreakpoint reports whether b is a per-thread breakpoint.
func (b *Breakpoint) IsSubBreakpoint() bool { return b.level == SubBreakpoint }

// IsEditable reports whether b is an editable copy.
func (b *Breakpoint) IsEditable() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.original != nil
}

// Original returns the breakpoint an editable copy was made from.
func (b *Breakpoint) Original() *Breakpoint {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.original
}

func (b *Breakpoint) environment() Env {
	b.mu.RLock()
	env := b.env
	b.mu.RUnlock()
	if env == nil {
		return defaultEnv{}
	}
	return env
}

func (b *Breakpoint) updater() Updater {
	return b.environment().Updater()
}

// index returns the position of the named property, or -1.
// Callers hold the lock or own b exclusively.
func (b *Breakpoint) index(name string) int {
	for i := range b.props {
		if b.props[i].def.name == name {
			return i
		}
	}
	return -1
}

func (b *Breakpoint) indexByKey(key string) int {
	if key == "" {
		return -1
	}
	for i := range b.props {
		if b.props[i].def.key == key {
			return i
		}
	}
	return -1
}

// Properties returns a snapshot of all properties.
func (b *Breakpoint) Properties() []Property {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Property(nil), b.props...)
}

// PropertyByKey returns the property shown in the column key.
func (b *Breakpoint) PropertyByKey(key string) (Property, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	i := b.indexByKey(key)
	if i < 0 {
		return Property{}, false
	}
	return b.props[i], true
}

// PropertyByName returns the property persisted under name.
func (b *Breakpoint) PropertyByName(name string) (Property, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	i := b.index(name)
	if i < 0 {
		return Property{}, false
	}
	return b.props[i], true
}

// Value returns the value of the named property, or nil.
func (b *Breakpoint) Value(name string) any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	i := b.index(name)
	if i < 0 {
		return nil
	}
	return b.props[i].value
}

func (b *Breakpoint) setValue(name string, v any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i := b.index(name); i >= 0 {
		b.props[i].value = v
	}
}

func (b *Breakpoint) stringValue(name string) string {
	s, _ := b.Value(name).(string)
	return s
}

func (b *Breakpoint) intValue(name string) int {
	n, _ := b.Value(name).(int)
	return n
}

func (b *Breakpoint) boolValue(name string) bool {
	v, _ := b.Value(name).(bool)
	return v
}

// SetProperty edits the named property of an editable copy and marks it
// dirty. The edit takes effect through PostChange.
func (b *Breakpoint) SetProperty(name string, v any) error {
	assert(b.IsEditable(), "SetProperty(%s) on non-editable breakpoint %s", name, b)
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.index(name)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownProperty, name)
	}
	if b.props[i].def.readOnly {
		return fmt.Errorf("%w: %s is read-only", ErrInvalidValue, name)
	}
	cv, ok := coerceValue(b.props[i].def.typ, v)
	if !ok {
		return fmt.Errorf("%w: %s: %T", ErrInvalidValue, name, v)
	}
	b.props[i].value = cv
	b.props[i].dirty = true
	return nil
}

// SetAttrs assigns properties from their persisted string forms. Unknown
// names are ignored; values that do not parse are reported and skipped.
func (b *Breakpoint) SetAttrs(attrs map[string]string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var errs []error
	for i := range b.props {
		s, ok := attrs[b.props[i].def.name]
		if !ok {
			continue
		}
		v, err := parseValue(b.props[i].def.typ, s)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %s=%q", ErrInvalidValue, b.props[i].def.name, s))
			continue
		}
		b.props[i].value = v
	}
	return errors.Join(errs...)
}

// Attrs returns the persisted string form of every property that differs
// from its zero value. The enabled property is always present.
func (b *Breakpoint) Attrs() map[string]string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	attrs := make(map[string]string, len(b.props))
	for _, p := range b.props {
		if p.def.name != PropEnabled && p.value == zeroValue(p.def.typ) {
			continue
		}
		attrs[p.def.name] = formatValue(p.value)
	}
	return attrs
}

// IsDirty reports whether any property of an editable copy was edited.
func (b *Breakpoint) IsDirty() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, p := range b.props {
		if p.dirty {
			return true
		}
	}
	return false
}

// ID returns the engine id mirrored from the handler, 0 when unbound.
func (b *Breakpoint) ID() int { return b.intValue(PropID) }

func (b *Breakpoint) setID(id int) { b.setValue(PropID, id) }

// Count returns the hit count.
func (b *Breakpoint) Count() int { return b.intValue(PropCount) }

// CountLimit returns the hit count limit, 0 when there is none.
func (b *Breakpoint) CountLimit() int { return b.intValue(PropCountLimit) }

// HasCountLimit reports whether a count limit is set.
func (b *Breakpoint) HasCountLimit() bool { return b.CountLimit() != 0 }

// Condition returns the opaque condition expression.
func (b *Breakpoint) Condition() string { return b.stringValue(PropCondition) }

// IsTemp reports whether the breakpoint is deleted after the first hit.
func (b *Breakpoint) IsTemp() bool { return b.boolValue(PropTemp) }

// IsAdjusted reports whether the breakpoint required user intervention,
// such as trimming an overload list.
func (b *Breakpoint) IsAdjusted() bool { return b.boolValue(PropAdjusted) }

// SetAdjusted records user intervention.
func (b *Breakpoint) SetAdjusted(adjusted bool) { b.setValue(PropAdjusted, adjusted) }

// Context returns the debug target of b.
func (b *Breakpoint) Context() Context {
	c, _ := b.Value(PropContext).(Context)
	return c
}

func (b *Breakpoint) setContext(c Context) { b.setValue(PropContext, c) }

// Pid returns the process id of the bound debuggee, or -1.
func (b *Breakpoint) Pid() int {
	d := b.Debugger()
	if d == nil {
		return -1
	}
	return d.Pid()
}

// EmbellishedContext renders a context column value as "[pid] basename",
// or just the basename when b is not bound to a live process.
func (b *Breakpoint) EmbellishedContext(value string) string {
	if value == "" {
		return ""
	}
	base := ParseContext(value).Basename()
	if pid := b.Pid(); pid != -1 {
		return fmt.Sprintf("[%d] %s", pid, base)
	}
	return base
}

// Timestamp returns when b was last saved.
func (b *Breakpoint) Timestamp() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.timestamp
}

// RestoreTimestamp sets the timestamp decoded from persistent storage.
func (b *Breakpoint) RestoreTimestamp(t time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.timestamp = t
}

func (b *Breakpoint) markTimestamp() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.srcOutOfSync {
		b.updateTimestamp = true
	}
}

// PrepareForSaving refreshes the timestamp when b changed since it was
// restored. Call right before encoding.
func (b *Breakpoint) PrepareForSaving() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.updateTimestamp {
		b.timestamp = time.Now()
	}
}

// Annotations returns the locations of b.
func (b *Breakpoint) Annotations() []Annotation {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Annotation(nil), b.annotations...)
}

// AddAnnotation records a location of b.
func (b *Breakpoint) AddAnnotation(file string, line int, addr uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.annotations = append(b.annotations, Annotation{File: file, Line: line, Addr: addr})
}

func (b *Breakpoint) removeAnnotations() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.annotations = nil
}

// RoutingToken returns the token correlating engine replies with requests
// for b. It is allocated on first use.
func (b *Breakpoint) RoutingToken() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.routingToken == 0 {
		b.routingToken = int(routingTokens.Add(1))
	}
	return b.routingToken
}

// Error returns the error text shown for b, or "".
func (b *Breakpoint) Error() string {
	b.mu.RLock()
	outOfSync := b.srcOutOfSync
	h := b.handler
	b.mu.RUnlock()
	if outOfSync {
		return "File newer than breakpoint (modified outside of the debugger?)"
	}
	if b.IsSubBreakpoint() && h != nil {
		return h.Error()
	}
	return ""
}

// IsBroken reports whether b failed to plant. A toplevel breakpoint is
// broken when its current-session child is; a midlevel one when any child is.
func (b *Breakpoint) IsBroken() bool {
	switch b.level {
	case Toplevel:
		for _, c := range b.Children() {
			if c.IsBound() && c.IsCurrent() && c.IsBroken() {
				return true
			}
		}
		return false
	case Midlevel:
		for _, c := range b.Children() {
			if c.IsBroken() {
				return true
			}
		}
		return false
	default:
		return b.Error() != ""
	}
}

// IsFired reports whether b is the breakpoint the program stopped at.
func (b *Breakpoint) IsFired() bool {
	switch b.level {
	case Toplevel:
		for _, c := range b.Children() {
			if c.IsBound() && c.IsFired() && c.IsCurrent() {
				return true
			}
		}
		return false
	case Midlevel:
		for _, c := range b.Children() {
			if c.IsFired() {
				return true
			}
		}
		return false
	default:
		h := b.Handler()
		return h != nil && h.IsFired()
	}
}

// IsEnabled returns the summarized enabledness of b.
func (b *Breakpoint) IsEnabled() bool { return b.boolValue(PropEnabled) }

// setEnabled records confirmed enabledness and re-summarizes the parent.
func (b *Breakpoint) setEnabled(enabled bool) {
	b.setValue(PropEnabled, enabled)
	b.Update()
	if b.IsToplevel() {
		return
	}
	if p := b.Parent(); p != nil {
		p.setEnabled(p.recalculateIsEnabled())
	}
}

func (b *Breakpoint) recalculateIsEnabled() bool {
	if b.IsSubBreakpoint() {
		return b.IsEnabled()
	}
	children := b.Children()
	if len(children) == 0 {
		return b.IsEnabled()
	}
	enabled := false
	for _, c := range children {
		enabled = enabled || c.recalculateIsEnabled()
	}
	return enabled
}

// SetPropEnabled requests a change of enabledness. Bound sub-breakpoints
// route the request through their handler; everything else changes now.
func (b *Breakpoint) SetPropEnabled(enabled bool) {
	if b.IsSubBreakpoint() {
		if b.HasHandler() {
			b.Handler().PostEnable(enabled, b.RoutingToken())
		} else {
			b.setEnabled(enabled)
		}
		return
	}
	children := b.Children()
	if len(children) == 0 {
		b.setEnabled(enabled)
		return
	}
	for _, c := range children {
		c.SetPropEnabled(enabled)
	}
}

// Enable requests enabling b. In per-target mode only the current
// session's instance is affected.
func (b *Breakpoint) Enable() { b.enableHelp(true) }

// Disable requests disabling b. In per-target mode only the current
// session's instance is affected.
func (b *Breakpoint) Disable() { b.enableHelp(false) }

func (b *Breakpoint) enableHelp(enabled bool) {
	if b.environment().IsPerTargetBpts() {
		if current := b.findCurrent(); current != nil {
			current.SetPropEnabled(enabled)
		}
		return
	}
	b.SetPropEnabled(enabled)
}

// setCount records a confirmed hit count. An only child propagates its
// count so that it does not linger as a differentiated ghost.
func (b *Breakpoint) setCount(n int) {
	b.setValue(PropCount, n)
	if p := b.Parent(); p != nil && b.IsOnlyChild() {
		p.setCount(n)
	}
}

// setCountLimit records a confirmed count limit; clearing it resets the count.
func (b *Breakpoint) setCountLimit(limit int, hasLimit bool) {
	if hasLimit {
		b.setValue(PropCountLimit, limit)
		return
	}
	b.setValue(PropCountLimit, 0)
	b.setCount(0)
}

// String returns a debugging representation of b.
func (b *Breakpoint) String() string {
	var level string
	switch b.level {
	case Toplevel:
		level = ".--"
	case Midlevel:
		level = " .-"
	default:
		level = "  ."
	}
	edit := " "
	if b.IsEditable() {
		edit = "*"
	}
	bound := "unbound"
	if b.IsBound() {
		bound = "  bound"
	}
	return fmt.Sprintf("(%s%s%s [%d] %s)", level, edit, b.Summary(), b.NChildren(), bound)
}
