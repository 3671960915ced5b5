package breakpoint

import (
	"fmt"
	"path"
	"strings"
)

// Rendition selects how a breakpoint row is drawn.
type Rendition int

const (
	// RenditionPlain is the normal rendering.
	RenditionPlain Rendition = iota
	// RenditionCurrent highlights the instance of the current session.
	RenditionCurrent
	// RenditionGhost greys out an instance whose session ended.
	RenditionGhost
)

// String returns a string representation of the rendition.
func (r Rendition) String() string {
	switch r {
	case RenditionCurrent:
		return "current"
	case RenditionGhost:
		return "ghost"
	default:
		return "plain"
	}
}

// AddingBreakpoint is the display name of a sub-breakpoint whose handler
// awaits its engine.
const AddingBreakpoint = "Adding breakpoint..."

// Summary returns the location of b, e.g. "main.c:12" or "foo()".
func (b *Breakpoint) Summary() string {
	var s string
	switch b.kind {
	case KindLine:
		s = fmt.Sprintf("%s:%d", path.Base(b.stringValue(PropFile)), b.intValue(PropLine))
	case KindFunction:
		s = b.stringValue(PropFunction) + "()"
	case KindInstruction:
		s = "*" + b.stringValue(PropAddress)
	}
	if cond := b.Condition(); cond != "" {
		s += " if " + cond
	}
	if b.IsToplevel() {
		return s
	}
	if ctx := b.Context(); !ctx.IsZero() && b.IsMidlevel() {
		s += ", " + ctx.Basename()
	}
	return s
}

// DisplayName returns the text of the name column.
func (b *Breakpoint) DisplayName() string {
	if b.IsSubBreakpoint() {
		if h := b.Handler(); h != nil && h.IsInProgress() {
			return AddingBreakpoint
		}
	}
	return b.Summary()
}

// Rendition returns how the row of b should be drawn.
func (b *Breakpoint) Rendition() Rendition {
	switch b.level {
	case SubBreakpoint:
		p := b.Parent()
		if b.IsCurrent() && p != nil && !p.IsOnlyChild() {
			return RenditionCurrent
		}
	case Midlevel:
		if b.IsCurrent() && !b.IsOnlyChild() {
			return RenditionCurrent
		}
	default:
		return RenditionPlain
	}
	if !b.IsBound() {
		return RenditionGhost
	}
	return RenditionPlain
}

// ShortDescription returns the flyover text: the error when b is broken,
// otherwise its summary.
func (b *Breakpoint) ShortDescription() string {
	if b.IsBroken() {
		if err := b.brokenReason(); err != "" {
			return b.Summary() + " (" + err + ")"
		}
	}
	return b.Summary()
}

func (b *Breakpoint) brokenReason() string {
	if b.IsSubBreakpoint() {
		return b.Error()
	}
	for _, c := range b.Children() {
		if c.IsBroken() {
			return c.brokenReason()
		}
	}
	return b.Error()
}

// IconBase returns the icon name for b, built like
// "DisabledBreakpoint", "BreakpointBroken" or "BreakpointHit".
func (b *Breakpoint) IconBase() string {
	var name strings.Builder
	enabled := b.IsEnabled()
	if !enabled {
		name.WriteString("Disabled")
	}
	if b.Condition() != "" {
		name.WriteString("Conditional")
	}
	name.WriteString("Breakpoint")
	switch {
	case b.IsBroken() && enabled:
		name.WriteString("Broken")
	case b.IsFired():
		name.WriteString("Hit")
	}
	return name.String()
}
