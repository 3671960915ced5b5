// Package breakpoint implements the breakpoint synchronization core of the
// native debugger front end.
//
// Breakpoints form a three level tree:
//
//	Toplevel       a template, not bound to any debug target
//	  Midlevel     one per debug target (session)
//	    Sub        per-thread refinement; the unit bound to a Handler
//
// The Bag owns the toplevel breakpoints. Every engine connection owns a
// HandlerTable holding one Handler per bound sub-breakpoint. Engine-derived
// state (ids, enabledness, hit state, errors) is only ever written through a
// Handler, and only in response to an engine reply. UI requests go through the
// Post* methods and leave visible state untouched until the reply arrives.
//
// Every propagated request carries a Gen. A primary Gen may spread to other
// engines exactly once; the derived secondary and tertiary generations never
// spread again, which bounds the echo of a single user action across N
// engines.
//
// Misuse of the protocol (deriving a second generation from a non-primary Gen,
// changing a non-editable breakpoint, and similar) panics with a
// *ProtocolError.
package breakpoint
