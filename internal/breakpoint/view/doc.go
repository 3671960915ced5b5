// Package view presents the breakpoint tree to a tree table.
//
// The Filter collapses chains of single, interchangeable midlevel
// breakpoints into their toplevel parent, hides breakpoints that do not
// belong to the current debugging session, and routes cell reads, cell
// writes and check boxes to breakpoint properties.
//
// Nodes crossing the boundary are a Node: a BreakpointNode or an OtherNode
// supplied by the surrounding model. Anything else is reported as
// ErrUnknownType. Every query has a dispatch policy; see Asynchronous.
package view
