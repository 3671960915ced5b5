// Package event provides the refresh notification bus between the
// breakpoint core and its views.
//
// Events use hierarchical topics with dot notation:
//
//	breakpoint.node.changed     - a row must re-read icon, name and children
//	breakpoint.value.changed    - a single column of a row must be re-read
//	breakpoint.tree.changed     - a subtree must be rebuilt
//	session.started             - a debug session became available
//	preferences.changed         - a view preference was toggled
//
// Subscriptions may use wildcards: "*" matches exactly one segment and "**"
// matches zero or more segments.
//
// Asynchronous events are delivered by a single worker in publication order.
// That worker stands in for the UI thread: model mutations happen on engine
// goroutines and only ever reach the views through it.
package event
