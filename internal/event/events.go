package event

// Event is anything published on the bus.
type Event interface {
	Topic() Topic
}

// NodeChanged asks views to re-read the icon, name and children of Node.
type NodeChanged struct {
	Node any
}

// Topic implements Event.
func (NodeChanged) Topic() Topic { return TopicNodeChanged }

// TableValueChanged asks views to re-read column Column of Node.
type TableValueChanged struct {
	Node   any
	Column string
}

// Topic implements Event.
func (TableValueChanged) Topic() Topic { return TopicTableValueChanged }

// TreeChanged asks views to rebuild the subtree under Root; a nil Root
// means the whole tree.
type TreeChanged struct {
	Root any
}

// Topic implements Event.
func (TreeChanged) Topic() Topic { return TopicTreeChanged }

// SessionEvent reports a change in the set of debug sessions.
type SessionEvent struct {
	topic     Topic
	SessionID string
	Name      string
}

// NewSessionEvent returns a session event for one of the session topics.
func NewSessionEvent(topic Topic, id, name string) SessionEvent {
	return SessionEvent{topic: topic, SessionID: id, Name: name}
}

// Topic implements Event.
func (e SessionEvent) Topic() Topic { return e.topic }

// PreferencesChanged reports a toggled view preference.
type PreferencesChanged struct {
	Name  string
	Value bool
}

// Topic implements Event.
func (PreferencesChanged) Topic() Topic { return TopicPreferencesChanged }
