package event

import "strings"

// Topic is a hierarchical event type using dot notation.
type Topic string

const (
	wildcardSingle = "*"
	wildcardMulti  = "**"
	separator      = "."
)

// Topics published by the breakpoint core and the debugger manager.
const (
	TopicNodeChanged        Topic = "breakpoint.node.changed"
	TopicTableValueChanged  Topic = "breakpoint.value.changed"
	TopicTreeChanged        Topic = "breakpoint.tree.changed"
	TopicSessionStarted     Topic = "session.started"
	TopicSessionEnded       Topic = "session.ended"
	TopicSessionCurrent     Topic = "session.current"
	TopicPreferencesChanged Topic = "preferences.changed"
)

// Segments returns the topic split at dots.
func (t Topic) Segments() []string {
	if t == "" {
		return nil
	}
	return strings.Split(string(t), separator)
}

// IsPattern reports whether t contains a wildcard segment.
func (t Topic) IsPattern() bool {
	for _, s := range t.Segments() {
		if s == wildcardSingle || s == wildcardMulti {
			return true
		}
	}
	return false
}

// Matches reports whether the concrete topic t matches pattern.
func (t Topic) Matches(pattern Topic) bool {
	return matchSegments(pattern.Segments(), t.Segments())
}

func matchSegments(pattern, topic []string) bool {
	for len(pattern) > 0 {
		switch pattern[0] {
		case wildcardMulti:
			rest := pattern[1:]
			for i := 0; i <= len(topic); i++ {
				if matchSegments(rest, topic[i:]) {
					return true
				}
			}
			return false
		case wildcardSingle:
			if len(topic) == 0 {
				return false
			}
		default:
			if len(topic) == 0 || topic[0] != pattern[0] {
				return false
			}
		}
		pattern, topic = pattern[1:], topic[1:]
	}
	return len(topic) == 0
}
