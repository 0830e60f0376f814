package network

import "maps"

// Attr is a named task attribute.
type Attr struct {
	Key   string
	Value string
}

// Task is the immutable description a run is started with. Attributes carry
// the structured inputs embedded in the description so agents do not have
// to parse prose.
type Task struct {
	description string
	attrs       map[string]string
}

// NewTask builds a Task. Later attributes overwrite earlier ones with the same key.
func NewTask(description string, attrs ...Attr) Task {
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		m[a.Key] = a.Value
	}
	return Task{description: description, attrs: m}
}

// Description returns the task text.
func (t Task) Description() string {
	return t.description
}

// Attr returns the attribute value for key, or "" when absent.
func (t Task) Attr(key string) string {
	return t.attrs[key]
}

// Attrs returns a copy of all attributes.
func (t Task) Attrs() map[string]string {
	return maps.Clone(t.attrs)
}
