package ami

import (
	"sort"
	"strconv"
)

// Event is a parsed AMI event: a flat, ordered set of key-value pairs.
// Unknown keys are carried along untouched so consumers can ignore them.
type Event struct {
	headers []header
}

type header struct {
	Key   string
	Value string
}

// NewEvent creates an Event from alternating key-value pairs.
func NewEvent(kvs ...string) Event {
	e := Event{}
	for i := 0; i+1 < len(kvs); i += 2 {
		e.headers = append(e.headers, header{Key: kvs[i], Value: kvs[i+1]})
	}
	return e
}

// FromMap creates an Event from a map, with keys in sorted order so the
// result is deterministic.
func FromMap(m map[string]string) Event {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	e := Event{headers: make([]header, 0, len(m))}
	for _, k := range keys {
		e.headers = append(e.headers, header{Key: k, Value: m[k]})
	}
	return e
}

// Get returns the value for the given key, or empty string if not found.
func (e Event) Get(key string) string {
	for _, h := range e.headers {
		if h.Key == key {
			return h.Value
		}
	}
	return ""
}

// Has reports whether the event carries the given key, even with an
// empty value. Several AMI events (DialBegin without a source channel)
// are distinguished by the mere absence of a key.
func (e Event) Has(key string) bool {
	for _, h := range e.headers {
		if h.Key == key {
			return true
		}
	}
	return false
}

// GetInt returns the integer value for the given key, or 0 if not
// found or not parseable.
func (e Event) GetInt(key string) int {
	v, _ := strconv.Atoi(e.Get(key))
	return v
}

// Type returns the Event header value (the AMI event type).
func (e Event) Type() string {
	return e.Get("Event")
}

// IsResponse returns true if this is an AMI action response rather than
// an event.
func (e Event) IsResponse() bool {
	return e.Get("Response") != ""
}

// Map returns the headers as a plain map. Duplicate keys keep the first
// value seen.
func (e Event) Map() map[string]string {
	m := make(map[string]string, len(e.headers))
	for _, h := range e.headers {
		if _, ok := m[h.Key]; !ok {
			m[h.Key] = h.Value
		}
	}
	return m
}
