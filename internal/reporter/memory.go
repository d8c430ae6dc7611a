package reporter

import (
	"sync"

	"github.com/sweeney/callwatch/internal/ami"
)

// Memory records all notifications for test assertions.
type Memory struct {
	emitter

	mu            sync.Mutex
	notifications []Notification
	eventCount    int
	closed        bool
}

// NewMemory creates a recording reporter.
func NewMemory() *Memory {
	m := &Memory{}
	m.emitter = emitter{emit: m.record}
	return m
}

func (m *Memory) record(n Notification) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, n)
}

func (m *Memory) OnEvent(ami.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.eventCount++
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Notifications returns a copy of all recorded notifications.
func (m *Memory) Notifications() []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Notification, len(m.notifications))
	copy(out, m.notifications)
	return out
}

// EventCount returns how many raw events passed through.
func (m *Memory) EventCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.eventCount
}

// Closed returns whether Close was called.
func (m *Memory) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Reset clears all recorded notifications and counters.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = nil
	m.eventCount = 0
}
