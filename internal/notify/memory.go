package notify

import (
	"context"
	"sync"
)

// Memory records notifications for tests and dry runs.
type Memory struct {
	mu       sync.Mutex
	payloads []Payload
}

// NewMemory creates an empty recording notifier.
func NewMemory() *Memory {
	return &Memory{}
}

// Compile-time interface check.
var _ Notifier = (*Memory)(nil)

// Notify records the payload.
func (m *Memory) Notify(_ context.Context, p Payload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payloads = append(m.payloads, p)
	return nil
}

// Sent returns a copy of everything recorded so far.
func (m *Memory) Sent() []Payload {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Payload, len(m.payloads))
	copy(out, m.payloads)
	return out
}

// ByType returns recorded payloads of one type.
func (m *Memory) ByType(t Type) []Payload {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Payload
	for _, p := range m.payloads {
		if p.Type == t {
			out = append(out, p)
		}
	}
	return out
}
