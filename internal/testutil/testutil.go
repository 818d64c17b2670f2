// Package testutil provides shared test utilities and mocks for pulse tests.
package testutil

import (
	"context"
	"sync"
)

// SentEvent records one Transport.Send call.
type SentEvent struct {
	Event   string
	Payload any
}

// MockTransport implements ports.Transport for testing.
type MockTransport struct {
	mu        sync.Mutex
	sent      []SentEvent
	connected bool
}

// NewMockTransport creates a connected mock transport.
func NewMockTransport() *MockTransport {
	return &MockTransport{connected: true}
}

// Send records the event.
func (m *MockTransport) Send(event string, payload any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, SentEvent{Event: event, Payload: payload})
}

// IsConnected reports the configured connection state.
func (m *MockTransport) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Disconnect marks the transport as closed.
func (m *MockTransport) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
}

// Sent returns a snapshot of everything sent so far.
func (m *MockTransport) Sent() []SentEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentEvent, len(m.sent))
	copy(out, m.sent)
	return out
}

// SentCount returns the number of Send calls.
func (m *MockTransport) SentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// Last returns the most recent sent event, or a zero value.
func (m *MockTransport) Last() SentEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return SentEvent{}
	}
	return m.sent[len(m.sent)-1]
}

// StaticFollowings implements ports.FollowingResolver from a fixed map.
type StaticFollowings struct {
	mu      sync.Mutex
	targets map[string][]string
	err     error
	calls   int
}

// NewStaticFollowings creates a resolver returning targets[userID].
func NewStaticFollowings(targets map[string][]string) *StaticFollowings {
	if targets == nil {
		targets = make(map[string][]string)
	}
	return &StaticFollowings{targets: targets}
}

// FindTargets returns the configured targets (or the configured error).
func (s *StaticFollowings) FindTargets(ctx context.Context, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.targets[userID], nil
}

// SetError makes subsequent FindTargets calls fail.
func (s *StaticFollowings) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Calls returns how many times FindTargets ran.
func (s *StaticFollowings) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
