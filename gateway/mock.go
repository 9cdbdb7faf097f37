package gateway

import (
	"context"
	"sync"
	"time"
)

// MockStep is one scripted gateway response. Exactly one of Completion or
// Err should be set. A non-zero Delay simulates a slow remote call while
// honoring context cancellation.
type MockStep struct {
	Completion *Completion
	Err        error
	Delay      time.Duration
}

// MockGateway is a lightweight in-memory Gateway useful for tests and
// examples. It replays scripted steps in order; once the script is
// exhausted it answers with a canned final text.
type MockGateway struct {
	mu       sync.Mutex
	steps    []MockStep
	calls    int
	requests []Request
	fallback string
}

// NewMockGateway constructs a MockGateway replaying the given steps.
func NewMockGateway(steps ...MockStep) *MockGateway {
	return &MockGateway{steps: steps, fallback: "mock answer"}
}

// Complete implements Gateway.
func (m *MockGateway) Complete(ctx context.Context, req Request) (*Completion, error) {
	m.mu.Lock()
	idx := m.calls
	m.calls++
	m.requests = append(m.requests, req)
	var step MockStep
	if idx < len(m.steps) {
		step = m.steps[idx]
	}
	m.mu.Unlock()

	if step.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(step.Delay):
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if step.Err != nil {
		return nil, step.Err
	}
	if step.Completion != nil {
		return step.Completion, nil
	}
	return &Completion{Text: m.fallback}, nil
}

// Info implements Gateway.
func (m *MockGateway) Info() Info { return Info{Provider: "mock", Model: "scripted"} }

// Calls returns how many completions were requested.
func (m *MockGateway) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Requests returns the recorded requests in call order.
func (m *MockGateway) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}
