package racecar

import (
	"context"
	"sync"
)

// Target is one recorded SetTarget call.
type Target struct {
	ID    int
	Value int
}

// MemoryChannels records targets instead of moving hardware. It backs the
// dry-run mode and tests.
type MemoryChannels struct {
	mu      sync.Mutex
	targets []Target
	last    map[int]int
	err     error
	closed  bool
}

// NewMemoryChannels creates an empty recorder.
func NewMemoryChannels() *MemoryChannels {
	return &MemoryChannels{last: make(map[int]int)}
}

// SetTarget records the target, or returns the error set by FailWith.
func (m *MemoryChannels) SetTarget(_ context.Context, id, target int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.targets = append(m.targets, Target{ID: id, Value: target})
	m.last[id] = target
	return nil
}

// FailWith makes subsequent writes fail with err. Pass nil to recover.
func (m *MemoryChannels) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Targets returns all recorded writes in order.
func (m *MemoryChannels) Targets() []Target {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Target(nil), m.targets...)
}

// Last returns the most recent target written to id.
func (m *MemoryChannels) Last(id int) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.last[id]
	return v, ok
}

// Close marks the recorder closed.
func (m *MemoryChannels) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MemoryChannels) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
