package metrics

import (
	"context"
	"sync"
)

// Store persists metric records.
type Store interface {
	// Write persists one batch of records.
	Write(ctx context.Context, records []Record) error
	// Close releases the store.
	Close() error
}

// NoopStore discards every record.
type NoopStore struct{}

func (NoopStore) Write(context.Context, []Record) error { return nil }

func (NoopStore) Close() error { return nil }

// MemoryStore keeps written records in memory.
type MemoryStore struct {
	mu      sync.Mutex
	records []Record
	closed  bool
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Write(_ context.Context, records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, records...)
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Records returns a copy of everything written so far.
func (m *MemoryStore) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, len(m.records))
	copy(out, m.records)
	return out
}

// Closed reports whether Close was called.
func (m *MemoryStore) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
