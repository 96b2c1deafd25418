package numerator

import (
	"context"
	"sync"

	"cashpoint/internal/core/id"
)

// MockGenerator is a test implementation of Generator.
// Without NextFunc it counts per tenant in memory with no transaction semantics.
type MockGenerator struct {
	NextFunc    func(ctx context.Context, tenantID id.ID) (string, error)
	SetNextFunc func(ctx context.Context, tenantID id.ID, prefix string, lastIssued int64) error

	mu       sync.Mutex
	counters map[id.ID]int64
}

// Next implements Generator.
func (m *MockGenerator) Next(ctx context.Context, tenantID id.ID) (string, error) {
	if m.NextFunc != nil {
		return m.NextFunc(ctx, tenantID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counters == nil {
		m.counters = make(map[id.ID]int64)
	}
	m.counters[tenantID]++
	return DefaultConfig("MOCK").Format(m.counters[tenantID]), nil
}

// SetNext implements Generator.
func (m *MockGenerator) SetNext(ctx context.Context, tenantID id.ID, prefix string, lastIssued int64) error {
	if m.SetNextFunc != nil {
		return m.SetNextFunc(ctx, tenantID, prefix, lastIssued)
	}
	return nil
}

// Ensure compile-time interface compliance.
var _ Generator = (*MockGenerator)(nil)
