package store

import (
	"context"
	"sync"
)

// MemoryStore is a PartialStore that lasts only as long as the process.
type MemoryStore struct {
	runs map[string][]StoredPartial
	lock sync.Mutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string][]StoredPartial)}
}

func (m *MemoryStore) Put(_ context.Context, runID string, p StoredPartial) error {
	if runID == "" {
		return errEmptyRunID
	}
	p.Data = append([]byte(nil), p.Data...)
	m.lock.Lock()
	defer m.lock.Unlock()
	m.runs[runID] = append(m.runs[runID], p)
	return nil
}

func (m *MemoryStore) List(_ context.Context, runID string) ([]StoredPartial, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	return append([]StoredPartial(nil), m.runs[runID]...), nil
}

func (m *MemoryStore) Reset(_ context.Context, runID string) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	delete(m.runs, runID)
	return nil
}

func (m *MemoryStore) Close() error { return nil }
