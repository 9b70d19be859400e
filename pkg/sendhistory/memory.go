package sendhistory

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process History for tests and local development.
type Memory struct {
	mu    sync.RWMutex
	sends map[string][]time.Time
}

func NewMemory() *Memory {
	return &Memory{sends: make(map[string][]time.Time)}
}

func (m *Memory) Record(_ context.Context, organizationID, contactID string, at time.Time) error {
	err := validateKey(organizationID, contactID)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	k := key(organizationID, contactID)
	cutoff := at.Add(-Retention)

	kept := m.sends[k][:0]
	for _, sent := range m.sends[k] {
		if sent.After(cutoff) {
			kept = append(kept, sent)
		}
	}

	m.sends[k] = append(kept, at)

	return nil
}

func (m *Memory) Count(_ context.Context, organizationID, contactID string, from, to time.Time) (int, error) {
	err := validateKey(organizationID, contactID)
	if err != nil {
		return 0, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0

	for _, sent := range m.sends[key(organizationID, contactID)] {
		if sent.After(from) && !sent.After(to) {
			count++
		}
	}

	return count, nil
}

func (m *Memory) Close() error {
	return nil
}
