package topic

import (
	"context"
	"slices"
	"sync"
)

// MemoryStore keeps topics in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	topics []Topic
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) List(_ context.Context) ([]Topic, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := slices.Clone(m.topics)
	slices.Reverse(out)
	return out, nil
}

func (m *MemoryStore) Insert(_ context.Context, t Topic) (Topic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.topics = append(m.topics, t)
	return t, nil
}

func (m *MemoryStore) InsertMany(_ context.Context, list []Topic) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.topics = append(m.topics, list...)
	return len(list), nil
}

func (m *MemoryStore) Update(_ context.Context, t Topic) (Topic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.topics {
		if m.topics[i].ID == t.ID {
			t.CreatedAt = m.topics[i].CreatedAt
			m.topics[i] = t
			return t, nil
		}
	}
	return Topic{}, ErrNotFound
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.topics {
		if m.topics[i].ID == id {
			m.topics = slices.Delete(m.topics, i, i+1)
			return nil
		}
	}
	return ErrNotFound
}
