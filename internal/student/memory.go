package student

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps students in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	byID  map[string]Student
	order []string
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: map[string]Student{}}
}

func (m *MemoryStore) List(_ context.Context) ([]Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Student, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0; i-- {
		out = append(out, m.byID[m.order[i]])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.byID[id]
	if !ok {
		return Student{}, ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) Insert(_ context.Context, s Student) (Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byID[s.ID]; exists {
		return Student{}, ErrDuplicate
	}
	m.byID[s.ID] = s
	m.order = append(m.order, s.ID)
	return s, nil
}

func (m *MemoryStore) Upsert(_ context.Context, rows []Student) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range rows {
		if existing, ok := m.byID[s.ID]; ok {
			s.CreatedAt = existing.CreatedAt
		} else {
			m.order = append(m.order, s.ID)
		}
		m.byID[s.ID] = s
	}
	return len(rows), nil
}
