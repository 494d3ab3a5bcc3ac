package curriculum

import (
	"context"
	"slices"
	"strings"
	"sync"
)

// MemoryStore implements FileStore and CustomizationStore in process memory.
type MemoryStore struct {
	mu             sync.RWMutex
	files          []File
	customizations []Customization
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) ListFiles(_ context.Context, grade string) ([]File, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]File, 0, len(m.files))
	for i := len(m.files) - 1; i >= 0; i-- {
		f := m.files[i]
		if grade != "" && !strings.EqualFold(f.Grade, grade) {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

func (m *MemoryStore) InsertFile(_ context.Context, f File) (File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files = append(m.files, f)
	return f, nil
}

func (m *MemoryStore) InsertCustomization(_ context.Context, c Customization) (Customization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.SelectedTopics = slices.Clone(c.SelectedTopics)
	c.ParentTopics = slices.Clone(c.ParentTopics)
	m.customizations = append(m.customizations, c)
	return c, nil
}

func (m *MemoryStore) LatestCustomization(_ context.Context, studentID string) (Customization, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var (
		latest Customization
		found  bool
	)
	for _, c := range m.customizations {
		if c.StudentID != studentID {
			continue
		}
		// ties go to the later insert
		if !found || !c.CreatedAt.Before(latest.CreatedAt) {
			latest, found = c, true
		}
	}
	if !found {
		return Customization{}, ErrNotFound
	}
	return latest, nil
}
