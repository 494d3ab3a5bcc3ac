// Package curriculum registers curriculum files and stores the topic
// customizations counsellors build for each student.
package curriculum

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a lookup has no result.
var ErrNotFound = errors.New("curriculum record not found")

// File is curriculum material hosted in an external blob store.
type File struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Grade     string    `json:"grade"`
	Topic     string    `json:"topic"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"createdAt"`
}

// Customization records the topics chosen for a student.
type Customization struct {
	ID             string    `json:"id"`
	StudentID      string    `json:"studentId"`
	SelectedTopics []string  `json:"selectedTopics"`
	ParentTopics   []string  `json:"parentTopics"`
	CreatedAt      time.Time `json:"createdAt"`
}

// FileStore persists curriculum files.
type FileStore interface {
	// ListFiles returns files newest first; an empty grade returns all of them.
	ListFiles(ctx context.Context, grade string) ([]File, error)
	InsertFile(ctx context.Context, f File) (File, error)
}

// CustomizationStore persists customizations.
type CustomizationStore interface {
	InsertCustomization(ctx context.Context, c Customization) (Customization, error)
	// LatestCustomization returns ErrNotFound when the student has none.
	LatestCustomization(ctx context.Context, studentID string) (Customization, error)
}
