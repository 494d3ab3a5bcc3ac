package curriculum

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/remotehive-dev/Spark-Configurator/internal/common"
)

// FileInput registers a curriculum file.
type FileInput struct {
	Name  string `json:"name" validate:"notblank,max=200"`
	Grade string `json:"grade" validate:"notblank,max=32"`
	Topic string `json:"topic" validate:"max=200"`
	URL   string `json:"url" validate:"required,url"`
}

// CustomizationInput captures a counsellor's topic selection for a student.
type CustomizationInput struct {
	StudentID      string   `json:"studentId" validate:"notblank"`
	SelectedTopics []string `json:"selectedTopics" validate:"min=1,dive,notblank"`
	ParentTopics   []string `json:"parentTopics" validate:"omitempty,dive,notblank"`
}

// ServiceConfig configures the Service.
type ServiceConfig struct {
	Files          FileStore
	Customizations CustomizationStore
	Now            func() time.Time
}

// Service implements curriculum file and customization operations.
type Service struct {
	files          FileStore
	customizations CustomizationStore
	now            func() time.Time
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Files == nil || cfg.Customizations == nil {
		return nil, errors.New("curriculum stores are required")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{files: cfg.Files, customizations: cfg.Customizations, now: now}, nil
}

// ListFiles returns registered files, filtered by grade case-insensitively.
func (s *Service) ListFiles(ctx context.Context, grade string) ([]File, error) {
	files, err := s.files.ListFiles(ctx, strings.TrimSpace(grade))
	if err != nil {
		return nil, err
	}
	if files == nil {
		files = []File{}
	}
	return files, nil
}

// AddFile registers file metadata. The URL must be absolute.
func (s *Service) AddFile(ctx context.Context, in FileInput) (File, error) {
	f := File{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(in.Name),
		Grade:     strings.TrimSpace(in.Grade),
		Topic:     strings.TrimSpace(in.Topic),
		URL:       strings.TrimSpace(in.URL),
		CreatedAt: s.now().UTC(),
	}
	if f.Name == "" || f.Grade == "" {
		return File{}, common.BadRequest("name and grade are required")
	}
	u, err := url.Parse(f.URL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return File{}, common.BadRequest("url must be an absolute URL")
	}
	return s.files.InsertFile(ctx, f)
}

// AddCustomization stores a new selection for a student. Earlier ones are kept.
func (s *Service) AddCustomization(ctx context.Context, in CustomizationInput) (Customization, error) {
	c := Customization{
		ID:             uuid.NewString(),
		StudentID:      strings.TrimSpace(in.StudentID),
		SelectedTopics: cleanTopics(in.SelectedTopics),
		ParentTopics:   cleanTopics(in.ParentTopics),
		CreatedAt:      s.now().UTC(),
	}
	if c.StudentID == "" {
		return Customization{}, common.BadRequest("studentId is required")
	}
	if len(c.SelectedTopics) == 0 {
		return Customization{}, common.BadRequest("at least one selected topic is required")
	}
	return s.customizations.InsertCustomization(ctx, c)
}

// LatestCustomization returns the most recent selection for a student.
func (s *Service) LatestCustomization(ctx context.Context, studentID string) (Customization, error) {
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return Customization{}, common.BadRequest("studentId is required")
	}
	c, err := s.customizations.LatestCustomization(ctx, studentID)
	if errors.Is(err, ErrNotFound) {
		return Customization{}, common.NotFound("no customization for this student")
	}
	return c, err
}

func cleanTopics(in []string) []string {
	out := make([]string, 0, len(in))
	for _, t := range in {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
