package student

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/remotehive-dev/Spark-Configurator/internal/common"
	"github.com/remotehive-dev/Spark-Configurator/internal/obs"
)

// Input is the payload for creating a single student.
type Input struct {
	ID          string `json:"id" validate:"notblank,max=64"`
	Name        string `json:"name" validate:"notblank,max=200"`
	Grade       string `json:"grade" validate:"max=32"`
	Status      string `json:"status" validate:"max=64"`
	Board       string `json:"board" validate:"max=64"`
	SAPEligible bool   `json:"sapEligible"`
}

// ImportRow is one record of a CRM export. Either ID or LeadID identifies the lead.
type ImportRow struct {
	ID          string   `json:"id"`
	LeadID      string   `json:"leadId"`
	Name        string   `json:"name"`
	Grade       string   `json:"grade"`
	Status      string   `json:"status"`
	Board       string   `json:"board"`
	SAPEligible FlexBool `json:"sapEligible"`
}

// ServiceConfig configures the Service.
type ServiceConfig struct {
	Store Store
	Now   func() time.Time
}

// Service implements the student operations.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("student store is required")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{store: cfg.Store, now: now}, nil
}

// List returns all students.
func (s *Service) List(ctx context.Context) ([]Student, error) {
	return s.store.List(ctx)
}

// Get returns one student or a NOT_FOUND error.
func (s *Service) Get(ctx context.Context, id string) (Student, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Student{}, common.BadRequest("student id is required")
	}
	st, err := s.store.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Student{}, common.NotFound("student not found")
	}
	return st, err
}

// Create adds a student; the id must be unused.
func (s *Service) Create(ctx context.Context, in Input) (Student, error) {
	st := Student{
		ID:          strings.TrimSpace(in.ID),
		Name:        strings.TrimSpace(in.Name),
		Grade:       strings.TrimSpace(in.Grade),
		Status:      strings.TrimSpace(in.Status),
		Board:       strings.TrimSpace(in.Board),
		SAPEligible: in.SAPEligible,
		CreatedAt:   s.now().UTC(),
	}
	if st.ID == "" || st.Name == "" {
		return Student{}, common.NewAppError("VALIDATION_ERROR", "id and name are required", http.StatusBadRequest, nil)
	}
	if st.Status == "" {
		st.Status = StatusNew
	}
	created, err := s.store.Insert(ctx, st)
	if errors.Is(err, ErrDuplicate) {
		return Student{}, common.Conflict("a student with this id already exists", err)
	}
	return created, err
}

// Import normalises CRM rows, drops those without an id or name, and upserts
// the rest. It returns the number of rows written.
func (s *Service) Import(ctx context.Context, rows []ImportRow) (int, error) {
	now := s.now().UTC()
	seen := make(map[string]int, len(rows))
	normalized := make([]Student, 0, len(rows))
	for _, r := range rows {
		id := strings.TrimSpace(r.ID)
		if id == "" {
			id = strings.TrimSpace(r.LeadID)
		}
		name := strings.TrimSpace(r.Name)
		if id == "" || name == "" {
			continue
		}
		st := Student{
			ID:          id,
			Name:        name,
			Grade:       strings.TrimSpace(r.Grade),
			Status:      strings.TrimSpace(r.Status),
			Board:       strings.TrimSpace(r.Board),
			SAPEligible: bool(r.SAPEligible),
			CreatedAt:   now,
		}
		// later rows for the same lead win
		if idx, dup := seen[id]; dup {
			normalized[idx] = st
			continue
		}
		seen[id] = len(normalized)
		normalized = append(normalized, st)
	}
	if len(normalized) == 0 {
		return 0, nil
	}
	n, err := s.store.Upsert(ctx, normalized)
	if err != nil {
		return 0, err
	}
	obs.RecordImport("students", n)
	return n, nil
}
