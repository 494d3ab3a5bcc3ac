// Package student keeps the lead records counsellors price proposals for.
package student

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Pipeline statuses shown in the admin panel. Other values are stored as given.
const (
	StatusNew           = "New"
	StatusContacted     = "Contacted"
	StatusDemoCompleted = "Demo Completed"
	StatusEnrolled      = "Enrolled"
)

var (
	// ErrNotFound is returned when no student has the requested id.
	ErrNotFound = errors.New("student not found")
	// ErrDuplicate is returned when inserting an id that already exists.
	ErrDuplicate = errors.New("student already exists")
)

// Student is a prospective learner.
type Student struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Grade       string    `json:"grade"`
	Status      string    `json:"status"`
	Board       string    `json:"board"`
	SAPEligible bool      `json:"sapEligible"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Store persists students.
type Store interface {
	// List returns every student, newest first.
	List(ctx context.Context) ([]Student, error)
	Get(ctx context.Context, id string) (Student, error)
	Insert(ctx context.Context, s Student) (Student, error)
	// Upsert writes all rows in one unit, replacing existing ids, and returns
	// the number of rows written.
	Upsert(ctx context.Context, rows []Student) (int, error)
}

// FlexBool decodes a JSON boolean, a "yes"/"no" string or a number.
// CRM exports mark SAP eligibility with "yes".
type FlexBool bool

// UnmarshalJSON implements json.Unmarshaler.
func (b *FlexBool) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		*b = false
	case bool:
		*b = FlexBool(v)
	case string:
		*b = FlexBool(strings.EqualFold(strings.TrimSpace(v), "yes"))
	case float64:
		*b = v != 0
	default:
		*b = false
	}
	return nil
}
