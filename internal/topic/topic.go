// Package topic manages the curriculum topic catalog counsellors pick from.
package topic

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"
)

// ErrNotFound is returned when no topic has the requested id.
var ErrNotFound = errors.New("topic not found")

// Topic is a single curriculum item. An empty Grade marks a general topic
// offered to every grade.
type Topic struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Grade     string    `json:"grade"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store persists topics.
type Store interface {
	// List returns every topic, newest first.
	List(ctx context.Context) ([]Topic, error)
	Insert(ctx context.Context, t Topic) (Topic, error)
	InsertMany(ctx context.Context, list []Topic) (int, error)
	Update(ctx context.Context, t Topic) (Topic, error)
	Delete(ctx context.Context, id string) error
}

// CategoryPriority orders categories for suggestions, highest priority first.
var CategoryPriority = []string{
	"Foundational Skills",
	"Primary Math",
	"Upper Primary",
	"Middle School",
	"High School",
	"Senior Secondary",
	"Mental Ability",
	"Application Skills",
	"School Syllabus (Board-Aligned Sections)",
	"Vedic Math",
	"Communication & Explanation Skills (PlanetSpark Style)",
}

func categoryScore(category string) int {
	for i, c := range CategoryPriority {
		if c == category {
			return len(CategoryPriority) - i
		}
	}
	return 0
}

// FilterByGrade keeps topics whose grade matches case-insensitively. An
// empty grade keeps everything.
func FilterByGrade(all []Topic, grade string) []Topic {
	grade = strings.TrimSpace(grade)
	if grade == "" {
		return all
	}
	out := make([]Topic, 0, len(all))
	for _, t := range all {
		if strings.EqualFold(t.Grade, grade) {
			out = append(out, t)
		}
	}
	return out
}

// Rank builds suggestions for grade: topics of that grade plus general
// topics, ordered by category priority then name, with duplicate
// name/grade pairs removed. A negative limit returns every match.
func Rank(all []Topic, grade string, limit int) []Topic {
	candidates := make([]Topic, 0, len(all))
	if strings.TrimSpace(grade) != "" {
		candidates = append(candidates, FilterByGrade(all, grade)...)
	}
	for _, t := range all {
		if t.Grade == "" {
			candidates = append(candidates, t)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		si, sj := categoryScore(candidates[i].Category), categoryScore(candidates[j].Category)
		if si != sj {
			return si > sj
		}
		ni, nj := strings.ToLower(candidates[i].Name), strings.ToLower(candidates[j].Name)
		if ni != nj {
			return ni < nj
		}
		return candidates[i].Name < candidates[j].Name
	})

	seen := make(map[string]struct{}, len(candidates))
	out := make([]Topic, 0, len(candidates))
	for _, t := range candidates {
		key := strings.ToLower(t.Name) + "::" + t.Grade
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	if limit >= 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}
