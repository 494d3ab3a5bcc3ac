package curriculum

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/remotehive-dev/Spark-Configurator/internal/common"
)

const (
	fileColumns          = `id::text, name, grade, topic, url, created_at`
	customizationColumns = `id::text, student_id, selected_topics, parent_topics, created_at`
)

// PostgresStore persists files and customizations. Topic lists are stored as JSONB.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an open pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (p *PostgresStore) ListFiles(ctx context.Context, grade string) ([]File, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT `+fileColumns+` FROM curriculum_files
		WHERE $1 = '' OR lower(grade) = lower($1)
		ORDER BY created_at DESC, name`, grade)
	if err != nil {
		return nil, fmt.Errorf("list curriculum files: %w", err)
	}
	files, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (File, error) { return scanFile(row) })
	if err != nil {
		return nil, fmt.Errorf("list curriculum files: %w", err)
	}
	return files, nil
}

func (p *PostgresStore) InsertFile(ctx context.Context, f File) (File, error) {
	row := p.pool.QueryRow(ctx, `
		INSERT INTO curriculum_files (id, name, grade, topic, url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+fileColumns, f.ID, f.Name, f.Grade, f.Topic, f.URL, f.CreatedAt)
	created, err := scanFile(row)
	if err != nil {
		return File{}, fmt.Errorf("insert curriculum file: %w", err)
	}
	return created, nil
}

func (p *PostgresStore) InsertCustomization(ctx context.Context, c Customization) (Customization, error) {
	row := p.pool.QueryRow(ctx, `
		INSERT INTO customizations (id, student_id, selected_topics, parent_topics, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+customizationColumns,
		c.ID, c.StudentID, c.SelectedTopics, c.ParentTopics, c.CreatedAt)
	created, err := scanCustomization(row)
	if err != nil {
		return Customization{}, fmt.Errorf("insert customization: %w", err)
	}
	return created, nil
}

func (p *PostgresStore) LatestCustomization(ctx context.Context, studentID string) (Customization, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT `+customizationColumns+` FROM customizations
		WHERE student_id = $1
		ORDER BY created_at DESC
		LIMIT 1`, studentID)
	c, err := scanCustomization(row)
	if common.IsNoRows(err) {
		return Customization{}, ErrNotFound
	}
	if err != nil {
		return Customization{}, fmt.Errorf("latest customization: %w", err)
	}
	return c, nil
}

func scanFile(row pgx.Row) (File, error) {
	var f File
	err := row.Scan(&f.ID, &f.Name, &f.Grade, &f.Topic, &f.URL, &f.CreatedAt)
	return f, err
}

func scanCustomization(row pgx.Row) (Customization, error) {
	var c Customization
	if err := row.Scan(&c.ID, &c.StudentID, &c.SelectedTopics, &c.ParentTopics, &c.CreatedAt); err != nil {
		return Customization{}, err
	}
	if c.ParentTopics == nil {
		c.ParentTopics = []string{}
	}
	return c, nil
}
