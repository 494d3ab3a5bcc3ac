package student

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/remotehive-dev/Spark-Configurator/internal/common"
)

const studentColumns = `id, name, grade, status, board, sap_eligible, created_at`

// PostgresStore persists students in the students table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an open pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (p *PostgresStore) List(ctx context.Context) ([]Student, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+studentColumns+` FROM students ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()
	out := []Student{}
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *PostgresStore) Get(ctx context.Context, id string) (Student, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+studentColumns+` FROM students WHERE id = $1`, id)
	s, err := scanStudent(row)
	if common.IsNoRows(err) {
		return Student{}, ErrNotFound
	}
	return s, err
}

func (p *PostgresStore) Insert(ctx context.Context, s Student) (Student, error) {
	row := p.pool.QueryRow(ctx, `
		INSERT INTO students (id, name, grade, status, board, sap_eligible, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+studentColumns,
		s.ID, s.Name, s.Grade, s.Status, s.Board, s.SAPEligible, s.CreatedAt)
	created, err := scanStudent(row)
	if common.IsUniqueViolation(err) {
		return Student{}, ErrDuplicate
	}
	if err != nil {
		return Student{}, fmt.Errorf("insert student: %w", err)
	}
	return created, nil
}

func (p *PostgresStore) Upsert(ctx context.Context, rows []Student) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	batch := &pgx.Batch{}
	for _, s := range rows {
		batch.Queue(`
			INSERT INTO students (id, name, grade, status, board, sap_eligible, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				grade = EXCLUDED.grade,
				status = EXCLUDED.status,
				board = EXCLUDED.board,
				sap_eligible = EXCLUDED.sap_eligible`,
			s.ID, s.Name, s.Grade, s.Status, s.Board, s.SAPEligible, s.CreatedAt)
	}
	results := tx.SendBatch(ctx, batch)
	for i := range rows {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return 0, fmt.Errorf("upsert student %q: %w", rows[i].ID, err)
		}
	}
	if err := results.Close(); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return len(rows), nil
}

func scanStudent(row pgx.Row) (Student, error) {
	var s Student
	err := row.Scan(&s.ID, &s.Name, &s.Grade, &s.Status, &s.Board, &s.SAPEligible, &s.CreatedAt)
	return s, err
}
