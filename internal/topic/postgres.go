package topic

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/remotehive-dev/Spark-Configurator/internal/common"
)

const topicColumns = `id::text, name, grade, category, created_at`

// PostgresStore persists topics in the topics table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an open pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (p *PostgresStore) List(ctx context.Context) ([]Topic, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+topicColumns+` FROM topics ORDER BY created_at DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Topic, error) { return scanTopic(row) })
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	return list, nil
}

func (p *PostgresStore) Insert(ctx context.Context, t Topic) (Topic, error) {
	row := p.pool.QueryRow(ctx, `
		INSERT INTO topics (id, name, grade, category, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+topicColumns, t.ID, t.Name, t.Grade, t.Category, t.CreatedAt)
	created, err := scanTopic(row)
	if err != nil {
		return Topic{}, fmt.Errorf("insert topic: %w", err)
	}
	return created, nil
}

// InsertMany uses COPY so large seed files load in one round trip.
func (p *PostgresStore) InsertMany(ctx context.Context, list []Topic) (int, error) {
	if len(list) == 0 {
		return 0, nil
	}
	n, err := p.pool.CopyFrom(ctx,
		pgx.Identifier{"topics"},
		[]string{"id", "name", "grade", "category", "created_at"},
		pgx.CopyFromSlice(len(list), func(i int) ([]any, error) {
			t := list[i]
			return []any{t.ID, t.Name, t.Grade, t.Category, t.CreatedAt}, nil
		}))
	if err != nil {
		return 0, fmt.Errorf("copy topics: %w", err)
	}
	return int(n), nil
}

func (p *PostgresStore) Update(ctx context.Context, t Topic) (Topic, error) {
	row := p.pool.QueryRow(ctx, `
		UPDATE topics SET name = $2, grade = $3, category = $4
		WHERE id = $1
		RETURNING `+topicColumns, t.ID, t.Name, t.Grade, t.Category)
	updated, err := scanTopic(row)
	if common.IsNoRows(err) {
		return Topic{}, ErrNotFound
	}
	if err != nil {
		return Topic{}, fmt.Errorf("update topic: %w", err)
	}
	return updated, nil
}

func (p *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM topics WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete topic: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanTopic(row pgx.Row) (Topic, error) {
	var t Topic
	err := row.Scan(&t.ID, &t.Name, &t.Grade, &t.Category, &t.CreatedAt)
	return t, err
}
