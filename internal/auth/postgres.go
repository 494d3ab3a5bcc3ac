package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/remotehive-dev/Spark-Configurator/internal/common"
)

const accountColumns = `id::text, username, password_hash, roles, last_login_at, created_at`

// PostgresStore persists accounts in the accounts table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an open pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (p *PostgresStore) List(ctx context.Context, q string) ([]Account, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT `+accountColumns+` FROM accounts
		WHERE $1 = '' OR strpos(lower(username), lower($1)) > 0
		ORDER BY lower(username)`, strings.TrimSpace(q))
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	accounts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Account, error) { return scanAccount(row) })
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

func (p *PostgresStore) GetByID(ctx context.Context, id string) (Account, error) {
	return p.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

func (p *PostgresStore) GetByUsername(ctx context.Context, username string) (Account, error) {
	return p.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE lower(username) = lower($1)`, username)
}

func (p *PostgresStore) getOne(ctx context.Context, query string, arg string) (Account, error) {
	a, err := scanAccount(p.pool.QueryRow(ctx, query, arg))
	if common.IsNoRows(err) {
		return Account{}, ErrAccountNotFound
	}
	if err != nil {
		return Account{}, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

func (p *PostgresStore) Insert(ctx context.Context, a Account) (Account, error) {
	row := p.pool.QueryRow(ctx, `
		INSERT INTO accounts (id, username, password_hash, roles, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+accountColumns, a.ID, a.Username, a.PasswordHash, a.Roles, a.CreatedAt)
	created, err := scanAccount(row)
	if common.IsUniqueViolation(err) {
		return Account{}, ErrDuplicateAccount
	}
	if err != nil {
		return Account{}, fmt.Errorf("insert account: %w", err)
	}
	return created, nil
}

func (p *PostgresStore) Delete(ctx context.Context, id string) error {
	return p.execOne(ctx, "delete account", `DELETE FROM accounts WHERE id = $1`, id)
}

func (p *PostgresStore) UpdatePassword(ctx context.Context, id, hash string) error {
	return p.execOne(ctx, "update password", `UPDATE accounts SET password_hash = $2 WHERE id = $1`, id, hash)
}

func (p *PostgresStore) TouchLogin(ctx context.Context, id string, at time.Time) error {
	return p.execOne(ctx, "touch login", `UPDATE accounts SET last_login_at = $2 WHERE id = $1`, id, at)
}

func (p *PostgresStore) execOne(ctx context.Context, op, query string, args ...any) error {
	tag, err := p.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Roles, &a.LastLoginAt, &a.CreatedAt)
	return a, err
}
