package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of *pgxpool.Pool used by Postgres.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres reads the value column of a (key text, value text) table.
type Postgres struct {
	db    Querier
	query string
}

// NewPostgres builds a store over table, which may be schema-qualified
// ("schema.table").
func NewPostgres(db Querier, table string) (*Postgres, error) {
	table = strings.TrimSpace(table)
	if table == "" {
		return nil, ErrEmptyTable
	}
	ident := pgx.Identifier(strings.Split(table, "."))
	return &Postgres{
		db:    db,
		query: fmt.Sprintf("SELECT value FROM %s WHERE key = $1", ident.Sanitize()),
	}, nil
}

// Fetch selects the value for key. A missing row is reported as ErrNotFound.
func (p *Postgres) Fetch(ctx context.Context, key string) (string, error) {
	var v string
	err := p.db.QueryRow(ctx, p.query, key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("postgres fetch %q: %w", key, err)
	}
	return v, nil
}

// ConnectPostgres opens a pool and pings it, failing after timeout.
func ConnectPostgres(ctx context.Context, url string, timeout time.Duration) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("parse postgres url: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Join(ErrPostgresNotReady, err)
	}
	return pool, nil
}
