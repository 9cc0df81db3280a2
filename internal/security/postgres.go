package security

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/insightdelivered/statement-importer/internal/models"
)

// NewPool creates a PostgreSQL connection pool and verifies the connection.
func NewPool(ctx context.Context, databaseURL string, maxConns int) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	if maxConns > 0 {
		config.MaxConns = int32(maxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	selectSecurity = `SELECT isin, name, currency FROM securities WHERE isin = $1`
	insertSecurity = `INSERT INTO securities (isin, name, currency) VALUES ($1, $2, $3)
ON CONFLICT (isin) DO NOTHING
RETURNING isin, name, currency`
)

// PostgresCatalog stores securities in the securities table created by the
// embedded migrations.
type PostgresCatalog struct {
	db      querier
	retrier *Retrier
}

func NewPostgresCatalog(pool *pgxpool.Pool, retrier *Retrier) *PostgresCatalog {
	return newPostgresCatalog(pool, retrier)
}

func newPostgresCatalog(db querier, retrier *Retrier) *PostgresCatalog {
	return &PostgresCatalog{db: db, retrier: retrier}
}

func (c *PostgresCatalog) FindByISIN(ctx context.Context, isin string) (models.Security, error) {
	var s models.Security
	err := c.retrier.Retry(ctx, func() error {
		return c.db.QueryRow(ctx, selectSecurity, isin).Scan(&s.ISIN, &s.Name, &s.Currency)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Security{}, ErrNotFound
	}
	if err != nil {
		return models.Security{}, err
	}
	return s, nil
}

// Insert returns no row on conflict, in which case the existing record is read.
func (c *PostgresCatalog) Insert(ctx context.Context, s models.Security) (models.Security, bool, error) {
	var stored models.Security
	err := c.retrier.Retry(ctx, func() error {
		return c.db.QueryRow(ctx, insertSecurity, s.ISIN, s.Name, s.Currency).
			Scan(&stored.ISIN, &stored.Name, &stored.Currency)
	})
	switch {
	case err == nil:
		return stored, true, nil
	case errors.Is(err, pgx.ErrNoRows):
		stored, err = c.FindByISIN(ctx, s.ISIN)
		return stored, false, err
	default:
		return models.Security{}, false, err
	}
}
