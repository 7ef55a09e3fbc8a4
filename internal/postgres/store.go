// Package postgres persists the source registry in PostgreSQL.
//
// The connection string is taken verbatim from DATABASE_URL; both the
// postgres:// and postgresql:// schemes are accepted.
//
// Databases created by the earlier Python service hold a sources table with
// a float created_ts column and no unique url. Open upgrades such a table in
// place: created_at is added and backfilled, duplicate urls are removed
// keeping the oldest entry, and a unique index is put on url.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pfrederiksen/teamtemp/internal/logger"
	"github.com/pfrederiksen/teamtemp/internal/source"
)

const schema = `
CREATE TABLE IF NOT EXISTS sources (
    id TEXT PRIMARY KEY,
    url TEXT NOT NULL UNIQUE,
    tribe TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL
)`

// Store is a source.Store backed by a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to the database, verifies the connection and applies the schema.
func Open(ctx context.Context, dsn string, connectTimeout time.Duration) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	if connectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, connectTimeout)
		defer cancel()
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	if err := upgradeLegacy(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("upgrade legacy schema: %w", err)
	}

	return &Store{pool: pool}, nil
}

var legacyUpgrade = []string{
	`ALTER TABLE sources ADD COLUMN created_at TIMESTAMPTZ`,
	`UPDATE sources SET created_at = to_timestamp(created_ts)`,
	`ALTER TABLE sources ALTER COLUMN created_at SET NOT NULL`,
	`ALTER TABLE sources ALTER COLUMN created_ts DROP NOT NULL`,
	`UPDATE sources SET tribe = '' WHERE tribe IS NULL`,
	`ALTER TABLE sources ALTER COLUMN tribe SET NOT NULL`,
	`DELETE FROM sources a USING sources b
	  WHERE a.url = b.url AND (a.created_at, a.id) > (b.created_at, b.id)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS sources_url_key ON sources (url)`,
}

// upgradeLegacy migrates a created_ts table to the current layout. It is a
// no-op once created_at exists.
func upgradeLegacy(ctx context.Context, pool *pgxpool.Pool) error {
	rows, err := pool.Query(ctx, `
		SELECT column_name FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = 'sources'`)
	if err != nil {
		return fmt.Errorf("inspect columns: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return fmt.Errorf("inspect columns: %w", err)
	}

	columns := make(map[string]bool, len(names))
	for _, n := range names {
		columns[n] = true
	}
	if columns["created_at"] || !columns["created_ts"] {
		return nil
	}

	err = pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		for _, stmt := range legacyUpgrade {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("Upgraded legacy sources table", nil)
	return nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Load returns every stored source.
func (s *Store) Load(ctx context.Context) ([]source.Source, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, url, COALESCE(tribe, ''), created_at FROM sources ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}

	sources, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (source.Source, error) {
		var src source.Source
		err := row.Scan(&src.ID, &src.URL, &src.Tribe, &src.CreatedAt)
		src.CreatedAt = src.CreatedAt.UTC()
		return src, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan sources: %w", err)
	}
	if sources == nil {
		sources = []source.Source{}
	}
	return sources, nil
}

// Save replaces the stored sources in a single transaction.
func (s *Store) Save(ctx context.Context, sources []source.Source) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM sources`); err != nil {
			return fmt.Errorf("clear sources: %w", err)
		}

		batch := &pgx.Batch{}
		for _, src := range sources {
			batch.Queue(
				`INSERT INTO sources (id, url, tribe, created_at) VALUES ($1, $2, $3, $4)`,
				src.ID, src.URL, src.Tribe, src.CreatedAt.UTC(),
			)
		}
		if batch.Len() == 0 {
			return nil
		}

		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert sources: %w", err)
		}
		return nil
	})
}
