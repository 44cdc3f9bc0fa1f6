// Package postgres implements the store.Driver on PostgreSQL with pgvector.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	// Postgres driver.
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/toondesk/toondesk/store"
)

// DB implements store.Driver.
type DB struct {
	db         *sql.DB
	dimensions int
}

// NewDB opens a connection pool against dsn. dimensions is the embedding
// width of the document table.
func NewDB(dsn string, dimensions int) (*DB, error) {
	if dsn == "" {
		return nil, errors.New("dsn is required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open postgres")
	}
	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping postgres")
	}
	return &DB{db: db, dimensions: dimensions}, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

// Migrate creates the document schema. Idempotent.
func (d *DB) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS document (
				id BIGSERIAL PRIMARY KEY,
				index_name TEXT NOT NULL,
				content TEXT NOT NULL,
				embedding vector(%d),
				created_ts BIGINT NOT NULL
			)`, d.dimensions),
		`CREATE INDEX IF NOT EXISTS idx_document_index_name ON document (index_name)`,
	}
	for _, stmt := range stmts {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "migration failed: %.40s", stmt)
		}
	}
	return nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

var _ store.Driver = (*DB)(nil)
