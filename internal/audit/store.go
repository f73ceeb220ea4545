package audit

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/pxr-io/block-gateway/internal/model"
)

// Store persists audit-log entries. The gateway only ever writes; entries
// are read by operational tooling, not by the gateway itself.
type Store struct {
	db     *sqlx.DB
	driver string
}

const schema = `
CREATE TABLE IF NOT EXISTS audit_log (
	id                 VARCHAR(36) PRIMARY KEY,
	type               INTEGER NOT NULL,
	method             VARCHAR(8) NOT NULL,
	from_block_code    INTEGER NOT NULL,
	from_block_version INTEGER NOT NULL,
	from_url           TEXT NOT NULL,
	to_block_code      INTEGER NOT NULL,
	to_block_version   INTEGER NOT NULL,
	to_url             TEXT NOT NULL,
	disabled           BOOLEAN NOT NULL DEFAULT FALSE,
	created_by         VARCHAR(128) NOT NULL,
	updated_by         VARCHAR(128) NOT NULL,
	created_at         TIMESTAMP NOT NULL,
	updated_at         TIMESTAMP NOT NULL
)`

// NewStore opens the audit database and ensures the schema exists. Driver is
// "sqlite" (default; empty DSN means in-memory), "postgres", or "mysql".
func NewStore(driver, dsn string) (*Store, error) {
	var driverName string
	switch driver {
	case "", "sqlite":
		driverName = "sqlite"
		if dsn == "" {
			dsn = ":memory:?_journal_mode=WAL"
		}
	case "postgres":
		driverName = "pgx"
	case "mysql":
		driverName = "mysql"
	default:
		return nil, fmt.Errorf("unsupported audit driver %q", driver)
	}

	db, err := sqlx.Connect(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}
	if driverName == "sqlite" {
		db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes
	}

	s := &Store{db: db, driver: driverName}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate audit database: %w", err)
	}
	return s, nil
}

// Save durably stores one audit entry.
func (s *Store) Save(ctx context.Context, entry *model.AuditLog) error {
	const insert = `
		INSERT INTO audit_log (
			id, type, method,
			from_block_code, from_block_version, from_url,
			to_block_code, to_block_version, to_url,
			disabled, created_by, updated_by, created_at, updated_at
		) VALUES (
			:id, :type, :method,
			:from_block_code, :from_block_version, :from_url,
			:to_block_code, :to_block_version, :to_url,
			:disabled, :created_by, :updated_by, :created_at, :updated_at
		)`
	if _, err := s.db.NamedExecContext(ctx, insert, entry); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// Ping checks connectivity for readiness probes.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
