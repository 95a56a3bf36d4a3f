// Package store provides the local row store for centavo: an embedded
// SQLite database holding the syncable budget tables, the pending-change
// log the sync engine drains, and the sync high-water mark.
//
// The database runs in embedded mode with WAL for concurrent reads.
//
// Two write paths exist and must not be confused:
//
//   - The typed domain methods (CreateCategory, UpdateTransaction, ...)
//     are the application write path. Each one mutates its row AND appends
//     exactly one pending_changes entry, atomically in one transaction.
//   - The generic row methods (InsertRowFields, UpdateRowFields,
//     SoftDeleteRow) apply remote state during the pull phase and record
//     nothing, so remote changes never echo back to the remote store.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/centavo-app/centavo/internal/budget"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// Store wraps the SQLite connection with centavo-specific functionality.
type Store struct {
	conn *sql.DB
	path string
}

// Open creates a new database connection at the specified path.
//
// If the database doesn't exist it is created; call InitSchema before
// first use. The caller MUST call Close() when done.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{conn: conn, path: path}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := s.conn.Exec(pragma); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	return s, nil
}

// RawDB returns the underlying sql.DB connection.
func (s *Store) RawDB() *sql.DB {
	return s.conn
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection.
// Performs a WAL checkpoint to ensure all changes are persisted.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}

	if _, err := s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	s.conn = nil
	return nil
}

// integerColumns lists the domain columns stored with INTEGER affinity.
// Everything else is TEXT: timestamps as RFC 3339 strings and money
// amounts as decimal strings, so no precision is lost.
var integerColumns = map[string]bool{
	"pay_day": true,
	"streak":  true,
}

// InitSchema creates the database schema if it doesn't exist.
//
// This creates one table per syncable table descriptor plus the
// pending_changes log and the sync_state record. Idempotent - safe to
// call multiple times.
func (s *Store) InitSchema() error {
	return s.InitSchemaContext(context.Background())
}

// InitSchemaContext creates the database schema with context support.
func (s *Store) InitSchemaContext(ctx context.Context) error {
	var b strings.Builder

	for _, table := range budget.AllTables() {
		b.WriteString(fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n", table.Name))
		b.WriteString("\tid TEXT PRIMARY KEY,\n")
		for _, col := range table.Columns {
			affinity := "TEXT"
			if integerColumns[col] {
				affinity = "INTEGER"
			}
			b.WriteString(fmt.Sprintf("\t%q %s,\n", col, affinity))
		}
		b.WriteString("\tcreated_at TEXT NOT NULL,\n")
		b.WriteString("\tupdated_at TEXT NOT NULL,\n")
		b.WriteString("\tdeleted_at TEXT\n")
		b.WriteString(");\n")
		b.WriteString(fmt.Sprintf(
			"CREATE INDEX IF NOT EXISTS idx_%s_updated ON %s(updated_at);\n",
			table.Name, table.Name))
	}

	b.WriteString(`
	CREATE TABLE IF NOT EXISTS pending_changes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		table_name TEXT NOT NULL,
		row_id TEXT NOT NULL,
		action TEXT NOT NULL,
		payload TEXT,
		created_at TEXT NOT NULL,
		synced INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_pending_unsynced
	    ON pending_changes(synced, created_at);

	CREATE TABLE IF NOT EXISTS sync_state (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		last_synced_at TEXT
	);
	`)

	if _, err := s.conn.ExecContext(ctx, b.String()); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

// Tx is a transaction scope over the store. All operations performed
// through it commit or roll back together.
type Tx struct {
	tx *sql.Tx
}

// WithTx runs fn inside a transaction. The transaction is committed when
// fn returns nil and rolled back when it returns an error; the error is
// propagated either way.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Tx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
