package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// MemoryDSN opens a private in-memory database.
const MemoryDSN = ":memory:"

// conn is satisfied by both *sql.DB and *sql.Tx.
type conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the SQLite data access layer for the symbol index.
type Store struct {
	db   *sql.DB
	conn conn
}

// NewStore opens a SQLite database at dbPath. MemoryDSN keeps the index in
// process memory on a single connection, since every new connection to
// ":memory:" would see an empty database.
func NewStore(dbPath string) (*Store, error) {
	dsn := dbPath + "?_foreign_keys=ON"
	if dbPath != MemoryDSN {
		dsn += "&_journal_mode=WAL&_busy_timeout=30000"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == MemoryDSN {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db, conn: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// InTx runs fn against a Store bound to a single transaction. The
// transaction commits when fn returns nil.
func (s *Store) InTx(ctx context.Context, fn func(tx *Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Store{db: s.db, conn: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS files (
  id              INTEGER PRIMARY KEY,
  path            TEXT NOT NULL UNIQUE,
  language        TEXT NOT NULL,
  line_count      INTEGER
);

CREATE TABLE IF NOT EXISTS symbols (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES files(id),
  name            TEXT NOT NULL,
  kind            TEXT NOT NULL,
  exported        BOOLEAN DEFAULT FALSE,
  export_name     TEXT,
  node_id         INTEGER NOT NULL,
  start_byte      INTEGER,
  start_line      INTEGER,
  start_col       INTEGER,
  end_line        INTEGER,
  end_col         INTEGER,
  UNIQUE (file_id, node_id)
);

CREATE TABLE IF NOT EXISTS imports (
  id               INTEGER PRIMARY KEY,
  file_id          INTEGER NOT NULL REFERENCES files(id),
  source           TEXT NOT NULL,
  resolved_file_id INTEGER REFERENCES files(id),
  imported_name    TEXT,
  local_alias      TEXT,
  kind             TEXT NOT NULL,
  node_id          INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS references_ (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES files(id),
  node_id         INTEGER NOT NULL,
  name            TEXT NOT NULL,
  start_byte      INTEGER NOT NULL,
  start_line      INTEGER,
  start_col       INTEGER,
  end_line        INTEGER,
  end_col         INTEGER,
  context         TEXT,
  UNIQUE (file_id, node_id)
);

CREATE TABLE IF NOT EXISTS resolved_references (
  id               INTEGER PRIMARY KEY,
  reference_id     INTEGER NOT NULL REFERENCES references_(id),
  target_symbol_id INTEGER NOT NULL REFERENCES symbols(id),
  resolution_kind  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_symbols_file ON symbols(file_id);
CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name);
CREATE INDEX IF NOT EXISTS idx_symbols_export ON symbols(file_id, export_name);
CREATE INDEX IF NOT EXISTS idx_imports_file ON imports(file_id);
CREATE INDEX IF NOT EXISTS idx_imports_resolved ON imports(resolved_file_id);
CREATE INDEX IF NOT EXISTS idx_references_file ON references_(file_id);
CREATE INDEX IF NOT EXISTS idx_resolved_refs_reference ON resolved_references(reference_id);
CREATE INDEX IF NOT EXISTS idx_resolved_refs_target ON resolved_references(target_symbol_id);
`
