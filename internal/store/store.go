package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/roach88/ccdb/internal/model"
)

//go:embed migrations/*.sql
var migrations embed.FS

// goose keeps its base FS and dialect in package globals.
var migrateMu sync.Mutex

// ErrUnsupportedBackend is returned by OpenURL for schemes other than sqlite.
var ErrUnsupportedBackend = errors.New("unsupported backend")

// readConns bounds the read pool. It matches the lookup fan-out.
const readConns = 8

// Store provides durable storage for calibration constants.
// Uses SQLite with WAL mode for concurrent read access.
type Store struct {
	db    *sql.DB // the single writer connection
	reads *sql.DB // query-only pool; db itself for in-memory databases

	mu      sync.Mutex
	lastErr error
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// Reads of a file database go through a separate query-only pool, so a
// lookup never queues behind an open write transaction.
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time. A single connection also
	// serializes version allocation across goroutines.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	reads, err := openReadPool(path, db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, reads: reads}, nil
}

// openReadPool opens the query-only pool for a file database. An in-memory
// database exists only on the writer connection, so it is shared.
func openReadPool(path string, writer *sql.DB) (*sql.DB, error) {
	if path == "" || path == ":memory:" || strings.HasPrefix(path, "file:") || strings.Contains(path, "?") {
		return writer, nil
	}
	reads, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_query_only=1")
	if err != nil {
		return nil, fmt.Errorf("failed to open read pool: %w", err)
	}
	if err := reads.Ping(); err != nil {
		reads.Close()
		return nil, fmt.Errorf("failed to connect read pool: %w", err)
	}
	reads.SetMaxOpenConns(readConns)
	reads.SetMaxIdleConns(readConns)
	return reads, nil
}

// OpenURL opens a store from a connection string. "sqlite://<path>" and
// bare paths open SQLite; "mysql://" is recognized but not supported.
func OpenURL(conn string) (*Store, error) {
	scheme, rest, found := strings.Cut(conn, "://")
	if !found {
		return Open(conn)
	}
	switch strings.ToLower(scheme) {
	case "sqlite", "sqlite3":
		if rest == "" {
			return nil, fmt.Errorf("open %q: empty database path", conn)
		}
		return Open(rest)
	case "mysql":
		return nil, fmt.Errorf("open %q: mysql: %w", conn, ErrUnsupportedBackend)
	default:
		return nil, fmt.Errorf("open %q: scheme %q: %w", conn, scheme, ErrUnsupportedBackend)
	}
}

// NewFromDB wraps an existing connection without applying pragmas or
// migrations. The caller owns the schema.
func NewFromDB(db *sql.DB) *Store {
	return &Store{db: db, reads: db}
}

// Migrate applies all pending embedded migrations to db.
func Migrate(db *sql.DB) error {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	if s.reads != nil && s.reads != s.db {
		if err := s.reads.Close(); err != nil {
			s.db.Close()
			return err
		}
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

// LastError returns the most recent error reported by the database, or nil.
func (s *Store) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// record remembers err as the last backend error and returns it unchanged.
func (s *Store) record(err error) error {
	if err == nil || errors.Is(err, sql.ErrNoRows) || errors.Is(err, model.ErrNotFound) {
		return err
	}
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
	return err
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
