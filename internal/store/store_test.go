package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	tables := []string{"directories", "type_tables", "columns", "variations", "assignment_versions", "assignments"}
	for _, table := range tables {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after idempotent opens: %v", table, err)
		}
	}

	// The seed row must not be duplicated by re-running migrations.
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM variations WHERE name = 'default'").Scan(&count); err != nil {
		t.Fatalf("count default variation: %v", err)
	}
	if count != 1 {
		t.Errorf("default variation count = %d, want 1", count)
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "test.db"))
	if err == nil {
		t.Error("Open() with missing parent directory should fail")
	}
}

func TestOpenURL(t *testing.T) {
	dir := t.TempDir()

	s, err := OpenURL("sqlite://" + filepath.Join(dir, "url.db"))
	if err != nil {
		t.Fatalf("OpenURL(sqlite://) failed: %v", err)
	}
	s.Close()

	s, err = OpenURL(filepath.Join(dir, "bare.db"))
	if err != nil {
		t.Fatalf("OpenURL(bare path) failed: %v", err)
	}
	s.Close()

	for _, conn := range []string{"mysql://ccdb_user@localhost/ccdb", "postgres://x/y"} {
		if _, err := OpenURL(conn); !errors.Is(err, ErrUnsupportedBackend) {
			t.Errorf("OpenURL(%q) error = %v, want ErrUnsupportedBackend", conn, err)
		}
	}

	if _, err := OpenURL("sqlite://"); err == nil {
		t.Error("OpenURL(sqlite://) with empty path should fail")
	}
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on nil db = %v, want nil", err)
	}
}

func TestPragmas(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		name     string
		expected string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"},
		{"busy_timeout", "5000"},
		{"foreign_keys", "1"},
	}
	for _, tt := range tests {
		if err := s.verifyPragma(tt.name, tt.expected); err != nil {
			t.Error(err)
		}
	}
}

func TestMigrate_VersionRecorded(t *testing.T) {
	s := createTestStore(t)

	var version int64
	err := s.db.QueryRow("SELECT MAX(version_id) FROM goose_db_version").Scan(&version)
	if err != nil {
		t.Fatalf("query goose version: %v", err)
	}
	if version != 1 {
		t.Errorf("migration version = %d, want 1", version)
	}
}

func TestNewFromDB_LastError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() failed: %v", err)
	}
	defer db.Close()

	s := NewFromDB(db)
	if s.LastError() != nil {
		t.Fatalf("LastError() = %v before any call, want nil", s.LastError())
	}

	diskErr := errors.New("disk I/O error")
	mock.ExpectQuery("SELECT id, name, parent_id").WillReturnError(diskErr)

	if _, err := s.VariationByName(t.Context(), "default"); !errors.Is(err, diskErr) {
		t.Fatalf("VariationByName() error = %v, want wrapped disk error", err)
	}
	if !errors.Is(s.LastError(), diskErr) {
		t.Errorf("LastError() = %v, want wrapped disk error", s.LastError())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestReadsDoNotWaitForWriter(t *testing.T) {
	s := createTestStore(t)
	table := createTestTable(t, s)
	ctx := t.Context()
	def, err := s.VariationByName(ctx, "default")
	if err != nil {
		t.Fatalf("VariationByName() failed: %v", err)
	}

	tx, err := s.BeginTx(ctx)
	if err != nil {
		t.Fatalf("BeginTx() failed: %v", err)
	}
	defer tx.Rollback()
	if _, err := tx.AllocateNextVersion(ctx, table.ID, def.ID); err != nil {
		t.Fatalf("AllocateNextVersion() failed: %v", err)
	}

	// The writer connection is held by tx; reads must still be served.
	readCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if _, err := s.VariationByName(readCtx, "default"); err != nil {
		t.Fatalf("VariationByName() during write tx = %v", err)
	}
	if _, err := s.TypeTableByPath(readCtx, table.Path); err != nil {
		t.Fatalf("TypeTableByPath() during write tx = %v", err)
	}
}

func TestOpen_InMemorySharesConnection(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	defer s.Close()

	if s.reads != s.db {
		t.Fatal("in-memory store opened a separate read pool")
	}
	if _, err := s.VariationByName(t.Context(), "default"); err != nil {
		t.Fatalf("VariationByName() = %v", err)
	}
}
