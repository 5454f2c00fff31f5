package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/ccdb/internal/model"
)

var testTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestTable creates /test/test_vars/test_table with columns x, y, z.
func createTestTable(t *testing.T, s *Store) model.TypeTable {
	t.Helper()
	table, err := s.CreateTypeTable(context.Background(), model.TypeTable{
		Path:    "/test/test_vars/test_table",
		Comment: "test table",
		Columns: []model.Column{
			{Name: "x", Type: model.CellDouble},
			{Name: "y", Type: model.CellDouble},
			{Name: "z", Type: model.CellDouble},
		},
	}, testTime)
	if err != nil {
		t.Fatalf("CreateTypeTable() failed: %v", err)
	}
	return table
}

// insertTestAssignment allocates a version and inserts values in one transaction.
func insertTestAssignment(t *testing.T, s *Store, table model.TypeTable, v model.Variation, rr model.RunRange, values [][]string) model.Assignment {
	t.Helper()
	ctx := context.Background()

	tx, err := s.BeginTx(ctx)
	if err != nil {
		t.Fatalf("BeginTx() failed: %v", err)
	}
	defer tx.Rollback()

	version, err := tx.AllocateNextVersion(ctx, table.ID, v.ID)
	if err != nil {
		t.Fatalf("AllocateNextVersion() failed: %v", err)
	}

	a := model.Assignment{
		ID:        fmt.Sprintf("%s/%s/v%d", v.Name, rr, version),
		Table:     table,
		Variation: v,
		RunRange:  rr,
		Version:   version,
		Values:    values,
		DataHash:  "hash",
		Created:   testTime.Add(time.Duration(version) * time.Minute),
	}
	if err := tx.InsertAssignment(ctx, &a); err != nil {
		t.Fatalf("InsertAssignment() failed: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit() failed: %v", err)
	}
	return a
}
