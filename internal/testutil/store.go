package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/ccdb/internal/model"
	"github.com/roach88/ccdb/internal/store"
)

// NewStore opens a fresh SQLite store in a temp dir, closed on cleanup.
func NewStore(t testing.TB) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "ccdb.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// CreateTable creates a type table whose columns are all doubles.
func CreateTable(t testing.TB, s *store.Store, path string, columns ...string) model.TypeTable {
	t.Helper()
	cols := make([]model.Column, len(columns))
	for i, name := range columns {
		cols[i] = model.Column{Name: name, Type: model.CellDouble}
	}
	table, err := s.CreateTypeTable(context.Background(), model.TypeTable{Path: path, Columns: cols}, Epoch)
	require.NoError(t, err)
	return table
}
