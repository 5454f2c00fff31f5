package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/ccdb/internal/model"
	"github.com/roach88/ccdb/internal/store"
	"github.com/roach88/ccdb/internal/testutil"
	"github.com/roach88/ccdb/internal/textfile"
	"github.com/roach88/ccdb/internal/variation"
)

const testTablePath = "/test/test_vars/test_table"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	store  *store.Store
	engine *Engine
	index  *Index
	table  model.TypeTable
}

func setup(t *testing.T, opts ...Option) fixture {
	t.Helper()
	s := testutil.NewStore(t)
	table := testutil.CreateTable(t, s, testTablePath, "x", "y", "z")
	opts = append([]Option{
		WithClock(testutil.NewDeterministicClock()),
		WithIDGenerator(testutil.NewSequentialIDGenerator("asg")),
		WithLogger(discardLogger()),
	}, opts...)
	return fixture{
		store:  s,
		engine: New(s, opts...),
		index:  NewIndex(s, discardLogger()),
		table:  table,
	}
}

func columnar(t *testing.T, text string) *textfile.Document {
	t.Helper()
	doc, err := textfile.ParseString(text, textfile.Columnar, textfile.Options{})
	require.NoError(t, err)
	return doc
}

func rr(min, max int64) model.RunRange {
	return model.RunRange{Min: min, Max: max}
}

func TestCreateAssignment(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	doc := columnar(t, "# measured 2024-02-01\n1 2 3\n4 5 6\n")
	a, err := f.engine.CreateAssignment(ctx, doc, testTablePath, rr(0, 100), "default", "initial values")
	require.NoError(t, err)

	assert.Equal(t, "asg-0001", a.ID)
	assert.Equal(t, int64(1), a.Version)
	assert.Equal(t, testTablePath, a.Table.Path)
	assert.Equal(t, model.DefaultVariationName, a.Variation.Name)
	assert.Equal(t, rr(0, 100), a.RunRange)
	assert.Equal(t, [][]string{{"1", "2", "3"}, {"4", "5", "6"}}, a.Values)
	assert.Equal(t, "initial values\n# measured 2024-02-01", a.Comment)
	assert.Equal(t, testutil.At(1), a.Created)

	hash, err := model.ValuesHash(a.Values)
	require.NoError(t, err)
	assert.Equal(t, hash, a.DataHash)

	got, err := f.index.Lookup(ctx, testTablePath, 50, "default")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, a.Comment, got.Comment)
	assert.Equal(t, a.Values, got.Values)
}

func TestCreateAssignment_NewVariationIsCreated(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	a, err := f.engine.CreateAssignment(ctx, columnar(t, "1 2 3"), testTablePath, model.AllRuns, "mc", "")
	require.NoError(t, err)
	assert.Equal(t, "mc", a.Variation.Name)
	assert.False(t, a.Variation.HasParent())

	v, err := f.store.VariationByName(ctx, "mc")
	require.NoError(t, err)
	assert.Equal(t, a.Variation.ID, v.ID)
}

func TestCreateAssignment_PreconditionOrder(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	inconsistent := columnar(t, "1 2\n3\n")
	narrow := columnar(t, "1 2\n3 4\n")
	good := columnar(t, "1 2 3\n")
	badRange := rr(10, 5)

	tests := []struct {
		name string
		doc  *textfile.Document
		path string
		runs model.RunRange
		want model.ErrorCode
	}{
		{"unknown table first", inconsistent, "/no/such/table", badRange, model.ErrCodeUnknownTypeTable},
		{"invalid path", good, "relative/path", model.AllRuns, model.ErrCodeInvalidPath},
		{"inconsistent before width", inconsistent, testTablePath, badRange, model.ErrCodeInconsistentColumns},
		{"width before range", narrow, testTablePath, badRange, model.ErrCodeSchemaMismatch},
		{"range last", good, testTablePath, badRange, model.ErrCodeMalformedRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.engine.CreateAssignment(ctx, tt.doc, tt.path, tt.runs, "default", "")
			require.Error(t, err)
			assert.True(t, model.HasCode(err, tt.want), "got %v", err)
		})
	}

	// None of the failures touched storage.
	versions, err := f.index.Versions(ctx, testTablePath, "default", nil)
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func TestCreateAssignment_SchemaMismatchLeavesTableUnchanged(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	first, err := f.engine.CreateAssignment(ctx, columnar(t, "1 2 3"), testTablePath, rr(0, 100), "default", "")
	require.NoError(t, err)

	_, err = f.engine.CreateAssignment(ctx, columnar(t, "1 2 3 4"), testTablePath, rr(0, 100), "default", "")
	require.True(t, model.HasCode(err, model.ErrCodeSchemaMismatch), "got %v", err)
	assert.Equal(t, model.CategoryValidation, model.CategoryOf(err))

	got, err := f.index.Lookup(ctx, testTablePath, 50, "default")
	require.NoError(t, err)
	assert.Equal(t, first.Version, got.Version)

	versions, err := f.index.Versions(ctx, testTablePath, "default", nil)
	require.NoError(t, err)
	assert.Len(t, versions, 1)
}

func TestCreateAssignment_StrictCellTypes(t *testing.T) {
	ctx := context.Background()

	lenient := setup(t)
	_, err := lenient.engine.CreateAssignment(ctx, columnar(t, "1 two 3"), testTablePath, model.AllRuns, "default", "")
	require.NoError(t, err)

	strict := setup(t, WithStrictCellTypes(true))
	_, err = strict.engine.CreateAssignment(ctx, columnar(t, "1 two 3"), testTablePath, model.AllRuns, "default", "")
	assert.True(t, model.HasCode(err, model.ErrCodeCellType), "got %v", err)
}

func TestCreateAssignment_VersionsPerTableAndVariation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	testutil.CreateTable(t, f.store, "/test/other", "v")

	create := func(path, doc, variation string) int64 {
		a, err := f.engine.CreateAssignment(ctx, columnar(t, doc), path, model.AllRuns, variation, "")
		require.NoError(t, err)
		return a.Version
	}

	assert.Equal(t, int64(1), create(testTablePath, "1 2 3", "default"))
	assert.Equal(t, int64(2), create(testTablePath, "1 2 3", "default"))
	assert.Equal(t, int64(1), create(testTablePath, "1 2 3", "mc"))
	assert.Equal(t, int64(1), create("/test/other", "7", "default"))
	assert.Equal(t, int64(3), create(testTablePath, "1 2 3", "default"))
}

func TestCreateAssignment_ConcurrentWritersGetDistinctVersions(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	const writers = 16
	versions := make([]int64, writers)
	var g errgroup.Group
	for i := 0; i < writers; i++ {
		g.Go(func() error {
			doc, err := textfile.ParseString("1 2 3", textfile.Columnar, textfile.Options{})
			if err != nil {
				return err
			}
			a, err := f.engine.CreateAssignment(ctx, doc, testTablePath, model.AllRuns, "default", "")
			if err != nil {
				return err
			}
			versions[i] = a.Version
			return nil
		})
	}
	require.NoError(t, g.Wait())

	seen := make(map[int64]bool, writers)
	for _, v := range versions {
		require.False(t, seen[v], "version %d allocated twice", v)
		seen[v] = true
	}
	for v := int64(1); v <= writers; v++ {
		assert.True(t, seen[v], "version %d missing", v)
	}

	latest, err := f.index.Lookup(ctx, testTablePath, 1, "default")
	require.NoError(t, err)
	assert.Equal(t, int64(writers), latest.Version)
}

func TestCreateAssignment_NilDocument(t *testing.T) {
	f := setup(t)
	_, err := f.engine.CreateAssignment(context.Background(), nil, testTablePath, model.AllRuns, "default", "")
	assert.Error(t, err)
}

// mockTableRows primes the queries that load a one-column type table.
func mockTableRows(mock sqlmock.Sqlmock) {
	mock.ExpectQuery("SELECT id, path, comment, created_at FROM type_tables").
		WillReturnRows(sqlmock.NewRows([]string{"id", "path", "comment", "created_at"}).AddRow(1, "/t", "", 0))
	mock.ExpectQuery("SELECT name, cell_type FROM columns").
		WillReturnRows(sqlmock.NewRows([]string{"name", "cell_type"}).AddRow("v", "double"))
}

func mockDefaultVariation(mock sqlmock.Sqlmock) {
	mock.ExpectQuery("SELECT id, name, parent_id, comment, created_at FROM variations").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "parent_id", "comment", "created_at"}).AddRow(1, "default", nil, "", 0))
}

func TestCreateAssignment_BackendFailures(t *testing.T) {
	commitErr := errors.New("database or disk is full")
	insertErr := errors.New("FOREIGN KEY constraint failed")

	tests := []struct {
		name  string
		prime func(mock sqlmock.Sqlmock)
		want  error
	}{
		{
			name: "commit",
			prime: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INSERT INTO assignments").WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit().WillReturnError(commitErr)
			},
			want: commitErr,
		},
		{
			name: "insert",
			prime: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INSERT INTO assignments").WillReturnError(insertErr)
				mock.ExpectRollback()
			},
			want: insertErr,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			mockTableRows(mock)
			mockDefaultVariation(mock)
			mock.ExpectQuery("SELECT id, run_min, run_max").
				WillReturnRows(sqlmock.NewRows([]string{"id", "run_min", "run_max", "version", "values_json", "data_hash", "comment", "created_at"}))
			mock.ExpectBegin()
			mockDefaultVariation(mock)
			mock.ExpectQuery("INSERT INTO assignment_versions").
				WillReturnRows(sqlmock.NewRows([]string{"last_version"}).AddRow(1))
			tt.prime(mock)

			s := store.NewFromDB(db)
			e := New(s, WithLogger(discardLogger()), WithIDGenerator(testutil.NewSequentialIDGenerator("a")))

			_, err = e.CreateAssignment(context.Background(), columnar(t, "1"), "/t", model.AllRuns, "default", "")
			require.Error(t, err)
			assert.True(t, model.HasCode(err, model.ErrCodeBackend), "got %v", err)
			assert.Equal(t, model.CategoryBackend, model.CategoryOf(err))
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, s.LastError(), tt.want)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestBackendError_WrapsOwnCause(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// Another caller's failure is the store's last error.
	otherErr := errors.New("database is locked")
	mock.ExpectQuery("SELECT id, name, parent_id").WillReturnError(otherErr)
	s := store.NewFromDB(db)
	_, err = s.VariationByName(context.Background(), "other")
	require.ErrorIs(t, err, otherErr)

	e := New(s, WithLogger(discardLogger()))
	ownErr := errors.New("FOREIGN KEY constraint failed")
	got := e.backendError("insert assignment", ownErr)
	assert.True(t, model.HasCode(got, model.ErrCodeBackend), "got %v", got)
	assert.ErrorIs(t, got, ownErr)
	assert.NotErrorIs(t, got, otherErr)

	got = e.backendError("commit assignment", nil)
	assert.ErrorIs(t, got, otherErr)

	typed := model.NewUnknownTypeTableError("/t")
	assert.Same(t, typed, e.backendError("resolve variation", typed))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAssignment_TableLookupFailureIsBackend(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id, path").WillReturnError(errors.New("disk I/O error"))

	e := New(store.NewFromDB(db), WithLogger(discardLogger()))
	_, err = e.CreateAssignment(context.Background(), columnar(t, "1"), "/t", model.AllRuns, "default", "")
	assert.True(t, model.HasCode(err, model.ErrCodeBackend), "got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJoinComment(t *testing.T) {
	assert.Equal(t, "", joinComment("", nil))
	assert.Equal(t, "op", joinComment("  op ", nil))
	assert.Equal(t, "# a\n# b", joinComment("", []string{"# a", "", "# b"}))
	assert.Equal(t, "op\n# a", joinComment("op", []string{"# a"}))
}

func TestResolverSharesEngineStore(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := variation.NewResolver(f.store, nil).SetParent(ctx, "child", "default")
	require.NoError(t, err)

	a, err := f.engine.CreateAssignment(ctx, columnar(t, "1 2 3"), testTablePath, model.AllRuns, "child", "")
	require.NoError(t, err)
	assert.Equal(t, "child", a.Variation.Name)
	assert.True(t, a.Variation.HasParent(), "existing parent link is kept")
}
