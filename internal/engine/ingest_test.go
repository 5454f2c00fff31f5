package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ccdb/internal/model"
	"github.com/roach88/ccdb/internal/textfile"
)

func TestIngest_Columnar(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	a, advisories, err := f.engine.Ingest(ctx, IngestRequest{
		TablePath:    testTablePath,
		RunRangeText: "100-200",
		Variation:    "default",
		Contents:     "# from laser run\nscale = 2\n1 2 3 # first\n4 5 6\n",
		Comment:      "operator note",
	})
	require.NoError(t, err)
	assert.Empty(t, advisories)
	assert.Equal(t, rr(100, 200), a.RunRange)
	assert.Equal(t, [][]string{{"1", "2", "3"}, {"4", "5", "6"}}, a.Values)
	assert.Equal(t, "operator note\n# from laser run\n# first", a.Comment)
}

func TestIngest_DefaultedBoundsAreAdvisories(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	a, advisories, err := f.engine.Ingest(ctx, IngestRequest{
		TablePath:    testTablePath,
		RunRangeText: "10-",
		Contents:     "1 2 3",
	})
	require.NoError(t, err)
	assert.Equal(t, model.RunRange{Min: 10, Max: model.InfiniteRun}, a.RunRange)
	assert.Equal(t, []string{"run range maximum not given, using 2147483647"}, advisories)
	assert.Equal(t, model.DefaultVariationName, a.Variation.Name)

	_, advisories, err = f.engine.Ingest(ctx, IngestRequest{
		TablePath:    testTablePath,
		RunRangeText: "-20",
		Contents:     "4 5 6",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"run range minimum not given, using 0"}, advisories)
}

func TestIngest_RangeErrorReportedAfterDocumentChecks(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, _, err := f.engine.Ingest(ctx, IngestRequest{TablePath: "/nope", RunRangeText: "abc-10", Contents: "1 2 3"})
	assert.True(t, model.HasCode(err, model.ErrCodeUnknownTypeTable), "got %v", err)

	_, _, err = f.engine.Ingest(ctx, IngestRequest{TablePath: testTablePath, RunRangeText: "abc-10", Contents: "1 2"})
	assert.True(t, model.HasCode(err, model.ErrCodeSchemaMismatch), "got %v", err)

	for _, text := range []string{"abc-10", "-5-10", "10", "-", "20-10"} {
		_, _, err = f.engine.Ingest(ctx, IngestRequest{TablePath: testTablePath, RunRangeText: text, Contents: "1 2 3"})
		assert.True(t, model.HasCode(err, model.ErrCodeMalformedRange), "%q: got %v", text, err)
		assert.Equal(t, model.CategoryParse, model.CategoryOf(err))
	}
}

func TestIngest_NameValue(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	a, advisories, err := f.engine.Ingest(ctx, IngestRequest{
		TablePath:    testTablePath,
		RunRangeText: "0-10",
		Contents:     "x 1.5\ny 2.5\nz 3.5\n",
		Format:       textfile.NameValue,
	})
	require.NoError(t, err)
	assert.Empty(t, advisories)
	assert.Equal(t, [][]string{{"1.5", "2.5", "3.5"}}, a.Values)

	_, advisories, err = f.engine.Ingest(ctx, IngestRequest{
		TablePath:    testTablePath,
		RunRangeText: "0-10",
		Contents:     "x 1\ny 2\nw 3\n",
		Format:       textfile.NameValue,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"names not in type table table=/test/test_vars/test_table names=w",
		"type table columns not named table=/test/test_vars/test_table columns=z",
	}, advisories)

	_, _, err = f.engine.Ingest(ctx, IngestRequest{
		TablePath:    testTablePath,
		RunRangeText: "0-10",
		Contents:     "x 1\ny 2 extra\nz 3\n",
		Format:       textfile.NameValue,
	})
	assert.True(t, model.HasCode(err, model.ErrCodeInconsistentColumns), "got %v", err)
}

func TestIngest_NameValueReordered(t *testing.T) {
	f := setup(t, WithStrictCellTypes(true))
	ctx := context.Background()

	a, advisories, err := f.engine.Ingest(ctx, IngestRequest{
		TablePath:    testTablePath,
		RunRangeText: "0-10",
		Contents:     "z 3\nx 1\ny 2\n",
		Format:       textfile.NameValue,
	})
	require.NoError(t, err)
	assert.Empty(t, advisories)
	assert.Equal(t, [][]string{{"1", "2", "3"}}, a.Values)
	row, err := a.Row()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"x": "1", "y": "2", "z": "3"}, row)

	// The same values in table order are the same data.
	_, advisories, err = f.engine.Ingest(ctx, IngestRequest{
		TablePath:    testTablePath,
		RunRangeText: "0-10",
		Contents:     "x 1\ny 2\nz 3\n",
		Format:       textfile.NameValue,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"values identical to previous version table=/test/test_vars/test_table variation=default previous=1",
	}, advisories)
}

func TestIngest_CComments(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	a, _, err := f.engine.Ingest(ctx, IngestRequest{
		TablePath:    testTablePath,
		RunRangeText: "0-10",
		Contents:     "// generated\n1 2 3\n",
		CComments:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, "# generated", a.Comment)

	// Without the flag the same line is a two-cell data row.
	_, _, err = f.engine.Ingest(ctx, IngestRequest{
		TablePath:    testTablePath,
		RunRangeText: "0-10",
		Contents:     "// generated\n1 2 3\n",
	})
	assert.True(t, model.HasCode(err, model.ErrCodeInconsistentColumns), "got %v", err)
}

func TestIngest_SkipFileComments(t *testing.T) {
	f := setup(t)

	a, _, err := f.engine.Ingest(context.Background(), IngestRequest{
		TablePath:        testTablePath,
		RunRangeText:     "0-10",
		Contents:         "# file comment\n1 2 3\n",
		Comment:          "kept",
		SkipFileComments: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "kept", a.Comment)
}

func TestIngest_IdenticalValuesAdvisory(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	req := IngestRequest{TablePath: testTablePath, RunRangeText: "0-10", Contents: "1 2 3"}

	_, advisories, err := f.engine.Ingest(ctx, req)
	require.NoError(t, err)
	assert.Empty(t, advisories)

	// Layout differences do not change the content hash.
	req.Contents = "  1   2 3  # same numbers\n"
	a, advisories, err := f.engine.Ingest(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, int64(2), a.Version)
	assert.Equal(t, []string{
		"values identical to previous version table=/test/test_vars/test_table variation=default previous=1",
	}, advisories)
}

func TestIngest_File(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "consts.txt")
	require.NoError(t, os.WriteFile(path, []byte("7 8 9\n"), 0o644))

	a, _, err := f.engine.Ingest(ctx, IngestRequest{TablePath: testTablePath, RunRangeText: "0-1", File: path})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"7", "8", "9"}}, a.Values)

	_, _, err = f.engine.Ingest(ctx, IngestRequest{
		TablePath:    testTablePath,
		RunRangeText: "0-1",
		File:         filepath.Join(t.TempDir(), "missing.txt"),
	})
	assert.True(t, model.HasCode(err, model.ErrCodeSourceUnreadable), "got %v", err)
}
