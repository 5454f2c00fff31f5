package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunDir_Testdata(t *testing.T) {
	suite, err := RunDir(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)

	assert.Equal(t, 3, suite.Total)
	assert.Equal(t, 3, suite.Passed)
	assert.Zero(t, suite.Failed)
	assert.Empty(t, suite.Failures)
}

func TestRunDir_CountsFailures(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}

	write("a_pass.yaml", `
name: pass
tables:
  - path: /t
    columns: [x]
steps:
  - add:
      table: /t
      runs: 0-1
      contents: "1"
`)
	write("b_fail.yml", `
name: fail
tables:
  - path: /t
    columns: [x]
steps:
  - get:
      request: /t:1
`)
	write("c_broken.yaml", "name: [\n")
	write("notes.txt", "ignored")

	suite, err := RunDir(dir)
	require.NoError(t, err)

	assert.Equal(t, 3, suite.Total)
	assert.Equal(t, 1, suite.Passed)
	assert.Equal(t, 2, suite.Failed)
	require.Len(t, suite.Failures, 2)
	assert.Equal(t, "fail", suite.Failures[0].Scenario)
	assert.Contains(t, suite.Failures[0].Errors[0], "NO_APPLICABLE_ASSIGNMENT")
	assert.Equal(t, "c_broken.yaml", suite.Failures[1].Scenario)
	assert.Contains(t, suite.Failures[1].Errors[0], "failed to parse YAML")
}

func TestRunDir_Empty(t *testing.T) {
	_, err := RunDir(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no scenarios")
}

func TestFindScenarios_Missing(t *testing.T) {
	_, err := FindScenarios(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}
