package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func gainsScenario(steps ...Step) *Scenario {
	return &Scenario{
		Name:   "inline",
		Tables: []TableDef{{Path: "/calib/gains", Columns: []string{"channel:int", "gain"}}},
		Steps:  steps,
	}
}

func TestRun_AddAndGet(t *testing.T) {
	scenario := gainsScenario(
		Step{
			Add:    &AddStep{Table: "/calib/gains", Runs: "0-10", Comment: "bench", Contents: "1 0.5\n2 0.7\n"},
			Expect: &ExpectClause{Version: 1, Runs: "0-10", Comment: strPtr("bench"), Values: [][]string{{"1", "0.5"}, {"2", "0.7"}}},
		},
		Step{
			Get:    &GetStep{Request: "/calib/gains:3"},
			Expect: &ExpectClause{Version: 1, Variation: "default"},
		},
	)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	require.Len(t, result.Trace, 2)
	assert.Equal(t, TraceEvent{
		Seq: 1, Op: "add", Target: "/calib/gains", Outcome: OutcomeOK,
		ID: "asg-0001", Version: 1, Variation: "default", Runs: "0-10",
	}, result.Trace[0])
	assert.Equal(t, "get", result.Trace[1].Op)
	assert.Equal(t, "asg-0001", result.Trace[1].ID)
}

func TestRun_DefaultRunsAdvise(t *testing.T) {
	scenario := gainsScenario(Step{
		Add: &AddStep{Table: "/calib/gains", Contents: "1 0.5\n"},
		Expect: &ExpectClause{
			Runs:       "0-",
			Advisories: []string{"run range maximum not given"},
		},
	})

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, []string{"run range maximum not given, using 2147483647"}, result.Trace[0].Advisories)
}

func TestRun_ExpectedError(t *testing.T) {
	scenario := gainsScenario(
		Step{
			Add:    &AddStep{Table: "/calib/gains", Runs: "0-10", Contents: "1 0.5 9\n"},
			Expect: &ExpectClause{Error: "SCHEMA_MISMATCH"},
		},
		Step{
			Get:    &GetStep{Request: "/calib/gains:3"},
			Expect: &ExpectClause{Error: "NO_APPLICABLE_ASSIGNMENT"},
		},
	)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "SCHEMA_MISMATCH", result.Trace[0].Outcome)
	assert.Empty(t, result.Trace[0].ID)
}

func TestRun_ReportsMismatches(t *testing.T) {
	scenario := gainsScenario(
		Step{
			Add:    &AddStep{Table: "/calib/gains", Runs: "0-10", Contents: "1 0.5\n"},
			Expect: &ExpectClause{Version: 2, Runs: "0-20"},
		},
		Step{
			Add: &AddStep{Table: "/calib/gains", Runs: "0-10", Contents: "1\n"},
		},
		Step{
			Get:    &GetStep{Request: "/calib/gains:3"},
			Expect: &ExpectClause{Error: "UNKNOWN_TYPE_TABLE"},
		},
	)
	scenario.Assertions = []Assertion{
		{Type: AssertVersionCount, Table: "/calib/gains", Count: 4},
		{Type: AssertLookup, Table: "/calib/gains", Run: 50, Version: 1},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)

	require.Len(t, result.Errors, 6)
	assert.Contains(t, result.Errors[0], "steps[0] add /calib/gains: version: expected 2, got 1")
	assert.Contains(t, result.Errors[1], "runs: expected 0-20, got 0-10")
	assert.Contains(t, result.Errors[2], "steps[1]")
	assert.Contains(t, result.Errors[2], "expected success")
	assert.Contains(t, result.Errors[3], "expected error UNKNOWN_TYPE_TABLE, got success (version 1)")
	assert.Contains(t, result.Errors[4], "assertions[0]")
	assert.Contains(t, result.Errors[4], "expected 4 version(s)")
	assert.Contains(t, result.Errors[5], "assertions[1]")
	assert.Contains(t, result.Errors[5], "NO_APPLICABLE_ASSIGNMENT")
}

func TestRun_Mkvar(t *testing.T) {
	scenario := gainsScenario(
		Step{
			Mkvar:  &VariationDef{Name: "mc", Parent: "default"},
			Expect: &ExpectClause{Variation: "mc", Parent: "default"},
		},
		Step{
			Mkvar:  &VariationDef{Name: "default", Parent: "mc"},
			Expect: &ExpectClause{Error: "CYCLIC_VARIATION"},
		},
		Step{
			Mkvar:  &VariationDef{Name: "mc", Parent: "mc"},
			Expect: &ExpectClause{Error: "CYCLIC_VARIATION"},
		},
	)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "mc", result.Trace[0].Variation)
	assert.Equal(t, OutcomeOK, result.Trace[0].Outcome)
}

func TestRun_SetupFailure(t *testing.T) {
	scenario := &Scenario{
		Name:   "bad_table",
		Tables: []TableDef{{Path: "/a", Columns: []string{"1bad"}}},
		Steps:  []Step{{Get: &GetStep{Request: "/a:1"}}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to execute setup")
	assert.Contains(t, err.Error(), "tables[0]")
}

func TestContainsAll(t *testing.T) {
	got := []string{"run range minimum not given, using 0", "values identical to previous version table=/a"}

	assert.True(t, containsAll(got, nil))
	assert.True(t, containsAll(got, []string{"values identical"}))
	assert.True(t, containsAll(got, []string{"run range minimum", "values identical"}))
	assert.False(t, containsAll(got, []string{"run range maximum"}))
	assert.False(t, containsAll(nil, []string{"x"}))
}

func TestAssertionError(t *testing.T) {
	err := &AssertionError{Type: AssertLookup, Expected: "version 2", Actual: "version 1"}
	assert.Equal(t, "assertion failed: lookup: expected version 2, got version 1", err.Error())
}
