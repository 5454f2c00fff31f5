package harness

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/ccdb/internal/textfile"
)

// Scenario is one ingestion scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Tables are created before any step runs.
	Tables []TableDef `yaml:"tables"`

	// Variations are created (with their parents) before any step runs.
	Variations []VariationDef `yaml:"variations,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final database.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// TableDef declares a type table. Columns are "name" or "name:type".
type TableDef struct {
	Path    string   `yaml:"path"`
	Columns []string `yaml:"columns"`
	Comment string   `yaml:"comment,omitempty"`
}

// VariationDef declares a variation and optionally its parent.
type VariationDef struct {
	Name   string `yaml:"name"`
	Parent string `yaml:"parent,omitempty"`
}

// Step is one operation. Exactly one of Add, Get and Mkvar is set.
type Step struct {
	Add    *AddStep      `yaml:"add,omitempty"`
	Get    *GetStep      `yaml:"get,omitempty"`
	Mkvar  *VariationDef `yaml:"mkvar,omitempty"`
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// AddStep ingests text into a table.
type AddStep struct {
	Table     string `yaml:"table"`
	Runs      string `yaml:"runs,omitempty"` // default: all runs
	Variation string `yaml:"variation,omitempty"`
	Format    string `yaml:"format,omitempty"` // see textfile.ParseFormat
	CComments bool   `yaml:"c_comments,omitempty"`
	Comment   string `yaml:"comment,omitempty"`

	// NoComments keeps file comment lines out of the stored comment.
	NoComments bool   `yaml:"no_comments,omitempty"`
	Contents   string `yaml:"contents"`
}

// GetStep resolves a "/path:run:variation:time" request.
type GetStep struct {
	Request string `yaml:"request"`
}

// ExpectClause is a subset match on a step's outcome.
type ExpectClause struct {
	// Error is the expected error code; empty means success.
	Error string `yaml:"error,omitempty"`

	Version    int64      `yaml:"version,omitempty"`
	Variation  string     `yaml:"variation,omitempty"`
	Runs       string     `yaml:"runs,omitempty"`
	Values     [][]string `yaml:"values,omitempty"`
	Comment    *string    `yaml:"comment,omitempty"`
	Advisories []string   `yaml:"advisories,omitempty"`
	Parent     string     `yaml:"parent,omitempty"`
}

// Assertion validates the final database.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	Table     string `yaml:"table"`
	Variation string `yaml:"variation,omitempty"`

	// Count is used by version_count.
	Count int `yaml:"count,omitempty"`

	// Run, Version and Error are used by lookup.
	Run     int64  `yaml:"run,omitempty"`
	Version int64  `yaml:"version,omitempty"`
	Error   string `yaml:"error,omitempty"`
}

// Assertion type constants.
const (
	AssertVersionCount = "version_count"
	AssertLookup       = "lookup"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps must have at least one step")
	}
	for i, t := range s.Tables {
		if t.Path == "" {
			return fmt.Errorf("tables[%d]: path is required", i)
		}
		if len(t.Columns) == 0 {
			return fmt.Errorf("tables[%d]: columns are required", i)
		}
	}
	for i, v := range s.Variations {
		if v.Name == "" {
			return fmt.Errorf("variations[%d]: name is required", i)
		}
	}
	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, step Step) error {
	set := 0
	for _, ok := range []bool{step.Add != nil, step.Get != nil, step.Mkvar != nil} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("steps[%d]: exactly one of add, get, mkvar is required", index)
	}
	switch {
	case step.Add != nil:
		if step.Add.Table == "" {
			return fmt.Errorf("steps[%d]: add.table is required", index)
		}
		if _, err := textfile.ParseFormat(step.Add.Format); err != nil {
			return fmt.Errorf("steps[%d]: %w", index, err)
		}
	case step.Get != nil:
		if step.Get.Request == "" {
			return fmt.Errorf("steps[%d]: get.request is required", index)
		}
	case step.Mkvar != nil:
		if step.Mkvar.Name == "" {
			return fmt.Errorf("steps[%d]: mkvar.name is required", index)
		}
	}
	return nil
}

func validateAssertion(index int, a Assertion) error {
	if a.Table == "" {
		return fmt.Errorf("assertions[%d]: table is required", index)
	}
	switch a.Type {
	case AssertVersionCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for version_count", index)
		}
	case AssertLookup:
		if a.Version == 0 && a.Error == "" {
			return fmt.Errorf("assertions[%d]: lookup needs version or error", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
