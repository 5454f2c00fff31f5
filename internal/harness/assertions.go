package harness

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/roach88/ccdb/internal/model"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertion failed: %s: expected %s, got %s", e.Type, e.Expected, e.Actual)
}

// checkExpect compares a step outcome with its expect clause and returns
// one message per mismatch. A nil clause expects success.
func checkExpect(expect *ExpectClause, event TraceEvent, out stepOutcome) []string {
	if expect == nil {
		if out.err != nil {
			return []string{fmt.Sprintf("expected success, got %v", out.err)}
		}
		return nil
	}

	if expect.Error != "" {
		if event.Outcome != expect.Error {
			return []string{fmt.Sprintf("expected error %s, got %s", expect.Error, describe(event, out))}
		}
		return nil
	}
	if out.err != nil {
		return []string{fmt.Sprintf("expected success, got %v", out.err)}
	}

	var msgs []string
	mismatch := func(field string, want, got any) {
		msgs = append(msgs, fmt.Sprintf("%s: expected %v, got %v", field, want, got))
	}

	if out.variation != nil {
		if expect.Variation != "" && expect.Variation != out.variation.Name {
			mismatch("variation", expect.Variation, out.variation.Name)
		}
		if expect.Parent != "" && expect.Parent != out.parent {
			mismatch("parent", expect.Parent, out.parent)
		}
		return msgs
	}

	a := out.assignment
	if a == nil {
		return []string{"no assignment produced"}
	}
	if expect.Version != 0 && expect.Version != a.Version {
		mismatch("version", expect.Version, a.Version)
	}
	if expect.Variation != "" && expect.Variation != a.Variation.Name {
		mismatch("variation", expect.Variation, a.Variation.Name)
	}
	if expect.Runs != "" && expect.Runs != a.RunRange.String() {
		mismatch("runs", expect.Runs, a.RunRange.String())
	}
	if expect.Values != nil && !reflect.DeepEqual(expect.Values, a.Values) {
		mismatch("values", expect.Values, a.Values)
	}
	if expect.Comment != nil && *expect.Comment != a.Comment {
		mismatch("comment", fmt.Sprintf("%q", *expect.Comment), fmt.Sprintf("%q", a.Comment))
	}
	if expect.Advisories != nil && !containsAll(event.Advisories, expect.Advisories) {
		mismatch("advisories", expect.Advisories, event.Advisories)
	}
	return msgs
}

func describe(event TraceEvent, out stepOutcome) string {
	if out.err != nil {
		return out.err.Error()
	}
	if event.Version != 0 {
		return fmt.Sprintf("success (version %d)", event.Version)
	}
	return "success"
}

// containsAll reports whether every wanted advisory is a prefix of some
// produced advisory.
func containsAll(got, want []string) bool {
	for _, w := range want {
		found := false
		for _, g := range got {
			if strings.HasPrefix(g, w) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// evaluateAssertions checks all assertions and returns failure messages.
func (h *Harness) evaluateAssertions(ctx context.Context, assertions []Assertion) []string {
	var msgs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertVersionCount:
			err = h.assertVersionCount(ctx, a)
		case AssertLookup:
			err = h.assertLookup(ctx, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			msgs = append(msgs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return msgs
}

func (h *Harness) assertVersionCount(ctx context.Context, a Assertion) error {
	list, err := h.index.Versions(ctx, a.Table, a.Variation, nil)
	if err != nil {
		return err
	}
	if len(list) != a.Count {
		return &AssertionError{
			Type:     AssertVersionCount,
			Expected: fmt.Sprintf("%d version(s) of %s", a.Count, a.Table),
			Actual:   fmt.Sprintf("%d", len(list)),
		}
	}
	return nil
}

func (h *Harness) assertLookup(ctx context.Context, a Assertion) error {
	got, err := h.index.Lookup(ctx, a.Table, a.Run, a.Variation)
	if a.Error != "" {
		var me *model.Error
		if errors.As(err, &me) && string(me.Code) == a.Error {
			return nil
		}
		actual := "success"
		if err != nil {
			actual = err.Error()
		}
		return &AssertionError{Type: AssertLookup, Expected: "error " + a.Error, Actual: actual}
	}
	if err != nil {
		return &AssertionError{Type: AssertLookup, Expected: fmt.Sprintf("version %d", a.Version), Actual: err.Error()}
	}
	if got.Version != a.Version {
		return &AssertionError{
			Type:     AssertLookup,
			Expected: fmt.Sprintf("version %d at run %d", a.Version, a.Run),
			Actual:   fmt.Sprintf("version %d", got.Version),
		}
	}
	return nil
}
