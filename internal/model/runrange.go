package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// InfiniteRun is the sentinel upper bound of an open-ended run range.
// It matches the largest run number the database can store.
const InfiniteRun int64 = math.MaxInt32

// RunRange is a closed interval of run numbers.
// A single run is represented as Min == Max.
type RunRange struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

// RangeBounds reports which bounds of a parsed range were given explicitly.
// A defaulted bound is not an error; callers surface it as an advisory.
type RangeBounds struct {
	MinExplicit bool
	MaxExplicit bool
}

// AllRuns covers every run number.
var AllRuns = RunRange{Min: 0, Max: InfiniteRun}

// NewRunRange validates min and max and returns the range.
func NewRunRange(min, max int64) (RunRange, error) {
	if min < 0 {
		return RunRange{}, NewMalformedRangeError(fmt.Sprintf("%d-%d", min, max), "min run must be >= 0")
	}
	if max < min {
		return RunRange{}, NewMalformedRangeError(fmt.Sprintf("%d-%d", min, max), "max run must be >= min run")
	}
	if max > InfiniteRun {
		return RunRange{}, NewMalformedRangeError(fmt.Sprintf("%d-%d", min, max), "max run exceeds the infinite run sentinel")
	}
	return RunRange{Min: min, Max: max}, nil
}

// ParseRunRange parses "min-max", "min-" or "-max".
//
// "min-" leaves Max at InfiniteRun and "-max" leaves Min at 0; the returned
// RangeBounds says which bound was defaulted. The text must contain a hyphen,
// at least one bound, and every bound present must be a non-negative integer.
func ParseRunRange(text string) (RunRange, RangeBounds, error) {
	trimmed := strings.TrimSpace(text)
	minText, maxText, found := strings.Cut(trimmed, "-")
	if !found {
		return RunRange{}, RangeBounds{}, NewMalformedRangeError(text, "expected min-max, min- or -max")
	}

	minText = strings.TrimSpace(minText)
	maxText = strings.TrimSpace(maxText)
	if minText == "" && maxText == "" {
		return RunRange{}, RangeBounds{}, NewMalformedRangeError(text, "no run bound given")
	}

	var bounds RangeBounds
	rr := AllRuns

	if minText != "" {
		v, err := parseRun(minText)
		if err != nil {
			return RunRange{}, RangeBounds{}, NewMalformedRangeError(text, fmt.Sprintf("min run %q: %v", minText, err))
		}
		rr.Min = v
		bounds.MinExplicit = true
	}
	if maxText != "" {
		v, err := parseRun(maxText)
		if err != nil {
			return RunRange{}, RangeBounds{}, NewMalformedRangeError(text, fmt.Sprintf("max run %q: %v", maxText, err))
		}
		rr.Max = v
		bounds.MaxExplicit = true
	}

	if rr.Max < rr.Min {
		return RunRange{}, RangeBounds{}, NewMalformedRangeError(text, "max run must be >= min run")
	}
	return rr, bounds, nil
}

func parseRun(s string) (int64, error) {
	// ParseUint rejects signs, so "-5" and "+5" never sneak through.
	v, err := strconv.ParseUint(s, 10, 63)
	if err != nil {
		return 0, fmt.Errorf("not a non-negative integer")
	}
	if int64(v) > InfiniteRun {
		return 0, fmt.Errorf("exceeds %d", InfiniteRun)
	}
	return int64(v), nil
}

// Contains reports whether run lies inside the range.
// An InfiniteRun upper bound accepts any run >= Min.
func (r RunRange) Contains(run int64) bool {
	if run < r.Min {
		return false
	}
	return r.IsOpenEnded() || run <= r.Max
}

// IsOpenEnded reports whether the range has no upper bound.
func (r RunRange) IsOpenEnded() bool {
	return r.Max == InfiniteRun
}

// Validate checks the range invariant.
func (r RunRange) Validate() error {
	_, err := NewRunRange(r.Min, r.Max)
	return err
}

// String renders the range in the form ParseRunRange accepts.
func (r RunRange) String() string {
	if r.IsOpenEnded() {
		return fmt.Sprintf("%d-", r.Min)
	}
	return fmt.Sprintf("%d-%d", r.Min, r.Max)
}
