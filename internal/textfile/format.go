package textfile

import (
	"fmt"
	"strings"
)

// Format selects the ingest layout.
type Format int

const (
	// Columnar is the CCDB table layout: one row per line.
	Columnar Format = iota
	// NameValue is the two-column "name value" layout.
	NameValue
)

// String returns the format name used in flags and config.
func (f Format) String() string {
	switch f {
	case Columnar:
		return "columnar"
	case NameValue:
		return "name-value"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// ParseFormat parses a format name. An empty name means Columnar.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "columnar", "ccdb":
		return Columnar, nil
	case "name-value", "namevalue", "nv":
		return NameValue, nil
	}
	return 0, fmt.Errorf("unknown ingest format %q: must be columnar or name-value", s)
}

// Options tune line recognition.
type Options struct {
	// CComments treats lines starting with "//" as comments.
	CComments bool

	// Source names the input in errors (usually the file path).
	Source string
}
