package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CellType is the declared type of a type table column.
type CellType string

const (
	CellInt    CellType = "int"
	CellUint   CellType = "uint"
	CellLong   CellType = "long"
	CellUlong  CellType = "ulong"
	CellDouble CellType = "double"
	CellString CellType = "string"
	CellBool   CellType = "bool"
)

// CellTypes lists every valid cell type in declaration order.
var CellTypes = []CellType{CellInt, CellUint, CellLong, CellUlong, CellDouble, CellString, CellBool}

// ParseCellType validates a cell type name. An empty name means double.
func ParseCellType(s string) (CellType, error) {
	if s == "" {
		return CellDouble, nil
	}
	ct := CellType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range CellTypes {
		if ct == known {
			return ct, nil
		}
	}
	return "", fmt.Errorf("unknown cell type %q: must be one of %v", s, CellTypes)
}

// IsNumeric reports whether the column holds numbers rather than free text.
func (c CellType) IsNumeric() bool {
	return c != CellString
}

// Accepts reports whether text is a valid cell of this type.
func (c CellType) Accepts(text string) bool {
	var err error
	switch c {
	case CellInt:
		_, err = strconv.ParseInt(text, 10, 32)
	case CellUint:
		_, err = strconv.ParseUint(text, 10, 32)
	case CellLong:
		_, err = strconv.ParseInt(text, 10, 64)
	case CellUlong:
		_, err = strconv.ParseUint(text, 10, 64)
	case CellDouble:
		_, err = strconv.ParseFloat(text, 64)
	case CellBool:
		_, err = parseBool(text)
	case CellString:
		return true
	default:
		return false
	}
	return err == nil
}

func parseBool(text string) (bool, error) {
	switch strings.ToLower(text) {
	case "1", "true":
		return true, nil
	case "0", "false":
		return false, nil
	}
	return false, fmt.Errorf("invalid bool %q", text)
}

// Column is one column definition of a type table.
type Column struct {
	Name string   `json:"name"`
	Type CellType `json:"type"`
}

// TypeTable is a schema-fixed table definition that assignments conform to.
type TypeTable struct {
	ID      int64     `json:"id"`
	Path    string    `json:"path"` // absolute, e.g. /test/test_vars/test_table
	Comment string    `json:"comment,omitempty"`
	Columns []Column  `json:"columns"`
	Created time.Time `json:"created"`
}

// Name returns the last path element.
func (t TypeTable) Name() string {
	_, name := SplitPath(t.Path)
	return name
}

// ColumnNames returns the column names in declaration order.
func (t TypeTable) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// DefaultVariationName names the variation every database starts with.
const DefaultVariationName = "default"

// Variation is a named configuration context. ParentID is zero for a root.
type Variation struct {
	ID       int64     `json:"id"`
	Name     string    `json:"name"`
	ParentID int64     `json:"parent_id,omitempty"`
	Comment  string    `json:"comment,omitempty"`
	Created  time.Time `json:"created"`
}

// HasParent reports whether the variation inherits from another.
func (v Variation) HasParent() bool {
	return v.ParentID != 0
}

// Assignment is one committed, versioned set of constants for a type table,
// run range and variation. It is never mutated after commit.
type Assignment struct {
	ID        string     `json:"id"`
	Table     TypeTable  `json:"table"`
	Variation Variation  `json:"variation"`
	RunRange  RunRange   `json:"run_range"`
	Version   int64      `json:"version"`
	Values    [][]string `json:"values"`
	DataHash  string     `json:"data_hash"`
	Comment   string     `json:"comment,omitempty"`
	Created   time.Time  `json:"created"`
}

// Clock supplies creation timestamps.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }
