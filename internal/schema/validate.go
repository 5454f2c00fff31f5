package schema

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/ccdb/internal/model"
	"github.com/roach88/ccdb/internal/textfile"
)

// ValidateOptions tune document validation.
type ValidateOptions struct {
	// StrictCellTypes rejects cells that do not parse as their column's type.
	StrictCellTypes bool
}

// Validate checks a parsed document against a type table, in order:
// row consistency, then row width against the column count, then
// (optionally) cell types. It never touches storage.
func Validate(doc *textfile.Document, table model.TypeTable, opts ValidateOptions) error {
	if !doc.DataIsConsistent {
		details := map[string]string{
			"table": table.Path,
			"lines": doc.ProblemLines(),
		}
		if rows := doc.InconsistentRows(); len(rows) > 0 {
			details["rows"] = joinInts(rows)
		}
		msg := "number of columns in rows is inconsistent"
		if len(doc.Problems) > 0 {
			msg += ": " + doc.Problems[0].Reason
		}
		return &model.Error{Code: model.ErrCodeInconsistentColumns, Message: msg, Details: details}
	}

	if doc.IsEmpty() {
		return &model.Error{
			Code:    model.ErrCodeSchemaMismatch,
			Message: "document has no data rows",
			Details: map[string]string{"table": table.Path},
		}
	}
	if got, want := doc.ColumnCount(), len(table.Columns); got != want {
		return &model.Error{
			Code:    model.ErrCodeSchemaMismatch,
			Message: fmt.Sprintf("rows have %d columns, type table has %d", got, want),
			Details: map[string]string{
				"table":   table.Path,
				"columns": strings.Join(table.ColumnNames(), ","),
			},
		}
	}

	if opts.StrictCellTypes {
		if err := checkCellTypes(doc, table); err != nil {
			return err
		}
	}
	return nil
}

// NameMismatch lists name-value names that are not table columns, and table
// columns the document did not name. Both are empty for columnar documents.
func NameMismatch(doc *textfile.Document, table model.TypeTable) (unknown, missing []string) {
	if len(doc.ColumnNames) == 0 {
		return nil, nil
	}
	declared := make(map[string]bool, len(table.Columns))
	for _, c := range table.Columns {
		declared[c.Name] = true
	}
	named := make(map[string]bool, len(doc.ColumnNames))
	for _, n := range doc.ColumnNames {
		named[n] = true
		if !declared[n] {
			unknown = append(unknown, n)
		}
	}
	for _, c := range table.Columns {
		if !named[c.Name] {
			missing = append(missing, c.Name)
		}
	}
	return unknown, missing
}

// AlignNames returns a copy of a name-value document with its cells moved
// into table column order. It applies only when the names are exactly the
// table's columns in another order; otherwise doc is returned as is and
// the second result is false.
func AlignNames(doc *textfile.Document, table model.TypeTable) (*textfile.Document, bool) {
	if len(doc.ColumnNames) != len(table.Columns) || len(doc.Rows) != 1 || len(doc.Rows[0]) != len(doc.ColumnNames) {
		return doc, false
	}
	at := make(map[string]int, len(doc.ColumnNames))
	for i, n := range doc.ColumnNames {
		at[n] = i
	}

	row := make([]string, len(table.Columns))
	names := make([]string, len(table.Columns))
	moved := false
	for j, c := range table.Columns {
		i, ok := at[c.Name]
		if !ok {
			return doc, false
		}
		row[j] = doc.Rows[0][i]
		names[j] = c.Name
		if i != j {
			moved = true
		}
	}
	if !moved {
		return doc, false
	}

	aligned := *doc
	aligned.Rows = [][]string{row}
	aligned.ColumnNames = names
	return &aligned, true
}

func checkCellTypes(doc *textfile.Document, table model.TypeTable) error {
	for i, row := range doc.Rows {
		for j, cell := range row {
			col := table.Columns[j]
			if col.Type.Accepts(cell) {
				continue
			}
			line := 0
			if i < len(doc.RowLines) {
				line = doc.RowLines[i]
			}
			return &model.Error{
				Code:    model.ErrCodeCellType,
				Message: fmt.Sprintf("cell %q is not a valid %s", cell, col.Type),
				Details: map[string]string{
					"table":  table.Path,
					"column": col.Name,
					"line":   strconv.Itoa(line),
				},
			}
		}
	}
	return nil
}

func joinInts(v []int) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}
