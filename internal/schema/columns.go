package schema

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/ccdb/internal/model"
)

var columnNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// TableFromColumns builds a type table from "name" or "name:type" specs.
// Columns without a type are doubles.
func TableFromColumns(path, comment string, specs []string) (*model.TypeTable, error) {
	p, err := model.NormalizePath(path)
	if err != nil {
		return nil, &CompileError{Table: path, Field: "path", Message: err.Error()}
	}
	if len(specs) == 0 {
		return nil, &CompileError{Table: p, Field: "columns", Message: "at least one column is required"}
	}

	table := &model.TypeTable{Path: p, Comment: comment}
	seen := make(map[string]bool, len(specs))
	for i, spec := range specs {
		field := fmt.Sprintf("columns[%d]", i)
		name, typ, hasType := strings.Cut(spec, ":")
		name = model.NormalizeName(name)
		if !columnNameRe.MatchString(name) {
			return nil, &CompileError{Table: p, Field: field, Message: fmt.Sprintf("invalid column name %q", name)}
		}
		if seen[name] {
			return nil, &CompileError{Table: p, Field: field, Message: fmt.Sprintf("duplicate column name %q", name)}
		}
		seen[name] = true

		ct := model.CellDouble
		if hasType {
			if ct, err = model.ParseCellType(typ); err != nil {
				return nil, &CompileError{Table: p, Field: field + ".type", Message: err.Error()}
			}
		}
		table.Columns = append(table.Columns, model.Column{Name: name, Type: ct})
	}
	return table, nil
}
