package schema

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/ccdb/internal/model"
)

// tableSchema constrains a single table definition.
const tableSchema = `
#CellType: "int" | "uint" | "long" | "ulong" | "double" | "string" | "bool"

#Column: {
	name: string & =~"^[A-Za-z_][A-Za-z0-9_]*$"
	type: *"double" | #CellType
}

#Table: {
	comment: *"" | string
	columns: [#Column, ...#Column]
}
`

// CompileError is a definition error with its CUE source position.
type CompileError struct {
	Table   string
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Table, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Table, e.Field, e.Message)
}

type tableDef struct {
	Comment string      `json:"comment"`
	Columns []columnDef `json:"columns"`
}

type columnDef struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Compiler turns CUE values into type tables. A Compiler is not safe for
// concurrent use; CUE values from one context must not be mixed with another.
type Compiler struct {
	ctx   *cue.Context
	table cue.Value
}

// NewCompiler creates a compiler with its own CUE context.
func NewCompiler() *Compiler {
	ctx := cuecontext.New()
	def := ctx.CompileString(tableSchema, cue.Filename("ccdb-schema.cue"))
	return &Compiler{
		ctx:   ctx,
		table: def.LookupPath(cue.ParsePath("#Table")),
	}
}

// CompileSource compiles CUE text and returns every table under "table".
func (c *Compiler) CompileSource(filename string, src []byte) ([]model.TypeTable, error) {
	v := c.ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError("", err)
	}

	tablesVal := v.LookupPath(cue.ParsePath("table"))
	if !tablesVal.Exists() {
		return nil, nil
	}

	iter, err := tablesVal.Fields()
	if err != nil {
		return nil, formatCUEError("", err)
	}

	var tables []model.TypeTable
	for iter.Next() {
		table, err := c.CompileTable(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		tables = append(tables, *table)
	}
	return tables, nil
}

// CompileTable compiles one table definition labelled with its path.
func (c *Compiler) CompileTable(label string, v cue.Value) (*model.TypeTable, error) {
	path, err := model.NormalizePath(label)
	if err != nil {
		return nil, &CompileError{Table: label, Field: "path", Message: err.Error(), Pos: v.Pos()}
	}

	if err := checkFields(path, v, "", "comment", "columns"); err != nil {
		return nil, err
	}
	if cols := v.LookupPath(cue.ParsePath("columns")); cols.Exists() {
		if list, err := cols.List(); err == nil {
			for i := 0; list.Next(); i++ {
				if err := checkFields(path, list.Value(), fmt.Sprintf("columns[%d].", i), "name", "type"); err != nil {
					return nil, err
				}
			}
		}
	}

	unified := c.table.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(path, err)
	}

	var def tableDef
	if err := unified.Decode(&def); err != nil {
		return nil, formatCUEError(path, err)
	}

	table := &model.TypeTable{
		Path:    path,
		Comment: def.Comment,
		Columns: make([]model.Column, 0, len(def.Columns)),
	}
	seen := make(map[string]bool, len(def.Columns))
	for i, col := range def.Columns {
		name := model.NormalizeName(col.Name)
		if seen[name] {
			return nil, &CompileError{
				Table:   path,
				Field:   fmt.Sprintf("columns[%d]", i),
				Message: fmt.Sprintf("duplicate column name %q", name),
				Pos:     v.LookupPath(cue.MakePath(cue.Str("columns"), cue.Index(i))).Pos(),
			}
		}
		seen[name] = true

		ct, err := model.ParseCellType(col.Type)
		if err != nil {
			return nil, &CompileError{Table: path, Field: fmt.Sprintf("columns[%d].type", i), Message: err.Error(), Pos: v.Pos()}
		}
		table.Columns = append(table.Columns, model.Column{Name: name, Type: ct})
	}
	return table, nil
}

// checkFields rejects regular fields outside the allowed set.
func checkFields(table string, v cue.Value, prefix string, allowed ...string) error {
	iter, err := v.Fields()
	if err != nil {
		return nil
	}
	for iter.Next() {
		label := iter.Selector().String()
		known := false
		for _, a := range allowed {
			if label == a {
				known = true
				break
			}
		}
		if !known {
			return &CompileError{
				Table:   table,
				Field:   prefix + label,
				Message: "field not allowed",
				Pos:     iter.Value().Pos(),
			}
		}
	}
	return nil
}

// formatCUEError keeps the first CUE error and its position.
func formatCUEError(table string, err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	ce := &CompileError{Table: table, Field: "cue", Message: first.Error()}
	if positions := errors.Positions(first); len(positions) > 0 {
		ce.Pos = positions[0]
	}
	return ce
}
