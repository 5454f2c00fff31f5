package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/roach88/ccdb/internal/model"
)

// AssignmentView is the JSON shape of one assignment.
type AssignmentView struct {
	ID        string              `json:"id"`
	Table     string              `json:"table"`
	Variation string              `json:"variation"`
	RunRange  model.RunRange      `json:"run_range"`
	Version   int64               `json:"version"`
	Columns   []string            `json:"columns"`
	Rows      []map[string]string `json:"rows,omitempty"`
	DataHash  string              `json:"data_hash"`
	Comment   string              `json:"comment,omitempty"`
	Created   string              `json:"created"`
}

const timeLayout = "2006-01-02 15:04:05"

func viewOf(a *model.Assignment, withRows bool) AssignmentView {
	v := AssignmentView{
		ID:        a.ID,
		Table:     a.Table.Path,
		Variation: a.Variation.Name,
		RunRange:  a.RunRange,
		Version:   a.Version,
		Columns:   a.Table.ColumnNames(),
		DataHash:  a.DataHash,
		Comment:   a.Comment,
		Created:   a.Created.UTC().Format(timeLayout),
	}
	if withRows {
		v.Rows, _ = a.Rows()
	}
	return v
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

// renderAssignment prints a header line, the comment as '#' lines and the
// values as a table with numeric columns right-aligned.
func renderAssignment(w io.Writer, a *model.Assignment) {
	fmt.Fprintf(w, "%s version %d, runs %s, variation %s, created %s\n",
		a.Table.Path, a.Version, a.RunRange, a.Variation.Name, a.Created.UTC().Format(timeLayout))
	if a.Comment != "" {
		for _, line := range strings.Split(a.Comment, "\n") {
			if !strings.HasPrefix(line, "#") {
				line = "# " + line
			}
			fmt.Fprintln(w, line)
		}
	}

	t := newTable(w)
	header := make(table.Row, len(a.Table.Columns))
	var configs []table.ColumnConfig
	for i, c := range a.Table.Columns {
		header[i] = c.Name
		if c.Type.IsNumeric() {
			configs = append(configs, table.ColumnConfig{Number: i + 1, Align: text.AlignRight})
		}
	}
	t.AppendHeader(header)
	t.SetColumnConfigs(configs)
	for _, row := range a.Values {
		r := make(table.Row, len(row))
		for i, cell := range row {
			r[i] = cell
		}
		t.AppendRow(r)
	}
	t.Render()
}

func renderVersions(w io.Writer, list []model.Assignment) {
	if len(list) == 0 {
		fmt.Fprintln(w, "(no assignments)")
		return
	}
	t := newTable(w)
	t.AppendHeader(table.Row{"version", "runs", "created", "hash", "comment"})
	for _, a := range list {
		hash := a.DataHash
		if len(hash) > 12 {
			hash = hash[:12]
		}
		comment, _, _ := strings.Cut(a.Comment, "\n")
		t.AppendRow(table.Row{a.Version, a.RunRange.String(), a.Created.UTC().Format(timeLayout), hash, comment})
	}
	t.Render()
}

func renderTables(w io.Writer, tables []model.TypeTable) {
	if len(tables) == 0 {
		fmt.Fprintln(w, "(no type tables)")
		return
	}
	t := newTable(w)
	t.AppendHeader(table.Row{"path", "columns", "comment"})
	for _, tt := range tables {
		cols := make([]string, len(tt.Columns))
		for i, c := range tt.Columns {
			cols[i] = fmt.Sprintf("%s:%s", c.Name, c.Type)
		}
		t.AppendRow(table.Row{tt.Path, strings.Join(cols, " "), tt.Comment})
	}
	t.Render()
}

func renderVariations(w io.Writer, vars []VariationView) {
	t := newTable(w)
	t.AppendHeader(table.Row{"name", "parent", "comment"})
	for _, v := range vars {
		t.AppendRow(table.Row{v.Name, v.Parent, v.Comment})
	}
	t.Render()
}
