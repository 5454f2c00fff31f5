package textfile

import "strconv"

// Document is the parsed, format-agnostic result of an ingest.
type Document struct {
	// Format is the layout the document was parsed from.
	Format Format `json:"format"`

	// Rows holds the data cells. Every row of a consistent document has
	// the same number of cells as the first row.
	Rows [][]string `json:"rows"`

	// RowLines holds the 1-based source line of each row.
	RowLines []int `json:"row_lines"`

	// ColumnNames holds the encountered names (NameValue only).
	ColumnNames []string `json:"column_names,omitempty"`

	// CommentLines holds comment lines verbatim, after "//" normalization.
	CommentLines []string `json:"comment_lines"`

	// Metas holds "key = value" annotations.
	Metas map[string]string `json:"metas"`

	// DataIsConsistent is false when any Problem was recorded.
	DataIsConsistent bool `json:"data_is_consistent"`

	// Problems lists the lines that broke consistency.
	Problems []Problem `json:"problems,omitempty"`
}

// Problem describes one line that makes a document inconsistent.
type Problem struct {
	Line   int    `json:"line"`
	Row    int    `json:"row"` // 0-based row index, -1 when the line produced no row
	Reason string `json:"reason"`
}

// ColumnCount returns the width of the first row, or 0 for an empty document.
func (d *Document) ColumnCount() int {
	if len(d.Rows) == 0 {
		return 0
	}
	return len(d.Rows[0])
}

// IsEmpty reports whether the document has no data rows.
func (d *Document) IsEmpty() bool {
	return len(d.Rows) == 0
}

// InconsistentRows returns the indices of rows whose width differs from
// the first row.
func (d *Document) InconsistentRows() []int {
	var out []int
	for _, p := range d.Problems {
		if p.Row >= 0 {
			out = append(out, p.Row)
		}
	}
	return out
}

// ProblemLines renders the problem line numbers for error details.
func (d *Document) ProblemLines() string {
	var b []byte
	for i, p := range d.Problems {
		if i > 0 {
			b = append(b, ',')
		}
		b = strconv.AppendInt(b, int64(p.Line), 10)
	}
	return string(b)
}
