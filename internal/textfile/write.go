package textfile

import (
	"bufio"
	"io"
	"strings"
	"unicode"
)

// Write renders rows in the columnar layout, preceded by comment lines.
// Comment lines are prefixed with "#" when they do not already start with it.
// Cells that are empty or contain whitespace, '#' or '"' are quoted, so
// Parse(Write(rows)) returns the same rows as long as no cell contains '"'.
func Write(w io.Writer, rows [][]string, comments []string) error {
	bw := bufio.NewWriter(w)
	for _, c := range comments {
		for _, line := range strings.Split(c, "\n") {
			line = strings.TrimRightFunc(line, unicode.IsSpace)
			if !strings.HasPrefix(line, "#") {
				line = "# " + line
			}
			bw.WriteString(line)
			bw.WriteByte('\n')
		}
	}
	for _, row := range rows {
		for i, cell := range row {
			if i > 0 {
				bw.WriteByte(' ')
			}
			bw.WriteString(quoteCell(cell))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

func quoteCell(cell string) string {
	if cell == "" || strings.ContainsAny(cell, "#\"=") || strings.IndexFunc(cell, unicode.IsSpace) >= 0 {
		return `"` + strings.ReplaceAll(cell, `"`, "'") + `"`
	}
	return cell
}
