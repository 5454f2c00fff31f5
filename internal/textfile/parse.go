package textfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"github.com/roach88/ccdb/internal/model"
)

// maxLineSize bounds a single source line; wide calibration rows can be long.
const maxLineSize = 16 * 1024 * 1024

// ReadFile opens path and parses it. Failing to open or read the file
// yields a SOURCE_UNREADABLE error and no document.
func ReadFile(path string, format Format, opts Options) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, model.NewSourceUnreadableError(path, err)
	}
	defer f.Close()

	if opts.Source == "" {
		opts.Source = path
	}
	return Parse(f, format, opts)
}

// ParseString parses in-memory text.
func ParseString(text string, format Format, opts Options) (*Document, error) {
	return Parse(strings.NewReader(text), format, opts)
}

// Parse reads r to the end and builds a Document in the requested layout.
// A read failure yields a SOURCE_UNREADABLE error and no document.
func Parse(r io.Reader, format Format, opts Options) (*Document, error) {
	var b builder
	switch format {
	case Columnar:
		b = &columnarBuilder{}
	case NameValue:
		b = &nameValueBuilder{seen: make(map[string]int)}
	default:
		return nil, fmt.Errorf("parse: unsupported format %v", format)
	}

	doc := &Document{
		Format:       format,
		Rows:         [][]string{},
		RowLines:     []int{},
		CommentLines: []string{},
		Metas:        map[string]string{},
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		if opts.CComments && strings.HasPrefix(text, "//") {
			text = "#" + text[2:]
		}
		if strings.HasPrefix(text, "#") {
			doc.CommentLines = append(doc.CommentLines, text)
			continue
		}
		if key, value, ok := parseMeta(text); ok {
			doc.Metas[key] = value
			continue
		}

		cells, inline := tokenize(text, opts.CComments)
		if inline != "" {
			doc.CommentLines = append(doc.CommentLines, inline)
		}
		if len(cells) == 0 {
			continue
		}
		b.addLine(doc, lineNo, cells)
	}
	if err := scanner.Err(); err != nil {
		source := opts.Source
		if source == "" {
			source = "<input>"
		}
		return nil, model.NewSourceUnreadableError(source, err)
	}

	b.finish(doc)
	doc.DataIsConsistent = len(doc.Problems) == 0
	return doc, nil
}

// builder turns tokenized data lines into rows for one layout.
type builder interface {
	addLine(doc *Document, line int, cells []string)
	finish(doc *Document)
}

type columnarBuilder struct{}

func (columnarBuilder) addLine(doc *Document, line int, cells []string) {
	doc.Rows = append(doc.Rows, cells)
	doc.RowLines = append(doc.RowLines, line)
}

func (columnarBuilder) finish(doc *Document) {
	if len(doc.Rows) == 0 {
		return
	}
	want := len(doc.Rows[0])
	for i, row := range doc.Rows[1:] {
		if len(row) != want {
			doc.Problems = append(doc.Problems, Problem{
				Line:   doc.RowLines[i+1],
				Row:    i + 1,
				Reason: fmt.Sprintf("row has %d cells, first row has %d", len(row), want),
			})
		}
	}
}

type nameValueBuilder struct {
	firstLine int
	values    []string
	seen      map[string]int
}

func (b *nameValueBuilder) addLine(doc *Document, line int, cells []string) {
	if len(cells) != 2 {
		doc.Problems = append(doc.Problems, Problem{
			Line:   line,
			Row:    -1,
			Reason: fmt.Sprintf("name-value line has %d tokens, want 2", len(cells)),
		})
		return
	}
	name := model.NormalizeName(cells[0])
	if prev, dup := b.seen[name]; dup {
		doc.Problems = append(doc.Problems, Problem{
			Line:   line,
			Row:    -1,
			Reason: fmt.Sprintf("name %q already given on line %d", name, prev),
		})
		return
	}
	if b.firstLine == 0 {
		b.firstLine = line
	}
	b.seen[name] = line
	doc.ColumnNames = append(doc.ColumnNames, name)
	b.values = append(b.values, cells[1])
}

func (b *nameValueBuilder) finish(doc *Document) {
	if len(b.values) == 0 {
		return
	}
	doc.Rows = append(doc.Rows, b.values)
	doc.RowLines = append(doc.RowLines, b.firstLine)
}

// parseMeta recognizes "key = value" where key is a single bare token.
// Without whitespace on both sides of '=' the value must be one token, so
// a data line such as "a=1 b c" stays data.
func parseMeta(text string) (key, value string, ok bool) {
	before, after, found := strings.Cut(text, "=")
	if !found {
		return "", "", false
	}
	key = strings.TrimSpace(before)
	if key == "" || strings.HasPrefix(key, `"`) || strings.IndexFunc(key, unicode.IsSpace) >= 0 {
		return "", "", false
	}
	value = strings.TrimSpace(after)
	spaced := key != before && value != after
	if !spaced && strings.IndexFunc(value, unicode.IsSpace) >= 0 {
		return "", "", false
	}
	return key, value, true
}

// tokenize splits a data line on whitespace. Double quotes group a cell
// that may contain spaces or '#'. An unquoted '#' (or "//" when
// cComments is set) at the start of a token begins an inline comment,
// returned normalized to start with '#'.
func tokenize(text string, cComments bool) (cells []string, inline string) {
	runes := []rune(text)
	i := 0
	for i < len(runes) {
		for i < len(runes) && unicode.IsSpace(runes[i]) {
			i++
		}
		if i >= len(runes) {
			break
		}

		switch {
		case runes[i] == '#':
			return cells, strings.TrimSpace(string(runes[i:]))
		case cComments && runes[i] == '/' && i+1 < len(runes) && runes[i+1] == '/':
			return cells, "#" + strings.TrimRightFunc(string(runes[i+2:]), unicode.IsSpace)
		case runes[i] == '"':
			j := i + 1
			for j < len(runes) && runes[j] != '"' {
				j++
			}
			cells = append(cells, string(runes[i+1:j]))
			i = j + 1
		default:
			j := i
			for j < len(runes) && !unicode.IsSpace(runes[j]) {
				j++
			}
			cells = append(cells, string(runes[i:j]))
			i = j
		}
	}
	return cells, ""
}
