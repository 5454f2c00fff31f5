package engine

import (
	"context"
	"fmt"

	"github.com/roach88/ccdb/internal/model"
	"github.com/roach88/ccdb/internal/textfile"
)

// IngestRequest is the caller-facing form of an assignment: raw text plus
// the flags that say how to read it.
type IngestRequest struct {
	TablePath    string
	RunRangeText string
	Variation    string

	// Contents is the text to ingest. When empty, File is read instead.
	Contents string
	File     string

	Format    textfile.Format
	CComments bool

	// Comment is the operator comment. File comment lines are appended
	// unless SkipFileComments is set.
	Comment          string
	SkipFileComments bool
}

// Ingest parses the request's text and creates an assignment from it.
// Advisories (defaulted run bounds, names that do not match the table,
// values identical to the previous version) are returned alongside a
// successful result and also logged as warnings.
func (e *Engine) Ingest(ctx context.Context, req IngestRequest) (*model.Assignment, []string, error) {
	doc, err := e.parse(req)
	if err != nil {
		return nil, nil, err
	}

	runRange, bounds, rangeErr := model.ParseRunRange(req.RunRangeText)

	a, advisories, err := e.create(ctx, createRequest{
		doc:           doc,
		tablePath:     req.TablePath,
		runRange:      runRange,
		rangeErr:      rangeErr,
		variationName: req.Variation,
		comment:       req.Comment,
		fileComments:  !req.SkipFileComments,
	})
	if err != nil {
		return nil, advisories, err
	}

	var rangeAdvisories []string
	if !bounds.MinExplicit {
		msg := "run range minimum not given, using 0"
		e.logger.Warn(msg, "table", a.Table.Path)
		rangeAdvisories = append(rangeAdvisories, msg)
	}
	if !bounds.MaxExplicit {
		msg := fmt.Sprintf("run range maximum not given, using %d", model.InfiniteRun)
		e.logger.Warn(msg, "table", a.Table.Path)
		rangeAdvisories = append(rangeAdvisories, msg)
	}
	return a, append(rangeAdvisories, advisories...), nil
}

func (e *Engine) parse(req IngestRequest) (*textfile.Document, error) {
	opts := textfile.Options{CComments: req.CComments}
	if req.Contents == "" && req.File != "" {
		return textfile.ReadFile(req.File, req.Format, opts)
	}
	opts.Source = "<contents>"
	return textfile.ParseString(req.Contents, req.Format, opts)
}
