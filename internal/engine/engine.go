package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/ccdb/internal/model"
	"github.com/roach88/ccdb/internal/schema"
	"github.com/roach88/ccdb/internal/store"
	"github.com/roach88/ccdb/internal/textfile"
	"github.com/roach88/ccdb/internal/variation"
)

// Engine writes new assignments.
type Engine struct {
	store           *store.Store
	clock           model.Clock
	ids             IDGenerator
	logger          *slog.Logger
	strictCellTypes bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock used for creation timestamps.
func WithClock(c model.Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithIDGenerator sets the assignment ID generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) {
		e.ids = g
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithStrictCellTypes rejects cells that do not parse as their column type.
func WithStrictCellTypes(strict bool) Option {
	return func(e *Engine) {
		e.strictCellTypes = strict
	}
}

// New creates an Engine over s.
func New(s *store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:  s,
		clock:  model.SystemClock{},
		ids:    UUIDv7Generator{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CreateAssignment validates doc against the type table at tablePath and
// commits it as the next version for (table, variation).
//
// Preconditions are checked in order, each with its own error code:
// the table exists (UNKNOWN_TYPE_TABLE), the rows are consistent
// (INCONSISTENT_COLUMNS), the row width matches the table
// (SCHEMA_MISMATCH), and the run range is well formed (MALFORMED_RANGE).
// The document's comment lines are appended to comment.
//
// A storage failure is returned as BACKEND wrapping the failing call's error.
// The call is never retried.
func (e *Engine) CreateAssignment(
	ctx context.Context,
	doc *textfile.Document,
	tablePath string,
	runRange model.RunRange,
	variationName string,
	comment string,
) (*model.Assignment, error) {
	a, _, err := e.create(ctx, createRequest{
		doc:           doc,
		tablePath:     tablePath,
		runRange:      runRange,
		variationName: variationName,
		comment:       comment,
		fileComments:  true,
	})
	return a, err
}

type createRequest struct {
	doc           *textfile.Document
	tablePath     string
	runRange      model.RunRange
	rangeErr      error // parse failure, reported at the run range step
	variationName string
	comment       string
	fileComments  bool
}

func (e *Engine) create(ctx context.Context, req createRequest) (*model.Assignment, []string, error) {
	var advisories []string
	advise := func(msg string, args ...any) {
		e.logger.Warn(msg, args...)
		advisories = append(advisories, formatAdvisory(msg, args...))
	}

	if req.doc == nil {
		return nil, nil, errors.New("create assignment: nil document")
	}

	table, err := lookupTable(ctx, e.store, req.tablePath)
	if err != nil {
		return nil, nil, err
	}
	e.logger.Debug("type table found", "table", table.Path, "columns", len(table.Columns))

	doc := req.doc
	if aligned, ok := schema.AlignNames(doc, table); ok {
		e.logger.Debug("named cells reordered to column order", "table", table.Path, "names", strings.Join(doc.ColumnNames, ","))
		doc = aligned
	}

	if err := schema.Validate(doc, table, schema.ValidateOptions{StrictCellTypes: e.strictCellTypes}); err != nil {
		return nil, nil, err
	}
	e.logger.Debug("document matches type table", "table", table.Path, "rows", len(doc.Rows))

	if req.rangeErr != nil {
		return nil, nil, req.rangeErr
	}
	if err := req.runRange.Validate(); err != nil {
		return nil, nil, err
	}
	e.logger.Debug("run range valid", "runs", req.runRange.String())

	unknown, missing := schema.NameMismatch(doc, table)
	if len(unknown) > 0 {
		advise("names not in type table", "table", table.Path, "names", strings.Join(unknown, ","))
	}
	if len(missing) > 0 {
		advise("type table columns not named", "table", table.Path, "columns", strings.Join(missing, ","))
	}

	values := make([][]string, len(doc.Rows))
	for i, row := range doc.Rows {
		values[i] = append([]string(nil), row...)
	}
	hash, err := model.ValuesHash(values)
	if err != nil {
		return nil, nil, fmt.Errorf("create assignment: %w", err)
	}

	var fileComments []string
	if req.fileComments {
		fileComments = doc.CommentLines
	}
	comment := joinComment(req.comment, fileComments)

	prev := e.previous(ctx, table, req.variationName)

	a, err := e.commit(ctx, table, req.variationName, req.runRange, values, hash, comment)
	if err != nil {
		e.logger.Error("assignment not created", "table", table.Path, "variation", req.variationName, "error", err)
		return nil, advisories, err
	}

	e.logger.Info("assignment created",
		"table", a.Table.Path,
		"variation", a.Variation.Name,
		"version", a.Version,
		"runs", a.RunRange.String(),
	)
	if prev != nil && prev.DataHash == a.DataHash {
		advise("values identical to previous version", "table", a.Table.Path, "variation", a.Variation.Name, "previous", prev.Version)
	}
	return a, advisories, nil
}

// commit runs the transactional part: variation, version, insert.
// Everything inside goes through the transaction.
func (e *Engine) commit(
	ctx context.Context,
	table model.TypeTable,
	variationName string,
	runRange model.RunRange,
	values [][]string,
	hash string,
	comment string,
) (*model.Assignment, error) {
	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return nil, e.backendError("begin transaction", err)
	}
	defer tx.Rollback()

	v, err := variation.NewResolver(tx, e.clock).Resolve(ctx, variationName)
	if err != nil {
		return nil, e.backendError("resolve variation", err)
	}

	version, err := tx.AllocateNextVersion(ctx, table.ID, v.ID)
	if err != nil {
		return nil, e.backendError("allocate version", err)
	}

	a := &model.Assignment{
		ID:        e.ids.Generate(),
		Table:     table,
		Variation: v,
		RunRange:  runRange,
		Version:   version,
		Values:    values,
		DataHash:  hash,
		Comment:   comment,
		Created:   e.clock.Now(),
	}
	if err := tx.InsertAssignment(ctx, a); err != nil {
		return nil, e.backendError("insert assignment", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, e.backendError("commit assignment", err)
	}
	return a, nil
}

// previous returns the newest assignment of (table, variation), or nil.
// Used only for advisories, so failures are logged and ignored.
func (e *Engine) previous(ctx context.Context, table model.TypeTable, variationName string) *model.Assignment {
	v, err := variation.NewResolver(e.store, e.clock).Lookup(ctx, variationName)
	if err != nil {
		return nil
	}
	found, err := e.store.QueryAssignments(ctx, store.AssignmentQuery{Table: table, Variation: v, Limit: 1})
	if err != nil {
		e.logger.Debug("previous version unavailable", "table", table.Path, "error", err)
		return nil
	}
	if len(found) == 0 {
		return nil
	}
	return &found[0]
}

// backendError wraps err as BACKEND. The store's last error stands in only
// when err is nil. Typed errors pass through unchanged.
func (e *Engine) backendError(op string, err error) error {
	var typed *model.Error
	if errors.As(err, &typed) {
		return err
	}
	if err == nil {
		err = e.store.LastError()
	}
	return model.NewBackendError(op, err)
}

// lookupTable normalizes path and loads its type table.
func lookupTable(ctx context.Context, s *store.Store, path string) (model.TypeTable, error) {
	normalized, err := model.NormalizePath(path)
	if err != nil {
		return model.TypeTable{}, err
	}
	table, err := s.TypeTableByPath(ctx, normalized)
	if errors.Is(err, model.ErrNotFound) {
		return model.TypeTable{}, model.NewUnknownTypeTableError(normalized)
	}
	if err != nil {
		return model.TypeTable{}, model.NewBackendError("load type table", err)
	}
	return table, nil
}

func formatAdvisory(msg string, args ...any) string {
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i+1 < len(args); i += 2 {
		fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
	}
	return b.String()
}
