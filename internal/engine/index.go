package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/ccdb/internal/model"
	"github.com/roach88/ccdb/internal/store"
	"github.com/roach88/ccdb/internal/variation"
)

// Index answers "which constants applied" queries. Reads never create
// variations and take no locks of their own.
type Index struct {
	store  *store.Store
	logger *slog.Logger
}

// NewIndex creates an Index over s. A nil logger uses slog.Default().
func NewIndex(s *store.Store, logger *slog.Logger) *Index {
	if logger == nil {
		logger = slog.Default()
	}
	return &Index{store: s, logger: logger}
}

// Lookup returns the highest-version assignment of the table whose run
// range contains run, searching variationName and then its ancestors.
// Fails with NO_APPLICABLE_ASSIGNMENT when the whole chain has none.
func (ix *Index) Lookup(ctx context.Context, tablePath string, run int64, variationName string) (*model.Assignment, error) {
	return ix.LookupAt(ctx, tablePath, run, variationName, time.Time{})
}

// LookupAt is Lookup ignoring assignments created after before.
// A zero before means no time bound.
func (ix *Index) LookupAt(ctx context.Context, tablePath string, run int64, variationName string, before time.Time) (*model.Assignment, error) {
	table, err := lookupTable(ctx, ix.store, tablePath)
	if err != nil {
		return nil, err
	}

	resolver := variation.NewResolver(ix.store, nil)
	v, err := resolver.Lookup(ctx, variationName)
	if errors.Is(err, model.ErrNotFound) {
		return nil, model.NewNoApplicableError(table.Path, run, canonicalVariation(variationName))
	}
	if err != nil {
		return nil, model.NewBackendError("load variation", err)
	}

	chain, err := resolver.Chain(ctx, v)
	if err != nil {
		if model.HasCode(err, model.ErrCodeCyclicVariation) {
			return nil, err
		}
		return nil, model.NewBackendError("load variation chain", err)
	}

	for _, candidate := range chain {
		found, err := ix.store.QueryAssignments(ctx, store.AssignmentQuery{
			Table:     table,
			Variation: candidate,
			Run:       run,
			HasRun:    true,
			Before:    before,
			Limit:     1,
		})
		if err != nil {
			return nil, model.NewBackendError("query assignments", err)
		}
		if len(found) > 0 {
			if candidate.ID != v.ID {
				ix.logger.Debug("assignment inherited", "table", table.Path, "variation", v.Name, "from", candidate.Name)
			}
			return &found[0], nil
		}
	}
	return nil, model.NewNoApplicableError(table.Path, run, v.Name)
}

// RequestDefaults fill the parts of a Request that were left out.
type RequestDefaults struct {
	Run       int64
	Variation string
}

// LookupRequest resolves a parsed "/path:run:variation:time" request.
func (ix *Index) LookupRequest(ctx context.Context, req model.Request, defaults RequestDefaults) (*model.Assignment, error) {
	q := RequestQuery(req, defaults)
	return ix.LookupAt(ctx, q.TablePath, q.Run, q.Variation, q.Before)
}

// RequestQuery turns a parsed request into a Query, filling omitted parts
// from defaults.
func RequestQuery(req model.Request, defaults RequestDefaults) Query {
	q := Query{TablePath: req.Path, Run: defaults.Run, Variation: defaults.Variation}
	if req.HasRun {
		q.Run = req.Run
	}
	if req.HasVariation {
		q.Variation = req.Variation
	}
	if req.HasTime {
		q.Before = req.Time
	}
	return q
}

// Versions lists every assignment of (table, variation), newest first.
// A non-nil run keeps only ranges containing it. Ancestors are not searched.
func (ix *Index) Versions(ctx context.Context, tablePath, variationName string, run *int64) ([]model.Assignment, error) {
	table, err := lookupTable(ctx, ix.store, tablePath)
	if err != nil {
		return nil, err
	}

	v, err := variation.NewResolver(ix.store, nil).Lookup(ctx, variationName)
	if errors.Is(err, model.ErrNotFound) {
		return []model.Assignment{}, nil
	}
	if err != nil {
		return nil, model.NewBackendError("load variation", err)
	}

	q := store.AssignmentQuery{Table: table, Variation: v}
	if run != nil {
		q.Run, q.HasRun = *run, true
	}
	found, err := ix.store.QueryAssignments(ctx, q)
	if err != nil {
		return nil, model.NewBackendError("query assignments", err)
	}
	return found, nil
}

// Query is one lookup in a LookupMany batch.
type Query struct {
	TablePath string
	Run       int64
	Variation string

	// Before, when set, ignores assignments created after it.
	Before time.Time
}

// Result pairs a Query with its outcome. Err holds per-query resolution
// errors such as NO_APPLICABLE_ASSIGNMENT.
type Result struct {
	Query      Query
	Assignment *model.Assignment
	Err        error
}

// LookupMany resolves queries concurrently. Results are in query order.
// Only backend failures abort the batch; other errors are reported per result.
func (ix *Index) LookupMany(ctx context.Context, queries []Query) ([]Result, error) {
	results := make([]Result, len(queries))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)

	for i, q := range queries {
		g.Go(func() error {
			a, err := ix.LookupAt(ctx, q.TablePath, q.Run, q.Variation, q.Before)
			if model.CategoryOf(err) == model.CategoryBackend {
				return err
			}
			results[i] = Result{Query: q, Assignment: a, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func canonicalVariation(name string) string {
	if n := model.NormalizeName(name); n != "" {
		return n
	}
	return model.DefaultVariationName
}
