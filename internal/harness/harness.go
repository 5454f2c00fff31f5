package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/ccdb/internal/engine"
	"github.com/roach88/ccdb/internal/model"
	"github.com/roach88/ccdb/internal/schema"
	"github.com/roach88/ccdb/internal/store"
	"github.com/roach88/ccdb/internal/testutil"
	"github.com/roach88/ccdb/internal/textfile"
	"github.com/roach88/ccdb/internal/variation"
)

// Harness runs one scenario against its own database.
type Harness struct {
	store    *store.Store
	engine   *engine.Engine
	index    *engine.Index
	resolver *variation.Resolver
	clock    *testutil.DeterministicClock
	logger   *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Execution flow:
//  1. Create the declared tables and variations
//  2. Run the steps in order, checking each expect clause
//  3. Evaluate assertions against the final database
//
// A returned error means the scenario could not be set up; expectation
// failures are reported in the Result.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	clock := testutil.NewDeterministicClock()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests

	h := &Harness{
		store: st,
		engine: engine.New(st,
			engine.WithClock(clock),
			engine.WithIDGenerator(testutil.NewSequentialIDGenerator("asg")),
			engine.WithLogger(logger),
		),
		index:    engine.NewIndex(st, logger),
		resolver: variation.NewResolver(st, clock),
		clock:    clock,
		logger:   logger,
	}

	ctx := context.Background()
	if err := h.setup(ctx, scenario); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		event, outcome := h.runStep(ctx, step)
		event.Seq = int64(i + 1)
		result.AddTrace(event)
		for _, msg := range checkExpect(step.Expect, event, outcome) {
			result.AddError(fmt.Sprintf("steps[%d] %s %s: %s", i, event.Op, event.Target, msg))
		}
		h.logger.Info("step completed", "step", i, "op", event.Op, "outcome", event.Outcome)
	}

	for _, msg := range h.evaluateAssertions(ctx, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) setup(ctx context.Context, scenario *Scenario) error {
	for i, def := range scenario.Tables {
		table, err := schema.TableFromColumns(def.Path, def.Comment, def.Columns)
		if err != nil {
			return fmt.Errorf("tables[%d]: %w", i, err)
		}
		if _, err := h.store.CreateTypeTable(ctx, *table, h.clock.Now()); err != nil {
			return fmt.Errorf("tables[%d]: %w", i, err)
		}
	}
	for i, def := range scenario.Variations {
		var err error
		if def.Parent != "" {
			_, err = h.setParent(ctx, def.Name, def.Parent)
		} else {
			_, err = h.resolver.Resolve(ctx, def.Name)
		}
		if err != nil {
			return fmt.Errorf("variations[%d]: %w", i, err)
		}
	}
	return nil
}

// stepOutcome is what a step produced, for expect checks.
type stepOutcome struct {
	assignment *model.Assignment
	variation  *model.Variation
	parent     string
	err        error
}

func (h *Harness) runStep(ctx context.Context, step Step) (TraceEvent, stepOutcome) {
	switch {
	case step.Add != nil:
		return h.runAdd(ctx, step.Add)
	case step.Get != nil:
		return h.runGet(ctx, step.Get)
	default:
		return h.runMkvar(ctx, step.Mkvar)
	}
}

func (h *Harness) runAdd(ctx context.Context, add *AddStep) (TraceEvent, stepOutcome) {
	event := TraceEvent{Op: "add", Target: add.Table}

	req := engine.IngestRequest{
		TablePath:        add.Table,
		RunRangeText:     add.Runs,
		Variation:        add.Variation,
		Contents:         add.Contents,
		CComments:        add.CComments,
		Comment:          add.Comment,
		SkipFileComments: add.NoComments,
	}
	if req.RunRangeText == "" {
		req.RunRangeText = model.AllRuns.String()
	}
	// Validated when the scenario was parsed.
	req.Format, _ = textfile.ParseFormat(add.Format)

	a, advisories, err := h.engine.Ingest(ctx, req)
	event.Advisories = advisories
	out := stepOutcome{assignment: a, err: err}
	fillEvent(&event, a, err)
	return event, out
}

func (h *Harness) runGet(ctx context.Context, get *GetStep) (TraceEvent, stepOutcome) {
	event := TraceEvent{Op: "get", Target: get.Request}

	req, err := model.ParseRequest(get.Request)
	if err != nil {
		fillEvent(&event, nil, err)
		return event, stepOutcome{err: err}
	}
	a, err := h.index.LookupRequest(ctx, req, engine.RequestDefaults{Variation: model.DefaultVariationName})
	fillEvent(&event, a, err)
	return event, stepOutcome{assignment: a, err: err}
}

func (h *Harness) runMkvar(ctx context.Context, def *VariationDef) (TraceEvent, stepOutcome) {
	event := TraceEvent{Op: "mkvar", Target: def.Name}

	var (
		v   model.Variation
		err error
	)
	if def.Parent != "" {
		v, err = h.setParent(ctx, def.Name, def.Parent)
	} else {
		v, err = h.resolver.Resolve(ctx, def.Name)
	}
	fillEvent(&event, nil, err)
	if err != nil {
		return event, stepOutcome{err: err}
	}
	event.Variation = v.Name
	return event, stepOutcome{variation: &v, parent: model.NormalizeName(def.Parent)}
}

// setParent runs the cycle check and the link in one transaction.
func (h *Harness) setParent(ctx context.Context, name, parent string) (model.Variation, error) {
	var v model.Variation
	err := h.store.InTx(ctx, func(tx *store.Tx) error {
		var err error
		v, err = variation.NewResolver(tx, h.clock).SetParent(ctx, name, parent)
		return err
	})
	return v, err
}

func fillEvent(event *TraceEvent, a *model.Assignment, err error) {
	if err != nil {
		event.Outcome = errorCode(err)
		return
	}
	event.Outcome = OutcomeOK
	if a != nil {
		event.ID = a.ID
		event.Version = a.Version
		event.Variation = a.Variation.Name
		event.Runs = a.RunRange.String()
	}
}

// errorCode returns the model error code, or "ERROR" for untyped errors.
func errorCode(err error) string {
	var me *model.Error
	if errors.As(err, &me) {
		return string(me.Code)
	}
	return "ERROR"
}
