package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/assetsync/internal/engine"
	"github.com/roach88/assetsync/internal/fixture"
	"github.com/roach88/assetsync/internal/store"
	"github.com/roach88/assetsync/internal/testutil"
)

// Harness is the scenario execution engine.
// It runs scenarios against two fresh in-memory stores with sequential ids
// and a fixed run id.
type Harness struct {
	source *store.SQLite
	target *store.Counting
	syncer *engine.Syncer
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against fresh in-memory databases for isolation.
//
// Execution flow:
// 1. Create source and target stores
// 2. Seed the source and target fixtures
// 3. Execute flow steps, checking each expect clause
// 4. Evaluate assertions against the reports and the target
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	source, err := store.Open(":memory:", store.WithIDGenerator(testutil.NewSequentialIDs("src")))
	if err != nil {
		return nil, fmt.Errorf("failed to create source store: %w", err)
	}
	defer source.Close()

	targetDB, err := store.Open(":memory:", store.WithIDGenerator(testutil.NewSequentialIDs("tgt")))
	if err != nil {
		return nil, fmt.Errorf("failed to create target store: %w", err)
	}
	defer targetDB.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // suppress logs in tests
	target := store.NewCounting(targetDB)
	h := &Harness{
		source: source,
		target: target,
		syncer: engine.New(source, target,
			engine.WithRunIDs(testutil.NewFixedRunID(scenario.RunID)),
			engine.WithLogger(logger),
		),
		logger: logger,
	}

	if _, err := fixture.Seed(ctx, source, scenario.Source); err != nil {
		return nil, fmt.Errorf("failed to seed source: %w", err)
	}
	if scenario.Target != nil {
		if _, err := fixture.Seed(ctx, target, scenario.Target); err != nil {
			return nil, fmt.Errorf("failed to seed target: %w", err)
		}
	}

	result := NewResult()
	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	actx := &AssertionContext{
		Store: target,
		Ctx:   ctx,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// executeFlow runs all flow steps and validates expect clauses.
//
// A step that returns an error is not a harness failure: the error is
// recorded and compared with the expect clause.
func (h *Harness) executeFlow(ctx context.Context, flow []Step, result *Result) error {
	for i, step := range flow {
		if step.Source != nil {
			if _, err := fixture.Apply(ctx, h.source, step.Source); err != nil {
				return fmt.Errorf("flow step %d: apply source: %w", i, err)
			}
		}
		if step.Target != nil {
			if _, err := fixture.Apply(ctx, h.target, step.Target); err != nil {
				return fmt.Errorf("flow step %d: apply target: %w", i, err)
			}
		}

		ref, err := step.ref()
		if err != nil {
			return fmt.Errorf("flow step %d: %w", i, err)
		}

		h.target.Reset()
		var sr StepResult
		if step.Walk != "" {
			sr.Report, sr.Err = h.syncer.Walk(ctx, ref, step.options())
		} else {
			sr.Report, sr.Err = h.syncer.Sync(ctx, ref, step.options())
		}
		sr.Writes = h.target.Writes()
		result.Steps = append(result.Steps, sr)

		for _, msg := range checkExpect(i, sr, step.Expect) {
			result.AddError(msg)
		}

		h.logger.Info("flow step completed",
			"step", i,
			"ref", ref.String(),
			"error_code", sr.ErrorCode(),
			"writes", sr.Writes,
		)
	}
	return nil
}

// checkExpect compares one step result with its expect clause.
func checkExpect(index int, sr StepResult, expect *ExpectClause) []string {
	var errs []string
	wantErr := ""
	if expect != nil {
		wantErr = expect.Error
	}
	if got := sr.ErrorCode(); got != wantErr {
		errs = append(errs, fmt.Sprintf("flow[%d]: expected error %q, got %q (%v)", index, wantErr, got, sr.Err))
	}
	if expect == nil || sr.Report == nil {
		return errs
	}

	counts := sr.Report.Counts()
	for outcome, want := range expect.Counts {
		if got := counts[engine.Outcome(outcome)]; got != want {
			errs = append(errs, fmt.Sprintf("flow[%d]: expected %d %s entries, got %d", index, want, outcome, got))
		}
	}
	if expect.Writes != nil && *expect.Writes != sr.Writes {
		errs = append(errs, fmt.Sprintf("flow[%d]: expected %d target writes, got %d", index, *expect.Writes, sr.Writes))
	}
	return errs
}
