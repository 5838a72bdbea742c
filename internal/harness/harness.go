package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/whereabouts/internal/cache"
	"github.com/roach88/whereabouts/internal/canon"
	"github.com/roach88/whereabouts/internal/engine"
	"github.com/roach88/whereabouts/internal/policy"
	"github.com/roach88/whereabouts/internal/store"
	"github.com/roach88/whereabouts/internal/telemetry"
	"github.com/roach88/whereabouts/internal/testutil"
)

// IDPrefix prefixes the sequential bundle and override ids of a run.
const IDPrefix = "id"

// Harness is the test execution engine.
// It runs scenarios against a real engine with a manual clock and
// sequential ids.
type Harness struct {
	store    *store.Store
	engine   *engine.Engine
	clock    *testutil.ManualClock
	recorder *telemetry.Recorder
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation. The
// database backs the preference and visit stores and persists telemetry; with
// cache: sqlite it also holds the bundle cache.
//
// Execution flow:
//  1. Create fresh in-memory database and apply the seed
//  2. Build the engine on a manual clock and sequential ids
//  3. Execute steps, snapshotting each and checking its expect clause
//  4. Evaluate assertions over telemetry and final store state
func Run(scenario *Scenario) (*Result, error) {
	start := scenario.Now
	if start.IsZero() {
		start = DefaultNow
	}
	clock := testutil.NewManualClock(start)

	st, err := store.Open(":memory:", store.WithClock(clock))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()

	if scenario.Seed != nil {
		if _, err := st.ApplySeed(ctx, *scenario.Seed); err != nil {
			return nil, fmt.Errorf("failed to apply seed: %w", err)
		}
	}

	p := policy.Default()
	if scenario.Policy != "" {
		if p, err = policy.Load(scenario.Policy); err != nil {
			return nil, fmt.Errorf("failed to load policy: %w", err)
		}
	}

	recorder := &telemetry.Recorder{}

	var bundles cache.Cache = cache.NewMemory(p.Bundle.CacheTTL(), cache.WithMemoryClock(clock))
	if scenario.Cache == CacheSQLite {
		bundles = st.BundleCache(p.Bundle.CacheTTL(), clock)
	}

	h := &Harness{
		store: st,
		engine: engine.New(p,
			engine.WithPreferenceStore(st),
			engine.WithVisitStore(st),
			engine.WithCache(bundles),
			engine.WithTelemetry(telemetry.Multi{recorder, st}),
			engine.WithClock(clock),
			engine.WithIDGenerator(testutil.NewSequentialIDs(IDPrefix)),
			engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), // Suppress logs in tests
		),
		clock:    clock,
		recorder: recorder,
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		h.executeStep(ctx, i, step, result)
	}
	result.Events = recorder.Events()

	actx := &AssertionContext{
		Store: st,
		Ctx:   ctx,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// executeStep runs one step and records its snapshot. Operation errors are
// part of the trace, not run failures: a step expecting an error code
// checks it like any other value.
func (h *Harness) executeStep(ctx context.Context, index int, step Step, result *Result) {
	if step.Advance > 0 {
		h.clock.Advance(step.Advance)
	}

	op := step.Op()
	snap := canon.Object{
		"step": canon.Int(index),
		"op":   canon.String(op),
		"at":   timestamp(h.clock.Now()),
	}

	out, err := h.invoke(ctx, op, step)
	if err != nil {
		snap["error"] = errorSnapshot(err)
		if _, expected := step.Expect["error.code"]; !expected {
			result.AddError(fmt.Sprintf("steps[%d] %s: unexpected error: %v", index, op, err))
		}
	} else {
		snap["result"] = out
	}
	result.AddStep(snap)

	for _, msg := range checkExpect(snap, step.Expect) {
		result.AddError(fmt.Sprintf("steps[%d] %s: %s", index, op, msg))
	}
}

func (h *Harness) invoke(ctx context.Context, op string, step Step) (canon.Object, error) {
	switch op {
	case OpCompute:
		res, err := h.engine.ComputeContext(ctx, *step.Compute)
		if err != nil {
			return nil, err
		}
		return computeSnapshot(res), nil
	case OpCurrent:
		res, err := h.engine.GetCurrentContext(ctx, step.Current.UserID, step.Current.SessionID)
		if err != nil {
			return nil, err
		}
		return currentSnapshot(res), nil
	case OpFilter:
		res, err := h.engine.FilterActions(ctx, *step.Filter)
		if err != nil {
			return nil, err
		}
		return filterSnapshot(res), nil
	case OpOverride:
		res, err := h.engine.OverrideContext(ctx, *step.Override)
		if err != nil {
			return nil, err
		}
		return overrideSnapshot(res), nil
	}
	return nil, fmt.Errorf("unknown operation %q", op)
}
