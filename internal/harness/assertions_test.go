package harness

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/whereabouts/internal/canon"
	"github.com/roach88/whereabouts/internal/location"
	"github.com/roach88/whereabouts/internal/model"
	"github.com/roach88/whereabouts/internal/store"
	"github.com/roach88/whereabouts/internal/telemetry"
)

func resultWithEvents(events ...telemetry.Event) *Result {
	r := NewResult()
	r.Events = events
	return r
}

func TestAssertEventContains_Found(t *testing.T) {
	result := resultWithEvents(
		telemetry.Event{Name: telemetry.EventContextComputed},
		telemetry.Event{Name: telemetry.EventActionsFiltered, Attrs: map[string]any{
			"strictness":   "strict",
			"passed_count": 2,
		}},
	)

	err := assertEventContains(result, Assertion{
		Type:  AssertEventContains,
		Event: telemetry.EventActionsFiltered,
		Attrs: map[string]any{"passed_count": 2},
	})
	assert.NoError(t, err)
}

func TestAssertEventContains_NotFound(t *testing.T) {
	result := resultWithEvents(telemetry.Event{Name: telemetry.EventContextComputed})

	err := assertEventContains(result, Assertion{Type: AssertEventContains, Event: telemetry.EventContextOverridden})
	require.Error(t, err)

	var assertErr *AssertionError
	require.ErrorAs(t, err, &assertErr)
	assert.Equal(t, AssertEventContains, assertErr.Type)
	assert.Contains(t, assertErr.Expected, telemetry.EventContextOverridden)
	assert.Equal(t, "not emitted", assertErr.Actual)
	assert.Equal(t, []string{telemetry.EventContextComputed}, assertErr.Events)
}

func TestAssertEventContains_WrongAttrs(t *testing.T) {
	result := resultWithEvents(telemetry.Event{
		Name:  telemetry.EventContextOverridden,
		Attrs: map[string]any{"fields": []string{"city"}},
	})

	err := assertEventContains(result, Assertion{
		Type:  AssertEventContains,
		Event: telemetry.EventContextOverridden,
		Attrs: map[string]any{"fields": []any{"city", "country"}},
	})
	assert.Error(t, err)
}

func TestAssertEventOrder(t *testing.T) {
	result := resultWithEvents(
		telemetry.Event{Name: telemetry.EventContextComputed},
		telemetry.Event{Name: telemetry.EventActionsFiltered},
		telemetry.Event{Name: telemetry.EventContextOverridden},
	)

	assert.NoError(t, assertEventOrder(result, Assertion{Events: []string{
		telemetry.EventContextComputed, telemetry.EventContextOverridden,
	}}), "intervening events are allowed")

	err := assertEventOrder(result, Assertion{Events: []string{
		telemetry.EventContextOverridden, telemetry.EventContextComputed,
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "should be before")

	err = assertEventOrder(result, Assertion{Events: []string{telemetry.EventContextError}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing event: context_error")
}

func TestAssertEventCount(t *testing.T) {
	result := resultWithEvents(
		telemetry.Event{Name: telemetry.EventContextComputed},
		telemetry.Event{Name: telemetry.EventContextComputed},
	)

	assert.NoError(t, assertEventCount(result, Assertion{Event: telemetry.EventContextComputed, Count: 2}))
	assert.NoError(t, assertEventCount(result, Assertion{Event: telemetry.EventContextError, Count: 0}))

	err := assertEventCount(result, Assertion{Event: telemetry.EventContextComputed, Count: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 occurrences")
}

func TestAttrEqual(t *testing.T) {
	assert.True(t, attrEqual(3, int64(3)))
	assert.True(t, attrEqual(3, json.Number("3")))
	assert.False(t, attrEqual(3, "3"))
	assert.True(t, attrEqual([]any{"a", "b"}, []string{"a", "b"}))
	assert.False(t, attrEqual([]any{"a"}, []string{"a", "b"}))
	assert.True(t, attrEqual("strict", "strict"))
	assert.True(t, attrEqual(true, true))
}

func newAssertionStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestAssertFinalState(t *testing.T) {
	st := newAssertionStore(t)
	ctx := context.Background()
	require.NoError(t, st.RecordVisit(ctx, "u1", location.Visit{
		Location:  model.Place{City: "Munich", Country: "Germany"},
		Timestamp: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
	}))

	err := assertFinalState(ctx, st, Assertion{
		Table:  "visits",
		Where:  map[string]any{"user_id": "u1"},
		Expect: map[string]any{"city": "Munich", "country": "Germany"},
	})
	assert.NoError(t, err)

	err = assertFinalState(ctx, st, Assertion{
		Table:  "visits",
		Where:  map[string]any{"user_id": "u1"},
		Expect: map[string]any{"city": "Vienna"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `field "city" = Vienna`)

	err = assertFinalState(ctx, st, Assertion{
		Table:  "visits",
		Where:  map[string]any{"user_id": "nobody"},
		Expect: map[string]any{"city": "Munich"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row not found")

	err = assertFinalState(ctx, st, Assertion{
		Table:  "visits",
		Where:  map[string]any{"user_id": "u1"},
		Expect: map[string]any{"altitude": 500},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `field "altitude" to exist`)
}

func TestAssertFinalState_Ambiguous(t *testing.T) {
	st := newAssertionStore(t)
	ctx := context.Background()
	for _, city := range []string{"Munich", "Vienna"} {
		require.NoError(t, st.RecordVisit(ctx, "u1", location.Visit{
			Location:  model.Place{City: city},
			Timestamp: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
		}))
	}

	err := assertFinalState(ctx, st, Assertion{
		Table:  "visits",
		Where:  map[string]any{"user_id": "u1"},
		Expect: map[string]any{"user_id": "u1"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple rows matched")
}

func TestAssertFinalState_RejectsUnsafeIdentifiers(t *testing.T) {
	st := newAssertionStore(t)
	ctx := context.Background()

	err := assertFinalState(ctx, st, Assertion{
		Table:  "visits; DROP TABLE visits",
		Expect: map[string]any{"city": "x"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid table name")

	err = assertFinalState(ctx, st, Assertion{
		Table:  "visits",
		Where:  map[string]any{"1=1 OR city": "x"},
		Expect: map[string]any{"city": "x"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid column name")
}

func TestStateValuesEqual(t *testing.T) {
	assert.True(t, stateValuesEqual("a", []byte("a")))
	assert.True(t, stateValuesEqual(5, int64(5)))
	assert.True(t, stateValuesEqual(true, int64(1)))
	assert.False(t, stateValuesEqual(false, int64(1)))
	assert.False(t, stateValuesEqual(nil, "a"))
	assert.True(t, stateValuesEqual(nil, nil))
}

func TestCheckExpect(t *testing.T) {
	snap := canon.Object{
		"result": canon.Object{
			"cached": canon.Bool(true),
			"count":  canon.Int(2),
			"ids":    canon.Strings([]string{"a", "b"}),
			"results": canon.Array{
				canon.Object{"action_id": canon.String("a")},
			},
		},
	}

	assert.Empty(t, checkExpect(snap, map[string]any{
		"result.cached":              true,
		"result.count":               2,
		"result.ids":                 []any{"a", "b"},
		"result.results.0.action_id": "a",
		"result.missing":             nil,
	}))

	failures := checkExpect(snap, map[string]any{
		"result.cached":    false,
		"result.results.1": "x",
		"result.count":     nil,
	})
	require.Len(t, failures, 3)
	assert.Contains(t, failures[0], "expected result.cached = false, got true")
	assert.Contains(t, failures[1], "expected result.count to be absent, got 2")
	assert.Contains(t, failures[2], "expected result.results.1 = x, path not found")
}

func TestLookupPath(t *testing.T) {
	snap := canon.Object{"a": canon.Array{canon.Object{"b": canon.String("c")}}}

	v, ok := lookupPath(snap, "a.0.b")
	require.True(t, ok)
	assert.Equal(t, canon.String("c"), v)

	_, ok = lookupPath(snap, "a.x.b")
	assert.False(t, ok)
	_, ok = lookupPath(snap, "a.0.b.c")
	assert.False(t, ok, "cannot descend into a scalar")
}

func TestEvaluateAssertions_FinalStateNeedsStore(t *testing.T) {
	errs := EvaluateAssertions(NewResult(), []Assertion{
		{Type: AssertFinalState, Table: "visits", Expect: map[string]any{"city": "x"}},
	}, nil)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "requires database context")
}
