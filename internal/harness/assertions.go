package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/roach88/whereabouts/internal/canon"
	"github.com/roach88/whereabouts/internal/store"
)

// validIdentifier restricts table and column names that are interpolated
// into SQL.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// AssertionError describes a failed assertion.
type AssertionError struct {
	Type     string   // Assertion type for categorization
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Events   []string // Emitted event names for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Events) > 0 {
		fmt.Fprintf(&buf, "\nEmitted events:\n")
		for i, name := range e.Events {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, name)
		}
	}

	return buf.String()
}

// assertEventContains checks that an event with the given name was emitted
// with matching attrs (subset match).
func assertEventContains(result *Result, assertion Assertion) error {
	for _, event := range result.Events {
		if event.Name == assertion.Event && matchAttrs(event.Attrs, assertion.Attrs) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertEventContains,
		Expected: fmt.Sprintf("event %s with attrs %v", assertion.Event, assertion.Attrs),
		Actual:   "not emitted",
		Events:   result.EventNames(),
	}
}

// assertEventOrder checks that the named events first appear in the given
// order. Intervening events are allowed.
func assertEventOrder(result *Result, assertion Assertion) error {
	names := result.EventNames()
	positions := make(map[string]int)
	for i, name := range names {
		if _, seen := positions[name]; !seen {
			positions[name] = i + 1 // 1-indexed for readability
		}
	}

	for _, name := range assertion.Events {
		if positions[name] == 0 {
			return &AssertionError{
				Type:     AssertEventOrder,
				Expected: fmt.Sprintf("all events present: %v", assertion.Events),
				Actual:   fmt.Sprintf("missing event: %s", name),
				Events:   names,
			}
		}
	}

	for i := 1; i < len(assertion.Events); i++ {
		prev := assertion.Events[i-1]
		curr := assertion.Events[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertEventOrder,
				Expected: fmt.Sprintf("events in order: %v", assertion.Events),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Events: names,
			}
		}
	}

	return nil
}

// assertEventCount checks that the event was emitted exactly Count times.
func assertEventCount(result *Result, assertion Assertion) error {
	count := 0
	for _, event := range result.Events {
		if event.Name == assertion.Event {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertEventCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Event),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Events:   result.EventNames(),
		}
	}

	return nil
}

// assertFinalState checks that exactly one row of the table matches Where
// and carries the expected values (subset semantics).
//
// Table and column names must match validIdentifier.
func assertFinalState(ctx context.Context, st *store.Store, assertion Assertion) error {
	if !validIdentifier.MatchString(assertion.Table) {
		return fmt.Errorf("invalid table name %q: must match pattern %s", assertion.Table, validIdentifier.String())
	}

	whereSQL, whereArgs, err := buildWhereClause(assertion.Where)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("SELECT * FROM %s", assertion.Table)
	if whereSQL != "" {
		query += " WHERE " + whereSQL
	}

	rows, err := st.DB().QueryContext(ctx, query, whereArgs...)
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("query table %s", assertion.Table),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("get columns: %w", err)
	}

	whereDesc := formatWhereClause(assertion.Where)
	if !rows.Next() {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("row in %s where %s", assertion.Table, whereDesc),
			Actual:   "row not found",
		}
	}

	values := make([]any, len(columns))
	valuePtrs := make([]any, len(columns))
	for i := range values {
		valuePtrs[i] = &values[i]
	}
	if err := rows.Scan(valuePtrs...); err != nil {
		return fmt.Errorf("scan row: %w", err)
	}

	if rows.Next() {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("exactly one row in %s where %s", assertion.Table, whereDesc),
			Actual:   "multiple rows matched (assertion is ambiguous)",
		}
	}

	actualRow := make(map[string]any, len(columns))
	for i, col := range columns {
		actualRow[col] = values[i]
	}

	for _, key := range sortedKeys(assertion.Expect) {
		expectedValue := assertion.Expect[key]
		actualValue, exists := actualRow[key]
		if !exists {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("field %q not present in result columns: %v", key, columns),
			}
		}
		if !stateValuesEqual(expectedValue, actualValue) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q = %v (type %T)", key, expectedValue, expectedValue),
				Actual:   fmt.Sprintf("field %q = %v (type %T)", key, actualValue, actualValue),
			}
		}
	}

	return nil
}

// buildWhereClause returns "a = ? AND b = ?" with its arguments, keys in
// sorted order.
func buildWhereClause(where map[string]any) (string, []any, error) {
	if len(where) == 0 {
		return "", nil, nil
	}

	keys := sortedKeys(where)
	clauses := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))

	for _, key := range keys {
		if !validIdentifier.MatchString(key) {
			return "", nil, fmt.Errorf("invalid column name %q in where clause: must match pattern %s", key, validIdentifier.String())
		}
		clauses = append(clauses, fmt.Sprintf("%s = ?", key))
		args = append(args, toSQLValue(where[key]))
	}

	return strings.Join(clauses, " AND "), args, nil
}

// toSQLValue converts a YAML-decoded value to a SQL-compatible value.
func toSQLValue(v any) any {
	switch val := v.(type) {
	case string, int, int64, bool, float64:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

// formatWhereClause renders where as "k=v" pairs for messages.
func formatWhereClause(where map[string]any) string {
	if len(where) == 0 {
		return "(no conditions)"
	}

	keys := sortedKeys(where)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

// stateValuesEqual compares expected and actual values from store tables.
// SQLite returns int64 for integers and may return []byte for text.
func stateValuesEqual(expected, actual any) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}

	if b, ok := actual.([]byte); ok {
		actual = string(b)
	}

	switch exp := expected.(type) {
	case string:
		actualStr, ok := actual.(string)
		return ok && exp == actualStr
	case int:
		actualInt, ok := actual.(int64)
		return ok && int64(exp) == actualInt
	case int64:
		actualInt, ok := actual.(int64)
		return ok && exp == actualInt
	case bool:
		if actualBool, ok := actual.(bool); ok {
			return exp == actualBool
		}
		// SQLite stores booleans as integers
		if actualInt, ok := actual.(int64); ok {
			return exp == (actualInt != 0)
		}
		return false
	}

	return reflect.DeepEqual(expected, actual)
}

// matchAttrs checks if actual attrs contain all expected attrs (subset match).
// Extra keys in actual are ignored.
func matchAttrs(actual, expected map[string]any) bool {
	for key, expectedVal := range expected {
		actualVal, exists := actual[key]
		if !exists || !attrEqual(expectedVal, actualVal) {
			return false
		}
	}
	return true
}

// attrEqual compares a YAML-decoded expectation with an emitted attr value.
// Numbers compare by value whatever their Go type.
func attrEqual(expected, actual any) bool {
	if en, ok := asInt(expected); ok {
		an, ok := asInt(actual)
		return ok && en == an
	}
	if list, ok := expected.([]any); ok {
		rv := reflect.ValueOf(actual)
		if rv.Kind() != reflect.Slice || rv.Len() != len(list) {
			return false
		}
		for i, e := range list {
			if !attrEqual(e, rv.Index(i).Interface()) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(expected, actual)
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}

// checkExpect evaluates a step's expect clause against its snapshot. Keys
// are dotted paths; numeric segments index arrays. An expected null means
// the path must be absent.
func checkExpect(snap canon.Object, expect map[string]any) []string {
	var failures []string
	for _, path := range sortedKeys(expect) {
		want := expect[path]
		got, found := lookupPath(snap, path)
		switch {
		case want == nil && found:
			failures = append(failures, fmt.Sprintf("expected %s to be absent, got %s", path, canon.MustMarshal(got)))
		case want == nil:
		case !found:
			failures = append(failures, fmt.Sprintf("expected %s = %v, path not found", path, want))
		case !canonEqual(want, got):
			failures = append(failures, fmt.Sprintf("expected %s = %v, got %s", path, want, canon.MustMarshal(got)))
		}
	}
	return failures
}

// lookupPath walks a dotted path through objects and arrays.
func lookupPath(v canon.Value, path string) (canon.Value, bool) {
	for _, seg := range strings.Split(path, ".") {
		switch node := v.(type) {
		case canon.Object:
			next, ok := node[seg]
			if !ok {
				return nil, false
			}
			v = next
		case canon.Array:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			v = node[i]
		default:
			return nil, false
		}
	}
	return v, true
}

// canonEqual compares a YAML-decoded expectation with a snapshot value.
func canonEqual(want any, got canon.Value) bool {
	switch w := want.(type) {
	case string:
		g, ok := got.(canon.String)
		return ok && string(g) == w
	case bool:
		g, ok := got.(canon.Bool)
		return ok && bool(g) == w
	case int:
		g, ok := got.(canon.Int)
		return ok && int64(g) == int64(w)
	case []any:
		g, ok := got.(canon.Array)
		if !ok || len(g) != len(w) {
			return false
		}
		for i := range w {
			if !canonEqual(w[i], g[i]) {
				return false
			}
		}
		return true
	}
	return false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides database access for final_state assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertEventContains:
			err = assertEventContains(result, assertion)
		case AssertEventOrder:
			err = assertEventOrder(result, assertion)
		case AssertEventCount:
			err = assertEventCount(result, assertion)
		case AssertFinalState:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: final_state requires database context", i)
			} else {
				err = assertFinalState(actx.Ctx, actx.Store, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
