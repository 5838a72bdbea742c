package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/whereabouts/internal/engine"
	"github.com/roach88/whereabouts/internal/store"
)

// DefaultNow is the clock start for scenarios that do not set one.
var DefaultNow = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// Cache backends a scenario may run against.
const (
	CacheMemory = "memory"
	CacheSQLite = "sqlite"
)

// Scenario represents a complete test scenario loaded from YAML.
type Scenario struct {
	// Name is the unique identifier for this scenario. It also names the
	// golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario validates.
	Description string `yaml:"description"`

	// Now is where the manual clock starts. Defaults to DefaultNow.
	Now time.Time `yaml:"now,omitempty"`

	// Policy is an optional policy file (.yaml or .cue). Relative paths are
	// resolved against the scenario file's directory.
	Policy string `yaml:"policy,omitempty"`

	// Cache selects the bundle cache backend: memory (default) or sqlite.
	Cache string `yaml:"cache,omitempty"`

	// Seed is written to the scenario's store before the first step.
	Seed *store.Seed `yaml:"seed,omitempty"`

	// Steps run in order against one engine.
	Steps []Step `yaml:"steps"`

	// Assertions are checked after every step has run.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one engine operation. Exactly one of Compute, Current, Filter or
// Override is set.
type Step struct {
	// Advance moves the clock forward before the operation runs.
	Advance time.Duration `yaml:"advance,omitempty"`

	Compute  *engine.ComputeRequest  `yaml:"compute,omitempty"`
	Current  *CurrentRequest         `yaml:"current,omitempty"`
	Filter   *engine.FilterRequest   `yaml:"filter,omitempty"`
	Override *engine.OverrideRequest `yaml:"override,omitempty"`

	// Expect maps dotted snapshot paths to expected scalars. The special
	// key "error" names the expected error code.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// CurrentRequest is the argument of a GetCurrentContext step.
type CurrentRequest struct {
	UserID    string `yaml:"user_id,omitempty"`
	SessionID string `yaml:"session_id,omitempty"`
}

// Operation names recorded in step snapshots.
const (
	OpCompute  = "compute"
	OpCurrent  = "current"
	OpFilter   = "filter"
	OpOverride = "override"
)

// Op returns the operation the step performs, or "" when none or more than
// one is set.
func (s Step) Op() string {
	var ops []string
	if s.Compute != nil {
		ops = append(ops, OpCompute)
	}
	if s.Current != nil {
		ops = append(ops, OpCurrent)
	}
	if s.Filter != nil {
		ops = append(ops, OpFilter)
	}
	if s.Override != nil {
		ops = append(ops, OpOverride)
	}
	if len(ops) != 1 {
		return ""
	}
	return ops[0]
}

// Assertion represents a post-run check over the telemetry events or the
// final store state.
type Assertion struct {
	// Type is one of event_contains, event_order, event_count, final_state.
	Type string `yaml:"type"`

	// Event is the telemetry event name (event_contains, event_count).
	Event string `yaml:"event,omitempty"`

	// Events is the expected order of event names (event_order).
	Events []string `yaml:"events,omitempty"`

	// Attrs is a subset of event attributes to match (event_contains).
	Attrs map[string]any `yaml:"attrs,omitempty"`

	// Count is the expected number of events (event_count).
	Count int `yaml:"count,omitempty"`

	// Table is the store table to query (final_state).
	Table string `yaml:"table,omitempty"`

	// Where filters the queried rows (final_state).
	Where map[string]any `yaml:"where,omitempty"`

	// Expect holds the expected column values (final_state).
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion types.
const (
	AssertEventContains = "event_contains"
	AssertEventOrder    = "event_order"
	AssertEventCount    = "event_count"
	AssertFinalState    = "final_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Policy != "" && !filepath.IsAbs(scenario.Policy) {
		scenario.Policy = filepath.Join(filepath.Dir(path), scenario.Policy)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadScenarios loads every *.yaml and *.yml file in dir, sorted by file
// name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("glob scenarios: %w", err)
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch s.Cache {
	case "", CacheMemory, CacheSQLite:
	default:
		return fmt.Errorf("unknown cache %q: must be %s or %s", s.Cache, CacheMemory, CacheSQLite)
	}

	if s.Policy != "" {
		if _, err := os.Stat(s.Policy); os.IsNotExist(err) {
			return fmt.Errorf("policy file not found: %s", s.Policy)
		}
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if step.Op() == "" {
			return fmt.Errorf("steps[%d]: exactly one of compute, current, filter or override is required", i)
		}
		if step.Advance < 0 {
			return fmt.Errorf("steps[%d]: advance must not be negative", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertEventContains:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for event_contains", index)
		}
	case AssertEventOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for event_order", index)
		}
	case AssertEventCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for event_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for event_count", index)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
