package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/whereabouts/internal/canon"
)

// GoldenDir is where golden traces live, relative to the test package.
const GoldenDir = "testdata/golden"

// GoldenSuffix is the golden file extension.
const GoldenSuffix = ".golden"

// TraceSnapshot captures the complete trace for a scenario execution.
type TraceSnapshot struct {
	ScenarioName string
	Steps        []canon.Object
	Events       []string
}

// NewTraceSnapshot builds the snapshot of a finished run.
func NewTraceSnapshot(scenarioName string, result *Result) TraceSnapshot {
	return TraceSnapshot{
		ScenarioName: scenarioName,
		Steps:        result.Trace,
		Events:       result.EventNames(),
	}
}

// Canonical returns the snapshot as a canonical document.
func (s TraceSnapshot) Canonical() canon.Object {
	steps := make(canon.Array, len(s.Steps))
	for i, step := range s.Steps {
		steps[i] = step
	}
	return canon.Object{
		"scenario_name": canon.String(s.ScenarioName),
		"steps":         steps,
		"events":        canon.Strings(s.Events),
	}
}

// Marshal returns the canonical JSON bytes stored in golden files.
func (s TraceSnapshot) Marshal() ([]byte, error) {
	return canon.Marshal(s.Canonical())
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := NewTraceSnapshot(scenarioName, result).Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(GoldenSuffix),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}

// CompareGolden checks a trace against {dir}/{name}.golden outside of
// `go test`. A missing golden file is an error unless update is set, in
// which case the file is (re)written.
func CompareGolden(dir, name string, trace []byte, update bool) error {
	path := filepath.Join(dir, name+GoldenSuffix)
	if update {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create golden dir: %w", err)
		}
		if err := os.WriteFile(path, trace, 0o644); err != nil {
			return fmt.Errorf("write golden file: %w", err)
		}
		return nil
	}

	want, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read golden file: %w", err)
	}
	if !bytes.Equal(bytes.TrimSpace(want), trace) {
		return fmt.Errorf("trace does not match %s", path)
	}
	return nil
}
