package harness

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "test.yaml", `
name: test_scenario
description: "Test scenario for validation"
now: 2026-03-01T14:00:00Z
seed:
  users:
    - id: u1
      home: {home_city: Berlin}
steps:
  - compute:
      user_id: u1
      explicit_location: {city: Berlin}
      reference_time: 2026-03-01T22:30:00Z
  - advance: 2m
    filter:
      user_id: u1
      strictness: strict
      actions:
        - {id: a1, distance_km: 3, scheduled_at: 2026-03-01T23:00:00Z}
    expect:
      result.passed_count: 1
assertions:
  - type: event_count
    event: context_computed
    count: 1
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC), scenario.Now.UTC())
	require.NotNil(t, scenario.Seed)
	assert.Equal(t, "Berlin", scenario.Seed.Users[0].Home.HomeCity)

	require.Len(t, scenario.Steps, 2)
	assert.Equal(t, OpCompute, scenario.Steps[0].Op())
	require.NotNil(t, scenario.Steps[0].Compute.ReferenceTime)
	assert.Equal(t, 22, scenario.Steps[0].Compute.ReferenceTime.Hour())

	assert.Equal(t, OpFilter, scenario.Steps[1].Op())
	assert.Equal(t, 2*time.Minute, scenario.Steps[1].Advance)
	require.Len(t, scenario.Steps[1].Filter.Actions, 1)
	assert.Equal(t, 3.0, *scenario.Steps[1].Filter.Actions[0].DistanceKm)
	assert.Equal(t, 1, scenario.Steps[1].Expect["result.passed_count"])

	require.Len(t, scenario.Assertions, 1)
	assert.Equal(t, AssertEventCount, scenario.Assertions[0].Type)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/path/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "typo.yaml", `
name: typo
description: "Misspelled key"
step:
  - compute: {user_id: u1}
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_ResolvesPolicyRelativeToFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "policies"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "policies", "p.yaml"), []byte("bundle:\n  cache_ttl_seconds: 30\n"), 0o644))
	path := writeScenario(t, dir, "s.yaml", `
name: with_policy
description: "Relative policy path"
policy: policies/p.yaml
steps:
  - current: {user_id: u1}
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "policies", "p.yaml"), scenario.Policy)
}

func TestValidateScenario(t *testing.T) {
	compute := Step{Current: &CurrentRequest{UserID: "u1"}}

	tests := []struct {
		name     string
		scenario Scenario
		wantErr  string
	}{
		{
			name:     "missing name",
			scenario: Scenario{Description: "d", Steps: []Step{compute}},
			wantErr:  "name is required",
		},
		{
			name:     "missing description",
			scenario: Scenario{Name: "n", Steps: []Step{compute}},
			wantErr:  "description is required",
		},
		{
			name:     "no steps",
			scenario: Scenario{Name: "n", Description: "d"},
			wantErr:  "steps list is required",
		},
		{
			name:     "empty step",
			scenario: Scenario{Name: "n", Description: "d", Steps: []Step{{}}},
			wantErr:  "steps[0]: exactly one of",
		},
		{
			name: "two operations in one step",
			scenario: Scenario{Name: "n", Description: "d", Steps: []Step{
				{Current: &CurrentRequest{}, Compute: berlinCompute("u1")},
			}},
			wantErr: "steps[0]: exactly one of",
		},
		{
			name: "negative advance",
			scenario: Scenario{Name: "n", Description: "d", Steps: []Step{
				{Advance: -time.Second, Current: &CurrentRequest{}},
			}},
			wantErr: "advance must not be negative",
		},
		{
			name:     "unknown cache",
			scenario: Scenario{Name: "n", Description: "d", Cache: "redis", Steps: []Step{compute}},
			wantErr:  `unknown cache "redis"`,
		},
		{
			name:     "missing policy file",
			scenario: Scenario{Name: "n", Description: "d", Policy: "/nonexistent/p.yaml", Steps: []Step{compute}},
			wantErr:  "policy file not found",
		},
		{
			name: "assertion without type",
			scenario: Scenario{Name: "n", Description: "d", Steps: []Step{compute},
				Assertions: []Assertion{{Event: "x"}}},
			wantErr: "assertions[0]: type is required",
		},
		{
			name: "event_contains without event",
			scenario: Scenario{Name: "n", Description: "d", Steps: []Step{compute},
				Assertions: []Assertion{{Type: AssertEventContains}}},
			wantErr: "event is required for event_contains",
		},
		{
			name: "event_order without events",
			scenario: Scenario{Name: "n", Description: "d", Steps: []Step{compute},
				Assertions: []Assertion{{Type: AssertEventOrder}}},
			wantErr: "events list is required",
		},
		{
			name: "negative count",
			scenario: Scenario{Name: "n", Description: "d", Steps: []Step{compute},
				Assertions: []Assertion{{Type: AssertEventCount, Event: "x", Count: -1}}},
			wantErr: "count must be non-negative",
		},
		{
			name: "final_state without expect",
			scenario: Scenario{Name: "n", Description: "d", Steps: []Step{compute},
				Assertions: []Assertion{{Type: AssertFinalState, Table: "visits"}}},
			wantErr: "expect is required for final_state",
		},
		{
			name: "unknown assertion",
			scenario: Scenario{Name: "n", Description: "d", Steps: []Step{compute},
				Assertions: []Assertion{{Type: "trace_contains"}}},
			wantErr: `unknown assertion type "trace_contains"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateScenario(&tt.scenario)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenarios_SortedByFileName(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "b.yaml", "name: second\ndescription: d\nsteps:\n  - current: {}\n")
	writeScenario(t, dir, "a.yml", "name: first\ndescription: d\nsteps:\n  - current: {}\n")
	writeScenario(t, dir, "notes.txt", "ignored")

	scenarios, err := LoadScenarios(dir)
	require.NoError(t, err)
	require.Len(t, scenarios, 2)
	assert.Equal(t, "first", scenarios[0].Name)
	assert.Equal(t, "second", scenarios[1].Name)
}

func TestLoadScenarios_ReportsFile(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "broken.yaml", "name: broken\n")

	_, err := LoadScenarios(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.yaml")
}
