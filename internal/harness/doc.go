// Package harness runs YAML scenarios against the context engine and
// compares their traces with golden files.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: berlin_afternoon
//	description: "Explicit Berlin location, no other signals"
//	now: 2026-03-01T14:00:00Z
//	cache: memory            # or sqlite
//	seed:
//	  users:
//	    - id: u1
//	      home: {home_city: Hamburg, home_country: Germany}
//	steps:
//	  - compute:
//	      user_id: u1
//	      explicit_location: {city: Berlin, country: Germany}
//	    expect:
//	      result.bundle.location.city: Berlin
//	  - advance: 4m
//	    filter:
//	      user_id: u1
//	      actions:
//	        - {id: museum, distance_km: 3.5}
//	    expect:
//	      result.passed_count: 1
//	assertions:
//	  - type: event_count
//	    event: context_computed
//	    count: 1
//	  - type: final_state
//	    table: telemetry_events
//	    where: {name: actions_filtered}
//	    expect: {user_id: u1}
//
// Each step holds exactly one of compute, current, filter or override; their
// fields are the engine request fields. Expect keys are dotted paths into
// the step snapshot ("result..." on success, "error.code" on failure).
//
// # Assertion Types
//
//   - event_contains: an event with the name and attrs (subset) was emitted
//   - event_order: events first appear in the given order
//   - event_count: an event was emitted exactly N times
//   - final_state: one store row matches where and carries expect
//
// # Deterministic Testing
//
// Every scenario runs on a fresh in-memory SQLite store, a manual clock that
// only moves on "advance", and sequential ids ("id-0001", ...). The same
// scenario always produces the same canonical trace, which is what golden
// files record.
package harness
