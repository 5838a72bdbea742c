package harness

import (
	"github.com/roach88/whereabouts/internal/canon"
	"github.com/roach88/whereabouts/internal/telemetry"
)

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every step expectation and assertion holds.
	Pass bool `json:"pass"`

	// Trace holds one canonical snapshot per step, in order.
	Trace []canon.Object `json:"trace"`

	// Events are the telemetry events the engine emitted, in order.
	Events []telemetry.Event `json:"events"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []canon.Object{},
		Events: []telemetry.Event{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddStep appends a step snapshot to the trace.
func (r *Result) AddStep(snap canon.Object) {
	r.Trace = append(r.Trace, snap)
}

// EventNames returns the names of the recorded events in order.
func (r *Result) EventNames() []string {
	names := make([]string, len(r.Events))
	for i, e := range r.Events {
		names[i] = e.Name
	}
	return names
}
