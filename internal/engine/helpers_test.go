package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/roach88/whereabouts/internal/location"
	"github.com/roach88/whereabouts/internal/policy"
	"github.com/roach88/whereabouts/internal/telemetry"
	"github.com/roach88/whereabouts/internal/testutil"
)

var t0 = time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC)

type testEngine struct {
	*Engine
	clock    *testutil.ManualClock
	recorder *telemetry.Recorder
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestEngine builds an engine on a manual clock with sequential ids and a
// recording telemetry sink.
func newTestEngine(t *testing.T, opts ...Option) *testEngine {
	t.Helper()
	clock := testutil.NewManualClock(t0)
	rec := &telemetry.Recorder{}
	base := []Option{
		WithClock(clock),
		WithIDGenerator(testutil.NewSequentialIDs("id")),
		WithTelemetry(rec),
		WithLogger(quietLogger()),
	}
	return &testEngine{
		Engine:   New(policy.Default(), append(base, opts...)...),
		clock:    clock,
		recorder: rec,
	}
}

func ref(hour, minute int) *time.Time {
	t := time.Date(2026, 3, 1, hour, minute, 0, 0, time.UTC)
	return &t
}

func intPtr(v int) *int { return &v }

func km(v float64) *float64 { return &v }

type failingPrefs struct{}

func (failingPrefs) LocationPreferences(context.Context, string) (*location.HomePreference, error) {
	return nil, errors.New("connection refused")
}

type failingSink struct{}

func (failingSink) Emit(context.Context, telemetry.Event) error {
	return errors.New("sink down")
}
