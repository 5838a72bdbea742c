package telemetry

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSink struct{ err error }

func (f failingSink) Emit(context.Context, Event) error { return f.err }

func TestLogger_WritesEvent(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, nil))
	sink := NewLogger(l, slog.LevelInfo)

	err := sink.Emit(context.Background(), Event{
		Name:      EventContextComputed,
		At:        time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC),
		UserID:    "u1",
		SessionID: "s1",
		BundleID:  "b1",
		Attrs:     map[string]any{"overall_confidence": 58},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "msg=context_computed")
	assert.Contains(t, out, "user_id=u1")
	assert.Contains(t, out, "bundle_id=b1")
	assert.Contains(t, out, "overall_confidence=58")
}

func TestLogger_AttrsInKeyOrder(t *testing.T) {
	attrs := map[string]any{"strictness": "strict", "passed_count": 2, "rejected_count": 1, "bundle_hash": "sha256:ab"}
	want := "bundle_hash=sha256:ab passed_count=2 rejected_count=1 strictness=strict\n"

	for range 20 {
		var buf bytes.Buffer
		l := slog.New(slog.NewTextHandler(&buf, nil))
		require.NoError(t, NewLogger(l, slog.LevelInfo).Emit(context.Background(), Event{
			Name:  EventActionsFiltered,
			At:    time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC),
			Attrs: attrs,
		}))
		assert.True(t, strings.HasSuffix(buf.String(), want), buf.String())
	}
}

func TestLogger_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	sink := NewLogger(l, slog.LevelDebug)

	require.NoError(t, sink.Emit(context.Background(), Event{Name: EventActionsFiltered}))
	assert.Empty(t, buf.String())
}

func TestMulti_TriesEverySink(t *testing.T) {
	rec1, rec2 := &Recorder{}, &Recorder{}
	boom := errors.New("disk full")
	m := Multi{rec1, failingSink{err: boom}, rec2}

	err := m.Emit(context.Background(), Event{Name: EventContextError})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{EventContextError}, rec1.Names())
	assert.Equal(t, []string{EventContextError}, rec2.Names())
}

func TestMulti_Empty(t *testing.T) {
	assert.NoError(t, Multi{}.Emit(context.Background(), Event{}))
	assert.NoError(t, Nop{}.Emit(context.Background(), Event{}))
}
