package store

import (
	"context"
	"fmt"

	"github.com/roach88/whereabouts/internal/telemetry"
)

// Emit implements telemetry.Sink by appending to telemetry_events.
func (s *Store) Emit(ctx context.Context, e telemetry.Event) error {
	attrs, err := marshalAttrs(e.Attrs)
	if err != nil {
		return fmt.Errorf("write telemetry event: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO telemetry_events (name, at, user_id, session_id, bundle_id, attrs)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.Name, toMillis(e.At), e.UserID, e.SessionID, e.BundleID, attrs)
	if err != nil {
		return fmt.Errorf("write telemetry event: %w", err)
	}
	return nil
}

// TelemetryEvents returns the events recorded for userID in emission order.
// An empty userID returns every event. Numeric attrs decode as json.Number.
func (s *Store) TelemetryEvents(ctx context.Context, userID string) ([]telemetry.Event, error) {
	query := `
		SELECT name, at, user_id, session_id, bundle_id, attrs
		FROM telemetry_events`
	var args []any
	if userID != "" {
		query += " WHERE user_id = ?"
		args = append(args, userID)
	}
	query += " ORDER BY seq ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query telemetry events: %w", err)
	}
	defer rows.Close()

	events := []telemetry.Event{}
	for rows.Next() {
		var (
			e     telemetry.Event
			at    int64
			attrs string
		)
		if err := rows.Scan(&e.Name, &at, &e.UserID, &e.SessionID, &e.BundleID, &attrs); err != nil {
			return nil, fmt.Errorf("scan telemetry event: %w", err)
		}
		e.At = fromMillis(at)
		if e.Attrs, err = unmarshalAttrs(attrs); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate telemetry events: %w", err)
	}
	return events, nil
}
