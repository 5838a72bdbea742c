package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/whereabouts/internal/location"
)

// SetLocationPreferences upserts the home preference for userID, stamped
// with the store clock.
func (s *Store) SetLocationPreferences(ctx context.Context, userID string, pref location.HomePreference) error {
	if err := upsertPreference(ctx, s.db, userID, pref, s.clock.Now()); err != nil {
		return fmt.Errorf("set location preferences: %w", err)
	}
	return nil
}

func upsertPreference(ctx context.Context, ex execer, userID string, pref location.HomePreference, now time.Time) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO location_preferences (user_id, home_city, home_area, home_country, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			home_city = excluded.home_city,
			home_area = excluded.home_area,
			home_country = excluded.home_country,
			updated_at = excluded.updated_at
	`, userID, pref.HomeCity, pref.HomeArea, pref.HomeCountry, toMillis(now))
	return err
}

// LocationPreferences implements location.PreferenceStore. A user with no
// stored preference yields nil and no error.
func (s *Store) LocationPreferences(ctx context.Context, userID string) (*location.HomePreference, error) {
	var pref location.HomePreference
	err := s.db.QueryRowContext(ctx, `
		SELECT home_city, home_area, home_country
		FROM location_preferences
		WHERE user_id = ?
	`, userID).Scan(&pref.HomeCity, &pref.HomeArea, &pref.HomeCountry)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get location preferences: %w", err)
	}
	return &pref, nil
}
