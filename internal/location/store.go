package location

import (
	"context"
	"time"

	"github.com/roach88/whereabouts/internal/model"
)

// HomePreference is the user's stored home location.
type HomePreference struct {
	HomeCity    string `json:"home_city,omitempty" yaml:"home_city,omitempty"`
	HomeArea    string `json:"home_area,omitempty" yaml:"home_area,omitempty"`
	HomeCountry string `json:"home_country,omitempty" yaml:"home_country,omitempty"`
}

// Visit is one entry of the user's visit history.
type Visit struct {
	Location  model.Place `json:"location" yaml:"location"`
	Timestamp time.Time   `json:"timestamp" yaml:"timestamp"`
}

// VisitQuery bounds a visit history lookup. Zero From/To are unbounded.
type VisitQuery struct {
	From  time.Time
	To    time.Time
	Limit int
}

// PreferenceStore reads stored location preferences.
// A nil preference with a nil error means the user has none.
type PreferenceStore interface {
	LocationPreferences(ctx context.Context, userID string) (*HomePreference, error)
}

// VisitStore reads visit history, most recent first.
type VisitStore interface {
	RecentVisits(ctx context.Context, userID string, q VisitQuery) ([]Visit, error)
}
