package location

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/whereabouts/internal/model"
	"github.com/roach88/whereabouts/internal/policy"
)

var now = time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC)

type fakePrefs struct {
	pref  *HomePreference
	err   error
	calls int
}

func (f *fakePrefs) LocationPreferences(context.Context, string) (*HomePreference, error) {
	f.calls++
	return f.pref, f.err
}

type fakeVisits struct {
	visits []Visit
	err    error
	calls  int
	limit  int
}

func (f *fakeVisits) RecentVisits(_ context.Context, _ string, q VisitQuery) ([]Visit, error) {
	f.calls++
	f.limit = q.Limit
	return f.visits, f.err
}

func visitsIn(cities ...string) []Visit {
	out := make([]Visit, len(cities))
	for i, c := range cities {
		out[i] = Visit{
			Location:  model.Place{City: c, Country: "Germany"},
			Timestamp: now.Add(-time.Duration(i) * time.Hour),
		}
	}
	return out
}

func newResolver(opts ...Option) *Resolver {
	return NewResolver(policy.Default().Location, opts...)
}

func TestTiers_Order(t *testing.T) {
	assert.Equal(t, []model.LocationSource{
		model.SourceExplicit,
		model.SourcePreferences,
		model.SourceVisitHistory,
		model.SourceInferred,
		model.SourceDefault,
	}, Tiers())
}

func TestResolve_ExplicitCity(t *testing.T) {
	prefs := &fakePrefs{pref: &HomePreference{HomeCity: "Paris"}}
	r := newResolver(WithPreferenceStore(prefs))

	loc := r.Resolve(context.Background(), Inputs{
		Explicit: &model.Place{City: "Berlin", Country: "Germany"},
		Now:      now,
	})

	require.NotNil(t, loc.City)
	assert.Equal(t, "Berlin", *loc.City)
	assert.Equal(t, model.PrecisionCity, loc.Precision)
	assert.Equal(t, 90, loc.Confidence)
	assert.Equal(t, model.SourceExplicit, loc.Source)
	assert.Equal(t, "Europe/Berlin", model.StringValue(loc.Timezone))
	assert.Equal(t, model.UrbanDensityUrban, loc.UrbanDensity)
	assert.Equal(t, now, loc.ResolvedAt)
	assert.Zero(t, prefs.calls, "later tiers are skipped, not consulted")
}

func TestResolve_ExplicitCountryOnly(t *testing.T) {
	r := newResolver()

	loc := r.Resolve(context.Background(), Inputs{Explicit: &model.Place{Country: "France"}, Now: now})

	assert.Nil(t, loc.City)
	assert.Equal(t, model.PrecisionCountry, loc.Precision)
	assert.Equal(t, 90, loc.Confidence)
	assert.Equal(t, "Europe/Paris", model.StringValue(loc.Timezone))
	assert.Equal(t, model.UrbanDensityUnknown, loc.UrbanDensity)
}

func TestResolve_EmptyExplicitFallsThrough(t *testing.T) {
	r := newResolver()

	loc := r.Resolve(context.Background(), Inputs{Explicit: &model.Place{}, Now: now})
	assert.Equal(t, model.SourceDefault, loc.Source)
}

func TestResolve_Preferences(t *testing.T) {
	r := newResolver(WithPreferenceStore(&fakePrefs{pref: &HomePreference{HomeCity: "Hamburg", HomeArea: "Altona"}}))

	loc := r.Resolve(context.Background(), Inputs{UserID: "u1", Now: now})

	assert.Equal(t, "Hamburg", model.StringValue(loc.City))
	assert.Equal(t, "Altona", model.StringValue(loc.Region))
	assert.Equal(t, model.PrecisionCity, loc.Precision)
	assert.Equal(t, 70, loc.Confidence)
	assert.Equal(t, model.TravelStateHome, loc.TravelState)
	assert.Equal(t, model.SourcePreferences, loc.Source)
	assert.Nil(t, loc.Timezone, "no country means no timezone")
}

func TestResolve_PreferencesAreaOnly(t *testing.T) {
	r := newResolver(WithPreferenceStore(&fakePrefs{pref: &HomePreference{HomeArea: "Bavaria"}}))

	loc := r.Resolve(context.Background(), Inputs{Now: now})
	assert.Equal(t, model.PrecisionArea, loc.Precision)
	assert.Nil(t, loc.City)
}

func TestResolve_PreferenceErrorFallsThrough(t *testing.T) {
	visits := &fakeVisits{visits: visitsIn("Berlin")}
	r := newResolver(
		WithPreferenceStore(&fakePrefs{err: errors.New("connection refused")}),
		WithVisitStore(visits),
	)

	loc := r.Resolve(context.Background(), Inputs{Now: now})

	assert.Equal(t, model.SourceVisitHistory, loc.Source)
	assert.Equal(t, 60, loc.Confidence)
	assert.Equal(t, 1, visits.calls)
	assert.Equal(t, 5, visits.limit)
}

func TestResolve_VisitsHome(t *testing.T) {
	r := newResolver(WithVisitStore(&fakeVisits{visits: visitsIn("Berlin", "Potsdam", "Berlin", "berlin", "Potsdam")}))

	loc := r.Resolve(context.Background(), Inputs{Now: now})

	assert.Equal(t, "Berlin", model.StringValue(loc.City))
	assert.Equal(t, model.TravelStateHome, loc.TravelState, "two distinct cities is not traveling")
}

func TestResolve_VisitsTraveling(t *testing.T) {
	r := newResolver(WithVisitStore(&fakeVisits{visits: visitsIn("Lyon", "Paris", "Berlin", "Lyon", "Paris")}))

	loc := r.Resolve(context.Background(), Inputs{Now: now})

	assert.Equal(t, "Lyon", model.StringValue(loc.City), "most recent visit wins")
	assert.Equal(t, model.TravelStateTraveling, loc.TravelState)
}

func TestResolve_VisitsResolvedAtNewestVisit(t *testing.T) {
	visits := visitsIn("Lyon", "Paris")
	visits[0].Timestamp = now.Add(-10 * time.Minute)
	r := newResolver(WithVisitStore(&fakeVisits{visits: visits}))

	loc := r.Resolve(context.Background(), Inputs{Now: now})
	assert.Equal(t, now.Add(-10*time.Minute), loc.ResolvedAt)

	visits[0].Timestamp = now.Add(time.Hour)
	loc = r.Resolve(context.Background(), Inputs{Now: now})
	assert.Equal(t, now, loc.ResolvedAt, "a visit stamped in the future counts as now")
}

func TestResolve_VisitsWindowIsFive(t *testing.T) {
	// The 6th and 7th visits would push distinct cities above two, but fall
	// outside the window.
	r := newResolver(WithVisitStore(&fakeVisits{visits: visitsIn("Berlin", "Berlin", "Potsdam", "Berlin", "Berlin", "Lyon", "Paris")}))

	loc := r.Resolve(context.Background(), Inputs{Now: now})
	assert.Equal(t, model.TravelStateHome, loc.TravelState)
}

func TestResolve_VisitStoreErrorFallsThroughToHint(t *testing.T) {
	r := newResolver(WithVisitStore(&fakeVisits{err: errors.New("timeout")}))

	loc := r.Resolve(context.Background(), Inputs{SituationHint: &model.Place{City: "Vienna", Country: "Austria"}, Now: now})

	assert.Equal(t, model.SourceInferred, loc.Source)
	assert.Equal(t, 40, loc.Confidence)
	assert.Equal(t, model.PrecisionCity, loc.Precision)
	assert.Equal(t, "Europe/Vienna", model.StringValue(loc.Timezone))
}

func TestResolve_EmptyVisitsFallThrough(t *testing.T) {
	r := newResolver(WithVisitStore(&fakeVisits{visits: []Visit{{Timestamp: now}}}))

	loc := r.Resolve(context.Background(), Inputs{Now: now})
	assert.Equal(t, model.SourceDefault, loc.Source)
}

func TestResolve_Default(t *testing.T) {
	r := newResolver()

	loc := r.Resolve(context.Background(), Inputs{Now: now})

	assert.Nil(t, loc.City)
	assert.Nil(t, loc.Region)
	assert.Nil(t, loc.Country)
	assert.Nil(t, loc.Timezone)
	assert.Equal(t, 0, loc.Confidence)
	assert.Equal(t, model.SourceDefault, loc.Source)
	assert.Equal(t, model.TravelStateUnknown, loc.TravelState)
	assert.Equal(t, model.PrecisionCountry, loc.Precision)
	assert.Equal(t, model.UrbanDensityUnknown, loc.UrbanDensity)
}

func TestTables(t *testing.T) {
	assert.Equal(t, "Europe/Berlin", model.StringValue(TimezoneFor(" GERMANY ")))
	assert.Equal(t, "Europe/Berlin", model.StringValue(TimezoneFor("DE")))
	assert.Nil(t, TimezoneFor("Atlantis"))
	assert.Equal(t, model.UrbanDensityUrban, UrbanDensityFor("new york"))
	assert.Equal(t, model.UrbanDensityUnknown, UrbanDensityFor("Smallville"))
	assert.Equal(t, model.UrbanDensityUnknown, UrbanDensityFor(""))
}
