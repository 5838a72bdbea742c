// Package location resolves a coarse LocationContext from ranked signals.
//
// Sources are tried in a fixed priority order (see Tiers) and resolution
// stops at the first tier that yields data. Store failures never abort
// resolution: they are logged and the next tier is tried. The result never
// carries anything finer than a city.
package location

import (
	"context"
	"log/slog"
	"time"

	"github.com/roach88/whereabouts/internal/model"
	"github.com/roach88/whereabouts/internal/policy"
)

// Inputs are the per-request signals available to the resolver.
type Inputs struct {
	UserID        string
	Explicit      *model.Place
	SituationHint *model.Place
	Now           time.Time
}

// candidate is what a tier yields before the lookup tables are applied.
type candidate struct {
	place      model.Place
	travel     model.TravelState
	precision  model.Precision
	confidence int
	observedAt time.Time // zero means observed now
}

// tier is one entry of the fallback chain. resolve returns false when the
// tier has no data.
type tier struct {
	source  model.LocationSource
	resolve func(r *Resolver, ctx context.Context, in Inputs) (candidate, bool)
}

// tiers is the fallback order. The default source is not a tier: it is what
// remains when every tier declines.
var tiers = []tier{
	{model.SourceExplicit, (*Resolver).fromExplicit},
	{model.SourcePreferences, (*Resolver).fromPreferences},
	{model.SourceVisitHistory, (*Resolver).fromVisits},
	{model.SourceInferred, (*Resolver).fromHint},
}

// Tiers returns the sources in the order they are tried, ending with the
// default.
func Tiers() []model.LocationSource {
	out := make([]model.LocationSource, 0, len(tiers)+1)
	for _, t := range tiers {
		out = append(out, t.source)
	}
	return append(out, model.SourceDefault)
}

// Resolver resolves location contexts. Stores are optional; a missing store
// is the same as a store with no data.
type Resolver struct {
	prefs  PreferenceStore
	visits VisitStore
	policy policy.LocationPolicy
	logger *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithPreferenceStore sets the home preference store.
func WithPreferenceStore(s PreferenceStore) Option {
	return func(r *Resolver) { r.prefs = s }
}

// WithVisitStore sets the visit history store.
func WithVisitStore(s VisitStore) Option {
	return func(r *Resolver) { r.visits = s }
}

// WithLogger sets the logger used for degraded-tier warnings.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// NewResolver creates a Resolver using the given thresholds.
func NewResolver(p policy.LocationPolicy, opts ...Option) *Resolver {
	r := &Resolver{policy: p, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve walks the tiers in order and returns the first match, or the
// default context at default confidence.
func (r *Resolver) Resolve(ctx context.Context, in Inputs) model.LocationContext {
	for _, t := range tiers {
		c, ok := t.resolve(r, ctx, in)
		if !ok {
			continue
		}
		r.logger.Debug("location resolved", "source", t.source, "confidence", c.confidence)
		return build(c, t.source, in.Now)
	}

	return model.LocationContext{
		TravelState:  model.TravelStateUnknown,
		UrbanDensity: model.UrbanDensityUnknown,
		Precision:    model.PrecisionCountry,
		Confidence:   r.policy.DefaultConfidence,
		ResolvedAt:   in.Now,
		Source:       model.SourceDefault,
	}
}

func build(c candidate, source model.LocationSource, now time.Time) model.LocationContext {
	resolvedAt := now
	if !c.observedAt.IsZero() && c.observedAt.Before(now) {
		resolvedAt = c.observedAt
	}
	return model.LocationContext{
		City:         model.StringPtr(c.place.City),
		Region:       model.StringPtr(c.place.Region),
		Country:      model.StringPtr(c.place.Country),
		Timezone:     TimezoneFor(c.place.Country),
		TravelState:  c.travel,
		UrbanDensity: UrbanDensityFor(c.place.City),
		Precision:    c.precision,
		Confidence:   c.confidence,
		ResolvedAt:   resolvedAt,
		Source:       source,
	}
}

func (r *Resolver) fromExplicit(_ context.Context, in Inputs) (candidate, bool) {
	if in.Explicit == nil || in.Explicit.IsZero() {
		return candidate{}, false
	}
	precision := model.PrecisionCountry
	if in.Explicit.City != "" {
		precision = model.PrecisionCity
	}
	return candidate{
		place:      *in.Explicit,
		travel:     model.TravelStateUnknown,
		precision:  precision,
		confidence: r.policy.ExplicitConfidence,
	}, true
}

func (r *Resolver) fromPreferences(ctx context.Context, in Inputs) (candidate, bool) {
	if r.prefs == nil {
		return candidate{}, false
	}
	pref, err := r.prefs.LocationPreferences(ctx, in.UserID)
	if err != nil {
		r.logger.Warn("preference lookup failed, falling through", "user_id", in.UserID, "error", err)
		return candidate{}, false
	}
	if pref == nil || (pref.HomeCity == "" && pref.HomeArea == "") {
		return candidate{}, false
	}

	precision := model.PrecisionArea
	if pref.HomeCity != "" {
		precision = model.PrecisionCity
	}
	return candidate{
		place:      model.Place{City: pref.HomeCity, Region: pref.HomeArea, Country: pref.HomeCountry},
		travel:     model.TravelStateHome,
		precision:  precision,
		confidence: r.policy.PreferenceConfidence,
	}, true
}

func (r *Resolver) fromVisits(ctx context.Context, in Inputs) (candidate, bool) {
	if r.visits == nil {
		return candidate{}, false
	}
	visits, err := r.visits.RecentVisits(ctx, in.UserID, VisitQuery{Limit: r.policy.VisitWindow})
	if err != nil {
		r.logger.Warn("visit history lookup failed, falling through", "user_id", in.UserID, "error", err)
		return candidate{}, false
	}
	if len(visits) > r.policy.VisitWindow {
		visits = visits[:r.policy.VisitWindow]
	}

	var (
		latest     *model.Place
		observedAt time.Time
	)
	distinct := make(map[string]struct{})
	for i := range visits {
		loc := visits[i].Location
		if loc.IsZero() {
			continue
		}
		if latest == nil {
			latest = &loc
			observedAt = visits[i].Timestamp
		}
		if loc.City != "" {
			distinct[model.FoldName(loc.City)] = struct{}{}
		}
	}
	if latest == nil {
		return candidate{}, false
	}

	travel := model.TravelStateHome
	if len(distinct) > r.policy.TravelingCityThreshold {
		travel = model.TravelStateTraveling
	}
	return candidate{
		place:      *latest,
		travel:     travel,
		precision:  precisionOf(*latest),
		confidence: r.policy.VisitHistoryConfidence,
		observedAt: observedAt,
	}, true
}

func (r *Resolver) fromHint(_ context.Context, in Inputs) (candidate, bool) {
	if in.SituationHint == nil || in.SituationHint.IsZero() {
		return candidate{}, false
	}
	return candidate{
		place:      *in.SituationHint,
		travel:     model.TravelStateUnknown,
		precision:  model.PrecisionCity,
		confidence: r.policy.HintConfidence,
	}, true
}

func precisionOf(p model.Place) model.Precision {
	switch {
	case p.City != "":
		return model.PrecisionCity
	case p.Region != "":
		return model.PrecisionArea
	}
	return model.PrecisionCountry
}
