package engine

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/roach88/whereabouts/internal/bundle"
	"github.com/roach88/whereabouts/internal/cache"
	"github.com/roach88/whereabouts/internal/location"
	"github.com/roach88/whereabouts/internal/model"
	"github.com/roach88/whereabouts/internal/telemetry"
)

// OverrideRequest replaces fields of one sub-structure of the cached bundle.
//
// Overrides maps field names to values as decoded from JSON or YAML. Keys
// are the sub-structure's JSON field names; a null location string clears
// the field.
type OverrideRequest struct {
	UserID          string         `json:"user_id,omitempty" yaml:"user_id,omitempty"`
	SessionID       string         `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	Type            string         `json:"override_type" yaml:"override_type"`
	Overrides       map[string]any `json:"overrides" yaml:"overrides"`
	DurationMinutes *int           `json:"duration_minutes,omitempty" yaml:"duration_minutes,omitempty"`
	Reason          string         `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// OverrideResult is the outcome of OverrideContext.
type OverrideResult struct {
	OverrideID string               `json:"override_id"`
	ExpiresAt  *time.Time           `json:"expires_at,omitempty"`
	Bundle     *model.ContextBundle `json:"bundle"`
}

// setter applies one override value. It returns an error describing why
// the value is unacceptable.
type setter func(b *model.ContextBundle, v any) error

var overrideFields = map[model.OverrideType]map[string]setter{
	model.OverrideLocation: {
		"city":     optionalString(func(b *model.ContextBundle, s *string) { b.Location.City = s }),
		"region":   optionalString(func(b *model.ContextBundle, s *string) { b.Location.Region = s }),
		"country":  optionalString(func(b *model.ContextBundle, s *string) { b.Location.Country = s }),
		"timezone": optionalString(func(b *model.ContextBundle, s *string) { b.Location.Timezone = s }),
		"travel_state": enum(model.TravelState.Valid, func(b *model.ContextBundle, v model.TravelState) {
			b.Location.TravelState = v
		}),
		"urban_density": enum(model.UrbanDensity.Valid, func(b *model.ContextBundle, v model.UrbanDensity) {
			b.Location.UrbanDensity = v
		}),
		"precision": enum(model.Precision.Valid, func(b *model.ContextBundle, v model.Precision) {
			b.Location.Precision = v
		}),
	},
	model.OverrideMobility: {
		"mode_preference": enum(model.ModePreference.Valid, func(b *model.ContextBundle, v model.ModePreference) {
			b.Mobility.ModePreference = v
		}),
		"distance_tolerance": enum(model.DistanceTolerance.Valid, func(b *model.ContextBundle, v model.DistanceTolerance) {
			b.Mobility.DistanceTolerance = v
		}),
		"access_level": enum(model.AccessLevel.Valid, func(b *model.ContextBundle, v model.AccessLevel) {
			b.Mobility.AccessLevel = v
		}),
		"has_vehicle": boolean(func(b *model.ContextBundle, v bool) { b.Mobility.HasVehicle = &v }),
	},
	model.OverrideEnvironment: {
		"flags": setFlags,
		"time_of_day_safety": enum(model.TimeOfDaySafety.Valid, func(b *model.ContextBundle, v model.TimeOfDaySafety) {
			b.Environment.TimeOfDaySafety = v
		}),
		"weather_suitability": enum(model.WeatherSuitability.Valid, func(b *model.ContextBundle, v model.WeatherSuitability) {
			b.Environment.WeatherSuitability = v
		}),
		"indoor_outdoor_preference": enum(model.IndoorOutdoor.Valid, func(b *model.ContextBundle, v model.IndoorOutdoor) {
			b.Environment.IndoorOutdoorPreference = v
		}),
		"is_late_night":    boolean(func(b *model.ContextBundle, v bool) { b.Environment.IsLateNight = v }),
		"is_early_morning": boolean(func(b *model.ContextBundle, v bool) { b.Environment.IsEarlyMorning = v }),
	},
}

// OverrideFields returns the accepted override keys for t, sorted.
func OverrideFields(t model.OverrideType) []string {
	keys := make([]string, 0, len(overrideFields[t]))
	for k := range overrideFields[t] {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// OverrideContext merges the overrides into the cached bundle for
// (user, session), pins that sub-structure's confidence at 100, reseals and
// re-caches the bundle. The bundle keeps its id.
//
// With DurationMinutes set the override lapses at applied_at + duration; a
// cached bundle carrying a lapsed override is treated as a miss. The cache
// TTL restarts when the overridden bundle is stored, so the override lives
// until whichever of the two ends first.
func (e *Engine) OverrideContext(ctx context.Context, req OverrideRequest) (*OverrideResult, error) {
	key := cache.NewKey(req.UserID, req.SessionID)

	typ := model.OverrideType(req.Type)
	if !typ.Valid() {
		return nil, invalidArgument(OpOverrideContext, "unknown override_type %q: must be location, mobility or environment", req.Type)
	}
	if len(req.Overrides) == 0 {
		return nil, invalidArgument(OpOverrideContext, "overrides is empty")
	}
	if req.DurationMinutes != nil && *req.DurationMinutes <= 0 {
		return nil, invalidArgument(OpOverrideContext, "duration_minutes must be positive, got %d", *req.DurationMinutes)
	}

	e.overrideMu.Lock()
	defer e.overrideMu.Unlock()

	entry, ok, err := e.cache.Get(ctx, key)
	if err != nil {
		return nil, e.fail(ctx, key, internal(OpOverrideContext, "read cached bundle", err))
	}
	now := e.clock.Now()
	if !ok || entry.Bundle.ExpiredOverride(now) {
		return nil, notFound(OpOverrideContext, "no current context bundle for user %s session %s", key.UserID, key.SessionID)
	}

	b := entry.Bundle.Clone()
	if err := applyOverrides(b, typ, req.Overrides); err != nil {
		return nil, invalidArgument(OpOverrideContext, "%v", err)
	}

	applied := model.AppliedOverride{
		ID:        e.ids.Generate(),
		Type:      typ,
		Reason:    req.Reason,
		AppliedAt: now,
	}
	if req.DurationMinutes != nil {
		exp := now.Add(time.Duration(*req.DurationMinutes) * time.Minute)
		applied.ExpiresAt = &exp
	}

	if typ == model.OverrideLocation {
		b.Location.ResolvedAt = now
	}
	e.classify(b, now)
	b.ComputedAt = now
	b.SourcesUsed = append(b.SourcesUsed, typ.SourceTag())
	b.Overrides = append(b.Overrides, applied)
	if err := bundle.Reseal(b); err != nil {
		return nil, e.fail(ctx, key, internal(OpOverrideContext, "reseal bundle", err))
	}
	if err := e.cache.Set(ctx, key, b); err != nil {
		return nil, e.fail(ctx, key, internal(OpOverrideContext, "cache overridden bundle", err))
	}

	e.logger.Info("context overridden",
		"user_id", key.UserID,
		"bundle_id", b.BundleID,
		"override_type", typ,
		"override_id", applied.ID,
	)
	e.emit(ctx, telemetry.EventContextOverridden, key, b.BundleID, map[string]any{
		"override_id":   applied.ID,
		"override_type": string(typ),
		"fields":        sortedKeys(req.Overrides),
		"bundle_hash":   b.BundleHash,
	})

	return &OverrideResult{OverrideID: applied.ID, ExpiresAt: applied.ExpiresAt, Bundle: b}, nil
}

// applyOverrides validates every key before mutating anything, so a bad
// request leaves b untouched.
func applyOverrides(b *model.ContextBundle, typ model.OverrideType, overrides map[string]any) error {
	fields := overrideFields[typ]
	keys := sortedKeys(overrides)
	for _, k := range keys {
		if _, ok := fields[k]; !ok {
			return fmt.Errorf("unknown %s override field %q", typ, k)
		}
	}

	scratch := b.Clone()
	for _, k := range keys {
		if err := fields[k](scratch, overrides[k]); err != nil {
			return fmt.Errorf("%s override %s: %w", typ, k, err)
		}
	}

	switch typ {
	case model.OverrideLocation:
		deriveLocation(scratch, overrides)
		scratch.Location.Confidence = 100
	case model.OverrideMobility:
		scratch.Mobility.Confidence = 100
	case model.OverrideEnvironment:
		scratch.Environment.Confidence = 100
	}

	*b = *scratch
	return nil
}

// deriveLocation fills the lookup-derived location fields for a changed
// place unless the override set them itself.
func deriveLocation(b *model.ContextBundle, overrides map[string]any) {
	_, hasTZ := overrides["timezone"]
	if _, ok := overrides["country"]; ok && !hasTZ {
		b.Location.Timezone = location.TimezoneFor(model.StringValue(b.Location.Country))
	}
	if _, ok := overrides["city"]; ok {
		if _, set := overrides["urban_density"]; !set {
			b.Location.UrbanDensity = location.UrbanDensityFor(model.StringValue(b.Location.City))
		}
		if _, set := overrides["precision"]; !set && b.Location.City != nil {
			b.Location.Precision = model.PrecisionCity
		}
	}
}

func optionalString(set func(*model.ContextBundle, *string)) setter {
	return func(b *model.ContextBundle, v any) error {
		switch s := v.(type) {
		case nil:
			set(b, nil)
		case string:
			set(b, model.StringPtr(s))
		default:
			return fmt.Errorf("want string or null, got %T", v)
		}
		return nil
	}
}

func enum[T ~string](valid func(T) bool, set func(*model.ContextBundle, T)) setter {
	return func(b *model.ContextBundle, v any) error {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("want string, got %T", v)
		}
		if !valid(T(s)) {
			return fmt.Errorf("unknown value %q", s)
		}
		set(b, T(s))
		return nil
	}
}

func boolean(set func(*model.ContextBundle, bool)) setter {
	return func(b *model.ContextBundle, v any) error {
		x, ok := v.(bool)
		if !ok {
			return fmt.Errorf("want bool, got %T", v)
		}
		set(b, x)
		return nil
	}
}

func setFlags(b *model.ContextBundle, v any) error {
	var raw []string
	switch xs := v.(type) {
	case []string:
		raw = xs
	case []any:
		for _, x := range xs {
			s, ok := x.(string)
			if !ok {
				return fmt.Errorf("want list of strings, got element %T", x)
			}
			raw = append(raw, s)
		}
	default:
		return fmt.Errorf("want list of strings, got %T", v)
	}

	b.Environment.Flags = []model.EnvFlag{}
	for _, s := range raw {
		f := model.EnvFlag(s)
		if !f.Valid() {
			return fmt.Errorf("unknown flag %q", s)
		}
		b.Environment.AddFlag(f)
	}
	return nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
