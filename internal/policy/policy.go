// Package policy holds the tunable thresholds of the context engine.
//
// Every confidence level, fallback threshold and distance ceiling the
// resolvers and the filter use lives here, so tie-break policy can be read,
// overridden from a file and tested in isolation. Default returns the
// production values.
package policy

import (
	"math"
	"time"

	"github.com/roach88/whereabouts/internal/model"
)

// Policy is the full set of engine thresholds.
type Policy struct {
	Location    LocationPolicy    `json:"location" yaml:"location"`
	Mobility    MobilityPolicy    `json:"mobility" yaml:"mobility"`
	Environment EnvironmentPolicy `json:"environment" yaml:"environment"`
	Bundle      BundlePolicy      `json:"bundle" yaml:"bundle"`
	Filter      FilterPolicy      `json:"filter" yaml:"filter"`
}

// LocationPolicy configures the location fallback tiers.
type LocationPolicy struct {
	ExplicitConfidence     int `json:"explicit_confidence" yaml:"explicit_confidence"`
	PreferenceConfidence   int `json:"preference_confidence" yaml:"preference_confidence"`
	VisitHistoryConfidence int `json:"visit_history_confidence" yaml:"visit_history_confidence"`
	HintConfidence         int `json:"hint_confidence" yaml:"hint_confidence"`
	DefaultConfidence      int `json:"default_confidence" yaml:"default_confidence"`

	// VisitWindow is how many recent visits are inspected.
	VisitWindow int `json:"visit_window" yaml:"visit_window"`
	// TravelingCityThreshold: more distinct cities than this in the window
	// means the user is traveling.
	TravelingCityThreshold int `json:"traveling_city_threshold" yaml:"traveling_city_threshold"`
}

// MobilityPolicy configures the mobility inference layers.
type MobilityPolicy struct {
	ExplicitConfidence     int     `json:"explicit_confidence" yaml:"explicit_confidence"`
	ActivityThreshold      int     `json:"activity_threshold" yaml:"activity_threshold"`
	ActivityConfidence     int     `json:"activity_confidence" yaml:"activity_confidence"`
	VisitPatternThreshold  int     `json:"visit_pattern_threshold" yaml:"visit_pattern_threshold"`
	VisitPatternConfidence int     `json:"visit_pattern_confidence" yaml:"visit_pattern_confidence"`
	VeryLocalTripKm        float64 `json:"very_local_trip_km" yaml:"very_local_trip_km"`
	LocalTripKm            float64 `json:"local_trip_km" yaml:"local_trip_km"`
	AvailabilityFloor      int     `json:"availability_floor" yaml:"availability_floor"`
}

// EnvironmentPolicy configures time-of-day windows and confidence scoring.
// Late night is [LateNightStartHour, 24) ∪ [0, LateNightEndHour).
type EnvironmentPolicy struct {
	LateNightStartHour     int `json:"late_night_start_hour" yaml:"late_night_start_hour"`
	LateNightEndHour       int `json:"late_night_end_hour" yaml:"late_night_end_hour"`
	EarlyMorningEndHour    int `json:"early_morning_end_hour" yaml:"early_morning_end_hour"`
	BaseConfidence         int `json:"base_confidence" yaml:"base_confidence"`
	ReferenceTimeBonus     int `json:"reference_time_bonus" yaml:"reference_time_bonus"`
	LocationBonus          int `json:"location_bonus" yaml:"location_bonus"`
	LocationBonusThreshold int `json:"location_bonus_threshold" yaml:"location_bonus_threshold"`
	SituationBonus         int `json:"situation_bonus" yaml:"situation_bonus"`
}

// IsLateNight reports whether hour falls in the late-night window.
func (p EnvironmentPolicy) IsLateNight(hour int) bool {
	return hour >= p.LateNightStartHour || hour < p.LateNightEndHour
}

// IsEarlyMorning reports whether hour falls in the early-morning window.
func (p EnvironmentPolicy) IsEarlyMorning(hour int) bool {
	return hour >= p.LateNightEndHour && hour < p.EarlyMorningEndHour
}

// BundlePolicy configures caching, freshness and fallback marking.
type BundlePolicy struct {
	CacheTTLSeconds           int `json:"cache_ttl_seconds" yaml:"cache_ttl_seconds"`
	FallbackMobilityThreshold int `json:"fallback_mobility_threshold" yaml:"fallback_mobility_threshold"`
	FreshSeconds              int `json:"fresh_seconds" yaml:"fresh_seconds"`
	RecentSeconds             int `json:"recent_seconds" yaml:"recent_seconds"`
	StaleSeconds              int `json:"stale_seconds" yaml:"stale_seconds"`
}

// CacheTTL is the bundle cache lifetime.
func (p BundlePolicy) CacheTTL() time.Duration {
	return time.Duration(p.CacheTTLSeconds) * time.Second
}

// Freshness classifies the age of a location resolution.
func (p BundlePolicy) Freshness(age time.Duration) model.DataFreshness {
	switch {
	case age < 0:
		return model.FreshnessUnknown
	case age < time.Duration(p.FreshSeconds)*time.Second:
		return model.FreshnessFresh
	case age < time.Duration(p.RecentSeconds)*time.Second:
		return model.FreshnessRecent
	case age < time.Duration(p.StaleSeconds)*time.Second:
		return model.FreshnessStale
	}
	return model.FreshnessUnknown
}

// DistanceCeilings are the km ceilings per distance tolerance. The "any"
// tolerance is always unbounded.
type DistanceCeilings struct {
	VeryLocal float64 `json:"very_local" yaml:"very_local"`
	Local     float64 `json:"local" yaml:"local"`
	Moderate  float64 `json:"moderate" yaml:"moderate"`
	Regional  float64 `json:"regional" yaml:"regional"`
	Unknown   float64 `json:"unknown" yaml:"unknown"`
}

// For returns the ceiling for t. Unbounded tolerances return +Inf.
func (c DistanceCeilings) For(t model.DistanceTolerance) float64 {
	switch t {
	case model.ToleranceVeryLocal:
		return c.VeryLocal
	case model.ToleranceLocal:
		return c.Local
	case model.ToleranceModerate:
		return c.Moderate
	case model.ToleranceRegional:
		return c.Regional
	case model.ToleranceAny:
		return math.Inf(1)
	}
	return c.Unknown
}

// FilterPolicy configures the action filter's penalties.
type FilterPolicy struct {
	DistanceCeilingsKm     DistanceCeilings `json:"distance_ceilings_km" yaml:"distance_ceilings_km"`
	NearLimitRatio         float64          `json:"near_limit_ratio" yaml:"near_limit_ratio"`
	OverLimitPenalty       int              `json:"over_limit_penalty" yaml:"over_limit_penalty"`
	NearLimitPenalty       int              `json:"near_limit_penalty" yaml:"near_limit_penalty"`
	EffortLevelPenalty     int              `json:"effort_level_penalty" yaml:"effort_level_penalty"`
	MissingDistancePenalty int              `json:"missing_distance_penalty" yaml:"missing_distance_penalty"`
	CityMismatchPenalty    int              `json:"city_mismatch_penalty" yaml:"city_mismatch_penalty"`
}

// Default returns the production thresholds.
func Default() Policy {
	return Policy{
		Location: LocationPolicy{
			ExplicitConfidence:     90,
			PreferenceConfidence:   70,
			VisitHistoryConfidence: 60,
			HintConfidence:         40,
			DefaultConfidence:      0,
			VisitWindow:            5,
			TravelingCityThreshold: 2,
		},
		Mobility: MobilityPolicy{
			ExplicitConfidence:     90,
			ActivityThreshold:      70,
			ActivityConfidence:     60,
			VisitPatternThreshold:  50,
			VisitPatternConfidence: 50,
			VeryLocalTripKm:        2,
			LocalTripKm:            10,
			AvailabilityFloor:      70,
		},
		Environment: EnvironmentPolicy{
			LateNightStartHour:     22,
			LateNightEndHour:       5,
			EarlyMorningEndHour:    7,
			BaseConfidence:         50,
			ReferenceTimeBonus:     20,
			LocationBonus:          15,
			LocationBonusThreshold: 50,
			SituationBonus:         15,
		},
		Bundle: BundlePolicy{
			CacheTTLSeconds:           300,
			FallbackMobilityThreshold: 30,
			FreshSeconds:              60,
			RecentSeconds:             300,
			StaleSeconds:              3600,
		},
		Filter: FilterPolicy{
			DistanceCeilingsKm: DistanceCeilings{
				VeryLocal: 1,
				Local:     5,
				Moderate:  20,
				Regional:  100,
				Unknown:   10,
			},
			NearLimitRatio:         0.8,
			OverLimitPenalty:       40,
			NearLimitPenalty:       20,
			EffortLevelPenalty:     15,
			MissingDistancePenalty: 20,
			CityMismatchPenalty:    15,
		},
	}
}
