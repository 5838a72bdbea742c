package model

import (
	"slices"
	"time"
)

// EnvironmentTag is a derived, filter-friendly label on a bundle.
type EnvironmentTag string

const (
	TagLocalOnly           EnvironmentTag = "local_only"
	TagWalkable            EnvironmentTag = "walkable"
	TagIndoorPreferred     EnvironmentTag = "indoor_preferred"
	TagOutdoorPreferred    EnvironmentTag = "outdoor_preferred"
	TagWeatherDependent    EnvironmentTag = "weather_dependent"
	TagAccessibilityNeeded EnvironmentTag = "accessibility_needed"
)

// DataFreshness classifies the age of the location resolution.
type DataFreshness string

const (
	FreshnessFresh   DataFreshness = "fresh"
	FreshnessRecent  DataFreshness = "recent"
	FreshnessStale   DataFreshness = "stale"
	FreshnessUnknown DataFreshness = "unknown"
)

// OverrideType selects the sub-structure an override applies to.
type OverrideType string

const (
	OverrideLocation    OverrideType = "location"
	OverrideMobility    OverrideType = "mobility"
	OverrideEnvironment OverrideType = "environment"
)

// Valid reports whether t is a known override type.
func (t OverrideType) Valid() bool {
	return t == OverrideLocation || t == OverrideMobility || t == OverrideEnvironment
}

// SourceTag is the sources_used entry recorded for an override of type t.
func (t OverrideType) SourceTag() string {
	return "override_" + string(t)
}

// AppliedOverride records an override merged into a bundle.
type AppliedOverride struct {
	ID        string       `json:"id"`
	Type      OverrideType `json:"type"`
	Reason    string       `json:"reason,omitempty"`
	AppliedAt time.Time    `json:"applied_at"`
	ExpiresAt *time.Time   `json:"expires_at,omitempty"`
}

// Expired reports whether the override has an expiry at or before now.
func (o AppliedOverride) Expired(now time.Time) bool {
	return o.ExpiresAt != nil && !now.Before(*o.ExpiresAt)
}

// ContextBundle is the aggregated, hashed snapshot of location, mobility and
// environment for one (user, session).
//
// BundleHash covers only the three sub-structures; timestamps, ids and the
// derived fields are excluded so identical inputs hash identically.
type ContextBundle struct {
	BundleID          string                   `json:"bundle_id"`
	BundleHash        string                   `json:"bundle_hash"`
	ComputedAt        time.Time                `json:"computed_at"`
	UserID            string                   `json:"user_id"`
	SessionID         string                   `json:"session_id"`
	Location          LocationContext          `json:"location"`
	Mobility          MobilityProfile          `json:"mobility"`
	Environment       EnvironmentalConstraints `json:"environment"`
	EnvironmentTags   []EnvironmentTag         `json:"environment_tags"`
	OverallConfidence int                      `json:"overall_confidence"`
	DataFreshness     DataFreshness            `json:"data_freshness"`
	SourcesUsed       []string                 `json:"sources_used"`
	FallbackApplied   bool                     `json:"fallback_applied"`
	FallbackReason    string                   `json:"fallback_reason,omitempty"`
	Overrides         []AppliedOverride        `json:"overrides,omitempty"`
}

// HasTag reports whether the bundle carries tag.
func (b *ContextBundle) HasTag(tag EnvironmentTag) bool {
	return slices.Contains(b.EnvironmentTags, tag)
}

// ExpiredOverride reports whether any applied override has lapsed at now.
func (b *ContextBundle) ExpiredOverride(now time.Time) bool {
	for _, o := range b.Overrides {
		if o.Expired(now) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the bundle. Caches hand out clones so a
// caller mutating its copy never touches the cached entry.
func (b *ContextBundle) Clone() *ContextBundle {
	if b == nil {
		return nil
	}
	c := *b
	c.Location.City = cloneString(b.Location.City)
	c.Location.Region = cloneString(b.Location.Region)
	c.Location.Country = cloneString(b.Location.Country)
	c.Location.Timezone = cloneString(b.Location.Timezone)
	if b.Mobility.HasVehicle != nil {
		v := *b.Mobility.HasVehicle
		c.Mobility.HasVehicle = &v
	}
	c.Mobility.InferredFrom = slices.Clone(b.Mobility.InferredFrom)
	c.Environment.Flags = slices.Clone(b.Environment.Flags)
	c.EnvironmentTags = slices.Clone(b.EnvironmentTags)
	c.SourcesUsed = slices.Clone(b.SourcesUsed)
	if b.Overrides != nil {
		c.Overrides = make([]AppliedOverride, len(b.Overrides))
		for i, o := range b.Overrides {
			c.Overrides[i] = o
			if o.ExpiresAt != nil {
				t := *o.ExpiresAt
				c.Overrides[i].ExpiresAt = &t
			}
		}
	}
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
