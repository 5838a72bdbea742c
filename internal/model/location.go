package model

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// TravelState describes whether the user is near their usual base.
type TravelState string

const (
	TravelStateHome      TravelState = "home"
	TravelStateTraveling TravelState = "traveling"
	TravelStateUnknown   TravelState = "unknown"
)

// UrbanDensity classifies the resolved city.
type UrbanDensity string

const (
	UrbanDensityUrban   UrbanDensity = "urban"
	UrbanDensityUnknown UrbanDensity = "unknown"
)

// Valid reports whether t is a known travel state.
func (t TravelState) Valid() bool {
	return t == TravelStateHome || t == TravelStateTraveling || t == TravelStateUnknown
}

// Valid reports whether d is a known density.
func (d UrbanDensity) Valid() bool {
	return d == UrbanDensityUrban || d == UrbanDensityUnknown
}

// Precision is the finest granularity the location is known at.
type Precision string

const (
	PrecisionCountry Precision = "country"
	PrecisionArea    Precision = "area"
	PrecisionCity    Precision = "city"
)

// Valid reports whether p is a known precision.
func (p Precision) Valid() bool {
	return p == PrecisionCountry || p == PrecisionArea || p == PrecisionCity
}

// LocationSource names the signal a LocationContext was resolved from.
type LocationSource string

const (
	SourceExplicit     LocationSource = "explicit"
	SourcePreferences  LocationSource = "preferences"
	SourceVisitHistory LocationSource = "visit_history"
	SourceInferred     LocationSource = "inferred"
	SourceDefault      LocationSource = "default"
)

// Place is a coarse place reference supplied by a caller or an upstream
// producer. Empty strings mean "not given".
type Place struct {
	City    string `json:"city,omitempty" yaml:"city,omitempty"`
	Region  string `json:"region,omitempty" yaml:"region,omitempty"`
	Country string `json:"country,omitempty" yaml:"country,omitempty"`
}

// IsZero reports whether no field of the place is set.
func (p Place) IsZero() bool {
	return p.City == "" && p.Region == "" && p.Country == ""
}

// LocationContext is the resolved location at city/region granularity.
type LocationContext struct {
	City         *string        `json:"city"`
	Region       *string        `json:"region"`
	Country      *string        `json:"country"`
	Timezone     *string        `json:"timezone"`
	TravelState  TravelState    `json:"travel_state"`
	UrbanDensity UrbanDensity   `json:"urban_density"`
	Precision    Precision      `json:"precision"`
	Confidence   int            `json:"confidence"`
	ResolvedAt   time.Time      `json:"resolved_at"`
	Source       LocationSource `json:"source"`
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// StringValue dereferences s, returning "" for nil.
func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// FoldName normalizes a place name for comparison: trimmed and case-folded.
// A Caser is stateful, so one is created per call.
func FoldName(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// SamePlaceName reports whether two place names refer to the same place
// ignoring case and surrounding space.
func SamePlaceName(a, b string) bool {
	return FoldName(a) == FoldName(b)
}
