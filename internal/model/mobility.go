package model

// ModePreference is the user's preferred way of getting around.
type ModePreference string

const (
	ModeWalking ModePreference = "walking"
	ModeCycling ModePreference = "cycling"
	ModeTransit ModePreference = "transit"
	ModeDriving ModePreference = "driving"
	ModeMixed   ModePreference = "mixed"
	ModeUnknown ModePreference = "unknown"
)

// Valid reports whether m is a known mode.
func (m ModePreference) Valid() bool {
	switch m {
	case ModeWalking, ModeCycling, ModeTransit, ModeDriving, ModeMixed, ModeUnknown:
		return true
	}
	return false
}

// DistanceTolerance is how far the user is willing to travel.
type DistanceTolerance string

const (
	ToleranceVeryLocal DistanceTolerance = "very_local"
	ToleranceLocal     DistanceTolerance = "local"
	ToleranceModerate  DistanceTolerance = "moderate"
	ToleranceRegional  DistanceTolerance = "regional"
	ToleranceAny       DistanceTolerance = "any"
	ToleranceUnknown   DistanceTolerance = "unknown"
)

// Valid reports whether d is a known tolerance.
func (d DistanceTolerance) Valid() bool {
	switch d {
	case ToleranceVeryLocal, ToleranceLocal, ToleranceModerate, ToleranceRegional, ToleranceAny, ToleranceUnknown:
		return true
	}
	return false
}

// IsLocal reports whether the tolerance keeps the user in their own city.
func (d DistanceTolerance) IsLocal() bool {
	return d == ToleranceVeryLocal || d == ToleranceLocal
}

// AccessLevel describes physical access needs.
type AccessLevel string

const (
	AccessLimited  AccessLevel = "limited"
	AccessAssisted AccessLevel = "assisted"
	AccessModerate AccessLevel = "moderate"
	AccessFull     AccessLevel = "full"
	AccessUnknown  AccessLevel = "unknown"
)

// Valid reports whether a is a known access level.
func (a AccessLevel) Valid() bool {
	switch a {
	case AccessLimited, AccessAssisted, AccessModerate, AccessFull, AccessUnknown:
		return true
	}
	return false
}

// NeedsAccommodation reports whether the level calls for accessible options.
func (a AccessLevel) NeedsAccommodation() bool {
	return a == AccessLimited || a == AccessAssisted
}

// MobilityProfile is the inferred travel capacity of the user.
//
// InferredFrom is append-only and keeps duplicates: it records every layer
// that contributed, in order.
type MobilityProfile struct {
	ModePreference    ModePreference    `json:"mode_preference"`
	DistanceTolerance DistanceTolerance `json:"distance_tolerance"`
	AccessLevel       AccessLevel       `json:"access_level"`
	HasVehicle        *bool             `json:"has_vehicle"`
	Confidence        int               `json:"confidence"`
	InferredFrom      []string          `json:"inferred_from"`
}

// ExplicitMobility is a caller-supplied mobility override. Zero fields are
// left to inference.
type ExplicitMobility struct {
	ModePreference    ModePreference    `json:"mode_preference,omitempty" yaml:"mode_preference,omitempty"`
	DistanceTolerance DistanceTolerance `json:"distance_tolerance,omitempty" yaml:"distance_tolerance,omitempty"`
	AccessLevel       AccessLevel       `json:"access_level,omitempty" yaml:"access_level,omitempty"`
	HasVehicle        *bool             `json:"has_vehicle,omitempty" yaml:"has_vehicle,omitempty"`
}
