package model

import "slices"

// EnvFlag is a single environmental constraint flag.
type EnvFlag string

const (
	FlagAvoidLateNight    EnvFlag = "avoid_late_night"
	FlagDaylightPreferred EnvFlag = "daylight_preferred"
	FlagIndoorPreferred   EnvFlag = "indoor_preferred"
	FlagOutdoorOK         EnvFlag = "outdoor_ok"
)

// Valid reports whether f is a known flag.
func (f EnvFlag) Valid() bool {
	switch f {
	case FlagAvoidLateNight, FlagDaylightPreferred, FlagIndoorPreferred, FlagOutdoorOK:
		return true
	}
	return false
}

// TimeOfDaySafety grades the reference time.
type TimeOfDaySafety string

const (
	SafetySafe    TimeOfDaySafety = "safe"
	SafetyCaution TimeOfDaySafety = "caution"
	SafetyUnknown TimeOfDaySafety = "unknown"
)

// Valid reports whether s is a known safety grade.
func (s TimeOfDaySafety) Valid() bool {
	return s == SafetySafe || s == SafetyCaution || s == SafetyUnknown
}

// WeatherSuitability grades current weather for going out.
type WeatherSuitability string

const (
	WeatherIdeal      WeatherSuitability = "ideal"
	WeatherUnsuitable WeatherSuitability = "unsuitable"
	WeatherUnknown    WeatherSuitability = "unknown"
)

// Valid reports whether w is a known weather grade.
func (w WeatherSuitability) Valid() bool {
	return w == WeatherIdeal || w == WeatherUnsuitable || w == WeatherUnknown
}

// IndoorOutdoor is the resolved indoor/outdoor preference.
type IndoorOutdoor string

const (
	PreferIndoor  IndoorOutdoor = "indoor"
	PreferOutdoor IndoorOutdoor = "outdoor"
	PreferEither  IndoorOutdoor = "either"
)

// Valid reports whether p is a known preference.
func (p IndoorOutdoor) Valid() bool {
	return p == PreferIndoor || p == PreferOutdoor || p == PreferEither
}

// EnvironmentalConstraints are the time and environment derived constraints.
// Flags is a set kept sorted and free of duplicates.
type EnvironmentalConstraints struct {
	Flags                   []EnvFlag          `json:"flags"`
	TimeOfDaySafety         TimeOfDaySafety    `json:"time_of_day_safety"`
	WeatherSuitability      WeatherSuitability `json:"weather_suitability"`
	IndoorOutdoorPreference IndoorOutdoor      `json:"indoor_outdoor_preference"`
	IsLateNight             bool               `json:"is_late_night"`
	IsEarlyMorning          bool               `json:"is_early_morning"`
	Confidence              int                `json:"confidence"`
}

// HasFlag reports whether f is set.
func (e EnvironmentalConstraints) HasFlag(f EnvFlag) bool {
	return slices.Contains(e.Flags, f)
}

// AddFlag inserts f, keeping Flags sorted and unique.
func (e *EnvironmentalConstraints) AddFlag(f EnvFlag) {
	if e.HasFlag(f) {
		return
	}
	e.Flags = append(e.Flags, f)
	slices.Sort(e.Flags)
}
