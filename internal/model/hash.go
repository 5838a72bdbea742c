package model

import (
	"slices"

	"github.com/roach88/whereabouts/internal/canon"
)

// Canonical field list for the bundle hash. Adding a field here changes every
// hash, so bump canon.DomainBundle when doing so.

func (l LocationContext) canonical() canon.Object {
	obj := canon.Object{
		"travel_state":  canon.String(l.TravelState),
		"urban_density": canon.String(l.UrbanDensity),
		"precision":     canon.String(l.Precision),
		"confidence":    canon.Int(l.Confidence),
		"source":        canon.String(l.Source),
	}
	obj.SetOptional("city", l.City)
	obj.SetOptional("region", l.Region)
	obj.SetOptional("country", l.Country)
	obj.SetOptional("timezone", l.Timezone)
	return obj
}

func (m MobilityProfile) canonical() canon.Object {
	obj := canon.Object{
		"mode_preference":    canon.String(m.ModePreference),
		"distance_tolerance": canon.String(m.DistanceTolerance),
		"access_level":       canon.String(m.AccessLevel),
		"confidence":         canon.Int(m.Confidence),
		"inferred_from":      canon.Strings(m.InferredFrom),
	}
	obj.SetOptionalBool("has_vehicle", m.HasVehicle)
	return obj
}

func (e EnvironmentalConstraints) canonical() canon.Object {
	flags := make([]string, len(e.Flags))
	for i, f := range e.Flags {
		flags[i] = string(f)
	}
	slices.Sort(flags)
	return canon.Object{
		"flags":                     canon.Strings(flags),
		"time_of_day_safety":        canon.String(e.TimeOfDaySafety),
		"weather_suitability":       canon.String(e.WeatherSuitability),
		"indoor_outdoor_preference": canon.String(e.IndoorOutdoorPreference),
		"is_late_night":             canon.Bool(e.IsLateNight),
		"is_early_morning":          canon.Bool(e.IsEarlyMorning),
		"confidence":                canon.Int(e.Confidence),
	}
}

// Canonical returns the substantive content of the bundle as a canonical
// document: the three sub-structures, without timestamps.
func (b *ContextBundle) Canonical() canon.Object {
	return canon.Object{
		"location":    b.Location.canonical(),
		"mobility":    b.Mobility.canonical(),
		"environment": b.Environment.canonical(),
	}
}

// ComputeHash returns the content hash of the bundle's substantive fields.
func (b *ContextBundle) ComputeHash() (string, error) {
	return canon.Hash(canon.DomainBundle, b.Canonical())
}
