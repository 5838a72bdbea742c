package model

// Situation is the pre-computed situation vector produced upstream. It is
// passed through unchanged; the engine only reads the fields below.
type Situation struct {
	Location          *Place   `json:"location,omitempty" yaml:"location,omitempty"`
	Energy            string   `json:"energy,omitempty" yaml:"energy,omitempty"`
	PrimaryActivity   string   `json:"primary_activity,omitempty" yaml:"primary_activity,omitempty"`
	ActivityLevel     string   `json:"activity_level,omitempty" yaml:"activity_level,omitempty"`
	AvgTripDistanceKm *float64 `json:"avg_trip_distance_km,omitempty" yaml:"avg_trip_distance_km,omitempty"`
}

// Availability is the pre-computed availability context produced upstream.
type Availability struct {
	EffortCapacity string `json:"effort_capacity,omitempty" yaml:"effort_capacity,omitempty"`
	Energy         string `json:"energy,omitempty" yaml:"energy,omitempty"`
}
