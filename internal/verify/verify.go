// Package verify checks bundle hashes and compares bundles field by field.
// It backs regression tests and override auditing.
package verify

import (
	"errors"
	"fmt"

	"github.com/roach88/whereabouts/internal/model"
)

// Compared paths, in report order.
const (
	PathLocationCity             = "location.city"
	PathLocationCountry          = "location.country"
	PathMobilityMode             = "mobility.mode_preference"
	PathMobilityTolerance        = "mobility.distance_tolerance"
	PathEnvironmentIndoorOutdoor = "environment.indoor_outdoor_preference"
)

type field struct {
	path string
	get  func(*model.ContextBundle) string
}

var fields = []field{
	{PathLocationCity, func(b *model.ContextBundle) string { return model.StringValue(b.Location.City) }},
	{PathLocationCountry, func(b *model.ContextBundle) string { return model.StringValue(b.Location.Country) }},
	{PathMobilityMode, func(b *model.ContextBundle) string { return string(b.Mobility.ModePreference) }},
	{PathMobilityTolerance, func(b *model.ContextBundle) string { return string(b.Mobility.DistanceTolerance) }},
	{PathEnvironmentIndoorOutdoor, func(b *model.ContextBundle) string { return string(b.Environment.IndoorOutdoorPreference) }},
}

// ErrNilBundle is returned when a nil bundle is verified.
var ErrNilBundle = errors.New("nil bundle")

// BundleIntegrity recomputes the content hash and reports whether it matches
// the stored bundle_hash.
func BundleIntegrity(b *model.ContextBundle) (bool, error) {
	if b == nil {
		return false, ErrNilBundle
	}
	h, err := b.ComputeHash()
	if err != nil {
		return false, fmt.Errorf("verify bundle %s: %w", b.BundleID, err)
	}
	return h == b.BundleHash, nil
}

// Difference is one compared field whose values disagree.
type Difference struct {
	Path  string `json:"path"`
	Left  string `json:"left"`
	Right string `json:"right"`
}

// Result is the outcome of a determinism comparison.
type Result struct {
	Match       bool         `json:"match"`
	Differences []Difference `json:"differences"`
}

// Paths returns the differing paths in report order.
func (r Result) Paths() []string {
	paths := make([]string, len(r.Differences))
	for i, d := range r.Differences {
		paths[i] = d.Path
	}
	return paths
}

// Determinism compares the fields that drive filtering. Timestamps, ids and
// confidences are ignored.
func Determinism(b1, b2 *model.ContextBundle) (Result, error) {
	if b1 == nil || b2 == nil {
		return Result{}, ErrNilBundle
	}
	res := Result{Match: true, Differences: []Difference{}}
	for _, f := range fields {
		l, r := f.get(b1), f.get(b2)
		if l != r {
			res.Match = false
			res.Differences = append(res.Differences, Difference{Path: f.path, Left: l, Right: r})
		}
	}
	return res, nil
}
