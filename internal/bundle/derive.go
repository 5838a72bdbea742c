package bundle

import (
	"fmt"
	"math"

	"github.com/roach88/whereabouts/internal/model"
)

// DeriveTags evaluates every tag rule; tags are not first-match.
func DeriveTags(b *model.ContextBundle) []model.EnvironmentTag {
	tags := []model.EnvironmentTag{}
	if b.Mobility.DistanceTolerance.IsLocal() {
		tags = append(tags, model.TagLocalOnly)
	}
	if b.Mobility.ModePreference == model.ModeWalking {
		tags = append(tags, model.TagWalkable)
	}
	switch b.Environment.IndoorOutdoorPreference {
	case model.PreferIndoor:
		tags = append(tags, model.TagIndoorPreferred)
	case model.PreferOutdoor:
		tags = append(tags, model.TagOutdoorPreferred)
	}
	if w := b.Environment.WeatherSuitability; w != model.WeatherUnknown && w != model.WeatherIdeal {
		tags = append(tags, model.TagWeatherDependent)
	}
	if b.Mobility.AccessLevel.NeedsAccommodation() {
		tags = append(tags, model.TagAccessibilityNeeded)
	}
	return tags
}

// OverallConfidence is the rounded mean of the three component confidences.
func OverallConfidence(b *model.ContextBundle) int {
	sum := clamp(b.Location.Confidence) + clamp(b.Mobility.Confidence) + clamp(b.Environment.Confidence)
	return int(math.Round(float64(sum) / 3))
}

// Reseal recomputes everything derived from the sub-structures: tags,
// overall confidence and the content hash. Call it after any mutation.
func Reseal(b *model.ContextBundle) error {
	b.EnvironmentTags = DeriveTags(b)
	b.OverallConfidence = OverallConfidence(b)
	h, err := b.ComputeHash()
	if err != nil {
		return fmt.Errorf("reseal bundle %s: %w", b.BundleID, err)
	}
	b.BundleHash = h
	return nil
}

func clamp(c int) int {
	return max(0, min(100, c))
}
