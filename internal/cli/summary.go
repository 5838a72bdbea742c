package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/roach88/whereabouts/internal/engine"
	"github.com/roach88/whereabouts/internal/model"
)

// The view types marshal exactly like the engine results they embed and add
// the text rendering used by --format text.

type computeView struct{ *engine.ComputeResult }

func (v computeView) String() string {
	var sb strings.Builder
	writeBundle(&sb, v.Bundle)
	fmt.Fprintf(&sb, "Cached:      %t", v.Cached)
	return sb.String()
}

type currentView struct{ *engine.CurrentResult }

func (v currentView) String() string {
	var sb strings.Builder
	writeBundle(&sb, v.Bundle)
	if v.Cached {
		fmt.Fprintf(&sb, "Cached:      true (age %ds)", v.CacheAgeSeconds)
	} else {
		sb.WriteString("Cached:      false")
	}
	return sb.String()
}

type overrideView struct{ *engine.OverrideResult }

func (v overrideView) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Override %s applied", v.OverrideID)
	if v.ExpiresAt != nil {
		fmt.Fprintf(&sb, " until %s", v.ExpiresAt.UTC().Format(time.RFC3339))
	}
	sb.WriteString("\n")
	writeBundle(&sb, v.Bundle)
	return strings.TrimSuffix(sb.String(), "\n")
}

type filterView struct{ *engine.FilterResponse }

func (v filterView) String() string {
	var sb strings.Builder
	for _, r := range v.Results {
		mark := "✓"
		if !r.Passed {
			mark = "✗"
		}
		fmt.Fprintf(&sb, "%s %s  fit=%s score=%d confidence=%d\n",
			mark, r.ActionID, r.MobilityFit, r.MobilityScore, r.Confidence)
		for _, rej := range r.Rejections {
			fmt.Fprintf(&sb, "    %s (%s): %s\n", rej.Rule, rej.Severity, rej.Reason)
		}
	}
	fmt.Fprintf(&sb, "Filter Summary: %d passed, %d rejected (bundle %s)",
		v.PassedCount, v.RejectedCount, v.ContextBundleID)
	return sb.String()
}

func writeBundle(sb *strings.Builder, b *model.ContextBundle) {
	fmt.Fprintf(sb, "Bundle:      %s\n", b.BundleID)
	fmt.Fprintf(sb, "User:        %s (session %s)\n", b.UserID, b.SessionID)
	fmt.Fprintf(sb, "Location:    %s [%s, confidence %d]\n",
		placeName(b.Location), b.Location.Source, b.Location.Confidence)
	fmt.Fprintf(sb, "Mobility:    %s, %s tolerance, %s access [confidence %d]\n",
		b.Mobility.ModePreference, b.Mobility.DistanceTolerance, b.Mobility.AccessLevel, b.Mobility.Confidence)
	fmt.Fprintf(sb, "Environment: %s, %s weather, %s [confidence %d]\n",
		b.Environment.TimeOfDaySafety, b.Environment.WeatherSuitability,
		b.Environment.IndoorOutdoorPreference, b.Environment.Confidence)
	if len(b.EnvironmentTags) > 0 {
		tags := make([]string, len(b.EnvironmentTags))
		for i, t := range b.EnvironmentTags {
			tags[i] = string(t)
		}
		fmt.Fprintf(sb, "Tags:        %s\n", strings.Join(tags, ", "))
	}
	fmt.Fprintf(sb, "Confidence:  %d (%s)\n", b.OverallConfidence, b.DataFreshness)
	if b.FallbackApplied {
		fmt.Fprintf(sb, "Fallback:    %s\n", b.FallbackReason)
	}
	for _, o := range b.Overrides {
		fmt.Fprintf(sb, "Override:    %s %s", o.ID, o.Type)
		if o.ExpiresAt != nil {
			fmt.Fprintf(sb, " until %s", o.ExpiresAt.UTC().Format(time.RFC3339))
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(sb, "Hash:        %s\n", b.BundleHash)
}

func placeName(l model.LocationContext) string {
	var parts []string
	for _, p := range []*string{l.City, l.Region, l.Country} {
		if s := model.StringValue(p); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return "unknown"
	}
	return strings.Join(parts, ", ")
}
