package harness

import (
	"time"

	"github.com/roach88/whereabouts/internal/canon"
	"github.com/roach88/whereabouts/internal/engine"
	"github.com/roach88/whereabouts/internal/model"
	"github.com/roach88/whereabouts/internal/verify"
)

// Snapshots are canonical documents so golden traces are byte-stable. The
// bundle hash is left out; "integrity" records whether it verified.

func timestamp(t time.Time) canon.String {
	return canon.String(t.UTC().Format(time.RFC3339))
}

func bundleSnapshot(b *model.ContextBundle) canon.Object {
	content := b.Canonical()
	tags := make([]string, len(b.EnvironmentTags))
	for i, t := range b.EnvironmentTags {
		tags[i] = string(t)
	}
	intact, err := verify.BundleIntegrity(b)

	obj := canon.Object{
		"bundle_id":          canon.String(b.BundleID),
		"user_id":            canon.String(b.UserID),
		"session_id":         canon.String(b.SessionID),
		"computed_at":        timestamp(b.ComputedAt),
		"location":           content["location"],
		"mobility":           content["mobility"],
		"environment":        content["environment"],
		"environment_tags":   canon.Strings(tags),
		"overall_confidence": canon.Int(b.OverallConfidence),
		"data_freshness":     canon.String(b.DataFreshness),
		"sources_used":       canon.Strings(b.SourcesUsed),
		"fallback_applied":   canon.Bool(b.FallbackApplied),
		"integrity":          canon.Bool(err == nil && intact),
	}
	if b.FallbackReason != "" {
		obj["fallback_reason"] = canon.String(b.FallbackReason)
	}
	if len(b.Overrides) > 0 {
		overrides := make(canon.Array, len(b.Overrides))
		for i, o := range b.Overrides {
			ov := canon.Object{
				"id":         canon.String(o.ID),
				"type":       canon.String(o.Type),
				"applied_at": timestamp(o.AppliedAt),
			}
			if o.Reason != "" {
				ov["reason"] = canon.String(o.Reason)
			}
			if o.ExpiresAt != nil {
				ov["expires_at"] = timestamp(*o.ExpiresAt)
			}
			overrides[i] = ov
		}
		obj["overrides"] = overrides
	}
	return obj
}

func computeSnapshot(res *engine.ComputeResult) canon.Object {
	return canon.Object{
		"cached": canon.Bool(res.Cached),
		"bundle": bundleSnapshot(res.Bundle),
	}
}

func currentSnapshot(res *engine.CurrentResult) canon.Object {
	return canon.Object{
		"cached":            canon.Bool(res.Cached),
		"cache_age_seconds": canon.Int(res.CacheAgeSeconds),
		"bundle":            bundleSnapshot(res.Bundle),
	}
}

func overrideSnapshot(res *engine.OverrideResult) canon.Object {
	obj := canon.Object{
		"override_id": canon.String(res.OverrideID),
		"bundle":      bundleSnapshot(res.Bundle),
	}
	if res.ExpiresAt != nil {
		obj["expires_at"] = timestamp(*res.ExpiresAt)
	}
	return obj
}

func filterSnapshot(res *engine.FilterResponse) canon.Object {
	results := make(canon.Array, len(res.Results))
	for i, r := range res.Results {
		rejections := make(canon.Array, len(r.Rejections))
		for j, rej := range r.Rejections {
			rejections[j] = canon.Object{
				"rule":     canon.String(rej.Rule),
				"severity": canon.String(rej.Severity),
				"reason":   canon.String(rej.Reason),
			}
		}
		results[i] = canon.Object{
			"action_id":      canon.String(r.ActionID),
			"passed":         canon.Bool(r.Passed),
			"rejections":     rejections,
			"mobility_fit":   canon.String(r.MobilityFit),
			"mobility_score": canon.Int(r.MobilityScore),
			"confidence":     canon.Int(r.Confidence),
		}
	}
	admitted := make([]string, len(res.Admitted))
	for i, a := range res.Admitted {
		admitted[i] = a.Action.ID
	}
	return canon.Object{
		"context_bundle_id": canon.String(res.ContextBundleID),
		"passed_count":      canon.Int(res.PassedCount),
		"rejected_count":    canon.Int(res.RejectedCount),
		"results":           results,
		"admitted":          canon.Strings(admitted),
	}
}

func errorSnapshot(err error) canon.Object {
	return canon.Object{
		"code":    canon.String(engine.CodeOf(err)),
		"message": canon.String(err.Error()),
	}
}
