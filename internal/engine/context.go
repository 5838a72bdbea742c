package engine

import (
	"context"
	"time"

	"github.com/roach88/whereabouts/internal/cache"
	"github.com/roach88/whereabouts/internal/model"
	"github.com/roach88/whereabouts/internal/telemetry"
)

// ComputeRequest carries the signals for ComputeContext. Every field is
// optional; empty ids become "anonymous" and "default".
type ComputeRequest struct {
	UserID           string                  `json:"user_id,omitempty" yaml:"user_id,omitempty"`
	SessionID        string                  `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	ExplicitLocation *model.Place            `json:"explicit_location,omitempty" yaml:"explicit_location,omitempty"`
	ExplicitMobility *model.ExplicitMobility `json:"explicit_mobility,omitempty" yaml:"explicit_mobility,omitempty"`
	Situation        *model.Situation        `json:"situation_context,omitempty" yaml:"situation_context,omitempty"`
	Availability     *model.Availability     `json:"availability_context,omitempty" yaml:"availability_context,omitempty"`
	ReferenceTime    *time.Time              `json:"reference_time,omitempty" yaml:"reference_time,omitempty"`
	ForceRefresh     bool                    `json:"force_refresh,omitempty" yaml:"force_refresh,omitempty"`
}

// ComputeResult is the outcome of ComputeContext.
type ComputeResult struct {
	Bundle *model.ContextBundle `json:"bundle"`
	Cached bool                 `json:"cached"`
}

// CurrentResult is the outcome of GetCurrentContext.
type CurrentResult struct {
	Bundle          *model.ContextBundle `json:"bundle"`
	Cached          bool                 `json:"cached"`
	CacheAgeSeconds int                  `json:"cache_age_seconds"`
}

// ComputeContext returns the live cached bundle for the request's
// (user, session), or computes, caches and returns a fresh one. ForceRefresh
// skips the cache lookup.
func (e *Engine) ComputeContext(ctx context.Context, req ComputeRequest) (*ComputeResult, error) {
	key := cache.NewKey(req.UserID, req.SessionID)
	if err := validateCompute(req); err != nil {
		return nil, err
	}

	if !req.ForceRefresh {
		if entry, ok := e.lookup(ctx, OpComputeContext, key); ok {
			e.emit(ctx, telemetry.EventContextCacheHit, key, entry.Bundle.BundleID, map[string]any{
				"cache_age_seconds": cacheAgeSeconds(entry, e.clock.Now()),
			})
			return &ComputeResult{Bundle: entry.Bundle, Cached: true}, nil
		}
	}

	b, err := e.compute(ctx, OpComputeContext, key, req)
	if err != nil {
		return nil, err
	}
	return &ComputeResult{Bundle: b}, nil
}

// GetCurrentContext returns the cached bundle and its age. With nothing
// cached it computes a bundle from stored signals alone and reports
// cached=false.
func (e *Engine) GetCurrentContext(ctx context.Context, userID, sessionID string) (*CurrentResult, error) {
	key := cache.NewKey(userID, sessionID)

	if entry, ok := e.lookup(ctx, OpGetCurrentContext, key); ok {
		age := cacheAgeSeconds(entry, e.clock.Now())
		e.emit(ctx, telemetry.EventContextCacheHit, key, entry.Bundle.BundleID, map[string]any{
			"cache_age_seconds": age,
		})
		return &CurrentResult{Bundle: entry.Bundle, Cached: true, CacheAgeSeconds: age}, nil
	}

	b, err := e.compute(ctx, OpGetCurrentContext, key, ComputeRequest{})
	if err != nil {
		return nil, err
	}
	return &CurrentResult{Bundle: b}, nil
}

func validateCompute(req ComputeRequest) error {
	if m := req.ExplicitMobility; m != nil {
		if m.ModePreference != "" && !m.ModePreference.Valid() {
			return invalidArgument(OpComputeContext, "unknown mode_preference %q", m.ModePreference)
		}
		if m.DistanceTolerance != "" && !m.DistanceTolerance.Valid() {
			return invalidArgument(OpComputeContext, "unknown distance_tolerance %q", m.DistanceTolerance)
		}
		if m.AccessLevel != "" && !m.AccessLevel.Valid() {
			return invalidArgument(OpComputeContext, "unknown access_level %q", m.AccessLevel)
		}
	}
	return nil
}
