// Package bundle aggregates location, mobility and environment into a
// versioned, hashed ContextBundle.
//
// The builder is stateless per request: caching lives one level up in the
// engine so that a forced refresh and a cache miss take the same path.
package bundle

import (
	"context"
	"time"

	"github.com/roach88/whereabouts/internal/environment"
	"github.com/roach88/whereabouts/internal/location"
	"github.com/roach88/whereabouts/internal/mobility"
	"github.com/roach88/whereabouts/internal/model"
	"github.com/roach88/whereabouts/internal/policy"
)

// FallbackReason is recorded when the bundle rests on defaults.
const FallbackReason = "no location signal and insufficient mobility data"

// Request carries the signals for one bundle computation.
type Request struct {
	UserID           string
	SessionID        string
	ExplicitLocation *model.Place
	ExplicitMobility *model.ExplicitMobility
	Situation        *model.Situation
	Availability     *model.Availability
	ReferenceTime    *time.Time
}

// Builder runs the three resolvers and seals the result.
type Builder struct {
	location    *location.Resolver
	mobility    *mobility.Profiler
	environment *environment.Engine
	policy      policy.BundlePolicy
	clock       Clock
	ids         IDGenerator
}

// Option configures a Builder.
type Option func(*Builder)

// WithClock overrides the system clock.
func WithClock(c Clock) Option {
	return func(b *Builder) { b.clock = c }
}

// WithIDGenerator overrides the UUIDv7 generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(b *Builder) { b.ids = g }
}

// NewBuilder creates a Builder. The resolver carries the store wiring; the
// mobility and environment stages are built from p.
func NewBuilder(p policy.Policy, resolver *location.Resolver, opts ...Option) *Builder {
	b := &Builder{
		location:    resolver,
		mobility:    mobility.NewProfiler(p.Mobility),
		environment: environment.NewEngine(p.Environment),
		policy:      p.Bundle,
		clock:       SystemClock{},
		ids:         UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Clock returns the builder's clock.
func (b *Builder) Clock() Clock {
	return b.clock
}

// IDs returns the builder's id generator.
func (b *Builder) IDs() IDGenerator {
	return b.ids
}

// Build computes a fresh bundle. It never consults a cache.
func (b *Builder) Build(ctx context.Context, req Request) (*model.ContextBundle, error) {
	now := b.clock.Now()

	var hint *model.Place
	if req.Situation != nil {
		hint = req.Situation.Location
	}
	loc := b.location.Resolve(ctx, location.Inputs{
		UserID:        req.UserID,
		Explicit:      req.ExplicitLocation,
		SituationHint: hint,
		Now:           now,
	})

	mob := b.mobility.Build(mobility.Inputs{
		Explicit:     req.ExplicitMobility,
		Situation:    req.Situation,
		Availability: req.Availability,
	})

	env := b.environment.Compute(environment.Inputs{
		ReferenceTime: req.ReferenceTime,
		Now:           now,
		Location:      &loc,
		Situation:     req.Situation,
	})

	bundle := &model.ContextBundle{
		BundleID:      b.ids.Generate(),
		ComputedAt:    now,
		UserID:        req.UserID,
		SessionID:     req.SessionID,
		Location:      loc,
		Mobility:      mob,
		Environment:   env,
		DataFreshness: b.policy.Freshness(now.Sub(loc.ResolvedAt)),
		SourcesUsed:   sourcesUsed(loc, mob, req),
	}
	if loc.Source == model.SourceDefault && mob.Confidence < b.policy.FallbackMobilityThreshold {
		bundle.FallbackApplied = true
		bundle.FallbackReason = FallbackReason
	}

	if err := Reseal(bundle); err != nil {
		return nil, err
	}
	return bundle, nil
}

func sourcesUsed(loc model.LocationContext, mob model.MobilityProfile, req Request) []string {
	sources := []string{"location:" + string(loc.Source)}
	for _, tag := range mob.InferredFrom {
		sources = append(sources, "mobility:"+tag)
	}
	if req.ReferenceTime != nil {
		sources = append(sources, "environment:reference_time")
	}
	if req.Situation != nil {
		sources = append(sources, "environment:situation")
	}
	return sources
}
