// Package mobility infers how far and how the user is able to travel.
//
// Inference is layered. Each layer runs only while the running confidence is
// below its threshold, and every layer that infers something appends its tag
// to InferredFrom. The availability layer always runs last: current capacity
// trumps preference.
package mobility

import (
	"github.com/roach88/whereabouts/internal/model"
	"github.com/roach88/whereabouts/internal/policy"
)

// Inference tags recorded in MobilityProfile.InferredFrom.
const (
	TagExplicit      = "explicit"
	TagActivityLevel = "activity_level"
	TagVisitPattern  = "visit_pattern"
	TagAvailability  = "availability"
)

// Inputs are the per-request mobility signals.
type Inputs struct {
	Explicit     *model.ExplicitMobility
	Situation    *model.Situation
	Availability *model.Availability
}

// Profiler builds mobility profiles.
type Profiler struct {
	policy policy.MobilityPolicy
}

// NewProfiler creates a Profiler using the given thresholds.
func NewProfiler(p policy.MobilityPolicy) *Profiler {
	return &Profiler{policy: p}
}

// Build runs the inference layers and returns the profile.
func (p *Profiler) Build(in Inputs) model.MobilityProfile {
	prof := model.MobilityProfile{
		ModePreference:    model.ModeUnknown,
		DistanceTolerance: model.ToleranceUnknown,
		AccessLevel:       model.AccessUnknown,
		InferredFrom:      []string{},
	}

	if in.Explicit != nil {
		p.applyExplicit(&prof, in.Explicit)
	} else {
		p.applyActivity(&prof, in.Situation)
		p.applyVisitPattern(&prof, in.Situation)
	}
	p.applyAvailability(&prof, in.Availability)

	return prof
}

func (p *Profiler) applyExplicit(prof *model.MobilityProfile, ex *model.ExplicitMobility) {
	if ex.ModePreference != "" {
		prof.ModePreference = ex.ModePreference
	}
	if ex.DistanceTolerance != "" {
		prof.DistanceTolerance = ex.DistanceTolerance
	}
	if ex.AccessLevel != "" {
		prof.AccessLevel = ex.AccessLevel
	}
	if ex.HasVehicle != nil {
		v := *ex.HasVehicle
		prof.HasVehicle = &v
	}
	prof.Confidence = p.policy.ExplicitConfidence
	prof.InferredFrom = append(prof.InferredFrom, TagExplicit)
}

func (p *Profiler) applyActivity(prof *model.MobilityProfile, s *model.Situation) {
	if s == nil || prof.Confidence >= p.policy.ActivityThreshold {
		return
	}
	switch s.ActivityLevel {
	case "high":
		prof.ModePreference = model.ModeWalking
		prof.DistanceTolerance = model.ToleranceModerate
	case "low":
		prof.DistanceTolerance = model.ToleranceVeryLocal
	default:
		return
	}
	prof.Confidence = max(prof.Confidence, p.policy.ActivityConfidence)
	prof.InferredFrom = append(prof.InferredFrom, TagActivityLevel)
}

func (p *Profiler) applyVisitPattern(prof *model.MobilityProfile, s *model.Situation) {
	if s == nil || s.AvgTripDistanceKm == nil || prof.Confidence >= p.policy.VisitPatternThreshold {
		return
	}
	switch avg := *s.AvgTripDistanceKm; {
	case avg < p.policy.VeryLocalTripKm:
		prof.DistanceTolerance = model.ToleranceVeryLocal
		prof.ModePreference = model.ModeWalking
	case avg < p.policy.LocalTripKm:
		prof.DistanceTolerance = model.ToleranceLocal
	default:
		prof.DistanceTolerance = model.ToleranceModerate
	}
	prof.Confidence = p.policy.VisitPatternConfidence
	prof.InferredFrom = append(prof.InferredFrom, TagVisitPattern)
}

func (p *Profiler) applyAvailability(prof *model.MobilityProfile, a *model.Availability) {
	if a == nil || (a.EffortCapacity != "minimal" && a.Energy != "depleted") {
		return
	}
	prof.DistanceTolerance = model.ToleranceVeryLocal
	prof.Confidence = max(prof.Confidence, p.policy.AvailabilityFloor)
	prof.InferredFrom = append(prof.InferredFrom, TagAvailability)
}
