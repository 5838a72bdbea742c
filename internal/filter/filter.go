// Package filter screens candidate actions against a context bundle.
//
// Filtering is pure: the same actions, bundle and strictness always produce
// the same results, in input order. Missing action data never fails a check;
// it lowers the result's confidence instead.
package filter

import (
	"fmt"

	"github.com/roach88/whereabouts/internal/model"
	"github.com/roach88/whereabouts/internal/policy"
)

// Rule names recorded on rejections.
const (
	RuleDistance      = "distance_check"
	RuleLocationMatch = "location_match"
	RuleTimeSafety    = "time_safety"
	RuleIndoorOutdoor = "indoor_outdoor"
	RuleEffort        = "effort_check"
)

// check evaluates one rule and returns a rejection, or false when the action
// passes it.
type check func(f *Filter, a model.ActionToFilter, b *model.ContextBundle, s model.Strictness) (model.Rejection, bool)

// checks run in this order; every check runs for every action.
var checks = []check{
	(*Filter).checkDistance,
	(*Filter).checkLocation,
	(*Filter).checkTimeSafety,
	(*Filter).checkIndoorOutdoor,
	(*Filter).checkEffort,
}

// Filter applies the checks with the configured ceilings and penalties.
type Filter struct {
	policy    policy.FilterPolicy
	lateNight policy.EnvironmentPolicy
}

// New creates a Filter. env supplies the late-night window used by the time
// safety check.
func New(p policy.FilterPolicy, env policy.EnvironmentPolicy) *Filter {
	return &Filter{policy: p, lateNight: env}
}

// Filter evaluates every action independently. An action passes iff it has
// no hard rejection.
func (f *Filter) Filter(actions []model.ActionToFilter, b *model.ContextBundle, s model.Strictness) []model.FilterResult {
	results := make([]model.FilterResult, 0, len(actions))
	for _, a := range actions {
		results = append(results, f.evaluate(a, b, s))
	}
	return results
}

func (f *Filter) evaluate(a model.ActionToFilter, b *model.ContextBundle, s model.Strictness) model.FilterResult {
	res := model.FilterResult{
		ActionID:   a.ID,
		Rejections: []model.Rejection{},
	}
	for _, c := range checks {
		if rej, rejected := c(f, a, b, s); rejected {
			res.Rejections = append(res.Rejections, rej)
		}
	}
	res.Passed = !res.HasHard()
	res.MobilityScore = f.mobilityScore(a, b)
	res.MobilityFit = model.FitForScore(res.MobilityScore)
	res.Confidence = f.confidence(a, b)
	return res
}

func (f *Filter) checkDistance(a model.ActionToFilter, b *model.ContextBundle, s model.Strictness) (model.Rejection, bool) {
	if a.DistanceKm == nil {
		return model.Rejection{}, false
	}
	tol := b.Mobility.DistanceTolerance
	ceiling := f.policy.DistanceCeilingsKm.For(tol)
	if *a.DistanceKm <= ceiling {
		return model.Rejection{}, false
	}
	return model.Rejection{
		Rule:     RuleDistance,
		Severity: severity(s == model.StrictnessStrict),
		Reason:   fmt.Sprintf("%.1f km exceeds the %g km limit for %s travel", *a.DistanceKm, ceiling, tol),
	}, true
}

func (f *Filter) checkLocation(a model.ActionToFilter, b *model.ContextBundle, s model.Strictness) (model.Rejection, bool) {
	if !b.Mobility.DistanceTolerance.IsLocal() || !cityMismatch(a, b) {
		return model.Rejection{}, false
	}
	return model.Rejection{
		Rule:     RuleLocationMatch,
		Severity: severity(s != model.StrictnessRelaxed),
		Reason:   fmt.Sprintf("action is in %s but the user is staying in %s", *a.City, *b.Location.City),
	}, true
}

func (f *Filter) checkTimeSafety(a model.ActionToFilter, b *model.ContextBundle, s model.Strictness) (model.Rejection, bool) {
	if a.ScheduledAt == nil || !b.Environment.HasFlag(model.FlagAvoidLateNight) {
		return model.Rejection{}, false
	}
	hour := a.ScheduledAt.Hour()
	if !f.lateNight.IsLateNight(hour) {
		return model.Rejection{}, false
	}
	return model.Rejection{
		Rule:     RuleTimeSafety,
		Severity: severity(s == model.StrictnessStrict),
		Reason:   fmt.Sprintf("scheduled at %02d:%02d, inside the late-night window", hour, a.ScheduledAt.Minute()),
	}, true
}

func (f *Filter) checkIndoorOutdoor(a model.ActionToFilter, b *model.ContextBundle, _ model.Strictness) (model.Rejection, bool) {
	if a.IsIndoor == nil {
		return model.Rejection{}, false
	}
	var reason string
	switch b.Environment.IndoorOutdoorPreference {
	case model.PreferIndoor:
		if !*a.IsIndoor {
			reason = "outdoor action while indoor settings are preferred"
		}
	case model.PreferOutdoor:
		if *a.IsIndoor {
			reason = "indoor action while outdoor settings are preferred"
		}
	}
	if reason == "" {
		return model.Rejection{}, false
	}
	return model.Rejection{Rule: RuleIndoorOutdoor, Severity: model.SeveritySoft, Reason: reason}, true
}

func (f *Filter) checkEffort(a model.ActionToFilter, b *model.ContextBundle, s model.Strictness) (model.Rejection, bool) {
	over := effortOver(a, b)
	if over <= 0 {
		return model.Rejection{}, false
	}
	return model.Rejection{
		Rule:     RuleEffort,
		Severity: severity(s == model.StrictnessStrict && over > 1),
		Reason:   fmt.Sprintf("%s effort is %d level(s) above what %s access allows", a.EffortRequired, over, b.Mobility.AccessLevel),
	}, true
}

// mobilityScore starts at 100 and subtracts distance and effort penalties.
func (f *Filter) mobilityScore(a model.ActionToFilter, b *model.ContextBundle) int {
	score := 100
	if a.DistanceKm != nil {
		ceiling := f.policy.DistanceCeilingsKm.For(b.Mobility.DistanceTolerance)
		switch d := *a.DistanceKm; {
		case d > ceiling:
			score -= f.policy.OverLimitPenalty
		case d > ceiling*f.policy.NearLimitRatio:
			score -= f.policy.NearLimitPenalty
		}
	}
	if over := effortOver(a, b); over > 0 {
		score -= over * f.policy.EffortLevelPenalty
	}
	return clamp(score)
}

func (f *Filter) confidence(a model.ActionToFilter, b *model.ContextBundle) int {
	c := b.OverallConfidence
	if a.DistanceKm == nil {
		c -= f.policy.MissingDistancePenalty
	}
	if cityMismatch(a, b) {
		c -= f.policy.CityMismatchPenalty
	}
	return clamp(c)
}

// effortTolerance maps an access level to the highest effort ordinal it
// accommodates.
func effortTolerance(level model.AccessLevel) int {
	switch level {
	case model.AccessLimited, model.AccessAssisted:
		r, _ := model.EffortLow.Rank()
		return r
	case model.AccessModerate:
		r, _ := model.EffortModerate.Rank()
		return r
	}
	r, _ := model.EffortHigh.Rank()
	return r
}

// effortOver returns how many levels the action's effort exceeds the
// tolerance. Unknown efforts never exceed it.
func effortOver(a model.ActionToFilter, b *model.ContextBundle) int {
	rank, ok := a.EffortRequired.Rank()
	if !ok {
		return 0
	}
	return rank - effortTolerance(b.Mobility.AccessLevel)
}

// cityMismatch reports whether both cities are known and differ.
func cityMismatch(a model.ActionToFilter, b *model.ContextBundle) bool {
	if a.City == nil || b.Location.City == nil || *a.City == "" || *b.Location.City == "" {
		return false
	}
	return !model.SamePlaceName(*a.City, *b.Location.City)
}

func severity(hard bool) model.Severity {
	if hard {
		return model.SeverityHard
	}
	return model.SeveritySoft
}

func clamp(v int) int {
	return max(0, min(100, v))
}

// Admitted pairs each passing action with its result, keeping input order.
func Admitted(actions []model.ActionToFilter, results []model.FilterResult) []model.ContextualAction {
	out := []model.ContextualAction{}
	for i, r := range results {
		if r.Passed && i < len(actions) {
			out = append(out, model.ContextualAction{Action: actions[i], Result: r})
		}
	}
	return out
}

// Counts returns the number of passed and rejected results.
func Counts(results []model.FilterResult) (passed, rejected int) {
	for _, r := range results {
		if r.Passed {
			passed++
		} else {
			rejected++
		}
	}
	return passed, rejected
}
