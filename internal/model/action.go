package model

import (
	"fmt"
	"time"
)

// Strictness controls how rejections escalate from soft to hard.
type Strictness string

const (
	StrictnessRelaxed Strictness = "relaxed"
	StrictnessNormal  Strictness = "normal"
	StrictnessStrict  Strictness = "strict"
)

// ParseStrictness validates s. The empty string means normal.
func ParseStrictness(s string) (Strictness, error) {
	switch Strictness(s) {
	case "":
		return StrictnessNormal, nil
	case StrictnessRelaxed, StrictnessNormal, StrictnessStrict:
		return Strictness(s), nil
	}
	return "", fmt.Errorf("invalid strictness %q: must be relaxed, normal or strict", s)
}

// Severity of a rejection. Hard rejections block an action.
type Severity string

const (
	SeverityHard Severity = "hard"
	SeveritySoft Severity = "soft"
)

// Effort is the ordinal effort an action requires.
type Effort string

const (
	EffortMinimal  Effort = "minimal"
	EffortLow      Effort = "low"
	EffortModerate Effort = "moderate"
	EffortHigh     Effort = "high"
	EffortExtreme  Effort = "extreme"
)

// Rank returns the ordinal of e (minimal=0 ... extreme=4) and false for an
// unknown or empty effort.
func (e Effort) Rank() (int, bool) {
	switch e {
	case EffortMinimal:
		return 0, true
	case EffortLow:
		return 1, true
	case EffortModerate:
		return 2, true
	case EffortHigh:
		return 3, true
	case EffortExtreme:
		return 4, true
	}
	return 0, false
}

// MobilityFit buckets how well an action suits the user's travel capacity.
type MobilityFit string

const (
	FitExcellent   MobilityFit = "excellent"
	FitGood        MobilityFit = "good"
	FitAcceptable  MobilityFit = "acceptable"
	FitChallenging MobilityFit = "challenging"
	FitUnsuitable  MobilityFit = "unsuitable"
)

// FitForScore buckets a 0..100 mobility score.
func FitForScore(score int) MobilityFit {
	switch {
	case score >= 90:
		return FitExcellent
	case score >= 70:
		return FitGood
	case score >= 50:
		return FitAcceptable
	case score >= 30:
		return FitChallenging
	}
	return FitUnsuitable
}

// ActionToFilter is a candidate action. Any field other than ID may be
// missing; missing data lowers the result confidence instead of failing.
type ActionToFilter struct {
	ID             string     `json:"id" yaml:"id"`
	Title          string     `json:"title,omitempty" yaml:"title,omitempty"`
	DistanceKm     *float64   `json:"distance_km,omitempty" yaml:"distance_km,omitempty"`
	City           *string    `json:"city,omitempty" yaml:"city,omitempty"`
	ScheduledAt    *time.Time `json:"scheduled_at,omitempty" yaml:"scheduled_at,omitempty"`
	EffortRequired Effort     `json:"effort_required,omitempty" yaml:"effort_required,omitempty"`
	IsIndoor       *bool      `json:"is_indoor,omitempty" yaml:"is_indoor,omitempty"`
}

// Rejection is one failed check.
type Rejection struct {
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	Reason   string   `json:"reason"`
}

// FilterResult is the outcome of filtering one action.
type FilterResult struct {
	ActionID      string      `json:"action_id"`
	Passed        bool        `json:"passed"`
	Rejections    []Rejection `json:"rejections"`
	MobilityFit   MobilityFit `json:"mobility_fit"`
	MobilityScore int         `json:"mobility_score"`
	Confidence    int         `json:"confidence"`
}

// HasHard reports whether any rejection is hard.
func (r FilterResult) HasHard() bool {
	for _, rej := range r.Rejections {
		if rej.Severity == SeverityHard {
			return true
		}
	}
	return false
}

// Rejection returns the rejection recorded for rule, if any.
func (r FilterResult) Rejection(rule string) (Rejection, bool) {
	for _, rej := range r.Rejections {
		if rej.Rule == rule {
			return rej, true
		}
	}
	return Rejection{}, false
}

// ContextualAction pairs an admitted action with its filter outcome.
type ContextualAction struct {
	Action ActionToFilter `json:"action"`
	Result FilterResult   `json:"result"`
}
