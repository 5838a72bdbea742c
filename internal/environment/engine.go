// Package environment derives time-of-day, weather and indoor/outdoor
// constraints for a reference time.
//
// Weather is a stub and always unknown; no live weather source is consulted.
package environment

import (
	"time"

	"github.com/roach88/whereabouts/internal/model"
	"github.com/roach88/whereabouts/internal/policy"
)

// movementActivities are primary activities that imply being out and about.
var movementActivities = map[string]struct{}{
	"walking":   {},
	"running":   {},
	"hiking":    {},
	"cycling":   {},
	"exercise":  {},
	"sports":    {},
	"commuting": {},
	"errands":   {},
}

// Inputs are the per-request environmental signals. A nil ReferenceTime
// means "now" per the engine clock, and earns no confidence bonus.
type Inputs struct {
	ReferenceTime *time.Time
	Now           time.Time
	Location      *model.LocationContext
	Situation     *model.Situation
}

// Engine computes environmental constraints.
type Engine struct {
	policy policy.EnvironmentPolicy
}

// NewEngine creates an Engine using the given thresholds.
func NewEngine(p policy.EnvironmentPolicy) *Engine {
	return &Engine{policy: p}
}

// Compute derives the constraints. The hour is taken in the reference time's
// own location.
func (e *Engine) Compute(in Inputs) model.EnvironmentalConstraints {
	ref := in.Now
	if in.ReferenceTime != nil {
		ref = *in.ReferenceTime
	}
	hour := ref.Hour()

	env := model.EnvironmentalConstraints{
		Flags:              []model.EnvFlag{},
		TimeOfDaySafety:    model.SafetySafe,
		WeatherSuitability: model.WeatherUnknown,
		IsLateNight:        e.policy.IsLateNight(hour),
		IsEarlyMorning:     e.policy.IsEarlyMorning(hour),
	}

	if env.IsLateNight {
		env.AddFlag(model.FlagAvoidLateNight)
		env.TimeOfDaySafety = model.SafetyCaution
	}
	if env.IsLateNight || env.IsEarlyMorning {
		env.AddFlag(model.FlagDaylightPreferred)
	}
	if in.Situation != nil && in.Situation.Energy == "low" {
		env.AddFlag(model.FlagIndoorPreferred)
	}

	moving := in.Situation != nil && impliesMovement(in.Situation.PrimaryActivity)
	daytimeOK := !env.IsLateNight &&
		env.WeatherSuitability != model.WeatherUnsuitable &&
		!env.HasFlag(model.FlagIndoorPreferred)
	if moving || daytimeOK {
		env.AddFlag(model.FlagOutdoorOK)
	}

	switch {
	case env.HasFlag(model.FlagIndoorPreferred):
		env.IndoorOutdoorPreference = model.PreferIndoor
	case moving:
		env.IndoorOutdoorPreference = model.PreferOutdoor
	case daytimeOK:
		env.IndoorOutdoorPreference = model.PreferEither
	default:
		env.IndoorOutdoorPreference = model.PreferIndoor
	}

	env.Confidence = e.confidence(in)
	return env
}

func (e *Engine) confidence(in Inputs) int {
	c := e.policy.BaseConfidence
	if in.ReferenceTime != nil {
		c += e.policy.ReferenceTimeBonus
	}
	if in.Location != nil && in.Location.Confidence > e.policy.LocationBonusThreshold {
		c += e.policy.LocationBonus
	}
	if in.Situation != nil {
		c += e.policy.SituationBonus
	}
	return min(c, 100)
}

func impliesMovement(activity string) bool {
	_, ok := movementActivities[model.FoldName(activity)]
	return ok
}
