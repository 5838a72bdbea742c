package bundle

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/whereabouts/internal/location"
	"github.com/roach88/whereabouts/internal/model"
	"github.com/roach88/whereabouts/internal/policy"
	"github.com/roach88/whereabouts/internal/testutil"
)

var start = time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC)

func newTestBuilder(opts ...location.Option) (*Builder, *testutil.ManualClock) {
	p := policy.Default()
	clock := testutil.NewManualClock(start)
	b := NewBuilder(p, location.NewResolver(p.Location, opts...),
		WithClock(clock),
		WithIDGenerator(testutil.NewSequentialIDs("bundle")),
	)
	return b, clock
}

func TestBuild_ExplicitBerlin(t *testing.T) {
	b, _ := newTestBuilder()
	ref := start

	bundle, err := b.Build(context.Background(), Request{
		UserID:           "u1",
		SessionID:        "s1",
		ExplicitLocation: &model.Place{City: "Berlin", Country: "Germany"},
		ReferenceTime:    &ref,
	})
	require.NoError(t, err)

	assert.Equal(t, "bundle-0001", bundle.BundleID)
	assert.Equal(t, start, bundle.ComputedAt)
	assert.Equal(t, "u1", bundle.UserID)
	assert.Equal(t, "Berlin", model.StringValue(bundle.Location.City))
	assert.Equal(t, model.PrecisionCity, bundle.Location.Precision)
	assert.Equal(t, 90, bundle.Location.Confidence)
	assert.Equal(t, model.SourceExplicit, bundle.Location.Source)
	assert.Equal(t, model.FreshnessFresh, bundle.DataFreshness)
	assert.False(t, bundle.FallbackApplied)

	// location 90, mobility 0, environment 50+20+15 = 85
	assert.Equal(t, 58, bundle.OverallConfidence)
	assert.Equal(t, []string{"location:explicit", "environment:reference_time"}, bundle.SourcesUsed)

	h, err := bundle.ComputeHash()
	require.NoError(t, err)
	assert.Equal(t, h, bundle.BundleHash)
}

func TestBuild_DefaultsApplyFallback(t *testing.T) {
	b, _ := newTestBuilder()

	bundle, err := b.Build(context.Background(), Request{})
	require.NoError(t, err)

	assert.Nil(t, bundle.Location.City)
	assert.Equal(t, 0, bundle.Location.Confidence)
	assert.Equal(t, model.SourceDefault, bundle.Location.Source)
	assert.Equal(t, model.TravelStateUnknown, bundle.Location.TravelState)
	assert.True(t, bundle.FallbackApplied)
	assert.Equal(t, FallbackReason, bundle.FallbackReason)
	// 0 + 0 + 50 = 50 / 3 = 16.67
	assert.Equal(t, 17, bundle.OverallConfidence)
}

func TestBuild_NoFallbackWhenMobilityKnown(t *testing.T) {
	b, _ := newTestBuilder()

	bundle, err := b.Build(context.Background(), Request{
		Situation: &model.Situation{ActivityLevel: "high"},
	})
	require.NoError(t, err)

	assert.Equal(t, model.SourceDefault, bundle.Location.Source)
	assert.False(t, bundle.FallbackApplied, "mobility confidence 60 is above the fallback threshold")
}

func TestBuild_SituationHintFeedsLocation(t *testing.T) {
	b, _ := newTestBuilder()

	bundle, err := b.Build(context.Background(), Request{
		Situation: &model.Situation{Location: &model.Place{City: "Vienna"}},
	})
	require.NoError(t, err)

	assert.Equal(t, model.SourceInferred, bundle.Location.Source)
	assert.Equal(t, 40, bundle.Location.Confidence)
	assert.Equal(t, []string{"location:inferred", "environment:situation"}, bundle.SourcesUsed)
}

func TestBuild_Deterministic(t *testing.T) {
	b, clock := newTestBuilder()
	ref := start
	req := Request{
		ExplicitLocation: &model.Place{City: "Berlin", Country: "Germany"},
		Situation:        &model.Situation{ActivityLevel: "high", Energy: "low"},
		ReferenceTime:    &ref,
	}

	first, err := b.Build(context.Background(), req)
	require.NoError(t, err)
	clock.Advance(3 * time.Minute)
	second, err := b.Build(context.Background(), req)
	require.NoError(t, err)

	assert.NotEqual(t, first.BundleID, second.BundleID)
	assert.NotEqual(t, first.ComputedAt, second.ComputedAt)
	assert.Equal(t, first.BundleHash, second.BundleHash)
}

func TestBuild_UUIDv7ByDefault(t *testing.T) {
	p := policy.Default()
	b := NewBuilder(p, location.NewResolver(p.Location))

	bundle, err := b.Build(context.Background(), Request{})
	require.NoError(t, err)

	id, err := uuid.Parse(bundle.BundleID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
}

func TestDeriveTags_AllRulesEvaluated(t *testing.T) {
	bundle := &model.ContextBundle{
		Mobility: model.MobilityProfile{
			ModePreference:    model.ModeWalking,
			DistanceTolerance: model.ToleranceVeryLocal,
			AccessLevel:       model.AccessAssisted,
		},
		Environment: model.EnvironmentalConstraints{
			IndoorOutdoorPreference: model.PreferIndoor,
			WeatherSuitability:      model.WeatherUnsuitable,
		},
	}

	assert.Equal(t, []model.EnvironmentTag{
		model.TagLocalOnly,
		model.TagWalkable,
		model.TagIndoorPreferred,
		model.TagWeatherDependent,
		model.TagAccessibilityNeeded,
	}, DeriveTags(bundle))
}

func TestDeriveTags_Outdoor(t *testing.T) {
	bundle := &model.ContextBundle{
		Mobility: model.MobilityProfile{DistanceTolerance: model.ToleranceRegional, AccessLevel: model.AccessFull},
		Environment: model.EnvironmentalConstraints{
			IndoorOutdoorPreference: model.PreferOutdoor,
			WeatherSuitability:      model.WeatherIdeal,
		},
	}

	assert.Equal(t, []model.EnvironmentTag{model.TagOutdoorPreferred}, DeriveTags(bundle))
}

func TestDeriveTags_Empty(t *testing.T) {
	bundle := &model.ContextBundle{
		Environment: model.EnvironmentalConstraints{
			IndoorOutdoorPreference: model.PreferEither,
			WeatherSuitability:      model.WeatherUnknown,
		},
	}

	tags := DeriveTags(bundle)
	assert.NotNil(t, tags)
	assert.Empty(t, tags)
}

func TestOverallConfidence(t *testing.T) {
	cases := []struct {
		l, m, e, want int
	}{
		{90, 0, 85, 58},
		{100, 100, 100, 100},
		{0, 0, 0, 0},
		{70, 60, 85, 72},
		{1, 0, 0, 0},
		{1, 1, 0, 1},
	}
	for _, tc := range cases {
		bundle := &model.ContextBundle{
			Location:    model.LocationContext{Confidence: tc.l},
			Mobility:    model.MobilityProfile{Confidence: tc.m},
			Environment: model.EnvironmentalConstraints{Confidence: tc.e},
		}
		assert.Equal(t, tc.want, OverallConfidence(bundle), "mean of %d, %d, %d", tc.l, tc.m, tc.e)
	}
}

func TestReseal_UpdatesHash(t *testing.T) {
	b, _ := newTestBuilder()
	bundle, err := b.Build(context.Background(), Request{})
	require.NoError(t, err)
	before := bundle.BundleHash

	bundle.Location.City = model.StringPtr("Paris")
	require.NoError(t, Reseal(bundle))

	assert.NotEqual(t, before, bundle.BundleHash)
	h, _ := bundle.ComputeHash()
	assert.Equal(t, h, bundle.BundleHash)
}
