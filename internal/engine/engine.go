package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/whereabouts/internal/bundle"
	"github.com/roach88/whereabouts/internal/cache"
	"github.com/roach88/whereabouts/internal/filter"
	"github.com/roach88/whereabouts/internal/location"
	"github.com/roach88/whereabouts/internal/model"
	"github.com/roach88/whereabouts/internal/policy"
	"github.com/roach88/whereabouts/internal/telemetry"
)

// Operation names used in errors, logs and context_error events.
const (
	OpComputeContext    = "ComputeContext"
	OpGetCurrentContext = "GetCurrentContext"
	OpFilterActions     = "FilterActions"
	OpOverrideContext   = "OverrideContext"
)

// Engine serves the public operations.
//
// Thread-safety model:
//   - ComputeContext, GetCurrentContext, FilterActions: safe from any goroutine
//   - OverrideContext: safe from any goroutine; overrides are applied one at
//     a time so concurrent overrides of one bundle are never lost
type Engine struct {
	policy    policy.Policy
	builder   *bundle.Builder
	filter    *filter.Filter
	cache     cache.Cache
	telemetry telemetry.Sink
	clock     bundle.Clock
	ids       bundle.IDGenerator
	logger    *slog.Logger

	prefs  location.PreferenceStore
	visits location.VisitStore

	overrideMu sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithPreferenceStore sets the home preference store.
func WithPreferenceStore(s location.PreferenceStore) Option {
	return func(e *Engine) { e.prefs = s }
}

// WithVisitStore sets the visit history store.
func WithVisitStore(s location.VisitStore) Option {
	return func(e *Engine) { e.visits = s }
}

// WithCache sets the bundle cache.
//
// Default: an in-memory cache with the policy TTL, on the engine clock.
func WithCache(c cache.Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithTelemetry sets the telemetry sink.
//
// Default: debug-level log lines on the engine logger.
func WithTelemetry(s telemetry.Sink) Option {
	return func(e *Engine) { e.telemetry = s }
}

// WithClock overrides the system clock.
func WithClock(c bundle.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithIDGenerator overrides the UUIDv7 generator for bundle and override ids.
func WithIDGenerator(g bundle.IDGenerator) Option {
	return func(e *Engine) { e.ids = g }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an Engine. Stores are optional: without them location falls
// back to request signals and then defaults.
func New(p policy.Policy, opts ...Option) *Engine {
	e := &Engine{
		policy: p,
		clock:  bundle.SystemClock{},
		ids:    bundle.UUIDv7Generator{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.cache == nil {
		e.cache = cache.NewMemory(p.Bundle.CacheTTL(), cache.WithMemoryClock(e.clock))
	}
	if e.telemetry == nil {
		e.telemetry = telemetry.NewLogger(e.logger, slog.LevelDebug)
	}

	var resolverOpts []location.Option
	if e.prefs != nil {
		resolverOpts = append(resolverOpts, location.WithPreferenceStore(e.prefs))
	}
	if e.visits != nil {
		resolverOpts = append(resolverOpts, location.WithVisitStore(e.visits))
	}
	resolverOpts = append(resolverOpts, location.WithLogger(e.logger))

	e.builder = bundle.NewBuilder(p, location.NewResolver(p.Location, resolverOpts...),
		bundle.WithClock(e.clock),
		bundle.WithIDGenerator(e.ids),
	)
	e.filter = filter.New(p.Filter, p.Environment)
	return e
}

// Policy returns the thresholds the engine was built with.
func (e *Engine) Policy() policy.Policy {
	return e.policy
}

// lookup returns the live cached entry for key with its freshness
// reclassified at the current time. Cache read failures degrade to a miss.
// A bundle carrying a lapsed override is evicted so the next compute
// rebuilds it from signals.
func (e *Engine) lookup(ctx context.Context, op string, key cache.Key) (cache.Entry, bool) {
	entry, ok, err := e.cache.Get(ctx, key)
	if err != nil {
		e.logger.Warn("cache read failed, treating as miss", "op", op, "user_id", key.UserID, "error", err)
		return cache.Entry{}, false
	}
	if !ok {
		return cache.Entry{}, false
	}
	now := e.clock.Now()
	if entry.Bundle.ExpiredOverride(now) {
		e.logger.Debug("cached bundle override expired", "user_id", key.UserID, "bundle_id", entry.Bundle.BundleID)
		if err := e.cache.Evict(ctx, key); err != nil {
			e.logger.Warn("cache evict failed", "op", op, "user_id", key.UserID, "error", err)
		}
		return cache.Entry{}, false
	}
	e.classify(entry.Bundle, now)
	return entry, true
}

// classify sets the bundle's data freshness from the age of its location
// resolution. Freshness is outside the hash, so the seal stays valid.
func (e *Engine) classify(b *model.ContextBundle, now time.Time) {
	b.DataFreshness = e.policy.Bundle.Freshness(now.Sub(b.Location.ResolvedAt))
}

// emit sends an event and logs, never returns, a sink failure.
func (e *Engine) emit(ctx context.Context, name string, key cache.Key, bundleID string, attrs map[string]any) {
	ev := telemetry.Event{
		Name:      name,
		At:        e.clock.Now(),
		UserID:    key.UserID,
		SessionID: key.SessionID,
		BundleID:  bundleID,
		Attrs:     attrs,
	}
	if err := e.telemetry.Emit(ctx, ev); err != nil {
		e.logger.Warn("telemetry emit failed", "event", name, "error", err)
	}
}

// fail reports an internal failure to telemetry and returns it.
func (e *Engine) fail(ctx context.Context, key cache.Key, err *Error) *Error {
	e.logger.Error("operation failed", "op", err.Op, "user_id", key.UserID, "error", err)
	e.emit(ctx, telemetry.EventContextError, key, "", map[string]any{
		"operation": err.Op,
		"code":      string(err.Code),
		"message":   err.Error(),
	})
	return err
}

func cacheAgeSeconds(entry cache.Entry, now time.Time) int {
	return max(0, int(entry.Age(now)/time.Second))
}

// compute builds, caches and reports a fresh bundle.
func (e *Engine) compute(ctx context.Context, op string, key cache.Key, req ComputeRequest) (*model.ContextBundle, error) {
	b, err := e.builder.Build(ctx, bundle.Request{
		UserID:           key.UserID,
		SessionID:        key.SessionID,
		ExplicitLocation: req.ExplicitLocation,
		ExplicitMobility: req.ExplicitMobility,
		Situation:        req.Situation,
		Availability:     req.Availability,
		ReferenceTime:    req.ReferenceTime,
	})
	if err != nil {
		return nil, e.fail(ctx, key, internal(op, "build context bundle", err))
	}

	if err := e.cache.Set(ctx, key, b); err != nil {
		e.logger.Warn("cache write failed, bundle not cached", "op", op, "user_id", key.UserID, "error", err)
	}

	e.logger.Info("context computed",
		"user_id", key.UserID,
		"session_id", key.SessionID,
		"bundle_id", b.BundleID,
		"location_source", b.Location.Source,
		"overall_confidence", b.OverallConfidence,
	)
	e.emit(ctx, telemetry.EventContextComputed, key, b.BundleID, map[string]any{
		"bundle_hash":        b.BundleHash,
		"overall_confidence": b.OverallConfidence,
		"fallback_applied":   b.FallbackApplied,
		"location_source":    string(b.Location.Source),
		"forced":             req.ForceRefresh,
	})
	return b, nil
}
