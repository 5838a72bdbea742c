package cli

import (
	"context"
	"errors"
	"log/slog"

	"github.com/roach88/whereabouts/internal/bundle"
	"github.com/roach88/whereabouts/internal/cache"
	"github.com/roach88/whereabouts/internal/engine"
	"github.com/roach88/whereabouts/internal/policy"
	"github.com/roach88/whereabouts/internal/store"
	"github.com/roach88/whereabouts/internal/telemetry"
)

// session is an engine wired to the stores and cache selected by the global
// flags. Close releases everything it opened.
type session struct {
	engine  *engine.Engine
	store   *store.Store
	closers []func() error
}

// sessionOption adjusts the engine a session builds. Tests use it to pin the
// clock and ids.
type sessionOption func(*sessionConfig)

type sessionConfig struct {
	clock bundle.Clock
	ids   bundle.IDGenerator
}

func withSessionClock(c bundle.Clock) sessionOption {
	return func(sc *sessionConfig) { sc.clock = c }
}

func withSessionIDs(g bundle.IDGenerator) sessionOption {
	return func(sc *sessionConfig) { sc.ids = g }
}

// sessionOptions is overridden in tests.
var sessionOptions []sessionOption

func loadPolicy(path string) (policy.Policy, error) {
	if path == "" {
		return policy.Default(), nil
	}
	slog.Debug("loading policy", "path", path)
	p, err := policy.Load(path)
	if err != nil {
		return policy.Policy{}, WrapExitError(ExitCommandError, "failed to load policy", err)
	}
	return p, nil
}

// newSessionConfig applies sessionOptions over the system clock and UUIDv7
// ids.
func newSessionConfig() sessionConfig {
	cfg := sessionConfig{
		clock: bundle.SystemClock{},
		ids:   bundle.UUIDv7Generator{},
	}
	for _, o := range sessionOptions {
		o(&cfg)
	}
	return cfg
}

func openSession(ctx context.Context, opts *RootOptions) (*session, error) {
	cfg := newSessionConfig()

	p, err := loadPolicy(opts.Policy)
	if err != nil {
		return nil, err
	}

	slog.Debug("opening database", "path", opts.Database)
	st, err := store.Open(opts.Database, store.WithClock(cfg.clock))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	s := &session{store: st, closers: []func() error{st.Close}}

	var c cache.Cache
	switch opts.Cache {
	case CacheMemory:
		c = cache.NewMemory(p.Bundle.CacheTTL(), cache.WithMemoryClock(cfg.clock))
	case CacheRedis:
		r, err := cache.DialRedis(ctx, opts.RedisURL, p.Bundle.CacheTTL(), cache.WithRedisClock(cfg.clock))
		if err != nil {
			s.Close()
			return nil, WrapExitError(ExitCommandError, "failed to connect to redis", err)
		}
		s.closers = append(s.closers, r.Close)
		c = r
	default:
		c = st.BundleCache(p.Bundle.CacheTTL(), cfg.clock)
	}
	slog.Debug("bundle cache ready", "backend", opts.Cache, "ttl", p.Bundle.CacheTTL())

	logger := slog.Default()
	s.engine = engine.New(p,
		engine.WithPreferenceStore(st),
		engine.WithVisitStore(st),
		engine.WithCache(c),
		engine.WithTelemetry(telemetry.Multi{telemetry.NewLogger(logger, slog.LevelDebug), st}),
		engine.WithClock(cfg.clock),
		engine.WithIDGenerator(cfg.ids),
		engine.WithLogger(logger),
	)
	return s, nil
}

// Close releases the cache client and the store, most recent first.
func (s *session) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// closeSession logs, rather than returns, a close failure.
func closeSession(s *session) {
	if err := s.Close(); err != nil {
		slog.Error("error closing session", "error", err)
	}
}
