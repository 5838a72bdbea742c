package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"
)

// Cache backends selectable with --cache.
const (
	CacheMemory = "memory"
	CacheSQLite = "sqlite"
	CacheRedis  = "redis"
)

// DefaultDatabase is the SQLite file used when neither --db nor
// WHEREABOUTS_DB is set.
const DefaultDatabase = "whereabouts.db"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Database string
	Cache    string // "memory" | "sqlite" | "redis"
	RedisURL string
	Policy   string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// ValidCaches defines the allowed cache backends.
var ValidCaches = []string{CacheMemory, CacheSQLite, CacheRedis}

// NewRootCommand creates the root command for the whereabouts CLI.
// Flag defaults are read from the environment when the command is built, so
// LoadEnv must run first.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "whereabouts",
		Short: "Deterministic user context and action filtering",
		Long: `Resolve where a user is, how far they can go and what the environment
allows, then filter candidate actions against that context.

Bundles are cached per user and session. With the default sqlite cache a
bundle computed by one invocation is visible to the next.`,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if !slices.Contains(ValidCaches, opts.Cache) {
				return fmt.Errorf("invalid cache %q: must be one of %v", opts.Cache, ValidCaches)
			}
			if opts.Cache == CacheRedis && opts.RedisURL == "" {
				return fmt.Errorf("--cache redis requires --redis-url or %s", EnvRedisURL)
			}
			configureLogging(cmd.ErrOrStderr(), opts.Verbose)
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", envOr(EnvDatabase, DefaultDatabase), "path to SQLite database")
	cmd.PersistentFlags().StringVar(&opts.Cache, "cache", envOr(EnvCache, CacheSQLite), "bundle cache (memory|sqlite|redis)")
	cmd.PersistentFlags().StringVar(&opts.RedisURL, "redis-url", envOr(EnvRedisURL, ""), "redis URL for --cache redis")
	cmd.PersistentFlags().StringVar(&opts.Policy, "policy", envOr(EnvPolicy, ""), "policy file (.yaml, .cue or .json)")

	cmd.AddCommand(NewComputeCommand(opts))
	cmd.AddCommand(NewCurrentCommand(opts))
	cmd.AddCommand(NewFilterCommand(opts))
	cmd.AddCommand(NewOverrideCommand(opts))
	cmd.AddCommand(NewVerifyCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// configureLogging routes slog to w at info, or debug when verbose.
func configureLogging(w io.Writer, verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
