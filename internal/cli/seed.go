package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/whereabouts/internal/store"
)

// seedSummary wraps store.SeedStats for text output.
type seedSummary struct {
	store.SeedStats
	Database string `json:"database"`
}

func (s seedSummary) String() string {
	return fmt.Sprintf("Seeded %s: %d users, %d home preferences, %d visits",
		s.Database, s.Users, s.Preferences, s.Visits)
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed <seed.yaml>",
		Short: "Load home preferences and visits into the database",
		Long: `Load stored signals from a YAML file into the SQLite database.

  users:
    - id: u1
      home: {home_city: Berlin, home_country: Germany}
      visits:
        - location: {city: Hamburg}
          timestamp: 2026-03-01T10:00:00Z

Preferences replace any existing row for the user; visits are appended.

Example:
  whereabouts seed --db ./whereabouts.db ./seed.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runSeed(opts *RootOptions, path string, cmd *cobra.Command) error {
	seed, err := store.LoadSeed(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load seed", err)
	}

	slog.Debug("opening database", "path", opts.Database)
	st, err := store.Open(opts.Database, store.WithClock(newSessionConfig().clock))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	stats, err := st.ApplySeed(cmd.Context(), seed)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to apply seed", err)
	}
	slog.Info("seed applied", "users", stats.Users, "preferences", stats.Preferences, "visits", stats.Visits)

	return newFormatter(cmd, opts).Success(seedSummary{SeedStats: stats, Database: opts.Database})
}
