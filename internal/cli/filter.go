package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/whereabouts/internal/engine"
)

// FilterOptions holds flags for the filter command.
type FilterOptions struct {
	*RootOptions
	Request    string
	UserID     string
	SessionID  string
	BundleID   string
	Strictness string
}

// NewFilterCommand creates the filter command.
func NewFilterCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FilterOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Filter candidate actions against the user's context",
		Long: `Evaluate every action in the request against the user's context bundle.

The actions come from the request file. Without --bundle the current bundle
for the user and session is used, computing one from stored signals if none
is cached.

Exit codes:
  0 - Filter ran (rejected actions are not an error)
  1 - Engine error (unknown bundle, invalid strictness)
  2 - Command error (unreadable request, database not found)

Examples:
  whereabouts filter --request actions.yaml --user u1
  whereabouts filter -r actions.json --strictness relaxed --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFilter(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Request, "request", "r", "", "request file with actions (JSON or YAML, - for stdin)")
	cmd.Flags().StringVar(&opts.UserID, "user", "", "user id")
	cmd.Flags().StringVar(&opts.SessionID, "session", "", "session id (default \"default\")")
	cmd.Flags().StringVar(&opts.BundleID, "bundle", "", "filter against this cached bundle id")
	cmd.Flags().StringVar(&opts.Strictness, "strictness", "", "strict (default) or relaxed")
	_ = cmd.MarkFlagRequired("request")

	return cmd
}

func runFilter(opts *FilterOptions, cmd *cobra.Command) error {
	var req engine.FilterRequest
	if err := readRequest(cmd, opts.Request, &req); err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("user") {
		req.UserID = opts.UserID
	}
	if flags.Changed("session") {
		req.SessionID = opts.SessionID
	}
	if flags.Changed("bundle") {
		req.ContextBundleID = opts.BundleID
	}
	if flags.Changed("strictness") {
		req.Strictness = opts.Strictness
	}

	s, err := openSession(cmd.Context(), opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeSession(s)

	out := newFormatter(cmd, opts.RootOptions)
	res, err := s.engine.FilterActions(cmd.Context(), req)
	if err != nil {
		return out.OperationError(engine.OpFilterActions, err)
	}
	return out.SuccessWithTrace(filterView{res}, res.ContextBundleID)
}
