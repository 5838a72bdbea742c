package cli

import (
	"fmt"
	"maps"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/whereabouts/internal/engine"
	"github.com/roach88/whereabouts/internal/model"
)

// OverrideOptions holds flags for the override command.
type OverrideOptions struct {
	*RootOptions
	Request   string
	UserID    string
	SessionID string
	Type      string
	Set       []string
	Duration  int
	Reason    string
}

// NewOverrideCommand creates the override command.
func NewOverrideCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OverrideOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "override",
		Short: "Override fields of the cached context bundle",
		Long: fmt.Sprintf(`Merge user-supplied values into one part of the cached context bundle.

The overridden part is pinned at confidence 100 and the bundle is resealed.
There must already be a cached bundle for the user and session.

Accepted keys:
  location:    %s
  mobility:    %s
  environment: %s

Examples:
  whereabouts override --user u1 --type location --set city=Paris --set country=France
  whereabouts override --user u1 --type environment --set flags=[avoid_late_night] --duration 30
  whereabouts override --request override.json`,
			strings.Join(engine.OverrideFields(model.OverrideLocation), ", "),
			strings.Join(engine.OverrideFields(model.OverrideMobility), ", "),
			strings.Join(engine.OverrideFields(model.OverrideEnvironment), ", "),
		),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOverride(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Request, "request", "r", "", "request file (JSON or YAML, - for stdin)")
	cmd.Flags().StringVar(&opts.UserID, "user", "", "user id")
	cmd.Flags().StringVar(&opts.SessionID, "session", "", "session id (default \"default\")")
	cmd.Flags().StringVar(&opts.Type, "type", "", "override type (location|mobility|environment)")
	cmd.Flags().StringArrayVar(&opts.Set, "set", nil, "key=value to override (repeatable)")
	cmd.Flags().IntVar(&opts.Duration, "duration", 0, "minutes until the override lapses")
	cmd.Flags().StringVar(&opts.Reason, "reason", "", "why the override was made")

	return cmd
}

func (o *OverrideOptions) request(cmd *cobra.Command) (engine.OverrideRequest, error) {
	var req engine.OverrideRequest
	if o.Request != "" {
		if err := readRequest(cmd, o.Request, &req); err != nil {
			return req, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("user") {
		req.UserID = o.UserID
	}
	if flags.Changed("session") {
		req.SessionID = o.SessionID
	}
	if flags.Changed("type") {
		req.Type = o.Type
	}
	if flags.Changed("duration") {
		d := o.Duration
		req.DurationMinutes = &d
	}
	if flags.Changed("reason") {
		req.Reason = o.Reason
	}
	if len(o.Set) > 0 {
		set, err := parseAssignments(o.Set)
		if err != nil {
			return req, WrapExitError(ExitCommandError, "invalid override values", err)
		}
		if req.Overrides == nil {
			req.Overrides = make(map[string]any, len(set))
		}
		maps.Copy(req.Overrides, set)
	}
	return req, nil
}

func runOverride(opts *OverrideOptions, cmd *cobra.Command) error {
	req, err := opts.request(cmd)
	if err != nil {
		return err
	}

	s, err := openSession(cmd.Context(), opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeSession(s)

	out := newFormatter(cmd, opts.RootOptions)
	res, err := s.engine.OverrideContext(cmd.Context(), req)
	if err != nil {
		return out.OperationError(engine.OpOverrideContext, err)
	}
	return out.SuccessWithTrace(overrideView{res}, res.Bundle.BundleID)
}
