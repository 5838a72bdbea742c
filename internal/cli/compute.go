package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/whereabouts/internal/engine"
	"github.com/roach88/whereabouts/internal/model"
)

// ComputeOptions holds flags for the compute command. Flags that are set
// override the matching request fields.
type ComputeOptions struct {
	*RootOptions
	Request       string
	UserID        string
	SessionID     string
	City          string
	Region        string
	Country       string
	Mode          string
	Tolerance     string
	ReferenceTime string
	Force         bool
}

// NewComputeCommand creates the compute command.
func NewComputeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ComputeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Compute the context bundle for a user",
		Long: `Compute (or return the cached) context bundle for a user and session.

The request may come from a JSON or YAML file, from stdin (--request -) or
from flags alone. Flags override the file.

Examples:
  whereabouts compute --user u1 --city Berlin --country Germany
  whereabouts compute --request req.json --force
  echo '{"user_id":"u1"}' | whereabouts compute --request - --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompute(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Request, "request", "r", "", "request file (JSON or YAML, - for stdin)")
	cmd.Flags().StringVar(&opts.UserID, "user", "", "user id")
	cmd.Flags().StringVar(&opts.SessionID, "session", "", "session id (default \"default\")")
	cmd.Flags().StringVar(&opts.City, "city", "", "explicit city")
	cmd.Flags().StringVar(&opts.Region, "region", "", "explicit region")
	cmd.Flags().StringVar(&opts.Country, "country", "", "explicit country")
	cmd.Flags().StringVar(&opts.Mode, "mode", "", "explicit mode preference")
	cmd.Flags().StringVar(&opts.Tolerance, "tolerance", "", "explicit distance tolerance")
	cmd.Flags().StringVar(&opts.ReferenceTime, "at", "", "reference time (RFC 3339)")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "ignore the cached bundle")

	return cmd
}

func (o *ComputeOptions) request(cmd *cobra.Command) (engine.ComputeRequest, error) {
	var req engine.ComputeRequest
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
	if place := (model.Place{City: o.City, Region: o.Region, Country: o.Country}); !place.IsZero() {
		req.ExplicitLocation = &place
	}
	if o.Mode != "" || o.Tolerance != "" {
		if req.ExplicitMobility == nil {
			req.ExplicitMobility = &model.ExplicitMobility{}
		}
		if o.Mode != "" {
			req.ExplicitMobility.ModePreference = model.ModePreference(o.Mode)
		}
		if o.Tolerance != "" {
			req.ExplicitMobility.DistanceTolerance = model.DistanceTolerance(o.Tolerance)
		}
	}
	if o.ReferenceTime != "" {
		t, err := parseTime("at", o.ReferenceTime)
		if err != nil {
			return req, err
		}
		req.ReferenceTime = t
	}
	if o.Force {
		req.ForceRefresh = true
	}
	return req, nil
}

func runCompute(opts *ComputeOptions, cmd *cobra.Command) error {
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
	res, err := s.engine.ComputeContext(cmd.Context(), req)
	if err != nil {
		return out.OperationError(engine.OpComputeContext, err)
	}
	return out.SuccessWithTrace(computeView{res}, res.Bundle.BundleID)
}

// CurrentOptions holds flags for the current command.
type CurrentOptions struct {
	*RootOptions
	UserID    string
	SessionID string
}

// NewCurrentCommand creates the current command.
func NewCurrentCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CurrentOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "current",
		Short: "Show the current context bundle for a user",
		Long: `Show the cached context bundle for a user and session with its age.

On a cache miss a bundle is computed from stored signals only.

Example:
  whereabouts current --user u1 --session s1`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCurrent(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.UserID, "user", "", "user id")
	cmd.Flags().StringVar(&opts.SessionID, "session", "", "session id (default \"default\")")

	return cmd
}

func runCurrent(opts *CurrentOptions, cmd *cobra.Command) error {
	s, err := openSession(cmd.Context(), opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeSession(s)

	out := newFormatter(cmd, opts.RootOptions)
	res, err := s.engine.GetCurrentContext(cmd.Context(), opts.UserID, opts.SessionID)
	if err != nil {
		return out.OperationError(engine.OpGetCurrentContext, err)
	}
	return out.SuccessWithTrace(currentView{res}, res.Bundle.BundleID)
}
