package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/whereabouts/internal/model"
	"github.com/roach88/whereabouts/internal/verify"
)

// BundleCheck is the integrity result for one bundle file.
type BundleCheck struct {
	File     string `json:"file"`
	BundleID string `json:"bundle_id"`
	Intact   bool   `json:"intact"`
}

// VerifyResult holds the verify command output.
type VerifyResult struct {
	Bundles     []BundleCheck  `json:"bundles"`
	Determinism *verify.Result `json:"determinism,omitempty"`
}

// Failed reports whether any check failed.
func (r VerifyResult) Failed() bool {
	for _, b := range r.Bundles {
		if !b.Intact {
			return true
		}
	}
	return r.Determinism != nil && !r.Determinism.Match
}

func (r VerifyResult) String() string {
	var sb strings.Builder
	for _, b := range r.Bundles {
		if b.Intact {
			fmt.Fprintf(&sb, "✓ %s (%s): hash matches\n", b.File, b.BundleID)
		} else {
			fmt.Fprintf(&sb, "✗ %s (%s): hash mismatch\n", b.File, b.BundleID)
		}
	}
	if d := r.Determinism; d != nil {
		if d.Match {
			sb.WriteString("✓ bundles agree on every filtering field\n")
		} else {
			sb.WriteString("✗ bundles differ:\n")
			for _, diff := range d.Differences {
				fmt.Fprintf(&sb, "    %s: %q != %q\n", diff.Path, diff.Left, diff.Right)
			}
		}
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <bundle.json> [other.json]",
		Short: "Check bundle hashes and compare two bundles",
		Long: `Recompute the content hash of each bundle file and compare it with the
stored bundle_hash. Given two files, also compare the fields that drive
filtering (city, country, mode, tolerance, indoor/outdoor).

A file may hold a bare bundle, a compute result ({"bundle": ...}) or the
JSON envelope printed by --format json.

Exit codes:
  0 - Every hash matches and the bundles agree
  1 - A hash mismatch or a differing field
  2 - Command error (unreadable or malformed file)

Examples:
  whereabouts verify bundle.json
  whereabouts compute --user u1 --format json > a.json
  whereabouts compute --user u1 --force --format json > b.json
  whereabouts verify a.json b.json`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runVerify(opts *RootOptions, files []string, cmd *cobra.Command) error {
	bundles := make([]*model.ContextBundle, len(files))
	result := VerifyResult{Bundles: make([]BundleCheck, len(files))}
	for i, file := range files {
		b, err := readBundle(file)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to read bundle %s", file), err)
		}
		intact, err := verify.BundleIntegrity(b)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to verify bundle %s", file), err)
		}
		bundles[i] = b
		result.Bundles[i] = BundleCheck{File: file, BundleID: b.BundleID, Intact: intact}
	}

	if len(bundles) == 2 {
		d, err := verify.Determinism(bundles[0], bundles[1])
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to compare bundles", err)
		}
		result.Determinism = &d
	}

	out := newFormatter(cmd, opts)
	if result.Failed() {
		if err := out.Error("E_VERIFY_FAILED", "bundle verification failed", result); err != nil {
			return err
		}
		if opts.Format != "json" {
			fmt.Fprintln(cmd.OutOrStdout(), result)
		}
		return NewExitError(ExitFailure, "bundle verification failed")
	}
	return out.Success(result)
}

// readBundle decodes a bundle, unwrapping the CLI envelope and result
// objects around it.
func readBundle(path string) (*model.ContextBundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	raw := json.RawMessage(data)
	for _, key := range []string{"data", "bundle"} {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		if inner, ok := obj[key]; ok {
			raw = inner
		}
	}

	var b model.ContextBundle
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if b.BundleHash == "" {
		return nil, fmt.Errorf("decode %s: no bundle_hash", path)
	}
	return &b, nil
}
