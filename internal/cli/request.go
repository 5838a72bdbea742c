package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// readRequest decodes a request document into v. path "-" reads stdin as
// JSON; files ending in .yaml or .yml are YAML, anything else JSON. Unknown
// keys are rejected in both formats.
func readRequest(cmd *cobra.Command, path string, v any) error {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read request", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(v)
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(v)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("invalid request %s", path), err)
	}
	return nil
}

// parseAssignments turns key=value pairs into an override map. Values are
// read as YAML scalars or flow sequences, so "true" is a bool, "[rain,dark]"
// a list and "null" clears an optional field.
func parseAssignments(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q: want key=value", pair)
		}
		var v any
		if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("invalid --set %q: %w", pair, err)
		}
		// An empty value decodes to nil; keep it as the empty string.
		if v == nil && strings.TrimSpace(raw) != "null" && strings.TrimSpace(raw) != "~" {
			v = raw
		}
		out[key] = v
	}
	return out, nil
}

// parseTime accepts RFC 3339 timestamps.
func parseTime(flag, s string) (*time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("invalid --%s", flag), err)
	}
	return &t, nil
}
