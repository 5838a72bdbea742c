package policy

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSrc string

// Load reads a policy file and overlays it on Default. Fields absent from the
// file keep their default value.
//
// Supported formats, by extension:
//   - .yaml, .yml: YAML, unknown keys rejected
//   - .cue: CUE, closed against the embedded #Policy schema
//   - .json: JSON
//
// The merged result is validated before it is returned.
func Load(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read policy: %w", err)
	}

	p := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&p); err != nil {
			return Policy{}, fmt.Errorf("parse policy %s: %w", path, err)
		}
	case ".cue":
		if err := decodeCUE(path, data, &p); err != nil {
			return Policy{}, err
		}
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&p); err != nil {
			return Policy{}, fmt.Errorf("parse policy %s: %w", path, err)
		}
	default:
		return Policy{}, fmt.Errorf("unsupported policy format %q (want .yaml, .yml, .cue or .json)", ext)
	}

	if err := p.Validate(); err != nil {
		return Policy{}, fmt.Errorf("policy %s: %w", path, err)
	}
	return p, nil
}

// decodeCUE checks the file against the schema, then overlays its concrete
// values on p through JSON so untouched defaults survive.
func decodeCUE(path string, data []byte, p *Policy) error {
	ctx := cuecontext.New()
	def, err := schemaDef(ctx)
	if err != nil {
		return err
	}

	file := ctx.CompileBytes(data, cue.Filename(path))
	if err := file.Err(); err != nil {
		return fmt.Errorf("compile policy %s: %w", path, err)
	}

	unified := def.Unify(file)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("policy %s does not match schema: %w", path, err)
	}

	raw, err := unified.MarshalJSON()
	if err != nil {
		return fmt.Errorf("export policy %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, p); err != nil {
		return fmt.Errorf("decode policy %s: %w", path, err)
	}
	return nil
}

// Validate checks p against the embedded CUE schema and the cross-field
// ordering rules the schema cannot express on its own.
func (p Policy) Validate() error {
	ctx := cuecontext.New()
	def, err := schemaDef(ctx)
	if err != nil {
		return err
	}

	v := ctx.Encode(p)
	if err := v.Err(); err != nil {
		return fmt.Errorf("encode policy: %w", err)
	}
	if err := def.Unify(v).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid policy: %w", err)
	}

	b := p.Bundle
	if !(b.FreshSeconds < b.RecentSeconds && b.RecentSeconds < b.StaleSeconds) {
		return fmt.Errorf("invalid policy: freshness windows must increase (fresh %d, recent %d, stale %d)",
			b.FreshSeconds, b.RecentSeconds, b.StaleSeconds)
	}
	e := p.Environment
	if e.EarlyMorningEndHour < e.LateNightEndHour {
		return fmt.Errorf("invalid policy: early morning ends (%d) before late night ends (%d)",
			e.EarlyMorningEndHour, e.LateNightEndHour)
	}
	if p.Mobility.VeryLocalTripKm >= p.Mobility.LocalTripKm {
		return fmt.Errorf("invalid policy: very_local_trip_km must be below local_trip_km")
	}
	return nil
}

func schemaDef(ctx *cue.Context) (cue.Value, error) {
	schema := ctx.CompileString(schemaSrc, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("compile policy schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Policy"))
	if err := def.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("lookup #Policy: %w", err)
	}
	return def, nil
}
