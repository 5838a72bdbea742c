package store

import (
	"context"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/whereabouts/internal/location"
)

// Seed is the YAML document loaded by `whereabouts seed`.
//
//	users:
//	  - id: u1
//	    home: {home_city: Berlin, home_country: Germany}
//	    visits:
//	      - location: {city: Hamburg}
//	        timestamp: 2026-03-01T10:00:00Z
type Seed struct {
	Users []SeedUser `yaml:"users"`
}

// SeedUser is one user's stored signals.
type SeedUser struct {
	ID     string                   `yaml:"id"`
	Home   *location.HomePreference `yaml:"home,omitempty"`
	Visits []location.Visit         `yaml:"visits,omitempty"`
}

// SeedStats counts what ApplySeed wrote.
type SeedStats struct {
	Users       int `json:"users"`
	Preferences int `json:"preferences"`
	Visits      int `json:"visits"`
}

// ReadSeed decodes a seed document. Unknown keys are rejected.
func ReadSeed(r io.Reader) (Seed, error) {
	var seed Seed
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil && err != io.EOF {
		return Seed{}, fmt.Errorf("decode seed: %w", err)
	}
	for i, u := range seed.Users {
		if u.ID == "" {
			return Seed{}, fmt.Errorf("decode seed: users[%d] has no id", i)
		}
	}
	return seed, nil
}

// LoadSeed reads a seed file from path.
func LoadSeed(path string) (Seed, error) {
	f, err := os.Open(path)
	if err != nil {
		return Seed{}, fmt.Errorf("open seed: %w", err)
	}
	defer f.Close()
	return ReadSeed(f)
}

// ApplySeed writes every user's preference and visits in one transaction.
func (s *Store) ApplySeed(ctx context.Context, seed Seed) (SeedStats, error) {
	var stats SeedStats

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return stats, fmt.Errorf("apply seed: %w", err)
	}
	defer tx.Rollback()

	now := s.clock.Now()
	for _, u := range seed.Users {
		stats.Users++
		if u.Home != nil {
			if err := upsertPreference(ctx, tx, u.ID, *u.Home, now); err != nil {
				return stats, fmt.Errorf("apply seed for %s: %w", u.ID, err)
			}
			stats.Preferences++
		}
		for _, v := range u.Visits {
			if err := insertVisit(ctx, tx, u.ID, v); err != nil {
				return stats, fmt.Errorf("apply seed for %s: %w", u.ID, err)
			}
			stats.Visits++
		}
	}

	if err := tx.Commit(); err != nil {
		return stats, fmt.Errorf("apply seed: %w", err)
	}
	return stats, nil
}
