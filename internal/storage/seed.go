package storage

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"pokebattle/internal/battle"
)

// DecodeRoster reads a YAML (or JSON) list of creatures, normalizing type
// names and validating stats.
func DecodeRoster(r io.Reader) ([]battle.Creature, error) {
	var raw []battle.Creature
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode roster: %w", err)
	}
	seen := make(map[int]bool, len(raw))
	for i := range raw {
		c := &raw[i]
		t1, ok1 := battle.ParseType(string(c.Type1))
		t2, ok2 := battle.ParseType(string(c.Type2))
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("roster entry %d (%s): unknown type", c.ID, c.Name)
		}
		if t2 == t1 {
			t2 = ""
		}
		c.Type1, c.Type2 = t1, t2
		if c.Generation == 0 {
			c.Generation = 1
		}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("roster entry %d: %w", c.ID, err)
		}
		if seen[c.ID] {
			return nil, fmt.Errorf("roster entry %d (%s): duplicate id", c.ID, c.Name)
		}
		seen[c.ID] = true
	}
	return raw, nil
}

// SeedIfEmpty fills an empty roster from r. It returns the number of rows
// written, zero when the roster already had data.
func (s *Store) SeedIfEmpty(r io.Reader) (int, error) {
	n, err := s.Count()
	if err != nil {
		return 0, fmt.Errorf("count roster: %w", err)
	}
	if n > 0 {
		return 0, nil
	}
	creatures, err := DecodeRoster(r)
	if err != nil {
		return 0, err
	}
	return s.Seed(creatures)
}
