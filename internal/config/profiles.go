// internal/config/profiles.go
//
// Loads difficulty profiles.
//
// Behaviour:
//   1. If PROFILES_FILE is set, read tiers from that YAML file. Tiers the
//      file leaves out keep their built-in values.
//   2. Otherwise use the embedded assets/profiles.yaml.
//
// The file is a map of tier name to {min, max, maxAttempts, pointValue}.

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/robalobadob/numguess/assets"
	"github.com/robalobadob/numguess/internal/game"
)

// LoadProfiles returns the embedded profiles, overlaid with path if non-empty.
func LoadProfiles(path string) (game.Profiles, error) {
	raw, err := assets.DefaultProfiles()
	if err != nil {
		return nil, fmt.Errorf("read embedded profiles: %w", err)
	}
	base, err := ParseProfiles(raw)
	if err != nil {
		return nil, fmt.Errorf("embedded profiles: %w", err)
	}
	if path == "" {
		return base, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	custom, err := ParseProfiles(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for d, p := range custom {
		base[d] = p
	}
	return base, nil
}

// ParseProfiles decodes and validates a YAML profile document.
func ParseProfiles(b []byte) (game.Profiles, error) {
	var doc map[string]game.Profile
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decode profiles: %w", err)
	}
	out := make(game.Profiles, len(doc))
	for name, p := range doc {
		d, err := game.ParseDifficulty(name)
		if err != nil {
			return nil, err
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("profile %s: %w", d, err)
		}
		out[d] = p
	}
	return out, nil
}
