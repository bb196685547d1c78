package config

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// weightTolerance absorbs float drift when checking that a weight set
// sums to one.
const weightTolerance = 1e-6

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if VERISTEP_CONFIG is set
//  3. env (prefix VERISTEP_)
func Load() (*Config, error) {
	// Start with defaults
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("VERISTEP_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: VERISTEP_ADDR, VERISTEP_QUEUE_SIZE, ...
	// Map env keys like VERISTEP_QUEUE_SIZE -> queue_size (flat keys)
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("VERISTEP_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "veristep_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.TokenTTLHours <= 0 {
		return fmt.Errorf("%w: token_ttl_hours must be positive", ErrInvalidConfig)
	}
	if c.RequiredApprovals < 1 {
		return fmt.Errorf("%w: required_approvals must be at least 1", ErrInvalidConfig)
	}
	if c.MaxReassignments < 0 {
		return fmt.Errorf("%w: max_reassignments must not be negative", ErrInvalidConfig)
	}
	if c.DefaultMaxConcurrent < 1 {
		return fmt.Errorf("%w: default_max_concurrent must be at least 1", ErrInvalidConfig)
	}
	for _, ws := range []struct {
		name string
		sum  float64
	}{
		{"scoring.cps", c.Scoring.CPS.Sum()},
		{"scoring.erss", c.Scoring.ERSS.Sum()},
		{"scoring.uci", c.Scoring.UCI.Sum()},
	} {
		if math.Abs(ws.sum-1.0) > weightTolerance {
			return fmt.Errorf("%w: %s weights must sum to 1, got %.6f", ErrInvalidConfig, ws.name, ws.sum)
		}
	}
	return nil
}
