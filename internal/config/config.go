// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...) initializer to build a Config with defaults.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"runtime"

	"github.com/veristep/veristep/internal/domain/scoring"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// ReassignQueueSize bounds the in-memory re-assignment queue.
	ReassignQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of re-assignment workers.
	WorkerCount int `koanf:"worker_count"`

	// TokenTTLHours sets the idempotency token lifetime.
	TokenTTLHours int `koanf:"token_ttl_hours"`

	// SweepIntervalMinutes sets how often expired tokens are swept.
	SweepIntervalMinutes int `koanf:"sweep_interval_minutes"`

	// ExpiryIntervalMinutes sets how often overdue assignments are expired.
	ExpiryIntervalMinutes int `koanf:"expiry_interval_minutes"`

	// RequiredApprovals sets how many approving validations finalize evidence.
	RequiredApprovals int `koanf:"required_approvals"`

	// MaxReassignments bounds expiry-driven re-assignment before escalation.
	MaxReassignments int `koanf:"max_reassignments"`

	// DefaultMaxConcurrent caps active assignments per validator when the
	// validator record carries no explicit limit.
	DefaultMaxConcurrent int `koanf:"default_max_concurrent"`

	// SLAHours maps a priority bucket name to its review deadline window.
	SLAHours map[string]int `koanf:"sla_hours"`

	// Scoring carries the weight and window tunables for all scorers.
	Scoring scoring.Policy `koanf:"scoring"`
}

// New creates a Config populated with defaults.
func New() *Config {
	c := &Config{
		LogLevel:              "info",
		Addr:                  ":9080",
		ReassignQueueSize:     10_000,
		WorkerCount:           runtime.NumCPU() * 4,
		TokenTTLHours:         24,
		SweepIntervalMinutes:  10,
		ExpiryIntervalMinutes: 5,
		RequiredApprovals:     1,
		MaxReassignments:      3,
		DefaultMaxConcurrent:  5,
		SLAHours: map[string]int{
			"URGENT":  24,
			"HIGH":    48,
			"MEDIUM":  96,
			"LOW":     168,
			"MINIMAL": 336,
		},
		Scoring: scoring.DefaultPolicy(),
	}
	return c
}
