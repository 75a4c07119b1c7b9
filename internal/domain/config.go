package domain

import (
	"log/slog"
	"time"
)

// Config controls how a Manager wires its store, gateway, and engine.
type Config struct {
	// DataDir is where the badger checkpoint store and the approvals
	// directory live. Ignored when InMemory is set.
	DataDir string

	// InMemory selects the map-backed store and gateway, for tests and
	// embeddings that do not need durability.
	InMemory bool

	// ApprovalTTL bounds how long a suspended execution waits for a
	// decision. Zero means no expiration. An expired checkpoint behaves
	// exactly like a missing one: resume fails NotFound.
	ApprovalTTL time.Duration

	// DefaultMaxIterations caps loop groups that were registered without
	// an explicit ceiling override. Every loop still carries its own
	// mandatory ceiling; this only bounds runaway configuration.
	DefaultMaxIterations int

	Logger *slog.Logger
}

func DefaultConfig() *Config {
	return &Config{
		DataDir:              "./data",
		DefaultMaxIterations: 10,
	}
}

func (c *Config) Validate() error {
	if !c.InMemory && c.DataDir == "" {
		return NewValidationError("config", "data dir cannot be empty for durable storage")
	}
	if c.ApprovalTTL < 0 {
		return NewValidationError("config", "approval TTL cannot be negative")
	}
	if c.DefaultMaxIterations < 1 {
		return NewValidationError("config", "default max iterations must be at least 1")
	}
	return nil
}
