// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

package journal

import (
	"errors"
	"time"
)

// Config holds journal configuration.
type Config struct {
	// Path is the BadgerDB directory. Ignored when InMemory is set.
	Path string `koanf:"path"`

	// InMemory keeps the journal in memory (tests only; not crash safe).
	InMemory bool `koanf:"in_memory"`

	// SyncWrites fsyncs every write. Required for crash safety.
	SyncWrites bool `koanf:"sync_writes"`

	// CompactInterval is how often confirmed intents are purged.
	CompactInterval time.Duration `koanf:"compact_interval"`

	// ConfirmedRetention is how long confirmed intents are kept before purge.
	ConfirmedRetention time.Duration `koanf:"confirmed_retention"`

	// GCRatio is the BadgerDB value log GC discard ratio.
	GCRatio float64 `koanf:"gc_ratio"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Path:               "/data/journal",
		SyncWrites:         true,
		CompactInterval:    time.Hour,
		ConfirmedRetention: 24 * time.Hour,
		GCRatio:            0.5,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if !c.InMemory && c.Path == "" {
		return errors.New("journal path is required")
	}
	if c.CompactInterval < time.Second {
		return errors.New("journal compact interval must be at least 1s")
	}
	if c.ConfirmedRetention < 0 {
		return errors.New("journal confirmed retention must not be negative")
	}
	if c.GCRatio <= 0 || c.GCRatio >= 1 {
		return errors.New("journal GC ratio must be between 0 and 1 (exclusive)")
	}
	return nil
}
