// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

package scheduler

import (
	"fmt"
	"time"
)

// Config holds schedule coordinator settings.
type Config struct {
	// Timezone is the IANA zone schedules are evaluated in.
	Timezone string `koanf:"timezone"`

	// MaintenanceTime is the daily HH:MM of the expiry sweep.
	MaintenanceTime string `koanf:"maintenance_time"`

	// ExpiryGraceDays is passed to DeleteExpiredBackups by the sweep.
	// Zero honors each backup's expiresAt alone.
	ExpiryGraceDays int `koanf:"expiry_grace_days"`

	// EncryptBackups encrypts every scheduled snapshot.
	EncryptBackups bool `koanf:"encrypt_backups"`

	// BootstrapDefaults creates the default schedules when none exist.
	BootstrapDefaults bool `koanf:"bootstrap_defaults"`

	// RunTimeout bounds one scheduled firing.
	RunTimeout time.Duration `koanf:"run_timeout"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Timezone:          "UTC",
		MaintenanceTime:   "03:00",
		ExpiryGraceDays:   0,
		BootstrapDefaults: true,
		RunTimeout:        2 * time.Hour,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("scheduler timezone %q: %w", c.Timezone, err)
	}
	if _, _, err := ParseTimeOfDay(c.MaintenanceTime); err != nil {
		return fmt.Errorf("scheduler maintenance time: %w", err)
	}
	if c.ExpiryGraceDays < 0 {
		return fmt.Errorf("scheduler expiry grace days must not be negative")
	}
	if c.RunTimeout <= 0 {
		return fmt.Errorf("scheduler run timeout must be positive")
	}
	return nil
}
