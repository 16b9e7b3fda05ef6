// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

package config

import (
	"os"
	"time"

	"github.com/tomtom215/tenantvault/internal/backup"
	"github.com/tomtom215/tenantvault/internal/blobstore"
	"github.com/tomtom215/tenantvault/internal/database"
	"github.com/tomtom215/tenantvault/internal/events"
	"github.com/tomtom215/tenantvault/internal/journal"
	"github.com/tomtom215/tenantvault/internal/logging"
	"github.com/tomtom215/tenantvault/internal/restore"
	"github.com/tomtom215/tenantvault/internal/scheduler"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig         `koanf:"server"`
	API        APIConfig            `koanf:"api"`
	Security   SecurityConfig       `koanf:"security"`
	Logging    LoggingConfig        `koanf:"logging"`
	Database   database.Config      `koanf:"database"`
	Storage    blobstore.Config     `koanf:"storage"`
	Backup     backup.ManagerConfig `koanf:"backup"`
	Encryption EncryptionConfig     `koanf:"encryption"`
	Journal    journal.Config       `koanf:"journal"`
	Scheduler  scheduler.Config     `koanf:"scheduler"`
	Restore    restore.Config       `koanf:"restore"`
	Events     events.Config        `koanf:"events"`
	Tenants    TenantsConfig        `koanf:"tenants"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// Environment is "development" or "production"; production enables
	// stricter security checks
	Environment string `koanf:"environment"`
}

// APIConfig holds API pagination settings
type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
}

// SecurityConfig selects how requests are attributed to a tenant.
type SecurityConfig struct {
	// AuthMode is "jwt" (bearer token carrying the tenant claim), "header"
	// (trusted X-Tenant-ID from a gateway) or "none" (development only)
	AuthMode string `koanf:"auth_mode"`

	JWTSecret   string `koanf:"jwt_secret"`
	TenantClaim string `koanf:"tenant_claim"`

	// TenantHeader names the tenant header used by the "header" and "none" modes
	TenantHeader string `koanf:"tenant_header"`

	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// EncryptionConfig holds the snapshot encryption secret. An empty secret
// disables encryption; backups that request it then fail validation.
type EncryptionConfig struct {
	Secret string `koanf:"secret"`
}

// TenantsConfig lists tenants registered at startup.
type TenantsConfig struct {
	Bootstrap []string `koanf:"bootstrap"`
}

// IsProduction reports whether production checks apply.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// LoggingInit converts the logging section for logging.Init.
func (c *Config) LoggingInit() logging.Config {
	lc := logging.DefaultConfig()
	lc.Level = c.Logging.Level
	lc.Format = c.Logging.Format
	lc.Caller = c.Logging.Caller
	lc.Output = os.Stderr
	return lc
}

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8470,
			Host:            "0.0.0.0",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    5 * time.Minute, // restores stream whole snapshots
			ShutdownTimeout: 30 * time.Second,
			Environment:     "development",
		},
		API: APIConfig{
			DefaultPageSize: 20,
			MaxPageSize:     100,
		},
		Security: SecurityConfig{
			AuthMode:        "jwt",
			TenantClaim:     "tenant_id",
			TenantHeader:    "X-Tenant-ID",
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Database: database.Config{
			Path:                   "/data/tenantvault.duckdb",
			MaxMemory:              "1GB",
			PreserveInsertionOrder: true,
		},
		Storage: blobstore.Config{
			URI:     "/data/backups",
			Breaker: blobstore.DefaultBreakerConfig(),
		},
		Backup:    backup.DefaultManagerConfig(),
		Journal:   journal.DefaultConfig(),
		Scheduler: scheduler.DefaultConfig(),
		Restore: restore.Config{
			DefaultTargetPath: "/data/restores",
			Timeout:           time.Hour,
		},
		Events: events.DefaultConfig(),
	}
}
