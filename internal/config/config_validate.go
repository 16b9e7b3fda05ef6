// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/tomtom215/tenantvault/internal/backup"
	"github.com/tomtom215/tenantvault/internal/events"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateAPI,
		c.validateSecurity,
		c.validateLogging,
		c.Database.Validate,
		c.validateStorage,
		c.validateBackup,
		c.Journal.Validate,
		c.Scheduler.Validate,
		c.validateRestore,
		c.validateEvents,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

// validateServer validates server configuration
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Environment != "development" && c.Server.Environment != "production" {
		return fmt.Errorf("ENVIRONMENT must be development or production, got %q", c.Server.Environment)
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.DefaultPageSize < 1 || c.API.MaxPageSize < c.API.DefaultPageSize {
		return fmt.Errorf("API_DEFAULT_PAGE_SIZE must be >= 1 and <= API_MAX_PAGE_SIZE")
	}
	return nil
}

// Minimum JWT secret length (HS256 key of 256 bits)
const minJWTSecretLength = 32

// Rate limit constants
const (
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
)

// validateSecurity validates security configuration
func (c *Config) validateSecurity() error {
	switch c.Security.AuthMode {
	case "jwt":
		if len(c.Security.JWTSecret) < minJWTSecretLength {
			return fmt.Errorf("JWT_SECRET must be at least %d characters when AUTH_MODE=jwt", minJWTSecretLength)
		}
		if containsPlaceholder(c.Security.JWTSecret) {
			return fmt.Errorf("JWT_SECRET contains a placeholder value; set a real secret")
		}
		if c.Security.TenantClaim == "" {
			return fmt.Errorf("JWT_TENANT_CLAIM is required when AUTH_MODE=jwt")
		}
	case "header":
		if c.Security.TenantHeader == "" {
			return fmt.Errorf("TENANT_HEADER is required when AUTH_MODE=header")
		}
	case "none":
		if c.IsProduction() {
			return fmt.Errorf("AUTH_MODE=none is not allowed in production")
		}
	default:
		return fmt.Errorf("AUTH_MODE must be one of: jwt, header, none")
	}

	if c.Security.AuthMode != "none" && c.hasWildcardCORS() && c.IsProduction() {
		return fmt.Errorf("CORS_ORIGINS=* (wildcard) is not allowed in production with authentication enabled; " +
			"set specific origins, e.g. CORS_ORIGINS=https://admin.example.com")
	}

	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

// hasWildcardCORS checks if CORS is configured with wildcard origins
func (c *Config) hasWildcardCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// ShouldWarnAboutCORS returns true if CORS configuration has security concerns
// that should be logged at startup
func (c *Config) ShouldWarnAboutCORS() bool {
	return c.Security.AuthMode != "none" && c.hasWildcardCORS()
}

var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true,
}

var validLogFormats = map[string]bool{
	"json": true, "console": true,
}

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

func (c *Config) validateStorage() error {
	uri := c.Storage.URI
	if uri == "" {
		return fmt.Errorf("BACKUP_STORAGE_URI is required")
	}
	if !strings.Contains(uri, "://") {
		return nil
	}
	parsed, err := url.Parse(uri)
	if err != nil {
		return fmt.Errorf("BACKUP_STORAGE_URI is invalid: %w", err)
	}
	switch parsed.Scheme {
	case "file", "mem":
	case "s3", "gs":
		if parsed.Host == "" {
			return fmt.Errorf("BACKUP_STORAGE_URI must name a bucket: %s://bucket/prefix", parsed.Scheme)
		}
	default:
		return fmt.Errorf("BACKUP_STORAGE_URI scheme must be file, s3 or gs, got %q", parsed.Scheme)
	}
	if parsed.Scheme == "mem" && c.IsProduction() {
		return fmt.Errorf("BACKUP_STORAGE_URI mem:// is not durable and not allowed in production")
	}
	return nil
}

func (c *Config) validateBackup() error {
	b := c.Backup
	if b.DefaultExpiryDays < 1 || b.DefaultExpiryDays > backup.MaxExpiryDays {
		return fmt.Errorf("BACKUP_DEFAULT_EXPIRY_DAYS must be between 1 and %d", backup.MaxExpiryDays)
	}
	if b.KeepCount < 1 {
		return fmt.Errorf("BACKUP_KEEP_COUNT must be at least 1")
	}
	if b.Retention.ExpiryFloor < 0 {
		return fmt.Errorf("BACKUP_EXPIRY_FLOOR must not be negative")
	}
	if b.Retention.DeleteRatePerSecond < 0 {
		return fmt.Errorf("BACKUP_DELETE_RATE must not be negative")
	}

	secret := c.Encryption.Secret
	if c.Scheduler.EncryptBackups && secret == "" {
		return fmt.Errorf("BACKUP_ENCRYPTION_SECRET is required when SCHEDULER_ENCRYPT_BACKUPS=true")
	}
	if secret != "" && containsPlaceholder(secret) {
		return fmt.Errorf("BACKUP_ENCRYPTION_SECRET contains a placeholder value; set a real secret")
	}
	return nil
}

func (c *Config) validateRestore() error {
	if c.Restore.Timeout < 0 {
		return fmt.Errorf("RESTORE_TIMEOUT must not be negative")
	}
	return nil
}

func (c *Config) validateEvents() error {
	if err := c.Events.Validate(); err != nil {
		return err
	}
	if c.Events.Enabled && c.Events.Transport == events.TransportNATS {
		if err := validateNATSURL(c.Events.URL); err != nil {
			return fmt.Errorf("NATS_URL is invalid: %w", err)
		}
	}
	return nil
}

// validateNATSURL checks the scheme and host of a NATS server URL
func validateNATSURL(rawURL string) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}

	validSchemes := map[string]bool{"nats": true, "tls": true, "ws": true, "wss": true}
	if !validSchemes[parsedURL.Scheme] {
		return fmt.Errorf("scheme must be nats, tls, ws, or wss, got: %s", parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("host is required (e.g., localhost:4222)")
	}
	return nil
}

// placeholderPatterns indicate a secret that was copied from an example
// and never replaced.
var placeholderPatterns = []string{
	"REPLACE",
	"CHANGEME",
	"CHANGE_ME",
	"YOUR_SECRET",
	"PLACEHOLDER",
	"EXAMPLE",
}

func containsPlaceholder(value string) bool {
	upper := strings.ToUpper(value)
	for _, pattern := range placeholderPatterns {
		if strings.Contains(upper, pattern) {
			return true
		}
	}
	return false
}
