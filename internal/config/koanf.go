// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/tenantvault/config.yaml",
	"/etc/tenantvault/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// Load builds the configuration from layered sources:
//  1. struct defaults
//  2. the first config file found (CONFIG_PATH, then DefaultConfigPaths)
//  3. environment variables listed in envMappings
//
// The result is validated before it is returned.
func Load() (*Config, error) {
	return load(findConfigFile())
}

func load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns the first existing config file path, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are fields that accept comma-separated environment values.
var sliceConfigPaths = []string{
	"security.cors_origins",
	"tenants.bootstrap",
}

// processSliceFields converts comma-separated strings into slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to config paths.
var envMappings = map[string]string{
	"http_port":             "server.port",
	"http_host":             "server.host",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"environment":           "server.environment",

	"api_default_page_size": "api.default_page_size",
	"api_max_page_size":     "api.max_page_size",

	"auth_mode":           "security.auth_mode",
	"jwt_secret":          "security.jwt_secret",
	"jwt_tenant_claim":    "security.tenant_claim",
	"tenant_header":       "security.tenant_header",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",

	"backup_storage_uri":           "storage.uri",
	"backup_s3_endpoint":           "storage.s3.endpoint",
	"backup_s3_region":             "storage.s3.region",
	"backup_s3_access_key":         "storage.s3.access_key",
	"backup_s3_secret_key":         "storage.s3.secret_key",
	"backup_s3_path_style":         "storage.s3.use_path_style",
	"backup_gcs_credentials_file":  "storage.gcs.credentials_file",
	"backup_breaker_enabled":       "storage.breaker.enabled",
	"backup_breaker_failures":      "storage.breaker.consecutive_failures",
	"backup_breaker_timeout":       "storage.breaker.timeout",
	"backup_default_expiry_days":   "backup.default_expiry_days",
	"backup_keep_count":            "backup.keep_count",
	"backup_cleanup_timeout":       "backup.cleanup_timeout",
	"backup_expiry_floor":          "backup.retention.expiry_floor",
	"backup_delete_rate":           "backup.retention.delete_rate_per_second",
	"backup_encryption_secret":     "encryption.secret",
	"backup_journal_path":          "journal.path",
	"backup_journal_sync_writes":   "journal.sync_writes",
	"backup_journal_compact_every": "journal.compact_interval",
	"backup_journal_retention":     "journal.confirmed_retention",

	"scheduler_timezone":           "scheduler.timezone",
	"scheduler_maintenance_time":   "scheduler.maintenance_time",
	"scheduler_expiry_grace_days":  "scheduler.expiry_grace_days",
	"scheduler_encrypt_backups":    "scheduler.encrypt_backups",
	"scheduler_bootstrap_defaults": "scheduler.bootstrap_defaults",
	"scheduler_run_timeout":        "scheduler.run_timeout",

	"restore_target_path": "restore.default_target_path",
	"restore_timeout":     "restore.timeout",

	"events_enabled":   "events.enabled",
	"events_transport": "events.transport",
	"events_topic":     "events.topic",
	"nats_url":         "events.url",
	"nats_embedded":    "events.embedded.enabled",
	"nats_port":        "events.embedded.port",
	"nats_store_dir":   "events.embedded.store_dir",

	"tenants_bootstrap": "tenants.bootstrap",
}

// envTransformFunc maps environment variable names to config paths.
// Unmapped variables are skipped so unrelated environment does not leak in.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
