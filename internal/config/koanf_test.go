// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	cfg, err := load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Port != 8470 {
		t.Errorf("Server.Port = %d, want 8470", cfg.Server.Port)
	}
	if cfg.Backup.KeepCount != 10 || cfg.Backup.DefaultExpiryDays != 30 {
		t.Errorf("Backup = %+v, want keep 10 / expiry 30", cfg.Backup)
	}
	if cfg.Backup.Retention.ExpiryFloor != 1 {
		t.Errorf("ExpiryFloor = %d, want 1", cfg.Backup.Retention.ExpiryFloor)
	}
	if cfg.Scheduler.MaintenanceTime != "03:00" || !cfg.Scheduler.BootstrapDefaults {
		t.Errorf("Scheduler = %+v", cfg.Scheduler)
	}
	if cfg.Journal.CompactInterval != time.Hour || !cfg.Journal.SyncWrites {
		t.Errorf("Journal = %+v", cfg.Journal)
	}
	if !cfg.Storage.Breaker.Enabled {
		t.Error("storage breaker should be enabled by default")
	}
	if cfg.Events.Transport != "channel" {
		t.Errorf("Events.Transport = %q, want channel", cfg.Events.Transport)
	}
	if len(cfg.Security.CORSOrigins) != 1 || cfg.Security.CORSOrigins[0] != "*" {
		t.Errorf("CORSOrigins = %v", cfg.Security.CORSOrigins)
	}
}

func TestLoad_FileThenEnvironment(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 9000
storage:
  uri: s3://vault-bucket/backups
  s3:
    region: eu-west-1
backup:
  keep_count: 5
  retention:
    expiry_floor: 2
scheduler:
  maintenance_time: "01:30"
  timezone: Europe/Berlin
tenants:
  bootstrap: [acme, globex]
`)
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("HTTP_PORT", "9100")
	t.Setenv("BACKUP_KEEP_COUNT", "7")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("SCHEDULER_RUN_TIMEOUT", "45m")
	t.Setenv("UNRELATED_VARIABLE", "ignored")

	cfg, err := load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"env overrides file", cfg.Server.Port, 9100},
		{"env overrides file (backup)", cfg.Backup.KeepCount, 7},
		{"file value", cfg.Storage.URI, "s3://vault-bucket/backups"},
		{"nested file value", cfg.Storage.S3.Region, "eu-west-1"},
		{"deep nested file value", cfg.Backup.Retention.ExpiryFloor, 2},
		{"file keeps unrelated defaults", cfg.Backup.DefaultExpiryDays, 30},
		{"scheduler time", cfg.Scheduler.MaintenanceTime, "01:30"},
		{"scheduler zone", cfg.Scheduler.Timezone, "Europe/Berlin"},
		{"duration from env", cfg.Scheduler.RunTimeout, 45 * time.Minute},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, tt.got, tt.want)
		}
	}

	if len(cfg.Security.CORSOrigins) != 2 || cfg.Security.CORSOrigins[1] != "https://b.example.com" {
		t.Errorf("CORSOrigins = %v", cfg.Security.CORSOrigins)
	}
	if len(cfg.Tenants.Bootstrap) != 2 || cfg.Tenants.Bootstrap[0] != "acme" {
		t.Errorf("Tenants.Bootstrap = %v", cfg.Tenants.Bootstrap)
	}
}

func TestLoad_TenantsFromEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("TENANTS_BOOTSTRAP", "acme,,globex ")

	cfg, err := load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Tenants.Bootstrap) != 2 || cfg.Tenants.Bootstrap[1] != "globex" {
		t.Errorf("Tenants.Bootstrap = %q, want [acme globex]", cfg.Tenants.Bootstrap)
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	t.Setenv("JWT_SECRET", "short")

	if _, err := load(""); err == nil {
		t.Fatal("load succeeded with a short JWT secret")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	if _, err := load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("load succeeded with a missing config file")
	}
}

func TestFindConfigFile_EnvOverride(t *testing.T) {
	path := writeConfigFile(t, "server:\n  port: 9000\n")
	t.Setenv(ConfigPathEnvVar, path)

	if got := findConfigFile(); got != path {
		t.Errorf("findConfigFile() = %q, want %q", got, path)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key  string
		want string
	}{
		{"HTTP_PORT", "server.port"},
		{"backup_storage_uri", "storage.uri"},
		{"BACKUP_DELETE_RATE", "backup.retention.delete_rate_per_second"},
		{"NATS_URL", "events.url"},
		{"PATH", ""},
		{"HOME", ""},
	}
	for _, tt := range tests {
		if got := envTransformFunc(tt.key); got != tt.want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}
