// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

package api

import (
	"context"
	"time"

	"github.com/tomtom215/tenantvault/internal/backup"
	"github.com/tomtom215/tenantvault/internal/restore"
	"github.com/tomtom215/tenantvault/internal/scheduler"
	ws "github.com/tomtom215/tenantvault/internal/websocket"
)

// BackupService is the backup surface used by the handlers (*backup.Manager).
type BackupService interface {
	CreateBackup(ctx context.Context, ownerID string, opts backup.CreateOptions) (*backup.Backup, error)
	ListBackups(ctx context.Context, opts backup.ListOptions) ([]*backup.BackupSummary, error)
	GetBackupDetails(ctx context.Context, ownerID, backupID string) (*backup.BackupDetails, error)
	DeleteBackup(ctx context.Context, ownerID, backupID, performedBy string) error
	VerifyBackup(ctx context.Context, ownerID, backupID, performedBy string) (*backup.VerifyResult, error)
	GetBackupStatistics(ctx context.Context, ownerID string) (*backup.Statistics, error)
}

// RetentionService runs keep-count cleanup (*backup.RetentionEnforcer).
type RetentionService interface {
	CleanupOldBackups(ctx context.Context, ownerID string, keepCount int) (int, error)
}

// ScheduleService manages schedules (*scheduler.SchedulerContext).
type ScheduleService interface {
	CreateSchedule(ctx context.Context, in scheduler.ScheduleInput) (*backup.Schedule, error)
	UpdateSchedule(ctx context.Context, id string, upd scheduler.ScheduleUpdate) (*backup.Schedule, error)
	DeleteSchedule(ctx context.Context, id string) error
	GetSchedule(ctx context.Context, id string) (*backup.Schedule, error)
	ListSchedules(ctx context.Context) ([]*backup.Schedule, error)
	ExecuteScheduledBackup(ctx context.Context, id string) error
}

// RestoreService runs restores (*restore.Coordinator).
type RestoreService interface {
	RestoreFromPoint(ctx context.Context, ownerID, pointID string, opts restore.Options) (*backup.RestoreResult, error)
	PointInTimeRestore(ctx context.Context, ownerID string, ts time.Time, opts restore.Options) (*backup.RestoreResult, error)
	DryRunRestore(ctx context.Context, ownerID, pointID string, opts restore.Options) (*backup.RestoreResult, error)
	TestRestore(ctx context.Context, ownerID, pointID, performedBy string) (*restore.TestResult, error)
	ListRestorePoints(ctx context.Context, ownerID string) ([]*backup.RestorePoint, error)
	GetRestorePoint(ctx context.Context, ownerID, pointID string) (*backup.RestorePoint, error)
	ListRestoreResults(ctx context.Context, ownerID string) ([]*backup.RestoreResult, error)
	GetRestoreStatistics(ctx context.Context, ownerID string) (*restore.Statistics, error)
}

// HealthCheck reports whether one dependency is usable.
type HealthCheck func(ctx context.Context) error

// HandlerConfig tunes request handling.
type HandlerConfig struct {
	DefaultPageSize int
	MaxPageSize     int
	DefaultKeep     int
	Version         string

	// AllowedOrigins are accepted on websocket upgrades; "*" allows any.
	// Requests without an Origin header (non-browser clients) are accepted.
	AllowedOrigins []string
}

// Handler serves the control API.
type Handler struct {
	backups   BackupService
	retention RetentionService
	schedules ScheduleService
	restores  RestoreService
	hub       *ws.Hub
	checks    map[string]HealthCheck
	cfg       HandlerConfig
	startTime time.Time
}

// HandlerDeps groups the services behind the handlers.
type HandlerDeps struct {
	Backups   BackupService
	Retention RetentionService
	Schedules ScheduleService
	Restores  RestoreService

	// Hub streams history events over websockets; nil disables the stream
	Hub *ws.Hub

	// Checks are run by the readiness endpoint, keyed by component name
	Checks map[string]HealthCheck
}

// NewHandler creates the API handler.
func NewHandler(deps HandlerDeps, cfg HandlerConfig) *Handler {
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 50
	}
	if cfg.MaxPageSize < cfg.DefaultPageSize {
		cfg.MaxPageSize = cfg.DefaultPageSize
	}
	if cfg.DefaultKeep <= 0 {
		cfg.DefaultKeep = backup.DefaultKeepCount
	}
	checks := deps.Checks
	if checks == nil {
		checks = map[string]HealthCheck{}
	}
	return &Handler{
		backups:   deps.Backups,
		retention: deps.Retention,
		schedules: deps.Schedules,
		restores:  deps.Restores,
		hub:       deps.Hub,
		checks:    checks,
		cfg:       cfg,
		startTime: time.Now(),
	}
}
