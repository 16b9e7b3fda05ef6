// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

package backup

import (
	"time"
)

// BackupType records who initiated a backup.
type BackupType string

const (
	// TypeManual is a backup requested by a tenant or operator.
	TypeManual BackupType = "manual"
	// TypeAutomatic is a backup created by a schedule firing.
	TypeAutomatic BackupType = "automatic"
)

// Valid reports whether t is a known backup type.
func (t BackupType) Valid() bool {
	return t == TypeManual || t == TypeAutomatic
}

// SnapshotKind selects how much data the exporter includes.
type SnapshotKind string

const (
	// KindFull exports every record the owner has.
	KindFull SnapshotKind = "FULL"
	// KindIncremental exports records changed since the owner's previous backup.
	KindIncremental SnapshotKind = "INCREMENTAL"
)

// Valid reports whether k is a known snapshot kind.
func (k SnapshotKind) Valid() bool {
	return k == KindFull || k == KindIncremental
}

// HistoryAction is the action recorded by a HistoryEntry.
type HistoryAction string

const (
	ActionCreated  HistoryAction = "created"
	ActionRestored HistoryAction = "restored"
	ActionVerified HistoryAction = "verified"
	ActionDeleted  HistoryAction = "deleted"
)

// HistoryStatus is the outcome recorded by a HistoryEntry.
type HistoryStatus string

const (
	StatusSuccess HistoryStatus = "success"
	StatusFailed  HistoryStatus = "failed"
)

// Frequency is the recurrence of a Schedule.
type Frequency string

const (
	FrequencyDaily   Frequency = "DAILY"
	FrequencyWeekly  Frequency = "WEEKLY"
	FrequencyMonthly Frequency = "MONTHLY"
)

// Valid reports whether f is a supported frequency.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	default:
		return false
	}
}

// RestorePointStatus tells whether a restore point can be used.
type RestorePointStatus string

const (
	PointAvailable   RestorePointStatus = "available"
	PointUnavailable RestorePointStatus = "unavailable"
)

// Backup is a point-in-time, hashed snapshot of an owner's data plus metadata.
// Created once; only IsRestored and RestoredAt change afterwards.
type Backup struct {
	// ID is the unique identifier (UUID)
	ID string `json:"id"`

	// OwnerID is the tenant the snapshot belongs to
	OwnerID string `json:"owner_id"`

	// Filename is the durable store key of the snapshot object
	Filename string `json:"filename"`

	// Location is the full URI of the snapshot object (scheme identifies the store)
	Location string `json:"location"`

	// SizeBytes is the size of the stored object
	SizeBytes int64 `json:"size_bytes"`

	// Format describes the stored encoding, e.g. "json+gzip+aes256gcm"
	Format string `json:"format"`

	// BackupType is manual or automatic
	BackupType BackupType `json:"backup_type"`

	// SnapshotKind is FULL or INCREMENTAL
	SnapshotKind SnapshotKind `json:"snapshot_kind"`

	// ParentID is the backup an INCREMENTAL was taken against. Empty for a
	// FULL and for an INCREMENTAL taken with no earlier backup.
	ParentID string `json:"parent_id,omitempty"`

	// RecordCount is the number of records the exporter reported
	RecordCount int64 `json:"record_count"`

	// DataHash is the hex SHA-256 of the stored bytes; nil for legacy records
	DataHash *string `json:"data_hash,omitempty"`

	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	IsRestored bool       `json:"is_restored"`
	RestoredAt *time.Time `json:"restored_at,omitempty"`
}

// HistoryEntry is one append-only audit record against a backup.
type HistoryEntry struct {
	ID       string `json:"id"`
	BackupID string `json:"backup_id"`

	// OwnerID keeps failed creates attributable when no backup row was committed
	OwnerID string `json:"owner_id"`

	Action      HistoryAction          `json:"action"`
	Status      HistoryStatus          `json:"status"`
	PerformedBy string                 `json:"performed_by,omitempty"`
	Details     map[string]interface{} `json:"details,omitempty"`
	Error       string                 `json:"error,omitempty"`
	Timestamp   time.Time              `json:"timestamp"`
}

// ScheduleOptions is the validated configuration carried by a Schedule.
type ScheduleOptions struct {
	// RetentionDays becomes the expiresInDays of every backup the schedule creates
	RetentionDays int `json:"retention_days" validate:"min=1,max=365"`

	// Compress gzips the snapshot before storing it
	Compress bool `json:"compress"`

	// Encrypt seals the snapshot with the configured encryption key
	Encrypt bool `json:"encrypt"`
}

// Schedule is a declarative recurring backup.
type Schedule struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// OwnerID scopes the schedule to one tenant; empty means every tenant
	OwnerID string `json:"owner_id,omitempty"`

	Frequency  Frequency    `json:"frequency"`
	TimeOfDay  string       `json:"time_of_day"`
	IsEnabled  bool         `json:"is_enabled"`
	BackupType SnapshotKind `json:"backup_type"`

	Options ScheduleOptions `json:"options"`

	LastRun   *time.Time `json:"last_run,omitempty"`
	NextRun   *time.Time `json:"next_run,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// RestorePoint is an immutable reference to a Backup usable as a restore target.
type RestorePoint struct {
	ID          string             `json:"id"`
	BackupID    string             `json:"backup_id"`
	OwnerID     string             `json:"owner_id"`
	Timestamp   time.Time          `json:"timestamp"`
	Description string             `json:"description"`
	Status      RestorePointStatus `json:"status"`
}

// TargetOutcome reports what happened (or would happen) to one restore target.
type TargetOutcome struct {
	// Target is "database" or "files"
	Target string `json:"target"`

	// Applied is true when the target was actually written
	Applied bool `json:"applied"`

	// Simulated is true for dry runs
	Simulated bool `json:"simulated"`

	Success bool `json:"success"`

	// ItemsRestored is records imported (database) or files written (files);
	// for dry runs it is the count that would be written
	ItemsRestored int64 `json:"items_restored"`

	// ItemsOverwritten is the count of existing items that are (or would be) replaced
	ItemsOverwritten int64 `json:"items_overwritten"`

	// Path is the file target path, when relevant
	Path string `json:"path,omitempty"`

	Error string `json:"error,omitempty"`
}

// RestoreResult is the outcome of one restore attempt. Never reused.
type RestoreResult struct {
	ID             string `json:"id"`
	RestorePointID string `json:"restore_point_id"`
	BackupID       string `json:"backup_id"`
	OwnerID        string `json:"owner_id"`
	DryRun         bool   `json:"dry_run"`
	Success        bool   `json:"success"`

	IntegrityChecked bool `json:"integrity_checked"`
	IntegrityValid   bool `json:"integrity_valid"`

	Targets     []TargetOutcome `json:"targets"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt time.Time       `json:"completed_at"`
	Error       string          `json:"error,omitempty"`
}

// ItemsRestored sums ItemsRestored across targets.
func (r *RestoreResult) ItemsRestored() int64 {
	var total int64
	for _, t := range r.Targets {
		total += t.ItemsRestored
	}
	return total
}

// CreateOptions are the inputs to BackupManager.CreateBackup.
type CreateOptions struct {
	// Type defaults to manual
	Type BackupType

	// Kind defaults to FULL
	Kind SnapshotKind

	// ExpiresInDays defaults to the configured default (30)
	ExpiresInDays int

	// Compress and Encrypt select the sealing applied before storage
	Compress bool
	Encrypt  bool

	// PerformedBy is recorded on history entries
	PerformedBy string
}

// ListOptions filters and paginates backup listings.
type ListOptions struct {
	OwnerID string
	Type    *BackupType
	Limit   int
	Offset  int

	// SortAsc lists oldest first; the default is newest first
	SortAsc bool
}

// BackupSummary is a listing row: the backup plus its latest ledger state.
type BackupSummary struct {
	*Backup
	LastAction   HistoryAction `json:"last_action,omitempty"`
	LastStatus   HistoryStatus `json:"last_status,omitempty"`
	LastActionAt *time.Time    `json:"last_action_at,omitempty"`
}

// BackupDetails is a backup with its full history.
type BackupDetails struct {
	Backup  *Backup         `json:"backup"`
	History []*HistoryEntry `json:"history"`
}

// Statistics aggregates an owner's backups.
type Statistics struct {
	TotalBackups     int        `json:"total_backups"`
	ManualBackups    int        `json:"manual_backups"`
	AutomaticBackups int        `json:"automatic_backups"`
	RestoredBackups  int        `json:"restored_backups"`
	UnhashedBackups  int        `json:"unhashed_backups"`
	TotalSizeBytes   int64      `json:"total_size_bytes"`
	AverageSizeBytes int64      `json:"average_size_bytes"`
	TotalRecords     int64      `json:"total_records"`
	OldestBackup     *time.Time `json:"oldest_backup,omitempty"`
	NewestBackup     *time.Time `json:"newest_backup,omitempty"`
	NextExpiry       *time.Time `json:"next_expiry,omitempty"`
}

// VerifyResult is the outcome of an integrity check.
type VerifyResult struct {
	BackupID     string    `json:"backup_id"`
	IsValid      bool      `json:"is_valid"`
	ExpectedHash string    `json:"expected_hash,omitempty"`
	ActualHash   string    `json:"actual_hash"`
	SizeBytes    int64     `json:"size_bytes"`
	VerifiedAt   time.Time `json:"verified_at"`

	// Vacuous is true when the backup had no stored hash and was accepted unchecked
	Vacuous bool `json:"vacuous"`
}
