// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

package restore

import (
	"context"
	"time"

	"github.com/tomtom215/tenantvault/internal/backup"
)

// Restore target names reported in backup.TargetOutcome.Target.
const (
	TargetDatabase = "database"
	TargetFiles    = "files"
)

// Metric modes.
const (
	modeApply  = "apply"
	modeDryRun = "dry_run"
	modeTest   = "test"
)

// Options select what a restore does.
type Options struct {
	// DryRun computes the effect without writing anything to a target
	DryRun bool `json:"dry_run"`

	// VerifyIntegrity checks the snapshot hash first. An applying restore
	// aborts with *backup.IntegrityError on mismatch.
	VerifyIntegrity bool `json:"verify_integrity"`

	// RestoreDatabase imports the snapshot into the owner's database.
	// When neither target is selected the database is restored.
	RestoreDatabase bool `json:"restore_database"`

	// RestoreFiles writes the unsealed snapshot to TargetPath
	RestoreFiles bool `json:"restore_files"`

	// TargetPath is a relative path under the owner's directory in
	// Config.DefaultTargetPath. Schemes, absolute paths and ".." are rejected.
	TargetPath string `json:"target_path,omitempty" validate:"omitempty,max=1024"`

	// PerformedBy is recorded on history entries
	PerformedBy string `json:"-"`
}

// ImportPlan describes the effect of importing a snapshot.
type ImportPlan struct {
	// Records is the number of records in the snapshot
	Records int64 `json:"records"`

	// Overwrites is the number of existing records that would be replaced
	Overwrites int64 `json:"overwrites"`
}

// Layer is one unsealed snapshot of a restore chain.
type Layer struct {
	BackupID string
	Data     []byte

	// Format is the base format, e.g. "json"
	Format string
}

// DatabaseImporter applies snapshots to an owner's live data.
// Layers are ordered oldest first: a FULL snapshot followed by the
// INCREMENTAL snapshots taken after it. A record in a later layer replaces
// the same record from an earlier one.
type DatabaseImporter interface {
	// PlanImport computes what Import would do without writing.
	PlanImport(ctx context.Context, ownerID string, layers []Layer) (*ImportPlan, error)

	// Import applies every layer atomically and reports what was written.
	Import(ctx context.Context, ownerID string, layers []Layer) (*ImportPlan, error)
}

// TargetOpener opens the file restore target named by a path or URI.
// With readOnly set the opener must not create anything; dry runs use it
// to inspect a target that may not exist yet.
type TargetOpener func(ctx context.Context, uri string, readOnly bool) (backup.BlobStore, error)

// TestResult is the outcome of a read-only restore capability check.
type TestResult struct {
	RestorePointID string `json:"restore_point_id"`
	BackupID       string `json:"backup_id"`

	// Reachable is true when the snapshot object could be read
	Reachable bool `json:"reachable"`

	IntegrityValid bool `json:"integrity_valid"`
	Vacuous        bool `json:"vacuous"`

	// Readable is true when the snapshot could be unsealed and parsed
	Readable bool `json:"readable"`

	Records   int64     `json:"records"`
	SizeBytes int64     `json:"size_bytes"`
	TestedAt  time.Time `json:"tested_at"`
	Error     string    `json:"error,omitempty"`
}

// Restorable reports whether an applying restore of this point would succeed
// as far as can be known without writing.
func (r *TestResult) Restorable() bool {
	return r.Reachable && r.IntegrityValid && r.Readable
}

// Statistics summarizes an owner's restore attempts.
type Statistics struct {
	Attempts      int        `json:"attempts"`
	Successes     int        `json:"successes"`
	Failures      int        `json:"failures"`
	DryRuns       int        `json:"dry_runs"`
	ItemsRestored int64      `json:"items_restored"`
	LastRestore   *time.Time `json:"last_restore,omitempty"`
	LastSuccess   *time.Time `json:"last_success,omitempty"`
}
