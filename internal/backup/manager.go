// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

/*
manager.go - Backup Manager

Orchestrates snapshot creation, listing, deletion and statistics.

Creation is two-phase:
 1. An intent (backup id + object name) is recorded in the journal
 2. The sealed snapshot is written to the durable store
 3. The Backup and its RestorePoint are committed to the metadata store
 4. The intent is confirmed

A crash between 2 and 3 leaves an unconfirmed intent with no metadata; Recover
deletes the orphaned object. A crash between 3 and 4 leaves an unconfirmed
intent with metadata; Recover confirms it. A metadata row therefore never
points at a missing or truncated object.
*/

//nolint:staticcheck // File documentation, not package doc
package backup

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tomtom215/tenantvault/internal/logging"
	"github.com/tomtom215/tenantvault/internal/metrics"
)

const (
	// DefaultExpiryDays is applied when CreateOptions.ExpiresInDays is zero.
	DefaultExpiryDays = 30

	// DefaultKeepCount is the number of recent backups kept per owner.
	DefaultKeepCount = 10

	// MaxExpiryDays bounds expiresInDays and schedule retention.
	MaxExpiryDays = 365

	performedBySystem = "system"
)

// ManagerConfig tunes the Manager.
type ManagerConfig struct {
	DefaultExpiryDays int `koanf:"default_expiry_days"`
	KeepCount         int `koanf:"keep_count"`

	// CleanupTimeout bounds each asynchronous post-create retention pass.
	CleanupTimeout time.Duration `koanf:"cleanup_timeout"`

	// Retention configures the enforcer owned by the manager.
	Retention RetentionConfig `koanf:"retention"`
}

// DefaultManagerConfig returns production defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		DefaultExpiryDays: DefaultExpiryDays,
		KeepCount:         DefaultKeepCount,
		CleanupTimeout:    5 * time.Minute,
		Retention:         DefaultRetentionConfig(),
	}
}

// ManagerDeps are the collaborators of a Manager.
// Journal, Sealer and Notifier are optional.
type ManagerDeps struct {
	Store    Store
	Blobs    BlobStore
	Exporter DataExporter
	Tenants  TenantDirectory
	Journal  IntentJournal
	Sealer   *Sealer
	Notifier HistoryNotifier
	Guard    *OwnerGuard
}

// Manager is the entry point for manual and automatic backups.
type Manager struct {
	store    Store
	blobs    BlobStore
	exporter DataExporter
	tenants  TenantDirectory
	journal  IntentJournal
	sealer   *Sealer

	ledger    *Ledger
	verifier  *Verifier
	guard     *OwnerGuard
	retention *RetentionEnforcer

	cfg       ManagerConfig
	cleanupWG sync.WaitGroup
	now       func() time.Time
}

// NewManager creates a Manager and the ledger, verifier and retention
// enforcer it owns.
func NewManager(deps ManagerDeps, cfg ManagerConfig) (*Manager, error) {
	if deps.Store == nil || deps.Blobs == nil || deps.Exporter == nil || deps.Tenants == nil {
		return nil, fmt.Errorf("backup manager requires store, blob store, exporter and tenant directory")
	}
	if cfg.DefaultExpiryDays <= 0 {
		cfg.DefaultExpiryDays = DefaultExpiryDays
	}
	if cfg.KeepCount <= 0 {
		cfg.KeepCount = DefaultKeepCount
	}
	if cfg.CleanupTimeout <= 0 {
		cfg.CleanupTimeout = 5 * time.Minute
	}

	sealer := deps.Sealer
	if sealer == nil {
		sealer = &Sealer{}
	}
	guard := deps.Guard
	if guard == nil {
		guard = NewOwnerGuard()
	}

	m := &Manager{
		store:    deps.Store,
		blobs:    deps.Blobs,
		exporter: deps.Exporter,
		tenants:  deps.Tenants,
		journal:  deps.Journal,
		sealer:   sealer,
		guard:    guard,
		cfg:      cfg,
		now:      time.Now,
	}
	m.ledger = NewLedger(deps.Store, deps.Notifier)
	m.verifier = NewVerifier(deps.Blobs, m.ledger)
	m.retention = newRetentionEnforcer(deps.Store, m, cfg.Retention)
	return m, nil
}

// Ledger returns the history ledger.
func (m *Manager) Ledger() *Ledger { return m.ledger }

// Verifier returns the integrity verifier.
func (m *Manager) Verifier() *Verifier { return m.verifier }

// Guard returns the per-owner single-flight guard.
func (m *Manager) Guard() *OwnerGuard { return m.guard }

// Retention returns the retention enforcer.
func (m *Manager) Retention() *RetentionEnforcer { return m.retention }

// Sealer returns the snapshot sealer.
func (m *Manager) Sealer() *Sealer { return m.sealer }

// Blobs returns the durable store.
func (m *Manager) Blobs() BlobStore { return m.blobs }

// Store returns the metadata store.
func (m *Manager) Store() Store { return m.store }

// Tenants returns the tenant directory.
func (m *Manager) Tenants() TenantDirectory { return m.tenants }

// CreateBackup exports, seals, hashes and stores a snapshot of the owner's data.
func (m *Manager) CreateBackup(ctx context.Context, ownerID string, opts CreateOptions) (*Backup, error) {
	opts, err := m.normalizeCreateOptions(opts)
	if err != nil {
		return nil, err
	}
	if err := m.requireTenant(ctx, ownerID); err != nil {
		metrics.RecordBackupFailure("tenant")
		return nil, err
	}

	release, err := m.guard.Acquire(ownerID, "backup")
	if err != nil {
		metrics.RecordBackupFailure("conflict")
		return nil, err
	}
	defer release()

	start := m.now()
	id := uuid.New().String()
	ctx = logging.ContextWithOwnerID(ctx, ownerID)
	log := logging.Ctx(ctx).With().Str("backup_id", id).Logger()

	fail := func(stage string, cause error) (*Backup, error) {
		metrics.RecordBackupFailure(stage)
		log.Error().Err(cause).Str("stage", stage).Msg("Backup creation failed")
		m.recordCreateFailure(ctx, ownerID, id, stage, m.now().Sub(start), opts.PerformedBy, cause)
		return nil, cause
	}

	filter := ExportFilter{Kind: opts.Kind}
	var parentID string
	if opts.Kind == KindIncremental {
		prev, err := m.store.LatestBackup(ctx, ownerID)
		if err != nil {
			return fail("export", err)
		}
		if prev != nil {
			since := prev.CreatedAt
			filter.Since = &since
			parentID = prev.ID
		}
	}

	snap, err := m.exporter.ExportSnapshot(ctx, ownerID, filter)
	if err != nil {
		return fail("export", &ExportFailure{OwnerID: ownerID, Err: err})
	}

	sealed, format, err := m.sealer.Seal(snap.Data, snap.Format, opts.Compress, opts.Encrypt)
	if err != nil {
		return fail("seal", err)
	}
	hash := ComputeHash(sealed)

	createdAt := start.UTC()
	filename := buildFilename(ownerID, opts.Kind, createdAt, id, format)

	if m.journal != nil {
		intent := Intent{BackupID: id, OwnerID: ownerID, Filename: filename, CreatedAt: createdAt}
		if err := m.journal.Record(ctx, intent); err != nil {
			return fail("journal", &IOFailure{Op: "record backup intent", Err: err})
		}
	}

	if err := m.blobs.Write(ctx, filename, sealed); err != nil {
		m.rollbackObject(ctx, id, filename)
		return fail("write", &IOFailure{Op: "write snapshot " + filename, Err: err})
	}

	b := &Backup{
		ID:           id,
		OwnerID:      ownerID,
		Filename:     filename,
		Location:     m.blobs.Location(filename),
		SizeBytes:    int64(len(sealed)),
		Format:       format,
		BackupType:   opts.Type,
		SnapshotKind: opts.Kind,
		ParentID:     parentID,
		RecordCount:  snap.RecordCount,
		DataHash:     &hash,
		CreatedAt:    createdAt,
		ExpiresAt:    createdAt.AddDate(0, 0, opts.ExpiresInDays),
	}
	point := &RestorePoint{
		ID:          uuid.New().String(),
		BackupID:    id,
		OwnerID:     ownerID,
		Timestamp:   createdAt,
		Description: fmt.Sprintf("%s %s backup", opts.Type, strings.ToLower(string(opts.Kind))),
		Status:      PointAvailable,
	}

	if err := m.store.CommitBackup(ctx, b, point); err != nil {
		m.rollbackObject(ctx, id, filename)
		return fail("commit", err)
	}

	if m.journal != nil {
		if err := m.journal.Confirm(ctx, id); err != nil {
			// Recovery rolls this intent forward because the metadata exists.
			log.Warn().Err(err).Msg("Failed to confirm backup intent")
		}
	}

	duration := m.now().Sub(start)
	details := map[string]interface{}{
		"duration_ms":   duration.Milliseconds(),
		"record_count":  snap.RecordCount,
		"size_bytes":    b.SizeBytes,
		"snapshot_kind": string(opts.Kind),
		"format":        format,
	}
	if filter.Since != nil {
		details["since"] = filter.Since.Format(time.RFC3339Nano)
	}
	if parentID != "" {
		details["parent_id"] = parentID
	}
	if err := m.ledger.Record(ctx, b, ActionCreated, StatusSuccess, opts.PerformedBy, details, nil); err != nil {
		log.Error().Err(err).Msg("Failed to record backup creation")
	}

	metrics.RecordBackupCreated(string(b.BackupType), string(b.SnapshotKind), duration, b.SizeBytes)
	log.Info().
		Str("filename", filename).
		Int64("size_bytes", b.SizeBytes).
		Int64("record_count", b.RecordCount).
		Dur("duration", duration).
		Msg("Backup created")

	m.scheduleCleanup(ownerID)
	return cloneBackup(b), nil
}

// recordCreateFailure appends the failed creation to the owner's newest
// backup, since the attempted backup never got a row. An owner with no
// backup yet gets no ledger entry; the failure is still logged and counted.
func (m *Manager) recordCreateFailure(ctx context.Context, ownerID, attemptID, stage string, elapsed time.Duration, performedBy string, cause error) {
	log := logging.Ctx(ctx).With().Str("backup_id", attemptID).Logger()

	latest, err := m.store.LatestBackup(ctx, ownerID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to look up backup for failure history")
		return
	}
	if latest == nil {
		log.Debug().Msg("No backup to attach failure history to")
		return
	}

	details := map[string]interface{}{
		"stage":            stage,
		"duration_ms":      elapsed.Milliseconds(),
		"failed_backup_id": attemptID,
	}
	if err := m.ledger.Record(ctx, latest, ActionCreated, StatusFailed, performedBy, details, cause); err != nil {
		log.Error().Err(err).Msg("Failed to record backup failure")
	}
}

func (m *Manager) normalizeCreateOptions(opts CreateOptions) (CreateOptions, error) {
	if opts.Type == "" {
		opts.Type = TypeManual
	}
	if !opts.Type.Valid() {
		return opts, NewValidation("type", fmt.Sprintf("must be %q or %q", TypeManual, TypeAutomatic))
	}
	if opts.Kind == "" {
		opts.Kind = KindFull
	}
	if !opts.Kind.Valid() {
		return opts, NewValidation("kind", fmt.Sprintf("must be %q or %q", KindFull, KindIncremental))
	}
	if opts.ExpiresInDays == 0 {
		opts.ExpiresInDays = m.cfg.DefaultExpiryDays
	}
	if opts.ExpiresInDays < 1 || opts.ExpiresInDays > MaxExpiryDays {
		return opts, NewValidation("expires_in_days", fmt.Sprintf("must be between 1 and %d", MaxExpiryDays))
	}
	if opts.Encrypt && !m.sealer.CanEncrypt() {
		return opts, NewValidation("encrypt", "no encryption key is configured")
	}
	if opts.PerformedBy == "" {
		opts.PerformedBy = performedBySystem
	}
	return opts, nil
}

func (m *Manager) requireTenant(ctx context.Context, ownerID string) error {
	if strings.TrimSpace(ownerID) == "" {
		return NewValidation("owner_id", "is required")
	}
	ok, err := m.tenants.Exists(ctx, ownerID)
	if err != nil {
		return &IOFailure{Op: "lookup tenant " + ownerID, Err: err}
	}
	if !ok {
		return NewNotFound("owner", ownerID)
	}
	return nil
}

// rollbackObject deletes an object whose metadata was never committed and
// confirms its intent. Failures leave the intent pending for Recover.
func (m *Manager) rollbackObject(ctx context.Context, backupID, filename string) {
	if err := m.blobs.Delete(ctx, filename); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("filename", filename).Msg("Failed to roll back snapshot object")
		return
	}
	if m.journal != nil {
		if err := m.journal.Confirm(ctx, backupID); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("backup_id", backupID).Msg("Failed to confirm rolled back intent")
		}
	}
}

// scheduleCleanup runs cleanupOldBackups for the owner in the background.
func (m *Manager) scheduleCleanup(ownerID string) {
	m.cleanupWG.Add(1)
	go func() {
		defer m.cleanupWG.Done()
		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.CleanupTimeout)
		defer cancel()
		ctx = logging.ContextWithOwnerID(ctx, ownerID)

		deleted, err := m.retention.CleanupOldBackups(ctx, ownerID, m.cfg.KeepCount)
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Msg("Post-create retention cleanup failed")
			return
		}
		if deleted > 0 {
			logging.Ctx(ctx).Info().Int("deleted", deleted).Msg("Post-create retention cleanup removed old backups")
		}
	}()
}

// Wait blocks until background cleanups started by CreateBackup finish.
func (m *Manager) Wait() {
	m.cleanupWG.Wait()
}

// ListBackups returns backups with their latest ledger state.
func (m *Manager) ListBackups(ctx context.Context, opts ListOptions) ([]*BackupSummary, error) {
	if opts.Limit < 0 || opts.Offset < 0 {
		return nil, NewValidation("limit", "limit and offset must not be negative")
	}
	if opts.Type != nil && !opts.Type.Valid() {
		return nil, NewValidation("type", fmt.Sprintf("must be %q or %q", TypeManual, TypeAutomatic))
	}

	list, err := m.store.ListBackups(ctx, opts)
	if err != nil {
		return nil, err
	}

	summaries := make([]*BackupSummary, 0, len(list))
	for _, b := range list {
		s := &BackupSummary{Backup: b}
		last, err := m.ledger.Latest(ctx, b.ID)
		if err != nil {
			return nil, err
		}
		if last != nil {
			at := last.Timestamp
			s.LastAction = last.Action
			s.LastStatus = last.Status
			s.LastActionAt = &at
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}

// GetBackup returns a backup. A non-empty ownerID must match the backup's
// owner; a mismatch is reported as not found.
func (m *Manager) GetBackup(ctx context.Context, ownerID, backupID string) (*Backup, error) {
	b, err := m.store.GetBackup(ctx, backupID)
	if err != nil {
		return nil, err
	}
	if ownerID != "" && b.OwnerID != ownerID {
		return nil, NewNotFound("backup", backupID)
	}
	return b, nil
}

// GetBackupDetails returns a backup and its full history.
func (m *Manager) GetBackupDetails(ctx context.Context, ownerID, backupID string) (*BackupDetails, error) {
	b, err := m.GetBackup(ctx, ownerID, backupID)
	if err != nil {
		return nil, err
	}
	history, err := m.ledger.List(ctx, backupID)
	if err != nil {
		return nil, err
	}
	if history == nil {
		history = []*HistoryEntry{}
	}
	return &BackupDetails{Backup: b, History: history}, nil
}

// DeleteBackup removes the stored object (best effort), the record with its
// cascaded history and restore points, and appends a deleted entry.
func (m *Manager) DeleteBackup(ctx context.Context, ownerID, backupID, performedBy string) error {
	b, err := m.GetBackup(ctx, ownerID, backupID)
	if err != nil {
		return err
	}
	if performedBy == "" {
		performedBy = performedBySystem
	}
	return m.deleteBackup(ctx, b, performedBy, "manual")
}

func (m *Manager) deleteBackup(ctx context.Context, b *Backup, performedBy, reason string) error {
	log := logging.Ctx(ctx).With().Str("backup_id", b.ID).Str("owner_id", b.OwnerID).Logger()

	objectDeleted := true
	if err := m.blobs.Delete(ctx, b.Filename); err != nil {
		objectDeleted = false
		log.Warn().Err(err).Str("filename", b.Filename).Msg("Failed to delete snapshot object")
	}

	details := map[string]interface{}{
		"filename":       b.Filename,
		"reason":         reason,
		"object_deleted": objectDeleted,
	}

	if err := m.store.DeleteBackup(ctx, b.ID); err != nil {
		if lerr := m.ledger.Record(ctx, b, ActionDeleted, StatusFailed, performedBy, details, err); lerr != nil {
			log.Error().Err(lerr).Msg("Failed to record delete failure")
		}
		return err
	}

	if n := m.invalidateDependents(ctx, b); n > 0 {
		details["dependents_invalidated"] = n
	}

	if err := m.ledger.Record(ctx, b, ActionDeleted, StatusSuccess, performedBy, details, nil); err != nil {
		log.Error().Err(err).Msg("Failed to record backup deletion")
	}

	metrics.RecordBackupDeleted(reason)
	log.Info().Str("reason", reason).Msg("Backup deleted")
	return nil
}

// invalidateDependents marks the restore points of every INCREMENTAL built
// on the deleted backup unavailable, since their chain can no longer be
// rebuilt. It returns how many backups were affected.
func (m *Manager) invalidateDependents(ctx context.Context, deleted *Backup) int {
	log := logging.Ctx(ctx).With().Str("backup_id", deleted.ID).Logger()

	list, err := m.store.ListBackups(ctx, ListOptions{OwnerID: deleted.OwnerID})
	if err != nil {
		log.Error().Err(err).Msg("Failed to list dependent backups")
		return 0
	}

	n := 0
	for _, d := range dependentsOf(list, deleted.ID) {
		if err := m.store.SetRestorePointStatus(ctx, d.ID, PointUnavailable); err != nil {
			log.Error().Err(err).Str("dependent_id", d.ID).Msg("Failed to mark dependent restore point unavailable")
			continue
		}
		n++
	}
	if n > 0 {
		log.Warn().Int("dependents", n).Msg("Restore points invalidated by backup deletion")
	}
	return n
}

// VerifyBackup checks a backup's stored object against its hash.
func (m *Manager) VerifyBackup(ctx context.Context, ownerID, backupID, performedBy string) (*VerifyResult, error) {
	b, err := m.GetBackup(ctx, ownerID, backupID)
	if err != nil {
		return nil, err
	}
	if performedBy == "" {
		performedBy = performedBySystem
	}
	return m.verifier.Verify(ctx, b, performedBy)
}

// GetBackupStatistics aggregates the owner's backups. An empty ownerID
// aggregates every owner.
func (m *Manager) GetBackupStatistics(ctx context.Context, ownerID string) (*Statistics, error) {
	list, err := m.store.ListBackups(ctx, ListOptions{OwnerID: ownerID, SortAsc: true})
	if err != nil {
		return nil, err
	}

	stats := &Statistics{}
	for _, b := range list {
		stats.TotalBackups++
		stats.TotalSizeBytes += b.SizeBytes
		stats.TotalRecords += b.RecordCount
		switch b.BackupType {
		case TypeManual:
			stats.ManualBackups++
		case TypeAutomatic:
			stats.AutomaticBackups++
		}
		if b.IsRestored {
			stats.RestoredBackups++
		}
		if b.DataHash == nil {
			stats.UnhashedBackups++
		}
		created := b.CreatedAt
		if stats.OldestBackup == nil || created.Before(*stats.OldestBackup) {
			stats.OldestBackup = &created
		}
		if stats.NewestBackup == nil || created.After(*stats.NewestBackup) {
			stats.NewestBackup = &created
		}
		expires := b.ExpiresAt
		if stats.NextExpiry == nil || expires.Before(*stats.NextExpiry) {
			stats.NextExpiry = &expires
		}
	}
	if stats.TotalBackups > 0 {
		stats.AverageSizeBytes = stats.TotalSizeBytes / int64(stats.TotalBackups)
	}
	return stats, nil
}

// RecoveryReport summarizes a journal recovery pass.
type RecoveryReport struct {
	RolledForward int
	RolledBack    int
	Failed        int
}

// Recover resolves intents left unconfirmed by a crash.
func (m *Manager) Recover(ctx context.Context) (*RecoveryReport, error) {
	report := &RecoveryReport{}
	if m.journal == nil {
		return report, nil
	}

	pending, err := m.journal.Pending(ctx)
	if err != nil {
		return nil, &IOFailure{Op: "list pending intents", Err: err}
	}

	for _, intent := range pending {
		log := logging.Ctx(ctx).With().
			Str("backup_id", intent.BackupID).
			Str("owner_id", intent.OwnerID).
			Str("filename", intent.Filename).
			Logger()

		_, err := m.store.GetBackup(ctx, intent.BackupID)
		switch {
		case err == nil:
			if cerr := m.journal.Confirm(ctx, intent.BackupID); cerr != nil {
				report.Failed++
				metrics.RecordJournalRecovery("failed")
				log.Error().Err(cerr).Msg("Failed to confirm committed intent")
				continue
			}
			report.RolledForward++
			metrics.RecordJournalRecovery("rolled_forward")
			log.Info().Msg("Confirmed committed backup intent")

		case IsNotFound(err):
			if derr := m.blobs.Delete(ctx, intent.Filename); derr != nil {
				report.Failed++
				metrics.RecordJournalRecovery("failed")
				log.Error().Err(derr).Msg("Failed to delete orphaned snapshot object")
				continue
			}
			if cerr := m.journal.Confirm(ctx, intent.BackupID); cerr != nil {
				report.Failed++
				metrics.RecordJournalRecovery("failed")
				log.Error().Err(cerr).Msg("Failed to confirm rolled back intent")
				continue
			}
			report.RolledBack++
			metrics.RecordJournalRecovery("rolled_back")
			log.Warn().Msg("Deleted orphaned snapshot object from interrupted backup")

		default:
			report.Failed++
			metrics.RecordJournalRecovery("failed")
			log.Error().Err(err).Msg("Failed to resolve backup intent")
		}
	}

	if len(pending) > 0 {
		logging.Ctx(ctx).Info().
			Int("rolled_forward", report.RolledForward).
			Int("rolled_back", report.RolledBack).
			Int("failed", report.Failed).
			Msg("Backup journal recovery complete")
	}
	return report, nil
}

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// buildFilename derives the object name from owner, kind, time and id.
// Unix nanoseconds plus the id prefix make names unique per owner.
func buildFilename(ownerID string, kind SnapshotKind, at time.Time, id, format string) string {
	owner := unsafeKeyChars.ReplaceAllString(ownerID, "_")
	if owner == "" || owner == "." || owner == ".." {
		owner = "_"
	}
	short := strings.ReplaceAll(id, "-", "")
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("%s/backup-%s-%s-%d-%s%s",
		owner,
		strings.ToLower(string(kind)),
		at.UTC().Format("20060102-150405"),
		at.UnixNano(),
		short,
		fileExtension(format),
	)
}
