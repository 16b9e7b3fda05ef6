// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

/*
coordinator.go - Restore Coordinator

A restore moves through:

	Resolved -> Verified -> (Simulated | Applied) -> Completed | Failed

Resolution loads the restore point, its backup and the backup's chain; any
of them belonging to a different owner is reported as not found. A FULL
backup is its own chain. An INCREMENTAL is restored together with the FULL
it was built on and every INCREMENTAL in between, oldest first. A chain with
a missing link marks the point unavailable.

Verification is optional and covers every link. For an applying restore a
hash mismatch aborts with *backup.IntegrityError before any target is
touched; for a dry run the mismatch is reported on the result.

File targets always live under Config.DefaultTargetPath/<owner>. The caller
may only choose a relative directory below it.

Targets are restored independently. A failure in one target is reported on
its TargetOutcome and does not roll back the other.

Dry runs read the snapshots and compute per-target effects. They take no
owner guard, append no history, never mark the backup restored and open the
file target read-only; only the RestoreResult audit record is saved.
*/

//nolint:staticcheck // File documentation, not package doc
package restore

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tomtom215/tenantvault/internal/backup"
	"github.com/tomtom215/tenantvault/internal/blobstore"
	"github.com/tomtom215/tenantvault/internal/logging"
	"github.com/tomtom215/tenantvault/internal/metrics"
	"github.com/tomtom215/tenantvault/internal/validation"
)

// Store is the metadata the coordinator reads and writes.
type Store interface {
	backup.BackupStore
	backup.RestoreStore
}

// Deps are the collaborators of a Coordinator.
type Deps struct {
	Store    Store
	Blobs    backup.BlobStore
	Sealer   *backup.Sealer
	Verifier *backup.Verifier
	Ledger   *backup.Ledger
	Guard    *backup.OwnerGuard
	Importer DatabaseImporter

	// Targets opens file restore targets. Nil uses blobstore.Open.
	Targets TargetOpener
}

// Config tunes the Coordinator.
type Config struct {
	// DefaultTargetPath is the root of every file restore. Each owner
	// restores into its own directory below it. Empty disables file restores.
	DefaultTargetPath string `koanf:"default_target_path"`

	// Timeout bounds one restore. Zero means no bound beyond the caller's context.
	Timeout time.Duration `koanf:"timeout"`
}

// Coordinator resolves restore points and restores or simulates them.
type Coordinator struct {
	store    Store
	blobs    backup.BlobStore
	sealer   *backup.Sealer
	verifier *backup.Verifier
	ledger   *backup.Ledger
	guard    *backup.OwnerGuard
	importer DatabaseImporter
	targets  TargetOpener
	cfg      Config

	now func() time.Time
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(deps Deps, cfg Config) (*Coordinator, error) {
	if deps.Store == nil || deps.Blobs == nil || deps.Verifier == nil || deps.Ledger == nil {
		return nil, errors.New("restore coordinator requires store, blob store, verifier and ledger")
	}
	if deps.Importer == nil {
		return nil, errors.New("restore coordinator requires a database importer")
	}
	if deps.Guard == nil {
		deps.Guard = backup.NewOwnerGuard()
	}
	if deps.Targets == nil {
		deps.Targets = openBlobTarget
	}

	return &Coordinator{
		store:    deps.Store,
		blobs:    deps.Blobs,
		sealer:   deps.Sealer,
		verifier: deps.Verifier,
		ledger:   deps.Ledger,
		guard:    deps.Guard,
		importer: deps.Importer,
		targets:  deps.Targets,
		cfg:      cfg,
		now:      time.Now,
	}, nil
}

func openBlobTarget(ctx context.Context, uri string, readOnly bool) (backup.BlobStore, error) {
	return blobstore.Open(ctx, blobstore.Config{URI: uri, ReadOnly: readOnly})
}

// RestoreFromPoint restores (or simulates restoring) the backup behind pointID.
func (c *Coordinator) RestoreFromPoint(ctx context.Context, ownerID, pointID string, opts Options) (*backup.RestoreResult, error) {
	opts, err := c.normalizeOptions(ownerID, opts)
	if err != nil {
		return nil, err
	}

	point, chain, err := c.resolve(ctx, ownerID, pointID)
	if err != nil {
		return nil, err
	}

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}
	ctx = logging.ContextWithOwnerID(ctx, ownerID)

	if opts.DryRun {
		return c.simulate(ctx, point, chain, opts)
	}

	release, err := c.guard.Acquire(ownerID, "restore")
	if err != nil {
		return nil, err
	}
	defer release()

	return c.apply(ctx, point, chain, opts)
}

// PointInTimeRestore restores the owner's newest available point at or before ts.
// It never selects a later point: with none at or before ts it returns *backup.NotFoundError.
func (c *Coordinator) PointInTimeRestore(ctx context.Context, ownerID string, ts time.Time, opts Options) (*backup.RestoreResult, error) {
	point, err := c.store.FindRestorePointAtOrBefore(ctx, ownerID, ts)
	if err != nil {
		return nil, err
	}
	logging.Ctx(ctx).Debug().
		Str("owner_id", ownerID).
		Time("requested", ts).
		Str("restore_point_id", point.ID).
		Time("point_timestamp", point.Timestamp).
		Msg("Resolved point-in-time restore")
	return c.RestoreFromPoint(ctx, ownerID, point.ID, opts)
}

// DryRunRestore is RestoreFromPoint with DryRun forced on.
func (c *Coordinator) DryRunRestore(ctx context.Context, ownerID, pointID string, opts Options) (*backup.RestoreResult, error) {
	opts.DryRun = true
	return c.RestoreFromPoint(ctx, ownerID, pointID, opts)
}

// TestRestore checks that the point's snapshots are reachable, intact and
// readable, without restoring anything. Every link of an INCREMENTAL chain is
// checked. Problems are reported on the result.
func (c *Coordinator) TestRestore(ctx context.Context, ownerID, pointID, performedBy string) (*TestResult, error) {
	point, chain, err := c.resolve(ctx, ownerID, pointID)
	if err != nil {
		return nil, err
	}
	b := chain[len(chain)-1]

	start := c.now()
	result := &TestResult{RestorePointID: point.ID, BackupID: b.ID}
	defer func() {
		result.TestedAt = c.now().UTC()
		metrics.RecordRestore(modeTest, result.Restorable(), c.now().Sub(start))
	}()

	reads := make([]*backup.VerifyResult, len(chain))
	raw := make([][]byte, len(chain))
	for i, link := range chain {
		vr, data, err := c.verifier.VerifyAndRead(ctx, link, performedBy)
		if err != nil {
			result.Error = err.Error()
			return result, nil
		}
		reads[i], raw[i] = vr, data
	}
	result.Reachable = true

	result.IntegrityValid = true
	for i, vr := range reads {
		result.SizeBytes += vr.SizeBytes
		result.Vacuous = result.Vacuous || vr.Vacuous
		if !vr.IsValid && result.IntegrityValid {
			result.IntegrityValid = false
			result.Error = (&backup.IntegrityError{BackupID: chain[i].ID, Expected: vr.ExpectedHash, Actual: vr.ActualHash}).Error()
		}
	}
	if !result.IntegrityValid {
		return result, nil
	}

	layers := make([]Layer, 0, len(chain))
	for i, link := range chain {
		plain, err := c.unseal(raw[i], link.Format)
		if err != nil {
			result.Error = err.Error()
			return result, nil
		}
		layers = append(layers, Layer{BackupID: link.ID, Data: plain, Format: backup.BaseFormat(link.Format)})
	}
	plan, err := c.importer.PlanImport(ctx, b.OwnerID, layers)
	if err != nil {
		result.Error = err.Error()
		return result, nil
	}
	result.Readable = true
	result.Records = plan.Records
	return result, nil
}

// ListRestorePoints returns the owner's restore points newest first.
func (c *Coordinator) ListRestorePoints(ctx context.Context, ownerID string) ([]*backup.RestorePoint, error) {
	return c.store.ListRestorePoints(ctx, ownerID)
}

// GetRestorePoint returns one of the owner's restore points.
func (c *Coordinator) GetRestorePoint(ctx context.Context, ownerID, pointID string) (*backup.RestorePoint, error) {
	point, err := c.store.GetRestorePoint(ctx, pointID)
	if err != nil {
		return nil, err
	}
	if point.OwnerID != ownerID {
		return nil, backup.NewNotFound("restore_point", pointID)
	}
	return point, nil
}

// ListRestoreResults returns the owner's restore attempts newest first.
func (c *Coordinator) ListRestoreResults(ctx context.Context, ownerID string) ([]*backup.RestoreResult, error) {
	return c.store.ListRestoreResults(ctx, ownerID)
}

// GetRestoreStatistics summarizes the owner's restore attempts.
func (c *Coordinator) GetRestoreStatistics(ctx context.Context, ownerID string) (*Statistics, error) {
	results, err := c.store.ListRestoreResults(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	stats := &Statistics{}
	for _, r := range results {
		if r.DryRun {
			stats.DryRuns++
			continue
		}
		stats.Attempts++
		completed := r.CompletedAt
		if stats.LastRestore == nil || completed.After(*stats.LastRestore) {
			stats.LastRestore = &completed
		}
		if !r.Success {
			stats.Failures++
			continue
		}
		stats.Successes++
		stats.ItemsRestored += r.ItemsRestored()
		if stats.LastSuccess == nil || completed.After(*stats.LastSuccess) {
			stats.LastSuccess = &completed
		}
	}
	return stats, nil
}

// normalizeOptions validates opts and resolves TargetPath to the owner's
// confined file target.
func (c *Coordinator) normalizeOptions(ownerID string, opts Options) (Options, error) {
	if verr := validation.ValidateStruct(&opts); verr != nil {
		return opts, backup.NewValidation("target_path", verr.Error())
	}
	if !opts.RestoreDatabase && !opts.RestoreFiles {
		opts.RestoreDatabase = true
	}
	if opts.RestoreFiles {
		if c.cfg.DefaultTargetPath == "" {
			return opts, backup.NewValidation("target_path", "file restores are not configured")
		}
		target, err := confineTarget(c.cfg.DefaultTargetPath, ownerID, opts.TargetPath)
		if err != nil {
			return opts, err
		}
		opts.TargetPath = target
	}
	return opts, nil
}

// confineTarget joins root, the owner directory and the caller's relative
// path. The result never leaves root/ownerID.
func confineTarget(root, ownerID, rel string) (string, error) {
	owner, err := blobstore.CleanName(ownerID)
	if err != nil || strings.Contains(owner, "/") {
		return "", backup.NewValidation("owner_id", "owner id cannot name a restore directory")
	}
	base := strings.TrimRight(root, "/") + "/" + owner
	if rel == "" {
		return base, nil
	}

	if strings.Contains(rel, ":") || filepath.IsAbs(rel) {
		return "", backup.NewValidation("target_path", "must be a relative path without a scheme")
	}
	cleaned, err := blobstore.CleanName(rel)
	if err != nil {
		return "", backup.NewValidation("target_path", "must stay inside the owner's restore directory")
	}
	return base + "/" + cleaned, nil
}

// resolve loads the point and the backup chain behind it, oldest first,
// hiding anything not owned by ownerID.
func (c *Coordinator) resolve(ctx context.Context, ownerID, pointID string) (*backup.RestorePoint, []*backup.Backup, error) {
	point, err := c.GetRestorePoint(ctx, ownerID, pointID)
	if err != nil {
		return nil, nil, err
	}
	if point.Status != backup.PointAvailable {
		return nil, nil, backup.NewValidation("restore_point", fmt.Sprintf("restore point %s is %s", pointID, point.Status))
	}

	b, err := c.store.GetBackup(ctx, point.BackupID)
	if err != nil {
		if backup.IsNotFound(err) {
			return nil, nil, backup.NewNotFound("backup", point.BackupID)
		}
		return nil, nil, err
	}
	if b.OwnerID != ownerID {
		return nil, nil, backup.NewNotFound("backup", point.BackupID)
	}

	chain, err := backup.Chain(ctx, c.store, b)
	if err != nil {
		if backup.IsValidation(err) {
			if serr := c.store.SetRestorePointStatus(ctx, b.ID, backup.PointUnavailable); serr != nil {
				logging.Ctx(ctx).Error().Err(serr).Str("backup_id", b.ID).Msg("Failed to mark broken restore point unavailable")
			}
			logging.Ctx(ctx).Warn().Err(err).Str("restore_point_id", point.ID).Msg("Restore point chain is broken")
		}
		return nil, nil, err
	}
	return point, chain, nil
}

func (c *Coordinator) newResult(point *backup.RestorePoint, b *backup.Backup, dryRun bool) *backup.RestoreResult {
	return &backup.RestoreResult{
		ID:             uuid.New().String(),
		RestorePointID: point.ID,
		BackupID:       b.ID,
		OwnerID:        b.OwnerID,
		DryRun:         dryRun,
		StartedAt:      c.now().UTC(),
	}
}

// simulate computes what apply would do. It writes nothing but the audit record.
func (c *Coordinator) simulate(ctx context.Context, point *backup.RestorePoint, chain []*backup.Backup, opts Options) (*backup.RestoreResult, error) {
	b := chain[len(chain)-1]
	log := logging.Ctx(ctx).With().Str("backup_id", b.ID).Str("restore_point_id", point.ID).Logger()
	result := c.newResult(point, b, true)

	layers, mismatch, err := c.loadLayers(ctx, chain, opts, true)
	if err != nil {
		return c.finish(ctx, result, modeDryRun, err)
	}
	result.IntegrityChecked = opts.VerifyIntegrity
	if mismatch != nil {
		log.Warn().Str("link_id", mismatch.BackupID).Msg("Dry run found integrity mismatch")
		result.Error = mismatch.Error()
		return c.finish(ctx, result, modeDryRun, nil)
	}
	result.IntegrityValid = opts.VerifyIntegrity

	if opts.RestoreDatabase {
		result.Targets = append(result.Targets, c.databaseTarget(ctx, b, layers, true))
	}
	if opts.RestoreFiles {
		result.Targets = append(result.Targets, c.fileTarget(ctx, chain, layers, opts.TargetPath, true))
	}

	log.Info().Int("chain", len(chain)).Int64("items", result.ItemsRestored()).Msg("Dry run restore computed")
	return c.finish(ctx, result, modeDryRun, nil)
}

// apply restores every requested target. The caller holds the owner guard.
func (c *Coordinator) apply(ctx context.Context, point *backup.RestorePoint, chain []*backup.Backup, opts Options) (*backup.RestoreResult, error) {
	b := chain[len(chain)-1]
	log := logging.Ctx(ctx).With().Str("backup_id", b.ID).Str("restore_point_id", point.ID).Logger()
	result := c.newResult(point, b, false)

	abort := func(cause error) (*backup.RestoreResult, error) {
		c.recordHistory(ctx, chain, result, opts.PerformedBy, cause)
		return c.finish(ctx, result, modeApply, cause)
	}

	layers, mismatch, err := c.loadLayers(ctx, chain, opts, false)
	if err != nil {
		return abort(err)
	}
	result.IntegrityChecked = opts.VerifyIntegrity
	if mismatch != nil {
		return abort(mismatch)
	}
	result.IntegrityValid = opts.VerifyIntegrity

	if opts.RestoreDatabase {
		result.Targets = append(result.Targets, c.databaseTarget(ctx, b, layers, false))
	}
	if opts.RestoreFiles {
		result.Targets = append(result.Targets, c.fileTarget(ctx, chain, layers, opts.TargetPath, false))
	}

	applied := false
	var failed []string
	for _, t := range result.Targets {
		if t.Applied {
			applied = true
		}
		if !t.Success {
			failed = append(failed, t.Target+": "+t.Error)
		}
	}

	if applied {
		if err := c.store.MarkRestored(ctx, b.ID, c.now().UTC()); err != nil {
			log.Error().Err(err).Msg("Failed to mark backup restored")
		}
	}

	var cause error
	if len(failed) > 0 {
		cause = fmt.Errorf("restore targets failed: %s", strings.Join(failed, "; "))
		result.Error = cause.Error()
	}
	c.recordHistory(ctx, chain, result, opts.PerformedBy, cause)

	log.Info().
		Bool("success", len(failed) == 0).
		Int("chain", len(chain)).
		Int("targets", len(result.Targets)).
		Int64("items", result.ItemsRestored()).
		Msg("Restore applied")
	return c.finish(ctx, result, modeApply, nil)
}

// loadLayers reads, optionally verifies, and unseals every link of chain.
// The first link failing verification is returned as mismatch and nothing
// after it is read. Dry runs hash the bytes themselves so no verified
// history is appended.
func (c *Coordinator) loadLayers(ctx context.Context, chain []*backup.Backup, opts Options, dryRun bool) ([]Layer, *backup.IntegrityError, error) {
	layers := make([]Layer, 0, len(chain))
	for _, link := range chain {
		var data []byte
		switch {
		case opts.VerifyIntegrity && !dryRun:
			vr, raw, err := c.verifier.VerifyAndRead(ctx, link, opts.PerformedBy)
			if err != nil {
				return nil, nil, err
			}
			if !vr.IsValid {
				return nil, &backup.IntegrityError{BackupID: link.ID, Expected: vr.ExpectedHash, Actual: vr.ActualHash}, nil
			}
			data = raw
		default:
			raw, err := c.blobs.Read(ctx, link.Filename)
			if err != nil {
				return nil, nil, &backup.IOFailure{Op: "read snapshot " + link.Filename, Err: err}
			}
			if opts.VerifyIntegrity && link.DataHash != nil {
				if actual := backup.ComputeHash(raw); actual != *link.DataHash {
					return nil, &backup.IntegrityError{BackupID: link.ID, Expected: *link.DataHash, Actual: actual}, nil
				}
			}
			data = raw
		}

		plain, err := c.unseal(data, link.Format)
		if err != nil {
			return nil, nil, err
		}
		layers = append(layers, Layer{BackupID: link.ID, Data: plain, Format: backup.BaseFormat(link.Format)})
	}
	return layers, nil, nil
}

func (c *Coordinator) databaseTarget(ctx context.Context, b *backup.Backup, layers []Layer, dryRun bool) backup.TargetOutcome {
	out := backup.TargetOutcome{Target: TargetDatabase, Simulated: dryRun}

	var plan *ImportPlan
	var err error
	if dryRun {
		plan, err = c.importer.PlanImport(ctx, b.OwnerID, layers)
	} else {
		plan, err = c.importer.Import(ctx, b.OwnerID, layers)
	}
	if err != nil {
		out.Error = err.Error()
		logging.Ctx(ctx).Error().Err(err).Str("backup_id", b.ID).Bool("dry_run", dryRun).Msg("Database restore target failed")
		return out
	}

	out.Success = true
	out.Applied = !dryRun
	out.ItemsRestored = plan.Records
	out.ItemsOverwritten = plan.Overwrites
	return out
}

// fileTarget writes one restored file per chain link. Dry runs open the
// target read-only, so a missing target directory is reported, not created.
func (c *Coordinator) fileTarget(ctx context.Context, chain []*backup.Backup, layers []Layer, targetPath string, dryRun bool) backup.TargetOutcome {
	b := chain[len(chain)-1]
	out := backup.TargetOutcome{Target: TargetFiles, Simulated: dryRun}
	fail := func(err error) backup.TargetOutcome {
		out.Error = err.Error()
		logging.Ctx(ctx).Error().Err(err).Str("backup_id", b.ID).Str("target_path", targetPath).Msg("File restore target failed")
		return out
	}

	target, err := c.targets(ctx, targetPath, dryRun)
	if err != nil {
		return fail(fmt.Errorf("open restore target: %w", err))
	}
	out.Path = target.Location(restoredFilename(b))

	for i, link := range chain {
		name := restoredFilename(link)
		exists, err := target.Exists(ctx, name)
		if err != nil {
			return fail(fmt.Errorf("check restore target: %w", err))
		}

		if !dryRun {
			if err := target.Write(ctx, name, layers[i].Data); err != nil {
				out.Applied = out.ItemsRestored > 0
				return fail(&backup.IOFailure{Op: "write restore target " + target.Location(name), Err: err})
			}
			out.Applied = true
		}
		out.ItemsRestored++
		if exists {
			out.ItemsOverwritten++
		}
	}
	out.Success = true
	return out
}

func (c *Coordinator) unseal(data []byte, format string) ([]byte, error) {
	plain, err := c.sealer.Open(data, format)
	if err != nil {
		return nil, &backup.IOFailure{Op: "unseal snapshot", Err: err}
	}
	return plain, nil
}

func (c *Coordinator) recordHistory(ctx context.Context, chain []*backup.Backup, result *backup.RestoreResult, performedBy string, cause error) {
	b := chain[len(chain)-1]
	status := backup.StatusSuccess
	if cause != nil {
		status = backup.StatusFailed
	}
	targets := make([]string, 0, len(result.Targets))
	for _, t := range result.Targets {
		targets = append(targets, t.Target)
	}
	links := make([]string, len(chain))
	for i, link := range chain {
		links[i] = link.ID
	}
	details := map[string]interface{}{
		"restore_id":        result.ID,
		"restore_point_id":  result.RestorePointID,
		"targets":           targets,
		"items_restored":    result.ItemsRestored(),
		"integrity_checked": result.IntegrityChecked,
		"chain":             links,
	}
	if err := c.ledger.Record(ctx, b, backup.ActionRestored, status, performedBy, details, cause); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("backup_id", b.ID).Msg("Failed to record restore history")
	}
}

// finish completes the result, saves the audit record and returns cause when set.
func (c *Coordinator) finish(ctx context.Context, result *backup.RestoreResult, mode string, cause error) (*backup.RestoreResult, error) {
	result.CompletedAt = c.now().UTC()
	if cause != nil {
		result.Success = false
		if result.Error == "" {
			result.Error = cause.Error()
		}
	} else {
		result.Success = result.Error == "" && len(result.Targets) > 0
		for _, t := range result.Targets {
			if !t.Success {
				result.Success = false
			}
		}
	}

	if err := c.store.SaveRestoreResult(ctx, result); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("restore_id", result.ID).Msg("Failed to save restore result")
	}
	metrics.RecordRestore(mode, result.Success, result.CompletedAt.Sub(result.StartedAt))

	if cause != nil {
		return nil, cause
	}
	return result, nil
}

// restoredFilename is the snapshot name with its sealing extensions replaced
// by the base format.
func restoredFilename(b *backup.Backup) string {
	base := path.Base(b.Filename)
	if i := strings.IndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	format := backup.BaseFormat(b.Format)
	if format == "" {
		format = "bin"
	}
	return path.Join(path.Dir(b.Filename), base+"."+format)
}
