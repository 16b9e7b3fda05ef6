// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

/*
retention.go - Retention Enforcement

Two policies:
  - keep-count: an owner keeps its keepCount most recent backups
  - expiry: backups whose ExpiresAt is at or before now - daysOld are deleted

Both passes are best effort: a failure deleting one backup is logged and the
loop continues. Deletions go through the manager so every removal appends a
deleted ledger entry, and are paced by a token bucket so a large sweep does
not saturate the durable store.

The expiry sweep never deletes an owner's newest ExpiryFloor backups.
Neither pass deletes a backup that a surviving INCREMENTAL is built on.
*/

//nolint:staticcheck // File documentation, not package doc
package backup

import (
	"context"
	"time"

	"github.com/tomtom215/tenantvault/internal/logging"
	"github.com/tomtom215/tenantvault/internal/metrics"
	"golang.org/x/time/rate"
)

const (
	performedByRetention = "system:retention"
	performedByExpiry    = "system:expiry"
)

// RetentionConfig tunes the RetentionEnforcer.
type RetentionConfig struct {
	// ExpiryFloor is the number of newest backups per owner the expiry sweep keeps.
	ExpiryFloor int `koanf:"expiry_floor"`

	// DeleteRatePerSecond paces deletions. Zero or less disables pacing.
	DeleteRatePerSecond float64 `koanf:"delete_rate_per_second"`
}

// DefaultRetentionConfig returns production defaults.
func DefaultRetentionConfig() RetentionConfig {
	return RetentionConfig{
		ExpiryFloor:         1,
		DeleteRatePerSecond: 20,
	}
}

// backupDeleter is implemented by Manager.
type backupDeleter interface {
	deleteBackup(ctx context.Context, b *Backup, performedBy, reason string) error
}

// RetentionEnforcer applies keep-count and expiry policies.
type RetentionEnforcer struct {
	store   BackupStore
	deleter backupDeleter
	limiter *rate.Limiter
	floor   int
	now     func() time.Time
}

func newRetentionEnforcer(store BackupStore, deleter backupDeleter, cfg RetentionConfig) *RetentionEnforcer {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.DeleteRatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.DeleteRatePerSecond), 1)
	}
	floor := cfg.ExpiryFloor
	if floor < 0 {
		floor = 0
	}
	return &RetentionEnforcer{
		store:   store,
		deleter: deleter,
		limiter: limiter,
		floor:   floor,
		now:     time.Now,
	}
}

// CleanupOldBackups deletes all but the owner's keepCount most recent backups
// and returns how many were deleted. keepCount <= 0 uses DefaultKeepCount.
func (r *RetentionEnforcer) CleanupOldBackups(ctx context.Context, ownerID string, keepCount int) (int, error) {
	if keepCount <= 0 {
		keepCount = DefaultKeepCount
	}

	list, err := r.store.ListBackups(ctx, ListOptions{OwnerID: ownerID})
	if err != nil {
		return 0, err
	}
	if len(list) <= keepCount {
		return 0, nil
	}

	log := logging.Ctx(ctx).With().Str("owner_id", ownerID).Int("keep_count", keepCount).Logger()

	byID := make(map[string]*Backup, len(list))
	for _, b := range list {
		byID[b.ID] = b
	}
	needed := ancestorsOf(byID, list[:keepCount])

	deleted, kept := 0, 0
	for _, b := range list[keepCount:] {
		if needed[b.ID] {
			kept++
			continue
		}
		if err := r.limiter.Wait(ctx); err != nil {
			return deleted, err
		}
		if err := r.deleter.deleteBackup(ctx, b, performedByRetention, "retention"); err != nil {
			metrics.RecordRetentionFailure("keep_count")
			log.Warn().Err(err).Str("backup_id", b.ID).Msg("Retention failed to delete backup")
			continue
		}
		deleted++
	}

	log.Info().
		Int("deleted", deleted).
		Int("kept_by_chain", kept).
		Int("candidates", len(list)-keepCount).
		Msg("Retention cleanup finished")
	return deleted, nil
}

// DeleteExpiredBackups deletes every backup whose ExpiresAt is at or before
// now - daysOld, except each owner's newest ExpiryFloor backups.
func (r *RetentionEnforcer) DeleteExpiredBackups(ctx context.Context, daysOld int) (int, error) {
	if daysOld < 0 {
		return 0, NewValidation("days_old", "must not be negative")
	}

	cutoff := r.now().UTC().AddDate(0, 0, -daysOld)
	expired, err := r.store.ListExpiredBackups(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if len(expired) == 0 {
		return 0, nil
	}

	protected, err := r.protectedBackups(ctx, expired)
	if err != nil {
		return 0, err
	}

	deleted, skipped := 0, 0
	for _, b := range expired {
		if protected[b.ID] {
			skipped++
			continue
		}
		if err := r.limiter.Wait(ctx); err != nil {
			return deleted, err
		}
		if err := r.deleter.deleteBackup(ctx, b, performedByExpiry, "expiry"); err != nil {
			metrics.RecordRetentionFailure("expiry")
			logging.Ctx(ctx).Warn().Err(err).
				Str("backup_id", b.ID).
				Str("owner_id", b.OwnerID).
				Msg("Expiry sweep failed to delete backup")
			continue
		}
		deleted++
	}

	logging.Ctx(ctx).Info().
		Time("cutoff", cutoff).
		Int("deleted", deleted).
		Int("protected", skipped).
		Msg("Expired backup sweep finished")
	return deleted, nil
}

// protectedBackups returns the IDs the expiry sweep must keep: each affected
// owner's newest floor backups, plus every ancestor of a backup that
// survives the sweep.
func (r *RetentionEnforcer) protectedBackups(ctx context.Context, expired []*Backup) (map[string]bool, error) {
	expiredIDs := make(map[string]bool, len(expired))
	for _, b := range expired {
		expiredIDs[b.ID] = true
	}

	protected := make(map[string]bool)
	seen := make(map[string]bool)
	for _, b := range expired {
		if seen[b.OwnerID] {
			continue
		}
		seen[b.OwnerID] = true

		all, err := r.store.ListBackups(ctx, ListOptions{OwnerID: b.OwnerID})
		if err != nil {
			return nil, err
		}

		byID := make(map[string]*Backup, len(all))
		var survivors []*Backup
		for i, n := range all {
			byID[n.ID] = n
			if i < r.floor {
				protected[n.ID] = true
			}
			if i < r.floor || !expiredIDs[n.ID] {
				survivors = append(survivors, n)
			}
		}
		for id := range ancestorsOf(byID, survivors) {
			protected[id] = true
		}
	}
	return protected, nil
}
