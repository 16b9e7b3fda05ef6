// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

package backup

import (
	"context"
	"time"
)

// BackupStore persists Backup metadata.
type BackupStore interface {
	// CommitBackup inserts the backup and its restore point atomically.
	// It is the second phase of backup creation and runs only after the
	// snapshot object has been fully written.
	CommitBackup(ctx context.Context, b *Backup, point *RestorePoint) error

	// GetBackup returns a *NotFoundError when the backup does not exist.
	GetBackup(ctx context.Context, id string) (*Backup, error)

	// ListBackups returns backups ordered by CreatedAt (newest first unless SortAsc).
	ListBackups(ctx context.Context, opts ListOptions) ([]*Backup, error)

	// ListExpiredBackups returns every backup whose ExpiresAt is at or before cutoff.
	ListExpiredBackups(ctx context.Context, cutoff time.Time) ([]*Backup, error)

	// LatestBackup returns the owner's newest backup, or nil when there is none.
	LatestBackup(ctx context.Context, ownerID string) (*Backup, error)

	MarkRestored(ctx context.Context, id string, at time.Time) error

	// DeleteBackup removes the backup and cascades to its history and restore points.
	DeleteBackup(ctx context.Context, id string) error
}

// HistoryStore is the append-only ledger storage.
type HistoryStore interface {
	AppendHistory(ctx context.Context, entry *HistoryEntry) error

	// ListHistory returns a backup's entries oldest first.
	ListHistory(ctx context.Context, backupID string) ([]*HistoryEntry, error)

	// ListOwnerHistory returns an owner's entries newest first. limit <= 0 means all.
	ListOwnerHistory(ctx context.Context, ownerID string, limit int) ([]*HistoryEntry, error)
}

// RestoreStore persists restore points and restore attempts.
type RestoreStore interface {
	GetRestorePoint(ctx context.Context, id string) (*RestorePoint, error)

	// ListRestorePoints returns the owner's points newest first.
	ListRestorePoints(ctx context.Context, ownerID string) ([]*RestorePoint, error)

	// FindRestorePointAtOrBefore returns the available point with the greatest
	// timestamp that is <= ts, or a *NotFoundError.
	FindRestorePointAtOrBefore(ctx context.Context, ownerID string, ts time.Time) (*RestorePoint, error)

	// SetRestorePointStatus updates every point of the backup. A backup
	// without points is not an error.
	SetRestorePointStatus(ctx context.Context, backupID string, status RestorePointStatus) error

	SaveRestoreResult(ctx context.Context, result *RestoreResult) error

	// ListRestoreResults returns the owner's restore attempts newest first.
	ListRestoreResults(ctx context.Context, ownerID string) ([]*RestoreResult, error)
}

// ScheduleStore persists schedules.
type ScheduleStore interface {
	CreateSchedule(ctx context.Context, s *Schedule) error
	UpdateSchedule(ctx context.Context, s *Schedule) error
	GetSchedule(ctx context.Context, id string) (*Schedule, error)
	ListSchedules(ctx context.Context) ([]*Schedule, error)
	DeleteSchedule(ctx context.Context, id string) error
}

// Store is the complete metadata store.
type Store interface {
	BackupStore
	HistoryStore
	RestoreStore
	ScheduleStore
}

func cloneBackup(b *Backup) *Backup {
	if b == nil {
		return nil
	}
	c := *b
	if b.DataHash != nil {
		h := *b.DataHash
		c.DataHash = &h
	}
	if b.RestoredAt != nil {
		t := *b.RestoredAt
		c.RestoredAt = &t
	}
	return &c
}

func cloneSchedule(s *Schedule) *Schedule {
	if s == nil {
		return nil
	}
	c := *s
	if s.LastRun != nil {
		t := *s.LastRun
		c.LastRun = &t
	}
	if s.NextRun != nil {
		t := *s.NextRun
		c.NextRun = &t
	}
	return &c
}

func cloneHistory(e *HistoryEntry) *HistoryEntry {
	c := *e
	if e.Details != nil {
		c.Details = make(map[string]interface{}, len(e.Details))
		for k, v := range e.Details {
			c.Details[k] = v
		}
	}
	return &c
}

func cloneRestoreResult(r *RestoreResult) *RestoreResult {
	c := *r
	c.Targets = append([]TargetOutcome(nil), r.Targets...)
	return &c
}

// paginate applies offset and limit to an already sorted slice.
func paginate[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return []T{}
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
