// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

package backup

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tomtom215/tenantvault/internal/logging"
)

// Ledger is the append-only history of actions taken against backups.
// Entries are never updated; they disappear only when their backup is deleted.
type Ledger struct {
	store    HistoryStore
	notifier HistoryNotifier
	now      func() time.Time
}

// NewLedger creates a ledger over store. notifier may be nil.
func NewLedger(store HistoryStore, notifier HistoryNotifier) *Ledger {
	return &Ledger{store: store, notifier: notifier, now: time.Now}
}

// Append assigns an ID and timestamp to entry and persists it.
// The notifier is called after the entry is stored; its errors are logged only.
func (l *Ledger) Append(ctx context.Context, entry *HistoryEntry) error {
	if entry.BackupID == "" {
		return NewValidation("backup_id", "is required")
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = l.now().UTC()
	}

	if err := l.store.AppendHistory(ctx, entry); err != nil {
		return fmt.Errorf("append %s/%s history for backup %s: %w", entry.Action, entry.Status, entry.BackupID, err)
	}

	if l.notifier != nil {
		if err := l.notifier.NotifyHistory(ctx, entry); err != nil {
			logging.Ctx(ctx).Warn().Err(err).
				Str("backup_id", entry.BackupID).
				Str("action", string(entry.Action)).
				Msg("Failed to publish history event")
		}
	}
	return nil
}

// Record is a convenience wrapper around Append.
func (l *Ledger) Record(ctx context.Context, b *Backup, action HistoryAction, status HistoryStatus,
	performedBy string, details map[string]interface{}, cause error) error {
	entry := &HistoryEntry{
		BackupID:    b.ID,
		OwnerID:     b.OwnerID,
		Action:      action,
		Status:      status,
		PerformedBy: performedBy,
		Details:     details,
	}
	if cause != nil {
		entry.Error = cause.Error()
	}
	return l.Append(ctx, entry)
}

// List returns a backup's entries oldest first.
func (l *Ledger) List(ctx context.Context, backupID string) ([]*HistoryEntry, error) {
	return l.store.ListHistory(ctx, backupID)
}

// Latest returns the most recent entry for a backup, or nil.
func (l *Ledger) Latest(ctx context.Context, backupID string) (*HistoryEntry, error) {
	entries, err := l.store.ListHistory(ctx, backupID)
	if err != nil || len(entries) == 0 {
		return nil, err
	}
	return entries[len(entries)-1], nil
}

// ForOwner returns the owner's entries newest first.
func (l *Ledger) ForOwner(ctx context.Context, ownerID string, limit int) ([]*HistoryEntry, error) {
	return l.store.ListOwnerHistory(ctx, ownerID, limit)
}
