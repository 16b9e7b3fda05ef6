// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

package backup

import (
	"context"
	"time"
)

// ExportFilter narrows what the exporter includes in a snapshot.
type ExportFilter struct {
	Kind SnapshotKind

	// Since limits an incremental export to records changed after this instant.
	// Nil exports everything.
	Since *time.Time
}

// Snapshot is the exporter's output. The core treats Data as opaque.
type Snapshot struct {
	Data        []byte
	RecordCount int64

	// Format is the base encoding of Data, e.g. "json"
	Format string
}

// DataExporter produces a canonical snapshot of an owner's data.
type DataExporter interface {
	ExportSnapshot(ctx context.Context, ownerID string, filter ExportFilter) (*Snapshot, error)
}

// TenantDirectory answers whether an owner exists.
type TenantDirectory interface {
	Exists(ctx context.Context, ownerID string) (bool, error)

	// List returns every known owner ID.
	List(ctx context.Context) ([]string, error)
}

// BlobStore is the durable store holding snapshot objects.
type BlobStore interface {
	// Write stores data under name. The object must be complete when Write returns nil.
	Write(ctx context.Context, name string, data []byte) error
	Read(ctx context.Context, name string) ([]byte, error)
	Delete(ctx context.Context, name string) error
	Exists(ctx context.Context, name string) (bool, error)

	// Location returns the full URI for name.
	Location(name string) string
}

// Intent records that a snapshot object is about to be written.
type Intent struct {
	BackupID  string    `json:"backup_id"`
	OwnerID   string    `json:"owner_id"`
	Filename  string    `json:"filename"`
	CreatedAt time.Time `json:"created_at"`
}

// IntentJournal makes backup creation two-phase. An intent is recorded before the
// object write and confirmed after the metadata commit.
type IntentJournal interface {
	Record(ctx context.Context, intent Intent) error
	Confirm(ctx context.Context, backupID string) error

	// Pending returns intents that were never confirmed.
	Pending(ctx context.Context) ([]Intent, error)
}

// HistoryNotifier receives every appended ledger entry.
type HistoryNotifier interface {
	NotifyHistory(ctx context.Context, entry *HistoryEntry) error
}
