// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

/*
Package backup provides tenant snapshot backups: creation, integrity
verification, an append-only history ledger, and retention enforcement.

# Components

  - Manager: creates, lists, deletes and aggregates backups
  - Verifier: recomputes SHA-256 digests of stored snapshots
  - Ledger: append-only history of created/restored/verified/deleted actions
  - RetentionEnforcer: keep-count and expiry policies
  - OwnerGuard: at most one in-flight backup or restore per owner
  - Sealer: optional gzip compression and AES-256-GCM encryption

# Storage

Metadata lives in a Store (MemoryStore or DuckDBStore). Snapshot bytes live
in a BlobStore selected by URI scheme (see internal/blobstore). Creation is
two-phase through an IntentJournal (see internal/journal) so metadata never
references an incomplete object.

# Integrity

Backup.DataHash is the hex SHA-256 of the stored (sealed) bytes and is never
changed after creation. Backups without a hash are accepted by the verifier
with VerifyResult.Vacuous set.

# Example

	mgr, err := backup.NewManager(backup.ManagerDeps{
	    Store:    store,
	    Blobs:    blobs,
	    Exporter: exporter,
	    Tenants:  tenants,
	    Journal:  journal,
	}, backup.DefaultManagerConfig())

	b, err := mgr.CreateBackup(ctx, "tenant-1", backup.CreateOptions{ExpiresInDays: 7})
	result, err := mgr.VerifyBackup(ctx, "tenant-1", b.ID, "admin")
*/
package backup
