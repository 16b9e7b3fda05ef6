// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

/*
Package restore resolves restore points and restores, simulates or tests them.

Two targets are supported:

  - database: the unsealed snapshots are handed to a DatabaseImporter
  - files: the unsealed snapshots are written under the owner's directory
    in Config.DefaultTargetPath, optionally below a relative TargetPath

An INCREMENTAL point is restored with its whole chain: the FULL it was built
on and every INCREMENTAL in between, applied oldest first.

Operations:

	RestoreFromPoint    restore (or dry-run) a point owned by the caller
	PointInTimeRestore  restore the newest point at or before a timestamp
	DryRunRestore       RestoreFromPoint with DryRun forced
	TestRestore         reachability, integrity and readability check
	GetRestoreStatistics

Applying restores hold the per-owner guard shared with backup creation, so an
owner never has a backup and a restore in flight at once. Dry runs and tests
take no guard.
*/
package restore
