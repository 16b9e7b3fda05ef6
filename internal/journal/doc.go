// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

/*
Package journal provides the BadgerDB intent journal that makes backup
creation two-phase.

# Protocol

	Record(intent)  -> pending:<backup_id>
	write object
	commit metadata
	Confirm(id)     -> confirmed:<backup_id> (pending key deleted in the same txn)

On startup, backup.Manager.Recover reads Pending() and either confirms the
intent (metadata exists) or deletes the orphaned object and confirms.

# Compaction

Confirmed intents are kept for ConfirmedRetention and then purged by the
Compactor, which also triggers BadgerDB value log GC.

# Configuration

	journal:
	  path: /data/journal
	  sync_writes: true
	  compact_interval: 1h
	  confirmed_retention: 24h

SyncWrites must stay enabled in production; without fsync a crash can lose
an intent whose object was already written.
*/
package journal
