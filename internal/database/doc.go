// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

// Package database opens the DuckDB connection shared by the backup metadata
// store and the tenant data store.
//
// Open builds a DSN with tuning options (threads, memory limit, insertion
// order) and disables automatic extension install/load so startup never
// touches the network. Close runs CHECKPOINT before closing so the next start
// has no WAL to replay.
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	store := backup.NewDuckDBStore(db.Conn())
package database
