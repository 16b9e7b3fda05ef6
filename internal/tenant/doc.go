// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

// Package tenant stores tenants and their business records in DuckDB and
// exposes them to the data protection core.
//
// A single Store satisfies backup.TenantDirectory, backup.DataExporter and
// restore.DatabaseImporter, so one value is passed to the backup manager, the
// schedule coordinator and the restore coordinator:
//
//	store := tenant.NewStore(db.Conn())
//	if err := store.CreateTables(ctx); err != nil {
//	    return err
//	}
//	mgr, err := backup.NewManager(backup.ManagerDeps{
//	    Exporter: store,
//	    Tenants:  store,
//	    ...
//	}, cfg)
//
// Record payloads are opaque JSON. Restores upsert by record id and never
// delete records created after the snapshot was taken.
package tenant
