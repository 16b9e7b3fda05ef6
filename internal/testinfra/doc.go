// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

// Package testinfra provides in-memory fixtures shared by package tests.
//
// NewBackupEnv wires a backup.Manager over an in-memory metadata store, a
// mem:// blob store, a deterministic JSON exporter and a static tenant
// directory:
//
//	func TestRestore(t *testing.T) {
//	    env := testinfra.NewBackupEnv(t)
//	    b := env.MustCreate(t, "tenant-a", backup.CreateOptions{Compress: true})
//	    point := env.RestorePointFor(t, "tenant-a", b.ID)
//	    // ...
//	}
//
// SeedBackup commits backups with chosen timestamps for point-in-time tests,
// and Tamper corrupts a stored snapshot for integrity tests.
//
// Packages under internal/backup cannot import testinfra (it depends on
// backup); they keep their own fakes.
package testinfra
