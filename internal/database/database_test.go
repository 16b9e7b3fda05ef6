// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
)

func openMemory(t *testing.T) *DB {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Path = MemoryPath
	cfg.Threads = 1
	db, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpen_FileCreatesParentDirectory(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Path = filepath.Join(t.TempDir(), "nested", "dir", "vault.duckdb")
	cfg.Threads = 1

	db, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := db.Healthy(context.Background()); err != nil {
		t.Errorf("Healthy: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"negative threads", func(c *Config) { c.Threads = -1 }, true},
		{"missing memory limit", func(c *Config) { c.MaxMemory = "" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestWithTx(t *testing.T) {
	t.Parallel()
	db := openMemory(t)
	ctx := context.Background()

	if _, err := db.Conn().ExecContext(ctx, `CREATE TABLE items (id INTEGER PRIMARY KEY)`); err != nil {
		t.Fatalf("create: %v", err)
	}

	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO items VALUES (1)`)
		return err
	})
	if err != nil {
		t.Fatalf("WithTx commit: %v", err)
	}

	boom := errors.New("boom")
	err = db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO items VALUES (2)`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx error = %v, want boom", err)
	}

	var n int
	if err := db.Conn().QueryRowContext(ctx, `SELECT count(*) FROM items`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("rows = %d, want 1 (second insert rolled back)", n)
	}
}

func TestErrorClassifiers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err        error
		conflict   bool
		connection bool
	}{
		{nil, false, false},
		{errors.New("TransactionContext Error: Transaction conflict: cannot update"), true, false},
		{errors.New("Conflict on update!"), true, false},
		{errors.New("sql: database is closed"), false, true},
		{errors.New("driver: bad connection"), false, true},
		{errors.New("syntax error"), false, false},
	}
	for _, tt := range tests {
		if got := isTransactionConflict(tt.err); got != tt.conflict {
			t.Errorf("isTransactionConflict(%v) = %v, want %v", tt.err, got, tt.conflict)
		}
		if got := isConnectionError(tt.err); got != tt.connection {
			t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.connection)
		}
	}
}
