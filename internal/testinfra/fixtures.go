// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

package testinfra

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/tomtom215/tenantvault/internal/backup"
	"github.com/tomtom215/tenantvault/internal/blobstore"
)

// Record is one row produced by Exporter.
type Record struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Tenants is an in-memory backup.TenantDirectory.
type Tenants struct {
	mu  sync.RWMutex
	ids []string
}

// NewTenants creates a directory holding ids.
func NewTenants(ids ...string) *Tenants {
	return &Tenants{ids: append([]string(nil), ids...)}
}

// Add registers another tenant.
func (d *Tenants) Add(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids = append(d.ids, id)
}

// Exists implements backup.TenantDirectory.
func (d *Tenants) Exists(_ context.Context, id string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, t := range d.ids {
		if t == id {
			return true, nil
		}
	}
	return false, nil
}

// List implements backup.TenantDirectory.
func (d *Tenants) List(context.Context) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]string(nil), d.ids...), nil
}

// Exporter is a backup.DataExporter producing JSON arrays of Record.
// Each owner exports Records records unless overridden with SetRecords.
type Exporter struct {
	mu      sync.Mutex
	records map[string][]Record
	Records int
	Err     error
}

// NewExporter creates an exporter with n records per owner.
func NewExporter(n int) *Exporter {
	return &Exporter{records: make(map[string][]Record), Records: n}
}

// SetRecords fixes the records exported for owner.
func (e *Exporter) SetRecords(owner string, recs []Record) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.records[owner] = recs
}

// ExportSnapshot implements backup.DataExporter.
func (e *Exporter) ExportSnapshot(_ context.Context, owner string, filter backup.ExportFilter) (*backup.Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.Err != nil {
		return nil, e.Err
	}

	recs, ok := e.records[owner]
	if !ok {
		recs = make([]Record, e.Records)
		for i := range recs {
			recs[i] = Record{
				ID:        fmt.Sprintf("%s-%d", owner, i),
				OwnerID:   owner,
				Value:     fmt.Sprintf("value-%d", i),
				UpdatedAt: time.Date(2026, 1, 1, 0, 0, i, 0, time.UTC),
			}
		}
	}
	if filter.Since != nil {
		kept := recs[:0:0]
		for _, r := range recs {
			if r.UpdatedAt.After(*filter.Since) {
				kept = append(kept, r)
			}
		}
		recs = kept
	}

	data, err := json.Marshal(recs)
	if err != nil {
		return nil, err
	}
	return &backup.Snapshot{Data: data, RecordCount: int64(len(recs)), Format: "json"}, nil
}

// BackupEnv is a fully in-memory backup stack.
type BackupEnv struct {
	Store    *backup.MemoryStore
	Blobs    *blobstore.MemoryStore
	Exporter *Exporter
	Tenants  *Tenants
	Sealer   *backup.Sealer
	Manager  *backup.Manager
}

// BackupEnvOption adjusts a BackupEnv before the manager is built.
type BackupEnvOption func(*backupEnvConfig)

type backupEnvConfig struct {
	tenants  []string
	secret   string
	manager  backup.ManagerConfig
	notifier backup.HistoryNotifier
}

// WithTenants replaces the default tenants ("tenant-a", "tenant-b").
func WithTenants(ids ...string) BackupEnvOption {
	return func(c *backupEnvConfig) { c.tenants = ids }
}

// WithEncryptionSecret enables snapshot encryption.
func WithEncryptionSecret(secret string) BackupEnvOption {
	return func(c *backupEnvConfig) { c.secret = secret }
}

// WithManagerConfig overrides the manager configuration.
func WithManagerConfig(cfg backup.ManagerConfig) BackupEnvOption {
	return func(c *backupEnvConfig) { c.manager = cfg }
}

// WithNotifier receives every history entry the manager records.
func WithNotifier(n backup.HistoryNotifier) BackupEnvOption {
	return func(c *backupEnvConfig) { c.notifier = n }
}

// NewBackupEnv builds a Manager over in-memory stores. Post-create retention
// keeps 1000 backups per owner so tests control deletions explicitly.
func NewBackupEnv(t testing.TB, opts ...BackupEnvOption) *BackupEnv {
	t.Helper()

	mcfg := backup.DefaultManagerConfig()
	mcfg.KeepCount = 1000
	mcfg.Retention.DeleteRatePerSecond = 0
	cfg := &backupEnvConfig{tenants: []string{"tenant-a", "tenant-b"}, manager: mcfg}
	for _, opt := range opts {
		opt(cfg)
	}

	sealer, err := backup.NewSealer(cfg.secret)
	if err != nil {
		t.Fatalf("NewSealer: %v", err)
	}

	env := &BackupEnv{
		Store:    backup.NewMemoryStore(),
		Blobs:    blobstore.NewMemoryStore("test"),
		Exporter: NewExporter(3),
		Tenants:  NewTenants(cfg.tenants...),
		Sealer:   sealer,
	}
	env.Manager, err = backup.NewManager(backup.ManagerDeps{
		Store:    env.Store,
		Blobs:    env.Blobs,
		Exporter: env.Exporter,
		Tenants:  env.Tenants,
		Sealer:   sealer,
		Notifier: cfg.notifier,
	}, cfg.manager)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(env.Manager.Wait)
	return env
}

// MustCreate creates a backup or fails the test.
func (e *BackupEnv) MustCreate(t testing.TB, owner string, opts backup.CreateOptions) *backup.Backup {
	t.Helper()
	b, err := e.Manager.CreateBackup(context.Background(), owner, opts)
	if err != nil {
		t.Fatalf("CreateBackup(%s): %v", owner, err)
	}
	return b
}

// RestorePointFor returns the restore point committed with backupID.
func (e *BackupEnv) RestorePointFor(t testing.TB, owner, backupID string) *backup.RestorePoint {
	t.Helper()
	points, err := e.Store.ListRestorePoints(context.Background(), owner)
	if err != nil {
		t.Fatalf("ListRestorePoints: %v", err)
	}
	for _, p := range points {
		if p.BackupID == backupID {
			return p
		}
	}
	t.Fatalf("no restore point for backup %s", backupID)
	return nil
}

// Tamper flips one byte of the stored snapshot.
func (e *BackupEnv) Tamper(t testing.TB, b *backup.Backup) {
	t.Helper()
	ctx := context.Background()
	data, err := e.Blobs.Read(ctx, b.Filename)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	data[len(data)/2] ^= 0xFF
	if err := e.Blobs.Write(ctx, b.Filename, data); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
}

// SeedBackup commits an uncompressed backup created at createdAt without
// going through the Manager, for tests that need controlled timestamps.
func (e *BackupEnv) SeedBackup(t testing.TB, owner string, createdAt time.Time) (*backup.Backup, *backup.RestorePoint) {
	t.Helper()
	ctx := context.Background()

	snap, err := e.Exporter.ExportSnapshot(ctx, owner, backup.ExportFilter{Kind: backup.KindFull})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	id := fmt.Sprintf("seed-%s-%d", owner, createdAt.UnixNano())
	name := fmt.Sprintf("%s/backup-full-%s.json", owner, id)
	if err := e.Blobs.Write(ctx, name, snap.Data); err != nil {
		t.Fatalf("write: %v", err)
	}

	hash := backup.ComputeHash(snap.Data)
	b := &backup.Backup{
		ID:           id,
		OwnerID:      owner,
		Filename:     name,
		Location:     e.Blobs.Location(name),
		SizeBytes:    int64(len(snap.Data)),
		Format:       snap.Format,
		BackupType:   backup.TypeManual,
		SnapshotKind: backup.KindFull,
		RecordCount:  snap.RecordCount,
		DataHash:     &hash,
		CreatedAt:    createdAt.UTC(),
		ExpiresAt:    createdAt.UTC().AddDate(0, 0, 30),
	}
	point := &backup.RestorePoint{
		ID:          "point-" + id,
		BackupID:    id,
		OwnerID:     owner,
		Timestamp:   createdAt.UTC(),
		Description: "seeded",
		Status:      backup.PointAvailable,
	}
	if err := e.Store.CommitBackup(ctx, b, point); err != nil {
		t.Fatalf("commit: %v", err)
	}
	return b, point
}
