// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

package backup

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/tenantvault/internal/blobstore"
)

// fakeExporter returns a fixed JSON payload and records every filter it sees
type fakeExporter struct {
	mu      sync.Mutex
	err     error
	calls   []ExportFilter
	records int64
}

func (e *fakeExporter) ExportSnapshot(_ context.Context, ownerID string, filter ExportFilter) (*Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, filter)
	if e.err != nil {
		return nil, e.err
	}
	n := e.records
	if n == 0 {
		n = 3
	}
	data := fmt.Sprintf(`{"owner_id":%q,"kind":%q,"records":%d}`, ownerID, filter.Kind, n)
	return &Snapshot{Data: []byte(data), RecordCount: n, Format: "json"}, nil
}

func (e *fakeExporter) lastFilter() ExportFilter {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls[len(e.calls)-1]
}

// fakeTenants is a static tenant directory
type fakeTenants struct {
	owners map[string]bool
}

func newFakeTenants(ids ...string) *fakeTenants {
	t := &fakeTenants{owners: make(map[string]bool)}
	for _, id := range ids {
		t.owners[id] = true
	}
	return t
}

func (t *fakeTenants) Exists(_ context.Context, ownerID string) (bool, error) {
	return t.owners[ownerID], nil
}

func (t *fakeTenants) List(_ context.Context) ([]string, error) {
	ids := make([]string, 0, len(t.owners))
	for id := range t.owners {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// fakeJournal keeps intents in memory
type fakeJournal struct {
	mu         sync.Mutex
	pending    map[string]Intent
	confirmed  map[string]bool
	confirmErr error
}

func newFakeJournal() *fakeJournal {
	return &fakeJournal{pending: make(map[string]Intent), confirmed: make(map[string]bool)}
}

func (j *fakeJournal) Record(_ context.Context, intent Intent) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.pending[intent.BackupID] = intent
	return nil
}

func (j *fakeJournal) Confirm(_ context.Context, backupID string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.confirmErr != nil {
		return j.confirmErr
	}
	delete(j.pending, backupID)
	j.confirmed[backupID] = true
	return nil
}

func (j *fakeJournal) Pending(_ context.Context) ([]Intent, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Intent, 0, len(j.pending))
	for _, i := range j.pending {
		out = append(out, i)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.Before(out[b].CreatedAt) })
	return out, nil
}

func (j *fakeJournal) pendingCount() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.pending)
}

// failingBlobs fails writes and optionally deletes
type failingBlobs struct {
	*blobstore.MemoryStore
	writeErr  error
	deleteErr error
}

func (f *failingBlobs) Write(ctx context.Context, name string, data []byte) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	return f.MemoryStore.Write(ctx, name, data)
}

func (f *failingBlobs) Delete(ctx context.Context, name string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.MemoryStore.Delete(ctx, name)
}

// failingCommitStore fails CommitBackup
type failingCommitStore struct {
	*MemoryStore
}

func (s *failingCommitStore) CommitBackup(context.Context, *Backup, *RestorePoint) error {
	return errors.New("metadata store unavailable")
}

// stepClock advances by step on every call
type stepClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// testEnv holds a manager wired to in-memory collaborators
type testEnv struct {
	store    *MemoryStore
	blobs    *blobstore.MemoryStore
	exporter *fakeExporter
	tenants  *fakeTenants
	journal  *fakeJournal
	manager  *Manager
}

func newTestConfig() ManagerConfig {
	cfg := DefaultManagerConfig()
	cfg.Retention.DeleteRatePerSecond = 0
	return cfg
}

// newTestEnv creates a manager for tenants "tenant-a" and "tenant-b"
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithConfig(t, newTestConfig(), nil)
}

func newTestEnvWithConfig(t *testing.T, cfg ManagerConfig, sealer *Sealer) *testEnv {
	t.Helper()

	env := &testEnv{
		store:    NewMemoryStore(),
		blobs:    blobstore.NewMemoryStore("test"),
		exporter: &fakeExporter{},
		tenants:  newFakeTenants("tenant-a", "tenant-b"),
		journal:  newFakeJournal(),
	}

	m, err := NewManager(ManagerDeps{
		Store:    env.store,
		Blobs:    env.blobs,
		Exporter: env.exporter,
		Tenants:  env.tenants,
		Journal:  env.journal,
		Sealer:   sealer,
	}, cfg)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	env.manager = m
	t.Cleanup(m.Wait)
	return env
}

// useClock makes the manager and its retention enforcer read time from c
func (e *testEnv) useClock(c *stepClock) {
	e.manager.now = c.Now
	e.manager.retention.now = c.Now
}

// mustCreate creates a backup or fails the test
func (e *testEnv) mustCreate(t *testing.T, ownerID string, opts CreateOptions) *Backup {
	t.Helper()
	b, err := e.manager.CreateBackup(context.Background(), ownerID, opts)
	if err != nil {
		t.Fatalf("CreateBackup(%s): %v", ownerID, err)
	}
	return b
}

func countActions(entries []*HistoryEntry, action HistoryAction, status HistoryStatus) int {
	n := 0
	for _, e := range entries {
		if e.Action == action && e.Status == status {
			n++
		}
	}
	return n
}
