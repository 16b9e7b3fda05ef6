// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

package tenant

import (
	"context"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/tomtom215/tenantvault/internal/backup"
	"github.com/tomtom215/tenantvault/internal/database"
	"github.com/tomtom215/tenantvault/internal/restore"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	cfg := database.DefaultConfig()
	cfg.Path = database.MemoryPath
	cfg.Threads = 1
	db, err := database.Open(cfg)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	s := NewStore(db.Conn())
	s.now = func() time.Time { return baseTime }
	if err := s.CreateTables(context.Background()); err != nil {
		t.Fatalf("CreateTables: %v", err)
	}
	return s
}

func seedRecords(t *testing.T, s *Store, owner string, n int) {
	t.Helper()
	ctx := context.Background()
	if err := s.CreateTenant(ctx, owner, owner); err != nil {
		t.Fatalf("CreateTenant: %v", err)
	}
	for i := 0; i < n; i++ {
		r := Record{
			ID:        string(rune('a' + i)),
			Kind:      "invoice",
			Payload:   json.RawMessage(`{"v":1}`),
			UpdatedAt: baseTime.Add(time.Duration(i) * time.Hour),
		}
		if err := s.PutRecord(ctx, owner, r); err != nil {
			t.Fatalf("PutRecord: %v", err)
		}
	}
}

func decode(t *testing.T, data []byte) snapshotDocument {
	t.Helper()
	var doc snapshotDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	return doc
}

func TestDirectory(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"tenant-b", "tenant-a", "tenant-a"} {
		if err := s.CreateTenant(ctx, id, "Tenant"); err != nil {
			t.Fatalf("CreateTenant(%s): %v", id, err)
		}
	}
	if err := s.CreateTenant(ctx, "", "x"); !backup.IsValidation(err) {
		t.Errorf("CreateTenant(\"\") = %v, want validation error", err)
	}

	ids, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(ids) != 2 || ids[0] != "tenant-a" || ids[1] != "tenant-b" {
		t.Errorf("List = %v, want [tenant-a tenant-b]", ids)
	}

	tests := []struct {
		id   string
		want bool
	}{
		{"tenant-a", true},
		{"tenant-b", true},
		{"tenant-c", false},
	}
	for _, tt := range tests {
		got, err := s.Exists(ctx, tt.id)
		if err != nil {
			t.Fatalf("Exists(%s): %v", tt.id, err)
		}
		if got != tt.want {
			t.Errorf("Exists(%s) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestExportSnapshot(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()
	seedRecords(t, s, "tenant-a", 4)
	seedRecords(t, s, "tenant-b", 2)

	since := baseTime.Add(90 * time.Minute)
	tests := []struct {
		name   string
		filter backup.ExportFilter
		want   int64
	}{
		{"full", backup.ExportFilter{Kind: backup.KindFull}, 4},
		{"full ignores since", backup.ExportFilter{Kind: backup.KindFull, Since: &since}, 4},
		{"incremental without base", backup.ExportFilter{Kind: backup.KindIncremental}, 4},
		{"incremental after since", backup.ExportFilter{Kind: backup.KindIncremental, Since: &since}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := s.ExportSnapshot(ctx, "tenant-a", tt.filter)
			if err != nil {
				t.Fatalf("ExportSnapshot: %v", err)
			}
			if snap.RecordCount != tt.want {
				t.Errorf("RecordCount = %d, want %d", snap.RecordCount, tt.want)
			}
			if snap.Format != SnapshotFormat {
				t.Errorf("Format = %q, want %q", snap.Format, SnapshotFormat)
			}
			doc := decode(t, snap.Data)
			if doc.OwnerID != "tenant-a" {
				t.Errorf("OwnerID = %q", doc.OwnerID)
			}
			if int64(len(doc.Records)) != tt.want {
				t.Errorf("records = %d, want %d", len(doc.Records), tt.want)
			}
		})
	}
}

func TestExportSnapshot_EmptyOwner(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	snap, err := s.ExportSnapshot(context.Background(), "nobody", backup.ExportFilter{})
	if err != nil {
		t.Fatalf("ExportSnapshot: %v", err)
	}
	doc := decode(t, snap.Data)
	if doc.Records == nil || len(doc.Records) != 0 {
		t.Errorf("records = %v, want empty array", doc.Records)
	}
	if doc.Kind != backup.KindFull {
		t.Errorf("Kind = %q, want FULL", doc.Kind)
	}
}

func TestPlanAndImport(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()
	seedRecords(t, s, "tenant-a", 3)

	snap, err := s.ExportSnapshot(ctx, "tenant-a", backup.ExportFilter{Kind: backup.KindFull})
	if err != nil {
		t.Fatalf("ExportSnapshot: %v", err)
	}

	// Change one record and add one that is not in the snapshot.
	if err := s.PutRecord(ctx, "tenant-a", Record{ID: "a", Kind: "invoice", Payload: json.RawMessage(`{"v":2}`)}); err != nil {
		t.Fatalf("PutRecord: %v", err)
	}
	if err := s.PutRecord(ctx, "tenant-a", Record{ID: "z", Kind: "note", Payload: json.RawMessage(`{}`)}); err != nil {
		t.Fatalf("PutRecord: %v", err)
	}

	layers := []restore.Layer{{Data: snap.Data, Format: snap.Format}}
	plan, err := s.PlanImport(ctx, "tenant-a", layers)
	if err != nil {
		t.Fatalf("PlanImport: %v", err)
	}
	if plan.Records != 3 || plan.Overwrites != 3 {
		t.Errorf("plan = %+v, want 3 records, 3 overwrites", plan)
	}

	records, _ := s.ListRecords(ctx, "tenant-a")
	if string(records[0].Payload) != `{"v":2}` {
		t.Fatalf("PlanImport wrote data: %s", records[0].Payload)
	}

	applied, err := s.Import(ctx, "tenant-a", layers)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if *applied != *plan {
		t.Errorf("Import = %+v, want %+v", applied, plan)
	}

	records, err = s.ListRecords(ctx, "tenant-a")
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("records = %d, want 4 (records outside the snapshot kept)", len(records))
	}
	if string(records[0].Payload) != `{"v":1}` {
		t.Errorf("record a payload = %s, want restored {\"v\":1}", records[0].Payload)
	}
	if !records[0].UpdatedAt.Equal(baseTime) {
		t.Errorf("record a updated_at = %v, want %v", records[0].UpdatedAt, baseTime)
	}
}

func TestImport_Rejects(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()
	seedRecords(t, s, "tenant-a", 1)

	snap, err := s.ExportSnapshot(ctx, "tenant-a", backup.ExportFilter{})
	if err != nil {
		t.Fatalf("ExportSnapshot: %v", err)
	}

	tests := []struct {
		name       string
		owner      string
		data       []byte
		format     string
		validation bool
	}{
		{"other owner", "tenant-b", snap.Data, SnapshotFormat, true},
		{"unknown format", "tenant-a", snap.Data, "csv", true},
		{"corrupt document", "tenant-a", []byte("{not json"), SnapshotFormat, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Import(ctx, tt.owner, []restore.Layer{{Data: tt.data, Format: tt.format}})
			if err == nil {
				t.Fatal("Import succeeded, want error")
			}
			if backup.IsValidation(err) != tt.validation {
				t.Errorf("IsValidation(%v) = %v, want %v", err, !tt.validation, tt.validation)
			}
		})
	}

	records, _ := s.ListRecords(ctx, "tenant-b")
	if len(records) != 0 {
		t.Errorf("tenant-b records = %d, want 0", len(records))
	}

	if _, err := s.Import(ctx, "tenant-a", nil); !backup.IsValidation(err) {
		t.Errorf("Import without layers = %v, want validation error", err)
	}
}

// Later layers win per record and a bad layer aborts the whole import.
func TestImport_Layers(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()
	seedRecords(t, s, "tenant-a", 3)

	full, err := s.ExportSnapshot(ctx, "tenant-a", backup.ExportFilter{Kind: backup.KindFull})
	if err != nil {
		t.Fatalf("ExportSnapshot: %v", err)
	}
	since := baseTime.Add(30 * time.Minute)
	if err := s.PutRecord(ctx, "tenant-a", Record{ID: "b", Kind: "invoice", Payload: json.RawMessage(`{"v":2}`), UpdatedAt: baseTime.Add(4 * time.Hour)}); err != nil {
		t.Fatalf("PutRecord: %v", err)
	}
	if err := s.PutRecord(ctx, "tenant-a", Record{ID: "d", Kind: "note", Payload: json.RawMessage(`{"v":2}`), UpdatedAt: baseTime.Add(4 * time.Hour)}); err != nil {
		t.Fatalf("PutRecord: %v", err)
	}
	inc, err := s.ExportSnapshot(ctx, "tenant-a", backup.ExportFilter{Kind: backup.KindIncremental, Since: &since})
	if err != nil {
		t.Fatalf("ExportSnapshot(incremental): %v", err)
	}

	for _, id := range []string{"a", "b", "c", "d"} {
		if err := s.PutRecord(ctx, "tenant-a", Record{ID: id, Kind: "invoice", Payload: json.RawMessage(`{"corrupt":true}`)}); err != nil {
			t.Fatalf("PutRecord: %v", err)
		}
	}

	broken := []restore.Layer{{Data: full.Data, Format: full.Format}, {Data: []byte("{not json"), Format: SnapshotFormat}}
	if _, err := s.Import(ctx, "tenant-a", broken); err == nil {
		t.Fatal("Import with a corrupt layer succeeded")
	}
	records, _ := s.ListRecords(ctx, "tenant-a")
	if string(records[0].Payload) != `{"corrupt":true}` {
		t.Fatalf("corrupt layer partially imported: %s", records[0].Payload)
	}

	layers := []restore.Layer{{Data: full.Data, Format: full.Format}, {Data: inc.Data, Format: inc.Format}}
	plan, err := s.Import(ctx, "tenant-a", layers)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if plan.Records != 4 || plan.Overwrites != 4 {
		t.Errorf("plan = %+v, want 4 records, 4 overwrites", plan)
	}

	want := map[string]string{"a": `{"v":1}`, "b": `{"v":2}`, "c": `{"v":1}`, "d": `{"v":2}`}
	records, _ = s.ListRecords(ctx, "tenant-a")
	for _, r := range records {
		if string(r.Payload) != want[r.ID] {
			t.Errorf("record %s payload = %s, want %s", r.ID, r.Payload, want[r.ID])
		}
	}
}
