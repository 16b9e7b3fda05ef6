// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

package blobstore

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseURI(t *testing.T) {
	tests := []struct {
		name       string
		uri        string
		wantScheme string
		wantBucket string
		wantPrefix string
		wantErr    bool
	}{
		{"plain path", "/var/lib/snapshots", "", "", "/var/lib/snapshots", false},
		{"relative path", "data/snapshots", "", "", "data/snapshots", false},
		{"file uri", "file:///var/lib/snapshots", "file", "", "/var/lib/snapshots", false},
		{"s3 with prefix", "s3://backups/tenants/prod", "s3", "backups", "tenants/prod", false},
		{"s3 without prefix", "s3://backups", "s3", "backups", "", false},
		{"gcs", "gs://bucket/snaps/", "gs", "bucket", "snaps", false},
		{"memory", "mem://test", "mem", "test", "", false},
		{"s3 without bucket", "s3:///prefix", "", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scheme, bucket, prefix, err := parseURI(tt.uri)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseURI(%q) error = %v, wantErr %v", tt.uri, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if scheme != tt.wantScheme || bucket != tt.wantBucket || prefix != tt.wantPrefix {
				t.Errorf("parseURI(%q) = (%q, %q, %q), want (%q, %q, %q)",
					tt.uri, scheme, bucket, prefix, tt.wantScheme, tt.wantBucket, tt.wantPrefix)
			}
		})
	}
}

func TestCleanName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"simple", "owner/backup.json", "owner/backup.json", false},
		{"redundant dot", "owner/./backup.json", "owner/backup.json", false},
		{"empty", "", "", true},
		{"absolute", "/etc/passwd", "", true},
		{"parent escape", "../outside", "", true},
		{"nested escape", "owner/../../outside", "", true},
		{"backslash", "owner\\backup", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CleanName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CleanName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidName) {
					t.Errorf("error %v is not ErrInvalidName", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("CleanName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("plain path opens filesystem store", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "snaps")
		store, err := Open(ctx, Config{URI: dir})
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		if _, ok := store.(*FSStore); !ok {
			t.Fatalf("store type = %T, want *FSStore", store)
		}
		if _, err := os.Stat(dir); err != nil {
			t.Errorf("root not created: %v", err)
		}
	})

	t.Run("file uri opens filesystem store", func(t *testing.T) {
		store, err := Open(ctx, Config{URI: "file://" + t.TempDir()})
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		if _, ok := store.(*FSStore); !ok {
			t.Fatalf("store type = %T, want *FSStore", store)
		}
	})

	t.Run("mem uri opens memory store", func(t *testing.T) {
		store, err := Open(ctx, Config{URI: "mem://unit"})
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		if _, ok := store.(*MemoryStore); !ok {
			t.Fatalf("store type = %T, want *MemoryStore", store)
		}
	})

	t.Run("s3 uri wrapped in breaker", func(t *testing.T) {
		store, err := Open(ctx, Config{
			URI:     "s3://bucket/prefix",
			S3:      S3Config{Endpoint: "http://localhost:9000", AccessKey: "k", SecretKey: "s", UsePathStyle: true},
			Breaker: DefaultBreakerConfig(),
		})
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		if _, ok := store.(*BreakerStore); !ok {
			t.Fatalf("store type = %T, want *BreakerStore", store)
		}
		if got := store.Location("o/b.json"); got != "s3://bucket/prefix/o/b.json" {
			t.Errorf("Location = %q", got)
		}
	})

	t.Run("read-only path is not created", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "never", "created")
		store, err := Open(ctx, Config{URI: dir, ReadOnly: true})
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		exists, err := store.Exists(ctx, "tenant-1/backup.json")
		if err != nil || exists {
			t.Errorf("Exists = %v, %v; want false, nil", exists, err)
		}
		if err := store.Write(ctx, "tenant-1/backup.json", []byte("x")); !errors.Is(err, ErrReadOnly) {
			t.Errorf("Write = %v, want ErrReadOnly", err)
		}
		if err := store.Delete(ctx, "tenant-1/backup.json"); !errors.Is(err, ErrReadOnly) {
			t.Errorf("Delete = %v, want ErrReadOnly", err)
		}
		if !strings.HasPrefix(store.Location("a.json"), "file://") {
			t.Errorf("Location = %q", store.Location("a.json"))
		}
		if _, err := os.Stat(dir); !os.IsNotExist(err) {
			t.Errorf("read-only open created %s: %v", dir, err)
		}
	})

	t.Run("unsupported scheme", func(t *testing.T) {
		if _, err := Open(ctx, Config{URI: "ftp://host/path"}); err == nil {
			t.Fatal("expected error for ftp scheme")
		}
	})

	t.Run("empty uri", func(t *testing.T) {
		if _, err := Open(ctx, Config{}); err == nil {
			t.Fatal("expected error for empty URI")
		}
	})
}

func TestFSStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}

	data := []byte(`{"records":[1,2,3]}`)
	name := "tenant-1/backup-full-20260101-020000-1-abcd1234.json"

	if err := store.Write(ctx, name, data); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := store.Read(ctx, name)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Read = %q, want %q", got, data)
	}

	exists, err := store.Exists(ctx, name)
	if err != nil || !exists {
		t.Errorf("Exists = %v, %v; want true, nil", exists, err)
	}

	if !strings.HasPrefix(store.Location(name), "file://") {
		t.Errorf("Location = %q, want file:// prefix", store.Location(name))
	}

	entries, err := os.ReadDir(filepath.Join(store.Root(), "tenant-1"))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestFSStore_Overwrite(t *testing.T) {
	ctx := context.Background()
	store, _ := NewFSStore(t.TempDir())

	if err := store.Write(ctx, "a/b", []byte("first")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := store.Write(ctx, "a/b", []byte("second")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := store.Read(ctx, "a/b")
	if string(got) != "second" {
		t.Errorf("Read = %q, want second", got)
	}
}

func TestFSStore_Missing(t *testing.T) {
	ctx := context.Background()
	store, _ := NewFSStore(t.TempDir())

	if _, err := store.Read(ctx, "nope/missing.json"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Read missing error = %v, want ErrNotFound", err)
	}
	if err := store.Delete(ctx, "nope/missing.json"); err != nil {
		t.Errorf("Delete missing = %v, want nil", err)
	}
	exists, err := store.Exists(ctx, "nope/missing.json")
	if err != nil || exists {
		t.Errorf("Exists missing = %v, %v; want false, nil", exists, err)
	}
}

func TestFSStore_RejectsEscapingNames(t *testing.T) {
	ctx := context.Background()
	store, _ := NewFSStore(t.TempDir())

	for _, name := range []string{"../escape", "/abs/path", ""} {
		if err := store.Write(ctx, name, []byte("x")); !errors.Is(err, ErrInvalidName) {
			t.Errorf("Write(%q) error = %v, want ErrInvalidName", name, err)
		}
	}
}

func TestFSStore_CanceledContext(t *testing.T) {
	store, _ := NewFSStore(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := store.Write(ctx, "a/b", []byte("x")); !errors.Is(err, context.Canceled) {
		t.Errorf("Write error = %v, want context.Canceled", err)
	}
	if exists, _ := store.Exists(context.Background(), "a/b"); exists {
		t.Error("object written despite canceled context")
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore("unit")

	data := []byte("payload")
	if err := store.Write(ctx, "o/x", data); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data[0] = 'X'

	got, err := store.Read(ctx, "o/x")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "payload" {
		t.Errorf("stored bytes aliased caller slice: %q", got)
	}

	if names := store.Names(); len(names) != 1 || names[0] != "o/x" {
		t.Errorf("Names = %v", names)
	}
	if store.Writes() != 1 {
		t.Errorf("Writes = %d, want 1", store.Writes())
	}

	_ = store.Delete(ctx, "o/x")
	if _, err := store.Read(ctx, "o/x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Read after delete error = %v, want ErrNotFound", err)
	}
}
