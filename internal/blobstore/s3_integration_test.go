// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

//go:build integration

package blobstore_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/tenantvault/internal/blobstore"
	"github.com/tomtom215/tenantvault/internal/testinfra"
)

func TestS3Store_MinioRoundTrip(t *testing.T) {
	testinfra.SkipIfNoDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	minio, err := testinfra.NewMinioContainer(ctx)
	if err != nil {
		t.Fatalf("start minio: %v", err)
	}
	defer testinfra.CleanupContainer(t, ctx, minio)

	if err := minio.CreateBucket(ctx, "snapshots"); err != nil {
		t.Fatal(err)
	}

	store, err := blobstore.Open(ctx, blobstore.Config{
		URI:     "s3://snapshots/tenants",
		S3:      minio.S3Config(),
		Breaker: blobstore.DefaultBreakerConfig(),
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	name := "tenant-a/backup-1.snap"
	payload := []byte("sealed snapshot bytes")

	if ok, err := store.Exists(ctx, name); err != nil || ok {
		t.Fatalf("Exists before write = %v, %v; want false", ok, err)
	}
	if err := store.Write(ctx, name, payload); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := store.Read(ctx, name)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("Read = %q, want %q", got, payload)
	}
	if loc := store.Location(name); loc != "s3://snapshots/tenants/tenant-a/backup-1.snap" {
		t.Errorf("Location = %q", loc)
	}

	if err := store.Delete(ctx, name); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Read(ctx, name); !errors.Is(err, blobstore.ErrNotFound) {
		t.Errorf("Read after delete = %v, want ErrNotFound", err)
	}
}
