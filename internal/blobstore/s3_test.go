// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

package blobstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// fakeS3 is an in-memory s3API keyed by bucket/key.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = data
	f.mu.Unlock()
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	f.mu.Unlock()
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	delete(f.objects, aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key))
	f.mu.Unlock()
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	_, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	f.mu.Unlock()
	if !ok {
		return nil, &s3types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func TestS3Store_KeysUnderPrefix(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	store := newS3StoreWithClient(fake, "vault", "tenants")

	if err := store.Write(ctx, "t1/backup.json", []byte("data")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, ok := fake.objects["vault/tenants/t1/backup.json"]; !ok {
		t.Fatalf("object not stored under prefix; have %v", fake.objects)
	}
	if got := store.Location("t1/backup.json"); got != "s3://vault/tenants/t1/backup.json" {
		t.Errorf("Location = %q", got)
	}

	got, err := store.Read(ctx, "t1/backup.json")
	if err != nil || string(got) != "data" {
		t.Fatalf("Read = %q, %v", got, err)
	}
}

func TestS3Store_NotFoundMapping(t *testing.T) {
	ctx := context.Background()
	store := newS3StoreWithClient(newFakeS3(), "vault", "")

	if _, err := store.Read(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Read error = %v, want ErrNotFound", err)
	}
	exists, err := store.Exists(ctx, "missing")
	if err != nil || exists {
		t.Errorf("Exists = %v, %v; want false, nil", exists, err)
	}
	if err := store.Delete(ctx, "missing"); err != nil {
		t.Errorf("Delete = %v, want nil", err)
	}
}

func TestS3Store_RejectsInvalidNames(t *testing.T) {
	store := newS3StoreWithClient(newFakeS3(), "vault", "p")
	if err := store.Write(context.Background(), "../x", []byte("x")); !errors.Is(err, ErrInvalidName) {
		t.Errorf("Write error = %v, want ErrInvalidName", err)
	}
}

func TestNewS3Store_RequiresBucket(t *testing.T) {
	if _, err := NewS3Store("", "", S3Config{}); err == nil {
		t.Fatal("expected error for empty bucket")
	}
}
