// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

package blobstore

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

// flakyStore fails every call while failing is set.
type flakyStore struct {
	*MemoryStore
	failing bool
	calls   int
}

func (s *flakyStore) Write(ctx context.Context, name string, data []byte) error {
	s.calls++
	if s.failing {
		return errors.New("connection reset")
	}
	return s.MemoryStore.Write(ctx, name, data)
}

func (s *flakyStore) Read(ctx context.Context, name string) ([]byte, error) {
	s.calls++
	if s.failing {
		return nil, errors.New("connection reset")
	}
	return s.MemoryStore.Read(ctx, name)
}

func testBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Enabled:             true,
		MaxRequests:         1,
		Interval:            time.Minute,
		Timeout:             time.Hour,
		ConsecutiveFailures: 3,
	}
}

func TestBreakerStore_OpensAfterConsecutiveFailures(t *testing.T) {
	ctx := context.Background()
	inner := &flakyStore{MemoryStore: NewMemoryStore("flaky"), failing: true}
	store := NewBreakerStore("test-open", inner, testBreakerConfig())

	for i := 0; i < 3; i++ {
		if err := store.Write(ctx, fmt.Sprintf("o/%d", i), []byte("x")); err == nil {
			t.Fatalf("write %d: expected error", i)
		}
	}
	if store.State() != gobreaker.StateOpen {
		t.Fatalf("State = %v, want open", store.State())
	}

	callsBefore := inner.calls
	err := store.Write(ctx, "o/blocked", []byte("x"))
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("error = %v, want ErrOpenState", err)
	}
	if inner.calls != callsBefore {
		t.Error("open breaker still called the inner store")
	}
}

func TestBreakerStore_NotFoundDoesNotTrip(t *testing.T) {
	ctx := context.Background()
	store := NewBreakerStore("test-notfound", NewMemoryStore("nf"), testBreakerConfig())

	for i := 0; i < 10; i++ {
		if _, err := store.Read(ctx, "o/missing"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("read %d error = %v, want ErrNotFound", i, err)
		}
	}
	if store.State() != gobreaker.StateClosed {
		t.Errorf("State = %v, want closed", store.State())
	}
}

func TestBreakerStore_PassThrough(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryStore("pass")
	store := NewBreakerStore("test-pass", inner, testBreakerConfig())

	if err := store.Write(ctx, "o/a", []byte("abc")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := store.Read(ctx, "o/a")
	if err != nil || string(got) != "abc" {
		t.Fatalf("Read = %q, %v", got, err)
	}
	exists, err := store.Exists(ctx, "o/a")
	if err != nil || !exists {
		t.Fatalf("Exists = %v, %v", exists, err)
	}
	if err := store.Delete(ctx, "o/a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if store.Location("o/a") != inner.Location("o/a") {
		t.Error("Location not delegated")
	}
}
