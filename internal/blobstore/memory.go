// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

package blobstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tomtom215/tenantvault/internal/metrics"
)

// MemoryStore keeps objects in memory. Selected by mem:// URIs; used in tests.
type MemoryStore struct {
	name    string
	mu      sync.RWMutex
	objects map[string][]byte
	writes  int
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(name string) *MemoryStore {
	return &MemoryStore{name: name, objects: make(map[string][]byte)}
}

// Write stores a copy of data.
func (s *MemoryStore) Write(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := CleanName(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.objects[key] = append([]byte(nil), data...)
	s.writes++
	s.mu.Unlock()
	metrics.RecordBlobOperation("mem", "write", nil)
	return nil
}

// Read returns a copy of the object or ErrNotFound.
func (s *MemoryStore) Read(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key, err := CleanName(name)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	data, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return append([]byte(nil), data...), nil
}

// Delete removes the object if present.
func (s *MemoryStore) Delete(_ context.Context, name string) error {
	key, err := CleanName(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
	return nil
}

// Exists reports whether the object is present.
func (s *MemoryStore) Exists(_ context.Context, name string) (bool, error) {
	key, err := CleanName(name)
	if err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[key]
	return ok, nil
}

// Location returns a mem:// URI.
func (s *MemoryStore) Location(name string) string {
	return "mem://" + s.name + "/" + name
}

// Names returns the stored object names in order.
func (s *MemoryStore) Names() []string {
	s.mu.RLock()
	names := make([]string, 0, len(s.objects))
	for k := range s.objects {
		names = append(names, k)
	}
	s.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Writes returns the number of successful writes.
func (s *MemoryStore) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}
