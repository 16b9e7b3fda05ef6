// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

package blobstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tomtom215/tenantvault/internal/metrics"
)

// FSStore stores objects as files under a root directory.
// Writes go to a temp file that is synced and renamed into place, so a
// reader never observes a partial object.
type FSStore struct {
	root string
}

// NewFSStore creates the root directory if needed.
func NewFSStore(root string) (*FSStore, error) {
	s, err := OpenFSStore(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(s.root, 0o750); err != nil {
		return nil, fmt.Errorf("create blob store root: %w", err)
	}
	return s, nil
}

// OpenFSStore resolves root without touching the filesystem. Objects under
// a missing root read as missing.
func OpenFSStore(root string) (*FSStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve blob store root: %w", err)
	}
	return &FSStore{root: abs}, nil
}

func (s *FSStore) path(name string) (string, error) {
	cleaned, err := CleanName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(cleaned)), nil
}

// Write stores data atomically.
func (s *FSStore) Write(ctx context.Context, name string, data []byte) (err error) {
	defer func() { metrics.RecordBlobOperation("fs", "write", err) }()

	if err := ctx.Err(); err != nil {
		return err
	}
	target, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return fmt.Errorf("create object directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp object: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp object: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp object: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return fmt.Errorf("commit object: %w", err)
	}
	return nil
}

// Read returns the object bytes or ErrNotFound.
func (s *FSStore) Read(ctx context.Context, name string) (data []byte, err error) {
	defer func() { metrics.RecordBlobOperation("fs", "read", err) }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	target, err := s.path(name)
	if err != nil {
		return nil, err
	}
	data, err = os.ReadFile(target) //nolint:gosec // path validated by CleanName
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return data, err
}

// Delete removes the object; a missing object is not an error.
func (s *FSStore) Delete(ctx context.Context, name string) (err error) {
	defer func() { metrics.RecordBlobOperation("fs", "delete", err) }()

	if err := ctx.Err(); err != nil {
		return err
	}
	target, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Exists reports whether the object exists.
func (s *FSStore) Exists(_ context.Context, name string) (bool, error) {
	target, err := s.path(name)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(target)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

// Location returns a file:// URI.
func (s *FSStore) Location(name string) string {
	return "file://" + filepath.ToSlash(filepath.Join(s.root, filepath.FromSlash(name)))
}

// Root returns the absolute root directory.
func (s *FSStore) Root() string {
	return s.root
}
