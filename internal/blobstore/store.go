// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

package blobstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned by Read when the object does not exist.
	ErrNotFound = errors.New("object not found")

	// ErrInvalidName is returned for empty, absolute, or escaping object names.
	ErrInvalidName = errors.New("invalid object name")

	// ErrReadOnly is returned by Write and Delete on a read-only store.
	ErrReadOnly = errors.New("blob store is read-only")
)

// Store is a durable object store keyed by generated names.
type Store interface {
	Write(ctx context.Context, name string, data []byte) error
	Read(ctx context.Context, name string) ([]byte, error)

	// Delete is idempotent: deleting a missing object is not an error.
	Delete(ctx context.Context, name string) error
	Exists(ctx context.Context, name string) (bool, error)

	// Location returns the full URI for name.
	Location(name string) string
}

// S3Config configures the s3:// store.
type S3Config struct {
	Endpoint     string `koanf:"endpoint"`
	Region       string `koanf:"region"`
	AccessKey    string `koanf:"access_key"`
	SecretKey    string `koanf:"secret_key"`
	UsePathStyle bool   `koanf:"use_path_style"`
}

// GCSConfig configures the gs:// store.
type GCSConfig struct {
	// CredentialsFile is a service account key. Empty uses application default credentials.
	CredentialsFile string `koanf:"credentials_file"`
}

// BreakerConfig configures the circuit breaker around remote stores.
type BreakerConfig struct {
	Enabled             bool          `koanf:"enabled"`
	MaxRequests         uint32        `koanf:"max_requests"`
	Interval            time.Duration `koanf:"interval"`
	Timeout             time.Duration `koanf:"timeout"`
	ConsecutiveFailures uint32        `koanf:"consecutive_failures"`
}

// Config selects and configures a Store.
type Config struct {
	// URI is a plain path, file://path, mem://name, s3://bucket/prefix, or gs://bucket/prefix
	URI     string        `koanf:"uri"`
	S3      S3Config      `koanf:"s3"`
	GCS     GCSConfig     `koanf:"gcs"`
	Breaker BreakerConfig `koanf:"breaker"`

	// ReadOnly opens the store for inspection only
	ReadOnly bool `koanf:"-"`
}

// Open returns the Store selected by cfg.URI. Remote stores are wrapped in a
// circuit breaker when cfg.Breaker.Enabled is set. With cfg.ReadOnly the
// store rejects writes and a filesystem root is not created.
func Open(ctx context.Context, cfg Config) (Store, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("blob store URI is required")
	}

	scheme, bucket, prefix, err := parseURI(cfg.URI)
	if err != nil {
		return nil, err
	}

	var store Store
	switch scheme {
	case "", "file":
		if cfg.ReadOnly {
			store, err = OpenFSStore(prefix)
		} else {
			store, err = NewFSStore(prefix)
		}
	case "mem":
		store = NewMemoryStore(bucket)
	case "s3":
		store, err = NewS3Store(bucket, prefix, cfg.S3)
	case "gs":
		store, err = NewGCSStore(ctx, bucket, prefix, cfg.GCS)
	default:
		return nil, fmt.Errorf("unsupported blob store scheme %q", scheme)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Breaker.Enabled && (scheme == "s3" || scheme == "gs") {
		store = NewBreakerStore(scheme, store, cfg.Breaker)
	}
	if cfg.ReadOnly {
		store = ReadOnly(store)
	}
	return store, nil
}

// parseURI splits a store URI. For file URIs and plain paths the path is
// returned as prefix.
func parseURI(uri string) (scheme, bucket, prefix string, err error) {
	if !strings.Contains(uri, "://") {
		return "", "", uri, nil
	}

	u, err := url.Parse(uri)
	if err != nil {
		return "", "", "", fmt.Errorf("invalid blob store URI %q: %w", uri, err)
	}

	switch u.Scheme {
	case "file":
		p := u.Path
		if u.Host != "" {
			p = path.Join(u.Host, u.Path)
		}
		if p == "" {
			return "", "", "", fmt.Errorf("file URI %q has no path", uri)
		}
		return "file", "", p, nil
	case "s3", "gs", "mem":
		if u.Host == "" && u.Scheme != "mem" {
			return "", "", "", fmt.Errorf("%s URI %q has no bucket", u.Scheme, uri)
		}
		return u.Scheme, u.Host, strings.Trim(u.Path, "/"), nil
	default:
		return u.Scheme, u.Host, strings.Trim(u.Path, "/"), nil
	}
}

// CleanName validates an object name and returns it in canonical form.
// Empty, absolute, backslashed and escaping names wrap ErrInvalidName.
func CleanName(name string) (string, error) {
	if name == "" || strings.HasPrefix(name, "/") || strings.Contains(name, "\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	cleaned := path.Clean(name)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return cleaned, nil
}

type readOnlyStore struct {
	Store
}

// ReadOnly wraps s so that Write and Delete fail with ErrReadOnly.
func ReadOnly(s Store) Store {
	return readOnlyStore{Store: s}
}

func (r readOnlyStore) Write(_ context.Context, name string, _ []byte) error {
	return fmt.Errorf("%w: write %s", ErrReadOnly, name)
}

func (r readOnlyStore) Delete(_ context.Context, name string) error {
	return fmt.Errorf("%w: delete %s", ErrReadOnly, name)
}

// objectKey joins a prefix and a validated name.
func objectKey(prefix, name string) (string, error) {
	cleaned, err := CleanName(name)
	if err != nil {
		return "", err
	}
	if prefix == "" {
		return cleaned, nil
	}
	return prefix + "/" + cleaned, nil
}
