// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"cloud.google.com/go/storage"
	"github.com/tomtom215/tenantvault/internal/metrics"
	"google.golang.org/api/option"
)

// GCSStore stores objects in a Cloud Storage bucket under a prefix.
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSStore creates a Cloud Storage client. An empty credentials file
// uses application default credentials.
func NewGCSStore(ctx context.Context, bucket, prefix string, cfg GCSConfig) (*GCSStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs bucket is required")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		if _, err := os.Stat(cfg.CredentialsFile); err != nil {
			return nil, fmt.Errorf("service account key not accessible at %s: %w", cfg.CredentialsFile, err)
		}
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS storage client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket, prefix: prefix}, nil
}

func (s *GCSStore) object(name string) (*storage.ObjectHandle, string, error) {
	key, err := objectKey(s.prefix, name)
	if err != nil {
		return nil, "", err
	}
	return s.client.Bucket(s.bucket).Object(key), key, nil
}

// Write uploads data. The object becomes visible only when the writer closes
// successfully.
func (s *GCSStore) Write(ctx context.Context, name string, data []byte) (err error) {
	defer func() { metrics.RecordBlobOperation("gcs", "write", err) }()

	obj, key, err := s.object(name)
	if err != nil {
		return err
	}

	writer := obj.NewWriter(ctx)
	writer.ContentType = "application/octet-stream"
	writer.CacheControl = "no-cache, no-store, must-revalidate"

	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("write gs://%s/%s: %w", s.bucket, key, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close GCS writer for gs://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}

// Read downloads the object or returns ErrNotFound.
func (s *GCSStore) Read(ctx context.Context, name string) (data []byte, err error) {
	defer func() { metrics.RecordBlobOperation("gcs", "read", err) }()

	obj, key, err := s.object(name)
	if err != nil {
		return nil, err
	}
	reader, err := obj.NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("open gs://%s/%s: %w", s.bucket, key, err)
	}
	defer reader.Close()

	data, err = io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read gs://%s/%s: %w", s.bucket, key, err)
	}
	return data, nil
}

// Delete removes the object; a missing object is not an error.
func (s *GCSStore) Delete(ctx context.Context, name string) (err error) {
	defer func() { metrics.RecordBlobOperation("gcs", "delete", err) }()

	obj, key, err := s.object(name)
	if err != nil {
		return err
	}
	if err := obj.Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("delete gs://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}

// Exists reads the object attributes.
func (s *GCSStore) Exists(ctx context.Context, name string) (bool, error) {
	obj, key, err := s.object(name)
	if err != nil {
		return false, err
	}
	if _, err := obj.Attrs(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat gs://%s/%s: %w", s.bucket, key, err)
	}
	return true, nil
}

// Location returns a gs:// URI.
func (s *GCSStore) Location(name string) string {
	key, err := objectKey(s.prefix, name)
	if err != nil {
		key = name
	}
	return "gs://" + s.bucket + "/" + key
}

// Close releases the client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}
