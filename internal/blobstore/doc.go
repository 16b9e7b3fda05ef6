// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

// Package blobstore provides the durable store for snapshot objects.
//
// The implementation is selected by URI scheme:
//
//	/var/lib/tenantvault/snapshots     local filesystem (FSStore)
//	file:///var/lib/tenantvault/snaps  local filesystem (FSStore)
//	s3://bucket/prefix                 S3 or S3-compatible (S3Store, aws-sdk-go-v2)
//	gs://bucket/prefix                 Google Cloud Storage (GCSStore)
//	mem://name                         in memory (MemoryStore, tests)
//
// Remote stores can be wrapped in a BreakerStore (sony/gobreaker) so a
// failing backend fails fast instead of stalling every backup.
//
// Object names are relative slash-separated paths; names that are absolute
// or escape the root are rejected with ErrInvalidName.
package blobstore
