// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

//go:build integration

package testinfra

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/tomtom215/tenantvault/internal/blobstore"
)

const (
	// DefaultMinioImage is the MinIO server image used for S3 tests
	DefaultMinioImage = "minio/minio:RELEASE.2025-04-22T22-12-26Z"

	minioPort      = "9000"
	minioAccessKey = "tenantvault"
	minioSecretKey = "tenantvault-secret"
)

// MinioContainer is a running S3-compatible server.
type MinioContainer struct {
	testcontainers.Container
	Endpoint string
}

// MinioOption configures the MinIO container.
type MinioOption func(*minioConfig)

type minioConfig struct {
	image        string
	startTimeout time.Duration
}

// WithMinioImage overrides DefaultMinioImage.
func WithMinioImage(image string) MinioOption {
	return func(c *minioConfig) { c.image = image }
}

// WithMinioStartTimeout sets how long to wait for the health endpoint.
func WithMinioStartTimeout(timeout time.Duration) MinioOption {
	return func(c *minioConfig) { c.startTimeout = timeout }
}

// NewMinioContainer starts MinIO and waits until it reports live.
//
//	minio, err := testinfra.NewMinioContainer(ctx)
//	if err != nil {
//	    t.Fatal(err)
//	}
//	defer testinfra.CleanupContainer(t, ctx, minio)
//	_ = minio.CreateBucket(ctx, "snapshots")
//	store, _ := blobstore.NewS3Store("snapshots", "tenants", minio.S3Config())
func NewMinioContainer(ctx context.Context, opts ...MinioOption) (*MinioContainer, error) {
	cfg := &minioConfig{
		image:        DefaultMinioImage,
		startTimeout: 60 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	req := testcontainers.ContainerRequest{
		Image:        cfg.image,
		ExposedPorts: []string{minioPort + "/tcp"},
		Cmd:          []string{"server", "/data"},
		Env: map[string]string{
			"MINIO_ROOT_USER":     minioAccessKey,
			"MINIO_ROOT_PASSWORD": minioSecretKey,
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort(minioPort+"/tcp"),
			wait.ForHTTP("/minio/health/live").WithPort(minioPort+"/tcp"),
		).WithStartupTimeout(cfg.startTimeout),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get container host: %w", err)
	}
	port, err := container.MappedPort(ctx, minioPort)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get mapped port: %w", err)
	}

	return &MinioContainer{
		Container: container,
		Endpoint:  fmt.Sprintf("http://%s:%s", host, port.Port()),
	}, nil
}

// S3Config points a blobstore S3 store at the container.
func (c *MinioContainer) S3Config() blobstore.S3Config {
	return blobstore.S3Config{
		Endpoint:     c.Endpoint,
		Region:       "us-east-1",
		AccessKey:    minioAccessKey,
		SecretKey:    minioSecretKey,
		UsePathStyle: true,
	}
}

// CreateBucket creates bucket on the server.
func (c *MinioContainer) CreateBucket(ctx context.Context, bucket string) error {
	client := s3.New(s3.Options{
		Region:       "us-east-1",
		BaseEndpoint: aws.String(c.Endpoint),
		UsePathStyle: true,
		Credentials:  credentials.NewStaticCredentialsProvider(minioAccessKey, minioSecretKey, ""),
	})
	if _, err := client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)}); err != nil {
		return fmt.Errorf("create bucket %s: %w", bucket, err)
	}
	return nil
}
