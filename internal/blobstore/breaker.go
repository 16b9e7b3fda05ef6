// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

package blobstore

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/tenantvault/internal/logging"
	"github.com/tomtom215/tenantvault/internal/metrics"
)

// DefaultBreakerConfig returns production defaults for remote stores.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Enabled:             true,
		MaxRequests:         2,
		Interval:            60 * time.Second,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 5,
	}
}

// BreakerStore fails fast while the wrapped store is unhealthy.
// ErrNotFound, ErrInvalidName and context cancellation do not count as failures.
type BreakerStore struct {
	inner Store
	cb    *gobreaker.CircuitBreaker[[]byte]
}

// NewBreakerStore wraps inner with a circuit breaker named after the store.
func NewBreakerStore(name string, inner Store, cfg BreakerConfig) *BreakerStore {
	threshold := cfg.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}

	settings := gobreaker.Settings{
		Name:        "blobstore-" + name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrNotFound) ||
				errors.Is(err, ErrInvalidName) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(cbName string, from, to gobreaker.State) {
			metrics.SetBlobBreakerState(name, int(to))
			logging.Warn().
				Str("breaker", cbName).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Blob store circuit breaker state changed")
		},
	}

	metrics.SetBlobBreakerState(name, int(gobreaker.StateClosed))
	return &BreakerStore{
		inner: inner,
		cb:    gobreaker.NewCircuitBreaker[[]byte](settings),
	}
}

// Write runs inner.Write through the breaker.
func (s *BreakerStore) Write(ctx context.Context, name string, data []byte) error {
	_, err := s.cb.Execute(func() ([]byte, error) {
		return nil, s.inner.Write(ctx, name, data)
	})
	return err
}

// Read runs inner.Read through the breaker.
func (s *BreakerStore) Read(ctx context.Context, name string) ([]byte, error) {
	return s.cb.Execute(func() ([]byte, error) {
		return s.inner.Read(ctx, name)
	})
}

// Delete runs inner.Delete through the breaker.
func (s *BreakerStore) Delete(ctx context.Context, name string) error {
	_, err := s.cb.Execute(func() ([]byte, error) {
		return nil, s.inner.Delete(ctx, name)
	})
	return err
}

// Exists runs inner.Exists through the breaker.
func (s *BreakerStore) Exists(ctx context.Context, name string) (bool, error) {
	var exists bool
	_, err := s.cb.Execute(func() ([]byte, error) {
		var err error
		exists, err = s.inner.Exists(ctx, name)
		return nil, err
	})
	return exists, err
}

// Location delegates to the wrapped store.
func (s *BreakerStore) Location(name string) string {
	return s.inner.Location(name)
}

// State returns the breaker state.
func (s *BreakerStore) State() gobreaker.State {
	return s.cb.State()
}
