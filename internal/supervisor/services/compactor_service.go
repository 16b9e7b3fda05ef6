// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

package services

import (
	"context"
	"fmt"
)

// JournalCompactor is the lifecycle surface of journal.Compactor.
type JournalCompactor interface {
	Start(ctx context.Context) error
	Stop()
	IsRunning() bool
}

// CompactorService runs journal compaction under supervision.
type CompactorService struct {
	compactor JournalCompactor
	name      string
}

// NewCompactorService wraps compactor.
func NewCompactorService(compactor JournalCompactor) *CompactorService {
	return &CompactorService{compactor: compactor, name: "journal-compactor"}
}

// Serve implements suture.Service.
func (c *CompactorService) Serve(ctx context.Context) error {
	if err := c.compactor.Start(ctx); err != nil {
		return fmt.Errorf("start journal compactor: %w", err)
	}
	<-ctx.Done()
	c.compactor.Stop()
	return ctx.Err()
}

// String implements fmt.Stringer for suture logging.
func (c *CompactorService) String() string {
	return c.name
}
