// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

package journal

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/tenantvault/internal/logging"
)

// Compactor periodically purges confirmed intents.
type Compactor struct {
	journal  *BadgerJournal
	interval time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	running bool
}

// NewCompactor creates a compactor using the journal's CompactInterval.
func NewCompactor(j *BadgerJournal) *Compactor {
	return &Compactor{journal: j, interval: j.cfg.CompactInterval}
}

// Start begins the background loop. Calling Start twice is a no-op.
func (c *Compactor) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.running = true
	c.mu.Unlock()

	c.wg.Add(1)
	go c.run(runCtx)

	logging.Info().Dur("interval", c.interval).Msg("Journal compactor started")
	return nil
}

// Stop cancels the loop and waits for it to exit.
func (c *Compactor) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.cancel()
	c.running = false
	c.mu.Unlock()

	c.wg.Wait()
	logging.Info().Msg("Journal compactor stopped")
}

// IsRunning reports whether the loop is active.
func (c *Compactor) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *Compactor) run(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purged, err := c.journal.Compact(ctx)
			if err != nil {
				logging.Error().Err(err).Msg("Journal compaction failed")
				continue
			}
			if purged > 0 {
				logging.Debug().Int("purged", purged).Msg("Journal compaction purged confirmed intents")
			}
		}
	}
}
