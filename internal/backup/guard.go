// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

package backup

import (
	"sync"

	"golang.org/x/sync/semaphore"
)

// OwnerGuard allows at most one in-flight backup or restore per owner.
// Acquire never blocks: a busy owner yields a *ConflictError.
type OwnerGuard struct {
	mu    sync.Mutex
	slots map[string]*ownerSlot
}

type ownerSlot struct {
	sem       *semaphore.Weighted
	operation string
	refs      int
}

// NewOwnerGuard creates an empty guard.
func NewOwnerGuard() *OwnerGuard {
	return &OwnerGuard{slots: make(map[string]*ownerSlot)}
}

// Acquire reserves the owner for operation. The returned func releases it
// and must be called exactly once.
func (g *OwnerGuard) Acquire(ownerID, operation string) (func(), error) {
	g.mu.Lock()
	slot, ok := g.slots[ownerID]
	if !ok {
		slot = &ownerSlot{sem: semaphore.NewWeighted(1)}
		g.slots[ownerID] = slot
	}
	if !slot.sem.TryAcquire(1) {
		busy := slot.operation
		g.mu.Unlock()
		return nil, &ConflictError{OwnerID: ownerID, Operation: busy}
	}
	slot.operation = operation
	slot.refs++
	g.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			defer g.mu.Unlock()
			slot.sem.Release(1)
			slot.refs--
			if slot.refs == 0 {
				delete(g.slots, ownerID)
			}
		})
	}, nil
}

// Busy reports whether the owner currently holds the guard.
func (g *OwnerGuard) Busy(ownerID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.slots[ownerID]
	return ok
}
