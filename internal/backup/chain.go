// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

package backup

import (
	"context"
	"fmt"
	"slices"
)

// Chain returns the backups needed to rebuild b, oldest first: the base
// snapshot followed by every INCREMENTAL up to and including b.
// A missing, foreign or cyclic parent is reported as a *ValidationError.
func Chain(ctx context.Context, store BackupStore, b *Backup) ([]*Backup, error) {
	chain := []*Backup{b}
	seen := map[string]bool{b.ID: true}

	for cur := b; cur.ParentID != ""; {
		parent, err := store.GetBackup(ctx, cur.ParentID)
		if IsNotFound(err) {
			return nil, brokenChain(b, cur.ParentID)
		}
		if err != nil {
			return nil, err
		}
		if parent.OwnerID != b.OwnerID || seen[parent.ID] {
			return nil, brokenChain(b, cur.ParentID)
		}
		seen[parent.ID] = true
		chain = append(chain, parent)
		cur = parent
	}

	slices.Reverse(chain)
	return chain, nil
}

func brokenChain(b *Backup, missing string) error {
	return NewValidation("backup", fmt.Sprintf("backup %s depends on unavailable backup %s", b.ID, missing))
}

// ancestorsOf returns the IDs reachable through ParentID from any of roots.
// Roots are included only when another root depends on them.
func ancestorsOf(byID map[string]*Backup, roots []*Backup) map[string]bool {
	ancestors := make(map[string]bool)
	for _, r := range roots {
		for id := r.ParentID; id != "" && !ancestors[id]; {
			ancestors[id] = true
			parent, ok := byID[id]
			if !ok {
				break
			}
			id = parent.ParentID
		}
	}
	return ancestors
}

// dependentsOf returns the backups in list whose chain passes through id.
func dependentsOf(list []*Backup, id string) []*Backup {
	byID := make(map[string]*Backup, len(list))
	for _, b := range list {
		byID[b.ID] = b
	}

	memo := map[string]bool{id: true}
	var depends func(b *Backup) bool
	depends = func(b *Backup) bool {
		if v, ok := memo[b.ID]; ok {
			return v
		}
		// Marked before recursing so a cycle terminates.
		memo[b.ID] = false
		v := b.ParentID == id
		if parent, ok := byID[b.ParentID]; ok && !v {
			v = depends(parent)
		}
		memo[b.ID] = v
		return v
	}

	var out []*Backup
	for _, b := range list {
		if b.ID != id && depends(b) {
			out = append(out, b)
		}
	}
	return out
}
