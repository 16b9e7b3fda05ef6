// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

package journal

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/tomtom215/tenantvault/internal/backup"
	"github.com/tomtom215/tenantvault/internal/logging"
	"github.com/tomtom215/tenantvault/internal/metrics"
)

var (
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("journal is closed")

	// ErrIntentNotFound is returned when confirming an unknown intent.
	ErrIntentNotFound = errors.New("intent not found")

	// ErrEmptyBackupID is returned for intents without a backup id.
	ErrEmptyBackupID = errors.New("intent backup id is required")
)

// Prefix keys for the two intent states
const (
	prefixPending   = "pending:"
	prefixConfirmed = "confirmed:"
)

// record is the stored form of an intent.
type record struct {
	Intent      backup.Intent `json:"intent"`
	RecordedAt  time.Time     `json:"recorded_at"`
	ConfirmedAt *time.Time    `json:"confirmed_at,omitempty"`
}

// Stats contains journal counters.
type Stats struct {
	TotalRecords   int64
	TotalConfirms  int64
	LastCompaction time.Time
}

// BadgerJournal is a durable IntentJournal on BadgerDB.
// Intents move from pending: to confirmed: keys in a single transaction.
type BadgerJournal struct {
	db  *badger.DB
	cfg Config

	totalRecords  atomic.Int64
	totalConfirms atomic.Int64

	mu             sync.RWMutex
	closed         bool
	lastCompaction time.Time
}

// Open opens (or creates) the journal.
func Open(cfg Config) (*BadgerJournal, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid journal config: %w", err)
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Path)
		opts.SyncWrites = cfg.SyncWrites
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	j := &BadgerJournal{db: db, cfg: cfg, lastCompaction: time.Now()}

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Bool("sync_writes", cfg.SyncWrites).
		Msg("Backup journal opened")
	return j, nil
}

func (j *BadgerJournal) checkOpen() error {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return ErrClosed
	}
	return nil
}

// Record persists a pending intent.
func (j *BadgerJournal) Record(ctx context.Context, intent backup.Intent) error {
	if err := j.checkOpen(); err != nil {
		return err
	}
	if intent.BackupID == "" {
		return ErrEmptyBackupID
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(&record{Intent: intent, RecordedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal intent: %w", err)
	}

	err = j.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(prefixPending+intent.BackupID), data)
	})
	if err != nil {
		return fmt.Errorf("write intent: %w", err)
	}

	j.totalRecords.Add(1)
	return nil
}

// Confirm moves an intent to the confirmed state. Confirming an already
// confirmed intent is a no-op.
func (j *BadgerJournal) Confirm(ctx context.Context, backupID string) error {
	if err := j.checkOpen(); err != nil {
		return err
	}
	if backupID == "" {
		return ErrEmptyBackupID
	}

	pendingKey := []byte(prefixPending + backupID)
	confirmedKey := []byte(prefixConfirmed + backupID)

	err := j.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(pendingKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			if _, cerr := txn.Get(confirmedKey); cerr == nil {
				return nil
			}
			return ErrIntentNotFound
		}
		if err != nil {
			return fmt.Errorf("get pending intent: %w", err)
		}

		var rec record
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		}); err != nil {
			return fmt.Errorf("unmarshal intent: %w", err)
		}

		now := time.Now().UTC()
		rec.ConfirmedAt = &now
		data, err := json.Marshal(&rec)
		if err != nil {
			return fmt.Errorf("marshal confirmed intent: %w", err)
		}

		if err := txn.Set(confirmedKey, data); err != nil {
			return fmt.Errorf("set confirmed intent: %w", err)
		}
		if err := txn.Delete(pendingKey); err != nil {
			return fmt.Errorf("delete pending intent: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	j.totalConfirms.Add(1)
	return nil
}

// Pending returns every unconfirmed intent, oldest first.
func (j *BadgerJournal) Pending(ctx context.Context) ([]backup.Intent, error) {
	if err := j.checkOpen(); err != nil {
		return nil, err
	}

	var intents []backup.Intent
	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixPending)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			item := it.Item()
			var rec record
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				logging.Warn().Err(err).Str("key", string(item.Key())).Msg("Journal failed to unmarshal intent")
				continue
			}
			intents = append(intents, rec.Intent)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterate pending intents: %w", err)
	}

	sortIntents(intents)
	metrics.SetJournalPending(len(intents))
	return intents, nil
}

// Compact deletes confirmed intents older than ConfirmedRetention and runs
// value log garbage collection. Returns the number of intents purged.
func (j *BadgerJournal) Compact(ctx context.Context) (int, error) {
	if err := j.checkOpen(); err != nil {
		return 0, err
	}

	cutoff := time.Now().UTC().Add(-j.cfg.ConfirmedRetention)
	var stale [][]byte

	err := j.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(prefixConfirmed)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			var rec record
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				stale = append(stale, item.KeyCopy(nil))
				continue
			}
			if rec.ConfirmedAt == nil || !rec.ConfirmedAt.After(cutoff) {
				stale = append(stale, item.KeyCopy(nil))
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan confirmed intents: %w", err)
	}

	if len(stale) > 0 {
		wb := j.db.NewWriteBatch()
		for _, key := range stale {
			if err := wb.Delete(key); err != nil {
				wb.Cancel()
				return 0, fmt.Errorf("delete confirmed intent: %w", err)
			}
		}
		if err := wb.Flush(); err != nil {
			return 0, fmt.Errorf("flush intent deletes: %w", err)
		}
	}

	if !j.cfg.InMemory {
		if err := j.db.RunValueLogGC(j.cfg.GCRatio); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
			logging.Warn().Err(err).Msg("Journal value log GC failed")
		}
	}

	j.mu.Lock()
	j.lastCompaction = time.Now()
	j.mu.Unlock()
	return len(stale), nil
}

// Stats returns journal counters.
func (j *BadgerJournal) Stats() Stats {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return Stats{
		TotalRecords:   j.totalRecords.Load(),
		TotalConfirms:  j.totalConfirms.Load(),
		LastCompaction: j.lastCompaction,
	}
}

// Close closes the database.
func (j *BadgerJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	return j.db.Close()
}

func sortIntents(intents []backup.Intent) {
	sort.SliceStable(intents, func(a, b int) bool {
		return intents[a].CreatedAt.Before(intents[b].CreatedAt)
	})
}
