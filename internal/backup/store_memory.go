// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

package backup

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore implements Store in memory.
// Useful for tests and single-process deployments without DuckDB.
type MemoryStore struct {
	mu        sync.RWMutex
	backups   map[string]*Backup
	history   []*HistoryEntry
	points    map[string]*RestorePoint
	results   []*RestoreResult
	schedules map[string]*Schedule
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		backups:   make(map[string]*Backup),
		points:    make(map[string]*RestorePoint),
		schedules: make(map[string]*Schedule),
	}
}

// CommitBackup inserts the backup and restore point.
func (s *MemoryStore) CommitBackup(_ context.Context, b *Backup, point *RestorePoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.backups[b.ID]; exists {
		return &IOFailure{Op: "commit backup", Err: errDuplicateID(b.ID)}
	}
	s.backups[b.ID] = cloneBackup(b)
	if point != nil {
		p := *point
		s.points[p.ID] = &p
	}
	return nil
}

// GetBackup returns a copy of the backup.
func (s *MemoryStore) GetBackup(_ context.Context, id string) (*Backup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.backups[id]
	if !ok {
		return nil, NewNotFound("backup", id)
	}
	return cloneBackup(b), nil
}

// ListBackups filters, sorts and paginates.
func (s *MemoryStore) ListBackups(_ context.Context, opts ListOptions) ([]*Backup, error) {
	s.mu.RLock()
	result := make([]*Backup, 0, len(s.backups))
	for _, b := range s.backups {
		if opts.OwnerID != "" && b.OwnerID != opts.OwnerID {
			continue
		}
		if opts.Type != nil && b.BackupType != *opts.Type {
			continue
		}
		result = append(result, cloneBackup(b))
	}
	s.mu.RUnlock()

	sortBackups(result, opts.SortAsc)
	return paginate(result, opts.Offset, opts.Limit), nil
}

// ListExpiredBackups returns backups with ExpiresAt <= cutoff, oldest expiry first.
func (s *MemoryStore) ListExpiredBackups(_ context.Context, cutoff time.Time) ([]*Backup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Backup
	for _, b := range s.backups {
		if !b.ExpiresAt.After(cutoff) {
			result = append(result, cloneBackup(b))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ExpiresAt.Before(result[j].ExpiresAt)
	})
	return result, nil
}

// LatestBackup returns the owner's newest backup or nil.
func (s *MemoryStore) LatestBackup(ctx context.Context, ownerID string) (*Backup, error) {
	list, err := s.ListBackups(ctx, ListOptions{OwnerID: ownerID, Limit: 1})
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return list[0], nil
}

// MarkRestored sets IsRestored and RestoredAt.
func (s *MemoryStore) MarkRestored(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.backups[id]
	if !ok {
		return NewNotFound("backup", id)
	}
	b.IsRestored = true
	b.RestoredAt = &at
	return nil
}

// DeleteBackup removes the backup, its history and its restore points.
func (s *MemoryStore) DeleteBackup(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.backups[id]; !ok {
		return NewNotFound("backup", id)
	}
	delete(s.backups, id)

	kept := s.history[:0]
	for _, e := range s.history {
		if e.BackupID != id {
			kept = append(kept, e)
		}
	}
	s.history = kept

	for pid, p := range s.points {
		if p.BackupID == id {
			delete(s.points, pid)
		}
	}
	return nil
}

// AppendHistory appends a copy of the entry.
func (s *MemoryStore) AppendHistory(_ context.Context, entry *HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, cloneHistory(entry))
	return nil
}

// ListHistory returns a backup's entries oldest first.
func (s *MemoryStore) ListHistory(_ context.Context, backupID string) ([]*HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*HistoryEntry
	for _, e := range s.history {
		if e.BackupID == backupID {
			result = append(result, cloneHistory(e))
		}
	}
	return result, nil
}

// ListOwnerHistory returns an owner's entries newest first.
func (s *MemoryStore) ListOwnerHistory(_ context.Context, ownerID string, limit int) ([]*HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*HistoryEntry
	for i := len(s.history) - 1; i >= 0; i-- {
		if s.history[i].OwnerID == ownerID {
			result = append(result, cloneHistory(s.history[i]))
		}
	}
	return paginate(result, 0, limit), nil
}

// GetRestorePoint returns a copy of the point.
func (s *MemoryStore) GetRestorePoint(_ context.Context, id string) (*RestorePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.points[id]
	if !ok {
		return nil, NewNotFound("restore point", id)
	}
	c := *p
	return &c, nil
}

// ListRestorePoints returns the owner's points newest first.
func (s *MemoryStore) ListRestorePoints(_ context.Context, ownerID string) ([]*RestorePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*RestorePoint, 0)
	for _, p := range s.points {
		if p.OwnerID == ownerID {
			c := *p
			result = append(result, &c)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Timestamp.Equal(result[j].Timestamp) {
			return result[i].ID > result[j].ID
		}
		return result[i].Timestamp.After(result[j].Timestamp)
	})
	return result, nil
}

// SetRestorePointStatus updates the status of every point of backupID.
func (s *MemoryStore) SetRestorePointStatus(_ context.Context, backupID string, status RestorePointStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.points {
		if p.BackupID == backupID {
			p.Status = status
		}
	}
	return nil
}

// FindRestorePointAtOrBefore implements the nearest-prior-point rule.
func (s *MemoryStore) FindRestorePointAtOrBefore(ctx context.Context, ownerID string, ts time.Time) (*RestorePoint, error) {
	points, err := s.ListRestorePoints(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	for _, p := range points {
		if p.Status == PointAvailable && !p.Timestamp.After(ts) {
			return p, nil
		}
	}
	return nil, NewNotFound("restore point", "at or before "+ts.UTC().Format(time.RFC3339))
}

// SaveRestoreResult appends the attempt.
func (s *MemoryStore) SaveRestoreResult(_ context.Context, result *RestoreResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, cloneRestoreResult(result))
	return nil
}

// ListRestoreResults returns the owner's attempts newest first.
func (s *MemoryStore) ListRestoreResults(_ context.Context, ownerID string) ([]*RestoreResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*RestoreResult, 0)
	for i := len(s.results) - 1; i >= 0; i-- {
		if s.results[i].OwnerID == ownerID {
			result = append(result, cloneRestoreResult(s.results[i]))
		}
	}
	return result, nil
}

// CreateSchedule inserts a schedule.
func (s *MemoryStore) CreateSchedule(_ context.Context, sched *Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.schedules[sched.ID]; exists {
		return &IOFailure{Op: "create schedule", Err: errDuplicateID(sched.ID)}
	}
	s.schedules[sched.ID] = cloneSchedule(sched)
	return nil
}

// UpdateSchedule replaces a schedule.
func (s *MemoryStore) UpdateSchedule(_ context.Context, sched *Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.schedules[sched.ID]; !ok {
		return NewNotFound("schedule", sched.ID)
	}
	s.schedules[sched.ID] = cloneSchedule(sched)
	return nil
}

// GetSchedule returns a copy of the schedule.
func (s *MemoryStore) GetSchedule(_ context.Context, id string) (*Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sched, ok := s.schedules[id]
	if !ok {
		return nil, NewNotFound("schedule", id)
	}
	return cloneSchedule(sched), nil
}

// ListSchedules returns all schedules ordered by creation time.
func (s *MemoryStore) ListSchedules(_ context.Context) ([]*Schedule, error) {
	s.mu.RLock()
	result := make([]*Schedule, 0, len(s.schedules))
	for _, sched := range s.schedules {
		result = append(result, cloneSchedule(sched))
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// DeleteSchedule removes a schedule.
func (s *MemoryStore) DeleteSchedule(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.schedules[id]; !ok {
		return NewNotFound("schedule", id)
	}
	delete(s.schedules, id)
	return nil
}

// sortBackups orders by CreatedAt with ID as tie-breaker.
func sortBackups(list []*Backup, asc bool) {
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.CreatedAt.Equal(b.CreatedAt) {
			if asc {
				return a.ID < b.ID
			}
			return a.ID > b.ID
		}
		if asc {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}

type errDuplicateID string

func (e errDuplicateID) Error() string {
	return "duplicate id: " + string(e)
}
