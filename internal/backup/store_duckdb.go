// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

/*
store_duckdb.go - DuckDB Metadata Store

Persists backups, the history ledger, restore points, restore attempts and
schedules in DuckDB.

Tables:
  - backups:          one row per committed snapshot
  - backup_history:   append-only ledger (no UPDATE statements are issued)
  - restore_points:   one row per backup, inserted in the same transaction
  - restore_results:  one row per restore attempt
  - schedules:        declarative schedules with structured option columns

Schedule options are stored as typed columns (retention_days, compress,
encrypt) rather than a serialized blob, so the database rejects malformed
values.
*/

//nolint:staticcheck // File documentation, not package doc
package backup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/tomtom215/tenantvault/internal/logging"
)

// DuckDBStore implements Store using DuckDB.
type DuckDBStore struct {
	db *sql.DB
}

// NewDuckDBStore wraps an open DuckDB handle. Call CreateTables before use.
func NewDuckDBStore(db *sql.DB) *DuckDBStore {
	return &DuckDBStore{db: db}
}

const duckDBSchema = `
	CREATE TABLE IF NOT EXISTS backups (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		filename TEXT NOT NULL,
		location TEXT NOT NULL,
		size_bytes BIGINT NOT NULL,
		format TEXT NOT NULL,
		backup_type TEXT NOT NULL,
		snapshot_kind TEXT NOT NULL,
		record_count BIGINT NOT NULL DEFAULT 0,
		data_hash TEXT,
		created_at TIMESTAMP NOT NULL,
		expires_at TIMESTAMP NOT NULL,
		is_restored BOOLEAN NOT NULL DEFAULT false,
		restored_at TIMESTAMP,
		parent_id TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_backups_owner_created ON backups(owner_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_backups_expires ON backups(expires_at);
	CREATE INDEX IF NOT EXISTS idx_backups_parent ON backups(parent_id);

	CREATE TABLE IF NOT EXISTS backup_history (
		id TEXT PRIMARY KEY,
		backup_id TEXT NOT NULL,
		owner_id TEXT NOT NULL,
		action TEXT NOT NULL,
		status TEXT NOT NULL,
		performed_by TEXT,
		details TEXT,
		error TEXT,
		timestamp TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_history_backup ON backup_history(backup_id);
	CREATE INDEX IF NOT EXISTS idx_history_owner ON backup_history(owner_id, timestamp);

	CREATE TABLE IF NOT EXISTS restore_points (
		id TEXT PRIMARY KEY,
		backup_id TEXT NOT NULL,
		owner_id TEXT NOT NULL,
		timestamp TIMESTAMP NOT NULL,
		description TEXT NOT NULL,
		status TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_points_owner_ts ON restore_points(owner_id, timestamp);

	CREATE TABLE IF NOT EXISTS restore_results (
		id TEXT PRIMARY KEY,
		restore_point_id TEXT NOT NULL,
		backup_id TEXT NOT NULL,
		owner_id TEXT NOT NULL,
		dry_run BOOLEAN NOT NULL,
		success BOOLEAN NOT NULL,
		integrity_checked BOOLEAN NOT NULL,
		integrity_valid BOOLEAN NOT NULL,
		targets TEXT NOT NULL,
		started_at TIMESTAMP NOT NULL,
		completed_at TIMESTAMP NOT NULL,
		error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_results_owner ON restore_results(owner_id, started_at);

	CREATE TABLE IF NOT EXISTS schedules (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		owner_id TEXT NOT NULL DEFAULT '',
		frequency TEXT NOT NULL,
		time_of_day TEXT NOT NULL,
		is_enabled BOOLEAN NOT NULL,
		backup_type TEXT NOT NULL,
		retention_days INTEGER NOT NULL CHECK (retention_days BETWEEN 1 AND 365),
		compress BOOLEAN NOT NULL,
		encrypt BOOLEAN NOT NULL,
		last_run TIMESTAMP,
		next_run TIMESTAMP,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)
`

// CreateTables creates the metadata tables if they don't exist.
func (s *DuckDBStore) CreateTables(ctx context.Context) error {
	for _, stmt := range strings.Split(duckDBSchema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	logging.Debug().Msg("Backup metadata tables created/verified")
	return nil
}

const backupColumns = `id, owner_id, filename, location, size_bytes, format, backup_type,
	snapshot_kind, record_count, data_hash, created_at, expires_at, is_restored, restored_at, parent_id`

// CommitBackup inserts the backup and restore point in one transaction.
func (s *DuckDBStore) CommitBackup(ctx context.Context, b *Backup, point *RestorePoint) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &IOFailure{Op: "begin commit transaction", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `INSERT INTO backups (`+backupColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.OwnerID, b.Filename, b.Location, b.SizeBytes, b.Format, string(b.BackupType),
		string(b.SnapshotKind), b.RecordCount, nullString(b.DataHash), b.CreatedAt.UTC(),
		b.ExpiresAt.UTC(), b.IsRestored, nullTime(b.RestoredAt), nullParent(b.ParentID))
	if err != nil {
		return &IOFailure{Op: "insert backup", Err: err}
	}

	if point != nil {
		_, err = tx.ExecContext(ctx, `INSERT INTO restore_points (id, backup_id, owner_id, timestamp, description, status)
			VALUES (?, ?, ?, ?, ?, ?)`,
			point.ID, point.BackupID, point.OwnerID, point.Timestamp.UTC(), point.Description, string(point.Status))
		if err != nil {
			return &IOFailure{Op: "insert restore point", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &IOFailure{Op: "commit backup", Err: err}
	}
	return nil
}

// GetBackup returns the backup or a *NotFoundError.
func (s *DuckDBStore) GetBackup(ctx context.Context, id string) (*Backup, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+backupColumns+` FROM backups WHERE id = ?`, id)
	b, err := scanBackup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NewNotFound("backup", id)
	}
	if err != nil {
		return nil, &IOFailure{Op: "get backup", Err: err}
	}
	return b, nil
}

// ListBackups filters, sorts and paginates in SQL.
func (s *DuckDBStore) ListBackups(ctx context.Context, opts ListOptions) ([]*Backup, error) {
	var conditions []string
	var args []interface{}

	if opts.OwnerID != "" {
		conditions = append(conditions, "owner_id = ?")
		args = append(args, opts.OwnerID)
	}
	if opts.Type != nil {
		conditions = append(conditions, "backup_type = ?")
		args = append(args, string(*opts.Type))
	}

	query := `SELECT ` + backupColumns + ` FROM backups`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	if opts.SortAsc {
		query += " ORDER BY created_at ASC, id ASC"
	} else {
		query += " ORDER BY created_at DESC, id DESC"
	}
	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", opts.Offset)
	}

	return s.queryBackups(ctx, query, args...)
}

// ListExpiredBackups returns backups with expires_at <= cutoff.
func (s *DuckDBStore) ListExpiredBackups(ctx context.Context, cutoff time.Time) ([]*Backup, error) {
	return s.queryBackups(ctx, `SELECT `+backupColumns+` FROM backups
		WHERE expires_at <= ? ORDER BY expires_at ASC`, cutoff.UTC())
}

// LatestBackup returns the owner's newest backup or nil.
func (s *DuckDBStore) LatestBackup(ctx context.Context, ownerID string) (*Backup, error) {
	list, err := s.ListBackups(ctx, ListOptions{OwnerID: ownerID, Limit: 1})
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return list[0], nil
}

func (s *DuckDBStore) queryBackups(ctx context.Context, query string, args ...interface{}) ([]*Backup, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &IOFailure{Op: "query backups", Err: err}
	}
	defer rows.Close()

	result := make([]*Backup, 0)
	for rows.Next() {
		b, err := scanBackup(rows)
		if err != nil {
			return nil, &IOFailure{Op: "scan backup", Err: err}
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, &IOFailure{Op: "iterate backups", Err: err}
	}
	return result, nil
}

// MarkRestored sets is_restored and restored_at.
func (s *DuckDBStore) MarkRestored(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE backups SET is_restored = true, restored_at = ? WHERE id = ?`, at.UTC(), id)
	if err != nil {
		return &IOFailure{Op: "mark restored", Err: err}
	}
	return requireAffected(res, "backup", id)
}

// DeleteBackup removes the backup with its history and restore points.
func (s *DuckDBStore) DeleteBackup(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &IOFailure{Op: "begin delete transaction", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM backup_history WHERE backup_id = ?`, id); err != nil {
		return &IOFailure{Op: "delete history", Err: err}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM restore_points WHERE backup_id = ?`, id); err != nil {
		return &IOFailure{Op: "delete restore points", Err: err}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM backups WHERE id = ?`, id)
	if err != nil {
		return &IOFailure{Op: "delete backup", Err: err}
	}
	if err := requireAffected(res, "backup", id); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return &IOFailure{Op: "commit delete", Err: err}
	}
	return nil
}

// AppendHistory inserts a ledger entry.
func (s *DuckDBStore) AppendHistory(ctx context.Context, e *HistoryEntry) error {
	details, err := marshalDetails(e.Details)
	if err != nil {
		return fmt.Errorf("marshal history details: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO backup_history
		(id, backup_id, owner_id, action, status, performed_by, details, error, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.BackupID, e.OwnerID, string(e.Action), string(e.Status),
		e.PerformedBy, details, e.Error, e.Timestamp.UTC())
	if err != nil {
		return &IOFailure{Op: "append history", Err: err}
	}
	return nil
}

const historyColumns = `id, backup_id, owner_id, action, status, performed_by, details, error, timestamp`

// ListHistory returns a backup's entries oldest first.
func (s *DuckDBStore) ListHistory(ctx context.Context, backupID string) ([]*HistoryEntry, error) {
	return s.queryHistory(ctx, `SELECT `+historyColumns+` FROM backup_history
		WHERE backup_id = ? ORDER BY timestamp ASC, id ASC`, backupID)
}

// ListOwnerHistory returns an owner's entries newest first.
func (s *DuckDBStore) ListOwnerHistory(ctx context.Context, ownerID string, limit int) ([]*HistoryEntry, error) {
	query := `SELECT ` + historyColumns + ` FROM backup_history
		WHERE owner_id = ? ORDER BY timestamp DESC, id DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	return s.queryHistory(ctx, query, ownerID)
}

func (s *DuckDBStore) queryHistory(ctx context.Context, query string, args ...interface{}) ([]*HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &IOFailure{Op: "query history", Err: err}
	}
	defer rows.Close()

	var result []*HistoryEntry
	for rows.Next() {
		var (
			e                            HistoryEntry
			action, status               string
			performedBy, details, errMsg sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.BackupID, &e.OwnerID, &action, &status,
			&performedBy, &details, &errMsg, &e.Timestamp); err != nil {
			return nil, &IOFailure{Op: "scan history", Err: err}
		}
		e.Action = HistoryAction(action)
		e.Status = HistoryStatus(status)
		e.PerformedBy = performedBy.String
		e.Error = errMsg.String
		if details.Valid && details.String != "" {
			if err := json.Unmarshal([]byte(details.String), &e.Details); err != nil {
				logging.Warn().Err(err).Str("history_id", e.ID).Msg("Unreadable history details")
			}
		}
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, &IOFailure{Op: "iterate history", Err: err}
	}
	return result, nil
}

const pointColumns = `id, backup_id, owner_id, timestamp, description, status`

// GetRestorePoint returns the point or a *NotFoundError.
func (s *DuckDBStore) GetRestorePoint(ctx context.Context, id string) (*RestorePoint, error) {
	points, err := s.queryPoints(ctx, `SELECT `+pointColumns+` FROM restore_points WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, NewNotFound("restore point", id)
	}
	return points[0], nil
}

// ListRestorePoints returns the owner's points newest first.
func (s *DuckDBStore) ListRestorePoints(ctx context.Context, ownerID string) ([]*RestorePoint, error) {
	return s.queryPoints(ctx, `SELECT `+pointColumns+` FROM restore_points
		WHERE owner_id = ? ORDER BY timestamp DESC, id DESC`, ownerID)
}

// SetRestorePointStatus updates the status of every point of backupID.
func (s *DuckDBStore) SetRestorePointStatus(ctx context.Context, backupID string, status RestorePointStatus) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE restore_points SET status = ? WHERE backup_id = ?`, string(status), backupID); err != nil {
		return &IOFailure{Op: "set restore point status", Err: err}
	}
	return nil
}

// FindRestorePointAtOrBefore selects the greatest timestamp <= ts.
func (s *DuckDBStore) FindRestorePointAtOrBefore(ctx context.Context, ownerID string, ts time.Time) (*RestorePoint, error) {
	points, err := s.queryPoints(ctx, `SELECT `+pointColumns+` FROM restore_points
		WHERE owner_id = ? AND status = ? AND timestamp <= ?
		ORDER BY timestamp DESC, id DESC LIMIT 1`, ownerID, string(PointAvailable), ts.UTC())
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, NewNotFound("restore point", "at or before "+ts.UTC().Format(time.RFC3339))
	}
	return points[0], nil
}

func (s *DuckDBStore) queryPoints(ctx context.Context, query string, args ...interface{}) ([]*RestorePoint, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &IOFailure{Op: "query restore points", Err: err}
	}
	defer rows.Close()

	result := make([]*RestorePoint, 0)
	for rows.Next() {
		var p RestorePoint
		var status string
		if err := rows.Scan(&p.ID, &p.BackupID, &p.OwnerID, &p.Timestamp, &p.Description, &status); err != nil {
			return nil, &IOFailure{Op: "scan restore point", Err: err}
		}
		p.Status = RestorePointStatus(status)
		result = append(result, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, &IOFailure{Op: "iterate restore points", Err: err}
	}
	return result, nil
}

// SaveRestoreResult inserts one restore attempt.
func (s *DuckDBStore) SaveRestoreResult(ctx context.Context, r *RestoreResult) error {
	targets, err := json.Marshal(r.Targets)
	if err != nil {
		return fmt.Errorf("marshal restore targets: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO restore_results
		(id, restore_point_id, backup_id, owner_id, dry_run, success, integrity_checked,
		 integrity_valid, targets, started_at, completed_at, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.RestorePointID, r.BackupID, r.OwnerID, r.DryRun, r.Success, r.IntegrityChecked,
		r.IntegrityValid, string(targets), r.StartedAt.UTC(), r.CompletedAt.UTC(), r.Error)
	if err != nil {
		return &IOFailure{Op: "save restore result", Err: err}
	}
	return nil
}

// ListRestoreResults returns the owner's attempts newest first.
func (s *DuckDBStore) ListRestoreResults(ctx context.Context, ownerID string) ([]*RestoreResult, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, restore_point_id, backup_id, owner_id, dry_run,
		success, integrity_checked, integrity_valid, targets, started_at, completed_at, error
		FROM restore_results WHERE owner_id = ? ORDER BY started_at DESC, id DESC`, ownerID)
	if err != nil {
		return nil, &IOFailure{Op: "query restore results", Err: err}
	}
	defer rows.Close()

	result := make([]*RestoreResult, 0)
	for rows.Next() {
		var r RestoreResult
		var targets string
		var errMsg sql.NullString
		if err := rows.Scan(&r.ID, &r.RestorePointID, &r.BackupID, &r.OwnerID, &r.DryRun, &r.Success,
			&r.IntegrityChecked, &r.IntegrityValid, &targets, &r.StartedAt, &r.CompletedAt, &errMsg); err != nil {
			return nil, &IOFailure{Op: "scan restore result", Err: err}
		}
		r.Error = errMsg.String
		if err := json.Unmarshal([]byte(targets), &r.Targets); err != nil {
			return nil, fmt.Errorf("unmarshal restore targets: %w", err)
		}
		result = append(result, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, &IOFailure{Op: "iterate restore results", Err: err}
	}
	return result, nil
}

const scheduleColumns = `id, name, owner_id, frequency, time_of_day, is_enabled, backup_type,
	retention_days, compress, encrypt, last_run, next_run, created_at, updated_at`

// CreateSchedule inserts a schedule.
func (s *DuckDBStore) CreateSchedule(ctx context.Context, sched *Schedule) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO schedules (`+scheduleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sched.ID, sched.Name, sched.OwnerID, string(sched.Frequency), sched.TimeOfDay, sched.IsEnabled,
		string(sched.BackupType), sched.Options.RetentionDays, sched.Options.Compress, sched.Options.Encrypt,
		nullTime(sched.LastRun), nullTime(sched.NextRun), sched.CreatedAt.UTC(), sched.UpdatedAt.UTC())
	if err != nil {
		return &IOFailure{Op: "create schedule", Err: err}
	}
	return nil
}

// UpdateSchedule replaces every mutable column.
func (s *DuckDBStore) UpdateSchedule(ctx context.Context, sched *Schedule) error {
	res, err := s.db.ExecContext(ctx, `UPDATE schedules SET name = ?, owner_id = ?, frequency = ?,
		time_of_day = ?, is_enabled = ?, backup_type = ?, retention_days = ?, compress = ?, encrypt = ?,
		last_run = ?, next_run = ?, updated_at = ? WHERE id = ?`,
		sched.Name, sched.OwnerID, string(sched.Frequency), sched.TimeOfDay, sched.IsEnabled,
		string(sched.BackupType), sched.Options.RetentionDays, sched.Options.Compress, sched.Options.Encrypt,
		nullTime(sched.LastRun), nullTime(sched.NextRun), sched.UpdatedAt.UTC(), sched.ID)
	if err != nil {
		return &IOFailure{Op: "update schedule", Err: err}
	}
	return requireAffected(res, "schedule", sched.ID)
}

// GetSchedule returns the schedule or a *NotFoundError.
func (s *DuckDBStore) GetSchedule(ctx context.Context, id string) (*Schedule, error) {
	list, err := s.querySchedules(ctx, `SELECT `+scheduleColumns+` FROM schedules WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, NewNotFound("schedule", id)
	}
	return list[0], nil
}

// ListSchedules returns all schedules ordered by creation time.
func (s *DuckDBStore) ListSchedules(ctx context.Context) ([]*Schedule, error) {
	return s.querySchedules(ctx, `SELECT `+scheduleColumns+` FROM schedules ORDER BY created_at ASC, id ASC`)
}

// DeleteSchedule removes a schedule.
func (s *DuckDBStore) DeleteSchedule(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = ?`, id)
	if err != nil {
		return &IOFailure{Op: "delete schedule", Err: err}
	}
	return requireAffected(res, "schedule", id)
}

func (s *DuckDBStore) querySchedules(ctx context.Context, query string, args ...interface{}) ([]*Schedule, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &IOFailure{Op: "query schedules", Err: err}
	}
	defer rows.Close()

	result := make([]*Schedule, 0)
	for rows.Next() {
		var (
			sched            Schedule
			frequency, kind  string
			lastRun, nextRun sql.NullTime
		)
		if err := rows.Scan(&sched.ID, &sched.Name, &sched.OwnerID, &frequency, &sched.TimeOfDay,
			&sched.IsEnabled, &kind, &sched.Options.RetentionDays, &sched.Options.Compress,
			&sched.Options.Encrypt, &lastRun, &nextRun, &sched.CreatedAt, &sched.UpdatedAt); err != nil {
			return nil, &IOFailure{Op: "scan schedule", Err: err}
		}
		sched.Frequency = Frequency(frequency)
		sched.BackupType = SnapshotKind(kind)
		sched.LastRun = timePtr(lastRun)
		sched.NextRun = timePtr(nextRun)
		result = append(result, &sched)
	}
	if err := rows.Err(); err != nil {
		return nil, &IOFailure{Op: "iterate schedules", Err: err}
	}
	return result, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBackup(row rowScanner) (*Backup, error) {
	var (
		b                Backup
		backupType, kind string
		dataHash         sql.NullString
		restoredAt       sql.NullTime
		parentID         sql.NullString
	)
	if err := row.Scan(&b.ID, &b.OwnerID, &b.Filename, &b.Location, &b.SizeBytes, &b.Format,
		&backupType, &kind, &b.RecordCount, &dataHash, &b.CreatedAt, &b.ExpiresAt,
		&b.IsRestored, &restoredAt, &parentID); err != nil {
		return nil, err
	}
	b.ParentID = parentID.String
	b.BackupType = BackupType(backupType)
	b.SnapshotKind = SnapshotKind(kind)
	if dataHash.Valid {
		h := dataHash.String
		b.DataHash = &h
	}
	b.RestoredAt = timePtr(restoredAt)
	return &b, nil
}

func requireAffected(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return &IOFailure{Op: "rows affected", Err: err}
	}
	if n == 0 {
		return NewNotFound(resource, id)
	}
	return nil
}

func marshalDetails(details map[string]interface{}) (interface{}, error) {
	if len(details) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(details)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func nullString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func nullParent(id string) interface{} {
	if id == "" {
		return nil
	}
	return id
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
