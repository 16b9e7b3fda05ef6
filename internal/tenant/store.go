// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

/*
store.go - Tenant Data Store

DuckDB tables holding tenants and their business records, and the three
collaborators the backup core consumes:

  - Directory (Exists, List)       -> backup.TenantDirectory
  - ExportSnapshot                 -> backup.DataExporter
  - PlanImport, Import             -> restore.DatabaseImporter

Snapshots are JSON documents:

	{"owner_id": "...", "kind": "FULL", "since": null, "exported_at": "...", "records": [...]}

An incremental export contains the records whose updated_at is after Since.
Import takes a chain of snapshots, oldest first, and merges them by record
id so a later snapshot wins. The merged records are upserted by
(owner_id, id) in one transaction; records absent from every snapshot are
left untouched.
*/

//nolint:staticcheck // File documentation, not package doc
package tenant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/tomtom215/tenantvault/internal/backup"
	"github.com/tomtom215/tenantvault/internal/logging"
	"github.com/tomtom215/tenantvault/internal/restore"
)

// SnapshotFormat is the base format of exported snapshots.
const SnapshotFormat = "json"

// Record is one tenant-owned business record.
type Record struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Tenant is a known owner.
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// snapshotDocument is the exported JSON layout.
type snapshotDocument struct {
	OwnerID    string              `json:"owner_id"`
	Kind       backup.SnapshotKind `json:"kind"`
	Since      *time.Time          `json:"since"`
	ExportedAt time.Time           `json:"exported_at"`
	Records    []Record            `json:"records"`
}

// Store reads and writes tenant data in DuckDB.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore wraps an open DuckDB handle. Call CreateTables before use.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

const tenantSchema = `
	CREATE TABLE IF NOT EXISTS tenants (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tenant_records (
		owner_id TEXT NOT NULL,
		id TEXT NOT NULL,
		kind TEXT NOT NULL,
		payload TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (owner_id, id)
	);

	CREATE INDEX IF NOT EXISTS idx_tenant_records_updated ON tenant_records(owner_id, updated_at)
`

// CreateTables creates the tenant tables if they don't exist.
func (s *Store) CreateTables(ctx context.Context) error {
	for _, stmt := range strings.Split(tenantSchema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute tenant schema statement: %w", err)
		}
	}
	return nil
}

// CreateTenant registers an owner. Registering an existing id is a no-op.
func (s *Store) CreateTenant(ctx context.Context, id, name string) error {
	if id == "" {
		return backup.NewValidation("owner_id", "owner id is required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tenants (id, name, created_at) VALUES (?, ?, ?) ON CONFLICT (id) DO NOTHING`,
		id, name, s.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to create tenant %s: %w", id, err)
	}
	return nil
}

// Exists implements backup.TenantDirectory.
func (s *Store) Exists(ctx context.Context, ownerID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM tenants WHERE id = ?`, ownerID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up tenant %s: %w", ownerID, err)
	}
	return true, nil
}

// List implements backup.TenantDirectory. Owners are ordered by id.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM tenants ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// PutRecord inserts or replaces one record.
func (s *Store) PutRecord(ctx context.Context, ownerID string, r Record) error {
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = s.now().UTC()
	}
	return upsertRecord(ctx, s.db, ownerID, r)
}

// ListRecords returns the owner's records ordered by id.
func (s *Store) ListRecords(ctx context.Context, ownerID string) ([]Record, error) {
	return s.queryRecords(ctx, ownerID, nil)
}

// ExportSnapshot implements backup.DataExporter.
func (s *Store) ExportSnapshot(ctx context.Context, ownerID string, filter backup.ExportFilter) (*backup.Snapshot, error) {
	var since *time.Time
	if filter.Kind == backup.KindIncremental {
		since = filter.Since
	}

	records, err := s.queryRecords(ctx, ownerID, since)
	if err != nil {
		return nil, err
	}

	kind := filter.Kind
	if kind == "" {
		kind = backup.KindFull
	}
	doc := snapshotDocument{
		OwnerID:    ownerID,
		Kind:       kind,
		Since:      since,
		ExportedAt: s.now().UTC(),
		Records:    records,
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	logging.Ctx(ctx).Debug().
		Str("owner_id", ownerID).
		Str("kind", string(kind)).
		Int("records", len(records)).
		Msg("Tenant snapshot exported")
	return &backup.Snapshot{Data: data, RecordCount: int64(len(records)), Format: SnapshotFormat}, nil
}

// PlanImport implements restore.DatabaseImporter.
func (s *Store) PlanImport(ctx context.Context, ownerID string, layers []restore.Layer) (*restore.ImportPlan, error) {
	doc, err := mergeLayers(ownerID, layers)
	if err != nil {
		return nil, err
	}
	return s.plan(ctx, s.db, ownerID, doc)
}

// Import implements restore.DatabaseImporter. All records are written in one
// transaction.
func (s *Store) Import(ctx context.Context, ownerID string, layers []restore.Layer) (*restore.ImportPlan, error) {
	doc, err := mergeLayers(ownerID, layers)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	plan, err := s.plan(ctx, tx, ownerID, doc)
	if err != nil {
		return nil, err
	}
	for _, r := range doc.Records {
		if err := upsertRecord(ctx, tx, ownerID, r); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit import: %w", err)
	}

	logging.Ctx(ctx).Info().
		Str("owner_id", ownerID).
		Int("layers", len(layers)).
		Int64("records", plan.Records).
		Int64("overwritten", plan.Overwrites).
		Msg("Tenant snapshot imported")
	return plan, nil
}

// mergeLayers decodes every layer and keeps the newest version of each
// record, ordered by id.
func mergeLayers(ownerID string, layers []restore.Layer) (*snapshotDocument, error) {
	if len(layers) == 0 {
		return nil, backup.NewValidation("layers", "at least one snapshot is required")
	}

	merged := &snapshotDocument{OwnerID: ownerID}
	byID := make(map[string]int)
	for _, layer := range layers {
		doc, err := decodeSnapshot(ownerID, layer.Data, layer.Format)
		if err != nil {
			return nil, err
		}
		for _, r := range doc.Records {
			if i, ok := byID[r.ID]; ok {
				merged.Records[i] = r
				continue
			}
			byID[r.ID] = len(merged.Records)
			merged.Records = append(merged.Records, r)
		}
		merged.Kind = doc.Kind
		merged.ExportedAt = doc.ExportedAt
	}

	sort.Slice(merged.Records, func(i, j int) bool {
		return merged.Records[i].ID < merged.Records[j].ID
	})
	return merged, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (s *Store) plan(ctx context.Context, q querier, ownerID string, doc *snapshotDocument) (*restore.ImportPlan, error) {
	rows, err := q.QueryContext(ctx, `SELECT id FROM tenant_records WHERE owner_id = ?`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to read existing records: %w", err)
	}
	defer rows.Close()

	existing := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan record id: %w", err)
		}
		existing[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	plan := &restore.ImportPlan{Records: int64(len(doc.Records))}
	for _, r := range doc.Records {
		if _, ok := existing[r.ID]; ok {
			plan.Overwrites++
		}
	}
	return plan, nil
}

func (s *Store) queryRecords(ctx context.Context, ownerID string, since *time.Time) ([]Record, error) {
	query := `SELECT id, kind, payload, updated_at FROM tenant_records WHERE owner_id = ?`
	args := []interface{}{ownerID}
	if since != nil {
		query += ` AND updated_at > ?`
		args = append(args, since.UTC())
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		var r Record
		var payload string
		if err := rows.Scan(&r.ID, &r.Kind, &payload, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		r.Payload = json.RawMessage(payload)
		r.UpdatedAt = r.UpdatedAt.UTC()
		records = append(records, r)
	}
	return records, rows.Err()
}

func upsertRecord(ctx context.Context, q querier, ownerID string, r Record) error {
	if r.ID == "" {
		return backup.NewValidation("id", "record id is required")
	}
	payload := string(r.Payload)
	if payload == "" {
		payload = "null"
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO tenant_records (owner_id, id, kind, payload, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (owner_id, id) DO UPDATE SET
			kind = excluded.kind,
			payload = excluded.payload,
			updated_at = excluded.updated_at`,
		ownerID, r.ID, r.Kind, payload, r.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert record %s: %w", r.ID, err)
	}
	return nil
}

func decodeSnapshot(ownerID string, data []byte, format string) (*snapshotDocument, error) {
	if format != "" && format != SnapshotFormat {
		return nil, backup.NewValidation("format", fmt.Sprintf("unsupported snapshot format %q", format))
	}
	var doc snapshotDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if doc.OwnerID != "" && doc.OwnerID != ownerID {
		return nil, backup.NewValidation("owner_id", fmt.Sprintf("snapshot belongs to %s", doc.OwnerID))
	}
	return &doc, nil
}
