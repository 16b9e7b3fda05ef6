// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

package events

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/tomtom215/tenantvault/internal/backup"
)

// SchemaVersion is bumped on incompatible payload changes.
const SchemaVersion = 1

// HistoryEvent is the wire form of one ledger entry.
type HistoryEvent struct {
	SchemaVersion int                    `json:"schema_version"`
	EventID       string                 `json:"event_id"`
	Type          string                 `json:"type"`
	BackupID      string                 `json:"backup_id"`
	OwnerID       string                 `json:"owner_id"`
	Action        string                 `json:"action"`
	Status        string                 `json:"status"`
	PerformedBy   string                 `json:"performed_by,omitempty"`
	Details       map[string]interface{} `json:"details,omitempty"`
	Error         string                 `json:"error,omitempty"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
	Timestamp     time.Time              `json:"timestamp"`
}

// NewHistoryEvent converts a ledger entry.
func NewHistoryEvent(entry *backup.HistoryEntry, correlationID string) *HistoryEvent {
	return &HistoryEvent{
		SchemaVersion: SchemaVersion,
		EventID:       entry.ID,
		Type:          fmt.Sprintf("backup.%s.%s", entry.Action, entry.Status),
		BackupID:      entry.BackupID,
		OwnerID:       entry.OwnerID,
		Action:        string(entry.Action),
		Status:        string(entry.Status),
		PerformedBy:   entry.PerformedBy,
		Details:       entry.Details,
		Error:         entry.Error,
		CorrelationID: correlationID,
		Timestamp:     entry.Timestamp.UTC(),
	}
}

// Encode serializes the event.
func (e *HistoryEvent) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeHistoryEvent parses a payload produced by Encode.
func DecodeHistoryEvent(data []byte) (*HistoryEvent, error) {
	var e HistoryEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode history event: %w", err)
	}
	if e.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("unsupported history event schema version %d", e.SchemaVersion)
	}
	return &e, nil
}
