// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/tenantvault/internal/backup"
	"github.com/tomtom215/tenantvault/internal/logging"
	"github.com/tomtom215/tenantvault/internal/models"
)

// CreateBackupRequest is the body of POST /api/v1/backups.
type CreateBackupRequest struct {
	Kind          backup.SnapshotKind `json:"kind" validate:"omitempty,oneof=FULL INCREMENTAL"`
	ExpiresInDays int                 `json:"expires_in_days" validate:"omitempty,min=1,max=365"`
	Compress      *bool               `json:"compress,omitempty"`
	Encrypt       bool                `json:"encrypt"`
}

// CleanupRequest is the body of POST /api/v1/backups/cleanup.
type CleanupRequest struct {
	KeepCount int `json:"keep_count" validate:"omitempty,min=1,max=1000"`
}

// CleanupResponse reports a keep-count cleanup.
type CleanupResponse struct {
	Deleted   int `json:"deleted"`
	KeepCount int `json:"keep_count"`
}

// HandleCreateBackup creates a manual backup of the caller's data.
// POST /api/v1/backups
func (h *Handler) HandleCreateBackup(w http.ResponseWriter, r *http.Request) {
	var req CreateBackupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondDomainError(w, r, err)
		return
	}
	if !validateRequest(w, r, &req) {
		return
	}

	compress := true
	if req.Compress != nil {
		compress = *req.Compress
	}

	b, err := h.backups.CreateBackup(r.Context(), ownerID(r), backup.CreateOptions{
		Type:          backup.TypeManual,
		Kind:          req.Kind,
		ExpiresInDays: req.ExpiresInDays,
		Compress:      compress,
		Encrypt:       req.Encrypt,
		PerformedBy:   performedBy(r),
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("backup_id", b.ID).
		Str("kind", string(b.SnapshotKind)).
		Int64("size_bytes", b.SizeBytes).
		Msg("Backup created via API")
	respondSuccess(w, r, http.StatusCreated, b)
}

// HandleListBackups lists the caller's backups, newest first.
// GET /api/v1/backups?type=manual&limit=50&offset=0&sort=asc
func (h *Handler) HandleListBackups(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := h.pageParams(r)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	opts := backup.ListOptions{
		OwnerID: ownerID(r),
		Limit:   limit + 1,
		Offset:  offset,
		SortAsc: r.URL.Query().Get("sort") == "asc",
	}
	if t := r.URL.Query().Get("type"); t != "" {
		bt := backup.BackupType(t)
		opts.Type = &bt
	}

	list, err := h.backups.ListBackups(r.Context(), opts)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	page := models.NewPaginationInfo(limit, offset, len(list))
	if len(list) > limit {
		list = list[:limit]
	}
	respondPage(w, r, list, page)
}

// HandleGetBackup returns a backup with its history.
// GET /api/v1/backups/{backupID}
func (h *Handler) HandleGetBackup(w http.ResponseWriter, r *http.Request) {
	details, err := h.backups.GetBackupDetails(r.Context(), ownerID(r), chi.URLParam(r, "backupID"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, details)
}

// HandleDeleteBackup deletes a backup, its object and its restore points.
// DELETE /api/v1/backups/{backupID}
func (h *Handler) HandleDeleteBackup(w http.ResponseWriter, r *http.Request) {
	backupID := chi.URLParam(r, "backupID")
	if err := h.backups.DeleteBackup(r.Context(), ownerID(r), backupID, performedBy(r)); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, map[string]string{"deleted": backupID})
}

// HandleVerifyBackup re-hashes a backup's stored object.
// POST /api/v1/backups/{backupID}/verify
func (h *Handler) HandleVerifyBackup(w http.ResponseWriter, r *http.Request) {
	result, err := h.backups.VerifyBackup(r.Context(), ownerID(r), chi.URLParam(r, "backupID"), performedBy(r))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, result)
}

// HandleBackupStats aggregates the caller's backups.
// GET /api/v1/backups/stats
func (h *Handler) HandleBackupStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.backups.GetBackupStatistics(r.Context(), ownerID(r))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, stats)
}

// HandleCleanupBackups keeps the newest keep_count backups and deletes the rest.
// POST /api/v1/backups/cleanup
func (h *Handler) HandleCleanupBackups(w http.ResponseWriter, r *http.Request) {
	var req CleanupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondDomainError(w, r, err)
		return
	}
	if !validateRequest(w, r, &req) {
		return
	}
	keep := req.KeepCount
	if keep == 0 {
		keep = h.cfg.DefaultKeep
	}

	deleted, err := h.retention.CleanupOldBackups(r.Context(), ownerID(r), keep)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, CleanupResponse{Deleted: deleted, KeepCount: keep})
}
