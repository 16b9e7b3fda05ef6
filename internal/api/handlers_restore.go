// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/tenantvault/internal/backup"
	"github.com/tomtom215/tenantvault/internal/restore"
)

// RestoreRequest is the body of the restore endpoints.
type RestoreRequest struct {
	RestorePointID  string `json:"restore_point_id"`
	VerifyIntegrity *bool  `json:"verify_integrity,omitempty"`
	RestoreDatabase bool   `json:"restore_database"`
	RestoreFiles    bool   `json:"restore_files"`
	// TargetPath is relative to the tenant's directory under the configured
	// restore root.
	TargetPath      string `json:"target_path,omitempty" validate:"omitempty,max=1024"`
}

// PointInTimeRequest is the body of POST /api/v1/restores/point-in-time.
type PointInTimeRequest struct {
	RestoreRequest
	Timestamp time.Time `json:"timestamp"`
	DryRun    bool      `json:"dry_run"`
}

func (req RestoreRequest) options(r *http.Request, dryRun bool) restore.Options {
	verify := true
	if req.VerifyIntegrity != nil {
		verify = *req.VerifyIntegrity
	}
	return restore.Options{
		DryRun:          dryRun,
		VerifyIntegrity: verify,
		RestoreDatabase: req.RestoreDatabase,
		RestoreFiles:    req.RestoreFiles,
		TargetPath:      req.TargetPath,
		PerformedBy:     performedBy(r),
	}
}

func decodeRestoreRequest(w http.ResponseWriter, r *http.Request) (RestoreRequest, bool) {
	var req RestoreRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondDomainError(w, r, err)
		return req, false
	}
	if !validateRequest(w, r, &req) {
		return req, false
	}
	if req.RestorePointID == "" {
		respondDomainError(w, r, backup.NewValidation("restore_point_id", "restore_point_id is required"))
		return req, false
	}
	return req, true
}

// restoreStatus is 200 when every selected target succeeded and 207 when
// some did not; the per-target outcomes are in the body either way.
func restoreStatus(result *backup.RestoreResult) int {
	if result.Success {
		return http.StatusOK
	}
	return http.StatusMultiStatus
}

// HandleStartRestore applies a restore point.
// POST /api/v1/restores
func (h *Handler) HandleStartRestore(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRestoreRequest(w, r)
	if !ok {
		return
	}
	result, err := h.restores.RestoreFromPoint(r.Context(), ownerID(r), req.RestorePointID, req.options(r, false))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondSuccess(w, r, restoreStatus(result), result)
}

// HandleDryRunRestore simulates a restore without writing to any target.
// POST /api/v1/restores/dry-run
func (h *Handler) HandleDryRunRestore(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRestoreRequest(w, r)
	if !ok {
		return
	}
	result, err := h.restores.DryRunRestore(r.Context(), ownerID(r), req.RestorePointID, req.options(r, true))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondSuccess(w, r, restoreStatus(result), result)
}

// HandlePointInTimeRestore restores the newest point at or before timestamp.
// POST /api/v1/restores/point-in-time
func (h *Handler) HandlePointInTimeRestore(w http.ResponseWriter, r *http.Request) {
	var req PointInTimeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondDomainError(w, r, err)
		return
	}
	if !validateRequest(w, r, &req) {
		return
	}
	if req.Timestamp.IsZero() {
		respondDomainError(w, r, backup.NewValidation("timestamp", "timestamp is required"))
		return
	}

	result, err := h.restores.PointInTimeRestore(r.Context(), ownerID(r), req.Timestamp, req.options(r, req.DryRun))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondSuccess(w, r, restoreStatus(result), result)
}

// HandleTestRestore checks that a point could be restored, without writing.
// POST /api/v1/restore-points/{pointID}/test
func (h *Handler) HandleTestRestore(w http.ResponseWriter, r *http.Request) {
	result, err := h.restores.TestRestore(r.Context(), ownerID(r), chi.URLParam(r, "pointID"), performedBy(r))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, result)
}

// HandleListRestorePoints lists the caller's restore points, newest first.
// GET /api/v1/restore-points
func (h *Handler) HandleListRestorePoints(w http.ResponseWriter, r *http.Request) {
	points, err := h.restores.ListRestorePoints(r.Context(), ownerID(r))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, points)
}

// HandleGetRestorePoint returns one restore point.
// GET /api/v1/restore-points/{pointID}
func (h *Handler) HandleGetRestorePoint(w http.ResponseWriter, r *http.Request) {
	point, err := h.restores.GetRestorePoint(r.Context(), ownerID(r), chi.URLParam(r, "pointID"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, point)
}

// HandleListRestores lists past restore results.
// GET /api/v1/restores
func (h *Handler) HandleListRestores(w http.ResponseWriter, r *http.Request) {
	results, err := h.restores.ListRestoreResults(r.Context(), ownerID(r))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, results)
}

// HandleRestoreStats aggregates the caller's restore attempts.
// GET /api/v1/restores/stats
func (h *Handler) HandleRestoreStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.restores.GetRestoreStatistics(r.Context(), ownerID(r))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, stats)
}
