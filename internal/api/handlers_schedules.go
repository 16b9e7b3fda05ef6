// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/tenantvault/internal/backup"
	"github.com/tomtom215/tenantvault/internal/scheduler"
)

// Schedules created through the API are always scoped to the caller's tenant.
// Fleet-wide schedules (empty owner) are managed by configuration bootstrap
// and are not visible here.

// ScheduleRequest is the body of POST /api/v1/schedules.
type ScheduleRequest struct {
	Name       string                 `json:"name"`
	Frequency  backup.Frequency       `json:"frequency"`
	TimeOfDay  string                 `json:"time_of_day"`
	BackupType backup.SnapshotKind    `json:"backup_type"`
	IsEnabled  *bool                  `json:"is_enabled,omitempty"`
	Options    backup.ScheduleOptions `json:"options"`
}

// HandleCreateSchedule creates a schedule for the caller's tenant.
// POST /api/v1/schedules
func (h *Handler) HandleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req ScheduleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondDomainError(w, r, err)
		return
	}

	sched, err := h.schedules.CreateSchedule(r.Context(), scheduler.ScheduleInput{
		Name:       req.Name,
		OwnerID:    ownerID(r),
		Frequency:  req.Frequency,
		TimeOfDay:  req.TimeOfDay,
		BackupType: req.BackupType,
		IsEnabled:  req.IsEnabled,
		Options:    req.Options,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusCreated, sched)
}

// HandleListSchedules lists the caller's schedules.
// GET /api/v1/schedules
func (h *Handler) HandleListSchedules(w http.ResponseWriter, r *http.Request) {
	all, err := h.schedules.ListSchedules(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	owner := ownerID(r)
	own := make([]*backup.Schedule, 0, len(all))
	for _, s := range all {
		if s.OwnerID == owner {
			own = append(own, s)
		}
	}
	respondSuccess(w, r, http.StatusOK, own)
}

// HandleGetSchedule returns one schedule.
// GET /api/v1/schedules/{scheduleID}
func (h *Handler) HandleGetSchedule(w http.ResponseWriter, r *http.Request) {
	sched, err := h.ownedSchedule(r.Context(), ownerID(r), chi.URLParam(r, "scheduleID"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, sched)
}

// HandleUpdateSchedule applies a partial update.
// PATCH /api/v1/schedules/{scheduleID}
func (h *Handler) HandleUpdateSchedule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "scheduleID")
	if _, err := h.ownedSchedule(r.Context(), ownerID(r), id); err != nil {
		respondDomainError(w, r, err)
		return
	}

	var upd scheduler.ScheduleUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		respondDomainError(w, r, err)
		return
	}

	sched, err := h.schedules.UpdateSchedule(r.Context(), id, upd)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, sched)
}

// HandleDeleteSchedule removes a schedule and its trigger.
// DELETE /api/v1/schedules/{scheduleID}
func (h *Handler) HandleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "scheduleID")
	if _, err := h.ownedSchedule(r.Context(), ownerID(r), id); err != nil {
		respondDomainError(w, r, err)
		return
	}
	if err := h.schedules.DeleteSchedule(r.Context(), id); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, map[string]string{"deleted": id})
}

// HandleRunSchedule executes a schedule immediately, outside its trigger.
// POST /api/v1/schedules/{scheduleID}/run
func (h *Handler) HandleRunSchedule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "scheduleID")
	if _, err := h.ownedSchedule(r.Context(), ownerID(r), id); err != nil {
		respondDomainError(w, r, err)
		return
	}
	if err := h.schedules.ExecuteScheduledBackup(r.Context(), id); err != nil {
		respondDomainError(w, r, err)
		return
	}

	sched, err := h.schedules.GetSchedule(r.Context(), id)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, sched)
}

// ownedSchedule loads a schedule, reporting another tenant's as not found.
func (h *Handler) ownedSchedule(ctx context.Context, owner, id string) (*backup.Schedule, error) {
	sched, err := h.schedules.GetSchedule(ctx, id)
	if err != nil {
		return nil, err
	}
	if sched.OwnerID != owner {
		return nil, backup.NewNotFound("schedule", id)
	}
	return sched, nil
}
