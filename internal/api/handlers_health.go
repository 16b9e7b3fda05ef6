// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/tomtom215/tenantvault/internal/models"
)

const healthCheckTimeout = 3 * time.Second

// HealthLive reports that the process is serving.
// GET /api/v1/health/live
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, http.StatusOK, &models.HealthStatus{
		Status:     "ok",
		Version:    h.cfg.Version,
		Uptime:     time.Since(h.startTime).Seconds(),
		Components: map[string]string{},
	})
}

// HealthReady runs every registered dependency check. Any failure answers 503.
// GET /api/v1/health/ready
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := &models.HealthStatus{
		Status:     "ok",
		Version:    h.cfg.Version,
		Uptime:     time.Since(h.startTime).Seconds(),
		Components: make(map[string]string, len(names)),
	}
	code := http.StatusOK
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			status.Components[name] = "unhealthy: " + sanitizeLogValue(err.Error())
			status.Status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		status.Components[name] = "ok"
	}
	respondSuccess(w, r, code, status)
}
