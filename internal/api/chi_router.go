// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/tenantvault/internal/middleware"
)

// healthRateLimit is the per-IP budget of the health endpoints per window.
const healthRateLimit = 1000

// Router wires the handler into a chi route tree.
type Router struct {
	handler       *Handler
	tenantAuth    *middleware.TenantAuthenticator
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router.
func NewRouter(handler *Handler, tenantAuth *middleware.TenantAuthenticator, chiMw *ChiMiddleware) *Router {
	if chiMw == nil {
		chiMw = NewChiMiddleware(nil)
	}
	return &Router{handler: handler, tenantAuth: tenantAuth, chiMiddleware: chiMw}
}

// SetupChi builds the HTTP handler.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitByIP(healthRateLimit))
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.PrometheusMetrics)
		r.Use(router.tenantAuth.Middleware)
		r.Use(router.chiMiddleware.RateLimitByTenant())

		r.Route("/backups", func(r chi.Router) {
			r.Post("/", router.handler.HandleCreateBackup)
			r.Get("/", router.handler.HandleListBackups)
			r.Get("/stats", router.handler.HandleBackupStats)
			r.Post("/cleanup", router.handler.HandleCleanupBackups)
			r.Get("/{backupID}", router.handler.HandleGetBackup)
			r.Delete("/{backupID}", router.handler.HandleDeleteBackup)
			r.Post("/{backupID}/verify", router.handler.HandleVerifyBackup)
		})

		r.Route("/schedules", func(r chi.Router) {
			r.Post("/", router.handler.HandleCreateSchedule)
			r.Get("/", router.handler.HandleListSchedules)
			r.Get("/{scheduleID}", router.handler.HandleGetSchedule)
			r.Patch("/{scheduleID}", router.handler.HandleUpdateSchedule)
			r.Delete("/{scheduleID}", router.handler.HandleDeleteSchedule)
			r.Post("/{scheduleID}/run", router.handler.HandleRunSchedule)
		})

		r.Route("/restore-points", func(r chi.Router) {
			r.Get("/", router.handler.HandleListRestorePoints)
			r.Get("/{pointID}", router.handler.HandleGetRestorePoint)
			r.Post("/{pointID}/test", router.handler.HandleTestRestore)
		})

		r.Route("/restores", func(r chi.Router) {
			r.Post("/", router.handler.HandleStartRestore)
			r.Get("/", router.handler.HandleListRestores)
			r.Get("/stats", router.handler.HandleRestoreStats)
			r.Post("/dry-run", router.handler.HandleDryRunRestore)
			r.Post("/point-in-time", router.handler.HandlePointInTimeRestore)
		})

		r.Get("/events/ws", router.handler.HandleEventStream)
	})

	return r
}
