// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sony/gobreaker/v2"

	"github.com/tomtom215/tenantvault/internal/api"
	"github.com/tomtom215/tenantvault/internal/backup"
	"github.com/tomtom215/tenantvault/internal/blobstore"
	"github.com/tomtom215/tenantvault/internal/config"
	"github.com/tomtom215/tenantvault/internal/database"
	"github.com/tomtom215/tenantvault/internal/events"
	"github.com/tomtom215/tenantvault/internal/journal"
	"github.com/tomtom215/tenantvault/internal/logging"
	"github.com/tomtom215/tenantvault/internal/middleware"
	"github.com/tomtom215/tenantvault/internal/restore"
	"github.com/tomtom215/tenantvault/internal/scheduler"
	"github.com/tomtom215/tenantvault/internal/supervisor"
	"github.com/tomtom215/tenantvault/internal/supervisor/services"
	"github.com/tomtom215/tenantvault/internal/tenant"
	ws "github.com/tomtom215/tenantvault/internal/websocket"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

// app holds every long-lived component of the server.
type app struct {
	cfg *config.Config

	db        *database.DB
	journal   *journal.BadgerJournal
	blobs     blobstore.Store
	publisher *events.Publisher

	tenants   *tenant.Store
	manager   *backup.Manager
	scheduler *scheduler.SchedulerContext
	restorer  *restore.Coordinator
	hub       *ws.Hub

	handler http.Handler

	closers []func() error
}

// newApp opens storage and builds the component graph. On error everything
// opened so far is closed.
//
//nolint:gocyclo // sequential setup steps
func newApp(ctx context.Context, cfg *config.Config) (a *app, err error) {
	a = &app{cfg: cfg}
	defer func() {
		if err != nil {
			if closeErr := a.Close(); closeErr != nil {
				logging.Error().Err(closeErr).Msg("Error closing partially initialized components")
			}
			a = nil
		}
	}()

	a.db, err = database.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.closers = append(a.closers, a.db.Close)

	store := backup.NewDuckDBStore(a.db.Conn())
	if err = store.CreateTables(ctx); err != nil {
		return nil, fmt.Errorf("create backup tables: %w", err)
	}

	a.tenants = tenant.NewStore(a.db.Conn())
	if err = a.tenants.CreateTables(ctx); err != nil {
		return nil, fmt.Errorf("create tenant tables: %w", err)
	}
	for _, id := range cfg.Tenants.Bootstrap {
		if err = a.tenants.CreateTenant(ctx, id, id); err != nil {
			return nil, fmt.Errorf("register tenant %s: %w", id, err)
		}
	}

	a.blobs, err = blobstore.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	if c, ok := a.blobs.(io.Closer); ok {
		a.closers = append(a.closers, c.Close)
	}

	a.journal, err = journal.Open(cfg.Journal)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	a.closers = append(a.closers, a.journal.Close)

	sealer, err := backup.NewSealer(cfg.Encryption.Secret)
	if err != nil {
		return nil, fmt.Errorf("create sealer: %w", err)
	}

	var notifier backup.HistoryNotifier
	if cfg.Events.Enabled {
		a.publisher, err = events.NewPublisher(cfg.Events, nil)
		if err != nil {
			return nil, fmt.Errorf("create event publisher: %w", err)
		}
		a.closers = append(a.closers, a.publisher.Close)
		notifier = a.publisher
		a.hub = ws.NewHub(a.publisher)
	}

	a.manager, err = backup.NewManager(backup.ManagerDeps{
		Store:    store,
		Blobs:    a.blobs,
		Exporter: a.tenants,
		Tenants:  a.tenants,
		Journal:  a.journal,
		Sealer:   sealer,
		Notifier: notifier,
	}, cfg.Backup)
	if err != nil {
		return nil, fmt.Errorf("create backup manager: %w", err)
	}

	report, err := a.manager.Recover(ctx)
	if err != nil {
		return nil, fmt.Errorf("recover interrupted backups: %w", err)
	}
	if report.RolledForward+report.RolledBack+report.Failed > 0 {
		logging.Warn().
			Int("rolled_forward", report.RolledForward).
			Int("rolled_back", report.RolledBack).
			Int("failed", report.Failed).
			Msg("Recovered interrupted backups")
	}

	a.scheduler, err = scheduler.New(scheduler.Deps{
		Store:   store,
		Backups: a.manager,
		Tenants: a.tenants,
		Sweeper: a.manager.Retention(),
	}, cfg.Scheduler)
	if err != nil {
		return nil, fmt.Errorf("create schedule coordinator: %w", err)
	}

	a.restorer, err = restore.NewCoordinator(restore.Deps{
		Store:    store,
		Blobs:    a.blobs,
		Sealer:   sealer,
		Verifier: a.manager.Verifier(),
		Ledger:   a.manager.Ledger(),
		Guard:    a.manager.Guard(),
		Importer: a.tenants,
	}, cfg.Restore)
	if err != nil {
		return nil, fmt.Errorf("create restore coordinator: %w", err)
	}

	a.handler, err = a.buildRouter()
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (a *app) buildRouter() (http.Handler, error) {
	sec := a.cfg.Security
	auth, err := middleware.NewTenantAuthenticator(middleware.TenantConfig{
		Mode:   sec.AuthMode,
		Secret: sec.JWTSecret,
		Claim:  sec.TenantClaim,
		Header: sec.TenantHeader,
	})
	if err != nil {
		return nil, fmt.Errorf("create tenant authenticator: %w", err)
	}

	handler := api.NewHandler(api.HandlerDeps{
		Backups:   a.manager,
		Retention: a.manager.Retention(),
		Schedules: a.scheduler,
		Restores:  a.restorer,
		Hub:       a.hub,
		Checks:    a.healthChecks(),
	}, api.HandlerConfig{
		DefaultPageSize: a.cfg.API.DefaultPageSize,
		MaxPageSize:     a.cfg.API.MaxPageSize,
		DefaultKeep:     a.cfg.Backup.KeepCount,
		Version:         Version,
		AllowedOrigins:  sec.CORSOrigins,
	})

	chiCfg := api.DefaultChiMiddlewareConfig()
	chiCfg.CORSAllowedOrigins = sec.CORSOrigins
	chiCfg.RateLimitRequests = sec.RateLimitReqs
	chiCfg.RateLimitWindow = sec.RateLimitWindow
	chiCfg.RateLimitDisabled = sec.RateLimitDisabled

	return api.NewRouter(handler, auth, api.NewChiMiddleware(chiCfg)).SetupChi(), nil
}

// healthChecks are the readiness probes of the storage dependencies.
func (a *app) healthChecks() map[string]api.HealthCheck {
	checks := map[string]api.HealthCheck{
		"database": a.db.Ping,
		"storage": func(ctx context.Context) error {
			_, err := a.blobs.Exists(ctx, "healthcheck")
			return err
		},
	}
	if a.publisher != nil {
		checks["events"] = func(context.Context) error {
			if a.publisher.BreakerState() == gobreaker.StateOpen {
				return errors.New("event publisher circuit open")
			}
			return nil
		}
	}
	return checks
}

// addServices places the long-running components in the supervisor tree.
func (a *app) addServices(tree *supervisor.SupervisorTree, server *http.Server) {
	tree.AddDataService(services.NewCompactorService(journal.NewCompactor(a.journal)))
	tree.AddSchedulingService(services.NewSchedulerService(a.scheduler, a.cfg.Server.ShutdownTimeout))
	tree.AddAPIService(services.NewHTTPServerService(server, a.cfg.Server.ShutdownTimeout))
	if a.hub != nil {
		tree.AddAPIService(a.hub)
	}
}

// Close waits for background retention passes, then closes storage in
// reverse open order.
func (a *app) Close() error {
	if a.manager != nil {
		a.manager.Wait()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
