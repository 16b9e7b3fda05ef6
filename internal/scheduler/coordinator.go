// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

/*
coordinator.go - Schedule Coordinator

SchedulerContext owns the trigger registry (schedule id -> cron entry), the
initialized flag and the cron engine. It is constructed once at startup and
passed to whoever needs it; tests build their own isolated instances.

Lifecycle per schedule:

	Idle -> Registered (ScheduleBackup) -> fires repeatedly -> Cancelled (CancelSchedule / StopAll)

Each firing runs inside supervise(), which recovers panics, logs and records
metrics. Errors never reach the cron engine, so a failed run cannot remove a
trigger. Cancelling deregisters future firings only; in-flight runs finish.
*/

//nolint:staticcheck // File documentation, not package doc
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/tomtom215/tenantvault/internal/backup"
	"github.com/tomtom215/tenantvault/internal/logging"
	"github.com/tomtom215/tenantvault/internal/metrics"
)

// maintenanceKey is the registry key of the daily expiry sweep.
const maintenanceKey = "maintenance:expiry"

// Trigger labels used in metrics.
const (
	triggerSchedule    = "schedule"
	triggerMaintenance = "maintenance"
)

// BackupCreator creates backups. Implemented by *backup.Manager.
type BackupCreator interface {
	CreateBackup(ctx context.Context, ownerID string, opts backup.CreateOptions) (*backup.Backup, error)
}

// ExpirySweeper deletes expired backups. Implemented by *backup.RetentionEnforcer.
type ExpirySweeper interface {
	DeleteExpiredBackups(ctx context.Context, daysOld int) (int, error)
}

// Deps are the collaborators of a SchedulerContext.
type Deps struct {
	Store   backup.ScheduleStore
	Backups BackupCreator
	Tenants backup.TenantDirectory
	Sweeper ExpirySweeper
}

// SchedulerContext converts schedules into cron triggers and runs them.
type SchedulerContext struct {
	store   backup.ScheduleStore
	backups BackupCreator
	tenants backup.TenantDirectory
	sweeper ExpirySweeper
	cfg     Config
	loc     *time.Location

	engine *cron.Cron

	initMu      sync.Mutex
	mu          sync.Mutex
	triggers    map[string]cron.EntryID
	initialized bool

	runs sync.WaitGroup
	now  func() time.Time
}

// New creates a SchedulerContext. Call Initialize to load schedules and start firing.
func New(deps Deps, cfg Config) (*SchedulerContext, error) {
	if deps.Store == nil || deps.Backups == nil || deps.Tenants == nil || deps.Sweeper == nil {
		return nil, errors.New("scheduler requires store, backup creator, tenant directory and sweeper")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	loc, _ := time.LoadLocation(cfg.Timezone)

	return &SchedulerContext{
		store:    deps.Store,
		backups:  deps.Backups,
		tenants:  deps.Tenants,
		sweeper:  deps.Sweeper,
		cfg:      cfg,
		loc:      loc,
		engine:   cron.New(cron.WithLocation(loc), cron.WithLogger(newCronLogger())),
		triggers: make(map[string]cron.EntryID),
		now:      time.Now,
	}, nil
}

// Initialize bootstraps default schedules when none exist, registers every
// enabled schedule plus the maintenance sweep, and starts the engine.
// Calls after the first successful one are no-ops.
func (s *SchedulerContext) Initialize(ctx context.Context) error {
	s.initMu.Lock()
	defer s.initMu.Unlock()

	if s.IsInitialized() {
		return nil
	}

	schedules, err := s.store.ListSchedules(ctx)
	if err != nil {
		return fmt.Errorf("load schedules: %w", err)
	}
	if len(schedules) == 0 && s.cfg.BootstrapDefaults {
		if schedules, err = s.bootstrapDefaults(ctx); err != nil {
			return err
		}
	}

	registered := 0
	for _, sched := range schedules {
		if !sched.IsEnabled {
			continue
		}
		if err := s.refreshNextRun(ctx, sched); err != nil {
			logging.Error().Err(err).Str("schedule_id", sched.ID).Msg("Failed to refresh schedule next run")
			continue
		}
		if err := s.ScheduleBackup(sched); err != nil {
			logging.Error().Err(err).Str("schedule_id", sched.ID).Msg("Failed to register schedule")
			continue
		}
		registered++
	}

	maintenance, err := BuildTrigger(backup.FrequencyDaily, s.cfg.MaintenanceTime, s.loc)
	if err != nil {
		return err
	}
	s.register(maintenanceKey, maintenance, func() {
		s.supervise(triggerMaintenance, "", func(ctx context.Context) error {
			_, err := s.RunMaintenance(ctx)
			return err
		})
	})

	s.engine.Start()

	s.mu.Lock()
	s.initialized = true
	s.mu.Unlock()

	logging.Info().
		Int("schedules", registered).
		Str("maintenance_time", s.cfg.MaintenanceTime).
		Str("timezone", s.cfg.Timezone).
		Msg("Schedule coordinator initialized")
	return nil
}

// IsInitialized reports whether Initialize has completed since the last StopAll.
func (s *SchedulerContext) IsInitialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

// ScheduleBackup registers (or re-registers) the recurring trigger for sched.
func (s *SchedulerContext) ScheduleBackup(sched *backup.Schedule) error {
	trigger, err := BuildTrigger(sched.Frequency, sched.TimeOfDay, s.loc)
	if err != nil {
		var serr *backup.SchedulingError
		if errors.As(err, &serr) {
			serr.ScheduleID = sched.ID
		}
		return err
	}

	id := sched.ID
	s.register(id, trigger, func() {
		s.supervise(triggerSchedule, id, func(ctx context.Context) error {
			return s.ExecuteScheduledBackup(ctx, id)
		})
	})

	logging.Debug().
		Str("schedule_id", id).
		Str("frequency", string(sched.Frequency)).
		Str("time_of_day", sched.TimeOfDay).
		Str("cron", trigger.Expression()).
		Msg("Schedule registered")
	return nil
}

// CancelSchedule deregisters a schedule's trigger. In-flight runs are not
// interrupted. Returns false when no trigger was registered.
func (s *SchedulerContext) CancelSchedule(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.triggers[id]
	if !ok {
		return false
	}
	s.engine.Remove(entry)
	delete(s.triggers, id)
	metrics.SetActiveTriggers(len(s.triggers))
	return true
}

// StopAll deregisters every trigger and stops the engine. The returned
// context is done once in-flight runs have finished.
func (s *SchedulerContext) StopAll() context.Context {
	s.mu.Lock()
	for id, entry := range s.triggers {
		s.engine.Remove(entry)
		delete(s.triggers, id)
	}
	s.initialized = false
	engineDone := s.engine.Stop()
	s.mu.Unlock()

	metrics.SetActiveTriggers(0)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-engineDone.Done()
		s.runs.Wait()
		cancel()
	}()

	logging.Info().Msg("Schedule coordinator stopped")
	return ctx
}

// ActiveTriggers returns the registered trigger keys, sorted.
func (s *SchedulerContext) ActiveTriggers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.triggers))
	for k := range s.triggers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsRegistered reports whether the schedule has an active trigger.
func (s *SchedulerContext) IsRegistered(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.triggers[id]
	return ok
}

// ExecuteScheduledBackup runs one firing of a schedule: it advances lastRun
// and nextRun, then creates an automatic backup for each target owner.
// Per-owner failures are joined into the returned error; an owner that is
// already busy is skipped.
func (s *SchedulerContext) ExecuteScheduledBackup(ctx context.Context, id string) error {
	sched, err := s.store.GetSchedule(ctx, id)
	if err != nil {
		return err
	}
	if !sched.IsEnabled {
		logging.Ctx(ctx).Debug().Str("schedule_id", id).Msg("Skipping disabled schedule")
		return nil
	}

	now := s.now().UTC()
	next, err := CalculateNextRun(sched, now, s.loc)
	if err != nil {
		return err
	}
	next = next.UTC()
	sched.LastRun = &now
	sched.NextRun = &next
	sched.UpdatedAt = now
	if err := s.store.UpdateSchedule(ctx, sched); err != nil {
		return fmt.Errorf("update schedule run times: %w", err)
	}

	owners, err := s.targetOwners(ctx, sched)
	if err != nil {
		return err
	}

	opts := backup.CreateOptions{
		Type:          backup.TypeAutomatic,
		Kind:          sched.BackupType,
		ExpiresInDays: sched.Options.RetentionDays,
		Compress:      true,
		Encrypt:       s.cfg.EncryptBackups || sched.Options.Encrypt,
		PerformedBy:   "schedule:" + sched.ID,
	}

	var errs []error
	created, skipped := 0, 0
	for _, owner := range owners {
		b, err := s.backups.CreateBackup(ctx, owner, opts)
		switch {
		case err == nil:
			created++
			logging.Ctx(ctx).Debug().Str("owner_id", owner).Str("backup_id", b.ID).Msg("Scheduled backup created")
		case backup.IsConflict(err):
			skipped++
			logging.Ctx(ctx).Info().Str("owner_id", owner).Msg("Owner busy; scheduled backup skipped")
		default:
			errs = append(errs, fmt.Errorf("owner %s: %w", owner, err))
		}
	}

	logging.Ctx(ctx).Info().
		Str("schedule_id", id).
		Int("owners", len(owners)).
		Int("created", created).
		Int("skipped", skipped).
		Int("failed", len(errs)).
		Time("next_run", next).
		Msg("Scheduled backup run finished")
	return errors.Join(errs...)
}

// RunMaintenance runs the expiry sweep once.
func (s *SchedulerContext) RunMaintenance(ctx context.Context) (int, error) {
	deleted, err := s.sweeper.DeleteExpiredBackups(ctx, s.cfg.ExpiryGraceDays)
	if err != nil {
		return deleted, fmt.Errorf("expiry sweep: %w", err)
	}
	return deleted, nil
}

// CalculateNextRun returns the schedule's next firing in the configured timezone.
func (s *SchedulerContext) CalculateNextRun(sched *backup.Schedule, now time.Time) (time.Time, error) {
	return CalculateNextRun(sched, now, s.loc)
}

func (s *SchedulerContext) targetOwners(ctx context.Context, sched *backup.Schedule) ([]string, error) {
	if sched.OwnerID != "" {
		return []string{sched.OwnerID}, nil
	}
	owners, err := s.tenants.List(ctx)
	if err != nil {
		return nil, &backup.IOFailure{Op: "list tenants", Err: err}
	}
	return owners, nil
}

// refreshNextRun persists a new nextRun when the stored one is missing or stale.
func (s *SchedulerContext) refreshNextRun(ctx context.Context, sched *backup.Schedule) error {
	now := s.now().UTC()
	if sched.NextRun != nil && sched.NextRun.After(now) {
		return nil
	}
	next, err := CalculateNextRun(sched, now, s.loc)
	if err != nil {
		return err
	}
	next = next.UTC()
	sched.NextRun = &next
	sched.UpdatedAt = now
	return s.store.UpdateSchedule(ctx, sched)
}

func (s *SchedulerContext) register(key string, trigger cron.Schedule, job func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.triggers[key]; ok {
		s.engine.Remove(old)
	}
	s.triggers[key] = s.engine.Schedule(trigger, cron.FuncJob(job))
	metrics.SetActiveTriggers(len(s.triggers))
}

// supervise runs one firing. It never panics and never returns an error to
// the engine.
func (s *SchedulerContext) supervise(trigger, scheduleID string, run func(ctx context.Context) error) {
	s.runs.Add(1)
	defer s.runs.Done()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RunTimeout)
	defer cancel()
	ctx = logging.ContextWithNewCorrelationID(ctx)

	log := logging.Ctx(ctx).With().Str("trigger", trigger).Str("schedule_id", scheduleID).Logger()
	start := s.now()
	status := "success"

	defer func() {
		if r := recover(); r != nil {
			status = "panic"
			log.Error().
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("Scheduled run panicked")
		}
		metrics.RecordScheduledRun(trigger, status, s.now().Sub(start))
	}()

	if err := run(ctx); err != nil {
		status = "failed"
		log.Error().Err(err).Msg("Scheduled run failed")
		return
	}
	log.Debug().Dur("duration", s.now().Sub(start)).Msg("Scheduled run completed")
}
