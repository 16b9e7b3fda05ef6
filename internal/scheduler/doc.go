// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

/*
Package scheduler turns persisted backup schedules into recurring triggers.

A SchedulerContext wraps a robfig/cron engine. Each enabled schedule is
registered under its id with a typed Trigger (DailyTrigger, WeeklyTrigger or
MonthlyTrigger) built from its frequency and HH:MM time of day, and a daily
maintenance trigger runs the expiry sweep.

Usage:

	sched, err := scheduler.New(scheduler.Deps{
	    Store:   store,
	    Backups: manager,
	    Tenants: directory,
	    Sweeper: manager.Retention(),
	}, cfg.Scheduler)
	if err != nil {
	    return err
	}
	if err := sched.Initialize(ctx); err != nil {
	    return err
	}
	defer func() { <-sched.StopAll().Done() }()

Firing a schedule updates its lastRun and nextRun and creates one automatic
backup per target owner. A schedule with an empty OwnerID targets every
tenant in the directory. Owners with a backup already in progress are
skipped for that firing.

Runs execute under a supervisor that bounds them with Config.RunTimeout,
recovers panics and records tenantvault_scheduled_runs_total. A failed run
never deregisters its trigger.
*/
package scheduler
