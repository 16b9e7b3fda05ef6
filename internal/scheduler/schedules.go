// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tomtom215/tenantvault/internal/backup"
	"github.com/tomtom215/tenantvault/internal/logging"
	"github.com/tomtom215/tenantvault/internal/validation"
)

// defaultRetentionDays applies when a schedule is created without retention.
const defaultRetentionDays = 30

// ScheduleInput is the payload for creating a schedule.
type ScheduleInput struct {
	Name       string                 `json:"name" validate:"max=100"`
	OwnerID    string                 `json:"owner_id" validate:"max=128"`
	Frequency  backup.Frequency       `json:"frequency" validate:"required,oneof=DAILY WEEKLY MONTHLY"`
	TimeOfDay  string                 `json:"time_of_day" validate:"required,timeofday"`
	BackupType backup.SnapshotKind    `json:"backup_type" validate:"required,oneof=FULL INCREMENTAL"`
	IsEnabled  *bool                  `json:"is_enabled,omitempty"`
	Options    backup.ScheduleOptions `json:"options"`
}

// ScheduleUpdate is a partial update. Nil fields are left unchanged.
type ScheduleUpdate struct {
	Name       *string                 `json:"name,omitempty" validate:"omitempty,max=100"`
	Frequency  *backup.Frequency       `json:"frequency,omitempty" validate:"omitempty,oneof=DAILY WEEKLY MONTHLY"`
	TimeOfDay  *string                 `json:"time_of_day,omitempty" validate:"omitempty,timeofday"`
	BackupType *backup.SnapshotKind    `json:"backup_type,omitempty" validate:"omitempty,oneof=FULL INCREMENTAL"`
	IsEnabled  *bool                   `json:"is_enabled,omitempty"`
	Options    *backup.ScheduleOptions `json:"options,omitempty"`
}

// CreateSchedule validates and persists a schedule, registering its trigger
// when the coordinator is running and the schedule is enabled.
func (s *SchedulerContext) CreateSchedule(ctx context.Context, in ScheduleInput) (*backup.Schedule, error) {
	if in.Options.RetentionDays == 0 {
		in.Options.RetentionDays = defaultRetentionDays
	}
	if err := validateInput(&in); err != nil {
		return nil, err
	}
	if in.OwnerID != "" {
		exists, err := s.tenants.Exists(ctx, in.OwnerID)
		if err != nil {
			return nil, &backup.IOFailure{Op: "lookup tenant", Err: err}
		}
		if !exists {
			return nil, backup.NewNotFound("owner", in.OwnerID)
		}
	}

	now := s.now().UTC()
	sched := &backup.Schedule{
		ID:         uuid.New().String(),
		Name:       in.Name,
		OwnerID:    in.OwnerID,
		Frequency:  in.Frequency,
		TimeOfDay:  in.TimeOfDay,
		IsEnabled:  in.IsEnabled == nil || *in.IsEnabled,
		BackupType: in.BackupType,
		Options:    in.Options,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if sched.Name == "" {
		sched.Name = string(sched.Frequency) + " " + string(sched.BackupType)
	}
	if err := s.setNextRun(sched, now); err != nil {
		return nil, err
	}

	if err := s.store.CreateSchedule(ctx, sched); err != nil {
		return nil, err
	}
	if err := s.syncTrigger(sched); err != nil {
		return nil, err
	}

	logging.Ctx(ctx).Info().
		Str("schedule_id", sched.ID).
		Str("owner_id", sched.OwnerID).
		Str("frequency", string(sched.Frequency)).
		Str("time_of_day", sched.TimeOfDay).
		Msg("Schedule created")
	return sched, nil
}

// UpdateSchedule applies a partial update and re-registers the trigger,
// replacing any prior one.
func (s *SchedulerContext) UpdateSchedule(ctx context.Context, id string, upd ScheduleUpdate) (*backup.Schedule, error) {
	if err := validateInput(&upd); err != nil {
		return nil, err
	}

	sched, err := s.store.GetSchedule(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		sched.Name = *upd.Name
	}
	if upd.Frequency != nil {
		sched.Frequency = *upd.Frequency
	}
	if upd.TimeOfDay != nil {
		sched.TimeOfDay = *upd.TimeOfDay
	}
	if upd.BackupType != nil {
		sched.BackupType = *upd.BackupType
	}
	if upd.IsEnabled != nil {
		sched.IsEnabled = *upd.IsEnabled
	}
	if upd.Options != nil {
		if err := validateInput(upd.Options); err != nil {
			return nil, err
		}
		sched.Options = *upd.Options
	}

	now := s.now().UTC()
	sched.UpdatedAt = now
	if err := s.setNextRun(sched, now); err != nil {
		return nil, err
	}
	if err := s.store.UpdateSchedule(ctx, sched); err != nil {
		return nil, err
	}
	if err := s.syncTrigger(sched); err != nil {
		return nil, err
	}

	logging.Ctx(ctx).Info().Str("schedule_id", id).Bool("enabled", sched.IsEnabled).Msg("Schedule updated")
	return sched, nil
}

// DeleteSchedule removes a schedule and cancels its trigger.
func (s *SchedulerContext) DeleteSchedule(ctx context.Context, id string) error {
	if err := s.store.DeleteSchedule(ctx, id); err != nil {
		return err
	}
	s.CancelSchedule(id)
	logging.Ctx(ctx).Info().Str("schedule_id", id).Msg("Schedule deleted")
	return nil
}

// GetSchedule returns one schedule.
func (s *SchedulerContext) GetSchedule(ctx context.Context, id string) (*backup.Schedule, error) {
	return s.store.GetSchedule(ctx, id)
}

// ListSchedules returns every schedule.
func (s *SchedulerContext) ListSchedules(ctx context.Context) ([]*backup.Schedule, error) {
	return s.store.ListSchedules(ctx)
}

// setNextRun stores the next firing in UTC, or clears it for disabled schedules.
func (s *SchedulerContext) setNextRun(sched *backup.Schedule, now time.Time) error {
	if !sched.IsEnabled {
		sched.NextRun = nil
		return nil
	}
	next, err := CalculateNextRun(sched, now, s.loc)
	if err != nil {
		return err
	}
	next = next.UTC()
	sched.NextRun = &next
	return nil
}

// syncTrigger brings the registry in line with the schedule's enabled flag.
// Before Initialize, registration is left to Initialize.
func (s *SchedulerContext) syncTrigger(sched *backup.Schedule) error {
	if !sched.IsEnabled {
		s.CancelSchedule(sched.ID)
		return nil
	}
	if !s.IsInitialized() {
		return nil
	}
	return s.ScheduleBackup(sched)
}

// bootstrapDefaults creates the default fleet-wide schedules.
func (s *SchedulerContext) bootstrapDefaults(ctx context.Context) ([]*backup.Schedule, error) {
	defaults := []ScheduleInput{
		{
			Name:       "Daily incremental",
			Frequency:  backup.FrequencyDaily,
			TimeOfDay:  "02:00",
			BackupType: backup.KindIncremental,
			Options:    backup.ScheduleOptions{RetentionDays: 30, Compress: true},
		},
		{
			Name:       "Weekly full",
			Frequency:  backup.FrequencyWeekly,
			TimeOfDay:  "04:00",
			BackupType: backup.KindFull,
			Options:    backup.ScheduleOptions{RetentionDays: 90, Compress: true},
		},
	}

	created := make([]*backup.Schedule, 0, len(defaults))
	for _, in := range defaults {
		sched, err := s.CreateSchedule(ctx, in)
		if err != nil {
			return nil, err
		}
		created = append(created, sched)
	}
	logging.Info().Int("count", len(created)).Msg("Bootstrapped default schedules")
	return created, nil
}

func validateInput(v interface{}) error {
	verr := validation.ValidateStruct(v)
	if verr == nil {
		return nil
	}
	field := "unknown"
	if errs := verr.Errors(); len(errs) > 0 {
		field = errs[0].Field()
	}
	return backup.NewValidation(field, verr.Error())
}
