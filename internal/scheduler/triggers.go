// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

/*
triggers.go - Trigger Definitions

Maps a (frequency, time of day) pair to a recurring trigger. The mapping is a
closed set of types rather than an assembled cron string:

	DAILY   -> DailyTrigger   every day at HH:MM
	WEEKLY  -> WeeklyTrigger  every Monday at HH:MM
	MONTHLY -> MonthlyTrigger day 1 of every month at HH:MM

Every trigger implements cron.Schedule so it can be registered directly with
the robfig/cron engine, and Expression() returns the equivalent standard cron
expression for logging and cross-checking.

Next(now) places HH:MM on the frequency's base date (today, this week's
upcoming Monday, the first of this month) and rolls forward one period while
the instant is not strictly after now. The result is always in the future.
*/

//nolint:staticcheck // File documentation, not package doc
package scheduler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/tomtom215/tenantvault/internal/backup"
)

// Trigger is a recurring firing rule for one schedule.
type Trigger interface {
	cron.Schedule

	// Frequency returns the schedule frequency this trigger implements.
	Frequency() backup.Frequency

	// Expression returns the equivalent 5-field cron expression.
	Expression() string
}

// clock is the time of day shared by every trigger variant.
type clock struct {
	Hour     int
	Minute   int
	Location *time.Location
}

func (c clock) at(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, c.Hour, c.Minute, 0, 0, c.Location)
}

// DailyTrigger fires every day.
type DailyTrigger struct{ clock }

// Next implements cron.Schedule.
func (t DailyTrigger) Next(now time.Time) time.Time {
	now = now.In(t.Location)
	next := t.at(now.Year(), now.Month(), now.Day())
	for !next.After(now) {
		next = t.at(next.Year(), next.Month(), next.Day()+1)
	}
	return next
}

// Frequency implements Trigger.
func (DailyTrigger) Frequency() backup.Frequency { return backup.FrequencyDaily }

// Expression implements Trigger.
func (t DailyTrigger) Expression() string {
	return fmt.Sprintf("%d %d * * *", t.Minute, t.Hour)
}

// WeeklyTrigger fires every Monday.
type WeeklyTrigger struct{ clock }

// Next implements cron.Schedule.
func (t WeeklyTrigger) Next(now time.Time) time.Time {
	now = now.In(t.Location)
	ahead := (int(time.Monday) - int(now.Weekday()) + 7) % 7
	next := t.at(now.Year(), now.Month(), now.Day()+ahead)
	for !next.After(now) {
		next = t.at(next.Year(), next.Month(), next.Day()+7)
	}
	return next
}

// Frequency implements Trigger.
func (WeeklyTrigger) Frequency() backup.Frequency { return backup.FrequencyWeekly }

// Expression implements Trigger.
func (t WeeklyTrigger) Expression() string {
	return fmt.Sprintf("%d %d * * 1", t.Minute, t.Hour)
}

// MonthlyTrigger fires on the first day of every month.
type MonthlyTrigger struct{ clock }

// Next implements cron.Schedule.
func (t MonthlyTrigger) Next(now time.Time) time.Time {
	now = now.In(t.Location)
	next := t.at(now.Year(), now.Month(), 1)
	for !next.After(now) {
		next = t.at(next.Year(), next.Month()+1, 1)
	}
	return next
}

// Frequency implements Trigger.
func (MonthlyTrigger) Frequency() backup.Frequency { return backup.FrequencyMonthly }

// Expression implements Trigger.
func (t MonthlyTrigger) Expression() string {
	return fmt.Sprintf("%d %d 1 * *", t.Minute, t.Hour)
}

// ParseTimeOfDay parses a 24-hour "HH:MM" string.
func ParseTimeOfDay(s string) (hour, minute int, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return 0, 0, backup.NewValidation("time_of_day", fmt.Sprintf("%q is not in HH:MM format", s))
	}
	hour, herr := strconv.Atoi(parts[0])
	minute, merr := strconv.Atoi(parts[1])
	if herr != nil || merr != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, backup.NewValidation("time_of_day", fmt.Sprintf("%q is not a valid time of day", s))
	}
	return hour, minute, nil
}

// BuildTrigger maps a frequency and time of day to its trigger. loc defaults to UTC.
// An unknown frequency yields a *backup.SchedulingError.
func BuildTrigger(freq backup.Frequency, timeOfDay string, loc *time.Location) (Trigger, error) {
	hour, minute, err := ParseTimeOfDay(timeOfDay)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.UTC
	}
	c := clock{Hour: hour, Minute: minute, Location: loc}

	switch freq {
	case backup.FrequencyDaily:
		return DailyTrigger{c}, nil
	case backup.FrequencyWeekly:
		return WeeklyTrigger{c}, nil
	case backup.FrequencyMonthly:
		return MonthlyTrigger{c}, nil
	default:
		return nil, &backup.SchedulingError{Message: fmt.Sprintf("unsupported frequency %q", freq)}
	}
}

// CalculateNextRun returns the schedule's next firing strictly after now.
func CalculateNextRun(s *backup.Schedule, now time.Time, loc *time.Location) (time.Time, error) {
	trigger, err := BuildTrigger(s.Frequency, s.TimeOfDay, loc)
	if err != nil {
		var serr *backup.SchedulingError
		if errors.As(err, &serr) {
			serr.ScheduleID = s.ID
		}
		return time.Time{}, err
	}
	return trigger.Next(now), nil
}
