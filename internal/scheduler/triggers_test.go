// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

package scheduler

import (
	"errors"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/tomtom215/tenantvault/internal/backup"
)

func TestCalculateNextRun_Daily(t *testing.T) {
	t.Parallel()

	sched := &backup.Schedule{ID: "s1", Frequency: backup.FrequencyDaily, TimeOfDay: "02:00"}

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "before time of day fires today",
			now:  time.Date(2026, 3, 10, 1, 0, 0, 0, time.UTC),
			want: time.Date(2026, 3, 10, 2, 0, 0, 0, time.UTC),
		},
		{
			name: "after time of day fires tomorrow",
			now:  time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC),
			want: time.Date(2026, 3, 11, 2, 0, 0, 0, time.UTC),
		},
		{
			name: "exactly at time of day fires tomorrow",
			now:  time.Date(2026, 3, 10, 2, 0, 0, 0, time.UTC),
			want: time.Date(2026, 3, 11, 2, 0, 0, 0, time.UTC),
		},
		{
			name: "crosses month end",
			now:  time.Date(2026, 1, 31, 23, 0, 0, 0, time.UTC),
			want: time.Date(2026, 2, 1, 2, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := CalculateNextRun(sched, tt.now, time.UTC)
			if err != nil {
				t.Fatalf("CalculateNextRun: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("next = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCalculateNextRun_WeeklyAndMonthly(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		freq backup.Frequency
		now  time.Time
		want time.Time
	}{
		{
			// 2026-03-11 is a Wednesday
			name: "weekly midweek goes to next monday",
			freq: backup.FrequencyWeekly,
			now:  time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC),
			want: time.Date(2026, 3, 16, 4, 0, 0, 0, time.UTC),
		},
		{
			name: "weekly monday before time fires today",
			freq: backup.FrequencyWeekly,
			now:  time.Date(2026, 3, 16, 1, 0, 0, 0, time.UTC),
			want: time.Date(2026, 3, 16, 4, 0, 0, 0, time.UTC),
		},
		{
			name: "weekly monday after time fires next week",
			freq: backup.FrequencyWeekly,
			now:  time.Date(2026, 3, 16, 5, 0, 0, 0, time.UTC),
			want: time.Date(2026, 3, 23, 4, 0, 0, 0, time.UTC),
		},
		{
			name: "monthly mid month goes to next first",
			freq: backup.FrequencyMonthly,
			now:  time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC),
			want: time.Date(2026, 4, 1, 4, 0, 0, 0, time.UTC),
		},
		{
			name: "monthly first before time fires today",
			freq: backup.FrequencyMonthly,
			now:  time.Date(2026, 4, 1, 3, 59, 0, 0, time.UTC),
			want: time.Date(2026, 4, 1, 4, 0, 0, 0, time.UTC),
		},
		{
			name: "monthly december rolls year",
			freq: backup.FrequencyMonthly,
			now:  time.Date(2026, 12, 15, 0, 0, 0, 0, time.UTC),
			want: time.Date(2027, 1, 1, 4, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			sched := &backup.Schedule{ID: "s1", Frequency: tt.freq, TimeOfDay: "04:00"}
			got, err := CalculateNextRun(sched, tt.now, time.UTC)
			if err != nil {
				t.Fatalf("CalculateNextRun: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("next = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTrigger_Properties(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, freq := range []backup.Frequency{backup.FrequencyDaily, backup.FrequencyWeekly, backup.FrequencyMonthly} {
		trigger, err := BuildTrigger(freq, "13:45", time.UTC)
		if err != nil {
			t.Fatalf("BuildTrigger(%s): %v", freq, err)
		}
		if trigger.Frequency() != freq {
			t.Errorf("Frequency() = %s, want %s", trigger.Frequency(), freq)
		}

		// Sample every 7 hours across a year.
		for now := start; now.Year() == 2026; now = now.Add(7 * time.Hour) {
			next := trigger.Next(now)
			if !next.After(now) {
				t.Fatalf("%s: Next(%v) = %v is not in the future", freq, now, next)
			}
			if next.Hour() != 13 || next.Minute() != 45 {
				t.Fatalf("%s: Next(%v) = %v has wrong time of day", freq, now, next)
			}
			switch freq {
			case backup.FrequencyDaily:
				if next.Sub(now) > 24*time.Hour {
					t.Fatalf("daily: Next(%v) = %v is more than a day away", now, next)
				}
			case backup.FrequencyWeekly:
				if next.Weekday() != time.Monday || next.Sub(now) > 7*24*time.Hour {
					t.Fatalf("weekly: Next(%v) = %v", now, next)
				}
			case backup.FrequencyMonthly:
				if next.Day() != 1 {
					t.Fatalf("monthly: Next(%v) = %v is not day 1", now, next)
				}
			}
		}
	}
}

func TestTrigger_MatchesCronExpression(t *testing.T) {
	t.Parallel()

	samples := []time.Time{
		time.Date(2026, 2, 27, 22, 10, 0, 0, time.UTC),
		time.Date(2026, 3, 1, 6, 30, 0, 0, time.UTC),
		time.Date(2026, 3, 2, 6, 29, 0, 0, time.UTC),
		time.Date(2026, 7, 19, 23, 59, 0, 0, time.UTC),
		time.Date(2026, 12, 31, 12, 0, 0, 0, time.UTC),
	}

	for _, freq := range []backup.Frequency{backup.FrequencyDaily, backup.FrequencyWeekly, backup.FrequencyMonthly} {
		trigger, err := BuildTrigger(freq, "06:30", time.UTC)
		if err != nil {
			t.Fatalf("BuildTrigger: %v", err)
		}
		spec, err := cron.ParseStandard("CRON_TZ=UTC " + trigger.Expression())
		if err != nil {
			t.Fatalf("ParseStandard(%q): %v", trigger.Expression(), err)
		}
		for _, now := range samples {
			if got, want := trigger.Next(now), spec.Next(now); !got.Equal(want) {
				t.Errorf("%s at %v: trigger = %v, cron = %v", freq, now, got, want)
			}
		}
	}
}

func TestTrigger_Timezone(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+2", 2*60*60)
	trigger, err := BuildTrigger(backup.FrequencyDaily, "02:00", loc)
	if err != nil {
		t.Fatalf("BuildTrigger: %v", err)
	}

	// 23:30 UTC is 01:30 local, so the local 02:00 is 30 minutes away.
	now := time.Date(2026, 5, 1, 23, 30, 0, 0, time.UTC)
	next := trigger.Next(now)
	if next.Sub(now) != 30*time.Minute {
		t.Errorf("next = %v, want 30m after %v", next, now)
	}
}

func TestBuildTrigger_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		freq       backup.Frequency
		timeOfDay  string
		wantSchErr bool
	}{
		{"unknown frequency", backup.Frequency("HOURLY"), "02:00", true},
		{"bad hour", backup.FrequencyDaily, "24:00", false},
		{"bad minute", backup.FrequencyDaily, "02:60", false},
		{"missing colon", backup.FrequencyDaily, "0200", false},
		{"single digit", backup.FrequencyDaily, "2:00", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := BuildTrigger(tt.freq, tt.timeOfDay, time.UTC)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantSchErr {
				var serr *backup.SchedulingError
				if !errors.As(err, &serr) {
					t.Errorf("err = %T, want *backup.SchedulingError", err)
				}
				return
			}
			if !backup.IsValidation(err) {
				t.Errorf("err = %v, want validation error", err)
			}
		})
	}
}

func TestCalculateNextRun_SchedulingErrorCarriesID(t *testing.T) {
	t.Parallel()

	sched := &backup.Schedule{ID: "sched-9", Frequency: "YEARLY", TimeOfDay: "02:00"}
	_, err := CalculateNextRun(sched, time.Now(), time.UTC)

	var serr *backup.SchedulingError
	if !errors.As(err, &serr) || serr.ScheduleID != "sched-9" {
		t.Errorf("err = %v, want scheduling error for sched-9", err)
	}
}
