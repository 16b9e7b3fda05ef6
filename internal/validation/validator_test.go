// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

package validation

import (
	"strings"
	"testing"
)

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()

	if v1 != v2 {
		t.Error("GetValidator() should return the same singleton instance")
	}
	if v1 == nil {
		t.Error("GetValidator() should not return nil")
	}
}

type scheduleInput struct {
	Frequency     string `validate:"required,oneof=DAILY WEEKLY MONTHLY"`
	TimeOfDay     string `validate:"required,timeofday"`
	RetentionDays int    `validate:"min=1,max=365"`
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name      string
		input     scheduleInput
		wantErr   bool
		wantField string
	}{
		{
			name:  "valid daily schedule",
			input: scheduleInput{Frequency: "DAILY", TimeOfDay: "02:00", RetentionDays: 30},
		},
		{
			name:  "valid boundary retention",
			input: scheduleInput{Frequency: "MONTHLY", TimeOfDay: "23:59", RetentionDays: 365},
		},
		{
			name:      "invalid frequency",
			input:     scheduleInput{Frequency: "HOURLY", TimeOfDay: "02:00", RetentionDays: 30},
			wantErr:   true,
			wantField: "Frequency",
		},
		{
			name:      "malformed time of day",
			input:     scheduleInput{Frequency: "DAILY", TimeOfDay: "24:00", RetentionDays: 30},
			wantErr:   true,
			wantField: "TimeOfDay",
		},
		{
			name:      "retention below range",
			input:     scheduleInput{Frequency: "WEEKLY", TimeOfDay: "02:00", RetentionDays: 0},
			wantErr:   true,
			wantField: "RetentionDays",
		},
		{
			name:      "retention above range",
			input:     scheduleInput{Frequency: "WEEKLY", TimeOfDay: "02:00", RetentionDays: 366},
			wantErr:   true,
			wantField: "RetentionDays",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateStruct() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				return
			}
			if got := err.Errors()[0].Field(); got != tt.wantField {
				t.Errorf("expected failing field %s, got %s", tt.wantField, got)
			}
		})
	}
}

func TestValidateStruct_Messages(t *testing.T) {
	err := ValidateStruct(&scheduleInput{Frequency: "DAILY", TimeOfDay: "7pm", RetentionDays: 400})
	if err == nil {
		t.Fatal("expected validation error")
	}

	msg := err.Error()
	if !strings.Contains(msg, "TimeOfDay must be a time of day in HH:MM (24-hour) format") {
		t.Errorf("expected time of day message, got %q", msg)
	}
	if !strings.Contains(msg, "RetentionDays must be at most 365") {
		t.Errorf("expected retention message, got %q", msg)
	}

	fields, ok := err.Details()["fields"].([]map[string]interface{})
	if !ok || len(fields) != 2 {
		t.Errorf("expected 2 field details, got %v", err.Details())
	}
}

func TestIsTimeOfDay(t *testing.T) {
	tests := map[string]bool{
		"00:00": true,
		"02:00": true,
		"23:59": true,
		"24:00": false,
		"2:00":  false,
		"12:60": false,
		"":      false,
		"ab:cd": false,
	}
	for input, want := range tests {
		if got := IsTimeOfDay(input); got != want {
			t.Errorf("IsTimeOfDay(%q) = %v, want %v", input, got, want)
		}
	}
}
