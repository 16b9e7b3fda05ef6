// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

// Package validation provides struct validation using go-playground/validator v10.
//
// A single validator instance is shared process-wide (it caches struct
// metadata). Request types and configuration value objects declare their
// rules with `validate` tags:
//
//	type ScheduleRequest struct {
//	    Frequency     string `validate:"required,oneof=DAILY WEEKLY MONTHLY"`
//	    TimeOfDay     string `validate:"required,timeofday"`
//	    RetentionDays int    `validate:"min=1,max=365"`
//	}
package validation
