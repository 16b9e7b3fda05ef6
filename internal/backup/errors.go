// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

package backup

import (
	"errors"
	"fmt"
)

// NotFoundError reports a missing owner, backup, schedule, or restore point.
// Cross-tenant access is reported the same way.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ValidationError reports malformed input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

// IntegrityError reports a hash mismatch.
type IntegrityError struct {
	BackupID string
	Expected string
	Actual   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity check failed for backup %s: expected %s, got %s", e.BackupID, e.Expected, e.Actual)
}

// ExportFailure wraps an error returned by the data exporter.
type ExportFailure struct {
	OwnerID string
	Err     error
}

func (e *ExportFailure) Error() string {
	return fmt.Sprintf("export snapshot for owner %s: %v", e.OwnerID, e.Err)
}

func (e *ExportFailure) Unwrap() error { return e.Err }

// IOFailure wraps a durable store or metadata store error.
type IOFailure struct {
	Op  string
	Err error
}

func (e *IOFailure) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *IOFailure) Unwrap() error { return e.Err }

// SchedulingError reports a schedule that cannot be mapped to a trigger.
type SchedulingError struct {
	ScheduleID string
	Message    string
}

func (e *SchedulingError) Error() string {
	if e.ScheduleID == "" {
		return "scheduling: " + e.Message
	}
	return fmt.Sprintf("scheduling %s: %s", e.ScheduleID, e.Message)
}

// ConflictError reports that the owner already has a backup or restore in flight.
type ConflictError struct {
	OwnerID   string
	Operation string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("owner %s already has a %s in progress", e.OwnerID, e.Operation)
}

// NewNotFound returns a *NotFoundError.
func NewNotFound(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// NewValidation returns a *ValidationError.
func NewValidation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsNotFound reports whether err is or wraps a *NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsValidation reports whether err is or wraps a *ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsIntegrity reports whether err is or wraps an *IntegrityError.
func IsIntegrity(err error) bool {
	var target *IntegrityError
	return errors.As(err, &target)
}

// IsConflict reports whether err is or wraps a *ConflictError.
func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}
