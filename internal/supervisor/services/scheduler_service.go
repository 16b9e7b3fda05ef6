// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

package services

import (
	"context"
	"fmt"
	"time"
)

// ScheduleCoordinator is the lifecycle surface of scheduler.SchedulerContext.
type ScheduleCoordinator interface {
	Initialize(ctx context.Context) error
	StopAll() context.Context
}

// SchedulerService registers triggers on start and drains in-flight runs on
// stop. A failed Initialize is returned to the supervisor, which retries it
// with backoff.
type SchedulerService struct {
	coordinator  ScheduleCoordinator
	drainTimeout time.Duration
	name         string
}

// NewSchedulerService wraps coordinator. drainTimeout bounds how long Serve
// waits for running backups after cancellation; zero waits indefinitely.
func NewSchedulerService(coordinator ScheduleCoordinator, drainTimeout time.Duration) *SchedulerService {
	return &SchedulerService{
		coordinator:  coordinator,
		drainTimeout: drainTimeout,
		name:         "schedule-coordinator",
	}
}

// Serve implements suture.Service.
func (s *SchedulerService) Serve(ctx context.Context) error {
	if err := s.coordinator.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize scheduler: %w", err)
	}

	<-ctx.Done()

	drained := s.coordinator.StopAll()
	if s.drainTimeout <= 0 {
		<-drained.Done()
		return ctx.Err()
	}

	timer := time.NewTimer(s.drainTimeout)
	defer timer.Stop()
	select {
	case <-drained.Done():
	case <-timer.C:
		return fmt.Errorf("scheduler drain exceeded %v", s.drainTimeout)
	}
	return ctx.Err()
}

// String implements fmt.Stringer for suture logging.
func (s *SchedulerService) String() string {
	return s.name
}
