// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

package scheduler

import (
	"github.com/rs/zerolog"
	"github.com/tomtom215/tenantvault/internal/logging"
)

// cronLogger routes robfig/cron engine logs through zerolog.
type cronLogger struct {
	log zerolog.Logger
}

func newCronLogger() cronLogger {
	return cronLogger{log: logging.WithComponent("cron")}
}

// Info implements cron.Logger. Engine chatter (schedule, wake, run) goes to debug.
func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

// Error implements cron.Logger.
func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
