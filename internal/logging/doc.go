// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

// Package logging provides centralized zerolog-based structured logging for tenantvault.
//
// # Quick Start
//
//	logging.Init(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//
//	logging.Info().Str("owner_id", owner).Msg("Backup created")
//	logging.Error().Err(err).Str("backup_id", id).Msg("Verification failed")
//
//	// Context-aware logging (request and correlation IDs)
//	logging.Ctx(ctx).Info().Msg("Restore started")
//
// # Configuration
//
// Environment Variables (mapped by internal/config):
//
//	LOG_LEVEL   - Minimum log level: trace, debug, info, warn, error (default: info)
//	LOG_FORMAT  - Output format: json, console (default: json)
//	LOG_CALLER  - Include caller file:line: true, false (default: false)
//
// # Field Conventions
//
// Domain identifiers are always logged with the same keys so that a single
// backup can be traced across components:
//
//	owner_id, backup_id, schedule_id, restore_point_id, component
//
// Always terminate log chains with .Msg() or .Send(); an unterminated event is
// never written.
//
// # Suture Integration
//
// The supervisor tree needs an *slog.Logger for sutureslog. NewSlogLogger
// returns one that writes through the global zerolog logger.
package logging
