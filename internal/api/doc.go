// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

/*
Package api exposes backup, schedule and restore operations over HTTP.

Every route under /api/v1 except health runs behind tenant authentication;
the authenticated tenant is the owner for every operation, so one tenant can
never name another tenant's backups, schedules or restore points. Such ids
answer 404 exactly like ids that do not exist.

Route layout:

	GET    /api/v1/health/live
	GET    /api/v1/health/ready
	GET    /metrics

	POST   /api/v1/backups                      create a manual backup
	GET    /api/v1/backups                      list (type, sort, limit, offset)
	GET    /api/v1/backups/stats
	POST   /api/v1/backups/cleanup              keep the newest keep_count
	GET    /api/v1/backups/{backupID}           backup plus history
	DELETE /api/v1/backups/{backupID}
	POST   /api/v1/backups/{backupID}/verify

	POST   /api/v1/schedules
	GET    /api/v1/schedules
	GET    /api/v1/schedules/{scheduleID}
	PATCH  /api/v1/schedules/{scheduleID}
	DELETE /api/v1/schedules/{scheduleID}
	POST   /api/v1/schedules/{scheduleID}/run

	GET    /api/v1/restore-points
	GET    /api/v1/restore-points/{pointID}
	POST   /api/v1/restore-points/{pointID}/test

	POST   /api/v1/restores                     restore from a point
	POST   /api/v1/restores/dry-run
	POST   /api/v1/restores/point-in-time
	GET    /api/v1/restores
	GET    /api/v1/restores/stats
	GET    /api/v1/events/ws                    live history stream (websocket)

Responses use the models.APIResponse envelope. Domain errors map to status
codes in respondDomainError; a restore in which some target failed answers
207 with the per-target outcomes in the body.
*/
package api
