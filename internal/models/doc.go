// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

/*
Package models defines the HTTP response envelope shared by the API handlers.

Every endpoint answers with an APIResponse:

	{"status": "success", "data": {...}, "metadata": {"timestamp": "..."}}
	{"status": "error", "data": null, "error": {"code": "NOT_FOUND", "message": "..."}}

Domain entities (backups, schedules, restore points) live in the backup package
and are serialized directly as Data.
*/
package models
