// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

/*
Package metrics provides Prometheus metrics for the data protection service.

Metrics are registered with promauto at package init and exposed at /metrics:

	curl http://localhost:8085/metrics

# Available Metrics

Backups:
  - tenantvault_backups_created_total{backup_type, snapshot_kind}
  - tenantvault_backup_failures_total{stage}
  - tenantvault_backup_duration_seconds
  - tenantvault_backup_size_bytes
  - tenantvault_backups_deleted_total{reason}

Integrity:
  - tenantvault_verifications_total{result}: "vacuous" counts backups accepted without a hash

Scheduling:
  - tenantvault_scheduled_runs_total{trigger, status}
  - tenantvault_scheduled_run_duration_seconds{trigger}
  - tenantvault_active_triggers

Restores:
  - tenantvault_restores_total{mode, status}
  - tenantvault_restore_duration_seconds{mode}

Storage and journal:
  - tenantvault_blob_operations_total{store, operation, status}
  - tenantvault_blob_breaker_state{store}
  - tenantvault_journal_pending_intents
  - tenantvault_journal_recovered_total{outcome}

HTTP:
  - tenantvault_http_requests_total{method, route, status}
  - tenantvault_http_request_duration_seconds{method, route}
  - tenantvault_http_requests_in_flight

# Usage

	start := time.Now()
	// ... create backup ...
	metrics.RecordBackupCreated("manual", "FULL", time.Since(start), size)
*/
package metrics
