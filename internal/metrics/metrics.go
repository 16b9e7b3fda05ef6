// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the data protection service:
// - Backup creation, size and duration
// - Integrity verification outcomes
// - Retention deletions
// - Scheduled runs and active triggers
// - Restores (applied, dry run, test)
// - Durable store operations and circuit breaker state
// - HTTP control surface

var (
	// Backup Metrics
	BackupsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenantvault_backups_created_total",
			Help: "Total number of backups created",
		},
		[]string{"backup_type", "snapshot_kind"},
	)

	BackupFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenantvault_backup_failures_total",
			Help: "Total number of failed backup attempts",
		},
		[]string{"stage"}, // "tenant", "export", "seal", "journal", "write", "commit", "conflict"
	)

	BackupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tenantvault_backup_duration_seconds",
			Help:    "Duration of backup creation in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 300},
		},
	)

	BackupSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tenantvault_backup_size_bytes",
			Help:    "Size of stored snapshot objects",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10), // 1KiB .. 256MiB
		},
	)

	BackupsDeleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenantvault_backups_deleted_total",
			Help: "Total number of deleted backups",
		},
		[]string{"reason"}, // "manual", "retention", "expiry"
	)

	// Integrity Metrics
	Verifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenantvault_verifications_total",
			Help: "Total number of integrity verifications by outcome",
		},
		[]string{"result"}, // "valid", "invalid", "vacuous", "error"
	)

	// Retention Metrics
	RetentionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenantvault_retention_failures_total",
			Help: "Total number of backups a retention pass failed to delete",
		},
		[]string{"policy"}, // "keep_count", "expiry"
	)

	// Scheduler Metrics
	ScheduledRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenantvault_scheduled_runs_total",
			Help: "Total number of scheduled trigger firings by outcome",
		},
		[]string{"trigger", "status"}, // trigger: "schedule", "maintenance"; status: "success", "failed", "panic"
	)

	ScheduledRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tenantvault_scheduled_run_duration_seconds",
			Help:    "Duration of scheduled trigger executions",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		},
		[]string{"trigger"},
	)

	ActiveTriggers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tenantvault_active_triggers",
			Help: "Number of registered recurring triggers",
		},
	)

	// Restore Metrics
	Restores = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenantvault_restores_total",
			Help: "Total number of restore attempts",
		},
		[]string{"mode", "status"}, // mode: "apply", "dry_run", "test"
	)

	RestoreDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tenantvault_restore_duration_seconds",
			Help:    "Duration of restore attempts",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	// Durable Store Metrics
	BlobOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenantvault_blob_operations_total",
			Help: "Total number of durable store operations",
		},
		[]string{"store", "operation", "status"},
	)

	BlobBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tenantvault_blob_breaker_state",
			Help: "Durable store circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"store"},
	)

	// Journal Metrics
	JournalPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tenantvault_journal_pending_intents",
			Help: "Number of unconfirmed backup intents",
		},
	)

	JournalRecovered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenantvault_journal_recovered_total",
			Help: "Total number of intents resolved during startup recovery",
		},
		[]string{"outcome"}, // "rolled_forward", "rolled_back", "failed"
	)

	// Event Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenantvault_events_published_total",
			Help: "Total number of lifecycle events published",
		},
		[]string{"status"},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenantvault_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tenantvault_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10},
		},
		[]string{"method", "route"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tenantvault_http_requests_in_flight",
			Help: "Number of HTTP requests being served",
		},
	)

	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tenantvault_app_info",
			Help: "Application build information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordBackupCreated records a successful backup
func RecordBackupCreated(backupType, kind string, duration time.Duration, sizeBytes int64) {
	BackupsCreated.WithLabelValues(backupType, kind).Inc()
	BackupDuration.Observe(duration.Seconds())
	BackupSizeBytes.Observe(float64(sizeBytes))
}

// RecordBackupFailure records a failed backup attempt at the given stage
func RecordBackupFailure(stage string) {
	BackupFailures.WithLabelValues(stage).Inc()
}

// RecordBackupDeleted records a deleted backup
func RecordBackupDeleted(reason string) {
	BackupsDeleted.WithLabelValues(reason).Inc()
}

// RecordVerification records an integrity verification outcome
func RecordVerification(result string) {
	Verifications.WithLabelValues(result).Inc()
}

// RecordRetentionFailure records a backup that a retention pass could not delete
func RecordRetentionFailure(policy string) {
	RetentionFailures.WithLabelValues(policy).Inc()
}

// RecordScheduledRun records one trigger firing
func RecordScheduledRun(trigger, status string, duration time.Duration) {
	ScheduledRuns.WithLabelValues(trigger, status).Inc()
	ScheduledRunDuration.WithLabelValues(trigger).Observe(duration.Seconds())
}

// SetActiveTriggers sets the registered trigger count
func SetActiveTriggers(n int) {
	ActiveTriggers.Set(float64(n))
}

// RecordRestore records a restore attempt
func RecordRestore(mode string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "failed"
	}
	Restores.WithLabelValues(mode, status).Inc()
	RestoreDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordBlobOperation records a durable store call
func RecordBlobOperation(store, operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	BlobOperations.WithLabelValues(store, operation, status).Inc()
}

// SetBlobBreakerState records a circuit breaker transition
func SetBlobBreakerState(store string, state int) {
	BlobBreakerState.WithLabelValues(store).Set(float64(state))
}

// SetJournalPending sets the unconfirmed intent count
func SetJournalPending(n int) {
	JournalPending.Set(float64(n))
}

// RecordJournalRecovery records one intent resolved at startup
func RecordJournalRecovery(outcome string) {
	JournalRecovered.WithLabelValues(outcome).Inc()
}

// RecordEventPublish records a lifecycle event publish
func RecordEventPublish(err error) {
	if err != nil {
		EventsPublished.WithLabelValues("error").Inc()
		return
	}
	EventsPublished.WithLabelValues("success").Inc()
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, route, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
