// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

/*
Package main is the entry point for the tenantvault server.

tenantvault creates hashed, optionally compressed and encrypted snapshots of
each tenant's data, keeps an append-only history of every backup operation,
enforces retention, runs recurring backup schedules and restores tenants from
any retained point.

# Application Architecture

Long-running components run under a Suture v4 supervisor tree:

	RootSupervisor ("tenantvault")
	├── DataSupervisor ("data-layer")
	│   └── Journal compactor (purges confirmed backup intents)
	├── SchedulingSupervisor ("scheduling-layer")
	│   └── Schedule coordinator (cron triggers and the expiry sweep)
	└── APISupervisor ("api-layer")
	    ├── HTTP server
	    └── WebSocket hub (tenant history stream, when events are enabled)

Startup order:

 1. Configuration: Koanf v2 (defaults, config.yaml, environment)
 2. DuckDB: backup metadata, history, schedules and tenant data
 3. Blob store: filesystem, S3 or GCS, behind a circuit breaker
 4. BadgerDB intent journal, then recovery of interrupted backups
 5. History event publisher (in-process or NATS JetStream)
 6. Backup manager, schedule coordinator and restore coordinator
 7. HTTP API with tenant authentication

# Configuration

Common environment variables:

	HTTP_PORT                  listen port (default 8470)
	AUTH_MODE                  jwt, header or none
	JWT_SECRET                 HS256 secret, 32+ characters (AUTH_MODE=jwt)
	DUCKDB_PATH                database file
	BACKUP_STORAGE_URI         /path, s3://bucket/prefix or gs://bucket/prefix
	BACKUP_ENCRYPTION_SECRET   enables encrypted snapshots
	BACKUP_JOURNAL_PATH        BadgerDB journal directory
	EVENTS_TRANSPORT           channel or nats
	NATS_URL                   NATS server when EVENTS_TRANSPORT=nats
	NATS_EMBEDDED              run an in-process JetStream server instead
	NATS_STORE_DIR             embedded JetStream storage directory
	TENANTS_BOOTSTRAP          comma separated tenant ids registered at startup

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server drains, the
schedule coordinator waits for running backups, background retention passes
finish, and storage is closed in reverse order.
*/
package main
