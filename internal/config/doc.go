// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

/*
Package config loads application configuration with Koanf v2.

Sources are layered, later ones overriding earlier ones:

 1. Struct defaults (defaultConfig)
 2. A YAML file: CONFIG_PATH, else config.yaml, config.yml,
    /etc/tenantvault/config.yaml, /etc/tenantvault/config.yml
 3. Environment variables listed in envMappings (unlisted variables are ignored)

Sections:

  - server, api, security, logging: HTTP surface and process settings
  - database: DuckDB file holding backup metadata and tenant data
  - storage: snapshot blob store URI (path, file://, s3://, gs://) and circuit breaker
  - backup, encryption: manager defaults, retention pacing, snapshot secret
  - journal: BadgerDB intent journal for two-phase backup creation
  - scheduler: timezone, maintenance sweep time, run timeout
  - restore: default file target and per-restore timeout
  - events: history event transport (in-process or NATS JetStream)
  - tenants: tenant ids registered at startup

Example YAML:

	storage:
	  uri: s3://acme-vault/backups
	  s3:
	    region: eu-west-1
	backup:
	  keep_count: 14
	scheduler:
	  timezone: Europe/Berlin
	  maintenance_time: "02:30"

Comma-separated environment values are accepted for slice fields, e.g.
CORS_ORIGINS=https://a.example.com,https://b.example.com.
*/
package config
