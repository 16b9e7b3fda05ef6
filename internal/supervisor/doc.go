// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

/*
Package supervisor builds the process supervision tree with suture v4.

	tenantvault (root)
	├── data-layer        journal compactor
	├── scheduling-layer  schedule coordinator
	└── api-layer         HTTP server, websocket history hub

Each layer restarts its own services with exponential backoff. Supervisor
events are logged through sutureslog.
*/
package supervisor
