// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

/*
Package websocket streams backup history events to connected tenants.

The Hub subscribes to the history event bus (events.Publisher) and forwards
each event to the clients of the event's owner:

	{"type":"backup_history","data":{"event_id":"...","type":"backup.created.success",...}}

Clients may send {"type":"ping"} and receive {"type":"pong"}. The server also
sends protocol-level pings every 54 seconds and drops clients that do not
answer within 60 seconds, or whose 64-frame send buffer fills up.

The Hub runs as a suture service in the API layer. When its context is
canceled every client receives a close frame.
*/
package websocket
