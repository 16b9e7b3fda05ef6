// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

// Package events publishes backup history entries as lifecycle events.
//
// Every entry appended to the backup ledger (created, verified, restored,
// deleted, each with success or failure) becomes a HistoryEvent on a single
// Watermill topic. Two transports are supported:
//
//   - channel: Watermill's in-process gochannel pub/sub. Subscribe returns a
//     local stream, which the tests and embedded consumers use.
//   - nats: NATS JetStream through watermill-nats. The message UUID is the
//     ledger entry id and is sent as Nats-Msg-Id for deduplication. Subscribe
//     opens an ephemeral consumer that starts at new messages. With
//     embedded.enabled the Publisher starts an in-process JetStream server
//     (EmbeddedServer) and connects to it instead of URL.
//
// Publishing goes through a gobreaker circuit breaker. Publish failures never
// fail the ledger append; they are logged and counted in
// tenantvault_events_published_total{result="error"}.
package events
