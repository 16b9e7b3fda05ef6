// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

package websocket

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/tenantvault/internal/events"
	"github.com/tomtom215/tenantvault/internal/logging"
)

// Message types sent to clients
const (
	MessageTypeHistory = "backup_history"
	MessageTypePing    = "ping"
	MessageTypePong    = "pong"
)

// ErrStreamClosed is returned by Serve when the event subscription ends
// while the hub is still running.
var ErrStreamClosed = errors.New("history event stream closed")

// Message is the JSON frame written to clients.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// EventSource yields history events. events.Publisher implements it.
type EventSource interface {
	Subscribe(ctx context.Context) (<-chan *message.Message, error)
}

// Hub fans history events out to connected clients. Each client only
// receives events of its own tenant.
type Hub struct {
	source EventSource

	mu      sync.RWMutex
	clients map[*Client]struct{}
}

// NewHub creates a hub reading from source.
func NewHub(source EventSource) *Hub {
	return &Hub{
		source:  source,
		clients: make(map[*Client]struct{}),
	}
}

// Serve subscribes to the event source and dispatches until ctx is canceled.
// Connected clients are closed on return. Implements suture.Service.
func (h *Hub) Serve(ctx context.Context) error {
	stream, err := h.source.Subscribe(ctx)
	if err != nil {
		return err
	}
	defer h.closeAllClients()

	for {
		select {
		case <-ctx.Done():
			logging.Info().
				Str("component", "websocket-hub").
				Int("clients", h.ClientCount()).
				Msg("WebSocket hub stopping")
			return ctx.Err()

		case msg, ok := <-stream:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return ErrStreamClosed
			}
			h.handle(msg)
		}
	}
}

// String implements fmt.Stringer for supervisor logging.
func (h *Hub) String() string {
	return "websocket-hub"
}

func (h *Hub) handle(msg *message.Message) {
	defer msg.Ack()

	event, err := events.DecodeHistoryEvent(msg.Payload)
	if err != nil {
		logging.Warn().Err(err).Str("message_id", msg.UUID).Msg("Dropping undecodable history event")
		return
	}
	h.Dispatch(event)
}

// Dispatch sends event to every client of event.OwnerID. Clients whose
// buffer is full are disconnected.
func (h *Hub) Dispatch(event *events.HistoryEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	targets := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		if c.ownerID == event.OwnerID {
			targets = append(targets, c)
		}
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].id < targets[j].id })

	frame := Message{Type: MessageTypeHistory, Data: event}
	for _, c := range targets {
		select {
		case c.send <- frame:
		default:
			logging.Warn().Uint64("client_id", c.id).Str("owner_id", c.ownerID).Msg("WebSocket client too slow, disconnecting")
			h.removeLocked(c)
		}
	}
}

// Register adds a client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()
	logging.Debug().Str("owner_id", c.ownerID).Int("total_clients", total).Msg("WebSocket client connected")
}

// Unregister removes a client and closes its send channel. Safe to call twice.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	h.removeLocked(c)
	total := len(h.clients)
	h.mu.Unlock()
	logging.Debug().Str("owner_id", c.ownerID).Int("total_clients", total).Msg("WebSocket client disconnected")
}

// reply queues msg for c if it is still registered.
func (h *Hub) reply(c *Client, msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

func (h *Hub) removeLocked(c *Client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.removeLocked(c)
	}
}
