// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/tenantvault/internal/backup"
	"github.com/tomtom215/tenantvault/internal/events"
	"github.com/tomtom215/tenantvault/internal/testinfra"
	ws "github.com/tomtom215/tenantvault/internal/websocket"
)

// readySource signals once the hub has subscribed, so no event is published
// before anyone listens.
type readySource struct {
	*events.Publisher
	ready chan struct{}
}

func (s readySource) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	ch, err := s.Publisher.Subscribe(ctx)
	close(s.ready)
	return ch, err
}

func TestEventStream_Disabled(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t, nil)
	code, env := e.do(t, http.MethodGet, "/api/v1/events/ws", "tenant-a", nil)
	if code != http.StatusServiceUnavailable || errorCode(env) != codeUnavailable {
		t.Errorf("GET /events/ws = %d %s, want 503", code, errorCode(env))
	}
}

func TestEventStream_DeliversCallerHistory(t *testing.T) {
	t.Parallel()

	pub, err := events.NewPublisher(events.DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}
	t.Cleanup(func() { _ = pub.Close() })

	src := readySource{Publisher: pub, ready: make(chan struct{})}
	hub := ws.NewHub(src)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = hub.Serve(ctx) }()
	<-src.ready

	e := newTestEnvWithHub(t, nil, hub, testinfra.WithNotifier(pub))
	srv := httptest.NewServer(e.server)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/events/ws"
	header := http.Header{}
	header.Set(tenantHeader, "tenant-a")
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })

	deadline := time.Now().Add(5 * time.Second)
	for hub.ClientCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	e.MustCreate(t, "tenant-b", backup.CreateOptions{})
	b := e.MustCreate(t, "tenant-a", backup.CreateOptions{})

	if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		t.Fatalf("SetReadDeadline: %v", err)
	}
	var frame struct {
		Type string              `json:"type"`
		Data events.HistoryEvent `json:"data"`
	}
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if frame.Type != ws.MessageTypeHistory || frame.Data.OwnerID != "tenant-a" || frame.Data.BackupID != b.ID {
		t.Errorf("frame = %+v, want tenant-a created event for %s", frame, b.ID)
	}
}

func TestCheckOrigin(t *testing.T) {
	t.Parallel()

	h := NewHandler(HandlerDeps{}, HandlerConfig{AllowedOrigins: []string{"https://console.example.com"}})
	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"https://console.example.com", true},
		{"https://evil.example.com", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/api/v1/events/ws", nil)
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		if got := h.checkOrigin(r); got != tt.want {
			t.Errorf("checkOrigin(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}
}
