// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

package events

import (
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

// EmbeddedConfig runs a NATS JetStream server inside the process, for
// single-node deployments that want durable events without a broker.
type EmbeddedConfig struct {
	Enabled bool   `koanf:"enabled"`
	Host    string `koanf:"host"`

	// Port of the client listener; -1 picks a free port
	Port int `koanf:"port"`

	// StoreDir holds JetStream file storage
	StoreDir string `koanf:"store_dir"`

	MaxMemory int64 `koanf:"max_memory"`
	MaxStore  int64 `koanf:"max_store"`
}

// DefaultEmbeddedConfig listens on loopback only.
func DefaultEmbeddedConfig() EmbeddedConfig {
	return EmbeddedConfig{
		Host:      "127.0.0.1",
		Port:      4222,
		StoreDir:  "/data/nats",
		MaxMemory: 64 * 1024 * 1024,
		MaxStore:  1024 * 1024 * 1024,
	}
}

const embeddedReadyTimeout = 30 * time.Second

// EmbeddedServer is an in-process NATS JetStream server.
type EmbeddedServer struct {
	server    *server.Server
	clientURL string
}

// StartEmbeddedServer starts the server and waits until it accepts clients.
func StartEmbeddedServer(cfg EmbeddedConfig) (*EmbeddedServer, error) {
	if cfg.StoreDir == "" {
		return nil, fmt.Errorf("embedded NATS store_dir is required")
	}

	ns, err := server.NewServer(&server.Options{
		ServerName:         "tenantvault-events",
		Host:               cfg.Host,
		Port:               cfg.Port,
		JetStream:          true,
		StoreDir:           cfg.StoreDir,
		JetStreamMaxMemory: cfg.MaxMemory,
		JetStreamMaxStore:  cfg.MaxStore,
		NoSigs:             true,
		MaxPayload:         1024 * 1024,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedded NATS server: %w", err)
	}
	ns.ConfigureLogger()

	go ns.Start()
	if !ns.ReadyForConnections(embeddedReadyTimeout) {
		ns.Shutdown()
		return nil, fmt.Errorf("embedded NATS server not ready within %v", embeddedReadyTimeout)
	}

	return &EmbeddedServer{server: ns, clientURL: ns.ClientURL()}, nil
}

// ClientURL is the URL publishers and subscribers connect to.
func (s *EmbeddedServer) ClientURL() string {
	return s.clientURL
}

// Running reports whether the server is still up.
func (s *EmbeddedServer) Running() bool {
	return s.server.Running()
}

// Shutdown stops the server and waits for it to exit.
func (s *EmbeddedServer) Shutdown() {
	s.server.Shutdown()
	s.server.WaitForShutdown()
}
