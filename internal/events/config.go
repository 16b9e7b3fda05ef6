// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

package events

import (
	"fmt"
	"strings"
	"time"
)

// Transports.
const (
	TransportChannel = "channel"
	TransportNATS    = "nats"
)

// DefaultTopic receives every history event. JetStream stream names cannot
// contain dots, so the topic doubles as the stream name.
const DefaultTopic = "tenantvault-backup-history"

// Config selects and tunes the event transport.
type Config struct {
	Enabled bool `koanf:"enabled"`

	// Transport is "channel" (in-process) or "nats"
	Transport string `koanf:"transport"`
	Topic     string `koanf:"topic"`

	// NATS connection settings
	URL             string        `koanf:"url"`
	MaxReconnects   int           `koanf:"max_reconnects"`
	ReconnectWait   time.Duration `koanf:"reconnect_wait"`
	ReconnectBuffer int           `koanf:"reconnect_buffer"`

	// Embedded starts an in-process JetStream server; URL is then ignored
	Embedded EmbeddedConfig `koanf:"embedded"`

	// AutoProvision creates the JetStream stream on first publish
	AutoProvision bool `koanf:"auto_provision"`
	TrackMsgID    bool `koanf:"track_msg_id"`

	// ChannelBuffer is the per-subscriber buffer of the in-process transport
	ChannelBuffer int64 `koanf:"channel_buffer"`

	// Consecutive publish failures before the breaker opens
	BreakerFailures uint32        `koanf:"breaker_failures"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout"`
}

// DefaultConfig publishes in-process.
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		Transport:       TransportChannel,
		Topic:           DefaultTopic,
		URL:             "nats://127.0.0.1:4222",
		Embedded:        DefaultEmbeddedConfig(),
		MaxReconnects:   -1,
		ReconnectWait:   2 * time.Second,
		ReconnectBuffer: 8 * 1024 * 1024,
		AutoProvision:   true,
		TrackMsgID:      true,
		ChannelBuffer:   64,
		BreakerFailures: 5,
		BreakerTimeout:  30 * time.Second,
	}
}

// Validate checks the transport settings.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	switch c.Transport {
	case TransportChannel:
	case TransportNATS:
		if c.Embedded.Enabled {
			if c.Embedded.StoreDir == "" {
				return fmt.Errorf("events embedded store_dir is required")
			}
		} else if c.URL == "" {
			return fmt.Errorf("events url is required for the nats transport")
		}
	default:
		return fmt.Errorf("events transport must be %q or %q, got %q", TransportChannel, TransportNATS, c.Transport)
	}
	if c.Topic == "" {
		return fmt.Errorf("events topic is required")
	}
	if c.Transport == TransportNATS && strings.ContainsAny(c.Topic, ". *>") {
		return fmt.Errorf("events topic %q is not a valid JetStream stream name", c.Topic)
	}
	if c.BreakerFailures == 0 {
		return fmt.Errorf("events breaker_failures must be > 0")
	}
	return nil
}
