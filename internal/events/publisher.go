// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/tenantvault/internal/backup"
	"github.com/tomtom215/tenantvault/internal/logging"
	"github.com/tomtom215/tenantvault/internal/metrics"
)

// ErrClosed is returned by a closed Publisher.
var ErrClosed = errors.New("publisher is closed")

// Publisher sends history events through Watermill with circuit breaker
// protection. It implements backup.HistoryNotifier.
type Publisher struct {
	publisher message.Publisher
	channel   *gochannel.GoChannel
	breaker   *gobreaker.CircuitBreaker[interface{}]
	topic     string
	cfg       Config
	logger    watermill.LoggerAdapter

	// embedded is set when the publisher owns an in-process NATS server
	embedded *EmbeddedServer

	// subscribers are the NATS subscribers opened by Subscribe
	subscribers []message.Subscriber

	mu     sync.RWMutex
	closed bool
}

var _ backup.HistoryNotifier = (*Publisher)(nil)

// NewPublisher builds the configured transport.
func NewPublisher(cfg Config, logger watermill.LoggerAdapter) (*Publisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = watermill.NewSlogLogger(logging.NewSlogLogger())
	}

	p := &Publisher{
		topic:  cfg.Topic,
		cfg:    cfg,
		logger: logger,
		breaker: gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
			Name:    "events-" + cfg.Transport,
			Timeout: cfg.BreakerTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= cfg.BreakerFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
					Msg("Event publisher circuit breaker state changed")
			},
		}),
	}

	switch cfg.Transport {
	case TransportNATS:
		if cfg.Embedded.Enabled {
			srv, err := StartEmbeddedServer(cfg.Embedded)
			if err != nil {
				return nil, err
			}
			p.embedded = srv
			p.cfg.URL = srv.ClientURL()
			logging.Info().Str("url", p.cfg.URL).Msg("Embedded NATS server started")
		}
		pub, err := newNATSPublisher(p.cfg, logger)
		if err != nil {
			if p.embedded != nil {
				p.embedded.Shutdown()
			}
			return nil, err
		}
		p.publisher = pub
	default:
		p.channel = gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: cfg.ChannelBuffer,
		}, logger)
		p.publisher = p.channel
	}

	logging.Info().Str("transport", cfg.Transport).Str("topic", cfg.Topic).Msg("Event publisher ready")
	return p, nil
}

func natsOptions(cfg Config, logger watermill.LoggerAdapter) []natsgo.Option {
	return []natsgo.Option{
		natsgo.Name("tenantvault"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.ReconnectBufSize(cfg.ReconnectBuffer),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}
}

func newNATSPublisher(cfg Config, logger watermill.LoggerAdapter) (message.Publisher, error) {
	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOptions(cfg, logger),
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: cfg.AutoProvision,
			TrackMsgId:    cfg.TrackMsgID,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create nats publisher: %w", err)
	}
	return pub, nil
}

// NotifyHistory publishes entry. Failures are counted and returned; the
// ledger treats them as best effort.
func (p *Publisher) NotifyHistory(ctx context.Context, entry *backup.HistoryEntry) error {
	event := NewHistoryEvent(entry, logging.CorrelationIDFromContext(ctx))
	data, err := event.Encode()
	if err != nil {
		metrics.RecordEventPublish(err)
		return fmt.Errorf("encode history event: %w", err)
	}

	msg := message.NewMessage(event.EventID, data)
	msg.Metadata.Set("type", event.Type)
	msg.Metadata.Set("owner_id", event.OwnerID)
	msg.Metadata.Set("backup_id", event.BackupID)
	if event.CorrelationID != "" {
		msg.Metadata.Set("correlation_id", event.CorrelationID)
	}
	msg.SetContext(ctx)

	err = p.Publish(msg)
	metrics.RecordEventPublish(err)
	return err
}

// Publish sends msg to the configured topic.
func (p *Publisher) Publish(msg *message.Message) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	if msg.Metadata.Get(natsgo.MsgIdHdr) == "" {
		msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)
	}

	_, err := p.breaker.Execute(func() (interface{}, error) {
		return nil, p.publisher.Publish(p.topic, msg)
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", msg.UUID, err)
	}
	return nil
}

// Subscribe streams events published after the call. On the nats transport
// each call opens an ephemeral JetStream consumer, closed with the Publisher.
// Messages must be acked.
func (p *Publisher) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	if p.channel != nil {
		return p.channel.Subscribe(ctx, p.topic)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrClosed
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:            p.cfg.URL,
		AckWaitTimeout: 30 * time.Second,
		CloseTimeout:   10 * time.Second,
		NatsOptions:    natsOptions(p.cfg, p.logger),
		Unmarshaler:    &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: p.cfg.AutoProvision,
			SubscribeOptions: []natsgo.SubOpt{
				natsgo.DeliverNew(),
				natsgo.AckExplicit(),
			},
		},
	}, p.logger)
	if err != nil {
		return nil, fmt.Errorf("create nats subscriber: %w", err)
	}

	messages, err := sub.Subscribe(ctx, p.topic)
	if err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", p.topic, err)
	}
	p.subscribers = append(p.subscribers, sub)
	return messages, nil
}

// BreakerState reports the publish circuit breaker state.
func (p *Publisher) BreakerState() gobreaker.State {
	return p.breaker.State()
}

// Close shuts the transport down. It is safe to call more than once.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	var errs []error
	for _, sub := range p.subscribers {
		if err := sub.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := p.publisher.Close(); err != nil {
		errs = append(errs, err)
	}
	if p.embedded != nil {
		p.embedded.Shutdown()
	}
	return errors.Join(errs...)
}
