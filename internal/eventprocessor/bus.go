// Lookout - Radio Target Continuity Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lookout

package eventprocessor

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/lookout/internal/logging"
)

// Bus is the message transport position reports travel on. The router
// asks for a fresh subscriber each time it starts because watermill closes
// a router's subscribers when the router stops.
type Bus interface {
	Publisher() message.Publisher
	NewSubscriber() (message.Subscriber, error)
	Connected() bool
	Close() error
}

// NewLogger returns the watermill adapter used by every messaging component.
func NewLogger() watermill.LoggerAdapter {
	return watermill.NewSlogLogger(logging.NewSlogLogger())
}

// inProcessBus is a gochannel pub/sub shared by publisher and subscribers.
type inProcessBus struct {
	gc *gochannel.GoChannel
}

// NewInProcessBus returns a bus that never leaves the process. It backs
// NATS-less deployments (reports arrive over HTTP) and tests.
func NewInProcessBus(logger watermill.LoggerAdapter) Bus {
	if logger == nil {
		logger = NewLogger()
	}
	return &inProcessBus{
		gc: gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, logger),
	}
}

func (b *inProcessBus) Publisher() message.Publisher { return b.gc }

func (b *inProcessBus) NewSubscriber() (message.Subscriber, error) {
	return nopCloseSubscriber{b.gc}, nil
}

func (b *inProcessBus) Connected() bool { return true }

func (b *inProcessBus) Close() error { return b.gc.Close() }

// nopCloseSubscriber keeps a router from closing the shared gochannel.
type nopCloseSubscriber struct {
	message.Subscriber
}

func (nopCloseSubscriber) Close() error { return nil }

// natsBus publishes and subscribes over core NATS.
type natsBus struct {
	cfg       Config
	url       string
	logger    watermill.LoggerAdapter
	conn      *natsgo.Conn
	publisher message.Publisher
}

// NewNATSBus connects to url. The connection retries in the background so
// the process can start before the NATS server does.
func NewNATSBus(cfg Config, url string, logger watermill.LoggerAdapter) (Bus, error) {
	if logger == nil {
		logger = NewLogger()
	}
	b := &natsBus{cfg: cfg, url: url, logger: logger}

	conn, err := natsgo.Connect(url, b.natsOptions("lookout-publisher")...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	pub, err := wmNats.NewPublisherWithNatsConn(conn, wmNats.PublisherPublishConfig{
		Marshaler: &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}

	b.conn = conn
	b.publisher = pub
	return b, nil
}

func (b *natsBus) natsOptions(name string) []natsgo.Option {
	return []natsgo.Option{
		natsgo.Name(name),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(b.cfg.MaxReconnects),
		natsgo.ReconnectWait(b.cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logging.Warn().Err(err).Str("client", name).Msg("NATS disconnected")
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logging.Info().Str("client", name).Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}
}

func (b *natsBus) Publisher() message.Publisher { return b.publisher }

func (b *natsBus) NewSubscriber() (message.Subscriber, error) {
	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              b.url,
		QueueGroupPrefix: b.cfg.QueueGroup,
		SubscribersCount: b.cfg.SubscribersCount,
		CloseTimeout:     b.cfg.Router.CloseTimeout,
		AckWaitTimeout:   b.cfg.Router.CloseTimeout,
		NatsOptions:      b.natsOptions("lookout-subscriber"),
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream:        wmNats.JetStreamConfig{Disabled: true},
	}, b.logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill subscriber: %w", err)
	}
	return sub, nil
}

func (b *natsBus) Connected() bool { return b.conn.IsConnected() }

func (b *natsBus) Close() error {
	err := b.publisher.Close()
	b.conn.Close()
	return err
}
