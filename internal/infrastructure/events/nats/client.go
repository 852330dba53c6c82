// Package nats forwards catalog events to NATS JetStream.
package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/narwhalmedia/catalog/pkg/interfaces"
)

// SubjectPrefix is the subject namespace of catalog events.
const SubjectPrefix = "catalog"

// Client wraps the NATS connection and its JetStream context.
type Client struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	logger interfaces.Logger
}

// Connect dials url, ensures the stream exists and returns a cleanup
// function that drains the connection.
func Connect(ctx context.Context, url, clientName, streamName string, logger interfaces.Logger) (*Client, func(), error) {
	log := logger.WithFields(interfaces.String("component", "nats"))
	opts := []nats.Option{
		nats.Name(clientName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("NATS disconnected", interfaces.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", interfaces.String("url", nc.ConnectedUrl()))
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	if _, err := js.CreateOrUpdateStream(ctx, StreamConfig(streamName)); err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("failed to create stream %s: %w", streamName, err)
	}

	cleanup := func() {
		if err := nc.Drain(); err != nil {
			log.Error("Failed to drain NATS connection", interfaces.Error(err))
		}
	}

	log.Info("NATS client initialized",
		interfaces.String("url", url),
		interfaces.String("stream", streamName))
	return &Client{nc: nc, js: js, logger: log}, cleanup, nil
}

// StreamConfig is the stream catalog events are stored in.
func StreamConfig(name string) jetstream.StreamConfig {
	return jetstream.StreamConfig{
		Name:        name,
		Description: "Catalog scan and item events",
		Subjects:    []string{SubjectPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      7 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Discard:     jetstream.DiscardOld,
		Duplicates:  2 * time.Minute,
		Replicas:    1,
	}
}

// JetStream returns the JetStream context.
func (c *Client) JetStream() jetstream.JetStream {
	return c.js
}
