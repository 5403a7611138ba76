package nats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/jiwoo-ai/jiwoo/internal/config"
)

// turnStream holds completed turns until the write-back consumer acks them.
var turnStream = jetstream.StreamConfig{
	Name:      StreamTurns,
	Subjects:  []string{"jiwoo.turns.>"},
	Retention: jetstream.WorkQueuePolicy,
	MaxAge:    24 * time.Hour,
	Discard:   jetstream.DiscardOld,
}

// Client is a NATS connection with a JetStream context.
type Client struct {
	conn *nats.Conn
	js   jetstream.JetStream
}

// NewClient connects and makes sure the turn stream exists.
func NewClient(ctx context.Context, cfg config.NATSConfig) (*Client, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name("jiwoo"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats: disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			slog.Info("nats: reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("creating JetStream context: %w", err)
	}

	if _, err := js.CreateOrUpdateStream(ctx, turnStream); err != nil {
		nc.Close()
		return nil, fmt.Errorf("creating stream %s: %w", turnStream.Name, err)
	}

	slog.Info("nats: connected", "url", cfg.URL, "stream", turnStream.Name)
	return &Client{conn: nc, js: js}, nil
}

func (c *Client) JetStream() jetstream.JetStream {
	return c.js
}

// HealthCheck reports an error when the connection is down.
func (c *Client) HealthCheck(_ context.Context) error {
	if !c.conn.IsConnected() {
		return fmt.Errorf("nats status %s", c.conn.Status())
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (c *Client) Close() {
	if err := c.conn.Drain(); err != nil {
		slog.Warn("nats: draining connection", "error", err)
	}
}
