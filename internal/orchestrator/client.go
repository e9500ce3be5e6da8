package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Client is the one-way notification channel to the validation-run
// orchestrator. Publishes are advisory: the decision record is the source of
// truth, and a failed publish is logged by the caller, never rolled back.
type Client interface {
	Publish(subject string, data interface{}) error
	// PublishSync publishes and waits for the server to acknowledge the
	// flush, bounded by timeout. Used for the resume notification, which
	// must not hold the request open indefinitely.
	PublishSync(subject string, data interface{}, timeout time.Duration) error
	Close()
}

type NATSClient struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	logger *slog.Logger
}

func NewNATSClient(ctx context.Context, url string, logger *slog.Logger) (*NATSClient, error) {
	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	c := &NATSClient{conn: nc, js: js, logger: logger}
	if err := c.ensureStream(ctx); err != nil {
		logger.Warn("failed to ensure stream", "error", err)
	}
	return c, nil
}

func (c *NATSClient) ensureStream(ctx context.Context) error {
	maxAge, _ := time.ParseDuration(StreamMaxAge)
	_, err := c.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     StreamName,
		Subjects: []string{"validation.run.>", "validation.gate.>", "validation.approval.>"},
		MaxAge:   maxAge,
	})
	return err
}

func (c *NATSClient) Publish(subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return c.conn.Publish(subject, payload)
}

func (c *NATSClient) PublishSync(subject string, data interface{}, timeout time.Duration) error {
	if err := c.Publish(subject, data); err != nil {
		return err
	}
	return c.conn.FlushTimeout(timeout)
}

func (c *NATSClient) Close() {
	c.conn.Close()
}
