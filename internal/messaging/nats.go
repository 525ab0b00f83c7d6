// Package messaging provides the event publishers the schedule service can
// be configured with. Both producers serialize payloads as JSON and report
// publish metrics; which one runs is decided by events.driver in the config.
package messaging

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"schedule-service/internal/metrics"
)

type NATSProducer struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewNATSProducer(url string, subject string, logger *slog.Logger, m *metrics.Metrics) (*NATSProducer, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, err
	}

	m.Messaging.RecordConnectionChange(context.Background(), 1)
	logger.Info("NATS producer initialized", "url", url, "subject", subject)

	return &NATSProducer{
		conn:    nc,
		subject: subject,
		logger:  logger,
		metrics: m,
	}, nil
}

// Publish sends value to the configured subject. NATS has no notion of a
// partition key, so key is ignored here.
func (p *NATSProducer) Publish(ctx context.Context, key string, value interface{}) error {
	valueBytes, err := json.Marshal(value)
	if err != nil {
		p.logger.Error("failed to marshal message", "error", err)
		return err
	}

	start := time.Now()
	err = p.conn.Publish(p.subject, valueBytes)
	p.metrics.Messaging.RecordPublish(ctx, p.subject, time.Since(start), err)
	if err != nil {
		p.logger.Error("failed to send message to NATS", "error", err)
		return err
	}

	p.logger.Info("message sent to NATS", "subject", p.subject)
	return nil
}

func (p *NATSProducer) Close() error {
	p.conn.Close()
	p.metrics.Messaging.RecordConnectionChange(context.Background(), -1)
	return nil
}
