// Package events publishes wizard lifecycle events to a Kafka topic so
// downstream consumers (auditing, analytics) can follow optimization
// activity. Publication is best-effort: a broker outage never blocks
// or fails the wizard itself.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// Event is one lifecycle record on the wire.
type Event struct {
	Type      string    `json:"type"`
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher writes lifecycle events. The zero value is disabled; use
// New to enable it when brokers are configured.
type Publisher struct {
	writer *kafka.Writer
	log    *slog.Logger
}

// New builds a publisher for the given brokers and topic. Empty
// brokers return a disabled publisher whose Emit is a no-op.
func New(brokers []string, topic string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Publisher{log: logger.With(slog.String("component", "events"))}
	if len(brokers) == 0 || topic == "" {
		p.log.Info("events_disabled")
		return p
	}
	p.writer = &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		BatchTimeout: 200 * time.Millisecond,
	}
	p.log.Info("events_enabled", slog.String("topic", topic))
	return p
}

// Emit publishes one lifecycle event, keyed by session so per-session
// ordering survives partitioning. Errors are logged and swallowed.
func (p *Publisher) Emit(ctx context.Context, event, sessionID string) {
	if p == nil || p.writer == nil {
		return
	}
	payload, err := json.Marshal(Event{
		Type:      event,
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		p.log.Error("event_encode_failed", slog.Any("err", err))
		return
	}
	msg := kafka.Message{
		Key:   []byte(sessionID),
		Value: payload,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Warn("event_publish_failed", slog.String("event", event), slog.Any("err", err))
	}
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
