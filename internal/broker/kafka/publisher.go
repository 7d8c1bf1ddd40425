// Package kafka publishes scheduling notifications to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"quest-scheduler-go/internal/config"
	"quest-scheduler-go/internal/domain/notify"
	"quest-scheduler-go/internal/metrics"
	"quest-scheduler-go/pkg/logger"
)

const (
	EventSessionCanceled      = "session_canceled"
	EventRefundRequested      = "refund_requested"
	EventJoinRequestSubmitted = "join_request_submitted"

	eventTypeHeader = "event-type"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Envelope is the JSON value of every published message.
type Envelope struct {
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

type Publisher struct {
	writer  messageWriter
	timeout time.Duration
	now     func() time.Time
	log     logger.Logger
}

var _ notify.Notifier = (*Publisher)(nil)

func NewPublisher(cfg config.KafkaConfig, log logger.Logger) *Publisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		WriteTimeout:           cfg.WriteTimeout,
		AllowAutoTopicCreation: true,
	}
	return newPublisher(writer, cfg.WriteTimeout, log)
}

func newPublisher(writer messageWriter, timeout time.Duration, log logger.Logger) *Publisher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Publisher{
		writer:  writer,
		timeout: timeout,
		now:     func() time.Time { return time.Now().UTC() },
		log:     log,
	}
}

func (p *Publisher) SessionCanceled(ctx context.Context, event notify.SessionCanceled) error {
	return p.publish(ctx, EventSessionCanceled, event.SessionID, event)
}

func (p *Publisher) RefundRequested(ctx context.Context, event notify.RefundRequested) error {
	return p.publish(ctx, EventRefundRequested, event.SessionID, event)
}

func (p *Publisher) JoinRequestSubmitted(ctx context.Context, event notify.JoinRequestSubmitted) error {
	return p.publish(ctx, EventJoinRequestSubmitted, event.CampaignID, event)
}

// publish keys messages by the aggregate id so events for one session or
// campaign land on the same partition in order.
func (p *Publisher) publish(ctx context.Context, eventType, key string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("kafka: marshal %s: %w", eventType, err)
	}
	value, err := json.Marshal(Envelope{Type: eventType, OccurredAt: p.now(), Payload: body})
	if err != nil {
		return fmt.Errorf("kafka: marshal envelope: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(key),
		Value:   value,
		Headers: []kafka.Header{{Key: eventTypeHeader, Value: []byte(eventType)}},
		Time:    p.now(),
	})
	metrics.RecordNotification(eventType, err == nil)
	if err != nil {
		return fmt.Errorf("kafka: publish %s: %w", eventType, err)
	}
	p.log.Debug("kafka: event published", "type", eventType, "key", key)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
