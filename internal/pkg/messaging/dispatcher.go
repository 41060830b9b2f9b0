// Package messaging hands overdue notices to the messaging collaborator. Delivery to
// employees (SMS, push) happens downstream.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/overdue"
	"github.com/segmentio/kafka-go"
)

const DefaultReminderTopic = "timeclock.overdue-punch"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaDispatcher publishes each notice as one message keyed by time entry, so every
// notice of an entry lands on the same partition in stage order.
// Consumers dedupe redeliveries on the idempotency_key header.
type KafkaDispatcher struct {
	writer messageWriter
	topic  string
}

func NewKafkaDispatcher(writer *kafka.Writer, topic string) overdue.Dispatcher {
	if topic == "" {
		topic = DefaultReminderTopic
	}
	return &KafkaDispatcher{writer: writer, topic: topic}
}

// NewKafkaWriter builds the writer used by NewKafkaDispatcher. Writes are synchronous and
// wait for all in-sync replicas so a returned nil means the notice is stored.
func NewKafkaWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
	}
}

func (d *KafkaDispatcher) Dispatch(ctx context.Context, n overdue.Notice) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notice: %w", err)
	}

	msg := kafka.Message{
		Topic: d.topic,
		Key:   []byte(n.TimeEntryID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "stage", Value: []byte(n.Stage)},
			{Key: "idempotency_key", Value: []byte(n.IdempotencyKey)},
		},
	}
	if err := d.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish notice %s: %w", n.IdempotencyKey, err)
	}
	return nil
}

// LogDispatcher only logs notices. Used when no broker is configured.
type LogDispatcher struct{}

func NewLogDispatcher() overdue.Dispatcher {
	return LogDispatcher{}
}

func (LogDispatcher) Dispatch(ctx context.Context, n overdue.Notice) error {
	slog.InfoContext(ctx, "Overdue notice",
		"idempotency_key", n.IdempotencyKey,
		"stage", n.Stage,
		"time_entry_id", n.TimeEntryID,
		"employee_id", n.EmployeeID,
		"dealership_id", n.DealershipID,
		"minutes_overdue", n.MinutesOverdue,
	)
	return nil
}
