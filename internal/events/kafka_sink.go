package events

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"
	"github.com/wolfman30/inkstudio-platform/pkg/logging"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink republishes delivered events to a Kafka topic keyed by aggregate id.
type KafkaSink struct {
	writer messageWriter
	logger *logging.Logger
}

// NewKafkaSink returns nil when no brokers are configured.
func NewKafkaSink(brokers []string, topic string, logger *logging.Logger) *KafkaSink {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}
	return &KafkaSink{writer: writer, logger: logger}
}

func newKafkaSinkWithWriter(w messageWriter) *KafkaSink {
	return &KafkaSink{writer: w, logger: logging.Default()}
}

func (s *KafkaSink) Publish(ctx context.Context, evt Event) error {
	if s == nil || s.writer == nil {
		return nil
	}
	msg := kafka.Message{
		Key:   []byte(evt.AggregateID),
		Value: evt.Payload,
		Time:  evt.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(evt.ID.String())},
			{Key: "event_type", Value: []byte(evt.Type)},
		},
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("events: kafka publish %s: %w", evt.Type, err)
	}
	return nil
}

func (s *KafkaSink) Close() error {
	if s == nil || s.writer == nil {
		return nil
	}
	return s.writer.Close()
}
