package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// LogSender simulates delivery by writing each message to the log.
type LogSender struct {
	logger zerolog.Logger
}

func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info().
		Str("channel", string(msg.Channel)).
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Str("body", msg.Body).
		Msg("Notification sent (simulated)")
	return nil
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSender publishes messages as JSON to a topic so an external
// delivery worker can send the real email or WhatsApp message.
type KafkaSender struct {
	writer messageWriter
	logger zerolog.Logger
}

func NewKafkaSender(brokers []string, topic string, logger zerolog.Logger) *KafkaSender {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireOne,
		MaxAttempts:            3,
		WriteTimeout:           5 * time.Second,
	}

	logger.Info().Strs("brokers", brokers).Str("topic", topic).Msg("Kafka notification sender created")
	return &KafkaSender{writer: writer, logger: logger}
}

func (s *KafkaSender) Send(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	err = s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.To),
		Value: data,
		Headers: []kafka.Header{
			{Key: "channel", Value: []byte(msg.Channel)},
		},
	})
	if err != nil {
		s.logger.Error().Err(err).Str("to", msg.To).Msg("Failed to publish notification")
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

func (s *KafkaSender) Close() error {
	return s.writer.Close()
}
