package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"
)

// KafkaSink publishes events as JSON, keyed by match id so every event of a
// match lands on the same partition.
type KafkaSink struct {
	writer *kafka.Writer
}

func NewKafkaSink(writer *kafka.Writer) *KafkaSink {
	return &KafkaSink{writer: writer}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Deliver(ctx context.Context, e Event) error {
	msg, err := EncodeMessage(e)
	if err != nil {
		return err
	}
	return s.writer.WriteMessages(ctx, msg)
}

func (s *KafkaSink) Close() error { return s.writer.Close() }

// EncodeMessage builds the Kafka record for e.
func EncodeMessage(e Event) (kafka.Message, error) {
	value, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal %s event: %w", e.Kind, err)
	}
	return kafka.Message{
		Key:   []byte(e.MatchID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(e.Kind)},
		},
	}, nil
}

// DecodeMessage parses a record produced by EncodeMessage.
func DecodeMessage(msg kafka.Message) (Event, error) {
	var e Event
	if err := json.Unmarshal(msg.Value, &e); err != nil {
		return Event{}, fmt.Errorf("unmarshal event %q: %w", string(msg.Key), err)
	}
	return e, nil
}

// Consume reads events until ctx is cancelled and passes each to handle.
// Undecodable records are logged and skipped.
func Consume(ctx context.Context, reader *kafka.Reader, handle func(Event)) {
	slog.Info("Kafka consumer loop started")
	defer reader.Close()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				slog.Info("Kafka consumer context cancelled. Shutting down.")
				return
			}
			slog.Error("Error reading from Kafka", "error", err)
			continue
		}

		e, err := DecodeMessage(msg)
		if err != nil {
			slog.Error("Failed to decode lobby event", "offset", msg.Offset, "error", err)
			continue
		}
		handle(e)
	}
}
