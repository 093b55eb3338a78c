package kafka

import (
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// NewProducer initializes and returns a new Kafka writer for lobby events.
// Writes are asynchronous so a slow broker never stalls the event dispatcher.
func NewProducer(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{}, // Keyed by match id.
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		BatchTimeout: 50 * time.Millisecond,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				slog.Error("Kafka async write failed", "messages", len(messages), "error", err)
			}
		},
	}
}
