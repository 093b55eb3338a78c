package kafka

import (
	"time"

	"github.com/segmentio/kafka-go"
)

// NewConsumer initializes and returns a new Kafka reader (consumer).
func NewConsumer(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        500 * time.Millisecond,
		CommitInterval: time.Second,
	})
}
