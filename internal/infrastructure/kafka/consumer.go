package kafka

import (
	"context"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// MessageHandler processes a single message.
type MessageHandler func(ctx context.Context, key, value []byte) error

// Consumer reads a topic as part of a consumer group. Handler errors are
// logged and the message is skipped.
type Consumer struct {
	reader *kafka.Reader
}

// NewConsumer creates a consumer that starts from the newest offset when
// its group has no committed position. Relayed events are only useful
// while they are fresh.
func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     groupID,
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    10e6, // 10MB
		MaxWait:     250 * time.Millisecond,
	})
	return &Consumer{reader: reader}
}

// Consume blocks until ctx is cancelled.
func (c *Consumer) Consume(ctx context.Context, handler MessageHandler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Printf("[Kafka] Error reading message: %v", err)
				continue
			}

			if err := handler(ctx, msg.Key, msg.Value); err != nil {
				log.Printf("[Kafka] Error handling message %s@%d: %v", msg.Topic, msg.Offset, err)
			}
		}
	}
}

// Close closes the reader and leaves the group.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
