package kafka

import (
	"context"
	"log/slog"

	"github.com/segmentio/kafka-go"
)

// Message is what a MessageHandler sees of a consumed record.
type Message struct {
	Key       []byte
	Value     []byte
	EventType string
	Partition int
	Offset    int64
}

type MessageHandler func(ctx context.Context, msg Message) error

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type Consumer struct {
	reader messageReader
	logger *slog.Logger
}

// NewConsumer joins groupID on topic. An empty groupID reads partition 0
// from the latest offset without committing, which suits tailing.
func NewConsumer(brokers []string, topic, groupID string, logger *slog.Logger) *Consumer {
	cfg := kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	}
	if groupID == "" {
		cfg.StartOffset = kafka.LastOffset
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		reader: kafka.NewReader(cfg),
		logger: logger.With("component", "kafka_consumer", "topic", topic),
	}
}

// Consume hands every message to handler until ctx ends. Read and handler
// errors are logged and consumption continues.
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
				c.logger.Error("error reading message", "error", err)
				continue
			}

			m := Message{
				Key:       msg.Key,
				Value:     msg.Value,
				Partition: msg.Partition,
				Offset:    msg.Offset,
			}
			for _, h := range msg.Headers {
				if h.Key == HeaderEventType {
					m.EventType = string(h.Value)
				}
			}

			if err := handler(ctx, m); err != nil {
				c.logger.Error("error handling message", "offset", msg.Offset, "error", err)
			}
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
