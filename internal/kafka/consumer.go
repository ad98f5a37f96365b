package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"ms-eventpass/internal/logger"

	"github.com/segmentio/kafka-go"
)

// MessageReader is the part of *kafka.Reader the consumer uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Handler func(ctx context.Context, msg kafka.Message) error

type Consumer struct {
	Reader MessageReader
	Logger *logger.Logger
}

// NewConsumer creates a new Kafka consumer for the given topic and group
func NewConsumer(brokers []string, topic, groupID string, log *logger.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{Reader: reader, Logger: log}
}

// Start consumes until ctx is done. Handler errors are logged and the
// message is committed anyway so one bad message cannot stall the group.
func (c *Consumer) Start(ctx context.Context, handler Handler) error {
	c.Logger.Info("KAFKA", "Consumer started")
	for {
		msg, err := c.Reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.Logger.Info("KAFKA", "Consumer stopped")
				return nil
			}
			c.Logger.Error("KAFKA", fmt.Sprintf("Error reading message: %v", err))
			return err
		}

		if err := handler(ctx, msg); err != nil {
			c.Logger.Error("KAFKA", fmt.Sprintf("Handler failed for %s/%d@%d: %v", msg.Topic, msg.Partition, msg.Offset, err))
		}

		if err := c.Reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.Logger.Warn("KAFKA", fmt.Sprintf("Failed to commit offset %d on %s: %v", msg.Offset, msg.Topic, err))
		}
	}
}

// Decode unmarshals a JSON message value into v.
func Decode(msg kafka.Message, v interface{}) error {
	if err := json.Unmarshal(msg.Value, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s message: %w", msg.Topic, err)
	}
	return nil
}

// Close gracefully shuts down the Kafka reader
func (c *Consumer) Close() error {
	return c.Reader.Close()
}
