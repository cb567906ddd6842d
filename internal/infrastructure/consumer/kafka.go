package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"shopify-integration-layer/internal/domain"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

const DefaultKafkaTopic = "shopify-orders"

// messageWriter is the subset of kafka.Writer used for delivery
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConsumer publishes each order to a topic keyed by the order id, so
// all events of one order land on the same partition
type KafkaConsumer struct {
	writer messageWriter
	logger zerolog.Logger
}

func NewKafkaConsumer(brokers []string, topic string, logger zerolog.Logger) *KafkaConsumer {
	if topic == "" {
		topic = DefaultKafkaTopic
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}
	return &KafkaConsumer{writer: writer, logger: logger}
}

func (c *KafkaConsumer) Deliver(ctx context.Context, order *domain.Order) error {
	value, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to encode order: %w", err)
	}

	key := order.OrderID
	if key == "" {
		key = order.ID
	}
	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "topic", Value: []byte(order.WebhookInfo.Topic)},
			{Key: "shop", Value: []byte(order.WebhookInfo.ShopDomain)},
		},
	}
	if err := c.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish order: %w", err)
	}
	return nil
}

func (c *KafkaConsumer) Close() error {
	return c.writer.Close()
}
