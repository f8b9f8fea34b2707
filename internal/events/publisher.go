// Package events publishes order lifecycle notifications to Kafka. All
// publishes are fire-and-forget from the caller's point of view: bus
// unavailability must never fail an order operation.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/freshlane/grocer-orders/internal/domain/order"
)

// Topics.
const (
	TopicOrderCreated     = "order.created"
	TopicPaymentSucceeded = "payment.succeeded"
)

// OrderCreated is the payload published when an order is persisted.
type OrderCreated struct {
	OrderID     int64           `json:"orderId"`
	OrderNumber string          `json:"orderNumber"`
	UserID      int64           `json:"userId"`
	Total       decimal.Decimal `json:"total"`
	Status      string          `json:"status"`
	POS         bool            `json:"pos"`
}

// PaymentSucceeded is the payload published when a payment settles.
type PaymentSucceeded struct {
	OrderNumber string `json:"orderNumber"`
	UserID      int64  `json:"userId"`
}

// Publisher writes events to Kafka.
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher creates a Publisher for the given brokers. Topics are
// auto-created; messages are keyed by order number so per-order ordering is
// preserved.
func NewPublisher(brokers []string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
			BatchTimeout:           100 * time.Millisecond,
		},
	}
}

// PublishOrderCreated publishes an order-created notification.
func (p *Publisher) PublishOrderCreated(ctx context.Context, o *order.Order) error {
	return p.publish(ctx, TopicOrderCreated, o.Number, OrderCreated{
		OrderID:     o.ID,
		OrderNumber: o.Number,
		UserID:      o.UserID,
		Total:       o.Total,
		Status:      string(o.Status),
		POS:         o.POS,
	})
}

// PublishPaymentSucceeded publishes a payment-settled notification.
func (p *Publisher) PublishPaymentSucceeded(ctx context.Context, orderNumber string, userID int64) error {
	return p.publish(ctx, TopicPaymentSucceeded, orderNumber, PaymentSucceeded{
		OrderNumber: orderNumber,
		UserID:      userID,
	})
}

func (p *Publisher) publish(ctx context.Context, topic, key string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
	})
	if err != nil {
		return errors.Wrapf(err, "write message to %s", topic)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// NopPublisher satisfies the order service's EventPublisher without a
// broker. Used when no Kafka brokers are configured.
type NopPublisher struct{}

func (NopPublisher) PublishOrderCreated(context.Context, *order.Order) error { return nil }

func (NopPublisher) PublishPaymentSucceeded(context.Context, string, int64) error { return nil }
