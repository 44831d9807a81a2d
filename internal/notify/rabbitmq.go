package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// RabbitMQ publishes order events to a durable queue.
type RabbitMQ struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	logger  *otelzap.Logger
}

// NewRabbitMQ connects to url and declares the queue.
func NewRabbitMQ(url, queue string, logger *otelzap.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connecting to rabbitmq: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening channel: %w", err)
	}

	if _, err := channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declaring queue %s: %w", queue, err)
	}

	return &RabbitMQ{
		conn:    conn,
		channel: channel,
		queue:   queue,
		logger:  logger,
	}, nil
}

// OrderEvent publishes the event. Failures are logged, never surfaced: event
// delivery must not gate the saga that produced it.
func (r *RabbitMQ) OrderEvent(ctx context.Context, event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	body, err := json.Marshal(event)
	if err != nil {
		r.logger.Ctx(ctx).Warn("failed to encode order event", zap.Error(err))
		return
	}

	pubCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = r.channel.PublishWithContext(pubCtx, "", r.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.OccurredAt,
		Body:         body,
	})
	if err != nil {
		r.logger.Ctx(ctx).Warn("failed to publish order event",
			zap.String("order_id", event.OrderID),
			zap.String("type", event.Type),
			zap.Error(err),
		)
	}
}

// Close releases the channel and connection.
func (r *RabbitMQ) Close() {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		r.conn.Close()
	}
}
