package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ticket-booking/pkg/utils"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQ owns one connection and a publishing channel guarded by a mutex,
// since amqp channels are not safe for concurrent publishes.
type RabbitMQ struct {
	conn     *amqp.Connection
	pubCh    *amqp.Channel
	mu       sync.Mutex
	exchange string
}

// NewRabbitMQ dials the broker and declares the durable topic exchange
// events are published to.
func NewRabbitMQ(cfg utils.RabbitMQConfig) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", cfg.Exchange, err)
	}

	return &RabbitMQ{conn: conn, pubCh: ch, exchange: cfg.Exchange}, nil
}

// Publish sends a persistent JSON message with routingKey on the exchange.
func (r *RabbitMQ) Publish(ctx context.Context, routingKey, messageID string, body []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.pubCh.PublishWithContext(ctx, r.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    messageID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}

// Consume declares a durable queue bound to routingKey and starts delivery
// on a dedicated channel. The caller acks each delivery.
func (r *RabbitMQ) Consume(queue, routingKey string, prefetch int) (<-chan amqp.Delivery, *amqp.Channel, error) {
	ch, err := r.conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.Qos(prefetch, 0, false); err != nil {
		_ = ch.Close()
		return nil, nil, fmt.Errorf("set qos: %w", err)
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}

	if err := ch.QueueBind(queue, routingKey, r.exchange, false, nil); err != nil {
		_ = ch.Close()
		return nil, nil, fmt.Errorf("bind queue %s: %w", queue, err)
	}

	deliveries, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, nil, fmt.Errorf("consume %s: %w", queue, err)
	}

	return deliveries, ch, nil
}

func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.pubCh.Close(); err != nil && err != amqp.ErrClosed {
		_ = r.conn.Close()
		return err
	}
	return r.conn.Close()
}
