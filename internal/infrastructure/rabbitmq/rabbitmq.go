package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/cartelera/internal/eventbus"
	"github.com/example/cartelera/internal/logging"
	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
)

// channel is the subset of *amqp.Channel used here.
type channel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

// Broker publishes and consumes event envelopes on one durable queue.
type Broker struct {
	conn    *amqp.Connection
	channel channel
	queue   string
	log     zerolog.Logger
}

// Dial connects, opens a channel and declares the queue.
func Dial(url, queue string, logger zerolog.Logger) (*Broker, error) {
	log := logging.Component(logger, "rabbitmq")

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	_, err = ch.QueueDeclare(
		queue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("rabbitmq declare %s: %w", queue, err)
	}

	log.Info().Str("queue", queue).Msg("connected to RabbitMQ")
	return &Broker{conn: conn, channel: ch, queue: queue, log: log}, nil
}

func (b *Broker) Publish(_ context.Context, e eventbus.Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return b.channel.Publish("", b.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    e.ID,
		Type:         e.Type,
		Timestamp:    e.Timestamp,
		Body:         body,
	})
}

// Consume delivers envelopes to handler until ctx is done. Messages are
// acked after handling; malformed ones are rejected without requeue and
// handler failures are requeued once.
func (b *Broker) Consume(ctx context.Context, handler eventbus.Handler) error {
	deliveries, err := b.channel.Consume(
		b.queue,
		"",    // consumer tag
		false, // auto-ack (manual acknowledgment)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("rabbitmq consume %s: %w", b.queue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("rabbitmq: delivery channel closed")
			}
			b.handle(ctx, d, handler)
		}
	}
}

func (b *Broker) handle(ctx context.Context, d amqp.Delivery, handler eventbus.Handler) {
	e, err := eventbus.Parse(d.Body)
	if err != nil {
		b.log.Warn().Err(err).Str("message_id", d.MessageId).Msg("rejecting malformed message")
		_ = d.Reject(false)
		return
	}
	if err := handler(ctx, e); err != nil {
		b.log.Error().Err(err).Str("event_type", e.Type).Str("event_id", e.ID).Msg("error handling message")
		_ = d.Nack(false, !d.Redelivered)
		return
	}
	_ = d.Ack(false)
}

func (b *Broker) Close() error {
	if err := b.channel.Close(); err != nil {
		return err
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}
