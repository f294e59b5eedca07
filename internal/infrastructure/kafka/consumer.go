package kafka

import (
	"context"

	"github.com/example/cartelera/internal/eventbus"
	"github.com/example/cartelera/internal/logging"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type Consumer struct {
	reader messageReader
	log    zerolog.Logger
}

func NewConsumer(brokers []string, topic, groupID string, logger zerolog.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{reader: reader, log: logging.Component(logger, "kafka")}
}

// Consume reads envelopes until ctx is done. Unparsable messages and
// handler failures are logged and skipped.
func (c *Consumer) Consume(ctx context.Context, handler eventbus.Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Error().Err(err).Msg("error reading message")
			continue
		}

		e, err := eventbus.Parse(msg.Value)
		if err != nil {
			c.log.Warn().Err(err).Int64("offset", msg.Offset).Msg("skipping malformed message")
			continue
		}

		if err := handler(ctx, e); err != nil {
			c.log.Error().Err(err).
				Str("event_type", e.Type).
				Str("event_id", e.ID).
				Msg("error handling message")
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
