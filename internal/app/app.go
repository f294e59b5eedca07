// Package app builds the shared infrastructure the binaries start from:
// the logger, the key-value store and the event broker selected by Config.
package app

import (
	"context"
	"fmt"

	"github.com/example/cartelera/internal/config"
	"github.com/example/cartelera/internal/eventbus"
	"github.com/example/cartelera/internal/infrastructure/kafka"
	"github.com/example/cartelera/internal/infrastructure/rabbitmq"
	"github.com/example/cartelera/internal/infrastructure/store"
	"github.com/example/cartelera/internal/logging"
	"github.com/rs/zerolog"
)

// CloseFunc releases a resource. It is never nil.
type CloseFunc func() error

func noClose() error { return nil }

// Logger configures the process-wide logger from cfg.
func Logger(cfg *config.Config) zerolog.Logger {
	return logging.Configure(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: cfg.LogOutput,
	})
}

// OpenStore connects the configured key-value backend.
func OpenStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (store.KV, CloseFunc, error) {
	log := logging.Component(logger, "store")

	switch cfg.StoreBackend {
	case config.BackendMemory:
		log.Warn().Msg("using in-memory store, data is lost on restart")
		return store.NewMemoryKV(), noClose, nil

	case config.BackendPostgres:
		db, err := store.ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		kv := store.NewPostgresKV(db)
		if err := kv.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		log.Info().Msg("connected to PostgreSQL")
		return kv, db.Close, nil

	case config.BackendRedis:
		client, err := store.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("addr", cfg.RedisAddr).Msg("connected to Redis")
		return store.NewRedisKV(client), client.Close, nil

	case config.BackendDynamoDB:
		client, err := store.NewDynamoClient(ctx)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("table", cfg.DynamoDBTable).Msg("using DynamoDB")
		return store.NewDynamoKV(client, cfg.DynamoDBTable), noClose, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

// OpenPublisher returns the configured event publisher. With no broker,
// events are dropped.
func OpenPublisher(cfg *config.Config, logger zerolog.Logger) (eventbus.Publisher, CloseFunc, error) {
	switch cfg.EventsBroker {
	case config.BrokerNone, "":
		return eventbus.Nop(), noClose, nil

	case config.BrokerKafka:
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		kafkaLog := logging.Component(logger, "kafka")
		kafkaLog.Info().Strs("brokers", cfg.KafkaBrokers).
			Str("topic", cfg.KafkaTopic).Msg("publishing to Kafka")
		return producer, producer.Close, nil

	case config.BrokerRabbitMQ:
		broker, err := rabbitmq.Dial(cfg.RabbitMQURL, cfg.RabbitMQQueue, logger)
		if err != nil {
			return nil, nil, err
		}
		return broker, broker.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown events broker %q", cfg.EventsBroker)
}

// Subscriber delivers event envelopes to a handler until ctx is done.
type Subscriber interface {
	Consume(ctx context.Context, handler eventbus.Handler) error
	Close() error
}

// OpenSubscriber returns the consumer side of the configured broker.
func OpenSubscriber(cfg *config.Config, logger zerolog.Logger) (Subscriber, error) {
	switch cfg.EventsBroker {
	case config.BrokerKafka:
		return kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID, logger), nil
	case config.BrokerRabbitMQ:
		return rabbitmq.Dial(cfg.RabbitMQURL, cfg.RabbitMQQueue, logger)
	}
	return nil, fmt.Errorf("events broker %q cannot be consumed", cfg.EventsBroker)
}
