// Package infra открывает общие для процессов подключения: PostgreSQL,
// Redis и RabbitMQ. Каждый процесс берёт только нужные ему.
package infra

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/bizledger/internal/cache"
	"github.com/magabrotheeeer/bizledger/internal/config"
	"github.com/magabrotheeeer/bizledger/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/bizledger/internal/lib/sl"
	"github.com/magabrotheeeer/bizledger/internal/migrations"
	"github.com/magabrotheeeer/bizledger/internal/storage/repository"
)

const (
	dbReadyAttempts = 10
	dbReadyDelay    = 3 * time.Second
)

// OpenStorage подключается к базе и, если migrate true, применяет миграции.
// Без миграций дожидается, пока их применит другой процесс.
func OpenStorage(ctx context.Context, cfg *config.Config, migrate bool) (*repository.Storage, error) {
	const op = "infra.OpenStorage"

	db, err := repository.New(ctx, cfg.StorageConnectionString, repository.Options{})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if migrate {
		if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return db, nil
	}
	if err = waitForDB(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return db, nil
}

func waitForDB(ctx context.Context, db *repository.Storage) error {
	var err error
	for range dbReadyAttempts {
		if err = repository.CheckDatabaseReady(ctx, db); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(dbReadyDelay):
		}
	}
	return fmt.Errorf("database not ready after retries: %w", err)
}

// OpenCache подключается к Redis. Пустой адрес в конфиге отключает кеш: возвращается nil.
func OpenCache(ctx context.Context, cfg *config.Config) (*cache.Cache, error) {
	if cfg.RedisAddress == "" {
		return nil, nil
	}
	c, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, fmt.Errorf("infra.OpenCache: %w", err)
	}
	return c, nil
}

// Broker соединение с RabbitMQ и канал, на котором публикуются события.
type Broker struct {
	conn      *amqp.Connection
	ch        *amqp.Channel
	Publisher *rabbitmq.Publisher
}

// OpenBroker подключается к RabbitMQ и объявляет обменник и очереди.
// Пустой URL в конфиге отключает брокер: возвращается nil.
func OpenBroker(ctx context.Context, cfg *config.Config) (*Broker, error) {
	const op = "infra.OpenBroker"
	if cfg.RabbitMQURL == "" {
		return nil, nil
	}

	conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetEventQueues())
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Broker{conn: conn, ch: ch, Publisher: rabbitmq.NewPublisher(ch)}, nil
}

// Close закрывает канал и соединение. Безопасен для nil.
func (b *Broker) Close(logger *slog.Logger) {
	if b == nil {
		return
	}
	if err := b.ch.Close(); err != nil {
		logger.Error("failed to close channel", sl.Err(err))
	}
	if err := b.conn.Close(); err != nil {
		logger.Error("failed to close connection", sl.Err(err))
	}
}
