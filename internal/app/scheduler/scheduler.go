// Package scheduler собирает процесс, который по расписанию ищет истекающие
// подписки и пробные периоды и публикует уведомления в RabbitMQ.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/bizledger/internal/app/infra"
	"github.com/magabrotheeeer/bizledger/internal/config"
	"github.com/magabrotheeeer/bizledger/internal/lib/sl"
	schedulerservice "github.com/magabrotheeeer/bizledger/internal/services/scheduler"
	"github.com/magabrotheeeer/bizledger/internal/storage/repository"
)

// ErrBrokerRequired возвращается, если не задан RABBITMQ_URL.
var ErrBrokerRequired = errors.New("RABBITMQ_URL is required for the scheduler")

// App представляет приложение планировщика.
type App struct {
	schedulerService *schedulerservice.SchedulerService
	spec             string
	db               *repository.Storage
	broker           *infra.Broker
	logger           *slog.Logger
}

// New создает новый экземпляр приложения планировщика.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.scheduler.New"

	if cfg.RabbitMQURL == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrBrokerRequired)
	}
	broker, err := infra.OpenBroker(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db, err := infra.OpenStorage(ctx, cfg, false)
	if err != nil {
		broker.Close(logger)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &App{
		schedulerService: schedulerservice.NewSchedulerService(logger, db, broker.Publisher, cfg.TrialDays),
		spec:             cfg.SchedulerSpec,
		db:               db,
		broker:           broker,
		logger:           logger,
	}, nil
}

// Run запускает планировщик и блокируется до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	defer func() {
		a.logger.Info("shutting down scheduler service")
		a.broker.Close(a.logger)
		if err := a.db.Close(); err != nil {
			a.logger.Error("failed to close database", sl.Err(err))
		}
	}()

	return a.schedulerService.Start(ctx, a.spec)
}
