// Package services содержит планировщик уведомлений об окончании доступа.
//
// Планировщик только читает данные и публикует уведомления. Статус доступа
// он не меняет: его по-прежнему вычисляет entitlement при каждом запросе.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/magabrotheeeer/bizledger/internal/lib/month"
	"github.com/magabrotheeeer/bizledger/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/bizledger/internal/lib/sl"
	"github.com/magabrotheeeer/bizledger/internal/models"
)

// ExpiryRepository ищет пользователей, у которых скоро закончится доступ.
type ExpiryRepository interface {
	FindSubscriptionsEndingBetween(ctx context.Context, from, to time.Time) ([]models.ExpiryNotice, error)
	FindTrialsEndingBetween(ctx context.Context, from, to time.Time, trialDays int) ([]models.ExpiryNotice, error)
}

// Publisher отправляет уведомления в брокер.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// SchedulerService периодически ищет истекающие подписки и пробные периоды.
type SchedulerService struct {
	repo      ExpiryRepository
	publisher Publisher
	log       *slog.Logger
	trialDays int
	window    time.Duration
	now       func() time.Time
}

// NewSchedulerService создает новый экземпляр SchedulerService.
// Уведомления отправляются за сутки до окончания доступа.
func NewSchedulerService(log *slog.Logger, repo ExpiryRepository, publisher Publisher, trialDays int) *SchedulerService {
	return &SchedulerService{
		repo:      repo,
		publisher: publisher,
		log:       log,
		trialDays: trialDays,
		window:    month.Day,
		now:       time.Now,
	}
}

// WithClock подменяет источник времени.
func (s *SchedulerService) WithClock(now func() time.Time) *SchedulerService {
	cp := *s
	cp.now = now
	return &cp
}

// RunOnce выполняет один проход: ищет доступ, заканчивающийся в ближайшие сутки,
// и публикует по уведомлению на пользователя. Возвращает число отправленных уведомлений.
// Ошибка одного из запросов не мешает обработать результаты другого.
func (s *SchedulerService) RunOnce(ctx context.Context) (int, error) {
	const op = "scheduler.RunOnce"
	log := s.log.With(slog.String("op", op))

	from := s.now().UTC()
	to := from.Add(s.window)

	var errs []error
	paid, err := s.repo.FindSubscriptionsEndingBetween(ctx, from, to)
	if err != nil {
		log.Error("failed to find expiring subscriptions", sl.Err(err))
		errs = append(errs, err)
	}
	trials, err := s.repo.FindTrialsEndingBetween(ctx, from, to, s.trialDays)
	if err != nil {
		log.Error("failed to find expiring trials", sl.Err(err))
		errs = append(errs, err)
	}

	notices := append(paid, trials...)
	if len(notices) == 0 {
		log.Info("no expiring subscriptions found")
		return 0, wrapAll(op, errs)
	}
	log.Info("found expiring subscriptions", slog.Int("paid", len(paid)), slog.Int("trials", len(trials)))

	sent := 0
	for _, n := range notices {
		if err = s.publisher.Publish(ctx, rabbitmq.RoutingNotificationExpiry, n); err != nil {
			log.Error("failed to publish message", slog.String("user_id", n.UserID), sl.Err(err))
			errs = append(errs, err)
			continue
		}
		sent++
	}
	return sent, wrapAll(op, errs)
}

// Start запускает RunOnce сразу и затем по расписанию spec (формат robfig/cron).
// Блокируется до отмены ctx и дожидается завершения текущего прохода.
func (s *SchedulerService) Start(ctx context.Context, spec string) error {
	const op = "scheduler.Start"

	c := cron.New()
	if _, err := c.AddFunc(spec, func() { s.run(ctx) }); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.run(ctx)
	c.Start()
	s.log.Info("scheduler started", slog.String("spec", spec))

	<-ctx.Done()
	<-c.Stop().Done()
	s.log.Info("scheduler stopped")
	return nil
}

func (s *SchedulerService) run(ctx context.Context) {
	sent, err := s.RunOnce(ctx)
	if err != nil {
		s.log.Warn("expiry scan finished with errors", slog.Int("sent", sent), sl.Err(err))
		return
	}
	s.log.Info("expiry scan finished", slog.Int("sent", sent))
}

func wrapAll(op string, errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%s: %w", op, errors.Join(errs...))
}
