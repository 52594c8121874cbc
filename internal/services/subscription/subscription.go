// Package services содержит операции жизненного цикла подписки: продление,
// перенос даты окончания, смену тарифа и административный CRUD с кешированием.
//
// Право доступа здесь не вычисляется и не кешируется: следующий вход или
// запрос пересчитает его по изменённым записям.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/bizledger/internal/lib/apperrors"
	"github.com/magabrotheeeer/bizledger/internal/lib/month"
	"github.com/magabrotheeeer/bizledger/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/bizledger/internal/lib/sl"
	"github.com/magabrotheeeer/bizledger/internal/models"
	"github.com/magabrotheeeer/bizledger/internal/storage/repository"
)

// Ограничения на количество месяцев в одной операции продления.
const (
	MinMonths = 1
	MaxMonths = 12
)

const cacheTTL = time.Hour

// SubscriptionRepository определяет методы для работы с подписками в хранилище.
type SubscriptionRepository interface {
	GetCurrentSubscription(ctx context.Context, userID string) (*models.Subscription, error)
	ListSubscriptionsByUser(ctx context.Context, userID string) ([]models.Subscription, error)
	UpsertCurrentSubscription(ctx context.Context, userID, plan string, start, end time.Time) (*models.Subscription, error)
	SetCurrentEndDate(ctx context.Context, userID string, end time.Time) (*models.Subscription, error)
	SetCurrentPlan(ctx context.Context, userID, plan string) (*models.Subscription, error)
	CreateSubscription(ctx context.Context, userID, plan string, start, end time.Time) (*models.Subscription, error)
	GetSubscription(ctx context.Context, id int64) (*models.Subscription, error)
	ListSubscriptions(ctx context.Context, limit, offset int) ([]models.Subscription, error)
	UpdateSubscription(ctx context.Context, id int64, upd models.SubscriptionUpdate) (*models.Subscription, error)
	DeactivateSubscription(ctx context.Context, id int64) error
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	// Get пытается получить значение из кеша по ключу.
	Get(ctx context.Context, key string, result any) (bool, error)
	// Set сохраняет значение в кеш с временем жизни.
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	// Invalidate удаляет значение из кеша по ключу.
	Invalidate(ctx context.Context, key string) error
}

// Publisher отправляет события об изменении подписок.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// SubscriptionService реализует операции над подписками.
type SubscriptionService struct {
	repo      SubscriptionRepository
	cache     Cache
	publisher Publisher
	log       *slog.Logger
	now       func() time.Time
}

// NewSubscriptionService создает новый экземпляр SubscriptionService.
// cache может быть nil, тогда чтение идёт напрямую из хранилища.
// publisher может быть nil, тогда события не отправляются.
func NewSubscriptionService(log *slog.Logger, repo SubscriptionRepository, cache Cache, publisher Publisher) *SubscriptionService {
	if publisher == nil {
		publisher = rabbitmq.NopPublisher{}
	}
	return &SubscriptionService{
		repo:      repo,
		cache:     cache,
		publisher: publisher,
		log:       log,
		now:       time.Now,
	}
}

// WithClock подменяет источник времени.
func (s *SubscriptionService) WithClock(now func() time.Time) *SubscriptionService {
	cp := *s
	cp.now = now
	return &cp
}

// Renew начинает новое окно текущей подписки с сегодняшнего дня на months месяцев.
// Если текущей подписки нет, она создаётся. Пустой plan сохраняет платный тариф
// текущей подписки, а при его отсутствии выбирается standard.
func (s *SubscriptionService) Renew(ctx context.Context, userID, plan string, months int) (*models.Subscription, error) {
	const op = "subscription.Renew"

	if err := validateMonths(months); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if plan == "" {
		current, err := s.repo.GetCurrentSubscription(ctx, userID)
		switch {
		case err == nil && current.Plan != models.PlanTrial:
			plan = current.Plan
		case err == nil || errors.Is(err, repository.ErrSubscriptionNotFound):
			plan = models.PlanStandard
		default:
			return nil, fmt.Errorf("%s: %w", op, storeErr(err))
		}
	}
	if !isPaidPlan(plan) {
		return nil, fmt.Errorf("%s: %w", op, apperrors.Validation("plan must be one of: standard, premium"))
	}

	start := s.now().UTC()
	sub, err := s.repo.UpsertCurrentSubscription(ctx, userID, plan, start, month.AddMonths(start, months))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storeErr(err))
	}

	s.afterWrite(ctx, op, rabbitmq.RoutingSubscriptionRenewed, sub, "")
	s.log.Info("subscription renewed", slog.String("op", op), slog.String("user_id", userID),
		slog.String("plan", plan), slog.Int("months", months))
	return sub, nil
}

// Extend переносит дату окончания текущей подписки на months месяцев вперёд
// от прежней даты окончания. Конкурентные вызовы не суммируются.
func (s *SubscriptionService) Extend(ctx context.Context, userID string, months int) (*models.Subscription, error) {
	const op = "subscription.Extend"

	if err := validateMonths(months); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	current, err := s.repo.GetCurrentSubscription(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, noCurrentErr(err))
	}

	sub, err := s.repo.SetCurrentEndDate(ctx, userID, month.AddMonths(current.EndDate, months))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, noCurrentErr(err))
	}

	s.afterWrite(ctx, op, rabbitmq.RoutingSubscriptionExtend, sub, "")
	s.log.Info("subscription extended", slog.String("op", op), slog.String("user_id", userID),
		slog.Time("end_date", sub.EndDate))
	return sub, nil
}

// ChangePlan меняет тариф текущей подписки без изменения дат и возвращает прежний тариф.
func (s *SubscriptionService) ChangePlan(ctx context.Context, userID, plan string) (*models.Subscription, string, error) {
	const op = "subscription.ChangePlan"

	if !isPaidPlan(plan) {
		return nil, "", fmt.Errorf("%s: %w", op, apperrors.Validation("plan must be one of: standard, premium"))
	}
	current, err := s.repo.GetCurrentSubscription(ctx, userID)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", op, noCurrentErr(err))
	}

	sub, err := s.repo.SetCurrentPlan(ctx, userID, plan)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", op, noCurrentErr(err))
	}

	s.afterWrite(ctx, op, rabbitmq.RoutingSubscriptionPlan, sub, current.Plan)
	s.log.Info("subscription plan changed", slog.String("op", op), slog.String("user_id", userID),
		slog.String("from", current.Plan), slog.String("to", plan))
	return sub, current.Plan, nil
}

// Create добавляет подписку с явными датами. Прежняя текущая подписка
// пользователя перестаёт быть текущей.
func (s *SubscriptionService) Create(ctx context.Context, userID, plan string, start, end time.Time) (*models.Subscription, error) {
	const op = "subscription.Create"

	if !isKnownPlan(plan) {
		return nil, fmt.Errorf("%s: %w", op, apperrors.Validation("plan must be one of: trial, standard, premium"))
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%s: %w", op, apperrors.Validation("end_date must not be earlier than start_date"))
	}

	sub, err := s.repo.CreateSubscription(ctx, userID, plan, start.UTC(), end.UTC())
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("%s: %w", op, apperrors.UserNotFound(err))
		}
		return nil, fmt.Errorf("%s: %w", op, storeErr(err))
	}

	s.afterWrite(ctx, op, rabbitmq.RoutingSubscriptionCreated, sub, "")
	s.log.Info("created new subscription", slog.String("op", op), slog.Int64("id", sub.ID))
	return sub, nil
}

// Read возвращает подписку по id, используя кеш или репозиторий.
func (s *SubscriptionService) Read(ctx context.Context, id int64) (*models.Subscription, error) {
	const op = "subscription.Read"
	key := cacheKey(id)

	if s.cache != nil {
		var cached models.Subscription
		found, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.log.Warn("failed to read from cache", slog.String("op", op), slog.String("key", key), sl.Err(err))
		} else if found {
			return &cached, nil
		}
	}

	sub, err := s.repo.GetSubscription(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storeErr(err))
	}
	s.cacheSet(ctx, op, sub)
	return sub, nil
}

// ListAll возвращает все подписки с пагинацией.
func (s *SubscriptionService) ListAll(ctx context.Context, limit, offset int) ([]models.Subscription, error) {
	const op = "subscription.ListAll"

	subs, err := s.repo.ListSubscriptions(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storeErr(err))
	}
	return subs, nil
}

// ListForUser возвращает историю подписок пользователя.
func (s *SubscriptionService) ListForUser(ctx context.Context, userID string) ([]models.Subscription, error) {
	const op = "subscription.ListForUser"

	subs, err := s.repo.ListSubscriptionsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storeErr(err))
	}
	return subs, nil
}

// Update меняет заданные поля подписки и обновляет кеш.
func (s *SubscriptionService) Update(ctx context.Context, id int64, upd models.SubscriptionUpdate) (*models.Subscription, error) {
	const op = "subscription.Update"

	if upd.Plan != nil && !isKnownPlan(*upd.Plan) {
		return nil, fmt.Errorf("%s: %w", op, apperrors.Validation("plan must be one of: trial, standard, premium"))
	}
	if upd.StartDate != nil && upd.EndDate != nil && upd.EndDate.Before(*upd.StartDate) {
		return nil, fmt.Errorf("%s: %w", op, apperrors.Validation("end_date must not be earlier than start_date"))
	}

	sub, err := s.repo.UpdateSubscription(ctx, id, upd)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storeErr(err))
	}

	s.afterWrite(ctx, op, rabbitmq.RoutingSubscriptionUpdated, sub, "")
	s.log.Info("updated subscription", slog.String("op", op), slog.Int64("id", id))
	return sub, nil
}

// Remove снимает с подписки флаг текущей и убирает её из кеша. Запись сохраняется.
func (s *SubscriptionService) Remove(ctx context.Context, id int64) error {
	const op = "subscription.Remove"

	sub, err := s.repo.GetSubscription(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, storeErr(err))
	}
	if err = s.repo.DeactivateSubscription(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, storeErr(err))
	}
	sub.IsActive = false

	if s.cache != nil {
		if err = s.cache.Invalidate(ctx, cacheKey(id)); err != nil {
			s.log.Warn("failed to remove from cache", slog.String("op", op), slog.Int64("id", id), sl.Err(err))
		}
	}
	s.publish(ctx, op, rabbitmq.RoutingSubscriptionRemoved, sub, "")
	s.log.Info("deactivated subscription", slog.String("op", op), slog.Int64("id", id))
	return nil
}

func (s *SubscriptionService) afterWrite(ctx context.Context, op, routingKey string, sub *models.Subscription, previousPlan string) {
	s.cacheSet(ctx, op, sub)
	s.publish(ctx, op, routingKey, sub, previousPlan)
}

func (s *SubscriptionService) cacheSet(ctx context.Context, op string, sub *models.Subscription) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey(sub.ID), sub, cacheTTL); err != nil {
		s.log.Warn("failed to cache subscription", slog.String("op", op), slog.Int64("id", sub.ID), sl.Err(err))
	}
}

// publish не влияет на результат операции: изменение уже записано.
func (s *SubscriptionService) publish(ctx context.Context, op, routingKey string, sub *models.Subscription, previousPlan string) {
	event := models.SubscriptionEvent{
		Op:           routingKey,
		UserID:       sub.UserID,
		Subscription: sub,
		PreviousPlan: previousPlan,
		OccurredAt:   s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, routingKey, event); err != nil {
		s.log.Warn("failed to publish subscription event", slog.String("op", op),
			slog.String("routing_key", routingKey), sl.Err(err))
	}
}

// ParseDate разбирает дату в формате RFC3339 или 2006-01-02 (UTC).
func ParseDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, apperrors.Validation(fmt.Sprintf("invalid date %q, expected YYYY-MM-DD or RFC3339", value))
	}
	return t, nil
}

func cacheKey(id int64) string {
	return fmt.Sprintf("subscription:%d", id)
}

func validateMonths(months int) error {
	if months < MinMonths || months > MaxMonths {
		return apperrors.Validation(fmt.Sprintf("months must be between %d and %d", MinMonths, MaxMonths))
	}
	return nil
}

func isPaidPlan(plan string) bool {
	return plan == models.PlanStandard || plan == models.PlanPremium
}

func isKnownPlan(plan string) bool {
	return plan == models.PlanTrial || isPaidPlan(plan)
}

func storeErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrSubscriptionNotFound):
		return apperrors.Wrap(err, apperrors.KindSubscriptionNotFound, apperrors.MsgSubscriptionNotFound)
	case errors.Is(err, repository.ErrUserNotFound):
		return apperrors.UserNotFound(err)
	case errors.Is(err, repository.ErrSubscriptionConflict):
		return apperrors.Wrap(err, apperrors.KindValidation, "user already has an active subscription")
	default:
		return apperrors.DataAccess(err)
	}
}

// noCurrentErr отличается от storeErr сообщением: у пользователя нет текущей подписки.
func noCurrentErr(err error) error {
	if errors.Is(err, repository.ErrSubscriptionNotFound) {
		return apperrors.Wrap(err, apperrors.KindSubscriptionNotFound, "no active subscription for user")
	}
	return storeErr(err)
}
