// Package entitlement вычисляет право пользователя на доступ к сервису
// по дате регистрации и записям подписок.
//
// Правило одно на весь сервис:
//   - действующая текущая подписка (now <= end_date) даёт доступ по её тарифу;
//   - иначе, пока не истёк пробный период (now <= created_at + TRIAL_DAYS), доступ по тарифу trial;
//   - иначе доступа нет.
//
// Все границы включительные. Результат не кешируется: он зависит от текущего времени.
package entitlement

import (
	"time"

	"github.com/magabrotheeeer/bizledger/internal/lib/apperrors"
	"github.com/magabrotheeeer/bizledger/internal/lib/month"
	"github.com/magabrotheeeer/bizledger/internal/models"
)

// DefaultTrialDays длина пробного периода по умолчанию.
const DefaultTrialDays = 7

// Evaluator считает EntitlementStatus. Безопасен для конкурентного использования.
type Evaluator struct {
	trialDays int
	now       func() time.Time
}

// New создаёт Evaluator с заданной длиной пробного периода.
func New(trialDays int) *Evaluator {
	return &Evaluator{
		trialDays: trialDays,
		now:       time.Now,
	}
}

// WithClock подменяет источник времени. Используется в тестах.
func (e *Evaluator) WithClock(now func() time.Time) *Evaluator {
	return &Evaluator{trialDays: e.trialDays, now: now}
}

// Now текущее время по часам Evaluator.
func (e *Evaluator) Now() time.Time {
	return e.now()
}

// TrialDays длина пробного периода.
func (e *Evaluator) TrialDays() int {
	return e.trialDays
}

// Status считает статус доступа на текущий момент.
func (e *Evaluator) Status(createdAt time.Time, subs []models.Subscription) models.EntitlementStatus {
	return Evaluate(createdAt, subs, e.now(), e.trialDays)
}

// TrialEnd момент окончания пробного периода.
func TrialEnd(createdAt time.Time, trialDays int) time.Time {
	return createdAt.Add(time.Duration(trialDays) * month.Day)
}

// Evaluate считает статус доступа на момент now.
//
// Если доступа нет, DaysRemaining равен 0, Plan равен nil, а EndDate указывает
// на окончание последнего известного периода, чтобы клиент мог предложить продление.
func Evaluate(createdAt time.Time, subs []models.Subscription, now time.Time, trialDays int) models.EntitlementStatus {
	current := Current(subs)
	if current != nil && !now.After(current.EndDate) {
		plan := current.Plan
		start, end := current.StartDate, current.EndDate
		return models.EntitlementStatus{
			IsActive:      true,
			Plan:          &plan,
			StartDate:     &start,
			EndDate:       &end,
			DaysRemaining: month.DaysUntil(now, end),
			IsTrial:       plan == models.PlanTrial,
		}
	}

	trialEnd := TrialEnd(createdAt, trialDays)
	if !now.After(trialEnd) {
		plan := models.PlanTrial
		start := createdAt
		return models.EntitlementStatus{
			IsActive:      true,
			Plan:          &plan,
			StartDate:     &start,
			EndDate:       &trialEnd,
			DaysRemaining: month.DaysUntil(now, trialEnd),
			IsTrial:       true,
		}
	}

	lastEnd := trialEnd
	if current != nil && current.EndDate.After(lastEnd) {
		lastEnd = current.EndDate
	}
	return models.EntitlementStatus{
		IsActive:      false,
		EndDate:       &lastEnd,
		DaysRemaining: 0,
	}
}

// Current выбирает текущую подписку: запись с флагом IsActive и самой поздней
// датой окончания, при равенстве с большим id. Возвращает nil, если таких нет.
func Current(subs []models.Subscription) *models.Subscription {
	var best *models.Subscription
	for i := range subs {
		s := &subs[i]
		if !s.IsActive {
			continue
		}
		if best == nil ||
			s.EndDate.After(best.EndDate) ||
			(s.EndDate.Equal(best.EndDate) && s.ID > best.ID) {
			best = s
		}
	}
	return best
}

// Require проверяет, что статус даёт доступ и, если plan не пуст, именно по этому тарифу.
func Require(status models.EntitlementStatus, plan string) error {
	if !status.IsActive {
		return apperrors.New(apperrors.KindNoActiveSubscription, apperrors.MsgNoActiveSubscription)
	}
	if plan != "" && status.PlanName() != plan {
		return apperrors.PlanMismatch(plan, status.PlanName())
	}
	return nil
}
