package models

import "time"

// Тарифы подписки.
const (
	PlanTrial    = "trial"
	PlanStandard = "standard"
	PlanPremium  = "premium"
)

// Subscription запись о подписке пользователя. У пользователя может быть
// много записей, но текущей (IsActive) в каждый момент не больше одной.
// Заменённые записи не удаляются, а снимаются с флага IsActive.
type Subscription struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Plan      string    `json:"plan"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RenewRequest тело запроса на продление подписки с текущего момента.
type RenewRequest struct {
	Plan   string `json:"plan" validate:"omitempty,oneof=standard premium"`
	Months int    `json:"months" validate:"required,min=1,max=12"`
}

// ExtendRequest тело запроса на продление текущей подписки от даты окончания.
type ExtendRequest struct {
	Months int `json:"months" validate:"required,min=1,max=12"`
}

// ChangePlanRequest тело запроса на смену тарифа.
type ChangePlanRequest struct {
	Plan string `json:"plan" validate:"required,oneof=standard premium"`
}

// DummySubscription используется для приёма данных из JSON-запроса
// администратора. Даты приходят строками в формате RFC3339 или 2006-01-02.
type DummySubscription struct {
	UserID    string `json:"user_id" validate:"required,uuid"`
	Plan      string `json:"plan" validate:"required,oneof=trial standard premium"`
	StartDate string `json:"start_date" validate:"required"`
	EndDate   string `json:"end_date" validate:"required"`
}

// SubscriptionUpdate изменяемые поля подписки. nil означает "не менять".
type SubscriptionUpdate struct {
	Plan      *string
	StartDate *time.Time
	EndDate   *time.Time
	IsActive  *bool
}

// SubscriptionEvent сообщение о изменении подписки для брокера.
type SubscriptionEvent struct {
	Op           string        `json:"op"`
	UserID       string        `json:"user_id"`
	Subscription *Subscription `json:"subscription,omitempty"`
	PreviousPlan string        `json:"previous_plan,omitempty"`
	OccurredAt   time.Time     `json:"occurred_at"`
}

// ExpiryNotice уведомление о скором окончании доступа.
type ExpiryNotice struct {
	UserID   string    `json:"user_id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Plan     string    `json:"plan"`
	EndDate  time.Time `json:"end_date"`
	IsTrial  bool      `json:"is_trial"`
}

// DummySubscriptionUpdate тело запроса администратора на изменение подписки.
// Отсутствующие поля не меняются.
type DummySubscriptionUpdate struct {
	Plan      *string `json:"plan,omitempty" validate:"omitempty,oneof=trial standard premium"`
	StartDate *string `json:"start_date,omitempty"`
	EndDate   *string `json:"end_date,omitempty"`
	IsActive  *bool   `json:"is_active,omitempty"`
}
