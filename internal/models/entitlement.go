package models

import "time"

// EntitlementStatus вычисленное право доступа пользователя на момент проверки.
// Не хранится в базе, считается заново на каждом запросе.
type EntitlementStatus struct {
	IsActive      bool       `json:"is_active"`
	Plan          *string    `json:"plan"`
	StartDate     *time.Time `json:"start_date"`
	EndDate       *time.Time `json:"end_date"`
	DaysRemaining int        `json:"days_remaining"`
	IsTrial       bool       `json:"is_trial"`
}

// PlanName возвращает тариф или пустую строку, если доступа нет.
func (s EntitlementStatus) PlanName() string {
	if s.Plan == nil {
		return ""
	}
	return *s.Plan
}
