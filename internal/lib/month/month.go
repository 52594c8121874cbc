// Package month содержит календарную арифметику для подписок.
package month

import (
	"time"
)

// Day длительность суток, в которых считаются оставшиеся дни доступа.
const Day = 24 * time.Hour

// AddMonths прибавляет к дате календарные месяцы. Если в целевом месяце нет
// такого числа, дата прижимается к последнему дню месяца (31.01 + 1 = 29.02).
func AddMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	target := time.Date(y, m+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := daysIn(target); d > last {
		d = last
	}
	return time.Date(target.Year(), target.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// DaysUntil возвращает количество суток до end, округлённое вверх.
// Если end уже наступил, возвращает 0.
func DaysUntil(now, end time.Time) int {
	left := end.Sub(now)
	if left <= 0 {
		return 0
	}
	days := int(left / Day)
	if left%Day != 0 {
		days++
	}
	return days
}

func daysIn(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}
