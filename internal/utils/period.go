package utils

import (
	"fmt"
	"time"
)

// dateLayouts - форматы дат, принимаемые в параметрах запроса.
var dateLayouts = []string{time.RFC3339, "2006-01-02"}

// MonthStart возвращает начало календарного месяца в UTC.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthLabel возвращает подпись месяца вида "Jan 2025".
func MonthLabel(t time.Time) string {
	return t.UTC().Format("Jan 2006")
}

// MonthsBetween возвращает начала всех месяцев, которые задевает [from, to].
// При from > to результат пустой.
func MonthsBetween(from, to time.Time) []time.Time {
	first, last := MonthStart(from), MonthStart(to)
	if first.After(last) {
		return nil
	}

	var months []time.Time
	for m := first; !m.After(last); m = m.AddDate(0, 1, 0) {
		months = append(months, m)
	}
	return months
}

// MillisToHours переводит миллисекунды в часы.
func MillisToHours(ms float64) float64 {
	return ms / float64(time.Hour/time.Millisecond)
}

// ParseDate разбирает дату из параметра запроса.
// Дата без времени для верхней границы означает конец дня.
func ParseDate(value string, endOfDay bool) (time.Time, error) {
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, value)
		if err != nil {
			continue
		}
		if layout == "2006-01-02" && endOfDay {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q, expected RFC3339 or YYYY-MM-DD", value)
}
