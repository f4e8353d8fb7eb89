package models

import "time"

// RequestOutcome - итог запроса для аналитики.
type RequestOutcome string

const (
	CompletedOutcome RequestOutcome = "completed"
	ExpiredOutcome   RequestOutcome = "expired"
	CancelledOutcome RequestOutcome = "cancelled"
	PendingOutcome   RequestOutcome = "pending"
)

// Valid сообщает, является ли итог одним из известных.
func (o RequestOutcome) Valid() bool {
	switch o {
	case CompletedOutcome, ExpiredOutcome, CancelledOutcome, PendingOutcome:
		return true
	}
	return false
}

// RequestRecord - минимальный факт о запросе, по которому строится аналитика.
type RequestRecord struct {
	ID         string         `json:"id"`
	CreatedAt  time.Time      `json:"createdAt"`
	ResolvedAt *time.Time     `json:"resolvedAt,omitempty"`
	Category   string         `json:"category"`
	Role       string         `json:"role"`
	Outcome    RequestOutcome `json:"outcome"`
}

// DateRange - окно запроса аналитики. Nil означает открытую границу.
type DateRange struct {
	From *time.Time `json:"from,omitempty"`
	To   *time.Time `json:"to,omitempty"`
}

// Contains проверяет попадание момента в закрытый интервал [From, To].
func (r DateRange) Contains(t time.Time) bool {
	if r.From != nil && t.Before(*r.From) {
		return false
	}
	if r.To != nil && t.After(*r.To) {
		return false
	}
	return true
}

// RecordFilter задает выборку записей из хранилища.
type RecordFilter struct {
	Range    DateRange
	Category string
	Role     string
}

// Matches проверяет запись на соответствие фильтру.
func (f RecordFilter) Matches(rec RequestRecord) bool {
	if f.Category != "" && rec.Category != f.Category {
		return false
	}
	if f.Role != "" && rec.Role != f.Role {
		return false
	}
	return f.Range.Contains(rec.CreatedAt)
}

// TrendBucket - срез аналитики за календарный месяц.
type TrendBucket struct {
	MonthLabel     string    `json:"monthLabel"`
	MonthStart     time.Time `json:"monthStart"`
	TotalRequests  int       `json:"totalRequests"`
	CompletedCount int       `json:"completedCount"`
	CompletionRate float64   `json:"completionRate"`
}

// GroupMetrics - показатели одной группы разбивки.
type GroupMetrics struct {
	Count                        int     `json:"count"`
	CompletionRate               float64 `json:"completionRate"`
	AverageTimeToCompletionHours float64 `json:"averageTimeToCompletionHours"`
}

// AnalyticsSnapshot - результат агрегации, не сохраняется.
type AnalyticsSnapshot struct {
	TotalRequests                int                     `json:"totalRequests"`
	CompletedCount               int                     `json:"completedCount"`
	PendingCount                 int                     `json:"pendingCount"`
	ExpiredCount                 int                     `json:"expiredCount"`
	CancelledCount               int                     `json:"cancelledCount"`
	CompletionRate               float64                 `json:"completionRate"`
	AverageTimeToCompletionHours float64                 `json:"averageTimeToCompletionHours"`
	MonthlyTrend                 []TrendBucket           `json:"monthlyTrend"`
	RoleBreakdown                map[string]GroupMetrics `json:"roleBreakdown"`
	CategoryBreakdown            map[string]GroupMetrics `json:"categoryBreakdown"`
}
