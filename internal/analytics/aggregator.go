// Package analytics считает показатели завершения запросов.
package analytics

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/senyabanana/proposal-service/internal/models"
	"github.com/senyabanana/proposal-service/internal/utils"

	"golang.org/x/sync/errgroup"
)

const (
	// parallelThreshold - с какого объема выборки агрегация делится на части.
	parallelThreshold = 20000
	partitionSize     = 5000
)

// Aggregator строит AnalyticsSnapshot по набору записей.
type Aggregator struct {
	Now     func() time.Time
	Workers int
}

// NewAggregator создает агрегатор с заданными часами.
func NewAggregator(now func() time.Time) *Aggregator {
	if now == nil {
		now = time.Now
	}
	return &Aggregator{Now: now, Workers: runtime.GOMAXPROCS(0)}
}

// Aggregate фильтрует записи по окну и считает метрики, тренд и разбивки.
// Пустой вход дает нулевой снимок. Ошибка только при from > to.
func (a *Aggregator) Aggregate(ctx context.Context, records []models.RequestRecord, rng models.DateRange) (models.AnalyticsSnapshot, error) {
	if rng.From != nil && rng.To != nil && rng.From.After(*rng.To) {
		return models.AnalyticsSnapshot{}, models.NewInvalidRange(
			fmt.Sprintf("from %s is after to %s", rng.From.Format(time.RFC3339), rng.To.Format(time.RFC3339)))
	}

	window := rng
	if window.To == nil {
		now := a.Now().UTC()
		window.To = &now
	}

	total, err := a.collect(ctx, records, window)
	if err != nil {
		return models.AnalyticsSnapshot{}, err
	}

	if window.From == nil && total.overall.total > 0 {
		earliest := total.earliest
		window.From = &earliest
	}

	snapshot := models.AnalyticsSnapshot{
		TotalRequests:                total.overall.total,
		CompletedCount:               total.overall.completed,
		PendingCount:                 total.overall.pending,
		ExpiredCount:                 total.overall.expired,
		CancelledCount:               total.overall.cancelled,
		CompletionRate:               total.overall.completionRate(),
		AverageTimeToCompletionHours: total.overall.averageHours(),
		MonthlyTrend:                 []models.TrendBucket{},
		RoleBreakdown:                breakdown(total.roles),
		CategoryBreakdown:            breakdown(total.categories),
	}

	if window.From != nil {
		for _, month := range utils.MonthsBetween(*window.From, *window.To) {
			acc, ok := total.months[monthKey(month)]
			if !ok {
				acc = &accumulator{}
			}
			snapshot.MonthlyTrend = append(snapshot.MonthlyTrend, models.TrendBucket{
				MonthLabel:     utils.MonthLabel(month),
				MonthStart:     month,
				TotalRequests:  acc.total,
				CompletedCount: acc.completed,
				CompletionRate: acc.completionRate(),
			})
		}
	}

	return snapshot, nil
}

// collect прогоняет записи через аккумуляторы, большие выборки - параллельно.
func (a *Aggregator) collect(ctx context.Context, records []models.RequestRecord, window models.DateRange) (*partial, error) {
	if len(records) < parallelThreshold || a.Workers <= 1 {
		p := newPartial()
		for _, rec := range records {
			p.add(rec, window)
		}
		return p, ctx.Err()
	}

	chunks := (len(records) + partitionSize - 1) / partitionSize
	partials := make([]*partial, chunks)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.Workers)
	for i := 0; i < chunks; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			end := min((i+1)*partitionSize, len(records))
			p := newPartial()
			for _, rec := range records[i*partitionSize : end] {
				p.add(rec, window)
			}
			partials[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := newPartial()
	for _, p := range partials {
		total.merge(p)
	}
	return total, nil
}

func breakdown(groups map[string]*accumulator) map[string]models.GroupMetrics {
	result := make(map[string]models.GroupMetrics, len(groups))
	for key, acc := range groups {
		if acc.total == 0 {
			continue
		}
		result[key] = models.GroupMetrics{
			Count:                        acc.total,
			CompletionRate:               acc.completionRate(),
			AverageTimeToCompletionHours: acc.averageHours(),
		}
	}
	return result
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
