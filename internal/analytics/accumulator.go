package analytics

import (
	"time"

	"github.com/senyabanana/proposal-service/internal/models"
	"github.com/senyabanana/proposal-service/internal/utils"
)

// accumulator хранит счетчики одной группы. Длительности копятся
// в целых миллисекундах, поэтому слияние частей не меняет результат.
type accumulator struct {
	total     int
	completed int
	pending   int
	expired   int
	cancelled int

	timed    int
	durMilli int64
}

func (a *accumulator) add(rec models.RequestRecord) {
	a.total++
	switch rec.Outcome {
	case models.CompletedOutcome:
		a.completed++
		if rec.ResolvedAt != nil {
			a.timed++
			a.durMilli += rec.ResolvedAt.Sub(rec.CreatedAt).Milliseconds()
		}
	case models.PendingOutcome:
		a.pending++
	case models.ExpiredOutcome:
		a.expired++
	case models.CancelledOutcome:
		a.cancelled++
	}
}

func (a *accumulator) merge(b *accumulator) {
	a.total += b.total
	a.completed += b.completed
	a.pending += b.pending
	a.expired += b.expired
	a.cancelled += b.cancelled
	a.timed += b.timed
	a.durMilli += b.durMilli
}

// completionRate - процент завершенных, 0 для пустой группы.
func (a *accumulator) completionRate() float64 {
	if a == nil || a.total == 0 {
		return 0
	}
	return round2(float64(a.completed) / float64(a.total) * 100)
}

// averageHours - среднее время до завершения в часах, 0 без завершенных.
func (a *accumulator) averageHours() float64 {
	if a == nil || a.timed == 0 {
		return 0
	}
	return round2(utils.MillisToHours(float64(a.durMilli) / float64(a.timed)))
}

// partial - результат прохода по части записей.
type partial struct {
	overall    accumulator
	earliest   time.Time
	months     map[int]*accumulator
	roles      map[string]*accumulator
	categories map[string]*accumulator
}

func newPartial() *partial {
	return &partial{
		months:     make(map[int]*accumulator),
		roles:      make(map[string]*accumulator),
		categories: make(map[string]*accumulator),
	}
}

func (p *partial) add(rec models.RequestRecord, window models.DateRange) {
	if !window.Contains(rec.CreatedAt) {
		return
	}

	if p.overall.total == 0 || rec.CreatedAt.Before(p.earliest) {
		p.earliest = rec.CreatedAt.UTC()
	}
	p.overall.add(rec)
	group(p.months, monthKey(rec.CreatedAt)).add(rec)
	group(p.roles, rec.Role).add(rec)
	group(p.categories, rec.Category).add(rec)
}

func (p *partial) merge(o *partial) {
	if o.overall.total == 0 {
		return
	}
	if p.overall.total == 0 || o.earliest.Before(p.earliest) {
		p.earliest = o.earliest
	}
	p.overall.merge(&o.overall)
	for k, acc := range o.months {
		group(p.months, k).merge(acc)
	}
	for k, acc := range o.roles {
		group(p.roles, k).merge(acc)
	}
	for k, acc := range o.categories {
		group(p.categories, k).merge(acc)
	}
}

func group[K comparable](groups map[K]*accumulator, key K) *accumulator {
	acc, ok := groups[key]
	if !ok {
		acc = &accumulator{}
		groups[key] = acc
	}
	return acc
}

func monthKey(t time.Time) int {
	m := utils.MonthStart(t)
	return m.Year()*12 + int(m.Month()) - 1
}
