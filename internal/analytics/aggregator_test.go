package analytics

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/senyabanana/proposal-service/internal/models"
)

var fixedNow = time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)

func testAggregator() *Aggregator {
	return NewAggregator(func() time.Time { return fixedNow })
}

func date(year int, month time.Month, day, hour int) time.Time {
	return time.Date(year, month, day, hour, 0, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time { return &t }

func record(id string, createdAt time.Time, outcome models.RequestOutcome, resolveAfter time.Duration) models.RequestRecord {
	rec := models.RequestRecord{
		ID:        id,
		CreatedAt: createdAt,
		Category:  "Construction",
		Role:      "homeowner",
		Outcome:   outcome,
	}
	if resolveAfter > 0 {
		rec.ResolvedAt = ptr(createdAt.Add(resolveAfter))
	}
	return rec
}

func TestAggregate_EmptyInput(t *testing.T) {
	snapshot, err := testAggregator().Aggregate(context.Background(), nil, models.DateRange{})
	if err != nil {
		t.Fatalf("Aggregate() unexpected error: %v", err)
	}

	if snapshot.TotalRequests != 0 || snapshot.CompletionRate != 0 || snapshot.AverageTimeToCompletionHours != 0 {
		t.Errorf("Aggregate() = %+v, want zero metrics", snapshot)
	}
	if snapshot.MonthlyTrend == nil || len(snapshot.MonthlyTrend) != 0 {
		t.Errorf("Aggregate() trend = %v, want empty slice", snapshot.MonthlyTrend)
	}
	if len(snapshot.RoleBreakdown) != 0 || len(snapshot.CategoryBreakdown) != 0 {
		t.Error("Aggregate() breakdowns must be empty")
	}
}

func TestAggregate_JanuaryScenario(t *testing.T) {
	var records []models.RequestRecord
	for i := 0; i < 5; i++ {
		records = append(records, record(fmt.Sprintf("c%d", i), date(2025, time.January, 5+i, 10), models.CompletedOutcome, 24*time.Hour))
		records = append(records, record(fmt.Sprintf("p%d", i), date(2025, time.January, 10+i, 10), models.PendingOutcome, 0))
	}

	rng := models.DateRange{
		From: ptr(date(2025, time.January, 1, 0)),
		To:   ptr(time.Date(2025, time.January, 31, 23, 59, 59, 0, time.UTC)),
	}
	snapshot, err := testAggregator().Aggregate(context.Background(), records, rng)
	if err != nil {
		t.Fatalf("Aggregate() unexpected error: %v", err)
	}

	if snapshot.TotalRequests != 10 {
		t.Errorf("totalRequests = %d, want 10", snapshot.TotalRequests)
	}
	if snapshot.CompletedCount != 5 || snapshot.PendingCount != 5 {
		t.Errorf("completed/pending = %d/%d, want 5/5", snapshot.CompletedCount, snapshot.PendingCount)
	}
	if snapshot.CompletionRate != 50 {
		t.Errorf("completionRate = %v, want 50", snapshot.CompletionRate)
	}
	if snapshot.AverageTimeToCompletionHours != 24 {
		t.Errorf("averageTimeToCompletionHours = %v, want 24", snapshot.AverageTimeToCompletionHours)
	}

	want := []models.TrendBucket{{
		MonthLabel:     "Jan 2025",
		MonthStart:     date(2025, time.January, 1, 0),
		TotalRequests:  10,
		CompletedCount: 5,
		CompletionRate: 50,
	}}
	if !reflect.DeepEqual(snapshot.MonthlyTrend, want) {
		t.Errorf("monthlyTrend = %+v, want %+v", snapshot.MonthlyTrend, want)
	}
}

func TestAggregate_TrendCoversEveryMonth(t *testing.T) {
	records := []models.RequestRecord{
		record("a", date(2025, time.January, 15, 0), models.CompletedOutcome, time.Hour),
		record("b", date(2025, time.March, 2, 0), models.PendingOutcome, 0),
	}

	tests := []struct {
		name       string
		rng        models.DateRange
		wantLabels []string
	}{
		{
			name:       "explicit range",
			rng:        models.DateRange{From: ptr(date(2025, time.January, 1, 0)), To: ptr(date(2025, time.April, 30, 0))},
			wantLabels: []string{"Jan 2025", "Feb 2025", "Mar 2025", "Apr 2025"},
		},
		{
			name:       "open range defaults to earliest record and now",
			rng:        models.DateRange{},
			wantLabels: []string{"Jan 2025", "Feb 2025", "Mar 2025"},
		},
		{
			name:       "across year boundary",
			rng:        models.DateRange{From: ptr(date(2024, time.November, 20, 0)), To: ptr(date(2025, time.January, 31, 0))},
			wantLabels: []string{"Nov 2024", "Dec 2024", "Jan 2025"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snapshot, err := testAggregator().Aggregate(context.Background(), records, tt.rng)
			if err != nil {
				t.Fatalf("Aggregate() unexpected error: %v", err)
			}

			var labels []string
			for _, bucket := range snapshot.MonthlyTrend {
				labels = append(labels, bucket.MonthLabel)
				if bucket.MonthLabel == "Feb 2025" && (bucket.TotalRequests != 0 || bucket.CompletionRate != 0) {
					t.Errorf("empty month bucket = %+v, want zeros", bucket)
				}
			}
			if !reflect.DeepEqual(labels, tt.wantLabels) {
				t.Errorf("trend labels = %v, want %v", labels, tt.wantLabels)
			}
		})
	}
}

func TestAggregate_InvalidRange(t *testing.T) {
	rng := models.DateRange{
		From: ptr(date(2025, time.February, 1, 0)),
		To:   ptr(date(2025, time.January, 1, 0)),
	}

	_, err := testAggregator().Aggregate(context.Background(), nil, rng)
	if !errors.Is(err, models.ErrInvalidRange) {
		t.Errorf("Aggregate() error = %v, want ErrInvalidRange", err)
	}
}

func TestAggregate_WindowIsInclusive(t *testing.T) {
	from := date(2025, time.January, 1, 0)
	to := date(2025, time.January, 31, 0)
	records := []models.RequestRecord{
		record("before", from.Add(-time.Second), models.PendingOutcome, 0),
		record("start", from, models.PendingOutcome, 0),
		record("end", to, models.PendingOutcome, 0),
		record("after", to.Add(time.Second), models.PendingOutcome, 0),
	}

	snapshot, err := testAggregator().Aggregate(context.Background(), records, models.DateRange{From: &from, To: &to})
	if err != nil {
		t.Fatalf("Aggregate() unexpected error: %v", err)
	}
	if snapshot.TotalRequests != 2 {
		t.Errorf("totalRequests = %d, want 2", snapshot.TotalRequests)
	}
}

func TestAggregate_OutcomeCounting(t *testing.T) {
	created := date(2025, time.January, 3, 0)
	records := []models.RequestRecord{
		record("completed", created, models.CompletedOutcome, 10*time.Hour),
		record("completed-untimed", created, models.CompletedOutcome, 0),
		record("expired", created, models.ExpiredOutcome, 48*time.Hour),
		record("cancelled", created, models.CancelledOutcome, 2*time.Hour),
	}

	snapshot, err := testAggregator().Aggregate(context.Background(), records, models.DateRange{})
	if err != nil {
		t.Fatalf("Aggregate() unexpected error: %v", err)
	}

	if snapshot.TotalRequests != 4 || snapshot.CompletedCount != 2 || snapshot.ExpiredCount != 1 || snapshot.CancelledCount != 1 {
		t.Errorf("counts = %+v", snapshot)
	}
	if snapshot.CompletionRate != 50 {
		t.Errorf("completionRate = %v, want 50", snapshot.CompletionRate)
	}
	if snapshot.AverageTimeToCompletionHours != 10 {
		t.Errorf("averageTimeToCompletionHours = %v, want 10", snapshot.AverageTimeToCompletionHours)
	}
}

func TestAggregate_Rounding(t *testing.T) {
	created := date(2025, time.January, 3, 0)
	records := []models.RequestRecord{
		record("a", created, models.CompletedOutcome, 90*time.Minute),
		record("b", created, models.PendingOutcome, 0),
		record("c", created, models.PendingOutcome, 0),
	}

	snapshot, err := testAggregator().Aggregate(context.Background(), records, models.DateRange{})
	if err != nil {
		t.Fatalf("Aggregate() unexpected error: %v", err)
	}
	if snapshot.CompletionRate != 33.33 {
		t.Errorf("completionRate = %v, want 33.33", snapshot.CompletionRate)
	}
	if snapshot.AverageTimeToCompletionHours != 1.5 {
		t.Errorf("averageTimeToCompletionHours = %v, want 1.5", snapshot.AverageTimeToCompletionHours)
	}
}

func TestAggregate_Breakdowns(t *testing.T) {
	created := date(2025, time.January, 3, 0)
	supplier := record("s", created, models.CompletedOutcome, 4*time.Hour)
	supplier.Role = "supplier"
	supplier.Category = "Delivery"
	outside := record("old", date(2024, time.June, 1, 0), models.PendingOutcome, 0)
	outside.Role = "subcontractor"

	records := []models.RequestRecord{
		record("h1", created, models.CompletedOutcome, 2*time.Hour),
		record("h2", created, models.PendingOutcome, 0),
		supplier,
		outside,
	}
	rng := models.DateRange{From: ptr(date(2025, time.January, 1, 0)), To: ptr(date(2025, time.January, 31, 0))}

	snapshot, err := testAggregator().Aggregate(context.Background(), records, rng)
	if err != nil {
		t.Fatalf("Aggregate() unexpected error: %v", err)
	}

	wantRoles := map[string]models.GroupMetrics{
		"homeowner": {Count: 2, CompletionRate: 50, AverageTimeToCompletionHours: 2},
		"supplier":  {Count: 1, CompletionRate: 100, AverageTimeToCompletionHours: 4},
	}
	if !reflect.DeepEqual(snapshot.RoleBreakdown, wantRoles) {
		t.Errorf("roleBreakdown = %+v, want %+v", snapshot.RoleBreakdown, wantRoles)
	}

	wantCategories := map[string]models.GroupMetrics{
		"Construction": {Count: 2, CompletionRate: 50, AverageTimeToCompletionHours: 2},
		"Delivery":     {Count: 1, CompletionRate: 100, AverageTimeToCompletionHours: 4},
	}
	if !reflect.DeepEqual(snapshot.CategoryBreakdown, wantCategories) {
		t.Errorf("categoryBreakdown = %+v, want %+v", snapshot.CategoryBreakdown, wantCategories)
	}
}

func TestAggregate_ParallelMatchesSequential(t *testing.T) {
	outcomes := []models.RequestOutcome{models.CompletedOutcome, models.PendingOutcome, models.ExpiredOutcome, models.CancelledOutcome}
	roles := []string{"general_contractor", "subcontractor", "supplier", "homeowner"}
	categories := []string{"Construction", "Delivery", "Manufacture"}

	records := make([]models.RequestRecord, 0, 45000)
	start := date(2023, time.January, 1, 0)
	for i := 0; i < cap(records); i++ {
		rec := record(
			fmt.Sprintf("r%d", i),
			start.Add(time.Duration(i)*37*time.Minute),
			outcomes[i%len(outcomes)],
			time.Duration(i%97+1)*time.Minute,
		)
		rec.Role = roles[i%len(roles)]
		rec.Category = categories[i%len(categories)]
		records = append(records, rec)
	}
	rng := models.DateRange{From: ptr(date(2023, time.March, 1, 0)), To: ptr(date(2024, time.December, 31, 0))}

	sequential := testAggregator()
	sequential.Workers = 1
	parallel := testAggregator()
	parallel.Workers = 4

	want, err := sequential.Aggregate(context.Background(), records, rng)
	if err != nil {
		t.Fatalf("sequential Aggregate() unexpected error: %v", err)
	}
	got, err := parallel.Aggregate(context.Background(), records, rng)
	if err != nil {
		t.Fatalf("parallel Aggregate() unexpected error: %v", err)
	}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("parallel snapshot differs from sequential:\n got %+v\nwant %+v", got, want)
	}
}

func TestAggregate_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	records := []models.RequestRecord{record("a", date(2025, time.January, 3, 0), models.PendingOutcome, 0)}
	_, err := testAggregator().Aggregate(ctx, records, models.DateRange{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Aggregate() error = %v, want context.Canceled", err)
	}
}
