package services

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/senyabanana/proposal-service/internal/analytics"
	"github.com/senyabanana/proposal-service/internal/models"
	"github.com/senyabanana/proposal-service/internal/repository"
	"github.com/senyabanana/proposal-service/internal/utils"

	"github.com/google/uuid"
)

// externalRecordPrefix отделяет внешние записи от записей предложений.
const externalRecordPrefix = "rec_"

// AnalyticsService строит отчеты по аналитическим записям.
type AnalyticsService struct {
	Repo       repository.RecordRepository
	Aggregator *analytics.Aggregator
}

// NewAnalyticsService создает новый экземпляр AnalyticsService.
func NewAnalyticsService(repo repository.RecordRepository, now func() time.Time) *AnalyticsService {
	return &AnalyticsService{Repo: repo, Aggregator: analytics.NewAggregator(now)}
}

// GetAnalytics загружает записи за окно и агрегирует их.
// Даты передаются строками из параметров запроса, пустая строка - открытая граница.
func (s *AnalyticsService) GetAnalytics(ctx context.Context, fromStr, toStr, category, role string) (models.AnalyticsSnapshot, error) {
	var rng models.DateRange
	if fromStr != "" {
		from, err := utils.ParseDate(fromStr, false)
		if err != nil {
			return models.AnalyticsSnapshot{}, models.NewInvalidRange(err.Error())
		}
		rng.From = &from
	}
	if toStr != "" {
		to, err := utils.ParseDate(toStr, true)
		if err != nil {
			return models.AnalyticsSnapshot{}, models.NewInvalidRange(err.Error())
		}
		rng.To = &to
	}
	if rng.From != nil && rng.To != nil && rng.From.After(*rng.To) {
		return models.AnalyticsSnapshot{}, models.NewInvalidRange(fmt.Sprintf("from %s is after to %s", fromStr, toStr))
	}

	records, err := s.Repo.ListRecords(ctx, models.RecordFilter{Range: rng, Category: category, Role: role})
	if err != nil {
		return models.AnalyticsSnapshot{}, err
	}
	return s.Aggregator.Aggregate(ctx, records, rng)
}

// Aggregate считает снимок по уже загруженным записям.
func (s *AnalyticsService) Aggregate(ctx context.Context, records []models.RequestRecord, rng models.DateRange) (models.AnalyticsSnapshot, error) {
	return s.Aggregator.Aggregate(ctx, records, rng)
}

// RecordRequest сохраняет внешнюю запись, например запрос подписи.
// ID назначается сервером с префиксом rec_, переданный клиентом ID отклоняется.
func (s *AnalyticsService) RecordRequest(ctx context.Context, rec models.RequestRecord) (*models.RequestRecord, error) {
	if rec.ID != "" {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "id is assigned by the server")
	}
	if rec.CreatedAt.IsZero() {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "createdAt is required")
	}
	if !rec.Outcome.Valid() {
		return nil, models.NewErrorResponse(http.StatusBadRequest,
			fmt.Sprintf("invalid outcome %q, must be one of completed, expired, cancelled, pending", rec.Outcome))
	}
	if rec.Outcome == models.PendingOutcome && rec.ResolvedAt != nil {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "pending request cannot have resolvedAt")
	}
	if rec.Outcome != models.PendingOutcome && rec.ResolvedAt == nil {
		return nil, models.NewErrorResponse(http.StatusBadRequest,
			fmt.Sprintf("%s request requires resolvedAt", rec.Outcome))
	}
	if rec.ResolvedAt != nil && rec.ResolvedAt.Before(rec.CreatedAt) {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "resolvedAt must not be before createdAt")
	}

	rec.ID = externalRecordPrefix + uuid.New().String()
	rec.CreatedAt = rec.CreatedAt.UTC()
	if rec.ResolvedAt != nil {
		t := rec.ResolvedAt.UTC()
		rec.ResolvedAt = &t
	}

	if err := s.Repo.SaveRecord(ctx, rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
