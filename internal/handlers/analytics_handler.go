package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/senyabanana/proposal-service/internal/models"
	"github.com/senyabanana/proposal-service/internal/services"
	"github.com/senyabanana/proposal-service/internal/utils"
)

// AnalyticsHandler - структура для обработки HTTP-запросов аналитики.
type AnalyticsHandler struct {
	Service *services.AnalyticsService
	Logger  *slog.Logger
	Timeout time.Duration
}

// NewAnalyticsHandler создает новый экземпляр AnalyticsHandler.
func NewAnalyticsHandler(service *services.AnalyticsService, logger *slog.Logger, timeout time.Duration) *AnalyticsHandler {
	return &AnalyticsHandler{
		Service: service,
		Logger:  logger,
		Timeout: timeout,
	}
}

// GetAnalytics обрабатывает запросы для получения снимка аналитики.
func (h *AnalyticsHandler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only GET is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	query := r.URL.Query()
	snapshot, err := h.Service.GetAnalytics(ctx, query.Get("from"), query.Get("to"), query.Get("category"), query.Get("role"))
	if err != nil {
		writeError(w, r, h.Logger, err, "failed to build analytics")
		return
	}
	utils.SendJSON(w, http.StatusOK, snapshot)
}

// RecordRequest обрабатывает запросы на добавление внешней записи.
func (h *AnalyticsHandler) RecordRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only POST is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var rec models.RequestRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	saved, err := h.Service.RecordRequest(ctx, rec)
	if err != nil {
		writeError(w, r, h.Logger, err, "failed to save request record")
		return
	}
	utils.SendJSON(w, http.StatusCreated, saved)
}
