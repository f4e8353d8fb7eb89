package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/senyabanana/proposal-service/internal/models"
	"github.com/senyabanana/proposal-service/internal/utils"
)

// writeError отдает клиенту ErrorResponse как есть, а прочие ошибки
// логирует и заменяет на fallback с кодом 500.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, fallback string) {
	var errorResponse *models.ErrorResponse
	if errors.As(err, &errorResponse) {
		logger.InfoContext(r.Context(), "request rejected",
			"method", r.Method,
			"path", r.URL.Path,
			"status", errorResponse.StatusCode,
			"reason", errorResponse.Message,
		)
		utils.SendErrorResponse(w, errorResponse.StatusCode, errorResponse.Message)
		return
	}

	logger.ErrorContext(r.Context(), fallback,
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
	)
	utils.SendErrorResponse(w, http.StatusInternalServerError, fallback)
}
