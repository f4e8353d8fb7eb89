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

// ProposalHandler - структура для обработки HTTP-запросов по предложениям.
type ProposalHandler struct {
	Service *services.ProposalService
	Logger  *slog.Logger
	Timeout time.Duration
}

// NewProposalHandler создает новый экземпляр ProposalHandler.
func NewProposalHandler(service *services.ProposalService, logger *slog.Logger, timeout time.Duration) *ProposalHandler {
	return &ProposalHandler{
		Service: service,
		Logger:  logger,
		Timeout: timeout,
	}
}

// CreateProposal обрабатывает запросы для создания предложения.
func (h *ProposalHandler) CreateProposal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only POST is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var req models.ProposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	proposal, err := h.Service.CreateProposal(ctx, req)
	if err != nil {
		writeError(w, r, h.Logger, err, "failed to create proposal")
		return
	}
	utils.SendJSON(w, http.StatusOK, proposal)
}

// ListProposals обрабатывает запросы для получения списка предложений.
func (h *ProposalHandler) ListProposals(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only GET is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	status := r.URL.Query().Get("status")
	limitStr := r.URL.Query().Get("limit")
	offsetStr := r.URL.Query().Get("offset")

	proposals, err := h.Service.ListProposals(ctx, status, limitStr, offsetStr)
	if err != nil {
		writeError(w, r, h.Logger, err, "failed to retrieve proposals")
		return
	}
	utils.SendJSON(w, http.StatusOK, proposals)
}

// GetProposal обрабатывает запросы для получения предложения.
func (h *ProposalHandler) GetProposal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only GET is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	proposal, err := h.Service.GetProposal(ctx, r.PathValue("proposalId"))
	if err != nil {
		writeError(w, r, h.Logger, err, "failed to retrieve proposal")
		return
	}
	utils.SendJSON(w, http.StatusOK, proposal)
}

// GetProposalHistory обрабатывает запросы для получения журнала переходов.
func (h *ProposalHandler) GetProposalHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only GET is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	history, err := h.Service.GetProposalHistory(ctx, r.PathValue("proposalId"))
	if err != nil {
		writeError(w, r, h.Logger, err, "failed to retrieve proposal history")
		return
	}
	utils.SendJSON(w, http.StatusOK, history)
}

// EditItems обрабатывает запросы на замену позиций черновика.
func (h *ProposalHandler) EditItems(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only PUT is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var req models.EditItemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	proposal, err := h.Service.EditItems(ctx, r.PathValue("proposalId"), req.Items)
	if err != nil {
		writeError(w, r, h.Logger, err, "failed to edit proposal items")
		return
	}
	utils.SendJSON(w, http.StatusOK, proposal)
}

// Submit обрабатывает запросы на отправку предложения.
func (h *ProposalHandler) Submit(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Service.Submit, "failed to submit proposal")
}

// Accept обрабатывает запросы на принятие предложения.
func (h *ProposalHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Service.Accept, "failed to accept proposal")
}

// Reject обрабатывает запросы на отклонение предложения.
func (h *ProposalHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Service.Reject, "failed to reject proposal")
}

// Withdraw обрабатывает запросы на отзыв предложения.
func (h *ProposalHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Service.Withdraw, "failed to withdraw proposal")
}

// DeleteProposal обрабатывает запросы на удаление черновика.
func (h *ProposalHandler) DeleteProposal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only DELETE is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	if err := h.Service.DeleteProposal(ctx, r.PathValue("proposalId")); err != nil {
		writeError(w, r, h.Logger, err, "failed to delete proposal")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProposalHandler) transition(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, proposalId string) (*models.Proposal, error), fallback string) {
	if r.Method != http.MethodPost {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only POST is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	proposal, err := op(ctx, r.PathValue("proposalId"))
	if err != nil {
		writeError(w, r, h.Logger, err, fallback)
		return
	}
	utils.SendJSON(w, http.StatusOK, proposal)
}
