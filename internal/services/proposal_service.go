package services

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/senyabanana/proposal-service/internal/events"
	"github.com/senyabanana/proposal-service/internal/lifecycle"
	"github.com/senyabanana/proposal-service/internal/models"
	"github.com/senyabanana/proposal-service/internal/repository"
	"github.com/senyabanana/proposal-service/internal/utils"
)

// ProposalService управляет жизненным циклом предложений.
type ProposalService struct {
	Repo      repository.ProposalRepository
	Publisher events.Publisher
	Now       func() time.Time
}

// NewProposalService создает новый экземпляр ProposalService.
func NewProposalService(repo repository.ProposalRepository, publisher events.Publisher, now func() time.Time) *ProposalService {
	if now == nil {
		now = time.Now
	}
	return &ProposalService{Repo: repo, Publisher: publisher, Now: now}
}

// CreateProposal создает черновик предложения.
func (s *ProposalService) CreateProposal(ctx context.Context, req models.ProposalRequest) (*models.Proposal, error) {
	p, err := lifecycle.New(req, s.Now())
	if err != nil {
		return nil, err
	}
	if err := s.Repo.CreateProposal(ctx, p); err != nil {
		return nil, err
	}

	s.publish(ctx, events.ProposalCreated, p, nil)
	return p, nil
}

// GetProposal возвращает предложение по ID.
func (s *ProposalService) GetProposal(ctx context.Context, proposalId string) (*models.Proposal, error) {
	if proposalId == "" {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "missing required parameter: proposalId")
	}
	return s.Repo.GetProposal(ctx, proposalId)
}

// ListProposals получает список предложений.
func (s *ProposalService) ListProposals(ctx context.Context, status, limitStr, offsetStr string) ([]models.Proposal, error) {
	limit, offset, err := utils.ParseLimitOffset(limitStr, offsetStr)
	if err != nil {
		return nil, models.NewErrorResponse(http.StatusBadRequest, err.Error())
	}

	filter := models.ProposalFilter{Status: models.ProposalStatus(status), Limit: limit, Offset: offset}
	if status != "" && !filter.Status.Valid() {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "invalid proposal status")
	}
	return s.Repo.ListProposals(ctx, filter)
}

// GetProposalHistory получает журнал переходов предложения.
func (s *ProposalService) GetProposalHistory(ctx context.Context, proposalId string) ([]models.ProposalHistory, error) {
	if proposalId == "" {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "missing required parameter: proposalId")
	}
	return s.Repo.GetProposalHistory(ctx, proposalId)
}

// EditItems заменяет позиции черновика.
func (s *ProposalService) EditItems(ctx context.Context, proposalId string, items []models.ProposalItemRequest) (*models.Proposal, error) {
	return s.transition(ctx, proposalId, models.EditItemsOperation, func(p *models.Proposal) error {
		return lifecycle.EditItems(p, items)
	})
}

// Submit отправляет черновик контрагенту.
func (s *ProposalService) Submit(ctx context.Context, proposalId string) (*models.Proposal, error) {
	return s.transition(ctx, proposalId, models.SubmitOperation, func(p *models.Proposal) error {
		return lifecycle.Submit(p, s.Now())
	})
}

// Accept принимает отправленное предложение.
func (s *ProposalService) Accept(ctx context.Context, proposalId string) (*models.Proposal, error) {
	return s.resolve(ctx, proposalId, models.AcceptOperation)
}

// Reject отклоняет отправленное предложение.
func (s *ProposalService) Reject(ctx context.Context, proposalId string) (*models.Proposal, error) {
	return s.resolve(ctx, proposalId, models.RejectOperation)
}

// Withdraw отзывает отправленное предложение.
func (s *ProposalService) Withdraw(ctx context.Context, proposalId string) (*models.Proposal, error) {
	return s.resolve(ctx, proposalId, models.WithdrawOperation)
}

// DeleteProposal удаляет черновик вместе с позициями.
func (s *ProposalService) DeleteProposal(ctx context.Context, proposalId string) error {
	if proposalId == "" {
		return models.NewErrorResponse(http.StatusBadRequest, "missing required parameter: proposalId")
	}

	current, err := s.Repo.GetProposal(ctx, proposalId)
	if err != nil {
		return err
	}
	if err := lifecycle.CheckDelete(current); err != nil {
		return err
	}
	if err := s.Repo.DeleteProposal(ctx, proposalId, current.Version); err != nil {
		return s.explainConflict(ctx, proposalId, models.DeleteOperation, err)
	}

	s.publish(ctx, events.ProposalDeleted, current, nil)
	return nil
}

func (s *ProposalService) resolve(ctx context.Context, proposalId string, op models.ProposalOperation) (*models.Proposal, error) {
	return s.transition(ctx, proposalId, op, func(p *models.Proposal) error {
		return lifecycle.Resolve(p, op, s.Now())
	})
}

// transition загружает предложение, применяет переход к копии и сохраняет
// ее со сравнением версии. При ошибке хранилище не меняется.
func (s *ProposalService) transition(ctx context.Context, proposalId string, op models.ProposalOperation, apply func(p *models.Proposal) error) (*models.Proposal, error) {
	if proposalId == "" {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "missing required parameter: proposalId")
	}

	current, err := s.Repo.GetProposal(ctx, proposalId)
	if err != nil {
		return nil, err
	}

	next := current.Clone()
	if err := apply(next); err != nil {
		return nil, err
	}
	if err := s.Repo.SaveProposal(ctx, next, op); err != nil {
		return nil, s.explainConflict(ctx, proposalId, op, err)
	}

	switch op {
	case models.EditItemsOperation:
		s.publish(ctx, events.ProposalItemsEdited, next, nil)
	case models.SubmitOperation:
		s.publish(ctx, events.ProposalSubmitted, next, nil)
	default:
		outcome, _ := lifecycle.Outcome(next.Status)
		s.publish(ctx, events.ProposalResolved, next, map[string]any{"outcome": outcome})
	}
	return next, nil
}

// explainConflict перечитывает предложение после проигранной гонки: если
// операция уже недопустима, вызывающий получает InvalidTransition.
func (s *ProposalService) explainConflict(ctx context.Context, proposalId string, op models.ProposalOperation, err error) error {
	if !errors.Is(err, models.ErrConflict) {
		return err
	}
	latest, getErr := s.Repo.GetProposal(ctx, proposalId)
	if getErr != nil {
		return getErr
	}
	if checkErr := lifecycle.Check(latest, op); checkErr != nil {
		return checkErr
	}
	return err
}

func (s *ProposalService) publish(ctx context.Context, eventType events.EventType, p *models.Proposal, extra map[string]any) {
	if s.Publisher == nil {
		return
	}

	data := map[string]any{
		"status":          p.Status,
		"counterparty_id": p.CounterpartyID,
		"total_amount":    p.TotalAmount.String(),
		"version":         p.Version,
	}
	for k, v := range extra {
		data[k] = v
	}
	if err := s.Publisher.Publish(ctx, eventType, p.ID, data); err != nil {
		slog.WarnContext(ctx, "failed to publish event",
			"event_type", eventType,
			"proposal_id", p.ID,
			"error", err,
		)
	}
}
