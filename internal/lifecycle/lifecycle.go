// Package lifecycle содержит конечный автомат предложения.
// Статус предложения меняется только функциями этого пакета.
package lifecycle

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/senyabanana/proposal-service/internal/models"
	"github.com/senyabanana/proposal-service/internal/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// allowedOperations - допустимые операции для каждого статуса.
var allowedOperations = map[models.ProposalStatus][]models.ProposalOperation{
	models.DraftProposal:     {models.EditItemsOperation, models.SubmitOperation, models.DeleteOperation},
	models.SubmittedProposal: {models.AcceptOperation, models.RejectOperation, models.WithdrawOperation},
	models.AcceptedProposal:  {},
	models.RejectedProposal:  {},
	models.WithdrawnProposal: {},
}

// targetStatus - статус после успешной операции.
var targetStatus = map[models.ProposalOperation]models.ProposalStatus{
	models.EditItemsOperation: models.DraftProposal,
	models.SubmitOperation:    models.SubmittedProposal,
	models.AcceptOperation:    models.AcceptedProposal,
	models.RejectOperation:    models.RejectedProposal,
	models.WithdrawOperation:  models.WithdrawnProposal,
}

// Check проверяет, что операция разрешена в текущем статусе.
func Check(p *models.Proposal, op models.ProposalOperation) error {
	if !utils.Contains(allowedOperations[p.Status], op) {
		return models.NewInvalidTransition(p.Status, op)
	}
	return nil
}

// New создает черновик предложения.
func New(req models.ProposalRequest, now time.Time) (*models.Proposal, error) {
	if req.CounterpartyID == "" || req.CounterpartyName == "" || req.SubjectName == "" || req.Category == "" {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "missing required fields")
	}
	if !req.CounterpartyRole.Valid() {
		return nil, models.NewErrorResponse(http.StatusBadRequest, fmt.Sprintf("invalid counterparty role %q", req.CounterpartyRole))
	}

	return &models.Proposal{
		ID:               uuid.New().String(),
		CounterpartyID:   req.CounterpartyID,
		CounterpartyName: req.CounterpartyName,
		CounterpartyRole: req.CounterpartyRole,
		SubjectName:      req.SubjectName,
		Location:         req.Location,
		Category:         req.Category,
		Status:           models.DraftProposal,
		Items:            []models.ProposalItem{},
		TotalAmount:      decimal.Zero,
		Version:          1,
		CreatedAt:        now.UTC(),
	}, nil
}

// EditItems заменяет позиции черновика и пересчитывает сумму.
// Позиции с известным ID сохраняют его, новые получают свежий.
func EditItems(p *models.Proposal, reqs []models.ProposalItemRequest) error {
	if err := Check(p, models.EditItemsOperation); err != nil {
		return err
	}

	existing := make(map[string]bool, len(p.Items))
	for _, item := range p.Items {
		existing[item.ID] = true
	}

	seen := make(map[string]bool, len(reqs))
	items := make([]models.ProposalItem, 0, len(reqs))
	for i, req := range reqs {
		if req.UnitPrice.IsNegative() {
			return models.NewInvalidItem(fmt.Sprintf("item %d: unit price must be non-negative, got %s", i, req.UnitPrice))
		}
		id := req.ID
		if id == "" {
			id = uuid.New().String()
		} else if !existing[id] {
			return models.NewInvalidItem(fmt.Sprintf("item %d: unknown item id %s", i, id))
		}
		if seen[id] {
			return models.NewInvalidItem(fmt.Sprintf("item %d: duplicate item id %s", i, id))
		}
		seen[id] = true

		items = append(items, models.ProposalItem{
			ID:          id,
			Name:        req.Name,
			Description: req.Description,
			UnitPrice:   req.UnitPrice,
		})
	}

	p.Items = items
	p.TotalAmount = Total(items)
	return nil
}

// Submit отправляет черновик и фиксирует позиции и сумму.
func Submit(p *models.Proposal, now time.Time) error {
	if err := Check(p, models.SubmitOperation); err != nil {
		return err
	}
	if len(p.Items) == 0 {
		return models.NewEmptyItemList(p.ID)
	}
	for i, item := range p.Items {
		if strings.TrimSpace(item.Name) == "" {
			return models.NewInvalidItem(fmt.Sprintf("item %d: name is required for submission", i))
		}
		if item.UnitPrice.IsNegative() {
			return models.NewInvalidItem(fmt.Sprintf("item %d: unit price must be non-negative", i))
		}
	}

	submittedAt := now.UTC()
	p.Status = models.SubmittedProposal
	p.SubmittedAt = &submittedAt
	p.TotalAmount = Total(p.Items)
	return nil
}

// Accept принимает отправленное предложение.
func Accept(p *models.Proposal, now time.Time) error {
	return resolve(p, models.AcceptOperation, now)
}

// Reject отклоняет отправленное предложение.
func Reject(p *models.Proposal, now time.Time) error {
	return resolve(p, models.RejectOperation, now)
}

// Withdraw отзывает отправленное предложение.
func Withdraw(p *models.Proposal, now time.Time) error {
	return resolve(p, models.WithdrawOperation, now)
}

// Resolve применяет одну из завершающих операций по ее имени.
func Resolve(p *models.Proposal, op models.ProposalOperation, now time.Time) error {
	switch op {
	case models.AcceptOperation, models.RejectOperation, models.WithdrawOperation:
		return resolve(p, op, now)
	default:
		return models.NewInvalidTransition(p.Status, op)
	}
}

func resolve(p *models.Proposal, op models.ProposalOperation, now time.Time) error {
	if err := Check(p, op); err != nil {
		return err
	}

	resolvedAt := now.UTC()
	// submittedAt <= resolvedAt даже при сдвиге часов
	if p.SubmittedAt != nil && resolvedAt.Before(*p.SubmittedAt) {
		resolvedAt = *p.SubmittedAt
	}
	p.Status = targetStatus[op]
	p.ResolvedAt = &resolvedAt
	return nil
}

// CheckDelete проверяет, что предложение можно удалить.
func CheckDelete(p *models.Proposal) error {
	return Check(p, models.DeleteOperation)
}

// Total считает точную сумму цен позиций.
func Total(items []models.ProposalItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.UnitPrice)
	}
	return total
}
