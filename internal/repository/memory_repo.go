package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/senyabanana/proposal-service/internal/lifecycle"
	"github.com/senyabanana/proposal-service/internal/models"
)

// MemoryRepository - реализация Store в памяти процесса.
// Аналитические записи предложений строятся в момент запроса.
type MemoryRepository struct {
	mu        sync.RWMutex
	proposals map[string]*models.Proposal
	history   map[string][]models.ProposalHistory
	records   map[string]models.RequestRecord
	now       func() time.Time
}

// NewMemoryRepository создает новый экземпляр MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		proposals: make(map[string]*models.Proposal),
		history:   make(map[string][]models.ProposalHistory),
		records:   make(map[string]models.RequestRecord),
		now:       time.Now,
	}
}

// CreateProposal сохраняет новое предложение.
func (r *MemoryRepository) CreateProposal(ctx context.Context, p *models.Proposal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.proposals[p.ID]; ok {
		return models.NewConflict(p.ID)
	}
	r.proposals[p.ID] = p.Clone()
	r.appendHistory(p, models.CreateOperation)
	return nil
}

// GetProposal возвращает копию предложения.
func (r *MemoryRepository) GetProposal(ctx context.Context, proposalId string) (*models.Proposal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.proposals[proposalId]
	if !ok {
		return nil, models.NewNotFound(proposalId)
	}
	return p.Clone(), nil
}

// ListProposals возвращает предложения без позиций, упорядоченные по дате создания.
func (r *MemoryRepository) ListProposals(ctx context.Context, filter models.ProposalFilter) ([]models.Proposal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []models.Proposal
	for _, p := range r.proposals {
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		summary := p.Clone()
		summary.Items = []models.ProposalItem{}
		result = append(result, *summary)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	if filter.Offset >= len(result) {
		return []models.Proposal{}, nil
	}
	result = result[filter.Offset:]
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

// SaveProposal сохраняет предложение, если версия не изменилась.
func (r *MemoryRepository) SaveProposal(ctx context.Context, p *models.Proposal, op models.ProposalOperation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.proposals[p.ID]
	if !ok {
		return models.NewNotFound(p.ID)
	}
	if current.Version != p.Version {
		return models.NewConflict(p.ID)
	}

	p.Version++
	r.proposals[p.ID] = p.Clone()
	r.appendHistory(p, op)
	return nil
}

// DeleteProposal удаляет черновик вместе с позициями.
func (r *MemoryRepository) DeleteProposal(ctx context.Context, proposalId string, expectedVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.proposals[proposalId]
	if !ok {
		return models.NewNotFound(proposalId)
	}
	if current.Version != expectedVersion {
		return models.NewConflict(proposalId)
	}
	if err := lifecycle.CheckDelete(current); err != nil {
		return err
	}

	delete(r.proposals, proposalId)
	delete(r.history, proposalId)
	return nil
}

// GetProposalHistory возвращает журнал переходов предложения.
func (r *MemoryRepository) GetProposalHistory(ctx context.Context, proposalId string) ([]models.ProposalHistory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.proposals[proposalId]; !ok {
		return nil, models.NewNotFound(proposalId)
	}
	return append([]models.ProposalHistory(nil), r.history[proposalId]...), nil
}

// ListRecords возвращает записи предложений и внешние записи по фильтру.
func (r *MemoryRepository) ListRecords(ctx context.Context, filter models.RecordFilter) ([]models.RequestRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []models.RequestRecord
	for _, p := range r.proposals {
		if rec, ok := lifecycle.ToRecord(p); ok && filter.Matches(rec) {
			result = append(result, rec)
		}
	}
	for _, rec := range r.records {
		if filter.Matches(rec) {
			result = append(result, rec)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// SaveRecord сохраняет внешнюю запись (например, запрос подписи).
func (r *MemoryRepository) SaveRecord(ctx context.Context, rec models.RequestRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec.ID] = rec
	return nil
}

func (r *MemoryRepository) Close() {}

func (r *MemoryRepository) appendHistory(p *models.Proposal, op models.ProposalOperation) {
	r.history[p.ID] = append(r.history[p.ID], models.ProposalHistory{
		ProposalID: p.ID,
		Version:    p.Version,
		Status:     p.Status,
		Operation:  op,
		CreatedAt:  r.now().UTC(),
	})
}
