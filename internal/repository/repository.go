package repository

import (
	"context"

	"github.com/senyabanana/proposal-service/internal/models"
)

// ProposalRepository - интерфейс для работы с предложениями.
//
// SaveProposal и DeleteProposal выполняют сравнение с версией p.Version:
// если в хранилище версия другая, возвращается ошибка вида models.ErrConflict
// и ничего не меняется. После успешного сохранения p.Version увеличивается.
type ProposalRepository interface {
	CreateProposal(ctx context.Context, p *models.Proposal) error
	GetProposal(ctx context.Context, proposalId string) (*models.Proposal, error)
	ListProposals(ctx context.Context, filter models.ProposalFilter) ([]models.Proposal, error)
	SaveProposal(ctx context.Context, p *models.Proposal, op models.ProposalOperation) error
	DeleteProposal(ctx context.Context, proposalId string, expectedVersion int) error
	GetProposalHistory(ctx context.Context, proposalId string) ([]models.ProposalHistory, error)
}

// RecordRepository - интерфейс для аналитических записей.
type RecordRepository interface {
	ListRecords(ctx context.Context, filter models.RecordFilter) ([]models.RequestRecord, error)
	SaveRecord(ctx context.Context, rec models.RequestRecord) error
}

// Store объединяет оба хранилища, которые реализуются одним бэкендом.
type Store interface {
	ProposalRepository
	RecordRepository
	Close()
}
