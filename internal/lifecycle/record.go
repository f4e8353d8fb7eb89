package lifecycle

import "github.com/senyabanana/proposal-service/internal/models"

// Outcome отображает статус предложения в итог запроса.
// Черновик запросом еще не является.
func Outcome(status models.ProposalStatus) (models.RequestOutcome, bool) {
	switch status {
	case models.SubmittedProposal:
		return models.PendingOutcome, true
	case models.AcceptedProposal, models.RejectedProposal:
		return models.CompletedOutcome, true
	case models.WithdrawnProposal:
		return models.CancelledOutcome, true
	default:
		return "", false
	}
}

// ToRecord строит аналитическую запись по предложению.
func ToRecord(p *models.Proposal) (models.RequestRecord, bool) {
	outcome, ok := Outcome(p.Status)
	if !ok || p.SubmittedAt == nil {
		return models.RequestRecord{}, false
	}

	rec := models.RequestRecord{
		ID:        p.ID,
		CreatedAt: *p.SubmittedAt,
		Category:  string(p.Category),
		Role:      string(p.CounterpartyRole),
		Outcome:   outcome,
	}
	if p.ResolvedAt != nil {
		t := *p.ResolvedAt
		rec.ResolvedAt = &t
	}
	return rec, true
}
