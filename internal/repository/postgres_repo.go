package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/senyabanana/proposal-service/internal/lifecycle"
	"github.com/senyabanana/proposal-service/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const proposalColumns = `id, counterparty_id, counterparty_name, counterparty_role, subject_name, location, category,
	status, total_amount::text, version, created_at, submitted_at, resolved_at`

// PostgresProposalRepository - реализация Store для базы данных.
type PostgresProposalRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresProposalRepository создает новый экземпляр PostgresProposalRepository.
func NewPostgresProposalRepository(db *pgxpool.Pool) *PostgresProposalRepository {
	return &PostgresProposalRepository{DB: db}
}

// CreateProposal создает новое предложение.
func (r *PostgresProposalRepository) CreateProposal(ctx context.Context, p *models.Proposal) error {
	return pgx.BeginFunc(ctx, r.DB, func(tx pgx.Tx) error {
		insertQuery := `INSERT INTO proposal (id, counterparty_id, counterparty_name, counterparty_role, subject_name, location,
		                    category, status, total_amount, version, created_at)
		                VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::numeric, $10, $11)`
		_, err := tx.Exec(
			ctx,
			insertQuery,
			p.ID,
			p.CounterpartyID,
			p.CounterpartyName,
			p.CounterpartyRole,
			p.SubjectName,
			p.Location,
			p.Category,
			p.Status,
			p.TotalAmount.String(),
			p.Version,
			p.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert proposal: %w", err)
		}
		return insertHistory(ctx, tx, p, models.CreateOperation)
	})
}

// GetProposal возвращает предложение вместе с позициями.
func (r *PostgresProposalRepository) GetProposal(ctx context.Context, proposalId string) (*models.Proposal, error) {
	query := `SELECT ` + proposalColumns + ` FROM proposal WHERE id = $1`
	p, err := scanProposal(r.DB.QueryRow(ctx, query, proposalId))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.NewNotFound(proposalId)
		}
		return nil, fmt.Errorf("select proposal: %w", err)
	}

	items, err := r.getItems(ctx, proposalId)
	if err != nil {
		return nil, err
	}
	p.Items = items
	return p, nil
}

// ListProposals возвращает список предложений без позиций.
func (r *PostgresProposalRepository) ListProposals(ctx context.Context, filter models.ProposalFilter) ([]models.Proposal, error) {
	var query string
	var args []interface{}
	if filter.Status != "" {
		query = `SELECT ` + proposalColumns + ` FROM proposal
			WHERE status = $1
			ORDER BY created_at, id
			LIMIT $2 OFFSET $3`
		args = append(args, filter.Status, filter.Limit, filter.Offset)
	} else {
		query = `SELECT ` + proposalColumns + ` FROM proposal
			ORDER BY created_at, id
			LIMIT $1 OFFSET $2`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}
	defer rows.Close()

	proposals := []models.Proposal{}
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		p.Items = []models.ProposalItem{}
		proposals = append(proposals, *p)
	}
	return proposals, rows.Err()
}

// SaveProposal применяет переход, если версия в базе совпадает с p.Version.
// Позиции переписываются только при редактировании черновика.
func (r *PostgresProposalRepository) SaveProposal(ctx context.Context, p *models.Proposal, op models.ProposalOperation) error {
	err := pgx.BeginFunc(ctx, r.DB, func(tx pgx.Tx) error {
		updateQuery := `UPDATE proposal
		                SET status = $1, total_amount = $2::numeric, submitted_at = $3, resolved_at = $4, version = version + 1
		                WHERE id = $5 AND version = $6`
		tag, err := tx.Exec(ctx, updateQuery, p.Status, p.TotalAmount.String(), p.SubmittedAt, p.ResolvedAt, p.ID, p.Version)
		if err != nil {
			return fmt.Errorf("update proposal: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return missingOrConflict(ctx, tx, p.ID)
		}

		if op == models.EditItemsOperation {
			if err := replaceItems(ctx, tx, p); err != nil {
				return err
			}
		}

		saved := p.Clone()
		saved.Version++
		if err := insertHistory(ctx, tx, saved, op); err != nil {
			return err
		}
		if rec, ok := lifecycle.ToRecord(saved); ok {
			return upsertRecord(ctx, tx, rec, "proposal")
		}
		return nil
	})
	if err != nil {
		return err
	}
	p.Version++
	return nil
}

// DeleteProposal удаляет черновик. Позиции и журнал удаляются каскадно.
func (r *PostgresProposalRepository) DeleteProposal(ctx context.Context, proposalId string, expectedVersion int) error {
	return pgx.BeginFunc(ctx, r.DB, func(tx pgx.Tx) error {
		deleteQuery := `DELETE FROM proposal WHERE id = $1 AND version = $2 AND status = $3`
		tag, err := tx.Exec(ctx, deleteQuery, proposalId, expectedVersion, models.DraftProposal)
		if err != nil {
			return fmt.Errorf("delete proposal: %w", err)
		}
		if tag.RowsAffected() == 0 {
			var status models.ProposalStatus
			var version int
			err := tx.QueryRow(ctx, `SELECT status, version FROM proposal WHERE id = $1`, proposalId).Scan(&status, &version)
			if errors.Is(err, pgx.ErrNoRows) {
				return models.NewNotFound(proposalId)
			}
			if err != nil {
				return fmt.Errorf("select proposal: %w", err)
			}
			if version != expectedVersion {
				return models.NewConflict(proposalId)
			}
			return models.NewInvalidTransition(status, models.DeleteOperation)
		}
		return nil
	})
}

// GetProposalHistory возвращает журнал переходов предложения.
func (r *PostgresProposalRepository) GetProposalHistory(ctx context.Context, proposalId string) ([]models.ProposalHistory, error) {
	var exists bool
	err := r.DB.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM proposal WHERE id = $1)`, proposalId).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check proposal: %w", err)
	}
	if !exists {
		return nil, models.NewNotFound(proposalId)
	}

	query := `SELECT proposal_id, version, status, operation, created_at
	          FROM proposal_history WHERE proposal_id = $1 ORDER BY version`
	rows, err := r.DB.Query(ctx, query, proposalId)
	if err != nil {
		return nil, fmt.Errorf("select history: %w", err)
	}
	defer rows.Close()

	history := []models.ProposalHistory{}
	for rows.Next() {
		var h models.ProposalHistory
		if err := rows.Scan(&h.ProposalID, &h.Version, &h.Status, &h.Operation, &h.CreatedAt); err != nil {
			return nil, err
		}
		history = append(history, h)
	}
	return history, rows.Err()
}

// ListRecords возвращает аналитические записи по фильтру.
func (r *PostgresProposalRepository) ListRecords(ctx context.Context, filter models.RecordFilter) ([]models.RequestRecord, error) {
	var conditions []string
	var args []interface{}
	argIndex := 1

	if filter.Range.From != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argIndex))
		args = append(args, *filter.Range.From)
		argIndex++
	}
	if filter.Range.To != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", argIndex))
		args = append(args, *filter.Range.To)
		argIndex++
	}
	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argIndex))
		args = append(args, filter.Category)
		argIndex++
	}
	if filter.Role != "" {
		conditions = append(conditions, fmt.Sprintf("role = $%d", argIndex))
		args = append(args, filter.Role)
	}

	query := `SELECT id, created_at, resolved_at, category, role, outcome FROM request_record`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at"

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	records := []models.RequestRecord{}
	for rows.Next() {
		var rec models.RequestRecord
		if err := rows.Scan(&rec.ID, &rec.CreatedAt, &rec.ResolvedAt, &rec.Category, &rec.Role, &rec.Outcome); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// SaveRecord сохраняет внешнюю запись (например, запрос подписи).
func (r *PostgresProposalRepository) SaveRecord(ctx context.Context, rec models.RequestRecord) error {
	return pgx.BeginFunc(ctx, r.DB, func(tx pgx.Tx) error {
		return upsertRecord(ctx, tx, rec, "external")
	})
}

func (r *PostgresProposalRepository) Close() {
	r.DB.Close()
}

func (r *PostgresProposalRepository) getItems(ctx context.Context, proposalId string) ([]models.ProposalItem, error) {
	query := `SELECT id, name, description, unit_price::text
	          FROM proposal_item WHERE proposal_id = $1 ORDER BY position`
	rows, err := r.DB.Query(ctx, query, proposalId)
	if err != nil {
		return nil, fmt.Errorf("select items: %w", err)
	}
	defer rows.Close()

	items := []models.ProposalItem{}
	for rows.Next() {
		var item models.ProposalItem
		var price string
		if err := rows.Scan(&item.ID, &item.Name, &item.Description, &price); err != nil {
			return nil, err
		}
		if item.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parse unit price of item %s: %w", item.ID, err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanProposal(row pgx.Row) (*models.Proposal, error) {
	var p models.Proposal
	var total string
	err := row.Scan(
		&p.ID,
		&p.CounterpartyID,
		&p.CounterpartyName,
		&p.CounterpartyRole,
		&p.SubjectName,
		&p.Location,
		&p.Category,
		&p.Status,
		&total,
		&p.Version,
		&p.CreatedAt,
		&p.SubmittedAt,
		&p.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	if p.TotalAmount, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("parse total amount of proposal %s: %w", p.ID, err)
	}
	return &p, nil
}

func missingOrConflict(ctx context.Context, tx pgx.Tx, proposalId string) error {
	var exists bool
	err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM proposal WHERE id = $1)`, proposalId).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check proposal: %w", err)
	}
	if !exists {
		return models.NewNotFound(proposalId)
	}
	return models.NewConflict(proposalId)
}

func replaceItems(ctx context.Context, tx pgx.Tx, p *models.Proposal) error {
	if _, err := tx.Exec(ctx, `DELETE FROM proposal_item WHERE proposal_id = $1`, p.ID); err != nil {
		return fmt.Errorf("delete items: %w", err)
	}

	batch := &pgx.Batch{}
	for i, item := range p.Items {
		batch.Queue(`INSERT INTO proposal_item (id, proposal_id, position, name, description, unit_price)
		             VALUES ($1, $2, $3, $4, $5, $6::numeric)`,
			item.ID, p.ID, i, item.Name, item.Description, item.UnitPrice.String())
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert items: %w", err)
	}
	return nil
}

func insertHistory(ctx context.Context, tx pgx.Tx, p *models.Proposal, op models.ProposalOperation) error {
	historyInsertQuery := `INSERT INTO proposal_history (proposal_id, version, status, operation, created_at)
	                       VALUES ($1, $2, $3, $4, now())`
	if _, err := tx.Exec(ctx, historyInsertQuery, p.ID, p.Version, p.Status, op); err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

func upsertRecord(ctx context.Context, tx pgx.Tx, rec models.RequestRecord, source string) error {
	upsertQuery := `INSERT INTO request_record (id, created_at, resolved_at, category, role, outcome, source)
	                VALUES ($1, $2, $3, $4, $5, $6, $7)
	                ON CONFLICT (id) DO UPDATE
	                SET created_at = EXCLUDED.created_at, resolved_at = EXCLUDED.resolved_at, category = EXCLUDED.category,
	                    role = EXCLUDED.role, outcome = EXCLUDED.outcome`
	_, err := tx.Exec(ctx, upsertQuery, rec.ID, rec.CreatedAt, rec.ResolvedAt, rec.Category, rec.Role, rec.Outcome, source)
	if err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}
	return nil
}
