package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/senyabanana/proposal-service/internal/lifecycle"
	"github.com/senyabanana/proposal-service/internal/models"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoTimeout = 5 * time.Second

type itemDocument struct {
	ID          string `bson:"id"`
	Name        string `bson:"name"`
	Description string `bson:"description,omitempty"`
	UnitPrice   string `bson:"unit_price"`
}

type historyDocument struct {
	Version   int       `bson:"version"`
	Status    string    `bson:"status"`
	Operation string    `bson:"operation"`
	CreatedAt time.Time `bson:"created_at"`
}

type proposalDocument struct {
	ID               string            `bson:"_id"`
	CounterpartyID   string            `bson:"counterparty_id"`
	CounterpartyName string            `bson:"counterparty_name"`
	CounterpartyRole string            `bson:"counterparty_role"`
	SubjectName      string            `bson:"subject_name"`
	Location         string            `bson:"location"`
	Category         string            `bson:"category"`
	Status           string            `bson:"status"`
	Items            []itemDocument    `bson:"items"`
	TotalAmount      string            `bson:"total_amount"`
	Version          int               `bson:"version"`
	CreatedAt        time.Time         `bson:"created_at"`
	SubmittedAt      *time.Time        `bson:"submitted_at"`
	ResolvedAt       *time.Time        `bson:"resolved_at"`
	History          []historyDocument `bson:"history"`
}

type recordDocument struct {
	ID         string     `bson:"_id"`
	CreatedAt  time.Time  `bson:"created_at"`
	ResolvedAt *time.Time `bson:"resolved_at"`
	Category   string     `bson:"category"`
	Role       string     `bson:"role"`
	Outcome    string     `bson:"outcome"`
}

// MongoProposalRepository - реализация Store для MongoDB.
// Журнал хранится внутри документа предложения, поэтому переход и запись
// в журнал атомарны. Записи предложений строятся в момент запроса.
type MongoProposalRepository struct {
	client    *mongo.Client
	proposals *mongo.Collection
	records   *mongo.Collection
}

// NewMongoProposalRepository создает новый экземпляр MongoProposalRepository.
func NewMongoProposalRepository(client *mongo.Client, dbName string) *MongoProposalRepository {
	db := client.Database(dbName)
	return &MongoProposalRepository{
		client:    client,
		proposals: db.Collection("proposals"),
		records:   db.Collection("request_records"),
	}
}

// EnsureIndexes создает индексы коллекций.
func (r *MongoProposalRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.proposals.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "submitted_at", Value: 1}}},
	})
	if err != nil {
		return err
	}

	_, err = r.records.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: 1}},
	})
	return err
}

// CreateProposal создает новое предложение.
func (r *MongoProposalRepository) CreateProposal(ctx context.Context, p *models.Proposal) error {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	doc := toProposalDocument(p)
	doc.History = []historyDocument{newHistoryDocument(p, models.CreateOperation)}
	if _, err := r.proposals.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.NewConflict(p.ID)
		}
		return fmt.Errorf("insert proposal: %w", err)
	}
	return nil
}

// GetProposal возвращает предложение вместе с позициями.
func (r *MongoProposalRepository) GetProposal(ctx context.Context, proposalId string) (*models.Proposal, error) {
	doc, err := r.findOne(ctx, proposalId)
	if err != nil {
		return nil, err
	}
	return fromProposalDocument(doc)
}

// ListProposals возвращает список предложений без позиций.
func (r *MongoProposalRepository) ListProposals(ctx context.Context, filter models.ProposalFilter) ([]models.Proposal, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(filter.Offset)).
		SetProjection(bson.M{"history": 0, "items": 0})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cur, err := r.proposals.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}
	defer cur.Close(ctx)

	var docs []proposalDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	proposals := make([]models.Proposal, 0, len(docs))
	for i := range docs {
		p, err := fromProposalDocument(&docs[i])
		if err != nil {
			return nil, err
		}
		proposals = append(proposals, *p)
	}
	return proposals, nil
}

// SaveProposal применяет переход, если версия документа совпадает с p.Version.
func (r *MongoProposalRepository) SaveProposal(ctx context.Context, p *models.Proposal, op models.ProposalOperation) error {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	saved := p.Clone()
	saved.Version++

	set := bson.M{
		"status":       p.Status,
		"total_amount": p.TotalAmount.String(),
		"submitted_at": p.SubmittedAt,
		"resolved_at":  p.ResolvedAt,
	}
	if op == models.EditItemsOperation {
		set["items"] = toItemDocuments(p.Items)
	}
	update := bson.M{
		"$set":  set,
		"$inc":  bson.M{"version": 1},
		"$push": bson.M{"history": newHistoryDocument(saved, op)},
	}

	res, err := r.proposals.UpdateOne(ctx, bson.M{"_id": p.ID, "version": p.Version}, update)
	if err != nil {
		return fmt.Errorf("update proposal: %w", err)
	}
	if res.MatchedCount == 0 {
		if _, err := r.findOne(ctx, p.ID); err != nil {
			return err
		}
		return models.NewConflict(p.ID)
	}

	p.Version++
	return nil
}

// DeleteProposal удаляет черновик.
func (r *MongoProposalRepository) DeleteProposal(ctx context.Context, proposalId string, expectedVersion int) error {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	res, err := r.proposals.DeleteOne(ctx, bson.M{
		"_id":     proposalId,
		"version": expectedVersion,
		"status":  models.DraftProposal,
	})
	if err != nil {
		return fmt.Errorf("delete proposal: %w", err)
	}
	if res.DeletedCount == 0 {
		doc, err := r.findOne(ctx, proposalId)
		if err != nil {
			return err
		}
		if doc.Version != expectedVersion {
			return models.NewConflict(proposalId)
		}
		return models.NewInvalidTransition(models.ProposalStatus(doc.Status), models.DeleteOperation)
	}
	return nil
}

// GetProposalHistory возвращает журнал переходов предложения.
func (r *MongoProposalRepository) GetProposalHistory(ctx context.Context, proposalId string) ([]models.ProposalHistory, error) {
	doc, err := r.findOne(ctx, proposalId)
	if err != nil {
		return nil, err
	}

	history := make([]models.ProposalHistory, 0, len(doc.History))
	for _, h := range doc.History {
		history = append(history, models.ProposalHistory{
			ProposalID: doc.ID,
			Version:    h.Version,
			Status:     models.ProposalStatus(h.Status),
			Operation:  models.ProposalOperation(h.Operation),
			CreatedAt:  h.CreatedAt,
		})
	}
	return history, nil
}

// ListRecords строит записи по отправленным предложениям и добавляет внешние.
func (r *MongoProposalRepository) ListRecords(ctx context.Context, filter models.RecordFilter) ([]models.RequestRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	proposalQuery := bson.M{"status": bson.M{"$ne": models.DraftProposal}}
	if tr := timeRange(filter.Range); len(tr) > 0 {
		proposalQuery["submitted_at"] = tr
	}
	if filter.Category != "" {
		proposalQuery["category"] = filter.Category
	}
	if filter.Role != "" {
		proposalQuery["counterparty_role"] = filter.Role
	}

	cur, err := r.proposals.Find(ctx, proposalQuery, options.Find().SetProjection(bson.M{"history": 0, "items": 0}))
	if err != nil {
		return nil, fmt.Errorf("list proposal records: %w", err)
	}
	var docs []proposalDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	records := []models.RequestRecord{}
	for i := range docs {
		p, err := fromProposalDocument(&docs[i])
		if err != nil {
			return nil, err
		}
		if rec, ok := lifecycle.ToRecord(p); ok {
			records = append(records, rec)
		}
	}

	recordQuery := bson.M{}
	if tr := timeRange(filter.Range); len(tr) > 0 {
		recordQuery["created_at"] = tr
	}
	if filter.Category != "" {
		recordQuery["category"] = filter.Category
	}
	if filter.Role != "" {
		recordQuery["role"] = filter.Role
	}

	cur, err = r.records.Find(ctx, recordQuery, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	var recDocs []recordDocument
	if err := cur.All(ctx, &recDocs); err != nil {
		return nil, err
	}
	for _, d := range recDocs {
		records = append(records, models.RequestRecord{
			ID:         d.ID,
			CreatedAt:  d.CreatedAt,
			ResolvedAt: d.ResolvedAt,
			Category:   d.Category,
			Role:       d.Role,
			Outcome:    models.RequestOutcome(d.Outcome),
		})
	}
	return records, nil
}

// SaveRecord сохраняет внешнюю запись (например, запрос подписи).
func (r *MongoProposalRepository) SaveRecord(ctx context.Context, rec models.RequestRecord) error {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	doc := recordDocument{
		ID:         rec.ID,
		CreatedAt:  rec.CreatedAt,
		ResolvedAt: rec.ResolvedAt,
		Category:   rec.Category,
		Role:       rec.Role,
		Outcome:    string(rec.Outcome),
	}
	_, err := r.records.ReplaceOne(ctx, bson.M{"_id": rec.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save record: %w", err)
	}
	return nil
}

func (r *MongoProposalRepository) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	_ = r.client.Disconnect(ctx)
}

func (r *MongoProposalRepository) findOne(ctx context.Context, proposalId string) (*proposalDocument, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	var doc proposalDocument
	err := r.proposals.FindOne(ctx, bson.M{"_id": proposalId}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.NewNotFound(proposalId)
		}
		return nil, fmt.Errorf("find proposal: %w", err)
	}
	return &doc, nil
}

func timeRange(rng models.DateRange) bson.M {
	tr := bson.M{}
	if rng.From != nil {
		tr["$gte"] = *rng.From
	}
	if rng.To != nil {
		tr["$lte"] = *rng.To
	}
	return tr
}

func newHistoryDocument(p *models.Proposal, op models.ProposalOperation) historyDocument {
	return historyDocument{
		Version:   p.Version,
		Status:    string(p.Status),
		Operation: string(op),
		CreatedAt: time.Now().UTC(),
	}
}

func toItemDocuments(items []models.ProposalItem) []itemDocument {
	docs := make([]itemDocument, 0, len(items))
	for _, item := range items {
		docs = append(docs, itemDocument{
			ID:          item.ID,
			Name:        item.Name,
			Description: item.Description,
			UnitPrice:   item.UnitPrice.String(),
		})
	}
	return docs
}

func toProposalDocument(p *models.Proposal) proposalDocument {
	return proposalDocument{
		ID:               p.ID,
		CounterpartyID:   p.CounterpartyID,
		CounterpartyName: p.CounterpartyName,
		CounterpartyRole: string(p.CounterpartyRole),
		SubjectName:      p.SubjectName,
		Location:         p.Location,
		Category:         string(p.Category),
		Status:           string(p.Status),
		Items:            toItemDocuments(p.Items),
		TotalAmount:      p.TotalAmount.String(),
		Version:          p.Version,
		CreatedAt:        p.CreatedAt,
		SubmittedAt:      p.SubmittedAt,
		ResolvedAt:       p.ResolvedAt,
	}
}

func fromProposalDocument(doc *proposalDocument) (*models.Proposal, error) {
	total, err := decimal.NewFromString(doc.TotalAmount)
	if err != nil {
		return nil, fmt.Errorf("parse total amount of proposal %s: %w", doc.ID, err)
	}

	items := make([]models.ProposalItem, 0, len(doc.Items))
	for _, d := range doc.Items {
		price, err := decimal.NewFromString(d.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("parse unit price of item %s: %w", d.ID, err)
		}
		items = append(items, models.ProposalItem{
			ID:          d.ID,
			Name:        d.Name,
			Description: d.Description,
			UnitPrice:   price,
		})
	}

	return &models.Proposal{
		ID:               doc.ID,
		CounterpartyID:   doc.CounterpartyID,
		CounterpartyName: doc.CounterpartyName,
		CounterpartyRole: models.CounterpartyRole(doc.CounterpartyRole),
		SubjectName:      doc.SubjectName,
		Location:         doc.Location,
		Category:         models.ProposalCategory(doc.Category),
		Status:           models.ProposalStatus(doc.Status),
		Items:            items,
		TotalAmount:      total,
		Version:          doc.Version,
		CreatedAt:        doc.CreatedAt,
		SubmittedAt:      doc.SubmittedAt,
		ResolvedAt:       doc.ResolvedAt,
	}, nil
}
