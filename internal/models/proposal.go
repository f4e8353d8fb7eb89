package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type (
	ProposalStatus    string // Статус предложения
	ProposalOperation string // Операция жизненного цикла
	ProposalCategory  string // Тип работ по предложению
	CounterpartyRole  string // Роль контрагента, принимающего решение
)

const (
	DraftProposal     ProposalStatus = "draft"     // Черновик, позиции можно менять
	SubmittedProposal ProposalStatus = "submitted" // Отправлено контрагенту
	AcceptedProposal  ProposalStatus = "accepted"  // Принято
	RejectedProposal  ProposalStatus = "rejected"  // Отклонено
	WithdrawnProposal ProposalStatus = "withdrawn" // Отозвано автором

	CreateOperation    ProposalOperation = "create"
	EditItemsOperation ProposalOperation = "editItems"
	SubmitOperation    ProposalOperation = "submit"
	AcceptOperation    ProposalOperation = "accept"
	RejectOperation    ProposalOperation = "reject"
	WithdrawOperation  ProposalOperation = "withdraw"
	DeleteOperation    ProposalOperation = "delete"

	Construction ProposalCategory = "Construction"
	Delivery     ProposalCategory = "Delivery"
	Manufacture  ProposalCategory = "Manufacture"

	GeneralContractor CounterpartyRole = "general_contractor"
	Subcontractor     CounterpartyRole = "subcontractor"
	Supplier          CounterpartyRole = "supplier"
	Homeowner         CounterpartyRole = "homeowner"
)

// Valid сообщает, является ли статус одним из известных.
func (s ProposalStatus) Valid() bool {
	switch s {
	case DraftProposal, SubmittedProposal, AcceptedProposal, RejectedProposal, WithdrawnProposal:
		return true
	}
	return false
}

// IsTerminal сообщает, что из статуса больше нет переходов.
func (s ProposalStatus) IsTerminal() bool {
	switch s {
	case AcceptedProposal, RejectedProposal, WithdrawnProposal:
		return true
	}
	return false
}

// Valid сообщает, является ли роль одной из ролей кабинетов.
func (r CounterpartyRole) Valid() bool {
	switch r {
	case GeneralContractor, Subcontractor, Supplier, Homeowner:
		return true
	}
	return false
}

// ProposalItem представляет позицию предложения.
type ProposalItem struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

// Proposal представляет модель коммерческого предложения.
type Proposal struct {
	ID               string           `json:"id"`
	CounterpartyID   string           `json:"counterpartyId"`
	CounterpartyName string           `json:"counterpartyName"`
	CounterpartyRole CounterpartyRole `json:"counterpartyRole"`
	SubjectName      string           `json:"subjectName"`
	Location         string           `json:"location"`
	Category         ProposalCategory `json:"category"`
	Status           ProposalStatus   `json:"status"`
	Items            []ProposalItem   `json:"items"`
	TotalAmount      decimal.Decimal  `json:"totalAmount"`
	Version          int              `json:"version"`
	CreatedAt        time.Time        `json:"createdAt"`
	SubmittedAt      *time.Time       `json:"submittedAt,omitempty"`
	ResolvedAt       *time.Time       `json:"resolvedAt,omitempty"`
}

// Clone возвращает глубокую копию предложения.
func (p *Proposal) Clone() *Proposal {
	if p == nil {
		return nil
	}
	c := *p
	c.Items = append([]ProposalItem(nil), p.Items...)
	if p.SubmittedAt != nil {
		t := *p.SubmittedAt
		c.SubmittedAt = &t
	}
	if p.ResolvedAt != nil {
		t := *p.ResolvedAt
		c.ResolvedAt = &t
	}
	return &c
}

// ProposalRequest представляет структуру запроса для создания предложения.
type ProposalRequest struct {
	CounterpartyID   string           `json:"counterpartyId"`
	CounterpartyName string           `json:"counterpartyName"`
	CounterpartyRole CounterpartyRole `json:"counterpartyRole"`
	SubjectName      string           `json:"subjectName"`
	Location         string           `json:"location"`
	Category         ProposalCategory `json:"category"`
}

// ProposalItemRequest описывает позицию в запросе на редактирование.
// Пустой ID означает новую позицию.
type ProposalItemRequest struct {
	ID          string          `json:"id,omitempty"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

// EditItemsRequest заменяет список позиций целиком.
type EditItemsRequest struct {
	Items []ProposalItemRequest `json:"items"`
}

// ProposalHistory представляет запись журнала переходов.
type ProposalHistory struct {
	ProposalID string            `json:"-"`
	Version    int               `json:"version"`
	Status     ProposalStatus    `json:"status"`
	Operation  ProposalOperation `json:"operation"`
	CreatedAt  time.Time         `json:"createdAt"`
}

// ProposalFilter задает выборку списка предложений.
type ProposalFilter struct {
	Status ProposalStatus
	Limit  int
	Offset int
}
