package events

import "time"

// EventType - тип события жизненного цикла
type EventType string

const (
	ProposalCreated     EventType = "proposal.created"
	ProposalItemsEdited EventType = "proposal.items_edited"
	ProposalSubmitted   EventType = "proposal.submitted"
	ProposalResolved    EventType = "proposal.resolved"
	ProposalDeleted     EventType = "proposal.deleted"
)

// Envelope - конверт события для подписчиков (уведомления, почта)
type Envelope struct {
	EventID       string         `json:"event_id"`
	EventType     EventType      `json:"event_type"`
	SchemaVersion string         `json:"schema_version"`
	Timestamp     time.Time      `json:"timestamp"`
	Source        string         `json:"source"`
	ProposalID    string         `json:"proposal_id"`
	Data          map[string]any `json:"data"`
}
