// Package events доставляет события жизненного цикла предложений
// внешним подписчикам.
package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Publisher принимает события после успешной фиксации перехода.
type Publisher interface {
	Publish(ctx context.Context, eventType EventType, proposalID string, data map[string]any) error
}

// NewEnvelope собирает конверт события.
func NewEnvelope(source string, eventType EventType, proposalID string, data map[string]any) Envelope {
	return Envelope{
		EventID:       "evt_" + uuid.New().String(),
		EventType:     eventType,
		SchemaVersion: "1.0",
		Timestamp:     time.Now().UTC(),
		Source:        source,
		ProposalID:    proposalID,
		Data:          data,
	}
}

// LogPublisher только пишет события в лог.
type LogPublisher struct {
	source string
	logger *slog.Logger
}

// NewLogPublisher создает LogPublisher.
func NewLogPublisher(source string, logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{source: source, logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, eventType EventType, proposalID string, data map[string]any) error {
	envelope := NewEnvelope(p.source, eventType, proposalID, data)
	p.logger.InfoContext(ctx, "event_published",
		"event_id", envelope.EventID,
		"event_type", envelope.EventType,
		"proposal_id", envelope.ProposalID,
		"source", envelope.Source,
	)
	return nil
}

// WebhookPublisher отправляет события POST-запросом на webhook.
type WebhookPublisher struct {
	source     string
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewWebhookPublisher создает WebhookPublisher.
func NewWebhookPublisher(source, url string, logger *slog.Logger) *WebhookPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookPublisher{
		source: source,
		url:    url,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		logger: logger,
	}
}

func (p *WebhookPublisher) Publish(ctx context.Context, eventType EventType, proposalID string, data map[string]any) error {
	envelope := NewEnvelope(p.source, eventType, proposalID, data)

	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-ID", envelope.EventID)
	req.Header.Set("X-Event-Type", string(envelope.EventType))

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook %s responded with status %d", p.url, resp.StatusCode)
	}

	p.logger.DebugContext(ctx, "event_delivered",
		"event_id", envelope.EventID,
		"event_type", envelope.EventType,
		"url", p.url,
	)
	return nil
}

// MemoryPublisher складывает события в память.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Envelope
}

// NewMemoryPublisher создает MemoryPublisher.
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Publish(ctx context.Context, eventType EventType, proposalID string, data map[string]any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, NewEnvelope("memory", eventType, proposalID, data))
	return nil
}

// Events возвращает копию накопленных событий.
func (p *MemoryPublisher) Events() []Envelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Envelope(nil), p.events...)
}
