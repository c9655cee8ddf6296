package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/systmms/credfresh/internal/config"
)

// defaultWebhookTimeout bounds one delivery request.
const defaultWebhookTimeout = 10 * time.Second

// WebhookProvider posts the summary as JSON to a configured endpoint, for
// chat-bridge or pager integrations.
type WebhookProvider struct {
	url    string
	client *http.Client
}

// NewWebhookProvider creates a webhook delivery channel.
func NewWebhookProvider(cfg config.WebhookConfig) *WebhookProvider {
	timeout := defaultWebhookTimeout
	if cfg.TimeoutMs > 0 {
		timeout = time.Duration(cfg.TimeoutMs) * time.Millisecond
	}
	return &WebhookProvider{
		url:    cfg.URL,
		client: &http.Client{Timeout: timeout},
	}
}

// Name identifies the channel.
func (p *WebhookProvider) Name() string {
	return "webhook"
}

// webhookPayload is the wire shape posted to the endpoint. Outcome reasons
// are included; credential values never appear in outcomes.
type webhookPayload struct {
	Source     string  `json:"source"`
	Text       string  `json:"text"`
	Summary    Summary `json:"summary"`
	AllHealthy bool    `json:"all_healthy"`
}

// Notify posts the summary.
func (p *WebhookProvider) Notify(ctx context.Context, summary Summary) error {
	payload := webhookPayload{
		Source:     "credfresh",
		Text:       summary.Render(),
		Summary:    summary,
		AllHealthy: summary.AllSucceeded(),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook endpoint returned %s", resp.Status)
	}
	return nil
}
