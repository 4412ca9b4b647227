package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"role-gate/internal/metrics"
)

// Webhook posts plain-text messages to a Discord channel webhook.
type Webhook struct {
	url        string
	httpClient *http.Client
	timeout    time.Duration
	metrics    *metrics.Metrics
}

// NewWebhook returns nil when url is empty, so callers can skip
// notification with a nil check.
func NewWebhook(url string, timeout time.Duration, m *metrics.Metrics) *Webhook {
	if url == "" {
		return nil
	}
	return &Webhook{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		timeout:    timeout,
		metrics:    m,
	}
}

// Notify sends content. Any 2xx counts as delivered.
func (w *Webhook) Notify(ctx context.Context, content string) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	payload, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return fmt.Errorf("notify: encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("notify: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := w.httpClient.Do(req)
	if err != nil {
		w.metrics.ObserveUpstream("discord_webhook", 0, time.Since(start))
		return fmt.Errorf("notify: post webhook: %w", err)
	}
	defer resp.Body.Close()
	w.metrics.ObserveUpstream("discord_webhook", resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("notify: webhook returned %d", resp.StatusCode)
	}
	return nil
}
