package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
)

// Embed colors (decimal format, Discord-compatible).
const (
	colorInfo    = 0x2ecc71 // Green
	colorWarning = 0xf39c12 // Orange
	colorError   = 0xe74c3c // Red
)

type embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Color       int          `json:"color"`
	Footer      *embedFooter `json:"footer,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
	Fields      []embedField `json:"fields,omitempty"`
}

type embedFooter struct {
	Text string `json:"text"`
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type webhookPayload struct {
	Embeds []embed `json:"embeds"`
}

// WebhookSender posts events to a Discord-compatible webhook.
type WebhookSender struct {
	url    string
	client *http.Client
}

// NewWebhookSender creates a webhook sender. When url is empty it reads
// SLIPWAY_WEBHOOK_URL from the environment.
func NewWebhookSender(url string) *WebhookSender {
	if url == "" {
		url = os.Getenv("SLIPWAY_WEBHOOK_URL")
	}
	return &WebhookSender{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Name returns the sender name.
func (w *WebhookSender) Name() string {
	return "webhook"
}

// IsConfigured returns true if the webhook URL is set.
func (w *WebhookSender) IsConfigured() bool {
	return w.url != ""
}

// Send posts an event to the webhook.
func (w *WebhookSender) Send(ctx context.Context, event *Event) error {
	if !w.IsConfigured() {
		return nil
	}

	e := embed{
		Title:       event.Title,
		Description: event.Message,
		Color:       severityToColor(event.Severity),
		Footer:      &embedFooter{Text: fmt.Sprintf("slipway/%s", event.Source)},
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}

	for key, value := range event.Metadata {
		if value == "" {
			continue
		}
		e.Fields = append(e.Fields, embedField{
			Name:   key,
			Value:  truncate(value, 1024), // Discord field limit.
			Inline: true,
		})
	}

	body, err := json.Marshal(webhookPayload{Embeds: []embed{e}})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	// Discord returns 204 No Content on success.
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	return nil
}

func severityToColor(severity Severity) int {
	switch severity {
	case SeverityWarning:
		return colorWarning
	case SeverityError:
		return colorError
	default:
		return colorInfo
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
