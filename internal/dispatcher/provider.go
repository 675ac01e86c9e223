package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/renubu/renubu/internal/model"
)

type Provider interface {
	Name() string
	Ready() bool
	Acquire() bool
	Notify(ctx context.Context, n model.Notification) error
}

// WebhookProvider posts notifications as JSON to a single URL (Slack-style incoming webhook).
type WebhookProvider struct {
	name   string
	url    string
	client *http.Client
	br     *MicroBreaker
}

func NewWebhookProvider(name, url string, timeoutMs, failThreshold, openForMs int) *WebhookProvider {
	if timeoutMs <= 0 {
		timeoutMs = 3000
	}

	if failThreshold <= 0 {
		failThreshold = 3
	}

	if openForMs <= 0 {
		openForMs = 15000
	}

	return &WebhookProvider{
		name:   name,
		url:    url,
		client: &http.Client{Timeout: time.Duration(timeoutMs) * time.Millisecond},
		br:     NewMicroBreaker(failThreshold, time.Duration(openForMs)*time.Millisecond),
	}
}

func (p *WebhookProvider) Name() string  { return p.name }
func (p *WebhookProvider) Ready() bool   { return p.br.Ready() }
func (p *WebhookProvider) Acquire() bool { return p.br.TryAcquire() }

func (p *WebhookProvider) Notify(ctx context.Context, n model.Notification) error {
	if err := p.post(ctx, n); err != nil {
		p.br.OnFailure()
		return err
	}

	p.br.OnSuccess()

	return nil
}

func (p *WebhookProvider) post(ctx context.Context, n model.Notification) error {
	body, err := json.Marshal(webhookBody{Text: fmt.Sprintf("[%s] %s", n.Urgency, n.Message), Notification: n})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	res, err := p.client.Do(req)
	if err != nil {
		return err
	}

	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		return fmt.Errorf("provider=%s status=%d", p.name, res.StatusCode)
	}

	return nil
}

// webhookBody carries a plain text line for chat webhooks plus the structured notification.
type webhookBody struct {
	Text string `json:"text"`
	model.Notification
}
