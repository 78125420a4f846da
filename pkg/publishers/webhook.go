package publishers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tech-vaibhav/n8n-workflow-popularity-system/pkg/httpclient"
)

// headerPlatform carries the refreshed platform on webhook deliveries.
const headerPlatform = "X-Refresh-Platform"

// webhookPublisher sends refresh events as JSON to an HTTP endpoint.
type webhookPublisher struct {
	id      string
	method  string
	url     string
	headers map[string]string
	client  *resty.Client
	log     Logger
}

func newWebhookPublisher(_ context.Context, cfg SinkConfig, log Logger) (Publisher, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("missing http configuration")
	}
	return &webhookPublisher{
		id:      cfg.ID,
		method:  cfg.HTTP.Method,
		url:     cfg.HTTP.URL,
		headers: cfg.HTTP.Headers,
		client:  httpclient.NewRestyHTTPClient(time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second),
		log:     ensureLogger(log),
	}, nil
}

func (w *webhookPublisher) ID() string   { return w.id }
func (w *webhookPublisher) Type() string { return TypeHTTP }

func (w *webhookPublisher) Publish(ctx context.Context, evt Event) error {
	method := w.method
	if method == "" {
		method = webhookDefaultMethod
	}

	resp, err := w.client.R().
		SetContext(ctx).
		SetHeaders(w.headers).
		SetHeader("Content-Type", "application/json").
		SetHeader(headerPlatform, evt.Platform).
		SetBody(evt).
		Execute(method, w.url)
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook status %d: %s", resp.StatusCode(), bodySnippet(resp.Body()))
	}

	w.log.DebugObj("webhook delivered refresh event", "publisher_http_delivery", map[string]any{
		"publisher_id": w.id,
		"platform":     evt.Platform,
		"status_code":  resp.StatusCode(),
	})
	return nil
}

func bodySnippet(body []byte) string {
	const limit = 512
	if len(body) > limit {
		body = body[:limit]
	}
	return strings.TrimSpace(string(body))
}
