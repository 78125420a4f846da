package publishers

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tech-vaibhav/n8n-workflow-popularity-system/internal/domain"
	"gopkg.in/yaml.v3"
)

// Sink types.
const (
	TypeSQS       = "sqs"
	TypeSNS       = "sns"
	TypeGCPPubSub = "gcp_pubsub"
	TypeHTTP      = "http"
)

const (
	webhookDefaultMethod  = "POST"
	webhookDefaultTimeout = 5
)

// SinkConfig declares one refresh-event destination. Platforms restricts the
// sink to saves of the listed platforms; empty means every platform.
type SinkConfig struct {
	ID        string         `json:"id" yaml:"id"`
	Type      string         `json:"type" yaml:"type"`
	Enabled   *bool          `json:"enabled" yaml:"enabled"`
	Platforms []string       `json:"platforms" yaml:"platforms"`
	SQS       *QueueConfig   `json:"sqs" yaml:"sqs"`
	SNS       *TopicConfig   `json:"sns" yaml:"sns"`
	PubSub    *PubSubConfig  `json:"gcp_pubsub" yaml:"gcp_pubsub"`
	HTTP      *WebhookConfig `json:"http" yaml:"http"`
}

// QueueConfig addresses an SQS queue. Queues whose URL ends in ".fifo"
// receive per-platform message groups.
type QueueConfig struct {
	QueueURL string `json:"uri" yaml:"uri"`
	Region   string `json:"region" yaml:"region"`
}

type TopicConfig struct {
	TopicARN string `json:"topic_arn" yaml:"topic_arn"`
	Region   string `json:"region" yaml:"region"`
}

type PubSubConfig struct {
	ProjectID string `json:"project_id" yaml:"project_id"`
	Topic     string `json:"topic" yaml:"topic"`
}

type WebhookConfig struct {
	URL            string            `json:"url" yaml:"url"`
	Method         string            `json:"method" yaml:"method"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// Sinks is the validated content of a publishers file.
type Sinks struct {
	entries []SinkConfig
}

// LoadSinks reads and validates a YAML or JSON publishers file.
func LoadSinks(path string) (*Sinks, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("publishers file path is empty")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read publishers file: %w", err)
	}

	entries, err := decodeSinks(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, errors.New("publishers file declares no sinks")
	}

	seen := make(map[string]struct{}, len(entries))
	for i := range entries {
		entries[i] = normalizeSink(entries[i])
		if err := checkSink(entries[i]); err != nil {
			return nil, fmt.Errorf("publishers[%d]: %w", i, err)
		}
		if _, dup := seen[entries[i].ID]; dup {
			return nil, fmt.Errorf("duplicate publisher id %q", entries[i].ID)
		}
		seen[entries[i].ID] = struct{}{}
	}
	return &Sinks{entries: entries}, nil
}

func decodeSinks(data []byte, ext string) ([]SinkConfig, error) {
	var file struct {
		Publishers []SinkConfig `json:"publishers" yaml:"publishers"`
	}

	var err error
	switch strings.ToLower(ext) {
	case ".json":
		err = json.Unmarshal(data, &file)
	case ".yaml", ".yml", "":
		err = yaml.Unmarshal(data, &file)
	default:
		return nil, fmt.Errorf("publishers file extension %q not supported (expected YAML or JSON)", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("decode publishers file: %w", err)
	}
	return file.Publishers, nil
}

func normalizeSink(c SinkConfig) SinkConfig {
	c.ID = strings.TrimSpace(c.ID)
	c.Type = strings.ToLower(strings.TrimSpace(c.Type))

	platforms := make([]string, 0, len(c.Platforms))
	for _, raw := range c.Platforms {
		if p, ok := domain.ParsePlatform(raw); ok {
			platforms = append(platforms, string(p))
		} else if s := strings.TrimSpace(raw); s != "" {
			platforms = append(platforms, s)
		}
	}
	c.Platforms = platforms

	if c.SQS != nil {
		q := *c.SQS
		q.QueueURL, q.Region = strings.TrimSpace(q.QueueURL), strings.TrimSpace(q.Region)
		c.SQS = &q
	}
	if c.SNS != nil {
		t := *c.SNS
		t.TopicARN, t.Region = strings.TrimSpace(t.TopicARN), strings.TrimSpace(t.Region)
		c.SNS = &t
	}
	if c.PubSub != nil {
		p := *c.PubSub
		p.ProjectID, p.Topic = strings.TrimSpace(p.ProjectID), strings.TrimSpace(p.Topic)
		c.PubSub = &p
	}
	if c.HTTP != nil {
		w := *c.HTTP
		w.URL = strings.TrimSpace(w.URL)
		if w.Method = strings.ToUpper(strings.TrimSpace(w.Method)); w.Method == "" {
			w.Method = webhookDefaultMethod
		}
		if w.TimeoutSeconds <= 0 {
			w.TimeoutSeconds = webhookDefaultTimeout
		}
		headers := make(map[string]string, len(w.Headers))
		for k, v := range w.Headers {
			if k, v = strings.TrimSpace(k), strings.TrimSpace(v); k != "" && v != "" {
				headers[k] = v
			}
		}
		w.Headers = headers
		c.HTTP = &w
	}
	return c
}

func checkSink(c SinkConfig) error {
	if c.ID == "" {
		return errors.New("id is required")
	}
	for _, p := range c.Platforms {
		if _, ok := domain.ParsePlatform(p); !ok {
			return fmt.Errorf("publisher %q: unknown platform %q", c.ID, p)
		}
	}

	missing := func(field string) error {
		return fmt.Errorf("publisher %q: %s is required", c.ID, field)
	}
	switch c.Type {
	case TypeSQS:
		if c.SQS == nil || c.SQS.QueueURL == "" {
			return missing("sqs.uri")
		}
		if c.SQS.Region == "" {
			return missing("sqs.region")
		}
	case TypeSNS:
		if c.SNS == nil || c.SNS.TopicARN == "" {
			return missing("sns.topic_arn")
		}
		if c.SNS.Region == "" {
			return missing("sns.region")
		}
	case TypeGCPPubSub:
		if c.PubSub == nil || c.PubSub.ProjectID == "" {
			return missing("gcp_pubsub.project_id")
		}
		if c.PubSub.Topic == "" {
			return missing("gcp_pubsub.topic")
		}
	case TypeHTTP:
		if c.HTTP == nil || c.HTTP.URL == "" {
			return missing("http.url")
		}
	case "":
		return missing("type")
	default:
		return fmt.Errorf("publisher %q: unknown type %q", c.ID, c.Type)
	}
	return nil
}

// Enabled returns the sinks not switched off, in file order.
func (s *Sinks) Enabled() []SinkConfig {
	if s == nil {
		return nil
	}
	out := make([]SinkConfig, 0, len(s.entries))
	for _, c := range s.entries {
		if c.IsEnabled() {
			out = append(out, c)
		}
	}
	return out
}

// Lookup returns the sink declared with id.
func (s *Sinks) Lookup(id string) (SinkConfig, bool) {
	if s == nil {
		return SinkConfig{}, false
	}
	id = strings.TrimSpace(id)
	for _, c := range s.entries {
		if c.ID == id {
			return c, true
		}
	}
	return SinkConfig{}, false
}

// IsEnabled defaults to true when the flag is omitted.
func (c SinkConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}
