package sources

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tech-vaibhav/n8n-workflow-popularity-system/internal/domain"
	"gopkg.in/yaml.v3"
)

// Catalog holds the tuning of every source adapter: search queries,
// categories, keyword lists, pagination budgets and pacing.
type Catalog struct {
	YouTube YouTubeConfig `json:"youtube" yaml:"youtube"`
	Forum   ForumConfig   `json:"forum" yaml:"forum"`
	Trends  TrendsConfig  `json:"trends" yaml:"trends"`
}

type YouTubeConfig struct {
	Queries  []string `json:"queries" yaml:"queries"`
	MaxPages int      `json:"max_pages" yaml:"max_pages"`
	PageSize int64    `json:"page_size" yaml:"page_size"`
}

type ForumCategory struct {
	Name     string `json:"name" yaml:"name"`
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

type ForumConfig struct {
	BaseURL         string          `json:"base_url" yaml:"base_url"`
	Categories      []ForumCategory `json:"categories" yaml:"categories"`
	MaxPages        int             `json:"max_pages" yaml:"max_pages"`
	Keywords        []string        `json:"keywords" yaml:"keywords"`
	PageTimeoutMs   int             `json:"page_timeout_ms" yaml:"page_timeout_ms"`
	DetailTimeoutMs int             `json:"detail_timeout_ms" yaml:"detail_timeout_ms"`
	UserAgent       string          `json:"user_agent" yaml:"user_agent"`
}

type TrendsConfig struct {
	BaseURL               string   `json:"base_url" yaml:"base_url"`
	Keywords              []string `json:"keywords" yaml:"keywords"`
	Countries             []string `json:"countries" yaml:"countries"`
	BatchSize             int      `json:"batch_size" yaml:"batch_size"`
	Timeframe             string   `json:"timeframe" yaml:"timeframe"`
	HostLanguage          string   `json:"host_language" yaml:"host_language"`
	TimezoneOffset        int      `json:"tz" yaml:"tz"`
	InitialBackoffSeconds int      `json:"initial_backoff_seconds" yaml:"initial_backoff_seconds"`
	MaxBackoffSeconds     int      `json:"max_backoff_seconds" yaml:"max_backoff_seconds"`
	RequestDelaySeconds   int      `json:"request_delay_seconds" yaml:"request_delay_seconds"`
}

// DefaultCatalog returns the built-in source tuning.
func DefaultCatalog() Catalog {
	return Catalog{
		YouTube: YouTubeConfig{
			Queries: []string{
				"Amazing n8n workflows",
				"n8n tutorial",
				"n8n slack automation",
				"n8n google sheets automation",
			},
			MaxPages: 1,
			PageSize: 25,
		},
		Forum: ForumConfig{
			BaseURL: "https://community.n8n.io",
			Categories: []ForumCategory{
				{Name: "built_with_n8n", Endpoint: "c/15.json"},
				{Name: "workflow_templates", Endpoint: "c/workflows/28.json"},
			},
			MaxPages: 10,
			Keywords: []string{
				"n8n", "workflow automation", "build",
				"workflow", "automation", "integrate", "bot",
				"sync", "email", "reminder", "trigger", "webhook",
				"slack", "whatsapp", "telegram", "google sheets",
				"notion", "crm", "zapier", "calendar", "api",
				"scraper", "ai agent", "pipeline", "linkedin", "openai",
				"gemini", "github", "langchain", "rag",
			},
			PageTimeoutMs:   10000,
			DetailTimeoutMs: 8000,
		},
		Trends: TrendsConfig{
			BaseURL: "https://trends.google.com",
			Keywords: []string{
				"n8n",
				"n8n automation",
				"n8n tutorial",
				"n8n workflows",
				"n8n examples",
				"n8n integrations",
				"no code automation",
				"zapier alternative",
				"workflow automation",
				"google sheets automation",
			},
			Countries:             []string{string(domain.CountryUS), string(domain.CountryIN)},
			BatchSize:             5,
			Timeframe:             "today 3-m",
			HostLanguage:          "en-US",
			TimezoneOffset:        330,
			InitialBackoffSeconds: 5,
			MaxBackoffSeconds:     60,
			RequestDelaySeconds:   10,
		},
	}
}

// LoadCatalog reads a YAML or JSON catalog. Unset fields fall back to
// DefaultCatalog; an empty path yields the defaults.
func LoadCatalog(path string) (Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultCatalog(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read sources file: %w", err)
	}

	cat, err := parseCatalog(raw, filepath.Ext(path))
	if err != nil {
		return Catalog{}, err
	}

	cat = sanitizeCatalog(cat)
	if err := validateCatalog(cat); err != nil {
		return Catalog{}, err
	}
	return cat, nil
}

type unmarshalFn func([]byte, any) error

func parseCatalog(data []byte, ext string) (Catalog, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   unmarshalFn
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var cat Catalog
		if err := d.fn(data, &cat); err == nil {
			return cat, nil
		}
	}

	return Catalog{}, errors.New("sources file format not recognized (expected YAML or JSON)")
}

func sanitizeCatalog(c Catalog) Catalog {
	def := DefaultCatalog()

	c.YouTube.Queries = uniqueAll(trimAll(c.YouTube.Queries))
	if len(c.YouTube.Queries) == 0 {
		c.YouTube.Queries = def.YouTube.Queries
	}
	if c.YouTube.MaxPages <= 0 {
		c.YouTube.MaxPages = def.YouTube.MaxPages
	}
	if c.YouTube.PageSize <= 0 {
		c.YouTube.PageSize = def.YouTube.PageSize
	}

	c.Forum.BaseURL = strings.TrimRight(strings.TrimSpace(c.Forum.BaseURL), "/")
	if c.Forum.BaseURL == "" {
		c.Forum.BaseURL = def.Forum.BaseURL
	}
	if len(c.Forum.Categories) == 0 {
		c.Forum.Categories = def.Forum.Categories
	}
	for i := range c.Forum.Categories {
		c.Forum.Categories[i].Name = strings.TrimSpace(c.Forum.Categories[i].Name)
		c.Forum.Categories[i].Endpoint = strings.Trim(strings.TrimSpace(c.Forum.Categories[i].Endpoint), "/")
	}
	if c.Forum.MaxPages <= 0 {
		c.Forum.MaxPages = def.Forum.MaxPages
	}
	c.Forum.Keywords = uniqueAll(lowerAll(trimAll(c.Forum.Keywords)))
	if len(c.Forum.Keywords) == 0 {
		c.Forum.Keywords = def.Forum.Keywords
	}
	if c.Forum.PageTimeoutMs <= 0 {
		c.Forum.PageTimeoutMs = def.Forum.PageTimeoutMs
	}
	if c.Forum.DetailTimeoutMs <= 0 {
		c.Forum.DetailTimeoutMs = def.Forum.DetailTimeoutMs
	}

	c.Trends.BaseURL = strings.TrimRight(strings.TrimSpace(c.Trends.BaseURL), "/")
	if c.Trends.BaseURL == "" {
		c.Trends.BaseURL = def.Trends.BaseURL
	}
	c.Trends.Keywords = uniqueAll(trimAll(c.Trends.Keywords))
	if len(c.Trends.Keywords) == 0 {
		c.Trends.Keywords = def.Trends.Keywords
	}
	c.Trends.Countries = uniqueAll(upperAll(trimAll(c.Trends.Countries)))
	if len(c.Trends.Countries) == 0 {
		c.Trends.Countries = def.Trends.Countries
	}
	if c.Trends.BatchSize <= 0 {
		c.Trends.BatchSize = def.Trends.BatchSize
	}
	if strings.TrimSpace(c.Trends.Timeframe) == "" {
		c.Trends.Timeframe = def.Trends.Timeframe
	}
	if strings.TrimSpace(c.Trends.HostLanguage) == "" {
		c.Trends.HostLanguage = def.Trends.HostLanguage
	}
	if c.Trends.TimezoneOffset == 0 {
		c.Trends.TimezoneOffset = def.Trends.TimezoneOffset
	}
	if c.Trends.InitialBackoffSeconds <= 0 {
		c.Trends.InitialBackoffSeconds = def.Trends.InitialBackoffSeconds
	}
	if c.Trends.MaxBackoffSeconds <= 0 {
		c.Trends.MaxBackoffSeconds = def.Trends.MaxBackoffSeconds
	}
	if c.Trends.RequestDelaySeconds <= 0 {
		c.Trends.RequestDelaySeconds = def.Trends.RequestDelaySeconds
	}

	return c
}

func validateCatalog(c Catalog) error {
	for i, cat := range c.Forum.Categories {
		if cat.Name == "" {
			return fmt.Errorf("forum category[%d]: name is required", i)
		}
		if cat.Endpoint == "" {
			return fmt.Errorf("forum category %q: endpoint is required", cat.Name)
		}
	}
	for _, country := range c.Trends.Countries {
		if len(country) != 2 {
			return fmt.Errorf("trends country %q must be a two-letter code", country)
		}
	}
	if c.Trends.MaxBackoffSeconds < c.Trends.InitialBackoffSeconds {
		return fmt.Errorf("trends max_backoff_seconds must not be below initial_backoff_seconds")
	}
	return nil
}

// PageTimeout returns the per-page listing timeout.
func (c ForumConfig) PageTimeout() time.Duration {
	return time.Duration(c.PageTimeoutMs) * time.Millisecond
}

// DetailTimeout returns the per-topic detail timeout.
func (c ForumConfig) DetailTimeout() time.Duration {
	return time.Duration(c.DetailTimeoutMs) * time.Millisecond
}

// Backoff returns the retry policy for rate-limited trend requests.
func (c TrendsConfig) Backoff(sleep SleepFunc) Backoff {
	return Backoff{
		Initial: time.Duration(c.InitialBackoffSeconds) * time.Second,
		Ceiling: time.Duration(c.MaxBackoffSeconds) * time.Second,
		Sleep:   sleep,
	}
}

// RequestDelay returns the pacing delay after every batch+country request.
func (c TrendsConfig) RequestDelay() time.Duration {
	return time.Duration(c.RequestDelaySeconds) * time.Second
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// uniqueAll drops repeats, keeping first occurrences in order.
func uniqueAll(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func lowerAll(in []string) []string {
	for i := range in {
		in[i] = strings.ToLower(in[i])
	}
	return in
}

func upperAll(in []string) []string {
	for i := range in {
		in[i] = strings.ToUpper(in[i])
	}
	return in
}
