package sources

import (
	"context"
	"errors"

	"github.com/tech-vaibhav/n8n-workflow-popularity-system/internal/dedup"
	"github.com/tech-vaibhav/n8n-workflow-popularity-system/internal/domain"
	"github.com/tech-vaibhav/n8n-workflow-popularity-system/pkg/httpclient"
)

// Fetcher collects normalized items for one platform. Implementations read
// the store only to learn already persisted keys; they never write.
type Fetcher interface {
	Platform() domain.Platform
	Fetch(ctx context.Context, limit int) ([]domain.Item, error)
}

// FetcherRegistry resolves the fetcher implementation for a platform.
type FetcherRegistry interface {
	FetcherFor(p domain.Platform) (Fetcher, error)
}

// HTTPClient aliases the shared httpclient.Client interface for clarity within sources.
type HTTPClient = httpclient.Client

// KeySource aliases the dedup key lookup adapters use against the store.
type KeySource = dedup.KeySource

// Logger defines the logging surface adapters rely on.
type Logger interface {
	InfoObj(msg, key string, obj interface{})
	DebugObj(msg, key string, obj interface{})
	WarnObj(msg, key string, obj interface{})
	ErrorObj(msg, key string, obj interface{})
}

var (
	// ErrRateLimited signals the provider asked the caller to slow down.
	ErrRateLimited = errors.New("rate limited")
	// ErrNotFound signals an empty or missing detail payload.
	ErrNotFound = errors.New("not found")
)

type noopLogger struct{}

func (noopLogger) InfoObj(string, string, interface{})  {}
func (noopLogger) DebugObj(string, string, interface{}) {}
func (noopLogger) WarnObj(string, string, interface{})  {}
func (noopLogger) ErrorObj(string, string, interface{}) {}

func ensureLogger(log Logger) Logger {
	if log == nil {
		return noopLogger{}
	}
	return log
}
