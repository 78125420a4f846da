package pipeline

import (
	"context"

	"github.com/tech-vaibhav/n8n-workflow-popularity-system/internal/domain"
	"github.com/tech-vaibhav/n8n-workflow-popularity-system/internal/storage"
	"github.com/tech-vaibhav/n8n-workflow-popularity-system/pkg/publishers"
)

// ItemWriter persists normalized items and reports the upsert count.
type ItemWriter interface {
	Save(ctx context.Context, items []domain.Item) (int, error)
}

// DocumentReader reads stored records back for the read endpoints.
type DocumentReader interface {
	Find(ctx context.Context, collection string, filter storage.Filter) ([]storage.Document, error)
}

// EventPublisher fans refresh events out to downstream sinks.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}
