package pipeline

import (
	"context"
	"fmt"
	"strconv"

	"github.com/tech-vaibhav/n8n-workflow-popularity-system/internal/domain"
	"github.com/tech-vaibhav/n8n-workflow-popularity-system/internal/logger"
	"github.com/tech-vaibhav/n8n-workflow-popularity-system/internal/storage"
	"github.com/tech-vaibhav/n8n-workflow-popularity-system/pkg/publishers"
	"github.com/tech-vaibhav/n8n-workflow-popularity-system/pkg/sources"
	"golang.org/x/sync/singleflight"
)

// StatusSuccess is reported by every completed save.
const StatusSuccess = "success"

// SaveResult summarizes a save run.
type SaveResult struct {
	Status   string `json:"status"`
	Inserted int    `json:"inserted"`
}

// Service coordinates fetching, persisting and reading popularity records
// for every platform.
type Service struct {
	registry sources.FetcherRegistry
	writer   ItemWriter
	reader   DocumentReader
	events   EventPublisher
	log      logger.Logger
	saves    singleflight.Group
}

// NewService wires the pipeline. events may be nil when no publisher is configured.
func NewService(reg sources.FetcherRegistry, writer ItemWriter, reader DocumentReader, events EventPublisher, log logger.Logger) *Service {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Service{
		registry: reg,
		writer:   writer,
		reader:   reader,
		events:   events,
		log:      log,
	}
}

// Fetch runs the platform adapter without persisting anything.
func (s *Service) Fetch(ctx context.Context, p domain.Platform, limit int) ([]domain.Item, error) {
	if s == nil || s.registry == nil {
		return nil, fmt.Errorf("pipeline service is not initialized")
	}

	fetcher, err := s.registry.FetcherFor(p)
	if err != nil {
		return nil, fmt.Errorf("resolve fetcher for %s: %w", p, err)
	}

	items, err := fetcher.Fetch(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", p, err)
	}

	s.log.InfoObj("platform fetch completed", "fetch_result", map[string]any{
		"platform": p,
		"limit":    limit,
		"items":    len(items),
	})
	return items, nil
}

// Save fetches and persists one platform. Concurrent saves of the same
// platform and limit share a single run, and the run is detached from the
// caller's cancellation so it completes once started.
func (s *Service) Save(ctx context.Context, p domain.Platform, limit int) (SaveResult, error) {
	if s == nil || s.writer == nil {
		return SaveResult{}, fmt.Errorf("pipeline service is not initialized")
	}

	runCtx := context.WithoutCancel(ctx)
	key := string(p) + "/" + strconv.Itoa(limit)
	v, err, shared := s.saves.Do(key, func() (any, error) {
		return s.save(runCtx, p, limit)
	})
	if shared {
		s.log.DebugObj("save joined in-flight run", "save_shared", map[string]any{"platform": p, "limit": limit})
	}
	if err != nil {
		return SaveResult{}, err
	}
	return v.(SaveResult), nil
}

func (s *Service) save(ctx context.Context, p domain.Platform, limit int) (SaveResult, error) {
	items, err := s.Fetch(ctx, p, limit)
	if err != nil {
		return SaveResult{}, err
	}

	inserted, err := s.writer.Save(ctx, items)
	if err != nil {
		s.log.ErrorObj("platform save failed", "save_error", map[string]any{
			"platform": p,
			"inserted": inserted,
			"error":    err.Error(),
		})
		return SaveResult{}, fmt.Errorf("save %s: %w", p, err)
	}

	s.log.InfoObj("platform save completed", "save_result", map[string]any{
		"platform": p,
		"items":    len(items),
		"inserted": inserted,
	})
	s.publishRefresh(ctx, p, len(items), inserted)

	return SaveResult{Status: StatusSuccess, Inserted: inserted}, nil
}

// publishRefresh announces a finished save; delivery failures are only logged.
func (s *Service) publishRefresh(ctx context.Context, p domain.Platform, fetched, inserted int) {
	if s.events == nil {
		return
	}
	delivered, err := s.events.Publish(ctx, publishers.NewRefreshEvent(string(p), StatusSuccess, fetched, inserted))
	if err != nil {
		s.log.WarnObj("refresh event publish failed", "publish_error", map[string]any{
			"platform":  p,
			"delivered": delivered,
			"error":     err.Error(),
		})
	}
}

// Data returns the stored records of one platform, optionally for one country.
func (s *Service) Data(ctx context.Context, p domain.Platform, country string) ([]storage.Document, error) {
	if s == nil || s.reader == nil {
		return nil, fmt.Errorf("pipeline service is not initialized")
	}

	filter := storage.Filter{domain.FieldPlatform: string(p)}
	if country != "" {
		filter[domain.FieldCountry] = country
	}

	docs, err := s.reader.Find(ctx, domain.CollectionFor(p), filter)
	if err != nil {
		return nil, fmt.Errorf("read %s data: %w", p, err)
	}
	return docs, nil
}

// All returns every workflow record followed by every trend record,
// optionally restricted to one country.
func (s *Service) All(ctx context.Context, country string) ([]storage.Document, error) {
	if s == nil || s.reader == nil {
		return nil, fmt.Errorf("pipeline service is not initialized")
	}

	filter := storage.Filter{}
	if country != "" {
		filter[domain.FieldCountry] = country
	}

	var out []storage.Document
	for _, collection := range []string{domain.CollectionWorkflows, domain.CollectionTrends} {
		docs, err := s.reader.Find(ctx, collection, filter)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", collection, err)
		}
		out = append(out, docs...)
	}
	return out, nil
}
