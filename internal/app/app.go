package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tech-vaibhav/n8n-workflow-popularity-system/internal/api"
	"github.com/tech-vaibhav/n8n-workflow-popularity-system/internal/config"
	"github.com/tech-vaibhav/n8n-workflow-popularity-system/internal/logger"
	"github.com/tech-vaibhav/n8n-workflow-popularity-system/internal/persist"
	"github.com/tech-vaibhav/n8n-workflow-popularity-system/internal/pipeline"
	"github.com/tech-vaibhav/n8n-workflow-popularity-system/internal/storage"
	"github.com/tech-vaibhav/n8n-workflow-popularity-system/pkg/httpclient"
	"github.com/tech-vaibhav/n8n-workflow-popularity-system/pkg/publishers"
	"github.com/tech-vaibhav/n8n-workflow-popularity-system/pkg/sources"
)

// App is the popularity API runtime. It owns the document store, the
// optional refresh-event fanout and the HTTP server in front of the pipeline.
type App struct {
	cfg     *config.Config
	log     logger.Logger
	store   storage.Store
	fanout  *publishers.Fanout
	service *pipeline.Service
	handler http.Handler
	server  *api.Server
}

// Options overrides collaborators New would otherwise build from config.
type Options struct {
	Store  storage.Store
	Videos sources.VideoAPI
	HTTP   sources.HTTPClient
}

// New builds the runtime from configuration.
func New(ctx context.Context, cfg *config.Config, log logger.Logger, opts Options) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = logger.NopLogger{}
	}

	catalog, err := sources.LoadCatalog(cfg.SourcesFile)
	if err != nil {
		return nil, fmt.Errorf("load sources catalog: %w", err)
	}
	log.InfoObj("sources catalog loaded", "sources_meta", map[string]any{
		"file":              cfg.SourcesFile,
		"youtube_queries":   len(catalog.YouTube.Queries),
		"forum_categories":  len(catalog.Forum.Categories),
		"trends_keywords":   len(catalog.Trends.Keywords),
		"trends_countries":  catalog.Trends.Countries,
		"trends_batch_size": catalog.Trends.BatchSize,
	})

	store := opts.Store
	if store == nil {
		store, err = OpenStore(cfg)
		if err != nil {
			return nil, err
		}
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":        cfg.StorageType,
		"bbolt_path":  cfg.BBoltPath,
		"sqlite_path": cfg.SQLitePath,
	})

	videos := opts.Videos
	if videos == nil && strings.TrimSpace(cfg.YouTubeAPIKey) != "" {
		videos, err = sources.NewYouTubeAPI(ctx, cfg.YouTubeAPIKey)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("init youtube api: %w", err)
		}
	}
	if videos == nil {
		log.WarnObj("youtube api key not configured; youtube routes disabled", "youtube", "disabled")
	}

	httpClient := opts.HTTP
	if httpClient == nil {
		httpClient = httpclient.NewRestyClient(cfg.HTTPTimeout)
	}

	registry := sources.DefaultFetcherRegistry(sources.Deps{
		Catalog: catalog,
		Keys:    store,
		Videos:  videos,
		HTTP:    httpClient,
		Log:     log,
	})

	fanout, err := buildFanout(ctx, cfg, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	var events pipeline.EventPublisher
	if fanout != nil {
		events = fanout
	}

	service := pipeline.NewService(registry, persist.NewWriter(store, nil), store, events, log)

	handler := api.NewRouter(service, log)
	return &App{
		cfg:     cfg,
		log:     log,
		store:   store,
		fanout:  fanout,
		service: service,
		handler: handler,
		server:  api.NewServer(cfg.HTTPAddr, handler, log),
	}, nil
}

// OpenStore opens the configured document store.
func OpenStore(cfg *config.Config) (storage.Store, error) {
	store, err := storage.NewStore(cfg.StorageType, storage.Options{
		BBoltPath:  cfg.BBoltPath,
		SQLitePath: cfg.SQLitePath,
	})
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	return store, nil
}

// buildFanout returns nil when no publishers file is configured.
func buildFanout(ctx context.Context, cfg *config.Config, log logger.Logger) (*publishers.Fanout, error) {
	if strings.TrimSpace(cfg.PublishersFile) == "" {
		return nil, nil
	}

	sinks, err := publishers.LoadSinks(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers file: %w", err)
	}

	enabled := sinks.Enabled()
	clients, err := publishers.BuildAll(ctx, publishers.DefaultFactory(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]any, 0, len(enabled))
	for _, p := range enabled {
		summaries = append(summaries, map[string]any{"id": p.ID, "type": p.Type, "platforms": p.Platforms})
	}
	log.InfoObj("publishers loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return publishers.NewFanout(clients), nil
}

// Handler returns the API router.
func (a *App) Handler() http.Handler { return a.handler }

// Run serves the HTTP API until ctx is cancelled and then releases resources.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.server == nil {
		return fmt.Errorf("app is not initialized")
	}
	defer a.Close()

	a.log.InfoObj("popularity api starting", "http_addr", a.cfg.HTTPAddr)
	return a.server.Run(ctx)
}

// Close releases the fanout and the store.
func (a *App) Close() error {
	var errs []error
	if a.fanout != nil {
		if err := a.fanout.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close publishers: %w", err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close storage: %w", err))
		}
		a.store = nil
	}
	return errors.Join(errs...)
}
