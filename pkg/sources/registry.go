package sources

import (
	"fmt"
	"sync"
	"time"

	"github.com/tech-vaibhav/n8n-workflow-popularity-system/internal/domain"
	"github.com/tech-vaibhav/n8n-workflow-popularity-system/pkg/httpclient"
)

// fetcherRegistry implements FetcherRegistry.
type fetcherRegistry struct {
	fetchers map[domain.Platform]Fetcher
	mu       sync.RWMutex
}

// NewFetcherRegistry builds a registry keyed by each fetcher's platform.
func NewFetcherRegistry(fetchers ...Fetcher) FetcherRegistry {
	reg := &fetcherRegistry{fetchers: make(map[domain.Platform]Fetcher)}
	for _, f := range fetchers {
		reg.register(f)
	}
	return reg
}

func (r *fetcherRegistry) register(f Fetcher) {
	if f == nil || f.Platform() == "" {
		return
	}
	r.mu.Lock()
	r.fetchers[f.Platform()] = f
	r.mu.Unlock()
}

// FetcherFor returns the fetcher registered for the platform.
func (r *fetcherRegistry) FetcherFor(p domain.Platform) (Fetcher, error) {
	if r == nil {
		return nil, fmt.Errorf("fetcher registry is nil")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if f, ok := r.fetchers[p]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("no fetcher registered for platform %q", p)
}

// DefaultHTTPClient returns a resty-backed client for source fetchers.
func DefaultHTTPClient() HTTPClient { return httpclient.NewRestyClient(15 * time.Second) }

// Deps carries the collaborators DefaultFetcherRegistry wires into adapters.
type Deps struct {
	Catalog Catalog
	Keys    KeySource
	Videos  VideoAPI
	HTTP    HTTPClient
	Log     Logger
}

// DefaultFetcherRegistry wires up the YouTube, Forum and Trends fetchers.
// The YouTube fetcher is only registered when a video API is available.
func DefaultFetcherRegistry(d Deps) FetcherRegistry {
	if d.HTTP == nil {
		d.HTTP = DefaultHTTPClient()
	}

	fetchers := []Fetcher{
		NewForumFetcher(d.HTTP, d.Keys, d.Catalog.Forum, d.Log),
		NewTrendsFetcher(NewTrendsAPI(d.HTTP, d.Catalog.Trends), d.Keys, d.Catalog.Trends, d.Log),
	}
	if d.Videos != nil {
		fetchers = append(fetchers, NewYouTubeFetcher(d.Videos, d.Keys, d.Catalog.YouTube, d.Log))
	}
	return NewFetcherRegistry(fetchers...)
}
