package sources

import (
	"context"
	"time"

	"github.com/tech-vaibhav/n8n-workflow-popularity-system/internal/dedup"
	"github.com/tech-vaibhav/n8n-workflow-popularity-system/internal/domain"
	"github.com/tech-vaibhav/n8n-workflow-popularity-system/internal/scoring"
)

// trendsFetcher implements Fetcher for the search-trends service.
type trendsFetcher struct {
	api   TrendsAPI
	keys  KeySource
	cfg   TrendsConfig
	log   Logger
	sleep SleepFunc
	now   func() time.Time
}

// TrendsOption customizes a trends fetcher.
type TrendsOption func(*trendsFetcher)

// WithSleep replaces the wait used for backoff and pacing.
func WithSleep(sleep SleepFunc) TrendsOption {
	return func(f *trendsFetcher) {
		if sleep != nil {
			f.sleep = sleep
		}
	}
}

// WithClock replaces the wall clock used to stamp captured items.
func WithClock(now func() time.Time) TrendsOption {
	return func(f *trendsFetcher) {
		if now != nil {
			f.now = now
		}
	}
}

// NewTrendsFetcher builds the trends fetcher.
func NewTrendsFetcher(api TrendsAPI, keys KeySource, cfg TrendsConfig, log Logger, opts ...TrendsOption) Fetcher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 5
	}
	if len(cfg.Countries) == 0 {
		for _, c := range domain.DefaultCountries() {
			cfg.Countries = append(cfg.Countries, string(c))
		}
	}
	f := &trendsFetcher{
		api:   api,
		keys:  keys,
		cfg:   cfg,
		log:   ensureLogger(log),
		sleep: sleepContext,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *trendsFetcher) Platform() domain.Platform { return domain.PlatformGoogle }

// Fetch requests interest over time for every keyword not yet stored, one
// request per batch and country. Rate-limited requests go through the
// backoff machine; every request is followed by the pacing delay. It stops
// as soon as limit items are collected.
func (f *trendsFetcher) Fetch(ctx context.Context, limit int) ([]domain.Item, error) {
	existing, err := dedup.Load(ctx, f.keys, domain.CollectionTrends, domain.FieldKeyword)
	if err != nil {
		return nil, err
	}

	pending := dedup.Exclude(f.cfg.Keywords, existing)
	if len(pending) == 0 {
		return nil, nil
	}

	backoff := f.cfg.Backoff(f.sleep)
	var items []domain.Item

	for start := 0; start < len(pending); start += f.cfg.BatchSize {
		end := min(start+f.cfg.BatchSize, len(pending))
		batch := pending[start:end]

		for _, country := range f.cfg.Countries {
			var series map[string][]float64
			outcome := backoff.Run(ctx, func(ctx context.Context) error {
				res, err := f.api.InterestOverTime(ctx, batch, country)
				if err == nil {
					series = res
				}
				return err
			})
			if outcome.State != StateSucceeded {
				f.log.WarnObj("trends batch abandoned", "trends_batch", map[string]any{
					"keywords": batch,
					"country":  country,
					"attempts": outcome.Attempts,
					"error":    errString(outcome.Err),
				})
			}

			if err := f.sleep(ctx, f.cfg.RequestDelay()); err != nil {
				return items, err
			}
			if outcome.State != StateSucceeded {
				continue
			}

			captured := f.now().UTC()
			for _, kw := range batch {
				values := series[kw]
				if len(values) == 0 {
					continue
				}
				items = append(items, trendItem(kw, domain.Country(country), values, captured))
				if capReached(len(items), limit) {
					return items, nil
				}
			}
		}
	}
	return items, nil
}

func trendItem(keyword string, country domain.Country, series []float64, captured time.Time) domain.Item {
	interest := int(series[len(series)-1])
	return domain.Item{
		Subject:    keyword,
		Platform:   domain.PlatformGoogle,
		NaturalKey: keyword,
		Country:    country,
		CapturedAt: &captured,
		Metrics: domain.Metrics{
			domain.MetricRelativeInterest:      float64(interest),
			domain.MetricTrendChange30d:        scoring.TrendChange(series, 30),
			domain.MetricTrendChange60d:        scoring.TrendChange(series, 60),
			domain.MetricEstimatedSearchVolume: float64(scoring.EstimateSearchVolume(interest)),
			domain.MetricPopularityScore:       float64(max(interest, 0)),
		},
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
