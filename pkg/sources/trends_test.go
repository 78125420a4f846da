package sources

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/tech-vaibhav/n8n-workflow-popularity-system/internal/domain"
)

type trendsCall struct {
	keywords []string
	geo      string
}

// scriptedTrendsAPI returns queued errors per geo before serving series.
type scriptedTrendsAPI struct {
	calls  []trendsCall
	errs   map[string][]error
	series map[string][]float64
}

func (s *scriptedTrendsAPI) InterestOverTime(_ context.Context, keywords []string, geo string) (map[string][]float64, error) {
	s.calls = append(s.calls, trendsCall{keywords: append([]string(nil), keywords...), geo: geo})
	if queue := s.errs[geo]; len(queue) > 0 {
		s.errs[geo] = queue[1:]
		return nil, queue[0]
	}
	out := map[string][]float64{}
	for _, kw := range keywords {
		if v, ok := s.series[kw]; ok {
			out[kw] = v
		}
	}
	return out, nil
}

func trendsTestConfig(keywords ...string) TrendsConfig {
	return TrendsConfig{
		Keywords:              keywords,
		Countries:             []string{"US", "IN"},
		BatchSize:             2,
		InitialBackoffSeconds: 5,
		MaxBackoffSeconds:     60,
		RequestDelaySeconds:   10,
	}
}

func flatSeries(v float64) []float64 {
	out := make([]float64, 90)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestTrendsFetcherBuildsPerCountryItems(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	api := &scriptedTrendsAPI{series: map[string][]float64{"n8n": flatSeries(40)}}
	sleep := &recordingSleep{}

	f := NewTrendsFetcher(api, fakeKeys{}, trendsTestConfig("n8n"), nil,
		WithSleep(sleep.sleep), WithClock(func() time.Time { return now }))
	items, err := f.Fetch(context.Background(), 50)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected one item per country, got %d", len(items))
	}
	if items[0].Country != domain.CountryUS || items[1].Country != domain.CountryIN {
		t.Fatalf("unexpected countries %s %s", items[0].Country, items[1].Country)
	}

	m := items[0].Metrics
	if m[domain.MetricRelativeInterest] != 40 || m[domain.MetricEstimatedSearchVolume] != 2400 {
		t.Fatalf("unexpected metrics %v", m)
	}
	if m[domain.MetricTrendChange30d] != 0 || m[domain.MetricPopularityScore] != 40 {
		t.Fatalf("unexpected derived metrics %v", m)
	}
	if items[0].CapturedAt == nil || !items[0].CapturedAt.Equal(now) {
		t.Fatalf("expected captured timestamp, got %v", items[0].CapturedAt)
	}
	if items[0].NaturalKey != "n8n" || items[0].Subject != "n8n" {
		t.Fatalf("unexpected key/subject %+v", items[0])
	}
}

func TestTrendsFetcherSkipsStoredKeywordsEntirely(t *testing.T) {
	api := &scriptedTrendsAPI{series: map[string][]float64{"new": flatSeries(10)}}
	keys := fakeKeys{values: map[string][]string{"trends.keyword": {"old"}}}
	sleep := &recordingSleep{}

	f := NewTrendsFetcher(api, keys, trendsTestConfig("old", "new"), nil, WithSleep(sleep.sleep))
	if _, err := f.Fetch(context.Background(), 50); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	for _, c := range api.calls {
		if !reflect.DeepEqual(c.keywords, []string{"new"}) {
			t.Fatalf("stored keyword must not be requested, got %v", c.keywords)
		}
	}
}

func TestTrendsFetcherReturnsNothingWhenAllKeywordsStored(t *testing.T) {
	api := &scriptedTrendsAPI{}
	keys := fakeKeys{values: map[string][]string{"trends.keyword": {"n8n"}}}

	f := NewTrendsFetcher(api, keys, trendsTestConfig("n8n"), nil, WithSleep((&recordingSleep{}).sleep))
	items, err := f.Fetch(context.Background(), 50)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(items) != 0 || len(api.calls) != 0 {
		t.Fatalf("expected no requests, got items=%d calls=%d", len(items), len(api.calls))
	}
}

func TestTrendsFetcherBatchesAndPacesEveryRequest(t *testing.T) {
	api := &scriptedTrendsAPI{series: map[string][]float64{
		"a": flatSeries(1), "b": flatSeries(2), "c": flatSeries(3),
	}}
	sleep := &recordingSleep{}

	f := NewTrendsFetcher(api, fakeKeys{}, trendsTestConfig("a", "b", "c"), nil, WithSleep(sleep.sleep))
	items, err := f.Fetch(context.Background(), 50)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(items) != 6 {
		t.Fatalf("expected 6 items, got %d", len(items))
	}

	want := []trendsCall{
		{keywords: []string{"a", "b"}, geo: "US"},
		{keywords: []string{"a", "b"}, geo: "IN"},
		{keywords: []string{"c"}, geo: "US"},
		{keywords: []string{"c"}, geo: "IN"},
	}
	if !reflect.DeepEqual(api.calls, want) {
		t.Fatalf("unexpected calls %+v", api.calls)
	}
	if len(sleep.delays) != 4 {
		t.Fatalf("expected a pacing sleep per request, got %v", sleep.delays)
	}
	for _, d := range sleep.delays {
		if d != 10*time.Second {
			t.Fatalf("unexpected pacing delay %v", d)
		}
	}
}

func TestTrendsFetcherAbandonsRateLimitedBatchAndContinues(t *testing.T) {
	rl := ErrRateLimited
	api := &scriptedTrendsAPI{
		errs:   map[string][]error{"US": {rl, rl, rl, rl}},
		series: map[string][]float64{"n8n": flatSeries(20)},
	}
	sleep := &recordingSleep{}

	f := NewTrendsFetcher(api, fakeKeys{}, trendsTestConfig("n8n"), nil, WithSleep(sleep.sleep))
	items, err := f.Fetch(context.Background(), 50)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(items) != 1 || items[0].Country != domain.CountryIN {
		t.Fatalf("expected only the IN item, got %+v", items)
	}

	want := []time.Duration{5 * time.Second, 10 * time.Second, 20 * time.Second, 40 * time.Second, 10 * time.Second, 10 * time.Second}
	if !reflect.DeepEqual(sleep.delays, want) {
		t.Fatalf("unexpected sleeps %v, want %v", sleep.delays, want)
	}
}

func TestTrendsFetcherAbandonsOnOtherErrors(t *testing.T) {
	api := &scriptedTrendsAPI{
		errs:   map[string][]error{"US": {errors.New("bad gateway")}},
		series: map[string][]float64{"n8n": flatSeries(20)},
	}
	sleep := &recordingSleep{}

	f := NewTrendsFetcher(api, fakeKeys{}, trendsTestConfig("n8n"), nil, WithSleep(sleep.sleep))
	items, err := f.Fetch(context.Background(), 50)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected only the IN item, got %d", len(items))
	}
	if len(api.calls) != 2 {
		t.Fatalf("non rate-limit errors must not be retried, got %d calls", len(api.calls))
	}
}

func TestTrendsFetcherStopsMidBatchAtCap(t *testing.T) {
	api := &scriptedTrendsAPI{series: map[string][]float64{"a": flatSeries(1), "b": flatSeries(2)}}
	sleep := &recordingSleep{}

	f := NewTrendsFetcher(api, fakeKeys{}, trendsTestConfig("a", "b"), nil, WithSleep(sleep.sleep))
	items, err := f.Fetch(context.Background(), 1)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(items) != 1 || items[0].NaturalKey != "a" {
		t.Fatalf("expected first keyword only, got %+v", items)
	}
	if len(api.calls) != 1 {
		t.Fatalf("expected a single request before the cap, got %d", len(api.calls))
	}
}

func TestTrendsFetcherTrendChange(t *testing.T) {
	series := append(flatSeries(10)[:60], flatSeries(15)[:30]...)
	api := &scriptedTrendsAPI{series: map[string][]float64{"n8n": series}}

	f := NewTrendsFetcher(api, fakeKeys{}, trendsTestConfig("n8n"), nil, WithSleep((&recordingSleep{}).sleep))
	items, err := f.Fetch(context.Background(), 1)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	m := items[0].Metrics
	if m[domain.MetricTrendChange30d] != 50 {
		t.Fatalf("expected +50%% over 30 days, got %v", m[domain.MetricTrendChange30d])
	}
	if m[domain.MetricRelativeInterest] != 15 {
		t.Fatalf("expected latest value, got %v", m[domain.MetricRelativeInterest])
	}
}
