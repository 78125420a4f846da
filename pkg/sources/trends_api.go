package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// TrendsAPI returns the interest-over-time series of a keyword batch in one
// region. The result maps each keyword to its values, oldest first.
type TrendsAPI interface {
	InterestOverTime(ctx context.Context, keywords []string, geo string) (map[string][]float64, error)
}

const timeseriesWidgetID = "TIMESERIES"

type trendsExploreRequest struct {
	ComparisonItem []trendsComparisonItem `json:"comparisonItem"`
	Category       int                    `json:"category"`
	Property       string                 `json:"property"`
}

type trendsComparisonItem struct {
	Keyword string `json:"keyword"`
	Geo     string `json:"geo"`
	Time    string `json:"time"`
}

type trendsExploreResponse struct {
	Widgets []struct {
		ID      string          `json:"id"`
		Token   string          `json:"token"`
		Request json.RawMessage `json:"request"`
	} `json:"widgets"`
}

type trendsMultilineResponse struct {
	Default struct {
		TimelineData []struct {
			Value []float64 `json:"value"`
		} `json:"timelineData"`
	} `json:"default"`
}

// trendsAPI implements TrendsAPI against the public Google Trends widget
// endpoints: explore for a widget token, then multiline for the series.
type trendsAPI struct {
	client HTTPClient
	cfg    TrendsConfig
}

// NewTrendsAPI builds a Google Trends client over the shared HTTP client.
func NewTrendsAPI(client HTTPClient, cfg TrendsConfig) TrendsAPI {
	if client == nil {
		client = DefaultHTTPClient()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultCatalog().Trends.BaseURL
	}
	return &trendsAPI{client: client, cfg: cfg}
}

func (a *trendsAPI) InterestOverTime(ctx context.Context, keywords []string, geo string) (map[string][]float64, error) {
	if len(keywords) == 0 {
		return map[string][]float64{}, nil
	}

	token, widgetReq, err := a.explore(ctx, keywords, geo)
	if err != nil {
		return nil, err
	}

	params := a.baseParams()
	params.Set("req", string(widgetReq))
	params.Set("token", token)

	var res trendsMultilineResponse
	if err := a.get(ctx, "/trends/api/widgetdata/multiline", params, &res); err != nil {
		return nil, fmt.Errorf("interest over time %s: %w", geo, err)
	}

	// A keyword repeated in the batch reads only its first column.
	columns := make(map[string]int, len(keywords))
	for i, kw := range keywords {
		if _, dup := columns[kw]; !dup {
			columns[kw] = i
		}
	}

	out := make(map[string][]float64, len(columns))
	for _, point := range res.Default.TimelineData {
		for kw, i := range columns {
			if i < len(point.Value) {
				out[kw] = append(out[kw], point.Value[i])
			}
		}
	}
	return out, nil
}

func (a *trendsAPI) explore(ctx context.Context, keywords []string, geo string) (string, json.RawMessage, error) {
	req := trendsExploreRequest{ComparisonItem: make([]trendsComparisonItem, 0, len(keywords))}
	for _, kw := range keywords {
		req.ComparisonItem = append(req.ComparisonItem, trendsComparisonItem{Keyword: kw, Geo: geo, Time: a.cfg.Timeframe})
	}
	raw, err := json.Marshal(req)
	if err != nil {
		return "", nil, fmt.Errorf("encode explore request: %w", err)
	}

	params := a.baseParams()
	params.Set("req", string(raw))

	var res trendsExploreResponse
	if err := a.get(ctx, "/trends/api/explore", params, &res); err != nil {
		return "", nil, fmt.Errorf("explore %s: %w", geo, err)
	}
	for _, w := range res.Widgets {
		if w.ID == timeseriesWidgetID && w.Token != "" {
			return w.Token, w.Request, nil
		}
	}
	return "", nil, fmt.Errorf("explore %s: timeseries widget %w", geo, ErrNotFound)
}

func (a *trendsAPI) baseParams() url.Values {
	params := url.Values{}
	params.Set("hl", a.cfg.HostLanguage)
	params.Set("tz", strconv.Itoa(a.cfg.TimezoneOffset))
	return params
}

func (a *trendsAPI) get(ctx context.Context, path string, params url.Values, out any) error {
	resp, err := a.client.Get(ctx, a.cfg.BaseURL+path+"?"+params.Encode(), map[string]string{
		"Accept": "application/json",
	})
	if err != nil {
		return err
	}

	body := resp.Body()
	switch {
	case resp.StatusCode() == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status 429", ErrRateLimited)
	case resp.StatusCode() != http.StatusOK:
		return fmt.Errorf("status %d body: %s", resp.StatusCode(), responseSnippet(body))
	}

	if err := json.Unmarshal(stripXSSIPrefix(body), out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// stripXSSIPrefix drops the ")]}'" guard line Google prepends to JSON bodies.
func stripXSSIPrefix(body []byte) []byte {
	body = bytes.TrimSpace(body)
	if !bytes.HasPrefix(body, []byte(")]}'")) {
		return body
	}
	if idx := bytes.IndexAny(body, "{["); idx >= 0 {
		return body[idx:]
	}
	return nil
}

