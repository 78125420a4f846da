package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tech-vaibhav/n8n-workflow-popularity-system/internal/domain"
	"github.com/tech-vaibhav/n8n-workflow-popularity-system/internal/pipeline"
	"github.com/tech-vaibhav/n8n-workflow-popularity-system/internal/storage"
)

// fakeService records the arguments of each call.
type fakeService struct {
	mu       sync.Mutex
	items    []domain.Item
	docs     []storage.Document
	inserted int
	err      error

	lastPlatform domain.Platform
	lastLimit    int
	lastCountry  string
	calls        []string
}

func (f *fakeService) record(call string, p domain.Platform, limit int, country string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	f.lastPlatform = p
	f.lastLimit = limit
	f.lastCountry = country
}

func (f *fakeService) Fetch(_ context.Context, p domain.Platform, limit int) ([]domain.Item, error) {
	f.record("fetch", p, limit, "")
	return f.items, f.err
}

func (f *fakeService) Save(_ context.Context, p domain.Platform, limit int) (pipeline.SaveResult, error) {
	f.record("save", p, limit, "")
	if f.err != nil {
		return pipeline.SaveResult{}, f.err
	}
	return pipeline.SaveResult{Status: pipeline.StatusSuccess, Inserted: f.inserted}, nil
}

func (f *fakeService) Data(_ context.Context, p domain.Platform, country string) ([]storage.Document, error) {
	f.record("data", p, 0, country)
	return f.docs, f.err
}

func (f *fakeService) All(_ context.Context, country string) ([]storage.Document, error) {
	f.record("all", "", 0, country)
	return f.docs, f.err
}

func do(t *testing.T, h http.Handler, method, target string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %s %s: %v (body=%q)", method, target, err, rec.Body.String())
	}
	return rec.Code, body
}

func TestStatusRoutes(t *testing.T) {
	h := NewRouter(&fakeService{}, nil)

	code, body := do(t, h, http.MethodGet, "/")
	if code != http.StatusOK || body["message"] != "n8n Popularity System API is running!" {
		t.Fatalf("unexpected root response %d %v", code, body)
	}

	code, body = do(t, h, http.MethodGet, "/api")
	if code != http.StatusOK || body["status"] != "API routes working" {
		t.Fatalf("unexpected /api response %d %v", code, body)
	}
}

func TestFetchRoutesApplyDefaultLimits(t *testing.T) {
	cases := []struct {
		path     string
		platform domain.Platform
		limit    int
		dataKey  string
	}{
		{"/youtube/popular", domain.PlatformYouTube, 50, "data"},
		{"/forum/fetch", domain.PlatformForum, 50, "data_sample"},
		{"/google/fetch", domain.PlatformGoogle, 50, "data"},
	}

	for _, tc := range cases {
		svc := &fakeService{items: []domain.Item{{
			Subject:    "n8n tutorial",
			Platform:   tc.platform,
			NaturalKey: "k1",
			Metrics:    domain.Metrics{domain.MetricPopularityScore: 3},
		}}}
		h := NewRouter(svc, nil)

		code, body := do(t, h, http.MethodGet, tc.path)
		if code != http.StatusOK {
			t.Fatalf("%s: status %d", tc.path, code)
		}
		if svc.lastPlatform != tc.platform || svc.lastLimit != tc.limit {
			t.Fatalf("%s: called with %s/%d", tc.path, svc.lastPlatform, svc.lastLimit)
		}
		if body["count"] != float64(1) {
			t.Fatalf("%s: unexpected count %v", tc.path, body["count"])
		}
		data, ok := body[tc.dataKey].([]any)
		if !ok || len(data) != 1 {
			t.Fatalf("%s: expected %s with one item, got %v", tc.path, tc.dataKey, body)
		}
	}
}

func TestSaveRoutesApplyDefaultLimits(t *testing.T) {
	cases := []struct {
		path     string
		platform domain.Platform
		limit    int
	}{
		{"/youtube/save", domain.PlatformYouTube, 50},
		{"/forum/save", domain.PlatformForum, 1000},
		{"/google/save", domain.PlatformGoogle, 200},
	}

	for _, tc := range cases {
		svc := &fakeService{inserted: 7}
		h := NewRouter(svc, nil)

		code, body := do(t, h, http.MethodPost, tc.path)
		if code != http.StatusOK {
			t.Fatalf("%s: status %d", tc.path, code)
		}
		if body["status"] != "success" || body["inserted"] != float64(7) {
			t.Fatalf("%s: unexpected body %v", tc.path, body)
		}
		if svc.lastPlatform != tc.platform || svc.lastLimit != tc.limit {
			t.Fatalf("%s: called with %s/%d", tc.path, svc.lastPlatform, svc.lastLimit)
		}
	}
}

func TestSaveRejectsGet(t *testing.T) {
	h := NewRouter(&fakeService{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/forum/save", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestMaxResultsValidation(t *testing.T) {
	svc := &fakeService{}
	h := NewRouter(svc, nil)

	code, _ := do(t, h, http.MethodGet, "/forum/fetch?max_results=120")
	if code != http.StatusOK || svc.lastLimit != 120 {
		t.Fatalf("expected explicit limit 120, got %d/%d", code, svc.lastLimit)
	}

	for _, target := range []string{
		"/forum/fetch?max_results=0",
		"/forum/fetch?max_results=5001",
		"/forum/save?max_results=10001",
		"/forum/fetch?max_results=many",
	} {
		method := http.MethodGet
		if strings.Contains(target, "save") {
			method = http.MethodPost
		}
		code, body := do(t, h, method, target)
		if code != http.StatusUnprocessableEntity {
			t.Fatalf("%s: expected 422, got %d", target, code)
		}
		if _, ok := body["error"]; !ok {
			t.Fatalf("%s: expected error message", target)
		}
	}

	code, _ = do(t, h, http.MethodPost, "/forum/save?max_results=10000")
	if code != http.StatusOK || svc.lastLimit != 10000 {
		t.Fatalf("expected upper bound accepted, got %d/%d", code, svc.lastLimit)
	}
}

func TestDataRoutesPassCountry(t *testing.T) {
	svc := &fakeService{docs: []storage.Document{{"title": "a", "country": "IN"}}}
	h := NewRouter(svc, nil)

	code, body := do(t, h, http.MethodGet, "/google/data?country=IN")
	if code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if svc.lastPlatform != domain.PlatformGoogle || svc.lastCountry != "IN" {
		t.Fatalf("unexpected call %s/%s", svc.lastPlatform, svc.lastCountry)
	}
	if body["count"] != float64(1) {
		t.Fatalf("unexpected body %v", body)
	}

	code, body = do(t, h, http.MethodGet, "/workflows/all")
	if code != http.StatusOK || svc.lastCountry != "" {
		t.Fatalf("unexpected all call %d/%q", code, svc.lastCountry)
	}
	if data, ok := body["data"].([]any); !ok || len(data) != 1 {
		t.Fatalf("unexpected all body %v", body)
	}
}

func TestEmptyDataRendersEmptyList(t *testing.T) {
	h := NewRouter(&fakeService{}, nil)
	code, body := do(t, h, http.MethodGet, "/youtube/data")
	if code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	data, ok := body["data"].([]any)
	if !ok || len(data) != 0 {
		t.Fatalf("expected empty list, got %v", body["data"])
	}
}

func TestServiceErrorReturns500(t *testing.T) {
	h := NewRouter(&fakeService{err: errors.New("quota exhausted")}, nil)
	code, body := do(t, h, http.MethodPost, "/youtube/save")
	if code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", code)
	}
	if msg, _ := body["error"].(string); !strings.Contains(msg, "quota exhausted") {
		t.Fatalf("unexpected error body %v", body)
	}
}

func TestServerRunStopsOnCancel(t *testing.T) {
	srv := NewServer("127.0.0.1:0", NewRouter(&fakeService{}, nil), nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not stop")
	}
}
