package sources

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tech-vaibhav/n8n-workflow-popularity-system/pkg/httpclient"
)

type mockResponse struct {
	body       []byte
	statusCode int
}

func (r mockResponse) Body() []byte    { return r.body }
func (r mockResponse) StatusCode() int { return r.statusCode }

// routeClient serves canned responses by URL and records every request.
type routeClient struct {
	mu       sync.Mutex
	routes   map[string]mockResponse
	failures map[string]error
	requests []string
}

func newRouteClient() *routeClient {
	return &routeClient{routes: map[string]mockResponse{}, failures: map[string]error{}}
}

func (c *routeClient) on(url string, status int, body string) {
	c.routes[url] = mockResponse{body: []byte(body), statusCode: status}
}

func (c *routeClient) fail(url string, err error) {
	c.failures[url] = err
}

func (c *routeClient) Get(_ context.Context, url string, _ map[string]string) (httpclient.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, url)
	if err, ok := c.failures[url]; ok {
		return nil, err
	}
	if resp, ok := c.routes[url]; ok {
		return resp, nil
	}
	return mockResponse{body: []byte("not found"), statusCode: 404}, nil
}

func (c *routeClient) requested(url string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.requests {
		if r == url {
			return true
		}
	}
	return false
}

type fakeKeys struct {
	values map[string][]string
	err    error
}

func (f fakeKeys) Distinct(_ context.Context, collection, field string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.values[collection+"."+field], nil
}

// recordingSleep records requested durations without waiting.
type recordingSleep struct {
	delays []time.Duration
}

func (s *recordingSleep) sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return ctx.Err()
}

var errTransport = errors.New("connection reset")
