package httpclient

import "context"

// Response is a minimal HTTP response contract.
type Response interface {
	Body() []byte
	StatusCode() int
}

// Client abstracts HTTP reads so callers can inject mocks or different transports.
type Client interface {
	Get(ctx context.Context, url string, headers map[string]string) (Response, error)
}

// Poster sends request bodies; body is JSON-encoded unless it is []byte or string.
type Poster interface {
	Post(ctx context.Context, url string, headers map[string]string, body any) (Response, error)
}
