package publishers

import (
	"context"
	"errors"
	"testing"
)

type stubPublisher struct {
	id     string
	typ    string
	err    error
	events []Event
}

func (s *stubPublisher) ID() string   { return s.id }
func (s *stubPublisher) Type() string { return s.typ }
func (s *stubPublisher) Publish(_ context.Context, evt Event) error {
	s.events = append(s.events, evt)
	return s.err
}

type closingPublisher struct {
	stubPublisher
	closed bool
}

func (c *closingPublisher) Close() error {
	c.closed = true
	return nil
}

func TestFanoutPublishJoinsErrors(t *testing.T) {
	ok := &stubPublisher{id: "ok", typ: TypeHTTP}
	bad := &stubPublisher{id: "bad", typ: TypeSQS, err: errors.New("queue gone")}
	fanout := NewFanout([]Publisher{ok, bad})

	delivered, err := fanout.Publish(context.Background(), NewRefreshEvent("Forum", "success", 4, 8))
	if delivered != 1 {
		t.Fatalf("expected 1 delivery, got %d", delivered)
	}
	if err == nil {
		t.Fatalf("expected joined error")
	}
	if len(bad.events) != 1 {
		t.Fatalf("failing sink must still be attempted")
	}
}

func TestFanoutSkipsSinksScopedToOtherPlatforms(t *testing.T) {
	stub := &stubPublisher{id: "yt-only", typ: "stub"}
	factory := NewFactory(map[string]Builder{
		"stub": func(context.Context, SinkConfig, Logger) (Publisher, error) { return stub, nil },
	})

	pubs, err := BuildAll(context.Background(), factory, []SinkConfig{
		{ID: "yt-only", Type: "stub", Platforms: []string{"YouTube"}},
	}, nil)
	if err != nil {
		t.Fatalf("BuildAll: %v", err)
	}
	fanout := NewFanout(pubs)

	if n, err := fanout.Publish(context.Background(), NewRefreshEvent("Google", "success", 1, 1)); n != 0 || err != nil {
		t.Fatalf("expected Google event skipped, got %d %v", n, err)
	}
	if n, err := fanout.Publish(context.Background(), NewRefreshEvent("YouTube", "success", 1, 2)); n != 1 || err != nil {
		t.Fatalf("expected YouTube event delivered, got %d %v", n, err)
	}
	if len(stub.events) != 1 || stub.events[0].Platform != "YouTube" {
		t.Fatalf("unexpected deliveries %#v", stub.events)
	}
}

func TestFanoutCloseReachesScopedClosers(t *testing.T) {
	closer := &closingPublisher{stubPublisher: stubPublisher{id: "c", typ: "closer"}}
	factory := NewFactory(map[string]Builder{
		"closer": func(context.Context, SinkConfig, Logger) (Publisher, error) { return closer, nil },
	})
	pub, err := factory.Build(context.Background(), SinkConfig{ID: "c", Type: "closer", Platforms: []string{"Forum"}}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	fanout := NewFanout([]Publisher{pub, &stubPublisher{id: "plain", typ: TypeHTTP}, nil})
	if fanout.Size() != 2 {
		t.Fatalf("nil publishers must be dropped, size=%d", fanout.Size())
	}
	if err := fanout.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !closer.closed {
		t.Fatalf("expected scoped closer to be closed")
	}
}

func TestBuildAllClosesBuiltSinksOnFailure(t *testing.T) {
	closer := &closingPublisher{stubPublisher: stubPublisher{id: "first", typ: "closer"}}
	factory := NewFactory(map[string]Builder{
		"closer": func(context.Context, SinkConfig, Logger) (Publisher, error) { return closer, nil },
	})

	_, err := BuildAll(context.Background(), factory, []SinkConfig{
		{ID: "first", Type: "closer"},
		{ID: "second", Type: "kafka"},
	}, nil)
	if err == nil {
		t.Fatalf("expected unknown type error")
	}
	if !closer.closed {
		t.Fatalf("expected already-built sink to be closed")
	}
}

func TestDefaultFactoryBuildsWebhook(t *testing.T) {
	pubs, err := BuildAll(context.Background(), DefaultFactory(), []SinkConfig{
		{ID: "hook", Type: TypeHTTP, HTTP: &WebhookConfig{URL: "https://example.com", TimeoutSeconds: 1}},
	}, nil)
	if err != nil {
		t.Fatalf("BuildAll: %v", err)
	}
	if len(pubs) != 1 || pubs[0].Type() != TypeHTTP {
		t.Fatalf("unexpected publishers %#v", pubs)
	}
}
