package publishers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Builder creates a Publisher for one sink entry.
type Builder func(ctx context.Context, cfg SinkConfig, log Logger) (Publisher, error)

// Factory maps sink types to builders.
type Factory struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewFactory returns a factory with the given builders registered.
func NewFactory(builders map[string]Builder) *Factory {
	f := &Factory{builders: make(map[string]Builder, len(builders))}
	for typ, b := range builders {
		f.Register(typ, b)
	}
	return f
}

// DefaultFactory knows every built-in sink type.
func DefaultFactory() *Factory {
	return NewFactory(map[string]Builder{
		TypeHTTP:      newWebhookPublisher,
		TypeSQS:       newSQSPublisher,
		TypeSNS:       newSNSPublisher,
		TypeGCPPubSub: newPubSubPublisher,
	})
}

func (f *Factory) Register(typ string, b Builder) {
	typ = strings.ToLower(strings.TrimSpace(typ))
	if typ == "" || b == nil {
		return
	}
	f.mu.Lock()
	f.builders[typ] = b
	f.mu.Unlock()
}

// Build creates the publisher for cfg, scoped to its platforms.
func (f *Factory) Build(ctx context.Context, cfg SinkConfig, log Logger) (Publisher, error) {
	f.mu.RLock()
	b := f.builders[strings.ToLower(cfg.Type)]
	f.mu.RUnlock()
	if b == nil {
		return nil, fmt.Errorf("no publisher registered for type %q", cfg.Type)
	}

	pub, err := b(ctx, cfg, ensureLogger(log))
	if err != nil {
		return nil, fmt.Errorf("build publisher %q: %w", cfg.ID, err)
	}
	if len(cfg.Platforms) == 0 {
		return pub, nil
	}

	scope := make(map[string]struct{}, len(cfg.Platforms))
	for _, p := range cfg.Platforms {
		scope[p] = struct{}{}
	}
	return &scopedPublisher{Publisher: pub, platforms: scope}, nil
}

// BuildAll builds every sink. On failure the publishers already built are closed.
func BuildAll(ctx context.Context, f *Factory, cfgs []SinkConfig, log Logger) ([]Publisher, error) {
	if f == nil {
		return nil, nil
	}

	pubs := make([]Publisher, 0, len(cfgs))
	for _, cfg := range cfgs {
		pub, err := f.Build(ctx, cfg, log)
		if err != nil {
			return nil, errors.Join(err, NewFanout(pubs).Close())
		}
		pubs = append(pubs, pub)
	}
	return pubs, nil
}

// scopedPublisher only accepts events of selected platforms.
type scopedPublisher struct {
	Publisher
	platforms map[string]struct{}
}

func (s *scopedPublisher) accepts(evt Event) bool {
	_, ok := s.platforms[evt.Platform]
	return ok
}

func (s *scopedPublisher) Close() error {
	if c, ok := s.Publisher.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
