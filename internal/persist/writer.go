package persist

import (
	"context"
	"fmt"

	"github.com/tech-vaibhav/n8n-workflow-popularity-system/internal/domain"
	"github.com/tech-vaibhav/n8n-workflow-popularity-system/internal/storage"
)

// Upserter is the single mutating store operation the writer needs.
type Upserter interface {
	Upsert(ctx context.Context, collection string, filter storage.Filter, doc storage.Document) error
}

// Writer persists normalized items as idempotent per-country upserts.
// It never deletes and never reads back.
type Writer struct {
	store     Upserter
	countries []domain.Country
}

// NewWriter builds a writer replicating country-less items over countries
// (US and IN when empty).
func NewWriter(store Upserter, countries []domain.Country) *Writer {
	if len(countries) == 0 {
		countries = domain.DefaultCountries()
	}
	return &Writer{store: store, countries: countries}
}

// Save upserts every item and returns the number of upserts performed. Items
// that already carry a country are written once; the others once per country.
// The first store error aborts the run and is returned with the count so far.
func (w *Writer) Save(ctx context.Context, items []domain.Item) (int, error) {
	if w == nil || w.store == nil {
		return 0, fmt.Errorf("writer is not initialized")
	}

	upserts := 0
	for _, item := range items {
		countries := w.countries
		if item.Country != "" {
			countries = []domain.Country{item.Country}
		}

		for _, country := range countries {
			if err := w.upsert(ctx, item, country); err != nil {
				return upserts, err
			}
			upserts++
		}
	}
	return upserts, nil
}

func (w *Writer) upsert(ctx context.Context, item domain.Item, country domain.Country) error {
	item.Country = country
	collection := domain.CollectionFor(item.Platform)
	filter := storage.Filter{
		domain.KeyField(item.Platform): item.KeyValue(),
		domain.FieldPlatform:           string(item.Platform),
		domain.FieldCountry:            string(country),
	}

	if err := w.store.Upsert(ctx, collection, filter, storage.Document(item.Document())); err != nil {
		return fmt.Errorf("upsert %s %s=%s country=%s: %w",
			item.Platform, domain.KeyField(item.Platform), item.NaturalKey, country, err)
	}
	return nil
}
