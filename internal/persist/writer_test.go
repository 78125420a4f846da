package persist

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tech-vaibhav/n8n-workflow-popularity-system/internal/domain"
	"github.com/tech-vaibhav/n8n-workflow-popularity-system/internal/storage"
)

type upsertCall struct {
	collection string
	filter     storage.Filter
	doc        storage.Document
}

// recordingStore records upserts and can fail after n calls.
type recordingStore struct {
	calls  []upsertCall
	failAt int
}

func (r *recordingStore) Upsert(_ context.Context, collection string, filter storage.Filter, doc storage.Document) error {
	if r.failAt > 0 && len(r.calls)+1 == r.failAt {
		return errors.New("store unavailable")
	}
	r.calls = append(r.calls, upsertCall{collection: collection, filter: filter, doc: doc})
	return nil
}

func TestWriterReplicatesWorkflowItemsPerCountry(t *testing.T) {
	store := &recordingStore{}
	w := NewWriter(store, nil)

	items := []domain.Item{
		{Subject: "n8n tutorial", Title: "Video", Platform: domain.PlatformYouTube, NaturalKey: "vid1",
			Metrics: domain.Metrics{domain.MetricPopularityScore: 730}},
		{Subject: "Slack bot", Platform: domain.PlatformForum, NaturalKey: "42",
			Metrics: domain.Metrics{domain.MetricPopularityScore: 106}},
	}

	n, err := w.Save(context.Background(), items)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if n != 4 || len(store.calls) != 4 {
		t.Fatalf("expected 4 upserts, got n=%d calls=%d", n, len(store.calls))
	}

	first := store.calls[0]
	if first.collection != domain.CollectionWorkflows {
		t.Fatalf("unexpected collection %q", first.collection)
	}
	if first.filter[domain.FieldVideoID] != "vid1" || first.filter[domain.FieldCountry] != "US" {
		t.Fatalf("unexpected filter %#v", first.filter)
	}
	if store.calls[1].filter[domain.FieldCountry] != "IN" || store.calls[1].doc[domain.FieldCountry] != "IN" {
		t.Fatalf("second upsert should target IN: %#v", store.calls[1])
	}

	forum := store.calls[2]
	if forum.filter[domain.FieldTopicID] != int64(42) {
		t.Fatalf("forum topic id should be numeric, got %#v", forum.filter[domain.FieldTopicID])
	}
	if forum.filter[domain.FieldPlatform] != "Forum" {
		t.Fatalf("unexpected forum filter %#v", forum.filter)
	}
}

func TestWriterWritesTrendItemsOnce(t *testing.T) {
	store := &recordingStore{}
	w := NewWriter(store, nil)
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	n, err := w.Save(context.Background(), []domain.Item{
		{Subject: "n8n", Platform: domain.PlatformGoogle, NaturalKey: "n8n", Country: domain.CountryIN, CapturedAt: &now,
			Metrics: domain.Metrics{domain.MetricRelativeInterest: 80}},
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 upsert for per-country trend item, got %d", n)
	}
	call := store.calls[0]
	if call.collection != domain.CollectionTrends {
		t.Fatalf("unexpected collection %q", call.collection)
	}
	if call.filter[domain.FieldKeyword] != "n8n" || call.filter[domain.FieldCountry] != "IN" {
		t.Fatalf("unexpected filter %#v", call.filter)
	}
	if call.doc[domain.FieldTimestamp] != now {
		t.Fatalf("timestamp not written: %#v", call.doc)
	}
}

func TestWriterStopsOnStoreError(t *testing.T) {
	store := &recordingStore{failAt: 2}
	w := NewWriter(store, nil)

	n, err := w.Save(context.Background(), []domain.Item{
		{Platform: domain.PlatformYouTube, NaturalKey: "a"},
	})
	if err == nil {
		t.Fatalf("expected store error")
	}
	if n != 1 {
		t.Fatalf("expected 1 upsert before failure, got %d", n)
	}
}

func TestSaveTwiceKeepsRecordSetStable(t *testing.T) {
	store := storage.NewMemoryStore()
	w := NewWriter(store, nil)
	items := []domain.Item{{Subject: "q", Platform: domain.PlatformYouTube, NaturalKey: "vid"}}

	for i := 0; i < 2; i++ {
		if _, err := w.Save(context.Background(), items); err != nil {
			t.Fatalf("Save #%d: %v", i+1, err)
		}
	}

	docs, err := store.Find(context.Background(), domain.CollectionWorkflows, storage.Filter{})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected one record per country, got %d", len(docs))
	}
}
