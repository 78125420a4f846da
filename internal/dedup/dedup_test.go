package dedup

import (
	"context"
	"errors"
	"testing"
)

type fakeKeySource struct {
	values []string
	err    error
	calls  int
}

func (f *fakeKeySource) Distinct(_ context.Context, _, _ string) ([]string, error) {
	f.calls++
	return f.values, f.err
}

func TestLoadBuildsSetWithSingleQuery(t *testing.T) {
	src := &fakeKeySource{values: []string{"a", "b"}}
	set, err := Load(context.Background(), src, "workflows", "video_id")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if src.calls != 1 {
		t.Fatalf("expected 1 Distinct call, got %d", src.calls)
	}
	if !set.Contains("a") || !set.Contains("b") || set.Contains("c") {
		t.Fatalf("unexpected set %v", set)
	}
}

func TestLoadPropagatesStoreErrors(t *testing.T) {
	src := &fakeKeySource{err: errors.New("connection refused")}
	if _, err := Load(context.Background(), src, "trends", "keyword"); err == nil {
		t.Fatalf("expected store error to propagate")
	}
}

func TestAddAndExclude(t *testing.T) {
	set := KeySet{}
	if !set.Add("n8n") {
		t.Fatalf("first Add should report new key")
	}
	if set.Add("n8n") {
		t.Fatalf("second Add should report duplicate")
	}

	got := Exclude([]string{"n8n", "zapier alternative", "n8n tutorial"}, set)
	if len(got) != 2 || got[0] != "zapier alternative" || got[1] != "n8n tutorial" {
		t.Fatalf("unexpected Exclude result %v", got)
	}
}
