package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/tech-vaibhav/n8n-workflow-popularity-system/internal/domain"
	"github.com/tech-vaibhav/n8n-workflow-popularity-system/internal/storage"
)

// Inspect prints the number of stored workflow records and one sample.
func Inspect(ctx context.Context, store storage.Store, out io.Writer) error {
	docs, err := store.Find(ctx, domain.CollectionWorkflows, storage.Filter{})
	if err != nil {
		return fmt.Errorf("read workflows: %w", err)
	}

	fmt.Fprintf(out, "Total Workflows in DB: %d\n", len(docs))
	if len(docs) == 0 {
		fmt.Fprintln(out, "Sample: []")
		return nil
	}

	sample, err := json.MarshalIndent(docs[0], "", "  ")
	if err != nil {
		return fmt.Errorf("encode sample: %w", err)
	}
	fmt.Fprintf(out, "Sample: %s\n", sample)
	return nil
}
