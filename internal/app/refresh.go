package app

import (
	"context"
	"fmt"
	"io"

	"github.com/tech-vaibhav/n8n-workflow-popularity-system/internal/logger"
	"github.com/tech-vaibhav/n8n-workflow-popularity-system/pkg/httpclient"
)

// RefreshEndpoints are the save routes a refresh run triggers, in order.
var RefreshEndpoints = []string{"/youtube/save", "/forum/save", "/google/save"}

// Refresh POSTs every save route on baseURL and prints each outcome to out.
// A failing endpoint is reported and the run moves on; the returned count is
// the number of endpoints that answered 2xx.
func Refresh(ctx context.Context, client httpclient.Poster, baseURL string, out io.Writer, log logger.Logger) int {
	if log == nil {
		log = logger.NopLogger{}
	}

	fmt.Fprintln(out, "===== Running Daily Data Refresh =====")
	ok := 0
	for _, endpoint := range RefreshEndpoints {
		url := baseURL + endpoint
		fmt.Fprintf(out, "-> Calling %s\n", url)

		resp, err := client.Post(ctx, url, nil, nil)
		if err != nil {
			fmt.Fprintf(out, "ERROR: %v\n", err)
			log.ErrorObj("refresh trigger failed", "refresh_error", map[string]any{
				"url":   url,
				"error": err.Error(),
			})
			continue
		}

		fmt.Fprintf(out, "Status: %d\n", resp.StatusCode())
		fmt.Fprintf(out, "Response: %s\n", resp.Body())
		if resp.StatusCode() >= 200 && resp.StatusCode() < 300 {
			ok++
		}
		log.InfoObj("refresh trigger completed", "refresh_result", map[string]any{
			"url":    url,
			"status": resp.StatusCode(),
		})
	}
	fmt.Fprintln(out, "===== DONE =====")
	return ok
}
