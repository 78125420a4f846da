package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/tech-vaibhav/n8n-workflow-popularity-system/internal/domain"
	"github.com/tech-vaibhav/n8n-workflow-popularity-system/internal/logger"
	"github.com/tech-vaibhav/n8n-workflow-popularity-system/internal/pipeline"
	"github.com/tech-vaibhav/n8n-workflow-popularity-system/internal/storage"
)

// Service is the pipeline surface the routes call.
type Service interface {
	Fetch(ctx context.Context, p domain.Platform, limit int) ([]domain.Item, error)
	Save(ctx context.Context, p domain.Platform, limit int) (pipeline.SaveResult, error)
	Data(ctx context.Context, p domain.Platform, country string) ([]storage.Document, error)
	All(ctx context.Context, country string) ([]storage.Document, error)
}

// limitRule bounds the max_results query parameter of one route.
type limitRule struct {
	def, min, max int
}

var (
	youtubeFetchLimit = limitRule{def: 50, min: 1, max: 500}
	youtubeSaveLimit  = limitRule{def: 50, min: 1, max: 500}
	forumFetchLimit   = limitRule{def: 50, min: 1, max: 5000}
	forumSaveLimit    = limitRule{def: 1000, min: 1, max: 10000}
	googleFetchLimit  = limitRule{def: 50, min: 1, max: 1000}
	googleSaveLimit   = limitRule{def: 200, min: 1, max: 1000}
)

type handlers struct {
	svc Service
	log logger.Logger
}

func (h *handlers) home(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"message": "n8n Popularity System API is running!"})
}

func (h *handlers) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "API routes working"})
}

// fetch previews adapter output without persisting it. dataKey names the
// response field carrying the items.
func (h *handlers) fetch(p domain.Platform, rule limitRule, dataKey string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := parseLimit(r, rule)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}

		items, err := h.svc.Fetch(r.Context(), p, limit)
		if err != nil {
			h.fail(w, r, "fetch failed", err)
			return
		}

		data := make([]map[string]any, 0, len(items))
		for _, it := range items {
			data = append(data, it.Document())
		}
		writeJSON(w, http.StatusOK, map[string]any{"count": len(data), dataKey: data})
	}
}

func (h *handlers) save(p domain.Platform, rule limitRule) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := parseLimit(r, rule)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}

		res, err := h.svc.Save(r.Context(), p, limit)
		if err != nil {
			h.fail(w, r, "save failed", err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func (h *handlers) data(p domain.Platform) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docs, err := h.svc.Data(r.Context(), p, countryParam(r))
		if err != nil {
			h.fail(w, r, "read failed", err)
			return
		}
		writeDocuments(w, docs)
	}
}

func (h *handlers) all(w http.ResponseWriter, r *http.Request) {
	docs, err := h.svc.All(r.Context(), countryParam(r))
	if err != nil {
		h.fail(w, r, "read failed", err)
		return
	}
	writeDocuments(w, docs)
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.log.ErrorObj(msg, "http_error", map[string]any{
		"path":  r.URL.Path,
		"error": err.Error(),
	})
	writeError(w, http.StatusInternalServerError, err)
}

func parseLimit(r *http.Request, rule limitRule) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("max_results"))
	if raw == "" {
		return rule.def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("max_results must be an integer")
	}
	if n < rule.min || n > rule.max {
		return 0, fmt.Errorf("max_results must be between %d and %d", rule.min, rule.max)
	}
	return n, nil
}

func countryParam(r *http.Request) string {
	return strings.TrimSpace(r.URL.Query().Get("country"))
}

func writeDocuments(w http.ResponseWriter, docs []storage.Document) {
	if docs == nil {
		docs = []storage.Document{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(docs), "data": docs})
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
