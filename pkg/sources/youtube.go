package sources

import (
	"context"
	"errors"
	"sort"

	"github.com/tech-vaibhav/n8n-workflow-popularity-system/internal/dedup"
	"github.com/tech-vaibhav/n8n-workflow-popularity-system/internal/domain"
	"github.com/tech-vaibhav/n8n-workflow-popularity-system/internal/scoring"
)

// VideoSearchPage is one page of a view-count ordered video search.
type VideoSearchPage struct {
	IDs           []string
	NextPageToken string
}

// VideoDetails carries the statistics and title of one video.
type VideoDetails struct {
	ID       string
	Title    string
	Views    int64
	Likes    int64
	Comments int64
}

// VideoAPI is the subset of the video platform the adapter calls.
// VideoDetails returns ErrNotFound when the platform has no such video.
type VideoAPI interface {
	SearchVideos(ctx context.Context, query, pageToken string, pageSize int64) (VideoSearchPage, error)
	VideoDetails(ctx context.Context, id string) (VideoDetails, error)
}

// youtubeFetcher implements Fetcher for the video platform.
type youtubeFetcher struct {
	api  VideoAPI
	keys KeySource
	cfg  YouTubeConfig
	log  Logger
}

// NewYouTubeFetcher builds the video fetcher.
func NewYouTubeFetcher(api VideoAPI, keys KeySource, cfg YouTubeConfig, log Logger) Fetcher {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 1
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 25
	}
	return &youtubeFetcher{api: api, keys: keys, cfg: cfg, log: ensureLogger(log)}
}

func (f *youtubeFetcher) Platform() domain.Platform { return domain.PlatformYouTube }

// Fetch searches every query, collects statistics for unseen videos and
// returns them ranked by score across all queries, truncated to limit.
func (f *youtubeFetcher) Fetch(ctx context.Context, limit int) ([]domain.Item, error) {
	existing, err := dedup.Load(ctx, f.keys, domain.CollectionWorkflows, domain.FieldVideoID)
	if err != nil {
		return nil, err
	}

	seen := dedup.KeySet{}
	var items []domain.Item

	// An exhausted quota fails every later call, so it ends the run with the
	// items collected so far.
queries:
	for _, query := range f.cfg.Queries {
		ids, exhausted := f.search(ctx, query)
		for _, id := range ids {
			if existing.Contains(id) || !seen.Add(id) {
				continue
			}

			details, err := f.api.VideoDetails(ctx, id)
			if err != nil {
				f.log.DebugObj("video details skipped", "video_detail", map[string]any{
					"video_id": id,
					"error":    err.Error(),
				})
				if errors.Is(err, ErrRateLimited) {
					break queries
				}
				continue
			}
			items = append(items, videoItem(query, id, details))
		}
		if exhausted {
			break
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Metrics.PopularityScore() > items[j].Metrics.PopularityScore()
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// search pages through one query up to the page budget. A failed page ends
// the query with the ids gathered so far; exhausted reports a quota failure.
func (f *youtubeFetcher) search(ctx context.Context, query string) (ids []string, exhausted bool) {
	token := ""
	for page := 0; page < f.cfg.MaxPages; page++ {
		res, err := f.api.SearchVideos(ctx, query, token, f.cfg.PageSize)
		if err != nil {
			f.log.WarnObj("video search failed", "video_search", map[string]any{
				"query": query,
				"page":  page,
				"error": err.Error(),
			})
			return ids, errors.Is(err, ErrRateLimited)
		}
		ids = append(ids, res.IDs...)
		token = res.NextPageToken
		if token == "" {
			break
		}
	}
	return ids, false
}

func videoItem(query, id string, d VideoDetails) domain.Item {
	return domain.Item{
		Subject:    query,
		Title:      d.Title,
		Platform:   domain.PlatformYouTube,
		NaturalKey: id,
		Metrics: domain.Metrics{
			domain.MetricViews:              float64(d.Views),
			domain.MetricLikes:              float64(d.Likes),
			domain.MetricComments:           float64(d.Comments),
			domain.MetricLikeToViewRatio:    scoring.Ratio(d.Likes, d.Views),
			domain.MetricCommentToViewRatio: scoring.Ratio(d.Comments, d.Views),
			domain.MetricPopularityScore:    scoring.VideoScore(d.Views, d.Likes, d.Comments),
		},
	}
}
