package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/tech-vaibhav/n8n-workflow-popularity-system/internal/dedup"
	"github.com/tech-vaibhav/n8n-workflow-popularity-system/internal/domain"
	"github.com/tech-vaibhav/n8n-workflow-popularity-system/internal/scoring"
)

// likeActionID is the Discourse post action type for likes.
const likeActionID = 2

type forumCategoryPage struct {
	TopicList struct {
		Topics []forumTopic `json:"topics"`
	} `json:"topic_list"`
}

type forumTopic struct {
	ID         int64             `json:"id"`
	Title      string            `json:"title"`
	Views      int64             `json:"views"`
	ReplyCount int64             `json:"reply_count"`
	Posters    []json.RawMessage `json:"posters"`
}

type forumTopicDetail struct {
	PostStream struct {
		Posts []struct {
			ActionsSummary []struct {
				ID    int   `json:"id"`
				Count int64 `json:"count"`
			} `json:"actions_summary"`
		} `json:"posts"`
	} `json:"post_stream"`
}

// forumFetcher implements Fetcher for a Discourse forum.
type forumFetcher struct {
	client HTTPClient
	keys   KeySource
	cfg    ForumConfig
	filter *TitleFilter
	log    Logger
}

// NewForumFetcher builds the forum fetcher.
func NewForumFetcher(client HTTPClient, keys KeySource, cfg ForumConfig, log Logger) Fetcher {
	if client == nil {
		client = DefaultHTTPClient()
	}
	def := DefaultCatalog().Forum
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if len(cfg.Categories) == 0 {
		cfg.Categories = def.Categories
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = def.MaxPages
	}
	if len(cfg.Keywords) == 0 {
		cfg.Keywords = def.Keywords
	}
	if cfg.PageTimeoutMs <= 0 {
		cfg.PageTimeoutMs = def.PageTimeoutMs
	}
	if cfg.DetailTimeoutMs <= 0 {
		cfg.DetailTimeoutMs = def.DetailTimeoutMs
	}
	return &forumFetcher{
		client: client,
		keys:   keys,
		cfg:    cfg,
		filter: NewTitleFilter(cfg.Keywords),
		log:    ensureLogger(log),
	}
}

func (f *forumFetcher) Platform() domain.Platform { return domain.PlatformForum }

// Fetch walks every category in order, keeps topics whose title passes the
// keyword filter and whose id is neither stored nor seen in this run, then
// enriches them with thread likes. It returns as soon as limit is reached.
func (f *forumFetcher) Fetch(ctx context.Context, limit int) ([]domain.Item, error) {
	existing, err := dedup.Load(ctx, f.keys, domain.CollectionWorkflows, domain.FieldTopicID)
	if err != nil {
		return nil, err
	}

	seen := dedup.KeySet{}
	var items []domain.Item

	for _, category := range f.cfg.Categories {
		for _, topic := range f.listCategory(ctx, category) {
			if !f.filter.Matches(topic.Title) {
				continue
			}
			key := strconv.FormatInt(topic.ID, 10)
			if existing.Contains(key) || !seen.Add(key) {
				continue
			}

			likes, err := f.topicLikes(ctx, topic.ID)
			if err != nil {
				f.log.DebugObj("forum topic skipped", "forum_topic", map[string]any{
					"topic_id": topic.ID,
					"error":    err.Error(),
				})
				continue
			}

			items = append(items, forumItem(topic, likes))
			if capReached(len(items), limit) {
				return items, nil
			}
		}
	}
	return items, nil
}

// listCategory fetches up to MaxPages pages of a category. Failed pages are
// skipped and paging continues with the next index.
func (f *forumFetcher) listCategory(ctx context.Context, category ForumCategory) []forumTopic {
	var topics []forumTopic
	for page := 0; page < f.cfg.MaxPages; page++ {
		url := fmt.Sprintf("%s/%s?page=%d", f.cfg.BaseURL, category.Endpoint, page)

		var body forumCategoryPage
		if err := f.getJSON(ctx, url, f.cfg.PageTimeout(), &body); err != nil {
			f.log.WarnObj("forum page skipped", "forum_page", map[string]any{
				"category": category.Name,
				"page":     page,
				"error":    err.Error(),
			})
			continue
		}
		topics = append(topics, body.TopicList.Topics...)
	}
	return topics
}

// topicLikes sums like reactions across every post of the thread.
func (f *forumFetcher) topicLikes(ctx context.Context, topicID int64) (int64, error) {
	url := fmt.Sprintf("%s/t/%d.json", f.cfg.BaseURL, topicID)

	var detail forumTopicDetail
	if err := f.getJSON(ctx, url, f.cfg.DetailTimeout(), &detail); err != nil {
		return 0, err
	}

	var total int64
	for _, post := range detail.PostStream.Posts {
		for _, action := range post.ActionsSummary {
			if action.ID == likeActionID {
				total += action.Count
			}
		}
	}
	return total, nil
}

func (f *forumFetcher) getJSON(ctx context.Context, url string, timeout time.Duration, out any) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	resp, err := f.client.Get(ctx, url, f.headers())
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	body := resp.Body()
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("%s returned status %d body: %s", url, resp.StatusCode(), responseSnippet(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

func (f *forumFetcher) headers() map[string]string {
	headers := map[string]string{"Accept": "application/json"}
	if f.cfg.UserAgent != "" {
		headers["User-Agent"] = f.cfg.UserAgent
	}
	return headers
}

func forumItem(t forumTopic, likes int64) domain.Item {
	contributors := int64(len(t.Posters))
	return domain.Item{
		Subject:    t.Title,
		Platform:   domain.PlatformForum,
		NaturalKey: strconv.FormatInt(t.ID, 10),
		Metrics: domain.Metrics{
			domain.MetricViews:              float64(t.Views),
			domain.MetricReplies:            float64(t.ReplyCount),
			domain.MetricLikes:              float64(likes),
			domain.MetricUniqueContributors: float64(contributors),
			domain.MetricPopularityScore:    scoring.ForumScore(t.Views, t.ReplyCount, likes, contributors),
		},
	}
}
