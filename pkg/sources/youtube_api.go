package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// youtubeAPI implements VideoAPI on the YouTube Data API v3.
type youtubeAPI struct {
	svc *youtube.Service
}

// NewYouTubeAPI builds a YouTube Data API client authenticated by apiKey.
// Extra options (endpoint, HTTP client) are applied after the key.
func NewYouTubeAPI(ctx context.Context, apiKey string, opts ...option.ClientOption) (VideoAPI, error) {
	if apiKey == "" {
		return nil, errors.New("youtube api key is empty")
	}
	all := append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := youtube.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	return &youtubeAPI{svc: svc}, nil
}

func (a *youtubeAPI) SearchVideos(ctx context.Context, query, pageToken string, pageSize int64) (VideoSearchPage, error) {
	call := a.svc.Search.List([]string{"snippet"}).
		Q(query).
		Type("video").
		Order("viewCount").
		MaxResults(pageSize).
		Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	resp, err := call.Do()
	if err != nil {
		return VideoSearchPage{}, fmt.Errorf("search videos %q: %w", query, classifyAPIError(err))
	}

	page := VideoSearchPage{NextPageToken: resp.NextPageToken}
	for _, item := range resp.Items {
		if item == nil || item.Id == nil || item.Id.VideoId == "" {
			continue
		}
		page.IDs = append(page.IDs, item.Id.VideoId)
	}
	return page, nil
}

func (a *youtubeAPI) VideoDetails(ctx context.Context, id string) (VideoDetails, error) {
	resp, err := a.svc.Videos.List([]string{"statistics", "snippet"}).Id(id).Context(ctx).Do()
	if err != nil {
		return VideoDetails{}, fmt.Errorf("video details %s: %w", id, classifyAPIError(err))
	}
	if len(resp.Items) == 0 || resp.Items[0] == nil {
		return VideoDetails{}, fmt.Errorf("video %s: %w", id, ErrNotFound)
	}

	v := resp.Items[0]
	d := VideoDetails{ID: id}
	if v.Snippet != nil {
		d.Title = v.Snippet.Title
	}
	if v.Statistics != nil {
		d.Views = int64(v.Statistics.ViewCount)
		d.Likes = int64(v.Statistics.LikeCount)
		d.Comments = int64(v.Statistics.CommentCount)
	}
	return d, nil
}

// quotaReasons are the error reasons YouTube reports, with 403, when the
// project quota or a rate limit is exhausted.
var quotaReasons = map[string]bool{
	"quotaExceeded":         true,
	"rateLimitExceeded":     true,
	"userRateLimitExceeded": true,
	"dailyLimitExceeded":    true,
}

// classifyAPIError maps quota and rate responses onto ErrRateLimited.
func classifyAPIError(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}
	if gerr.Code == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	}
	if gerr.Code == http.StatusForbidden {
		for _, item := range gerr.Errors {
			if quotaReasons[item.Reason] {
				return fmt.Errorf("%w: %v", ErrRateLimited, err)
			}
		}
	}
	return err
}
