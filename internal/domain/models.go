package domain

import (
	"strconv"
	"strings"
	"time"
)

// Platform tags the external source an item was collected from.
type Platform string

const (
	PlatformYouTube Platform = "YouTube"
	PlatformForum   Platform = "Forum"
	PlatformGoogle  Platform = "Google"
)

// Country is the storage dimension every persisted record is replicated over.
type Country string

const (
	CountryUS Country = "US"
	CountryIN Country = "IN"
)

// DefaultCountries lists the countries records are written for.
func DefaultCountries() []Country {
	return []Country{CountryUS, CountryIN}
}

// Collection names in the document store.
const (
	CollectionWorkflows = "workflows"
	CollectionTrends    = "trends"
)

// Stored document field names.
const (
	FieldWorkflow   = "workflow"
	FieldVideoTitle = "video_title"
	FieldVideoID    = "video_id"
	FieldTopicID    = "topic_id"
	FieldKeyword    = "keyword"
	FieldPlatform   = "platform"
	FieldCountry    = "country"
	FieldMetrics    = "popularity_metrics"
	FieldTimestamp  = "timestamp"
)

// Metric names used inside popularity_metrics.
const (
	MetricViews                 = "views"
	MetricLikes                 = "likes"
	MetricComments              = "comments"
	MetricReplies               = "replies"
	MetricUniqueContributors    = "unique_contributors"
	MetricLikeToViewRatio       = "like_to_view_ratio"
	MetricCommentToViewRatio    = "comment_to_view_ratio"
	MetricRelativeInterest      = "relative_interest"
	MetricTrendChange30d        = "trend_change_30d"
	MetricTrendChange60d        = "trend_change_60d"
	MetricEstimatedSearchVolume = "estimated_search_volume"
	MetricPopularityScore       = "popularity_score"
)

// Metrics holds the numeric engagement metrics of an item.
type Metrics map[string]float64

// PopularityScore returns the computed score, zero when absent.
func (m Metrics) PopularityScore() float64 {
	return m[MetricPopularityScore]
}

// Item is the normalized record every source adapter produces.
type Item struct {
	Subject    string
	Title      string
	Platform   Platform
	NaturalKey string
	Country    Country
	Metrics    Metrics
	CapturedAt *time.Time
}

// CollectionFor returns the collection records of the platform live in.
func CollectionFor(p Platform) string {
	if p == PlatformGoogle {
		return CollectionTrends
	}
	return CollectionWorkflows
}

// KeyField returns the document field holding the platform's natural key.
func KeyField(p Platform) string {
	switch p {
	case PlatformYouTube:
		return FieldVideoID
	case PlatformForum:
		return FieldTopicID
	default:
		return FieldKeyword
	}
}

// ParsePlatform resolves a platform from its tag or route alias.
func ParsePlatform(raw string) (Platform, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "youtube":
		return PlatformYouTube, true
	case "forum":
		return PlatformForum, true
	case "google", "trends":
		return PlatformGoogle, true
	}
	return "", false
}

// KeyValue returns the natural key in the type it is stored with.
// Forum topic ids are numeric.
func (it Item) KeyValue() any {
	if it.Platform == PlatformForum {
		if n, err := strconv.ParseInt(it.NaturalKey, 10, 64); err == nil {
			return n
		}
	}
	return it.NaturalKey
}

// Document renders the item in its stored shape. The country field is only
// present when the item carries one.
func (it Item) Document() map[string]any {
	metrics := make(map[string]any, len(it.Metrics))
	for k, v := range it.Metrics {
		metrics[k] = v
	}

	doc := map[string]any{
		FieldWorkflow:         it.Subject,
		FieldPlatform:         string(it.Platform),
		KeyField(it.Platform): it.KeyValue(),
		FieldMetrics:          metrics,
	}
	if it.Platform == PlatformYouTube {
		doc[FieldVideoTitle] = it.Title
	}
	if it.Country != "" {
		doc[FieldCountry] = string(it.Country)
	}
	if it.CapturedAt != nil {
		doc[FieldTimestamp] = it.CapturedAt.UTC()
	}
	return doc
}
