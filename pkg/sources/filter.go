package sources

import "strings"

// TitleFilter is a coarse relevance allow-list over topic titles.
type TitleFilter struct {
	keywords []string
}

// NewTitleFilter lower-cases keywords for case-insensitive matching.
func NewTitleFilter(keywords []string) *TitleFilter {
	lowered := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			lowered = append(lowered, kw)
		}
	}
	return &TitleFilter{keywords: lowered}
}

// Matches returns true if the lower-cased title contains any keyword.
func (f *TitleFilter) Matches(title string) bool {
	lower := strings.ToLower(title)
	for _, kw := range f.keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
