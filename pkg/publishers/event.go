package publishers

import (
	"time"
)

// Event reports a completed save run to downstream consumers so they can
// refresh their views of the stored popularity data.
type Event struct {
	Platform    string    `json:"platform"`
	Status      string    `json:"status"`
	Fetched     int       `json:"fetched"`
	Inserted    int       `json:"inserted"`
	CompletedAt time.Time `json:"completed_at"`
}

// NewRefreshEvent constructs an Event for a finished save of platform.
func NewRefreshEvent(platform, status string, fetched, inserted int) Event {
	return Event{
		Platform:    platform,
		Status:      status,
		Fetched:     fetched,
		Inserted:    inserted,
		CompletedAt: time.Now().UTC(),
	}
}

// attributes are the routing attributes attached to queue and topic messages.
func (e Event) attributes() map[string]string {
	return map[string]string{
		"platform": e.Platform,
		"status":   e.Status,
	}
}
