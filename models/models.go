package models

import "time"

// FeedName identifies one of the paginated story collections
type FeedName string

const (
	FeedRecent FeedName = "recent"
	FeedBest   FeedName = "best"
)

// Feeds lists every known feed in display order
var Feeds = []FeedName{FeedRecent, FeedBest}

const (
	DefaultTitle = "(No Title)"
	DefaultScore = "-1"
)

// Story model with the fields rendered for a single item
type Story struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Score    string `json:"score"`
	URL      string `json:"url"`
	PostedAt int64  `json:"postedAt"`
}

// Posted returns the posting time of the story
func (s Story) Posted() time.Time {
	return time.Unix(s.PostedAt, 0)
}

// Snapshot is a complete copy of the resolved stories of one feed
type Snapshot struct {
	Feed      FeedName `json:"feed"`
	Stories   []Story  `json:"stories"`
	Exhausted bool     `json:"exhausted"`
	Seq       uint64   `json:"seq"`
}

// FeedStatus summarises a feed for listing endpoints
type FeedStatus struct {
	Feed        FeedName `json:"feed"`
	Active      bool     `json:"active"`
	Resolved    int      `json:"resolved"`
	Backlog     int      `json:"backlog"`
	Unavailable bool     `json:"unavailable"`
}

// Omit everything but what a page of a feed needs
type FeedPage struct {
	Feed    FeedName `json:"feed"`
	Stories []Story  `json:"stories"`
	Cursor  *string  `json:"cursor"`
}
