package feeds_test

import (
	"testing"

	"wovennews/feeds"
	"wovennews/models"

	"github.com/stretchr/testify/assert"
)

func snapshotOf(n int) models.Snapshot {
	stories := make([]models.Story, n)
	for i, id := range ids("", 1, n) {
		stories[i] = models.Story{ID: id}
	}
	return models.Snapshot{Feed: models.FeedRecent, Stories: stories}
}

func TestPage(t *testing.T) {
	tests := []struct {
		name       string
		size       int
		cursor     string
		limit      int
		expected   []string
		nextCursor *string
	}{
		{
			name:       "first page",
			size:       30,
			cursor:     "",
			limit:      10,
			expected:   ids("", 1, 10),
			nextCursor: ptr("10"),
		},
		{
			name:       "middle page",
			size:       30,
			cursor:     "10",
			limit:      10,
			expected:   ids("", 11, 20),
			nextCursor: ptr("20"),
		},
		{
			name:     "last full page has no cursor",
			size:     30,
			cursor:   "20",
			limit:    10,
			expected: ids("", 21, 30),
		},
		{
			name:     "short last page",
			size:     25,
			cursor:   "20",
			limit:    10,
			expected: ids("", 21, 25),
		},
		{
			name:     "cursor past the end",
			size:     5,
			cursor:   "50",
			limit:    10,
			expected: []string{},
		},
		{
			name:       "invalid cursor starts over",
			size:       30,
			cursor:     "abc",
			limit:      5,
			expected:   ids("", 1, 5),
			nextCursor: ptr("5"),
		},
		{
			name:       "limit out of range uses default",
			size:       30,
			cursor:     "",
			limit:      1000,
			expected:   ids("", 1, feeds.DefaultPageLimit),
			nextCursor: ptr("25"),
		},
		{
			name:     "empty feed",
			size:     0,
			cursor:   "",
			limit:    10,
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := feeds.Page(snapshotOf(tt.size), tt.cursor, tt.limit)
			assert.Equal(t, models.FeedRecent, page.Feed)
			assert.Equal(t, tt.expected, storyIDs(page.Stories))
			assert.Equal(t, tt.nextCursor, page.Cursor)
		})
	}
}

func ptr(s string) *string {
	return &s
}
