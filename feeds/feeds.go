package feeds

import (
	"strconv"

	"wovennews/models"
)

const (
	DefaultPageLimit = 25
	MaxPageLimit     = 100
)

// Page cuts a window out of a snapshot. The cursor is the offset of the
// next story; resolved lists only grow at the end so offsets stay valid
// across loads.
func Page(snap models.Snapshot, cursor string, limit int) models.FeedPage {
	if limit < 1 || limit > MaxPageLimit {
		limit = DefaultPageLimit
	}

	offset := safeParseCursor(cursor)
	if offset > len(snap.Stories) {
		offset = len(snap.Stories)
	}

	// Look one past the window to see if there are more results
	end := min(offset+limit+1, len(snap.Stories))
	stories := make([]models.Story, end-offset)
	copy(stories, snap.Stories[offset:end])

	var nextCursor *string

	// Only set cursor if we have more results
	if len(stories) > limit {
		stories = stories[:limit]
		parsed := strconv.Itoa(offset + limit)
		nextCursor = &parsed
	}

	return models.FeedPage{
		Feed:    snap.Feed,
		Stories: stories,
		Cursor:  nextCursor, // Will be nil if no more results
	}
}

// safeParseCursor parses the cursor string and returns the offset
// If the cursor is invalid, it returns 0
func safeParseCursor(cursor string) int {
	offset, err := strconv.Atoi(cursor)
	if err != nil || offset < 0 {
		return 0
	}
	return offset
}
