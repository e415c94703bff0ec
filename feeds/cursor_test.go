package feeds_test

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"wovennews/feeds"
	"wovennews/hn"
	"wovennews/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFilledCursor(t *testing.T, resolver feeds.Resolver, workers int, backlog []string) *feeds.Cursor {
	t.Helper()
	cursor := feeds.NewCursor(models.FeedRecent, feeds.NewParallelResolver(resolver, workers))
	require.NoError(t, cursor.Fill(backlog))
	return cursor
}

func TestExtendAddsExactlyPageSize(t *testing.T) {
	for _, workers := range []int{1, 4, 25} {
		src := newFakeSource()
		cursor := newFilledCursor(t, src, workers, ids("", 1, 100))

		result, err := cursor.Extend(context.Background(), 25)
		require.NoError(t, err)
		assert.Equal(t, 25, result.Added)
		assert.Zero(t, result.Skipped)
		assert.False(t, result.Exhausted)

		stories, exhausted := cursor.Snapshot()
		assert.Equal(t, ids("", 1, 25), storyIDs(stories))
		assert.False(t, exhausted)
		assert.Equal(t, 75, cursor.Status().Backlog)
	}
}

func TestExtendDrainsShortBacklog(t *testing.T) {
	src := newFakeSource()
	cursor := newFilledCursor(t, src, 4, ids("", 1, 10))

	result, err := cursor.Extend(context.Background(), 25)
	require.NoError(t, err)
	assert.Equal(t, 10, result.Added)
	assert.True(t, result.Exhausted)

	// Nothing left, still not an error
	result, err = cursor.Extend(context.Background(), 25)
	require.NoError(t, err)
	assert.Zero(t, result.Added)
	assert.True(t, result.Exhausted)

	stories, exhausted := cursor.Snapshot()
	assert.Len(t, stories, 10)
	assert.True(t, exhausted)
	assert.Zero(t, cursor.Status().Backlog)
}

func TestExtendSkipsFailedItems(t *testing.T) {
	src := newFakeSource()
	backlog := []string{"1", "bad-2", "3", "nourl-4", "down-5", "6", "7", "8"}
	cursor := newFilledCursor(t, src, 2, backlog)

	result, err := cursor.Extend(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Added)
	assert.Equal(t, 3, result.Skipped)

	stories, _ := cursor.Snapshot()
	assert.Equal(t, []string{"1", "3", "6"}, storyIDs(stories))
	assert.Equal(t, 2, cursor.Status().Backlog)

	// Dropped ids are never tried again
	result, err = cursor.Extend(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Added)
	assert.True(t, result.Exhausted)

	stories, _ = cursor.Snapshot()
	assert.Equal(t, []string{"1", "3", "6", "7", "8"}, storyIDs(stories))
	for _, id := range backlog {
		assert.Equal(t, 1, src.callCount(id), "id %s", id)
	}
}

func TestExtendOnlyInvalidItems(t *testing.T) {
	src := newFakeSource()
	cursor := newFilledCursor(t, src, 3, []string{"bad-1", "nourl-2", "down-3"})

	result, err := cursor.Extend(context.Background(), 25)
	require.NoError(t, err)
	assert.Zero(t, result.Added)
	assert.Equal(t, 3, result.Skipped)
	assert.True(t, result.Exhausted)
}

type jitterResolver struct {
	*fakeSource
}

func (j jitterResolver) Resolve(ctx context.Context, id string) (models.Story, error) {
	time.Sleep(time.Duration(rand.Intn(3)) * time.Millisecond)
	return j.fakeSource.Resolve(ctx, id)
}

func TestExtendKeepsBacklogOrder(t *testing.T) {
	src := newFakeSource()
	backlog := append(ids("", 1, 30), "bad-31", "32", "nourl-33")
	backlog = append(backlog, ids("", 34, 60)...)
	cursor := newFilledCursor(t, jitterResolver{src}, 8, backlog)

	_, err := cursor.Extend(context.Background(), 25)
	require.NoError(t, err)
	_, err = cursor.Extend(context.Background(), 25)
	require.NoError(t, err)

	expected := append(ids("", 1, 30), "32")
	expected = append(expected, ids("", 34, 52)...)

	stories, _ := cursor.Snapshot()
	assert.Equal(t, expected, storyIDs(stories))
}

func TestConcurrentExtendsNeverDuplicate(t *testing.T) {
	src := newFakeSource()
	backlog := ids("", 1, 100)
	cursor := newFilledCursor(t, jitterResolver{src}, 4, backlog)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cursor.Extend(context.Background(), 10)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stories, _ := cursor.Snapshot()
	assert.Equal(t, ids("", 1, 40), storyIDs(stories))
	for _, id := range ids("", 1, 40) {
		assert.Equal(t, 1, src.callCount(id), "id %s", id)
	}
	assert.Zero(t, src.callCount("41"))
}

func TestExtendCancelledRequeuesUnresolvedIDs(t *testing.T) {
	src := newFakeSource()
	cursor := newFilledCursor(t, src, 1, ids("", 1, 10))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	src.cancelOn = "3"
	src.cancel = cancel

	result, err := cursor.Extend(ctx, 5)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, result.Added)

	stories, _ := cursor.Snapshot()
	assert.Equal(t, []string{"1", "2"}, storyIDs(stories))
	assert.Equal(t, 8, cursor.Status().Backlog)

	// A later load picks up where the cancelled one stopped
	result, err = cursor.Extend(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 5, result.Added)

	stories, _ = cursor.Snapshot()
	assert.Equal(t, ids("", 1, 7), storyIDs(stories))
}

func TestExtendRequeuesIDsHeldByRateLimit(t *testing.T) {
	src := newFakeSource()
	cursor := newFilledCursor(t, src, 1, []string{"1", "2", "late-3", "4", "5"})

	result, err := cursor.Extend(context.Background(), 5)
	assert.ErrorIs(t, err, hn.ErrDeadlineTooSoon)
	assert.Equal(t, 2, result.Added)
	assert.Zero(t, result.Skipped)
	assert.False(t, result.Exhausted)

	stories, exhausted := cursor.Snapshot()
	assert.Equal(t, []string{"1", "2"}, storyIDs(stories))
	assert.False(t, exhausted)
	assert.Equal(t, 3, cursor.Status().Backlog)
}

func TestExtendBeforeFill(t *testing.T) {
	cursor := feeds.NewCursor(models.FeedRecent, feeds.NewParallelResolver(newFakeSource(), 1))

	result, err := cursor.Extend(context.Background(), 25)
	require.NoError(t, err)
	assert.Zero(t, result.Added)
	assert.False(t, result.Exhausted)

	_, exhausted := cursor.Snapshot()
	assert.Equal(t, exhausted, result.Exhausted)
}

func TestExtendUnavailableCursor(t *testing.T) {
	cursor := feeds.NewCursor(models.FeedBest, feeds.NewParallelResolver(newFakeSource(), 1))
	cursor.MarkUnavailable(errors.New("listing failed"))

	result, err := cursor.Extend(context.Background(), 25)

	var unavailable *feeds.UnavailableError
	require.True(t, errors.As(err, &unavailable))
	assert.Equal(t, models.FeedBest, unavailable.Feed)
	assert.True(t, result.Exhausted)
	assert.True(t, cursor.Status().Unavailable)
}

func TestFillOnlyOnce(t *testing.T) {
	cursor := feeds.NewCursor(models.FeedRecent, feeds.NewParallelResolver(newFakeSource(), 1))
	require.NoError(t, cursor.Fill([]string{"1"}))
	assert.ErrorIs(t, cursor.Fill([]string{"2"}), feeds.ErrAlreadyFilled)
}

func TestSnapshotIsACopy(t *testing.T) {
	cursor := newFilledCursor(t, newFakeSource(), 1, ids("", 1, 3))
	_, err := cursor.Extend(context.Background(), 3)
	require.NoError(t, err)

	stories, _ := cursor.Snapshot()
	stories[0].Title = "changed"

	again, _ := cursor.Snapshot()
	assert.Equal(t, "story 1", again[0].Title)
}
