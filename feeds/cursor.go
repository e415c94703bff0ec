package feeds

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"wovennews/hn"
	"wovennews/models"
)

// Cursor holds the unresolved ids and the resolved stories of one feed.
// The backlog only shrinks from the front and resolved only grows at the end.
type Cursor struct {
	feed     models.FeedName
	resolver *ParallelResolver

	// loadMu serializes Extend, mu guards the data and is never held across I/O
	loadMu sync.Mutex
	mu     sync.RWMutex

	backlog     []string
	resolved    []models.Story
	filled      bool
	unavailable error
}

func NewCursor(feed models.FeedName, resolver *ParallelResolver) *Cursor {
	return &Cursor{
		feed:     feed,
		resolver: resolver,
		resolved: []models.Story{},
	}
}

func (c *Cursor) Feed() models.FeedName {
	return c.feed
}

// Fill sets the backlog from a listing. A cursor is filled at most once.
func (c *Cursor) Fill(ids []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.filled {
		return ErrAlreadyFilled
	}
	c.backlog = append([]string(nil), ids...)
	c.filled = true
	c.unavailable = nil
	c.updateGauges()
	return nil
}

// MarkUnavailable records why the listing of this feed could not be loaded
func (c *Cursor) MarkUnavailable(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unavailable = err
}

// Unavailable returns the listing failure, if any
func (c *Cursor) Unavailable() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.unavailable
}

// Snapshot copies the resolved stories
func (c *Cursor) Snapshot() (stories []models.Story, exhausted bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stories = make([]models.Story, len(c.resolved))
	copy(stories, c.resolved)
	return stories, c.filled && len(c.backlog) == 0
}

// Status summarises the cursor without copying stories
func (c *Cursor) Status() models.FeedStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return models.FeedStatus{
		Feed:        c.feed,
		Resolved:    len(c.resolved),
		Backlog:     len(c.backlog),
		Unavailable: c.unavailable != nil,
	}
}

// Extend resolves ids from the front of the backlog until pageSize stories
// were added or the backlog is empty. Ids that fail to resolve are dropped.
// On cancellation the ids that were not resolved go back to the front.
func (c *Cursor) Extend(ctx context.Context, pageSize int) (ExtendResult, error) {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()

	var result ExtendResult

	if err := c.Unavailable(); err != nil {
		result.Exhausted = true
		return result, &UnavailableError{Feed: c.feed, Err: err}
	}

	start := time.Now()
	defer func() {
		pageLoadDuration.WithLabelValues(string(c.feed)).Observe(time.Since(start).Seconds())
	}()

	for result.Added < pageSize {
		batch := c.popFront(pageSize - result.Added)
		if len(batch) == 0 {
			break
		}

		resolutions := c.resolver.ResolveAll(ctx, batch)

		stories := make([]models.Story, 0, len(batch))
		cancelledAt := -1
		var stopErr error
		for i, res := range resolutions {
			if res.Err == nil {
				stories = append(stories, res.Story)
				continue
			}
			if stopErr = interrupted(ctx, res.Err); stopErr != nil {
				cancelledAt = i
				break
			}
			c.skip(res)
			result.Skipped++
		}

		c.appendResolved(stories)
		result.Added += len(stories)

		if cancelledAt >= 0 {
			c.pushFront(batch[cancelledAt:])
			result.Exhausted = c.exhausted()
			log.WithFields(log.Fields{
				"feed":     c.feed,
				"added":    result.Added,
				"requeued": len(batch) - cancelledAt,
			}).Info("Page load cancelled")
			return result, stopErr
		}
	}

	result.Exhausted = c.exhausted()

	log.WithFields(log.Fields{
		"feed":      c.feed,
		"added":     result.Added,
		"skipped":   result.Skipped,
		"exhausted": result.Exhausted,
	}).Info("Loaded page")

	return result, nil
}

// interrupted returns the error that cut the load short when err is caused by
// it, the id behind err was never really tried
func interrupted(ctx context.Context, err error) error {
	if cerr := ctx.Err(); cerr != nil && errors.Is(err, cerr) {
		return cerr
	}
	if errors.Is(err, hn.ErrDeadlineTooSoon) {
		return err
	}
	return nil
}

func (c *Cursor) skip(res Resolution) {
	reason := hn.SkipReason(res.Err)
	itemsSkipped.WithLabelValues(string(c.feed), reason).Inc()

	entry := log.WithFields(log.Fields{
		"feed":   c.feed,
		"id":     res.ID,
		"reason": reason,
		"error":  res.Err,
	})
	if reason == hn.ReasonNetwork {
		entry.Warn("Dropping story after network failure")
		return
	}
	entry.Debug("Skipping story")
}

func (c *Cursor) popFront(n int) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	n = min(n, len(c.backlog))
	batch := make([]string, n)
	copy(batch, c.backlog[:n])
	c.backlog = c.backlog[n:]
	c.updateGauges()
	return batch
}

func (c *Cursor) pushFront(ids []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	backlog := make([]string, 0, len(ids)+len(c.backlog))
	backlog = append(backlog, ids...)
	c.backlog = append(backlog, c.backlog...)
	c.updateGauges()
}

func (c *Cursor) appendResolved(stories []models.Story) {
	if len(stories) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resolved = append(c.resolved, stories...)
	c.updateGauges()
}

func (c *Cursor) exhausted() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filled && len(c.backlog) == 0
}

// updateGauges must be called with mu held
func (c *Cursor) updateGauges() {
	resolvedStories.WithLabelValues(string(c.feed)).Set(float64(len(c.resolved)))
	backlogIDs.WithLabelValues(string(c.feed)).Set(float64(len(c.backlog)))
}
