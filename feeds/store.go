package feeds

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"wovennews/config"
	"wovennews/models"
)

// Store owns the recent and best cursors and an alias to the active one.
// Every page load and feed switch publishes a full snapshot.
type Store struct {
	source   Source
	pageSize int
	cursors  map[models.FeedName]*Cursor

	mu     sync.RWMutex
	active *Cursor

	// publishMu keeps snapshot copies and sequence numbers in the same order
	publishMu   sync.Mutex
	seq         uint64
	broadcaster *Broadcaster

	initialized atomic.Bool
}

func NewStore(source Source, paging config.PagingConfig) *Store {
	pageSize := paging.PageSize
	if pageSize < 1 {
		pageSize = config.DefaultPageSize
	}

	resolver := NewParallelResolver(source, paging.Workers)
	cursors := make(map[models.FeedName]*Cursor, len(models.Feeds))
	for _, feed := range models.Feeds {
		cursors[feed] = NewCursor(feed, resolver)
	}

	return &Store{
		source:      source,
		pageSize:    pageSize,
		cursors:     cursors,
		active:      cursors[models.FeedRecent],
		broadcaster: NewBroadcaster(),
	}
}

// Initialize lists both feeds concurrently, loads their first page and
// publishes the active feed. A feed whose listing fails is reported as an
// UnavailableError while the other one still loads.
func (s *Store) Initialize(ctx context.Context) error {
	if !s.initialized.CompareAndSwap(false, true) {
		return ErrAlreadyInitialized
	}

	errs := make([]error, len(models.Feeds))

	var g errgroup.Group
	for i, feed := range models.Feeds {
		cursor := s.cursors[feed]
		g.Go(func() error {
			errs[i] = s.initFeed(ctx, cursor)
			return nil // never fail the group, errors are reported per feed
		})
	}
	_ = g.Wait()

	s.publish(s.activeCursor())
	return errors.Join(errs...)
}

func (s *Store) initFeed(ctx context.Context, cursor *Cursor) error {
	ids, err := s.source.ListIDs(ctx, cursor.Feed())
	if err != nil {
		cursor.MarkUnavailable(err)
		log.WithFields(log.Fields{
			"feed":  cursor.Feed(),
			"error": err,
		}).Error("Failed to list story ids")
		return &UnavailableError{Feed: cursor.Feed(), Err: err}
	}

	if err := cursor.Fill(ids); err != nil {
		return fmt.Errorf("failed to fill %s: %w", cursor.Feed(), err)
	}

	if _, err := cursor.Extend(ctx, s.pageSize); err != nil {
		return fmt.Errorf("failed to load first page of %s: %w", cursor.Feed(), err)
	}
	return nil
}

func (s *Store) cursor(feed models.FeedName) (*Cursor, error) {
	if !lo.Contains(models.Feeds, feed) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFeed, feed)
	}
	return s.cursors[feed], nil
}

func (s *Store) activeCursor() *Cursor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Active returns the name of the active feed
func (s *Store) Active() models.FeedName {
	return s.activeCursor().Feed()
}

// SwitchActive points the active alias at feed and publishes what that feed
// already holds. It does not load anything.
func (s *Store) SwitchActive(feed models.FeedName) (models.Snapshot, error) {
	cursor, err := s.cursor(feed)
	if err != nil {
		return models.Snapshot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = cursor

	log.WithFields(log.Fields{
		"feed": feed,
	}).Info("Switched active feed")

	return s.publish(cursor), nil
}

// LoadMoreActive loads a page into the feed that is active when called. The
// snapshot is published for that feed even if the alias moved meanwhile.
func (s *Store) LoadMoreActive(ctx context.Context) (models.Snapshot, error) {
	return s.load(ctx, s.activeCursor())
}

// LoadMore loads a page into the named feed
func (s *Store) LoadMore(ctx context.Context, feed models.FeedName) (models.Snapshot, error) {
	cursor, err := s.cursor(feed)
	if err != nil {
		return models.Snapshot{}, err
	}
	return s.load(ctx, cursor)
}

func (s *Store) load(ctx context.Context, cursor *Cursor) (models.Snapshot, error) {
	_, err := cursor.Extend(ctx, s.pageSize)
	return s.publish(cursor), err
}

func (s *Store) publish(cursor *Cursor) models.Snapshot {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	stories, exhausted := cursor.Snapshot()
	s.seq++
	snap := models.Snapshot{
		Feed:      cursor.Feed(),
		Stories:   stories,
		Exhausted: exhausted,
		Seq:       s.seq,
	}
	s.broadcaster.Broadcast(snap)
	snapshotsPublished.WithLabelValues(string(cursor.Feed())).Inc()

	// Subscribers share the slice, the caller gets its own
	own := snap
	own.Stories = append([]models.Story(nil), stories...)
	return own
}

// Snapshot reads a feed without publishing
func (s *Store) Snapshot(feed models.FeedName) (models.Snapshot, error) {
	cursor, err := s.cursor(feed)
	if err != nil {
		return models.Snapshot{}, err
	}
	return s.read(cursor), nil
}

// ActiveSnapshot reads the active feed without publishing
func (s *Store) ActiveSnapshot() models.Snapshot {
	return s.read(s.activeCursor())
}

func (s *Store) read(cursor *Cursor) models.Snapshot {
	stories, exhausted := cursor.Snapshot()

	s.publishMu.Lock()
	seq := s.seq
	s.publishMu.Unlock()

	return models.Snapshot{
		Feed:      cursor.Feed(),
		Stories:   stories,
		Exhausted: exhausted,
		Seq:       seq,
	}
}

// Status lists every feed in display order
func (s *Store) Status() []models.FeedStatus {
	active := s.Active()
	return lo.Map(models.Feeds, func(feed models.FeedName, _ int) models.FeedStatus {
		status := s.cursors[feed].Status()
		status.Active = feed == active
		return status
	})
}

// Subscribe returns a stream of published snapshots, latest-wins per feed and primed
// with the most recent one.
func (s *Store) Subscribe() *Subscription {
	return s.broadcaster.Subscribe()
}

// Unsubscribe closes the subscription registered under key
func (s *Store) Unsubscribe(key string) {
	s.broadcaster.RemoveClient(key)
}

// Attach forwards published snapshots to a presenter until ctx is done.
// The returned channel is closed once forwarding stopped.
func (s *Store) Attach(ctx context.Context, presenter Presenter) <-chan struct{} {
	sub := s.Subscribe()
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case snap, ok := <-sub.C:
				if !ok {
					return
				}
				presenter.OnSnapshot(snap.Feed, snap.Stories)
			}
		}
	}()

	return done
}

// Shutdown closes every subscription
func (s *Store) Shutdown() {
	s.broadcaster.Shutdown()
}

// Subscribers returns the number of active subscriptions
func (s *Store) Subscribers() int {
	return s.broadcaster.Count()
}
