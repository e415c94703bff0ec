// Package feeds keeps the paginated story feeds and publishes snapshots of
// them to presentation adapters.
package feeds

import (
	"context"
	"errors"
	"fmt"

	"wovennews/models"
)

// Resolver turns one story id into a Story
type Resolver interface {
	Resolve(ctx context.Context, id string) (models.Story, error)
}

// Source lists the ids backing a feed and resolves them
type Source interface {
	Resolver
	ListIDs(ctx context.Context, feed models.FeedName) ([]string, error)
}

// Presenter receives the full story list of a feed every time it changes
type Presenter interface {
	OnSnapshot(feed models.FeedName, stories []models.Story)
}

// PresenterFunc adapts a function to a Presenter
type PresenterFunc func(feed models.FeedName, stories []models.Story)

func (f PresenterFunc) OnSnapshot(feed models.FeedName, stories []models.Story) {
	f(feed, stories)
}

var (
	ErrUnknownFeed        = errors.New("unknown feed")
	ErrAlreadyInitialized = errors.New("store already initialized")
	ErrAlreadyFilled      = errors.New("cursor already holds a listing")
)

// UnavailableError marks a feed whose listing could not be loaded
type UnavailableError struct {
	Feed models.FeedName
	Err  error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("feed %s unavailable: %v", e.Feed, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// ExtendResult describes one page load
type ExtendResult struct {
	Added     int
	Skipped   int
	Exhausted bool
}
