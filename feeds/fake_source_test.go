package feeds_test

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"wovennews/hn"
	"wovennews/models"
)

// fakeSource serves listings from memory. Item behaviour depends on the id:
// "bad-" ids fail to parse, "nourl-" ids lack a url, "down-" ids fail on the
// network, "late-" ids hit the rate limit too close to the deadline,
// everything else resolves.
type fakeSource struct {
	mu      sync.Mutex
	lists   map[models.FeedName][]string
	listErr map[models.FeedName]error
	calls   map[string]int

	// Items whose id starts with gatePrefix wait for gate to close
	gatePrefix string
	gate       chan struct{}
	started    chan struct{}
	startOnce  sync.Once

	// cancelOn cancels the load that resolves this id
	cancelOn string
	cancel   context.CancelFunc
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		lists:   make(map[models.FeedName][]string),
		listErr: make(map[models.FeedName]error),
		calls:   make(map[string]int),
	}
}

func ids(prefix string, from, to int) []string {
	out := make([]string, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, fmt.Sprintf("%s%d", prefix, i))
	}
	return out
}

func (f *fakeSource) ListIDs(ctx context.Context, feed models.FeedName) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.listErr[feed]; err != nil {
		return nil, err
	}
	return append([]string(nil), f.lists[feed]...), nil
}

// holdPrefix makes items with prefix block until the returned release is called
func (f *fakeSource) holdPrefix(prefix string) (started <-chan struct{}, release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gatePrefix = prefix
	f.gate = make(chan struct{})
	f.started = make(chan struct{})
	f.startOnce = sync.Once{}
	gate := f.gate
	return f.started, func() { close(gate) }
}

func (f *fakeSource) Resolve(ctx context.Context, id string) (models.Story, error) {
	f.mu.Lock()
	f.calls[id]++
	gatePrefix, gate, started := f.gatePrefix, f.gate, f.started
	var cancel context.CancelFunc
	if f.cancelOn == id {
		cancel = f.cancel
		f.cancelOn = ""
	}
	f.mu.Unlock()

	if cancel != nil {
		cancel()
		return models.Story{}, &hn.NetworkError{URL: id, Err: ctx.Err()}
	}

	if gate != nil && gatePrefix != "" && strings.HasPrefix(id, gatePrefix) {
		f.startOnce.Do(func() { close(started) })
		select {
		case <-gate:
		case <-ctx.Done():
			return models.Story{}, ctx.Err()
		}
	}

	switch {
	case strings.HasPrefix(id, "bad-"):
		return models.Story{}, &hn.ParseError{ID: id, Err: fmt.Errorf("unexpected end of JSON input")}
	case strings.HasPrefix(id, "nourl-"):
		return models.Story{}, &hn.InvalidRecordError{ID: id, Field: "url"}
	case strings.HasPrefix(id, "down-"):
		return models.Story{}, &hn.NetworkError{URL: id, StatusCode: 503}
	case strings.HasPrefix(id, "late-"):
		return models.Story{}, fmt.Errorf("%w: rate: Wait(n=1) would exceed context deadline", hn.ErrDeadlineTooSoon)
	}

	return models.Story{
		ID:       id,
		Title:    "story " + id,
		Score:    "1",
		URL:      "https://example.com/" + id,
		PostedAt: 1700000000,
	}, nil
}

func (f *fakeSource) callCount(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

func storyIDs(stories []models.Story) []string {
	out := make([]string, len(stories))
	for i, s := range stories {
		out[i] = s.ID
	}
	return out
}
