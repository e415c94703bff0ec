package feeds

import (
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"wovennews/models"
)

// Broadcaster fans snapshots out to subscribers. Each subscriber holds at
// most one undelivered snapshot per feed, a newer one of the same feed
// replaces it.
type Broadcaster struct {
	sync.RWMutex
	clients map[string]chan models.Snapshot
	last    *models.Snapshot
	closed  bool
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		clients: make(map[string]chan models.Snapshot),
	}
}

func (b *Broadcaster) Broadcast(snap models.Snapshot) {
	b.Lock()
	defer b.Unlock()

	if b.closed {
		return
	}
	b.last = &snap

	for id, client := range b.clients {
		select {
		case client <- snap: // Non-blocking send
			continue
		default:
		}

		// Only the pending snapshot of the same feed is stale
		pending := drain(client)
		kept := pending[:0]
		for _, p := range pending {
			if p.Feed != snap.Feed {
				kept = append(kept, p)
			}
		}
		for _, p := range append(kept, snap) {
			select {
			case client <- p:
			default:
				log.Warnf("Client channel full, skipping snapshot for client: %v", id)
			}
		}
	}
}

// drain empties a client channel without blocking, in delivery order
func drain(client chan models.Snapshot) []models.Snapshot {
	var pending []models.Snapshot
	for {
		select {
		case p := <-client:
			pending = append(pending, p)
		default:
			return pending
		}
	}
}

// AddClient registers a subscriber and primes it with the latest snapshot
func (b *Broadcaster) AddClient() (string, <-chan models.Snapshot) {
	b.Lock()
	defer b.Unlock()

	key := uuid.New().String()
	client := make(chan models.Snapshot, len(models.Feeds))
	if b.closed {
		close(client)
		return key, client
	}
	if b.last != nil {
		client <- *b.last
	}
	b.clients[key] = client

	log.WithFields(log.Fields{
		"key":   key,
		"count": len(b.clients),
	}).Debug("Adding client to broadcaster")

	return key, client
}

func (b *Broadcaster) RemoveClient(key string) {
	b.Lock()
	defer b.Unlock()

	if client, ok := b.clients[key]; ok {
		close(client)
		delete(b.clients, key)
	}

	log.WithFields(log.Fields{
		"key":   key,
		"count": len(b.clients),
	}).Debug("Removed client from broadcaster")
}

func (b *Broadcaster) Count() int {
	b.RLock()
	defer b.RUnlock()
	return len(b.clients)
}

func (b *Broadcaster) Shutdown() {
	b.Lock()
	defer b.Unlock()
	if b.closed {
		return
	}
	log.Info("Shutting down broadcaster")
	b.closed = true
	for key, client := range b.clients {
		close(client)
		delete(b.clients, key)
	}
}

// Subscription is a handle on a broadcaster client
type Subscription struct {
	Key string
	C   <-chan models.Snapshot
	b   *Broadcaster
}

func (b *Broadcaster) Subscribe() *Subscription {
	key, ch := b.AddClient()
	return &Subscription{Key: key, C: ch, b: b}
}

// Close unregisters the subscription. Closing twice is harmless.
func (s *Subscription) Close() {
	s.b.RemoveClient(s.Key)
}
