package stream

import (
	"sync"
	"sync/atomic"

	"github.com/mr1hm/go-incident-dedupe/internal/models"
)

// subscriberBuffer holds roughly one ingest batch of decisions.
const subscriberBuffer = 100

// Broadcaster fans ingest decisions out to live subscribers such as the SSE
// endpoint. Slow subscribers miss events instead of blocking ingestion.
type Broadcaster struct {
	subscribers map[uint64]chan models.Decision
	nextID      atomic.Uint64
	mu          sync.RWMutex
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[uint64]chan models.Decision),
	}
}

func (b *Broadcaster) Subscribe() (uint64, <-chan models.Decision) {
	id := b.nextID.Add(1)
	ch := make(chan models.Decision, subscriberBuffer)

	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()

	return id, ch
}

func (b *Broadcaster) Unsubscribe(id uint64) {
	b.mu.Lock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()
}

func (b *Broadcaster) Broadcast(d models.Decision) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- d:
		default:
			// Skip slow subscribers
		}
	}
}

func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close closes all subscriber channels so open streams end.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}
