package events

import (
	"sync"
	"time"
)

// DefaultHistoryLimit bounds the events a MemoryBus retains.
const DefaultHistoryLimit = 1024

// Publisher is the write side of a bus; workflow states only need this.
type Publisher interface {
	Publish(event Event)
}

// EventBus provides publish/subscribe for workflow events.
type EventBus interface {
	Publisher
	Subscribe(filter ...EventType) <-chan Event
	Unsubscribe(ch <-chan Event)
	History(since time.Time) []Event
}

type subscriber struct {
	ch     chan Event
	filter map[EventType]bool // empty means all events
}

// MemoryBus is an in-memory EventBus keeping a bounded history.
type MemoryBus struct {
	mu          sync.RWMutex
	subscribers []subscriber
	history     []Event
	limit       int
}

// NewMemoryBus creates a bus retaining DefaultHistoryLimit events.
func NewMemoryBus() *MemoryBus {
	return NewMemoryBusWithLimit(DefaultHistoryLimit)
}

// NewMemoryBusWithLimit creates a bus retaining at most limit events.
// A limit <= 0 keeps everything.
func NewMemoryBusWithLimit(limit int) *MemoryBus {
	return &MemoryBus{
		history: make([]Event, 0, 256),
		limit:   limit,
	}
}

func (b *MemoryBus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.Lock()
	b.history = append(b.history, event)
	if b.limit > 0 && len(b.history) > b.limit {
		b.history = append(b.history[:0], b.history[len(b.history)-b.limit:]...)
	}
	subs := make([]subscriber, len(b.subscribers))
	copy(subs, b.subscribers)
	b.mu.Unlock()

	for _, sub := range subs {
		if len(sub.filter) > 0 && !sub.filter[event.Type] {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			// slow subscriber, drop
		}
	}
}

func (b *MemoryBus) Subscribe(filter ...EventType) <-chan Event {
	ch := make(chan Event, 64)
	sub := subscriber{ch: ch}
	if len(filter) > 0 {
		sub.filter = make(map[EventType]bool, len(filter))
		for _, f := range filter {
			sub.filter[f] = true
		}
	}

	b.mu.Lock()
	b.subscribers = append(b.subscribers, sub)
	b.mu.Unlock()

	return ch
}

func (b *MemoryBus) Unsubscribe(ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, sub := range b.subscribers {
		if sub.ch == ch {
			b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
			close(sub.ch)
			return
		}
	}
}

func (b *MemoryBus) History(since time.Time) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var result []Event
	for _, e := range b.history {
		if !e.Timestamp.Before(since) {
			result = append(result, e)
		}
	}
	return result
}

// Run returns the retained events of one workflow run, oldest first.
func (b *MemoryBus) Run(runID string) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var result []Event
	for _, e := range b.history {
		if e.RunID == runID {
			result = append(result, e)
		}
	}
	return result
}
