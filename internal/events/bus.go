// Package events provides a small in-process pub/sub bus for registry
// mutations. Subscribers get a best-effort feed: a slow subscriber drops
// events rather than stalling the publishing request path.
package events

import (
	"sync"
	"time"
)

// Type identifies what happened
type Type string

const (
	ProjectCreated Type = "project.created"
	ProjectUpdated Type = "project.updated"
	ProjectDeleted Type = "project.deleted"
	VersionCreated Type = "version.created"
	VersionDeleted Type = "version.deleted"
	GalleryUpdated Type = "gallery.updated"
	StatusChanged  Type = "moderation.status_changed"
)

// Event is one registry mutation notification
type Event struct {
	Type      Type      `json:"type"`
	ProjectID int       `json:"project_id"`
	ActorID   int       `json:"actor_id,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	At        time.Time `json:"at"`
}

// Bus fan-outs events to subscribers
type Bus struct {
	mu   sync.RWMutex
	subs map[int]chan Event
	next int
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

const subscriberBuffer = 64

// Subscribe registers a subscriber. The returned cancel func must be called
// to release the channel.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan Event, subscriberBuffer)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if ch, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

// Publish delivers an event to all subscribers without blocking. Events to a
// full subscriber buffer are dropped.
func (b *Bus) Publish(evt Event) {
	if evt.At.IsZero() {
		evt.At = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}
