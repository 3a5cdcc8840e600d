// Package events is the in-process notification bus between the store, the sync engine and the UI.
//
// Handlers run synchronously on the publishing goroutine and must not block.
package events

import (
	"slices"
	"sync"
	"time"

	"github.com/desertthunder/vibesync/internal/models"
)

// Type names a notification.
type Type string

const (
	SyncStarted    Type = "sync-started"
	SyncCompleted  Type = "sync-completed"
	SyncError      Type = "sync-error"
	StorageUpdated Type = "storage-updated"
)

// Origin tells who caused a storage update.
type Origin int

const (
	OriginLocal Origin = iota // a user-visible write on this device
	OriginSync                // the batch written back by a sync cycle
)

func (o Origin) String() string {
	switch o {
	case OriginLocal:
		return "local"
	case OriginSync:
		return "sync"
	default:
		return ""
	}
}

// Event is a single notification.
type Event struct {
	Type    Type
	Origin  Origin
	Result  *models.SyncResult // set for SyncCompleted
	Message string             // set for SyncError
	At      time.Time
}

// Handler receives published events.
type Handler func(Event)

// Publisher is the write side of the bus, consumed by the store and the sync engine.
type Publisher interface {
	Publish(Event)
}

// Bus fans events out to subscribers.
type Bus struct {
	mu       sync.RWMutex
	handlers map[int]Handler
	next     int
}

// NewBus creates an empty [Bus].
func NewBus() *Bus {
	return &Bus{handlers: make(map[int]Handler)}
}

// Subscribe registers h and returns a function that removes it.
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	b.mu.Lock()
	id := b.next
	b.next++
	b.handlers[id] = h
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.handlers, id)
			b.mu.Unlock()
		})
	}
}

// Publish delivers e to every subscriber in registration order.
func (b *Bus) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}

	b.mu.RLock()
	ids := make([]int, 0, len(b.handlers))
	for id := range b.handlers {
		ids = append(ids, id)
	}
	handlers := make([]Handler, 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		handlers = append(handlers, b.handlers[id])
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
}

// Filter wraps h so it only sees events of type t and, for storage updates, origin o.
func Filter(t Type, o Origin, h Handler) Handler {
	return func(e Event) {
		if e.Type != t {
			return
		}
		if t == StorageUpdated && e.Origin != o {
			return
		}
		h(e)
	}
}

// Discard is a [Publisher] that drops everything.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(Event) {}

// Helpers for the common notifications.

func Started() Event { return Event{Type: SyncStarted} }

func Completed(r models.SyncResult) Event { return Event{Type: SyncCompleted, Result: &r} }

func Failed(err error) Event { return Event{Type: SyncError, Message: err.Error()} }

func StorageChanged(o Origin) Event { return Event{Type: StorageUpdated, Origin: o} }
