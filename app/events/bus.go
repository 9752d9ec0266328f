package events

import (
	"context"
	"log/slog"
	"sync"
)

const (
	TypeRefresh = "refresh"

	subscriberBuffer = 16
)

// Event tells the owner's views that their list changed.
type Event struct {
	Type    string `json:"type"`
	OwnerID string `json:"userId"`
	ItemID  string `json:"itemId,omitempty"`
}

func Refresh(ownerID, itemID string) Event {
	return Event{Type: TypeRefresh, OwnerID: ownerID, ItemID: itemID}
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Bus fans events out to in-process subscribers of the same owner.
// Delivery never blocks the publisher: a subscriber with a full buffer misses
// the event and catches up on its next poll.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]map[*Subscription]struct{}
}

type Subscription struct {
	C <-chan Event

	bus     *Bus
	ownerID string
	ch      chan Event
	once    sync.Once
}

func NewBus() *Bus {
	return &Bus{subscribers: make(map[string]map[*Subscription]struct{})}
}

func (b *Bus) Subscribe(ownerID string) *Subscription {
	ch := make(chan Event, subscriberBuffer)
	sub := &Subscription{C: ch, bus: b, ownerID: ownerID, ch: ch}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subscribers[ownerID] == nil {
		b.subscribers[ownerID] = make(map[*Subscription]struct{})
	}
	b.subscribers[ownerID][sub] = struct{}{}

	return sub
}

func (b *Bus) Publish(ctx context.Context, event Event) error {
	b.Deliver(event)
	return nil
}

// Deliver hands the event to local subscribers only.
func (b *Bus) Deliver(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers[event.OwnerID] {
		select {
		case sub.ch <- event:
		default:
			slog.Debug("Subscriber buffer full, event dropped", "owner", event.OwnerID, "type", event.Type)
		}
	}
}

func (b *Bus) SubscriberCount(ownerID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[ownerID])
}

// Close unsubscribes and closes C. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		defer s.bus.mu.Unlock()

		delete(s.bus.subscribers[s.ownerID], s)
		if len(s.bus.subscribers[s.ownerID]) == 0 {
			delete(s.bus.subscribers, s.ownerID)
		}
		close(s.ch)
	})
}
