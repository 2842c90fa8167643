package events

import (
	"context"
	"sync"

	"github.com/cuemby/dwn/pkg/provider"
	"github.com/cuemby/dwn/pkg/types"
)

// Broker is the in-process provider.EventStream, generalizing the
// teacher's pub/sub shape (subscriber map + buffered channels) to
// per-owner subscriptions filtered by MessagesFilter instead of a fixed
// EventType.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[*subscription]struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[*subscription]struct{})}
}

type subscription struct {
	broker *Broker
	owner  string
	filter types.MessagesFilter
	ch     chan types.Entry
}

func (s *subscription) Events() <-chan types.Entry { return s.ch }

func (s *subscription) Close() {
	s.broker.mu.Lock()
	defer s.broker.mu.Unlock()
	if owner, ok := s.broker.subs[s.owner]; ok {
		if _, ok := owner[s]; ok {
			delete(owner, s)
			close(s.ch)
		}
	}
}

// Subscribe opens a live feed of entries for owner matching filter.
// The channel is buffered; a slow subscriber drops entries rather than
// blocking Emit.
func (b *Broker) Subscribe(ctx context.Context, owner string, filter types.MessagesFilter) (provider.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub := &subscription{broker: b, owner: owner, filter: filter, ch: make(chan types.Entry, 64)}
	if b.subs[owner] == nil {
		b.subs[owner] = make(map[*subscription]struct{})
	}
	b.subs[owner][sub] = struct{}{}
	return sub, nil
}

// Emit delivers entry to every subscription for owner whose filter
// matches.
func (b *Broker) Emit(ctx context.Context, owner string, entry types.Entry) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subs[owner] {
		if !matchesMessagesFilter(entry, sub.filter) {
			continue
		}
		select {
		case sub.ch <- entry:
		default:
			// subscriber buffer full, drop rather than block the writer
		}
	}
}

// SubscriberCount returns the number of active subscriptions for owner.
func (b *Broker) SubscriberCount(owner string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[owner])
}

var (
	_ provider.EventStream  = (*Broker)(nil)
	_ provider.Subscription = (*subscription)(nil)
)
