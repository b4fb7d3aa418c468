// Package realtime fans profile change notifications out to subscribers.
// A subscription carries invalidation tokens only; consumers re-fetch the
// authoritative view when one arrives.
package realtime

import (
	"context"
	"sync"

	"linkbio-service/telemetry"
)

type Table string

const (
	TableProfiles  Table = "profiles"
	TableLinks     Table = "links"
	TableSubtitles Table = "subtitles"
)

type Operation string

const (
	OpInsert Operation = "INSERT"
	OpUpdate Operation = "UPDATE"
	OpDelete Operation = "DELETE"
)

// Notification is one row change, scoped to the profile that owns the row.
type Notification struct {
	Table     Table     `json:"table"`
	Operation Operation `json:"op"`
	ProfileID string    `json:"profile_id"`
}

// Subscription receives notifications for one profile. Pending notifications
// coalesce: a subscriber that falls behind sees a single token.
type Subscription struct {
	hub       *Hub
	id        uint64
	profileID string
	tables    map[Table]bool
	ch        chan Notification
	once      sync.Once
}

// C is closed once the subscription is cancelled.
func (s *Subscription) C() <-chan Notification {
	return s.ch
}

func (s *Subscription) ProfileID() string {
	return s.profileID
}

// Unsubscribe is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.hub.remove(s)
	})
}

func (s *Subscription) wants(table Table) bool {
	return len(s.tables) == 0 || s.tables[table]
}

func (s *Subscription) offer(n Notification) {
	select {
	case s.ch <- n:
	default:
	}
}

type Hub struct {
	mu          sync.RWMutex
	subs        map[string]map[uint64]*Subscription
	nextID      uint64
	closed      bool
	instruments *telemetry.Instruments
}

func NewHub(instruments *telemetry.Instruments) *Hub {
	return &Hub{
		subs:        make(map[string]map[uint64]*Subscription),
		instruments: instruments,
	}
}

// Subscribe registers interest in a profile's rows. With no tables every
// table matches.
func (h *Hub) Subscribe(profileID string, tables ...Table) *Subscription {
	sub := &Subscription{
		hub:       h,
		profileID: profileID,
		ch:        make(chan Notification, 1),
	}
	if len(tables) > 0 {
		sub.tables = make(map[Table]bool, len(tables))
		for _, table := range tables {
			sub.tables[table] = true
		}
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(sub.ch)
		return sub
	}
	h.nextID++
	sub.id = h.nextID
	if h.subs[profileID] == nil {
		h.subs[profileID] = make(map[uint64]*Subscription)
	}
	h.subs[profileID][sub.id] = sub
	h.mu.Unlock()

	h.instruments.SubscriptionOpened(context.Background())
	return sub
}

// SubscribeFunc invokes onChange for every notification on table for the
// profile until the returned function is called.
func (h *Hub) SubscribeFunc(table Table, profileID string, onChange func(Notification)) func() {
	sub := h.Subscribe(profileID, table)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for n := range sub.C() {
			onChange(n)
		}
	}()
	return func() {
		sub.Unsubscribe()
		<-done
	}
}

func (h *Hub) Publish(n Notification) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs[n.ProfileID] {
		if sub.wants(n.Table) {
			sub.offer(n)
		}
	}
}

// InvalidateAll wakes every subscriber, used after notifications may have
// been lost.
func (h *Hub) InvalidateAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for profileID, subs := range h.subs {
		for _, sub := range subs {
			sub.offer(Notification{Table: TableProfiles, Operation: OpUpdate, ProfileID: profileID})
		}
	}
}

// Count returns the number of open subscriptions for a profile.
func (h *Hub) Count(profileID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[profileID])
}

// Close cancels every subscription; later Subscribe calls return a closed
// subscription. Channels are closed under the lock so a concurrent
// Unsubscribe either removes its subscription first or finds it gone.
func (h *Hub) Close() {
	h.mu.Lock()
	closed := 0
	for _, byID := range h.subs {
		for _, sub := range byID {
			close(sub.ch)
			closed++
		}
	}
	h.subs = make(map[string]map[uint64]*Subscription)
	h.closed = true
	h.mu.Unlock()

	for i := 0; i < closed; i++ {
		h.instruments.SubscriptionClosed(context.Background())
	}
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	byID := h.subs[sub.profileID]
	if _, ok := byID[sub.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(byID, sub.id)
	if len(byID) == 0 {
		delete(h.subs, sub.profileID)
	}
	close(sub.ch)
	h.mu.Unlock()

	h.instruments.SubscriptionClosed(context.Background())
}
