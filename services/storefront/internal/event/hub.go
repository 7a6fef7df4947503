package event

import (
	"context"
	"sync"
)

const defaultSubscriberBuffer = 8

// Hub fans cart notifications out to in-process subscribers keyed by
// session. A subscriber whose buffer is full misses the notification.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[*Subscription]struct{}
	buffer int
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		subs:   make(map[string]map[*Subscription]struct{}),
		buffer: defaultSubscriberBuffer,
	}
}

// Subscription receives notifications for one session until closed.
type Subscription struct {
	C <-chan CartChanged

	ch      chan CartChanged
	hub     *Hub
	session string
	once    sync.Once
}

// Close detaches the subscription and closes C. It is safe to call more
// than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		defer s.hub.mu.Unlock()
		if set, ok := s.hub.subs[s.session]; ok {
			delete(set, s)
			if len(set) == 0 {
				delete(s.hub.subs, s.session)
			}
		}
		close(s.ch)
	})
}

// Subscribe registers a subscriber for the session.
func (h *Hub) Subscribe(sessionID string) *Subscription {
	ch := make(chan CartChanged, h.buffer)
	sub := &Subscription{C: ch, ch: ch, hub: h, session: sessionID}

	h.mu.Lock()
	set, ok := h.subs[sessionID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[sessionID] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()

	return sub
}

// Deliver hands the notification to every subscriber of its session and
// reports how many received it.
func (h *Hub) Deliver(ev CartChanged) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for sub := range h.subs[ev.SessionID] {
		select {
		case sub.ch <- ev:
			delivered++
		default:
		}
	}
	return delivered
}

// Publish implements Publisher for a single storefront instance.
func (h *Hub) Publish(_ context.Context, ev CartChanged) error {
	h.Deliver(ev)
	return nil
}

// Subscribers returns the number of subscribers for the session.
func (h *Hub) Subscribers(sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[sessionID])
}
