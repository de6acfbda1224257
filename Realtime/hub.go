package Realtime

import (
	"sync"

	"github.com/sirupsen/logrus"
)

const DefaultBuffer = 32

// Hub fans change events out to subscribers in this process. It is safe for
// concurrent use and Publish never waits on a subscriber.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID uint64
	buffer int
	closed bool
	logger logrus.FieldLogger
}

func NewHub(logger logrus.FieldLogger, buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		subs:   make(map[uint64]*Subscription),
		buffer: buffer,
		logger: logger,
	}
}

type Subscription struct {
	id     uint64
	hub    *Hub
	filter Filter
	events chan ChangeEvent
	once   sync.Once
}

// Events is closed after Unsubscribe or when the hub closes.
func (s *Subscription) Events() <-chan ChangeEvent {
	return s.events
}

func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		defer s.hub.mu.Unlock()
		if _, ok := s.hub.subs[s.id]; ok {
			delete(s.hub.subs, s.id)
			close(s.events)
		}
	})
}

func (h *Hub) Subscribe(filter Filter) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub := &Subscription{
		id:     h.nextID,
		hub:    h,
		filter: filter,
		events: make(chan ChangeEvent, h.buffer),
	}
	h.nextID++
	if h.closed {
		close(sub.events)
		return sub
	}
	h.subs[sub.id] = sub
	return sub
}

// Publish delivers event to every matching subscriber. A subscriber whose
// buffer is full misses the event.
func (h *Hub) Publish(event ChangeEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs {
		if !sub.filter.Matches(event) {
			continue
		}
		select {
		case sub.events <- event:
		default:
			if h.logger != nil {
				h.logger.WithFields(logrus.Fields{
					"table":  event.Table,
					"row_id": event.RowID,
				}).Warn("realtime subscriber is falling behind, event dropped")
			}
		}
	}
}

// Subscribers returns the number of open subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close ends every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, sub := range h.subs {
		delete(h.subs, id)
		close(sub.events)
	}
	h.closed = true
}
