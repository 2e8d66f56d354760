package progress

import (
	"context"
	"sync"
)

// Hub is an in-process fan-out sink feeding live observers (SSE, websocket).
// Subscriber channels are buffered; a slow subscriber drops events rather
// than blocking delivery.
type Hub struct {
	mu   sync.Mutex
	next int
	subs map[int]subscriber
}

type subscriber struct {
	ch    chan Event
	jobID string // "" = all jobs
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]subscriber)}
}

// Name implements Sink.
func (h *Hub) Name() string { return "hub" }

// Deliver implements Sink. It never blocks: full subscriber buffers drop.
func (h *Hub) Deliver(_ context.Context, e Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs {
		if sub.jobID != "" && sub.jobID != e.JobID {
			continue
		}
		select {
		case sub.ch <- e:
		default:
		}
	}
	return nil
}

// Subscribe registers an observer. jobID filters to one job; pass "" for all.
// The returned cancel func must be called to release the subscription.
func (h *Hub) Subscribe(jobID string) (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.next
	h.next++
	ch := make(chan Event, 64)
	h.subs[id] = subscriber{ch: ch, jobID: jobID}

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub.ch)
		}
	}
	return ch, cancel
}
