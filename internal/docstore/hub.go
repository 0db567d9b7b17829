package docstore

import "sync"

const subscriberBuffer = 16

// Hub fans snapshots out to subscribers. Each subscriber gets a buffered
// channel drained by its own goroutine, so deliveries to one subscriber are
// serialized and a slow subscriber never blocks a writer: if its buffer
// fills, the subscriber is dropped.
//
// Shared by the memory and gorm backends; the websocket backend replays
// gateway pushes through its own Hub.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[int64]chan Snapshot
	next int64
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[int64]chan Snapshot)}
}

// Subscription is one registered subscriber. Close is safe to call more
// than once and from any goroutine.
type Subscription struct {
	hub  *Hub
	code string
	id   int64
}

// Add registers fn for snapshots of one code. The caller is responsible for
// sending the initial snapshot via Send if the backend promises one.
func (h *Hub) Add(code string, fn func(Snapshot)) *Subscription {
	ch := make(chan Snapshot, subscriberBuffer)

	h.mu.Lock()
	h.next++
	id := h.next
	if h.subs[code] == nil {
		h.subs[code] = make(map[int64]chan Snapshot)
	}
	h.subs[code][id] = ch
	h.mu.Unlock()

	go func() {
		for snap := range ch {
			fn(snap)
		}
	}()

	return &Subscription{hub: h, code: code, id: id}
}

// Send delivers a snapshot to this subscriber only.
func (s *Subscription) Send(snap Snapshot) {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	if ch, ok := s.hub.subs[s.code][s.id]; ok {
		select {
		case ch <- snap:
		default:
		}
	}
}

func (s *Subscription) Close() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	if ch, ok := s.hub.subs[s.code][s.id]; ok {
		delete(s.hub.subs[s.code], s.id)
		close(ch)
	}
}

// Publish sends a snapshot to every subscriber of snap.Code, dropping any
// whose buffer is full.
func (h *Hub) Publish(snap Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subs[snap.Code] {
		select {
		case ch <- snap:
		default:
			delete(h.subs[snap.Code], id)
			close(ch)
		}
	}
}
