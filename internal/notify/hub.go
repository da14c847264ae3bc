/**
 * @description
 * This package implements the in-process notification bus that fans settlement
 * events out to connected overlay clients. Topics are keyed by streamer id;
 * delivery is at-most-once and best-effort with no persistence or replay — an
 * overlay that connects after an event simply misses it.
 */

package notify

import (
	"sync"

	"github.com/google/uuid"
	"github.com/tippay/tip-service/internal/domain"
)

// subscriberBuffer bounds each subscriber channel. A full buffer means the
// client is too slow and newer events are dropped for it.
const subscriberBuffer = 16

// Hub is a per-process subscription registry keyed by streamer id.
type Hub struct {
	mu     sync.RWMutex
	topics map[uuid.UUID]map[*subscriber]struct{}
}

type subscriber struct {
	ch chan domain.OverlayEvent
}

// NewHub creates an empty notification hub.
func NewHub() *Hub {
	return &Hub{topics: make(map[uuid.UUID]map[*subscriber]struct{})}
}

// Subscribe registers an overlay client on a streamer's topic. The returned
// cancel function must be called when the client disconnects; it closes the
// event channel.
func (h *Hub) Subscribe(streamerID uuid.UUID) (<-chan domain.OverlayEvent, func()) {
	sub := &subscriber{ch: make(chan domain.OverlayEvent, subscriberBuffer)}

	h.mu.Lock()
	subs, ok := h.topics[streamerID]
	if !ok {
		subs = make(map[*subscriber]struct{})
		h.topics[streamerID] = subs
	}
	subs[sub] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if subs, ok := h.topics[streamerID]; ok {
			if _, present := subs[sub]; present {
				delete(subs, sub)
				close(sub.ch)
				if len(subs) == 0 {
					delete(h.topics, streamerID)
				}
			}
		}
		h.mu.Unlock()
	}

	return sub.ch, cancel
}

// Publish delivers an event to every subscriber on the streamer's topic. The
// send never blocks: subscribers whose buffers are full lose the event.
func (h *Hub) Publish(streamerID uuid.UUID, event domain.OverlayEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.topics[streamerID] {
		select {
		case sub.ch <- event:
		default:
		}
	}
}

// SubscriberCount reports how many overlay clients are on a streamer's topic.
func (h *Hub) SubscriberCount(streamerID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[streamerID])
}
