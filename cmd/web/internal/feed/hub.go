// package feed fans out persisted sift changes to connected SSE streams.
package feed

import (
	"sync"

	"thirdcoast.systems/sift/internal/db"
)

const (
	// Hard caps to keep the web process responsive even if someone opens
	// a silly number of tabs. These can be revisited later.
	maxStreamsPerOwner = 8
	maxTotalStreams    = 200
)

// Hub manages per-owner subscriber channels for the change feed.
type Hub struct {
	mu sync.Mutex

	owners map[string]*owner

	totalStreams int
}

type owner struct {
	streams int

	subs map[chan *db.Sift]struct{}
}

// NewHub creates a new change feed hub.
func NewHub() *Hub {
	return &Hub{
		owners: make(map[string]*owner),
	}
}

func (h *Hub) getOrCreateOwner(ownerID string) *owner {
	o, ok := h.owners[ownerID]
	if ok {
		return o
	}

	o = &owner{
		subs: make(map[chan *db.Sift]struct{}),
	}
	h.owners[ownerID] = o
	return o
}

func (h *Hub) maybeDrop(ownerID string) {
	o, ok := h.owners[ownerID]
	if !ok {
		return
	}
	if o.streams == 0 && len(o.subs) == 0 {
		delete(h.owners, ownerID)
	}
}

// AcquireStream attempts to reserve an SSE slot for the given owner.
func (h *Hub) AcquireStream(ownerID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.totalStreams >= maxTotalStreams {
		return false
	}

	o := h.getOrCreateOwner(ownerID)
	if o.streams >= maxStreamsPerOwner {
		return false
	}

	o.streams++
	h.totalStreams++
	return true
}

// ReleaseStream frees an SSE slot for the given owner.
func (h *Hub) ReleaseStream(ownerID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	o, ok := h.owners[ownerID]
	if !ok {
		return
	}
	if o.streams > 0 {
		o.streams--
	}
	if h.totalStreams > 0 {
		h.totalStreams--
	}
	h.maybeDrop(ownerID)
}

// Subscribe returns a channel that receives the owner's record changes, and
// an unsubscribe function.
func (h *Hub) Subscribe(ownerID string) (<-chan *db.Sift, func()) {
	ch := make(chan *db.Sift, 32)

	h.mu.Lock()
	o := h.getOrCreateOwner(ownerID)
	o.subs[ch] = struct{}{}
	h.mu.Unlock()

	unsubscribe := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		o, ok := h.owners[ownerID]
		if !ok {
			return
		}
		if _, ok := o.subs[ch]; ok {
			delete(o.subs, ch)
			close(ch)
		}
		h.maybeDrop(ownerID)
	}

	return ch, unsubscribe
}

// Publish routes a changed record to the owner's subscribers.
func (h *Hub) Publish(record *db.Sift) {
	if record == nil {
		return
	}

	h.mu.Lock()
	o, ok := h.owners[record.OwnerID]
	if !ok {
		h.mu.Unlock()
		return
	}

	for sub := range o.subs {
		select {
		case sub <- record:
		default:
			// Drop rather than block the webserver.
		}
	}
	h.mu.Unlock()
}
