package siftclient

import "sync"

// InFlightRegistry tracks URLs that are currently queued or being
// delivered, so a burst of identical submissions produces one record.
// Acquire happens at intake, release happens when delivery finishes,
// success or not; a URL is never permanently blocked.
type InFlightRegistry struct {
	mu   sync.Mutex
	urls map[string]struct{}
}

func NewInFlightRegistry() *InFlightRegistry {
	return &InFlightRegistry{urls: make(map[string]struct{})}
}

// TryAcquire reserves the URL. Returns false when it is already in flight.
func (r *InFlightRegistry) TryAcquire(url string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.urls[url]; ok {
		return false
	}
	r.urls[url] = struct{}{}
	return true
}

// Release frees the URL for future submissions. Releasing a URL that is not
// held is a no-op.
func (r *InFlightRegistry) Release(url string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.urls, url)
}

func (r *InFlightRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.urls)
}
