package siftclient

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

// Submitter is the slice of Client the queue manager drives; narrowed so
// tests can substitute a fake.
type Submitter interface {
	CreatePlaceholder(ctx context.Context, url, ownerID string) (string, error)
	Submit(ctx context.Context, params SubmitParams) (*Record, error)
}

// Outcome reports the terminal result of one queued URL.
type Outcome struct {
	URL    string
	Record *Record
	Err    error
}

// QueueManager batches user-submitted URLs: it deduplicates against an
// in-flight registry, inserts optimistic placeholders in parallel, then
// delivers each URL to the pipeline strictly one at a time. Sequential
// delivery is deliberate: scrape/AI calls are expensive and rate-sensitive,
// while the cheap placeholder inserts benefit from parallelism.
type QueueManager struct {
	client   Submitter
	ownerID  string
	tier     string
	inflight *InFlightRegistry

	// OnOutcome, when set, is invoked after each URL's delivery resolves.
	OnOutcome func(Outcome)

	mu       sync.Mutex
	queue    []string
	draining bool
	wg       sync.WaitGroup
}

func NewQueueManager(client Submitter, ownerID, tier string) *QueueManager {
	return &QueueManager{
		client:   client,
		ownerID:  ownerID,
		tier:     tier,
		inflight: NewInFlightRegistry(),
	}
}

// Enqueue accepts raw input (possibly a multi-line paste), splits it into
// URLs, and queues every URL not already in flight. URLs enter the
// in-flight registry immediately, which closes the race between two rapid
// submissions of the same URL. Returns the number accepted.
func (m *QueueManager) Enqueue(ctx context.Context, input string) int {
	accepted := 0
	m.mu.Lock()
	for _, line := range strings.Split(input, "\n") {
		url := strings.TrimSpace(line)
		if url == "" {
			continue
		}
		if !m.inflight.TryAcquire(url) {
			continue
		}
		m.queue = append(m.queue, url)
		accepted++
	}
	start := len(m.queue) > 0 && !m.draining
	if start {
		m.draining = true
		m.wg.Add(1)
	}
	m.mu.Unlock()

	if start {
		go m.drain(ctx)
	}
	return accepted
}

// Wait blocks until the current drain (if any) finishes. Test hook and
// shutdown aid.
func (m *QueueManager) Wait() {
	m.wg.Wait()
}

// InFlight returns the number of URLs currently held by the registry.
func (m *QueueManager) InFlight() int {
	return m.inflight.Len()
}

func (m *QueueManager) drain(ctx context.Context) {
	defer m.wg.Done()
	for {
		// Swap the queue atomically so intake during this batch starts a
		// fresh one instead of re-entering it.
		m.mu.Lock()
		batch := m.queue
		m.queue = nil
		if len(batch) == 0 {
			m.draining = false
			m.mu.Unlock()
			return
		}
		m.mu.Unlock()

		m.processBatch(ctx, batch)
	}
}

func (m *QueueManager) processBatch(ctx context.Context, batch []string) {
	// Phase 1: optimistic placeholders, in parallel. A failed insert drops
	// the URL from the batch; the user can resubmit.
	placeholderIDs := make([]string, len(batch))
	var wg sync.WaitGroup
	for i, url := range batch {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := m.client.CreatePlaceholder(ctx, url, m.ownerID)
			if err != nil {
				slog.Warn("placeholder insert failed", "url", url, "error", err)
				m.inflight.Release(url)
				return
			}
			placeholderIDs[i] = id
		}()
	}
	wg.Wait()

	// Phase 2: sequential delivery in submission order.
	for i, url := range batch {
		if placeholderIDs[i] == "" {
			continue
		}
		record, err := m.client.Submit(ctx, SubmitParams{
			URL:           url,
			OwnerID:       m.ownerID,
			PlaceholderID: placeholderIDs[i],
			Tier:          m.tier,
		})
		// Release regardless of outcome so the URL can be submitted again.
		m.inflight.Release(url)
		if err != nil {
			slog.Warn("sift delivery failed", "url", url, "error", err)
		}
		if m.OnOutcome != nil {
			m.OnOutcome(Outcome{URL: url, Record: record, Err: err})
		}
	}
}
