package siftclient

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeSubmitter struct {
	mu           sync.Mutex
	placeholders []string
	submitted    []string
	placeholderE error
	submitErr    error
	submitDelay  time.Duration

	active    atomic.Int32
	maxActive atomic.Int32
	nextID    atomic.Int32
}

func (f *fakeSubmitter) CreatePlaceholder(ctx context.Context, url, ownerID string) (string, error) {
	if f.placeholderE != nil {
		return "", f.placeholderE
	}
	f.mu.Lock()
	f.placeholders = append(f.placeholders, url)
	f.mu.Unlock()
	return "ph-" + strconv.Itoa(int(f.nextID.Add(1))), nil
}

func (f *fakeSubmitter) Submit(ctx context.Context, params SubmitParams) (*Record, error) {
	if cur := f.active.Add(1); cur > f.maxActive.Load() {
		f.maxActive.Store(cur)
	}
	defer f.active.Add(-1)
	if f.submitDelay > 0 {
		time.Sleep(f.submitDelay)
	}

	f.mu.Lock()
	f.submitted = append(f.submitted, params.URL)
	f.mu.Unlock()

	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return &Record{ID: params.PlaceholderID, SourceURL: params.URL}, nil
}

func TestEnqueue_DedupesWithinBurst(t *testing.T) {
	sub := &fakeSubmitter{}
	m := NewQueueManager(sub, "u1", "free")

	n := m.Enqueue(context.Background(), "https://a\nhttps://a\n\n  https://b  \n")
	m.Wait()

	require.Equal(t, 2, n)
	require.Len(t, sub.placeholders, 2, "exactly one placeholder per distinct URL")
	require.Len(t, sub.submitted, 2)
}

func TestEnqueue_ConcurrentSameURL(t *testing.T) {
	// Keep the first delivery in flight long enough for every enqueue to
	// observe the URL as held.
	sub := &fakeSubmitter{submitDelay: 50 * time.Millisecond}
	m := NewQueueManager(sub, "u1", "free")

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Enqueue(context.Background(), "https://same")
		}()
	}
	wg.Wait()
	m.Wait()

	require.Len(t, sub.placeholders, 1, "concurrent enqueues of one URL must create one placeholder")
}

func TestEnqueue_URLReleasedAfterCompletion(t *testing.T) {
	sub := &fakeSubmitter{}
	m := NewQueueManager(sub, "u1", "free")

	m.Enqueue(context.Background(), "https://a")
	m.Wait()
	require.Zero(t, m.InFlight())

	// Same URL again: accepted, new placeholder.
	n := m.Enqueue(context.Background(), "https://a")
	m.Wait()
	require.Equal(t, 1, n)
	require.Len(t, sub.placeholders, 2)
}

func TestEnqueue_URLReleasedAfterFailure(t *testing.T) {
	sub := &fakeSubmitter{submitErr: errors.New("terminal failure")}
	m := NewQueueManager(sub, "u1", "free")

	var outcomes []Outcome
	var mu sync.Mutex
	m.OnOutcome = func(o Outcome) {
		mu.Lock()
		outcomes = append(outcomes, o)
		mu.Unlock()
	}

	m.Enqueue(context.Background(), "https://a")
	m.Wait()

	require.Zero(t, m.InFlight(), "failed delivery must release the URL")
	require.Len(t, outcomes, 1)
	require.Error(t, outcomes[0].Err)

	require.Equal(t, 1, m.Enqueue(context.Background(), "https://a"), "URL must not stay blocked")
	m.Wait()
}

func TestEnqueue_PlaceholderFailureDropsURL(t *testing.T) {
	sub := &fakeSubmitter{placeholderE: errors.New("insert failed")}
	m := NewQueueManager(sub, "u1", "free")

	m.Enqueue(context.Background(), "https://a")
	m.Wait()

	require.Empty(t, sub.submitted, "URL without a placeholder must not be delivered")
	require.Zero(t, m.InFlight())
}

func TestDrain_Phase2SequentialInOrder(t *testing.T) {
	sub := &fakeSubmitter{}
	m := NewQueueManager(sub, "u1", "free")

	urls := []string{"https://1", "https://2", "https://3", "https://4"}
	m.Enqueue(context.Background(), strings.Join(urls, "\n"))
	m.Wait()

	require.Equal(t, int32(1), sub.maxActive.Load(), "deliveries must never overlap")
	require.Equal(t, urls, sub.submitted, "deliveries must run in submission order")
}

func TestDrain_IntakeDuringDrainStartsNewBatch(t *testing.T) {
	release := make(chan struct{})
	sub := &blockingSubmitter{release: release, started: make(chan struct{})}
	m := NewQueueManager(sub, "u1", "free")

	m.Enqueue(context.Background(), "https://first")
	<-sub.started

	// The drain is mid-delivery; new intake must land in a fresh batch.
	n := m.Enqueue(context.Background(), "https://second")
	require.Equal(t, 1, n)

	close(release)
	m.Wait()
	require.Equal(t, []string{"https://first", "https://second"}, sub.submittedOrder())
}

type blockingSubmitter struct {
	mu        sync.Mutex
	submitted []string
	started   chan struct{}
	release   chan struct{}
}

func (b *blockingSubmitter) CreatePlaceholder(ctx context.Context, url, ownerID string) (string, error) {
	return "ph", nil
}

func (b *blockingSubmitter) Submit(ctx context.Context, params SubmitParams) (*Record, error) {
	b.mu.Lock()
	b.submitted = append(b.submitted, params.URL)
	first := len(b.submitted) == 1
	b.mu.Unlock()
	if first {
		close(b.started)
		<-b.release
	}
	return &Record{ID: params.PlaceholderID}, nil
}

func (b *blockingSubmitter) submittedOrder() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.submitted...)
}

func TestInFlightRegistry(t *testing.T) {
	r := NewInFlightRegistry()
	require.True(t, r.TryAcquire("a"))
	require.False(t, r.TryAcquire("a"))
	require.Equal(t, 1, r.Len())
	r.Release("a")
	require.True(t, r.TryAcquire("a"))
	r.Release("missing") // no-op
}
