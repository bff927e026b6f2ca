// package siftclient is the Go client for the sift service: a resilient
// request layer plus a deduplicating submission queue.
package siftclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

// Server response statuses.
const (
	StatusSuccess      = "success"
	StatusError        = "error"
	StatusLimitReached = "limit_reached"
)

// Record is the client-side view of a persisted sift.
type Record struct {
	ID            string         `json:"id"`
	OwnerID       string         `json:"owner_id"`
	SourceURL     string         `json:"source_url"`
	Title         string         `json:"title"`
	Summary       string         `json:"summary"`
	Tags          []string       `json:"tags"`
	Category      string         `json:"category"`
	Extras        map[string]any `json:"structured_extras"`
	CoverImageURL *string        `json:"cover_image_url"`
	Metadata      struct {
		Status     string `json:"status"`
		DebugTrace string `json:"debug_trace"`
	} `json:"metadata"`
}

type envelope struct {
	Status     string  `json:"status"`
	Message    string  `json:"message"`
	UpgradeURL string  `json:"upgrade_url"`
	Data       *Record `json:"data"`
}

// LimitReachedError is returned when the server rejects a submission on
// quota grounds. Never retried.
type LimitReachedError struct {
	Message    string
	UpgradeURL string
}

func (e *LimitReachedError) Error() string { return e.Message }

// SubmitParams identifies one submission.
type SubmitParams struct {
	URL         string
	ImageBase64 string
	OwnerID     string
	// PlaceholderID makes the server update an optimistic pending record in
	// place instead of inserting a new one.
	PlaceholderID string
	Tier          string
}

const (
	defaultAttemptTimeout = 5 * time.Minute
	defaultAttempts       = 3
	defaultBackoff        = 1 * time.Second
)

type Client struct {
	// MaxAttempts caps total HTTP attempts for retryable failures.
	MaxAttempts uint64
	// BackoffBase is the first retry delay; subsequent delays double.
	BackoffBase time.Duration
	// AttemptTimeout bounds each individual HTTP attempt. A hung server
	// burns one attempt, not the whole retry budget.
	AttemptTimeout time.Duration

	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		MaxAttempts:    defaultAttempts,
		BackoffBase:    defaultBackoff,
		AttemptTimeout: defaultAttemptTimeout,
		baseURL:        strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		// No client-level timeout; each attempt carries its own deadline.
		http: &http.Client{},
	}
}

// Submit drives one URL (or image) through the server pipeline. Transient
// failures (network errors, timeouts, 5xx, 429) are retried with exponential
// backoff; everything else surfaces immediately.
func (c *Client) Submit(ctx context.Context, params SubmitParams) (*Record, error) {
	body := map[string]any{
		"user_id": params.OwnerID,
	}
	if params.URL != "" {
		body["url"] = params.URL
	}
	if params.ImageBase64 != "" {
		body["image_base64"] = params.ImageBase64
	}
	if params.PlaceholderID != "" {
		body["id"] = params.PlaceholderID
	}
	if params.Tier != "" {
		body["user_tier"] = params.Tier
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	var record *Record
	backoff := retry.WithMaxRetries(max(c.MaxAttempts, 1)-1, retry.NewExponential(c.BackoffBase))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, c.AttemptTimeout)
		defer cancel()
		record, err = c.doSubmit(attemptCtx, payload)
		return err
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (c *Client) doSubmit(ctx context.Context, payload []byte) (*Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/sifts", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		// Connection resets and timed-out attempts are worth another try.
		// retry.Do stops on its own once the caller's context is done.
		return nil, retry.RetryableError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4*1024*1024))
	if err != nil {
		return nil, retry.RetryableError(err)
	}

	retryable := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		// Malformed body: an error response, not a crash.
		parseErr := fmt.Errorf("siftclient: status %d with unparseable body: %s",
			resp.StatusCode, sample(raw))
		if retryable {
			return nil, retry.RetryableError(parseErr)
		}
		return nil, parseErr
	}

	switch {
	case env.Status == StatusLimitReached:
		return nil, &LimitReachedError{Message: env.Message, UpgradeURL: env.UpgradeURL}
	case retryable:
		return nil, retry.RetryableError(fmt.Errorf("siftclient: server error %d: %s", resp.StatusCode, env.Message))
	case env.Status == StatusError || resp.StatusCode >= 400:
		return nil, fmt.Errorf("siftclient: request failed (%d): %s", resp.StatusCode, env.Message)
	case env.Data == nil:
		return nil, errors.New("siftclient: success response without data")
	}

	return env.Data, nil
}

// CreatePlaceholder inserts the optimistic pending record and returns its id.
func (c *Client) CreatePlaceholder(ctx context.Context, url, ownerID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.AttemptTimeout)
	defer cancel()

	payload, err := json.Marshal(map[string]string{"url": url, "user_id": ownerID})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/sifts/placeholder", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1024*1024))
	if err != nil {
		return "", err
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", fmt.Errorf("siftclient: placeholder status %d with unparseable body: %s", resp.StatusCode, sample(raw))
	}
	if env.Status != StatusSuccess || env.Data == nil {
		return "", fmt.Errorf("siftclient: placeholder failed (%d): %s", resp.StatusCode, env.Message)
	}
	return env.Data.ID, nil
}

func sample(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
