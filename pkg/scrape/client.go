// package scrape invokes the external scrape-actor runtime and normalizes
// its dataset items into evidence for synthesis.
package scrape

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"thirdcoast.systems/sift/pkg/platform"
)

const defaultBaseURL = "https://api.apify.com"

// DefaultMemoryMB bounds the external actor run. Actors are billed by
// memory-seconds, so keep this small.
const DefaultMemoryMB = 1024

type Client struct {
	baseURL  string
	token    string
	memoryMB int
	http     *http.Client
}

func NewClient(baseURL, token string) *Client {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	return &Client{
		baseURL:  baseURL,
		token:    token,
		memoryMB: DefaultMemoryMB,
		// Actor runs can legitimately take minutes; the caller's context is
		// the only bound on a run.
		http: &http.Client{},
	}
}

// Configured reports whether the client has credentials to call the runtime.
func (c *Client) Configured() bool {
	return strings.TrimSpace(c.token) != ""
}

// SetMemoryMB overrides the actor run memory budget.
func (c *Client) SetMemoryMB(mb int) {
	if mb > 0 {
		c.memoryMB = mb
	}
}

// Run executes the strategy's actor synchronously and returns the first
// dataset item mapped through the per-platform extractor. A run that yields
// no items returns (nil, nil).
func (c *Client) Run(ctx context.Context, strategy platform.Strategy) (*Item, error) {
	if strategy.ActorID == "" {
		return nil, nil
	}

	// The runtime addresses actors as "owner~name" in URL paths.
	actorPath := strings.ReplaceAll(strategy.ActorID, "/", "~")

	u, err := url.Parse(c.baseURL + "/v2/acts/" + actorPath + "/run-sync-get-dataset-items")
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("token", c.token)
	q.Set("memory", strconv.Itoa(c.memoryMB))
	u.RawQuery = q.Encode()

	body, err := json.Marshal(strategy.Input)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 16*1024))
		return nil, fmt.Errorf("scrape: actor %s returned status %d: %s",
			strategy.ActorID, resp.StatusCode, strings.TrimSpace(string(errBody)))
	}

	var items []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("scrape: decode dataset items: %w", err)
	}
	if len(items) == 0 {
		return nil, nil
	}

	return Extract(strategy.Kind, items[0]), nil
}
