// package metascrape pulls basic page metadata (title, description, og
// image) straight out of raw HTML. It is the last-resort evidence source
// when the scrape actor yields nothing, so it tolerates broken markup:
// every field is matched by an independent regex and absence of one never
// blocks another.
package metascrape

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// Some sites serve bot-hostile empty shells to unknown agents.
const browserUA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

const maxBodyBytes = 512 * 1024

// Meta holds whatever metadata the page exposed. All fields optional.
type Meta struct {
	Title       string
	Description string
	ImageURL    string
	Keywords    string
}

// Empty reports whether nothing was extracted.
func (m *Meta) Empty() bool {
	if m == nil {
		return true
	}
	return m.Title == "" && m.Description == "" && m.ImageURL == "" && m.Keywords == ""
}

var titleTagRe = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

type Extractor struct {
	http *http.Client
}

func New() *Extractor {
	return &Extractor{
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Fetch GETs the page and extracts metadata. Any network or HTTP failure is
// returned as an error; callers treat it as "no metadata" and move on.
func (e *Extractor) Fetch(ctx context.Context, rawURL string) (*Meta, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUA)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := e.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("metascrape: status %d fetching %s", resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}

	return Parse(string(body)), nil
}

// Parse extracts metadata from an HTML document. Exported separately from
// Fetch so the regex behavior is testable without a server.
func Parse(doc string) *Meta {
	m := &Meta{}

	if v := metaContent(doc, "og:title"); v != "" {
		m.Title = v
	} else if match := titleTagRe.FindStringSubmatch(doc); len(match) > 1 {
		m.Title = clean(match[1])
	}

	if v := metaContent(doc, "og:description"); v != "" {
		m.Description = v
	} else if v := metaContent(doc, "description"); v != "" {
		m.Description = v
	}

	m.ImageURL = metaContent(doc, "og:image")
	m.Keywords = metaContent(doc, "keywords")

	return m
}

// metaContent finds <meta name|property="key" content="..."> regardless of
// attribute order.
func metaContent(doc, key string) string {
	quoted := regexp.QuoteMeta(key)
	patterns := []string{
		`(?is)<meta[^>]+(?:name|property)\s*=\s*["']` + quoted + `["'][^>]*\bcontent\s*=\s*["']([^"']*)["']`,
		`(?is)<meta[^>]+\bcontent\s*=\s*["']([^"']*)["'][^>]*(?:name|property)\s*=\s*["']` + quoted + `["']`,
	}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			continue
		}
		if match := re.FindStringSubmatch(doc); len(match) > 1 {
			if v := clean(match[1]); v != "" {
				return v
			}
		}
	}
	return ""
}

func clean(s string) string {
	s = html.UnescapeString(s)
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimSpace(s)
}
