// package platform classifies submission URLs into scrape strategies.
package platform

import (
	"net/url"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Kind is the closed set of source platforms we know how to scrape.
type Kind string

const (
	KindShortVideo Kind = "short_video"
	KindPhoto      Kind = "photo"
	KindLongVideo  Kind = "long_video"
	KindGeneric    Kind = "generic"
	// KindNone means there is nothing to scrape (image-only submission).
	KindNone Kind = "none"
)

// Actor identifiers on the external scrape runtime.
const (
	ActorShortVideo = "clockworks/tiktok-scraper"
	ActorPhoto      = "apify/instagram-scraper"
	ActorLongVideo  = "streamers/youtube-scraper"
	ActorGeneric    = "apify/website-content-crawler"
)

// ImageDomain is the domain label used when no URL is available or the URL
// cannot be parsed.
const ImageDomain = "Image"

// Strategy tells the scraper which external actor to run and with what input.
// An empty ActorID means skip scraping entirely.
type Strategy struct {
	Kind    Kind
	ActorID string
	Input   map[string]any
	// Domain is the source hostname without a leading www., used for
	// fallback titles ("Saved from <domain>").
	Domain string
}

// Ordered hostname matchers. First match wins; order matters because some
// platforms embed others' names in share URLs.
var hostMatchers = []struct {
	substr string
	kind   Kind
}{
	{"tiktok", KindShortVideo},
	{"instagram", KindPhoto},
	{"youtu", KindLongVideo},
}

// Classify returns the scrape strategy for a submitted URL. An empty rawURL
// yields the no-scrape strategy; a malformed one degrades to the generic
// strategy with the "Image" domain label rather than failing.
func Classify(rawURL string) Strategy {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return Strategy{Kind: KindNone, Domain: ImageDomain}
	}

	host := hostOf(rawURL)
	domain := host
	if domain == "" {
		domain = ImageDomain
	}

	for _, m := range hostMatchers {
		if strings.Contains(host, m.substr) {
			return strategyFor(m.kind, rawURL, domain)
		}
	}
	return strategyFor(KindGeneric, rawURL, domain)
}

func strategyFor(kind Kind, rawURL, domain string) Strategy {
	s := Strategy{Kind: kind, Domain: domain}
	switch kind {
	case KindShortVideo:
		s.ActorID = ActorShortVideo
		s.Input = map[string]any{
			"postURLs":             []string{rawURL},
			"resultsPerPage":       1,
			"shouldDownloadCovers": false,
		}
	case KindPhoto:
		s.ActorID = ActorPhoto
		s.Input = map[string]any{
			"directUrls":   []string{rawURL},
			"resultsType":  "posts",
			"resultsLimit": 1,
		}
	case KindLongVideo:
		s.ActorID = ActorLongVideo
		s.Input = map[string]any{
			"startUrls":         []map[string]string{{"url": rawURL}},
			"maxResults":        1,
			"downloadSubtitles": true,
			"subtitlesFormat":   "plaintext",
		}
	default:
		s.ActorID = ActorGeneric
		s.Input = map[string]any{
			"startUrls":          []map[string]string{{"url": rawURL}},
			"maxCrawlPages":      1,
			"crawlerType":        "cheerio",
			"saveMarkdown":       false,
			"maxCrawlDepth":      0,
			"proxyConfiguration": map[string]any{"useApifyProxy": true},
		}
	}
	return s
}

// DomainOf returns the hostname without a leading www., or "Image" when the
// URL is empty or unparseable. This is the label used in fallback titles.
func DomainOf(rawURL string) string {
	host := hostOf(rawURL)
	if host == "" {
		return ImageDomain
	}
	return host
}

// SourceName returns a human-readable platform name for a kind, e.g. for
// fallback titles on caption-less short videos.
func SourceName(kind Kind) string {
	var name string
	switch kind {
	case KindShortVideo:
		name = "short video"
	case KindPhoto:
		name = "photo"
	case KindLongVideo:
		name = "video"
	default:
		name = "page"
	}
	return cases.Title(language.AmericanEnglish).String(name)
}

func hostOf(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		// Schemeless input: best effort with an https prefix.
		u, err = url.Parse("https://" + strings.TrimSpace(rawURL))
		if err != nil {
			return ""
		}
	}
	host := strings.ToLower(strings.TrimSpace(u.Hostname()))
	host = strings.TrimPrefix(host, "www.")
	return strings.TrimSuffix(host, ".")
}
