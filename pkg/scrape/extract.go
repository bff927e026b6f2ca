package scrape

import (
	"strings"

	"thirdcoast.systems/sift/pkg/platform"
)

// Item is the normalized evidence pulled out of one scrape result.
// Every field is optional; downstream stages work with whatever is present.
type Item struct {
	Title       string
	Description string
	ImageURL    string
	Transcript  string
}

// Empty reports whether the item carries no usable evidence.
func (i *Item) Empty() bool {
	if i == nil {
		return true
	}
	return i.Title == "" && i.Description == "" && i.ImageURL == "" && i.Transcript == ""
}

const photoTitleMax = 100

// Extract maps a raw dataset item through the per-platform field extractor.
func Extract(kind platform.Kind, raw map[string]any) *Item {
	switch kind {
	case platform.KindShortVideo:
		return extractShortVideo(raw)
	case platform.KindPhoto:
		return extractPhoto(raw)
	case platform.KindLongVideo:
		return extractLongVideo(raw)
	default:
		return extractGeneric(raw)
	}
}

func extractShortVideo(raw map[string]any) *Item {
	caption := str(raw, "text", "desc", "caption")
	title := caption
	if title == "" {
		title = platform.SourceName(platform.KindShortVideo)
	}
	return &Item{
		Title:       title,
		Description: caption,
		ImageURL:    str(raw, "coverUrl", "videoMeta.coverUrl", "covers.default"),
	}
}

func extractPhoto(raw map[string]any) *Item {
	caption := str(raw, "caption", "text")
	title := caption
	if r := []rune(title); len(r) > photoTitleMax {
		title = string(r[:photoTitleMax])
	}
	return &Item{
		Title:       title,
		Description: caption,
		ImageURL:    str(raw, "displayUrl", "imageUrl"),
	}
}

func extractLongVideo(raw map[string]any) *Item {
	return &Item{
		Title:       str(raw, "title"),
		Description: str(raw, "text", "description"),
		ImageURL:    str(raw, "thumbnailUrl"),
		Transcript:  serializeSubtitles(raw["subtitles"]),
	}
}

func extractGeneric(raw map[string]any) *Item {
	return &Item{
		Title:       str(raw, "metadata.title", "title"),
		Description: str(raw, "metadata.description", "description"),
		ImageURL:    str(raw, "metadata.ogImage", "ogImage"),
	}
}

// serializeSubtitles flattens a subtitle track list into one transcript
// string. Tracks arrive as [{language, plaintext|srt}, ...]; the first track
// with text wins.
func serializeSubtitles(v any) string {
	tracks, ok := v.([]any)
	if !ok {
		return ""
	}
	for _, t := range tracks {
		track, ok := t.(map[string]any)
		if !ok {
			continue
		}
		if text := str(track, "plaintext", "srt"); text != "" {
			return strings.TrimSpace(text)
		}
	}
	return ""
}

// str returns the first non-empty string at any of the given keys. Keys may
// be dotted paths into nested objects.
func str(raw map[string]any, keys ...string) string {
	for _, key := range keys {
		cur := any(raw)
		ok := true
		for _, part := range strings.Split(key, ".") {
			m, isMap := cur.(map[string]any)
			if !isMap {
				ok = false
				break
			}
			cur, ok = m[part]
			if !ok {
				break
			}
		}
		if !ok {
			continue
		}
		if s, isStr := cur.(string); isStr && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}
