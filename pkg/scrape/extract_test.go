package scrape

import (
	"strings"
	"testing"

	"thirdcoast.systems/sift/pkg/platform"
)

func TestExtract_ShortVideo_CaptionFallback(t *testing.T) {
	item := Extract(platform.KindShortVideo, map[string]any{
		"videoMeta": map[string]any{"coverUrl": "https://cdn/c.jpg"},
	})
	if item.Title != "Short Video" {
		t.Fatalf("expected fallback title, got %q", item.Title)
	}
	if item.ImageURL != "https://cdn/c.jpg" {
		t.Fatalf("expected nested cover url, got %q", item.ImageURL)
	}
}

func TestExtract_Photo_TitleTruncated(t *testing.T) {
	caption := strings.Repeat("a", 150)
	item := Extract(platform.KindPhoto, map[string]any{
		"caption":    caption,
		"displayUrl": "https://cdn/p.jpg",
	})
	if len(item.Title) != 100 {
		t.Fatalf("expected 100-char title, got %d", len(item.Title))
	}
	if item.Description != caption {
		t.Fatal("description should keep the full caption")
	}
}

func TestExtract_LongVideo_Transcript(t *testing.T) {
	item := Extract(platform.KindLongVideo, map[string]any{
		"title":        "How to make bread",
		"text":         "video description",
		"thumbnailUrl": "https://cdn/t.jpg",
		"subtitles": []any{
			map[string]any{"language": "en", "plaintext": "first you knead the dough"},
		},
	})
	if item.Transcript != "first you knead the dough" {
		t.Fatalf("expected transcript, got %q", item.Transcript)
	}
	if item.Title != "How to make bread" {
		t.Fatalf("unexpected title %q", item.Title)
	}
}

func TestExtract_Generic_Metadata(t *testing.T) {
	item := Extract(platform.KindGeneric, map[string]any{
		"metadata": map[string]any{
			"title":       "A blog post",
			"description": "about things",
			"ogImage":     "https://cdn/og.png",
		},
	})
	if item.Title != "A blog post" || item.Description != "about things" || item.ImageURL != "https://cdn/og.png" {
		t.Fatalf("unexpected extraction: %+v", item)
	}
}

func TestItem_Empty(t *testing.T) {
	var nilItem *Item
	if !nilItem.Empty() {
		t.Fatal("nil item should be empty")
	}
	if !(&Item{}).Empty() {
		t.Fatal("zero item should be empty")
	}
	if (&Item{Title: "x"}).Empty() {
		t.Fatal("item with title should not be empty")
	}
}
