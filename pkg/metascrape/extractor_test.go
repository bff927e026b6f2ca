package metascrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const samplePage = `<!doctype html>
<html><head>
<title>  Plain   Title </title>
<meta property="og:title" content="OG Title" />
<meta name="description" content="meta description here">
<meta content="og description here" property="og:description">
<meta property="og:image" content="https://cdn.example/cover.png"/>
<meta name="keywords" content="cooking, bread">
</head><body>hi</body></html>`

func TestParse_AllFields(t *testing.T) {
	m := Parse(samplePage)
	if m.Title != "OG Title" {
		t.Fatalf("og:title should win, got %q", m.Title)
	}
	if m.Description != "og description here" {
		t.Fatalf("og:description should win (attribute order reversed), got %q", m.Description)
	}
	if m.ImageURL != "https://cdn.example/cover.png" {
		t.Fatalf("unexpected image %q", m.ImageURL)
	}
	if m.Keywords != "cooking, bread" {
		t.Fatalf("unexpected keywords %q", m.Keywords)
	}
}

func TestParse_TitleTagFallback(t *testing.T) {
	m := Parse(`<html><head><title>Only &amp; Title</title></head></html>`)
	if m.Title != "Only & Title" {
		t.Fatalf("expected unescaped title tag, got %q", m.Title)
	}
	if !(&Meta{}).Empty() {
		t.Fatal("zero meta should be empty")
	}
	if m.Empty() {
		t.Fatal("meta with a title is not empty")
	}
}

func TestParse_IndependentFields(t *testing.T) {
	// A missing title must not block image extraction.
	m := Parse(`<meta property="og:image" content="https://cdn/x.jpg">`)
	if m.Title != "" {
		t.Fatalf("expected no title, got %q", m.Title)
	}
	if m.ImageURL != "https://cdn/x.jpg" {
		t.Fatalf("expected image despite missing title, got %q", m.ImageURL)
	}
}

func TestFetch_SetsBrowserUA(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	m, err := New().Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Title != "OG Title" {
		t.Fatalf("unexpected title %q", m.Title)
	}
	if gotUA != browserUA {
		t.Fatalf("expected browser user agent, got %q", gotUA)
	}
}

func TestFetch_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	if _, err := New().Fetch(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error on 403")
	}
}
