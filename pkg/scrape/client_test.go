package scrape

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"thirdcoast.systems/sift/pkg/platform"
)

func TestRun_FirstItemExtracted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if !strings.Contains(r.URL.Path, "clockworks~tiktok-scraper") {
			t.Errorf("actor id not translated in path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("token") != "tok" {
			t.Errorf("token missing from query")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"text":"my caption","videoMeta":{"coverUrl":"https://cdn.example/c.jpg"}},{"text":"second"}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	item, err := c.Run(context.Background(), platform.Classify("https://www.tiktok.com/@x/video/1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item == nil {
		t.Fatal("expected an item")
	}
	if item.Title != "my caption" {
		t.Fatalf("expected caption title, got %q", item.Title)
	}
	if item.ImageURL != "https://cdn.example/c.jpg" {
		t.Fatalf("expected cover url, got %q", item.ImageURL)
	}
}

func TestRun_EmptyDataset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	item, err := c.Run(context.Background(), platform.Classify("https://example.com/post"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item != nil {
		t.Fatalf("expected nil item, got %+v", item)
	}
}

func TestRun_ActorError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "actor blew up", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	_, err := c.Run(context.Background(), platform.Classify("https://example.com/post"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "502") {
		t.Fatalf("expected status in error, got %v", err)
	}
}

func TestRun_BoundedByCallerContext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Simulate a long actor run; only the caller's deadline should end it.
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	c := NewClient(srv.URL, "tok")
	start := time.Now()
	_, err := c.Run(ctx, platform.Classify("https://example.com/post"))
	if err == nil {
		t.Fatal("expected error from expired context")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("run was not bounded by the caller's context")
	}
}

func TestRun_NilActorSkips(t *testing.T) {
	c := NewClient("http://127.0.0.1:0", "tok")
	item, err := c.Run(context.Background(), platform.Classify(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item != nil {
		t.Fatalf("expected no item without an actor, got %+v", item)
	}
}
