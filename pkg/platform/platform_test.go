package platform

import "testing"

func TestClassify_ShortVideo(t *testing.T) {
	s := Classify("https://www.tiktok.com/@x/video/1")
	if s.Kind != KindShortVideo {
		t.Fatalf("expected short video, got %s", s.Kind)
	}
	if s.ActorID != ActorShortVideo {
		t.Fatalf("expected actor %s, got %s", ActorShortVideo, s.ActorID)
	}
	if s.Domain != "tiktok.com" {
		t.Fatalf("expected domain tiktok.com, got %q", s.Domain)
	}
}

func TestClassify_Generic(t *testing.T) {
	s := Classify("https://example.com/blog/post")
	if s.Kind != KindGeneric {
		t.Fatalf("expected generic, got %s", s.Kind)
	}
	if s.ActorID != ActorGeneric {
		t.Fatalf("expected actor %s, got %s", ActorGeneric, s.ActorID)
	}
}

func TestClassify_NoURL(t *testing.T) {
	s := Classify("")
	if s.Kind != KindNone {
		t.Fatalf("expected none, got %s", s.Kind)
	}
	if s.ActorID != "" {
		t.Fatalf("expected empty actor, got %q", s.ActorID)
	}
	if s.Domain != ImageDomain {
		t.Fatalf("expected %q domain, got %q", ImageDomain, s.Domain)
	}
}

func TestClassify_Table(t *testing.T) {
	tests := []struct {
		url  string
		kind Kind
	}{
		{"https://youtu.be/dQw4w9WgXcQ", KindLongVideo},
		{"https://m.youtube.com/watch?v=abc", KindLongVideo},
		{"https://www.instagram.com/p/xyz/", KindPhoto},
		{"https://vm.tiktok.com/ZM123/", KindShortVideo},
		{"example.com/article", KindGeneric},
		{"https://news.ycombinator.com/item?id=1", KindGeneric},
	}
	for _, tt := range tests {
		if got := Classify(tt.url).Kind; got != tt.kind {
			t.Errorf("Classify(%q).Kind = %s, want %s", tt.url, got, tt.kind)
		}
	}
}

func TestClassify_MalformedURL(t *testing.T) {
	s := Classify("::::not a url::::")
	if s.Kind != KindGeneric {
		t.Fatalf("malformed URL should degrade to generic, got %s", s.Kind)
	}
	if s.Domain != ImageDomain {
		t.Fatalf("expected %q domain label, got %q", ImageDomain, s.Domain)
	}
}

func TestDomainOf(t *testing.T) {
	tests := []struct {
		url, want string
	}{
		{"https://www.example.com/a", "example.com"},
		{"https://blog.example.org", "blog.example.org"},
		{"", "Image"},
	}
	for _, tt := range tests {
		if got := DomainOf(tt.url); got != tt.want {
			t.Errorf("DomainOf(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
