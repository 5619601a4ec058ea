package model

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNormalize(t *testing.T) {
	raw := RawArticle{
		Title:       "  Rate decision announced  ",
		URL:         "https://www.example.com/markets/rates",
		Content:     "The central bank held rates steady.",
		Author:      "A. Reporter",
		PublishedAt: "2026-08-15T10:30:00Z",
		Source:      SourceRef{Name: "example"},
	}

	art, err := Normalize(raw)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if art.Title != "Rate decision announced" {
		t.Errorf("title not trimmed: %q", art.Title)
	}
	if art.Domain != "example.com" {
		t.Errorf("expected domain example.com, got %q", art.Domain)
	}
	if art.Fingerprint == "" {
		t.Errorf("expected fingerprint assigned")
	}
	if art.PublishedAt == nil {
		t.Fatalf("expected published time parsed")
	}
	want := time.Date(2026, 8, 15, 10, 30, 0, 0, time.UTC)
	if !art.PublishedAt.Equal(want) {
		t.Errorf("expected %v, got %v", want, art.PublishedAt)
	}
}

func TestNormalize_Malformed(t *testing.T) {
	tests := []RawArticle{
		{Title: "", URL: "https://example.com/a"},
		{Title: "Has a title", URL: ""},
		{Title: "   ", URL: "https://example.com/a"},
	}
	for _, raw := range tests {
		if _, err := Normalize(raw); !errors.Is(err, ErrMalformedArticle) {
			t.Errorf("%+v: expected ErrMalformedArticle, got %v", raw, err)
		}
	}
}

func TestNormalize_TimestampLayouts(t *testing.T) {
	layouts := []string{
		"2026-08-15T10:30:00Z",
		"Sat, 15 Aug 2026 10:30:00 +0000",
		"2026-08-15",
	}
	for _, stamp := range layouts {
		art, err := Normalize(RawArticle{Title: "Title", URL: "https://example.com/a", PublishedAt: stamp})
		if err != nil {
			t.Fatalf("normalize failed: %v", err)
		}
		if art.PublishedAt == nil {
			t.Errorf("layout %q not parsed", stamp)
		}
	}

	// Unparseable timestamps degrade to nil rather than failing.
	art, err := Normalize(RawArticle{Title: "Title", URL: "https://example.com/a", PublishedAt: "next tuesday"})
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if art.PublishedAt != nil {
		t.Errorf("expected nil published time for garbage input")
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://www.example.com/story/", "example.com/story"},
		{"http://example.com/story", "example.com/story"},
		{"https://example.com/story?utm_source=feed&utm_medium=rss", "example.com/story"},
		{"https://example.com/story?b=2&a=1", "example.com/story?a=1&b=2"},
		{"https://example.com/story#comments", "example.com/story"},
		{"https://EXAMPLE.com/Story", "example.com/Story"},
		{"not a url", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeURL(tt.in); got != tt.want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFingerprint_TrackingVariantsCollide(t *testing.T) {
	a := Fingerprint("https://www.example.com/story", "Title", "example.com")
	b := Fingerprint("https://example.com/story?utm_source=x&fbclid=y", "Other title", "example.com")
	if a != b {
		t.Errorf("tracking parameter variants must share a fingerprint")
	}

	c := Fingerprint("https://example.com/another-story", "Title", "example.com")
	if a == c {
		t.Errorf("distinct stories must not collide")
	}
}

func TestFingerprint_FallsBackToTitleAndDomain(t *testing.T) {
	a := Fingerprint("", "Some Story", "example.com")
	b := Fingerprint("", "some story", "example.com")
	if a != b {
		t.Errorf("title fallback should be case-insensitive")
	}
	c := Fingerprint("", "Some Story", "other.com")
	if a == c {
		t.Errorf("same title on a different domain must not collide")
	}
}

func TestDomainOf(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://www.reuters.com/world/story", "reuters.com"},
		{"http://sub.example.co.uk/path", "sub.example.co.uk"},
		{"https://example.com:8080/a", "example.com"},
		{"garbage", ""},
	}
	for _, tt := range tests {
		if got := DomainOf(tt.in); got != tt.want {
			t.Errorf("DomainOf(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestArticle_Completeness(t *testing.T) {
	now := time.Now()
	full := Article{
		Title:       strings.Repeat("long headline ", 4),
		Content:     strings.Repeat("body text ", 70),
		Author:      "Reporter",
		Image:       "https://example.com/img.jpg",
		PublishedAt: &now,
	}
	bare := Article{Title: "Short"}

	if got := full.Completeness(); got != 1.0 {
		t.Errorf("fully populated article should score 1.0, got %.2f", got)
	}
	if got := bare.Completeness(); got != 0 {
		t.Errorf("bare article should score 0, got %.2f", got)
	}

	partial := Article{Title: "A headline of moderate length", Author: "Reporter"}
	got := partial.Completeness()
	if got <= 0 || got >= 1 {
		t.Errorf("partial article should score strictly between 0 and 1, got %.2f", got)
	}
}

func TestArticle_SourceCredibility(t *testing.T) {
	declared := 0.8
	art := Article{Source: SourceRef{Credibility: &declared}}
	if got := art.SourceCredibility(); got != 0.8 {
		t.Errorf("expected declared credibility, got %.2f", got)
	}

	art.Credibility = &CredibilityResult{Score: 0.92}
	if got := art.SourceCredibility(); got != 0.92 {
		t.Errorf("computed score must win over the declared value, got %.2f", got)
	}

	var blank Article
	if got := blank.SourceCredibility(); got != 0.5 {
		t.Errorf("expected neutral default, got %.2f", got)
	}
}

func TestReputation_EMA(t *testing.T) {
	var r Reputation

	r.RecordSuccess(200*time.Millisecond, 0.8)
	if r.SuccessRate != 1.0 {
		t.Errorf("first success should set rate to 1, got %.2f", r.SuccessRate)
	}

	r.RecordFailure()
	if r.SuccessRate >= 1.0 || r.SuccessRate <= 0 {
		t.Errorf("failure should pull the rate into (0,1), got %.2f", r.SuccessRate)
	}
	if r.ConsecutiveFailures != 1 {
		t.Errorf("expected 1 consecutive failure, got %d", r.ConsecutiveFailures)
	}

	r.RecordSuccess(100*time.Millisecond, 0.9)
	if r.ConsecutiveFailures != 0 {
		t.Errorf("success should reset the failure streak, got %d", r.ConsecutiveFailures)
	}
	if r.TotalRequests != 3 || r.TotalFailures != 1 {
		t.Errorf("counter mismatch: %+v", r)
	}
}
