package model

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"sort"
	"strings"
	"time"
)

// RawArticle is the shape delivered by fetch adapters before normalization.
// Only Title and URL are required; everything else is optional.
type RawArticle struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Content     string    `json:"content,omitempty"`
	Author      string    `json:"author,omitempty"`
	Image       string    `json:"image,omitempty"`
	PublishedAt string    `json:"publishedAt,omitempty"` // ISO8601
	Source      SourceRef `json:"source"`
}

// Article is the canonical ingested record. The fingerprint is assigned once
// during normalization and never changes afterwards.
type Article struct {
	Fingerprint string     `json:"fingerprint"`
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	Domain      string     `json:"domain,omitempty"`
	Content     string     `json:"content,omitempty"`
	Author      string     `json:"author,omitempty"`
	Image       string     `json:"image,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Source      SourceRef  `json:"source"`

	// Computed by the aggregation pipeline.
	Credibility *CredibilityResult `json:"credibility,omitempty"`
}

// SourceRef identifies the source an article came from.
type SourceRef struct {
	Name        string   `json:"name"`
	Credibility *float64 `json:"credibility,omitempty"`
}

// ErrMalformedArticle marks input records missing required fields.
var ErrMalformedArticle = errors.New("malformed article: missing title or url")

// publishedAtLayouts are tried in order when parsing adapter timestamps.
var publishedAtLayouts = []string{
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Normalize converts a raw adapter record into a canonical Article.
// Records missing a title or URL are rejected with ErrMalformedArticle so the
// caller can count the drop instead of failing the batch.
func Normalize(raw RawArticle) (Article, error) {
	title := strings.TrimSpace(raw.Title)
	rawURL := strings.TrimSpace(raw.URL)
	if title == "" || rawURL == "" {
		return Article{}, ErrMalformedArticle
	}

	domain := DomainOf(rawURL)

	art := Article{
		Fingerprint: Fingerprint(rawURL, title, domain),
		Title:       title,
		URL:         rawURL,
		Domain:      domain,
		Content:     strings.TrimSpace(raw.Content),
		Author:      strings.TrimSpace(raw.Author),
		Image:       strings.TrimSpace(raw.Image),
		Source:      raw.Source,
	}

	if raw.PublishedAt != "" {
		for _, layout := range publishedAtLayouts {
			if t, err := time.Parse(layout, raw.PublishedAt); err == nil {
				utc := t.UTC()
				art.PublishedAt = &utc
				break
			}
		}
	}

	return art, nil
}

// Fingerprint derives the stable dedup key for an article: the normalized URL
// when one parses, otherwise title+domain.
func Fingerprint(rawURL, title, domain string) string {
	basis := NormalizeURL(rawURL)
	if basis == "" {
		basis = strings.ToLower(title) + "|" + domain
	}
	sum := sha256.Sum256([]byte(basis))
	return hex.EncodeToString(sum[:16])
}

// trackingParams are query parameters stripped during URL normalization.
var trackingParams = map[string]struct{}{
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"utm_term":     {},
	"utm_content":  {},
	"fbclid":       {},
	"gclid":        {},
	"ref":          {},
	"ref_src":      {},
	"mc_cid":       {},
	"mc_eid":       {},
}

// NormalizeURL canonicalizes a URL for fingerprinting and exact-duplicate
// comparison: lowercased host without www, no scheme, no fragment, no
// tracking parameters, no trailing slash. Returns "" for unparseable input.
func NormalizeURL(rawURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Host == "" {
		return ""
	}

	host := strings.ToLower(parsed.Hostname())
	host = strings.TrimPrefix(host, "www.")

	path := strings.TrimSuffix(parsed.Path, "/")

	query := parsed.Query()
	for param := range query {
		if _, tracking := trackingParams[strings.ToLower(param)]; tracking {
			query.Del(param)
		}
	}

	normalized := host + path
	if len(query) > 0 {
		keys := make([]string, 0, len(query))
		for k := range query {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			for _, v := range query[k] {
				pairs = append(pairs, k+"="+v)
			}
		}
		normalized += "?" + strings.Join(pairs, "&")
	}

	return normalized
}

// DomainOf extracts the registrable host (without www.) from a URL.
// Malformed URLs yield "".
func DomainOf(rawURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Host == "" {
		return ""
	}
	host := strings.ToLower(parsed.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// Timestamp returns the article's publication time, or fallback when the
// adapter did not supply one.
func (a *Article) Timestamp(fallback time.Time) time.Time {
	if a.PublishedAt != nil {
		return *a.PublishedAt
	}
	return fallback
}
