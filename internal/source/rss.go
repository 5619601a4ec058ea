package source

import (
	"context"
	"fmt"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/nkarpov/newsflow/internal/model"
)

// RSSAdapter fetches one RSS or Atom feed and maps its items to raw
// articles. Query filtering happens client-side since feeds cannot filter
// server-side.
type RSSAdapter struct {
	profile model.SourceProfile
	client  *Client
	parser  *gofeed.Parser
}

// NewRSSAdapter creates an adapter for the profile's feed endpoint.
func NewRSSAdapter(profile model.SourceProfile, client *Client) *RSSAdapter {
	return &RSSAdapter{
		profile: profile,
		client:  client,
		parser:  gofeed.NewParser(),
	}
}

func (r *RSSAdapter) Name() string { return r.profile.Name }

func (r *RSSAdapter) Profile() model.SourceProfile { return r.profile }

// Fetch downloads and parses the feed.
func (r *RSSAdapter) Fetch(ctx context.Context, q Query) ([]model.RawArticle, error) {
	body, err := r.client.Get(ctx, r.profile.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", r.profile.Name, err)
	}

	feed, err := r.parser.ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", r.profile.Name, err)
	}

	cred := r.profile.BaseCredibility
	var raws []model.RawArticle
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		raw := model.RawArticle{
			Title:   item.Title,
			URL:     item.Link,
			Content: StripHTML(pickContent(item)),
			Source: model.SourceRef{
				Name:        r.profile.Name,
				Credibility: &cred,
			},
		}
		if item.Author != nil {
			raw.Author = item.Author.Name
		}
		if item.Image != nil {
			raw.Image = item.Image.URL
		}
		if item.PublishedParsed != nil {
			raw.PublishedAt = item.PublishedParsed.UTC().Format(time.RFC3339)
		} else if item.UpdatedParsed != nil {
			raw.PublishedAt = item.UpdatedParsed.UTC().Format(time.RFC3339)
		}

		if !matchesQuery(&raw, q.Query) {
			continue
		}
		raws = append(raws, raw)
		if q.Limit > 0 && len(raws) >= q.Limit {
			break
		}
	}

	return raws, nil
}

// pickContent prefers full item content over the description.
func pickContent(item *gofeed.Item) string {
	if item.Content != "" {
		return item.Content
	}
	return item.Description
}
