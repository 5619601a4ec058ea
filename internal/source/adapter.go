// Package source defines the fetch-adapter contract and the reference
// adapters for RSS feeds and JSON news APIs.
package source

import (
	"context"

	"github.com/nkarpov/newsflow/internal/model"
)

// Query is the filter passed to every adapter on fan-out.
type Query struct {
	Query    string
	Category string
	Country  string
	Language string
	Limit    int
}

// Adapter fetches raw articles for one configured source. Implementations
// must honor ctx cancellation; the aggregator treats any returned error as a
// per-source failure, never as a fatal one.
type Adapter interface {
	Name() string
	Profile() model.SourceProfile
	Fetch(ctx context.Context, q Query) ([]model.RawArticle, error)
}

// matchesQuery reports whether a raw article's title or content mentions the
// query term. Adapters without server-side filtering use it client-side.
func matchesQuery(raw *model.RawArticle, term string) bool {
	if term == "" {
		return true
	}
	return containsFold(raw.Title, term) || containsFold(raw.Content, term)
}
