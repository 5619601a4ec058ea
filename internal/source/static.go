package source

import (
	"context"
	"sync"
	"time"

	"github.com/nkarpov/newsflow/internal/model"
)

// StaticAdapter serves a fixed article set. Tests and demos use it in place
// of network adapters; it can also be scripted to fail or stall.
type StaticAdapter struct {
	mu       sync.Mutex
	profile  model.SourceProfile
	articles []model.RawArticle

	// Err, when set, is returned by every Fetch.
	Err error
	// Delay, when set, is waited before responding (or until ctx expires).
	Delay time.Duration

	fetches int
}

// NewStaticAdapter creates an adapter delivering the given articles.
func NewStaticAdapter(profile model.SourceProfile, articles []model.RawArticle) *StaticAdapter {
	return &StaticAdapter{profile: profile, articles: articles}
}

func (s *StaticAdapter) Name() string { return s.profile.Name }

func (s *StaticAdapter) Profile() model.SourceProfile { return s.profile }

// Fetch returns the configured articles filtered by the query.
func (s *StaticAdapter) Fetch(ctx context.Context, q Query) ([]model.RawArticle, error) {
	s.mu.Lock()
	s.fetches++
	err := s.Err
	delay := s.Delay
	articles := s.articles
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	var raws []model.RawArticle
	for i := range articles {
		raw := articles[i]
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

// SetArticles replaces the served article set.
func (s *StaticAdapter) SetArticles(articles []model.RawArticle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.articles = articles
}

// Fetches returns how many times Fetch was called.
func (s *StaticAdapter) Fetches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}
