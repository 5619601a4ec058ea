// Package credibility implements the tiered, confidence-weighted source
// trust model. Tier assignment uses exact-domain lookups; confidence grows
// with accumulated per-domain history.
package credibility

import (
	"sort"
	"sync"

	"github.com/nkarpov/newsflow/internal/model"
)

const unknownBaseScore = 0.5

// Descriptor identifies a source to be scored, optionally with a sample of
// recently returned articles used for the content-quality factor.
type Descriptor struct {
	Name            string
	Domain          string
	BaseCredibility *float64
	RecentArticles  []model.Article
}

// Scorer owns the domain trust tables and the mutable per-domain history.
// It is safe for concurrent use from overlapping aggregation passes.
type Scorer struct {
	mu      sync.RWMutex
	history map[string][]HistoryRecord
	blocked map[string]struct{}
}

// NewScorer creates a scorer with empty history and blocklist.
func NewScorer() *Scorer {
	return &Scorer{
		history: make(map[string][]HistoryRecord),
		blocked: make(map[string]struct{}),
	}
}

// Block adds a domain to the runtime blocklist. Blocked domains score 0.
func (s *Scorer) Block(domain string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocked[domain] = struct{}{}
}

// Unblock removes a domain from the blocklist.
func (s *Scorer) Unblock(domain string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blocked, domain)
}

// Calculate scores one source. The result is deterministic given the current
// history state.
func (s *Scorer) Calculate(d Descriptor) model.CredibilityResult {
	entry := s.lookupTier(d.Domain)

	base := entry.score
	if entry.tier == model.TierUnknown && d.BaseCredibility != nil {
		base = clamp01(*d.BaseCredibility)
	}

	s.mu.RLock()
	stats := summarize(s.history[d.Domain])
	s.mu.RUnlock()

	historical := base
	if stats.samples > 0 {
		historical = 0.5*stats.successRate + 0.5*stats.avgQuality
	}

	content := base
	if len(d.RecentArticles) > 0 {
		sum := 0.0
		for i := range d.RecentArticles {
			sum += d.RecentArticles[i].Completeness()
		}
		content = sum / float64(len(d.RecentArticles))
	}

	var score float64
	switch entry.tier {
	case model.TierBlocked:
		score = 0
	default:
		score = clampToTier(entry.tier, 0.60*base+0.25*historical+0.15*content)
		if entry.tier == model.TierUnknown {
			// Content quality may lift an unknown source, but never into
			// the range reserved for vetted tiers.
			if score > 0.65 {
				score = 0.65
			}
		}
	}

	return model.CredibilityResult{
		Source:     d.Name,
		Domain:     d.Domain,
		Score:      score,
		Tier:       entry.tier,
		Confidence: confidence(entry.tier, stats.samples),
		Factors: model.CredibilityFactors{
			SourceReputation:      base,
			HistoricalPerformance: historical,
			ContentQuality:        content,
		},
		Metadata: model.CredibilityMetadata{
			HasHistoricalData: stats.samples > 0,
			HistorySamples:    stats.samples,
			SampleArticles:    len(d.RecentArticles),
		},
	}
}

// BatchEvaluate scores several sources, preserving input order.
func (s *Scorer) BatchEvaluate(descriptors []Descriptor) []model.CredibilityResult {
	results := make([]model.CredibilityResult, len(descriptors))
	for i, d := range descriptors {
		results[i] = s.Calculate(d)
	}
	return results
}

// SortByScore orders results by score descending, breaking ties by tier rank
// so premium tiers always precede supplementary ones.
func SortByScore(results []model.CredibilityResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Tier.Rank() < results[j].Tier.Rank()
	})
}

// ForURL parses the domain out of a URL (stripping www.) and scores it.
// A malformed URL is treated as an unknown source, not an error.
func (s *Scorer) ForURL(rawURL string) model.CredibilityResult {
	return s.Calculate(Descriptor{Domain: model.DomainOf(rawURL)})
}

// confidence grows with history volume through a saturating curve and never
// reaches 1. Known tiers start high, unknown sources start low.
func confidence(tier model.Tier, samples int) float64 {
	n := float64(samples)
	switch tier {
	case model.Tier1, model.Tier2, model.Tier3:
		return 0.85 + 0.14*n/(n+10)
	case model.TierBlocked:
		return 0.9
	default:
		return 0.2 + 0.7*n/(n+20)
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
