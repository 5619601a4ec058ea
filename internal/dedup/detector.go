// Package dedup implements similarity-weighted duplicate clustering with
// canonical-article selection.
package dedup

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/nkarpov/newsflow/internal/model"
)

// Reason classifies why two articles were considered duplicates.
type Reason string

const (
	ReasonExactURL Reason = "exact-url"
	ReasonNear     Reason = "near-duplicate"
	ReasonSimilar  Reason = "similar"
)

// Weights control the contribution of each similarity channel. They must be
// non-negative and sum to 1.
type Weights struct {
	Title   float64 `json:"title"`
	Content float64 `json:"content"`
	URL     float64 `json:"url"`
}

// DefaultWeights returns the standard channel weighting.
func DefaultWeights() Weights {
	return Weights{Title: 0.30, Content: 0.50, URL: 0.20}
}

// Validate rejects weight configurations with negative components or a sum
// different from 1.
func (w Weights) Validate() error {
	if w.Title < 0 || w.Content < 0 || w.URL < 0 {
		return fmt.Errorf("similarity weights must be non-negative: %+v", w)
	}
	if sum := w.Title + w.Content + w.URL; math.Abs(sum-1) > 1e-9 {
		return fmt.Errorf("similarity weights must sum to 1, got %.4f", sum)
	}
	return nil
}

// Options control one detection pass.
type Options struct {
	// Threshold overrides the configured merge threshold when > 0.
	Threshold      float64
	IncludeExact   bool
	IncludeNear    bool
	IncludeSimilar bool
	ReturnGroups   bool
}

// DefaultOptions enables exact and near-duplicate detection with grouping.
func DefaultOptions() Options {
	return Options{IncludeExact: true, IncludeNear: true, ReturnGroups: true}
}

// Match is one detected duplicate with its score and classification.
type Match struct {
	Article         model.Article `json:"article"`
	SimilarityScore float64       `json:"similarity_score"`
	Reason          Reason        `json:"reason"`
}

// Group is a cluster of duplicates with its canonical best article.
type Group struct {
	Best          model.Article `json:"best"`
	Duplicates    []Match       `json:"duplicates"`
	AvgSimilarity float64       `json:"avg_similarity"`
}

// Metadata reports what one detection pass did.
type Metadata struct {
	Threshold   float64       `json:"threshold"`
	Comparisons int           `json:"comparisons"`
	ProcessedIn time.Duration `json:"processed_in"`
}

// Result is the outcome of one detection pass.
type Result struct {
	Original   int             `json:"original"`
	Unique     []model.Article `json:"unique"`
	Duplicates []Match         `json:"duplicates"`
	Groups     []Group         `json:"groups,omitempty"`
	Metadata   Metadata        `json:"metadata"`
}

// Stats are cumulative counters across detection passes.
type Stats struct {
	TotalComparisons  int `json:"total_comparisons"`
	ExactDuplicates   int `json:"exact_duplicates"`
	NearDuplicates    int `json:"near_duplicates"`
	SimilarDuplicates int `json:"similar_duplicates"`
	UniqueArticles    int `json:"unique_articles"`
	CacheSize         int `json:"cache_size"`
}

// Detector clusters near-identical articles. Its similarity cache and
// counters tolerate concurrent use from overlapping aggregation passes.
type Detector struct {
	mu               sync.RWMutex
	weights          Weights
	nearThreshold    float64
	similarThreshold float64
	cache            map[string]*features
	stats            Stats
}

// NewDetector creates a detector with default thresholds and weights.
func NewDetector() *Detector {
	return &Detector{
		weights:          DefaultWeights(),
		nearThreshold:    0.85,
		similarThreshold: 0.5,
		cache:            make(map[string]*features),
	}
}

// SetWeights replaces the similarity weights after validating them.
func (d *Detector) SetWeights(w Weights) error {
	if err := w.Validate(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.weights = w
	return nil
}

// Weights returns the active similarity weights.
func (d *Detector) Weights() Weights {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.weights
}

// SetThresholds replaces the near-duplicate and similar thresholds. Both
// must be in [0,1] with similar not above near.
func (d *Detector) SetThresholds(near, similar float64) error {
	if near < 0 || near > 1 || similar < 0 || similar > 1 {
		return fmt.Errorf("thresholds must be in [0,1]: near=%.2f similar=%.2f", near, similar)
	}
	if similar > near {
		return fmt.Errorf("similar threshold %.2f must not exceed near threshold %.2f", similar, near)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nearThreshold = near
	d.similarThreshold = similar
	return nil
}

// Thresholds returns the active near and similar thresholds.
func (d *Detector) Thresholds() (near, similar float64) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.nearThreshold, d.similarThreshold
}

// group is the in-progress cluster during a pass. The representative is the
// first member; candidates are compared against it instead of every member,
// keeping batch work close to linear in practice.
type group struct {
	representative *features
	members        []model.Article
	scores         []float64
	reasons        []Reason
}

// Detect collapses a batch of articles into unique articles and duplicate
// groups. A nil options value is not accepted; use DefaultOptions.
func (d *Detector) Detect(articles []model.Article, opts Options) Result {
	start := time.Now()

	d.mu.RLock()
	w := d.weights
	near := d.nearThreshold
	similar := d.similarThreshold
	d.mu.RUnlock()

	mergeThreshold := near
	if opts.IncludeSimilar {
		mergeThreshold = similar
	}
	if opts.Threshold > 0 {
		mergeThreshold = opts.Threshold
	}

	var groups []*group
	// byURL maps every member's normalized URL to its group, not just the
	// representative's, so an identical URL always merges at 1.0 no matter
	// how its twin entered the group.
	byURL := make(map[string]*group)
	comparisons := 0
	exactCount := 0
	nearCount := 0
	similarCount := 0

	for i := range articles {
		art := articles[i]
		f := d.featuresFor(&art)

		if opts.IncludeExact && f.normURL != "" {
			if g, ok := byURL[f.normURL]; ok {
				comparisons++
				g.members = append(g.members, art)
				g.scores = append(g.scores, 1.0)
				g.reasons = append(g.reasons, ReasonExactURL)
				exactCount++
				continue
			}
		}

		var bestGroup *group
		bestScore := 0.0

		for _, g := range groups {
			comparisons++
			score := d.similarity(f, g.representative, w)
			if score >= mergeThreshold && score > bestScore {
				bestGroup = g
				bestScore = score
			}
		}

		if bestGroup != nil {
			reason := ReasonSimilar
			include := opts.IncludeSimilar
			if bestScore >= near {
				reason = ReasonNear
				include = opts.IncludeNear || opts.IncludeSimilar
			}
			if include {
				bestGroup.members = append(bestGroup.members, art)
				bestGroup.scores = append(bestGroup.scores, bestScore)
				bestGroup.reasons = append(bestGroup.reasons, reason)
				if reason == ReasonNear {
					nearCount++
				} else {
					similarCount++
				}
				if f.normURL != "" {
					if _, ok := byURL[f.normURL]; !ok {
						byURL[f.normURL] = bestGroup
					}
				}
				continue
			}
		}

		g := &group{
			representative: f,
			members:        []model.Article{art},
		}
		groups = append(groups, g)
		if f.normURL != "" {
			if _, ok := byURL[f.normURL]; !ok {
				byURL[f.normURL] = g
			}
		}
	}

	result := Result{
		Original: len(articles),
		Metadata: Metadata{
			Threshold:   mergeThreshold,
			Comparisons: comparisons,
		},
	}

	for _, g := range groups {
		best, matches, avg := finalizeGroup(g)
		result.Unique = append(result.Unique, best)
		result.Duplicates = append(result.Duplicates, matches...)
		if opts.ReturnGroups && len(matches) > 0 {
			result.Groups = append(result.Groups, Group{
				Best:          best,
				Duplicates:    matches,
				AvgSimilarity: avg,
			})
		}
	}

	result.Metadata.ProcessedIn = time.Since(start)

	d.mu.Lock()
	d.stats.TotalComparisons += comparisons
	d.stats.ExactDuplicates += exactCount
	d.stats.NearDuplicates += nearCount
	d.stats.SimilarDuplicates += similarCount
	d.stats.UniqueArticles += len(result.Unique)
	d.mu.Unlock()

	return result
}

// finalizeGroup picks the canonical best member and converts the rest into
// matches.
func finalizeGroup(g *group) (model.Article, []Match, float64) {
	bestIdx := 0
	bestScore := -1.0
	for i := range g.members {
		if q := articleQualityScore(&g.members[i]); q > bestScore {
			bestScore = q
			bestIdx = i
		}
	}

	var matches []Match
	var simSum float64
	for i := range g.members {
		if i == bestIdx {
			continue
		}
		score, reason := 1.0, ReasonExactURL
		if i > 0 {
			score, reason = g.scores[i-1], g.reasons[i-1]
		} else if len(g.scores) > 0 {
			// The representative was outranked by a later member; reuse
			// that member's score for the displaced representative.
			score, reason = g.scores[bestIdx-1], g.reasons[bestIdx-1]
		}
		matches = append(matches, Match{
			Article:         g.members[i],
			SimilarityScore: score,
			Reason:          reason,
		})
		simSum += score
	}

	avg := 0.0
	if len(matches) > 0 {
		avg = simSum / float64(len(matches))
	}
	return g.members[bestIdx], matches, avg
}

// articleQualityScore ranks group members for canonical selection. Source
// credibility dominates; completeness breaks ties so a premium source's
// thinner rendition still outranks a low-effort scrape.
func articleQualityScore(a *model.Article) float64 {
	return 0.6*a.SourceCredibility() + 0.4*a.Completeness()
}

// QualityScore exposes the canonical-selection score for one article.
func QualityScore(a *model.Article) float64 {
	return articleQualityScore(a)
}

// GetStats returns cumulative counters and the current cache size.
func (d *Detector) GetStats() Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()
	stats := d.stats
	stats.CacheSize = len(d.cache)
	return stats
}

// ResetStats zeroes the cumulative counters, leaving the cache intact.
func (d *Detector) ResetStats() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stats = Stats{}
}

// ClearCache drops all cached similarity features.
func (d *Detector) ClearCache() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cache = make(map[string]*features)
}
