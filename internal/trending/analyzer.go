// Package trending detects which topics are accelerating across a batch of
// articles: velocity scoring, a topic lifecycle state machine, and clustering
// of lexically related keywords.
package trending

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nkarpov/newsflow/internal/model"
)

// Velocity observation windows, shortest to longest.
var velocityWindows = []struct {
	span   time.Duration
	weight float64
}{
	{1 * time.Hour, 0.5},
	{4 * time.Hour, 0.3},
	{24 * time.Hour, 0.2},
}

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "from": {}, "that": {},
	"this": {}, "have": {}, "has": {}, "will": {}, "are": {}, "was": {},
	"were": {}, "been": {}, "its": {}, "his": {}, "her": {}, "their": {},
	"after": {}, "before": {}, "over": {}, "under": {}, "into": {},
	"about": {}, "not": {}, "but": {}, "you": {}, "your": {}, "they": {},
	"them": {}, "what": {}, "when": {}, "where": {}, "how": {}, "why": {},
	"who": {}, "which": {}, "more": {}, "most": {}, "than": {}, "then": {},
	"new": {}, "news": {}, "says": {}, "said": {}, "amid": {}, "could": {},
	"would": {}, "should": {}, "may": {}, "might": {}, "just": {}, "now": {},
	"out": {}, "off": {}, "all": {}, "can": {}, "get": {}, "gets": {},
}

var wordPattern = regexp.MustCompile(`[a-z0-9][a-z0-9\-]*`)

// Weights control the sub-score blend. They must be non-negative and sum to 1.
type Weights struct {
	Velocity    float64 `json:"velocity"`
	Volume      float64 `json:"volume"`
	Recency     float64 `json:"recency"`
	Credibility float64 `json:"credibility"`
}

// Validate rejects weight sets with negative components or a sum other than 1.
func (w Weights) Validate() error {
	if w.Velocity < 0 || w.Volume < 0 || w.Recency < 0 || w.Credibility < 0 {
		return fmt.Errorf("trend weights must be non-negative: %+v", w)
	}
	if sum := w.Velocity + w.Volume + w.Recency + w.Credibility; math.Abs(sum-1) > 1e-9 {
		return fmt.Errorf("trend weights must sum to 1, got %.4f", sum)
	}
	return nil
}

// Options control one analysis pass.
type Options struct {
	Limit            int
	IncludeLifecycle bool
	IncludeClusters  bool
}

// Metadata reports what one analysis pass processed.
type Metadata struct {
	ArticlesAnalyzed  int           `json:"articles_analyzed"`
	KeywordsExtracted int           `json:"keywords_extracted"`
	TopicsScored      int           `json:"topics_scored"`
	ProcessedIn       time.Duration `json:"processed_in"`
}

// Result is the outcome of one analysis pass.
type Result struct {
	Trending []model.TrendingTopic `json:"trending"`
	Clusters []model.TopicCluster  `json:"clusters,omitempty"`
	Metadata Metadata              `json:"metadata"`
}

// Stats expose the analyzer's persistent state and active configuration.
type Stats struct {
	TrackedTopics int                  `json:"tracked_topics"`
	LastClusters  int                  `json:"last_clusters"`
	Weights       Weights              `json:"weights"`
	Config        model.TrendingConfig `json:"config"`
}

// topicState is the lifecycle memory kept per keyword across passes.
type topicState struct {
	stage      model.LifecycleStage
	confidence float64
	trendScore float64
	velocity   float64
	firstSeen  time.Time
	lastSeen   time.Time
}

// Analyzer aggregates keyword mentions and scores them. Lifecycle state
// persists across passes in a bounded history map evicted on staleness.
type Analyzer struct {
	mu           sync.Mutex
	cfg          model.TrendingConfig
	weights      Weights
	history      map[string]*topicState
	lastClusters int
	now          func() time.Time
}

// NewAnalyzer creates an analyzer with the given configuration. Zero-valued
// weight configs fall back to the defaults.
func NewAnalyzer(cfg model.TrendingConfig) *Analyzer {
	w := Weights{
		Velocity:    cfg.VelocityWeight,
		Volume:      cfg.VolumeWeight,
		Recency:     cfg.RecencyWeight,
		Credibility: cfg.CredibilityWeight,
	}
	if w.Validate() != nil {
		def := model.DefaultConfig().Trending
		w = Weights{def.VelocityWeight, def.VolumeWeight, def.RecencyWeight, def.CredibilityWeight}
	}
	if cfg.TopicStaleness <= 0 {
		cfg.TopicStaleness = model.DefaultConfig().Trending.TopicStaleness
	}
	return &Analyzer{
		cfg:     cfg,
		weights: w,
		history: make(map[string]*topicState),
		now:     time.Now,
	}
}

// SetWeights replaces the sub-score weights after validating them.
func (a *Analyzer) SetWeights(w Weights) error {
	if err := w.Validate(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.weights = w
	return nil
}

// GetWeights returns the active sub-score weights.
func (a *Analyzer) GetWeights() Weights {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.weights
}

// mention is one article referencing a keyword.
type mention struct {
	articleIdx int
	at         time.Time
}

// Analyze extracts keywords from the batch, scores every surviving topic and
// returns them ranked by trend score.
func (a *Analyzer) Analyze(articles []model.Article, opts Options) Result {
	start := time.Now()
	now := a.nowFunc()

	mentions := make(map[string][]mention)
	for i := range articles {
		at := articles[i].Timestamp(now)
		for _, kw := range ExtractKeywords(articles[i].Title) {
			mentions[kw] = append(mentions[kw], mention{articleIdx: i, at: at})
		}
	}

	a.mu.Lock()
	cfg := a.cfg
	w := a.weights
	a.mu.Unlock()

	minMentions := cfg.MinMentions
	if minMentions <= 0 {
		minMentions = 1
	}

	var topics []model.TrendingTopic
	for kw, ms := range mentions {
		if len(ms) < minMentions {
			continue
		}

		velocity := mentionVelocity(ms, now)
		if velocity < cfg.MinVelocity {
			continue
		}

		topic := a.scoreTopic(kw, ms, articles, velocity, now, w)
		topics = append(topics, topic)
	}

	sort.SliceStable(topics, func(i, j int) bool {
		if topics[i].TrendScore != topics[j].TrendScore {
			return topics[i].TrendScore > topics[j].TrendScore
		}
		return topics[i].Keyword < topics[j].Keyword
	})

	if opts.IncludeLifecycle {
		a.applyLifecycle(topics, now)
	}
	a.rememberTopics(topics, now)

	scored := len(topics)
	if opts.Limit > 0 && len(topics) > opts.Limit {
		topics = topics[:opts.Limit]
	}

	result := Result{
		Trending: topics,
		Metadata: Metadata{
			ArticlesAnalyzed:  len(articles),
			KeywordsExtracted: len(mentions),
			TopicsScored:      scored,
			ProcessedIn:       time.Since(start),
		},
	}

	if opts.IncludeClusters {
		result.Clusters = a.clusterTopics(topics, cfg.SimilarityThreshold, cfg.MaxClusterSize)
		a.mu.Lock()
		a.lastClusters = len(result.Clusters)
		a.mu.Unlock()
	}

	return result
}

// scoreTopic computes the sub-scores and blended trend score for one keyword.
func (a *Analyzer) scoreTopic(kw string, ms []mention, articles []model.Article, velocity float64, now time.Time, w Weights) model.TrendingTopic {
	first, last := ms[0].at, ms[0].at
	credSum := 0.0
	arts := make([]model.Article, 0, len(ms))
	for _, m := range ms {
		if m.at.Before(first) {
			first = m.at
		}
		if m.at.After(last) {
			last = m.at
		}
		credSum += articles[m.articleIdx].SourceCredibility()
		arts = append(arts, articles[m.articleIdx])
	}

	scores := model.TrendScores{
		Velocity:    saturate(velocity, 3),
		Volume:      saturate(float64(len(ms)), 10),
		Recency:     recencyScore(last, now),
		Credibility: credSum / float64(len(ms)),
	}

	trendScore := w.Velocity*scores.Velocity +
		w.Volume*scores.Volume +
		w.Recency*scores.Recency +
		w.Credibility*scores.Credibility

	return model.TrendingTopic{
		Keyword:    kw,
		Mentions:   len(ms),
		Velocity:   velocity,
		Scores:     scores,
		TrendScore: trendScore,
		Articles:   arts,
		FirstSeen:  first,
		LastSeen:   last,
	}
}

// applyLifecycle runs the state machine for each topic against its per-pass
// history and writes the resulting stage onto the topic.
func (a *Analyzer) applyLifecycle(topics []model.TrendingTopic, now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i := range topics {
		prev, known := a.history[topics[i].Keyword]
		if !known {
			topics[i].Lifecycle = model.Lifecycle{
				Stage:       model.StageEmerging,
				Confidence:  0.5,
				Description: stageDescription(model.StageEmerging),
			}
			continue
		}

		stage, conf := transition(prev.stage, topics[i].TrendScore-prev.trendScore, topics[i].Velocity-prev.velocity)
		topics[i].Lifecycle = model.Lifecycle{
			Stage:       stage,
			Confidence:  conf,
			Description: stageDescription(stage),
		}
		topics[i].FirstSeen = prev.firstSeen
	}
}

// rememberTopics persists per-keyword state and evicts stale entries.
func (a *Analyzer) rememberTopics(topics []model.TrendingTopic, now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i := range topics {
		state, known := a.history[topics[i].Keyword]
		if !known {
			state = &topicState{
				stage:      model.StageEmerging,
				confidence: 0.5,
				firstSeen:  topics[i].FirstSeen,
			}
			a.history[topics[i].Keyword] = state
		}
		if topics[i].Lifecycle.Stage != "" {
			state.stage = topics[i].Lifecycle.Stage
			state.confidence = topics[i].Lifecycle.Confidence
		}
		state.trendScore = topics[i].TrendScore
		state.velocity = topics[i].Velocity
		state.lastSeen = now
	}

	for kw, state := range a.history {
		if now.Sub(state.lastSeen) > a.cfg.TopicStaleness {
			delete(a.history, kw)
		}
	}
}

// GetStats returns tracked-topic and cluster counts plus the active config.
func (a *Analyzer) GetStats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Stats{
		TrackedTopics: len(a.history),
		LastClusters:  a.lastClusters,
		Weights:       a.weights,
		Config:        a.cfg,
	}
}

// ResetStats drops all persisted topic state.
func (a *Analyzer) ResetStats() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = make(map[string]*topicState)
	a.lastClusters = 0
}

// SetNow overrides the clock, for tests.
func (a *Analyzer) SetNow(now func() time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.now = now
}

func (a *Analyzer) nowFunc() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.now()
}

// ExtractKeywords tokenizes a title into trend keywords: lowercased,
// punctuation-stripped, stop-worded, length-filtered, deduplicated.
func ExtractKeywords(title string) []string {
	lowered := strings.ToLower(title)
	matches := wordPattern.FindAllString(lowered, -1)

	seen := make(map[string]struct{}, len(matches))
	var keywords []string
	for _, word := range matches {
		word = strings.Trim(word, "-")
		if len(word) < 3 || len(word) > 24 {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		keywords = append(keywords, word)
	}
	return keywords
}

// mentionVelocity computes mentions-per-hour weighted toward the short
// windows, so a burst in the last hour outscores the same count spread
// across a day.
func mentionVelocity(ms []mention, now time.Time) float64 {
	velocity := 0.0
	for _, window := range velocityWindows {
		cutoff := now.Add(-window.span)
		count := 0
		for _, m := range ms {
			if !m.at.Before(cutoff) && !m.at.After(now) {
				count++
			}
		}
		velocity += window.weight * float64(count) / window.span.Hours()
	}
	return velocity
}

// saturate maps an unbounded positive value into [0,1) with the half point
// at scale.
func saturate(v, scale float64) float64 {
	if v <= 0 {
		return 0
	}
	return v / (v + scale)
}

// recencyScore decays exponentially with the age of the latest mention.
func recencyScore(last, now time.Time) float64 {
	ageHours := now.Sub(last).Hours()
	if ageHours <= 0 {
		return 1
	}
	return math.Exp(-ageHours / 12)
}
