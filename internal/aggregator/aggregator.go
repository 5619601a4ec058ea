// Package aggregator composes the fetch adapters with the duplicate
// detector, credibility scorer and result cache into one aggregation
// pipeline, and runs continuous monitor sessions on top of it.
package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nkarpov/newsflow/internal/cache"
	"github.com/nkarpov/newsflow/internal/credibility"
	"github.com/nkarpov/newsflow/internal/dedup"
	"github.com/nkarpov/newsflow/internal/model"
	"github.com/nkarpov/newsflow/internal/source"
	"github.com/nkarpov/newsflow/internal/worker"
)

// Options select and shape one aggregation pass.
type Options struct {
	Query          string             `json:"query,omitempty"`
	Category       string             `json:"category,omitempty"`
	Country        string             `json:"country,omitempty"`
	Language       string             `json:"language,omitempty"`
	Limit          int                `json:"limit,omitempty"`
	SourcePriority model.PriorityMode `json:"source_priority,omitempty"`
	EnabledSources []string           `json:"enabled_sources,omitempty"`
	UseCache       bool               `json:"use_cache,omitempty"`
	Deduplication  bool               `json:"deduplication,omitempty"`
	MinCredibility float64            `json:"min_credibility,omitempty"`
	SortBy         string             `json:"sort_by,omitempty"`
}

// SourceStatus records how one source behaved during a pass.
type SourceStatus struct {
	Status       string        `json:"status"` // ok, error
	Error        string        `json:"error,omitempty"`
	ResponseTime time.Duration `json:"response_time"`
	Articles     int           `json:"articles"`
}

// Metadata describes one aggregation pass.
type Metadata struct {
	TotalFetched    int                     `json:"total_fetched"`
	Malformed       int                     `json:"malformed"`
	Deduplicated    int                     `json:"deduplicated"`
	Filtered        int                     `json:"filtered"`
	AggregationTime time.Duration           `json:"aggregation_time"`
	SelectedSources []string                `json:"selected_sources"`
	Sources         map[string]SourceStatus `json:"sources"`
	Cached          bool                    `json:"cached"`
}

// Result is the outcome of one aggregation pass.
type Result struct {
	Articles []model.Article `json:"articles"`
	Metadata Metadata        `json:"metadata"`
}

// Aggregator owns the source registry, the per-source reputation state, and
// the monitor sessions. Safe for concurrent aggregation passes.
type Aggregator struct {
	mu       sync.RWMutex
	adapters map[string]source.Adapter
	profiles map[string]*model.SourceProfile
	order    []string

	scorer   *credibility.Scorer
	detector *dedup.Detector

	cfg      model.AggregatorConfig
	cacheTTL time.Duration
	cache    cache.Cache

	monitorMu  sync.Mutex
	monitors   map[string]*session
	monitorSeq int
	monitorCfg model.MonitorConfig

	logger *slog.Logger
	now    func() time.Time
}

// New creates an aggregator. The detector and scorer are injected so their
// state (similarity cache, domain history) can be shared and inspected by
// callers; either may be nil to get a fresh instance.
func New(cfg model.AggregatorConfig, monitorCfg model.MonitorConfig, scorer *credibility.Scorer, detector *dedup.Detector, logger *slog.Logger) *Aggregator {
	if scorer == nil {
		scorer = credibility.NewScorer()
	}
	if detector == nil {
		detector = dedup.NewDetector()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SourceTimeout <= 0 {
		cfg.SourceTimeout = 10 * time.Second
	}
	if monitorCfg.Interval <= 0 {
		monitorCfg.Interval = 5 * time.Minute
	}
	if monitorCfg.MaxTrackedArticles <= 0 {
		monitorCfg.MaxTrackedArticles = 10_000
	}
	return &Aggregator{
		adapters:   make(map[string]source.Adapter),
		profiles:   make(map[string]*model.SourceProfile),
		scorer:     scorer,
		detector:   detector,
		cfg:        cfg,
		monitorCfg: monitorCfg,
		monitors:   make(map[string]*session),
		logger:     logger,
		now:        time.Now,
	}
}

// WithCache attaches a result cache with the given TTL.
func (a *Aggregator) WithCache(c cache.Cache, ttl time.Duration) *Aggregator {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cache = c
	a.cacheTTL = ttl
	return a
}

// RegisterSource adds an adapter. Profiles are never removed; registering
// the same name again replaces the adapter but keeps accumulated reputation.
func (a *Aggregator) RegisterSource(adapter source.Adapter) {
	a.mu.Lock()
	defer a.mu.Unlock()
	name := adapter.Name()
	if _, known := a.profiles[name]; !known {
		profile := adapter.Profile()
		a.profiles[name] = &profile
		a.order = append(a.order, name)
	}
	a.adapters[name] = adapter
}

// Sources returns a snapshot of all registered profiles with their current
// reputation.
func (a *Aggregator) Sources() []model.SourceProfile {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]model.SourceProfile, 0, len(a.order))
	for _, name := range a.order {
		out = append(out, *a.profiles[name])
	}
	return out
}

// Scorer exposes the credibility scorer for history management and tuning.
func (a *Aggregator) Scorer() *credibility.Scorer { return a.scorer }

// Detector exposes the duplicate detector for threshold and weight tuning.
func (a *Aggregator) Detector() *dedup.Detector { return a.detector }

// SetPriority changes the default source priority mode.
func (a *Aggregator) SetPriority(mode model.PriorityMode) error {
	switch mode {
	case model.PriorityBalanced, model.PriorityQuality, model.PrioritySpeed, model.PriorityCost:
	default:
		return fmt.Errorf("unknown priority mode %q", mode)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cfg.Priority = mode
	return nil
}

// SetMinCredibility changes the default credibility floor.
func (a *Aggregator) SetMinCredibility(v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("min credibility must be in [0,1], got %.2f", v)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cfg.MinCredibility = v
	return nil
}

// SetCacheTTL changes the result cache TTL.
func (a *Aggregator) SetCacheTTL(ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("cache TTL must be positive, got %v", ttl)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cacheTTL = ttl
	return nil
}

// Defaults returns the active aggregation defaults.
func (a *Aggregator) Defaults() model.AggregatorConfig {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg
}

// DefaultOptions builds pass options from the configured defaults.
func (a *Aggregator) DefaultOptions() Options {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return Options{
		Limit:          a.cfg.Limit,
		SourcePriority: a.cfg.Priority,
		UseCache:       a.cache != nil,
		Deduplication:  a.cfg.Deduplication,
		MinCredibility: a.cfg.MinCredibility,
		SortBy:         a.cfg.SortBy,
	}
}

// fetchJob fetches one source inside the fan-out pool.
type fetchJob struct {
	adapter source.Adapter
	query   source.Query
	timeout time.Duration
	parent  context.Context
}

// fetchResult carries one source's outcome. Errors stay inside the result:
// a failing source never fails the pass.
type fetchResult struct {
	name     string
	raws     []model.RawArticle
	err      error
	duration time.Duration
}

func (r *fetchResult) GetError() error { return r.err }

func (j *fetchJob) Execute(ctx context.Context) worker.Result {
	fetchCtx, cancel := context.WithTimeout(j.parent, j.timeout)
	defer cancel()

	start := time.Now()
	raws, err := j.adapter.Fetch(fetchCtx, j.query)
	return &fetchResult{
		name:     j.adapter.Name(),
		raws:     raws,
		err:      err,
		duration: time.Since(start),
	}
}

// Aggregate runs one pass: ranked fan-out, merge, dedup, credibility filter,
// sort, truncate. It returns successfully even when every source fails;
// zero articles with per-source error detail is a valid outcome.
func (a *Aggregator) Aggregate(ctx context.Context, opts Options) (*Result, error) {
	start := a.now()

	if opts.SourcePriority == "" {
		opts.SourcePriority = a.Defaults().Priority
	}
	if opts.SortBy == "" {
		opts.SortBy = a.Defaults().SortBy
	}

	cacheKey := ""
	if opts.UseCache && a.cacheBackend() != nil {
		cacheKey = cache.Key(canonicalOptions(opts))
		if data, hit := a.cacheBackend().Get(cacheKey); hit {
			var cached Result
			if err := json.Unmarshal(data, &cached); err == nil {
				cached.Metadata.Cached = true
				return &cached, nil
			}
		}
	}

	selected := a.selectSources(opts)
	query := source.Query{
		Query:    opts.Query,
		Category: opts.Category,
		Country:  opts.Country,
		Language: opts.Language,
		Limit:    opts.Limit,
	}

	result := &Result{
		Metadata: Metadata{
			Sources: make(map[string]SourceStatus, len(selected)),
		},
	}

	var merged []model.Article
	if len(selected) > 0 {
		pool := worker.NewPool(len(selected))
		pool.Start()
		timeout := a.Defaults().SourceTimeout
		for _, adapter := range selected {
			result.Metadata.SelectedSources = append(result.Metadata.SelectedSources, adapter.Name())
			pool.Submit(&fetchJob{adapter: adapter, query: query, timeout: timeout, parent: ctx})
		}
		for _, res := range pool.Wait() {
			fr := res.(*fetchResult)
			merged = append(merged, a.recordFetch(fr, result)...)
		}
	}

	result.Metadata.TotalFetched = len(merged)

	if opts.Deduplication && len(merged) > 1 {
		detected := a.detector.Detect(merged, dedup.DefaultOptions())
		result.Metadata.Deduplicated = len(merged) - len(detected.Unique)
		merged = detected.Unique
	}

	merged = a.applyCredibility(merged, opts.MinCredibility, &result.Metadata)

	sortArticles(merged, opts.SortBy, opts.Query)
	if opts.Limit > 0 && len(merged) > opts.Limit {
		merged = merged[:opts.Limit]
	}
	result.Articles = merged
	result.Metadata.AggregationTime = a.now().Sub(start)

	if cacheKey != "" {
		if data, err := json.Marshal(result); err == nil {
			_ = a.cacheBackend().Set(cacheKey, data, a.cacheTTLValue())
		}
	}

	return result, nil
}

// recordFetch folds one source's fetch outcome into the pass result and the
// source's reputation, returning the normalized articles.
func (a *Aggregator) recordFetch(fr *fetchResult, result *Result) []model.Article {
	a.mu.Lock()
	defer a.mu.Unlock()

	profile := a.profiles[fr.name]

	if fr.err != nil {
		result.Metadata.Sources[fr.name] = SourceStatus{
			Status:       "error",
			Error:        fr.err.Error(),
			ResponseTime: fr.duration,
		}
		if profile != nil {
			profile.Reputation.RecordFailure()
			a.scorer.UpdateSourceHistory(credibility.HistoryRecord{
				Domain:         profile.Domain,
				Success:        false,
				ResponseTimeMS: fr.duration.Milliseconds(),
			})
		}
		a.logger.Warn("source fetch failed", "source", fr.name, "error", fr.err)
		return nil
	}

	var articles []model.Article
	qualitySum := 0.0
	for _, raw := range fr.raws {
		art, err := model.Normalize(raw)
		if err != nil {
			result.Metadata.Malformed++
			continue
		}
		qualitySum += art.Completeness()
		articles = append(articles, art)
	}

	avgQuality := 0.0
	if len(articles) > 0 {
		avgQuality = qualitySum / float64(len(articles))
	}

	result.Metadata.Sources[fr.name] = SourceStatus{
		Status:       "ok",
		ResponseTime: fr.duration,
		Articles:     len(articles),
	}
	if profile != nil {
		profile.Reputation.RecordSuccess(fr.duration, avgQuality)
		a.scorer.UpdateSourceHistory(credibility.HistoryRecord{
			Domain:         profile.Domain,
			Success:        true,
			ArticleQuality: avgQuality,
			ResponseTimeMS: fr.duration.Milliseconds(),
		})
	}
	return articles
}

// applyCredibility scores every article's domain and drops those below the
// floor.
func (a *Aggregator) applyCredibility(articles []model.Article, minCredibility float64, meta *Metadata) []model.Article {
	kept := articles[:0]
	for i := range articles {
		res := a.scorer.ForURL(articles[i].URL)
		res.Source = articles[i].Source.Name
		articles[i].Credibility = &res
		if res.Score < minCredibility {
			meta.Filtered++
			continue
		}
		kept = append(kept, articles[i])
	}
	return kept
}

// selectSources filters by enabled list and category, then ranks by the
// priority mode.
func (a *Aggregator) selectSources(opts Options) []source.Adapter {
	a.mu.RLock()
	defer a.mu.RUnlock()

	enabled := make(map[string]struct{}, len(opts.EnabledSources))
	for _, name := range opts.EnabledSources {
		enabled[name] = struct{}{}
	}

	var candidates []model.SourceProfile
	for _, name := range a.order {
		if len(enabled) > 0 {
			if _, ok := enabled[name]; !ok {
				continue
			}
		}
		profile := a.profiles[name]
		if opts.Category != "" && len(profile.Categories) > 0 && !hasCategory(profile.Categories, opts.Category) {
			continue
		}
		candidates = append(candidates, *profile)
	}

	ranked := rankSources(candidates, opts.SourcePriority)
	adapters := make([]source.Adapter, 0, len(ranked))
	for i := range ranked {
		adapters = append(adapters, a.adapters[ranked[i].Name])
	}
	return adapters
}

func hasCategory(categories []string, want string) bool {
	for _, c := range categories {
		if strings.EqualFold(c, want) {
			return true
		}
	}
	return false
}

func (a *Aggregator) cacheBackend() cache.Cache {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cache
}

func (a *Aggregator) cacheTTLValue() time.Duration {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cacheTTL
}

// canonicalOptions renders options deterministically for cache keying.
// Callback-free by construction: Options carries only data. The enabled
// slice is sorted on a copy; the caller's Options stay untouched.
func canonicalOptions(opts Options) string {
	if len(opts.EnabledSources) > 0 {
		enabled := make([]string, len(opts.EnabledSources))
		copy(enabled, opts.EnabledSources)
		sort.Strings(enabled)
		opts.EnabledSources = enabled
	}
	data, _ := json.Marshal(opts)
	return string(data)
}

// sortArticles orders the final slice. Relevance counts query-term hits in
// the title weighted by source credibility.
func sortArticles(articles []model.Article, sortBy, query string) {
	switch sortBy {
	case "credibility":
		sort.SliceStable(articles, func(i, j int) bool {
			return articles[i].SourceCredibility() > articles[j].SourceCredibility()
		})
	case "relevance":
		terms := strings.Fields(strings.ToLower(query))
		score := func(a *model.Article) float64 {
			title := strings.ToLower(a.Title)
			hits := 0
			for _, term := range terms {
				if strings.Contains(title, term) {
					hits++
				}
			}
			return float64(hits) + 0.5*a.SourceCredibility()
		}
		sort.SliceStable(articles, func(i, j int) bool {
			return score(&articles[i]) > score(&articles[j])
		})
	default: // publishedAt
		sort.SliceStable(articles, func(i, j int) bool {
			var ti, tj time.Time
			if articles[i].PublishedAt != nil {
				ti = *articles[i].PublishedAt
			}
			if articles[j].PublishedAt != nil {
				tj = *articles[j].PublishedAt
			}
			return ti.After(tj)
		})
	}
}
