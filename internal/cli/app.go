package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/nkarpov/newsflow/internal/aggregator"
	"github.com/nkarpov/newsflow/internal/cache"
	"github.com/nkarpov/newsflow/internal/dedup"
	"github.com/nkarpov/newsflow/internal/model"
	"github.com/nkarpov/newsflow/internal/source"
	"github.com/nkarpov/newsflow/internal/trending"
)

// loadConfig layers the config file and NEWSFLOW_* environment variables
// over the built-in defaults.
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse configuration: %w", err)
	}
	return cfg, nil
}

// buildAggregator assembles the full pipeline from configuration: HTTP
// client, source adapters, duplicate detector, result cache.
func buildAggregator(cfg *model.Config, logger *slog.Logger) (*aggregator.Aggregator, error) {
	agg := aggregator.New(cfg.Aggregator, cfg.Monitor, nil, nil, logger)

	if err := agg.Detector().SetWeights(dedup.Weights{
		Title:   cfg.Dedup.TitleWeight,
		Content: cfg.Dedup.ContentWeight,
		URL:     cfg.Dedup.URLWeight,
	}); err != nil {
		return nil, fmt.Errorf("dedup weights: %w", err)
	}
	if err := agg.Detector().SetThresholds(cfg.Dedup.NearThreshold, cfg.Dedup.SimilarThreshold); err != nil {
		return nil, fmt.Errorf("dedup thresholds: %w", err)
	}

	if cfg.Cache.Enabled {
		backend, err := buildCache(cfg.Cache)
		if err != nil {
			return nil, err
		}
		agg.WithCache(backend, cfg.Cache.TTL)
	}

	client := source.NewClient(cfg.HTTP)
	profiles := cfg.Sources
	if len(profiles) == 0 {
		profiles = defaultSources()
	}
	for _, profile := range profiles {
		switch profile.Type {
		case model.SourceTypeAPI:
			agg.RegisterSource(source.NewAPIAdapter(profile, client, os.Getenv("NEWSFLOW_API_KEY")))
		default:
			agg.RegisterSource(source.NewRSSAdapter(profile, client))
		}
	}

	return agg, nil
}

func buildCache(cfg model.CacheConfig) (cache.Cache, error) {
	switch cfg.Backend {
	case "", "memory":
		return cache.NewMemoryCache(cfg.TTL, cfg.TTL), nil
	case "disk":
		return cache.NewDiskCache(cacheDir(cfg.Dir), cfg.TTL), nil
	case "layered":
		return cache.NewLayeredCache(cfg.TTL, cacheDir(cfg.Dir), 4*cfg.TTL), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q (want memory, disk or layered)", cfg.Backend)
	}
}

func cacheDir(dir string) string {
	if dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".newsflow-cache"
	}
	return filepath.Join(home, ".newsflow", "cache")
}

// buildAnalyzer creates a trending analyzer from configuration.
func buildAnalyzer(cfg *model.Config) *trending.Analyzer {
	return trending.NewAnalyzer(cfg.Trending)
}

// defaultSources are the feeds used when the config file declares none.
func defaultSources() []model.SourceProfile {
	return []model.SourceProfile{
		{
			Name:            "bbc-news",
			Domain:          "bbc.com",
			Type:            model.SourceTypeRSS,
			Endpoint:        "https://feeds.bbci.co.uk/news/world/rss.xml",
			BaseCredibility: 0.93,
			Tier:            model.Tier1,
			Categories:      []string{"general", "world"},
		},
		{
			Name:            "guardian-world",
			Domain:          "theguardian.com",
			Type:            model.SourceTypeRSS,
			Endpoint:        "https://www.theguardian.com/world/rss",
			BaseCredibility: 0.91,
			Tier:            model.Tier1,
			Categories:      []string{"general", "world"},
		},
		{
			Name:            "npr-news",
			Domain:          "npr.org",
			Type:            model.SourceTypeRSS,
			Endpoint:        "https://feeds.npr.org/1001/rss.xml",
			BaseCredibility: 0.85,
			Tier:            model.Tier2,
			Categories:      []string{"general"},
		},
		{
			Name:            "techcrunch",
			Domain:          "techcrunch.com",
			Type:            model.SourceTypeRSS,
			Endpoint:        "https://techcrunch.com/feed/",
			BaseCredibility: 0.80,
			Tier:            model.Tier2,
			Categories:      []string{"technology"},
		},
		{
			Name:            "the-verge",
			Domain:          "theverge.com",
			Type:            model.SourceTypeRSS,
			Endpoint:        "https://www.theverge.com/rss/index.xml",
			BaseCredibility: 0.80,
			Tier:            model.Tier2,
			Categories:      []string{"technology"},
		},
		{
			Name:            "ars-technica",
			Domain:          "arstechnica.com",
			Type:            model.SourceTypeRSS,
			Endpoint:        "https://feeds.arstechnica.com/arstechnica/index",
			BaseCredibility: 0.80,
			Tier:            model.Tier2,
			Categories:      []string{"technology", "science"},
		},
	}
}
