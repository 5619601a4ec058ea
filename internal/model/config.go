package model

import "time"

// Config is the full runtime configuration loaded from flags, environment
// and the config file.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http" mapstructure:"http"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Aggregator AggregatorConfig `yaml:"aggregator" mapstructure:"aggregator"`
	Dedup      DedupConfig      `yaml:"dedup" mapstructure:"dedup"`
	Trending   TrendingConfig   `yaml:"trending" mapstructure:"trending"`
	Monitor    MonitorConfig    `yaml:"monitor" mapstructure:"monitor"`
	Sources    []SourceProfile  `yaml:"sources" mapstructure:"sources"`
}

// HTTPConfig controls the outbound fetch client.
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy       string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	RatePerDomain float64       `yaml:"rate_per_domain" mapstructure:"rate_per_domain"`
	RateBurst     int           `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// CacheConfig controls the aggregation result cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	Backend string        `yaml:"backend" mapstructure:"backend"` // memory, disk, layered
	TTL     time.Duration `yaml:"ttl" mapstructure:"ttl"`
	Dir     string        `yaml:"dir,omitempty" mapstructure:"dir"`
}

// AggregatorConfig holds aggregation defaults tunable at runtime.
type AggregatorConfig struct {
	Priority       PriorityMode  `yaml:"priority" mapstructure:"priority"`
	Limit          int           `yaml:"limit" mapstructure:"limit"`
	MinCredibility float64       `yaml:"min_credibility" mapstructure:"min_credibility"`
	SourceTimeout  time.Duration `yaml:"source_timeout" mapstructure:"source_timeout"`
	Deduplication  bool          `yaml:"deduplication" mapstructure:"deduplication"`
	SortBy         string        `yaml:"sort_by" mapstructure:"sort_by"`
}

// DedupConfig holds duplicate-detector thresholds and similarity weights.
type DedupConfig struct {
	NearThreshold    float64 `yaml:"near_threshold" mapstructure:"near_threshold"`
	SimilarThreshold float64 `yaml:"similar_threshold" mapstructure:"similar_threshold"`
	TitleWeight      float64 `yaml:"title_weight" mapstructure:"title_weight"`
	ContentWeight    float64 `yaml:"content_weight" mapstructure:"content_weight"`
	URLWeight        float64 `yaml:"url_weight" mapstructure:"url_weight"`
}

// TrendingConfig holds trend-score weights and gates.
type TrendingConfig struct {
	VelocityWeight      float64       `yaml:"velocity_weight" mapstructure:"velocity_weight"`
	VolumeWeight        float64       `yaml:"volume_weight" mapstructure:"volume_weight"`
	RecencyWeight       float64       `yaml:"recency_weight" mapstructure:"recency_weight"`
	CredibilityWeight   float64       `yaml:"credibility_weight" mapstructure:"credibility_weight"`
	MinMentions         int           `yaml:"min_mentions" mapstructure:"min_mentions"`
	MinVelocity         float64       `yaml:"min_velocity" mapstructure:"min_velocity"`
	SimilarityThreshold float64       `yaml:"similarity_threshold" mapstructure:"similarity_threshold"`
	MaxClusterSize      int           `yaml:"max_cluster_size" mapstructure:"max_cluster_size"`
	TopicStaleness      time.Duration `yaml:"topic_staleness" mapstructure:"topic_staleness"`
}

// MonitorConfig holds continuous-monitoring defaults.
type MonitorConfig struct {
	Interval           time.Duration `yaml:"interval" mapstructure:"interval"`
	MaxTrackedArticles int           `yaml:"max_tracked_articles" mapstructure:"max_tracked_articles"`
}

// DefaultConfig returns the built-in defaults, overridable by the config
// file, NEWSFLOW_* environment variables, and CLI flags.
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:       15 * time.Second,
			UserAgent:     "Newsflow/0.2 (+https://github.com/nkarpov/newsflow)",
			MaxBodyBytes:  4_000_000,
			RespectRobots: true,
			RatePerDomain: 2,
			RateBurst:     4,
		},
		Cache: CacheConfig{
			Enabled: true,
			Backend: "memory",
			TTL:     5 * time.Minute,
		},
		Aggregator: AggregatorConfig{
			Priority:       PriorityBalanced,
			Limit:          50,
			MinCredibility: 0,
			SourceTimeout:  10 * time.Second,
			Deduplication:  true,
			SortBy:         "publishedAt",
		},
		Dedup: DedupConfig{
			NearThreshold:    0.85,
			SimilarThreshold: 0.5,
			TitleWeight:      0.30,
			ContentWeight:    0.50,
			URLWeight:        0.20,
		},
		Trending: TrendingConfig{
			VelocityWeight:      0.35,
			VolumeWeight:        0.25,
			RecencyWeight:       0.20,
			CredibilityWeight:   0.20,
			MinMentions:         2,
			MinVelocity:         0,
			SimilarityThreshold: 0.6,
			MaxClusterSize:      8,
			TopicStaleness:      72 * time.Hour,
		},
		Monitor: MonitorConfig{
			Interval:           5 * time.Minute,
			MaxTrackedArticles: 10_000,
		},
	}
}
