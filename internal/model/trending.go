package model

import "time"

// LifecycleStage positions a trending topic along the emergence-to-fade curve.
type LifecycleStage string

const (
	StageEmerging  LifecycleStage = "emerging"
	StageRising    LifecycleStage = "rising"
	StagePeak      LifecycleStage = "peak"
	StageDeclining LifecycleStage = "declining"
	StageFading    LifecycleStage = "fading"
)

// Lifecycle is a topic's current stage with the confidence of the last
// transition and a short human-readable description.
type Lifecycle struct {
	Stage       LifecycleStage `json:"stage"`
	Confidence  float64        `json:"confidence"`
	Description string         `json:"description"`
}

// TrendScores are the normalized sub-scores combined into the trend score.
type TrendScores struct {
	Velocity    float64 `json:"velocity"`
	Volume      float64 `json:"volume"`
	Recency     float64 `json:"recency"`
	Credibility float64 `json:"credibility"`
}

// TrendingTopic is one ranked keyword with its contributing articles.
type TrendingTopic struct {
	Keyword    string      `json:"keyword"`
	Mentions   int         `json:"mentions"`
	Velocity   float64     `json:"velocity"` // mentions per hour
	Scores     TrendScores `json:"scores"`
	TrendScore float64     `json:"trend_score"`
	Lifecycle  Lifecycle   `json:"lifecycle,omitempty"`
	Articles   []Article   `json:"articles,omitempty"`
	FirstSeen  time.Time   `json:"first_seen"`
	LastSeen   time.Time   `json:"last_seen"`
}

// TopicCluster groups lexically related trending keywords.
type TopicCluster struct {
	MainTopic     string   `json:"main_topic"`
	Keywords      []string `json:"keywords"`
	TotalMentions int      `json:"total_mentions"`
	AvgTrendScore float64  `json:"avg_trend_score"`
}
