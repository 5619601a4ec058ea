package model

import "time"

// SourceType distinguishes how a source is fetched.
type SourceType string

const (
	SourceTypeRSS SourceType = "rss"
	SourceTypeAPI SourceType = "api"
)

// PriorityMode selects how candidate sources are ranked before fan-out.
type PriorityMode string

const (
	PriorityBalanced PriorityMode = "balanced"
	PriorityQuality  PriorityMode = "quality"
	PrioritySpeed    PriorityMode = "speed"
	PriorityCost     PriorityMode = "cost"
)

// SourceProfile is the persistent per-source configuration plus its mutable
// reputation. Profiles are never deleted; reputation evolves after every
// fetch attempt.
type SourceProfile struct {
	Name            string     `json:"name" yaml:"name"`
	Domain          string     `json:"domain" yaml:"domain"`
	Type            SourceType `json:"type" yaml:"type"`
	Endpoint        string     `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	BaseCredibility float64    `json:"base_credibility" yaml:"base_credibility"`
	Tier            Tier       `json:"tier" yaml:"tier"`
	QuotaLimit      int        `json:"quota_limit,omitempty" yaml:"quota_limit,omitempty"`
	CostPerRequest  float64    `json:"cost_per_request,omitempty" yaml:"cost_per_request,omitempty"`
	Categories      []string   `json:"categories,omitempty" yaml:"categories,omitempty"`

	Reputation Reputation `json:"reputation" yaml:"-"`
}

// Reputation holds rolling per-source statistics updated via exponential
// moving average after each fetch attempt.
type Reputation struct {
	SuccessRate         float64       `json:"success_rate"`
	AvgResponseTime     time.Duration `json:"avg_response_time"`
	AvgArticleQuality   float64       `json:"avg_article_quality"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	TotalRequests       int           `json:"total_requests"`
	TotalFailures       int           `json:"total_failures"`
}

// reputationAlpha is the EMA smoothing factor: recent attempts dominate but
// history is not discarded.
const reputationAlpha = 0.3

// RecordSuccess folds a successful fetch into the reputation.
func (r *Reputation) RecordSuccess(responseTime time.Duration, articleQuality float64) {
	r.TotalRequests++
	r.ConsecutiveFailures = 0
	r.SuccessRate = ema(r.SuccessRate, 1.0, r.TotalRequests)
	if r.AvgResponseTime == 0 {
		r.AvgResponseTime = responseTime
	} else {
		r.AvgResponseTime = time.Duration(float64(r.AvgResponseTime)*(1-reputationAlpha) + float64(responseTime)*reputationAlpha)
	}
	if r.AvgArticleQuality == 0 {
		r.AvgArticleQuality = articleQuality
	} else {
		r.AvgArticleQuality = r.AvgArticleQuality*(1-reputationAlpha) + articleQuality*reputationAlpha
	}
}

// RecordFailure folds a failed fetch into the reputation.
func (r *Reputation) RecordFailure() {
	r.TotalRequests++
	r.TotalFailures++
	r.ConsecutiveFailures++
	r.SuccessRate = ema(r.SuccessRate, 0.0, r.TotalRequests)
}

// ema blends an observation into a running rate. For the first observation
// the value is taken as-is.
func ema(current, observation float64, totalObservations int) float64 {
	if totalObservations <= 1 {
		return observation
	}
	return current*(1-reputationAlpha) + observation*reputationAlpha
}
