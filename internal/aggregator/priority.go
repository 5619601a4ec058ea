package aggregator

import (
	"sort"
	"time"

	"github.com/nkarpov/newsflow/internal/model"
)

// unknownResponseTime stands in for sources with no latency history yet so
// they rank behind proven-fast sources but ahead of proven-slow ones.
const unknownResponseTime = 800 * time.Millisecond

// rankSources orders candidate profiles for fan-out according to the
// priority mode. Chronically failing sources are pushed back in every mode.
func rankSources(profiles []model.SourceProfile, mode model.PriorityMode) []model.SourceProfile {
	ranked := make([]model.SourceProfile, len(profiles))
	copy(ranked, profiles)

	sort.SliceStable(ranked, func(i, j int) bool {
		return priorityScore(&ranked[i], mode) > priorityScore(&ranked[j], mode)
	})
	return ranked
}

// priorityScore maps a profile to a single comparable value, higher first.
func priorityScore(p *model.SourceProfile, mode model.PriorityMode) float64 {
	quality := p.BaseCredibility
	if p.Reputation.AvgArticleQuality > 0 {
		quality = 0.7*p.BaseCredibility + 0.3*p.Reputation.AvgArticleQuality
	}

	rt := p.Reputation.AvgResponseTime
	if rt <= 0 {
		rt = unknownResponseTime
	}
	speed := 1 / (1 + rt.Seconds())

	cost := 1 / (1 + p.CostPerRequest)

	var score float64
	switch mode {
	case model.PriorityQuality:
		score = quality
	case model.PrioritySpeed:
		score = speed
	case model.PriorityCost:
		score = cost
	default: // balanced
		score = 0.5*quality + 0.3*speed + 0.2*cost
	}

	// Reputation feedback: consecutive failures de-prioritize a source until
	// it recovers.
	penalty := 0.1 * float64(p.Reputation.ConsecutiveFailures)
	if penalty > 0.5 {
		penalty = 0.5
	}
	return score - penalty
}
