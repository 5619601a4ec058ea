package model

// Tier is the discrete credibility bucket of a source domain.
type Tier int

const (
	TierUnknown Tier = 0
	Tier1       Tier = 1 // premium wire services and papers of record
	Tier2       Tier = 2 // reliable mainstream and specialist outlets
	Tier3       Tier = 3 // supplementary platforms and blogs
	TierBlocked Tier = -1
)

func (t Tier) String() string {
	switch t {
	case Tier1:
		return "1"
	case Tier2:
		return "2"
	case Tier3:
		return "3"
	case TierBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// Rank orders tiers for sorting: premium first, unknown after all known
// tiers, blocked last.
func (t Tier) Rank() int {
	switch t {
	case Tier1:
		return 1
	case Tier2:
		return 2
	case Tier3:
		return 3
	case TierUnknown:
		return 4
	default:
		return 5
	}
}

// CredibilityResult is the ephemeral outcome of scoring one source.
type CredibilityResult struct {
	Source     string              `json:"source,omitempty"`
	Domain     string              `json:"domain,omitempty"`
	Score      float64             `json:"score"`
	Tier       Tier                `json:"tier"`
	Confidence float64             `json:"confidence"`
	Factors    CredibilityFactors  `json:"factors"`
	Metadata   CredibilityMetadata `json:"metadata"`
}

// CredibilityFactors breaks the score into its inputs.
type CredibilityFactors struct {
	SourceReputation      float64 `json:"source_reputation"`
	HistoricalPerformance float64 `json:"historical_performance"`
	ContentQuality        float64 `json:"content_quality"`
}

// CredibilityMetadata carries scoring context.
type CredibilityMetadata struct {
	HasHistoricalData bool `json:"has_historical_data"`
	HistorySamples    int  `json:"history_samples,omitempty"`
	SampleArticles    int  `json:"sample_articles,omitempty"`
}
