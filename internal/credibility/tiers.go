package credibility

import "github.com/nkarpov/newsflow/internal/model"

// tierEntry is one row of the built-in domain trust table.
type tierEntry struct {
	tier  model.Tier
	score float64
}

// domainTiers is the exact-domain lookup table. Lookups are exact, never
// substring: "fakereuters.com" must not inherit reuters.com's tier.
var domainTiers = map[string]tierEntry{
	// Tier 1: wire services and papers of record.
	"reuters.com":        {model.Tier1, 0.95},
	"apnews.com":         {model.Tier1, 0.95},
	"nytimes.com":        {model.Tier1, 0.93},
	"bbc.com":            {model.Tier1, 0.93},
	"bbc.co.uk":          {model.Tier1, 0.93},
	"washingtonpost.com": {model.Tier1, 0.92},
	"wsj.com":            {model.Tier1, 0.92},
	"theguardian.com":    {model.Tier1, 0.91},
	"economist.com":      {model.Tier1, 0.91},
	"ft.com":             {model.Tier1, 0.91},
	"bloomberg.com":      {model.Tier1, 0.90},

	// Tier 2: reliable mainstream and specialist outlets.
	"npr.org":         {model.Tier2, 0.85},
	"techcrunch.com":  {model.Tier2, 0.80},
	"theverge.com":    {model.Tier2, 0.80},
	"wired.com":       {model.Tier2, 0.80},
	"arstechnica.com": {model.Tier2, 0.80},
	"axios.com":       {model.Tier2, 0.78},
	"politico.com":    {model.Tier2, 0.78},
	"cnn.com":         {model.Tier2, 0.75},
	"cnbc.com":        {model.Tier2, 0.75},
	"engadget.com":    {model.Tier2, 0.72},
	"venturebeat.com": {model.Tier2, 0.70},

	// Tier 3: supplementary platforms with uneven editorial control.
	"medium.com":      {model.Tier3, 0.60},
	"substack.com":    {model.Tier3, 0.58},
	"buzzfeed.com":    {model.Tier3, 0.55},
	"dailymail.co.uk": {model.Tier3, 0.50},
}

// tierRanges clamp blended scores so a source never scores outside its tier.
var tierRanges = map[model.Tier][2]float64{
	model.Tier1: {0.90, 1.0},
	model.Tier2: {0.70, 0.89},
	model.Tier3: {0.50, 0.69},
}

// lookupTier resolves a domain against the table plus any runtime blocklist
// entries. Unknown domains score a neutral 0.5.
func (s *Scorer) lookupTier(domain string) tierEntry {
	if domain == "" {
		return tierEntry{model.TierUnknown, unknownBaseScore}
	}
	s.mu.RLock()
	_, blocked := s.blocked[domain]
	s.mu.RUnlock()
	if blocked {
		return tierEntry{model.TierBlocked, 0}
	}
	if entry, ok := domainTiers[domain]; ok {
		return entry
	}
	return tierEntry{model.TierUnknown, unknownBaseScore}
}

// clampToTier keeps a blended score inside the tier's range.
func clampToTier(tier model.Tier, score float64) float64 {
	bounds, ok := tierRanges[tier]
	if !ok {
		if score < 0 {
			return 0
		}
		if score > 1 {
			return 1
		}
		return score
	}
	if score < bounds[0] {
		return bounds[0]
	}
	if score > bounds[1] {
		return bounds[1]
	}
	return score
}
