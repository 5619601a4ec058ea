package credibility

import (
	"testing"

	"github.com/nkarpov/newsflow/internal/model"
)

func TestScorer_Calculate_TierRanges(t *testing.T) {
	s := NewScorer()

	tests := []struct {
		domain   string
		wantTier model.Tier
		min, max float64
	}{
		{"reuters.com", model.Tier1, 0.90, 1.0},
		{"apnews.com", model.Tier1, 0.90, 1.0},
		{"bbc.co.uk", model.Tier1, 0.90, 1.0},
		{"techcrunch.com", model.Tier2, 0.70, 0.89},
		{"venturebeat.com", model.Tier2, 0.70, 0.89},
		{"medium.com", model.Tier3, 0.50, 0.69},
		{"buzzfeed.com", model.Tier3, 0.50, 0.69},
	}

	for _, tt := range tests {
		res := s.Calculate(Descriptor{Name: tt.domain, Domain: tt.domain})
		if res.Tier != tt.wantTier {
			t.Errorf("%s: expected tier %v, got %v", tt.domain, tt.wantTier, res.Tier)
		}
		if res.Score < tt.min || res.Score > tt.max {
			t.Errorf("%s: score %.3f outside tier range [%.2f, %.2f]", tt.domain, res.Score, tt.min, tt.max)
		}
		if res.Confidence < 0.85 {
			t.Errorf("%s: known domain confidence %.3f below 0.85", tt.domain, res.Confidence)
		}
	}
}

func TestScorer_Calculate_UnknownDomain(t *testing.T) {
	s := NewScorer()

	res := s.Calculate(Descriptor{Domain: "random-blog.example"})
	if res.Tier != model.TierUnknown {
		t.Errorf("expected unknown tier, got %v", res.Tier)
	}
	if res.Score != 0.5 {
		t.Errorf("expected neutral score 0.5, got %.3f", res.Score)
	}
	if res.Confidence > 0.3 {
		t.Errorf("expected low confidence for unknown domain, got %.3f", res.Confidence)
	}
	if res.Metadata.HasHistoricalData {
		t.Errorf("fresh scorer should have no history")
	}
}

func TestScorer_Calculate_ExactDomainMatch(t *testing.T) {
	s := NewScorer()

	// Lookalike domains must not inherit the real domain's tier.
	for _, domain := range []string{"fakereuters.com", "reuters.com.evil.example", "notbbc.co.uk"} {
		res := s.Calculate(Descriptor{Domain: domain})
		if res.Tier != model.TierUnknown {
			t.Errorf("%s: expected unknown tier, got %v", domain, res.Tier)
		}
	}
}

func TestScorer_Calculate_UnknownBaseCredibilityCapped(t *testing.T) {
	s := NewScorer()

	base := 0.95
	res := s.Calculate(Descriptor{Domain: "self-hosted.example", BaseCredibility: &base})
	if res.Score > 0.65 {
		t.Errorf("unknown source must not reach vetted range, got %.3f", res.Score)
	}
	if res.Score <= 0.5 {
		t.Errorf("declared base credibility should lift the score above neutral, got %.3f", res.Score)
	}
}

func TestScorer_BlockUnblock(t *testing.T) {
	s := NewScorer()

	s.Block("reuters.com")
	res := s.Calculate(Descriptor{Domain: "reuters.com"})
	if res.Tier != model.TierBlocked {
		t.Errorf("expected blocked tier, got %v", res.Tier)
	}
	if res.Score != 0 {
		t.Errorf("blocked source must score 0, got %.3f", res.Score)
	}

	s.Unblock("reuters.com")
	res = s.Calculate(Descriptor{Domain: "reuters.com"})
	if res.Tier != model.Tier1 {
		t.Errorf("expected tier restored after unblock, got %v", res.Tier)
	}
}

func TestScorer_HistoryLowersScoreWithinTier(t *testing.T) {
	s := NewScorer()

	fresh := s.Calculate(Descriptor{Domain: "techcrunch.com"})
	for i := 0; i < 10; i++ {
		s.UpdateSourceHistory(HistoryRecord{Domain: "techcrunch.com", Success: false})
	}
	degraded := s.Calculate(Descriptor{Domain: "techcrunch.com"})

	if degraded.Score >= fresh.Score {
		t.Errorf("failure history should lower the score: fresh %.3f, degraded %.3f", fresh.Score, degraded.Score)
	}
	if degraded.Score < 0.70 {
		t.Errorf("score must stay inside the tier floor, got %.3f", degraded.Score)
	}
	if !degraded.Metadata.HasHistoricalData || degraded.Metadata.HistorySamples != 10 {
		t.Errorf("expected 10 history samples, got %+v", degraded.Metadata)
	}
}

func TestScorer_ConfidenceGrowsWithHistory(t *testing.T) {
	s := NewScorer()
	domain := "niche-outlet.example"

	before := s.Calculate(Descriptor{Domain: domain}).Confidence
	for i := 0; i < 20; i++ {
		s.UpdateSourceHistory(HistoryRecord{Domain: domain, Success: true, ArticleQuality: 0.8})
	}
	after := s.Calculate(Descriptor{Domain: domain}).Confidence

	if after <= before {
		t.Errorf("confidence should grow with history: before %.3f, after %.3f", before, after)
	}
	if after >= 1.0 {
		t.Errorf("confidence must never reach 1, got %.3f", after)
	}
}

func TestScorer_BatchEvaluate_PreservesOrder(t *testing.T) {
	s := NewScorer()

	descriptors := []Descriptor{
		{Name: "medium", Domain: "medium.com"},
		{Name: "reuters", Domain: "reuters.com"},
		{Name: "blog", Domain: "unknown-blog.example"},
	}
	results := s.BatchEvaluate(descriptors)

	if len(results) != len(descriptors) {
		t.Fatalf("expected %d results, got %d", len(descriptors), len(results))
	}
	for i, d := range descriptors {
		if results[i].Domain != d.Domain {
			t.Errorf("position %d: expected %s, got %s", i, d.Domain, results[i].Domain)
		}
	}
}

func TestSortByScore(t *testing.T) {
	s := NewScorer()
	results := s.BatchEvaluate([]Descriptor{
		{Domain: "medium.com"},
		{Domain: "reuters.com"},
		{Domain: "techcrunch.com"},
	})
	SortByScore(results)

	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("results not sorted: %.3f before %.3f", results[i-1].Score, results[i].Score)
		}
	}
	if results[0].Domain != "reuters.com" {
		t.Errorf("expected reuters.com first, got %s", results[0].Domain)
	}
}

func TestScorer_ForURL(t *testing.T) {
	s := NewScorer()

	res := s.ForURL("https://www.reuters.com/world/some-story-2026/")
	if res.Domain != "reuters.com" {
		t.Errorf("expected domain reuters.com, got %s", res.Domain)
	}
	if res.Tier != model.Tier1 {
		t.Errorf("expected tier 1, got %v", res.Tier)
	}

	// Garbage in, neutral result out.
	res = s.ForURL("not a url")
	if res.Tier != model.TierUnknown {
		t.Errorf("malformed URL should score as unknown, got %v", res.Tier)
	}
}

func TestScorer_ExportImportHistory(t *testing.T) {
	s := NewScorer()
	for i := 0; i < 5; i++ {
		s.UpdateSourceHistory(HistoryRecord{Domain: "techcrunch.com", Success: true, ArticleQuality: 0.7})
	}
	for i := 0; i < 3; i++ {
		s.UpdateSourceHistory(HistoryRecord{Domain: "medium.com", Success: false})
	}

	data, err := s.ExportHistory()
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}

	restoredScorer := NewScorer()
	restored, err := restoredScorer.ImportHistory(data)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if restored != 8 {
		t.Errorf("expected 8 restored records, got %d", restored)
	}
	if restoredScorer.HistorySize() != s.HistorySize() {
		t.Errorf("history size mismatch: %d vs %d", restoredScorer.HistorySize(), s.HistorySize())
	}

	res := restoredScorer.Calculate(Descriptor{Domain: "techcrunch.com"})
	if !res.Metadata.HasHistoricalData || res.Metadata.HistorySamples != 5 {
		t.Errorf("restored history not visible to scoring: %+v", res.Metadata)
	}
}

func TestScorer_ImportHistory_PartialCorruption(t *testing.T) {
	s := NewScorer()

	// One well-formed domain, one corrupt entry.
	data := []byte(`{
		"good.example": [{"domain": "good.example", "success": true, "article_quality": 0.9, "timestamp": "2026-08-01T10:00:00Z"}],
		"bad.example": {"not": "an array"}
	}`)

	restored, err := s.ImportHistory(data)
	if err != nil {
		t.Fatalf("partial corruption must not fail the import: %v", err)
	}
	if restored != 1 {
		t.Errorf("expected 1 restored record, got %d", restored)
	}
	if s.HistorySize() != 1 {
		t.Errorf("expected history size 1, got %d", s.HistorySize())
	}
}

func TestScorer_ImportHistory_Unparseable(t *testing.T) {
	s := NewScorer()
	if _, err := s.ImportHistory([]byte("not json")); err == nil {
		t.Errorf("expected error for unparseable snapshot")
	}
}

func TestScorer_HistoryWindowBounded(t *testing.T) {
	s := NewScorer()
	for i := 0; i < maxRecordsPerDomain+50; i++ {
		s.UpdateSourceHistory(HistoryRecord{Domain: "busy.example", Success: true})
	}
	if s.HistorySize() != maxRecordsPerDomain {
		t.Errorf("expected window capped at %d, got %d", maxRecordsPerDomain, s.HistorySize())
	}

	s.ClearHistory()
	if s.HistorySize() != 0 {
		t.Errorf("expected empty history after clear, got %d", s.HistorySize())
	}
}
